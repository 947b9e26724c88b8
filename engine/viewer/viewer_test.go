package viewer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/panoview/common"
	"github.com/Carmen-Shannon/panoview/engine/camera"
	"github.com/Carmen-Shannon/panoview/engine/datasource"
	"github.com/Carmen-Shannon/panoview/engine/decoder"
	"github.com/Carmen-Shannon/panoview/engine/mesh"
	"github.com/Carmen-Shannon/panoview/engine/navigation"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
	"github.com/Carmen-Shannon/panoview/engine/texture_lod"
)

type hostFace struct {
	current, previous *common.TextureStagingData
	mix               float32
}

type fakeHost struct {
	mu        sync.Mutex
	meshes    []mesh.Mesh
	yawOffset float32
	faces     [panorama.FaceCount]hostFace
	snapshots int
	overlay   any
	opacity   float32
	meshErr   error
	onSetMesh func()
}

func (h *fakeHost) ProjectionMatrix() [16]float32 { return [16]float32{} }
func (h *fakeHost) ViewMatrix() [16]float32       { return [16]float32{} }

func (h *fakeHost) SetMesh(m mesh.Mesh, yawOffset float32) error {
	h.mu.Lock()
	hook, err := h.onSetMesh, h.meshErr
	if err == nil {
		h.meshes = append(h.meshes, m)
		h.yawOffset = yawOffset
	}
	h.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (h *fakeHost) SetFaceTexture(face panorama.Face, current, previous *common.TextureStagingData, mix float32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.faces[face] = hostFace{current, previous, mix}
}

func (h *fakeHost) SetSceneOverlay(snapshot any, opacity float32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.overlay, h.opacity = snapshot, opacity
}

func (h *fakeHost) Snapshot() any {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.snapshots++
	return h.snapshots
}

func (h *fakeHost) face(f panorama.Face) hostFace {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.faces[f]
}

type faceFetch struct {
	urlBase string
	zoom    int
	face    panorama.Face
}

type fakeSource struct {
	mu         sync.Mutex
	records    []panorama.PanoramaRecord
	fetches    []faceFetch
	closestErr error
	facePNG    []byte
}

func (s *fakeSource) FetchFace(_ context.Context, urlBase string, zoom int, face panorama.Face, _ decoder.Format) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches = append(s.fetches, faceFetch{urlBase, zoom, face})
	return s.facePNG, nil
}

func (s *fakeSource) FetchNearbyPanoramas(_ context.Context, _, _, _ float64, _ int) ([]panorama.PanoramaRecord, error) {
	return append([]panorama.PanoramaRecord(nil), s.records...), nil
}

func (s *fakeSource) FetchClosestPanorama(_ context.Context, lat, lon float64) (panorama.PanoramaRecord, error) {
	if s.closestErr != nil {
		return panorama.PanoramaRecord{}, s.closestErr
	}
	best, bestD := -1, math.Inf(1)
	for i, r := range s.records {
		if d := math.Hypot(r.Lat-lat, r.Lon-lon); d < bestD {
			best, bestD = i, d
		}
	}
	if best < 0 {
		return panorama.PanoramaRecord{}, datasource.ErrNoPanorama
	}
	return s.records[best], nil
}

func (s *fakeSource) zoomFetches(zoom int) []faceFetch {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []faceFetch
	for _, f := range s.fetches {
		if f.zoom == zoom {
			out = append(out, f)
		}
	}
	return out
}

// syncExecutor runs work inline so every fetch has completed when Submit returns.
type syncExecutor struct{}

func (syncExecutor) Submit(work func() (any, error), complete func(any, error)) {
	complete(work())
}

// queueExecutor holds submitted work until the test drains it.
type queueExecutor struct {
	mu   sync.Mutex
	jobs []func()
}

func (e *queueExecutor) Submit(work func() (any, error), complete func(any, error)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.jobs = append(e.jobs, func() { complete(work()) })
}

func (e *queueExecutor) take() []func() {
	e.mu.Lock()
	defer e.mu.Unlock()
	jobs := e.jobs
	e.jobs = nil
	return jobs
}

func (e *queueExecutor) drain() {
	for _, j := range e.take() {
		j()
	}
}

func testLayout(fovH float64) [panorama.FaceCount]panorama.CameraFace {
	d := common.DegToRad
	return [panorama.FaceCount]panorama.CameraFace{
		{Yaw: d(0), FovS: d(120), FovH: fovH},
		{Yaw: d(90), FovS: d(120), FovH: fovH},
		{Yaw: d(180), FovS: d(120), FovH: fovH},
		{Yaw: d(270), FovS: d(120), FovH: fovH},
		{Pitch: d(90), FovS: d(90), FovH: d(90)},
		{Pitch: d(-90), FovS: d(90), FovH: d(90)},
	}
}

func record(id string, lat, lon float64, fovH float64) panorama.PanoramaRecord {
	return panorama.PanoramaRecord{
		ID: id, BuildID: "1", Lat: lat, Lon: lon,
		CameraFaces: testLayout(fovH),
		Hydrated:    true,
	}
}

var (
	recA = record("a", 0, 0, common.DegToRad(100))
	// recB is about 20 m north of recA.
	recB = record("b", 0.00018, 0, common.DegToRad(100))
	// recC is about 20 m east of recA.
	recC = record("c", 0, 0.00018, common.DegToRad(100))
	// recD is about 20 m west of recA, captured with a different camera layout.
	recD = record("d", 0, -0.00018, common.DegToRad(80))
)

func encodePNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestViewer(t *testing.T, options ...ViewerBuilderOption) (*viewerImpl, *fakeHost, *fakeSource, camera.Camera) {
	t.Helper()
	h := &fakeHost{}
	src := &fakeSource{
		records: []panorama.PanoramaRecord{recA, recB, recC, recD},
		facePNG: encodePNG(t),
	}
	cam := camera.NewCamera(camera.WithViewport(800, 600))
	opts := append([]ViewerBuilderOption{WithExecutor(syncExecutor{})}, options...)
	v := NewViewer(h, cam, src, opts...).(*viewerImpl)
	t.Cleanup(v.Close)
	return v, h, src, cam
}

func targetIDs(targets []navigation.Target) []string {
	ids := make([]string, 0, len(targets))
	for _, tg := range targets {
		ids = append(ids, tg.Panorama.ID)
	}
	return ids
}

func TestOpenActivatesClosestPanorama(t *testing.T) {
	v, h, _, _ := newTestViewer(t)
	var moved []string
	v.OnMoved(func(p panorama.PanoramaRecord) { moved = append(moved, p.ID) })

	require.NoError(t, v.Open(context.Background(), 0.00001, 0))

	active, ok := v.Active()
	require.True(t, ok)
	assert.Equal(t, "a", active.ID)
	assert.Equal(t, []string{"a"}, moved)

	require.Len(t, h.meshes, 1)
	assert.InDelta(t, LongitudeOffset, h.yawOffset, 1e-6)
	assert.Zero(t, h.snapshots)

	for _, f := range panorama.AllFaces() {
		assert.NotNil(t, h.face(f).current, "face %s", f)
	}
	assert.Equal(t, 1.0, v.Progress())
	for _, z := range v.FaceZooms() {
		assert.Equal(t, 5, z)
	}
	assert.ElementsMatch(t, []string{"b", "c", "d"}, targetIDs(v.Targets()))
}

func TestNavigateFadesAndReusesMesh(t *testing.T) {
	v, h, _, _ := newTestViewer(t, WithTextureOptions(texture_lod.WithSceneFadeDuration(time.Second, false)))
	ctx := context.Background()
	require.NoError(t, v.Open(ctx, 0, 0))

	require.NoError(t, v.Navigate(ctx, recB))
	active, _ := v.Active()
	assert.Equal(t, "b", active.ID)
	require.Len(t, h.meshes, 2)
	assert.Same(t, h.meshes[0], h.meshes[1])
	assert.Equal(t, 1, h.snapshots)
	assert.Equal(t, 1, h.overlay)
	assert.Equal(t, float32(1), h.opacity)

	v.Tick(100 * time.Millisecond)
	assert.Equal(t, 1, h.overlay)
	assert.InDelta(t, 0.9, h.opacity, 1e-3)

	v.Tick(2 * time.Second)
	assert.Nil(t, h.overlay)
	assert.Zero(t, h.opacity)
}

func TestNavigateRebuildsMeshForNewLayout(t *testing.T) {
	v, h, _, _ := newTestViewer(t)
	ctx := context.Background()
	require.NoError(t, v.Open(ctx, 0, 0))

	require.NoError(t, v.Navigate(ctx, recD))
	require.Len(t, h.meshes, 2)
	assert.NotSame(t, h.meshes[0], h.meshes[1])
}

func TestNavigateFailureKeepsActive(t *testing.T) {
	v, h, src, _ := newTestViewer(t)
	ctx := context.Background()
	require.NoError(t, v.Open(ctx, 0, 0))

	src.closestErr = errors.New("offline")
	err := v.Navigate(ctx, panorama.PanoramaRecord{Lat: 5, Lon: 5})
	require.Error(t, err)

	active, ok := v.Active()
	require.True(t, ok)
	assert.Equal(t, "a", active.ID)
	assert.Len(t, h.meshes, 1)
}

func TestSetMeshFailureStartsNoFade(t *testing.T) {
	v, h, _, _ := newTestViewer(t, WithTextureOptions(texture_lod.WithSceneFadeDuration(time.Second, false)))
	ctx := context.Background()
	require.NoError(t, v.Open(ctx, 0, 0))

	h.mu.Lock()
	h.meshErr = errors.New("device lost")
	h.mu.Unlock()

	require.Error(t, v.Navigate(ctx, recB))
	active, _ := v.Active()
	assert.Equal(t, "a", active.ID)
	assert.False(t, v.lod.SceneFader().Active())
	assert.Nil(t, h.overlay)
	for _, f := range panorama.AllFaces() {
		assert.NotNil(t, h.face(f).current, "face %s", f)
	}
	assert.Equal(t, recA.URLBase(), v.lod.Source())
}

func TestLateCompletionDoesNotLeakIntoNextPanorama(t *testing.T) {
	exec := &queueExecutor{}
	v, h, _, cam := newTestViewer(t, WithExecutor(exec))
	ctx := context.Background()
	require.NoError(t, v.Open(ctx, 0, 0))
	exec.drain()

	cam.Controller().SetZoomLevel(40)
	v.Tick(16 * time.Millisecond)
	upgrades := exec.take()
	require.NotEmpty(t, upgrades)

	// The upgrades for A finish while the host is switching to B's mesh.
	h.mu.Lock()
	h.onSetMesh = func() {
		for _, j := range upgrades {
			j()
		}
	}
	h.mu.Unlock()

	require.NoError(t, v.Navigate(ctx, recB))
	for _, f := range panorama.AllFaces() {
		hf := h.face(f)
		assert.Nil(t, hf.current, "face %s", f)
		assert.Nil(t, hf.previous, "face %s", f)
	}

	exec.drain()
	for _, f := range panorama.AllFaces() {
		assert.NotNil(t, h.face(f).current, "face %s", f)
		assert.Equal(t, recB.URLBase(), v.lod.Slot(f).SourceURL)
	}
}

func TestTickUpgradesVisibleFaces(t *testing.T) {
	v, h, src, cam := newTestViewer(t)
	require.NoError(t, v.Open(context.Background(), 0, 0))

	cam.Controller().SetZoomLevel(40)
	v.Tick(16 * time.Millisecond)

	upgraded := src.zoomFetches(0)
	require.NotEmpty(t, upgraded)
	f := upgraded[0].face
	assert.Equal(t, recA.URLBase(), upgraded[0].urlBase)
	assert.Equal(t, 0, v.FaceZooms()[f])

	hf := h.face(f)
	assert.NotNil(t, hf.current)
	assert.NotNil(t, hf.previous)
	assert.Equal(t, float32(1), hf.mix)

	// A second pass does not request the same tier again.
	v.Tick(16 * time.Millisecond)
	assert.Len(t, src.zoomFetches(0), len(upgraded))
}

func TestMoveInViewDirection(t *testing.T) {
	v, _, _, cam := newTestViewer(t)
	ctx := context.Background()

	assert.ErrorIs(t, v.Move(ctx, DirectionForward), ErrNoActivePanorama)
	require.NoError(t, v.Open(ctx, 0, 0))

	assert.ErrorIs(t, v.Move(ctx, DirectionBackward), navigation.ErrNoTarget)

	require.NoError(t, v.Move(ctx, DirectionRight))
	active, _ := v.Active()
	assert.Equal(t, "c", active.ID)

	// Facing east, left is north: recB is about 20 m north-west of recC.
	cam.Controller().SetYaw(math.Pi / 2)
	cam.Update()
	assert.ErrorIs(t, v.Move(ctx, DirectionLeft), navigation.ErrNoTarget)
	require.NoError(t, v.Move(ctx, DirectionBackward))
	active, _ = v.Active()
	assert.Equal(t, "a", active.ID)
}

func TestPointerDragRotatesAndClickSelects(t *testing.T) {
	v, _, _, cam := newTestViewer(t)
	ctx := context.Background()
	require.NoError(t, v.Open(ctx, 0, 0))

	yaw := cam.Controller().Yaw()
	v.PointerDown(400, 300)
	v.PointerMove(450, 300)
	assert.NotEqual(t, yaw, cam.Controller().Yaw())
	assert.Nil(t, v.PointerUp(450, 300))

	cam.Controller().SetYaw(0)
	cam.Controller().SetPitch(0)
	cam.Update()

	v.PointerDown(400, 300)
	click := v.PointerUp(401, 300)
	require.NotNil(t, click)
	assert.False(t, click.Secondary)

	require.NoError(t, v.Click(ctx, *click))
	active, _ := v.Active()
	assert.Equal(t, "b", active.ID)

	assert.NoError(t, v.Click(ctx, navigation.Click{X: 400, Y: 300, Secondary: true}))
	active, _ = v.Active()
	assert.Equal(t, "b", active.ID)
}

func TestRotateSuspendedDuringFade(t *testing.T) {
	v, _, _, cam := newTestViewer(t, WithTextureOptions(texture_lod.WithSceneFadeDuration(time.Second, true)))
	ctx := context.Background()
	require.NoError(t, v.Open(ctx, 0, 0))
	require.NoError(t, v.Navigate(ctx, recB))

	yaw := cam.Controller().Yaw()
	v.Rotate(0.5, 0)
	assert.Equal(t, yaw, cam.Controller().Yaw())

	v.Tick(2 * time.Second)
	v.Rotate(0.5, 0)
	assert.InDelta(t, common.WrapAngle(yaw+0.5), cam.Controller().Yaw(), 1e-9)
}

func TestGoLogsAndWaits(t *testing.T) {
	v, _, _, _ := newTestViewer(t)
	done := make(chan struct{})
	v.Go(func(ctx context.Context) error {
		defer close(done)
		return v.Open(ctx, 0, 0)
	})
	<-done
	v.Close()
	_, ok := v.Active()
	assert.True(t, ok)
}

func TestKeyBinding(t *testing.T) {
	tests := []struct {
		key    uint32
		action KeyAction
		dir    Direction
	}{
		{common.KeyUp, KeyActionMove, DirectionForward},
		{common.KeyDown, KeyActionMove, DirectionBackward},
		{common.KeyLeft, KeyActionMove, DirectionLeft},
		{common.KeyRight, KeyActionMove, DirectionRight},
		{common.KeyEqual, KeyActionZoomIn, 0},
		{common.KeyKPSubtract, KeyActionZoomOut, 0},
		{common.KeySpace, KeyActionNone, 0},
	}
	for _, tt := range tests {
		action, dir := KeyBinding(tt.key)
		assert.Equal(t, tt.action, action, "key %d", tt.key)
		assert.Equal(t, tt.dir, dir, "key %d", tt.key)
	}
}

func TestKeyZoom(t *testing.T) {
	v, _, _, cam := newTestViewer(t)
	level := cam.Controller().ZoomLevel()
	Key(v, common.KeyEqual, 2)
	assert.Greater(t, cam.Controller().ZoomLevel(), level)
	Key(v, common.KeyMinus, 2)
	assert.InDelta(t, level, cam.Controller().ZoomLevel(), 1e-4)
}
