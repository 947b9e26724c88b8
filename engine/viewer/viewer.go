// Package viewer ties the panorama core together: it activates panoramas on the render host,
// streams their face textures, keeps the navigation targets current and turns pointer and key
// input into camera motion and moves.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Carmen-Shannon/panoview/common"
	"github.com/Carmen-Shannon/panoview/engine/camera"
	"github.com/Carmen-Shannon/panoview/engine/datasource"
	"github.com/Carmen-Shannon/panoview/engine/dispatch"
	"github.com/Carmen-Shannon/panoview/engine/host"
	"github.com/Carmen-Shannon/panoview/engine/mesh"
	"github.com/Carmen-Shannon/panoview/engine/navigation"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
	"github.com/Carmen-Shannon/panoview/engine/screen_frustum"
	"github.com/Carmen-Shannon/panoview/engine/texture_lod"
)

// LongitudeOffset is the yaw between a capture's face-local forward direction and its heading.
// The sphere is turned by heading + LongitudeOffset so that world yaw 0 points north.
const LongitudeOffset = 1.07992247

// ErrNoActivePanorama is returned by operations that need an active panorama before Open.
var ErrNoActivePanorama = errors.New("no active panorama")

// Direction is a keyboard move relative to the view direction.
type Direction int

const (
	DirectionForward Direction = iota
	DirectionBackward
	DirectionLeft
	DirectionRight
)

// yaw returns the direction's offset from the view yaw.
func (d Direction) yaw() float64 {
	switch d {
	case DirectionBackward:
		return math.Pi
	case DirectionLeft:
		return -math.Pi / 2
	case DirectionRight:
		return math.Pi / 2
	default:
		return 0
	}
}

type viewerImpl struct {
	mu *sync.Mutex
	// pushMu orders slot reads with host updates so a reset slot is never overwritten by an older read.
	pushMu *sync.Mutex

	host     host.RenderHost
	cam      camera.Camera
	source   datasource.DataSource
	marker   host.Marker
	logger   *slog.Logger
	executor dispatch.Executor
	ctx      context.Context
	cancel   context.CancelFunc
	wg       sync.WaitGroup

	builder  mesh.MeshBuilder
	tracker  screen_frustum.Tracker
	lod      texture_lod.Manager
	selector navigation.Selector

	managerOptions  []texture_lod.ManagerBuilderOption
	selectorOptions []navigation.SelectorBuilderOption
	onProgress      func(progress float64)

	clickSlop float32
	keyZoom   float32

	// Active panorama and its geometry.
	active    panorama.PanoramaRecord
	hasActive bool
	mesh      mesh.Mesh
	layout    [panorama.FaceCount]panorama.CameraFace
	yawOffset float32

	overlayShown bool

	// Pointer state.
	pressed        bool
	dragged        bool
	pressX, pressY float32
	lastX, lastY   float32
}

// Viewer is the panorama viewer core.
// Input methods may be called from the window thread and Tick from the tick loop; moves run on the
// caller's goroutine and can be dispatched asynchronously with Go.
type Viewer interface {
	// Open shows the panorama closest to a coordinate.
	//
	// Parameters:
	//   - ctx: cancels the lookups
	//   - lat, lon: the coordinate in degrees
	//
	// Returns:
	//   - error: datasource.ErrNoPanorama, navigation.ErrTransitionInProgress or a fetch error
	Open(ctx context.Context, lat, lon float64) error

	// Navigate moves to a panorama, hydrating coordinate-only records first.
	//
	// Parameters:
	//   - ctx: cancels the lookups
	//   - target: the destination
	//
	// Returns:
	//   - error: error if the move failed, in which case the active panorama is unchanged
	Navigate(ctx context.Context, target panorama.PanoramaRecord) error

	// Move goes to the closest navigation target in a direction relative to the view.
	//
	// Parameters:
	//   - ctx: cancels the move
	//   - dir: the direction
	//
	// Returns:
	//   - error: navigation.ErrNoTarget if nothing lies that way
	Move(ctx context.Context, dir Direction) error

	// PointerDown starts a potential drag or click.
	//
	// Parameters:
	//   - x, y: pointer position in viewport pixels
	PointerDown(x, y float32)

	// PointerMove rotates the view while the pointer is down and updates the hover marker
	// otherwise.
	//
	// Parameters:
	//   - x, y: pointer position in viewport pixels
	PointerMove(x, y float32)

	// PointerUp ends a drag. A release close to the press position is a click.
	//
	// Parameters:
	//   - x, y: pointer position in viewport pixels
	//
	// Returns:
	//   - *navigation.Click: the click to pass to Click, nil if the pointer was dragged
	PointerUp(x, y float32) *navigation.Click

	// Click selects the marked target or the target under the click.
	//
	// Parameters:
	//   - ctx: cancels the move
	//   - click: the click
	//
	// Returns:
	//   - error: navigation errors
	Click(ctx context.Context, click navigation.Click) error

	// Rotate turns the view unless a panorama switch suspends rotation.
	//
	// Parameters:
	//   - dYaw, dPitch: angles in radians
	Rotate(dYaw, dPitch float64)

	// Zoom changes the zoom level, positive zooms in.
	//
	// Parameters:
	//   - delta: zoom input
	Zoom(delta float32)

	// Tick advances crossfades and the panorama fade, pushes the results to the render host and
	// requests sharper textures for visible faces.
	//
	// Parameters:
	//   - dt: time since the last tick
	Tick(dt time.Duration)

	// Go runs a move on a tracked goroutine bound to the viewer's lifetime. Errors are logged.
	//
	// Parameters:
	//   - op: the operation to run
	Go(op func(ctx context.Context) error)

	// OnMoved registers a function called after every completed move.
	//
	// Parameters:
	//   - fn: receives the new active panorama
	OnMoved(fn func(panorama.PanoramaRecord))

	// Active returns the active panorama.
	//
	// Returns:
	//   - panorama.PanoramaRecord: the active panorama
	//   - bool: false before the first successful Open
	Active() (panorama.PanoramaRecord, bool)

	// Targets returns the navigation targets of the active panorama.
	Targets() []navigation.Target

	// FaceZooms returns the displayed zoom tier per face, texture_lod.NoZoom where none is shown.
	FaceZooms() [panorama.FaceCount]int

	// Progress returns the initial load progress of the active panorama in [0, 1].
	Progress() float64

	// Close cancels in-flight moves and waits for the goroutines started by Go.
	Close()
}

var _ Viewer = &viewerImpl{}

// NewViewer creates a Viewer.
//
// Parameters:
//   - rh: the render host receiving mesh, textures and overlays
//   - cam: the camera, also used for pointer conversions and visibility
//   - source: the panorama data source
//   - options: functional options
//
// Returns:
//   - Viewer: the viewer
func NewViewer(rh host.RenderHost, cam camera.Camera, source datasource.DataSource, options ...ViewerBuilderOption) Viewer {
	v := &viewerImpl{
		mu:        &sync.Mutex{},
		pushMu:    &sync.Mutex{},
		host:      rh,
		cam:       cam,
		source:    source,
		marker:    host.NewMarker(),
		logger:    slog.Default(),
		executor:  dispatch.NewGoExecutor(),
		builder:   mesh.NewMeshBuilder(),
		clickSlop: 4,
		keyZoom:   1,
	}
	for _, opt := range options {
		opt(v)
	}
	v.ctx, v.cancel = context.WithCancel(context.Background())

	v.tracker = screen_frustum.NewTracker(cam)

	managerOptions := append([]texture_lod.ManagerBuilderOption{
		texture_lod.WithFetcher(source),
		texture_lod.WithExecutor(v.executor),
		texture_lod.WithContext(v.ctx),
		texture_lod.WithLogger(v.logger),
		texture_lod.WithUpdateCallback(v.pushFace),
		texture_lod.WithProgressCallback(v.reportProgress),
	}, v.managerOptions...)
	v.lod = texture_lod.NewManager(managerOptions...)

	selectorOptions := append([]navigation.SelectorBuilderOption{
		navigation.WithPointerHost(cam),
		navigation.WithMarker(v.marker),
		navigation.WithDataSource(source),
		navigation.WithTransition(v.activate),
		navigation.WithLogger(v.logger),
	}, v.selectorOptions...)
	v.selector = navigation.NewSelector(selectorOptions...)

	return v
}

func (v *viewerImpl) Open(ctx context.Context, lat, lon float64) error {
	return v.selector.Navigate(ctx, panorama.PanoramaRecord{Lat: lat, Lon: lon})
}

func (v *viewerImpl) Navigate(ctx context.Context, target panorama.PanoramaRecord) error {
	return v.selector.Navigate(ctx, target)
}

func (v *viewerImpl) Move(ctx context.Context, dir Direction) error {
	if _, ok := v.Active(); !ok {
		return ErrNoActivePanorama
	}
	yaw := common.WrapAngle(v.cam.Controller().Yaw() + dir.yaw())
	return v.selector.MoveInDirection(ctx, yaw)
}

// activate is the transition of every move: it runs after the destination is hydrated and before
// the navigation targets are rebuilt. Nothing is changed when it fails.
func (v *viewerImpl) activate(_ context.Context, next panorama.PanoramaRecord) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	m := v.mesh
	if m == nil || v.builder.NeedsRebuild(v.layout, next.CameraFaces) {
		built, err := v.builder.Build(next.CameraFaces)
		if err != nil {
			return fmt.Errorf("failed to build mesh: %w", err)
		}
		m = built
		v.logger.Debug("panorama mesh built", "panorama", next.Key())
	}

	var snapshot any
	if v.hasActive {
		snapshot = v.host.Snapshot()
	}

	yawOffset := float32(common.WrapAngle(next.Heading + LongitudeOffset))
	if err := v.host.SetMesh(m, yawOffset); err != nil {
		return fmt.Errorf("failed to set mesh: %w", err)
	}

	if v.hasActive {
		fader := v.lod.SceneFader()
		fader.Begin(snapshot)
		if fader.Active() {
			v.host.SetSceneOverlay(fader.Snapshot(), fader.Opacity())
			v.overlayShown = true
		}
	}

	v.mesh = m
	v.layout = next.CameraFaces
	v.yawOffset = yawOffset
	v.active = next
	v.hasActive = true

	// Activate pushes every reset slot back through pushFace, which clears the host's faces.
	v.lod.Activate(next)
	return nil
}

// pushFace hands a face's slot to the render host. Called by the texture manager, possibly on an
// executor goroutine.
func (v *viewerImpl) pushFace(face panorama.Face) {
	v.pushMu.Lock()
	defer v.pushMu.Unlock()
	slot := v.lod.Slot(face)
	var previous *common.TextureStagingData
	var mix float32
	if slot.Blend.Active {
		previous, mix = slot.Blend.Previous, slot.Blend.Mix
	}
	v.host.SetFaceTexture(face, slot.Image, previous, mix)
}

func (v *viewerImpl) reportProgress(progress float64) {
	v.logger.Debug("panorama loading", "progress", progress)
	if v.onProgress != nil {
		v.onProgress(progress)
	}
}

func (v *viewerImpl) PointerDown(x, y float32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.pressed, v.dragged = true, false
	v.pressX, v.pressY = x, y
	v.lastX, v.lastY = x, y
}

func (v *viewerImpl) PointerMove(x, y float32) {
	v.mu.Lock()
	pressed := v.pressed
	dx, dy := x-v.lastX, y-v.lastY
	v.lastX, v.lastY = x, y
	if pressed && !v.dragged && math.Hypot(float64(x-v.pressX), float64(y-v.pressY)) > float64(v.clickSlop) {
		v.dragged = true
	}
	v.mu.Unlock()

	if pressed {
		if v.lod.SceneFader().RotationSuspended() {
			return
		}
		_, h := v.cam.Viewport()
		v.cam.Controller().Drag(dx, dy, h)
		v.cam.Update()
		return
	}
	v.selector.Hover(x, y)
}

func (v *viewerImpl) PointerUp(x, y float32) *navigation.Click {
	v.mu.Lock()
	defer v.mu.Unlock()
	wasClick := v.pressed && !v.dragged &&
		math.Hypot(float64(x-v.pressX), float64(y-v.pressY)) <= float64(v.clickSlop)
	v.pressed, v.dragged = false, false
	if !wasClick {
		return nil
	}
	return &navigation.Click{X: x, Y: y}
}

func (v *viewerImpl) Click(ctx context.Context, click navigation.Click) error {
	return v.selector.Select(ctx, click)
}

func (v *viewerImpl) Rotate(dYaw, dPitch float64) {
	if v.lod.SceneFader().RotationSuspended() {
		return
	}
	v.cam.Controller().Rotate(dYaw, dPitch)
	v.cam.Update()
}

func (v *viewerImpl) Zoom(delta float32) {
	v.cam.Controller().Zoom(delta)
	v.cam.Update()
}

func (v *viewerImpl) Tick(dt time.Duration) {
	v.lod.Tick(dt)

	fader := v.lod.SceneFader()
	v.mu.Lock()
	switch {
	case fader.Active():
		v.host.SetSceneOverlay(fader.Snapshot(), fader.Opacity())
		v.overlayShown = true
	case v.overlayShown:
		v.host.SetSceneOverlay(nil, 0)
		v.overlayShown = false
	}
	m, yawOffset := v.mesh, v.yawOffset
	v.mu.Unlock()
	if m == nil {
		return
	}
	v.cam.Update()
	visible := v.tracker.VisibleFaces(m, yawOffset)
	v.lod.Refresh(visible, float64(v.cam.Fov()))
}

func (v *viewerImpl) Go(op func(ctx context.Context) error) {
	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		err := op(v.ctx)
		switch {
		case err == nil:
		case errors.Is(err, navigation.ErrTransitionInProgress), errors.Is(err, navigation.ErrNoTarget):
			v.logger.Debug("input ignored", "reason", err)
		case errors.Is(err, context.Canceled):
		default:
			v.logger.Warn("viewer operation failed", "error", err)
		}
	}()
}

func (v *viewerImpl) OnMoved(fn func(panorama.PanoramaRecord)) {
	v.selector.OnMoved(fn)
}

func (v *viewerImpl) Active() (panorama.PanoramaRecord, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.active, v.hasActive
}

func (v *viewerImpl) Targets() []navigation.Target {
	return v.selector.Targets()
}

func (v *viewerImpl) FaceZooms() [panorama.FaceCount]int {
	var zooms [panorama.FaceCount]int
	for i, s := range v.lod.Slots() {
		zooms[i] = s.Zoom
	}
	return zooms
}

func (v *viewerImpl) Progress() float64 {
	return v.lod.Progress()
}

func (v *viewerImpl) Close() {
	v.cancel()
	v.wg.Wait()
}
