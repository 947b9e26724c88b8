package navigation

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/panoview/engine/geodesy"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// viewPointer looks north with a 0.8 rad half-width. Pixels map linearly to angles.
type viewPointer struct {
	mu         sync.Mutex
	pitch, yaw float64
}

func (p *viewPointer) aim(pitch, yaw float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pitch, p.yaw = pitch, yaw
}

func (p *viewPointer) ScreenToSpherical(x, y float32) (float64, float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pitch, p.yaw, true
}

func (p *viewPointer) SphericalToScreen(pitch, yaw float64) (float32, float32, bool) {
	d := geodesy.ShortestYawDelta(0, yaw)
	if math.Abs(d) >= math.Pi/2 {
		return 0, 0, false
	}
	return float32(400 + d*500), float32(300 - pitch*500), true
}

func (p *viewPointer) Viewport() (int, int) { return 800, 600 }

type fakeSource struct {
	mu           sync.Mutex
	records      []panorama.PanoramaRecord
	closestCalls int
	nearbyErr    error
}

func (f *fakeSource) FetchClosestPanorama(_ context.Context, lat, lon float64) (panorama.PanoramaRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closestCalls++
	for _, r := range f.records {
		if r.Lat == lat && r.Lon == lon {
			return r, nil
		}
	}
	return panorama.PanoramaRecord{}, errors.New("not found")
}

func (f *fakeSource) FetchNearbyPanoramas(_ context.Context, _, _, _ float64, _ int) ([]panorama.PanoramaRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.nearbyErr != nil {
		return nil, f.nearbyErr
	}
	return append([]panorama.PanoramaRecord(nil), f.records...), nil
}

func record(id string, lat, lon float64) panorama.PanoramaRecord {
	return panorama.PanoramaRecord{ID: id, BuildID: "1", Lat: lat, Lon: lon, Hydrated: true}
}

var (
	panoA    = record("a", 0, 0)
	panoB    = record("b", 0.0009, 0)   // ~100 m north of A
	panoC    = record("c", 0, 0.0003)   // ~33 m east of A
	panoD    = record("d", 0.0015, 0)   // ~66 m north of B, out of range of A
	panoFar  = record("far", 0.00135, 0) // ~150 m north of A
	panoNear = record("near", 0.0002, 0) // ~22 m north of A
	panoEast = record("east", 0, 0.0002) // ~22 m east of A
)

func allRecords() []panorama.PanoramaRecord {
	return []panorama.PanoramaRecord{panoA, panoB, panoC, panoD, panoFar}
}

func targetByID(targets []Target, id string) (Target, bool) {
	for _, t := range targets {
		if t.Panorama.ID == id {
			return t, true
		}
	}
	return Target{}, false
}

func newTestSelector(source *fakeSource, options ...SelectorBuilderOption) (Selector, *viewPointer) {
	pointer := &viewPointer{}
	opts := append([]SelectorBuilderOption{
		WithPointerHost(pointer),
		WithDataSource(source),
		WithHoverRate(0),
	}, options...)
	return NewSelector(opts...), pointer
}

func TestBuildPositionsTargets(t *testing.T) {
	s, _ := newTestSelector(&fakeSource{})
	dup := record("a2", 0, 0)
	dup.BuildID = "2"
	targets := s.Build(panoA, []panorama.PanoramaRecord{dup, panoB, panoC, panoFar})

	require.Len(t, targets, 2)
	_, ok := targetByID(targets, "far")
	assert.False(t, ok, "targets beyond the cutoff are dropped")
	_, ok = targetByID(targets, "a2")
	assert.False(t, ok, "targets at the active coordinates are dropped")

	b, ok := targetByID(targets, "b")
	require.True(t, ok)
	assert.InDelta(t, 100, b.Position.Distance, 2)
	assert.InDelta(t, 0, b.Position.Yaw, 1e-6)
	assert.InDelta(t, -math.Atan2(2.4, b.Position.Distance), b.Position.Pitch, 1e-3)
	assert.InDelta(t, 0.55-0.5*b.Position.Distance/100, b.MarkerScale, 1e-9)

	c, ok := targetByID(targets, "c")
	require.True(t, ok)
	assert.InDelta(t, math.Pi/2, c.Position.Yaw, 1e-6)
	assert.Greater(t, c.MarkerScale, b.MarkerScale)

	active, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, "a", active.ID)
}

func TestBuildReplacesTargets(t *testing.T) {
	s, _ := newTestSelector(&fakeSource{})
	s.Build(panoA, []panorama.PanoramaRecord{panoB, panoC})
	s.Build(panoA, []panorama.PanoramaRecord{panoC})
	targets := s.Targets()
	require.Len(t, targets, 1)
	assert.Equal(t, "c", targets[0].Panorama.ID)
}

func TestBuildHeadingRelative(t *testing.T) {
	s, _ := newTestSelector(&fakeSource{}, WithHeadingRelative(true))
	active := panoA
	active.Heading = math.Pi / 2
	targets := s.Build(active, []panorama.PanoramaRecord{panoB})
	require.Len(t, targets, 1)
	assert.InDelta(t, 3*math.Pi/2, targets[0].Position.Yaw, 1e-6)
}

func TestMarkerScale(t *testing.T) {
	assert.InDelta(t, 0.55, MarkerScale(0, 100), 1e-12)
	assert.InDelta(t, 0.05, MarkerScale(100, 100), 1e-12)
	assert.InDelta(t, 0.3, MarkerScale(50, 100), 1e-12)
}

func TestHoverSelectsTargetAhead(t *testing.T) {
	s, pointer := newTestSelector(&fakeSource{})
	s.Build(panoA, allRecords())
	pointer.aim(0, 0)

	target, processed := s.Hover(400, 300)
	require.True(t, processed)
	require.NotNil(t, target)
	assert.Equal(t, "b", target.Panorama.ID)
}

func TestHoverExcludesOffScreenTargets(t *testing.T) {
	marker := &recordingMarker{}
	s, pointer := newTestSelector(&fakeSource{}, WithMarker(marker))
	s.Build(panoA, allRecords())

	// C is angularly closest to the pointer but lies outside the viewport.
	pointer.aim(0, math.Pi/2)
	target, _ := s.Hover(790, 300)
	require.NotNil(t, target)
	assert.Equal(t, "b", target.Panorama.ID)
	assert.True(t, marker.Visible())
	assert.Equal(t, "b", marker.Payload().ID)
	_, size := marker.Placement()
	assert.InDelta(t, target.MarkerScale, size, 1e-6)

	s.Build(panoA, []panorama.PanoramaRecord{panoC})
	target, processed := s.Hover(790, 300)
	assert.True(t, processed)
	assert.Nil(t, target)
	assert.False(t, marker.Visible())
}

func TestHoverIsRateLimited(t *testing.T) {
	now := time.Unix(1000, 0)
	s, _ := newTestSelector(&fakeSource{},
		WithHoverRate(60),
		WithClock(func() time.Time { return now }),
	)
	s.Build(panoA, allRecords())

	_, processed := s.Hover(400, 300)
	assert.True(t, processed)

	now = now.Add(5 * time.Millisecond)
	_, processed = s.Hover(401, 300)
	assert.False(t, processed)

	now = now.Add(15 * time.Millisecond)
	_, processed = s.Hover(402, 300)
	assert.True(t, processed)
}

func TestSelectIgnoresSecondaryClick(t *testing.T) {
	source := &fakeSource{records: allRecords()}
	s, _ := newTestSelector(source)
	s.Build(panoA, allRecords())
	s.Hover(400, 300)

	require.NoError(t, s.Select(context.Background(), Click{X: 400, Y: 300, Secondary: true}))
	active, _ := s.Active()
	assert.Equal(t, "a", active.ID)
}

func TestSelectNavigatesToMarkerPayload(t *testing.T) {
	source := &fakeSource{records: allRecords()}
	var moved []string
	s, _ := newTestSelector(source)
	s.OnMoved(func(p panorama.PanoramaRecord) { moved = append(moved, p.ID) })
	s.Build(panoA, allRecords())

	target, _ := s.Hover(400, 300)
	require.NotNil(t, target)
	require.NoError(t, s.Select(context.Background(), Click{X: 400, Y: 300}))

	active, _ := s.Active()
	assert.Equal(t, "b", active.ID)
	assert.Equal(t, []string{"b"}, moved)
	assert.Equal(t, 0, source.closestCalls)

	// Targets are rebuilt around B: A is now behind, D ahead.
	a, ok := targetByID(s.Targets(), "a")
	require.True(t, ok)
	assert.InDelta(t, math.Pi, a.Position.Yaw, 1e-6)
	_, ok = targetByID(s.Targets(), "d")
	assert.True(t, ok)

	// Hover is restored at the last pointer position without a new pointer event.
	again, _ := s.Hover(400, 300)
	require.NotNil(t, again)
	assert.Equal(t, "d", again.Panorama.ID)
}

func TestMovedListenersRunInOrder(t *testing.T) {
	s, _ := newTestSelector(&fakeSource{records: allRecords()})
	var calls []string
	s.OnMoved(func(p panorama.PanoramaRecord) {
		calls = append(calls, "first:"+p.ID)
		// A listener registered during delivery only sees later moves.
		s.OnMoved(func(p panorama.PanoramaRecord) { calls = append(calls, "late:"+p.ID) })
	})
	s.OnMoved(func(p panorama.PanoramaRecord) { calls = append(calls, "second:"+p.ID) })
	s.Build(panoA, allRecords())

	require.NoError(t, s.Navigate(context.Background(), panoB))
	assert.Equal(t, []string{"first:b", "second:b"}, calls)

	calls = nil
	require.NoError(t, s.Navigate(context.Background(), panoA))
	assert.Equal(t, []string{"first:a", "second:a", "late:a"}, calls)
}

func TestRehoverAfterMove(t *testing.T) {
	source := &fakeSource{records: allRecords()}
	marker := &recordingMarker{}
	s, _ := newTestSelector(source, WithMarker(marker))
	s.Build(panoA, allRecords())
	s.Hover(400, 300)

	require.NoError(t, s.Navigate(context.Background(), panoB))
	require.True(t, marker.Visible())
	assert.Equal(t, "d", marker.Payload().ID)
}

func TestSelectWithoutHoverPicksAtClick(t *testing.T) {
	source := &fakeSource{records: allRecords()}
	s, _ := newTestSelector(source)
	s.Build(panoA, allRecords())

	require.NoError(t, s.Select(context.Background(), Click{X: 400, Y: 300}))
	active, _ := s.Active()
	assert.Equal(t, "b", active.ID)
}

func TestSelectWithNoTarget(t *testing.T) {
	s, _ := newTestSelector(&fakeSource{})
	s.Build(panoA, nil)
	assert.ErrorIs(t, s.Select(context.Background(), Click{X: 400, Y: 300}), ErrNoTarget)
}

func TestNavigateGuardsReentry(t *testing.T) {
	source := &fakeSource{records: allRecords()}
	entered := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	s, _ := newTestSelector(source, WithTransition(func(ctx context.Context, next panorama.PanoramaRecord) error {
		once.Do(func() { close(entered) })
		<-release
		return nil
	}))
	s.Build(panoA, allRecords())

	done := make(chan error, 1)
	go func() {
		done <- s.Navigate(context.Background(), panoB)
	}()
	<-entered

	assert.True(t, s.Transitioning())
	assert.ErrorIs(t, s.Select(context.Background(), Click{X: 400, Y: 300}), ErrTransitionInProgress)
	assert.ErrorIs(t, s.Navigate(context.Background(), panoC), ErrTransitionInProgress)
	_, processed := s.Hover(400, 300)
	assert.False(t, processed)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, s.Transitioning())
	active, _ := s.Active()
	assert.Equal(t, "b", active.ID)
}

func TestNavigateFailureKeepsActive(t *testing.T) {
	boom := errors.New("boom")
	source := &fakeSource{records: allRecords(), nearbyErr: boom}
	var moved int
	s, _ := newTestSelector(source)
	s.OnMoved(func(panorama.PanoramaRecord) { moved++ })
	s.Build(panoA, allRecords())

	err := s.Navigate(context.Background(), panoB)
	assert.ErrorIs(t, err, boom)
	active, _ := s.Active()
	assert.Equal(t, "a", active.ID)
	assert.False(t, s.Transitioning())
	assert.Zero(t, moved)

	source.mu.Lock()
	source.nearbyErr = nil
	source.mu.Unlock()
	require.NoError(t, s.Navigate(context.Background(), panoB))
	assert.Equal(t, 1, moved)
}

func TestNavigateTransitionFailureKeepsActive(t *testing.T) {
	boom := errors.New("mesh")
	s, _ := newTestSelector(&fakeSource{records: allRecords()}, WithTransition(func(context.Context, panorama.PanoramaRecord) error {
		return boom
	}))
	s.Build(panoA, allRecords())

	assert.ErrorIs(t, s.Navigate(context.Background(), panoB), boom)
	active, _ := s.Active()
	assert.Equal(t, "a", active.ID)
}

func TestNavigateHydratesCoordinateOnlyRecord(t *testing.T) {
	source := &fakeSource{records: allRecords()}
	var activated panorama.PanoramaRecord
	s, _ := newTestSelector(source, WithTransition(func(_ context.Context, next panorama.PanoramaRecord) error {
		activated = next
		return nil
	}))

	require.NoError(t, s.Navigate(context.Background(), panorama.PanoramaRecord{Lat: panoB.Lat, Lon: panoB.Lon}))
	assert.Equal(t, 1, source.closestCalls)
	assert.Equal(t, "b", activated.ID)
	active, ok := s.Active()
	require.True(t, ok)
	assert.Equal(t, "b", active.ID)
	assert.True(t, active.Hydrated)
}

func TestNavigateWithoutSourceNeedsHydratedRecord(t *testing.T) {
	s := NewSelector()
	err := s.Navigate(context.Background(), panorama.PanoramaRecord{Lat: 1, Lon: 2})
	assert.ErrorIs(t, err, ErrNotHydrated)
	_, ok := s.Active()
	assert.False(t, ok)

	require.NoError(t, s.Navigate(context.Background(), panoB))
	active, _ := s.Active()
	assert.Equal(t, "b", active.ID)
	assert.Empty(t, s.Targets())
}

func TestMoveInDirection(t *testing.T) {
	records := []panorama.PanoramaRecord{panoA, panoB, panoNear, panoEast}
	s, _ := newTestSelector(&fakeSource{records: records})
	s.Build(panoA, records)

	near, ok := s.ClosestInDirection(0.3)
	require.True(t, ok)
	assert.Equal(t, "near", near.Panorama.ID)

	east, ok := s.ClosestInDirection(math.Pi / 2)
	require.True(t, ok)
	assert.Equal(t, "east", east.Panorama.ID)

	_, ok = s.ClosestInDirection(math.Pi)
	assert.False(t, ok)
	assert.ErrorIs(t, s.MoveInDirection(context.Background(), math.Pi), ErrNoTarget)

	require.NoError(t, s.MoveInDirection(context.Background(), 0))
	active, _ := s.Active()
	assert.Equal(t, "near", active.ID)
}

func TestEndToEndNorthNeighbour(t *testing.T) {
	s, pointer := newTestSelector(&fakeSource{})
	a := record("a", 0, 0)
	b := record("b", 0.0009, 0)
	targets := s.Build(a, []panorama.PanoramaRecord{b})

	require.Len(t, targets, 1)
	assert.InDelta(t, 0, targets[0].Position.Yaw, 1e-6)
	assert.InDelta(t, 100, targets[0].Position.Distance, 2)

	pointer.aim(0, 0)
	picked, ok := s.Pick(panorama.AngularPosition{})
	require.True(t, ok)
	assert.Equal(t, "b", picked.Panorama.ID)
}

type recordingMarker struct {
	mu      sync.Mutex
	visible bool
	pos     panorama.AngularPosition
	size    float32
	payload *panorama.PanoramaRecord
}

func (m *recordingMarker) Show(pos panorama.AngularPosition, size float32, payload *panorama.PanoramaRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visible, m.pos, m.size, m.payload = true, pos, size, payload
}

func (m *recordingMarker) Hide() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visible, m.payload = false, nil
}

func (m *recordingMarker) Visible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible
}

func (m *recordingMarker) Payload() *panorama.PanoramaRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payload
}

func (m *recordingMarker) Placement() (panorama.AngularPosition, float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos, m.size
}
