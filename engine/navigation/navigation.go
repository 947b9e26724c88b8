// Package navigation picks the panorama a pointer or key press should move to and performs the
// move.
package navigation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/Carmen-Shannon/panoview/engine/geodesy"
	"github.com/Carmen-Shannon/panoview/engine/host"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
)

var (
	// ErrTransitionInProgress is returned when a move is requested while another is running.
	ErrTransitionInProgress = errors.New("navigation transition in progress")
	// ErrNoTarget is returned when no target matches a selection.
	ErrNoTarget = errors.New("no navigation target")
	// ErrNotHydrated is returned when a coordinate-only record cannot be resolved.
	ErrNotHydrated = errors.New("panorama metadata not available")
)

// DataSource resolves panoramas by position.
type DataSource interface {
	// FetchClosestPanorama returns the panorama nearest to a coordinate.
	//
	// Parameters:
	//   - ctx: cancels the request
	//   - lat, lon: the coordinate in degrees
	//
	// Returns:
	//   - panorama.PanoramaRecord: the hydrated record
	//   - error: error if none was found or the request failed
	FetchClosestPanorama(ctx context.Context, lat, lon float64) (panorama.PanoramaRecord, error)

	// FetchNearbyPanoramas returns panoramas around a coordinate.
	//
	// Parameters:
	//   - ctx: cancels the request
	//   - lat, lon: the coordinate in degrees
	//   - radius: search radius in meters
	//   - limit: maximum number of records
	//
	// Returns:
	//   - []panorama.PanoramaRecord: the records
	//   - error: error if the request failed
	FetchNearbyPanoramas(ctx context.Context, lat, lon, radius float64, limit int) ([]panorama.PanoramaRecord, error)
}

// Click is a pointer click in viewport pixels.
type Click struct {
	X, Y      float32
	Secondary bool
}

// TransitionFunc prepares the viewer for the next panorama. Returning an error aborts the move.
type TransitionFunc func(ctx context.Context, next panorama.PanoramaRecord) error

type selectorImpl struct {
	mu *sync.Mutex

	pointer    host.PointerHost
	marker     host.Marker
	source     DataSource
	transition TransitionFunc
	logger     *slog.Logger
	clock      func() time.Time
	limiter    *rate.Limiter

	maxDistance     float64
	cameraHeight    float64
	headingRelative bool
	nearbyLimit     int
	hoverRate       float64
	dirTolerance    float64
	dirRange        float64

	set           atomic.Pointer[targetSet]
	transitioning atomic.Bool

	lastX, lastY float32
	hasPointer   bool
	listeners    []func(panorama.PanoramaRecord)
}

// Selector owns the navigation targets of the active panorama, drives the marker and performs
// moves. Only one move runs at a time.
type Selector interface {
	// Build replaces the target set with candidates positioned relative to active.
	//
	// Parameters:
	//   - active: the panorama now shown
	//   - candidates: nearby panoramas
	//
	// Returns:
	//   - []Target: the new targets
	Build(active panorama.PanoramaRecord, candidates []panorama.PanoramaRecord) []Target

	// Targets returns the current targets.
	Targets() []Target

	// Active returns the panorama the targets were built for.
	//
	// Returns:
	//   - panorama.PanoramaRecord: the active panorama
	//   - bool: false before the first Build
	Active() (panorama.PanoramaRecord, bool)

	// Pick returns the on-screen target closest to a direction.
	//
	// Parameters:
	//   - pos: the direction; only Pitch and Yaw are used
	//
	// Returns:
	//   - Target: the closest target
	//   - bool: false if no target is on screen
	Pick(pos panorama.AngularPosition) (Target, bool)

	// Hover updates the marker for a pointer position. Calls faster than the hover rate and calls
	// during a move are dropped.
	//
	// Parameters:
	//   - x, y: pointer position in viewport pixels
	//
	// Returns:
	//   - *Target: the target under the marker, nil if the marker is hidden
	//   - bool: false if the call was dropped
	Hover(x, y float32) (*Target, bool)

	// Select handles a click. Secondary clicks are ignored. If the marker is visible the move goes
	// to its payload, otherwise to the target picked at the click position.
	//
	// Parameters:
	//   - ctx: cancels the move
	//   - click: the click
	//
	// Returns:
	//   - error: ErrTransitionInProgress, ErrNoTarget or a move error
	Select(ctx context.Context, click Click) error

	// Navigate moves to a panorama. Coordinate-only records are hydrated first. On failure the
	// active panorama is left unchanged.
	//
	// Parameters:
	//   - ctx: cancels the move
	//   - target: the destination
	//
	// Returns:
	//   - error: ErrTransitionInProgress, ErrNotHydrated or a data source error
	Navigate(ctx context.Context, target panorama.PanoramaRecord) error

	// ClosestInDirection returns the nearest target within the direction range whose yaw is
	// within the tolerance of yaw.
	//
	// Parameters:
	//   - yaw: the direction in radians, in the target frame
	//
	// Returns:
	//   - Target: the target
	//   - bool: false if none qualifies
	ClosestInDirection(yaw float64) (Target, bool)

	// MoveInDirection navigates to ClosestInDirection(yaw).
	//
	// Parameters:
	//   - ctx: cancels the move
	//   - yaw: the direction in radians
	//
	// Returns:
	//   - error: ErrNoTarget or a move error
	MoveInDirection(ctx context.Context, yaw float64) error

	// OnMoved registers a function called after every completed move.
	//
	// Parameters:
	//   - fn: receives the new active panorama
	OnMoved(fn func(panorama.PanoramaRecord))

	// Transitioning reports whether a move is running.
	Transitioning() bool
}

var _ Selector = &selectorImpl{}

// NewSelector creates a Selector.
//
// Parameters:
//   - options: functional options for the selector
//
// Returns:
//   - Selector: the selector
func NewSelector(options ...SelectorBuilderOption) Selector {
	s := &selectorImpl{
		mu:           &sync.Mutex{},
		marker:       host.NewMarker(),
		logger:       slog.Default(),
		clock:        time.Now,
		maxDistance:  100,
		cameraHeight: 2.4,
		nearbyLimit:  50,
		hoverRate:    60,
		dirTolerance: 30 * math.Pi / 180,
		dirRange:     25,
	}
	for _, opt := range options {
		opt(s)
	}
	limit := rate.Inf
	if s.hoverRate > 0 {
		limit = rate.Limit(s.hoverRate)
	}
	s.limiter = rate.NewLimiter(limit, 1)
	return s
}

func (s *selectorImpl) Build(active panorama.PanoramaRecord, candidates []panorama.PanoramaRecord) []Target {
	var heading float64
	if s.headingRelative {
		heading = active.Heading
	}
	targets := BuildTargets(active, candidates, s.maxDistance, s.cameraHeight, heading)
	s.set.Store(&targetSet{active: active, targets: targets})
	s.logger.Debug("navigation targets built", "active", active.Key(), "candidates", len(candidates), "targets", len(targets))
	return append([]Target(nil), targets...)
}

func (s *selectorImpl) Targets() []Target {
	set := s.set.Load()
	if set == nil {
		return nil
	}
	return append([]Target(nil), set.targets...)
}

func (s *selectorImpl) Active() (panorama.PanoramaRecord, bool) {
	set := s.set.Load()
	if set == nil {
		return panorama.PanoramaRecord{}, false
	}
	return set.active, true
}

func (s *selectorImpl) Pick(pos panorama.AngularPosition) (Target, bool) {
	set := s.set.Load()
	if set == nil || s.pointer == nil {
		return Target{}, false
	}
	best := -1
	bestDist := math.Inf(1)
	for i, t := range set.targets {
		if !host.OnScreen(s.pointer, t.Position.Pitch, t.Position.Yaw) {
			continue
		}
		if d := geodesy.AngularDistance(pos, t.Position); d < bestDist {
			bestDist = d
			best = i
		}
	}
	if best < 0 {
		return Target{}, false
	}
	return set.targets[best], true
}

func (s *selectorImpl) Hover(x, y float32) (*Target, bool) {
	s.mu.Lock()
	s.lastX, s.lastY, s.hasPointer = x, y, true
	s.mu.Unlock()

	if s.transitioning.Load() {
		return nil, false
	}
	if !s.limiter.AllowN(s.clock(), 1) {
		return nil, false
	}
	return s.hoverAt(x, y), true
}

// hoverAt moves the marker to the target under a pixel or hides it.
func (s *selectorImpl) hoverAt(x, y float32) *Target {
	t, ok := s.pickAt(x, y)
	if !ok {
		s.marker.Hide()
		return nil
	}
	payload := t.Panorama
	s.marker.Show(t.Position, float32(t.MarkerScale), &payload)
	return &t
}

func (s *selectorImpl) pickAt(x, y float32) (Target, bool) {
	if s.pointer == nil {
		return Target{}, false
	}
	pitch, yaw, ok := s.pointer.ScreenToSpherical(x, y)
	if !ok {
		return Target{}, false
	}
	return s.Pick(panorama.AngularPosition{Pitch: pitch, Yaw: yaw})
}

func (s *selectorImpl) Select(ctx context.Context, click Click) error {
	if click.Secondary {
		return nil
	}
	if s.transitioning.Load() {
		return ErrTransitionInProgress
	}
	if s.marker.Visible() {
		if payload := s.marker.Payload(); payload != nil {
			return s.Navigate(ctx, *payload)
		}
	}
	t, ok := s.pickAt(click.X, click.Y)
	if !ok {
		return ErrNoTarget
	}
	return s.Navigate(ctx, t.Panorama)
}

func (s *selectorImpl) Navigate(ctx context.Context, target panorama.PanoramaRecord) error {
	if !s.transitioning.CompareAndSwap(false, true) {
		return ErrTransitionInProgress
	}
	s.marker.Hide()

	next, err := s.move(ctx, target)
	s.transitioning.Store(false)

	if err != nil {
		s.logger.Warn("navigation failed", "target", target.Key(), "error", err)
	} else {
		s.logger.Info("moved", "panorama", next.Key(), "lat", next.Lat, "lon", next.Lon)
		s.emit(next)
	}
	s.rehover()
	return err
}

func (s *selectorImpl) move(ctx context.Context, target panorama.PanoramaRecord) (panorama.PanoramaRecord, error) {
	next := target
	if !next.Hydrated {
		if s.source == nil {
			return next, fmt.Errorf("%w: %s", ErrNotHydrated, target.Key())
		}
		hydrated, err := s.source.FetchClosestPanorama(ctx, target.Lat, target.Lon)
		if err != nil {
			return next, fmt.Errorf("failed to hydrate panorama %s: %w", target.Key(), err)
		}
		next = hydrated
	}

	var candidates []panorama.PanoramaRecord
	if s.source != nil {
		nearby, err := s.source.FetchNearbyPanoramas(ctx, next.Lat, next.Lon, s.maxDistance, s.nearbyLimit)
		if err != nil {
			return next, fmt.Errorf("failed to fetch panoramas near %s: %w", next.Key(), err)
		}
		candidates = nearby
	}

	if s.transition != nil {
		if err := s.transition(ctx, next); err != nil {
			return next, fmt.Errorf("failed to activate panorama %s: %w", next.Key(), err)
		}
	}

	s.Build(next, candidates)
	return next, nil
}

// rehover restores the marker at the last pointer position without waiting for pointer movement.
func (s *selectorImpl) rehover() {
	s.mu.Lock()
	x, y, ok := s.lastX, s.lastY, s.hasPointer
	s.mu.Unlock()
	if ok {
		s.hoverAt(x, y)
	}
}

func (s *selectorImpl) emit(next panorama.PanoramaRecord) {
	s.mu.Lock()
	listeners := append([]func(panorama.PanoramaRecord){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(next)
	}
}

func (s *selectorImpl) ClosestInDirection(yaw float64) (Target, bool) {
	set := s.set.Load()
	if set == nil {
		return Target{}, false
	}
	best := -1
	bestDist := math.Inf(1)
	for i, t := range set.targets {
		if t.Position.Distance > s.dirRange {
			continue
		}
		if math.Abs(geodesy.ShortestYawDelta(yaw, t.Position.Yaw)) >= s.dirTolerance {
			continue
		}
		if t.Position.Distance < bestDist {
			bestDist = t.Position.Distance
			best = i
		}
	}
	if best < 0 {
		return Target{}, false
	}
	return set.targets[best], true
}

func (s *selectorImpl) MoveInDirection(ctx context.Context, yaw float64) error {
	t, ok := s.ClosestInDirection(yaw)
	if !ok {
		return ErrNoTarget
	}
	return s.Navigate(ctx, t.Panorama)
}

func (s *selectorImpl) OnMoved(fn func(panorama.PanoramaRecord)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *selectorImpl) Transitioning() bool {
	return s.transitioning.Load()
}
