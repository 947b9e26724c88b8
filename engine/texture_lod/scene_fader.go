package texture_lod

import (
	"sync"
	"time"
)

// Snapshot is an opaque handle to the last frame rendered before a panorama switch.
// The rendering host creates and draws it; the fader only tracks its opacity.
type Snapshot any

type sceneFaderImpl struct {
	mu *sync.Mutex

	duration        time.Duration
	suspendRotation bool

	snapshot Snapshot
	elapsed  time.Duration
	active   bool
}

// SceneFader crossfades from a snapshot of the previous panorama to the new one.
// It is independent from the per-face crossfades.
type SceneFader interface {
	// Begin starts a fade from the given snapshot at full opacity.
	//
	// Parameters:
	//   - snapshot: the previous frame, owned by the host
	Begin(snapshot Snapshot)

	// Tick advances the fade.
	//
	// Parameters:
	//   - dt: elapsed time since the last tick
	//
	// Returns:
	//   - bool: true if the fade finished during this tick
	Tick(dt time.Duration) bool

	// Opacity returns the current snapshot opacity in [0, 1].
	//
	// Returns:
	//   - float32: 1 at Begin, 0 when done
	Opacity() float32

	// Snapshot returns the snapshot being faded out, nil when idle.
	//
	// Returns:
	//   - Snapshot: the current snapshot
	Snapshot() Snapshot

	// Active reports whether a fade is running.
	//
	// Returns:
	//   - bool: true while fading
	Active() bool

	// RotationSuspended reports whether pointer rotation should be ignored right now.
	//
	// Returns:
	//   - bool: true while fading with rotation suspension enabled
	RotationSuspended() bool
}

var _ SceneFader = &sceneFaderImpl{}

// NewSceneFader creates a SceneFader.
//
// Parameters:
//   - duration: fade length
//   - suspendRotation: whether rotation is suspended while fading
//
// Returns:
//   - SceneFader: the fader
func NewSceneFader(duration time.Duration, suspendRotation bool) SceneFader {
	return &sceneFaderImpl{
		mu:              &sync.Mutex{},
		duration:        duration,
		suspendRotation: suspendRotation,
	}
}

func (f *sceneFaderImpl) Begin(snapshot Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.snapshot = snapshot
	f.elapsed = 0
	f.active = f.duration > 0
	if !f.active {
		f.snapshot = nil
	}
}

func (f *sceneFaderImpl) Tick(dt time.Duration) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active {
		return false
	}
	f.elapsed += dt
	if f.elapsed >= f.duration {
		f.active = false
		f.snapshot = nil
		return true
	}
	return false
}

func (f *sceneFaderImpl) Opacity() float32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.active {
		return 0
	}
	return 1 - float32(f.elapsed)/float32(f.duration)
}

func (f *sceneFaderImpl) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *sceneFaderImpl) Active() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active
}

func (f *sceneFaderImpl) RotationSuspended() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.active && f.suspendRotation
}
