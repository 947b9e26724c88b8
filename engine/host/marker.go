package host

import (
	"sync"

	"github.com/Carmen-Shannon/panoview/engine/panorama"
)

// Marker is the navigation marker: a single sprite placed on the sphere that carries the panorama
// a click would navigate to.
type Marker interface {
	// Show places the marker and attaches a payload.
	//
	// Parameters:
	//   - pos: the marker direction
	//   - size: sprite scale
	//   - payload: the panorama the marker leads to
	Show(pos panorama.AngularPosition, size float32, payload *panorama.PanoramaRecord)

	// Hide hides the marker and drops its payload.
	Hide()

	// Visible reports whether the marker is shown.
	Visible() bool

	// Payload returns the attached panorama, nil when hidden.
	Payload() *panorama.PanoramaRecord

	// Placement returns the marker direction and size.
	Placement() (pos panorama.AngularPosition, size float32)
}

type markerImpl struct {
	mu      *sync.Mutex
	visible bool
	pos     panorama.AngularPosition
	size    float32
	payload *panorama.PanoramaRecord
}

var _ Marker = &markerImpl{}

// NewMarker creates a hidden marker whose state renderers read each frame.
func NewMarker() Marker {
	return &markerImpl{mu: &sync.Mutex{}}
}

func (m *markerImpl) Show(pos panorama.AngularPosition, size float32, payload *panorama.PanoramaRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visible = true
	m.pos = pos
	m.size = size
	m.payload = payload
}

func (m *markerImpl) Hide() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.visible = false
	m.payload = nil
}

func (m *markerImpl) Visible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.visible
}

func (m *markerImpl) Payload() *panorama.PanoramaRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.payload
}

func (m *markerImpl) Placement() (panorama.AngularPosition, float32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pos, m.size
}
