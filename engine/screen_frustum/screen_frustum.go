// Package screen_frustum tests world points against the visible volume of the host camera.
package screen_frustum

import (
	"github.com/Carmen-Shannon/panoview/common"
	"github.com/Carmen-Shannon/panoview/engine/mesh"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
)

// MatrixSource provides the live camera matrices of the rendering host.
type MatrixSource interface {
	// ProjectionMatrix returns the current column-major projection matrix.
	ProjectionMatrix() [16]float32
	// ViewMatrix returns the current column-major view matrix.
	ViewMatrix() [16]float32
}

type trackerImpl struct {
	source  MatrixSource
	frustum common.Frustum
	matrix  [16]float32
	valid   bool
}

// Tracker computes the clipping volume of the current view in mesh-local space.
// The yaw correction between mesh and world is not tracked by the host across panorama switches,
// so callers pass it on every Update.
type Tracker interface {
	// Update recomputes projection * view * yawRotation(yawOffset) and its planes.
	//
	// Parameters:
	//   - yawOffset: world yaw of the mesh's local forward direction, in radians
	Update(yawOffset float32)

	// IsVisible reports whether a mesh-local point lies inside the last computed volume.
	// If Update was never called the volume is computed with a zero yaw offset.
	//
	// Parameters:
	//   - p: the point to test
	//
	// Returns:
	//   - bool: true if the point is inside the view volume
	IsVisible(p [3]float32) bool

	// AnyVisible reports whether any sampled point is visible.
	//
	// Parameters:
	//   - points: the candidate points
	//   - step: test every step-th point (values < 1 test all)
	//
	// Returns:
	//   - bool: true if at least one sampled point is visible
	AnyVisible(points [][3]float32, step int) bool

	// VisibleFaces updates the volume and returns every face whose proxy geometry is at least
	// partially visible, in face order.
	//
	// Parameters:
	//   - m: the mesh providing proxy geometry
	//   - yawOffset: world yaw of the mesh's local forward direction, in radians
	//
	// Returns:
	//   - []panorama.Face: the visible faces
	VisibleFaces(m mesh.Mesh, yawOffset float32) []panorama.Face

	// Matrix returns the last computed clip matrix.
	//
	// Returns:
	//   - [16]float32: projection * view * model, column-major
	Matrix() [16]float32
}

var _ Tracker = &trackerImpl{}

// NewTracker creates a Tracker reading matrices from source.
//
// Parameters:
//   - source: the host's camera matrices
//
// Returns:
//   - Tracker: the tracker
func NewTracker(source MatrixSource) Tracker {
	return &trackerImpl{source: source}
}

func (t *trackerImpl) Update(yawOffset float32) {
	proj := t.source.ProjectionMatrix()
	view := t.source.ViewMatrix()

	var model [16]float32
	common.YawRotation(model[:], yawOffset)

	common.Mul4(t.matrix[:], proj[:], view[:])
	common.Mul4(t.matrix[:], t.matrix[:], model[:])
	t.frustum = common.ExtractFrustumFromMatrix(t.matrix[:])
	t.valid = true
}

func (t *trackerImpl) IsVisible(p [3]float32) bool {
	if !t.valid {
		t.Update(0)
	}
	return t.frustum.ContainsPoint(p)
}

func (t *trackerImpl) AnyVisible(points [][3]float32, step int) bool {
	if step < 1 {
		step = 1
	}
	for i := 0; i < len(points); i += step {
		if t.IsVisible(points[i]) {
			return true
		}
	}
	return false
}

func (t *trackerImpl) VisibleFaces(m mesh.Mesh, yawOffset float32) []panorama.Face {
	if m == nil {
		return nil
	}
	t.Update(yawOffset)

	var faces []panorama.Face
	for _, f := range panorama.AllFaces() {
		if t.AnyVisible(m.ProxyGeometry(f), 1) {
			faces = append(faces, f)
		}
	}
	return faces
}

func (t *trackerImpl) Matrix() [16]float32 {
	return t.matrix
}
