package camera

import (
	"sync"

	"github.com/chewxy/math32"

	"github.com/Carmen-Shannon/panoview/common"
	"github.com/Carmen-Shannon/panoview/engine/host"
	"github.com/Carmen-Shannon/panoview/engine/screen_frustum"
)

type cameraImpl struct {
	mu *sync.Mutex

	aspect float32
	near   float32
	far    float32

	width  int
	height int

	viewMatrix           [16]float32
	projectionMatrix     [16]float32
	viewProjectionMatrix [16]float32

	// right, up and forward axes of the view in world space.
	basis      [3][3]float32
	fov        float32
	tanHalfFov float32

	controller CameraController
}

// Camera is a panorama camera sitting at the sphere centre. It holds the perspective settings and
// viewport size and computes view/projection matrices from its CameraController via Update().
// Screen conversions use the matrices of the last Update.
type Camera interface {
	host.PointerHost
	screen_frustum.MatrixSource

	// Fov returns the controller's vertical field of view as of the last Update.
	//
	// Returns:
	//   - float32: vertical field of view in radians
	Fov() float32

	// Aspect returns the aspect ratio (width / height).
	//
	// Returns:
	//   - float32: the aspect ratio
	Aspect() float32

	// ViewProjectionMatrix returns the current combined view-projection matrix as 16 floats (column-major).
	//
	// Returns:
	//   - [16]float32: the combined view-projection matrix
	ViewProjectionMatrix() [16]float32

	// Controller returns the attached CameraController.
	//
	// Returns:
	//   - CameraController: the attached controller
	Controller() CameraController

	// Update reads yaw, pitch and field of view from the controller and recomputes matrices.
	// Should be called once per frame and after input changed the controller.
	Update()

	// SetViewport sets the viewport size in pixels and derives the aspect ratio from it.
	//
	// Parameters:
	//   - width, height: viewport size in pixels
	SetViewport(width, height int)
}

var _ Camera = &cameraImpl{}

// NewCamera creates a new Camera with default perspective settings and a default controller.
//
// Parameters:
//   - options: functional options to configure the camera
//
// Returns:
//   - Camera: the newly created camera
func NewCamera(options ...CameraBuilderOption) Camera {
	c := &cameraImpl{
		mu:     &sync.Mutex{},
		aspect: 1.0,
		near:   0.1,
		far:    100.0,
	}
	for _, option := range options {
		option(c)
	}
	if c.controller == nil {
		c.controller = NewCameraController()
	}
	c.updateMatrices()
	return c
}

func (c *cameraImpl) Fov() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fov
}

func (c *cameraImpl) Aspect() float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aspect
}

func (c *cameraImpl) ViewMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewMatrix
}

func (c *cameraImpl) ProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.projectionMatrix
}

func (c *cameraImpl) ViewProjectionMatrix() [16]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewProjectionMatrix
}

func (c *cameraImpl) Controller() CameraController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controller
}

func (c *cameraImpl) Update() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.updateMatrices()
}

func (c *cameraImpl) SetViewport(width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.width, c.height = width, height
	if width > 0 && height > 0 {
		c.aspect = float32(width) / float32(height)
	}
	c.updateMatrices()
}

func (c *cameraImpl) Viewport() (width, height int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.width, c.height
}

func (c *cameraImpl) ScreenToSpherical(x, y float32) (pitch, yaw float64, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.width <= 0 || c.height <= 0 {
		return 0, 0, false
	}

	ndcX := 2*x/float32(c.width) - 1
	ndcY := 1 - 2*y/float32(c.height)
	cx := ndcX * c.tanHalfFov * c.aspect
	cy := ndcY * c.tanHalfFov

	right, up, forward := c.basis[0], c.basis[1], c.basis[2]
	var dir [3]float64
	for i := range dir {
		dir[i] = float64(right[i]*cx + up[i]*cy + forward[i])
	}
	pitch, yaw = common.SphericalFromDirection(dir)
	return pitch, yaw, true
}

func (c *cameraImpl) SphericalToScreen(pitch, yaw float64) (x, y float32, inFront bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	d := common.DirectionFromSpherical(pitch, yaw)
	clip := common.TransformPoint(c.viewProjectionMatrix[:], [3]float32{float32(d[0]), float32(d[1]), float32(d[2])})
	if clip[3] <= 0 {
		return 0, 0, false
	}
	ndcX := clip[0] / clip[3]
	ndcY := clip[1] / clip[3]
	x = (ndcX + 1) / 2 * float32(c.width)
	y = (1 - ndcY) / 2 * float32(c.height)
	return x, y, true
}

// updateMatrices recalculates the view basis and the view, projection and view-projection matrices
// from the controller. Caller must hold the mutex.
func (c *cameraImpl) updateMatrices() {
	if c.controller == nil {
		return
	}

	sp, cp := math32.Sincos(float32(c.controller.Pitch()))
	sy, cy := math32.Sincos(float32(c.controller.Yaw()))
	fov := c.controller.Fov()

	forward := [3]float32{sy * cp, sp, -cy * cp}
	// right = forward x +Y; pitch never reaches the poles so the horizontal length is non-zero.
	horizontal := math32.Hypot(forward[0], forward[2])
	right := [3]float32{-forward[2] / horizontal, 0, forward[0] / horizontal}
	up := [3]float32{
		right[1]*forward[2] - right[2]*forward[1],
		right[2]*forward[0] - right[0]*forward[2],
		right[0]*forward[1] - right[1]*forward[0],
	}
	c.basis = [3][3]float32{right, up, forward}
	c.fov = fov
	c.tanHalfFov = math32.Tan(fov / 2)

	common.LookAt(c.viewMatrix[:], [3]float32{}, forward, [3]float32{0, 1, 0})
	common.Perspective(c.projectionMatrix[:], fov, c.aspect, c.near, c.far)
	common.Mul4(c.viewProjectionMatrix[:], c.projectionMatrix[:], c.viewMatrix[:])
}
