package camera

import (
	"math"
	"sync"

	"github.com/Carmen-Shannon/panoview/common"
)

// cameraControllerImpl is the single implementation of CameraController.
type cameraControllerImpl struct {
	mu *sync.Mutex

	yaw   float64
	pitch float64
	zoom  float32

	minPitch float64
	maxPitch float64
	minFov   float32
	maxFov   float32

	mouseSensitivity float32
	zoomSpeed        float32
}

var _ CameraController = &cameraControllerImpl{}

// NewCameraController creates a new camera controller looking north at the horizon.
// The default field of view range is 10° to 70° and the default zoom level is 10.
//
// Parameters:
//   - options: functional options to configure the controller
//
// Returns:
//   - CameraController: the newly created controller
func NewCameraController(options ...CameraControllerOption) CameraController {
	cc := &cameraControllerImpl{
		mu:   &sync.Mutex{},
		zoom: 10,

		minPitch: -math.Pi/2 + 0.01,
		maxPitch: math.Pi/2 - 0.01,
		minFov:   float32(common.DegToRad(10)),
		maxFov:   float32(common.DegToRad(70)),

		mouseSensitivity: 1,
		zoomSpeed:        5,
	}

	for _, option := range options {
		option(cc)
	}

	cc.yaw = common.WrapAngle(cc.yaw)
	cc.pitch = common.Clamp(cc.pitch, cc.minPitch, cc.maxPitch)
	cc.zoom = common.Clamp(cc.zoom, 0, 100)
	return cc
}

// fov maps the zoom level onto the field of view range. Caller must hold the mutex.
func (cc *cameraControllerImpl) fov() float32 {
	return cc.maxFov + (cc.minFov-cc.maxFov)*cc.zoom/100
}

func (cc *cameraControllerImpl) Yaw() float64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.yaw
}

func (cc *cameraControllerImpl) Pitch() float64 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.pitch
}

func (cc *cameraControllerImpl) Fov() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.fov()
}

func (cc *cameraControllerImpl) ZoomLevel() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.zoom
}

func (cc *cameraControllerImpl) SetYaw(yaw float64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.yaw = common.WrapAngle(yaw)
}

func (cc *cameraControllerImpl) SetPitch(pitch float64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.pitch = common.Clamp(pitch, cc.minPitch, cc.maxPitch)
}

func (cc *cameraControllerImpl) SetZoomLevel(level float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.zoom = common.Clamp(level, 0, 100)
}

func (cc *cameraControllerImpl) Rotate(dYaw, dPitch float64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.yaw = common.WrapAngle(cc.yaw + dYaw)
	cc.pitch = common.Clamp(cc.pitch+dPitch, cc.minPitch, cc.maxPitch)
}

func (cc *cameraControllerImpl) Drag(dx, dy float32, viewportHeight int) {
	if viewportHeight <= 0 {
		return
	}
	cc.mu.Lock()
	defer cc.mu.Unlock()
	perPixel := float64(cc.fov()*cc.mouseSensitivity) / float64(viewportHeight)
	// Grabbing the scene: dragging right reveals what is to the left.
	cc.yaw = common.WrapAngle(cc.yaw - float64(dx)*perPixel)
	cc.pitch = common.Clamp(cc.pitch+float64(dy)*perPixel, cc.minPitch, cc.maxPitch)
}

func (cc *cameraControllerImpl) Zoom(delta float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	cc.zoom = common.Clamp(cc.zoom+delta*cc.zoomSpeed, 0, 100)
}

func (cc *cameraControllerImpl) FovBounds() (minFov, maxFov float32) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.minFov, cc.maxFov
}

func (cc *cameraControllerImpl) PitchBounds() (minPitch, maxPitch float64) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.minPitch, cc.maxPitch
}

func (cc *cameraControllerImpl) MouseSensitivity() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.mouseSensitivity
}

func (cc *cameraControllerImpl) ZoomSpeed() float32 {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return cc.zoomSpeed
}
