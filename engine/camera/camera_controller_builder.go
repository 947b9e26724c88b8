package camera

// CameraControllerOption is a functional option for configuring a CameraController.
type CameraControllerOption func(*cameraControllerImpl)

// WithYaw sets the initial bearing.
//
// Parameters:
//   - yaw: bearing in radians (0 = -Z, clockwise)
//
// Returns:
//   - CameraControllerOption: functional option to set the yaw
func WithYaw(yaw float64) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.yaw = yaw
	}
}

// WithPitch sets the initial elevation.
//
// Parameters:
//   - pitch: elevation in radians (0 = horizon)
//
// Returns:
//   - CameraControllerOption: functional option to set the pitch
func WithPitch(pitch float64) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.pitch = pitch
	}
}

// WithZoomLevel sets the initial zoom level in [0, 100].
//
// Parameters:
//   - level: the zoom level
//
// Returns:
//   - CameraControllerOption: functional option to set the zoom level
func WithZoomLevel(level float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.zoom = level
	}
}

// WithFovBounds sets the vertical field of view reached at zoom levels 100 and 0.
// Invalid ranges are ignored.
//
// Parameters:
//   - minFov: narrowest field of view in radians
//   - maxFov: widest field of view in radians
//
// Returns:
//   - CameraControllerOption: functional option to set the field of view range
func WithFovBounds(minFov, maxFov float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		if minFov > 0 && maxFov >= minFov {
			cc.minFov = minFov
			cc.maxFov = maxFov
		}
	}
}

// WithPitchBounds sets the minimum and maximum elevation.
//
// Parameters:
//   - minPitch: lowest elevation in radians
//   - maxPitch: highest elevation in radians
//
// Returns:
//   - CameraControllerOption: functional option to set pitch bounds
func WithPitchBounds(minPitch, maxPitch float64) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.minPitch = minPitch
		cc.maxPitch = maxPitch
	}
}

// WithMouseSensitivity sets the drag sensitivity.
func WithMouseSensitivity(sensitivity float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.mouseSensitivity = sensitivity
	}
}

// WithZoomSpeed sets how many zoom levels one unit of wheel input moves.
func WithZoomSpeed(speed float32) CameraControllerOption {
	return func(cc *cameraControllerImpl) {
		cc.zoomSpeed = speed
	}
}
