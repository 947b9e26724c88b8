package camera

// CameraController owns the viewing direction and zoom of a panorama camera.
// Camera reads from the controller and computes view/projection matrices.
//
// Yaw follows the viewer's sphere convention: 0 looks down -Z and grows clockwise seen from above.
// Pitch is positive upwards. Zoom is expressed as a level in [0, 100] that maps linearly onto the
// vertical field of view, level 0 being the widest.
type CameraController interface {
	// Yaw returns the current bearing.
	//
	// Returns:
	//   - float64: yaw in radians, in [0, 2π)
	Yaw() float64

	// Pitch returns the current elevation.
	//
	// Returns:
	//   - float64: pitch in radians
	Pitch() float64

	// Fov returns the vertical field of view derived from the zoom level.
	//
	// Returns:
	//   - float32: vertical field of view in radians
	Fov() float32

	// ZoomLevel returns the current zoom level.
	//
	// Returns:
	//   - float32: zoom level in [0, 100]
	ZoomLevel() float32

	// SetYaw sets the bearing directly. The value is wrapped into [0, 2π).
	//
	// Parameters:
	//   - yaw: new bearing in radians
	SetYaw(yaw float64)

	// SetPitch sets the elevation directly, clamped to the pitch bounds.
	//
	// Parameters:
	//   - pitch: new elevation in radians
	SetPitch(pitch float64)

	// SetZoomLevel sets the zoom level directly, clamped to [0, 100].
	//
	// Parameters:
	//   - level: the new zoom level
	SetZoomLevel(level float32)

	// Rotate turns the view by the given angles.
	//
	// Parameters:
	//   - dYaw: yaw change in radians, positive turns right
	//   - dPitch: pitch change in radians, positive looks up
	Rotate(dYaw, dPitch float64)

	// Drag turns the view for a pointer drag so that the panorama follows the pointer.
	// The angle per pixel scales with the current field of view.
	//
	// Parameters:
	//   - dx, dy: pointer movement in pixels
	//   - viewportHeight: viewport height in pixels
	Drag(dx, dy float32, viewportHeight int)

	// Zoom changes the zoom level. Positive delta zooms in (narrows the field of view).
	//
	// Parameters:
	//   - delta: zoom amount scaled by ZoomSpeed
	Zoom(delta float32)

	// FovBounds returns the field of view range covered by the zoom levels.
	//
	// Returns:
	//   - float32: narrowest vertical field of view in radians (zoom level 100)
	//   - float32: widest vertical field of view in radians (zoom level 0)
	FovBounds() (minFov, maxFov float32)

	// PitchBounds returns the allowed elevation range.
	//
	// Returns:
	//   - float64: minimum pitch in radians
	//   - float64: maximum pitch in radians
	PitchBounds() (minPitch, maxPitch float64)

	// MouseSensitivity returns the drag sensitivity multiplier.
	//
	// Returns:
	//   - float32: multiplier for pointer movement
	MouseSensitivity() float32

	// ZoomSpeed returns the zoom speed multiplier.
	//
	// Returns:
	//   - float32: zoom levels per unit of wheel input
	ZoomSpeed() float32
}
