// Package host declares what the viewer core needs from its rendering and input environment.
package host

import (
	"github.com/Carmen-Shannon/panoview/common"
	"github.com/Carmen-Shannon/panoview/engine/mesh"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
)

// RenderHost draws the panorama sphere, its face textures and the scene overlay.
type RenderHost interface {
	// ProjectionMatrix returns the current column-major projection matrix.
	ProjectionMatrix() [16]float32

	// ViewMatrix returns the current column-major view matrix.
	ViewMatrix() [16]float32

	// SetMesh replaces the sphere geometry.
	//
	// Parameters:
	//   - m: the new mesh
	//   - yawOffset: rotation applied to the mesh around +Y in radians
	//
	// Returns:
	//   - error: error if the geometry could not be uploaded
	SetMesh(m mesh.Mesh, yawOffset float32) error

	// SetFaceTexture sets the textures drawn for one face.
	//
	// Parameters:
	//   - face: the face to update
	//   - current: the texture to show, nil for none
	//   - previous: the texture being faded out, nil when not blending
	//   - mix: weight of previous in [0, 1]
	SetFaceTexture(face panorama.Face, current, previous *common.TextureStagingData, mix float32)

	// SetSceneOverlay sets the opacity of the previous-scene snapshot drawn over the sphere.
	//
	// Parameters:
	//   - snapshot: the snapshot returned by Snapshot, nil to clear
	//   - opacity: overlay opacity in [0, 1]
	SetSceneOverlay(snapshot any, opacity float32)

	// Snapshot captures the current frame for a scene fade.
	//
	// Returns:
	//   - any: a host-owned handle
	Snapshot() any
}

// PointerHost converts between screen pixels and spherical positions.
type PointerHost interface {
	// ScreenToSpherical converts a viewport pixel into a direction.
	//
	// Parameters:
	//   - x, y: pixel position, origin top-left
	//
	// Returns:
	//   - float64: pitch in radians
	//   - float64: yaw in radians
	//   - bool: false if the pixel does not map to a direction
	ScreenToSpherical(x, y float32) (pitch, yaw float64, ok bool)

	// SphericalToScreen projects a direction into viewport pixels.
	//
	// Parameters:
	//   - pitch, yaw: the direction in radians
	//
	// Returns:
	//   - float32: x in pixels
	//   - float32: y in pixels
	//   - bool: false if the direction is behind the camera
	SphericalToScreen(pitch, yaw float64) (x, y float32, inFront bool)

	// Viewport returns the viewport size in pixels.
	Viewport() (width, height int)
}

// OnScreen reports whether a direction projects inside the viewport of p.
//
// Parameters:
//   - p: the pointer host
//   - pitch, yaw: the direction in radians
//
// Returns:
//   - bool: true if the projected point lies in [0, width] x [0, height]
func OnScreen(p PointerHost, pitch, yaw float64) bool {
	x, y, inFront := p.SphericalToScreen(pitch, yaw)
	if !inFront {
		return false
	}
	w, h := p.Viewport()
	return x >= 0 && y >= 0 && x <= float32(w) && y <= float32(h)
}
