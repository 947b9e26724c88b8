package common

import "math"

// The viewer's sphere convention: yaw 0 looks down -Z, yaw increases clockwise seen from above
// (towards +X), pitch is positive upwards (+Y).

// DirectionFromSpherical returns the unit view direction for a pitch and yaw in radians.
//
// Parameters:
//   - pitch: elevation angle in radians
//   - yaw: bearing in radians
//
// Returns:
//   - [3]float64: the unit direction
func DirectionFromSpherical(pitch, yaw float64) [3]float64 {
	sp, cp := math.Sincos(pitch)
	sy, cy := math.Sincos(yaw)
	return [3]float64{sy * cp, sp, -cy * cp}
}

// SphericalFromDirection is the inverse of DirectionFromSpherical. d need not be normalized.
//
// Parameters:
//   - d: a non-zero direction
//
// Returns:
//   - pitch: elevation angle in radians
//   - yaw: bearing in radians, in [0, 2π)
func SphericalFromDirection(d [3]float64) (pitch, yaw float64) {
	horizontal := math.Hypot(d[0], d[2])
	pitch = math.Atan2(d[1], horizontal)
	if horizontal > 0 {
		yaw = WrapAngle(math.Atan2(d[0], -d[2]))
	}
	return pitch, yaw
}

// SpherePoint returns the point at polar angle theta (0 at +Y) and azimuth phi on a sphere of the
// given radius. phi = yaw - π/2 and theta = π/2 - pitch, so that SpherePoint agrees with
// DirectionFromSpherical.
//
// Parameters:
//   - radius: sphere radius
//   - theta: polar angle in radians
//   - phi: azimuth in radians
//
// Returns:
//   - [3]float64: the point on the sphere
func SpherePoint(radius, theta, phi float64) [3]float64 {
	st, ct := math.Sincos(theta)
	sp, cp := math.Sincos(phi)
	return [3]float64{radius * cp * st, radius * ct, radius * sp * st}
}

// YawRotation writes the model rotation that turns local yaw 0 into world yaw `yaw`.
//
// Parameters:
//   - out: destination slice (must be at least 16 elements)
//   - yaw: the world yaw of the local forward direction, in radians
func YawRotation(out []float32, yaw float32) {
	RotationY(out, -yaw)
}
