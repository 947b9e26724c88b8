// Package geodesy converts geographic coordinates into positions relative to a viewer.
//
// The chain is geodetic (WGS84 lon/lat/alt) -> Earth-centered Earth-fixed -> local tangent plane
// (east/north/up) -> angular (distance/pitch/yaw). Latitude and longitude are degrees at the API
// boundary and radians internally. All functions are pure.
package geodesy

import (
	"math"

	"github.com/Carmen-Shannon/panoview/common"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
)

// WGS84 ellipsoid semi-axes in meters.
const (
	WGS84SemiMajor = 6378137.0
	WGS84SemiMinor = 6356752.31424518
)

// ECEF is an Earth-centered Earth-fixed position in meters.
type ECEF struct {
	X, Y, Z float64
}

// ENU is a vector in a local east/north/up tangent plane, in meters.
type ENU struct {
	East, North, Up float64
}

// Horizontal returns the length of the vector projected onto the tangent plane.
func (v ENU) Horizontal() float64 {
	return math.Hypot(v.East, v.North)
}

// GeodeticToECEF converts a geodetic position to Earth-centered Earth-fixed coordinates.
//
// Parameters:
//   - lon: longitude in degrees
//   - lat: latitude in degrees
//   - alt: height above the ellipsoid in meters
//
// Returns:
//   - ECEF: the Earth-centered position
func GeodeticToECEF(lon, lat, alt float64) ECEF {
	const a2 = WGS84SemiMajor * WGS84SemiMajor
	const b2 = WGS84SemiMinor * WGS84SemiMinor

	sinLat, cosLat := math.Sincos(common.DegToRad(lat))
	sinLon, cosLon := math.Sincos(common.DegToRad(lon))

	l := 1 / math.Sqrt(a2*cosLat*cosLat+b2*sinLat*sinLat)
	horizontal := (a2*l + alt) * cosLat

	return ECEF{
		X: horizontal * cosLon,
		Y: horizontal * sinLon,
		Z: (b2*l + alt) * sinLat,
	}
}

// ECEFToLocalTangentPlane expresses the offset from origin to target in the east/north/up frame
// anchored at the origin's longitude and latitude.
//
// Parameters:
//   - target: the ECEF position being located
//   - origin: the ECEF position of the frame origin
//   - originLon: origin longitude in degrees
//   - originLat: origin latitude in degrees
//
// Returns:
//   - ENU: the target relative to the origin
func ECEFToLocalTangentPlane(target, origin ECEF, originLon, originLat float64) ENU {
	sinLat, cosLat := math.Sincos(common.DegToRad(originLat))
	sinLon, cosLon := math.Sincos(common.DegToRad(originLon))

	dx := target.X - origin.X
	dy := target.Y - origin.Y
	dz := target.Z - origin.Z

	return ENU{
		East:  -sinLon*dx + cosLon*dy,
		North: -sinLat*cosLon*dx - sinLat*sinLon*dy + cosLat*dz,
		Up:    cosLat*cosLon*dx + cosLat*sinLon*dy + sinLat*dz,
	}
}

// GeodeticToLocalTangentPlane locates a target panorama in the tangent plane of an origin.
// targetAltDelta is the target's height relative to the origin in meters and must already include
// the camera mounting height.
//
// Parameters:
//   - targetLon, targetLat: target position in degrees
//   - targetAltDelta: target altitude in meters
//   - originLon, originLat: origin position in degrees
//   - originAlt: origin altitude in meters
//
// Returns:
//   - ENU: the target relative to the origin
func GeodeticToLocalTangentPlane(targetLon, targetLat, targetAltDelta, originLon, originLat, originAlt float64) ENU {
	target := GeodeticToECEF(targetLon, targetLat, targetAltDelta)
	origin := GeodeticToECEF(originLon, originLat, originAlt)
	return ECEFToLocalTangentPlane(target, origin, originLon, originLat)
}

// LocalTangentPlaneToAngular converts a tangent plane vector into distance, pitch and
// heading-relative yaw. The bearing is wrapped into [0, 2π) before headingOffset is subtracted and
// the result is wrapped again. A zero vector yields the zero AngularPosition.
//
// Parameters:
//   - v: the tangent plane vector
//   - headingOffset: heading of the viewer in radians
//
// Returns:
//   - panorama.AngularPosition: the angular position
func LocalTangentPlaneToAngular(v ENU, headingOffset float64) panorama.AngularPosition {
	horizontal := v.Horizontal()
	slant := math.Sqrt(horizontal*horizontal + v.Up*v.Up)

	var pitch float64
	if slant > 0 {
		pitch = math.Asin(ClampUnit(v.Up / slant))
	}

	var yaw float64
	if horizontal > 0 {
		bearing := common.WrapAngle(math.Atan2(v.East, v.North))
		yaw = common.WrapAngle(bearing - headingOffset)
	}

	return panorama.AngularPosition{
		Distance: horizontal,
		Pitch:    pitch,
		Yaw:      yaw,
	}
}

// AngularDistance returns the equirectangular angular separation of two positions, using the
// shortest yaw difference around the circle.
//
// Parameters:
//   - a, b: the positions to compare; only Pitch and Yaw are used
//
// Returns:
//   - float64: the separation in radians
func AngularDistance(a, b panorama.AngularPosition) float64 {
	dYaw := ShortestYawDelta(a.Yaw, b.Yaw)
	meanPitch := (a.Pitch + b.Pitch) / 2
	x := dYaw * math.Cos(meanPitch)
	y := b.Pitch - a.Pitch
	return math.Hypot(x, y)
}

// ShortestYawDelta returns the signed difference b - a wrapped into [-π, π).
func ShortestYawDelta(a, b float64) float64 {
	d := common.WrapAngle(b - a)
	if d >= math.Pi {
		d -= 2 * math.Pi
	}
	return d
}

// ClampUnit clamps v to [-1, 1] so that it is a valid argument to asin and acos.
func ClampUnit(v float64) float64 {
	return common.Clamp(v, -1, 1)
}
