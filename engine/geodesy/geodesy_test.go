package geodesy

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/panoview/engine/panorama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGeodeticToECEF_Equator(t *testing.T) {
	p := GeodeticToECEF(0, 0, 0)
	assert.InDelta(t, WGS84SemiMajor, p.X, 1e-6)
	assert.InDelta(t, 0, p.Y, 1e-6)
	assert.InDelta(t, 0, p.Z, 1e-6)

	p = GeodeticToECEF(90, 0, 10)
	assert.InDelta(t, 0, p.X, 1e-6)
	assert.InDelta(t, WGS84SemiMajor+10, p.Y, 1e-6)
}

func TestGeodeticToECEF_Pole(t *testing.T) {
	p := GeodeticToECEF(0, 90, 0)
	assert.InDelta(t, 0, p.X, 1e-6)
	assert.InDelta(t, WGS84SemiMinor, p.Z, 1e-6)
}

func TestSelfDistanceIsZero(t *testing.T) {
	for _, c := range []struct{ lon, lat float64 }{{0, 0}, {13.4, 52.5}, {-122.4, 37.8}, {151.2, -33.9}} {
		enu := GeodeticToLocalTangentPlane(c.lon, c.lat, 0, c.lon, c.lat, 0)
		pos := LocalTangentPlaneToAngular(enu, 0)
		assert.InDelta(t, 0, pos.Distance, 1e-6)
		assert.InDelta(t, 0, pos.Pitch, 1e-9)
		assert.InDelta(t, 0, pos.Yaw, 1e-9)
		assert.False(t, math.IsNaN(pos.Yaw))
	}
}

func TestHundredMetersNorth(t *testing.T) {
	// 0.0009° of latitude at the equator is ~99.5 m.
	enu := GeodeticToLocalTangentPlane(0, 0.0009, 0, 0, 0, 0)
	pos := LocalTangentPlaneToAngular(enu, 0)
	assert.InEpsilon(t, 100, pos.Distance, 0.01)
	assert.InDelta(t, 0, math.Min(pos.Yaw, 2*math.Pi-pos.Yaw), 1e-6)

	back := LocalTangentPlaneToAngular(GeodeticToLocalTangentPlane(0, 0, 0, 0, 0.0009, 0), 0)
	assert.InEpsilon(t, 100, back.Distance, 0.01)
	assert.InDelta(t, math.Pi, back.Yaw, 1e-6)
}

func TestEastIsQuarterTurn(t *testing.T) {
	enu := GeodeticToLocalTangentPlane(0.0009, 0, 0, 0, 0, 0)
	require.Greater(t, enu.East, 0.0)
	pos := LocalTangentPlaneToAngular(enu, 0)
	assert.InDelta(t, math.Pi/2, pos.Yaw, 1e-6)

	// A viewer heading east sees the same target straight ahead.
	pos = LocalTangentPlaneToAngular(enu, math.Pi/2)
	assert.InDelta(t, 0, math.Min(pos.Yaw, 2*math.Pi-pos.Yaw), 1e-6)
}

func TestYawIsWrapped(t *testing.T) {
	// Target due west, heading north-east.
	pos := LocalTangentPlaneToAngular(ENU{East: -10, North: 0}, math.Pi/4)
	assert.GreaterOrEqual(t, pos.Yaw, 0.0)
	assert.Less(t, pos.Yaw, 2*math.Pi)
	assert.InDelta(t, 3*math.Pi/2-math.Pi/4, pos.Yaw, 1e-9)
}

func TestPitchFromCameraHeight(t *testing.T) {
	// The target camera sits 2.4 m lower than the viewer.
	enu := GeodeticToLocalTangentPlane(0, 0.0009, -2.4, 0, 0, 0)
	pos := LocalTangentPlaneToAngular(enu, 0)
	assert.Less(t, pos.Pitch, 0.0)
	assert.InDelta(t, math.Atan2(-2.4, pos.Distance), pos.Pitch, 1e-3)
}

func TestAngularDistance(t *testing.T) {
	a := panorama.AngularPosition{Yaw: 0.1}
	b := panorama.AngularPosition{Yaw: 2*math.Pi - 0.1}
	assert.InDelta(t, 0.2, AngularDistance(a, b), 1e-9)

	c := panorama.AngularPosition{Pitch: 0.3}
	assert.InDelta(t, 0.3, AngularDistance(panorama.AngularPosition{}, c), 1e-9)
}

func TestShortestYawDelta(t *testing.T) {
	assert.InDelta(t, -0.2, ShortestYawDelta(0.1, 2*math.Pi-0.1), 1e-9)
	assert.InDelta(t, 0.2, ShortestYawDelta(2*math.Pi-0.1, 0.1), 1e-9)
}

func TestClampUnit(t *testing.T) {
	assert.Equal(t, 1.0, ClampUnit(1.0000001))
	assert.Equal(t, -1.0, ClampUnit(-3))
	assert.Equal(t, 0.5, ClampUnit(0.5))
}
