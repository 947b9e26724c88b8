package camera

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/panoview/common"
	"github.com/Carmen-Shannon/panoview/engine/host"
)

func TestNewCameraController_Defaults(t *testing.T) {
	cc := NewCameraController()

	assert.Equal(t, 0.0, cc.Yaw())
	assert.Equal(t, 0.0, cc.Pitch())
	assert.Equal(t, float32(10), cc.ZoomLevel())
	// Level 10 sits a tenth of the way from 70° towards 10°.
	assert.InDelta(t, common.DegToRad(64), float64(cc.Fov()), 1e-5)
}

func TestCameraController_ZoomClampsFov(t *testing.T) {
	cc := NewCameraController()

	cc.Zoom(1000)
	assert.Equal(t, float32(100), cc.ZoomLevel())
	assert.InDelta(t, common.DegToRad(10), float64(cc.Fov()), 1e-5)

	cc.Zoom(-1000)
	assert.Equal(t, float32(0), cc.ZoomLevel())
	assert.InDelta(t, common.DegToRad(70), float64(cc.Fov()), 1e-5)
}

func TestCameraController_RotateWrapsAndClamps(t *testing.T) {
	cc := NewCameraController()

	cc.Rotate(-math.Pi/2, 0)
	assert.InDelta(t, 3*math.Pi/2, cc.Yaw(), 1e-9)

	cc.Rotate(0, 10)
	_, maxPitch := cc.PitchBounds()
	assert.Equal(t, maxPitch, cc.Pitch())

	cc.SetPitch(-10)
	minPitch, _ := cc.PitchBounds()
	assert.Equal(t, minPitch, cc.Pitch())
}

func TestCameraController_DragFollowsPointer(t *testing.T) {
	cc := NewCameraController()
	fov := float64(cc.Fov())

	cc.Drag(100, 0, 600)
	assert.InDelta(t, 2*math.Pi-fov*100/600, cc.Yaw(), 1e-6)

	cc.Drag(0, 60, 600)
	assert.InDelta(t, fov*60/600, cc.Pitch(), 1e-6)

	before := cc.Yaw()
	cc.Drag(50, 50, 0)
	assert.Equal(t, before, cc.Yaw())
}

func TestCamera_CentreMapsToViewDirection(t *testing.T) {
	cc := NewCameraController(WithYaw(math.Pi/4), WithPitch(0.2))
	c := NewCamera(WithViewport(800, 600), WithController(cc))

	pitch, yaw, ok := c.ScreenToSpherical(400, 300)
	require.True(t, ok)
	assert.InDelta(t, 0.2, pitch, 1e-5)
	assert.InDelta(t, math.Pi/4, yaw, 1e-5)

	x, y, inFront := c.SphericalToScreen(0.2, math.Pi/4)
	require.True(t, inFront)
	assert.InDelta(t, 400, x, 1e-2)
	assert.InDelta(t, 300, y, 1e-2)
}

func TestCamera_ScreenRoundTrip(t *testing.T) {
	c := NewCamera(WithViewport(800, 600), WithController(NewCameraController(WithYaw(1), WithPitch(-0.3))))

	for _, px := range [][2]float32{{100, 50}, {700, 550}, {400, 10}, {0, 300}} {
		pitch, yaw, ok := c.ScreenToSpherical(px[0], px[1])
		require.True(t, ok)
		x, y, inFront := c.SphericalToScreen(pitch, yaw)
		require.True(t, inFront)
		assert.InDelta(t, px[0], x, 0.05)
		assert.InDelta(t, px[1], y, 0.05)
	}
}

func TestCamera_RightEdgeMatchesHorizontalFov(t *testing.T) {
	c := NewCamera(WithViewport(800, 600))
	halfV := float64(c.Fov()) / 2

	_, yaw, ok := c.ScreenToSpherical(800, 300)
	require.True(t, ok)
	assert.InDelta(t, math.Atan(math.Tan(halfV)*800.0/600.0), yaw, 1e-5)

	pitch, _, ok := c.ScreenToSpherical(400, 0)
	require.True(t, ok)
	assert.InDelta(t, halfV, pitch, 1e-5)
}

func TestCamera_BehindIsNotInFront(t *testing.T) {
	c := NewCamera(WithViewport(800, 600))

	_, _, inFront := c.SphericalToScreen(0, math.Pi)
	assert.False(t, inFront)
	assert.False(t, host.OnScreen(c, 0, math.Pi))
	assert.True(t, host.OnScreen(c, 0, 0.1))
}

func TestCamera_NoViewport(t *testing.T) {
	c := NewCamera()

	_, _, ok := c.ScreenToSpherical(10, 10)
	assert.False(t, ok)
}

func TestCamera_UpdateFollowsController(t *testing.T) {
	c := NewCamera(WithViewport(800, 600))
	c.Controller().Zoom(1000)

	assert.InDelta(t, common.DegToRad(64), float64(c.Fov()), 1e-5)
	c.Update()
	assert.InDelta(t, common.DegToRad(10), float64(c.Fov()), 1e-5)

	c.SetViewport(1000, 500)
	assert.Equal(t, float32(2), c.Aspect())
	w, h := c.Viewport()
	assert.Equal(t, 1000, w)
	assert.Equal(t, 500, h)
}

func TestCamera_SphereWithinClipRange(t *testing.T) {
	c := NewCamera(WithViewport(800, 600))
	p := c.ProjectionMatrix()

	for _, d := range []float32{1, 10, 50} {
		z := -d
		clipZ := p[10]*z + p[14]
		clipW := p[11] * z
		require.Greater(t, clipW, float32(0))
		depth := clipZ / clipW
		assert.GreaterOrEqual(t, depth, float32(0), "distance %v", d)
		assert.LessOrEqual(t, depth, float32(1), "distance %v", d)
	}
}
