package panorama

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/panoview/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deg(d float64) float64 { return common.DegToRad(d) }

func TestSideBounds(t *testing.T) {
	f := CameraFace{Yaw: deg(90), FovS: deg(120), FovH: deg(90)}
	b := f.SideBounds()
	assert.InDelta(t, deg(90-60-90), b.PhiStart, 1e-12)
	assert.InDelta(t, deg(120), b.PhiLength, 1e-12)
	assert.InDelta(t, deg(45), b.ThetaStart, 1e-12)
	assert.InDelta(t, deg(90), b.ThetaLength, 1e-12)
}

func TestSideBounds_CyShiftsAndClamps(t *testing.T) {
	b := CameraFace{FovS: 1, FovH: deg(90), Cy: deg(10)}.SideBounds()
	assert.InDelta(t, deg(35), b.ThetaStart, 1e-12)

	b = CameraFace{FovS: 1, FovH: deg(200)}.SideBounds()
	assert.Equal(t, 0.0, b.ThetaStart)
	assert.InDelta(t, math.Pi, b.ThetaEnd(), 1e-12)
}

func TestTrimSideBounds_TilesFullTurn(t *testing.T) {
	layouts := [][SideFaceCount]CameraFace{
		{
			{Yaw: deg(0), FovS: deg(120), FovH: 1},
			{Yaw: deg(90), FovS: deg(120), FovH: 1},
			{Yaw: deg(180), FovS: deg(120), FovH: 1},
			{Yaw: deg(270), FovS: deg(120), FovH: 1},
		},
		{
			{Yaw: deg(0), FovS: deg(100), FovH: 1},
			{Yaw: deg(90), FovS: deg(95), FovH: 1},
			{Yaw: deg(180), FovS: deg(130), FovH: 1},
			{Yaw: deg(270), FovS: deg(92), FovH: 1},
		},
		{
			// Yaw values outside [0, 2π) are allowed.
			{Yaw: deg(-180), FovS: deg(110), FovH: 1},
			{Yaw: deg(-90), FovS: deg(110), FovH: 1},
			{Yaw: deg(0), FovS: deg(110), FovH: 1},
			{Yaw: deg(450), FovS: deg(110), FovH: 1},
		},
	}

	for _, layout := range layouts {
		var sides [SideFaceCount]PatchBounds
		for i, f := range layout {
			sides[i] = f.SideBounds()
		}
		trimmed, kept := TrimSideBounds(sides)

		var total float64
		for i := range trimmed {
			total += trimmed[i].PhiLength
			assert.Greater(t, trimmed[i].PhiLength, 0.0)
			assert.LessOrEqual(t, kept[i], 1.0)

			// Each patch ends exactly where its successor starts.
			next := trimmed[(i+1)%SideFaceCount].PhiStart
			gap := common.WrapAngle(trimmed[i].PhiEnd() - next + math.Pi) - math.Pi
			assert.InDelta(t, 0, gap, 1e-9)
		}
		assert.InDelta(t, 2*math.Pi, total, 1e-9)
	}
}

func TestTrimSideBounds_KeptFraction(t *testing.T) {
	var sides [SideFaceCount]PatchBounds
	for i := range sides {
		sides[i] = CameraFace{Yaw: deg(float64(i) * 90), FovS: deg(120), FovH: 1}.SideBounds()
	}
	_, kept := TrimSideBounds(sides)
	for _, k := range kept {
		assert.InDelta(t, 0.75, k, 1e-12)
	}
}

func TestCameraFaceValid(t *testing.T) {
	assert.True(t, CameraFace{FovS: 1, FovH: 1}.Valid())
	assert.False(t, CameraFace{FovS: 0, FovH: 1}.Valid())
	assert.False(t, CameraFace{FovS: 1, FovH: 1, Yaw: math.NaN()}.Valid())
}

func TestFaceString(t *testing.T) {
	assert.Equal(t, "front", FaceFront.String())
	assert.Equal(t, "face(9)", Face(9).String())
	assert.True(t, FaceRight.IsSide())
	assert.False(t, FaceTop.IsSide())
	require.Len(t, AllFaces(), FaceCount)
}

func TestPanoramaRecord(t *testing.T) {
	p := PanoramaRecord{ID: "123", BuildID: "7", Lat: 1.5, Lon: -2.25}
	assert.Equal(t, "/pano/123/7/", p.URLBase())
	assert.Equal(t, "1.5,-2.25@7", p.Key())
	assert.True(t, p.SameLocation(PanoramaRecord{Lat: 1.5, Lon: -2.25, BuildID: "8"}))
	assert.False(t, p.HasCameraFaces())
}
