package mesh

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/panoview/common"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLayout() [panorama.FaceCount]panorama.CameraFace {
	d := common.DegToRad
	return [panorama.FaceCount]panorama.CameraFace{
		{Yaw: d(0), FovS: d(120), FovH: d(100)},
		{Yaw: d(90), FovS: d(120), FovH: d(100)},
		{Yaw: d(180), FovS: d(120), FovH: d(100)},
		{Yaw: d(270), FovS: d(120), FovH: d(100)},
		{Yaw: d(0), Pitch: d(90), FovS: d(90), FovH: d(90)},
		{Yaw: d(0), Pitch: d(-90), FovS: d(90), FovH: d(90)},
	}
}

func TestBuild_GroupsCoverIndices(t *testing.T) {
	m, err := NewMeshBuilder().Build(testLayout())
	require.NoError(t, err)

	groups := m.Groups()
	require.Len(t, groups, panorama.FaceCount)

	var next uint32
	for i, g := range groups {
		assert.Equal(t, panorama.Face(i), g.Face)
		assert.Equal(t, next, g.IndexStart)
		assert.Zero(t, g.IndexCount%3)
		next += g.IndexCount
		for _, idx := range m.Indices()[g.IndexStart : g.IndexStart+g.IndexCount] {
			require.Less(t, int(idx), len(m.Vertices()))
			assert.Equal(t, uint32(i), m.Vertices()[idx].Face)
		}
	}
	assert.Equal(t, uint32(len(m.Indices())), next)
}

func TestBuild_VerticesOnSphere(t *testing.T) {
	m, err := NewMeshBuilder(WithRadius(5)).Build(testLayout())
	require.NoError(t, err)
	assert.Equal(t, float32(5), m.Radius())

	for _, v := range m.Vertices() {
		p := v.Position
		r := math.Sqrt(float64(p[0]*p[0] + p[1]*p[1] + p[2]*p[2]))
		assert.InDelta(t, 5, r, 1e-3)
		assert.GreaterOrEqual(t, v.UV[0], float32(0))
		assert.LessOrEqual(t, v.UV[0], float32(1))
		assert.GreaterOrEqual(t, v.UV[1], float32(0))
		assert.LessOrEqual(t, v.UV[1], float32(1))
	}
}

func TestBuild_SidePatchesTileFullTurn(t *testing.T) {
	m, err := NewMeshBuilder().Build(testLayout())
	require.NoError(t, err)

	var total float64
	for i := 0; i < panorama.SideFaceCount; i++ {
		total += m.Bounds(panorama.Face(i)).PhiLength
	}
	assert.InDelta(t, 2*math.Pi, total, 1e-9)
}

func TestBuild_SideUVsDropOverlap(t *testing.T) {
	m, err := NewMeshBuilder().Build(testLayout())
	require.NoError(t, err)

	var maxU float32
	for _, v := range m.Vertices() {
		if v.Face == uint32(panorama.FaceFront) && v.UV[0] > maxU {
			maxU = v.UV[0]
		}
	}
	// 120° faces spaced 90° apart keep three quarters of their width.
	assert.InDelta(t, 0.75, maxU, 1e-6)
}

func TestBuild_Idempotent(t *testing.T) {
	b := NewMeshBuilder()
	first, err := b.Build(testLayout())
	require.NoError(t, err)
	second, err := b.Build(testLayout())
	require.NoError(t, err)

	assert.Equal(t, first.Vertices(), second.Vertices())
	assert.Equal(t, first.Indices(), second.Indices())
	assert.Equal(t, first.Groups(), second.Groups())
	for _, f := range panorama.AllFaces() {
		assert.Equal(t, first.ProxyGeometry(f), second.ProxyGeometry(f))
	}
}

func TestBuild_ProxyGeometrySamplesVertices(t *testing.T) {
	m, err := NewMeshBuilder(WithProxyStep(5)).Build(testLayout())
	require.NoError(t, err)

	for _, f := range panorama.AllFaces() {
		proxy := m.ProxyGeometry(f)
		assert.NotEmpty(t, proxy, f.String())
	}
	assert.Nil(t, m.ProxyGeometry(panorama.Face(42)))

	full, err := NewMeshBuilder(WithProxyStep(1)).Build(testLayout())
	require.NoError(t, err)
	assert.Greater(t, len(full.ProxyGeometry(panorama.FaceFront)), len(m.ProxyGeometry(panorama.FaceFront)))
}

func TestBuild_InvalidFace(t *testing.T) {
	layout := testLayout()
	layout[panorama.FaceLeft].FovS = 0
	_, err := NewMeshBuilder().Build(layout)
	assert.ErrorIs(t, err, ErrInvalidFace)
}

func TestNeedsRebuild(t *testing.T) {
	b := NewMeshBuilder()
	prev := testLayout()

	next := testLayout()
	for i := range next {
		next[i].Yaw += 0.1
	}
	assert.False(t, b.NeedsRebuild(prev, next))

	next[ReferenceFace].FovH += 0.05
	assert.True(t, b.NeedsRebuild(prev, next))
}

func TestBuild_CapCentersOnAxis(t *testing.T) {
	m, err := NewMeshBuilder().Build(testLayout())
	require.NoError(t, err)

	// The first cap vertex sits on the optical axis and maps to the texture center.
	g := m.Groups()[panorama.FaceTop]
	first := m.Vertices()[m.Indices()[g.IndexStart]]
	assert.InDelta(t, 10, first.Position[1], 1e-3)
	assert.InDelta(t, 0.5, first.UV[0], 1e-3)
	assert.InDelta(t, 0.5, first.UV[1], 1e-3)
}
