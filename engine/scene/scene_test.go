package scene

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Carmen-Shannon/panoview/common"
	"github.com/Carmen-Shannon/panoview/engine/camera"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
	"github.com/Carmen-Shannon/panoview/engine/renderer/shader"
)

func newTestScene() *scene {
	cam := camera.NewCamera(camera.WithViewport(800, 600))
	return NewScene("test", cam, nil).(*scene)
}

func TestScene_SnapshotIsDetached(t *testing.T) {
	s := newTestScene()
	first := &common.TextureStagingData{Width: 1, Height: 1, Pixels: make([]byte, 4)}
	second := &common.TextureStagingData{Width: 1, Height: 1, Pixels: make([]byte, 4)}

	require.NoError(t, s.SetMesh(nil, 0.5))
	s.SetFaceTexture(panorama.FaceFront, first, nil, 0)
	snap := s.Snapshot()

	s.SetFaceTexture(panorama.FaceFront, second, first, 1)

	sn, ok := snap.(*snapshot)
	require.True(t, ok)
	assert.Same(t, first, sn.state.faces[panorama.FaceFront].current)
	assert.Nil(t, sn.state.faces[panorama.FaceFront].previous)
	assert.Equal(t, float32(0.5), sn.state.yawOffset)
	assert.Same(t, second, s.state.faces[panorama.FaceFront].current)
}

func TestScene_SetFaceTextureIgnoresUnknownFace(t *testing.T) {
	s := newTestScene()
	img := &common.TextureStagingData{Width: 1, Height: 1, Pixels: make([]byte, 4)}

	s.SetFaceTexture(panorama.Face(-1), img, nil, 0)
	s.SetFaceTexture(panorama.Face(panorama.FaceCount), img, nil, 0)
	for _, f := range s.state.faces {
		assert.Nil(t, f.current)
	}

	s.SetFaceTexture(panorama.FaceTop, img, img, 3)
	assert.Equal(t, float32(1), s.state.faces[panorama.FaceTop].mix)
}

func TestScene_SceneOverlay(t *testing.T) {
	s := newTestScene()
	snap := s.Snapshot()

	s.SetSceneOverlay(snap, 0.4)
	assert.NotNil(t, s.overlay)
	assert.Equal(t, float32(0.4), s.overlayOpacity)

	s.SetSceneOverlay(snap, 0)
	assert.Nil(t, s.overlay)

	s.SetSceneOverlay("not a snapshot", 1)
	assert.Nil(t, s.overlay)
	assert.Equal(t, float32(0), s.overlayOpacity)
}

func TestScene_FrameMethodsNeedRenderer(t *testing.T) {
	s := newTestScene()
	assert.ErrorIs(t, s.Init(), ErrNoRenderer)
	assert.ErrorIs(t, s.PrepareFrame(), ErrNoRenderer)
	assert.ErrorIs(t, s.DrawCalls(), ErrNoRenderer)
}

func TestFaceUniform(t *testing.T) {
	img := &common.TextureStagingData{}

	assert.Equal(t, GPUFaceUniform{}, faceUniform(faceState{}))
	assert.Equal(t, GPUFaceUniform{HasCurrent: 1}, faceUniform(faceState{current: img, mix: 0.7}))
	assert.Equal(t, GPUFaceUniform{HasCurrent: 1, MixPrevious: 0.7}, faceUniform(faceState{current: img, previous: img, mix: 0.7}))
}

func TestModelViewProjection_ZeroYawMatchesCamera(t *testing.T) {
	cam := camera.NewCamera(camera.WithViewport(800, 600), camera.WithController(
		camera.NewCameraController(camera.WithYaw(0.7), camera.WithPitch(0.1)),
	))

	mvp := modelViewProjection(cam.ProjectionMatrix(), cam.ViewMatrix(), 0)
	vp := cam.ViewProjectionMatrix()
	for i := range mvp {
		assert.InDelta(t, vp[i], mvp[i], 1e-5)
	}
}

func TestModelViewProjection_YawOffsetTurnsSphere(t *testing.T) {
	cam := camera.NewCamera(camera.WithViewport(800, 600), camera.WithController(
		camera.NewCameraController(camera.WithYaw(math.Pi/2)),
	))

	// Local yaw 0 turned by +π/2 lands straight ahead of a camera looking at yaw π/2.
	mvp := modelViewProjection(cam.ProjectionMatrix(), cam.ViewMatrix(), math.Pi/2)
	clip := common.TransformPoint(mvp[:], [3]float32{0, 0, -5})
	require.Greater(t, clip[3], float32(0))
	assert.InDelta(t, 0, clip[0]/clip[3], 1e-5)
	assert.InDelta(t, 0, clip[1]/clip[3], 1e-5)
}

func TestMarkerUniform(t *testing.T) {
	cam := camera.NewCamera(camera.WithViewport(800, 600))

	u, ok := markerUniform(cam, panorama.AngularPosition{}, 40, [4]float32{1, 0, 0, 1})
	require.True(t, ok)
	assert.InDelta(t, 0, u.Center[0], 1e-5)
	assert.InDelta(t, 0, u.Center[1], 1e-5)
	assert.InDelta(t, 0.1, u.HalfSize[0], 1e-6)
	assert.InDelta(t, 80.0/600.0, u.HalfSize[1], 1e-6)
	assert.Equal(t, [4]float32{1, 0, 0, 1}, u.Color)

	_, ok = markerUniform(cam, panorama.AngularPosition{Yaw: math.Pi}, 40, [4]float32{})
	assert.False(t, ok)
}

func TestGPUTypes_MatchShaderLayouts(t *testing.T) {
	fs, err := shader.NewShader("panorama_fs", shader.ShaderTypeFragment, PanoramaShaderSource)
	require.NoError(t, err)

	sphere, ok := fs.BindGroupLayoutDescriptor(groupSphere)
	require.True(t, ok)
	assert.Equal(t, uint64(len((&GPUSphereUniform{}).Marshal())), sphere.Entries[0].Buffer.MinBindingSize)

	face, ok := fs.BindGroupLayoutDescriptor(groupFace)
	require.True(t, ok)
	require.Len(t, face.Entries, 4)
	assert.Equal(t, uint64(len((&GPUFaceUniform{}).Marshal())), face.Entries[bindingFaceUniform].Buffer.MinBindingSize)
	assert.Equal(t, "face_sampler", fs.BindingName(groupFace, bindingSampler))

	vs, err := shader.NewShader("panorama_vs", shader.ShaderTypeVertex, PanoramaShaderSource)
	require.NoError(t, err)
	require.Len(t, vs.VertexLayouts(), 1)
	assert.Equal(t, uint64(24), vs.VertexLayouts()[0].ArrayStride)

	ms, err := shader.NewShader("marker_fs", shader.ShaderTypeFragment, MarkerShaderSource)
	require.NoError(t, err)
	marker, ok := ms.BindGroupLayoutDescriptor(0)
	require.True(t, ok)
	assert.Equal(t, uint64(len((&GPUMarkerUniform{}).Marshal())), marker.Entries[0].Buffer.MinBindingSize)

	mv, err := shader.NewShader("marker_vs", shader.ShaderTypeVertex, MarkerShaderSource)
	require.NoError(t, err)
	assert.Empty(t, mv.VertexLayouts())
}

func TestGPUSphereUniform_Marshal(t *testing.T) {
	u := GPUSphereUniform{Opacity: 0.25}
	u.MVP[15] = 2
	buf := u.Marshal()
	assert.Equal(t, float32(2), math.Float32frombits(binary.LittleEndian.Uint32(buf[60:64])))
	assert.Equal(t, float32(0.25), math.Float32frombits(binary.LittleEndian.Uint32(buf[64:68])))
}
