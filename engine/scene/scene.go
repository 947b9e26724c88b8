// Package scene draws a panorama: the textured sphere, the snapshot of the previous panorama while
// a switch fades out, and the navigation marker. It is the GPU implementation of host.RenderHost.
package scene

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/Carmen-Shannon/panoview/common"
	"github.com/Carmen-Shannon/panoview/engine/camera"
	"github.com/Carmen-Shannon/panoview/engine/host"
	"github.com/Carmen-Shannon/panoview/engine/mesh"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
	"github.com/Carmen-Shannon/panoview/engine/renderer"
	"github.com/Carmen-Shannon/panoview/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/panoview/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/panoview/engine/renderer/shader"
)

// ErrNoRenderer is returned by the frame methods of a scene created without a renderer.
var ErrNoRenderer = errors.New("scene: no renderer attached")

const (
	SpherePipelineKey  = "panorama_sphere"
	OverlayPipelineKey = "panorama_overlay"
	MarkerPipelineKey  = "panorama_marker"
)

// Bind group layout of PanoramaShaderSource.
const (
	groupSphere = 0
	groupFace   = 1

	bindingFaceUniform = 0
	bindingCurrent     = 1
	bindingPrevious    = 2
	bindingSampler     = 3
)

// faceState is what one face should show.
type faceState struct {
	current, previous *common.TextureStagingData
	mix               float32
}

// sphereState is everything needed to draw one sphere.
type sphereState struct {
	mesh      mesh.Mesh
	yawOffset float32
	faces     [panorama.FaceCount]faceState
}

// snapshot is the handle returned by Snapshot. It keeps the images alive for as long as the
// overlay needs them.
type snapshot struct {
	state sphereState
}

// sphereLayer holds the GPU resources of one sphere and remembers what was uploaded, so syncing is
// a pointer comparison per face.
type sphereLayer struct {
	sphere   bind_group_provider.BindGroupProvider
	faces    [panorama.FaceCount]bind_group_provider.BindGroupProvider
	mesh     mesh.Mesh
	uploaded [panorama.FaceCount]faceState
}

type scene struct {
	mu *sync.Mutex

	name   string
	active bool
	logger *slog.Logger

	cam    camera.Camera
	r      renderer.Renderer
	marker host.Marker

	markerColor     [4]float32
	markerPixelSize float32

	// Desired state, written by any goroutine.
	state          sphereState
	overlay        *snapshot
	overlayOpacity float32

	// GPU state, touched only on the render thread.
	initialized bool
	main, fade  *sphereLayer
	markerBGP   bind_group_provider.BindGroupProvider
	placeholder *common.TextureStagingData
	drawFade    bool
	drawMarker  bool
}

// Scene is the panorama render host. The host.RenderHost methods only record the desired state and
// may be called from any goroutine; PrepareFrame and DrawCalls apply it on the render thread.
type Scene interface {
	host.RenderHost

	// Name returns the scene's identifier.
	Name() string

	// Active returns whether this scene is drawn.
	Active() bool

	// SetActive sets whether this scene is drawn.
	SetActive(active bool)

	// Camera returns the scene's camera.
	Camera() camera.Camera

	// Renderer returns the scene's renderer, which may be nil.
	Renderer() renderer.Renderer

	// Marker returns the navigation marker drawn by the scene.
	Marker() host.Marker

	// Init registers the pipelines and creates the GPU resources. PrepareFrame calls it on first use.
	//
	// Returns:
	//   - error: ErrNoRenderer or a GPU creation error
	Init() error

	// PrepareFrame updates the camera, uploads changed geometry and textures and writes every
	// uniform for the coming frame. Must be called on the render thread before BeginFrame.
	//
	// Returns:
	//   - error: ErrNoRenderer or an upload error
	PrepareFrame() error

	// DrawCalls draws the sphere, the fading snapshot and the marker.
	// Must be called within a BeginFrame/EndFrame block on the renderer.
	//
	// Returns:
	//   - error: error if a draw call fails
	DrawCalls() error

	// Release releases the scene's GPU resources.
	Release()
}

var _ Scene = &scene{}

// NewScene creates a panorama scene.
//
// Parameters:
//   - name: the scene identifier
//   - cam: the camera providing the view and projection
//   - r: the renderer, may be nil for a scene that only records state
//   - options: functional options
//
// Returns:
//   - Scene: the scene
func NewScene(name string, cam camera.Camera, r renderer.Renderer, options ...SceneBuilderOption) Scene {
	s := &scene{
		mu:              &sync.Mutex{},
		name:            name,
		logger:          slog.Default(),
		cam:             cam,
		r:               r,
		marker:          host.NewMarker(),
		markerColor:     [4]float32{1, 1, 1, 0.9},
		markerPixelSize: 80,
		placeholder:     &common.TextureStagingData{Pixels: []byte{0, 0, 0, 255}, Width: 1, Height: 1},
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *scene) Name() string {
	return s.name
}

func (s *scene) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *scene) SetActive(active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = active
}

func (s *scene) Camera() camera.Camera {
	return s.cam
}

func (s *scene) Renderer() renderer.Renderer {
	return s.r
}

func (s *scene) Marker() host.Marker {
	return s.marker
}

func (s *scene) ProjectionMatrix() [16]float32 {
	return s.cam.ProjectionMatrix()
}

func (s *scene) ViewMatrix() [16]float32 {
	return s.cam.ViewMatrix()
}

func (s *scene) SetMesh(m mesh.Mesh, yawOffset float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.mesh = m
	s.state.yawOffset = yawOffset
	return nil
}

func (s *scene) SetFaceTexture(face panorama.Face, current, previous *common.TextureStagingData, mix float32) {
	if face < 0 || int(face) >= panorama.FaceCount {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.faces[face] = faceState{current: current, previous: previous, mix: common.Clamp(mix, 0, 1)}
}

func (s *scene) SetSceneOverlay(snap any, opacity float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sn, ok := snap.(*snapshot)
	if !ok || sn == nil || opacity <= 0 {
		s.overlay = nil
		s.overlayOpacity = 0
		return
	}
	s.overlay = sn
	s.overlayOpacity = common.Clamp(opacity, 0, 1)
}

func (s *scene) Snapshot() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &snapshot{state: s.state}
}

func (s *scene) Init() error {
	if s.r == nil {
		return ErrNoRenderer
	}
	if s.initialized {
		return nil
	}

	sphereVS, err := shader.NewShader("panorama_vs", shader.ShaderTypeVertex, PanoramaShaderSource)
	if err != nil {
		return err
	}
	sphereFS, err := shader.NewShader("panorama_fs", shader.ShaderTypeFragment, PanoramaShaderSource)
	if err != nil {
		return err
	}
	markerVS, err := shader.NewShader("marker_vs", shader.ShaderTypeVertex, MarkerShaderSource)
	if err != nil {
		return err
	}
	markerFS, err := shader.NewShader("marker_fs", shader.ShaderTypeFragment, MarkerShaderSource)
	if err != nil {
		return err
	}

	err = s.r.RegisterPipelines(
		pipeline.NewPipeline(SpherePipelineKey,
			pipeline.WithVertexShader(sphereVS),
			pipeline.WithFragmentShader(sphereFS),
		),
		pipeline.NewPipeline(OverlayPipelineKey,
			pipeline.WithVertexShader(sphereVS),
			pipeline.WithFragmentShader(sphereFS),
			pipeline.WithBlendEnabled(true),
		),
		pipeline.NewPipeline(MarkerPipelineKey,
			pipeline.WithVertexShader(markerVS),
			pipeline.WithFragmentShader(markerFS),
			pipeline.WithBlendEnabled(true),
		),
	)
	if err != nil {
		return err
	}

	if s.main, err = s.newSphereLayer("main"); err != nil {
		return err
	}
	if s.fade, err = s.newSphereLayer("fade"); err != nil {
		return err
	}

	s.markerBGP = bind_group_provider.NewBindGroupProvider(s.name + " marker")
	if err := s.r.InitBindGroup(s.markerBGP, MarkerPipelineKey, 0); err != nil {
		return err
	}

	s.initialized = true
	s.logger.Debug("scene initialized", "scene", s.name)
	return nil
}

func (s *scene) newSphereLayer(label string) (*sphereLayer, error) {
	l := &sphereLayer{
		sphere: bind_group_provider.NewBindGroupProvider(fmt.Sprintf("%s %s sphere", s.name, label)),
	}
	if err := s.r.InitBindGroup(l.sphere, SpherePipelineKey, groupSphere); err != nil {
		return nil, err
	}
	for i := range l.faces {
		p := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("%s %s %s", s.name, label, panorama.Face(i)))
		if err := s.r.InitTexture(p, bindingCurrent, s.placeholder); err != nil {
			return nil, err
		}
		if err := s.r.InitTexture(p, bindingPrevious, s.placeholder); err != nil {
			return nil, err
		}
		if err := s.r.InitSampler(p, bindingSampler, renderer.DefaultSampler); err != nil {
			return nil, err
		}
		if err := s.r.InitBindGroup(p, SpherePipelineKey, groupFace); err != nil {
			return nil, err
		}
		l.faces[i] = p
	}
	return l, nil
}

func (s *scene) PrepareFrame() error {
	if err := s.Init(); err != nil {
		return err
	}

	s.mu.Lock()
	state := s.state
	overlay, opacity := s.overlay, s.overlayOpacity
	s.mu.Unlock()

	s.cam.Update()
	proj := s.cam.ProjectionMatrix()
	view := s.cam.ViewMatrix()

	var writes []bind_group_provider.BufferWrite

	w, err := s.syncLayer(s.main, state)
	if err != nil {
		return err
	}
	writes = append(writes, w...)
	mainUniform := GPUSphereUniform{MVP: modelViewProjection(proj, view, state.yawOffset), Opacity: 1}
	writes = append(writes, bind_group_provider.BufferWrite{Provider: s.main.sphere, Data: mainUniform.Marshal()})

	s.drawFade = overlay != nil && opacity > 0
	if s.drawFade {
		w, err := s.syncLayer(s.fade, overlay.state)
		if err != nil {
			return err
		}
		writes = append(writes, w...)
		fadeUniform := GPUSphereUniform{MVP: modelViewProjection(proj, view, overlay.state.yawOffset), Opacity: opacity}
		writes = append(writes, bind_group_provider.BufferWrite{Provider: s.fade.sphere, Data: fadeUniform.Marshal()})
	}

	var mk GPUMarkerUniform
	s.drawMarker = false
	if s.marker.Visible() {
		pos, size := s.marker.Placement()
		mk, s.drawMarker = markerUniform(s.cam, pos, size*s.markerPixelSize, s.markerColor)
	}
	if s.drawMarker {
		writes = append(writes, bind_group_provider.BufferWrite{Provider: s.markerBGP, Data: mk.Marshal()})
	}

	s.r.WriteBuffers(writes)
	return nil
}

// syncLayer uploads whatever differs between the layer and the desired state and returns the face
// uniform writes. An upgrade that turns the displayed image into the crossfade source swaps the
// two texture bindings instead of uploading the old image again.
func (s *scene) syncLayer(l *sphereLayer, st sphereState) ([]bind_group_provider.BufferWrite, error) {
	if st.mesh != l.mesh {
		if st.mesh != nil {
			err := s.r.InitMeshBuffers(l.sphere,
				common.SliceToBytes(st.mesh.Vertices()),
				common.SliceToBytes(st.mesh.Indices()),
				len(st.mesh.Indices()))
			if err != nil {
				return nil, fmt.Errorf("upload mesh: %w", err)
			}
		}
		l.mesh = st.mesh
	}

	writes := make([]bind_group_provider.BufferWrite, 0, panorama.FaceCount)
	for i := range l.faces {
		p := l.faces[i]
		want, have := st.faces[i], l.uploaded[i]

		if want.current != have.current {
			if want.current != nil && have.current != nil && want.previous == have.current {
				p.SwapTextures(bindingCurrent, bindingPrevious)
				have.previous = have.current
			}
			if err := s.r.InitTexture(p, bindingCurrent, common.Coalesce(want.current, s.placeholder)); err != nil {
				return nil, fmt.Errorf("upload %s texture: %w", panorama.Face(i), err)
			}
			have.current = want.current
		}
		if want.previous != nil && want.previous != have.previous {
			if err := s.r.InitTexture(p, bindingPrevious, want.previous); err != nil {
				return nil, fmt.Errorf("upload %s previous texture: %w", panorama.Face(i), err)
			}
			have.previous = want.previous
		}
		l.uploaded[i] = have

		if p.Stale() {
			if err := s.r.InitBindGroup(p, SpherePipelineKey, groupFace); err != nil {
				return nil, err
			}
		}
		writes = append(writes, bind_group_provider.BufferWrite{
			Provider: p,
			Binding:  bindingFaceUniform,
			Data:     faceUniform(want).Marshal(),
		})
	}
	return writes, nil
}

func (s *scene) DrawCalls() error {
	if s.r == nil {
		return ErrNoRenderer
	}
	if !s.initialized {
		return nil
	}

	if err := s.drawLayer(SpherePipelineKey, s.main); err != nil {
		return err
	}
	if s.drawFade {
		if err := s.drawLayer(OverlayPipelineKey, s.fade); err != nil {
			return err
		}
	}
	if s.drawMarker {
		return s.r.Draw(MarkerPipelineKey, []bind_group_provider.BindGroupProvider{s.markerBGP}, 6)
	}
	return nil
}

func (s *scene) drawLayer(pipelineKey string, l *sphereLayer) error {
	if l.mesh == nil {
		return nil
	}
	for _, g := range l.mesh.Groups() {
		if g.Face < 0 || int(g.Face) >= panorama.FaceCount {
			continue
		}
		bindGroups := []bind_group_provider.BindGroupProvider{l.sphere, l.faces[g.Face]}
		if err := s.r.DrawIndexed(pipelineKey, l.sphere, bindGroups, g.IndexStart, g.IndexCount); err != nil {
			return err
		}
	}
	return nil
}

func (s *scene) Release() {
	for _, l := range []*sphereLayer{s.main, s.fade} {
		if l == nil {
			continue
		}
		l.sphere.Release()
		for _, p := range l.faces {
			p.Release()
		}
	}
	if s.markerBGP != nil {
		s.markerBGP.Release()
	}
	s.main, s.fade, s.markerBGP = nil, nil, nil
	s.initialized = false
}

// faceUniform derives the shader parameters of one face.
func faceUniform(f faceState) GPUFaceUniform {
	var u GPUFaceUniform
	if f.current != nil {
		u.HasCurrent = 1
	}
	if f.previous != nil {
		u.MixPrevious = f.mix
	}
	return u
}

// modelViewProjection returns proj * view * model, where the model matrix turns the sphere by
// yawOffset around +Y.
//
// Parameters:
//   - proj: the projection matrix
//   - view: the view matrix
//   - yawOffset: the sphere's yaw in radians
//
// Returns:
//   - [16]float32: the column-major MVP matrix
func modelViewProjection(proj, view [16]float32, yawOffset float32) [16]float32 {
	var model, mvp [16]float32
	common.YawRotation(model[:], yawOffset)
	common.Mul4(mvp[:], view[:], model[:])
	common.Mul4(mvp[:], proj[:], mvp[:])
	return mvp
}

// markerUniform places the marker sprite in NDC.
//
// Parameters:
//   - p: the pointer host used for projection
//   - pos: the marker direction
//   - halfSizePx: the sprite half extent in pixels
//   - color: the sprite color
//
// Returns:
//   - GPUMarkerUniform: the uniform
//   - bool: false if the marker is behind the camera or the viewport is empty
func markerUniform(p host.PointerHost, pos panorama.AngularPosition, halfSizePx float32, color [4]float32) (GPUMarkerUniform, bool) {
	w, h := p.Viewport()
	if w <= 0 || h <= 0 {
		return GPUMarkerUniform{}, false
	}
	x, y, inFront := p.SphericalToScreen(pos.Pitch, pos.Yaw)
	if !inFront {
		return GPUMarkerUniform{}, false
	}
	return GPUMarkerUniform{
		Center:   [2]float32{2*x/float32(w) - 1, 1 - 2*y/float32(h)},
		HalfSize: [2]float32{2 * halfSizePx / float32(w), 2 * halfSizePx / float32(h)},
		Color:    color,
	}, true
}
