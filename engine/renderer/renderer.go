package renderer

import (
	"fmt"
	"sync"

	"github.com/cogentcore/webgpu/wgpu"

	"github.com/Carmen-Shannon/panoview/common"
	"github.com/Carmen-Shannon/panoview/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/panoview/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/panoview/engine/window"
)

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	pipelineCache map[string]pipeline.Pipeline

	backendType RendererBackendType
	backend     RendererBackend

	// Pre-creation config collected from builder options
	forceFallbackAdapter bool
	pendingPresentMode   *PresentMode
	pendingMSAA          *MSAASampleCount
}

// Renderer is the high-level GPU API used by the panorama render host.
//
// It caches registered pipelines by key and forwards resource creation and per-frame draws to a
// backend, so that more than one GPU API could sit behind it.
type Renderer interface {
	// Pipeline returns the registered Pipeline for a key, or nil.
	//
	// Parameters:
	//   - key: the pipeline key
	//
	// Returns:
	//   - pipeline.Pipeline: the pipeline or nil
	Pipeline(key string) pipeline.Pipeline

	// RegisterPipelines creates the GPU pipelines and caches them by PipelineKey.
	// Keys that are already registered are skipped.
	//
	// Parameters:
	//   - pipelines: the Pipelines to register
	//
	// Returns:
	//   - error: an error if pipeline creation fails
	RegisterPipelines(pipelines ...pipeline.Pipeline) error

	// Resize reconfigures the surface for a new size.
	//
	// Parameters:
	//   - width: the new width in pixels
	//   - height: the new height in pixels
	Resize(width, height int)

	// SetPresentMode sets the present mode. A call to Resize is required for it to take effect.
	SetPresentMode(mode PresentMode)

	// InitMeshBuffers uploads vertex and index data onto a provider.
	InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error

	// InitBindGroup creates the bind group of a provider for one group of a registered pipeline.
	//
	// Parameters:
	//   - provider: the provider to initialize
	//   - pipelineKey: the pipeline whose layout the bind group must match
	//   - group: the @group index
	//
	// Returns:
	//   - error: an error if the pipeline or group is unknown or creation fails
	InitBindGroup(provider bind_group_provider.BindGroupProvider, pipelineKey string, group int) error

	// InitTexture uploads staging data as a texture bound at a provider binding.
	InitTexture(provider bind_group_provider.BindGroupProvider, binding int, stagingData *common.TextureStagingData) error

	// InitSampler creates a sampler bound at a provider binding.
	InitSampler(provider bind_group_provider.BindGroupProvider, binding int, samplerStagingData common.SamplerStagingData) error

	// WriteBuffers writes all staged buffer writes to the GPU queue.
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginFrame acquires the swapchain texture and begins the main render pass.
	BeginFrame() error

	// DrawIndexed draws a range of a mesh provider's indices with a registered pipeline.
	//
	// Parameters:
	//   - pipelineKey: the registered pipeline key
	//   - meshProvider: the provider holding vertex and index buffers
	//   - bindGroups: providers bound at group 0, 1, ... in order
	//   - firstIndex: the first index of the range
	//   - indexCount: the number of indices
	//
	// Returns:
	//   - error: an error if the pipeline is not registered
	DrawIndexed(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider, firstIndex, indexCount uint32) error

	// Draw draws vertexCount vertices without vertex buffers with a registered pipeline.
	//
	// Parameters:
	//   - pipelineKey: the registered pipeline key
	//   - bindGroups: providers bound at group 0, 1, ... in order
	//   - vertexCount: the number of vertices
	//
	// Returns:
	//   - error: an error if the pipeline is not registered
	Draw(pipelineKey string, bindGroups []bind_group_provider.BindGroupProvider, vertexCount uint32) error

	// EndFrame ends the render pass and submits the frame.
	EndFrame()

	// Present presents the surface to the display.
	Present()

	// Release releases every registered pipeline and the backend.
	Release()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer drawing into the window's surface.
//
// Parameters:
//   - backendType: the type of rendering backend to use
//   - window: the window providing the surface descriptor and initial size
//   - options: variadic list of RendererBuilderOption functions to configure the Renderer
//
// Returns:
//   - Renderer: the renderer
//   - error: an error if no adapter or device could be acquired
func NewRenderer(backendType RendererBackendType, window window.Window, options ...RendererBuilderOption) (Renderer, error) {
	r := &renderer{
		mu:            &sync.Mutex{},
		pipelineCache: make(map[string]pipeline.Pipeline),
		backendType:   backendType,
	}

	// Options first, so adapter selection sees forceFallbackAdapter.
	for _, opt := range options {
		opt(r)
	}

	msaa := MSAA4x
	if r.pendingMSAA != nil {
		msaa = *r.pendingMSAA
	}

	var err error
	switch backendType {
	case BackendTypeWGPU:
		fallthrough
	default:
		r.backend, err = newWGPURendererBackend(window.SurfaceDescriptor(), r.forceFallbackAdapter, msaa)
	}
	if err != nil {
		return nil, err
	}

	if r.pendingPresentMode != nil {
		r.backend.SetPresentMode(*r.pendingPresentMode)
	}

	r.backend.ConfigureSurface(window.Width(), window.Height())
	return r, nil
}

func (r *renderer) Resize(width, height int) {
	r.backend.ConfigureSurface(width, height)
}

func (r *renderer) SetPresentMode(mode PresentMode) {
	r.backend.SetPresentMode(mode)
}

func (r *renderer) Pipeline(key string) pipeline.Pipeline {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pipelineCache[key]
}

func (r *renderer) RegisterPipelines(pipelines ...pipeline.Pipeline) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range pipelines {
		key := p.PipelineKey()
		if _, exists := r.pipelineCache[key]; exists {
			continue
		}
		if err := r.backend.RegisterRenderPipeline(p); err != nil {
			return fmt.Errorf("register pipeline %q: %w", key, err)
		}
		r.pipelineCache[key] = p
	}
	return nil
}

func (r *renderer) InitMeshBuffers(provider bind_group_provider.BindGroupProvider, vertexData, indexData []byte, indexCount int) error {
	return r.backend.InitMeshBuffers(provider, vertexData, indexData, indexCount)
}

func (r *renderer) InitBindGroup(provider bind_group_provider.BindGroupProvider, pipelineKey string, group int) error {
	p := r.Pipeline(pipelineKey)
	if p == nil {
		return fmt.Errorf("render pipeline %q not found in cache", pipelineKey)
	}
	desc, ok := p.BindGroupLayoutDescriptor(group)
	if !ok {
		return fmt.Errorf("render pipeline %q declares no group %d", pipelineKey, group)
	}
	return r.backend.InitBindGroup(provider, desc)
}

func (r *renderer) InitTexture(provider bind_group_provider.BindGroupProvider, binding int, stagingData *common.TextureStagingData) error {
	return r.backend.InitTexture(provider, binding, stagingData)
}

func (r *renderer) InitSampler(provider bind_group_provider.BindGroupProvider, binding int, samplerStagingData common.SamplerStagingData) error {
	return r.backend.InitSampler(provider, binding, samplerStagingData)
}

func (r *renderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.backend.WriteBuffers(writes)
}

func (r *renderer) BeginFrame() error {
	return r.backend.BeginFrame()
}

func (r *renderer) DrawIndexed(pipelineKey string, meshProvider bind_group_provider.BindGroupProvider, bindGroups []bind_group_provider.BindGroupProvider, firstIndex, indexCount uint32) error {
	p := r.Pipeline(pipelineKey)
	if p == nil {
		return fmt.Errorf("render pipeline %q not found in cache", pipelineKey)
	}
	r.backend.DrawIndexed(p, meshProvider, bindGroups, firstIndex, indexCount)
	return nil
}

func (r *renderer) Draw(pipelineKey string, bindGroups []bind_group_provider.BindGroupProvider, vertexCount uint32) error {
	p := r.Pipeline(pipelineKey)
	if p == nil {
		return fmt.Errorf("render pipeline %q not found in cache", pipelineKey)
	}
	r.backend.Draw(p, bindGroups, vertexCount)
	return nil
}

func (r *renderer) EndFrame() {
	r.backend.EndFrame()
}

func (r *renderer) Present() {
	r.backend.Present()
}

func (r *renderer) Release() {
	r.mu.Lock()
	for key, p := range r.pipelineCache {
		p.Release()
		delete(r.pipelineCache, key)
	}
	r.mu.Unlock()
	r.backend.Release()
}

// DefaultSampler is the sampler used for cube face textures: linear filtering clamped to the edge,
// so adjacent faces do not bleed into each other at their seams.
var DefaultSampler = common.SamplerStagingData{
	AddressModeU: wgpu.AddressModeClampToEdge,
	AddressModeV: wgpu.AddressModeClampToEdge,
	AddressModeW: wgpu.AddressModeClampToEdge,
	MagFilter:    wgpu.FilterModeLinear,
	MinFilter:    wgpu.FilterModeLinear,
}
