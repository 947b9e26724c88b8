// Package shader reflects WGSL sources into the layouts a render pipeline needs: entry points,
// vertex buffer layouts and bind group layouts.
package shader

import (
	"errors"
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNoEntryPoint is returned when a source has no entry point for the requested stage.
var ErrNoEntryPoint = errors.New("shader: no entry point for stage")

// ShaderType is the pipeline stage a Shader is bound to.
type ShaderType int

const (
	ShaderTypeVertex ShaderType = iota
	ShaderTypeFragment
)

// Visibility returns the wgpu stage flag of the shader type.
func (t ShaderType) Visibility() wgpu.ShaderStage {
	switch t {
	case ShaderTypeVertex:
		return wgpu.ShaderStageVertex
	case ShaderTypeFragment:
		return wgpu.ShaderStageFragment
	default:
		return wgpu.ShaderStageNone
	}
}

type shader struct {
	key        string
	shaderType ShaderType
	source     string
	entryPoint string

	vertexLayouts              []wgpu.VertexBufferLayout
	bindGroupLayoutDescriptors map[int]wgpu.BindGroupLayoutDescriptor
	bindingNames               map[int]map[int]string
}

// Shader is one stage of a WGSL module together with the layouts reflected from its source.
type Shader interface {
	// Key returns the unique key of the shader, used as the module label.
	Key() string

	// ShaderType returns the stage this shader is bound to.
	ShaderType() ShaderType

	// Source returns the WGSL source.
	Source() string

	// EntryPoint returns the name of the stage's entry point function.
	EntryPoint() string

	// VertexLayouts returns the vertex buffer layouts reflected from the vertex input structs.
	// Fragment shaders return nil.
	//
	// Returns:
	//   - []wgpu.VertexBufferLayout: one layout per vertex input struct, in source order
	VertexLayouts() []wgpu.VertexBufferLayout

	// BindGroupLayoutDescriptor returns the layout of one bind group.
	//
	// Parameters:
	//   - group: the @group index
	//
	// Returns:
	//   - wgpu.BindGroupLayoutDescriptor: the layout, entries sorted by binding
	//   - bool: false if the source declares nothing in that group
	BindGroupLayoutDescriptor(group int) (wgpu.BindGroupLayoutDescriptor, bool)

	// BindGroupLayoutDescriptors returns the layouts of all declared bind groups keyed by group index.
	BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor

	// BindingName returns the variable name declared at a group and binding, or "" if none.
	//
	// Parameters:
	//   - group: the @group index
	//   - binding: the @binding index
	//
	// Returns:
	//   - string: the WGSL variable name
	BindingName(group, binding int) string

	// Module returns the shader module descriptor for the source.
	Module() *wgpu.ShaderModuleDescriptor
}

var _ Shader = &shader{}

// NewShader reflects a WGSL source for one stage.
// Every bind group entry is made visible to the shader's stage; pipelines merge the visibility of
// their stages.
//
// Parameters:
//   - key: unique key of the shader
//   - shaderType: the stage to reflect
//   - source: the WGSL source
//
// Returns:
//   - Shader: the reflected shader
//   - error: ErrNoEntryPoint if the source has no entry point for the stage
func NewShader(key string, shaderType ShaderType, source string) (Shader, error) {
	s := &shader{
		key:        key,
		shaderType: shaderType,
		source:     source,
		entryPoint: parseEntryPoint(source, shaderType),
	}
	if s.entryPoint == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoEntryPoint, key)
	}
	if shaderType == ShaderTypeVertex {
		s.vertexLayouts = parseVertexLayouts(source)
	}
	s.bindGroupLayoutDescriptors, s.bindingNames = parseBindGroupLayouts(source, shaderType.Visibility())
	return s, nil
}

func (s *shader) Key() string {
	return s.key
}

func (s *shader) ShaderType() ShaderType {
	return s.shaderType
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) EntryPoint() string {
	return s.entryPoint
}

func (s *shader) VertexLayouts() []wgpu.VertexBufferLayout {
	return s.vertexLayouts
}

func (s *shader) BindGroupLayoutDescriptor(group int) (wgpu.BindGroupLayoutDescriptor, bool) {
	desc, ok := s.bindGroupLayoutDescriptors[group]
	return desc, ok
}

func (s *shader) BindGroupLayoutDescriptors() map[int]wgpu.BindGroupLayoutDescriptor {
	return s.bindGroupLayoutDescriptors
}

func (s *shader) BindingName(group, binding int) string {
	return s.bindingNames[group][binding]
}

func (s *shader) Module() *wgpu.ShaderModuleDescriptor {
	return &wgpu.ShaderModuleDescriptor{
		Label: s.key,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: s.source,
		},
	}
}
