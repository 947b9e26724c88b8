package shader

import (
	"strconv"
	"strings"

	"github.com/cogentcore/webgpu/wgpu"
)

// typeLayout is the byte size and alignment of a WGSL type in a host-shareable buffer.
type typeLayout struct {
	size  uint64
	align uint64
}

// primitiveLayouts follows the WGSL alignment and size table.
//
// Reference: https://www.w3.org/TR/WGSL/#alignment-and-size
var primitiveLayouts = map[string]typeLayout{
	"f32": {4, 4}, "i32": {4, 4}, "u32": {4, 4},
	"vec2f": {8, 8}, "vec2<f32>": {8, 8}, "vec2u": {8, 8}, "vec2<u32>": {8, 8},
	"vec3f": {12, 16}, "vec3<f32>": {12, 16}, "vec3u": {12, 16}, "vec3<u32>": {12, 16},
	"vec4f": {16, 16}, "vec4<f32>": {16, 16}, "vec4u": {16, 16}, "vec4<u32>": {16, 16},
	"mat3x3f": {48, 16}, "mat3x3<f32>": {48, 16},
	"mat4x4f": {64, 16}, "mat4x4<f32>": {64, 16},
}

var sampledTextureDimensions = map[string]wgpu.TextureViewDimension{
	"texture_2d":       wgpu.TextureViewDimension2D,
	"texture_2d_array": wgpu.TextureViewDimension2DArray,
	"texture_cube":     wgpu.TextureViewDimensionCube,
}

func roundUp(align, v uint64) uint64 {
	if align == 0 {
		return v
	}
	return (v + align - 1) &^ (align - 1)
}

// resolveTypeLayout resolves primitives, known structs and fixed-size arrays.
func resolveTypeLayout(typeName string, structs map[string]typeLayout) (typeLayout, bool) {
	if l, ok := primitiveLayouts[typeName]; ok {
		return l, true
	}
	if l, ok := structs[typeName]; ok {
		return l, true
	}
	if strings.HasPrefix(typeName, "array<") && strings.HasSuffix(typeName, ">") {
		elem, count, ok := strings.Cut(typeName[len("array<"):len(typeName)-1], ",")
		if !ok {
			return typeLayout{}, false
		}
		el, ok := resolveTypeLayout(strings.TrimSpace(elem), structs)
		if !ok {
			return typeLayout{}, false
		}
		n, err := strconv.ParseUint(strings.TrimSpace(count), 10, 64)
		if err != nil {
			return typeLayout{}, false
		}
		return typeLayout{n * roundUp(el.align, el.size), el.align}, true
	}
	return typeLayout{}, false
}

// computeStructLayouts lays out every struct whose fields resolve, iterating until structs that
// embed other structs are resolved too.
func computeStructLayouts(structs []parsedStruct) map[string]typeLayout {
	resolved := make(map[string]typeLayout, len(structs))
	pending := structs
	for len(pending) > 0 {
		var next []parsedStruct
		for _, ps := range pending {
			if l, ok := structLayout(ps, resolved); ok {
				resolved[ps.name] = l
			} else {
				next = append(next, ps)
			}
		}
		if len(next) == len(pending) {
			break
		}
		pending = next
	}
	return resolved
}

func structLayout(ps parsedStruct, known map[string]typeLayout) (typeLayout, bool) {
	var offset uint64
	maxAlign := uint64(1)
	for _, f := range ps.fields {
		if f.isBuiltin {
			continue
		}
		l, ok := resolveTypeLayout(f.typeName, known)
		if !ok {
			return typeLayout{}, false
		}
		offset = roundUp(l.align, offset) + l.size
		maxAlign = max(maxAlign, l.align)
	}
	return typeLayout{roundUp(maxAlign, offset), maxAlign}, true
}

// classifyResource turns one binding declaration into a layout entry.
//
// Parameters:
//   - binding: the @binding index
//   - visibility: the stage flag
//   - space: the address space between var< and >, empty for handle types
//   - typeName: the declared type
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: the entry
func classifyResource(binding uint32, visibility wgpu.ShaderStage, space, typeName string) wgpu.BindGroupLayoutEntry {
	entry := wgpu.BindGroupLayoutEntry{Binding: binding, Visibility: visibility}

	switch {
	case space == "uniform":
		entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	case strings.HasPrefix(space, "storage"):
		entry.Buffer.Type = wgpu.BufferBindingTypeReadOnlyStorage
		if strings.Contains(space, "read_write") {
			entry.Buffer.Type = wgpu.BufferBindingTypeStorage
		}
	case typeName == "sampler":
		entry.Sampler.Type = wgpu.SamplerBindingTypeFiltering
	case strings.HasPrefix(typeName, "texture_"):
		base, param, _ := strings.Cut(typeName, "<")
		entry.Texture.ViewDimension = sampledTextureDimensions[base]
		switch strings.TrimSuffix(strings.TrimSpace(param), ">") {
		case "u32":
			entry.Texture.SampleType = wgpu.TextureSampleTypeUint
		case "i32":
			entry.Texture.SampleType = wgpu.TextureSampleTypeSint
		default:
			entry.Texture.SampleType = wgpu.TextureSampleTypeFloat
		}
	}
	return entry
}
