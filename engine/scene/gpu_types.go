package scene

import (
	_ "embed"
	"encoding/binary"
	"math"
)

// PanoramaShaderSource draws the textured sphere. Group 0 holds the sphere uniform and group 1 the
// per-face uniform, textures and sampler.
//
//go:embed assets/panorama.wgsl
var PanoramaShaderSource string

// MarkerShaderSource draws the navigation marker as a screen-space sprite without vertex buffers.
//
//go:embed assets/marker.wgsl
var MarkerShaderSource string

// GPUSphereUniform matches SphereUniform in PanoramaShaderSource.
// Size: 80 bytes.
type GPUSphereUniform struct {
	MVP     [16]float32 // offset  0: projection * view * model, column-major (64 bytes)
	Opacity float32     // offset 64: alpha written by the fragment shader (4 bytes + 12 padding)
}

// Marshal serializes the uniform for GPU upload.
//
// Returns:
//   - []byte: 80-byte buffer
func (g *GPUSphereUniform) Marshal() []byte {
	buf := make([]byte, 80)
	for i, v := range g.MVP {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[64:68], math.Float32bits(g.Opacity))
	return buf
}

// GPUFaceUniform matches FaceUniform in PanoramaShaderSource.
// Size: 16 bytes.
type GPUFaceUniform struct {
	MixPrevious float32 // offset 0: weight of the previous texture
	HasCurrent  float32 // offset 4: 0 draws the face black
}

// Marshal serializes the uniform for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer
func (g *GPUFaceUniform) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.MixPrevious))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.HasCurrent))
	return buf
}

// GPUMarkerUniform matches MarkerUniform in MarkerShaderSource.
// Size: 32 bytes.
type GPUMarkerUniform struct {
	Center   [2]float32 // offset  0: sprite center in NDC
	HalfSize [2]float32 // offset  8: sprite half extent in NDC
	Color    [4]float32 // offset 16: RGBA
}

// Marshal serializes the uniform for GPU upload.
//
// Returns:
//   - []byte: 32-byte buffer
func (g *GPUMarkerUniform) Marshal() []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Center[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Center[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.HalfSize[0]))
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(g.HalfSize[1]))
	for i, v := range g.Color {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(v))
	}
	return buf
}
