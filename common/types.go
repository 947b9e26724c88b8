// package common contains plain data types and math helpers shared by the viewer packages. They are not
// interface-wrapped structs, just plain structs that express commonly used data-types.
package common

import (
	"image"

	"github.com/cogentcore/webgpu/wgpu"
	"golang.org/x/image/draw"
)

// TextureStagingData holds RGBA pixel data for a face texture pending GPU upload.
type TextureStagingData struct {
	// Pixels is the RGBA pixel data, 4 bytes per pixel, row-major.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width uint32
	// Height is the height of the texture in pixels.
	Height uint32
}

// SamplerStagingData holds the configuration for a sampler binding pending GPU creation.
type SamplerStagingData struct {
	// AddressModeU, AddressModeV, AddressModeW specify the addressing mode outside the [0, 1] range.
	AddressModeU, AddressModeV, AddressModeW wgpu.AddressMode
	// MagFilter and MinFilter specify the filtering mode for magnification and minification.
	MagFilter, MinFilter wgpu.FilterMode
	// MipmapFilter specifies the filtering mode for mipmap level selection.
	MipmapFilter wgpu.MipmapFilterMode
	// LodMinClamp and LodMaxClamp bound the mip level of detail.
	LodMinClamp, LodMaxClamp float32
	// MaxAnisotropy specifies the maximum anisotropy level.
	MaxAnisotropy uint16
}

// NewTextureStagingData converts any decoded image into tightly packed RGBA staging data.
// Images that are already *image.RGBA with a zero origin and no row padding are used without copying.
//
// Parameters:
//   - img: the decoded image
//
// Returns:
//   - *TextureStagingData: the staging data, or nil if img is nil
func NewTextureStagingData(img image.Image) *TextureStagingData {
	if img == nil {
		return nil
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	if rgba, ok := img.(*image.RGBA); ok && bounds.Min == (image.Point{}) && rgba.Stride == 4*w {
		return &TextureStagingData{Pixels: rgba.Pix, Width: uint32(w), Height: uint32(h)}
	}

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(dst, dst.Bounds(), img, bounds.Min, draw.Src)
	return &TextureStagingData{Pixels: dst.Pix, Width: uint32(w), Height: uint32(h)}
}
