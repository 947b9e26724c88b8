package texture_lod

import (
	"math"
	"time"

	"github.com/Carmen-Shannon/panoview/common"
)

// NoZoom marks a slot that has not displayed any image yet. It is coarser than every real tier.
const NoZoom = math.MaxInt

// Blend is the crossfade state of a face whose texture was just upgraded.
type Blend struct {
	// Previous is the image being faded out.
	Previous *common.TextureStagingData
	// Mix is the weight of Previous: 1 right after the swap, 0 when the fade is over.
	Mix float32
	// Active is true while the fade is running.
	Active bool
	// Elapsed is the time since the swap.
	Elapsed time.Duration
}

// FaceTextureSlot is the texture state of one face. Lower zoom values are higher resolution.
type FaceTextureSlot struct {
	Image      *common.TextureStagingData
	Zoom       int
	SourceURL  string
	Refreshing bool
	Blend      Blend

	// Version increases every time Image or Blend.Previous changes, so hosts can skip uploads.
	Version uint64
	// settled is true once the initial request for the slot has finished, successfully or not.
	settled bool
	// downloaded is the fraction of the initial request received so far.
	downloaded float64
}

// HasImage reports whether the slot displays an image.
func (s FaceTextureSlot) HasImage() bool {
	return s.Image != nil
}

// apply swaps in a new image. The old one, if any, becomes the crossfade source.
func (s *FaceTextureSlot) apply(img *common.TextureStagingData, zoom int, url string) {
	if s.Image != nil {
		s.Blend = Blend{Previous: s.Image, Mix: 1, Active: true}
	} else {
		s.Blend = Blend{}
	}
	s.Image = img
	s.Zoom = zoom
	s.SourceURL = url
	s.Version++
}

// advance moves the crossfade forward by dt. It returns true if the blend state changed.
func (s *FaceTextureSlot) advance(dt, duration time.Duration) bool {
	if !s.Blend.Active {
		return false
	}
	s.Blend.Elapsed += dt
	if duration <= 0 || s.Blend.Elapsed >= duration {
		s.Blend = Blend{}
		s.Version++
		return true
	}
	s.Blend.Mix = 1 - float32(s.Blend.Elapsed)/float32(duration)
	return true
}
