package export

import (
	"log/slog"

	"golang.org/x/image/draw"

	"github.com/Carmen-Shannon/panoview/engine/decoder"
)

// StitcherOption is a functional option for configuring a Stitcher.
type StitcherOption func(s *stitcherImpl)

// WithZoom sets the resolution tier fetched, 0 being the highest. Default 0.
func WithZoom(zoom int) StitcherOption {
	return func(s *stitcherImpl) {
		if zoom >= 0 {
			s.zoom = zoom
		}
	}
}

// WithFetchFormat sets the format requested from the server. Default JPEG.
func WithFetchFormat(f decoder.Format) StitcherOption {
	return func(s *stitcherImpl) {
		s.format = f
	}
}

// WithEncoding sets the output encoding. Default JPEG.
func WithEncoding(e Encoding) StitcherOption {
	return func(s *stitcherImpl) {
		s.encoding = e
	}
}

// WithQuality sets the JPEG quality, clamped to [1, 100]. Default 90.
func WithQuality(q int) StitcherOption {
	return func(s *stitcherImpl) {
		s.quality = max(1, min(q, 100))
	}
}

// WithHeight sets the output height in pixels. Default 0 keeps the tallest face's height.
func WithHeight(h int) StitcherOption {
	return func(s *stitcherImpl) {
		if h >= 0 {
			s.height = h
		}
	}
}

// WithConcurrency caps the number of faces fetched at once.
//
// Parameters:
//   - n: the cap, at least 1
//
// Returns:
//   - StitcherOption: option function to apply
func WithConcurrency(n int) StitcherOption {
	return func(s *stitcherImpl) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithScaler replaces the CatmullRom resampler.
func WithScaler(scaler draw.Scaler) StitcherOption {
	return func(s *stitcherImpl) {
		if scaler != nil {
			s.scaler = scaler
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) StitcherOption {
	return func(s *stitcherImpl) {
		if l != nil {
			s.logger = l
		}
	}
}
