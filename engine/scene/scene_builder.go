package scene

import (
	"log/slog"

	"github.com/Carmen-Shannon/panoview/engine/host"
)

// SceneBuilderOption is a functional option for configuring a Scene.
// Use the With* functions to create options.
type SceneBuilderOption func(s *scene)

// WithActive sets whether the scene is active for rendering.
//
// Parameters:
//   - active: whether the scene is active
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithActive(active bool) SceneBuilderOption {
	return func(s *scene) {
		s.active = active
	}
}

// WithMarker replaces the scene's navigation marker, so that navigation and drawing share one.
//
// Parameters:
//   - m: the marker
//
// Returns:
//   - SceneBuilderOption: option function to apply
func WithMarker(m host.Marker) SceneBuilderOption {
	return func(s *scene) {
		if m != nil {
			s.marker = m
		}
	}
}

// WithMarkerColor sets the RGBA color of the marker sprite.
func WithMarkerColor(color [4]float32) SceneBuilderOption {
	return func(s *scene) {
		s.markerColor = color
	}
}

// WithMarkerPixelSize sets the half extent in pixels of a marker with scale 1.
func WithMarkerPixelSize(px float32) SceneBuilderOption {
	return func(s *scene) {
		if px > 0 {
			s.markerPixelSize = px
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) SceneBuilderOption {
	return func(s *scene) {
		if l != nil {
			s.logger = l
		}
	}
}
