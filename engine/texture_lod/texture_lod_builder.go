package texture_lod

import (
	"context"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/panoview/engine/decoder"
	"github.com/Carmen-Shannon/panoview/engine/dispatch"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
)

// ManagerBuilderOption is a functional option for configuring a Manager.
type ManagerBuilderOption func(*managerImpl)

// WithFetcher sets the source of encoded face bytes.
//
// Parameters:
//   - f: the fetcher
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithFetcher(f FaceFetcher) ManagerBuilderOption {
	return func(m *managerImpl) {
		m.fetcher = f
	}
}

// WithDecoder sets the payload decoder.
//
// Parameters:
//   - d: the decoder
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithDecoder(d decoder.Decoder) ManagerBuilderOption {
	return func(m *managerImpl) {
		if d != nil {
			m.decoder = d
		}
	}
}

// WithExecutor sets where fetch and decode run.
//
// Parameters:
//   - e: the executor
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithExecutor(e dispatch.Executor) ManagerBuilderOption {
	return func(m *managerImpl) {
		if e != nil {
			m.executor = e
		}
	}
}

// WithContext sets the context passed to fetches and decodes.
//
// Parameters:
//   - ctx: the context
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithContext(ctx context.Context) ManagerBuilderOption {
	return func(m *managerImpl) {
		if ctx != nil {
			m.ctx = ctx
		}
	}
}

// WithLogger sets the structured logger.
//
// Parameters:
//   - l: the logger
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithLogger(l *slog.Logger) ManagerBuilderOption {
	return func(m *managerImpl) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithStartZoom sets the tier requested on activation (default 5).
//
// Parameters:
//   - zoom: the start tier
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithStartZoom(zoom int) ManagerBuilderOption {
	return func(m *managerImpl) {
		m.startZoom = zoom
	}
}

// WithNarrowZoom sets the tier requested when the vertical field of view is below the threshold (default 0).
//
// Parameters:
//   - zoom: the narrow tier
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithNarrowZoom(zoom int) ManagerBuilderOption {
	return func(m *managerImpl) {
		m.narrowZoom = zoom
	}
}

// WithWideZoom sets the tier requested at or above the threshold (default 2).
//
// Parameters:
//   - zoom: the wide tier
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithWideZoom(zoom int) ManagerBuilderOption {
	return func(m *managerImpl) {
		m.wideZoom = zoom
	}
}

// WithFovThreshold sets the vertical field of view below which the narrow tier is used (default 55°).
//
// Parameters:
//   - vFov: the threshold in radians
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithFovThreshold(vFov float64) ManagerBuilderOption {
	return func(m *managerImpl) {
		m.fovThreshold = vFov
	}
}

// WithBlendDuration sets the per-face crossfade length (default 150ms).
//
// Parameters:
//   - d: the crossfade length
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithBlendDuration(d time.Duration) ManagerBuilderOption {
	return func(m *managerImpl) {
		m.blendDuration = d
	}
}

// WithSceneFadeDuration sets the panorama-switch fade length (default 1s). Ignored when
// WithSceneFader supplies a fader.
//
// Parameters:
//   - d: the fade length
//   - suspendRotation: whether pointer rotation is ignored while fading
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithSceneFadeDuration(d time.Duration, suspendRotation bool) ManagerBuilderOption {
	return func(m *managerImpl) {
		m.fadeDuration = d
		m.suspendRotation = suspendRotation
	}
}

// WithSceneFader sets the panorama-switch fader.
//
// Parameters:
//   - f: the fader
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithSceneFader(f SceneFader) ManagerBuilderOption {
	return func(m *managerImpl) {
		m.fader = f
	}
}

// WithPreferredFormat sets the encoding asked of the server (default JPEG).
//
// Parameters:
//   - f: the preferred format
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithPreferredFormat(f decoder.Format) ManagerBuilderOption {
	return func(m *managerImpl) {
		m.preferredFormat = f
	}
}

// WithProgressCallback registers a function receiving the initial load progress.
//
// Parameters:
//   - cb: receives progress in [0, 1]
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithProgressCallback(cb func(progress float64)) ManagerBuilderOption {
	return func(m *managerImpl) {
		m.onProgress = cb
	}
}

// WithUpdateCallback registers a function called after a face's image or blend changed.
//
// Parameters:
//   - cb: receives the changed face
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithUpdateCallback(cb func(face panorama.Face)) ManagerBuilderOption {
	return func(m *managerImpl) {
		m.onUpdate = cb
	}
}
