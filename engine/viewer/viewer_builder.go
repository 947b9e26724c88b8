package viewer

import (
	"log/slog"

	"github.com/Carmen-Shannon/panoview/engine/dispatch"
	"github.com/Carmen-Shannon/panoview/engine/host"
	"github.com/Carmen-Shannon/panoview/engine/mesh"
	"github.com/Carmen-Shannon/panoview/engine/navigation"
	"github.com/Carmen-Shannon/panoview/engine/texture_lod"
)

// ViewerBuilderOption is a functional option for configuring a Viewer.
type ViewerBuilderOption func(v *viewerImpl)

// WithMarker sets the navigation marker, normally the one the render host draws.
//
// Parameters:
//   - m: the marker
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithMarker(m host.Marker) ViewerBuilderOption {
	return func(v *viewerImpl) {
		if m != nil {
			v.marker = m
		}
	}
}

// WithLogger sets the logger shared with the texture manager and the selector.
func WithLogger(l *slog.Logger) ViewerBuilderOption {
	return func(v *viewerImpl) {
		if l != nil {
			v.logger = l
		}
	}
}

// WithExecutor sets the executor face fetches and decodes run on.
//
// Parameters:
//   - e: the executor, for example a dispatch.PoolExecutor bounding concurrent downloads
//
// Returns:
//   - ViewerBuilderOption: option function to apply
func WithExecutor(e dispatch.Executor) ViewerBuilderOption {
	return func(v *viewerImpl) {
		if e != nil {
			v.executor = e
		}
	}
}

// WithMeshBuilder replaces the default mesh builder.
func WithMeshBuilder(b mesh.MeshBuilder) ViewerBuilderOption {
	return func(v *viewerImpl) {
		if b != nil {
			v.builder = b
		}
	}
}

// WithTextureOptions appends options for the texture manager. They are applied after the viewer's
// own wiring.
func WithTextureOptions(options ...texture_lod.ManagerBuilderOption) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.managerOptions = append(v.managerOptions, options...)
	}
}

// WithSelectorOptions appends options for the navigation selector. They are applied after the
// viewer's own wiring.
func WithSelectorOptions(options ...navigation.SelectorBuilderOption) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.selectorOptions = append(v.selectorOptions, options...)
	}
}

// WithProgressCallback sets the function receiving the initial load progress of each panorama.
func WithProgressCallback(fn func(progress float64)) ViewerBuilderOption {
	return func(v *viewerImpl) {
		v.onProgress = fn
	}
}

// WithClickSlop sets how far in pixels the pointer may travel between press and release for the
// release to count as a click.
func WithClickSlop(px float32) ViewerBuilderOption {
	return func(v *viewerImpl) {
		if px >= 0 {
			v.clickSlop = px
		}
	}
}

// WithKeyZoomStep sets the zoom input of one zoom key press.
func WithKeyZoomStep(step float32) ViewerBuilderOption {
	return func(v *viewerImpl) {
		if step > 0 {
			v.keyZoom = step
		}
	}
}
