package mesh

// MeshBuilderOption is a functional option for configuring a MeshBuilder.
type MeshBuilderOption func(*meshBuilderImpl)

// WithRadius sets the sphere radius in world units.
//
// Parameters:
//   - radius: the sphere radius (ignored if <= 0)
//
// Returns:
//   - MeshBuilderOption: option function to apply
func WithRadius(radius float64) MeshBuilderOption {
	return func(b *meshBuilderImpl) {
		if radius > 0 {
			b.radius = radius
		}
	}
}

// WithSideSegments sets how many horizontal segments a full turn of side patches is divided into.
// Each side patch gets a share proportional to its span.
//
// Parameters:
//   - segments: segments per full turn
//
// Returns:
//   - MeshBuilderOption: option function to apply
func WithSideSegments(segments int) MeshBuilderOption {
	return func(b *meshBuilderImpl) {
		b.sideSegments = segments
	}
}

// WithHeightSegments sets the number of vertical segments per side patch.
//
// Parameters:
//   - segments: vertical segments
//
// Returns:
//   - MeshBuilderOption: option function to apply
func WithHeightSegments(segments int) MeshBuilderOption {
	return func(b *meshBuilderImpl) {
		b.heightSegments = segments
	}
}

// WithCapSegments sets the tessellation of the top and bottom caps.
//
// Parameters:
//   - segments: segments around the cap axis
//   - rings: rings from the axis to the cap edge
//
// Returns:
//   - MeshBuilderOption: option function to apply
func WithCapSegments(segments, rings int) MeshBuilderOption {
	return func(b *meshBuilderImpl) {
		b.capSegments = segments
		b.capRings = rings
	}
}

// WithProxyStep sets the vertex stride used to sample proxy geometry for visibility tests.
//
// Parameters:
//   - step: keep every step-th vertex
//
// Returns:
//   - MeshBuilderOption: option function to apply
func WithProxyStep(step int) MeshBuilderOption {
	return func(b *meshBuilderImpl) {
		b.proxyStep = step
	}
}
