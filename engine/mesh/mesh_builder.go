package mesh

import (
	"errors"
	"fmt"
	"math"

	"github.com/Carmen-Shannon/panoview/common"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
)

// ReferenceFace is the face whose vertical span decides whether a new camera layout needs a new mesh.
const ReferenceFace = panorama.FaceBack

// ErrInvalidFace is returned when a camera face has a non-positive or non-finite span.
var ErrInvalidFace = errors.New("invalid camera face")

type meshBuilderImpl struct {
	radius float64
	// sideSegments is the number of horizontal segments a full turn would get.
	sideSegments   int
	heightSegments int
	capSegments    int
	capRings       int
	proxyStep      int
}

// MeshBuilder builds a seamless multi-patch sphere from six camera faces.
type MeshBuilder interface {
	// Build produces the merged sphere mesh for a camera layout.
	// Side patches start at yaw - fovS/2 - 90°, span fovS and are trimmed so that consecutive
	// patches share exactly one seam. Top and bottom caps are rotated onto their own optical axis.
	// Build is deterministic: identical layouts produce identical meshes.
	//
	// Parameters:
	//   - faces: the six camera faces in face order
	//
	// Returns:
	//   - Mesh: the built mesh
	//   - error: ErrInvalidFace if a face has an unusable span
	Build(faces [panorama.FaceCount]panorama.CameraFace) (Mesh, error)

	// NeedsRebuild reports whether switching from one camera layout to another requires a new mesh.
	// Only a change of the reference face's vertical span does.
	//
	// Parameters:
	//   - previous: the layout of the current mesh
	//   - next: the layout of the incoming panorama
	//
	// Returns:
	//   - bool: true if Build must be called again
	NeedsRebuild(previous, next [panorama.FaceCount]panorama.CameraFace) bool
}

var _ MeshBuilder = &meshBuilderImpl{}

// NewMeshBuilder creates a MeshBuilder with the given options applied over the defaults.
//
// Parameters:
//   - options: functional options for the builder
//
// Returns:
//   - MeshBuilder: the configured builder
func NewMeshBuilder(options ...MeshBuilderOption) MeshBuilder {
	b := &meshBuilderImpl{
		radius:         10,
		sideSegments:   72,
		heightSegments: 24,
		capSegments:    72,
		capRings:       8,
		proxyStep:      20,
	}
	for _, opt := range options {
		opt(b)
	}
	return b
}

func (b *meshBuilderImpl) NeedsRebuild(previous, next [panorama.FaceCount]panorama.CameraFace) bool {
	return previous[ReferenceFace].FovH != next[ReferenceFace].FovH
}

func (b *meshBuilderImpl) Build(faces [panorama.FaceCount]panorama.CameraFace) (Mesh, error) {
	for i, f := range faces {
		if !f.Valid() {
			return nil, fmt.Errorf("face %s: %w", panorama.Face(i), ErrInvalidFace)
		}
	}

	m := &meshImpl{
		layout: faces,
		radius: float32(b.radius),
	}

	var sides [panorama.SideFaceCount]panorama.PatchBounds
	for i := range sides {
		sides[i] = faces[i].SideBounds()
	}
	trimmed, kept := panorama.TrimSideBounds(sides)

	for i := range trimmed {
		face := panorama.Face(i)
		if trimmed[i].PhiLength <= 0 {
			return nil, fmt.Errorf("face %s fully overlapped by its successor: %w", face, ErrInvalidFace)
		}
		m.bounds[face] = trimmed[i]
		b.appendSidePatch(m, face, trimmed[i], kept[i])
	}

	// Caps close the band left open above and below the side patches.
	top, bottom := math.Pi, 0.0
	for _, s := range trimmed {
		top = math.Min(top, s.ThetaStart)
		bottom = math.Max(bottom, s.ThetaEnd())
	}
	b.appendCap(m, panorama.FaceTop, faces[panorama.FaceTop], top, true)
	b.appendCap(m, panorama.FaceBottom, faces[panorama.FaceBottom], math.Pi-bottom, false)

	return m, nil
}

// appendSidePatch tessellates a side face's patch. U runs across the untrimmed span so that the
// trimmed-away texels of each face are never sampled.
func (b *meshBuilderImpl) appendSidePatch(m *meshImpl, face panorama.Face, bounds panorama.PatchBounds, kept float64) {
	widthSegments := max(1, int(math.Ceil(float64(b.sideSegments)*bounds.PhiLength/(2*math.Pi))))
	heightSegments := max(1, b.heightSegments)

	base := uint32(len(m.vertices))
	for iy := 0; iy <= heightSegments; iy++ {
		v := float64(iy) / float64(heightSegments)
		theta := bounds.ThetaStart + v*bounds.ThetaLength
		for ix := 0; ix <= widthSegments; ix++ {
			u := float64(ix) / float64(widthSegments)
			p := common.SpherePoint(b.radius, theta, bounds.PhiStart+u*bounds.PhiLength)
			m.vertices = append(m.vertices, Vertex{
				Position: toFloat32(p),
				UV:       [2]float32{float32(u * kept), float32(v)},
				Face:     uint32(face),
			})
		}
	}

	start := uint32(len(m.indices))
	m.indices = appendGridIndices(m.indices, base, widthSegments, heightSegments)
	m.groups = append(m.groups, Group{Face: face, IndexStart: start, IndexCount: uint32(len(m.indices)) - start})
	m.proxies[face] = sampleProxy(m.vertices[base:], b.proxyStep)
}

// appendCap tessellates a polar cap of angular radius rho around the face's optical axis.
// The cap is built around +Y (or -Y) and rotated into place by the face's yaw, pitch and roll.
// UVs come from projecting each vertex through the face's pinhole model.
func (b *meshBuilderImpl) appendCap(m *meshImpl, face panorama.Face, cam panorama.CameraFace, rho float64, north bool) {
	pole := math.Pi / 2
	if !north {
		pole = -math.Pi / 2
	}
	// Cover the gap between the tilted axis and the pole as well.
	rho = common.Clamp(rho+math.Abs(pole-cam.Pitch), 0, math.Pi/2)

	basis := newFaceBasis(cam)
	rings := max(1, b.capRings)
	segments := max(3, b.capSegments)

	m.bounds[face] = panorama.PatchBounds{PhiStart: 0, PhiLength: 2 * math.Pi, ThetaStart: 0, ThetaLength: rho}
	if !north {
		m.bounds[face] = panorama.PatchBounds{PhiStart: 0, PhiLength: 2 * math.Pi, ThetaStart: math.Pi - rho, ThetaLength: rho}
	}

	base := uint32(len(m.vertices))
	for iy := 0; iy <= rings; iy++ {
		theta := rho * float64(iy) / float64(rings)
		for ix := 0; ix <= segments; ix++ {
			phi := 2 * math.Pi * float64(ix) / float64(segments)
			local := common.SpherePoint(1, theta, phi)
			dir := basis.toWorld(local)
			u, v := basis.project(dir, cam)
			m.vertices = append(m.vertices, Vertex{
				Position: toFloat32([3]float64{dir[0] * b.radius, dir[1] * b.radius, dir[2] * b.radius}),
				UV:       [2]float32{float32(u), float32(v)},
				Face:     uint32(face),
			})
		}
	}

	start := uint32(len(m.indices))
	m.indices = appendGridIndices(m.indices, base, segments, rings)
	m.groups = append(m.groups, Group{Face: face, IndexStart: start, IndexCount: uint32(len(m.indices)) - start})
	m.proxies[face] = sampleProxy(m.vertices[base:], b.proxyStep)
}

// appendGridIndices appends two triangles per grid cell, skipping cells that collapse at a pole.
func appendGridIndices(indices []uint32, base uint32, widthSegments, heightSegments int) []uint32 {
	row := uint32(widthSegments + 1)
	for iy := 0; iy < heightSegments; iy++ {
		for ix := 0; ix < widthSegments; ix++ {
			a := base + uint32(iy)*row + uint32(ix)
			b := a + 1
			c := a + row
			d := c + 1
			indices = append(indices, a, c, b, b, c, d)
		}
	}
	return indices
}

func sampleProxy(vertices []Vertex, step int) [][3]float32 {
	step = max(1, step)
	out := make([][3]float32, 0, len(vertices)/step+1)
	for i := 0; i < len(vertices); i += step {
		out = append(out, vertices[i].Position)
	}
	return out
}

func toFloat32(p [3]float64) [3]float32 {
	return [3]float32{float32(p[0]), float32(p[1]), float32(p[2])}
}

// faceBasis is the orthonormal frame of a camera face: forward along the optical axis, right and
// up spanning the image plane.
type faceBasis struct {
	forward, right, up [3]float64
}

func newFaceBasis(cam panorama.CameraFace) faceBasis {
	forward := common.DirectionFromSpherical(cam.Pitch, cam.Yaw)
	right := common.DirectionFromSpherical(0, cam.Yaw+math.Pi/2)
	up := cross(right, forward)

	sr, cr := math.Sincos(cam.Roll)
	rolledRight := add(scale(right, cr), scale(up, sr))
	rolledUp := add(scale(up, cr), scale(right, -sr))
	return faceBasis{forward: forward, right: rolledRight, up: rolledUp}
}

// toWorld maps a direction given around the local +Y axis onto the face's optical axis.
func (f faceBasis) toWorld(local [3]float64) [3]float64 {
	return add(add(scale(f.right, local[0]), scale(f.forward, local[1])), scale(f.up, local[2]))
}

// project returns the texture coordinate of a direction through the face's pinhole model, clamped
// to the texture.
func (f faceBasis) project(dir [3]float64, cam panorama.CameraFace) (u, v float64) {
	depth := dot(dir, f.forward)
	if depth <= 1e-6 {
		depth = 1e-6
	}
	x := dot(dir, f.right) / depth
	y := dot(dir, f.up) / depth
	u = 0.5 + x/(2*math.Tan(cam.FovS/2))
	v = 0.5 - y/(2*math.Tan(cam.FovH/2))
	return common.Clamp(u, 0, 1), common.Clamp(v, 0, 1)
}

func cross(a, b [3]float64) [3]float64 {
	return [3]float64{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot(a, b [3]float64) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

func add(a, b [3]float64) [3]float64 {
	return [3]float64{a[0] + b[0], a[1] + b[1], a[2] + b[2]}
}

func scale(a [3]float64, s float64) [3]float64 {
	return [3]float64{a[0] * s, a[1] * s, a[2] * s}
}
