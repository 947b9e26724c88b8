package mesh

import (
	"github.com/Carmen-Shannon/panoview/engine/panorama"
)

// Vertex is the interleaved vertex layout uploaded to the GPU.
type Vertex struct {
	Position [3]float32
	UV       [2]float32
	// Face is the material index, the face whose texture covers this vertex.
	Face uint32
}

// Group is a contiguous index range drawn with one face texture.
type Group struct {
	Face       panorama.Face
	IndexStart uint32
	IndexCount uint32
}

type meshImpl struct {
	vertices []Vertex
	indices  []uint32
	groups   []Group
	proxies  [panorama.FaceCount][][3]float32
	bounds   [panorama.FaceCount]panorama.PatchBounds
	layout   [panorama.FaceCount]panorama.CameraFace
	radius   float32
}

// Mesh is an immutable sphere mesh made of one patch per camera face.
type Mesh interface {
	// Vertices returns the merged vertex buffer. The slice must not be modified.
	//
	// Returns:
	//   - []Vertex: all vertices of all patches
	Vertices() []Vertex

	// Indices returns the merged triangle list. The slice must not be modified.
	//
	// Returns:
	//   - []uint32: triangle indices into Vertices
	Indices() []uint32

	// Groups returns one index range per face in face order.
	//
	// Returns:
	//   - []Group: the per-face draw ranges
	Groups() []Group

	// ProxyGeometry returns the coarse vertex sampling of a face's patch used for visibility tests.
	// It is never rendered.
	//
	// Parameters:
	//   - face: the face to query
	//
	// Returns:
	//   - [][3]float32: sampled patch vertices
	ProxyGeometry(face panorama.Face) [][3]float32

	// Bounds returns the (trimmed, for side faces) spherical bounds of a face's patch.
	//
	// Parameters:
	//   - face: the face to query
	//
	// Returns:
	//   - panorama.PatchBounds: the patch bounds
	Bounds(face panorama.Face) panorama.PatchBounds

	// Layout returns the camera faces the mesh was built from.
	//
	// Returns:
	//   - [panorama.FaceCount]panorama.CameraFace: the source faces
	Layout() [panorama.FaceCount]panorama.CameraFace

	// Radius returns the sphere radius.
	//
	// Returns:
	//   - float32: the radius in world units
	Radius() float32
}

var _ Mesh = &meshImpl{}

func (m *meshImpl) Vertices() []Vertex {
	return m.vertices
}

func (m *meshImpl) Indices() []uint32 {
	return m.indices
}

func (m *meshImpl) Groups() []Group {
	return m.groups
}

func (m *meshImpl) ProxyGeometry(face panorama.Face) [][3]float32 {
	if face < 0 || int(face) >= panorama.FaceCount {
		return nil
	}
	return m.proxies[face]
}

func (m *meshImpl) Bounds(face panorama.Face) panorama.PatchBounds {
	if face < 0 || int(face) >= panorama.FaceCount {
		return panorama.PatchBounds{}
	}
	return m.bounds[face]
}

func (m *meshImpl) Layout() [panorama.FaceCount]panorama.CameraFace {
	return m.layout
}

func (m *meshImpl) Radius() float32 {
	return m.radius
}
