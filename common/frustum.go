package common

import (
	"math"
)

// Plane represents a plane ax + by + cz + d = 0 where (a, b, c) is the normal.
type Plane struct {
	Normal   [3]float32
	Distance float32
}

// SignedDistance returns the signed distance from p to the plane. Positive values lie inside.
func (p Plane) SignedDistance(pt [3]float32) float32 {
	return p.Normal[0]*pt[0] + p.Normal[1]*pt[1] + p.Normal[2]*pt[2] + p.Distance
}

// Frustum represents the six planes of a view frustum.
// Planes are oriented so that the positive half-space is inside the frustum.
type Frustum struct {
	Planes [6]Plane // Left, Right, Bottom, Top, Near, Far
}

// FrustumPlane indices.
const (
	FrustumLeft   = 0
	FrustumRight  = 1
	FrustumBottom = 2
	FrustumTop    = 3
	FrustumNear   = 4
	FrustumFar    = 5
)

// frustumRows maps each plane to the clip-space row combined with row 3 and its sign.
// WebGPU clip depth is [0, 1], so the near plane uses row 2 alone.
var frustumRows = [6]struct {
	row  int
	sign float32
	w    float32
}{
	FrustumLeft:   {0, 1, 1},
	FrustumRight:  {0, -1, 1},
	FrustumBottom: {1, 1, 1},
	FrustumTop:    {1, -1, 1},
	FrustumNear:   {2, 1, 0},
	FrustumFar:    {2, -1, 1},
}

// ExtractFrustumFromMatrix extracts frustum planes from a combined projection * view matrix
// using the Gribb/Hartmann method.
//
// Reference: https://www8.cs.umu.se/kurser/5DV051/HT12/lab/plane_extraction.pdf
//
// Parameters:
//   - viewProj: 16 float32 values representing the view-projection matrix (column-major)
//
// Returns:
//   - Frustum: the extracted frustum with normalized planes
func ExtractFrustumFromMatrix(viewProj []float32) Frustum {
	var f Frustum

	// Column-major: element M[row][col] lives at viewProj[col*4+row].
	for i, r := range frustumRows {
		p := &f.Planes[i]
		p.Normal[0] = r.w*viewProj[3] + r.sign*viewProj[r.row]
		p.Normal[1] = r.w*viewProj[7] + r.sign*viewProj[4+r.row]
		p.Normal[2] = r.w*viewProj[11] + r.sign*viewProj[8+r.row]
		p.Distance = r.w*viewProj[15] + r.sign*viewProj[12+r.row]
		f.normalizePlane(i)
	}

	return f
}

// ContainsPoint reports whether pt lies inside or on every plane of the frustum.
//
// Parameters:
//   - pt: the world-space point to test
//
// Returns:
//   - bool: true if the point is inside the frustum
func (f *Frustum) ContainsPoint(pt [3]float32) bool {
	for i := range f.Planes {
		if f.Planes[i].SignedDistance(pt) < 0 {
			return false
		}
	}
	return true
}

// normalizePlane scales a frustum plane so that its normal has unit length.
func (f *Frustum) normalizePlane(index int) {
	p := &f.Planes[index]
	length := float32(math.Sqrt(float64(
		p.Normal[0]*p.Normal[0] +
			p.Normal[1]*p.Normal[1] +
			p.Normal[2]*p.Normal[2],
	)))

	if length > 0 {
		invLen := 1.0 / length
		p.Normal[0] *= invLen
		p.Normal[1] *= invLen
		p.Normal[2] *= invLen
		p.Distance *= invLen
	}
}
