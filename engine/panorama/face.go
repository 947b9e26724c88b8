package panorama

import (
	"fmt"
	"math"

	"github.com/Carmen-Shannon/panoview/common"
)

// Face indexes one of the six camera faces of a capture.
type Face int

const (
	FaceBack Face = iota
	FaceLeft
	FaceFront
	FaceRight
	FaceTop
	FaceBottom
)

const (
	// FaceCount is the number of faces in a capture.
	FaceCount = 6
	// SideFaceCount is the number of faces tiling the horizon.
	SideFaceCount = 4
)

var faceNames = [FaceCount]string{"back", "left", "front", "right", "top", "bottom"}

func (f Face) String() string {
	if f < 0 || int(f) >= FaceCount {
		return fmt.Sprintf("face(%d)", int(f))
	}
	return faceNames[f]
}

// IsSide reports whether f is one of the four horizon faces.
func (f Face) IsSide() bool {
	return f >= FaceBack && f <= FaceRight
}

// AllFaces returns the six faces in index order.
func AllFaces() []Face {
	return []Face{FaceBack, FaceLeft, FaceFront, FaceRight, FaceTop, FaceBottom}
}

// CameraFace holds the intrinsic projection of one camera face. All angles are radians.
// A CameraFace is immutable for the lifetime of a panorama.
type CameraFace struct {
	Yaw   float64
	Pitch float64
	Roll  float64
	// FovS is the horizontal span of the face.
	FovS float64
	// FovH is the vertical span of the face.
	FovH float64
	// Cy is the vertical offset of the optical center.
	Cy float64
}

// PatchBounds describes a spherical patch in the sphere parameterisation used by the mesh:
// phi runs around the vertical axis, theta runs from the north pole (0) to the south pole (π).
type PatchBounds struct {
	PhiStart    float64
	PhiLength   float64
	ThetaStart  float64
	ThetaLength float64
}

// PhiEnd returns PhiStart + PhiLength.
func (b PatchBounds) PhiEnd() float64 {
	return b.PhiStart + b.PhiLength
}

// ThetaEnd returns ThetaStart + ThetaLength.
func (b PatchBounds) ThetaEnd() float64 {
	return b.ThetaStart + b.ThetaLength
}

// SideBounds returns the untrimmed patch bounds of a side face.
// The patch starts at yaw - fovS/2 - 90° and spans fovS horizontally. Vertically it is centered
// on the horizon shifted by Cy and clamped to the sphere.
//
// Returns:
//   - PatchBounds: the face's spherical patch
func (c CameraFace) SideBounds() PatchBounds {
	thetaStart := common.Clamp(math.Pi/2-c.FovH/2-c.Cy, 0, math.Pi)
	thetaLength := common.Clamp(c.FovH, 0, math.Pi-thetaStart)
	return PatchBounds{
		PhiStart:    c.Yaw - c.FovS/2 - math.Pi/2,
		PhiLength:   c.FovS,
		ThetaStart:  thetaStart,
		ThetaLength: thetaLength,
	}
}

// Valid reports whether the face has positive, finite spans.
func (c CameraFace) Valid() bool {
	for _, v := range []float64{c.Yaw, c.Pitch, c.Roll, c.FovS, c.FovH, c.Cy} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return c.FovS > 0 && c.FovH > 0
}

// TrimSideBounds removes the horizontal overlap between consecutive side patches.
// Each patch is shortened by (phiStart_i + phiLength_i) - phiStart_{i+1}; the successor of the
// last side face is the first one shifted by a full turn. The trimmed spans tile 2π exactly when
// the untrimmed patches cover it.
//
// Parameters:
//   - sides: untrimmed bounds of the four side faces in index order
//
// Returns:
//   - [SideFaceCount]PatchBounds: trimmed bounds
//   - [SideFaceCount]float64: the fraction of each face's horizontal span that was kept
func TrimSideBounds(sides [SideFaceCount]PatchBounds) ([SideFaceCount]PatchBounds, [SideFaceCount]float64) {
	var trimmed [SideFaceCount]PatchBounds
	var kept [SideFaceCount]float64
	for i := range sides {
		next := sides[(i+1)%SideFaceCount].PhiStart
		// Successor starts must be monotonic: unwrap into (PhiStart_i, PhiStart_i + 2π].
		for next <= sides[i].PhiStart {
			next += 2 * math.Pi
		}
		for next > sides[i].PhiStart+2*math.Pi {
			next -= 2 * math.Pi
		}
		overlap := sides[i].PhiEnd() - next

		trimmed[i] = sides[i]
		trimmed[i].PhiLength = sides[i].PhiLength - overlap
		kept[i] = 1
		if sides[i].PhiLength > 0 {
			kept[i] = trimmed[i].PhiLength / sides[i].PhiLength
		}
	}
	return trimmed, kept
}
