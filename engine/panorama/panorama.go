// Package panorama holds the data model shared by the viewer: camera faces, panorama records and
// positions relative to the active panorama.
package panorama

import (
	"errors"
	"fmt"
	"strconv"
	"time"
)

// CoverageType distinguishes captures from a vehicle and from a backpack. Values match the wire
// encoding of the coverage API.
type CoverageType int

const (
	CoverageUnknown CoverageType = 0
	CoverageCar     CoverageType = 2
	CoverageTrekker CoverageType = 3
)

// ErrNoCameraFaces is returned when a record without camera metadata is used where faces are needed.
var ErrNoCameraFaces = errors.New("panorama has no camera faces")

// PanoramaRecord describes one capture. Records are created by a data source and are read-only
// to the viewer.
type PanoramaRecord struct {
	ID           string
	BuildID      string
	Lat          float64
	Lon          float64
	Elevation    float64
	Heading      float64
	Pitch        float64
	Roll         float64
	Timestamp    int64
	CoverageType CoverageType
	Timezone     string
	CameraFaces  [FaceCount]CameraFace

	// Hydrated is false for records that only carry coordinates.
	Hydrated bool
}

// Key identifies a record by position and build. There is no stable id-addressable lookup upstream.
func (p PanoramaRecord) Key() string {
	return strconv.FormatFloat(p.Lat, 'f', -1, 64) + "," +
		strconv.FormatFloat(p.Lon, 'f', -1, 64) + "@" + p.BuildID
}

// SameLocation reports whether p and other share the exact same coordinates.
func (p PanoramaRecord) SameLocation(other PanoramaRecord) bool {
	return p.Lat == other.Lat && p.Lon == other.Lon
}

// URLBase returns the face source identifier of the panorama, "/pano/{id}/{buildId}/".
func (p PanoramaRecord) URLBase() string {
	return fmt.Sprintf("/pano/%s/%s/", p.ID, p.BuildID)
}

// Time returns the capture time.
func (p PanoramaRecord) Time() time.Time {
	return time.UnixMilli(p.Timestamp)
}

// SideFaces returns the four horizon faces.
func (p PanoramaRecord) SideFaces() [SideFaceCount]CameraFace {
	var out [SideFaceCount]CameraFace
	copy(out[:], p.CameraFaces[:SideFaceCount])
	return out
}

// HasCameraFaces reports whether every face carries a usable projection.
func (p PanoramaRecord) HasCameraFaces() bool {
	for _, f := range p.CameraFaces {
		if !f.Valid() {
			return false
		}
	}
	return true
}

// AngularPosition is a panorama's position relative to the active panorama and its heading.
type AngularPosition struct {
	// Distance is the horizontal distance in meters.
	Distance float64
	// Pitch is the elevation angle in radians, positive upwards.
	Pitch float64
	// Yaw is the heading-relative bearing in radians, in [0, 2π).
	Yaw float64
}
