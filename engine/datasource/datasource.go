// Package datasource fetches panorama metadata and face images.
package datasource

import (
	"context"
	"errors"

	"github.com/Carmen-Shannon/panoview/engine/decoder"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
)

// MaxRadius is the largest search radius the coverage API accepts, in meters.
const MaxRadius = 100.0

var (
	// ErrNoPanorama is returned when no panorama exists near a coordinate.
	ErrNoPanorama = errors.New("no panorama found")
	// ErrNotFound is returned when the requested resource does not exist.
	ErrNotFound = errors.New("not found")
)

// DataSource is everything the viewer fetches from outside.
type DataSource interface {
	// FetchFace downloads the encoded bytes of one face.
	//
	// Parameters:
	//   - ctx: cancels the request
	//   - urlBase: the panorama's face source identifier
	//   - zoom: the resolution tier, 0 is the highest
	//   - face: the face to fetch
	//   - format: the preferred encoding
	//
	// Returns:
	//   - []byte: the encoded image
	//   - error: error if the face could not be fetched
	FetchFace(ctx context.Context, urlBase string, zoom int, face panorama.Face, format decoder.Format) ([]byte, error)

	// FetchNearbyPanoramas returns hydrated panoramas around a coordinate, nearest first.
	//
	// Parameters:
	//   - ctx: cancels the request
	//   - lat, lon: the coordinate in degrees
	//   - radius: search radius in meters, capped at MaxRadius
	//   - limit: maximum number of records, 0 for no limit
	//
	// Returns:
	//   - []panorama.PanoramaRecord: the records
	//   - error: error if the request failed
	FetchNearbyPanoramas(ctx context.Context, lat, lon, radius float64, limit int) ([]panorama.PanoramaRecord, error)

	// FetchClosestPanorama returns the hydrated panorama nearest to a coordinate.
	//
	// Parameters:
	//   - ctx: cancels the request
	//   - lat, lon: the coordinate in degrees
	//
	// Returns:
	//   - panorama.PanoramaRecord: the record
	//   - error: ErrNoPanorama if none is within MaxRadius
	FetchClosestPanorama(ctx context.Context, lat, lon float64) (panorama.PanoramaRecord, error)
}

func clampRadius(radius float64) float64 {
	if radius <= 0 || radius > MaxRadius {
		return MaxRadius
	}
	return radius
}
