package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"github.com/Carmen-Shannon/panoview/engine/decoder"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
)

type geoJSONSourceImpl struct {
	records  []panorama.PanoramaRecord
	faceRoot string
	logger   *slog.Logger
}

// GeoJSONSource serves panoramas from a FeatureCollection of points and face images from a
// directory tree laid out as {root}/pano/{id}/{buildId}/{zoom}/{face}.{ext}.
type GeoJSONSource interface {
	DataSource

	// Records returns every panorama in the collection.
	Records() []panorama.PanoramaRecord
}

var _ GeoJSONSource = &geoJSONSourceImpl{}

// NewGeoJSONSource parses a FeatureCollection. Features without a point geometry are skipped.
//
// Parameters:
//   - data: the GeoJSON document
//   - faceRoot: directory holding face images, empty if faces are not served
//   - logger: structured logger, nil for slog.Default()
//
// Returns:
//   - GeoJSONSource: the source
//   - error: error if the document is not a FeatureCollection
func NewGeoJSONSource(data []byte, faceRoot string, logger *slog.Logger) (GeoJSONSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse panorama collection: %w", err)
	}

	src := &geoJSONSourceImpl{faceRoot: faceRoot, logger: logger}
	for i, f := range fc.Features {
		rec, err := featureRecord(f)
		if err != nil {
			logger.Warn("skipping panorama feature", "index", i, "error", err)
			continue
		}
		src.records = append(src.records, rec)
	}
	return src, nil
}

// LoadGeoJSONSource reads a FeatureCollection file and creates a GeoJSONSource from it.
func LoadGeoJSONSource(path, faceRoot string, logger *slog.Logger) (GeoJSONSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read panorama collection: %w", err)
	}
	return NewGeoJSONSource(data, faceRoot, logger)
}

func (g *geoJSONSourceImpl) Records() []panorama.PanoramaRecord {
	return append([]panorama.PanoramaRecord(nil), g.records...)
}

func (g *geoJSONSourceImpl) FetchFace(ctx context.Context, urlBase string, zoom int, face panorama.Face, _ decoder.Format) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.faceRoot == "" {
		return nil, fmt.Errorf("%w: no face directory configured", ErrNotFound)
	}
	pattern := filepath.Join(g.faceRoot, filepath.FromSlash(urlBase), strconv.Itoa(zoom), fmt.Sprintf("%d.*", int(face)))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: face %s zoom %d of %s", ErrNotFound, face, zoom, urlBase)
	}
	sort.Strings(matches)
	return os.ReadFile(matches[0])
}

func (g *geoJSONSourceImpl) FetchNearbyPanoramas(ctx context.Context, lat, lon, radius float64, limit int) ([]panorama.PanoramaRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	radius = clampRadius(radius)
	origin := orb.Point{lon, lat}

	type hit struct {
		rec  panorama.PanoramaRecord
		dist float64
	}
	var hits []hit
	for _, rec := range g.records {
		d := geo.Distance(origin, orb.Point{rec.Lon, rec.Lat})
		if d < radius {
			hits = append(hits, hit{rec: rec, dist: d})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].dist < hits[j].dist })
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]panorama.PanoramaRecord, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.rec)
	}
	return out, nil
}

func (g *geoJSONSourceImpl) FetchClosestPanorama(ctx context.Context, lat, lon float64) (panorama.PanoramaRecord, error) {
	recs, err := g.FetchNearbyPanoramas(ctx, lat, lon, MaxRadius, 1)
	if err != nil {
		return panorama.PanoramaRecord{}, err
	}
	if len(recs) == 0 {
		return panorama.PanoramaRecord{}, fmt.Errorf("%w near %f,%f", ErrNoPanorama, lat, lon)
	}
	return recs[0], nil
}

// RecordFeature converts a panorama into a point feature carrying the API's record fields as
// properties.
//
// Parameters:
//   - rec: the panorama
//
// Returns:
//   - *geojson.Feature: the feature
func RecordFeature(rec panorama.PanoramaRecord) *geojson.Feature {
	w := fromRecord(rec)
	f := geojson.NewFeature(orb.Point{rec.Lon, rec.Lat})
	f.Properties["panoid"] = w.PanoID
	f.Properties["buildId"] = w.BuildID
	f.Properties["timestamp"] = w.Timestamp
	f.Properties["coverageType"] = w.CoverageType
	f.Properties["heading"] = w.Heading
	f.Properties["pitch"] = w.Pitch
	f.Properties["roll"] = w.Roll
	f.Properties["elevation"] = w.Elevation
	if w.Timezone != "" {
		f.Properties["timezone"] = w.Timezone
	}
	if len(w.CameraMetadata) > 0 {
		f.Properties["cameraMetadata"] = w.CameraMetadata
	}
	return f
}

// ExportGeoJSON encodes panoramas as a FeatureCollection that NewGeoJSONSource reads back.
//
// Parameters:
//   - records: the panoramas
//
// Returns:
//   - []byte: the GeoJSON document
//   - error: error if encoding failed
func ExportGeoJSON(records []panorama.PanoramaRecord) ([]byte, error) {
	fc := geojson.NewFeatureCollection()
	for _, rec := range records {
		fc.Append(RecordFeature(rec))
	}
	return json.Marshal(fc)
}

func featureRecord(f *geojson.Feature) (panorama.PanoramaRecord, error) {
	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		return panorama.PanoramaRecord{}, fmt.Errorf("geometry is %T, not a point", f.Geometry)
	}
	// Properties decode as generic maps; route them through the wire struct.
	raw, err := json.Marshal(f.Properties)
	if err != nil {
		return panorama.PanoramaRecord{}, err
	}
	var w wireRecord
	if err := json.Unmarshal(raw, &w); err != nil {
		return panorama.PanoramaRecord{}, fmt.Errorf("invalid properties: %w", err)
	}
	w.Lat, w.Lon = pt.Lat(), pt.Lon()
	return w.toRecord(), nil
}
