package datasource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"testing"

	"github.com/Carmen-Shannon/panoview/engine/decoder"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
	"github.com/Carmen-Shannon/panoview/engine/texture_lod"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hydratedRecord(id string, lat, lon float64) panorama.PanoramaRecord {
	rec := panorama.PanoramaRecord{
		ID:           id,
		BuildID:      "9",
		Lat:          lat,
		Lon:          lon,
		Elevation:    12.5,
		Heading:      1.25,
		Timestamp:    1700000000000,
		CoverageType: panorama.CoverageCar,
		Timezone:     "Europe/Berlin",
		Hydrated:     true,
	}
	for i := range rec.CameraFaces {
		rec.CameraFaces[i] = panorama.CameraFace{Yaw: float64(i) * 0.5, FovS: 1.7, FovH: 1.1, Cy: 0.01}
	}
	return rec
}

func TestHTTPClientFetchNearby(t *testing.T) {
	var query map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/closest", r.URL.Path)
		query = map[string]string{}
		for k := range r.URL.Query() {
			query[k] = r.URL.Query().Get(k)
		}
		_ = json.NewEncoder(w).Encode([]wireRecord{
			fromRecord(hydratedRecord("1", 52.5, 13.4)),
			{PanoID: "2", BuildID: "9", Lat: 52.5001, Lon: 13.4},
		})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL + "/")
	assert.Equal(t, srv.URL, c.BaseURL())

	recs, err := c.FetchNearbyPanoramas(context.Background(), 52.5, 13.4, 500, 10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "52.5", query["lat"])
	assert.Equal(t, "13.4", query["lon"])
	assert.Equal(t, "100", query["radius"])
	assert.Equal(t, "10", query["limit"])
	assert.Equal(t, "ori,cam,ele,tz", query["meta"])

	assert.Equal(t, hydratedRecord("1", 52.5, 13.4), recs[0])
	assert.False(t, recs[1].Hydrated)
	assert.Equal(t, "/pano/2/9/", recs[1].URLBase())
}

func TestHTTPClientFetchClosest(t *testing.T) {
	empty := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		if empty {
			_, _ = w.Write([]byte("[]"))
			return
		}
		_ = json.NewEncoder(w).Encode([]wireRecord{fromRecord(hydratedRecord("7", 1, 2))})
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	rec, err := c.FetchClosestPanorama(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "7", rec.ID)
	assert.True(t, rec.Hydrated)

	empty = true
	_, err = c.FetchClosestPanorama(context.Background(), 1, 2)
	assert.ErrorIs(t, err, ErrNoPanorama)
}

func TestHTTPClientFetchFace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/pano/1/9/3/2/":
			assert.Equal(t, "webp", r.URL.Query().Get("format"))
			_, _ = w.Write([]byte("face-bytes"))
		case "/pano/1/9/3/5/":
			http.Error(w, "boom", http.StatusInternalServerError)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	c := NewHTTPClient(srv.URL)
	body, err := c.FetchFace(context.Background(), "/pano/1/9/", 3, panorama.FaceFront, decoder.FormatWebP)
	require.NoError(t, err)
	assert.Equal(t, []byte("face-bytes"), body)

	_, err = c.FetchFace(context.Background(), "/pano/1/9/", 3, panorama.FaceBottom, decoder.FormatJPEG)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = c.FetchFace(context.Background(), "/pano/1/9/", 0, panorama.FaceTop, decoder.FormatJPEG)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHTTPClientFetchFaceProgress(t *testing.T) {
	payload := make([]byte, 64<<10)
	for i := range payload {
		payload[i] = byte(i)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/pano/1/9/5/0/" {
			// Flushing before the body forces a chunked response without Content-Length.
			w.(http.Flusher).Flush()
			_, _ = w.Write(payload)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write(payload[:len(payload)/2])
		w.(http.Flusher).Flush()
		_, _ = w.Write(payload[len(payload)/2:])
	}))
	defer srv.Close()

	var c texture_lod.ProgressFetcher = NewHTTPClient(srv.URL)

	var fractions []float64
	body, err := c.FetchFaceProgress(context.Background(), "/pano/1/9/", 5, panorama.FaceFront, decoder.FormatJPEG, func(f float64) {
		fractions = append(fractions, f)
	})
	require.NoError(t, err)
	assert.Equal(t, payload, body)
	require.NotEmpty(t, fractions)
	assert.True(t, sort.Float64sAreSorted(fractions))
	assert.Equal(t, 1.0, fractions[len(fractions)-1])

	fractions = nil
	body, err = c.FetchFaceProgress(context.Background(), "/pano/1/9/", 5, panorama.FaceBack, decoder.FormatJPEG, func(f float64) {
		fractions = append(fractions, f)
	})
	require.NoError(t, err)
	assert.Len(t, body, len(payload))
	assert.Empty(t, fractions)
}

func TestHTTPClientBadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	_, err := NewHTTPClient(srv.URL).FetchNearbyPanoramas(context.Background(), 0, 0, 50, 0)
	assert.Error(t, err)
}

func TestGeoJSONSourceRoundTrip(t *testing.T) {
	records := []panorama.PanoramaRecord{
		hydratedRecord("a", 0, 0),
		hydratedRecord("b", 0.0009, 0),
		{ID: "c", BuildID: "1", Lat: 0, Lon: 0.0003},
	}
	data, err := ExportGeoJSON(records)
	require.NoError(t, err)

	src, err := NewGeoJSONSource(data, "", nil)
	require.NoError(t, err)
	assert.Equal(t, records, src.Records())
}

func TestGeoJSONSourceNearby(t *testing.T) {
	records := []panorama.PanoramaRecord{
		hydratedRecord("far", 0.00135, 0), // ~150 m
		hydratedRecord("b", 0.0008, 0),    // ~89 m
		hydratedRecord("c", 0, 0.0003),    // ~33 m
		hydratedRecord("a", 0, 0),
	}
	data, err := ExportGeoJSON(records)
	require.NoError(t, err)
	src, err := NewGeoJSONSource(data, "", nil)
	require.NoError(t, err)

	// The radius is capped at MaxRadius.
	recs, err := src.FetchNearbyPanoramas(context.Background(), 0, 0, 1000, 0)
	require.NoError(t, err)
	ids := make([]string, 0, len(recs))
	for _, r := range recs {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"a", "c", "b"}, ids)

	recs, err = src.FetchNearbyPanoramas(context.Background(), 0, 0, 50, 0)
	require.NoError(t, err)
	assert.Len(t, recs, 2)

	recs, err = src.FetchNearbyPanoramas(context.Background(), 0, 0, 100, 1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "a", recs[0].ID)

	closest, err := src.FetchClosestPanorama(context.Background(), 0.00085, 0)
	require.NoError(t, err)
	assert.Equal(t, "b", closest.ID)

	_, err = src.FetchClosestPanorama(context.Background(), 10, 10)
	assert.ErrorIs(t, err, ErrNoPanorama)
}

func TestGeoJSONSourceSkipsNonPoints(t *testing.T) {
	doc := `{"type":"FeatureCollection","features":[
		{"type":"Feature","geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]},"properties":{}},
		{"type":"Feature","geometry":{"type":"Point","coordinates":[13.4,52.5]},"properties":{"panoid":"x","buildId":"1"}}
	]}`
	src, err := NewGeoJSONSource([]byte(doc), "", nil)
	require.NoError(t, err)
	recs := src.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "x", recs[0].ID)
	assert.Equal(t, 52.5, recs[0].Lat)
	assert.Equal(t, 13.4, recs[0].Lon)
	assert.False(t, recs[0].Hydrated)

	_, err = NewGeoJSONSource([]byte("[]"), "", nil)
	assert.Error(t, err)
}

func TestGeoJSONSourceFetchFace(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "pano", "a", "9", "5")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "2.jpg"), []byte("jpeg"), 0o644))

	data, err := ExportGeoJSON([]panorama.PanoramaRecord{hydratedRecord("a", 0, 0)})
	require.NoError(t, err)
	path := filepath.Join(root, "panos.geojson")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	src, err := LoadGeoJSONSource(path, root, nil)
	require.NoError(t, err)
	rec := src.Records()[0]

	body, err := src.FetchFace(context.Background(), rec.URLBase(), 5, panorama.FaceFront, decoder.FormatJPEG)
	require.NoError(t, err)
	assert.Equal(t, []byte("jpeg"), body)

	_, err = src.FetchFace(context.Background(), rec.URLBase(), 0, panorama.FaceFront, decoder.FormatJPEG)
	assert.ErrorIs(t, err, ErrNotFound)
}
