package datasource

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Carmen-Shannon/panoview/engine/decoder"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
)

type httpClientImpl struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// HTTPClient talks to the coverage API:
//
//	GET {base}/closest?lat=&lon=&radius=&limit=&meta=ori,cam,ele,tz
//	GET {base}/pano/{id}/{buildId}/{zoom}/{face}/?format=
type HTTPClient interface {
	DataSource

	// FetchFaceProgress is FetchFace with a callback receiving the downloaded fraction of the body.
	FetchFaceProgress(ctx context.Context, urlBase string, zoom int, face panorama.Face, format decoder.Format, onProgress func(fraction float64)) ([]byte, error)

	// BaseURL returns the API root without a trailing slash.
	BaseURL() string
}

var _ HTTPClient = &httpClientImpl{}

// HTTPClientOption is a functional option for configuring an HTTPClient.
type HTTPClientOption func(*httpClientImpl)

// WithHTTPClient sets the underlying *http.Client.
func WithHTTPClient(c *http.Client) HTTPClientOption {
	return func(h *httpClientImpl) {
		if c != nil {
			h.client = c
		}
	}
}

// WithClientLogger sets the structured logger.
func WithClientLogger(l *slog.Logger) HTTPClientOption {
	return func(h *httpClientImpl) {
		if l != nil {
			h.logger = l
		}
	}
}

// NewHTTPClient creates an HTTPClient for an API root such as "https://example.org".
//
// Parameters:
//   - baseURL: the API root
//   - options: functional options for the client
//
// Returns:
//   - HTTPClient: the client
func NewHTTPClient(baseURL string, options ...HTTPClientOption) HTTPClient {
	h := &httpClientImpl{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range options {
		opt(h)
	}
	return h
}

func (h *httpClientImpl) BaseURL() string {
	return h.baseURL
}

func (h *httpClientImpl) FetchFace(ctx context.Context, urlBase string, zoom int, face panorama.Face, format decoder.Format) ([]byte, error) {
	return h.FetchFaceProgress(ctx, urlBase, zoom, face, format, nil)
}

// FetchFaceProgress reports the received fraction of the body while it downloads. Nothing is
// reported when the server does not send a Content-Length.
func (h *httpClientImpl) FetchFaceProgress(ctx context.Context, urlBase string, zoom int, face panorama.Face, format decoder.Format, onProgress func(fraction float64)) ([]byte, error) {
	u := fmt.Sprintf("%s%s%d/%d/?format=%s", h.baseURL, urlBase, zoom, int(face), url.QueryEscape(format.String()))
	body, err := h.getProgress(ctx, u, onProgress)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch face %s zoom %d of %s: %w", face, zoom, urlBase, err)
	}
	return body, nil
}

func (h *httpClientImpl) FetchNearbyPanoramas(ctx context.Context, lat, lon, radius float64, limit int) ([]panorama.PanoramaRecord, error) {
	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("radius", strconv.FormatFloat(clampRadius(radius), 'f', -1, 64))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	q.Set("meta", "ori,cam,ele,tz")

	body, err := h.get(ctx, h.baseURL+"/closest?"+q.Encode())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch panoramas near %f,%f: %w", lat, lon, err)
	}

	var wire []wireRecord
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode panoramas near %f,%f: %w", lat, lon, err)
	}
	h.logger.Debug("fetched nearby panoramas", "lat", lat, "lon", lon, "count", len(wire))
	return toRecords(wire), nil
}

func (h *httpClientImpl) FetchClosestPanorama(ctx context.Context, lat, lon float64) (panorama.PanoramaRecord, error) {
	recs, err := h.FetchNearbyPanoramas(ctx, lat, lon, MaxRadius, 1)
	if err != nil {
		return panorama.PanoramaRecord{}, err
	}
	if len(recs) == 0 {
		return panorama.PanoramaRecord{}, fmt.Errorf("%w near %f,%f", ErrNoPanorama, lat, lon)
	}
	return recs[0], nil
}

func (h *httpClientImpl) get(ctx context.Context, u string) ([]byte, error) {
	return h.getProgress(ctx, u, nil)
}

func (h *httpClientImpl) getProgress(ctx context.Context, u string, onProgress func(fraction float64)) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	var body io.Reader = resp.Body
	if onProgress != nil && resp.ContentLength > 0 {
		body = &progressReader{r: resp.Body, total: resp.ContentLength, fn: onProgress}
	}
	return io.ReadAll(body)
}

// progressReader reports the fraction of total bytes read after every Read.
type progressReader struct {
	r     io.Reader
	read  int64
	total int64
	fn    func(fraction float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.fn(min(1, float64(p.read)/float64(p.total)))
	}
	return n, err
}
