package export

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"

	"github.com/Carmen-Shannon/panoview/engine/decoder"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
)

var faceColors = [panorama.SideFaceCount]color.RGBA{
	{R: 255, A: 255},
	{G: 255, A: 255},
	{B: 255, A: 255},
	{R: 255, G: 255, A: 255},
}

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

type fakeFetcher struct {
	mu      sync.Mutex
	w, h    int
	fail    panorama.Face
	failErr error
	calls   []panorama.Face
	zooms   []int
}

func (f *fakeFetcher) FetchFace(_ context.Context, urlBase string, zoom int, face panorama.Face, _ decoder.Format) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, face)
	f.zooms = append(f.zooms, zoom)
	f.mu.Unlock()
	if f.failErr != nil && face == f.fail {
		return nil, f.failErr
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, solid(f.w, f.h, faceColors[face])); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func hydrated() panorama.PanoramaRecord {
	return panorama.PanoramaRecord{ID: "1", BuildID: "2", Hydrated: true}
}

func overlapping() panorama.PanoramaRecord {
	rec := hydrated()
	for i := range rec.CameraFaces {
		rec.CameraFaces[i] = panorama.CameraFace{
			Yaw:  float64(i) * math.Pi / 2,
			FovS: 1.25 * math.Pi / 2,
			FovH: 1,
		}
	}
	return rec
}

func rgbaAt(img image.Image, x, y int) color.RGBA {
	return color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
}

func TestParseEncoding(t *testing.T) {
	for name, want := range map[string]Encoding{"jpg": EncodingJPEG, "JPEG": EncodingJPEG, "png": EncodingPNG, "webp": EncodingWebP} {
		got, err := ParseEncoding(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}
	_, err := ParseEncoding("heic")
	assert.ErrorIs(t, err, ErrUnknownEncoding)
	assert.Equal(t, "webp", EncodingWebP.Extension())
	assert.Equal(t, "jpg", EncodingJPEG.Extension())
}

func TestKeptFractions(t *testing.T) {
	assert.Equal(t, [panorama.SideFaceCount]float64{1, 1, 1, 1}, KeptFractions(hydrated()))

	kept := KeptFractions(overlapping())
	for i, k := range kept {
		assert.InDelta(t, 0.8, k, 1e-9, "face %d", i)
	}
}

func TestJoin_CropsAndScales(t *testing.T) {
	var faces [panorama.SideFaceCount]image.Image
	for i := range faces {
		faces[i] = solid(10, 8, faceColors[i])
	}
	// The last face is twice as large and gets scaled down to the common height.
	faces[3] = solid(20, 16, faceColors[3])

	out := Join(faces, [panorama.SideFaceCount]float64{0.8, 1, 1, 0.5}, 8, draw.NearestNeighbor)
	assert.Equal(t, image.Rect(0, 0, 8+10+10+5, 8), out.Bounds())

	assert.Equal(t, faceColors[0], rgbaAt(out, 4, 4))
	assert.Equal(t, faceColors[1], rgbaAt(out, 12, 4))
	assert.Equal(t, faceColors[2], rgbaAt(out, 22, 4))
	assert.Equal(t, faceColors[3], rgbaAt(out, 30, 4))
}

func TestJoin_DefaultHeightIsTallestFace(t *testing.T) {
	var faces [panorama.SideFaceCount]image.Image
	for i := range faces {
		faces[i] = solid(4, 4, faceColors[i])
	}
	faces[2] = solid(8, 8, faceColors[2])

	out := Join(faces, [panorama.SideFaceCount]float64{1, 1, 1, 1}, 0, draw.NearestNeighbor)
	assert.Equal(t, image.Rect(0, 0, 8*4, 8), out.Bounds())
}

func TestStitch(t *testing.T) {
	f := &fakeFetcher{w: 10, h: 6}
	s := NewStitcher(f, decoder.NewDecoder(nil), WithZoom(3), WithScaler(draw.NearestNeighbor))

	img, err := s.Stitch(context.Background(), overlapping())
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 6), img.Bounds())
	for i := range faceColors {
		assert.Equal(t, faceColors[i], rgbaAt(img, i*8+4, 3), "face %d", i)
	}

	assert.ElementsMatch(t, []panorama.Face{panorama.FaceBack, panorama.FaceLeft, panorama.FaceFront, panorama.FaceRight}, f.calls)
	assert.Equal(t, []int{3, 3, 3, 3}, f.zooms)
}

func TestStitch_Errors(t *testing.T) {
	boom := errors.New("boom")
	f := &fakeFetcher{w: 4, h: 4, fail: panorama.FaceFront, failErr: boom}
	s := NewStitcher(f, decoder.NewDecoder(nil), WithConcurrency(1))

	_, err := s.Stitch(context.Background(), hydrated())
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "front")

	_, err = s.Stitch(context.Background(), panorama.PanoramaRecord{Lat: 1, Lon: 2})
	assert.Error(t, err)
}

func TestExport_Encodings(t *testing.T) {
	f := &fakeFetcher{w: 8, h: 8}

	var jpg bytes.Buffer
	s := NewStitcher(f, decoder.NewDecoder(nil), WithQuality(80))
	require.NoError(t, s.Export(context.Background(), hydrated(), &jpg))
	assert.Equal(t, decoder.FormatJPEG, decoder.Detect(jpg.Bytes()))

	var webp bytes.Buffer
	s = NewStitcher(f, decoder.NewDecoder(nil), WithEncoding(EncodingWebP))
	assert.Equal(t, EncodingWebP, s.Encoding())
	require.NoError(t, s.Export(context.Background(), hydrated(), &webp))
	assert.Equal(t, decoder.FormatWebP, decoder.Detect(webp.Bytes()))

	img, format, err := decoder.NewDecoder(nil).Decode(context.Background(), webp.Bytes())
	require.NoError(t, err)
	assert.Equal(t, decoder.FormatWebP, format)
	assert.Equal(t, image.Rect(0, 0, 32, 8), img.Bounds())
	assert.Equal(t, faceColors[2], rgbaAt(img, 20, 4))

	var pngBuf bytes.Buffer
	s = NewStitcher(f, decoder.NewDecoder(nil), WithEncoding(EncodingPNG), WithHeight(4))
	require.NoError(t, s.Export(context.Background(), hydrated(), &pngBuf))
	decoded, err := png.Decode(&pngBuf)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 16, 4), decoded.Bounds())
}
