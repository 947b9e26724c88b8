// Package export stitches the side faces of a panorama into a single horizon strip and encodes it.
package export

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"math"
	"strings"

	"github.com/HugoSmits86/nativewebp"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"

	"github.com/Carmen-Shannon/panoview/engine/decoder"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
)

// Encoding is an output image encoding.
type Encoding int

const (
	EncodingJPEG Encoding = iota
	EncodingPNG
	EncodingWebP
)

// ErrUnknownEncoding is returned by ParseEncoding for unrecognised names.
var ErrUnknownEncoding = errors.New("unknown export encoding")

// ParseEncoding parses "jpeg", "jpg", "png" or "webp".
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ToLower(s) {
	case "jpeg", "jpg":
		return EncodingJPEG, nil
	case "png":
		return EncodingPNG, nil
	case "webp":
		return EncodingWebP, nil
	}
	return EncodingJPEG, fmt.Errorf("%w: %q", ErrUnknownEncoding, s)
}

// Extension returns the file extension for the encoding, without the dot.
func (e Encoding) Extension() string {
	switch e {
	case EncodingPNG:
		return "png"
	case EncodingWebP:
		return "webp"
	default:
		return "jpg"
	}
}

// Fetcher downloads encoded face bytes.
type Fetcher interface {
	FetchFace(ctx context.Context, urlBase string, zoom int, face panorama.Face, format decoder.Format) ([]byte, error)
}

type stitcherImpl struct {
	fetcher Fetcher
	decoder decoder.Decoder
	logger  *slog.Logger

	zoom        int
	format      decoder.Format
	encoding    Encoding
	quality     int
	height      int
	concurrency int
	scaler      draw.Scaler
}

// Stitcher builds a horizon strip from the four side faces: back, left, front and right in index
// order, each cropped to the part that does not overlap its successor.
type Stitcher interface {
	// Stitch fetches and decodes the side faces concurrently and joins them.
	//
	// Parameters:
	//   - ctx: cancels the fetches
	//   - rec: a hydrated panorama
	//
	// Returns:
	//   - image.Image: the strip
	//   - error: the first fetch or decode error
	Stitch(ctx context.Context, rec panorama.PanoramaRecord) (image.Image, error)

	// Export stitches the panorama and writes it in the configured encoding.
	//
	// Parameters:
	//   - ctx: cancels the fetches
	//   - rec: a hydrated panorama
	//   - w: the destination
	//
	// Returns:
	//   - error: error if stitching or encoding failed
	Export(ctx context.Context, rec panorama.PanoramaRecord, w io.Writer) error

	// Encoding returns the configured output encoding.
	Encoding() Encoding
}

var _ Stitcher = &stitcherImpl{}

// NewStitcher creates a Stitcher.
//
// Parameters:
//   - fetcher: source of face bytes
//   - dec: face decoder
//   - options: functional options
//
// Returns:
//   - Stitcher: the stitcher
func NewStitcher(fetcher Fetcher, dec decoder.Decoder, options ...StitcherOption) Stitcher {
	s := &stitcherImpl{
		fetcher:     fetcher,
		decoder:     dec,
		logger:      slog.Default(),
		zoom:        0,
		format:      decoder.FormatJPEG,
		encoding:    EncodingJPEG,
		quality:     90,
		concurrency: panorama.SideFaceCount,
		scaler:      draw.CatmullRom,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

func (s *stitcherImpl) Encoding() Encoding {
	return s.encoding
}

func (s *stitcherImpl) Stitch(ctx context.Context, rec panorama.PanoramaRecord) (image.Image, error) {
	if !rec.Hydrated {
		return nil, fmt.Errorf("export %s: record has no metadata", rec.Key())
	}

	var faces [panorama.SideFaceCount]image.Image
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := 0; i < panorama.SideFaceCount; i++ {
		face := panorama.Face(i)
		g.Go(func() error {
			data, err := s.fetcher.FetchFace(gctx, rec.URLBase(), s.zoom, face, s.format)
			if err != nil {
				return fmt.Errorf("fetch %s face: %w", face, err)
			}
			img, format, err := s.decoder.Decode(gctx, data)
			if err != nil {
				return fmt.Errorf("decode %s face: %w", face, err)
			}
			s.logger.Debug("export face ready", "face", face, "format", format, "size", img.Bounds().Size())
			faces[face] = img
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return Join(faces, KeptFractions(rec), s.height, s.scaler), nil
}

func (s *stitcherImpl) Export(ctx context.Context, rec panorama.PanoramaRecord, w io.Writer) error {
	img, err := s.Stitch(ctx, rec)
	if err != nil {
		return err
	}
	return Encode(w, img, s.encoding, s.quality)
}

// KeptFractions returns, per side face, the share of its width that survives overlap trimming.
// Records without camera faces keep every face whole.
//
// Parameters:
//   - rec: the panorama
//
// Returns:
//   - [panorama.SideFaceCount]float64: fractions in (0, 1]
func KeptFractions(rec panorama.PanoramaRecord) [panorama.SideFaceCount]float64 {
	kept := [panorama.SideFaceCount]float64{1, 1, 1, 1}
	if !rec.HasCameraFaces() {
		return kept
	}
	var sides [panorama.SideFaceCount]panorama.PatchBounds
	for i := range sides {
		sides[i] = rec.CameraFaces[i].SideBounds()
	}
	_, trimmed := panorama.TrimSideBounds(sides)
	for i, k := range trimmed {
		// A gap between faces shows up as k > 1; nothing can fill it.
		if k > 0 && k < 1 {
			kept[i] = k
		}
	}
	return kept
}

// Join crops each face to its kept fraction from the left edge, scales it to a common height and
// places the crops side by side.
//
// Parameters:
//   - faces: side face images in index order
//   - kept: the fraction of each face's width to keep
//   - height: output height; 0 uses the tallest face
//   - scaler: resampling kernel
//
// Returns:
//   - *image.RGBA: the strip
func Join(faces [panorama.SideFaceCount]image.Image, kept [panorama.SideFaceCount]float64, height int, scaler draw.Scaler) *image.RGBA {
	if height <= 0 {
		for _, f := range faces {
			if f != nil && f.Bounds().Dy() > height {
				height = f.Bounds().Dy()
			}
		}
	}

	type placement struct {
		src   image.Rectangle
		width int
	}
	var places [panorama.SideFaceCount]placement
	total := 0
	for i, f := range faces {
		if f == nil || height == 0 {
			continue
		}
		b := f.Bounds()
		cropW := int(math.Round(float64(b.Dx()) * kept[i]))
		cropW = max(1, min(cropW, b.Dx()))
		src := image.Rect(b.Min.X, b.Min.Y, b.Min.X+cropW, b.Max.Y)
		width := int(math.Round(float64(cropW) * float64(height) / float64(b.Dy())))
		places[i] = placement{src: src, width: max(1, width)}
		total += places[i].width
	}

	out := image.NewRGBA(image.Rect(0, 0, total, height))
	x := 0
	for i, f := range faces {
		if places[i].width == 0 {
			continue
		}
		dst := image.Rect(x, 0, x+places[i].width, height)
		if places[i].src.Dx() == dst.Dx() && places[i].src.Dy() == dst.Dy() {
			draw.Draw(out, dst, f, places[i].src.Min, draw.Src)
		} else {
			scaler.Scale(out, dst, f, places[i].src, draw.Src, nil)
		}
		x += places[i].width
	}
	return out
}

// Encode writes img in the given encoding. quality applies to JPEG only; the WebP encoder is
// lossless.
//
// Parameters:
//   - w: the destination
//   - img: the image
//   - enc: the encoding
//   - quality: JPEG quality in [1, 100]
//
// Returns:
//   - error: error if encoding failed
func Encode(w io.Writer, img image.Image, enc Encoding, quality int) error {
	switch enc {
	case EncodingPNG:
		return png.Encode(w, img)
	case EncodingWebP:
		return nativewebp.Encode(w, img, nil)
	default:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: quality})
	}
}
