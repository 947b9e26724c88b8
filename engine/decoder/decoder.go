// Package decoder turns face responses into images. The server may answer a request for a
// high-efficiency format with a baseline one, so the format is sniffed from the payload.
package decoder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"

	"github.com/gabriel-vasile/mimetype"
	_ "golang.org/x/image/webp"
)

// Format is an encoded face format.
type Format int

const (
	FormatUnknown Format = iota
	FormatJPEG
	FormatPNG
	FormatWebP
	FormatHEIC
	// FormatVideo is an MP4/QuickTime container carrying an HEVC still.
	FormatVideo
)

var formatNames = map[Format]string{
	FormatUnknown: "unknown",
	FormatJPEG:    "jpeg",
	FormatPNG:     "png",
	FormatWebP:    "webp",
	FormatHEIC:    "heic",
	FormatVideo:   "hevc",
}

// String returns the name used in the format query parameter.
func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return formatNames[FormatUnknown]
}

// ParseFormat parses a format query name. Unknown names yield FormatJPEG.
func ParseFormat(s string) Format {
	for f, name := range formatNames {
		if name == s && f != FormatUnknown {
			return f
		}
	}
	return FormatJPEG
}

var (
	// ErrUnsupportedFormat is returned for payloads that cannot be decoded in-process.
	ErrUnsupportedFormat = errors.New("unsupported face format")
	// ErrEmptyPayload is returned for zero-length responses.
	ErrEmptyPayload = errors.New("empty face payload")
)

// Detect sniffs the format of a payload from its leading bytes.
//
// Parameters:
//   - data: the response body
//
// Returns:
//   - Format: the detected format, FormatUnknown if none matches
func Detect(data []byte) Format {
	m := mimetype.Detect(data)
	switch {
	case m.Is("image/jpeg"):
		return FormatJPEG
	case m.Is("image/png"):
		return FormatPNG
	case m.Is("image/webp"):
		return FormatWebP
	case m.Is("image/heic"), m.Is("image/heif"), m.Is("image/heic-sequence"), m.Is("image/heif-sequence"):
		return FormatHEIC
	case m.Is("video/mp4"), m.Is("video/quicktime"):
		return FormatVideo
	}
	return FormatUnknown
}

// FrameExtractor pulls the first video frame out of a container payload.
type FrameExtractor interface {
	// FirstFrame decodes the first video frame of data.
	//
	// Parameters:
	//   - ctx: cancels the extraction
	//   - data: the container payload
	//
	// Returns:
	//   - image.Image: the first frame
	//   - error: error if the container holds no decodable video frame
	FirstFrame(ctx context.Context, data []byte) (image.Image, error)
}

type decoderImpl struct {
	frames FrameExtractor
}

// Decoder decodes face payloads into images, trusting the payload over the requested format.
type Decoder interface {
	// Decode detects the payload format and decodes it.
	//
	// Parameters:
	//   - ctx: cancels video extraction
	//   - data: the response body
	//
	// Returns:
	//   - image.Image: the decoded image
	//   - Format: the detected format
	//   - error: ErrEmptyPayload, ErrUnsupportedFormat or a decode error
	Decode(ctx context.Context, data []byte) (image.Image, Format, error)
}

var _ Decoder = &decoderImpl{}

// NewDecoder creates a Decoder. A nil extractor makes video payloads unsupported.
//
// Parameters:
//   - frames: the video frame extractor
//
// Returns:
//   - Decoder: the decoder
func NewDecoder(frames FrameExtractor) Decoder {
	return &decoderImpl{frames: frames}
}

func (d *decoderImpl) Decode(ctx context.Context, data []byte) (image.Image, Format, error) {
	if len(data) == 0 {
		return nil, FormatUnknown, ErrEmptyPayload
	}

	format := Detect(data)
	switch format {
	case FormatJPEG, FormatPNG, FormatWebP:
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, format, fmt.Errorf("failed to decode %s face: %w", format, err)
		}
		return img, format, nil
	case FormatVideo:
		if d.frames == nil {
			return nil, format, fmt.Errorf("%s: %w", format, ErrUnsupportedFormat)
		}
		img, err := d.frames.FirstFrame(ctx, data)
		if err != nil {
			return nil, format, fmt.Errorf("failed to extract first frame: %w", err)
		}
		return img, format, nil
	default:
		return nil, format, fmt.Errorf("%s: %w", format, ErrUnsupportedFormat)
	}
}
