package decoder

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/zergon321/reisen"
)

// ErrNoVideoFrame is returned when a container holds no decodable video frame.
var ErrNoVideoFrame = errors.New("no video frame in container")

// reisenExtractor decodes containers with libav through reisen. reisen opens media by path, so
// payloads are spooled to a temporary file first.
type reisenExtractor struct {
	tempDir string
}

var _ FrameExtractor = &reisenExtractor{}

// NewVideoFrameExtractor creates a FrameExtractor backed by libav.
//
// Parameters:
//   - tempDir: directory for spooled payloads, empty for the system default
//
// Returns:
//   - FrameExtractor: the extractor
func NewVideoFrameExtractor(tempDir string) FrameExtractor {
	return &reisenExtractor{tempDir: tempDir}
}

func (r *reisenExtractor) FirstFrame(ctx context.Context, data []byte) (image.Image, error) {
	f, err := os.CreateTemp(r.tempDir, "face-*.mp4")
	if err != nil {
		return nil, fmt.Errorf("failed to spool video payload: %w", err)
	}
	defer os.Remove(f.Name())

	if _, err := f.Write(data); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to spool video payload: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to spool video payload: %w", err)
	}

	media, err := reisen.NewMedia(f.Name())
	if err != nil {
		return nil, fmt.Errorf("failed to open media: %w", err)
	}
	defer media.Close()

	if err := media.OpenDecode(); err != nil {
		return nil, fmt.Errorf("failed to open decode: %w", err)
	}
	defer media.CloseDecode()

	streams := media.VideoStreams()
	if len(streams) == 0 {
		return nil, ErrNoVideoFrame
	}
	stream := streams[0]
	if err := stream.Open(); err != nil {
		return nil, fmt.Errorf("failed to open video stream: %w", err)
	}
	defer stream.Close()

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pkt, got, err := media.ReadPacket()
		if err != nil {
			return nil, fmt.Errorf("failed to read packet: %w", err)
		}
		if !got {
			return nil, ErrNoVideoFrame
		}
		if pkt.Type() != reisen.StreamVideo {
			continue
		}
		vs, ok := media.Streams()[pkt.StreamIndex()].(*reisen.VideoStream)
		if !ok || vs != stream {
			continue
		}

		frame, got, err := vs.ReadVideoFrame()
		if err != nil {
			return nil, fmt.Errorf("failed to decode frame: %w", err)
		}
		if !got || frame == nil {
			continue
		}
		return frame.Image(), nil
	}
}
