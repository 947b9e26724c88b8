package profiler

import (
	"bytes"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProfiler_ReportsAtInterval(t *testing.T) {
	now := time.Unix(0, 0)
	var buf bytes.Buffer
	p := NewProfiler(
		WithClock(func() time.Time { return now }),
		WithInterval(time.Second),
		WithLogger(slog.New(slog.NewTextHandler(&buf, nil))),
		WithAttrs(func() []slog.Attr { return []slog.Attr{slog.Int("zoom_front", 2)} }),
	)

	now = now.Add(500 * time.Millisecond)
	assert.False(t, p.Tick())
	assert.Empty(t, buf.String())

	now = now.Add(500 * time.Millisecond)
	assert.True(t, p.Tick())
	out := buf.String()
	assert.Contains(t, out, "msg=profiler")
	assert.Contains(t, out, "fps=2")
	assert.Contains(t, out, "zoom_front=2")

	buf.Reset()
	now = now.Add(100 * time.Millisecond)
	assert.False(t, p.Tick())
	assert.Empty(t, buf.String())
}
