package event_stream

import (
	"log/slog"
	"time"
)

// ServerOption is a functional option for configuring a Server.
type ServerOption func(s *serverImpl)

// WithOpenFunc enables POST /open.
//
// Parameters:
//   - fn: opens the panorama closest to a coordinate
//
// Returns:
//   - ServerOption: option function to apply
func WithOpenFunc(fn OpenFunc) ServerOption {
	return func(s *serverImpl) {
		s.open = fn
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ServerOption {
	return func(s *serverImpl) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now for event timestamps.
func WithClock(clock func() time.Time) ServerOption {
	return func(s *serverImpl) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithBufferSize sets how many events a client may fall behind before it misses some.
func WithBufferSize(n int) ServerOption {
	return func(s *serverImpl) {
		if n > 0 {
			s.bufferSize = n
		}
	}
}

// WithPingInterval sets the websocket keepalive interval.
func WithPingInterval(d time.Duration) ServerOption {
	return func(s *serverImpl) {
		if d > 0 {
			s.pingInterval = d
		}
	}
}
