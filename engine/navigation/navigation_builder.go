package navigation

import (
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/panoview/engine/host"
)

// SelectorBuilderOption is a functional option for configuring a Selector.
type SelectorBuilderOption func(*selectorImpl)

// WithMaxDistance sets the target cutoff and nearby search radius in meters (default 100).
func WithMaxDistance(meters float64) SelectorBuilderOption {
	return func(s *selectorImpl) {
		s.maxDistance = meters
	}
}

// WithCameraHeight sets the assumed camera mounting height in meters (default 2.4).
func WithCameraHeight(meters float64) SelectorBuilderOption {
	return func(s *selectorImpl) {
		s.cameraHeight = meters
	}
}

// WithHeadingRelative makes target yaw relative to the active panorama's heading instead of north.
func WithHeadingRelative(relative bool) SelectorBuilderOption {
	return func(s *selectorImpl) {
		s.headingRelative = relative
	}
}

// WithHoverRate sets the maximum hover updates per second (default 60). Zero disables the limit.
func WithHoverRate(perSecond float64) SelectorBuilderOption {
	return func(s *selectorImpl) {
		s.hoverRate = perSecond
	}
}

// WithNearbyLimit sets how many nearby panoramas are requested after a move (default 50).
func WithNearbyLimit(limit int) SelectorBuilderOption {
	return func(s *selectorImpl) {
		s.nearbyLimit = limit
	}
}

// WithPointerHost sets the screen/sphere converter used for hover and clicks.
func WithPointerHost(p host.PointerHost) SelectorBuilderOption {
	return func(s *selectorImpl) {
		s.pointer = p
	}
}

// WithMarker sets the navigation marker.
func WithMarker(m host.Marker) SelectorBuilderOption {
	return func(s *selectorImpl) {
		if m != nil {
			s.marker = m
		}
	}
}

// WithDataSource sets where panoramas are hydrated and nearby candidates fetched.
func WithDataSource(ds DataSource) SelectorBuilderOption {
	return func(s *selectorImpl) {
		s.source = ds
	}
}

// WithTransition sets the function that activates the next panorama during a move.
func WithTransition(fn TransitionFunc) SelectorBuilderOption {
	return func(s *selectorImpl) {
		s.transition = fn
	}
}

// WithClock sets the time source for hover rate limiting.
func WithClock(clock func() time.Time) SelectorBuilderOption {
	return func(s *selectorImpl) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithDirectionTolerance sets the yaw tolerance for keyboard moves in radians (default 30°).
func WithDirectionTolerance(radians float64) SelectorBuilderOption {
	return func(s *selectorImpl) {
		s.dirTolerance = radians
	}
}

// WithDirectionRange sets the maximum distance for keyboard moves in meters (default 25).
func WithDirectionRange(meters float64) SelectorBuilderOption {
	return func(s *selectorImpl) {
		s.dirRange = meters
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) SelectorBuilderOption {
	return func(s *selectorImpl) {
		if l != nil {
			s.logger = l
		}
	}
}
