package event_stream

import (
	"github.com/paulmach/orb/geojson"

	"github.com/Carmen-Shannon/panoview/engine/datasource"
	"github.com/Carmen-Shannon/panoview/engine/navigation"
)

// State is the body of /state.
type State struct {
	// Active is nil before the first panorama is open.
	Active *geojson.Feature `json:"active"`
	// Targets holds one point per navigation target with its position relative to Active.
	Targets *geojson.FeatureCollection `json:"targets"`
}

func (s *serverImpl) currentState() State {
	st := State{Targets: geojson.NewFeatureCollection()}
	rec, ok := s.state.Active()
	if !ok {
		return st
	}
	st.Active = datasource.RecordFeature(rec)
	for _, t := range s.state.Targets() {
		st.Targets.Append(TargetFeature(t))
	}
	return st
}

// TargetFeature converts a navigation target into a point feature. Besides the panorama's
// properties it carries distance (meters), yaw and pitch (radians) and markerScale.
//
// Parameters:
//   - t: the target
//
// Returns:
//   - *geojson.Feature: the feature
func TargetFeature(t navigation.Target) *geojson.Feature {
	f := datasource.RecordFeature(t.Panorama)
	f.Properties["distance"] = t.Position.Distance
	f.Properties["yaw"] = t.Position.Yaw
	f.Properties["pitch"] = t.Position.Pitch
	f.Properties["markerScale"] = t.MarkerScale
	return f
}
