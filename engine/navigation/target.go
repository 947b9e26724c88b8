package navigation

import (
	"github.com/Carmen-Shannon/panoview/engine/geodesy"
	"github.com/Carmen-Shannon/panoview/engine/panorama"
)

// Target is a panorama reachable from the active one, positioned relative to it.
type Target struct {
	Panorama    panorama.PanoramaRecord
	Position    panorama.AngularPosition
	ENU         geodesy.ENU
	MarkerScale float64
}

// targetSet is replaced whole on every Build, never mutated.
type targetSet struct {
	active  panorama.PanoramaRecord
	targets []Target
}

// BuildTargets positions every candidate relative to active. Candidates at the active coordinates
// or farther than maxDistance are dropped.
//
// Parameters:
//   - active: the origin panorama
//   - candidates: nearby panoramas
//   - maxDistance: cutoff in meters
//   - cameraHeight: camera mounting height above the origin in meters
//   - headingOffset: subtracted from every yaw, in radians
//
// Returns:
//   - []Target: the surviving targets in candidate order
func BuildTargets(active panorama.PanoramaRecord, candidates []panorama.PanoramaRecord, maxDistance, cameraHeight, headingOffset float64) []Target {
	targets := make([]Target, 0, len(candidates))
	for _, c := range candidates {
		if c.SameLocation(active) {
			continue
		}
		enu := geodesy.GeodeticToLocalTangentPlane(
			c.Lon, c.Lat, c.Elevation-active.Elevation,
			active.Lon, active.Lat, cameraHeight,
		)
		pos := geodesy.LocalTangentPlaneToAngular(enu, headingOffset)
		if pos.Distance > maxDistance {
			continue
		}
		targets = append(targets, Target{
			Panorama:    c,
			Position:    pos,
			ENU:         enu,
			MarkerScale: MarkerScale(pos.Distance, maxDistance),
		})
	}
	return targets
}

// MarkerScale returns the marker size for a target d meters away. It shrinks linearly from 0.55
// at the origin to 0.05 at maxDistance.
func MarkerScale(d, maxDistance float64) float64 {
	if maxDistance <= 0 {
		return 0.05
	}
	return 0.05 + (0.5 - 0.5*d/maxDistance)
}
