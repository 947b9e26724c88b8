package datasource

import (
	"github.com/Carmen-Shannon/panoview/engine/panorama"
)

// wireCamera is one entry of the cameraMetadata array. Angles are radians.
type wireCamera struct {
	FovH  float64 `json:"fovH"`
	FovS  float64 `json:"fovS"`
	Cy    float64 `json:"cy"`
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// wireRecord is a panorama as served by the coverage API with meta=ori,cam,ele,tz.
type wireRecord struct {
	PanoID         string       `json:"panoid"`
	BuildID        string       `json:"buildId"`
	Lat            float64      `json:"lat"`
	Lon            float64      `json:"lon"`
	Timestamp      int64        `json:"timestamp"`
	CoverageType   int          `json:"coverageType"`
	Heading        float64      `json:"heading,omitempty"`
	Pitch          float64      `json:"pitch,omitempty"`
	Roll           float64      `json:"roll,omitempty"`
	Elevation      float64      `json:"elevation,omitempty"`
	Timezone       string       `json:"timezone,omitempty"`
	CameraMetadata []wireCamera `json:"cameraMetadata,omitempty"`
}

func (w wireRecord) toRecord() panorama.PanoramaRecord {
	rec := panorama.PanoramaRecord{
		ID:           w.PanoID,
		BuildID:      w.BuildID,
		Lat:          w.Lat,
		Lon:          w.Lon,
		Elevation:    w.Elevation,
		Heading:      w.Heading,
		Pitch:        w.Pitch,
		Roll:         w.Roll,
		Timestamp:    w.Timestamp,
		CoverageType: panorama.CoverageType(w.CoverageType),
		Timezone:     w.Timezone,
	}
	if len(w.CameraMetadata) >= panorama.FaceCount {
		for i := range rec.CameraFaces {
			c := w.CameraMetadata[i]
			rec.CameraFaces[i] = panorama.CameraFace{
				Yaw:   c.Yaw,
				Pitch: c.Pitch,
				Roll:  c.Roll,
				FovS:  c.FovS,
				FovH:  c.FovH,
				Cy:    c.Cy,
			}
		}
		rec.Hydrated = true
	}
	return rec
}

func fromRecord(rec panorama.PanoramaRecord) wireRecord {
	w := wireRecord{
		PanoID:       rec.ID,
		BuildID:      rec.BuildID,
		Lat:          rec.Lat,
		Lon:          rec.Lon,
		Timestamp:    rec.Timestamp,
		CoverageType: int(rec.CoverageType),
		Heading:      rec.Heading,
		Pitch:        rec.Pitch,
		Roll:         rec.Roll,
		Elevation:    rec.Elevation,
		Timezone:     rec.Timezone,
	}
	if rec.Hydrated {
		w.CameraMetadata = make([]wireCamera, 0, panorama.FaceCount)
		for _, c := range rec.CameraFaces {
			w.CameraMetadata = append(w.CameraMetadata, wireCamera{
				FovH:  c.FovH,
				FovS:  c.FovS,
				Cy:    c.Cy,
				Yaw:   c.Yaw,
				Pitch: c.Pitch,
				Roll:  c.Roll,
			})
		}
	}
	return w
}

func toRecords(wire []wireRecord) []panorama.PanoramaRecord {
	out := make([]panorama.PanoramaRecord, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toRecord())
	}
	return out
}
