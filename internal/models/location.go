package models

import "time"

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lon float64 `bson:"lon" json:"lon"`
}

// GeoSample is one instantaneous GPS position fix captured while a trip is
// being tracked. Samples live in the active trip's buffer only and are
// discarded once the trip is recorded or cancelled.
type GeoSample struct {
	Location   Location  `json:"location"`
	CapturedAt time.Time `json:"captured_at"`
}
