// internal/models/query.go
package models

// Location is a search center with a radius in meters.
type Location struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters int     `json:"radiusMeters"`
}

// Query is a free-text lookup with an optional location. Every location field is
// optional on its own so partially shared locations still hash deterministically.
type Query struct {
	Text         string   `json:"text"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	RadiusMeters *int     `json:"radiusMeters,omitempty"`
}

// Location returns the query center, or nil unless both coordinates are set.
// A missing radius is reported as 0 and left to the store's default.
func (q Query) Location() *Location {
	if q.Latitude == nil || q.Longitude == nil {
		return nil
	}
	loc := &Location{Latitude: *q.Latitude, Longitude: *q.Longitude}
	if q.RadiusMeters != nil {
		loc.RadiusMeters = *q.RadiusMeters
	}
	return loc
}

// NewQuery builds a Query located at loc. A nil loc yields a text-only query.
func NewQuery(text string, loc *Location) Query {
	q := Query{Text: text}
	if loc != nil {
		lat, lon, radius := loc.Latitude, loc.Longitude, loc.RadiusMeters
		q.Latitude = &lat
		q.Longitude = &lon
		q.RadiusMeters = &radius
	}
	return q
}
