// internal/workers/search/hybrid-search/models.go
package hybridsearch

import "directory-assistant/internal/models"

type Input struct {
	Query        string   `json:"query"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
	RadiusMeters *int     `json:"radiusMeters,omitempty"`
}

func (in *Input) toQuery() models.Query {
	return models.Query{
		Text:         in.Query,
		Latitude:     in.Latitude,
		Longitude:    in.Longitude,
		RadiusMeters: in.RadiusMeters,
	}
}

type Output struct {
	SearchResult *models.SearchResult `json:"searchResult"`
}
