// internal/workers/search/internal-catalog/elasticsearch.go
package internalcatalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

// ElasticsearchFinder searches the business index with multi_match, filtered by
// geo_distance when a location is given.
type ElasticsearchFinder struct {
	config   *Config
	esClient *elasticsearch.Client
	logger   logger.Logger
}

func NewElasticsearchFinder(config *Config, esClient *elasticsearch.Client, log logger.Logger) *ElasticsearchFinder {
	return &ElasticsearchFinder{
		config:   config,
		esClient: esClient,
		logger:   log.With(map[string]interface{}{"catalogBackend": "elasticsearch"}),
	}
}

type businessDoc struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category"`
	Address  string   `json:"address"`
	Phone    string   `json:"phone"`
	WhatsApp string   `json:"whatsapp"`
	Rating   *float64 `json:"rating"`
	Location *struct {
		Lat float64 `json:"lat"`
		Lon float64 `json:"lon"`
	} `json:"location"`
	UpdatedAt time.Time `json:"updated_at"`
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source businessDoc   `json:"_source"`
			Sort   []interface{} `json:"sort"`
		} `json:"hits"`
	} `json:"hits"`
}

func (f *ElasticsearchFinder) buildQuery(text string, loc *models.Location) map[string]interface{} {
	filters := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"is_active": true}},
	}
	sort := []interface{}{"_score"}

	if loc != nil {
		point := map[string]interface{}{"lat": loc.Latitude, "lon": loc.Longitude}
		filters = append(filters, map[string]interface{}{
			"geo_distance": map[string]interface{}{
				"distance": fmt.Sprintf("%dm", f.config.radius(loc.RadiusMeters)),
				"location": point,
			},
		})
		sort = []interface{}{
			map[string]interface{}{
				"_geo_distance": map[string]interface{}{
					"location": point,
					"order":    "asc",
					"unit":     "m",
				},
			},
		}
	}

	return map[string]interface{}{
		"size": f.config.MaxResults,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": []interface{}{
					map[string]interface{}{
						"multi_match": map[string]interface{}{
							"query":     text,
							"fields":    []string{"category^3", "name^2", "description"},
							"fuzziness": "AUTO",
						},
					},
				},
				"filter": filters,
			},
		},
		"sort": sort,
	}
}

func (f *ElasticsearchFinder) SearchBusinesses(ctx context.Context, text string, loc *models.Location) ([]models.Business, error) {
	body, err := json.Marshal(f.buildQuery(text, loc))
	if err != nil {
		return nil, fmt.Errorf("%w: marshal query: %v", ErrCatalogQueryFailed, err)
	}

	req := esapi.SearchRequest{
		Index: []string{f.config.BusinessIndex},
		Body:  bytes.NewReader(body),
	}
	res, err := req.Do(ctx, f.esClient)
	if err != nil {
		return nil, fmt.Errorf("%w: elasticsearch: %v", ErrCatalogQueryFailed, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("%w: elasticsearch: %s", ErrCatalogQueryFailed, res.String())
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrCatalogQueryFailed, err)
	}

	businesses := make([]models.Business, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		doc := hit.Source
		b := models.Business{
			ID:        doc.ID,
			Name:      doc.Name,
			Category:  doc.Category,
			Address:   doc.Address,
			Phone:     doc.Phone,
			WhatsApp:  doc.WhatsApp,
			Rating:    doc.Rating,
			UpdatedAt: doc.UpdatedAt,
		}
		if doc.Location != nil {
			lat, lon := doc.Location.Lat, doc.Location.Lon
			b.Latitude = &lat
			b.Longitude = &lon
		}
		if loc != nil && len(hit.Sort) > 0 {
			if d, ok := hit.Sort[0].(float64); ok {
				b.DistanceMeters = &d
			}
		}
		businesses = append(businesses, b)
	}

	f.logger.Debug("internal businesses found", map[string]interface{}{
		"query":       text,
		"located":     loc != nil,
		"resultCount": len(businesses),
	})
	return businesses, nil
}
