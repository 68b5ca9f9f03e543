// internal/workers/search/external-places/provider.go
package externalplaces

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"directory-assistant/internal/common/breaker"
	httpclient "directory-assistant/internal/common/http"
	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/common/metrics"
	"directory-assistant/internal/models"
)

const SourceName = "google_places"

// circle bias radius is capped by the API
const maxBiasRadius = 50000

var ErrPlacesRequestFailed = errors.New("PLACES_REQUEST_FAILED")

// Provider queries the Google Places text search.
type Provider struct {
	config     *Config
	httpClient *httpclient.Client
	breaker    *breaker.Breaker
	logger     logger.Logger
}

func NewProvider(config *Config, log logger.Logger) *Provider {
	return &Provider{
		config:     config,
		httpClient: httpclient.NewClient(config.Timeout),
		breaker:    breaker.New(breaker.DefaultConfig(SourceName), isProviderFailure, log),
		logger:     log.With(map[string]interface{}{"provider": SourceName}),
	}
}

// Configured reports whether an API key is present.
func (p *Provider) Configured() bool {
	return strings.TrimSpace(p.config.APIKey) != ""
}

// SearchNearby returns places matching query around loc. Without an API key it
// returns an empty list and no error.
func (p *Provider) SearchNearby(ctx context.Context, query string, loc *models.Location) ([]models.ExternalPlace, error) {
	if !p.Configured() {
		p.logger.Warn("places api key not configured, returning no results", nil)
		metrics.ExternalProviderCalls.WithLabelValues(SourceName, "unconfigured").Inc()
		return []models.ExternalPlace{}, nil
	}

	req := p.buildRequest(query, loc)
	headers := map[string]string{
		"X-Goog-Api-Key":   p.config.APIKey,
		"X-Goog-FieldMask": fieldMask,
	}
	url := strings.TrimRight(p.config.BaseURL, "/") + "/places:searchText"

	resp, err := breaker.Execute(p.breaker, func() (*searchTextResponse, error) {
		var out searchTextResponse
		if err := p.httpClient.DoJSON(ctx, http.MethodPost, url, headers, req, &out); err != nil {
			return nil, err
		}
		return &out, nil
	})
	if err != nil {
		metrics.ExternalProviderCalls.WithLabelValues(SourceName, "error").Inc()
		p.logger.Error("places search failed", map[string]interface{}{
			"query": query,
			"error": err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrPlacesRequestFailed, err)
	}

	places := p.toExternalPlaces(resp.Places)
	metrics.ExternalProviderCalls.WithLabelValues(SourceName, "ok").Inc()
	p.logger.Info("places search completed", map[string]interface{}{
		"query":       query,
		"resultCount": len(places),
	})
	return places, nil
}

func (p *Provider) buildRequest(query string, loc *models.Location) *searchTextRequest {
	req := &searchTextRequest{
		TextQuery:      query,
		LanguageCode:   p.config.Language,
		MaxResultCount: p.config.MaxResults,
	}
	if loc != nil {
		radius := float64(loc.RadiusMeters)
		if radius <= 0 || radius > maxBiasRadius {
			radius = maxBiasRadius
		}
		req.LocationBias = &locationBias{Circle: circle{
			Center: latLng{Latitude: loc.Latitude, Longitude: loc.Longitude},
			Radius: radius,
		}}
	}
	return req
}

func (p *Provider) toExternalPlaces(raw []place) []models.ExternalPlace {
	out := make([]models.ExternalPlace, 0, len(raw))
	for _, pl := range raw {
		if pl.DisplayName.Text == "" {
			continue
		}
		ep := models.ExternalPlace{
			Source:        SourceName,
			SourcePlaceID: pl.ID,
			BusinessName:  pl.DisplayName.Text,
			Category:      pl.PrimaryType,
			Rating:        pl.Rating,
			Address:       pl.FormattedAddress,
			Phone:         pl.NationalPhoneNumber,
			Confidence:    p.config.Confidence,
		}
		if pl.Location != nil {
			lat, lon := pl.Location.Latitude, pl.Location.Longitude
			ep.Latitude = &lat
			ep.Longitude = &lon
		}
		out = append(out, ep)
	}
	return out
}

// isProviderFailure counts transport errors and retryable statuses against the
// breaker; 4xx answers are the caller's fault.
func isProviderFailure(err error) bool {
	var statusErr *httpclient.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return !errors.Is(err, context.Canceled)
}
