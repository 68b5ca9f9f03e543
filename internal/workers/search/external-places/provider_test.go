package externalplaces

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createTestConfig(baseURL string) *Config {
	return &Config{
		BaseURL:    baseURL,
		APIKey:     "test-key",
		Language:   "es",
		MaxResults: 10,
		Confidence: 0.8,
		Timeout:    2 * time.Second,
	}
}

const placesResponse = `{
  "places": [
    {
      "id": "ChIJ1",
      "displayName": {"text": "Panadería La Espiga", "languageCode": "es"},
      "formattedAddress": "Cra. 7 #45-10, Bogotá",
      "location": {"latitude": 4.6321, "longitude": -74.0651},
      "rating": 4.6,
      "primaryType": "bakery",
      "nationalPhoneNumber": "601 2345678"
    },
    {
      "id": "ChIJ2",
      "displayName": {"text": "Pan y Café"}
    },
    {
      "id": "ChIJ3",
      "displayName": {"text": ""}
    }
  ]
}`

func TestSearchNearby_Success(t *testing.T) {
	var body searchTextRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/places:searchText", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Contains(t, r.Header.Get("X-Goog-FieldMask"), "places.displayName")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(placesResponse))
	}))
	defer server.Close()

	p := NewProvider(createTestConfig(server.URL), logger.NewNoOpLogger())
	loc := &models.Location{Latitude: 4.711, Longitude: -74.0721, RadiusMeters: 3000}

	places, err := p.SearchNearby(context.Background(), "panadería", loc)

	require.NoError(t, err)
	require.Len(t, places, 2)
	assert.Equal(t, "Panadería La Espiga", places[0].BusinessName)
	assert.Equal(t, SourceName, places[0].Source)
	assert.Equal(t, "ChIJ1", places[0].SourcePlaceID)
	assert.InDelta(t, 4.6321, *places[0].Latitude, 1e-9)
	assert.InDelta(t, 4.6, *places[0].Rating, 1e-9)
	assert.Equal(t, 0.8, places[0].Confidence)
	assert.Nil(t, places[1].Latitude)

	assert.Equal(t, "panadería", body.TextQuery)
	require.NotNil(t, body.LocationBias)
	assert.Equal(t, 3000.0, body.LocationBias.Circle.Radius)
	assert.Equal(t, 4.711, body.LocationBias.Circle.Center.Latitude)
}

func TestSearchNearby_NoLocation(t *testing.T) {
	var body map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	places, err := NewProvider(createTestConfig(server.URL), logger.NewNoOpLogger()).
		SearchNearby(context.Background(), "ferretería", nil)

	require.NoError(t, err)
	assert.Empty(t, places)
	assert.NotContains(t, body, "locationBias")
}

func TestSearchNearby_Unconfigured(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer server.Close()

	cfg := createTestConfig(server.URL)
	cfg.APIKey = ""
	places, err := NewProvider(cfg, logger.NewNoOpLogger()).SearchNearby(context.Background(), "x", nil)

	require.NoError(t, err)
	assert.NotNil(t, places)
	assert.Empty(t, places)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestSearchNearby_ProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewProvider(createTestConfig(server.URL), logger.NewNoOpLogger()).
		SearchNearby(context.Background(), "x", nil)

	assert.ErrorIs(t, err, ErrPlacesRequestFailed)
}

func TestSearchNearby_BreakerOpens(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p := NewProvider(createTestConfig(server.URL), logger.NewNoOpLogger())
	for i := 0; i < 10; i++ {
		_, err := p.SearchNearby(context.Background(), "x", nil)
		assert.ErrorIs(t, err, ErrPlacesRequestFailed)
	}

	assert.Equal(t, "open", p.breaker.State())
	assert.Less(t, atomic.LoadInt32(&calls), int32(10))
}

func TestBuildRequest_ClampsRadius(t *testing.T) {
	p := NewProvider(createTestConfig("http://unused"), logger.NewNoOpLogger())

	req := p.buildRequest("x", &models.Location{Latitude: 1, Longitude: 2})
	assert.Equal(t, float64(maxBiasRadius), req.LocationBias.Circle.Radius)

	req = p.buildRequest("x", &models.Location{Latitude: 1, Longitude: 2, RadiusMeters: 90000})
	assert.Equal(t, float64(maxBiasRadius), req.LocationBias.Circle.Radius)
}
