// internal/workers/dialogue/route-message/config.go
package routemessage

import (
	"time"

	"directory-assistant/internal/models"
)

type Config struct {
	Channel             string
	ConfidenceThreshold float64
	MaxInternalRows     int
	MaxExternalRows     int
	MaxProducts         int
	MaxPrices           int
	NearbyLimit         int
	DefaultLatitude     float64
	DefaultLongitude    float64
	DefaultRadius       int
	LogTimeout          time.Duration
	FollowUpTimeout     time.Duration
	// ConsentTTL is how long an unanswered consent request stays pending.
	ConsentTTL time.Duration
	Timeout    time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Channel:             "telegram",
		ConfidenceThreshold: 0.75,
		MaxInternalRows:     5,
		MaxExternalRows:     5,
		MaxProducts:         10,
		MaxPrices:           10,
		NearbyLimit:         15,
		DefaultLatitude:     4.7110,
		DefaultLongitude:    -74.0721,
		DefaultRadius:       3000,
		LogTimeout:          5 * time.Second,
		FollowUpTimeout:     30 * time.Second,
		ConsentTTL:          24 * time.Hour,
		Timeout:             90 * time.Second,
	}
}

// defaultLocation is used when the user has not shared a location.
func (c *Config) defaultLocation() *models.Location {
	return &models.Location{
		Latitude:     c.DefaultLatitude,
		Longitude:    c.DefaultLongitude,
		RadiusMeters: c.DefaultRadius,
	}
}
