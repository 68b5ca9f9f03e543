// internal/common/config/config.go
package config

import "fmt"

// Config is the main application configuration struct.
type Config struct {
	App           AppConfig               `mapstructure:"app"`
	Server        ServerConfig            `mapstructure:"server"`
	Camunda       CamundaConfig           `mapstructure:"camunda"`
	Database      DatabaseConfig          `mapstructure:"database"`
	Cache         CacheConfig             `mapstructure:"cache"`
	Search        SearchConfig            `mapstructure:"search"`
	Dialogue      DialogueConfig          `mapstructure:"dialogue"`
	History       HistoryConfig           `mapstructure:"history"`
	Workers       map[string]WorkerConfig `mapstructure:"workers"`
	Integrations  IntegrationConfig       `mapstructure:"integrations"`
	APIs          APIsConfig              `mapstructure:"apis"`
	Logging       LoggingConfig           `mapstructure:"logging"`
	Notifications NotificationConfig      `mapstructure:"notifications"`
	Maintenance   MaintenanceConfig       `mapstructure:"maintenance"`
}

// --- Core App/Infrastructure Config ---
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

type ServerConfig struct {
	Address         string `mapstructure:"address"`
	ReadTimeout     int    `mapstructure:"read_timeout"`     // milliseconds
	WriteTimeout    int    `mapstructure:"write_timeout"`    // milliseconds
	ShutdownTimeout int    `mapstructure:"shutdown_timeout"` // milliseconds
}

type CamundaConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	BrokerAddress  string `mapstructure:"broker_address"`
	MaxJobsActive  int    `mapstructure:"max_jobs_active"`
	Timeout        int    `mapstructure:"timeout"`         // milliseconds
	RequestTimeout int    `mapstructure:"request_timeout"` // milliseconds
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

// GetDSN returns the PostgreSQL connection string
func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	Addresses     []string `mapstructure:"addresses"`
	Username      string   `mapstructure:"username"`
	Password      string   `mapstructure:"password"`
	BusinessIndex string   `mapstructure:"business_index"`
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// WorkerConfig holds the core settings applicable to every job worker.
type WorkerConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	MaxJobsActive int  `mapstructure:"max_jobs_active"`
	Timeout       int  `mapstructure:"timeout"`     // milliseconds
	MaxRetries    int  `mapstructure:"max_retries"` // For error handling
}

// --- Retrieval & Dialogue ---

// CacheConfig selects the external-result cache backend.
type CacheConfig struct {
	Backend    string `mapstructure:"backend"` // postgres | redis
	TTLSeconds int    `mapstructure:"ttl_seconds"`
	KeyPrefix  string `mapstructure:"key_prefix"`
}

// SearchConfig tunes the hybrid search.
type SearchConfig struct {
	CatalogBackend    string  `mapstructure:"catalog_backend"` // postgres | elasticsearch
	InternalThreshold int     `mapstructure:"internal_threshold"`
	MaxInternal       int     `mapstructure:"max_internal"`
	DedupeInFlight    bool    `mapstructure:"dedupe_in_flight"`
	DefaultLatitude   float64 `mapstructure:"default_latitude"`
	DefaultLongitude  float64 `mapstructure:"default_longitude"`
	DefaultRadius     int     `mapstructure:"default_radius"` // meters
	Timeout           int     `mapstructure:"timeout"`        // milliseconds
}

// DialogueConfig tunes the message router.
type DialogueConfig struct {
	Channel             string  `mapstructure:"channel"`
	ConfidenceThreshold float64 `mapstructure:"confidence_threshold"`
	MaxInternalRows     int     `mapstructure:"max_internal_rows"`
	MaxExternalRows     int     `mapstructure:"max_external_rows"`
	MaxProducts         int     `mapstructure:"max_products"`
	MaxPrices           int     `mapstructure:"max_prices"`
	NearbyLimit         int     `mapstructure:"nearby_limit"`
	LogTimeout          int     `mapstructure:"log_timeout"`       // milliseconds
	FollowUpTimeout     int     `mapstructure:"follow_up_timeout"` // milliseconds
	ConsentTTL          int     `mapstructure:"consent_ttl"`       // milliseconds
}

// HistoryConfig bounds the per-conversation chat history.
type HistoryConfig struct {
	MaxMessages int `mapstructure:"max_messages"`
}

// MaintenanceConfig schedules background jobs.
type MaintenanceConfig struct {
	EvictionInterval int `mapstructure:"eviction_interval"` // milliseconds, negative disables
}

// --- Specific Configuration Sections ---

// IntegrationConfig holds settings for CRM and AWS services.
type IntegrationConfig struct {
	Zoho struct {
		Enabled   bool   `mapstructure:"enabled"`
		BaseURL   string `mapstructure:"base_url"`
		APIKey    string `mapstructure:"api_key"`
		AuthToken string `mapstructure:"oauth_token"`
	} `mapstructure:"zoho"`

	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled  bool   `mapstructure:"enabled"`
			TopicARN string `mapstructure:"topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

// APIsConfig holds settings for external API integrations.
type APIsConfig struct {
	Completion CompletionAPIConfig `mapstructure:"completion"`
	Places     PlacesAPIConfig     `mapstructure:"places"`
}

// CompletionAPIConfig configures the chat-completion endpoint.
type CompletionAPIConfig struct {
	Provider       string  `mapstructure:"provider"` // openai | gemini
	BaseURL        string  `mapstructure:"base_url"`
	APIKey         string  `mapstructure:"api_key"`
	Model          string  `mapstructure:"model"`
	Timeout        int     `mapstructure:"timeout"`         // milliseconds, whole request
	ConnectTimeout int     `mapstructure:"connect_timeout"` // milliseconds
	MaxRetries     int     `mapstructure:"max_retries"`
	Temperature    float64 `mapstructure:"temperature"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	TopP           float64 `mapstructure:"top_p"`
}

// PlacesAPIConfig configures the external places provider.
type PlacesAPIConfig struct {
	BaseURL    string  `mapstructure:"base_url"`
	APIKey     string  `mapstructure:"api_key"`
	Language   string  `mapstructure:"language"`
	MaxResults int     `mapstructure:"max_results"`
	Confidence float64 `mapstructure:"confidence"`
	Timeout    int     `mapstructure:"timeout"` // milliseconds
}

// NotificationConfig holds settings for new-lead notifications.
type NotificationConfig struct {
	Email struct {
		Enabled bool     `mapstructure:"enabled"`
		To      []string `mapstructure:"to"`
	} `mapstructure:"email"`
	SMS struct {
		Enabled bool `mapstructure:"enabled"`
	} `mapstructure:"sms"`
	Timeout int `mapstructure:"timeout"` // milliseconds
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}
