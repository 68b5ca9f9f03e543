// internal/common/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Load reads configs/config.yaml, overlays config.<APP_ENVIRONMENT>.yaml and the
// environment, then applies defaults and validates the result.
func Load() (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigName("config")
	v.AddConfigPath("./configs")
	v.AddConfigPath("../../configs")
	v.AddConfigPath(".")

	env := os.Getenv("APP_ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	_ = v.MergeInConfig() // the overlay is optional

	return finish(v)
}

// LoadFromFile loads configuration from a specific file path
func LoadFromFile(path string) (*Config, error) {
	loadEnvFile()

	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return finish(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	// DATABASE_POSTGRES_HOST overrides database.postgres.host
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

func finish(v *viper.Viper) (*Config, error) {
	expandEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)
	overrideEmptyConfig(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
	}

	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			// godotenv never overrides variables already set in the process
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

// findProjectRoot walks up from the working directory to the first go.mod.
func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return ""
}

// expandEnvVars replaces ${VAR} placeholders in string values.
func expandEnvVars(v *viper.Viper) {
	for _, key := range v.AllKeys() {
		strVal, ok := v.Get(key).(string)
		if !ok {
			continue
		}
		if strings.Contains(strVal, "${") || (strings.HasPrefix(strVal, "$") && len(strVal) > 1) {
			expanded := os.ExpandEnv(strVal)
			if expanded != strVal && expanded != "" {
				v.Set(key, expanded)
			}
		}
	}
}

// overrideEmptyConfig fills secrets from their conventional variable names.
func overrideEmptyConfig(cfg *Config) {
	setIfEmpty(&cfg.APIs.Completion.APIKey, "COMPLETION_API_KEY", "GROK_API_KEY", "GEMINI_API_KEY")
	setIfEmpty(&cfg.APIs.Places.APIKey, "GOOGLE_PLACES_API_KEY")
	setIfEmpty(&cfg.Integrations.Zoho.APIKey, "ZOHO_CRM_API_KEY")
	setIfEmpty(&cfg.Integrations.Zoho.AuthToken, "ZOHO_CRM_OAUTH_TOKEN")
	setIfEmpty(&cfg.Database.Postgres.User, "DB_USER")
	setIfEmpty(&cfg.Database.Postgres.Password, "DB_PASSWORD")
}

func setIfEmpty(field *string, names ...string) {
	if *field != "" {
		return
	}
	for _, name := range names {
		if val := os.Getenv(name); val != "" {
			*field = val
			return
		}
	}
}

// applyDefaults sets default values for optional configuration fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "directory-assistant"
	}

	if cfg.Server.Address == "" {
		cfg.Server.Address = ":8080"
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15000
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 90000
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 30000
	}

	if cfg.Camunda.MaxJobsActive == 0 {
		cfg.Camunda.MaxJobsActive = 10
	}
	if cfg.Camunda.Timeout == 0 {
		cfg.Camunda.Timeout = 30000
	}
	if cfg.Camunda.RequestTimeout == 0 {
		cfg.Camunda.RequestTimeout = 30000
	}

	if cfg.Database.Postgres.Port == 0 {
		cfg.Database.Postgres.Port = 5432
	}
	if cfg.Database.Postgres.MaxConnections == 0 {
		cfg.Database.Postgres.MaxConnections = 25
	}
	if cfg.Database.Postgres.MaxIdle == 0 {
		cfg.Database.Postgres.MaxIdle = 5
	}
	if cfg.Database.Postgres.SSLMode == "" {
		cfg.Database.Postgres.SSLMode = "disable"
	}
	if cfg.Database.Elasticsearch.BusinessIndex == "" {
		cfg.Database.Elasticsearch.BusinessIndex = "businesses"
	}

	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "postgres"
	}
	if cfg.Cache.TTLSeconds == 0 {
		cfg.Cache.TTLSeconds = 86400
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "directory:external:"
	}

	if cfg.Search.CatalogBackend == "" {
		cfg.Search.CatalogBackend = "postgres"
	}
	if cfg.Search.InternalThreshold == 0 {
		cfg.Search.InternalThreshold = 3
	}
	if cfg.Search.MaxInternal == 0 {
		cfg.Search.MaxInternal = 20
	}
	if cfg.Search.DefaultLatitude == 0 && cfg.Search.DefaultLongitude == 0 {
		// Bogotá
		cfg.Search.DefaultLatitude = 4.7110
		cfg.Search.DefaultLongitude = -74.0721
	}
	if cfg.Search.DefaultRadius == 0 {
		cfg.Search.DefaultRadius = 3000
	}
	if cfg.Search.Timeout == 0 {
		cfg.Search.Timeout = 15000
	}

	if cfg.Dialogue.Channel == "" {
		cfg.Dialogue.Channel = "telegram"
	}
	if cfg.Dialogue.ConfidenceThreshold == 0 {
		cfg.Dialogue.ConfidenceThreshold = 0.75
	}
	if cfg.Dialogue.MaxInternalRows == 0 {
		cfg.Dialogue.MaxInternalRows = 5
	}
	if cfg.Dialogue.MaxExternalRows == 0 {
		cfg.Dialogue.MaxExternalRows = 5
	}
	if cfg.Dialogue.MaxProducts == 0 {
		cfg.Dialogue.MaxProducts = 10
	}
	if cfg.Dialogue.MaxPrices == 0 {
		cfg.Dialogue.MaxPrices = 10
	}
	if cfg.Dialogue.NearbyLimit == 0 {
		cfg.Dialogue.NearbyLimit = 15
	}
	if cfg.Dialogue.LogTimeout == 0 {
		cfg.Dialogue.LogTimeout = 5000
	}
	if cfg.Dialogue.FollowUpTimeout == 0 {
		cfg.Dialogue.FollowUpTimeout = 30000
	}
	if cfg.Dialogue.ConsentTTL == 0 {
		cfg.Dialogue.ConsentTTL = 86400000
	}

	if cfg.History.MaxMessages == 0 {
		cfg.History.MaxMessages = 20
	}

	if cfg.Maintenance.EvictionInterval == 0 {
		cfg.Maintenance.EvictionInterval = 3600000
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	for key, worker := range cfg.Workers {
		if worker.MaxJobsActive == 0 {
			worker.MaxJobsActive = 5
		}
		if worker.Timeout == 0 {
			worker.Timeout = 30000
		}
		if worker.MaxRetries == 0 {
			worker.MaxRetries = 3
		}
		cfg.Workers[key] = worker
	}

	applyAPIDefaults(cfg)

	if cfg.Notifications.Timeout == 0 {
		cfg.Notifications.Timeout = 10000
	}
	if cfg.Integrations.AWS.Region == "" {
		cfg.Integrations.AWS.Region = "us-east-1"
	}
	if cfg.Integrations.Zoho.BaseURL == "" {
		cfg.Integrations.Zoho.BaseURL = "https://www.zohoapis.com/crm/v3"
	}
}

func applyAPIDefaults(cfg *Config) {
	c := &cfg.APIs.Completion
	if c.Provider == "" {
		c.Provider = "openai"
	}
	if c.BaseURL == "" && c.Provider == "openai" {
		c.BaseURL = "https://api.x.ai/v1"
	}
	if c.Model == "" {
		if c.Provider == "gemini" {
			c.Model = "gemini-2.5-flash"
		} else {
			c.Model = "grok-3-mini"
		}
	}
	if c.Timeout == 0 {
		c.Timeout = 60000
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 30000
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 1
	}
	if c.Temperature == 0 {
		c.Temperature = 0.7
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 1024
	}
	if c.TopP == 0 {
		c.TopP = 1.0
	}

	p := &cfg.APIs.Places
	if p.BaseURL == "" {
		p.BaseURL = "https://places.googleapis.com/v1"
	}
	if p.Language == "" {
		p.Language = "es"
	}
	if p.MaxResults == 0 {
		p.MaxResults = 10
	}
	if p.Confidence == 0 {
		p.Confidence = 0.8
	}
	if p.Timeout == 0 {
		p.Timeout = 10000
	}
}

// validateConfig validates critical configuration fields
func validateConfig(cfg *Config) error {
	if cfg.Database.Postgres.Host == "" {
		return fmt.Errorf("database.postgres.host is required")
	}
	if cfg.Database.Postgres.Database == "" {
		return fmt.Errorf("database.postgres.database is required")
	}
	if cfg.Database.Postgres.User == "" {
		return fmt.Errorf("database.postgres.user is required")
	}

	switch cfg.Cache.Backend {
	case "postgres":
	case "redis":
		if cfg.Database.Redis.Address == "" {
			return fmt.Errorf("database.redis.address is required for the redis cache backend")
		}
	default:
		return fmt.Errorf("cache.backend must be postgres or redis, got %q", cfg.Cache.Backend)
	}

	switch cfg.Search.CatalogBackend {
	case "postgres":
	case "elasticsearch":
		if len(cfg.Database.Elasticsearch.Addresses) == 0 {
			return fmt.Errorf("database.elasticsearch.addresses is required for the elasticsearch catalog")
		}
	default:
		return fmt.Errorf("search.catalog_backend must be postgres or elasticsearch, got %q", cfg.Search.CatalogBackend)
	}

	switch cfg.APIs.Completion.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("apis.completion.provider must be openai or gemini, got %q", cfg.APIs.Completion.Provider)
	}

	if cfg.Camunda.Enabled && cfg.Camunda.BrokerAddress == "" {
		return fmt.Errorf("camunda.broker_address is required when camunda is enabled")
	}

	if t := cfg.Dialogue.ConfidenceThreshold; t < 0 || t > 1 {
		return fmt.Errorf("dialogue.confidence_threshold must be within [0,1], got %v", t)
	}
	if cfg.Search.InternalThreshold < 0 {
		return fmt.Errorf("search.internal_threshold must not be negative")
	}
	if cfg.Cache.TTLSeconds < 0 {
		return fmt.Errorf("cache.ttl_seconds must not be negative")
	}

	return nil
}

// GetDuration converts milliseconds from config to time.Duration
func GetDuration(milliseconds int) time.Duration {
	return time.Duration(milliseconds) * time.Millisecond
}

// CacheTTL returns the configured external-result lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Cache.TTLSeconds) * time.Second
}

// GetWorkerConfig retrieves worker-specific configuration with fallback to defaults
func GetWorkerConfig(cfg *Config, workerName string) WorkerConfig {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker
	}

	return WorkerConfig{
		Enabled:       true,
		MaxJobsActive: 5,
		Timeout:       30000,
		MaxRetries:    3,
	}
}

// IsWorkerEnabled checks if a specific worker is enabled
func IsWorkerEnabled(cfg *Config, workerName string) bool {
	if worker, exists := cfg.Workers[workerName]; exists {
		return worker.Enabled
	}
	return true
}
