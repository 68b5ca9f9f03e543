// internal/workers/maintenance/evict-expired-cache/config.go
package evictexpiredcache

import "time"

type Config struct {
	// Interval between scheduled evictions. Zero disables the runner.
	Interval time.Duration
	Timeout  time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Interval: time.Hour,
		Timeout:  2 * time.Minute,
	}
}
