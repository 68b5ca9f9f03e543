// internal/workers/search/result-cache/redis.go
package resultcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each query hash as a list of JSON rows. The key expires with
// the longest row TTL; EvictExpired trims lists holding rows of mixed age.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	logger logger.Logger

	// afterRead runs between the read and the rewrite of trim.
	afterRead func(key string)
}

func NewRedisStore(client redis.UniversalClient, prefix string, log logger.Logger) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: prefix,
		logger: log.With(map[string]interface{}{"cacheBackend": "redis"}),
	}
}

func (s *RedisStore) key(hash string) string {
	return s.prefix + hash
}

func (s *RedisStore) FindValid(ctx context.Context, key string, now time.Time) ([]models.CacheEntry, error) {
	raw, err := s.client.LRange(ctx, s.key(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: lrange: %w", err)
	}

	valid, _ := s.partition(raw, now)
	return valid, nil
}

func (s *RedisStore) SaveAll(ctx context.Context, entries []models.CacheEntry) error {
	if len(entries) == 0 {
		return nil
	}

	groups := make(map[string][]interface{})
	ttls := make(map[string]time.Duration)
	for _, e := range entries {
		data, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("redis: marshal entry: %w", err)
		}
		groups[e.QueryHash] = append(groups[e.QueryHash], data)
		if remaining := time.Until(e.ExpiresAt()); remaining > ttls[e.QueryHash] {
			ttls[e.QueryHash] = remaining
		}
	}

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for hash, values := range groups {
			pipe.RPush(ctx, s.key(hash), values...)
			if ttl := ttls[hash]; ttl > 0 {
				pipe.Expire(ctx, s.key(hash), ttl)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis: store entries: %w", err)
	}
	return nil
}

func (s *RedisStore) EvictExpired(ctx context.Context, now time.Time) (int64, error) {
	var (
		cursor  uint64
		evicted int64
	)

	for {
		keys, next, err := s.client.Scan(ctx, cursor, s.prefix+"*", 100).Result()
		if err != nil {
			return evicted, fmt.Errorf("redis: scan: %w", err)
		}

		for _, k := range keys {
			n, err := s.trim(ctx, k, now)
			if err != nil {
				return evicted, err
			}
			evicted += n
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return evicted, nil
}

// maxTrimAttempts bounds the retries when a concurrent SaveAll touches the
// key between the read and the rewrite.
const maxTrimAttempts = 5

// trim rewrites key without its expired rows. The read and the rewrite run
// under WATCH, so rows appended meanwhile abort the rewrite and it is retried
// on the new contents.
func (s *RedisStore) trim(ctx context.Context, key string, now time.Time) (int64, error) {
	var evicted int64
	rewrite := func(tx *redis.Tx) error {
		evicted = 0
		raw, err := tx.LRange(ctx, key, 0, -1).Result()
		if err != nil {
			return fmt.Errorf("redis: lrange %s: %w", key, err)
		}
		if s.afterRead != nil {
			s.afterRead(key)
		}

		valid, expired := s.partition(raw, now)
		if expired == 0 {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			if len(valid) == 0 {
				return nil
			}
			values := make([]interface{}, 0, len(valid))
			var ttl time.Duration
			for _, e := range valid {
				data, _ := json.Marshal(e)
				values = append(values, data)
				if remaining := e.ExpiresAt().Sub(now); remaining > ttl {
					ttl = remaining
				}
			}
			pipe.RPush(ctx, key, values...)
			pipe.Expire(ctx, key, ttl)
			return nil
		})
		if err != nil {
			return fmt.Errorf("redis: rewrite %s: %w", key, err)
		}
		evicted = int64(expired)
		return nil
	}

	for attempt := 1; ; attempt++ {
		err := s.client.Watch(ctx, rewrite, key)
		if err == nil {
			return evicted, nil
		}
		if !errors.Is(err, redis.TxFailedErr) || attempt == maxTrimAttempts {
			return 0, err
		}
		s.logger.Debug("cache list changed during trim, retrying", map[string]interface{}{
			"key":     key,
			"attempt": attempt,
		})
	}
}

// partition splits raw rows into valid entries and a count of expired or
// unreadable ones.
func (s *RedisStore) partition(raw []string, now time.Time) ([]models.CacheEntry, int) {
	var (
		valid   []models.CacheEntry
		expired int
	)
	for _, item := range raw {
		var e models.CacheEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			s.logger.Warn("dropping unreadable cache row", map[string]interface{}{"error": err.Error()})
			expired++
			continue
		}
		if !e.ValidAt(now) {
			expired++
			continue
		}
		valid = append(valid, e)
	}
	return valid, expired
}
