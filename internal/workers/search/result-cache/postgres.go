// internal/workers/search/result-cache/postgres.go
package resultcache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/models"
)

// Schema creates the cache table and its lookup indexes.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS external_results_cache (
		id BIGSERIAL PRIMARY KEY,
		query_hash VARCHAR(255) NOT NULL,
		source VARCHAR(50) NOT NULL,
		source_place_id VARCHAR(255),
		business_name VARCHAR(255) NOT NULL,
		category VARCHAR(100),
		latitude NUMERIC(10,8),
		longitude NUMERIC(11,8),
		rating NUMERIC(3,2),
		address TEXT,
		phone VARCHAR(50),
		confidence NUMERIC(3,2) NOT NULL DEFAULT 0,
		fetched_at TIMESTAMPTZ NOT NULL,
		ttl INTEGER NOT NULL DEFAULT 86400,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_external_results_cache_hash ON external_results_cache (query_hash, fetched_at)`,
	`CREATE INDEX IF NOT EXISTS idx_external_results_cache_fetched ON external_results_cache (fetched_at)`,
}

const (
	selectValidSQL = `SELECT id, query_hash, source, source_place_id, business_name, category,
		latitude, longitude, rating, address, phone, confidence, fetched_at, ttl, created_at
		FROM external_results_cache
		WHERE query_hash = $1 AND fetched_at > $2::timestamptz - ttl * INTERVAL '1 second'
		ORDER BY confidence DESC, id`

	insertSQL = `INSERT INTO external_results_cache
		(query_hash, source, source_place_id, business_name, category, latitude, longitude,
		 rating, address, phone, confidence, fetched_at, ttl, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	evictSQL = `DELETE FROM external_results_cache
		WHERE fetched_at < $1::timestamptz - ttl * INTERVAL '1 second'`
)

// PostgresStore keeps cache rows in external_results_cache.
type PostgresStore struct {
	db     *sql.DB
	logger logger.Logger
}

func NewPostgresStore(db *sql.DB, log logger.Logger) *PostgresStore {
	return &PostgresStore{
		db:     db,
		logger: log.With(map[string]interface{}{"cacheBackend": "postgres"}),
	}
}

func (s *PostgresStore) FindValid(ctx context.Context, key string, now time.Time) ([]models.CacheEntry, error) {
	rows, err := s.db.QueryContext(ctx, selectValidSQL, key, now)
	if err != nil {
		return nil, fmt.Errorf("postgres: query cache: %w", err)
	}
	defer rows.Close()

	var entries []models.CacheEntry
	for rows.Next() {
		var (
			e                              models.CacheEntry
			placeID, category, addr, phone sql.NullString
			lat, lon, rating               sql.NullFloat64
		)
		if err := rows.Scan(
			&e.ID, &e.QueryHash, &e.Source, &placeID, &e.BusinessName, &category,
			&lat, &lon, &rating, &addr, &phone, &e.Confidence, &e.FetchedAt, &e.TTL, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan cache row: %w", err)
		}
		e.SourcePlaceID = placeID.String
		e.Category = category.String
		e.Address = addr.String
		e.Phone = phone.String
		e.Latitude = nullFloat(lat)
		e.Longitude = nullFloat(lon)
		e.Rating = nullFloat(rating)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: iterate cache rows: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) SaveAll(ctx context.Context, entries []models.CacheEntry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return fmt.Errorf("postgres: prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx,
			e.QueryHash, e.Source, nullString(e.SourcePlaceID), e.BusinessName, nullString(e.Category),
			e.Latitude, e.Longitude, e.Rating, nullString(e.Address), nullString(e.Phone),
			e.Confidence, e.FetchedAt, e.TTL, e.CreatedAt,
		); err != nil {
			return fmt.Errorf("postgres: insert cache row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}

	s.logger.Debug("cache rows stored", map[string]interface{}{
		"queryHash": entries[0].QueryHash,
		"count":     len(entries),
	})
	return nil
}

func (s *PostgresStore) EvictExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, evictSQL, now)
	if err != nil {
		return 0, fmt.Errorf("postgres: evict cache: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("postgres: rows affected: %w", err)
	}
	return n, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
