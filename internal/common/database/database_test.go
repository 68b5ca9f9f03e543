package database

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"directory-assistant/internal/common/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresClient_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS a`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE INDEX IF NOT EXISTS b`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	client := &PostgresClient{DB: db}
	err = client.EnsureSchema(context.Background(),
		"CREATE TABLE IF NOT EXISTS a (id INT)",
		"CREATE INDEX IF NOT EXISTS b ON a (id)",
	)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresClient_EnsureSchema_RollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TABLE`).WillReturnError(errors.New("permission denied"))
	mock.ExpectRollback()

	client := &PostgresClient{DB: db}
	err = client.EnsureSchema(context.Background(), "CREATE TABLE x (id INT)")
	assert.ErrorContains(t, err, "permission denied")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisClient_Ping(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client, err := NewRedis(config.RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	assert.NoError(t, client.Ping(context.Background()))

	_, err = NewRedis(config.RedisConfig{Address: " , "})
	assert.Error(t, err)

	_, err = NewRedis(config.RedisConfig{Address: "a:6379,b:6379", DB: 2})
	assert.ErrorContains(t, err, "cluster")
}

// ==========================
// Elasticsearch
// ==========================

func setupES(t *testing.T, handler http.HandlerFunc) *ElasticsearchClient {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := NewElasticsearch(config.ElasticsearchConfig{
		Addresses:     []string{srv.URL},
		BusinessIndex: "businesses",
	})
	require.NoError(t, err)
	return client
}

func TestElasticsearchClient_Ping(t *testing.T) {
	client := setupES(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	assert.NoError(t, client.Ping(context.Background()))
}

func TestNewElasticsearch_RequiresAddressesAndIndex(t *testing.T) {
	_, err := NewElasticsearch(config.ElasticsearchConfig{BusinessIndex: "businesses"})
	assert.Error(t, err)

	_, err = NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{"http://localhost:9200"}})
	assert.Error(t, err)
}

func TestEnsureBusinessIndex_CreatesMissingIndex(t *testing.T) {
	var created string
	client := setupES(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			body, _ := io.ReadAll(r.Body)
			created = string(body)
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		}
	})

	ok, err := client.EnsureBusinessIndex(context.Background())

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, created, `"asciifolding"`)
	assert.Contains(t, created, `"geo_point"`)
}

func TestEnsureBusinessIndex_ExistingIndex(t *testing.T) {
	var puts int
	client := setupES(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			puts++
		}
		w.WriteHeader(http.StatusOK)
	})

	ok, err := client.EnsureBusinessIndex(context.Background())

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, puts)
}

func TestEnsureBusinessIndex_LostCreateRace(t *testing.T) {
	client := setupES(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"resource_already_exists_exception"},"status":400}`))
	})

	ok, err := client.EnsureBusinessIndex(context.Background())

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEnsureBusinessIndex_CreateFails(t *testing.T) {
	client := setupES(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusForbidden)
	})

	_, err := client.EnsureBusinessIndex(context.Background())
	assert.ErrorContains(t, err, "create index businesses")
}
