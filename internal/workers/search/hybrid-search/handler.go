// internal/workers/search/hybrid-search/handler.go
package hybridsearch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"directory-assistant/internal/common/camunda"
	apperrors "directory-assistant/internal/common/errors"
	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/common/metrics"
	"directory-assistant/internal/common/textnorm"
	"directory-assistant/internal/models"
	internalcatalog "directory-assistant/internal/workers/search/internal-catalog"
	resultcache "directory-assistant/internal/workers/search/result-cache"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"golang.org/x/sync/singleflight"
)

const (
	TaskType = "hybrid-search"
)

var (
	ErrInternalSearchFailed = errors.New("INTERNAL_SEARCH_FAILED")
	ErrExternalSearchFailed = errors.New("EXTERNAL_SEARCH_FAILED")
)

// PlacesProvider is the external places source.
type PlacesProvider interface {
	SearchNearby(ctx context.Context, query string, loc *models.Location) ([]models.ExternalPlace, error)
}

// Handler answers from the internal catalog first and falls back to the cached
// external provider when fewer than InternalThreshold rows were found.
type Handler struct {
	config     *Config
	finder     internalcatalog.BusinessFinder
	provider   PlacesProvider
	store      resultcache.Store
	keyer      *resultcache.Keyer
	inflight   singleflight.Group
	now        func() time.Time
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(
	config *Config,
	finder internalcatalog.BusinessFinder,
	provider PlacesProvider,
	store resultcache.Store,
	keyer *resultcache.Keyer,
	log logger.Logger,
) *Handler {
	if keyer == nil {
		keyer = resultcache.NewKeyer()
	}
	log = log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		finder:     finder,
		provider:   provider,
		store:      store,
		keyer:      keyer,
		now:        time.Now,
		logger:     log,
		errHandler: apperrors.NewErrorHandler(log),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errHandler.HandleJobError(ctx, client, job, apperrors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	start := time.Now()
	output, err := h.execute(ctx, &input)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	if err != nil {
		source := "internal"
		if errors.Is(err, ErrExternalSearchFailed) {
			source = "external"
		}
		stdErr := apperrors.NewRetrievalFailedError(source, err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
		h.errHandler.HandleJobError(ctx, client, job, stdErr)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	camunda.CompleteJob(client, job, output, h.logger)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if strings.TrimSpace(input.Query) == "" {
		return nil, fmt.Errorf("%w: empty query", ErrInternalSearchFailed)
	}
	result, err := h.Search(ctx, input.toQuery())
	if err != nil {
		return nil, err
	}
	return &Output{SearchResult: result}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}

// Search runs the internal-first lookup for q.
func (h *Handler) Search(ctx context.Context, q models.Query) (*models.SearchResult, error) {
	normalized := textnorm.Normalize(q.Text)
	loc := q.Location()

	internal, err := h.finder.SearchBusinesses(ctx, normalized, loc)
	if err != nil {
		metrics.SearchFailures.WithLabelValues("internal").Inc()
		h.logger.Error("internal search failed", map[string]interface{}{
			"query": q.Text,
			"error": err.Error(),
		})
		return nil, fmt.Errorf("%w: %v", ErrInternalSearchFailed, err)
	}

	if len(internal) >= h.config.InternalThreshold {
		result := models.NewSearchResult(q.Text, internal, nil, false)
		h.record(result)
		return result, nil
	}

	external, fromCache, err := h.searchExternal(ctx, q, loc)
	if err != nil {
		metrics.SearchFailures.WithLabelValues("external").Inc()
		return nil, err
	}

	result := models.NewSearchResult(q.Text, internal, external, fromCache)
	h.record(result)
	return result, nil
}

func (h *Handler) searchExternal(ctx context.Context, q models.Query, loc *models.Location) ([]models.CacheEntry, bool, error) {
	key, err := h.keyer.Key(q)
	if err != nil {
		h.logger.Warn("cache key digest failed, using raw query", map[string]interface{}{
			"query": q.Text,
			"error": err.Error(),
		})
	}

	cached, err := h.store.FindValid(ctx, key, h.now())
	switch {
	case err != nil:
		metrics.CacheLookups.WithLabelValues("error").Inc()
		h.logger.Warn("cache read failed, treating as miss", map[string]interface{}{
			"queryHash": key,
			"error":     err.Error(),
		})
	case len(cached) > 0:
		metrics.CacheLookups.WithLabelValues("hit").Inc()
		return cached, true, nil
	default:
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	if !h.config.DedupeInFlight {
		entries, err := h.fetchAndStore(ctx, q, loc, key)
		return entries, false, err
	}

	v, err, shared := h.inflight.Do(key, func() (interface{}, error) {
		return h.fetchAndStore(ctx, q, loc, key)
	})
	if err != nil {
		return nil, false, err
	}
	if shared {
		h.logger.Debug("joined in-flight provider fetch", map[string]interface{}{"queryHash": key})
	}
	return v.([]models.CacheEntry), false, nil
}

func (h *Handler) fetchAndStore(ctx context.Context, q models.Query, loc *models.Location, key string) ([]models.CacheEntry, error) {
	places, err := h.provider.SearchNearby(ctx, q.Text, loc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalSearchFailed, err)
	}
	if len(places) == 0 {
		return []models.CacheEntry{}, nil
	}

	now := h.now()
	entries := make([]models.CacheEntry, 0, len(places))
	for _, p := range places {
		entries = append(entries, models.NewCacheEntry(key, p, now, h.config.CacheTTL))
	}

	if err := h.store.SaveAll(ctx, entries); err != nil {
		h.logger.Warn("cache write failed, returning fetched rows", map[string]interface{}{
			"queryHash": key,
			"count":     len(entries),
			"error":     err.Error(),
		})
	}
	return entries, nil
}

// EvictExpired deletes expired cache rows and returns how many were removed.
func (h *Handler) EvictExpired(ctx context.Context) (int64, error) {
	n, err := h.store.EvictExpired(ctx, h.now())
	if err != nil {
		return 0, err
	}
	metrics.CacheEvicted.Add(float64(n))
	h.logger.Info("expired cache rows evicted", map[string]interface{}{"count": n})
	return n, nil
}

func (h *Handler) record(result *models.SearchResult) {
	metrics.SearchesTotal.WithLabelValues(string(result.Source)).Inc()
	h.logger.Info("search completed", map[string]interface{}{
		"query":         result.Query,
		"source":        result.Source,
		"internalCount": result.InternalCount,
		"externalCount": result.ExternalCount,
		"fromCache":     result.FromCache,
	})
}
