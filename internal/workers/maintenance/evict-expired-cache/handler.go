// internal/workers/maintenance/evict-expired-cache/handler.go
package evictexpiredcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"directory-assistant/internal/common/camunda"
	apperrors "directory-assistant/internal/common/errors"
	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/common/metrics"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "evict-expired-cache"
)

var (
	ErrEvictionFailed = errors.New("CACHE_EVICTION_FAILED")
)

// Evicter removes expired rows from the external result cache.
type Evicter interface {
	EvictExpired(ctx context.Context) (int64, error)
}

type Handler struct {
	config     *Config
	evicter    Evicter
	logger     logger.Logger
	errHandler *apperrors.ErrorHandler
}

func NewHandler(config *Config, evicter Evicter, log logger.Logger) *Handler {
	log = log.With(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		evicter:    evicter,
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

	start := time.Now()
	output, err := h.execute(ctx)
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(start).Seconds())
	if err != nil {
		stdErr := apperrors.NewQueryExecutionFailedError("evict expired cache", err)
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(stdErr.Code)).Inc()
		h.errHandler.HandleJobError(ctx, client, job, stdErr)
		return
	}

	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	camunda.CompleteJob(client, job, output, h.logger)
}

func (h *Handler) execute(ctx context.Context) (*Output, error) {
	n, err := h.evicter.EvictExpired(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEvictionFailed, err)
	}
	return &Output{Evicted: n}, nil
}

func (h *Handler) Execute(ctx context.Context) (*Output, error) {
	return h.execute(ctx)
}

// Run evicts on every tick of config.Interval until ctx is cancelled. A failed
// round is logged and the loop keeps going.
func (h *Handler) Run(ctx context.Context) {
	if h.config.Interval <= 0 {
		h.logger.Info("scheduled eviction disabled", nil)
		return
	}

	h.logger.Info("scheduled eviction started", map[string]interface{}{
		"interval": h.config.Interval.String(),
	})
	ticker := time.NewTicker(h.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("scheduled eviction stopped", nil)
			return
		case <-ticker.C:
			h.runOnce(ctx)
		}
	}
}

func (h *Handler) runOnce(ctx context.Context) {
	roundCtx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	if _, err := h.execute(roundCtx); err != nil {
		h.logger.Error("scheduled eviction failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
