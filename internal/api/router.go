// internal/api/router.go
package api

import (
	"context"
	"net/http"
	"time"

	"directory-assistant/internal/common/logger"
	routemessage "directory-assistant/internal/workers/dialogue/route-message"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MessageRouter produces replies and reports lead capture state.
type MessageRouter interface {
	Execute(ctx context.Context, input *routemessage.Input) (*routemessage.Output, error)
	LeadState(ctx context.Context, conversationID string) (routemessage.LeadState, error)
}

// ReadinessCheck reports whether one dependency can serve traffic.
type ReadinessCheck func(ctx context.Context) error

// Router serves the local conversational surface plus health, readiness and metrics.
type Router struct {
	messages     MessageRouter
	checks       map[string]ReadinessCheck
	checkTimeout time.Duration
	logger       logger.Logger
}

func NewRouter(messages MessageRouter, checks map[string]ReadinessCheck, log logger.Logger) *Router {
	if checks == nil {
		checks = map[string]ReadinessCheck{}
	}
	return &Router{
		messages:     messages,
		checks:       checks,
		checkTimeout: 2 * time.Second,
		logger:       log.With(map[string]interface{}{"component": "api"}),
	}
}

// Setup builds the chi handler tree.
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(rt.logger))

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	router.Handle("/metrics", promhttp.Handler())

	router.Route("/api/v1/conversations/{conversationID}", func(r chi.Router) {
		r.Post("/messages", rt.postMessage)
		r.Get("/lead", rt.getLeadState)
	})

	return router
}

// NewServer wraps handler with the configured timeouts.
func NewServer(addr string, handler http.Handler, readTimeout, writeTimeout time.Duration) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}
}

func (rt *Router) healthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (rt *Router) readinessCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), rt.checkTimeout)
	defer cancel()

	status := http.StatusOK
	results := make(map[string]string, len(rt.checks))
	for name, check := range rt.checks {
		if err := check(ctx); err != nil {
			status = http.StatusServiceUnavailable
			results[name] = err.Error()
			rt.logger.Warn("readiness check failed", map[string]interface{}{
				"check": name,
				"error": err.Error(),
			})
			continue
		}
		results[name] = "ok"
	}

	body := map[string]interface{}{"status": "ready", "checks": results}
	if status != http.StatusOK {
		body["status"] = "not_ready"
	}
	writeJSON(w, status, body)
}
