// internal/api/respond.go
package api

import (
	"encoding/json"
	"net/http"
	"time"

	apperrors "directory-assistant/internal/common/errors"
	"directory-assistant/internal/common/logger"
	"directory-assistant/internal/common/validation"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// decodeMessageRequest validates body against the request schema before
// decoding it. A nil error with an invalid result means the JSON was well formed.
func decodeMessageRequest(body []byte) (*MessageRequest, *validation.ValidationResult, error) {
	result, err := messageRequestSchema.ValidateBytes(body)
	if err != nil {
		return nil, nil, err
	}
	if !result.Valid {
		return nil, result, nil
	}

	var req MessageRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, nil, err
	}
	return &req, result, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code apperrors.ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Code: string(code), Message: message})
}

func requestLogger(log logger.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			log.Info("http request", map[string]interface{}{
				"method":     r.Method,
				"path":       r.URL.Path,
				"status":     ww.Status(),
				"bytes":      ww.BytesWritten(),
				"durationMs": time.Since(start).Milliseconds(),
				"requestId":  chimiddleware.GetReqID(r.Context()),
			})
		})
	}
}
