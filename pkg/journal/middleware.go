package journal

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/solarqc/ipqc-audit/pkg/operator"
)

// responseCapture wraps http.ResponseWriter to capture the status code.
type responseCapture struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rc *responseCapture) WriteHeader(code int) {
	if !rc.written {
		rc.statusCode = code
		rc.written = true
	}
	rc.ResponseWriter.WriteHeader(code)
}

func (rc *responseCapture) Write(b []byte) (int, error) {
	if !rc.written {
		rc.statusCode = http.StatusOK
		rc.written = true
	}
	return rc.ResponseWriter.Write(b)
}

// RequestMiddleware records every state-changing session request. Reads
// pass through unrecorded.
func RequestMiddleware(store *Store, cfg *JournalConfig, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg == nil || !cfg.Enabled || !cfg.LogRequests || store == nil || !isMutation(r.Method) {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			capture := &responseCapture{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(capture, r)

			ctx := r.Context()
			op, _ := operator.FromContext(ctx)
			name := op.Name
			if name == "" {
				name = operator.Anonymous
			}
			requestID := middleware.GetReqID(ctx)

			ev := &RequestEvent{
				ID:         uuid.New().String(),
				RequestID:  requestID,
				Operator:   name,
				Station:    op.Station,
				Method:     r.Method,
				Path:       r.URL.Path,
				SessionID:  extractSessionID(r.URL.Path),
				Action:     extractAction(r.Method, r.URL.Path),
				StatusCode: capture.statusCode,
				Outcome:    outcomeFromStatus(capture.statusCode),
				DurationMS: time.Since(start).Milliseconds(),
				CreatedAt:  start,
			}
			if err := store.AppendRequest(ev); err != nil {
				logger.Error("failed to write request event", "error", err, "requestID", requestID)
			}
		})
	}
}

func isMutation(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// outcomeFromStatus maps HTTP status codes to outcomes.
func outcomeFromStatus(code int) string {
	switch {
	case code >= 200 && code < 300:
		return "success"
	case code >= 400 && code < 500:
		return "rejected"
	default:
		return "failure"
	}
}

// extractSessionID returns the segment after "sessions", if any.
func extractSessionID(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	for i, p := range parts {
		if p == "sessions" && i+1 < len(parts) {
			return parts[i+1]
		}
	}
	return ""
}

// extractAction names what a mutating request did.
//
//	POST   /sessions                    -> create-session
//	DELETE /sessions/{id}               -> delete-session
//	PATCH  /sessions/{id}/header        -> update-header
//	POST   /sessions/{id}/observations  -> record-observation
func extractAction(method, path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	last := parts[len(parts)-1]
	switch {
	case last == "sessions" && method == http.MethodPost:
		return "create-session"
	case last == "header":
		return "update-header"
	case last == "observations":
		return "record-observation"
	case method == http.MethodDelete && len(parts) >= 2 && parts[len(parts)-2] == "sessions":
		return "delete-session"
	}
	return strings.ToLower(method)
}
