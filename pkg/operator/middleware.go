package operator

import (
	"encoding/json"
	"net/http"
)

// Middleware resolves the operator and stores it in the request context.
// Invalid or missing (in required mode) operators get a 400 JSON error.
func Middleware(cfg *Config) func(http.Handler) http.Handler {
	mode := ModeOptional
	if cfg != nil {
		mode = cfg.Mode
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			op, err := Resolve(r, mode)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithOperator(r.Context(), op)))
		})
	}
}
