package journal

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarqc/ipqc-audit/pkg/operator"
)

func newMiddlewareRouter(store *Store, cfg *JournalConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(operator.Middleware(operator.DefaultConfig()))
	r.Use(RequestMiddleware(store, cfg, nil))
	r.Get("/api/v1/sessions", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Post("/api/v1/sessions", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusCreated) })
	r.Post("/api/v1/sessions/{id}/observations", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("{}")) })
	r.Delete("/api/v1/sessions/{id}", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNotFound) })
	return r
}

func TestRequestMiddleware(t *testing.T) {
	store := newTestStore(t)
	h := newMiddlewareRouter(store, DefaultJournalConfig())

	send := func(method, path string) {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set(operator.Header, "kiran")
		h.ServeHTTP(httptest.NewRecorder(), req)
	}
	send(http.MethodGet, "/api/v1/sessions")
	send(http.MethodPost, "/api/v1/sessions")
	send(http.MethodPost, "/api/v1/sessions/abc/observations")
	send(http.MethodDelete, "/api/v1/sessions/abc")

	records, _, total, err := store.ListRequests("", 10, "")
	require.NoError(t, err)
	require.Equal(t, 3, total, "reads are not recorded")

	byAction := map[string]RequestEvent{}
	for _, r := range records {
		byAction[r.Action] = r
		assert.Equal(t, "kiran", r.Operator)
		assert.NotEmpty(t, r.RequestID)
	}
	assert.Equal(t, http.StatusCreated, byAction["create-session"].StatusCode)
	assert.Equal(t, "abc", byAction["record-observation"].SessionID)
	assert.Equal(t, http.StatusOK, byAction["record-observation"].StatusCode)
	assert.Equal(t, "rejected", byAction["delete-session"].Outcome)
}

func TestRequestMiddlewareDisabled(t *testing.T) {
	store := newTestStore(t)
	cfg := DefaultJournalConfig()
	cfg.LogRequests = false
	h := newMiddlewareRouter(store, cfg)

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))

	_, _, total, err := store.ListRequests("", 10, "")
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestExtractAction(t *testing.T) {
	tests := []struct {
		method string
		path   string
		want   string
	}{
		{http.MethodPost, "/api/v1/sessions", "create-session"},
		{http.MethodPost, "/api/v1/sessions/", "create-session"},
		{http.MethodDelete, "/api/v1/sessions/abc", "delete-session"},
		{http.MethodPatch, "/api/v1/sessions/abc/header", "update-header"},
		{http.MethodPost, "/api/v1/sessions/abc/observations", "record-observation"},
		{http.MethodPut, "/api/v1/other", "put"},
	}
	for _, tc := range tests {
		t.Run(tc.method+" "+tc.path, func(t *testing.T) {
			assert.Equal(t, tc.want, extractAction(tc.method, tc.path))
		})
	}
	assert.Equal(t, "abc", extractSessionID("/api/v1/sessions/abc/header"))
	assert.Equal(t, "", extractSessionID("/api/v1/sessions"))
}
