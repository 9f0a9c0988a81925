package journal

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListObservationsHandler(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()
	require.NoError(t, store.AppendObservation(observation("s-1", 1, "1-1", "meera", now.Add(-2*time.Minute))))
	require.NoError(t, store.AppendObservation(observation("s-1", 3, "3-1", "kiran", now.Add(-time.Minute))))
	r := Router(store)

	req := httptest.NewRequest(http.MethodGet, "/observations?session=s-1&stage=3", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Events    []map[string]any `json:"events"`
		TotalSize int              `json:"totalSize"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.TotalSize)
	require.Len(t, body.Events, 1)
	assert.Equal(t, "3-1", body.Events[0]["parameterId"])
	assert.Equal(t, "42", body.Events[0]["value"])
	assert.Equal(t, "kiran", body.Events[0]["operator"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/observations?stage=three", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/observations?pageToken=bad", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetObservationHandler(t *testing.T) {
	store := newTestStore(t)
	ev := observation("s-1", 1, "1-1", "meera", time.Now())
	require.NoError(t, store.AppendObservation(ev))
	r := Router(store)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/observations/"+ev.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, ev.ID, body["id"])
	assert.Equal(t, "", body["previous"])

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/observations/unknown", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListRequestsHandler(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.AppendRequest(&RequestEvent{
		ID: "r-1", Operator: "meera", Method: "POST", Path: "/api/v1/sessions",
		Action: "create-session", StatusCode: 201, Outcome: "success", CreatedAt: time.Now(),
	}))

	w := httptest.NewRecorder()
	Router(store).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/requests?operator=meera", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Events []map[string]any `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Events, 1)
	assert.Equal(t, "create-session", body.Events[0]["action"])
	assert.Equal(t, float64(201), body.Events[0]["statusCode"])
}

func TestJournalConfigFromEnv(t *testing.T) {
	t.Setenv("IPQC_JOURNAL_RETENTION_DAYS", "30")
	t.Setenv("IPQC_JOURNAL_DB_TYPE", "postgres")
	t.Setenv("IPQC_JOURNAL_LOG_REQUESTS", "false")
	cfg := JournalConfigFromEnv()
	assert.Equal(t, 30, cfg.RetentionDays)
	assert.Equal(t, "postgres", cfg.DBType)
	assert.False(t, cfg.LogRequests)
	assert.True(t, cfg.Enabled)
}
