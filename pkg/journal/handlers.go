package journal

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/solarqc/ipqc-audit/pkg/checklist"
)

// ListObservationsHandler handles GET /observations
// Query params: session, stage, parameter, operator, status, applied, pageSize, pageToken
func ListObservationsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		filter := ObservationFilter{
			SessionID:   q.Get("session"),
			ParameterID: q.Get("parameter"),
			Operator:    q.Get("operator"),
			Status:      q.Get("status"),
		}
		if s := q.Get("stage"); s != "" {
			id, err := strconv.Atoi(s)
			if err != nil {
				writeError(w, http.StatusBadRequest, "stage must be an integer")
				return
			}
			filter.StageID = id
		}
		if a := q.Get("applied"); a != "" {
			filter.AppliedOnly, _ = strconv.ParseBool(a)
		}

		records, nextToken, total, err := store.ListObservations(filter, pageSizeParam(r), q.Get("pageToken"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list observation events: %v", err))
			return
		}

		events := make([]observationResponse, len(records))
		for i, rec := range records {
			events[i] = observationToResponse(rec)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"events":        events,
			"nextPageToken": nextToken,
			"totalSize":     total,
		})
	}
}

// GetObservationHandler handles GET /observations/{eventId}
func GetObservationHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eventID := chi.URLParam(r, "eventId")
		rec, err := store.GetObservation(eventID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to get observation event: %v", err))
			return
		}
		if rec == nil {
			writeError(w, http.StatusNotFound, fmt.Sprintf("observation event %q not found", eventID))
			return
		}
		writeJSON(w, http.StatusOK, observationToResponse(*rec))
	}
}

// ListRequestsHandler handles GET /requests
// Query params: operator, pageSize, pageToken
func ListRequestsHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, nextToken, total, err := store.ListRequests(r.URL.Query().Get("operator"), pageSizeParam(r), r.URL.Query().Get("pageToken"))
		if err != nil {
			writeError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list request events: %v", err))
			return
		}
		events := make([]requestResponse, len(records))
		for i, rec := range records {
			events[i] = requestResponse{
				ID:         rec.ID,
				RequestID:  rec.RequestID,
				Operator:   rec.Operator,
				Station:    rec.Station,
				Method:     rec.Method,
				Path:       rec.Path,
				SessionID:  rec.SessionID,
				Action:     rec.Action,
				StatusCode: rec.StatusCode,
				Outcome:    rec.Outcome,
				DurationMS: rec.DurationMS,
				CreatedAt:  rec.CreatedAt.Format(time.RFC3339),
			}
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"events":        events,
			"nextPageToken": nextToken,
			"totalSize":     total,
		})
	}
}

type observationResponse struct {
	ID          string          `json:"id"`
	SessionID   string          `json:"sessionId"`
	Line        string          `json:"line"`
	StageID     int             `json:"stageId"`
	ParameterID string          `json:"parameterId"`
	TimeSlot    string          `json:"timeSlot"`
	Previous    checklist.Value `json:"previous"`
	Value       checklist.Value `json:"value"`
	Applied     bool            `json:"applied"`
	Status      string          `json:"status"`
	Samples     map[string]any  `json:"samples,omitempty"`
	Operator    string          `json:"operator"`
	Station     string          `json:"station,omitempty"`
	RequestID   string          `json:"requestId,omitempty"`
	CreatedAt   string          `json:"createdAt"`
}

type requestResponse struct {
	ID         string `json:"id"`
	RequestID  string `json:"requestId,omitempty"`
	Operator   string `json:"operator"`
	Station    string `json:"station,omitempty"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	SessionID  string `json:"sessionId,omitempty"`
	Action     string `json:"action"`
	StatusCode int    `json:"statusCode"`
	Outcome    string `json:"outcome"`
	DurationMS int64  `json:"durationMs"`
	CreatedAt  string `json:"createdAt"`
}

func observationToResponse(rec ObservationEvent) observationResponse {
	return observationResponse{
		ID:          rec.ID,
		SessionID:   rec.SessionID,
		Line:        rec.Line,
		StageID:     rec.StageID,
		ParameterID: rec.ParameterID,
		TimeSlot:    rec.TimeSlot,
		Previous:    rec.Previous.Reading(),
		Value:       rec.NewValue.Reading(),
		Applied:     rec.Applied,
		Status:      rec.Status,
		Samples:     map[string]any(rec.Samples),
		Operator:    rec.Operator,
		Station:     rec.Station,
		RequestID:   rec.RequestID,
		CreatedAt:   rec.CreatedAt.Format(time.RFC3339),
	}
}

func pageSizeParam(r *http.Request) int {
	pageSize := defaultPageSize
	if ps := r.URL.Query().Get("pageSize"); ps != "" {
		if v, err := strconv.Atoi(ps); err == nil && v > 0 {
			pageSize = v
		}
	}
	return pageSize
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
