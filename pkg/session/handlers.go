package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/solarqc/ipqc-audit/pkg/checklist"
)

// CreateRequest is the body of POST /sessions.
type CreateRequest struct {
	Line   string           `json:"line"`
	Header checklist.Header `json:"header"`
}

// CreateHandler handles POST /sessions.
func CreateHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateRequest
		if !decodeBody(w, r, &req) {
			return
		}
		if req.Line == "" {
			writeError(w, http.StatusBadRequest, "line is required")
			return
		}
		sess, err := store.Create(req.Line, req.Header)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, sess)
	}
}

// ListHandler handles GET /sessions.
func ListHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items := store.List()
		writeJSON(w, http.StatusOK, map[string]any{
			"sessions": items,
			"size":     len(items),
		})
	}
}

// GetHandler handles GET /sessions/{sessionId}.
func GetHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := store.Get(chi.URLParam(r, "sessionId"))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess)
	}
}

// DeleteHandler handles DELETE /sessions/{sessionId}.
func DeleteHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Delete(chi.URLParam(r, "sessionId")); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// HeaderHandler handles PATCH /sessions/{sessionId}/header.
func HeaderHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch HeaderPatch
		if !decodeBody(w, r, &patch) {
			return
		}
		sess, err := store.UpdateHeader(chi.URLParam(r, "sessionId"), patch)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sess.Record.Header)
	}
}

// ObservationHandler handles POST /sessions/{sessionId}/observations.
// Updates naming unknown cells succeed with applied=false.
func ObservationHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var u checklist.Update
		if !decodeBody(w, r, &u) {
			return
		}
		res, err := store.Apply(r.Context(), chi.URLParam(r, "sessionId"), u)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// StatusesHandler handles GET /sessions/{sessionId}/statuses?today=YYYY-MM-DD.
func StatusesHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var cx checklist.Context
		if v := r.URL.Query().Get("today"); v != "" {
			d, err := time.ParseInLocation(time.DateOnly, v, time.Local)
			if err != nil {
				writeError(w, http.StatusBadRequest, "today must be YYYY-MM-DD")
				return
			}
			cx.Today = d
		}
		reports, err := store.Statuses(chi.URLParam(r, "sessionId"), cx)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		worst := checklist.StatusNeutral
		for _, sr := range reports {
			worst = checklist.Worst(worst, sr.Worst)
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"worst":  worst,
			"stages": reports,
		})
	}
}

func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrUnknownLine):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, ErrShapeMismatch):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrLimitReached):
		writeError(w, http.StatusTooManyRequests, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// maxBodyBytes caps request bodies; an update carries one cell.
const maxBodyBytes = 1 << 20

// decodeBody reads a JSON body of at most maxBodyBytes into v and writes the
// error response when it cannot.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
	if err == nil {
		return true
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		return false
	}
	writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
	return false
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
