package catalog

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/solarqc/ipqc-audit/pkg/checklist"
)

// lineResponse describes a production line and its stage order.
type lineResponse struct {
	Name     string      `json:"name"`
	Variant  LineVariant `json:"variant"`
	Lanes    []string    `json:"lanes"`
	StageIDs []int       `json:"stageIds"`
}

type stageSummary struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Parameters int    `json:"parameters"`
}

type stageResponse struct {
	ID            int                 `json:"id"`
	Name          string              `json:"name"`
	NotApplicable checklist.Sentinel  `json:"notApplicable"`
	Suppliers     []string            `json:"suppliers,omitempty"`
	Parameters    []parameterResponse `json:"parameters"`
}

type parameterResponse struct {
	ID         string                       `json:"id"`
	Label      string                       `json:"label"`
	Criteria   string                       `json:"criteria"`
	Inspection checklist.InspectionType     `json:"typeOfInspection"`
	Frequency  string                       `json:"inspectionFrequency,omitempty"`
	Slots      []string                     `json:"slots"`
	Rule       string                       `json:"rule"`
	Unit       string                       `json:"unit,omitempty"`
	Nominal    *float64                     `json:"nominal,omitempty"`
	Bindings   map[string]checklist.Binding `json:"bindings,omitempty"`
}

// ClassifyRequest is the body of POST /classify.
type ClassifyRequest struct {
	Line        string          `json:"line"`
	StageID     int             `json:"stageId"`
	ParameterID string          `json:"parameterId"`
	TimeSlot    string          `json:"timeSlot"`
	Value       checklist.Value `json:"value"`
	// Today overrides the reference date for expiry checks (YYYY-MM-DD).
	Today string `json:"today,omitempty"`
}

// ClassifyResponse is the outcome of POST /classify.
type ClassifyResponse struct {
	Known   bool                        `json:"known"`
	Status  checklist.Status            `json:"status"`
	Samples map[string]checklist.Status `json:"samples,omitempty"`
	Binding *checklist.Binding          `json:"binding,omitempty"`
}

// ListLinesHandler handles GET /lines.
func ListLinesHandler(h *Holder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := h.Load()
		lines := make([]lineResponse, 0, len(c.file.Lines))
		for _, l := range c.Lines() {
			t, err := c.Template(l.Name)
			if err != nil {
				continue
			}
			lines = append(lines, lineResponse{Name: l.Name, Variant: l.Variant, Lanes: l.Lanes, StageIDs: t.StageIDs()})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"lines":   lines,
			"version": c.Version(),
		})
	}
}

// ListStagesHandler handles GET /stages?line=
func ListStagesHandler(h *Holder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := templateFor(w, h.Load(), r.URL.Query().Get("line"))
		if !ok {
			return
		}
		stages := make([]stageSummary, 0, len(t.defs))
		for _, d := range t.defs {
			stages = append(stages, stageSummary{ID: d.ID, Name: d.Name, Parameters: len(d.Params)})
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"line":   t.line.Name,
			"stages": stages,
			"size":   len(stages),
		})
	}
}

// GetStageHandler handles GET /stages/{stageId}?line=
func GetStageHandler(h *Holder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.Atoi(chi.URLParam(r, "stageId"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "stage id must be an integer")
			return
		}
		t, ok := templateFor(w, h.Load(), r.URL.Query().Get("line"))
		if !ok {
			return
		}
		def, ok := t.Stage(id)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("stage %d not found on line %q", id, t.line.Name))
			return
		}
		writeJSON(w, http.StatusOK, stageToResponse(def, t.dispatcher))
	}
}

// ListBindingsHandler handles GET /bindings?line=&stage=
func ListBindingsHandler(h *Holder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, ok := templateFor(w, h.Load(), r.URL.Query().Get("line"))
		if !ok {
			return
		}
		entries := t.dispatcher.Entries()
		if s := r.URL.Query().Get("stage"); s != "" {
			id, err := strconv.Atoi(s)
			if err != nil {
				writeError(w, http.StatusBadRequest, "stage must be an integer")
				return
			}
			filtered := entries[:0]
			for _, e := range entries {
				if e.StageID == id {
					filtered = append(filtered, e)
				}
			}
			entries = filtered
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"line":     t.line.Name,
			"bindings": entries,
			"size":     len(entries),
		})
	}
}

const maxClassifyBytes = 1 << 20

// ClassifyHandler handles POST /classify.
func ClassifyHandler(h *Holder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ClassifyRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxClassifyBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
			return
		}
		var cx checklist.Context
		if req.Today != "" {
			d, err := time.ParseInLocation(time.DateOnly, req.Today, time.Local)
			if err != nil {
				writeError(w, http.StatusBadRequest, "today must be YYYY-MM-DD")
				return
			}
			cx.Today = d
		}
		t, ok := templateFor(w, h.Load(), req.Line)
		if !ok {
			return
		}
		b, known := t.dispatcher.Lookup(req.StageID, req.ParameterID, req.TimeSlot)
		if !known {
			writeJSON(w, http.StatusOK, ClassifyResponse{Status: checklist.StatusNeutral})
			return
		}
		res := checklist.Classify(req.Value, b.Rule, cx)
		writeJSON(w, http.StatusOK, ClassifyResponse{Known: true, Status: res.Status, Samples: res.Samples, Binding: &b})
	}
}

// VersionHandler handles GET /version.
func VersionHandler(h *Holder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c := h.Load()
		writeJSON(w, http.StatusOK, map[string]any{
			"version": c.Version(),
			"lines":   len(c.file.Lines),
			"stages":  len(c.stages),
		})
	}
}

// templateFor resolves line to a template, defaulting to the first declared
// line. It writes the error response itself.
func templateFor(w http.ResponseWriter, c *Catalog, line string) (*Template, bool) {
	if line == "" && len(c.file.Lines) > 0 {
		line = c.file.Lines[0].Name
	}
	t, err := c.Template(line)
	if err != nil {
		if errors.Is(err, ErrUnknownLine) {
			writeError(w, http.StatusNotFound, err.Error())
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return t, true
}

func stageToResponse(def checklist.StageDef, d *checklist.Dispatcher) stageResponse {
	resp := stageResponse{
		ID:            def.ID,
		Name:          def.Name,
		NotApplicable: def.NotApplicable,
		Suppliers:     def.Suppliers,
		Parameters:    make([]parameterResponse, 0, len(def.Params)),
	}
	for _, p := range def.Params {
		pr := parameterResponse{
			ID:         p.ID,
			Label:      p.Label,
			Criteria:   p.Criteria,
			Inspection: p.Inspection,
			Frequency:  p.Frequency,
			Slots:      p.Slots,
			Rule:       Expression(p.Rule),
			Unit:       p.Unit,
			Nominal:    p.Nominal,
		}
		if len(p.Slots) > 0 {
			pr.Bindings = make(map[string]checklist.Binding, len(p.Slots))
			for _, slot := range p.Slots {
				if b, ok := d.Lookup(def.ID, p.ID, slot); ok {
					pr.Bindings[slot] = b
				}
			}
		}
		resp.Parameters = append(resp.Parameters, pr)
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
