package catalog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	c, err := Default()
	require.NoError(t, err)
	return Router(NewHolder(c))
}

func doRequest(t *testing.T, h http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	var out map[string]any
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	}
	return w, out
}

func TestListLinesHandler(t *testing.T) {
	w, body := doRequest(t, newTestRouter(t), http.MethodGet, "/lines", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	lines := body["lines"].([]any)
	require.Len(t, lines, 2)
	first := lines[0].(map[string]any)
	assert.Equal(t, "I", first["name"])
	assert.Equal(t, "offline-laser", first["variant"])
	assert.Len(t, first["stageIds"], 30)
}

func TestListStagesHandler(t *testing.T) {
	r := newTestRouter(t)

	w, body := doRequest(t, r, http.MethodGet, "/stages?line=II", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(30), body["size"])
	first := body["stages"].([]any)[0].(map[string]any)
	assert.Equal(t, "Pre Lam Shop Floor Condition", first["name"])

	// The first declared line is the default.
	_, body = doRequest(t, r, http.MethodGet, "/stages", "")
	assert.Equal(t, "I", body["line"])

	w, body = doRequest(t, r, http.MethodGet, "/stages?line=IX", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, body["error"], "unknown production line")
}

func TestGetStageHandler(t *testing.T) {
	r := newTestRouter(t)

	w, body := doRequest(t, r, http.MethodGet, "/stages/1?line=I", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Offline Laser Cell Cutting", body["name"])
	params := body["parameters"].([]any)
	require.Len(t, params, 4)
	p := params[0].(map[string]any)
	assert.Equal(t, "text", p["rule"])
	bindings := p["bindings"].(map[string]any)
	freq := bindings["Slot laser frequency (KHz )"].(map[string]any)
	assert.Equal(t, "number", freq["widget"])
	assert.Equal(t, "kHz", freq["unit"])

	w, _ = doRequest(t, r, http.MethodGet, "/stages/27?line=II", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = doRequest(t, r, http.MethodGet, "/stages/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListBindingsHandler(t *testing.T) {
	r := newTestRouter(t)

	w, body := doRequest(t, r, http.MethodGet, "/bindings?line=II&stage=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	entries := body["bindings"].([]any)
	// 1-1 and 1-2 have two slots each, 1-3 has one.
	assert.Len(t, entries, 5)
	for _, e := range entries {
		assert.Equal(t, float64(1), e.(map[string]any)["stageId"])
	}

	w, _ = doRequest(t, r, http.MethodGet, "/bindings?stage=one", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassifyHandler(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name   string
		body   string
		code   int
		known  bool
		status string
	}{
		{
			name:   "scalar violation",
			body:   `{"line":"II","stageId":1,"parameterId":"1-1","timeSlot":"4 hrs","value":"75"}`,
			code:   http.StatusOK,
			known:  true,
			status: "violation",
		},
		{
			name:   "grid takes worst sample",
			body:   `{"line":"II","stageId":10,"parameterId":"10-3","timeSlot":"4 hours","value":{"Sample-1":"OK","Sample-2":"NG"}}`,
			code:   http.StatusOK,
			known:  true,
			status: "violation",
		},
		{
			name:   "expiry relative to today",
			body:   `{"line":"II","stageId":3,"parameterId":"3-3","timeSlot":"Expiry Date","value":"2030-01-01","today":"2031-06-01"}`,
			code:   http.StatusOK,
			known:  true,
			status: "violation",
		},
		{
			name:   "unknown parameter",
			body:   `{"line":"II","stageId":1,"parameterId":"1-99","timeSlot":"","value":"x"}`,
			code:   http.StatusOK,
			known:  false,
			status: "neutral",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, body := doRequest(t, r, http.MethodPost, "/classify", tc.body)
			require.Equal(t, tc.code, w.Code)
			assert.Equal(t, tc.known, body["known"])
			assert.Equal(t, tc.status, body["status"])
		})
	}

	w, _ := doRequest(t, r, http.MethodPost, "/classify", `{"value": 12}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = doRequest(t, r, http.MethodPost, "/classify", `{"line":"II","today":"June"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	big := `{"line":"II","stageId":1,"parameterId":"1-1","timeSlot":"4 hrs","value":"` + strings.Repeat("9", maxClassifyBytes) + `"}`
	w, body := doRequest(t, r, http.MethodPost, "/classify", big)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, body["error"], "too large")
}

func TestVersionHandler(t *testing.T) {
	w, body := doRequest(t, newTestRouter(t), http.MethodGet, "/version", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["version"], 64)
	assert.Equal(t, float64(31), body["stages"])
}
