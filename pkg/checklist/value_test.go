package checklist

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestValueIsImmutable(t *testing.T) {
	src := map[string]string{"Sample-1": "OK"}
	v := Composite(src)
	src["Sample-1"] = "NG"
	assert.Equal(t, "OK", v.Sample("Sample-1"))

	out := v.Samples()
	out["Sample-1"] = "NG"
	assert.Equal(t, "OK", v.Sample("Sample-1"))

	w := v.WithSample("Sample-2", "OK")
	assert.Equal(t, []string{"Sample-1"}, v.Labels())
	assert.Equal(t, []string{"Sample-1", "Sample-2"}, w.Labels())
}

func TestValueWithSamplePromotesScalar(t *testing.T) {
	v := Scalar("stale").WithSample("Sample-1", "OK")
	assert.True(t, v.IsComposite())
	assert.Equal(t, map[string]string{"Sample-1": "OK"}, v.Samples())
}

func TestValueJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want Value
	}{
		{"scalar", `"60"`, Scalar("60")},
		{"empty scalar", `""`, Scalar("")},
		{"null", `null`, Scalar("")},
		{"composite", `{"Sample-1":"OK","Sample-2":""}`, Composite(map[string]string{"Sample-1": "OK", "Sample-2": ""})},
		{"empty composite", `{}`, Composite(nil)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var got Value
			require.NoError(t, json.Unmarshal([]byte(tc.in), &got))
			assert.True(t, tc.want.Equal(got), "got %v", got)
		})
	}

	for _, bad := range []string{`42`, `true`, `["a"]`, `{"Sample-1":3}`} {
		t.Run("reject "+bad, func(t *testing.T) {
			var got Value
			assert.Error(t, json.Unmarshal([]byte(bad), &got))
		})
	}

	data, err := json.Marshal(Observation{TimeSlot: "4hrs", Value: Composite(map[string]string{"Sample-1": "OK"})})
	require.NoError(t, err)
	assert.JSONEq(t, `{"timeSlot":"4hrs","value":{"Sample-1":"OK"}}`, string(data))
}

func TestValueYAML(t *testing.T) {
	var obs []Observation
	src := "- timeSlot: Supplier\n  value: First\n- timeSlot: 4hrs\n  value:\n    Sample-1: OK\n"
	require.NoError(t, yaml.Unmarshal([]byte(src), &obs))
	require.Len(t, obs, 2)
	assert.True(t, obs[0].Value.Equal(Scalar("First")))
	assert.True(t, obs[1].Value.Equal(Composite(map[string]string{"Sample-1": "OK"})))

	out, err := yaml.Marshal(obs[1])
	require.NoError(t, err)
	assert.Contains(t, string(out), "Sample-1: OK")
}

func TestValueIsEmpty(t *testing.T) {
	assert.True(t, Scalar("").IsEmpty())
	assert.False(t, Scalar(" ").IsEmpty())
	assert.True(t, EmptyComposite([]string{"a", "b"}).IsEmpty())
	assert.False(t, EmptyComposite([]string{"a"}).WithSample("a", "x").IsEmpty())
	assert.False(t, Scalar("").Equal(Composite(nil)))
}
