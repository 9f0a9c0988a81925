// Package checklist holds the IPQC audit core: observation values, the
// validation rules that classify them, the audit record and its single-cell
// update reducer, and the dispatcher that binds every observation slot to a
// widget and a rule.
package checklist

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"gopkg.in/yaml.v3"
)

// Value is the content of one observation cell. It is either a scalar string
// or a composite mapping of sample label to string. Values are immutable;
// methods that change content return a new Value.
type Value struct {
	composite bool
	text      string
	samples   map[string]string
}

// Scalar returns a plain string value.
func Scalar(s string) Value {
	return Value{text: s}
}

// Composite returns a multi-sample value. The map is copied.
func Composite(samples map[string]string) Value {
	m := make(map[string]string, len(samples))
	maps.Copy(m, samples)
	return Value{composite: true, samples: m}
}

// EmptyComposite returns a composite with every label mapped to "".
func EmptyComposite(labels []string) Value {
	m := make(map[string]string, len(labels))
	for _, l := range labels {
		m[l] = ""
	}
	return Value{composite: true, samples: m}
}

// IsComposite reports whether v holds a sample mapping.
func (v Value) IsComposite() bool { return v.composite }

// Text returns the scalar content, or "" for composites.
func (v Value) Text() string {
	if v.composite {
		return ""
	}
	return v.text
}

// Samples returns a copy of the sample mapping, or nil for scalars.
func (v Value) Samples() map[string]string {
	if !v.composite {
		return nil
	}
	m := make(map[string]string, len(v.samples))
	maps.Copy(m, v.samples)
	return m
}

// Sample returns the reading stored under label.
func (v Value) Sample(label string) string {
	return v.samples[label]
}

// Labels returns the sample labels in sorted order.
func (v Value) Labels() []string {
	return slices.Sorted(maps.Keys(v.samples))
}

// WithSample returns a composite equal to v with label set to s. A scalar
// receiver is promoted to a composite holding only that sample.
func (v Value) WithSample(label, s string) Value {
	m := v.Samples()
	if m == nil {
		m = make(map[string]string, 1)
	}
	m[label] = s
	return Value{composite: true, samples: m}
}

// IsEmpty reports whether no reading has been entered.
func (v Value) IsEmpty() bool {
	if !v.composite {
		return v.text == ""
	}
	for _, s := range v.samples {
		if s != "" {
			return false
		}
	}
	return true
}

// Equal reports whether both values have the same shape and content.
func (v Value) Equal(o Value) bool {
	if v.composite != o.composite {
		return false
	}
	if !v.composite {
		return v.text == o.text
	}
	return maps.Equal(v.samples, o.samples)
}

func (v Value) String() string {
	if !v.composite {
		return v.text
	}
	b, _ := json.Marshal(v.samples)
	return string(b)
}

// MarshalJSON encodes a scalar as a JSON string and a composite as an object.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.composite {
		if v.samples == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.samples)
	}
	return json.Marshal(v.text)
}

// UnmarshalJSON accepts either a JSON string or an object of strings.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Scalar("")
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Scalar(s)
		return nil
	case '{':
		var m map[string]string
		if err := json.Unmarshal(data, &m); err != nil {
			return fmt.Errorf("composite value must map labels to strings: %w", err)
		}
		*v = Composite(m)
		return nil
	default:
		return fmt.Errorf("observation value must be a string or an object, got %s", string(data))
	}
}

// MarshalYAML mirrors MarshalJSON.
func (v Value) MarshalYAML() (any, error) {
	if v.composite {
		return v.Samples(), nil
	}
	return v.text, nil
}

// UnmarshalYAML accepts a scalar node or a mapping node of strings.
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*v = Scalar(node.Value)
		return nil
	case yaml.MappingNode:
		var m map[string]string
		if err := node.Decode(&m); err != nil {
			return err
		}
		*v = Composite(m)
		return nil
	default:
		return fmt.Errorf("line %d: observation value must be a scalar or a mapping", node.Line)
	}
}
