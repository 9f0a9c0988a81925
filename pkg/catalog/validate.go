package catalog

import (
	"bytes"
	"fmt"
	"maps"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"gopkg.in/yaml.v3"
)

// ValidationError describes one problem with a catalog document.
type ValidationError struct {
	// Field is the path of the offending field (empty for general errors).
	Field string `json:"field,omitempty"`

	// Message describes the error.
	Message string `json:"message"`
}

// ValidationErrors is returned by Parse when the document fails validation.
type ValidationErrors struct {
	Errors []ValidationError
}

func (e *ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ve := range e.Errors {
		if ve.Field == "" {
			msgs = append(msgs, ve.Message)
			continue
		}
		msgs = append(msgs, ve.Field+": "+ve.Message)
	}
	return "invalid catalog: " + strings.Join(msgs, "; ")
}

// ValidationLayer is a single check in the validation pipeline.
type ValidationLayer struct {
	// Name identifies this layer (e.g., "yaml_parse", "strict_fields", "semantic", "rules").
	Name string

	// Critical stops the pipeline when this layer reports errors.
	Critical bool

	Check func(data []byte) []ValidationError
}

// LayerResult holds the outcome of one layer.
type LayerResult struct {
	Layer  string            `json:"layer"`
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

// ValidationResult is the outcome of running the pipeline.
type ValidationResult struct {
	Valid        bool              `json:"valid"`
	Errors       []ValidationError `json:"errors,omitempty"`
	LayerResults []LayerResult     `json:"layerResults,omitempty"`
}

// Validator runs validation layers in order.
type Validator struct {
	layers []ValidationLayer
}

// NewValidator creates an empty Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// DefaultValidator checks syntax, unknown fields, structure and rule
// expressions, in that order.
func DefaultValidator() *Validator {
	return NewValidator().
		AddLayer(YAMLParseLayer()).
		AddLayer(StrictFieldsLayer()).
		AddLayer(SemanticLayer()).
		AddLayer(RulesLayer())
}

// AddLayer appends a layer. Returns the validator for chaining.
func (v *Validator) AddLayer(layer ValidationLayer) *Validator {
	v.layers = append(v.layers, layer)
	return v
}

// Validate runs all layers against data.
func (v *Validator) Validate(data []byte) *ValidationResult {
	result := &ValidationResult{Valid: true}
	for _, layer := range v.layers {
		errs := layer.Check(data)
		result.LayerResults = append(result.LayerResults, LayerResult{
			Layer:  layer.Name,
			Valid:  len(errs) == 0,
			Errors: errs,
		})
		if len(errs) > 0 {
			result.Valid = false
			result.Errors = append(result.Errors, errs...)
			if layer.Critical {
				break
			}
		}
	}
	return result
}

// YAMLParseLayer checks that the document is well-formed YAML.
func YAMLParseLayer() ValidationLayer {
	return ValidationLayer{
		Name:     "yaml_parse",
		Critical: true,
		Check: func(data []byte) []ValidationError {
			var out any
			if err := yaml.Unmarshal(data, &out); err != nil {
				return []ValidationError{{Message: fmt.Sprintf("YAML parse error: %v", err)}}
			}
			if out == nil {
				return []ValidationError{{Message: "catalog is empty"}}
			}
			return nil
		},
	}
}

// StrictFieldsLayer rejects unknown fields.
func StrictFieldsLayer() ValidationLayer {
	return ValidationLayer{
		Name:     "strict_fields",
		Critical: true,
		Check: func(data []byte) []ValidationError {
			dec := yaml.NewDecoder(bytes.NewReader(data))
			dec.KnownFields(true)
			var f File
			if err := dec.Decode(&f); err != nil {
				return []ValidationError{{Message: fmt.Sprintf("unknown or invalid fields: %v", err)}}
			}
			return nil
		},
	}
}

// SemanticLayer checks ids, names and cross references.
func SemanticLayer() ValidationLayer {
	return ValidationLayer{
		Name: "semantic",
		Check: func(data []byte) []ValidationError {
			f, err := decodeStrict(data)
			if err != nil {
				return nil
			}
			return checkSemantics(f)
		},
	}
}

// RulesLayer compiles every rule expression and checks overrides against the
// slots they name.
func RulesLayer() ValidationLayer {
	return ValidationLayer{
		Name: "rules",
		Check: func(data []byte) []ValidationError {
			f, err := decodeStrict(data)
			if err != nil {
				return nil
			}
			return checkRules(f)
		},
	}
}

func checkSemantics(f File) []ValidationError {
	var errs []ValidationError
	add := func(field, format string, args ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, args...)})
	}

	if len(f.Lines) == 0 {
		add("lines", "at least one line is required")
	}
	lineNames := mapset.NewThreadUnsafeSet[string]()
	variants := mapset.NewThreadUnsafeSet[LineVariant](VariantStandard)
	for i, l := range f.Lines {
		field := fmt.Sprintf("lines[%d]", i)
		if l.Name == "" {
			add(field+".name", "line name is required")
		} else if !lineNames.Add(l.Name) {
			add(field+".name", "duplicate line %q", l.Name)
		}
		if !l.Variant.Valid() {
			add(field+".variant", "unknown variant %q", l.Variant)
		}
		variants.Add(l.Variant)
		if len(l.Lanes) != len(baseLanes) {
			add(field+".lanes", "expected %d lanes, got %d", len(baseLanes), len(l.Lanes))
		}
	}

	if len(f.Stages) == 0 {
		add("stages", "at least one stage is required")
	}
	type stageKey struct {
		id      int
		variant LineVariant
	}
	seen := mapset.NewThreadUnsafeSet[stageKey]()
	base := mapset.NewThreadUnsafeSet[int]()
	for _, s := range f.Stages {
		if s.Variant == "" || s.Variant == VariantStandard {
			base.Add(s.ID)
		}
	}
	for i, s := range f.Stages {
		field := fmt.Sprintf("stages[%d]", i)
		if s.ID <= 0 {
			add(field+".id", "stage id must be positive, got %d", s.ID)
		}
		v := s.Variant
		if v == "" {
			v = VariantStandard
		}
		if !v.Valid() {
			add(field+".variant", "unknown variant %q", s.Variant)
		} else if v != VariantStandard && !base.Contains(s.ID) {
			add(field+".variant", "variant stage %d has no standard stage to replace", s.ID)
		} else if !variants.Contains(v) {
			add(field+".variant", "no line uses variant %q", v)
		}
		if !seen.Add(stageKey{s.ID, v}) {
			add(field+".id", "duplicate stage id %d", s.ID)
		}
		if strings.TrimSpace(s.Name) == "" {
			add(field+".name", "stage name is required")
		}
		if s.NotApplicable != nil && s.NotApplicable.Value == "" {
			add(field+".notApplicable.value", "marker value is required")
		}

		paramIDs := mapset.NewThreadUnsafeSet[string]()
		for j, p := range s.Parameters {
			pfield := fmt.Sprintf("%s.parameters[%d]", field, j)
			if p.ID == "" {
				add(pfield+".id", "parameter id is required")
			} else if !paramIDs.Add(p.ID) {
				add(pfield+".id", "duplicate parameter id %q in stage %d", p.ID, s.ID)
			}
			if strings.TrimSpace(p.Label) == "" {
				add(pfield+".label", "parameter label is required")
			}
			slots := mapset.NewThreadUnsafeSet[string]()
			for _, slot := range p.Slots {
				if !slots.Add(slot) {
					add(pfield+".slots", "duplicate slot %q", slot)
				}
			}
		}
	}
	return errs
}

func checkRules(f File) []ValidationError {
	var errs []ValidationError
	for i, s := range f.Stages {
		for j, p := range s.Parameters {
			pfield := fmt.Sprintf("stages[%d].parameters[%d]", i, j)
			if strings.TrimSpace(p.Rule) == "" {
				errs = append(errs, ValidationError{Field: pfield + ".rule", Message: "rule is required"})
			} else if _, err := ParseRule(p.Rule); err != nil {
				errs = append(errs, ValidationError{Field: pfield + ".rule", Message: err.Error()})
			}
			slots := mapset.NewThreadUnsafeSet(p.Slots...)
			for _, slot := range slices.Sorted(maps.Keys(p.Overrides)) {
				o := p.Overrides[slot]
				ofield := fmt.Sprintf("%s.overrides[%q]", pfield, slot)
				if !slots.Contains(slot) {
					errs = append(errs, ValidationError{Field: ofield, Message: "override names a slot the parameter does not have"})
				}
				if _, err := ParseRule(o.Rule); err != nil {
					errs = append(errs, ValidationError{Field: ofield + ".rule", Message: err.Error()})
				}
			}
		}
	}
	return errs
}
