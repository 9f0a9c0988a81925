package checklist

import (
	"encoding/json"
	"slices"
)

// Widget is the input affordance a slot is rendered with.
type Widget string

const (
	WidgetText     Widget = "text"
	WidgetSelect   Widget = "select"
	WidgetNumber   Widget = "number"
	WidgetGrid     Widget = "grid"
	WidgetDate     Widget = "date"
	WidgetSupplier Widget = "supplier"
)

// Binding is what the dispatcher resolves for one slot.
type Binding struct {
	Widget  Widget
	Rule    Rule
	Unit    string
	Options []string
	Samples []string
}

// Accepts reports whether v has the shape the binding expects: composites for
// grids, scalars for everything else.
func (b Binding) Accepts(v Value) bool {
	return v.IsComposite() == (b.Widget == WidgetGrid)
}

func (b Binding) seed() Value {
	if b.Widget == WidgetGrid {
		return EmptyComposite(b.Samples)
	}
	return Scalar("")
}

// MarshalJSON encodes the rule through Describe.
func (b Binding) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Widget  Widget   `json:"widget"`
		Rule    RuleInfo `json:"rule"`
		Unit    string   `json:"unit,omitempty"`
		Options []string `json:"options,omitempty"`
		Samples []string `json:"samples,omitempty"`
	}{b.Widget, Describe(b.Rule), b.Unit, b.Options, b.Samples})
}

func bind(rule Rule, unit string) Binding {
	b := Binding{Rule: rule, Unit: unit}
	switch r := rule.(type) {
	case Range, Dimension:
		b.Widget = WidgetNumber
	case Choice:
		b.Widget = WidgetSelect
		b.Options = slices.Clone(r.Options)
	case Expiry:
		b.Widget = WidgetDate
	case Supplier:
		b.Widget = WidgetSupplier
		b.Options = slices.Clone(r.Options)
	case Grid:
		b.Widget = WidgetGrid
		b.Samples = slices.Clone(r.Labels)
		if c, ok := r.Inner.(Choice); ok {
			b.Options = slices.Clone(c.Options)
		}
	default:
		b.Widget = WidgetText
		if b.Rule == nil {
			b.Rule = Freeform{}
		}
	}
	return b
}

// resolve picks the binding for one slot: identity slots first, then the
// per-slot override, then the parameter rule.
func resolve(sd StageDef, pd ParamDef, slot string) Binding {
	switch slot {
	case SlotSupplier:
		return bind(Supplier{NA: sd.NotApplicable, Options: sd.Suppliers}, "")
	case SlotExpiryDate:
		return bind(Expiry{}, "")
	}
	if o, ok := pd.Overrides[slot]; ok {
		return bind(withNominal(o.Rule, pd.Nominal), o.Unit)
	}
	return bind(withNominal(pd.Rule, pd.Nominal), pd.Unit)
}

func withNominal(rule Rule, nominal *float64) Rule {
	if nominal == nil {
		return rule
	}
	switch r := rule.(type) {
	case Dimension:
		if r.Nominal == nil {
			return r.WithNominal(*nominal)
		}
	case Grid:
		r.Inner = withNominal(r.Inner, nominal)
		return r
	}
	return rule
}

type slotKey struct {
	stage int
	param string
	slot  string
}

type paramKey struct {
	stage int
	param string
}

// Entry is one resolved slot.
type Entry struct {
	StageID     int     `json:"stageId"`
	ParameterID string  `json:"parameterId"`
	TimeSlot    string  `json:"timeSlot"`
	Binding     Binding `json:"binding"`
}

// Dispatcher maps (stage, parameter, slot) to a binding. It is built once
// from the stage definitions and is safe for concurrent use.
type Dispatcher struct {
	slots   map[slotKey]Binding
	params  map[paramKey]Binding
	entries []Entry
}

// NewDispatcher resolves every slot of defs. When a stage declares the same
// parameter id twice the first definition wins, matching the reducer.
func NewDispatcher(defs []StageDef) *Dispatcher {
	d := &Dispatcher{
		slots:  make(map[slotKey]Binding),
		params: make(map[paramKey]Binding),
	}
	for _, sd := range defs {
		for _, pd := range sd.Params {
			pk := paramKey{sd.ID, pd.ID}
			if _, dup := d.params[pk]; dup {
				continue
			}
			d.params[pk] = bind(withNominal(pd.Rule, pd.Nominal), pd.Unit)
			for _, slot := range pd.Slots {
				sk := slotKey{sd.ID, pd.ID, slot}
				if _, dup := d.slots[sk]; dup {
					continue
				}
				b := resolve(sd, pd, slot)
				d.slots[sk] = b
				d.entries = append(d.entries, Entry{StageID: sd.ID, ParameterID: pd.ID, TimeSlot: slot, Binding: b})
			}
		}
	}
	return d
}

// Lookup returns the binding for a slot. Slots the catalog does not list fall
// back to the parameter rule, so widgets that own their own sub-keys can
// still render; ok is false only when the parameter is unknown.
func (d *Dispatcher) Lookup(stageID int, parameterID, timeSlot string) (Binding, bool) {
	if b, ok := d.slots[slotKey{stageID, parameterID, timeSlot}]; ok {
		return b, true
	}
	switch timeSlot {
	case SlotSupplier, SlotExpiryDate:
		// identity slots are only bound where the catalog lists them
	default:
		if b, ok := d.params[paramKey{stageID, parameterID}]; ok {
			return b, true
		}
	}
	return Binding{}, false
}

// Classify looks up the slot and classifies v against its rule.
func (d *Dispatcher) Classify(stageID int, parameterID, timeSlot string, v Value, cx Context) (Result, bool) {
	b, ok := d.Lookup(stageID, parameterID, timeSlot)
	if !ok {
		return Result{Status: StatusNeutral}, false
	}
	return Classify(v, b.Rule, cx), true
}

// Entries returns every resolved slot in catalog order.
func (d *Dispatcher) Entries() []Entry {
	return slices.Clone(d.entries)
}

// CellReport is the classification of one observation cell.
type CellReport struct {
	ParameterID string `json:"parameterId"`
	TimeSlot    string `json:"timeSlot"`
	Result
}

// StageReport summarises the cells of one stage.
type StageReport struct {
	ID     int            `json:"id"`
	Name   string         `json:"name"`
	Worst  Status         `json:"worst"`
	Counts map[Status]int `json:"counts"`
	Cells  []CellReport   `json:"cells"`
}

// Report classifies every cell of rec, stage by stage.
func (d *Dispatcher) Report(rec AuditRecord, cx Context) []StageReport {
	out := make([]StageReport, 0, len(rec.Stages))
	for _, st := range rec.Stages {
		sr := StageReport{ID: st.ID, Name: st.Name, Worst: StatusNeutral, Counts: map[Status]int{}}
		for _, p := range st.Parameters {
			for _, o := range p.Observations {
				res, _ := d.Classify(st.ID, p.ID, o.TimeSlot, o.Value, cx)
				sr.Cells = append(sr.Cells, CellReport{ParameterID: p.ID, TimeSlot: o.TimeSlot, Result: res})
				sr.Counts[res.Status]++
				sr.Worst = Worst(sr.Worst, res.Status)
			}
		}
		out = append(out, sr)
	}
	return out
}
