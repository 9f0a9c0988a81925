package checklist

// StageDef is the catalog definition of a stage.
type StageDef struct {
	ID   int
	Name string
	// NotApplicable is the marker supplier slots of this stage treat as out
	// of service. The zero value disables it.
	NotApplicable Sentinel
	// Suppliers lists the approved suppliers offered by supplier slots.
	Suppliers []string
	Params    []ParamDef
}

// ParamDef is the catalog definition of one inspection parameter.
type ParamDef struct {
	ID         string
	Label      string
	Criteria   string
	Inspection InspectionType
	Frequency  string
	// Slots is the authoritative list of time-slot keys. It may be empty.
	Slots     []string
	Rule      Rule
	Unit      string
	Nominal   *float64
	Overrides map[string]SlotOverride
}

// SlotOverride replaces the parameter rule for a single slot.
type SlotOverride struct {
	Rule Rule
	Unit string
}

// Identity slot labels that always get their own widget regardless of the
// parameter rule.
const (
	SlotSupplier   = "Supplier"
	SlotExpiryDate = "Expiry Date"
)

// NewRecord builds an empty audit record for defs. Grid slots are seeded with
// an empty composite over the grid's sample labels; all other slots with an
// empty scalar.
func NewRecord(header Header, defs []StageDef) AuditRecord {
	rec := AuditRecord{Header: header, Stages: make([]Stage, 0, len(defs))}
	for _, sd := range defs {
		st := Stage{ID: sd.ID, Name: sd.Name, Parameters: make([]Parameter, 0, len(sd.Params))}
		for _, pd := range sd.Params {
			p := Parameter{
				ID:           pd.ID,
				Label:        pd.Label,
				Criteria:     pd.Criteria,
				Inspection:   pd.Inspection,
				Frequency:    pd.Frequency,
				Nominal:      pd.Nominal,
				Observations: make([]Observation, 0, len(pd.Slots)),
			}
			for _, slot := range pd.Slots {
				p.Observations = append(p.Observations, Observation{
					TimeSlot: slot,
					Value:    resolve(sd, pd, slot).seed(),
				})
			}
			st.Parameters = append(st.Parameters, p)
		}
		rec.Stages = append(rec.Stages, st)
	}
	return rec
}
