package checklist

// InspectionType names how a parameter is checked. The set is open; these are
// the values the catalog ships with.
type InspectionType string

const (
	InspectionAesthetics    InspectionType = "Aesthetics"
	InspectionMeasurements  InspectionType = "Measurements"
	InspectionFunctionality InspectionType = "Functionality"
	InspectionRFIDScanner   InspectionType = "RFID Scanner"
	InspectionMachinePower  InspectionType = "Machine current power"
)

// Header holds the identifying fields of an audit.
type Header struct {
	LineNumber             string `json:"lineNumber" yaml:"lineNumber"`
	Date                   string `json:"date" yaml:"date"`
	Shift                  string `json:"shift" yaml:"shift"`
	ProductionOrderNo      string `json:"productionOrderNo" yaml:"productionOrderNo"`
	ModuleType             string `json:"moduleType" yaml:"moduleType"`
	CustomerSpecAvailable  bool   `json:"customerSpecAvailable" yaml:"customerSpecAvailable"`
	SpecificationSignedOff bool   `json:"specificationSignedOff" yaml:"specificationSignedOff"`
}

// AuditRecord is one audit session's document. Stage order is fixed by the
// catalog.
type AuditRecord struct {
	Header `yaml:",inline"`
	Stages []Stage `json:"stages" yaml:"stages"`
}

// Stage is one production stage with its parameters.
type Stage struct {
	ID         int         `json:"id" yaml:"id"`
	Name       string      `json:"name" yaml:"name"`
	Parameters []Parameter `json:"parameters" yaml:"parameters"`
}

// Parameter is one inspection item within a stage.
type Parameter struct {
	ID           string         `json:"id" yaml:"id"`
	Label        string         `json:"label" yaml:"label"`
	Criteria     string         `json:"criteria" yaml:"criteria"`
	Inspection   InspectionType `json:"typeOfInspection" yaml:"typeOfInspection"`
	Frequency    string         `json:"inspectionFrequency" yaml:"inspectionFrequency"`
	Nominal      *float64       `json:"nominal,omitempty" yaml:"nominal,omitempty"`
	Observations []Observation  `json:"observations" yaml:"observations"`
}

// Observation is one fillable cell. TimeSlot may be empty for single-slot
// parameters.
type Observation struct {
	TimeSlot string `json:"timeSlot" yaml:"timeSlot"`
	Value    Value  `json:"value" yaml:"value"`
}

// Stage returns the stage with the given id.
func (r AuditRecord) Stage(id int) (Stage, bool) {
	for _, s := range r.Stages {
		if s.ID == id {
			return s, true
		}
	}
	return Stage{}, false
}

// Parameter returns the parameter with the given id.
func (s Stage) Parameter(id string) (Parameter, bool) {
	for _, p := range s.Parameters {
		if p.ID == id {
			return p, true
		}
	}
	return Parameter{}, false
}

// Observation returns the value stored under timeSlot.
func (p Parameter) Observation(timeSlot string) (Value, bool) {
	for _, o := range p.Observations {
		if o.TimeSlot == timeSlot {
			return o.Value, true
		}
	}
	return Value{}, false
}
