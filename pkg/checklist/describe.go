package checklist

// RuleInfo is the wire description of a rule, for clients that colour inputs
// themselves.
type RuleInfo struct {
	Kind          RuleKind  `json:"kind" yaml:"kind"`
	Low           *float64  `json:"low,omitempty" yaml:"low,omitempty"`
	High          *float64  `json:"high,omitempty" yaml:"high,omitempty"`
	Options       []string  `json:"options,omitempty" yaml:"options,omitempty"`
	Failing       []string  `json:"failing,omitempty" yaml:"failing,omitempty"`
	Tolerance     *float64  `json:"tolerance,omitempty" yaml:"tolerance,omitempty"`
	Nominal       *float64  `json:"nominal,omitempty" yaml:"nominal,omitempty"`
	NotApplicable *Sentinel `json:"notApplicable,omitempty" yaml:"notApplicable,omitempty"`
	Samples       []string  `json:"samples,omitempty" yaml:"samples,omitempty"`
	Inner         *RuleInfo `json:"inner,omitempty" yaml:"inner,omitempty"`
}

// Describe flattens rule into a RuleInfo. A nil rule describes as text.
func Describe(rule Rule) RuleInfo {
	switch r := rule.(type) {
	case Range:
		return RuleInfo{Kind: KindRange, Low: r.Low, High: r.High}
	case Choice:
		return RuleInfo{Kind: KindChoice, Options: r.Options, Failing: r.Failing()}
	case Expiry:
		return RuleInfo{Kind: KindExpiry}
	case Supplier:
		info := RuleInfo{Kind: KindSupplier, Options: r.Options}
		if r.NA.Value != "" {
			na := r.NA
			info.NotApplicable = &na
		}
		return info
	case Dimension:
		tol := r.Tolerance
		return RuleInfo{Kind: KindDimension, Tolerance: &tol, Nominal: r.Nominal}
	case Grid:
		inner := Describe(r.Inner)
		return RuleInfo{Kind: KindGrid, Samples: r.Labels, Inner: &inner}
	default:
		return RuleInfo{Kind: KindText}
	}
}
