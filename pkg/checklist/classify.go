package checklist

import "strings"

// Result is the classification of one observation cell. Samples is set only
// for composite values classified against a grid.
type Result struct {
	Status  Status            `json:"status"`
	Samples map[string]Status `json:"samples,omitempty"`
}

// ClassifyText classifies a single reading against rule. Sentinels are
// checked first, in order: OFF, the rule's N/A marker, then emptiness.
func ClassifyText(raw string, rule Rule, cx Context) Status {
	if rule == nil {
		rule = Freeform{}
	}
	s := strings.TrimSpace(raw)
	if strings.EqualFold(s, OffSentinel) {
		return StatusOutOfService
	}
	if na, ok := rule.(notApplicableRule); ok && na.notApplicable().Matches(s) {
		return StatusOutOfService
	}
	if s == "" {
		return StatusNeutral
	}
	return rule.check(s, cx)
}

// Classify classifies a whole cell. Composite values are only judged against
// grids: each sample is classified by the grid's inner rule and the cell takes
// the highest severity among them. A shape mismatch in either direction is
// Neutral apart from the OFF sentinel on a scalar.
func Classify(v Value, rule Rule, cx Context) Result {
	g, isGrid := rule.(Grid)
	switch {
	case isGrid && v.IsComposite():
		return classifyGrid(v, g, cx)
	case v.IsComposite():
		return Result{Status: StatusNeutral}
	default:
		return Result{Status: ClassifyText(v.Text(), rule, cx)}
	}
}

func classifyGrid(v Value, g Grid, cx Context) Result {
	res := Result{Status: StatusNeutral, Samples: make(map[string]Status, len(g.Labels))}
	for _, l := range g.Labels {
		res.Samples[l] = StatusNeutral
	}
	for _, l := range v.Labels() {
		st := ClassifyText(v.Sample(l), g.Inner, cx)
		res.Samples[l] = st
		res.Status = Worst(res.Status, st)
	}
	return res
}
