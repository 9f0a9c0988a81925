package checklist

import (
	"math"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	mapset "github.com/deckarep/golang-set/v2"
)

// RuleKind names a family of validation rules.
type RuleKind string

const (
	KindText      RuleKind = "text"
	KindRange     RuleKind = "range"
	KindChoice    RuleKind = "choice"
	KindExpiry    RuleKind = "expiry"
	KindSupplier  RuleKind = "supplier"
	KindDimension RuleKind = "dimension"
	KindGrid      RuleKind = "grid"
)

// OffSentinel marks a station that was powered down during the check.
const OffSentinel = "OFF"

// Rule is a validation rule bound to an observation slot. The set of rules
// is closed: Freeform, Range, Choice, Expiry, Supplier, Dimension and Grid.
type Rule interface {
	Kind() RuleKind
	// check classifies a trimmed, non-empty, non-sentinel reading.
	check(s string, cx Context) Status
}

// Context carries the inputs a rule needs besides the reading itself.
type Context struct {
	// Today is the reference date for expiry checks. Zero means time.Now().
	Today time.Time
}

func (cx Context) today() time.Time {
	t := cx.Today
	if t.IsZero() {
		t = time.Now()
	}
	t = t.In(time.Local)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.Local)
}

// Sentinel is a "not applicable" marker. Stages disagree on spelling and case
// sensitivity, so each stage carries its own.
type Sentinel struct {
	Value    string `json:"value" yaml:"value"`
	FoldCase bool   `json:"foldCase,omitempty" yaml:"foldCase,omitempty"`
}

// DefaultNotApplicable is the exact-match "N/A" marker.
var DefaultNotApplicable = Sentinel{Value: "N/A"}

// Matches reports whether s is the sentinel.
func (n Sentinel) Matches(s string) bool {
	if n.Value == "" {
		return false
	}
	if n.FoldCase {
		return strings.EqualFold(s, n.Value)
	}
	return s == n.Value
}

type notApplicableRule interface {
	notApplicable() Sentinel
}

// Freeform accepts any non-empty reading.
type Freeform struct{}

func (Freeform) Kind() RuleKind { return KindText }

func (Freeform) check(string, Context) Status { return StatusAcceptable }

// Range accepts decimal readings inside a closed interval. A nil bound leaves
// that side open.
type Range struct {
	Low  *float64
	High *float64
}

// Between returns the closed interval [low, high].
func Between(low, high float64) Range { return Range{Low: &low, High: &high} }

// AtMost returns the interval (-inf, high].
func AtMost(high float64) Range { return Range{High: &high} }

// AtLeast returns the interval [low, +inf).
func AtLeast(low float64) Range { return Range{Low: &low} }

func (Range) Kind() RuleKind { return KindRange }

func (r Range) check(s string, _ Context) Status {
	n, ok := parseDecimal(s)
	if !ok {
		return StatusNeutral
	}
	return r.judge(n)
}

func (r Range) judge(n float64) Status {
	if r.Low != nil && n < *r.Low {
		return StatusViolation
	}
	if r.High != nil && n > *r.High {
		return StatusViolation
	}
	return StatusAcceptable
}

// Choice is a fixed option list where some options mean failure.
type Choice struct {
	Options []string
	failing mapset.Set[string]
}

// NewChoice builds a choice rule. Failing values are matched without regard
// to case.
func NewChoice(options, failing []string) Choice {
	set := mapset.NewThreadUnsafeSet[string]()
	for _, f := range failing {
		set.Add(strings.ToUpper(f))
	}
	return Choice{Options: slices.Clone(options), failing: set}
}

func (Choice) Kind() RuleKind { return KindChoice }

// Failing returns the failing options in upper case, sorted.
func (c Choice) Failing() []string {
	if c.failing == nil {
		return nil
	}
	out := c.failing.ToSlice()
	slices.Sort(out)
	return out
}

// IsFailing reports whether s is one of the failing options.
func (c Choice) IsFailing(s string) bool {
	return c.failing != nil && c.failing.Contains(strings.ToUpper(s))
}

func (c Choice) check(s string, _ Context) Status {
	if c.IsFailing(s) {
		return StatusViolation
	}
	return StatusAcceptable
}

// Expiry flags dates strictly before today.
type Expiry struct{}

// dateLayouts are tried in order; the first is what date inputs submit.
var dateLayouts = []string{"2006-01-02", "02-01-2006", "02.01.2006", "02/01/2006"}

func (Expiry) Kind() RuleKind { return KindExpiry }

func (Expiry) check(s string, cx Context) Status {
	d, ok := parseDate(s)
	if !ok {
		return StatusAcceptable
	}
	if d.Before(cx.today()) {
		return StatusViolation
	}
	return StatusAcceptable
}

// Supplier accepts any named supplier; the stage's N/A marker is treated as
// out of service.
type Supplier struct {
	NA      Sentinel
	Options []string
}

func (Supplier) Kind() RuleKind { return KindSupplier }

func (s Supplier) notApplicable() Sentinel { return s.NA }

func (Supplier) check(string, Context) Status { return StatusAcceptable }

// Dimension is a measurement against an engineering-drawing nominal. Without
// a nominal it cannot be judged and any reading is acceptable.
type Dimension struct {
	Tolerance float64
	Nominal   *float64
}

func (Dimension) Kind() RuleKind { return KindDimension }

func (d Dimension) check(s string, cx Context) Status {
	if d.Nominal == nil {
		return StatusAcceptable
	}
	n, ok := parseDecimal(s)
	if !ok {
		return StatusNeutral
	}
	return Between(*d.Nominal-d.Tolerance, *d.Nominal+d.Tolerance).judge(n)
}

// WithNominal returns a copy of d bound to nominal.
func (d Dimension) WithNominal(nominal float64) Dimension {
	d.Nominal = &nominal
	return d
}

// Grid is a composite of samples that share one inner rule.
type Grid struct {
	Labels []string
	Inner  Rule
}

func (Grid) Kind() RuleKind { return KindGrid }

// A scalar reaching a grid is a shape mismatch; it is not judged.
func (Grid) check(string, Context) Status { return StatusNeutral }

func (g Grid) notApplicable() Sentinel {
	if na, ok := g.Inner.(notApplicableRule); ok {
		return na.notApplicable()
	}
	return Sentinel{}
}

var leadingDecimal = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// parseDecimal reads the leading decimal of s, so "61%" and "31°C" carry
// their numbers. Input with no leading number does not parse.
func parseDecimal(s string) (float64, bool) {
	lead := leadingDecimal.FindString(strings.TrimSpace(s))
	if lead == "" {
		return 0, false
	}
	n, err := strconv.ParseFloat(lead, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
