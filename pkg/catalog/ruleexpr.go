package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/solarqc/ipqc-audit/pkg/checklist"
)

// Rule expressions as written in the catalog:
//
//	range 20 .. 30
//	range .. 60
//	choice ("OK", "NG", "OFF") fail ("NG")
//	expiry
//	supplier
//	dimension tol 0.5
//	text
//	grid ("Line-3", "Line-4") x 6 x ("4hrs", "8hrs") of choice ("OK", "NG") fail ("NG")
//
// A numeric grid factor n stands for Sample-1 .. Sample-n. Factors combine as
// a cartesian product joined with "-".

type ruleNode struct {
	Range     *rangeNode     `  @@`
	Choice    *choiceNode    `| @@`
	Dimension *dimensionNode `| @@`
	Grid      *gridNode      `| @@`
	Expiry    bool           `| @"expiry"`
	Supplier  bool           `| @"supplier"`
	Text      bool           `| @"text"`
}

type rangeNode struct {
	Low  *float64 `"range" @Number?`
	High *float64 `".." @Number?`
}

type choiceNode struct {
	Options []string `"choice" "(" @String ("," @String)* ")"`
	Failing []string `( "fail" "(" @String ("," @String)* ")" )?`
}

type dimensionNode struct {
	Tolerance *float64 `"dimension" ( "tol" @Number )?`
}

type gridNode struct {
	Factors []*factorNode `"grid" @@ ( "x" @@ )*`
	Inner   *ruleNode     `"of" @@`
}

type factorNode struct {
	Count  *int     `  @Number`
	Labels []string `| "(" @String ("," @String)* ")"`
}

var ruleLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Number", Pattern: `[-+]?\d+(?:\.\d+)?`},
	{Name: "String", Pattern: `"(?:\\.|[^"\\])*"`},
	{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`},
	{Name: "Punct", Pattern: `\.\.|[(),]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

var ruleParser = participle.MustBuild[ruleNode](
	participle.Lexer(ruleLexer),
	participle.Unquote("String"),
	participle.Elide("Whitespace"),
)

// ParseRule compiles a rule expression. Options of failing values must be
// among the choice options.
func ParseRule(expr string) (checklist.Rule, error) {
	node, err := ruleParser.ParseString("", expr)
	if err != nil {
		return nil, err
	}
	return node.compile()
}

func (n *ruleNode) compile() (checklist.Rule, error) {
	switch {
	case n.Range != nil:
		if n.Range.Low == nil && n.Range.High == nil {
			return nil, fmt.Errorf("range needs at least one bound")
		}
		if n.Range.Low != nil && n.Range.High != nil && *n.Range.Low > *n.Range.High {
			return nil, fmt.Errorf("range low %g is above high %g", *n.Range.Low, *n.Range.High)
		}
		return checklist.Range{Low: n.Range.Low, High: n.Range.High}, nil
	case n.Choice != nil:
		for _, f := range n.Choice.Failing {
			if !containsFold(n.Choice.Options, f) {
				return nil, fmt.Errorf("failing value %q is not one of the options", f)
			}
		}
		return checklist.NewChoice(n.Choice.Options, n.Choice.Failing), nil
	case n.Dimension != nil:
		var tol float64
		if n.Dimension.Tolerance != nil {
			tol = *n.Dimension.Tolerance
		}
		if tol < 0 {
			return nil, fmt.Errorf("negative tolerance %g", tol)
		}
		return checklist.Dimension{Tolerance: tol}, nil
	case n.Grid != nil:
		return n.Grid.compile()
	case n.Expiry:
		return checklist.Expiry{}, nil
	case n.Supplier:
		return checklist.Supplier{}, nil
	default:
		return checklist.Freeform{}, nil
	}
}

func (g *gridNode) compile() (checklist.Rule, error) {
	if g.Inner.Grid != nil {
		return nil, fmt.Errorf("grids cannot be nested")
	}
	labels := []string{""}
	for _, f := range g.Factors {
		parts := f.Labels
		if f.Count != nil {
			if *f.Count < 1 {
				return nil, fmt.Errorf("sample count must be positive, got %d", *f.Count)
			}
			parts = sampleLabels(*f.Count)
		}
		next := make([]string, 0, len(labels)*len(parts))
		for _, l := range labels {
			for _, p := range parts {
				if l == "" {
					next = append(next, p)
				} else {
					next = append(next, l+"-"+p)
				}
			}
		}
		labels = next
	}
	inner, err := g.Inner.compile()
	if err != nil {
		return nil, err
	}
	return checklist.Grid{Labels: labels, Inner: inner}, nil
}

func sampleLabels(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "Sample-" + strconv.Itoa(i+1)
	}
	return out
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// Expression renders rule back into the catalog syntax. Grid labels are
// written as a single explicit factor.
func Expression(rule checklist.Rule) string {
	switch r := rule.(type) {
	case checklist.Range:
		var b strings.Builder
		b.WriteString("range")
		if r.Low != nil {
			b.WriteString(" " + formatNumber(*r.Low))
		}
		b.WriteString(" ..")
		if r.High != nil {
			b.WriteString(" " + formatNumber(*r.High))
		}
		return b.String()
	case checklist.Choice:
		s := "choice " + quoteList(r.Options)
		if failing := failingAsListed(r); len(failing) > 0 {
			s += " fail " + quoteList(failing)
		}
		return s
	case checklist.Expiry:
		return "expiry"
	case checklist.Supplier:
		return "supplier"
	case checklist.Dimension:
		if r.Tolerance == 0 {
			return "dimension"
		}
		return "dimension tol " + formatNumber(r.Tolerance)
	case checklist.Grid:
		return "grid " + quoteList(r.Labels) + " of " + Expression(r.Inner)
	default:
		return "text"
	}
}

// failingAsListed returns the failing values spelled as in the option list.
func failingAsListed(c checklist.Choice) []string {
	var out []string
	for _, o := range c.Options {
		if c.IsFailing(o) {
			out = append(out, o)
		}
	}
	return out
}

func quoteList(items []string) string {
	quoted := make([]string, len(items))
	for i, s := range items {
		quoted[i] = strconv.Quote(s)
	}
	return "(" + strings.Join(quoted, ", ") + ")"
}

func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
