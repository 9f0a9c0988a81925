package catalog

import (
	"fmt"
	"slices"
	"strings"

	"github.com/solarqc/ipqc-audit/pkg/checklist"
)

// LineVariant selects between alternate definitions of a stage.
type LineVariant string

const (
	VariantStandard     LineVariant = "standard"
	VariantOfflineLaser LineVariant = "offline-laser"
)

// Valid reports whether v is a known variant.
func (v LineVariant) Valid() bool {
	switch v {
	case VariantStandard, VariantOfflineLaser:
		return true
	}
	return false
}

// baseLanes are the lane names the catalog is written against. Each line
// maps them onto its own lanes.
var baseLanes = []string{"Line-3", "Line-4"}

// Template is the ordered set of stage definitions for one line, with its
// dispatcher.
type Template struct {
	line       LineSpec
	version    string
	defs       []checklist.StageDef
	dispatcher *checklist.Dispatcher
}

// Template returns the template for the named line. Templates are built
// once per catalog and shared.
func (c *Catalog) Template(line string) (*Template, error) {
	t, ok := c.templates[line]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownLine, line)
	}
	return t, nil
}

func (c *Catalog) buildTemplates() {
	c.templates = make(map[string]*Template, len(c.file.Lines))
	for _, l := range c.file.Lines {
		defs := c.compose(l)
		c.templates[l.Name] = &Template{
			line:       l,
			version:    c.version,
			defs:       defs,
			dispatcher: checklist.NewDispatcher(defs),
		}
	}
}

// compose picks one definition per stage position: the line's variant where
// one exists, the standard stage otherwise.
func (c *Catalog) compose(l LineSpec) []checklist.StageDef {
	alternates := make(map[int]checklist.StageDef)
	for _, s := range c.stages {
		if s.variant != "" && s.variant != VariantStandard && s.variant == l.Variant {
			alternates[s.def.ID] = s.def
		}
	}
	var defs []checklist.StageDef
	for _, s := range c.stages {
		if s.variant != "" && s.variant != VariantStandard {
			continue
		}
		def := s.def
		if alt, ok := alternates[def.ID]; ok {
			def = alt
		}
		defs = append(defs, withLanes(def, l.Lanes))
	}
	return defs
}

// Line returns the line the template was built for.
func (t *Template) Line() LineSpec { return t.line }

// Version is the catalog version the template was built from.
func (t *Template) Version() string { return t.version }

// Stages returns the stage definitions in line order.
func (t *Template) Stages() []checklist.StageDef {
	return slices.Clone(t.defs)
}

// Stage returns the definition of one stage.
func (t *Template) Stage(id int) (checklist.StageDef, bool) {
	for _, d := range t.defs {
		if d.ID == id {
			return d, true
		}
	}
	return checklist.StageDef{}, false
}

// StageIDs returns the stage ids in line order.
func (t *Template) StageIDs() []int {
	ids := make([]int, len(t.defs))
	for i, d := range t.defs {
		ids[i] = d.ID
	}
	return ids
}

// Dispatcher returns the slot dispatcher for this line.
func (t *Template) Dispatcher() *checklist.Dispatcher { return t.dispatcher }

// NewRecord creates an empty audit record. An empty line number is filled in
// with the template's line.
func (t *Template) NewRecord(h checklist.Header) checklist.AuditRecord {
	if h.LineNumber == "" {
		h.LineNumber = t.line.Name
	}
	return checklist.NewRecord(h, t.defs)
}

func withLanes(def checklist.StageDef, lanes []string) checklist.StageDef {
	if len(lanes) != len(baseLanes) || slices.Equal(lanes, baseLanes) {
		return def
	}
	params := make([]checklist.ParamDef, len(def.Params))
	for i, p := range def.Params {
		p.Slots = renameAll(p.Slots, lanes)
		p.Rule = laneRule(p.Rule, lanes)
		if p.Overrides != nil {
			ov := make(map[string]checklist.SlotOverride, len(p.Overrides))
			for slot, o := range p.Overrides {
				o.Rule = laneRule(o.Rule, lanes)
				ov[laneLabel(slot, lanes)] = o
			}
			p.Overrides = ov
		}
		params[i] = p
	}
	def.Params = params
	return def
}

func laneRule(rule checklist.Rule, lanes []string) checklist.Rule {
	if g, ok := rule.(checklist.Grid); ok {
		g.Labels = renameAll(g.Labels, lanes)
		return g
	}
	return rule
}

func renameAll(labels, lanes []string) []string {
	out := make([]string, len(labels))
	for i, l := range labels {
		out[i] = laneLabel(l, lanes)
	}
	return out
}

func laneLabel(label string, lanes []string) string {
	for i, b := range baseLanes {
		if label == b {
			return lanes[i]
		}
		if rest, ok := strings.CutPrefix(label, b+"-"); ok {
			return lanes[i] + "-" + rest
		}
	}
	return label
}
