// Package catalog loads the stage catalog: the ordered stage definitions, the
// rule expression bound to every parameter and the production lines that
// select between stage variants.
package catalog

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/solarqc/ipqc-audit/pkg/checklist"
)

const (
	// maxCatalogFileSize is the maximum accepted catalog file size (1 MiB).
	maxCatalogFileSize = 1 << 20
)

// ErrFileTooLarge is returned when a catalog file exceeds maxCatalogFileSize.
var ErrFileTooLarge = errors.New("catalog file exceeds maximum allowed size (1 MiB)")

// ErrPathTraversal is returned when a catalog file path contains path traversal.
var ErrPathTraversal = errors.New("catalog file path contains path traversal")

// ErrUnknownLine is returned when a template is requested for a line the
// catalog does not declare.
var ErrUnknownLine = errors.New("unknown production line")

//go:embed data/stages.yaml
var embedded []byte

// File is the on-disk catalog document.
type File struct {
	Lines  []LineSpec  `yaml:"lines" json:"lines"`
	Stages []StageSpec `yaml:"stages" json:"stages"`
}

// LineSpec declares a production line.
type LineSpec struct {
	Name    string      `yaml:"name" json:"name"`
	Variant LineVariant `yaml:"variant" json:"variant"`
	// Lanes replace Line-3 and Line-4 in slot and sample labels.
	Lanes []string `yaml:"lanes" json:"lanes"`
}

// StageSpec is one stage as written in the catalog.
type StageSpec struct {
	ID            int                 `yaml:"id" json:"id"`
	Name          string              `yaml:"name" json:"name"`
	Variant       LineVariant         `yaml:"variant,omitempty" json:"variant,omitempty"`
	NotApplicable *checklist.Sentinel `yaml:"notApplicable,omitempty" json:"notApplicable,omitempty"`
	Suppliers     []string            `yaml:"suppliers,omitempty" json:"suppliers,omitempty"`
	Parameters    []ParamSpec         `yaml:"parameters" json:"parameters"`
}

// ParamSpec is one parameter as written in the catalog.
type ParamSpec struct {
	ID         string                  `yaml:"id" json:"id"`
	Label      string                  `yaml:"label" json:"label"`
	Criteria   string                  `yaml:"criteria" json:"criteria"`
	Inspection string                  `yaml:"inspection" json:"inspection"`
	Frequency  string                  `yaml:"frequency,omitempty" json:"frequency,omitempty"`
	Slots      []string                `yaml:"slots" json:"slots"`
	Rule       string                  `yaml:"rule" json:"rule"`
	Unit       string                  `yaml:"unit,omitempty" json:"unit,omitempty"`
	Nominal    *float64                `yaml:"nominal,omitempty" json:"nominal,omitempty"`
	Overrides  map[string]OverrideSpec `yaml:"overrides,omitempty" json:"overrides,omitempty"`
}

// OverrideSpec replaces the parameter rule for one slot.
type OverrideSpec struct {
	Rule string `yaml:"rule" json:"rule"`
	Unit string `yaml:"unit,omitempty" json:"unit,omitempty"`
}

// Catalog is a validated, compiled catalog. It is read-only after Load.
type Catalog struct {
	file    File
	version string
	stages  []compiledStage
	lines   map[string]LineSpec

	templates map[string]*Template
}

type compiledStage struct {
	variant LineVariant
	def     checklist.StageDef
}

// Default returns the catalog compiled into the binary.
func Default() (*Catalog, error) {
	return Parse(embedded)
}

// LoadFile reads and compiles a catalog file.
func LoadFile(path string) (*Catalog, error) {
	if err := validatePath(path); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to stat %s: %w", path, err)
	}
	if info.Size() > maxCatalogFileSize {
		return nil, fmt.Errorf("catalog: %s: %w", path, ErrFileTooLarge)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: failed to read %s: %w", path, err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: %s: %w", path, err)
	}
	return c, nil
}

// Load reads a catalog document from r.
func Load(r io.Reader) (*Catalog, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxCatalogFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("catalog: read: %w", err)
	}
	if len(data) > maxCatalogFileSize {
		return nil, ErrFileTooLarge
	}
	return Parse(data)
}

// Parse validates and compiles a catalog document. Validation failures are
// reported together as *ValidationErrors.
func Parse(data []byte) (*Catalog, error) {
	result := DefaultValidator().Validate(data)
	if !result.Valid {
		return nil, &ValidationErrors{Errors: result.Errors}
	}
	f, err := decodeStrict(data)
	if err != nil {
		return nil, err
	}
	return compile(f, hashBytes(data))
}

func decodeStrict(data []byte) (File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil {
		return File{}, err
	}
	return f, nil
}

func compile(f File, version string) (*Catalog, error) {
	c := &Catalog{file: f, version: version, lines: make(map[string]LineSpec, len(f.Lines))}
	for _, l := range f.Lines {
		c.lines[l.Name] = l
	}
	for _, ss := range f.Stages {
		def := checklist.StageDef{
			ID:            ss.ID,
			Name:          ss.Name,
			NotApplicable: checklist.DefaultNotApplicable,
			Suppliers:     slices.Clone(ss.Suppliers),
			Params:        make([]checklist.ParamDef, 0, len(ss.Parameters)),
		}
		if ss.NotApplicable != nil {
			def.NotApplicable = *ss.NotApplicable
		}
		for _, ps := range ss.Parameters {
			pd, err := compileParam(def, ps)
			if err != nil {
				return nil, fmt.Errorf("stage %d parameter %s: %w", ss.ID, ps.ID, err)
			}
			def.Params = append(def.Params, pd)
		}
		c.stages = append(c.stages, compiledStage{variant: ss.Variant, def: def})
	}
	c.buildTemplates()
	return c, nil
}

func compileParam(sd checklist.StageDef, ps ParamSpec) (checklist.ParamDef, error) {
	rule, err := ParseRule(ps.Rule)
	if err != nil {
		return checklist.ParamDef{}, err
	}
	pd := checklist.ParamDef{
		ID:         ps.ID,
		Label:      ps.Label,
		Criteria:   ps.Criteria,
		Inspection: checklist.InspectionType(ps.Inspection),
		Frequency:  ps.Frequency,
		Slots:      slices.Clone(ps.Slots),
		Rule:       bindStage(rule, sd),
		Unit:       ps.Unit,
		Nominal:    ps.Nominal,
	}
	if pd.Slots == nil {
		pd.Slots = []string{}
	}
	if len(ps.Overrides) > 0 {
		pd.Overrides = make(map[string]checklist.SlotOverride, len(ps.Overrides))
		for slot, o := range ps.Overrides {
			r, err := ParseRule(o.Rule)
			if err != nil {
				return checklist.ParamDef{}, fmt.Errorf("override %q: %w", slot, err)
			}
			pd.Overrides[slot] = checklist.SlotOverride{Rule: bindStage(r, sd), Unit: o.Unit}
		}
	}
	return pd, nil
}

// bindStage fills stage-level settings into supplier rules.
func bindStage(rule checklist.Rule, sd checklist.StageDef) checklist.Rule {
	switch r := rule.(type) {
	case checklist.Supplier:
		r.NA = sd.NotApplicable
		r.Options = slices.Clone(sd.Suppliers)
		return r
	case checklist.Grid:
		r.Inner = bindStage(r.Inner, sd)
		return r
	}
	return rule
}

// Version is the SHA-256 of the source document.
func (c *Catalog) Version() string { return c.version }

// File returns the source document.
func (c *Catalog) File() File { return c.file }

// Lines returns the declared lines in catalog order.
func (c *Catalog) Lines() []LineSpec {
	return slices.Clone(c.file.Lines)
}

// Line returns the named line.
func (c *Catalog) Line(name string) (LineSpec, bool) {
	l, ok := c.lines[name]
	return l, ok
}

func validatePath(path string) error {
	cleaned := filepath.Clean(path)
	for _, part := range strings.Split(cleaned, string(filepath.Separator)) {
		if part == ".." {
			return ErrPathTraversal
		}
	}
	return nil
}

func hashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
