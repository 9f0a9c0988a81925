package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/solarqc/ipqc-audit/pkg/catalog"
	"github.com/solarqc/ipqc-audit/pkg/checklist"
)

func newCatalogCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the parameter catalog offline",
	}

	var line string
	lines := &cobra.Command{
		Use:   "lines",
		Short: "List production lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.loadCatalog()
			if err != nil {
				return err
			}
			if a.structured() {
				return printOutput(cmd.OutOrStdout(), a.format(), c.Lines())
			}
			rows := make([][]string, 0, len(c.Lines()))
			for _, l := range c.Lines() {
				t, err := c.Template(l.Name)
				if err != nil {
					return err
				}
				rows = append(rows, []string{l.Name, string(l.Variant), strings.Join(l.Lanes, ", "), strconv.Itoa(len(t.StageIDs()))})
			}
			printTable(cmd.OutOrStdout(), []string{"Line", "Variant", "Lanes", "Stages"}, rows)
			return nil
		},
	}

	stages := &cobra.Command{
		Use:   "stages",
		Short: "List the stages of a line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := a.template(line)
			if err != nil {
				return err
			}
			type stageRow struct {
				ID         int    `json:"id"`
				Name       string `json:"name"`
				Parameters int    `json:"parameters"`
			}
			out := make([]stageRow, 0, len(t.Stages()))
			for _, s := range t.Stages() {
				out = append(out, stageRow{ID: s.ID, Name: s.Name, Parameters: len(s.Params)})
			}
			if a.structured() {
				return printOutput(cmd.OutOrStdout(), a.format(), out)
			}
			rows := make([][]string, 0, len(out))
			for _, s := range out {
				rows = append(rows, []string{strconv.Itoa(s.ID), s.Name, strconv.Itoa(s.Parameters)})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "Name", "Parameters"}, rows)
			return nil
		},
	}

	params := &cobra.Command{
		Use:   "params <stageId>",
		Short: "List the parameters of a stage with their slots and rules",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("stage id must be an integer: %q", args[0])
			}
			t, err := a.template(line)
			if err != nil {
				return err
			}
			def, ok := t.Stage(id)
			if !ok {
				return fmt.Errorf("stage %d is not on line %s", id, t.Line().Name)
			}
			return printParams(cmd, a, t.Dispatcher(), def)
		},
	}

	lint := &cobra.Command{
		Use:   "lint <file>",
		Short: "Validate a catalog file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			res := catalog.DefaultValidator().Validate(data)
			if a.structured() {
				if err := printOutput(cmd.OutOrStdout(), a.format(), res); err != nil {
					return err
				}
			} else {
				rows := make([][]string, 0)
				for _, lr := range res.LayerResults {
					if lr.Valid {
						rows = append(rows, []string{lr.Layer, "ok", "", ""})
						continue
					}
					for _, e := range lr.Errors {
						rows = append(rows, []string{lr.Layer, "error", dash(e.Field), e.Message})
					}
				}
				printTable(cmd.OutOrStdout(), []string{"Layer", "Result", "Field", "Message"}, rows)
			}
			if !res.Valid {
				return fmt.Errorf("%s: %d validation error(s)", args[0], len(res.Errors))
			}
			return nil
		},
	}

	for _, c := range []*cobra.Command{stages, params} {
		c.Flags().StringVar(&line, "line", "", "Production line (default: first line of the catalog)")
	}

	cmd.AddCommand(lines, stages, params, lint)
	return cmd
}

// template resolves a line, defaulting to the first declared line.
func (a *app) template(line string) (*catalog.Template, error) {
	c, err := a.loadCatalog()
	if err != nil {
		return nil, err
	}
	if line == "" && len(c.Lines()) > 0 {
		line = c.Lines()[0].Name
	}
	return c.Template(line)
}

type paramRow struct {
	ID       string                       `json:"id"`
	Label    string                       `json:"label"`
	Criteria string                       `json:"criteria"`
	Rule     string                       `json:"rule"`
	Slots    map[string]checklist.Binding `json:"slots"`
	order    []string
}

func printParams(cmd *cobra.Command, a *app, d *checklist.Dispatcher, def checklist.StageDef) error {
	out := make([]paramRow, 0, len(def.Params))
	for _, p := range def.Params {
		row := paramRow{
			ID:       p.ID,
			Label:    p.Label,
			Criteria: p.Criteria,
			Rule:     catalog.Expression(p.Rule),
			Slots:    make(map[string]checklist.Binding, len(p.Slots)),
			order:    p.Slots,
		}
		for _, slot := range p.Slots {
			if b, ok := d.Lookup(def.ID, p.ID, slot); ok {
				row.Slots[slot] = b
			}
		}
		out = append(out, row)
	}

	if a.structured() {
		return printOutput(cmd.OutOrStdout(), a.format(), out)
	}

	rows := make([][]string, 0, len(out))
	for _, p := range out {
		widget := "-"
		if len(p.order) > 0 {
			widget = string(p.Slots[p.order[0]].Widget)
		}
		rows = append(rows, []string{
			p.ID,
			truncate(p.Label, 40),
			truncate(p.Criteria, 30),
			widget,
			dash(strings.Join(p.order, ", ")),
			truncate(p.Rule, 40),
		})
	}
	printTable(cmd.OutOrStdout(), []string{"ID", "Label", "Criteria", "Widget", "Slots", "Rule"}, rows)
	return nil
}
