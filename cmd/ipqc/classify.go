package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/solarqc/ipqc-audit/pkg/checklist"
)

// cellFlags names one observation cell and its reading.
type cellFlags struct {
	stage   int
	param   string
	slot    string
	samples map[string]string
}

func (f *cellFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.stage, "stage", 0, "Stage id")
	cmd.Flags().StringVar(&f.param, "param", "", "Parameter id, e.g. 10-3")
	cmd.Flags().StringVar(&f.slot, "slot", "", "Time slot key, e.g. \"4 hrs\"")
	cmd.Flags().StringToStringVar(&f.samples, "sample", nil, "Sample reading label=value for grid slots (repeatable)")
	_ = cmd.MarkFlagRequired("stage")
	_ = cmd.MarkFlagRequired("param")
}

// value builds the reading: a composite when samples were given, otherwise
// the optional positional argument as a scalar.
func (f *cellFlags) value(args []string) (checklist.Value, error) {
	if len(f.samples) > 0 {
		if len(args) > 0 {
			return checklist.Value{}, fmt.Errorf("give either --sample flags or a value, not both")
		}
		return checklist.Composite(f.samples), nil
	}
	if len(args) == 0 {
		return checklist.Scalar(""), nil
	}
	return checklist.Scalar(args[0]), nil
}

func (f *cellFlags) update(args []string) (checklist.Update, error) {
	v, err := f.value(args)
	if err != nil {
		return checklist.Update{}, err
	}
	return checklist.Update{StageID: f.stage, ParameterID: f.param, TimeSlot: f.slot, Value: v}, nil
}

func newClassifyCmd(a *app) *cobra.Command {
	var (
		cell  cellFlags
		line  string
		today string
	)
	cmd := &cobra.Command{
		Use:   "classify [value]",
		Short: "Classify a reading against the catalog offline",
		Example: `  ipqc classify --line II --stage 1 --param 1-1 --slot "4 hrs" 72
  ipqc classify --line II --stage 10 --param 10-3 --slot "4 hours" --sample Sample-1=NG`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := cell.update(args)
			if err != nil {
				return err
			}
			var cx checklist.Context
			if today != "" {
				d, err := time.ParseInLocation(time.DateOnly, today, time.Local)
				if err != nil {
					return fmt.Errorf("--today must be YYYY-MM-DD")
				}
				cx.Today = d
			}
			t, err := a.template(line)
			if err != nil {
				return err
			}

			b, known := t.Dispatcher().Lookup(u.StageID, u.ParameterID, u.TimeSlot)
			res := checklist.Result{Status: checklist.StatusNeutral}
			if known {
				res = checklist.Classify(u.Value, b.Rule, cx)
			}

			if a.structured() {
				out := map[string]any{"known": known, "status": res.Status}
				if len(res.Samples) > 0 {
					out["samples"] = res.Samples
				}
				if known {
					out["binding"] = b
				}
				return printOutput(cmd.OutOrStdout(), a.format(), out)
			}

			if !known {
				fmt.Fprintf(cmd.ErrOrStderr(), "no cell %d/%s/%q on line %s\n", u.StageID, u.ParameterID, u.TimeSlot, t.Line().Name)
			}
			rows := [][]string{{"-", string(res.Status)}}
			labels := make([]string, 0, len(res.Samples))
			for l := range res.Samples {
				labels = append(labels, l)
			}
			sort.Strings(labels)
			for _, l := range labels {
				rows = append(rows, []string{l, string(res.Samples[l])})
			}
			printTable(cmd.OutOrStdout(), []string{"Sample", "Status"}, rows)
			return nil
		},
	}
	cell.register(cmd)
	cmd.Flags().StringVar(&line, "line", "", "Production line (default: first line of the catalog)")
	cmd.Flags().StringVar(&today, "today", "", "Reference date for expiry checks (YYYY-MM-DD)")
	return cmd
}
