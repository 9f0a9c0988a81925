package main

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/solarqc/ipqc-audit/pkg/checklist"
	"github.com/solarqc/ipqc-audit/pkg/session"
)

func newSessionCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"sessions"},
		Short:   "Manage audit sessions on the server",
	}
	cmd.AddCommand(
		newSessionCreateCmd(a),
		newSessionListCmd(a),
		newSessionGetCmd(a),
		newSessionSetCmd(a),
		newSessionHeaderCmd(a),
		newSessionStatusCmd(a),
		newSessionDeleteCmd(a),
	)
	return cmd
}

func sessionPath(id string, rest ...string) string {
	p := apiPath("/sessions/" + url.PathEscape(id))
	for _, r := range rest {
		p += "/" + r
	}
	return p
}

func newSessionCreateCmd(a *app) *cobra.Command {
	var (
		line   string
		header checklist.Header
	)
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Start an audit session for a line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var sess session.Session
			req := session.CreateRequest{Line: line, Header: header}
			if err := a.client().postJSON(apiPath("/sessions"), req, &sess); err != nil {
				return fmt.Errorf("failed to create session: %w", err)
			}
			if a.structured() {
				return printOutput(cmd.OutOrStdout(), a.format(), sess)
			}
			fmt.Fprintln(cmd.OutOrStdout(), sess.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&line, "line", "", "Production line")
	f.StringVar(&header.Date, "date", "", "Audit date")
	f.StringVar(&header.Shift, "shift", "", "Shift")
	f.StringVar(&header.ProductionOrderNo, "order", "", "Production order number")
	f.StringVar(&header.ModuleType, "module-type", "", "Module type")
	_ = cmd.MarkFlagRequired("line")
	return cmd
}

func newSessionListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp struct {
				Sessions []session.Summary `json:"sessions"`
				Size     int               `json:"size"`
			}
			if err := a.client().getJSON(apiPath("/sessions"), &resp); err != nil {
				return fmt.Errorf("failed to list sessions: %w", err)
			}
			if a.structured() {
				return printOutput(cmd.OutOrStdout(), a.format(), resp)
			}
			rows := make([][]string, 0, len(resp.Sessions))
			for _, s := range resp.Sessions {
				rows = append(rows, []string{
					s.ID, s.Line, dash(s.Date), dash(s.Shift), dash(s.ProductionOrderNo),
					strconv.Itoa(s.Updates), s.UpdatedAt.Local().Format(time.DateTime),
				})
			}
			printTable(cmd.OutOrStdout(), []string{"ID", "Line", "Date", "Shift", "Order", "Updates", "Updated"}, rows)
			return nil
		},
	}
}

func newSessionGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <sessionId>",
		Short: "Show a session and its record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sess session.Session
			if err := a.client().getJSON(sessionPath(args[0]), &sess); err != nil {
				return fmt.Errorf("failed to get session: %w", err)
			}
			if a.structured() {
				return printOutput(cmd.OutOrStdout(), a.format(), sess)
			}
			h := sess.Record.Header
			rows := [][]string{
				{"ID", sess.ID},
				{"Line", sess.Line},
				{"Catalog", truncate(sess.Version, 12)},
				{"Date", dash(h.Date)},
				{"Shift", dash(h.Shift)},
				{"Order", dash(h.ProductionOrderNo)},
				{"Module type", dash(h.ModuleType)},
				{"Customer spec", strconv.FormatBool(h.CustomerSpecAvailable)},
				{"Signed off", strconv.FormatBool(h.SpecificationSignedOff)},
				{"Stages", strconv.Itoa(len(sess.Record.Stages))},
				{"Updates", strconv.Itoa(sess.Updates)},
			}
			printTable(cmd.OutOrStdout(), []string{"Field", "Value"}, rows)
			return nil
		},
	}
}

func newSessionSetCmd(a *app) *cobra.Command {
	var cell cellFlags
	cmd := &cobra.Command{
		Use:   "set <sessionId> [value]",
		Short: "Record a reading in one cell",
		Example: `  ipqc session set 3f1c... --stage 1 --param 1-1 --slot "4 hrs" 58
  ipqc session set 3f1c... --stage 10 --param 10-3 --slot "4 hours" --sample Sample-1=OK`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := cell.update(args[1:])
			if err != nil {
				return err
			}
			var res session.ApplyResult
			if err := a.client().postJSON(sessionPath(args[0], "observations"), u, &res); err != nil {
				return fmt.Errorf("failed to record observation: %w", err)
			}
			if a.structured() {
				return printOutput(cmd.OutOrStdout(), a.format(), res)
			}
			if !res.Applied {
				fmt.Fprintln(cmd.ErrOrStderr(), "no such cell, session unchanged")
			}
			printTable(cmd.OutOrStdout(), []string{"Applied", "Status"}, [][]string{
				{strconv.FormatBool(res.Applied), string(res.Status)},
			})
			return nil
		},
	}
	cell.register(cmd)
	return cmd
}

func newSessionHeaderCmd(a *app) *cobra.Command {
	var (
		date, shift, order, moduleType, lineNumber string
		customerSpec, signedOff                   bool
	)
	cmd := &cobra.Command{
		Use:   "header <sessionId>",
		Short: "Update header fields; only the flags given are changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			var patch session.HeaderPatch
			if f.Changed("line-number") {
				patch.LineNumber = &lineNumber
			}
			if f.Changed("date") {
				patch.Date = &date
			}
			if f.Changed("shift") {
				patch.Shift = &shift
			}
			if f.Changed("order") {
				patch.ProductionOrderNo = &order
			}
			if f.Changed("module-type") {
				patch.ModuleType = &moduleType
			}
			if f.Changed("customer-spec") {
				patch.CustomerSpecAvailable = &customerSpec
			}
			if f.Changed("signed-off") {
				patch.SpecificationSignedOff = &signedOff
			}

			var h checklist.Header
			if err := a.client().patchJSON(sessionPath(args[0], "header"), patch, &h); err != nil {
				return fmt.Errorf("failed to update header: %w", err)
			}
			if a.structured() {
				return printOutput(cmd.OutOrStdout(), a.format(), h)
			}
			printTable(cmd.OutOrStdout(), []string{"Line", "Date", "Shift", "Order", "Module Type"}, [][]string{
				{dash(h.LineNumber), dash(h.Date), dash(h.Shift), dash(h.ProductionOrderNo), dash(h.ModuleType)},
			})
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&lineNumber, "line-number", "", "Line number as written on the sheet")
	f.StringVar(&date, "date", "", "Audit date")
	f.StringVar(&shift, "shift", "", "Shift")
	f.StringVar(&order, "order", "", "Production order number")
	f.StringVar(&moduleType, "module-type", "", "Module type")
	f.BoolVar(&customerSpec, "customer-spec", false, "Customer specification available")
	f.BoolVar(&signedOff, "signed-off", false, "Specification signed off")
	return cmd
}

func newSessionStatusCmd(a *app) *cobra.Command {
	var today string
	cmd := &cobra.Command{
		Use:   "status <sessionId>",
		Short: "Show per-stage classification of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := sessionPath(args[0], "statuses")
			if today != "" {
				path += "?today=" + url.QueryEscape(today)
			}
			var resp struct {
				Worst  checklist.Status        `json:"worst"`
				Stages []checklist.StageReport `json:"stages"`
			}
			if err := a.client().getJSON(path, &resp); err != nil {
				return fmt.Errorf("failed to get statuses: %w", err)
			}
			if a.structured() {
				return printOutput(cmd.OutOrStdout(), a.format(), resp)
			}
			rows := make([][]string, 0, len(resp.Stages))
			for _, s := range resp.Stages {
				rows = append(rows, []string{
					strconv.Itoa(s.ID),
					truncate(s.Name, 40),
					string(s.Worst),
					strconv.Itoa(s.Counts[checklist.StatusViolation]),
					strconv.Itoa(s.Counts[checklist.StatusOutOfService]),
					strconv.Itoa(s.Counts[checklist.StatusAcceptable]),
				})
			}
			printTable(cmd.OutOrStdout(), []string{"Stage", "Name", "Worst", "Violations", "Off", "Acceptable"}, rows)
			fmt.Fprintf(cmd.OutOrStdout(), "\nOverall: %s\n", resp.Worst)
			return nil
		},
	}
	cmd.Flags().StringVar(&today, "today", "", "Reference date for expiry checks (YYYY-MM-DD)")
	return cmd
}

func newSessionDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <sessionId>",
		Short: "Discard a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.client().delete(sessionPath(args[0])); err != nil {
				return fmt.Errorf("failed to delete session: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session %s deleted\n", args[0])
			return nil
		},
	}
}
