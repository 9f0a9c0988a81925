package main

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

type observationEvent struct {
	ID          string         `json:"id"`
	SessionID   string         `json:"sessionId"`
	Line        string         `json:"line"`
	StageID     int            `json:"stageId"`
	ParameterID string         `json:"parameterId"`
	TimeSlot    string         `json:"timeSlot"`
	Previous    any            `json:"previous"`
	Value       any            `json:"value"`
	Applied     bool           `json:"applied"`
	Status      string         `json:"status"`
	Samples     map[string]any `json:"samples,omitempty"`
	Operator    string         `json:"operator"`
	Station     string         `json:"station,omitempty"`
	RequestID   string         `json:"requestId,omitempty"`
	CreatedAt   string         `json:"createdAt"`
}

type requestEvent struct {
	ID         string `json:"id"`
	Operator   string `json:"operator"`
	Station    string `json:"station,omitempty"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	SessionID  string `json:"sessionId,omitempty"`
	Action     string `json:"action"`
	StatusCode int    `json:"statusCode"`
	Outcome    string `json:"outcome"`
	DurationMS int64  `json:"durationMs"`
	CreatedAt  string `json:"createdAt"`
}

type page[T any] struct {
	Events        []T    `json:"events"`
	NextPageToken string `json:"nextPageToken"`
	TotalSize     int    `json:"totalSize"`
}

func newJournalCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Query the observation and request journal",
	}
	cmd.AddCommand(newJournalListCmd(a), newJournalRequestsCmd(a))
	return cmd
}

func newJournalListCmd(a *app) *cobra.Command {
	var (
		sessionID, param, op, status, token string
		stage, pageSize                     int
		applied                             bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recorded observations, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			setIf(q, "session", sessionID)
			setIf(q, "parameter", param)
			setIf(q, "operator", op)
			setIf(q, "status", status)
			setIf(q, "pageToken", token)
			if stage > 0 {
				q.Set("stage", strconv.Itoa(stage))
			}
			if pageSize > 0 {
				q.Set("pageSize", strconv.Itoa(pageSize))
			}
			if applied {
				q.Set("applied", "true")
			}

			var resp page[observationEvent]
			if err := a.client().getJSON(withQuery(apiPath("/journal/observations"), q), &resp); err != nil {
				return fmt.Errorf("failed to list observations: %w", err)
			}
			if a.structured() {
				return printOutput(cmd.OutOrStdout(), a.format(), resp)
			}
			rows := make([][]string, 0, len(resp.Events))
			for _, e := range resp.Events {
				rows = append(rows, []string{
					e.CreatedAt, truncate(e.SessionID, 8), strconv.Itoa(e.StageID), e.ParameterID,
					dash(e.TimeSlot), e.Status, strconv.FormatBool(e.Applied), e.Operator,
				})
			}
			printTable(cmd.OutOrStdout(), []string{"Time", "Session", "Stage", "Param", "Slot", "Status", "Applied", "Operator"}, rows)
			printNextPage(cmd, resp.NextPageToken, resp.TotalSize)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&sessionID, "session", "", "Filter by session id")
	f.IntVar(&stage, "stage", 0, "Filter by stage id")
	f.StringVar(&param, "param", "", "Filter by parameter id")
	f.StringVar(&op, "by-operator", "", "Filter by operator")
	f.StringVar(&status, "status", "", "Filter by status (neutral, acceptable, out-of-service, violation)")
	f.BoolVar(&applied, "applied", false, "Only updates that changed a session")
	f.IntVar(&pageSize, "page-size", 0, "Page size (server default 20, max 100)")
	f.StringVar(&token, "page-token", "", "Page token from a previous call")
	return cmd
}

func newJournalRequestsCmd(a *app) *cobra.Command {
	var (
		op, token string
		pageSize  int
	)
	cmd := &cobra.Command{
		Use:   "requests",
		Short: "List recorded session requests, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := url.Values{}
			setIf(q, "operator", op)
			setIf(q, "pageToken", token)
			if pageSize > 0 {
				q.Set("pageSize", strconv.Itoa(pageSize))
			}

			var resp page[requestEvent]
			if err := a.client().getJSON(withQuery(apiPath("/journal/requests"), q), &resp); err != nil {
				return fmt.Errorf("failed to list requests: %w", err)
			}
			if a.structured() {
				return printOutput(cmd.OutOrStdout(), a.format(), resp)
			}
			rows := make([][]string, 0, len(resp.Events))
			for _, e := range resp.Events {
				rows = append(rows, []string{
					e.CreatedAt, e.Action, e.Method, truncate(e.Path, 50),
					strconv.Itoa(e.StatusCode), e.Outcome, e.Operator,
				})
			}
			printTable(cmd.OutOrStdout(), []string{"Time", "Action", "Method", "Path", "Code", "Outcome", "Operator"}, rows)
			printNextPage(cmd, resp.NextPageToken, resp.TotalSize)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&op, "by-operator", "", "Filter by operator")
	f.IntVar(&pageSize, "page-size", 0, "Page size (server default 20, max 100)")
	f.StringVar(&token, "page-token", "", "Page token from a previous call")
	return cmd
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func withQuery(path string, q url.Values) string {
	if len(q) == 0 {
		return path
	}
	return path + "?" + q.Encode()
}

func printNextPage(cmd *cobra.Command, token string, total int) {
	if token != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d total, next page: --page-token %s\n", total, token)
	}
}
