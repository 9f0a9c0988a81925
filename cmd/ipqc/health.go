package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health and readiness",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := a.client()

			var healthResp map[string]any
			if err := client.getJSON("/healthz", &healthResp); err != nil {
				return fmt.Errorf("server unreachable: %w", err)
			}

			var readyResp map[string]any
			if err := client.getJSON("/readyz", &readyResp); err != nil {
				// The server may still be loading.
				readyResp = map[string]any{"status": "unknown", "error": err.Error()}
			}

			if a.structured() {
				return printOutput(cmd.OutOrStdout(), a.format(), map[string]any{
					"health":    healthResp,
					"readiness": readyResp,
				})
			}

			status, _ := healthResp["status"].(string)
			uptime, _ := healthResp["uptime"].(string)
			ready, _ := readyResp["status"].(string)
			version := ""
			if c, ok := readyResp["catalog"].(map[string]any); ok {
				version, _ = c["version"].(string)
			}

			printTable(cmd.OutOrStdout(), []string{"Check", "Status"}, [][]string{
				{"Liveness", status},
				{"Uptime", uptime},
				{"Readiness", ready},
				{"Catalog", dash(truncate(version, 12))},
			})
			return nil
		},
	}
}
