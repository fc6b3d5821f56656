package client

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/spf13/cobra"
)

// Stats summarizes the tenant's documents per status.
type Stats struct {
	Total    int64            `json:"total"`
	Projects int64            `json:"projects"`
	ByStatus map[string]int64 `json:"by_status"`
}

// StatusCmd creates the status command.
func StatusCmd() *cobra.Command {
	var errorsLimit int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show pipeline status for the current tenant",
		Long:  "Shows document counts per status and the most recent failures.",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			statsPath, err := api.tenantPath("/stats")
			if err != nil {
				return err
			}

			resp, err := api.Get(statsPath)
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}
			var stats Stats
			if err := resp.Decode(&stats); err != nil {
				return err
			}

			var failures []Document
			if errorsLimit > 0 {
				errorsPath, _ := api.tenantPath("/errors")
				resp, err := api.Get(errorsPath + "?" + url.Values{"limit": {strconv.Itoa(errorsLimit)}}.Encode())
				if err != nil {
					return fmt.Errorf("failed to get errors: %w", err)
				}
				if err := resp.Decode(&failures); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			if wantsJSON(cmd) {
				return printJSON(out, map[string]any{"stats": stats, "errors": failures})
			}

			fmt.Fprintf(out, "Projects:  %d\n", stats.Projects)
			fmt.Fprintf(out, "Documents: %d\n", stats.Total)
			statuses := make([]string, 0, len(stats.ByStatus))
			for s := range stats.ByStatus {
				statuses = append(statuses, s)
			}
			sort.Strings(statuses)
			for _, s := range statuses {
				fmt.Fprintf(out, "  %-16s %d\n", s, stats.ByStatus[s])
			}

			if len(failures) > 0 {
				fmt.Fprintln(out, "\nRecent errors:")
				for _, d := range failures {
					fmt.Fprintf(out, "  %s  %-8s %s: %s\n", d.ID, d.Status, truncate(d.Name, 40), truncate(d.LastError, 80))
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&errorsLimit, "errors", 5, "Number of recent errors to show (0 to skip)")
	return cmd
}
