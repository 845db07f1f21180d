package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewStatsCmd creates the `stats` command.
func NewStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show platform-wide counts and totals",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			stats, err := cliCtx.Client.Analysis().Stats(cmd.Context())
			if err != nil {
				return err
			}
			if cliCtx.OutputFormat == "json" {
				return PrintResult(cmd, stats)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "problems:      %d\n", stats.NumProblems)
			fmt.Fprintf(out, "capabilities:  %d\n", stats.NumCapabilities)
			fmt.Fprintf(out, "resources:     %d\n", stats.NumResources)
			fmt.Fprintf(out, "gaps:          %d\n", stats.NumGaps)
			fmt.Fprintf(out, "blocked value: %s\n", formatUSD(stats.TotalBlockedResearchValue))
			return nil
		},
	}
}
