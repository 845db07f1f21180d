package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlongevity/longmap/pkg/client"
)

type clusterTable []client.Cluster

func (ct clusterTable) TableHeaders() []string {
	return []string{"SIZE", "RESOURCES"}
}

func (ct clusterTable) TableRows() [][]string {
	rows := make([][]string, 0, len(ct))
	for _, c := range ct {
		names := ""
		for i, r := range c.Resources {
			if i > 0 {
				names += ", "
			}
			names += r.Name
		}
		rows = append(rows, []string{fmt.Sprintf("%d", c.Size), truncate(names, 90)})
	}
	return rows
}

// NewAnalyzeCmd creates the `analyze` command group.
func NewAnalyzeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run gap analysis and cross-entity reports",
	}
	cmd.AddCommand(newAnalyzeRunCmd(), newAnalyzeKeystonesCmd(), newAnalyzeDuplicatesCmd())
	return cmd
}

func newAnalyzeRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Re-score every capability and rewrite the gap set",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			summary, err := cliCtx.Client.Analysis().RunAnalysis(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scored %d capabilities: %d gaps open, %d closed\n",
				summary.CapabilitiesScored, summary.GapsOpen, summary.GapsClosed)
			return nil
		},
	}
}

func newAnalyzeKeystonesCmd() *cobra.Command {
	var topN int

	cmd := &cobra.Command{
		Use:   "keystones",
		Short: "Show the most widely required capabilities",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			keystones, err := cliCtx.Client.Analysis().Keystones(cmd.Context(), topN)
			if err != nil {
				return err
			}
			return PrintResult(cmd, keystones)
		},
	}
	cmd.Flags().IntVar(&topN, "top", 10, "number of capabilities to show")
	return cmd
}

func newAnalyzeDuplicatesCmd() *cobra.Command {
	var minGroups int

	cmd := &cobra.Command{
		Use:   "duplicates",
		Short: "Show clusters of near-duplicate resources",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			clusters, err := cliCtx.Client.Analysis().DuplicationClusters(cmd.Context(), minGroups)
			if err != nil {
				return err
			}
			return PrintResult(cmd, clusterTable(clusters))
		},
	}
	cmd.Flags().IntVar(&minGroups, "min-groups", 3, "minimum cluster size to report")
	return cmd
}
