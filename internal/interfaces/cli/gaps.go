package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openlongevity/longmap/pkg/client"
)

type gapTable []*client.Gap

func (gt gapTable) TableHeaders() []string {
	return []string{"ID", "PRIORITY", "BLOCKED", "PROBLEMS", "IMPACT", "DESCRIPTION"}
}

func (gt gapTable) TableRows() [][]string {
	rows := make([][]string, 0, len(gt))
	for _, g := range gt {
		rows = append(rows, []string{
			g.ID,
			g.Priority,
			formatUSD(g.BlockedResearchValue),
			fmt.Sprintf("%d", g.NumBlockedProblems),
			fmt.Sprintf("%.1f", g.ImpactScore),
			truncate(g.Description, 60),
		})
	}
	return rows
}

type rankedTable []*client.RankedGap

func (rt rankedTable) TableHeaders() []string {
	return []string{"RANK", "GAP", "ATTRACTIVENESS", "LIKELIHOOD", "BLOCKED"}
}

func (rt rankedTable) TableRows() [][]string {
	rows := make([][]string, 0, len(rt))
	for i, r := range rt {
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			r.Gap.ID,
			fmt.Sprintf("%.2f", r.Prediction.AttractivenessScore),
			r.Prediction.Likelihood,
			formatUSD(r.Gap.BlockedResearchValue),
		})
	}
	return rows
}

// NewGapsCmd creates the `gaps` command group.
func NewGapsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gaps",
		Short: "Inspect capability gaps",
	}
	cmd.AddCommand(newGapsListCmd(), newGapsRankCmd())
	return cmd
}

func newGapsListCmd() *cobra.Command {
	var (
		priority   string
		minBlocked float64
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List gaps, highest impact first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			gaps, _, err := cliCtx.Client.Gaps().List(cmd.Context(), client.ListGapsOptions{
				Priority:        priority,
				MinBlockedValue: minBlocked,
				Limit:           limit,
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, gapTable(gaps))
		},
	}
	cmd.Flags().StringVar(&priority, "priority", "", "filter by priority (critical, high, medium, low)")
	cmd.Flags().Float64Var(&minBlocked, "min-blocked-value", 0, "minimum blocked research value in USD")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum gaps to list")
	return cmd
}

func newGapsRankCmd() *cobra.Command {
	var topN int

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank gaps by funding attractiveness",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			ranked, err := cliCtx.Client.Gaps().FundingPotential(cmd.Context(), topN)
			if err != nil {
				return err
			}
			return PrintResult(cmd, rankedTable(ranked))
		},
	}
	cmd.Flags().IntVar(&topN, "top", 20, "number of gaps to rank")
	return cmd
}
