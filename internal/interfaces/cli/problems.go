package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/openlongevity/longmap/pkg/client"
)

// problemTable adapts a problem listing for table output.
type problemTable []*client.Problem

func (pt problemTable) TableHeaders() []string {
	return []string{"ID", "CATEGORY", "SOURCE", "TITLE"}
}

func (pt problemTable) TableRows() [][]string {
	rows := make([][]string, 0, len(pt))
	for _, p := range pt {
		rows = append(rows, []string{p.ID, p.Category, p.Source, truncate(p.Title, 70)})
	}
	return rows
}

// NewProblemsCmd creates the `problems` command group.
func NewProblemsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "problems",
		Short: "Browse and submit research problems",
	}
	cmd.AddCommand(newProblemsListCmd(), newProblemsShowCmd(), newProblemsSubmitCmd())
	return cmd
}

func newProblemsListCmd() *cobra.Command {
	var (
		category string
		source   string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List research problems",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			problems, page, err := cliCtx.Client.Problems().List(cmd.Context(), client.ListProblemsOptions{
				Category: category,
				Source:   source,
				Limit:    limit,
			})
			if err != nil {
				return err
			}
			if err := PrintResult(cmd, problemTable(problems)); err != nil {
				return err
			}
			if page != nil && cliCtx.Verbose {
				fmt.Fprintf(cmd.OutOrStdout(), "%d of %d problems\n", len(problems), page.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "filter by hallmark category")
	cmd.Flags().StringVar(&source, "source", "", "filter by source (pubmed, clinicaltrials, biorxiv, manual)")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum problems to list")
	return cmd
}

func newProblemsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one problem and the capabilities it requires",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			p, err := cliCtx.Client.Problems().Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			caps, err := cliCtx.Client.Problems().Capabilities(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return PrintResult(cmd, struct {
				Problem      *client.Problem            `json:"problem"`
				Capabilities []client.ProblemCapability `json:"capabilities"`
			}{p, caps})
		},
	}
}

func newProblemsSubmitCmd() *cobra.Command {
	var req client.CreateProblemRequest

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a hand-curated problem",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			result, err := cliCtx.Client.Problems().Create(cmd.Context(), req)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created problem %s (category %s, %s capabilities extracted)\n",
				result.ProblemID, result.Category, strconv.Itoa(result.Capabilities))
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Title, "title", "", "problem title (required)")
	cmd.Flags().StringVar(&req.Description, "description", "", "problem description")
	cmd.Flags().StringVar(&req.Category, "category", "", "hallmark category (classified automatically when empty)")
	cmd.Flags().StringVar(&req.Source, "source", "manual", "provenance source")
	cmd.Flags().StringVar(&req.SourceID, "source-id", "", "provenance identifier")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
