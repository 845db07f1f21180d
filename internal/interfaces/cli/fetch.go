package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

// fetchPollInterval is how often `fetch run --wait` polls the server.
const fetchPollInterval = 2 * time.Second

// NewFetchCmd creates the `fetch` command group.
func NewFetchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Run and inspect literature fetches",
	}
	cmd.AddCommand(newFetchRunCmd(), newFetchStatusCmd())
	return cmd
}

func newFetchRunCmd() *cobra.Command {
	var wait bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start a source fetch on the server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			if err := cliCtx.Client.Analysis().RunFetch(cmd.Context()); err != nil {
				return err
			}
			if !wait {
				fmt.Fprintln(cmd.OutOrStdout(), "fetch started; check progress with `longmap fetch status`")
				return nil
			}

			for {
				select {
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				case <-time.After(fetchPollInterval):
				}
				status, err := cliCtx.Client.Analysis().FetchStatus(cmd.Context())
				if err != nil {
					return err
				}
				if !status.Running {
					if status.LastError != "" {
						return fmt.Errorf("fetch failed: %s", status.LastError)
					}
					return PrintResult(cmd, status)
				}
			}
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "block until the fetch finishes")
	return cmd
}

func newFetchStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the state of the last or current fetch",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			status, err := cliCtx.Client.Analysis().FetchStatus(cmd.Context())
			if err != nil {
				return err
			}
			return PrintResult(cmd, status)
		},
	}
}
