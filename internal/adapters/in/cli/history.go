package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bnema/siteback/internal/adapters/in/cli/ui/components"
	"github.com/bnema/siteback/internal/app"
	"github.com/bnema/siteback/internal/domain"
)

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent backup runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit <= 0 || limit > domain.MaxHistoryEntries {
				return fmt.Errorf("--limit must be between 1 and %d", domain.MaxHistoryEntries)
			}
			return withKernel(cmd, opts, func(ctx context.Context, k *app.Kernel) error {
				results, err := k.Backup().History(ctx, limit)
				if err != nil {
					return err
				}
				return printHistory(cmd, results)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of runs to show")

	return cmd
}

func printHistory(cmd *cobra.Command, results []domain.RunResult) error {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		return cliWriteLine(out, cliRenderMuted("No backup runs recorded yet"))
	}

	if err := cliWritef(out, "%s\n", cliRenderTitle(fmt.Sprintf("Last %d runs", len(results)))); err != nil {
		return err
	}
	return cliWriteLine(out, components.HistoryTable(results))
}
