package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/bnema/siteback/internal/app"
)

func newActivityCmd(opts *rootOptions) *cobra.Command {
	var lines int

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Print the last lines of the activity log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKernel(cmd, opts, func(ctx context.Context, k *app.Kernel) error {
				tail, err := k.ActivityTail(lines)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(tail) == 0 {
					return cliWriteLine(out, cliRenderMuted("Activity log is empty"))
				}
				for _, line := range tail {
					if err := cliWriteLine(out, line); err != nil {
						return err
					}
				}
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")

	return cmd
}
