package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/bnema/siteback/internal/app"
	"github.com/bnema/siteback/internal/domain"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one backup now",
		Long: `Run one backup of every enabled category.

The run report is printed to stdout and the command exits 0 when every
category was archived and uploaded. Otherwise the report goes to stderr
and the command exits 1.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKernel(cmd, opts, func(ctx context.Context, k *app.Kernel) error {
				result, err := k.Backup().Run(ctx, domain.RunModeManual)
				if errors.Is(err, domain.ErrRunInProgress) {
					if werr := cliWriteLine(cmd.ErrOrStderr(), cliRenderWarning("Another backup run is in progress, nothing to do")); werr != nil {
						return werr
					}
					return ErrRunFailed
				}
				if err != nil {
					return err
				}
				return printRunResult(cmd, result)
			})
		},
	}
}

func printRunResult(cmd *cobra.Command, result *domain.RunResult) error {
	if result.Succeeded() {
		return cliWriteLine(cmd.OutOrStdout(), result.Message)
	}

	if err := cliWriteLine(cmd.ErrOrStderr(), result.Message); err != nil {
		return err
	}
	return ErrRunFailed
}
