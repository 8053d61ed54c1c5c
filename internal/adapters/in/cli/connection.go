package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/siteback/internal/app"
)

func newTestConnectionCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test-connection",
		Short: "Write, read back and delete a test object in the bucket",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKernel(cmd, opts, func(ctx context.Context, k *app.Kernel) error {
				result, err := k.Backup().TestConnection(ctx)
				if err != nil {
					return err
				}
				if !result.OK {
					if err := cliWriteLine(cmd.ErrOrStderr(), cliRenderError(result.Message)); err != nil {
						return err
					}
					return ErrRunFailed
				}
				out := cmd.OutOrStdout()
				if err := cliWriteLine(out, cliRenderSuccess(result.Message)); err != nil {
					return err
				}
				return cliWriteLine(out, cliRenderMeta("Checked at", result.CheckedAt.UTC().Format(time.RFC3339)))
			})
		},
	}
}
