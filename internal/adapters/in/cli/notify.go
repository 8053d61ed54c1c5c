package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/bnema/siteback/internal/app"
)

func newTestNotifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "test-notify",
		Short: "Send a sample report with the configured mail settings",
		Long: `Send a sample backup report to notify.to using the configured SMTP server.

The mail is sent even when notify.enabled is false or notify.on would
skip a successful run, so the settings can be checked before enabling them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKernel(cmd, opts, func(ctx context.Context, k *app.Kernel) error {
				if err := k.Backup().TestNotification(ctx); err != nil {
					if werr := cliWriteLine(cmd.ErrOrStderr(), cliRenderError("Test notification failed: "+err.Error())); werr != nil {
						return werr
					}
					return ErrRunFailed
				}
				return cliWriteLine(cmd.OutOrStdout(), cliRenderSuccess("Test notification sent"))
			})
		},
	}
}
