package cli

import (
	"context"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/bnema/siteback/internal/app"
	"github.com/bnema/siteback/internal/usecase/cron"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var (
		tick   time.Duration
		runNow bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled backups until interrupted",
		Long: `Stay in the foreground and run backups on the configured schedule.

The configuration file is watched: a changed schedule takes effect without
a restart and every run reads the settings current at its start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withKernel(cmd, opts, func(ctx context.Context, k *app.Kernel) error {
				out := cmd.OutOrStdout()
				if err := cliWriteLine(cmd.ErrOrStderr(), cliRenderInfo("Scheduler running, press Ctrl+C to stop")); err != nil {
					return err
				}
				return k.Serve(ctx, app.ServeOptions{
					Tick:   tick,
					RunNow: runNow,
					OnSchedule: func(next time.Time) {
						_ = printNextRun(out, next)
					},
				})
			})
		},
	}

	cmd.Flags().DurationVar(&tick, "tick", cron.DefaultTick, "How often to check for a due backup")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Start one backup immediately, then follow the schedule")

	return cmd
}

func printNextRun(w io.Writer, next time.Time) error {
	if next.IsZero() {
		return cliWriteLine(w, cliRenderMuted("Scheduled backups are off"))
	}
	return cliWriteLine(w, cliRenderMeta("Next backup", next.UTC().Format("2006-01-02 15:04 MST")))
}
