// Package cli implements the command-line adapter for siteback.
// Commands build an app.Kernel and delegate to the backup service.
package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/bnema/siteback/internal/app"
	"github.com/bnema/siteback/pkg/version"
)

// ErrRunFailed is returned by the run command when the run finished FAILED.
// The report has already been printed, so callers only set the exit code.
var ErrRunFailed = errors.New("backup run failed")

type rootOptions struct {
	configPath string
}

// NewRootCmd creates the root command.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "siteback",
		Short: "Back up a website's database and content directories to S3-compatible storage",
		Long: `siteback archives a site's database dump and content directories (themes,
plugins, uploads...) into zip files, uploads each one to an S3-compatible
bucket with a signed PUT and keeps a bounded number of local copies.

Run it once with 'siteback run' (for example from cron) or keep it running
with 'siteback serve' to follow the schedule in the configuration file.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to config file (default: search /etc/siteback, ~/.config/siteback, .)")

	rootCmd.AddCommand(newRunCmd(opts))
	rootCmd.AddCommand(newServeCmd(opts))
	rootCmd.AddCommand(newHistoryCmd(opts))
	rootCmd.AddCommand(newTestConnectionCmd(opts))
	rootCmd.AddCommand(newTestNotifyCmd(opts))
	rootCmd.AddCommand(newActivityCmd(opts))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

// Execute runs the root command with build information attached.
func Execute(ctx context.Context, ver, commit, date string) error {
	version.Set(ver, commit, date)
	return NewRootCmd().ExecuteContext(ctx)
}

// withKernel builds a kernel for one command and closes it afterwards.
func withKernel(cmd *cobra.Command, opts *rootOptions, fn func(ctx context.Context, k *app.Kernel) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	kernel, err := app.NewKernel(ctx, opts.configPath)
	if err != nil {
		return err
	}
	defer func() { _ = kernel.Close() }()

	return fn(kernel.Context(ctx), kernel)
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cliWriteLine(cmd.OutOrStdout(), version.String())
		},
	}
}
