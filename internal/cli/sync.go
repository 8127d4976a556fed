package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/your-org/fdsync/internal/app"
	"github.com/your-org/fdsync/pkg/dto"
)

// SyncOptions holds flags for the sync and import commands.
type SyncOptions struct {
	*RootOptions
	DryRun  bool
	Workers int
}

// NewSyncCommand creates the sync command.
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile the destination tenant group with the source",
		Long: `Reconcile the configured destination tenant group with the legacy store.

Rows missing from the destination are inserted, rows gone from the source are
deleted, configuration is merged and face logs are appended. A second run
right after a successful one changes nothing.

Example:
  fdsync sync --config /etc/fdsync/config.yaml
  fdsync sync --dry-run --workers 8`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, opts, dto.SyncRequest{DryRun: opts.DryRun, Workers: opts.Workers})
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "plan every pass without writing")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "rows processed concurrently per pass (default from config)")

	return cmd
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Copy every source row into an empty tenant group",
		Long: `Copy every source row into the destination tenant group without deleting
anything. Intended for the first migration of a tenant; rows that already
exist are left untouched.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, opts, dto.SyncRequest{Import: true, Workers: opts.Workers})
		},
	}

	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "rows processed concurrently per pass (default from config)")

	return cmd
}

func runSync(cmd *cobra.Command, opts *SyncOptions, req dto.SyncRequest) error {
	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}

	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := app.Open(ctx, cfg, logger)
	if err != nil {
		return connectExit(err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Error("close stores", "error", err)
		}
	}()

	report, runErr := a.Sync(ctx, a.Options(req))
	if report != nil {
		if err := printReport(cmd.OutOrStdout(), report); err != nil {
			return err
		}
	}
	if runErr != nil {
		return WrapExitError(ExitFailure, "sync failed", runErr)
	}
	return nil
}

// signalContext is the command context cancelled on SIGINT and SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
