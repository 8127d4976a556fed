// Package cli is the fdsync command tree.
package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/your-org/fdsync/internal/app"
	"github.com/your-org/fdsync/internal/config"
	"github.com/your-org/fdsync/internal/groups"
	"github.com/your-org/fdsync/internal/models"
	"github.com/your-org/fdsync/internal/observability"
)

// DefaultConfigPath is used when --config is not given.
const DefaultConfigPath = "configs/config.yaml"

// groupAdmin is what the groups commands need from the destination.
type groupAdmin interface {
	List(ctx context.Context) ([]models.TenantGroup, error)
	Add(ctx context.Context, name string, t groups.Type) (models.TenantGroup, error)
	Remove(ctx context.Context, id int64) error
}

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	Verbose    bool

	// OpenGroups overrides how the groups commands reach the destination (for testing).
	OpenGroups func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (groupAdmin, func() error, error)
}

// NewRootCommand creates the root command for the fdsync CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{OpenGroups: openGroups}

	cmd := &cobra.Command{
		Use:   "fdsync",
		Short: "Reconcile the legacy face recognition store into its PostgreSQL successor",
		Long: `fdsync copies video streams, face descriptors, special groups, their links,
configuration and face logs from the legacy MySQL store into one tenant group
of the PostgreSQL destination. Repeated runs converge: only the difference
between the two stores is written.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", DefaultConfigPath, "path to config file")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewGroupsCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// load reads the configuration and installs the default logger.
func (o *RootOptions) load() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	level := cfg.Logging.Level
	if o.Verbose {
		level = "debug"
	}
	return cfg, observability.SetupLogger(level, cfg.Logging.Format), nil
}

func openGroups(ctx context.Context, cfg *config.Config, logger *slog.Logger) (groupAdmin, func() error, error) {
	a, err := app.OpenDestination(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	return a.Groups(), a.Close, nil
}
