package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/your-org/fdsync/internal/groups"
	"github.com/your-org/fdsync/internal/models"
)

// GroupsOptions holds flags for the groups commands.
type GroupsOptions struct {
	*RootOptions
	Type string
	Yes  bool

	// groupType is falprs.type from the loaded config.
	groupType string
}

// NewGroupsCommand creates the groups command and its subcommands.
func NewGroupsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GroupsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Manage destination tenant groups",
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "list",
		Short:         "List tenant groups",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGroups(cmd, opts, func(admin groupAdmin) error {
				gs, err := admin.List(cmd.Context())
				if err != nil {
					return WrapExitError(ExitFailure, "failed to list groups", err)
				}
				return printGroups(cmd.OutOrStdout(), gs)
			})
		},
	})

	add := &cobra.Command{
		Use:   "add <name>",
		Short: "Create a tenant group seeded with default stream config",
		Example: `  fdsync groups add lobby
  fdsync groups add parking --type lprs`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withGroups(cmd, opts, func(admin groupAdmin) error {
				typ := opts.Type
				if typ == "" {
					typ = opts.groupType
				}
				t, err := groups.ParseType(typ)
				if err != nil {
					return WrapExitError(ExitCommandError, "invalid --type", err)
				}
				g, err := admin.Add(cmd.Context(), args[0], t)
				if err != nil {
					return WrapExitError(ExitFailure, "failed to add group", err)
				}
				return printGroups(cmd.OutOrStdout(), []models.TenantGroup{g})
			})
		},
	}
	add.Flags().StringVarP(&opts.Type, "type", "t", "", "group type: frs or lprs (default from falprs.type)")
	cmd.AddCommand(add)

	remove := &cobra.Command{
		Use:           "remove <id>",
		Short:         "Delete a tenant group and all of its data",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid group id", err)
			}
			if !opts.Yes {
				ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
					fmt.Sprintf("Delete tenant group %d and everything in it?", id))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "aborted")
					return nil
				}
			}
			return withGroups(cmd, opts, func(admin groupAdmin) error {
				if err := admin.Remove(cmd.Context(), id); err != nil {
					return WrapExitError(ExitFailure, "failed to remove group", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "tenant group %d removed\n", id)
				return nil
			})
		},
	}
	remove.Flags().BoolVarP(&opts.Yes, "yes", "y", false, "do not ask for confirmation")
	cmd.AddCommand(remove)

	return cmd
}

func withGroups(cmd *cobra.Command, opts *GroupsOptions, fn func(admin groupAdmin) error) error {
	cfg, logger, err := opts.load()
	if err != nil {
		return err
	}
	opts.groupType = cfg.FALPRS.Type

	admin, closeFn, err := opts.OpenGroups(cmd.Context(), cfg, logger)
	if err != nil {
		return connectExit(err)
	}
	defer func() {
		if err := closeFn(); err != nil {
			logger.Error("close destination", "error", err)
		}
	}()
	return fn(admin)
}
