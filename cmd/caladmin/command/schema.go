package command

import (
	"context"
	"fmt"

	domerr "github.com/fitsarchive/calassoc/pkg/domain/errors"
	"github.com/spf13/cobra"
)

func NewSchemaCmd(with withEnv) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "manage the database schema",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			return usage("schema needs a subcommand: upgrade or version")
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "upgrade",
			Short: "upgrade the schema to the latest version",
			Args:  exactArgs(0),
			RunE: with(func(ctx context.Context, env *Env, cmd *cobra.Command, args []string) error {
				if err := env.Schema.Upgrade(ctx); err != nil {
					return err
				}
				v, err := env.Schema.Version(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "schema version: %d\n", v)
				return nil
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "show the schema version of the database",
			Long: `Show the schema version of the database.

When the schema repository has a newer version, it is shown also and the
command fails as a permanent error, to be used as a check before deploys.`,
			Args: exactArgs(0),
			RunE: with(func(ctx context.Context, env *Env, cmd *cobra.Command, args []string) error {
				v, err := env.Schema.Version(ctx)
				if err != nil {
					return err
				}
				latest, err := env.Schema.Latest(ctx)
				if err != nil {
					return err
				}
				if v < latest {
					fmt.Fprintf(cmd.OutOrStdout(), "%d (latest: %d)\n", v, latest)
					return fmt.Errorf("%w: schema is outdated. run \"schema upgrade\"", domerr.ErrPermanent)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%d\n", v)
				return nil
			}),
		},
	)
	return cmd
}
