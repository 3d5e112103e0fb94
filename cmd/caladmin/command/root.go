package command

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/fitsarchive/calassoc/pkg/buildtime"
	"github.com/spf13/cobra"
)

const AppName = "caladmin"

func NewRootCmd(connect Connector) *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:           AppName,
		Short:         "administer calibration associations",
		Long:          "caladmin inspects and drives the refresh queue and the association cache.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       buildtime.VersionString(),
	}
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return usage("%s", err)
	})

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.Config, "config", os.Getenv("CALASSOC_CONFIG"), "path to config file")
	flags.StringVar(&opts.SchemaRepo, "schema-repo", os.Getenv("CALASSOC_SCHEMA"), "schema repository path")
	flags.BoolVar(&opts.JSON, "json", false, "output in JSON format")

	var with withEnv = func(f func(ctx context.Context, env *Env, cmd *cobra.Command, args []string) error) runner {
		return run(func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			env, release, err := connect(ctx, *opts)
			if err != nil {
				return err
			}
			defer release()
			return f(ctx, env, cmd, args)
		})
	}

	cmd.AddCommand(
		NewRefreshCmd(with),
		NewStatusCmd(with, opts),
		NewRebuildCmd(with),
		NewRetryFailedCmd(with),
		NewSchemaCmd(with),
		NewAssociateCmd(with, opts),
		NewCorrectedCmd(with),
	)
	return cmd
}

type withEnv func(f func(ctx context.Context, env *Env, cmd *cobra.Command, args []string) error) runner

// Execute runs caladmin and returns the exit status.
func Execute(ctx context.Context, connect Connector, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCmd(connect)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
	}
	return ExitCode(err)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return usage("%s takes %d argument(s), but got %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}

func minimumArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) < n {
			return usage("%s takes at least %d argument(s), but got %d", cmd.Name(), n, len(args))
		}
		return nil
	}
}
