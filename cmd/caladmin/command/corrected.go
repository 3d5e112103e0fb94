package command

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/fitsarchive/calassoc/pkg/ingest"
	"github.com/spf13/cobra"
)

func NewCorrectedCmd(with withEnv) *cobra.Command {
	var fields []string
	cmd := &cobra.Command{
		Use:   "corrected SELECTION --field NAME...",
		Short: "report a header correction of a frame",
		Long: `Report a header correction of a frame.

The frame is queued for refresh when any of corrected fields takes part in
association. Corrected fields are given by column names, like "gain_setting".`,
		Args: exactArgs(1),
		RunE: with(func(ctx context.Context, env *Env, cmd *cobra.Command, args []string) error {
			if len(fields) == 0 {
				return usage("--field is required")
			}
			f, err := env.Assoc.Resolve(ctx, args[0])
			if err != nil {
				return err
			}
			hook := ingest.New(env.Queue, log.New(cmd.ErrOrStderr(), "[caladmin] ", 0))
			queued, err := hook.Corrected(ctx, f.ID, f.Filename, fields)
			if err != nil {
				return err
			}
			if queued {
				fmt.Fprintf(cmd.OutOrStdout(), "queued: %s (id = %s)\n", f.Filename, f.ID)
			} else {
				fmt.Fprintf(
					cmd.OutOrStdout(), "not queued: %s (id = %s). %s do not take part in association\n",
					f.Filename, f.ID, strings.Join(fields, ", "),
				)
			}
			return nil
		}),
	}
	cmd.Flags().StringSliceVar(&fields, "field", nil, "corrected field. can be repeated")
	return cmd
}
