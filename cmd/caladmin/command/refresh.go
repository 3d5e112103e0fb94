package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func NewRefreshCmd(with withEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh SELECTION...",
		Short: "queue frames for refresh of their associations",
		Long: `Queue frames for refresh of their associations.

SELECTION is a filename (with or without .fits / .fits.bz2), a data label
or a frame id.`,
		Args: minimumArgs(1),
		RunE: with(func(ctx context.Context, env *Env, cmd *cobra.Command, args []string) error {
			for _, selection := range args {
				f, err := env.Assoc.Resolve(ctx, selection)
				if err != nil {
					return err
				}
				added, err := env.Queue.Enqueue(ctx, f.ID, f.Filename)
				if err != nil {
					return err
				}
				if added {
					fmt.Fprintf(cmd.OutOrStdout(), "queued: %s (id = %s)\n", f.Filename, f.ID)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "already queued: %s (id = %s)\n", f.Filename, f.ID)
				}
			}
			return nil
		}),
	}
}
