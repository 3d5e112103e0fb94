package command

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func NewRetryFailedCmd(with withEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "retry-failed",
		Short: "put failed refreshes back to the queue",
		Args:  exactArgs(0),
		RunE: with(func(ctx context.Context, env *Env, cmd *cobra.Command, args []string) error {
			n, err := env.Queue.RetryFailed(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "requeued: %d\n", n)
			return nil
		}),
	}
}
