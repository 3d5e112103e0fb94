package command

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

type statusJSON struct {
	Pending    int              `json:"pending"`
	Deferred   int              `json:"deferred"`
	InProgress []inProgressJSON `json:"in_progress"`
	Failed     []failedJSON     `json:"failed"`
}

type inProgressJSON struct {
	Worker    string    `json:"worker"`
	FrameID   int64     `json:"frame_id"`
	Filename  string    `json:"filename"`
	StartedAt time.Time `json:"started_at"`
}

type failedJSON struct {
	FrameID  int64     `json:"frame_id"`
	Filename string    `json:"filename"`
	FailedAt time.Time `json:"failed_at"`
	Error    string    `json:"error"`
}

func NewStatusCmd(with withEnv, opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "show the refresh queue",
		Args:  exactArgs(0),
		RunE: with(func(ctx context.Context, env *Env, cmd *cobra.Command, args []string) error {
			status, err := env.Queue.Status(ctx)
			if err != nil {
				return err
			}

			if opts.JSON {
				out := statusJSON{
					Pending:    status.Pending,
					Deferred:   status.Deferred,
					InProgress: []inProgressJSON{},
					Failed:     []failedJSON{},
				}
				for _, ip := range status.InProgress {
					out.InProgress = append(out.InProgress, inProgressJSON{
						Worker: ip.Worker, FrameID: int64(ip.FrameID), Filename: ip.Filename, StartedAt: ip.StartedAt,
					})
				}
				for _, f := range status.Failed {
					out.Failed = append(out.Failed, failedJSON{
						FrameID: int64(f.FrameID), Filename: f.Filename, FailedAt: f.FailedAt, Error: f.Error,
					})
				}
				return writeJSON(cmd.OutOrStdout(), out)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "pending: %d\ndeferred: %d\n", status.Pending, status.Deferred)
			fmt.Fprintf(w, "in progress: %d\n", len(status.InProgress))
			if 0 < len(status.InProgress) {
				tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "  WORKER\tFRAME\tFILENAME\tSTARTED")
				for _, ip := range status.InProgress {
					fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", ip.Worker, ip.FrameID, ip.Filename, ip.StartedAt.Format(time.RFC3339))
				}
				tw.Flush()
			}
			fmt.Fprintf(w, "failed: %d\n", len(status.Failed))
			if 0 < len(status.Failed) {
				tw := tabwriter.NewWriter(w, 2, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "  FRAME\tFILENAME\tFAILED\tERROR")
				for _, f := range status.Failed {
					fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", f.FrameID, f.Filename, f.FailedAt.Format(time.RFC3339), f.Error)
				}
				tw.Flush()
			}
			return nil
		}),
	}
}
