package command

import (
	"context"
	"fmt"
	"time"

	"github.com/fitsarchive/calassoc/pkg/domain"
	kframe "github.com/fitsarchive/calassoc/pkg/domain/frame/db"
	"github.com/spf13/cobra"
)

const dateLayout = "2006-01-02"

func NewRebuildCmd(with withEnv) *cobra.Command {
	var instrument, since, until string

	cmd := &cobra.Command{
		Use:   "rebuild",
		Short: "rebuild the association cache",
		Long: `Rebuild the association cache.

Without filters, everything cached is dropped and all eligible frames are
queued. With filters, only matching frames are invalidated and queued.

--since and --until take dates (YYYY-MM-DD, UTC). --until is inclusive.`,
		Args: exactArgs(0),
		RunE: with(func(ctx context.Context, env *Env, cmd *cobra.Command, args []string) error {
			filter, err := eligibleFilter(instrument, since, until)
			if err != nil {
				return err
			}
			refs, err := env.Frames.Eligible(ctx, filter)
			if err != nil {
				return err
			}

			if filter == (kframe.EligibleFilter{}) {
				if err := env.Cache.Drop(ctx); err != nil {
					return err
				}
			} else {
				ids := make([]domain.FrameID, 0, len(refs))
				for _, r := range refs {
					ids = append(ids, r.ID)
				}
				if err := env.Cache.Invalidate(ctx, ids...); err != nil {
					return err
				}
			}

			queued := 0
			for _, r := range refs {
				added, err := env.Queue.Enqueue(ctx, r.ID, r.Filename)
				if err != nil {
					return err
				}
				if added {
					queued += 1
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "eligible: %d, queued: %d\n", len(refs), queued)
			return nil
		}),
	}

	flags := cmd.Flags()
	flags.StringVar(&instrument, "instrument", "", "rebuild frames of the instrument only")
	flags.StringVar(&since, "since", "", "rebuild frames observed on or after the date")
	flags.StringVar(&until, "until", "", "rebuild frames observed on or before the date")
	return cmd
}

func eligibleFilter(instrument, since, until string) (kframe.EligibleFilter, error) {
	filter := kframe.EligibleFilter{Instrument: instrument}
	if since != "" {
		t, err := time.Parse(dateLayout, since)
		if err != nil {
			return kframe.EligibleFilter{}, usage("--since: %s", err)
		}
		filter.Since = t
	}
	if until != "" {
		t, err := time.Parse(dateLayout, until)
		if err != nil {
			return kframe.EligibleFilter{}, usage("--until: %s", err)
		}
		filter.Until = t.AddDate(0, 0, 1)
	}
	if !filter.Since.IsZero() && !filter.Until.IsZero() && !filter.Since.Before(filter.Until) {
		return kframe.EligibleFilter{}, usage("--until is before --since")
	}
	return filter, nil
}
