package command

import (
	"context"
	"fmt"

	"github.com/fitsarchive/calassoc/pkg/association"
	"github.com/fitsarchive/calassoc/pkg/domain"
	"github.com/fitsarchive/calassoc/pkg/utils/args"
	"github.com/spf13/cobra"
)

type calibrationJSON struct {
	ID       int64  `json:"id"`
	Filename string `json:"filename"`
	Label    string `json:"data_label"`
}

type associationJSON struct {
	Caltype      string            `json:"caltype"`
	Calibrations []calibrationJSON `json:"calibrations"`
}

type associateJSON struct {
	ID           int64             `json:"id"`
	Filename     string            `json:"filename"`
	Label        string            `json:"data_label"`
	Associations []associationJSON `json:"associations"`
}

func NewAssociateCmd(with withEnv, opts *Options) *cobra.Command {
	caltype := args.Named("caltype", domain.AsCaltype)
	var closure int

	cmd := &cobra.Command{
		Use:   "associate SELECTION",
		Short: "show calibrations associated to a frame",
		Long: `Show calibrations associated to a frame.

With --closure N, calibrations of calibrations are followed N times
(at most ` + fmt.Sprint(association.MaxClosureDepth) + `), and the whole set is listed.`,
		Args: exactArgs(1),
		RunE: with(func(ctx context.Context, env *Env, cmd *cobra.Command, args []string) error {
			var ct *domain.Caltype
			if caltype.IsSet() {
				c := caltype.Value()
				ct = &c
			}
			if closure < 0 {
				return usage("--closure should not be negative")
			}

			target, err := env.Assoc.Resolve(ctx, args[0])
			if err != nil {
				return err
			}

			if cmd.Flags().Changed("closure") {
				cals, err := env.Assoc.Closure(ctx, []domain.FrameID{target.ID}, ct, closure)
				if err != nil {
					return err
				}
				return printClosure(cmd, opts, target, cals)
			}

			assocs, err := env.Assoc.Associate(ctx, target.ID, ct)
			if err != nil {
				return err
			}
			return printAssociations(cmd, opts, target, assocs)
		}),
	}

	flags := cmd.Flags()
	flags.Var(caltype, "caltype", "show calibrations of the caltype only")
	flags.IntVar(&closure, "closure", 0, "follow calibrations of calibrations")
	return cmd
}

func calibrations(fs []domain.Frame) []calibrationJSON {
	ret := make([]calibrationJSON, 0, len(fs))
	for _, f := range fs {
		ret = append(ret, calibrationJSON{ID: int64(f.ID), Filename: f.Filename, Label: f.DataLabel()})
	}
	return ret
}

func printAssociations(cmd *cobra.Command, opts *Options, target domain.Frame, assocs []association.Association) error {
	if opts.JSON {
		out := associateJSON{
			ID:           int64(target.ID),
			Filename:     target.Filename,
			Label:        target.DataLabel(),
			Associations: []associationJSON{},
		}
		for _, a := range assocs {
			out.Associations = append(out.Associations, associationJSON{
				Caltype: string(a.Caltype), Calibrations: calibrations(a.Cals),
			})
		}
		return writeJSON(cmd.OutOrStdout(), out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s (id = %s)\n", target.Filename, target.ID)
	for _, a := range assocs {
		fmt.Fprintf(w, "  %s:\n", a.Caltype)
		if len(a.Cals) == 0 {
			fmt.Fprintln(w, "    (not found)")
		}
		for _, c := range a.Cals {
			fmt.Fprintf(w, "    %s (id = %s)\n", c.Filename, c.ID)
		}
	}
	return nil
}

func printClosure(cmd *cobra.Command, opts *Options, target domain.Frame, cals []domain.Frame) error {
	if opts.JSON {
		return writeJSON(cmd.OutOrStdout(), calibrations(cals))
	}
	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s (id = %s)\n", target.Filename, target.ID)
	for _, c := range cals {
		fmt.Fprintf(w, "  %s (id = %s)\n", c.Filename, c.ID)
	}
	return nil
}
