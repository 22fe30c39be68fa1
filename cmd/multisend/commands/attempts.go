package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/ligun0805/multisend/internal/amount"
	"github.com/ligun0805/multisend/internal/assets"
	"github.com/ligun0805/multisend/internal/disperse"
	"github.com/ligun0805/multisend/internal/multisender"
)

func attemptsCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "List recorded transactions from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			j, err := openJournal(ctx)
			if err != nil {
				return err
			}
			if j == nil {
				return fmt.Errorf("no journal configured; set JOURNAL_PATH or --journal")
			}
			defer j.Close()

			list, err := j.Attempts(ctx, limit)
			if err != nil {
				return err
			}
			reg, err := assets.Load(ctx, settings.AssetsFile)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SUBMITTED\tKIND\tASSET\tRECIPIENTS\tSTATUS\tHASH\tDETAIL")
			for _, a := range list {
				detail := a.Detail
				if a.Kind == disperse.AttemptDispersal && a.Status == disperse.StatusConfirmed {
					ev, err := j.Event(ctx, a.Hash)
					if err != nil {
						return err
					}
					if ev != nil {
						detail = eventSummary(ev, a.Asset, reg)
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
					a.SubmittedAt.Local().Format(time.DateTime), a.Kind, a.Asset, a.Recipients, a.Status, a.Hash.Hex(), detail)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of attempts to show; 0 for all")
	return cmd
}

// eventSummary renders a recorded dispersal event; the total is shown in raw
// units when symbol is not in the registry.
func eventSummary(ev *multisender.Event, symbol string, reg *assets.Registry) string {
	total := ev.Total.String() + " units"
	if a, ok := reg.Lookup(symbol); ok {
		total = amount.Format(ev.Total, a.Decimals) + " " + a.Symbol
	}
	return fmt.Sprintf("%s event: %s to %d recipients in block %d", ev.Kind, total, ev.Recipients, ev.BlockNumber)
}
