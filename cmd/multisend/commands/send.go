package commands

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ligun0805/multisend/internal/amount"
	"github.com/ligun0805/multisend/internal/disperse"
)

func sendCmd() *cobra.Command {
	var (
		assetSym  string
		input     string
		assumeYes bool
	)
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Approve if needed, disperse, and wait for confirmation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			asset, err := loadAsset(ctx, assetSym)
			if err != nil {
				return err
			}
			if input == "-" && !assumeYes {
				return fmt.Errorf("reading entries from stdin requires --yes; use --input for interactive confirmation")
			}
			entries, err := readEntries(input, cmd.InOrStdin())
			if err != nil {
				return err
			}
			contract, err := multisenderAddress()
			if err != nil {
				return err
			}
			resolver, release, err := newResolver()
			if err != nil {
				return err
			}
			defer release()

			client, err := dial(ctx)
			if err != nil {
				return err
			}
			defer client.Close()
			wallet, err := newWallet(ctx, client, out)
			if err != nil {
				return err
			}
			if !assumeYes {
				wallet.Confirm = confirmPrompt(bufio.NewReader(cmd.InOrStdin()), out, nativeSymbol(ctx))
			}

			j, err := openJournal(ctx)
			if err != nil {
				return err
			}
			var rec disperse.Recorder
			if j != nil {
				defer j.Close()
				rec = j
			}

			d := &disperse.Disperser{
				Reader:   client,
				Wallet:   wallet,
				Contract: contract,
				Planner:  newPlanner(resolver),
				Policy:   disperse.Policy{Interval: settings.PollInterval, MaxAttempts: settings.PollAttempts},
				Recorder: rec,
				Log:      log,
			}
			fmt.Fprintf(out, "Sender     : %s\n", wallet.Address().Hex())
			pv, err := d.Preview(ctx, entries, asset)
			if err != nil {
				return err
			}
			printPlan(out, pv, false)

			res, err := d.Execute(ctx, pv.Plan)
			if res != nil {
				if res.Approval != nil {
					fmt.Fprintf(out, "Approval   : %s (%s)\n", explorerLink(res.Approval.Hash.Hex()), res.Approval.Status)
				}
				if res.Dispersal != nil {
					fmt.Fprintf(out, "Dispersal  : %s (%s)\n", explorerLink(res.Dispersal.Hash.Hex()), res.Dispersal.Status)
				}
				if res.Event != nil {
					fmt.Fprintf(out, "Event      : %s dispersal of %s %s to %d recipients in block %d\n",
						res.Event.Kind, amount.Format(res.Event.Total, asset.Decimals), asset.Symbol, res.Event.Recipients, res.Event.BlockNumber)
				}
			}
			return err
		},
	}
	cmd.Flags().StringVarP(&assetSym, "asset", "a", "", "asset symbol (default: first registry entry)")
	cmd.Flags().StringVarP(&input, "input", "i", "-", "CSV or 'recipient, amount' lines; - for stdin")
	cmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "sign without asking")
	return cmd
}
