package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"

	"github.com/ligun0805/multisend/internal/amount"
	"github.com/ligun0805/multisend/internal/disperse"
)

func planCmd() *cobra.Command {
	var (
		assetSym string
		input    string
		from     string
	)
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Validate entries and print the dispersal summary without sending",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			asset, err := loadAsset(ctx, assetSym)
			if err != nil {
				return err
			}
			entries, err := readEntries(input, cmd.InOrStdin())
			if err != nil {
				return err
			}
			resolver, release, err := newResolver()
			if err != nil {
				return err
			}
			defer release()
			planner := newPlanner(resolver)
			out := cmd.OutOrStdout()

			if from == "" {
				plan, err := planner.BuildPlan(ctx, entries, asset, nil)
				if err != nil {
					return err
				}
				printPlan(out, &disperse.Preview{Plan: plan}, true)
				return nil
			}
			if !common.IsHexAddress(from) {
				return fmt.Errorf("--from %q is not an address", from)
			}
			contract, err := multisenderAddress()
			if err != nil {
				return err
			}
			client, err := dial(ctx)
			if err != nil {
				return err
			}
			defer client.Close()
			d := &disperse.Disperser{
				Reader:   client,
				Wallet:   watchOnly(common.HexToAddress(from)),
				Contract: contract,
				Planner:  planner,
				Log:      log,
			}
			pv, err := d.Preview(ctx, entries, asset)
			if err != nil {
				return err
			}
			printPlan(out, pv, true)
			return nil
		},
	}
	cmd.Flags().StringVarP(&assetSym, "asset", "a", "", "asset symbol (default: first registry entry)")
	cmd.Flags().StringVarP(&input, "input", "i", "-", "CSV or 'recipient, amount' lines; - for stdin")
	cmd.Flags().StringVar(&from, "from", "", "sender address for balance and allowance checks")
	return cmd
}

// printPlan writes the summary; with entries it also lists every resolved row.
func printPlan(w io.Writer, pv *disperse.Preview, entries bool) {
	plan := pv.Plan
	a := plan.Asset
	kind := "native"
	if !a.Native() {
		kind = "token " + a.Contract.Hex()
	}
	fmt.Fprintf(w, "Asset      : %s (%s)\n", a.Symbol, kind)
	fmt.Fprintf(w, "Recipients : %d\n", len(plan.Entries))
	fmt.Fprintf(w, "Total      : %s %s\n", amount.Format(plan.Total, a.Decimals), a.Symbol)
	if pv.Balance != nil {
		fmt.Fprintf(w, "Balance    : %s %s\n", amount.Format(pv.Balance, a.Decimals), a.Symbol)
	}
	if pv.Allowance != nil {
		note := ""
		if pv.NeedsApproval {
			note = " (approval needed)"
		}
		fmt.Fprintf(w, "Allowance  : %s %s%s\n", amount.Format(pv.Allowance, a.Decimals), a.Symbol, note)
	}
	if !entries {
		return
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nLINE\tRECIPIENT\tADDRESS\tAMOUNT")
	for _, e := range plan.Entries {
		line := "tip"
		if e.Line > 0 {
			line = fmt.Sprint(e.Line)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", line, e.Token, e.Address.Hex(), amount.Format(e.Amount, a.Decimals))
	}
	tw.Flush()
}

// watchOnly is a Wallet that can be previewed against but never signs.
type watchOnly common.Address

func (w watchOnly) Address() common.Address { return common.Address(w) }

func (w watchOnly) SendTransaction(context.Context, common.Address, []byte, *big.Int) (common.Hash, error) {
	return common.Hash{}, errors.New("watch-only wallet cannot sign")
}
