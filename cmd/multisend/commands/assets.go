package commands

import (
	"context"
	"fmt"
	"math/big"
	"text/tabwriter"

	"github.com/ethereum/go-ethereum"
	"github.com/spf13/cobra"

	"github.com/ligun0805/multisend/internal/assets"
	"github.com/ligun0805/multisend/internal/erc20"
)

func assetsCmd() *cobra.Command {
	var verify bool
	cmd := &cobra.Command{
		Use:   "assets",
		Short: "List the asset registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			reg, err := assets.Load(ctx, settings.AssetsFile)
			if err != nil {
				return err
			}
			var client caller
			if verify {
				c, err := dial(ctx)
				if err != nil {
					return err
				}
				defer c.Close()
				client = c
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SYMBOL\tCONTRACT\tDECIMALS\tCHECK")
			for _, a := range reg.All() {
				contract, check := "native", ""
				if !a.Native() {
					contract = a.Contract.Hex()
					if client != nil {
						check = verifyToken(ctx, client, a)
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", a.Symbol, contract, a.Decimals, check)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&verify, "verify", false, "compare symbol and decimals with the token contracts")
	return cmd
}

type caller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// verifyToken reports whether the contract agrees with the registry entry.
func verifyToken(ctx context.Context, c caller, a assets.Asset) string {
	out, err := c.CallContract(ctx, ethereum.CallMsg{To: a.Contract, Data: erc20.PackDecimals()}, nil)
	if err != nil {
		return "decimals() failed: " + err.Error()
	}
	d, err := erc20.UnpackDecimals(out)
	if err != nil {
		return err.Error()
	}
	if d != a.Decimals {
		return fmt.Sprintf("MISMATCH: contract reports %d decimals", d)
	}
	out, err = c.CallContract(ctx, ethereum.CallMsg{To: a.Contract, Data: erc20.PackSymbol()}, nil)
	if err == nil {
		if sym, err := erc20.UnpackSymbol(out); err == nil && sym != a.Symbol {
			return fmt.Sprintf("ok (contract symbol %s)", sym)
		}
	}
	return "ok"
}
