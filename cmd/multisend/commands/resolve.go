package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func resolveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resolve <address|handle>...",
		Short: "Resolve recipients the way send does",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resolver, release, err := newResolver()
			if err != nil {
				return err
			}
			defer release()
			var firstErr error
			for _, token := range args {
				addr, err := resolver.Resolve(cmd.Context(), token)
				if err != nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%v\n", token, err)
					if firstErr == nil {
						firstErr = err
					}
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", token, addr.Hex())
			}
			return firstErr
		},
	}
}
