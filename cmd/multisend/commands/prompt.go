package commands

import (
	"bufio"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/ligun0805/multisend/internal/amount"
	"github.com/ligun0805/multisend/internal/chain"
	"github.com/ligun0805/multisend/internal/erc20"
	"github.com/ligun0805/multisend/internal/multisender"
)

func readLine(r *bufio.Reader, w io.Writer, prompt string) string {
	fmt.Fprint(w, prompt)
	t, _ := r.ReadString('\n')
	return strings.TrimSpace(t)
}

func readPassword(w io.Writer, prompt string) (string, error) {
	fmt.Fprint(w, prompt)
	b, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Fprintln(w)
	if err != nil {
		return "", fmt.Errorf("read private key: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func yes(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	return s == "y" || s == "yes"
}

func stdinIsTerminal() bool { return term.IsTerminal(int(os.Stdin.Fd())) }

func methodName(data []byte) string {
	if len(data) < 4 {
		return "transfer"
	}
	if m, err := multisender.ABI.MethodById(data[:4]); err == nil {
		return m.Name
	}
	if m, err := erc20.ABI.MethodById(data[:4]); err == nil {
		return m.Name
	}
	return fmt.Sprintf("0x%x", data[:4])
}

func gwei(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return amount.Format(v, 9)
}

// confirmPrompt asks on w/r before each signature.
func confirmPrompt(r *bufio.Reader, w io.Writer, native string) func(chain.TxRequest) bool {
	return func(req chain.TxRequest) bool {
		fmt.Fprintf(w, "\nSign %s to %s\n", methodName(req.Data), req.To.Hex())
		if req.Value != nil && req.Value.Sign() > 0 {
			fmt.Fprintf(w, "  value   : %s %s\n", amount.Format(req.Value, 18), native)
		}
		fmt.Fprintf(w, "  gas     : %d\n", req.Gas)
		fmt.Fprintf(w, "  max fee : %s gwei (tip %s)\n", gwei(req.FeeCap), gwei(req.TipCap))
		return yes(readLine(r, w, "Proceed? [y/N]: "))
	}
}
