package commands

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ligun0805/multisend/internal/assets"
	"github.com/ligun0805/multisend/internal/chain"
	"github.com/ligun0805/multisend/internal/directory"
	"github.com/ligun0805/multisend/internal/disperse"
	"github.com/ligun0805/multisend/internal/journal"
)

func loadAsset(ctx context.Context, symbol string) (assets.Asset, error) {
	reg, err := assets.Load(ctx, settings.AssetsFile)
	if err != nil {
		return assets.Asset{}, err
	}
	if symbol == "" {
		return reg.All()[0], nil
	}
	a, ok := reg.Lookup(symbol)
	if !ok {
		return assets.Asset{}, fmt.Errorf("unknown asset %q", symbol)
	}
	return a, nil
}

func nativeSymbol(ctx context.Context) string {
	if reg, err := assets.Load(ctx, settings.AssetsFile); err == nil {
		for _, a := range reg.All() {
			if a.Native() {
				return a.Symbol
			}
		}
	}
	return "native"
}

func readEntries(path string, stdin io.Reader) ([]disperse.Entry, error) {
	if path == "" || path == "-" {
		return disperse.ReadEntries(stdin)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return disperse.ReadEntries(f)
}

func dial(ctx context.Context) (*chain.Client, error) {
	c, err := chain.Dial(ctx, settings.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial rpc: %w", err)
	}
	c.Log = log
	return c, nil
}

func chainID(ctx context.Context, c *chain.Client) (*big.Int, error) {
	if settings.ChainID > 0 {
		return big.NewInt(settings.ChainID), nil
	}
	return c.ChainID(ctx)
}

// newWallet builds the signing wallet, prompting for the key when it is not configured.
func newWallet(ctx context.Context, c *chain.Client, prompts io.Writer) (*chain.KeyWallet, error) {
	key := settings.PrivateKeyHex
	if strings.TrimSpace(key) == "" {
		if !stdinIsTerminal() {
			return nil, fmt.Errorf("PRIVATE_KEY is empty in env")
		}
		var err error
		if key, err = readPassword(prompts, "Private key (hidden): "); err != nil {
			return nil, err
		}
	}
	id, err := chainID(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	w, err := chain.NewKeyWallet(c, key, id)
	if err != nil {
		return nil, err
	}
	w.BaseFeeMul = settings.BaseFeeMul
	w.GasBufferPct = settings.GasBufferPct
	w.Log = log
	return w, nil
}

func multisenderAddress() (common.Address, error) {
	if !common.IsHexAddress(settings.MultisenderAddress) {
		return common.Address{}, fmt.Errorf("MULTISENDER_ADDRESS is not configured")
	}
	return common.HexToAddress(settings.MultisenderAddress), nil
}

// newResolver wires the directory client behind the resolution cache.
// The returned func releases the cache database.
func newResolver() (*disperse.RecipientResolver, func(), error) {
	if !common.IsHexAddress(settings.DirectoryNamespace) {
		return nil, nil, fmt.Errorf("DIRECTORY_NAMESPACE %q is not an address", settings.DirectoryNamespace)
	}
	client := directory.NewClient(settings.DirectoryURL, settings.DirectoryOrigin)
	cache := directory.NewCache(client, nil, settings.CacheTTL)
	release := func() {}
	if settings.CacheDir != "" {
		db, err := directory.OpenDB(settings.CacheDir)
		if err != nil {
			return nil, nil, fmt.Errorf("open handle cache: %w", err)
		}
		cache = directory.NewCache(client, db, settings.CacheTTL)
		release = func() { db.Close() }
	}
	cache.Log = log
	return &disperse.RecipientResolver{Directory: cache, Namespace: common.HexToAddress(settings.DirectoryNamespace)}, release, nil
}

func newPlanner(r *disperse.RecipientResolver) *disperse.Planner {
	p := &disperse.Planner{Resolver: r, Concurrency: settings.ResolveConcurrency, Log: log}
	if settings.TipRecipient != "" && settings.TipAmount != "" {
		p.Tip = &disperse.Tip{Recipient: settings.TipRecipient, Amount: settings.TipAmount}
	}
	return p
}

// openJournal returns nil when no journal path is configured.
func openJournal(ctx context.Context) (*journal.Journal, error) {
	if settings.JournalPath == "" {
		return nil, nil
	}
	return journal.Open(ctx, settings.JournalPath)
}
