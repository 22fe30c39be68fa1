// Package assets holds the static table of dispersible assets.
package assets

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

// Asset is a native coin (Contract == nil) or an ERC-20 token.
type Asset struct {
	Symbol   string
	Contract *common.Address
	Decimals uint8
}

// Native reports whether the asset is the chain's native coin.
func (a Asset) Native() bool { return a.Contract == nil }

func (a Asset) String() string {
	if a.Native() {
		return a.Symbol + " (native)"
	}
	return a.Symbol + " (" + a.Contract.Hex() + ")"
}

// Registry is an ordered, symbol-indexed list of assets.
type Registry struct {
	list []Asset
}

// Default is the Lens mainnet table.
func Default() *Registry {
	tok := func(h string) *common.Address {
		a := common.HexToAddress(h)
		return &a
	}
	r, _ := NewRegistry([]Asset{
		{Symbol: "GHO", Decimals: 18},
		{Symbol: "WGHO", Contract: tok("0x6bDc36E20D267Ff0dd6097799f82e78907105e2F"), Decimals: 18},
		{Symbol: "BONSAI", Contract: tok("0xB0588f9A9cADe7CD5f194a5fe77AcD6A58250f82"), Decimals: 18},
		{Symbol: "WETH", Contract: tok("0xE5ecd226b3032910CEaa43ba92EE8232f8237553"), Decimals: 18},
		{Symbol: "USDC", Contract: tok("0x88F08E304EC4f90D644Cec3Fb69b8aD414acf884"), Decimals: 6},
	})
	return r
}

// NewRegistry validates the list: symbols are unique (case-insensitive) and non-empty.
func NewRegistry(list []Asset) (*Registry, error) {
	if len(list) == 0 {
		return nil, errors.New("asset registry is empty")
	}
	seen := make(map[string]bool, len(list))
	for _, a := range list {
		key := strings.ToUpper(strings.TrimSpace(a.Symbol))
		if key == "" {
			return nil, errors.New("asset with empty symbol")
		}
		if seen[key] {
			return nil, fmt.Errorf("duplicate asset symbol %q", a.Symbol)
		}
		seen[key] = true
	}
	return &Registry{list: append([]Asset(nil), list...)}, nil
}

// All returns the assets in registry order.
func (r *Registry) All() []Asset { return append([]Asset(nil), r.list...) }

// Lookup finds an asset by symbol, case-insensitively.
func (r *Registry) Lookup(symbol string) (Asset, bool) {
	for _, a := range r.list {
		if strings.EqualFold(a.Symbol, strings.TrimSpace(symbol)) {
			return a, true
		}
	}
	return Asset{}, false
}

type fileEntry struct {
	Symbol   string `yaml:"symbol"`
	Address  string `yaml:"address"`
	Decimals *int   `yaml:"decimals"`
}

type fileBundle struct {
	Assets []fileEntry `yaml:"assets"`
}

// Load reads a YAML registry file. An empty path yields Default().
func Load(ctx context.Context, path string) (*Registry, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset registry: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML registry document.
func Parse(raw []byte) (*Registry, error) {
	var bundle fileBundle
	if err := yaml.Unmarshal(raw, &bundle); err != nil {
		return nil, fmt.Errorf("parse asset registry: %w", err)
	}
	list := make([]Asset, 0, len(bundle.Assets))
	for i, e := range bundle.Assets {
		a, err := e.asset()
		if err != nil {
			return nil, fmt.Errorf("asset #%d: %w", i+1, err)
		}
		list = append(list, a)
	}
	return NewRegistry(list)
}

func (e fileEntry) asset() (Asset, error) {
	if e.Decimals == nil {
		return Asset{}, fmt.Errorf("%s: decimals missing", e.Symbol)
	}
	if *e.Decimals < 0 || *e.Decimals > 77 {
		return Asset{}, fmt.Errorf("%s: decimals %d out of range", e.Symbol, *e.Decimals)
	}
	a := Asset{Symbol: strings.TrimSpace(e.Symbol), Decimals: uint8(*e.Decimals)}
	if addr := strings.TrimSpace(e.Address); addr != "" {
		if !common.IsHexAddress(addr) {
			return Asset{}, fmt.Errorf("%s: bad contract address %q", e.Symbol, addr)
		}
		c := common.HexToAddress(addr)
		a.Contract = &c
	}
	return a, nil
}
