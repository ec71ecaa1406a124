package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"riskgate/core/fixed"
	"riskgate/crypto"
	"riskgate/native/comptroller"
)

// Genesis is the bootstrap document for a fresh risk store.
type Genesis struct {
	// Engine is the address the risk engine answers to. Hosted markets report
	// it as their registry.
	Engine crypto.Address `toml:"Engine"`
	// OraclePoster is the only identity allowed to post prices.
	OraclePoster crypto.Address      `toml:"OraclePoster"`
	Assets       []Asset             `toml:"Assets"`
	Comptroller  comptroller.Genesis `toml:"Comptroller"`
}

// Asset declares a hosted market and its opening price.
type Asset struct {
	Symbol  string         `toml:"Symbol"`
	Address crypto.Address `toml:"Address"`
	Price   fixed.Exp      `toml:"Price"`
}

// LoadGenesis decodes and validates the genesis file at path. Unknown keys are
// rejected.
func LoadGenesis(path string) (*Genesis, error) {
	g := &Genesis{}
	meta, err := toml.DecodeFile(path, g)
	if err != nil {
		return nil, fmt.Errorf("decode genesis %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		return nil, fmt.Errorf("genesis %s: unknown keys %s", path, strings.Join(keys, ", "))
	}
	if err := g.Validate(); err != nil {
		return nil, fmt.Errorf("genesis %s: %w", path, err)
	}
	return g, nil
}

// Validate checks the document without touching any store.
func (g *Genesis) Validate() error {
	if g.Engine.IsZero() {
		return fmt.Errorf("%w: Engine address required", comptroller.ErrConfiguration)
	}
	if g.OraclePoster.IsZero() {
		return fmt.Errorf("%w: OraclePoster required", comptroller.ErrConfiguration)
	}
	declared := make(map[crypto.Address]Asset, len(g.Assets))
	symbols := make(map[string]struct{}, len(g.Assets))
	for i, asset := range g.Assets {
		symbol := strings.ToUpper(strings.TrimSpace(asset.Symbol))
		if symbol == "" {
			return fmt.Errorf("%w: assets[%d]: symbol required", comptroller.ErrConfiguration, i)
		}
		if asset.Address.IsZero() {
			return fmt.Errorf("%w: assets[%d]: address required", comptroller.ErrConfiguration, i)
		}
		if asset.Address == g.Engine {
			return fmt.Errorf("%w: assets[%d]: address collides with engine", comptroller.ErrConfiguration, i)
		}
		if _, dup := symbols[symbol]; dup {
			return fmt.Errorf("%w: assets[%d]: duplicate symbol %s", comptroller.ErrConfiguration, i, symbol)
		}
		if _, dup := declared[asset.Address]; dup {
			return fmt.Errorf("%w: assets[%d]: duplicate address %s", comptroller.ErrConfiguration, i, asset.Address)
		}
		symbols[symbol] = struct{}{}
		declared[asset.Address] = asset
	}
	if err := g.Comptroller.Validate(); err != nil {
		return err
	}
	for i, market := range g.Comptroller.Markets {
		asset, ok := declared[market.Asset]
		if !ok {
			return fmt.Errorf("%w: comptroller.markets[%d]: %s is not a declared asset", comptroller.ErrConfiguration, i, market.Asset)
		}
		if !market.CollateralFactor.IsZero() && asset.Price.IsZero() {
			return fmt.Errorf("%w: comptroller.markets[%d]: collateral factor needs a price for %s", comptroller.ErrConfiguration, i, asset.Symbol)
		}
	}
	return nil
}

// Save writes g to path as TOML, creating parent directories.
func Save(path string, g *Genesis) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(g)
}
