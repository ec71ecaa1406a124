package comptroller

import (
	"fmt"

	"github.com/holiman/uint256"

	"riskgate/core/fixed"
	"riskgate/crypto"
)

// Genesis is the bootstrap configuration applied to an empty store.
type Genesis struct {
	Admin                crypto.Address  `toml:"Admin"`
	PauseGuardian        crypto.Address  `toml:"PauseGuardian"`
	CapGuardian          crypto.Address  `toml:"CapGuardian"`
	CloseFactor          fixed.Exp       `toml:"CloseFactor"`
	LiquidationIncentive fixed.Exp       `toml:"LiquidationIncentive"`
	Markets              []GenesisMarket `toml:"Markets"`
}

// GenesisMarket lists one market at bootstrap. Caps are decimal integers;
// empty means unlimited.
type GenesisMarket struct {
	Asset            crypto.Address `toml:"Asset"`
	CollateralFactor fixed.Exp      `toml:"CollateralFactor"`
	SupplyCap        string         `toml:"SupplyCap"`
	BorrowCap        string         `toml:"BorrowCap"`
}

// Validate performs the static checks that do not need a running engine.
func (g *Genesis) Validate() error {
	if g == nil {
		return fmt.Errorf("%w: genesis missing", ErrConfiguration)
	}
	if g.Admin.IsZero() {
		return fmt.Errorf("%w: genesis admin required", ErrConfiguration)
	}
	if g.CloseFactor.Cmp(MinCloseFactor) < 0 || g.CloseFactor.Cmp(MaxCloseFactor) > 0 {
		return fmt.Errorf("%w: close factor %s outside [%s, %s]", ErrConfiguration, g.CloseFactor, MinCloseFactor, MaxCloseFactor)
	}
	if g.LiquidationIncentive.Cmp(MinLiquidationIncentive) < 0 || g.LiquidationIncentive.Cmp(MaxLiquidationIncentive) > 0 {
		return fmt.Errorf("%w: liquidation incentive %s outside [%s, %s]", ErrConfiguration, g.LiquidationIncentive, MinLiquidationIncentive, MaxLiquidationIncentive)
	}
	seen := make(map[crypto.Address]struct{}, len(g.Markets))
	for i, market := range g.Markets {
		if market.Asset.IsZero() {
			return fmt.Errorf("%w: markets[%d]: asset required", ErrConfiguration, i)
		}
		if _, dup := seen[market.Asset]; dup {
			return fmt.Errorf("%w: markets[%d]: duplicate asset %s", ErrConfiguration, i, market.Asset)
		}
		seen[market.Asset] = struct{}{}
		if market.CollateralFactor.Cmp(MaxCollateralFactor) > 0 {
			return fmt.Errorf("%w: markets[%d]: collateral factor %s above %s", ErrConfiguration, i, market.CollateralFactor, MaxCollateralFactor)
		}
		if _, err := parseCap(market.SupplyCap); err != nil {
			return fmt.Errorf("%w: markets[%d]: supply cap: %v", ErrConfiguration, i, err)
		}
		if _, err := parseCap(market.BorrowCap); err != nil {
			return fmt.Errorf("%w: markets[%d]: borrow cap: %v", ErrConfiguration, i, err)
		}
	}
	return nil
}

func parseCap(value string) (*uint256.Int, error) {
	if value == "" {
		return new(uint256.Int), nil
	}
	return uint256.FromDecimal(value)
}

// ApplyGenesis initialises an empty store from g, acting as the genesis admin.
// The price oracle must already be configured when any market carries a
// nonzero collateral factor.
func (e *Engine) ApplyGenesis(g *Genesis, oracle Oracle) error {
	if err := g.Validate(); err != nil {
		return err
	}
	admin := g.Admin
	if err := e.Initialize(admin); err != nil {
		return err
	}
	if oracle != nil {
		if err := e.SetPriceOracle(admin, oracle); err != nil {
			return err
		}
	}
	if !g.PauseGuardian.IsZero() {
		if err := e.SetPauseGuardian(admin, g.PauseGuardian); err != nil {
			return err
		}
	}
	if !g.CapGuardian.IsZero() {
		if err := e.SetCapGuardian(admin, g.CapGuardian); err != nil {
			return err
		}
	}
	if err := e.SetCloseFactor(admin, g.CloseFactor); err != nil {
		return err
	}
	if err := e.SetLiquidationIncentive(admin, g.LiquidationIncentive); err != nil {
		return err
	}
	for _, market := range g.Markets {
		if err := e.ListMarket(admin, market.Asset); err != nil {
			return fmt.Errorf("list %s: %w", market.Asset, err)
		}
		if !market.CollateralFactor.IsZero() {
			if err := e.SetCollateralFactor(admin, market.Asset, market.CollateralFactor); err != nil {
				return fmt.Errorf("collateral factor %s: %w", market.Asset, err)
			}
		}
		supplyCap, _ := parseCap(market.SupplyCap)
		borrowCap, _ := parseCap(market.BorrowCap)
		assets := []crypto.Address{market.Asset}
		if !supplyCap.IsZero() {
			if err := e.SetMarketSupplyCaps(admin, assets, []*uint256.Int{supplyCap}); err != nil {
				return err
			}
		}
		if !borrowCap.IsZero() {
			if err := e.SetMarketBorrowCaps(admin, assets, []*uint256.Int{borrowCap}); err != nil {
				return err
			}
		}
	}
	return nil
}
