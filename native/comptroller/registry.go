package comptroller

import (
	"fmt"

	"github.com/holiman/uint256"

	"riskgate/core/fixed"
	"riskgate/crypto"
)

func (e *Engine) market(asset crypto.Address) (*Market, error) {
	market, ok, err := e.state.ComptrollerMarket(asset)
	if err != nil {
		return nil, err
	}
	if !ok || market == nil {
		return &Market{Asset: asset}, nil
	}
	return market, nil
}

func (e *Engine) listedMarket(asset crypto.Address) (*Market, error) {
	market, err := e.market(asset)
	if err != nil {
		return nil, err
	}
	if !market.Listed {
		return nil, deny(ReasonMarketNotListed)
	}
	return market, nil
}

func (e *Engine) price(asset crypto.Address) (fixed.Exp, error) {
	if e.oracle == nil {
		return fixed.Exp{}, errNilOracle
	}
	price, err := e.oracle.Price(asset)
	if err != nil {
		return fixed.Exp{}, fmt.Errorf("%w: %s: %w", ErrPricing, asset, err)
	}
	return price, nil
}

// requirePrice fetches a price and aborts with ErrPricing when it is zero.
func (e *Engine) requirePrice(asset crypto.Address) (fixed.Exp, error) {
	price, err := e.price(asset)
	if err != nil {
		return fixed.Exp{}, err
	}
	if price.IsZero() {
		return fixed.Exp{}, fmt.Errorf("%w: no price for %s", ErrPricing, asset)
	}
	return price, nil
}

// ListMarket admits asset into the registry with a zero collateral factor.
func (e *Engine) ListMarket(caller, asset crypto.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.govern("list_market", caller, func(params *RiskParameters) error {
		if err := authorize(params, caller, RoleAdmin); err != nil {
			return err
		}
		market, err := e.market(asset)
		if err != nil {
			return err
		}
		if market.Listed {
			return deny(ReasonMarketAlreadyListed)
		}
		collaborator, err := e.asset(asset)
		if err != nil {
			return err
		}
		if !collaborator.IsRecognizedAssetType() {
			return deny(ReasonUnrecognizedAsset)
		}
		markets, err := e.state.ComptrollerMarkets()
		if err != nil {
			return err
		}
		for _, existing := range markets {
			if existing == asset {
				return deny(ReasonMarketAlreadyListed)
			}
		}
		market.Listed = true
		market.CollateralFactor = fixed.Exp{}
		if err := e.state.PutComptrollerMarket(market); err != nil {
			return err
		}
		return e.state.PutComptrollerMarkets(append(markets, asset))
	})
}

// SetCollateralFactor updates the collateral factor of a listed market.
func (e *Engine) SetCollateralFactor(caller, asset crypto.Address, factor fixed.Exp) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.govern("set_collateral_factor", caller, func(params *RiskParameters) error {
		if err := authorize(params, caller, RoleAdmin); err != nil {
			return err
		}
		market, err := e.listedMarket(asset)
		if err != nil {
			return err
		}
		if factor.Cmp(MaxCollateralFactor) > 0 {
			return deny(ReasonInvalidCollateralFactor)
		}
		if !factor.IsZero() {
			price, err := e.price(asset)
			if err != nil {
				return err
			}
			if price.IsZero() {
				return deny(ReasonPriceError)
			}
		}
		market.CollateralFactor = factor
		return e.state.PutComptrollerMarket(market)
	})
}

// SetCloseFactor updates the liquidation close factor.
func (e *Engine) SetCloseFactor(caller crypto.Address, factor fixed.Exp) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.govern("set_close_factor", caller, func(params *RiskParameters) error {
		if err := authorize(params, caller, RoleAdmin); err != nil {
			return err
		}
		if factor.Cmp(MinCloseFactor) < 0 || factor.Cmp(MaxCloseFactor) > 0 {
			return deny(ReasonInvalidCloseFactor)
		}
		params.CloseFactor = factor
		return e.state.PutComptrollerParams(params)
	})
}

// SetLiquidationIncentive updates the collateral bonus paid to liquidators.
func (e *Engine) SetLiquidationIncentive(caller crypto.Address, incentive fixed.Exp) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.govern("set_liquidation_incentive", caller, func(params *RiskParameters) error {
		if err := authorize(params, caller, RoleAdmin); err != nil {
			return err
		}
		if incentive.Cmp(MinLiquidationIncentive) < 0 || incentive.Cmp(MaxLiquidationIncentive) > 0 {
			return deny(ReasonInvalidLiquidationIncentive)
		}
		params.LiquidationIncentive = incentive
		return e.state.PutComptrollerParams(params)
	})
}

// SetPriceOracle replaces the price oracle.
func (e *Engine) SetPriceOracle(caller crypto.Address, oracle Oracle) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.govern("set_price_oracle", caller, func(params *RiskParameters) error {
		if err := authorize(params, caller, RoleAdmin); err != nil {
			return err
		}
		if oracle == nil {
			return deny(ReasonInvalidInput)
		}
		e.oracle = oracle
		return nil
	})
}

// SetMarketSupplyCaps applies supply caps in bulk. Zero removes the cap.
func (e *Engine) SetMarketSupplyCaps(caller crypto.Address, assets []crypto.Address, caps []*uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.govern("set_supply_caps", caller, func(params *RiskParameters) error {
		return e.setCaps(params, caller, assets, caps, func(m *Market, limit *uint256.Int) { m.SupplyCap = limit })
	})
}

// SetMarketBorrowCaps applies borrow caps in bulk. Zero removes the cap.
func (e *Engine) SetMarketBorrowCaps(caller crypto.Address, assets []crypto.Address, caps []*uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.govern("set_borrow_caps", caller, func(params *RiskParameters) error {
		return e.setCaps(params, caller, assets, caps, func(m *Market, limit *uint256.Int) { m.BorrowCap = limit })
	})
}

func (e *Engine) setCaps(params *RiskParameters, caller crypto.Address, assets []crypto.Address, caps []*uint256.Int, apply func(*Market, *uint256.Int)) error {
	if err := authorize(params, caller, RoleAdmin, RoleCapGuardian); err != nil {
		return err
	}
	if len(assets) == 0 || len(assets) != len(caps) {
		return deny(ReasonInvalidInput)
	}
	for i, asset := range assets {
		market, err := e.market(asset)
		if err != nil {
			return err
		}
		limit := new(uint256.Int)
		if caps[i] != nil {
			limit.Set(caps[i])
		}
		apply(market, limit)
		if err := e.state.PutComptrollerMarket(market); err != nil {
			return err
		}
	}
	return nil
}

// SetPaused toggles an action switch. Mint and borrow are paused per market;
// transfer and seize are global and ignore asset. The pause guardian may only
// pause.
func (e *Engine) SetPaused(caller crypto.Address, action Action, asset crypto.Address, paused bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.govern("set_paused", caller, func(params *RiskParameters) error {
		if err := authorize(params, caller, RoleAdmin, RolePauseGuardian); err != nil {
			return err
		}
		if !paused && caller != params.Admin {
			return fmt.Errorf("%w: only admin can unpause", ErrAuthorization)
		}
		switch action {
		case ActionMint, ActionBorrow:
			market, err := e.listedMarket(asset)
			if err != nil {
				return err
			}
			if action == ActionMint {
				market.MintPaused = paused
			} else {
				market.BorrowPaused = paused
			}
			return e.state.PutComptrollerMarket(market)
		case ActionTransfer:
			params.TransferPaused = paused
		case ActionSeize:
			params.SeizePaused = paused
		default:
			return deny(ReasonNotPausable)
		}
		return e.state.PutComptrollerParams(params)
	})
}

// Market returns the stored configuration of asset. Unknown assets yield an
// unlisted market.
func (e *Engine) Market(asset crypto.Address) (*Market, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return nil, err
	}
	market, err := e.market(asset)
	if err != nil {
		return nil, err
	}
	return market.Clone(), nil
}

// AllMarkets lists every market ever listed, in listing order.
func (e *Engine) AllMarkets() ([]crypto.Address, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return nil, err
	}
	markets, err := e.state.ComptrollerMarkets()
	if err != nil {
		return nil, err
	}
	return append([]crypto.Address(nil), markets...), nil
}

// Params returns a copy of the current risk parameters.
func (e *Engine) Params() (*RiskParameters, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return nil, err
	}
	params, err := e.params()
	if err != nil {
		return nil, err
	}
	return params.Clone(), nil
}
