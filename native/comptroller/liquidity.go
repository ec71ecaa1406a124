package comptroller

import (
	"time"

	"github.com/holiman/uint256"

	"riskgate/core/fixed"
	"riskgate/crypto"
)

// hypothetical describes an action whose effect is folded into a liquidity
// computation without being applied.
type hypothetical struct {
	asset  crypto.Address
	redeem *uint256.Int
	borrow *uint256.Int
}

// computeLiquidity values every entered market of account at current prices.
// All products truncate, so the result never overstates solvency.
func (e *Engine) computeLiquidity(account crypto.Address, hypo *hypothetical) (Liquidity, error) {
	start := time.Now()
	defer func() { e.metrics.ObserveLiquidity(time.Since(start)) }()

	membership, err := e.state.ComptrollerMembership(account)
	if err != nil {
		return Liquidity{}, err
	}
	collateral := new(uint256.Int)
	debt := new(uint256.Int)
	for _, addr := range membership.Assets() {
		asset, err := e.asset(addr)
		if err != nil {
			return Liquidity{}, err
		}
		held, owed, err := asset.AccountSnapshot(account)
		if err != nil {
			return Liquidity{}, err
		}
		market, err := e.market(addr)
		if err != nil {
			return Liquidity{}, err
		}
		price, err := e.requirePrice(addr)
		if err != nil {
			return Liquidity{}, err
		}
		tokensToDenom, err := fixed.Mul(market.CollateralFactor, price)
		if err != nil {
			return Liquidity{}, arithmetic(err)
		}
		if collateral, err = fixed.MulScalarTruncateAdd(tokensToDenom, held, collateral); err != nil {
			return Liquidity{}, arithmetic(err)
		}
		if debt, err = fixed.MulScalarTruncateAdd(price, owed, debt); err != nil {
			return Liquidity{}, arithmetic(err)
		}
		if hypo != nil && addr == hypo.asset {
			if debt, err = fixed.MulScalarTruncateAdd(tokensToDenom, hypo.redeem, debt); err != nil {
				return Liquidity{}, arithmetic(err)
			}
			if debt, err = fixed.MulScalarTruncateAdd(price, hypo.borrow, debt); err != nil {
				return Liquidity{}, arithmetic(err)
			}
		}
	}
	if collateral.Gt(debt) {
		return Liquidity{Surplus: new(uint256.Int).Sub(collateral, debt), Shortfall: new(uint256.Int)}, nil
	}
	return Liquidity{Surplus: new(uint256.Int), Shortfall: new(uint256.Int).Sub(debt, collateral)}, nil
}

// AccountLiquidity reports the account's current surplus or shortfall.
func (e *Engine) AccountLiquidity(account crypto.Address) (Liquidity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return Liquidity{}, err
	}
	return e.computeLiquidity(account, nil)
}

// HypotheticalAccountLiquidity reports the liquidity account would have after
// redeeming redeemTokens and borrowing borrowAmount of asset.
func (e *Engine) HypotheticalAccountLiquidity(account, asset crypto.Address, redeemTokens, borrowAmount *uint256.Int) (Liquidity, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return Liquidity{}, err
	}
	return e.computeLiquidity(account, &hypothetical{asset: asset, redeem: redeemTokens, borrow: borrowAmount})
}
