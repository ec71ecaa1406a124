package comptroller

import (
	"github.com/holiman/uint256"

	"riskgate/core/fixed"
	"riskgate/crypto"
)

// LiquidateCalculateSeizeTokens sizes the collateral transferred to a
// liquidator repaying repayAmount of borrowed:
//
//	seize = repayAmount * (incentive * priceBorrowed / priceCollateral)
//
// Both prices must be nonzero.
func (e *Engine) LiquidateCalculateSeizeTokens(borrowed, collateral crypto.Address, repayAmount *uint256.Int) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return nil, err
	}
	if repayAmount == nil {
		return nil, errNilAmount
	}
	priceBorrowed, err := e.requirePrice(borrowed)
	if err != nil {
		return nil, err
	}
	priceCollateral, err := e.requirePrice(collateral)
	if err != nil {
		return nil, err
	}
	params, err := e.params()
	if err != nil {
		return nil, err
	}
	numerator, err := fixed.Mul(params.LiquidationIncentive, priceBorrowed)
	if err != nil {
		return nil, arithmetic(err)
	}
	ratio, err := fixed.Div(numerator, priceCollateral)
	if err != nil {
		return nil, arithmetic(err)
	}
	seize, err := fixed.MulScalarTruncate(ratio, repayAmount)
	if err != nil {
		return nil, arithmetic(err)
	}
	return seize, nil
}
