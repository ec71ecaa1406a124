package comptroller

import (
	"fmt"

	"github.com/holiman/uint256"

	"riskgate/core/fixed"
	"riskgate/crypto"
)

// capExceeded reports whether total+amount breaks a nonzero cap.
func capExceeded(limit, total, amount *uint256.Int) (bool, error) {
	if limit == nil || limit.IsZero() {
		return false, nil
	}
	next, err := fixed.Add(total, amount)
	if err != nil {
		return false, arithmetic(err)
	}
	return next.Gt(limit), nil
}

// MintAllowed checks whether minter may supply amount to asset.
func (e *Engine) MintAllowed(asset, minter crypto.Address, amount *uint256.Int) (Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return Decision{}, err
	}
	return e.decide(ActionMint.String(), func() error {
		market, err := e.market(asset)
		if err != nil {
			return err
		}
		if market.MintPaused {
			return deny(ReasonMintPaused)
		}
		if market.SupplyCap != nil && !market.SupplyCap.IsZero() {
			collaborator, err := e.asset(asset)
			if err != nil {
				return err
			}
			total, err := collaborator.TotalSupply()
			if err != nil {
				return err
			}
			exceeded, err := capExceeded(market.SupplyCap, total, amount)
			if err != nil {
				return err
			}
			if exceeded {
				return deny(ReasonSupplyCapReached)
			}
		}
		if !market.Listed {
			return deny(ReasonMarketNotListed)
		}
		return nil
	})
}

// RedeemAllowed checks whether redeemer may redeem tokens of asset.
func (e *Engine) RedeemAllowed(asset, redeemer crypto.Address, tokens *uint256.Int) (Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return Decision{}, err
	}
	return e.decide(ActionRedeem.String(), func() error {
		return e.redeemAllowed(asset, redeemer, tokens)
	})
}

func (e *Engine) redeemAllowed(asset, redeemer crypto.Address, tokens *uint256.Int) error {
	if _, err := e.listedMarket(asset); err != nil {
		return err
	}
	membership, err := e.state.ComptrollerMembership(redeemer)
	if err != nil {
		return err
	}
	if !membership.Contains(asset) {
		return nil
	}
	liquidity, err := e.computeLiquidity(redeemer, &hypothetical{asset: asset, redeem: tokens})
	if err != nil {
		return err
	}
	if liquidity.HasShortfall() {
		return deny(ReasonInsufficientLiquidity)
	}
	return nil
}

// BorrowAllowed checks whether borrower may borrow amount of asset. When the
// borrower has not entered the market, only the asset itself may call on its
// behalf and the borrower is entered automatically. The entry is rolled back
// if any later rule denies the borrow.
func (e *Engine) BorrowAllowed(caller, asset, borrower crypto.Address, amount *uint256.Int) (Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return Decision{}, err
	}
	return e.decide(ActionBorrow.String(), func() error {
		market, err := e.market(asset)
		if err != nil {
			return err
		}
		if market.BorrowPaused {
			return deny(ReasonBorrowPaused)
		}
		if !market.Listed {
			return deny(ReasonMarketNotListed)
		}
		membership, err := e.state.ComptrollerMembership(borrower)
		if err != nil {
			return err
		}
		if !membership.Contains(asset) {
			if caller != asset {
				return fmt.Errorf("%w: only %s may enter %s on borrow", ErrAuthorization, asset, borrower)
			}
			if err := e.addToMarket(asset, borrower); err != nil {
				return err
			}
			if err := e.assertMember(borrower, asset); err != nil {
				return err
			}
		}
		if _, err := e.requirePrice(asset); err != nil {
			return err
		}
		if market.BorrowCap != nil && !market.BorrowCap.IsZero() {
			collaborator, err := e.asset(asset)
			if err != nil {
				return err
			}
			total, err := collaborator.TotalBorrows()
			if err != nil {
				return err
			}
			exceeded, err := capExceeded(market.BorrowCap, total, amount)
			if err != nil {
				return err
			}
			if exceeded {
				return deny(ReasonBorrowCapReached)
			}
		}
		liquidity, err := e.computeLiquidity(borrower, &hypothetical{asset: asset, borrow: amount})
		if err != nil {
			return err
		}
		if liquidity.HasShortfall() {
			return deny(ReasonInsufficientLiquidity)
		}
		return nil
	})
}

// RepayBorrowAllowed checks whether payer may repay borrower's debt. Repaying
// never worsens solvency, so only listing matters.
func (e *Engine) RepayBorrowAllowed(asset, payer, borrower crypto.Address, amount *uint256.Int) (Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return Decision{}, err
	}
	return e.decide(ActionRepay.String(), func() error {
		_, err := e.listedMarket(asset)
		return err
	})
}

// LiquidateBorrowAllowed checks whether liquidator may repay repayAmount of
// borrower's debt in borrowed and claim collateral in exchange.
func (e *Engine) LiquidateBorrowAllowed(borrowed, collateral, liquidator, borrower crypto.Address, repayAmount *uint256.Int) (Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return Decision{}, err
	}
	return e.decide(ActionLiquidateBorrow.String(), func() error {
		if err := e.sameRegistry(borrowed, collateral); err != nil {
			return err
		}
		liquidity, err := e.computeLiquidity(borrower, nil)
		if err != nil {
			return err
		}
		if !liquidity.HasShortfall() {
			return deny(ReasonInsufficientShortfall)
		}
		debtAsset, err := e.asset(borrowed)
		if err != nil {
			return err
		}
		_, owed, err := debtAsset.AccountSnapshot(borrower)
		if err != nil {
			return err
		}
		params, err := e.params()
		if err != nil {
			return err
		}
		maxClose, err := fixed.MulScalarTruncate(params.CloseFactor, owed)
		if err != nil {
			return arithmetic(err)
		}
		if repayAmount != nil && repayAmount.Gt(maxClose) {
			return deny(ReasonTooMuchRepay)
		}
		return nil
	})
}

// SeizeAllowed checks whether collateral may be seized from borrower after a
// liquidation in borrowed.
func (e *Engine) SeizeAllowed(collateral, borrowed, liquidator, borrower crypto.Address, seizeTokens *uint256.Int) (Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return Decision{}, err
	}
	return e.decide(ActionSeize.String(), func() error {
		params, err := e.params()
		if err != nil {
			return err
		}
		if params.SeizePaused {
			return deny(ReasonSeizePaused)
		}
		return e.sameRegistry(collateral, borrowed)
	})
}

// TransferAllowed checks whether src may move tokens of asset to dst. A
// transfer is treated as a redemption by src.
func (e *Engine) TransferAllowed(asset, src, dst crypto.Address, tokens *uint256.Int) (Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.ready(); err != nil {
		return Decision{}, err
	}
	return e.decide(ActionTransfer.String(), func() error {
		params, err := e.params()
		if err != nil {
			return err
		}
		if params.TransferPaused {
			return deny(ReasonTransferPaused)
		}
		return e.redeemAllowed(asset, src, tokens)
	})
}

// sameRegistry requires both markets to be listed and to answer to the same
// registry.
func (e *Engine) sameRegistry(a, b crypto.Address) error {
	if _, err := e.listedMarket(a); err != nil {
		return err
	}
	if _, err := e.listedMarket(b); err != nil {
		return err
	}
	first, err := e.asset(a)
	if err != nil {
		return err
	}
	second, err := e.asset(b)
	if err != nil {
		return err
	}
	if first.RegistryOf() != second.RegistryOf() {
		return deny(ReasonRegistryMismatch)
	}
	return nil
}

// Check evaluates action by name with a uniform argument set. It backs the
// service's generic check endpoint.
func (e *Engine) Check(action Action, req CheckRequest) (Decision, error) {
	switch action {
	case ActionMint:
		return e.MintAllowed(req.Asset, req.Account, req.Amount)
	case ActionRedeem:
		return e.RedeemAllowed(req.Asset, req.Account, req.Amount)
	case ActionBorrow:
		return e.BorrowAllowed(req.Caller, req.Asset, req.Account, req.Amount)
	case ActionRepay:
		return e.RepayBorrowAllowed(req.Asset, req.Counterparty, req.Account, req.Amount)
	case ActionLiquidateBorrow:
		return e.LiquidateBorrowAllowed(req.Asset, req.CollateralAsset, req.Counterparty, req.Account, req.Amount)
	case ActionSeize:
		return e.SeizeAllowed(req.CollateralAsset, req.Asset, req.Counterparty, req.Account, req.Amount)
	case ActionTransfer:
		return e.TransferAllowed(req.Asset, req.Account, req.Counterparty, req.Amount)
	default:
		return Decision{}, fmt.Errorf("%w: unknown action %d", ErrConfiguration, action)
	}
}

// CheckRequest carries the union of policy-check arguments. Account is the
// participant whose position is at stake; Counterparty is the payer,
// liquidator or transfer recipient depending on the action.
type CheckRequest struct {
	Caller          crypto.Address
	Asset           crypto.Address
	CollateralAsset crypto.Address
	Account         crypto.Address
	Counterparty    crypto.Address
	Amount          *uint256.Int
}
