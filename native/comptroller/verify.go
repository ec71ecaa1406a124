package comptroller

import (
	"github.com/holiman/uint256"

	"riskgate/crypto"
)

// VerifyParams carries the arguments of a completed action to the verifier.
// Fields not meaningful for an action are left zero.
type VerifyParams struct {
	Asset           crypto.Address
	CollateralAsset crypto.Address
	Account         crypto.Address
	Counterparty    crypto.Address
	Amount          *uint256.Int
	Tokens          *uint256.Int
}

// Verifier runs after an asset has applied an action. It sees the validated
// parameters and may reject them; the default accepts everything.
type Verifier interface {
	Verify(action Action, params VerifyParams) error
}

// NopVerifier accepts every action.
type NopVerifier struct{}

func (NopVerifier) Verify(Action, VerifyParams) error { return nil }

func (e *Engine) verify(action Action, params VerifyParams) error {
	e.mu.Lock()
	verifier := e.verifier
	e.mu.Unlock()
	if verifier == nil {
		return nil
	}
	return verifier.Verify(action, params)
}

func (e *Engine) MintVerify(asset, minter crypto.Address, amount, tokens *uint256.Int) error {
	return e.verify(ActionMint, VerifyParams{Asset: asset, Account: minter, Amount: amount, Tokens: tokens})
}

func (e *Engine) RedeemVerify(asset, redeemer crypto.Address, amount, tokens *uint256.Int) error {
	return e.verify(ActionRedeem, VerifyParams{Asset: asset, Account: redeemer, Amount: amount, Tokens: tokens})
}

func (e *Engine) BorrowVerify(asset, borrower crypto.Address, amount *uint256.Int) error {
	return e.verify(ActionBorrow, VerifyParams{Asset: asset, Account: borrower, Amount: amount})
}

func (e *Engine) RepayBorrowVerify(asset, payer, borrower crypto.Address, amount *uint256.Int) error {
	return e.verify(ActionRepay, VerifyParams{Asset: asset, Account: borrower, Counterparty: payer, Amount: amount})
}

func (e *Engine) LiquidateBorrowVerify(borrowed, collateral, liquidator, borrower crypto.Address, repayAmount, seizeTokens *uint256.Int) error {
	return e.verify(ActionLiquidateBorrow, VerifyParams{
		Asset:           borrowed,
		CollateralAsset: collateral,
		Account:         borrower,
		Counterparty:    liquidator,
		Amount:          repayAmount,
		Tokens:          seizeTokens,
	})
}

func (e *Engine) SeizeVerify(collateral, borrowed, liquidator, borrower crypto.Address, seizeTokens *uint256.Int) error {
	return e.verify(ActionSeize, VerifyParams{
		Asset:           borrowed,
		CollateralAsset: collateral,
		Account:         borrower,
		Counterparty:    liquidator,
		Tokens:          seizeTokens,
	})
}

func (e *Engine) TransferVerify(asset, src, dst crypto.Address, tokens *uint256.Int) error {
	return e.verify(ActionTransfer, VerifyParams{Asset: asset, Account: src, Counterparty: dst, Tokens: tokens})
}
