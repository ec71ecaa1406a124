package asset

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/holiman/uint256"

	"riskgate/crypto"
	"riskgate/native/common"
	"riskgate/native/comptroller"
)

const moduleName = "asset"

var (
	ErrInvalidAmount          = errors.New("asset: amount must be positive")
	ErrInsufficientBalance    = errors.New("asset: insufficient token balance")
	ErrInsufficientDebt       = errors.New("asset: repay exceeds outstanding debt")
	ErrSelfLiquidation        = errors.New("asset: borrower cannot liquidate itself")
	ErrInsufficientCollateral = errors.New("asset: borrower collateral below seize amount")
	errNilState               = errors.New("asset: state not configured")
	errNilGate                = errors.New("asset: risk gate not configured")
)

// Gate is the slice of the risk engine a market consults around each
// mutation.
type Gate interface {
	Address() crypto.Address
	MintAllowed(asset, minter crypto.Address, amount *uint256.Int) (comptroller.Decision, error)
	MintVerify(asset, minter crypto.Address, amount, tokens *uint256.Int) error
	RedeemAllowed(asset, redeemer crypto.Address, tokens *uint256.Int) (comptroller.Decision, error)
	RedeemVerify(asset, redeemer crypto.Address, amount, tokens *uint256.Int) error
	BorrowAllowed(caller, asset, borrower crypto.Address, amount *uint256.Int) (comptroller.Decision, error)
	BorrowVerify(asset, borrower crypto.Address, amount *uint256.Int) error
	RepayBorrowAllowed(asset, payer, borrower crypto.Address, amount *uint256.Int) (comptroller.Decision, error)
	RepayBorrowVerify(asset, payer, borrower crypto.Address, amount *uint256.Int) error
	LiquidateBorrowAllowed(borrowed, collateral, liquidator, borrower crypto.Address, repayAmount *uint256.Int) (comptroller.Decision, error)
	LiquidateBorrowVerify(borrowed, collateral, liquidator, borrower crypto.Address, repayAmount, seizeTokens *uint256.Int) error
	LiquidateCalculateSeizeTokens(borrowed, collateral crypto.Address, repayAmount *uint256.Int) (*uint256.Int, error)
	SeizeAllowed(collateral, borrowed, liquidator, borrower crypto.Address, seizeTokens *uint256.Int) (comptroller.Decision, error)
	SeizeVerify(collateral, borrowed, liquidator, borrower crypto.Address, seizeTokens *uint256.Int) error
	TransferAllowed(asset, src, dst crypto.Address, tokens *uint256.Int) (comptroller.Decision, error)
	TransferVerify(asset, src, dst crypto.Address, tokens *uint256.Int) error
}

type bookState interface {
	AssetTotals(asset crypto.Address) (*uint256.Int, *uint256.Int, error)
	PutAssetTotals(asset crypto.Address, supply, borrows *uint256.Int) error
	AssetPosition(asset, account crypto.Address) (*uint256.Int, *uint256.Int, error)
	PutAssetPosition(asset, account crypto.Address, tokens, borrowed *uint256.Int) error
	Snapshot() int
	RevertToSnapshot(id int)
}

// Book is a single asset market holding token and borrow balances. One token
// equals one unit of the underlying and no interest accrues. Every mutation
// asks the gate first, applies nothing on denial and reports the completed
// action to the verify hook.
//
// Book is not safe for concurrent use; the host serializes requests.
type Book struct {
	address crypto.Address
	symbol  string
	gate    Gate
	state   bookState
	pauses  common.PauseView
	logger  *slog.Logger
}

// NewBook constructs a market for the asset at address.
func NewBook(address crypto.Address, symbol string, gate Gate, state bookState) *Book {
	return &Book{
		address: address,
		symbol:  symbol,
		gate:    gate,
		state:   state,
		logger:  slog.Default().With("component", moduleName, "symbol", symbol),
	}
}

// SetPauses wires the operator kill switch.
func (b *Book) SetPauses(p common.PauseView) { b.pauses = p }

// SetLogger overrides the structured logger.
func (b *Book) SetLogger(l *slog.Logger) {
	if l != nil {
		b.logger = l.With("component", moduleName, "symbol", b.symbol)
	}
}

func (b *Book) Address() crypto.Address { return b.address }

func (b *Book) Symbol() string { return b.symbol }

// AccountSnapshot returns account's token and borrow balances.
func (b *Book) AccountSnapshot(account crypto.Address) (*uint256.Int, *uint256.Int, error) {
	if b.state == nil {
		return nil, nil, errNilState
	}
	return b.state.AssetPosition(b.address, account)
}

func (b *Book) TotalSupply() (*uint256.Int, error) {
	if b.state == nil {
		return nil, errNilState
	}
	supply, _, err := b.state.AssetTotals(b.address)
	return supply, err
}

func (b *Book) TotalBorrows() (*uint256.Int, error) {
	if b.state == nil {
		return nil, errNilState
	}
	_, borrows, err := b.state.AssetTotals(b.address)
	return borrows, err
}

// RegistryOf names the engine this market answers to.
func (b *Book) RegistryOf() crypto.Address {
	if b.gate == nil {
		return crypto.Address{}
	}
	return b.gate.Address()
}

func (b *Book) IsRecognizedAssetType() bool { return true }

// run executes a mutation atomically against the shared state.
func (b *Book) run(op string, fn func() error) error {
	if b.state == nil {
		return errNilState
	}
	if b.gate == nil {
		return errNilGate
	}
	if err := common.Guard(b.pauses, moduleName); err != nil {
		return err
	}
	snapshot := b.state.Snapshot()
	if err := fn(); err != nil {
		b.state.RevertToSnapshot(snapshot)
		b.logger.Debug("asset operation rejected", slog.String("operation", op), slog.Any("error", err))
		return err
	}
	return nil
}

func positive(amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	return nil
}

func admitted(action comptroller.Action, decision comptroller.Decision, err error) error {
	if err != nil {
		return err
	}
	return decision.Err(action)
}

type position struct {
	tokens   *uint256.Int
	borrowed *uint256.Int
}

func (b *Book) load(account crypto.Address) (position, error) {
	tokens, borrowed, err := b.state.AssetPosition(b.address, account)
	if err != nil {
		return position{}, err
	}
	return position{tokens: tokens, borrowed: borrowed}, nil
}

func (b *Book) store(account crypto.Address, p position) error {
	return b.state.PutAssetPosition(b.address, account, p.tokens, p.borrowed)
}

// adjustTotals applies signed deltas to the market totals.
func (b *Book) adjustTotals(supplyDelta, borrowDelta *uint256.Int, supplyUp, borrowUp bool) error {
	supply, borrows, err := b.state.AssetTotals(b.address)
	if err != nil {
		return err
	}
	if supplyDelta != nil {
		if supply, err = shift(supply, supplyDelta, supplyUp); err != nil {
			return err
		}
	}
	if borrowDelta != nil {
		if borrows, err = shift(borrows, borrowDelta, borrowUp); err != nil {
			return err
		}
	}
	return b.state.PutAssetTotals(b.address, supply, borrows)
}

func shift(value, delta *uint256.Int, up bool) (*uint256.Int, error) {
	if up {
		sum, overflow := new(uint256.Int).AddOverflow(value, delta)
		if overflow {
			return nil, fmt.Errorf("%w: total overflow", comptroller.ErrArithmetic)
		}
		return sum, nil
	}
	if delta.Gt(value) {
		return nil, fmt.Errorf("%w: total underflow", comptroller.ErrConsistency)
	}
	return new(uint256.Int).Sub(value, delta), nil
}

// Mint credits amount tokens to minter.
func (b *Book) Mint(minter crypto.Address, amount *uint256.Int) error {
	return b.run("mint", func() error {
		if err := positive(amount); err != nil {
			return err
		}
		decision, err := b.gate.MintAllowed(b.address, minter, amount)
		if err := admitted(comptroller.ActionMint, decision, err); err != nil {
			return err
		}
		pos, err := b.load(minter)
		if err != nil {
			return err
		}
		pos.tokens = new(uint256.Int).Add(pos.tokens, amount)
		if err := b.store(minter, pos); err != nil {
			return err
		}
		if err := b.adjustTotals(amount, nil, true, false); err != nil {
			return err
		}
		return b.gate.MintVerify(b.address, minter, amount, amount)
	})
}

// Redeem burns tokens from redeemer.
func (b *Book) Redeem(redeemer crypto.Address, tokens *uint256.Int) error {
	return b.run("redeem", func() error {
		if err := positive(tokens); err != nil {
			return err
		}
		decision, err := b.gate.RedeemAllowed(b.address, redeemer, tokens)
		if err := admitted(comptroller.ActionRedeem, decision, err); err != nil {
			return err
		}
		pos, err := b.load(redeemer)
		if err != nil {
			return err
		}
		if tokens.Gt(pos.tokens) {
			return ErrInsufficientBalance
		}
		pos.tokens = new(uint256.Int).Sub(pos.tokens, tokens)
		if err := b.store(redeemer, pos); err != nil {
			return err
		}
		if err := b.adjustTotals(tokens, nil, false, false); err != nil {
			return err
		}
		return b.gate.RedeemVerify(b.address, redeemer, tokens, tokens)
	})
}

// Borrow records new debt for borrower. The market itself is the caller, so
// a borrower outside the market is entered automatically by the gate.
func (b *Book) Borrow(borrower crypto.Address, amount *uint256.Int) error {
	return b.run("borrow", func() error {
		if err := positive(amount); err != nil {
			return err
		}
		decision, err := b.gate.BorrowAllowed(b.address, b.address, borrower, amount)
		if err := admitted(comptroller.ActionBorrow, decision, err); err != nil {
			return err
		}
		pos, err := b.load(borrower)
		if err != nil {
			return err
		}
		pos.borrowed = new(uint256.Int).Add(pos.borrowed, amount)
		if err := b.store(borrower, pos); err != nil {
			return err
		}
		if err := b.adjustTotals(nil, amount, false, true); err != nil {
			return err
		}
		return b.gate.BorrowVerify(b.address, borrower, amount)
	})
}

// RepayBorrow reduces borrower's debt by amount on behalf of payer.
func (b *Book) RepayBorrow(payer, borrower crypto.Address, amount *uint256.Int) error {
	return b.run("repay", func() error {
		if err := b.repay(payer, borrower, amount); err != nil {
			return err
		}
		return b.gate.RepayBorrowVerify(b.address, payer, borrower, amount)
	})
}

func (b *Book) repay(payer, borrower crypto.Address, amount *uint256.Int) error {
	if err := positive(amount); err != nil {
		return err
	}
	decision, err := b.gate.RepayBorrowAllowed(b.address, payer, borrower, amount)
	if err := admitted(comptroller.ActionRepay, decision, err); err != nil {
		return err
	}
	pos, err := b.load(borrower)
	if err != nil {
		return err
	}
	if amount.Gt(pos.borrowed) {
		return ErrInsufficientDebt
	}
	pos.borrowed = new(uint256.Int).Sub(pos.borrowed, amount)
	if err := b.store(borrower, pos); err != nil {
		return err
	}
	return b.adjustTotals(nil, amount, false, false)
}

// LiquidateBorrow repays repayAmount of borrower's debt on behalf of
// liquidator and seizes the matching collateral from the collateral market.
// It returns the seized token amount.
func (b *Book) LiquidateBorrow(liquidator, borrower crypto.Address, repayAmount *uint256.Int, collateral *Book) (*uint256.Int, error) {
	var seized *uint256.Int
	err := b.run("liquidate", func() error {
		if collateral == nil {
			return fmt.Errorf("%w: collateral market required", comptroller.ErrConfiguration)
		}
		if liquidator == borrower {
			return ErrSelfLiquidation
		}
		if err := positive(repayAmount); err != nil {
			return err
		}
		decision, err := b.gate.LiquidateBorrowAllowed(b.address, collateral.address, liquidator, borrower, repayAmount)
		if err := admitted(comptroller.ActionLiquidateBorrow, decision, err); err != nil {
			return err
		}
		if err := b.repay(liquidator, borrower, repayAmount); err != nil {
			return err
		}
		seizeTokens, err := b.gate.LiquidateCalculateSeizeTokens(b.address, collateral.address, repayAmount)
		if err != nil {
			return err
		}
		if err := collateral.seize(b.address, liquidator, borrower, seizeTokens); err != nil {
			return err
		}
		seized = seizeTokens
		return b.gate.LiquidateBorrowVerify(b.address, collateral.address, liquidator, borrower, repayAmount, seizeTokens)
	})
	if err != nil {
		return nil, err
	}
	return seized, nil
}

// seize moves seizeTokens from borrower to liquidator. It runs inside the
// liquidating market's snapshot.
func (b *Book) seize(borrowed, liquidator, borrower crypto.Address, seizeTokens *uint256.Int) error {
	decision, err := b.gate.SeizeAllowed(b.address, borrowed, liquidator, borrower, seizeTokens)
	if err := admitted(comptroller.ActionSeize, decision, err); err != nil {
		return err
	}
	if err := b.move(borrower, liquidator, seizeTokens, ErrInsufficientCollateral); err != nil {
		return err
	}
	return b.gate.SeizeVerify(b.address, borrowed, liquidator, borrower, seizeTokens)
}

// Transfer moves tokens from src to dst.
func (b *Book) Transfer(src, dst crypto.Address, tokens *uint256.Int) error {
	return b.run("transfer", func() error {
		if err := positive(tokens); err != nil {
			return err
		}
		decision, err := b.gate.TransferAllowed(b.address, src, dst, tokens)
		if err := admitted(comptroller.ActionTransfer, decision, err); err != nil {
			return err
		}
		if err := b.move(src, dst, tokens, ErrInsufficientBalance); err != nil {
			return err
		}
		return b.gate.TransferVerify(b.address, src, dst, tokens)
	})
}

func (b *Book) move(src, dst crypto.Address, tokens *uint256.Int, shortErr error) error {
	if src == dst {
		return nil
	}
	from, err := b.load(src)
	if err != nil {
		return err
	}
	if tokens.Gt(from.tokens) {
		return shortErr
	}
	to, err := b.load(dst)
	if err != nil {
		return err
	}
	from.tokens = new(uint256.Int).Sub(from.tokens, tokens)
	to.tokens = new(uint256.Int).Add(to.tokens, tokens)
	if err := b.store(src, from); err != nil {
		return err
	}
	return b.store(dst, to)
}
