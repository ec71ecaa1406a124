package comptroller

import (
	"errors"
	"fmt"
)

// Error kinds. Every failure returned by the engine wraps exactly one of
// these so callers can branch with errors.Is.
var (
	ErrConfiguration = errors.New("comptroller: configuration error")
	ErrAuthorization = errors.New("comptroller: unauthorized")
	ErrSolvency      = errors.New("comptroller: insufficient solvency")
	ErrCapacity      = errors.New("comptroller: capacity exceeded")
	ErrPricing       = errors.New("comptroller: price unavailable")
	ErrConsistency   = errors.New("comptroller: bookkeeping inconsistency")
	ErrPaused        = errors.New("comptroller: action paused")
	ErrArithmetic    = errors.New("comptroller: arithmetic failure")
)

var (
	errNilState      = errors.New("comptroller: state not configured")
	errNilOracle     = errors.New("comptroller: price oracle not configured")
	errNilAssets     = errors.New("comptroller: asset resolver not configured")
	errAlreadyBooted = errors.New("comptroller: admin already initialised")
	errZeroIdentity  = errors.New("comptroller: identity must be non-zero")
	errAssetNotFound = errors.New("comptroller: asset collaborator unavailable")
	errNilAmount     = errors.New("comptroller: amount required")
)

// Reason identifies the rule that denied an action.
type Reason uint8

const (
	ReasonNone Reason = iota
	ReasonMarketNotListed
	ReasonMarketAlreadyListed
	ReasonUnrecognizedAsset
	ReasonInvalidCollateralFactor
	ReasonInvalidCloseFactor
	ReasonInvalidLiquidationIncentive
	ReasonInvalidInput
	ReasonNotPausable
	ReasonRegistryMismatch
	ReasonImplementationMismatch
	ReasonMintPaused
	ReasonBorrowPaused
	ReasonTransferPaused
	ReasonSeizePaused
	ReasonSupplyCapReached
	ReasonBorrowCapReached
	ReasonInsufficientLiquidity
	ReasonInsufficientShortfall
	ReasonTooMuchRepay
	ReasonNonzeroBorrowBalance
	ReasonPriceError
)

var reasonNames = map[Reason]string{
	ReasonNone:                        "none",
	ReasonMarketNotListed:             "market_not_listed",
	ReasonMarketAlreadyListed:         "market_already_listed",
	ReasonUnrecognizedAsset:           "unrecognized_asset",
	ReasonInvalidCollateralFactor:     "invalid_collateral_factor",
	ReasonInvalidCloseFactor:          "invalid_close_factor",
	ReasonInvalidLiquidationIncentive: "invalid_liquidation_incentive",
	ReasonInvalidInput:                "invalid_input",
	ReasonNotPausable:                 "not_pausable",
	ReasonRegistryMismatch:            "registry_mismatch",
	ReasonImplementationMismatch:      "implementation_mismatch",
	ReasonMintPaused:                  "mint_paused",
	ReasonBorrowPaused:                "borrow_paused",
	ReasonTransferPaused:              "transfer_paused",
	ReasonSeizePaused:                 "seize_paused",
	ReasonSupplyCapReached:            "supply_cap_reached",
	ReasonBorrowCapReached:            "borrow_cap_reached",
	ReasonInsufficientLiquidity:       "insufficient_liquidity",
	ReasonInsufficientShortfall:       "insufficient_shortfall",
	ReasonTooMuchRepay:                "too_much_repay",
	ReasonNonzeroBorrowBalance:        "nonzero_borrow_balance",
	ReasonPriceError:                  "price_error",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return "unknown"
}

// Kind returns the error kind the reason belongs to, or nil for ReasonNone.
func (r Reason) Kind() error {
	switch r {
	case ReasonNone:
		return nil
	case ReasonMintPaused, ReasonBorrowPaused, ReasonTransferPaused, ReasonSeizePaused:
		return ErrPaused
	case ReasonSupplyCapReached, ReasonBorrowCapReached:
		return ErrCapacity
	case ReasonInsufficientLiquidity, ReasonInsufficientShortfall, ReasonTooMuchRepay, ReasonNonzeroBorrowBalance:
		return ErrSolvency
	case ReasonPriceError:
		return ErrPricing
	default:
		return ErrConfiguration
	}
}

// DenialError is a business-rule denial. It unwraps to the reason's kind.
type DenialError struct {
	Action Action
	Reason Reason
}

func (e *DenialError) Error() string {
	if e.Action == 0 {
		return fmt.Sprintf("%v: %s", e.Reason.Kind(), e.Reason)
	}
	return fmt.Sprintf("%v: %s denied: %s", e.Reason.Kind(), e.Action, e.Reason)
}

func (e *DenialError) Unwrap() error {
	return e.Reason.Kind()
}

func deny(reason Reason) error {
	return &DenialError{Reason: reason}
}

func arithmetic(err error) error {
	return fmt.Errorf("%w: %w", ErrArithmetic, err)
}
