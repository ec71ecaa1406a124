package comptroller

import (
	"strings"

	"github.com/holiman/uint256"

	"riskgate/core/fixed"
	"riskgate/crypto"
)

// Market captures the risk configuration of a single listed asset.
type Market struct {
	// Asset identifies the market's asset collaborator.
	Asset crypto.Address
	// Listed reports whether the market has been admitted by governance.
	// Every other field is meaningless for unlisted markets.
	Listed bool
	// CollateralFactor is the share of the asset's value usable as
	// collateral, bounded by MaxCollateralFactor.
	CollateralFactor fixed.Exp
	// MintPaused and BorrowPaused are per-market action switches.
	MintPaused   bool
	BorrowPaused bool
	// SupplyCap and BorrowCap bound the market totals. Zero or nil means
	// unlimited.
	SupplyCap *uint256.Int
	BorrowCap *uint256.Int
}

// Clone returns a deep copy of the market.
func (m *Market) Clone() *Market {
	if m == nil {
		return nil
	}
	clone := *m
	if m.SupplyCap != nil {
		clone.SupplyCap = m.SupplyCap.Clone()
	}
	if m.BorrowCap != nil {
		clone.BorrowCap = m.BorrowCap.Clone()
	}
	return &clone
}

// RiskParameters groups the governance owned, process-wide settings.
type RiskParameters struct {
	Admin         crypto.Address
	PendingAdmin  crypto.Address
	PauseGuardian crypto.Address
	CapGuardian   crypto.Address
	// CloseFactor bounds the share of a borrower's debt repayable in one
	// liquidation.
	CloseFactor fixed.Exp
	// LiquidationIncentive is the collateral multiplier paid to liquidators.
	LiquidationIncentive fixed.Exp
	TransferPaused       bool
	SeizePaused          bool
	// Proxy bookkeeping for implementation migrations.
	ProxyAdmin            crypto.Address
	Implementation        crypto.Address
	PendingImplementation crypto.Address
}

// Clone returns a copy of the parameters.
func (p *RiskParameters) Clone() *RiskParameters {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

// Liquidity is the signed result of a liquidity computation split into its
// two non-negative halves. At most one of them is nonzero.
type Liquidity struct {
	Surplus   *uint256.Int
	Shortfall *uint256.Int
}

// HasShortfall reports whether required coverage exceeds collateral.
func (l Liquidity) HasShortfall() bool {
	return l.Shortfall != nil && !l.Shortfall.IsZero()
}

// Action enumerates the protocol operations guarded by the engine.
type Action uint8

const (
	ActionMint Action = iota + 1
	ActionRedeem
	ActionBorrow
	ActionRepay
	ActionLiquidateBorrow
	ActionSeize
	ActionTransfer
)

var actionNames = map[Action]string{
	ActionMint:            "mint",
	ActionRedeem:          "redeem",
	ActionBorrow:          "borrow",
	ActionRepay:           "repay",
	ActionLiquidateBorrow: "liquidate_borrow",
	ActionSeize:           "seize",
	ActionTransfer:        "transfer",
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseAction resolves the textual action name used by the service layer.
func ParseAction(name string) (Action, bool) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	for action, candidate := range actionNames {
		if candidate == normalized {
			return action, true
		}
	}
	return 0, false
}

// Decision is the outcome of a policy check. Denials carry the first failing
// rule; allowed decisions carry ReasonNone.
type Decision struct {
	Allowed bool
	Reason  Reason
}

// Err converts a denial into a *DenialError, or nil when allowed.
func (d Decision) Err(action Action) error {
	if d.Allowed {
		return nil
	}
	return &DenialError{Action: action, Reason: d.Reason}
}

var allowed = Decision{Allowed: true, Reason: ReasonNone}

// Risk bounds enforced by the governance setters.
var (
	MaxCollateralFactor     = fixed.MustParse("0.9")
	MinCloseFactor          = fixed.MustParse("0.05")
	MaxCloseFactor          = fixed.MustParse("0.9")
	MinLiquidationIncentive = fixed.MustParse("1")
	MaxLiquidationIncentive = fixed.MustParse("1.5")
)
