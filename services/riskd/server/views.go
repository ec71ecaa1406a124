package server

import (
	"github.com/holiman/uint256"

	"riskgate/crypto"
	"riskgate/native/comptroller"
)

type marketView struct {
	Asset            string `json:"asset"`
	Symbol           string `json:"symbol,omitempty"`
	Listed           bool   `json:"listed"`
	CollateralFactor string `json:"collateral_factor"`
	MintPaused       bool   `json:"mint_paused"`
	BorrowPaused     bool   `json:"borrow_paused"`
	SupplyCap        string `json:"supply_cap"`
	BorrowCap        string `json:"borrow_cap"`
}

type paramsView struct {
	Admin                 string `json:"admin"`
	PendingAdmin          string `json:"pending_admin,omitempty"`
	PauseGuardian         string `json:"pause_guardian,omitempty"`
	CapGuardian           string `json:"cap_guardian,omitempty"`
	CloseFactor           string `json:"close_factor"`
	LiquidationIncentive  string `json:"liquidation_incentive"`
	TransferPaused        bool   `json:"transfer_paused"`
	SeizePaused           bool   `json:"seize_paused"`
	ProxyAdmin            string `json:"proxy_admin,omitempty"`
	Implementation        string `json:"implementation,omitempty"`
	PendingImplementation string `json:"pending_implementation,omitempty"`
}

type liquidityView struct {
	Surplus   string `json:"surplus"`
	Shortfall string `json:"shortfall"`
}

type decisionView struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

type positionView struct {
	Tokens   string `json:"tokens"`
	Borrowed string `json:"borrowed"`
}

func (s *Server) toMarketView(m *comptroller.Market) marketView {
	view := marketView{
		Asset:            m.Asset.String(),
		Listed:           m.Listed,
		CollateralFactor: m.CollateralFactor.String(),
		MintPaused:       m.MintPaused,
		BorrowPaused:     m.BorrowPaused,
		SupplyCap:        intString(m.SupplyCap),
		BorrowCap:        intString(m.BorrowCap),
	}
	if book, ok := s.node.Assets.Book(m.Asset); ok {
		view.Symbol = book.Symbol()
	}
	return view
}

func toParamsView(p *comptroller.RiskParameters) paramsView {
	return paramsView{
		Admin:                 addrString(p.Admin),
		PendingAdmin:          addrString(p.PendingAdmin),
		PauseGuardian:         addrString(p.PauseGuardian),
		CapGuardian:           addrString(p.CapGuardian),
		CloseFactor:           p.CloseFactor.String(),
		LiquidationIncentive:  p.LiquidationIncentive.String(),
		TransferPaused:        p.TransferPaused,
		SeizePaused:           p.SeizePaused,
		ProxyAdmin:            addrString(p.ProxyAdmin),
		Implementation:        addrString(p.Implementation),
		PendingImplementation: addrString(p.PendingImplementation),
	}
}

func toLiquidityView(l comptroller.Liquidity) liquidityView {
	return liquidityView{Surplus: intString(l.Surplus), Shortfall: intString(l.Shortfall)}
}

func toDecisionView(d comptroller.Decision) decisionView {
	return decisionView{Allowed: d.Allowed, Reason: d.Reason.String()}
}

func intString(v *uint256.Int) string {
	if v == nil {
		return "0"
	}
	return v.Dec()
}

func addrString(a crypto.Address) string {
	if a.IsZero() {
		return ""
	}
	return a.String()
}
