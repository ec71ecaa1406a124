package state

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	"riskgate/core/fixed"
	"riskgate/crypto"
	"riskgate/native/comptroller"
)

type marketRecord struct {
	Listed           bool
	CollateralFactor *big.Int
	MintPaused       bool
	BorrowPaused     bool
	SupplyCap        *big.Int
	BorrowCap        *big.Int
}

type paramsRecord struct {
	Admin                 crypto.Address
	PendingAdmin          crypto.Address
	PauseGuardian         crypto.Address
	CapGuardian           crypto.Address
	CloseFactor           *big.Int
	LiquidationIncentive  *big.Int
	TransferPaused        bool
	SeizePaused           bool
	ProxyAdmin            crypto.Address
	Implementation        crypto.Address
	PendingImplementation crypto.Address
}

func toBig(v *uint256.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v.ToBig()
}

func fromBig(v *big.Int) (*uint256.Int, error) {
	if v == nil {
		return new(uint256.Int), nil
	}
	out, overflow := uint256.FromBig(v)
	if overflow {
		return nil, fmt.Errorf("state: value %s overflows 256 bits", v)
	}
	return out, nil
}

// ComptrollerMarket loads the stored configuration of asset.
func (m *Manager) ComptrollerMarket(asset crypto.Address) (*comptroller.Market, bool, error) {
	var rec marketRecord
	ok, err := m.KVGet(ComptrollerMarketKey(asset.Bytes()), &rec)
	if err != nil || !ok {
		return nil, false, err
	}
	factor, err := fixed.FromBig(rec.CollateralFactor)
	if err != nil {
		return nil, false, err
	}
	supplyCap, err := fromBig(rec.SupplyCap)
	if err != nil {
		return nil, false, err
	}
	borrowCap, err := fromBig(rec.BorrowCap)
	if err != nil {
		return nil, false, err
	}
	return &comptroller.Market{
		Asset:            asset,
		Listed:           rec.Listed,
		CollateralFactor: factor,
		MintPaused:       rec.MintPaused,
		BorrowPaused:     rec.BorrowPaused,
		SupplyCap:        supplyCap,
		BorrowCap:        borrowCap,
	}, true, nil
}

// PutComptrollerMarket stages a market configuration.
func (m *Manager) PutComptrollerMarket(market *comptroller.Market) error {
	if market == nil {
		return fmt.Errorf("state: nil market")
	}
	rec := marketRecord{
		Listed:           market.Listed,
		CollateralFactor: market.CollateralFactor.BigInt(),
		MintPaused:       market.MintPaused,
		BorrowPaused:     market.BorrowPaused,
		SupplyCap:        toBig(market.SupplyCap),
		BorrowCap:        toBig(market.BorrowCap),
	}
	return m.KVPut(ComptrollerMarketKey(market.Asset.Bytes()), rec)
}

// ComptrollerMarkets returns every listed market in listing order.
func (m *Manager) ComptrollerMarkets() ([]crypto.Address, error) {
	var list []crypto.Address
	if _, err := m.KVGet(ComptrollerMarketsKey(), &list); err != nil {
		return nil, err
	}
	return list, nil
}

// PutComptrollerMarkets stages the listed-market index.
func (m *Manager) PutComptrollerMarkets(assets []crypto.Address) error {
	if assets == nil {
		assets = []crypto.Address{}
	}
	return m.KVPut(ComptrollerMarketsKey(), assets)
}

// ComptrollerMembership loads the markets account has entered. The ordered
// list is the persisted form; the lookup index is rebuilt on load.
func (m *Manager) ComptrollerMembership(account crypto.Address) (*comptroller.AssetSet, error) {
	var list []crypto.Address
	if _, err := m.KVGet(ComptrollerMembershipKey(account.Bytes()), &list); err != nil {
		return nil, err
	}
	set := comptroller.NewAssetSet(list...)
	if set.Len() != len(list) {
		return nil, fmt.Errorf("%w: duplicate membership entries for %s", comptroller.ErrConsistency, account)
	}
	return set, nil
}

// PutComptrollerMembership stages an account's entered markets. Empty sets
// are deleted.
func (m *Manager) PutComptrollerMembership(account crypto.Address, set *comptroller.AssetSet) error {
	key := ComptrollerMembershipKey(account.Bytes())
	if set.Len() == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, set.Assets())
}

// ComptrollerParams loads the risk parameters, or nil before initialisation.
func (m *Manager) ComptrollerParams() (*comptroller.RiskParameters, error) {
	var rec paramsRecord
	ok, err := m.KVGet(ComptrollerParamsKey(), &rec)
	if err != nil || !ok {
		return nil, err
	}
	closeFactor, err := fixed.FromBig(rec.CloseFactor)
	if err != nil {
		return nil, err
	}
	incentive, err := fixed.FromBig(rec.LiquidationIncentive)
	if err != nil {
		return nil, err
	}
	return &comptroller.RiskParameters{
		Admin:                 rec.Admin,
		PendingAdmin:          rec.PendingAdmin,
		PauseGuardian:         rec.PauseGuardian,
		CapGuardian:           rec.CapGuardian,
		CloseFactor:           closeFactor,
		LiquidationIncentive:  incentive,
		TransferPaused:        rec.TransferPaused,
		SeizePaused:           rec.SeizePaused,
		ProxyAdmin:            rec.ProxyAdmin,
		Implementation:        rec.Implementation,
		PendingImplementation: rec.PendingImplementation,
	}, nil
}

// PutComptrollerParams stages the risk parameters.
func (m *Manager) PutComptrollerParams(params *comptroller.RiskParameters) error {
	if params == nil {
		return fmt.Errorf("state: nil risk parameters")
	}
	rec := paramsRecord{
		Admin:                 params.Admin,
		PendingAdmin:          params.PendingAdmin,
		PauseGuardian:         params.PauseGuardian,
		CapGuardian:           params.CapGuardian,
		CloseFactor:           params.CloseFactor.BigInt(),
		LiquidationIncentive:  params.LiquidationIncentive.BigInt(),
		TransferPaused:        params.TransferPaused,
		SeizePaused:           params.SeizePaused,
		ProxyAdmin:            params.ProxyAdmin,
		Implementation:        params.Implementation,
		PendingImplementation: params.PendingImplementation,
	}
	return m.KVPut(ComptrollerParamsKey(), rec)
}

var _ comptroller.State = (*Manager)(nil)
