package state

import (
	"math/big"

	"github.com/holiman/uint256"

	"riskgate/core/fixed"
	"riskgate/crypto"
)

type priceRecord struct {
	Mantissa  *big.Int
	UpdatedAt uint64
}

type totalsRecord struct {
	Supply  *big.Int
	Borrows *big.Int
}

type positionRecord struct {
	Tokens   *big.Int
	Borrowed *big.Int
}

// OraclePrice returns the last posted price of asset and its unix timestamp.
func (m *Manager) OraclePrice(asset crypto.Address) (fixed.Exp, uint64, bool, error) {
	var rec priceRecord
	ok, err := m.KVGet(OraclePriceKey(asset.Bytes()), &rec)
	if err != nil || !ok {
		return fixed.Exp{}, 0, false, err
	}
	price, err := fixed.FromBig(rec.Mantissa)
	if err != nil {
		return fixed.Exp{}, 0, false, err
	}
	return price, rec.UpdatedAt, true, nil
}

// PutOraclePrice stages a posted price.
func (m *Manager) PutOraclePrice(asset crypto.Address, price fixed.Exp, updatedAt uint64) error {
	return m.KVPut(OraclePriceKey(asset.Bytes()), priceRecord{Mantissa: price.BigInt(), UpdatedAt: updatedAt})
}

// AssetTotals returns an asset market's total supply and total borrows.
func (m *Manager) AssetTotals(asset crypto.Address) (*uint256.Int, *uint256.Int, error) {
	var rec totalsRecord
	if _, err := m.KVGet(AssetSupplyKey(asset.Bytes()), &rec); err != nil {
		return nil, nil, err
	}
	supply, err := fromBig(rec.Supply)
	if err != nil {
		return nil, nil, err
	}
	borrows, err := fromBig(rec.Borrows)
	if err != nil {
		return nil, nil, err
	}
	return supply, borrows, nil
}

// PutAssetTotals stages an asset market's totals.
func (m *Manager) PutAssetTotals(asset crypto.Address, supply, borrows *uint256.Int) error {
	return m.KVPut(AssetSupplyKey(asset.Bytes()), totalsRecord{Supply: toBig(supply), Borrows: toBig(borrows)})
}

// AssetPosition returns account's token balance and borrow balance in asset.
func (m *Manager) AssetPosition(asset, account crypto.Address) (*uint256.Int, *uint256.Int, error) {
	var rec positionRecord
	if _, err := m.KVGet(AssetAccountKey(asset.Bytes(), account.Bytes()), &rec); err != nil {
		return nil, nil, err
	}
	tokens, err := fromBig(rec.Tokens)
	if err != nil {
		return nil, nil, err
	}
	borrowed, err := fromBig(rec.Borrowed)
	if err != nil {
		return nil, nil, err
	}
	return tokens, borrowed, nil
}

// PutAssetPosition stages account's position in asset. Empty positions are
// deleted.
func (m *Manager) PutAssetPosition(asset, account crypto.Address, tokens, borrowed *uint256.Int) error {
	key := AssetAccountKey(asset.Bytes(), account.Bytes())
	if (tokens == nil || tokens.IsZero()) && (borrowed == nil || borrowed.IsZero()) {
		return m.KVDelete(key)
	}
	return m.KVPut(key, positionRecord{Tokens: toBig(tokens), Borrowed: toBig(borrowed)})
}
