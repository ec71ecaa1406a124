package comptroller

import (
	"github.com/holiman/uint256"

	"riskgate/core/fixed"
	"riskgate/crypto"
)

// Oracle supplies prices scaled by 1e18 in the common denomination. A zero
// price means unavailable.
type Oracle interface {
	Price(asset crypto.Address) (fixed.Exp, error)
}

// Asset is the read surface the engine needs from an asset market.
type Asset interface {
	Address() crypto.Address
	// AccountSnapshot returns the account's asset-token balance and its
	// outstanding borrow balance.
	AccountSnapshot(account crypto.Address) (tokens *uint256.Int, borrowed *uint256.Int, err error)
	TotalSupply() (*uint256.Int, error)
	TotalBorrows() (*uint256.Int, error)
	// RegistryOf names the risk engine the asset answers to.
	RegistryOf() crypto.Address
	// IsRecognizedAssetType is the listing probe.
	IsRecognizedAssetType() bool
}

// AssetResolver looks asset collaborators up by address.
type AssetResolver interface {
	Asset(addr crypto.Address) (Asset, bool)
}

// AssetMap is the simplest AssetResolver.
type AssetMap map[crypto.Address]Asset

func (m AssetMap) Asset(addr crypto.Address) (Asset, bool) {
	asset, ok := m[addr]
	return asset, ok
}
