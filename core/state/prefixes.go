package state

var (
	comptrollerParamsKeyBytes   = []byte("comptroller/params")
	comptrollerMarketsKeyBytes  = []byte("comptroller/markets")
	comptrollerMarketPrefix     = []byte("comptroller/market/")
	comptrollerMembershipPrefix = []byte("comptroller/membership/")
	oraclePricePrefix           = []byte("oracle/price/")
	assetSupplyPrefix           = []byte("asset/supply/")
	assetAccountPrefix          = []byte("asset/account/")
)

// ComptrollerParamsKey stores the process-wide risk parameters.
func ComptrollerParamsKey() []byte {
	return append([]byte(nil), comptrollerParamsKeyBytes...)
}

// ComptrollerMarketsKey stores the ordered list of listed markets.
func ComptrollerMarketsKey() []byte {
	return append([]byte(nil), comptrollerMarketsKeyBytes...)
}

// ComptrollerMarketKey stores one market's configuration.
func ComptrollerMarketKey(asset []byte) []byte {
	return join(comptrollerMarketPrefix, asset)
}

// ComptrollerMembershipKey stores an account's entered markets.
func ComptrollerMembershipKey(account []byte) []byte {
	return join(comptrollerMembershipPrefix, account)
}

// OraclePriceKey stores the last posted price of an asset.
func OraclePriceKey(asset []byte) []byte {
	return join(oraclePricePrefix, asset)
}

// AssetSupplyKey stores an asset market's totals.
func AssetSupplyKey(asset []byte) []byte {
	return join(assetSupplyPrefix, asset)
}

// AssetAccountKey stores one account's position in an asset market.
func AssetAccountKey(asset, account []byte) []byte {
	key := join(assetAccountPrefix, asset)
	key = append(key, '/')
	return append(key, account...)
}

func join(prefix, suffix []byte) []byte {
	buf := make([]byte, len(prefix)+len(suffix))
	copy(buf, prefix)
	copy(buf[len(prefix):], suffix)
	return buf
}
