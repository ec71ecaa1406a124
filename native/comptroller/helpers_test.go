package comptroller

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"riskgate/core/fixed"
	"riskgate/crypto"
)

type memSnapshot struct {
	markets map[crypto.Address]*Market
	list    []crypto.Address
	members map[crypto.Address]*AssetSet
	params  *RiskParameters
}

// memState is an in-memory State with full-copy snapshots.
type memState struct {
	memSnapshot
	snapshots []memSnapshot
	failPut   error
}

func newMemState() *memState {
	return &memState{memSnapshot: memSnapshot{
		markets: make(map[crypto.Address]*Market),
		members: make(map[crypto.Address]*AssetSet),
	}}
}

func (s *memSnapshot) clone() memSnapshot {
	out := memSnapshot{
		markets: make(map[crypto.Address]*Market, len(s.markets)),
		list:    append([]crypto.Address(nil), s.list...),
		members: make(map[crypto.Address]*AssetSet, len(s.members)),
		params:  s.params.Clone(),
	}
	for k, v := range s.markets {
		out.markets[k] = v.Clone()
	}
	for k, v := range s.members {
		out.members[k] = v.Clone()
	}
	return out
}

func (s *memState) ComptrollerMarket(asset crypto.Address) (*Market, bool, error) {
	market, ok := s.markets[asset]
	if !ok {
		return nil, false, nil
	}
	return market.Clone(), true, nil
}

func (s *memState) PutComptrollerMarket(market *Market) error {
	if s.failPut != nil {
		return s.failPut
	}
	s.markets[market.Asset] = market.Clone()
	return nil
}

func (s *memState) ComptrollerMarkets() ([]crypto.Address, error) {
	return append([]crypto.Address(nil), s.list...), nil
}

func (s *memState) PutComptrollerMarkets(assets []crypto.Address) error {
	s.list = append([]crypto.Address(nil), assets...)
	return nil
}

func (s *memState) ComptrollerMembership(account crypto.Address) (*AssetSet, error) {
	return s.members[account].Clone(), nil
}

func (s *memState) PutComptrollerMembership(account crypto.Address, set *AssetSet) error {
	if s.failPut != nil {
		return s.failPut
	}
	s.members[account] = set.Clone()
	return nil
}

func (s *memState) ComptrollerParams() (*RiskParameters, error) {
	if s.params == nil {
		return nil, nil
	}
	return s.params.Clone(), nil
}

func (s *memState) PutComptrollerParams(params *RiskParameters) error {
	s.params = params.Clone()
	return nil
}

func (s *memState) Snapshot() int {
	s.snapshots = append(s.snapshots, s.memSnapshot.clone())
	return len(s.snapshots) - 1
}

func (s *memState) RevertToSnapshot(id int) {
	if id < 0 || id >= len(s.snapshots) {
		return
	}
	s.memSnapshot = s.snapshots[id]
	s.snapshots = s.snapshots[:id]
}

type fakeOracle map[crypto.Address]fixed.Exp

func (o fakeOracle) Price(asset crypto.Address) (fixed.Exp, error) {
	return o[asset], nil
}

type fakeAsset struct {
	addr         crypto.Address
	registry     crypto.Address
	unrecognized bool
	tokens       map[crypto.Address]*uint256.Int
	borrows      map[crypto.Address]*uint256.Int
	totalSupply  *uint256.Int
	totalBorrows *uint256.Int
}

func (a *fakeAsset) Address() crypto.Address { return a.addr }

func (a *fakeAsset) AccountSnapshot(account crypto.Address) (*uint256.Int, *uint256.Int, error) {
	return orNew(a.tokens[account]), orNew(a.borrows[account]), nil
}

func (a *fakeAsset) TotalSupply() (*uint256.Int, error)  { return orNew(a.totalSupply), nil }
func (a *fakeAsset) TotalBorrows() (*uint256.Int, error) { return orNew(a.totalBorrows), nil }
func (a *fakeAsset) RegistryOf() crypto.Address          { return a.registry }
func (a *fakeAsset) IsRecognizedAssetType() bool         { return !a.unrecognized }
func (a *fakeAsset) setTokens(acct crypto.Address, n uint64) {
	a.tokens[acct] = uint256.NewInt(n)
}
func (a *fakeAsset) setBorrow(acct crypto.Address, n uint64) {
	a.borrows[acct] = uint256.NewInt(n)
}

func orNew(v *uint256.Int) *uint256.Int {
	if v == nil {
		return new(uint256.Int)
	}
	return v.Clone()
}

func testAddr(b byte) crypto.Address {
	var addr crypto.Address
	addr[0] = 0xAA
	addr[19] = b
	return addr
}

var (
	engineAddr = testAddr(0xF0)
	adminAddr  = testAddr(0xA0)
	pauseAddr  = testAddr(0xA1)
	capAddr    = testAddr(0xA2)
	alice      = testAddr(0x01)
	bob        = testAddr(0x02)
	carol      = testAddr(0x03)
)

type harness struct {
	t      *testing.T
	engine *Engine
	state  *memState
	oracle fakeOracle
	assets AssetMap
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		engine: NewEngine(engineAddr),
		state:  newMemState(),
		oracle: fakeOracle{},
		assets: AssetMap{},
	}
	h.engine.SetState(h.state)
	h.engine.SetAssets(h.assets)
	if err := h.engine.Initialize(adminAddr); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	h.must(h.engine.SetPriceOracle(adminAddr, h.oracle))
	h.must(h.engine.SetPauseGuardian(adminAddr, pauseAddr))
	h.must(h.engine.SetCapGuardian(adminAddr, capAddr))
	h.must(h.engine.SetCloseFactor(adminAddr, fixed.MustParse("0.5")))
	h.must(h.engine.SetLiquidationIncentive(adminAddr, fixed.MustParse("1.08")))
	return h
}

func (h *harness) must(err error) {
	h.t.Helper()
	if err != nil {
		h.t.Fatalf("unexpected error: %v", err)
	}
}

// listMarket registers, lists and prices a market.
func (h *harness) listMarket(id byte, price, factor string) *fakeAsset {
	h.t.Helper()
	asset := &fakeAsset{
		addr:     testAddr(id),
		registry: engineAddr,
		tokens:   make(map[crypto.Address]*uint256.Int),
		borrows:  make(map[crypto.Address]*uint256.Int),
	}
	h.assets[asset.addr] = asset
	h.oracle[asset.addr] = fixed.MustParse(price)
	h.must(h.engine.ListMarket(adminAddr, asset.addr))
	if factor != "0" {
		h.must(h.engine.SetCollateralFactor(adminAddr, asset.addr, fixed.MustParse(factor)))
	}
	return asset
}

func (h *harness) enter(account crypto.Address, assets ...crypto.Address) {
	h.t.Helper()
	decisions, err := h.engine.EnterMarkets(account, assets)
	if err != nil {
		h.t.Fatalf("enter markets: %v", err)
	}
	for i, d := range decisions {
		if !d.Allowed {
			h.t.Fatalf("enter %s denied: %s", assets[i], d.Reason)
		}
	}
}

func expectDecision(t *testing.T, d Decision, err error, allowedWant bool, reason Reason) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected abort: %v", err)
	}
	if d.Allowed != allowedWant || d.Reason != reason {
		t.Fatalf("decision = %+v, want allowed=%v reason=%s", d, allowedWant, reason)
	}
}

func expectKind(t *testing.T, err, kind error) {
	t.Helper()
	if !errors.Is(err, kind) {
		t.Fatalf("error = %v, want kind %v", err, kind)
	}
}

func amount(n uint64) *uint256.Int { return uint256.NewInt(n) }
