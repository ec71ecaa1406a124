package state

import (
	"testing"

	"github.com/holiman/uint256"

	"riskgate/core/fixed"
	"riskgate/crypto"
	"riskgate/native/comptroller"
	"riskgate/storage"
)

func addr(b byte) crypto.Address {
	var a crypto.Address
	a[19] = b
	return a
}

func TestKeyFormats(t *testing.T) {
	if string(ComptrollerParamsKey()) != "comptroller/params" {
		t.Fatalf("unexpected params key: %s", ComptrollerParamsKey())
	}
	key := AssetAccountKey([]byte{0x01}, []byte{0x02})
	expected := append([]byte("asset/account/"), 0x01, '/', 0x02)
	if string(key) != string(expected) {
		t.Fatalf("unexpected account key: %x", key)
	}
}

func TestSnapshotRevertNested(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)

	if err := mgr.KVPut([]byte("a"), uint64(1)); err != nil {
		t.Fatalf("put: %v", err)
	}
	outer := mgr.Snapshot()
	if err := mgr.KVPut([]byte("a"), uint64(2)); err != nil {
		t.Fatalf("put: %v", err)
	}
	inner := mgr.Snapshot()
	if err := mgr.KVPut([]byte("b"), uint64(3)); err != nil {
		t.Fatalf("put: %v", err)
	}
	mgr.RevertToSnapshot(inner)

	var got uint64
	if ok, _ := mgr.KVGet([]byte("b"), &got); ok {
		t.Fatalf("b survived inner revert")
	}
	if _, err := mgr.KVGet([]byte("a"), &got); err != nil || got != 2 {
		t.Fatalf("a = %d err=%v, want 2", got, err)
	}

	mgr.RevertToSnapshot(outer)
	if _, err := mgr.KVGet([]byte("a"), &got); err != nil || got != 1 {
		t.Fatalf("a = %d err=%v, want 1", got, err)
	}
}

func TestCommitAndDiscard(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)

	if err := mgr.KVPut([]byte("kept"), uint64(7)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if db.Len() != 0 {
		t.Fatalf("write reached the database before commit")
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if db.Len() != 1 || mgr.Pending() != 0 {
		t.Fatalf("db len=%d pending=%d", db.Len(), mgr.Pending())
	}

	if err := mgr.KVDelete([]byte("kept")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	mgr.Discard()
	fresh := NewManager(db)
	var got uint64
	if ok, err := fresh.KVGet([]byte("kept"), &got); err != nil || !ok || got != 7 {
		t.Fatalf("kept = %d ok=%v err=%v", got, ok, err)
	}

	if err := mgr.KVDelete([]byte("kept")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if db.Len() != 0 {
		t.Fatalf("delete not committed")
	}
}

func TestComptrollerRecordsRoundTrip(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	asset := addr(1)

	market := &comptroller.Market{
		Asset:            asset,
		Listed:           true,
		CollateralFactor: fixed.MustParse("0.75"),
		BorrowPaused:     true,
		SupplyCap:        uint256.NewInt(1000),
	}
	if err := mgr.PutComptrollerMarket(market); err != nil {
		t.Fatalf("put market: %v", err)
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	loaded, ok, err := mgr.ComptrollerMarket(asset)
	if err != nil || !ok {
		t.Fatalf("load market: ok=%v err=%v", ok, err)
	}
	if !loaded.Listed || !loaded.BorrowPaused || loaded.CollateralFactor.String() != "0.75" || loaded.SupplyCap.Uint64() != 1000 || !loaded.BorrowCap.IsZero() {
		t.Fatalf("unexpected market %+v", loaded)
	}

	if _, ok, _ := mgr.ComptrollerMarket(addr(9)); ok {
		t.Fatalf("unknown market reported present")
	}

	set := comptroller.NewAssetSet(addr(3), addr(1), addr(2))
	if err := mgr.PutComptrollerMembership(addr(7), set); err != nil {
		t.Fatalf("put membership: %v", err)
	}
	got, err := mgr.ComptrollerMembership(addr(7))
	if err != nil {
		t.Fatalf("membership: %v", err)
	}
	assets := got.Assets()
	if len(assets) != 3 || assets[0] != addr(3) || !got.Contains(addr(2)) {
		t.Fatalf("membership = %v", assets)
	}

	params := &comptroller.RiskParameters{
		Admin:                addr(0xA0),
		CloseFactor:          fixed.MustParse("0.5"),
		LiquidationIncentive: fixed.MustParse("1.08"),
		SeizePaused:          true,
	}
	if err := mgr.PutComptrollerParams(params); err != nil {
		t.Fatalf("put params: %v", err)
	}
	loadedParams, err := mgr.ComptrollerParams()
	if err != nil {
		t.Fatalf("params: %v", err)
	}
	if *loadedParams != *params {
		t.Fatalf("params = %+v, want %+v", loadedParams, params)
	}
}

func TestEngineOverManagerRollsBackDenials(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	engine := comptroller.NewEngine(addr(0xF0))
	engine.SetState(mgr)
	if err := engine.Initialize(addr(0xA0)); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	if err := engine.ListMarket(addr(0xA0), addr(1)); err == nil {
		t.Fatalf("listing without an asset resolver should fail")
	}
	markets, err := engine.AllMarkets()
	if err != nil {
		t.Fatalf("markets: %v", err)
	}
	if len(markets) != 0 {
		t.Fatalf("failed listing left %v", markets)
	}
	if err := mgr.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	params, err := engine.Params()
	if err != nil || params.Admin != addr(0xA0) {
		t.Fatalf("params = %+v err=%v", params, err)
	}
}

func TestEnsureStateVersion(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	fresh, err := EnsureStateVersion(mgr)
	if err != nil || !fresh {
		t.Fatalf("fresh=%v err=%v", fresh, err)
	}
	fresh, err = EnsureStateVersion(mgr)
	if err != nil || fresh {
		t.Fatalf("second check fresh=%v err=%v", fresh, err)
	}
	if err := mgr.SetStateVersion(StateVersion + 1); err != nil {
		t.Fatalf("set version: %v", err)
	}
	if _, err := EnsureStateVersion(mgr); err == nil {
		t.Fatalf("expected version mismatch")
	}
}
