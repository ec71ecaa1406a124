package oracle

import (
	"errors"
	"testing"
	"time"

	"riskgate/core/fixed"
	"riskgate/core/state"
	"riskgate/crypto"
	"riskgate/native/common"
	"riskgate/storage"
)

func addr(b byte) crypto.Address {
	var a crypto.Address
	a[19] = b
	return a
}

func TestFeedPostAndRead(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	mgr := state.NewManager(storage.NewMemDB())
	feed := NewFeed(mgr, addr(0xA0), WithClock(func() time.Time { return now }), WithMaxAge(time.Minute))

	price, err := feed.Price(addr(1))
	if err != nil || !price.IsZero() {
		t.Fatalf("unknown asset price = %s err=%v", price, err)
	}

	if err := feed.SetPrice(addr(0xB0), addr(1), fixed.MustParse("2")); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if err := feed.SetPrice(addr(0xA0), addr(1), fixed.Exp{}); !errors.Is(err, ErrInvalidPrice) {
		t.Fatalf("expected invalid price, got %v", err)
	}
	if err := feed.SetPrice(addr(0xA0), addr(1), fixed.MustParse("2.5")); err != nil {
		t.Fatalf("set price: %v", err)
	}
	price, err = feed.Price(addr(1))
	if err != nil || price.String() != "2.5" {
		t.Fatalf("price = %s err=%v", price, err)
	}

	now = now.Add(2 * time.Minute)
	price, err = feed.Price(addr(1))
	if err != nil || !price.IsZero() {
		t.Fatalf("stale price = %s err=%v", price, err)
	}
}

func TestFeedHonoursPauses(t *testing.T) {
	mgr := state.NewManager(storage.NewMemDB())
	feed := NewFeed(mgr, addr(0xA0), WithPauses(common.StaticPauses{moduleName: true}))
	if err := feed.SetPrice(addr(0xA0), addr(1), fixed.MustParse("1")); !errors.Is(err, common.ErrModulePaused) {
		t.Fatalf("expected paused, got %v", err)
	}
	if err := feed.Seed(addr(1), fixed.MustParse("1")); err != nil {
		t.Fatalf("seed: %v", err)
	}
}
