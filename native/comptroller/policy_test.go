package comptroller

import (
	"testing"

	"github.com/holiman/uint256"

	"riskgate/core/fixed"
	"riskgate/crypto"
)

func TestMintSupplyCap(t *testing.T) {
	h := newHarness(t)
	x := h.listMarket(0x10, "1", "0.5")
	x.totalSupply = amount(950)
	h.must(h.engine.SetMarketSupplyCaps(capAddr, []crypto.Address{x.addr}, []*uint256.Int{amount(1000)}))

	d, err := h.engine.MintAllowed(x.addr, alice, amount(50))
	expectDecision(t, d, err, true, ReasonNone)

	d, err = h.engine.MintAllowed(x.addr, alice, amount(51))
	expectDecision(t, d, err, false, ReasonSupplyCapReached)
	expectKind(t, d.Err(ActionMint), ErrCapacity)
}

func TestMintChecksRunInOrder(t *testing.T) {
	h := newHarness(t)
	x := h.listMarket(0x10, "1", "0.5")
	h.must(h.engine.SetPaused(pauseAddr, ActionMint, x.addr, true))

	d, err := h.engine.MintAllowed(x.addr, alice, amount(1))
	expectDecision(t, d, err, false, ReasonMintPaused)

	d, err = h.engine.MintAllowed(testAddr(0x55), alice, amount(1))
	expectDecision(t, d, err, false, ReasonMarketNotListed)
}

func TestRedeemNonMemberAlwaysAllowed(t *testing.T) {
	h := newHarness(t)
	x := h.listMarket(0x10, "1", "0.5")
	x.setTokens(alice, 10)

	d, err := h.engine.RedeemAllowed(x.addr, alice, amount(1_000_000))
	expectDecision(t, d, err, true, ReasonNone)
}

func TestRedeemRequiresLiquidity(t *testing.T) {
	h := newHarness(t)
	x := h.listMarket(0x10, "1", "0.5")
	y := h.listMarket(0x11, "1", "0")
	x.setTokens(alice, 1000)
	y.setBorrow(alice, 400)
	h.enter(alice, x.addr, y.addr)

	d, err := h.engine.RedeemAllowed(x.addr, alice, amount(200))
	expectDecision(t, d, err, true, ReasonNone)

	d, err = h.engine.RedeemAllowed(x.addr, alice, amount(202))
	expectDecision(t, d, err, false, ReasonInsufficientLiquidity)
}

func TestRedeemMonotonicity(t *testing.T) {
	h := newHarness(t)
	x := h.listMarket(0x10, "1", "0.5")
	y := h.listMarket(0x11, "1", "0")
	x.setTokens(alice, 1000)
	y.setBorrow(alice, 300)
	h.enter(alice, x.addr, y.addr)

	d, err := h.engine.RedeemAllowed(x.addr, alice, amount(400))
	expectDecision(t, d, err, true, ReasonNone)

	h.must(h.engine.SetCollateralFactor(adminAddr, x.addr, fixed.MustParse("0.8")))
	d, err = h.engine.RedeemAllowed(x.addr, alice, amount(400))
	expectDecision(t, d, err, true, ReasonNone)

	h.oracle[x.addr] = fixed.MustParse("2")
	d, err = h.engine.RedeemAllowed(x.addr, alice, amount(400))
	expectDecision(t, d, err, true, ReasonNone)

	var denied bool
	for _, n := range []uint64{100, 500, 900, 1000, 5000, 100000} {
		d, err := h.engine.BorrowAllowed(y.addr, y.addr, alice, amount(n))
		if err != nil {
			t.Fatalf("borrow %d: %v", n, err)
		}
		if denied && d.Allowed {
			t.Fatalf("borrow %d allowed after a smaller amount was denied", n)
		}
		denied = !d.Allowed
	}
	if !denied {
		t.Fatalf("expected the largest borrow to be denied")
	}
}

func TestBorrowAutoEntersWhenCalledByAsset(t *testing.T) {
	h := newHarness(t)
	x := h.listMarket(0x10, "1", "0.5")
	y := h.listMarket(0x11, "1", "0")
	x.setTokens(alice, 1000)
	h.enter(alice, x.addr)

	d, err := h.engine.BorrowAllowed(y.addr, y.addr, alice, amount(100))
	expectDecision(t, d, err, true, ReasonNone)

	member, err := h.engine.CheckMembership(alice, y.addr)
	if err != nil || !member {
		t.Fatalf("expected auto-entry, member=%v err=%v", member, err)
	}
}

func TestBorrowRejectsForeignCallerForNonMember(t *testing.T) {
	h := newHarness(t)
	y := h.listMarket(0x11, "1", "0")

	_, err := h.engine.BorrowAllowed(bob, y.addr, alice, amount(1))
	expectKind(t, err, ErrAuthorization)
}

func TestBorrowDenialRollsBackAutoEntry(t *testing.T) {
	h := newHarness(t)
	y := h.listMarket(0x11, "1", "0")

	d, err := h.engine.BorrowAllowed(y.addr, y.addr, alice, amount(10))
	expectDecision(t, d, err, false, ReasonInsufficientLiquidity)

	assets, err := h.engine.AssetsIn(alice)
	if err != nil {
		t.Fatalf("assets in: %v", err)
	}
	if len(assets) != 0 {
		t.Fatalf("denied borrow left membership %v", assets)
	}
}

func TestBorrowCapAndPrice(t *testing.T) {
	h := newHarness(t)
	x := h.listMarket(0x10, "1", "0.9")
	y := h.listMarket(0x11, "1", "0")
	x.setTokens(alice, 10_000)
	h.enter(alice, x.addr, y.addr)
	y.totalBorrows = amount(900)
	h.must(h.engine.SetMarketBorrowCaps(adminAddr, []crypto.Address{y.addr}, []*uint256.Int{amount(1000)}))

	d, err := h.engine.BorrowAllowed(alice, y.addr, alice, amount(100))
	expectDecision(t, d, err, true, ReasonNone)
	d, err = h.engine.BorrowAllowed(alice, y.addr, alice, amount(101))
	expectDecision(t, d, err, false, ReasonBorrowCapReached)

	h.oracle[y.addr] = fixed.Exp{}
	_, err = h.engine.BorrowAllowed(alice, y.addr, alice, amount(1))
	expectKind(t, err, ErrPricing)
}

func TestBorrowPausedBeforeListing(t *testing.T) {
	h := newHarness(t)
	y := h.listMarket(0x11, "1", "0")
	h.must(h.engine.SetPaused(adminAddr, ActionBorrow, y.addr, true))

	d, err := h.engine.BorrowAllowed(y.addr, y.addr, alice, amount(1))
	expectDecision(t, d, err, false, ReasonBorrowPaused)
	d, err = h.engine.BorrowAllowed(y.addr, testAddr(0x77), alice, amount(1))
	expectDecision(t, d, err, false, ReasonMarketNotListed)
}

func TestRepayOnlyNeedsListing(t *testing.T) {
	h := newHarness(t)
	y := h.listMarket(0x11, "1", "0")
	h.oracle[y.addr] = fixed.Exp{}

	d, err := h.engine.RepayBorrowAllowed(y.addr, bob, alice, amount(5))
	expectDecision(t, d, err, true, ReasonNone)
	d, err = h.engine.RepayBorrowAllowed(testAddr(0x66), bob, alice, amount(5))
	expectDecision(t, d, err, false, ReasonMarketNotListed)
}

func underwater(t *testing.T) (*harness, *fakeAsset, *fakeAsset) {
	h := newHarness(t)
	x := h.listMarket(0x10, "1", "0.5")
	y := h.listMarket(0x11, "1", "0")
	x.setTokens(alice, 100)
	y.setBorrow(alice, 200)
	h.enter(alice, x.addr, y.addr)
	return h, x, y
}

func TestLiquidateCloseFactor(t *testing.T) {
	h, x, y := underwater(t)

	d, err := h.engine.LiquidateBorrowAllowed(y.addr, x.addr, bob, alice, amount(100))
	expectDecision(t, d, err, true, ReasonNone)

	d, err = h.engine.LiquidateBorrowAllowed(y.addr, x.addr, bob, alice, amount(101))
	expectDecision(t, d, err, false, ReasonTooMuchRepay)
	expectKind(t, d.Err(ActionLiquidateBorrow), ErrSolvency)
}

func TestLiquidateRequiresShortfall(t *testing.T) {
	h, x, y := underwater(t)
	x.setTokens(alice, 1000)

	d, err := h.engine.LiquidateBorrowAllowed(y.addr, x.addr, bob, alice, amount(1))
	expectDecision(t, d, err, false, ReasonInsufficientShortfall)
}

func TestLiquidateRegistryMismatch(t *testing.T) {
	h, x, y := underwater(t)
	x.registry = testAddr(0xEE)

	d, err := h.engine.LiquidateBorrowAllowed(y.addr, x.addr, bob, alice, amount(1))
	expectDecision(t, d, err, false, ReasonRegistryMismatch)

	d, err = h.engine.SeizeAllowed(x.addr, y.addr, bob, alice, amount(1))
	expectDecision(t, d, err, false, ReasonRegistryMismatch)
}

func TestSeizeAndTransferPause(t *testing.T) {
	h, x, y := underwater(t)

	d, err := h.engine.SeizeAllowed(x.addr, y.addr, bob, alice, amount(1))
	expectDecision(t, d, err, true, ReasonNone)

	h.must(h.engine.SetPaused(pauseAddr, ActionSeize, crypto.Address{}, true))
	d, err = h.engine.SeizeAllowed(x.addr, y.addr, bob, alice, amount(1))
	expectDecision(t, d, err, false, ReasonSeizePaused)
	expectKind(t, d.Err(ActionSeize), ErrPaused)

	x.setTokens(carol, 10)
	d, err = h.engine.TransferAllowed(x.addr, carol, bob, amount(10))
	expectDecision(t, d, err, true, ReasonNone)

	d, err = h.engine.TransferAllowed(x.addr, alice, bob, amount(1))
	expectDecision(t, d, err, false, ReasonInsufficientLiquidity)

	h.must(h.engine.SetPaused(pauseAddr, ActionTransfer, crypto.Address{}, true))
	d, err = h.engine.TransferAllowed(x.addr, carol, bob, amount(10))
	expectDecision(t, d, err, false, ReasonTransferPaused)
}

func TestCheckDispatchesByAction(t *testing.T) {
	h := newHarness(t)
	x := h.listMarket(0x10, "1", "0.5")

	d, err := h.engine.Check(ActionRepay, CheckRequest{Asset: x.addr, Account: alice, Counterparty: bob, Amount: amount(1)})
	expectDecision(t, d, err, true, ReasonNone)

	if _, err := h.engine.Check(Action(99), CheckRequest{}); err == nil {
		t.Fatalf("expected unknown action to fail")
	}
}

type rejectingVerifier struct{ seen []Action }

func (v *rejectingVerifier) Verify(action Action, params VerifyParams) error {
	v.seen = append(v.seen, action)
	if action == ActionBorrow {
		return ErrSolvency
	}
	return nil
}

func TestVerifyHooks(t *testing.T) {
	h := newHarness(t)
	x := h.listMarket(0x10, "1", "0.5")

	if err := h.engine.MintVerify(x.addr, alice, amount(1), amount(1)); err != nil {
		t.Fatalf("default verifier rejected mint: %v", err)
	}

	verifier := &rejectingVerifier{}
	h.engine.SetVerifier(verifier)
	if err := h.engine.TransferVerify(x.addr, alice, bob, amount(1)); err != nil {
		t.Fatalf("transfer verify: %v", err)
	}
	expectKind(t, h.engine.BorrowVerify(x.addr, alice, amount(1)), ErrSolvency)
	if len(verifier.seen) != 2 {
		t.Fatalf("verifier saw %v", verifier.seen)
	}
}
