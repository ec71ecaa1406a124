package asset

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"

	"riskgate/core/fixed"
	"riskgate/core/state"
	"riskgate/crypto"
	"riskgate/native/common"
	"riskgate/native/comptroller"
	"riskgate/native/oracle"
	"riskgate/storage"
)

func addr(b byte) crypto.Address {
	var a crypto.Address
	a[0] = 0xCC
	a[19] = b
	return a
}

var (
	admin  = addr(0xA0)
	poster = addr(0xA1)
	alice  = addr(0x01)
	bob    = addr(0x02)
	carol  = addr(0x03)
)

type fixture struct {
	mgr    *state.Manager
	engine *comptroller.Engine
	feed   *oracle.Feed
	usd    *Book
	eth    *Book
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mgr := state.NewManager(storage.NewMemDB())
	engine := comptroller.NewEngine(addr(0xF0))
	engine.SetState(mgr)
	registry := NewRegistry()
	engine.SetAssets(registry)
	feed := oracle.NewFeed(mgr, poster)

	usd := NewBook(addr(0x10), "USD", engine, mgr)
	eth := NewBook(addr(0x11), "ETH", engine, mgr)
	require.NoError(t, registry.Register(usd))
	require.NoError(t, registry.Register(eth))
	require.Error(t, registry.Register(NewBook(addr(0x12), "usd", engine, mgr)))

	require.NoError(t, engine.Initialize(admin))
	require.NoError(t, engine.SetPriceOracle(admin, feed))
	require.NoError(t, engine.SetCloseFactor(admin, fixed.MustParse("0.5")))
	require.NoError(t, engine.SetLiquidationIncentive(admin, fixed.MustParse("1.08")))
	require.NoError(t, feed.SetPrice(poster, usd.Address(), fixed.MustParse("1")))
	require.NoError(t, feed.SetPrice(poster, eth.Address(), fixed.MustParse("0.5")))
	for _, book := range []*Book{usd, eth} {
		require.NoError(t, engine.ListMarket(admin, book.Address()))
	}
	require.NoError(t, engine.SetCollateralFactor(admin, usd.Address(), fixed.MustParse("0.8")))
	require.NoError(t, engine.SetCollateralFactor(admin, eth.Address(), fixed.MustParse("0.5")))
	require.NoError(t, mgr.Commit())
	return &fixture{mgr: mgr, engine: engine, feed: feed, usd: usd, eth: eth}
}

func balances(t *testing.T, b *Book, account crypto.Address) (uint64, uint64) {
	t.Helper()
	tokens, borrowed, err := b.AccountSnapshot(account)
	require.NoError(t, err)
	return tokens.Uint64(), borrowed.Uint64()
}

func TestBorrowAndLiquidateEndToEnd(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.eth.Mint(alice, uint256.NewInt(1000)))
	require.NoError(t, f.usd.Mint(bob, uint256.NewInt(1000)))
	decisions, err := f.engine.EnterMarkets(alice, []crypto.Address{f.eth.Address()})
	require.NoError(t, err)
	require.True(t, decisions[0].Allowed)

	require.NoError(t, f.usd.Borrow(alice, uint256.NewInt(200)))
	member, err := f.engine.CheckMembership(alice, f.usd.Address())
	require.NoError(t, err)
	require.True(t, member)

	err = f.usd.Borrow(alice, uint256.NewInt(100))
	require.ErrorIs(t, err, comptroller.ErrSolvency)
	_, debt := balances(t, f.usd, alice)
	require.Equal(t, uint64(200), debt)

	require.NoError(t, f.feed.SetPrice(poster, f.eth.Address(), fixed.MustParse("0.3")))

	_, err = f.usd.LiquidateBorrow(alice, alice, uint256.NewInt(10), f.eth)
	require.ErrorIs(t, err, ErrSelfLiquidation)

	seized, err := f.usd.LiquidateBorrow(bob, alice, uint256.NewInt(100), f.eth)
	require.NoError(t, err)
	require.Equal(t, uint64(360), seized.Uint64())

	aliceTokens, aliceDebt := balances(t, f.eth, alice)
	require.Equal(t, uint64(640), aliceTokens)
	_, aliceDebt = balances(t, f.usd, alice)
	require.Equal(t, uint64(100), aliceDebt)
	bobTokens, _ := balances(t, f.eth, bob)
	require.Equal(t, uint64(360), bobTokens)

	_, err = f.usd.LiquidateBorrow(bob, alice, uint256.NewInt(51), f.eth)
	require.ErrorIs(t, err, comptroller.ErrSolvency)
	bobTokens, _ = balances(t, f.eth, bob)
	require.Equal(t, uint64(360), bobTokens)

	require.ErrorIs(t, f.eth.Redeem(alice, uint256.NewInt(640)), comptroller.ErrSolvency)
	require.NoError(t, f.eth.Transfer(bob, carol, uint256.NewInt(360)))
	carolTokens, _ := balances(t, f.eth, carol)
	require.Equal(t, uint64(360), carolTokens)

	supply, err := f.eth.TotalSupply()
	require.NoError(t, err)
	require.Equal(t, uint64(1000), supply.Uint64())
	borrows, err := f.usd.TotalBorrows()
	require.NoError(t, err)
	require.Equal(t, uint64(100), borrows.Uint64())
}

func TestDeniedBorrowRollsBackAutoEntry(t *testing.T) {
	f := newFixture(t)

	err := f.usd.Borrow(alice, uint256.NewInt(1))
	var denial *comptroller.DenialError
	require.ErrorAs(t, err, &denial)
	require.Equal(t, comptroller.ReasonInsufficientLiquidity, denial.Reason)

	assets, err := f.engine.AssetsIn(alice)
	require.NoError(t, err)
	require.Empty(t, assets)
}

func TestMintRespectsSupplyCap(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.engine.SetMarketSupplyCaps(admin, []crypto.Address{f.usd.Address()}, []*uint256.Int{uint256.NewInt(1500)}))
	require.NoError(t, f.usd.Mint(bob, uint256.NewInt(1000)))

	require.ErrorIs(t, f.usd.Mint(bob, uint256.NewInt(501)), comptroller.ErrCapacity)
	supply, err := f.usd.TotalSupply()
	require.NoError(t, err)
	require.Equal(t, uint64(1000), supply.Uint64())

	require.NoError(t, f.usd.Mint(bob, uint256.NewInt(500)))
	require.ErrorIs(t, f.usd.Mint(bob, new(uint256.Int)), ErrInvalidAmount)
}

func TestRepayAndPauses(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.eth.Mint(alice, uint256.NewInt(1000)))
	_, err := f.engine.EnterMarkets(alice, []crypto.Address{f.eth.Address()})
	require.NoError(t, err)
	require.NoError(t, f.usd.Borrow(alice, uint256.NewInt(50)))

	require.ErrorIs(t, f.usd.RepayBorrow(bob, alice, uint256.NewInt(51)), ErrInsufficientDebt)
	require.NoError(t, f.usd.RepayBorrow(bob, alice, uint256.NewInt(50)))
	_, debt := balances(t, f.usd, alice)
	require.Zero(t, debt)

	require.NoError(t, f.engine.SetPaused(admin, comptroller.ActionTransfer, crypto.Address{}, true))
	require.ErrorIs(t, f.eth.Transfer(alice, bob, uint256.NewInt(1)), comptroller.ErrPaused)

	f.eth.SetPauses(common.StaticPauses{moduleName: true})
	require.ErrorIs(t, f.eth.Mint(alice, uint256.NewInt(1)), common.ErrModulePaused)
}
