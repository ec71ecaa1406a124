package config

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"riskgate/core/fixed"
	"riskgate/crypto"
	"riskgate/native/comptroller"
)

func testAddr(b byte) crypto.Address {
	var a crypto.Address
	a[0] = 0x42
	a[len(a)-1] = b
	return a
}

var (
	engineAddr = testAddr(0xE0)
	posterAddr = testAddr(0xE1)
	adminAddr  = testAddr(0xA0)
	usdAddr    = testAddr(0x10)
	ethAddr    = testAddr(0x11)
)

func writeGenesis(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "genesis.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func genesisBody(extra string) string {
	return fmt.Sprintf(`Engine = "%s"
OraclePoster = "%s"
%s
[[Assets]]
Symbol = "usd"
Address = "%s"
Price = "1"

[[Assets]]
Symbol = "ETH"
Address = "%s"
Price = "0.5"

[Comptroller]
Admin = "%s"
CloseFactor = "0.5"
LiquidationIncentive = "1.08"

[[Comptroller.Markets]]
Asset = "%s"
CollateralFactor = "0.8"
SupplyCap = "1000000"

[[Comptroller.Markets]]
Asset = "%s"
CollateralFactor = "0.5"
`, engineAddr, posterAddr, extra, usdAddr, ethAddr, adminAddr, usdAddr, ethAddr)
}

func TestLoadGenesis(t *testing.T) {
	g, err := LoadGenesis(writeGenesis(t, genesisBody("")))
	require.NoError(t, err)

	require.Equal(t, engineAddr, g.Engine)
	require.Equal(t, posterAddr, g.OraclePoster)
	require.Len(t, g.Assets, 2)
	require.Equal(t, 0, g.Assets[1].Price.Cmp(fixed.MustParse("0.5")))
	require.Equal(t, adminAddr, g.Comptroller.Admin)
	require.Equal(t, 0, g.Comptroller.LiquidationIncentive.Cmp(fixed.MustParse("1.08")))
	require.Len(t, g.Comptroller.Markets, 2)
	require.Equal(t, "1000000", g.Comptroller.Markets[0].SupplyCap)
	require.Empty(t, g.Comptroller.Markets[1].BorrowCap)
}

func TestLoadGenesisRejectsUnknownKeys(t *testing.T) {
	_, err := LoadGenesis(writeGenesis(t, genesisBody(`Validators = 4`)))
	require.ErrorContains(t, err, "unknown keys")
}

func TestLoadGenesisMissingFile(t *testing.T) {
	_, err := LoadGenesis(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestValidateGenesis(t *testing.T) {
	base := func() *Genesis {
		return &Genesis{
			Engine:       engineAddr,
			OraclePoster: posterAddr,
			Assets: []Asset{
				{Symbol: "USD", Address: usdAddr, Price: fixed.One()},
				{Symbol: "ETH", Address: ethAddr},
			},
			Comptroller: comptroller.Genesis{
				Admin:                adminAddr,
				CloseFactor:          fixed.MustParse("0.5"),
				LiquidationIncentive: fixed.MustParse("1.08"),
				Markets: []comptroller.GenesisMarket{
					{Asset: usdAddr, CollateralFactor: fixed.MustParse("0.75")},
				},
			},
		}
	}
	require.NoError(t, base().Validate())

	cases := map[string]func(g *Genesis){
		"no engine":        func(g *Genesis) { g.Engine = crypto.Address{} },
		"no poster":        func(g *Genesis) { g.OraclePoster = crypto.Address{} },
		"no symbol":        func(g *Genesis) { g.Assets[0].Symbol = " " },
		"engine collision": func(g *Genesis) { g.Assets[1].Address = engineAddr },
		"duplicate symbol": func(g *Genesis) { g.Assets[1].Symbol = "usd" },
		"duplicate asset":  func(g *Genesis) { g.Assets[1].Address = usdAddr },
		"close factor":     func(g *Genesis) { g.Comptroller.CloseFactor = fixed.MustParse("0.95") },
		"undeclared market": func(g *Genesis) {
			g.Comptroller.Markets[0].Asset = testAddr(0x99)
		},
		"unpriced collateral": func(g *Genesis) {
			g.Comptroller.Markets[0].Asset = ethAddr
		},
		"bad cap": func(g *Genesis) { g.Comptroller.Markets[0].BorrowCap = "-5" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			g := base()
			mutate(g)
			require.ErrorIs(t, g.Validate(), comptroller.ErrConfiguration)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	original, err := LoadGenesis(writeGenesis(t, genesisBody("")))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "genesis.toml")
	require.NoError(t, Save(path, original))

	reloaded, err := LoadGenesis(path)
	require.NoError(t, err)
	require.Equal(t, original.Engine, reloaded.Engine)
	require.Equal(t, len(original.Assets), len(reloaded.Assets))
	require.Equal(t, 0, original.Comptroller.CloseFactor.Cmp(reloaded.Comptroller.CloseFactor))
}
