package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"riskgate/cmd/internal/passphrase"
	"riskgate/config"
	"riskgate/core/fixed"
	"riskgate/crypto"
	"riskgate/native/comptroller"
	"riskgate/services/riskd/middleware"
)

const (
	defaultPassEnv   = "RISK_KEYSTORE_PASS"
	defaultSecretEnv = "RISKD_JWT_SECRET"
	defaultKeystore  = "riskctl.keystore"
	defaultGenesis   = "genesis.toml"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "keygen":
		err = runKeygen(os.Args[2:])
	case "address":
		err = runAddress(os.Args[2:])
	case "token":
		err = runToken(os.Args[2:])
	case "check-genesis":
		err = runCheckGenesis(os.Args[2:])
	case "init-genesis":
		err = runInitGenesis(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: riskctl <command> [flags]

commands:
  keygen         create an encrypted identity keystore
  address        print the address held in a keystore
  token          mint a bearer token for the keystore identity
  check-genesis  validate a genesis file
  init-genesis   write a genesis skeleton`)
}

func runKeygen(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	path := fs.String("keystore", defaultKeystore, "output keystore path")
	passEnv := fs.String("pass-env", defaultPassEnv, "environment variable holding the keystore passphrase")
	force := fs.Bool("force", false, "overwrite an existing keystore")
	_ = fs.Parse(args)

	if _, err := os.Stat(*path); err == nil && !*force {
		return fmt.Errorf("keystore %s already exists; pass -force to overwrite", *path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	pass, err := passphrase.NewSource(*passEnv, passphrase.WithConfirm()).Get()
	if err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return err
	}
	if err := crypto.SaveToKeystore(*path, key, pass); err != nil {
		return err
	}
	fmt.Println(key.PubKey().Address().String())
	return nil
}

func loadIdentity(path, passEnv string) (crypto.Address, error) {
	pass, err := passphrase.NewSource(passEnv).Get()
	if err != nil {
		return crypto.Address{}, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return crypto.Address{}, fmt.Errorf("open keystore %s: %w", path, err)
	}
	return key.PubKey().Address(), nil
}

func runAddress(args []string) error {
	fs := flag.NewFlagSet("address", flag.ExitOnError)
	path := fs.String("keystore", defaultKeystore, "keystore path")
	passEnv := fs.String("pass-env", defaultPassEnv, "environment variable holding the keystore passphrase")
	_ = fs.Parse(args)

	addr, err := loadIdentity(*path, *passEnv)
	if err != nil {
		return err
	}
	fmt.Println(addr.String())
	return nil
}

func runToken(args []string) error {
	fs := flag.NewFlagSet("token", flag.ExitOnError)
	path := fs.String("keystore", defaultKeystore, "keystore path")
	passEnv := fs.String("pass-env", defaultPassEnv, "environment variable holding the keystore passphrase")
	secretEnv := fs.String("secret-env", defaultSecretEnv, "environment variable holding the HMAC secret")
	issuer := fs.String("issuer", "", "token issuer claim")
	audience := fs.String("audience", "", "token audience claim")
	ttl := fs.Duration("ttl", time.Hour, "token lifetime")
	_ = fs.Parse(args)

	secret := strings.TrimSpace(os.Getenv(*secretEnv))
	if secret == "" {
		return fmt.Errorf("%s is not set", *secretEnv)
	}
	if *ttl <= 0 {
		return fmt.Errorf("ttl must be positive")
	}
	addr, err := loadIdentity(*path, *passEnv)
	if err != nil {
		return err
	}
	token, err := middleware.IssueToken(secret, addr, *issuer, *audience, *ttl)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func runCheckGenesis(args []string) error {
	fs := flag.NewFlagSet("check-genesis", flag.ExitOnError)
	path := fs.String("genesis", defaultGenesis, "genesis file")
	_ = fs.Parse(args)

	g, err := config.LoadGenesis(*path)
	if err != nil {
		return err
	}
	fmt.Printf("genesis ok: engine %s, %d assets, %d markets\n", g.Engine, len(g.Assets), len(g.Comptroller.Markets))
	return nil
}

func runInitGenesis(args []string) error {
	fs := flag.NewFlagSet("init-genesis", flag.ExitOnError)
	path := fs.String("out", defaultGenesis, "output path")
	engine := fs.String("engine", "", "engine address")
	admin := fs.String("admin", "", "admin address")
	poster := fs.String("poster", "", "oracle poster address")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(args)

	if _, err := os.Stat(*path); err == nil && !*force {
		return fmt.Errorf("%s already exists; pass -force to overwrite", *path)
	}
	g := &config.Genesis{
		Comptroller: comptroller.Genesis{
			CloseFactor:          fixed.MustParse("0.5"),
			LiquidationIncentive: fixed.MustParse("1.08"),
		},
	}
	for flagName, target := range map[string]struct {
		raw string
		dst *crypto.Address
	}{
		"engine": {*engine, &g.Engine},
		"admin":  {*admin, &g.Comptroller.Admin},
		"poster": {*poster, &g.OraclePoster},
	} {
		addr, _, err := crypto.DecodeAddress(strings.TrimSpace(target.raw))
		if err != nil {
			return fmt.Errorf("-%s: %w", flagName, err)
		}
		*target.dst = addr
	}
	if err := g.Validate(); err != nil {
		return err
	}
	if err := config.Save(*path, g); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", *path)
	return nil
}
