package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
genesis: " genesis.toml "
storage:
  path: ./data
auth:
  hmac_secret: " s3cret "
paused_modules: [" Asset ", " "]
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.ListenAddress != defaultListen {
		t.Fatalf("unexpected listen address: %q", cfg.ListenAddress)
	}
	if cfg.GenesisPath != "genesis.toml" {
		t.Fatalf("genesis path not trimmed: %q", cfg.GenesisPath)
	}
	if cfg.Storage.Backend != backendLevelDB || cfg.Storage.InMemory() {
		t.Fatalf("expected leveldb default, got %q", cfg.Storage.Backend)
	}
	if cfg.Auth.Secret() != "s3cret" {
		t.Fatalf("unexpected secret %q", cfg.Auth.Secret())
	}
	if cfg.Auth.ClockSkew != defaultClockSkew {
		t.Fatalf("unexpected clock skew %s", cfg.Auth.ClockSkew)
	}
	if cfg.RateLimit.RequestsPerMinute != defaultRatePerMin || cfg.RateLimit.Burst != defaultBurst {
		t.Fatalf("unexpected rate limit %+v", cfg.RateLimit)
	}
	if cfg.Oracle.MaxAge != defaultOracleAge {
		t.Fatalf("unexpected oracle max age %s", cfg.Oracle.MaxAge)
	}
	if len(cfg.PausedModules) != 1 || cfg.PausedModules[0] != "asset" {
		t.Fatalf("unexpected paused modules %v", cfg.PausedModules)
	}
}

func TestLoadConfigSecretFromEnv(t *testing.T) {
	t.Setenv("RISKD_TEST_SECRET", "from-env")
	path := writeConfig(t, `
listen: "127.0.0.1:9000"
genesis: genesis.toml
storage:
  backend: memory
auth:
  hmac_secret_env: RISKD_TEST_SECRET
  clock_skew: 30s
oracle:
  max_age: 1m
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.Storage.InMemory() {
		t.Fatalf("expected memory backend")
	}
	if cfg.Auth.Secret() != "from-env" {
		t.Fatalf("expected env secret, got %q", cfg.Auth.Secret())
	}
	if cfg.Auth.ClockSkew != 30*time.Second || cfg.Oracle.MaxAge != time.Minute {
		t.Fatalf("durations not decoded: %s %s", cfg.Auth.ClockSkew, cfg.Oracle.MaxAge)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"missing genesis": `
storage: {backend: memory}
auth: {hmac_secret: x}
`,
		"leveldb without path": `
genesis: g.toml
auth: {hmac_secret: x}
`,
		"unknown backend": `
genesis: g.toml
storage: {backend: bolt}
auth: {hmac_secret: x}
`,
		"missing secret": `
genesis: g.toml
storage: {backend: memory}
auth: {hmac_secret_env: RISKD_UNSET_SECRET_FOR_TEST}
`,
		"unknown field": `
genesis: g.toml
storage: {backend: memory}
auth: {hmac_secret: x}
listen_port: 80
`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestLoadConfigRequiresPath(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for empty path")
	}
}
