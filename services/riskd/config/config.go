package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultListen     = ":8480"
	defaultSecretEnv  = "RISKD_JWT_SECRET"
	defaultClockSkew  = 2 * time.Minute
	defaultRatePerMin = 600
	defaultBurst      = 60
	defaultOracleAge  = 15 * time.Minute
	backendLevelDB    = "leveldb"
	backendMemory     = "memory"
)

// Config captures the runtime settings for the risk daemon.
type Config struct {
	ListenAddress string          `yaml:"listen"`
	GenesisPath   string          `yaml:"genesis"`
	LogLevel      string          `yaml:"log_level"`
	Storage       StorageConfig   `yaml:"storage"`
	Auth          AuthConfig      `yaml:"auth"`
	RateLimit     RateLimitConfig `yaml:"rate_limit"`
	Oracle        OracleConfig    `yaml:"oracle"`
	PausedModules []string        `yaml:"paused_modules"`
}

// StorageConfig selects the key-value backend.
type StorageConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
}

// AuthConfig configures JWT verification for mutating routes.
type AuthConfig struct {
	HMACSecret    string        `yaml:"hmac_secret"`
	HMACSecretEnv string        `yaml:"hmac_secret_env"`
	Issuer        string        `yaml:"issuer"`
	Audience      string        `yaml:"audience"`
	ClockSkew     time.Duration `yaml:"clock_skew"`
}

// RateLimitConfig bounds per-client request rates.
type RateLimitConfig struct {
	RequestsPerMinute float64 `yaml:"requests_per_minute"`
	Burst             int     `yaml:"burst"`
}

// OracleConfig tunes the reference price feed.
type OracleConfig struct {
	MaxAge time.Duration `yaml:"max_age"`
}

// Load reads the YAML configuration from disk and validates the result.
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("config path required")
	}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.normalize()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Secret resolves the JWT signing secret, preferring the inline value.
func (cfg AuthConfig) Secret() string {
	if cfg.HMACSecret != "" {
		return cfg.HMACSecret
	}
	return strings.TrimSpace(os.Getenv(cfg.HMACSecretEnv))
}

// InMemory reports whether state is kept only for the process lifetime.
func (cfg StorageConfig) InMemory() bool {
	return cfg.Backend == backendMemory
}

func (cfg *Config) normalize() {
	cfg.ListenAddress = strings.TrimSpace(cfg.ListenAddress)
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = defaultListen
	}
	cfg.GenesisPath = strings.TrimSpace(cfg.GenesisPath)
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))

	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if cfg.Storage.Backend == "" {
		cfg.Storage.Backend = backendLevelDB
	}
	cfg.Storage.Path = strings.TrimSpace(cfg.Storage.Path)

	cfg.Auth.HMACSecret = strings.TrimSpace(cfg.Auth.HMACSecret)
	cfg.Auth.HMACSecretEnv = strings.TrimSpace(cfg.Auth.HMACSecretEnv)
	if cfg.Auth.HMACSecretEnv == "" {
		cfg.Auth.HMACSecretEnv = defaultSecretEnv
	}
	cfg.Auth.Issuer = strings.TrimSpace(cfg.Auth.Issuer)
	cfg.Auth.Audience = strings.TrimSpace(cfg.Auth.Audience)
	if cfg.Auth.ClockSkew <= 0 {
		cfg.Auth.ClockSkew = defaultClockSkew
	}

	if cfg.RateLimit.RequestsPerMinute == 0 {
		cfg.RateLimit.RequestsPerMinute = defaultRatePerMin
	}
	if cfg.RateLimit.Burst == 0 {
		cfg.RateLimit.Burst = defaultBurst
	}
	if cfg.Oracle.MaxAge == 0 {
		cfg.Oracle.MaxAge = defaultOracleAge
	}

	modules := make([]string, 0, len(cfg.PausedModules))
	for _, module := range cfg.PausedModules {
		if trimmed := strings.ToLower(strings.TrimSpace(module)); trimmed != "" {
			modules = append(modules, trimmed)
		}
	}
	cfg.PausedModules = modules
}

func (cfg *Config) validate() error {
	if cfg.GenesisPath == "" {
		return fmt.Errorf("genesis path required")
	}
	switch cfg.Storage.Backend {
	case backendLevelDB:
		if cfg.Storage.Path == "" {
			return fmt.Errorf("storage: path required for leveldb backend")
		}
	case backendMemory:
	default:
		return fmt.Errorf("storage: unknown backend %q", cfg.Storage.Backend)
	}
	if cfg.Auth.Secret() == "" {
		return fmt.Errorf("auth: hmac secret missing; set hmac_secret or $%s", cfg.Auth.HMACSecretEnv)
	}
	if cfg.RateLimit.RequestsPerMinute < 0 || cfg.RateLimit.Burst < 0 {
		return fmt.Errorf("rate_limit: values must be positive")
	}
	if cfg.Oracle.MaxAge < 0 {
		return fmt.Errorf("oracle: max_age must be positive")
	}
	return nil
}
