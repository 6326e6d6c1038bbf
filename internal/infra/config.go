package infra

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"drv_adapter/internal/domain"
	"drv_adapter/internal/layout"
	"drv_adapter/internal/pda"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"
)

// MarketConfig names one ordered mint pair to track.
type MarketConfig struct {
	Name         string `yaml:"name"`
	AssetMint    string `yaml:"asset_mint"`
	CurrencyMint string `yaml:"currency_mint"`
}

// ProbeConfig is a quote issued against a tracked market on every poll.
type ProbeConfig struct {
	Market      string `yaml:"market"`
	InputMint   string `yaml:"input_mint"`
	Amount      uint64 `yaml:"amount"`
	SlippageBps uint16 `yaml:"slippage_bps"`
}

// Config holds every setting of the adapter process.
// Values loaded by LoadConfig may be overridden through environment variables.
type Config struct {
	App struct {
		Name    string `yaml:"name"`
		Version string `yaml:"version"`
	} `yaml:"app"`

	Venue struct {
		ProgramID string `yaml:"program_id"`
		Version   uint32 `yaml:"version"`
	} `yaml:"venue"`

	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`

	Fixtures struct {
		Path string `yaml:"path"`
	} `yaml:"fixtures"`

	Sync struct {
		PollIntervalMS   int `yaml:"poll_interval_ms"`
		FetchConcurrency int `yaml:"fetch_concurrency"`
	} `yaml:"sync"`

	Markets []MarketConfig `yaml:"markets"`
	Probes  []ProbeConfig  `yaml:"probes"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// LoadConfig reads and parses the YAML file at path.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConfigNotFound, path)
		}
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func defaultConfig() *Config {
	cfg := &Config{}
	cfg.App.Name = "drv-adapter"
	cfg.Venue.ProgramID = pda.MainnetProgramID.String()
	cfg.Venue.Version = layout.Version
	cfg.Storage.Path = filepath.Join("data", "accounts.db")
	cfg.Sync.PollIntervalMS = 2000
	cfg.Sync.FetchConcurrency = 4
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return cfg
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if _, err := solana.PublicKeyFromBase58(c.Venue.ProgramID); err != nil {
		return &domain.ConfigError{Field: "venue.program_id", Err: err}
	}
	if c.Venue.Version != layout.Version {
		return &domain.ConfigError{Field: "venue.version", Err: fmt.Errorf("unsupported layout version %d", c.Venue.Version)}
	}
	if c.Storage.Path == "" {
		return &domain.ConfigError{Field: "storage.path", Err: errors.New("path is required")}
	}
	if c.Sync.PollIntervalMS <= 0 {
		return &domain.ConfigError{Field: "sync.poll_interval_ms", Err: errors.New("poll interval must be positive")}
	}
	if c.Sync.FetchConcurrency <= 0 {
		return &domain.ConfigError{Field: "sync.fetch_concurrency", Err: errors.New("fetch concurrency must be positive")}
	}

	names := make(map[string]bool, len(c.Markets))
	for i, m := range c.Markets {
		field := fmt.Sprintf("markets[%d]", i)
		if m.Name == "" || names[m.Name] {
			return &domain.ConfigError{Field: field + ".name", Err: fmt.Errorf("name %q is empty or duplicated", m.Name)}
		}
		names[m.Name] = true
		asset, err := solana.PublicKeyFromBase58(m.AssetMint)
		if err != nil {
			return &domain.ConfigError{Field: field + ".asset_mint", Err: err}
		}
		crncy, err := solana.PublicKeyFromBase58(m.CurrencyMint)
		if err != nil {
			return &domain.ConfigError{Field: field + ".currency_mint", Err: err}
		}
		if asset.Equals(crncy) {
			return &domain.ConfigError{Field: field, Err: errors.New("asset and currency mint must differ")}
		}
	}

	for i, p := range c.Probes {
		field := fmt.Sprintf("probes[%d]", i)
		if !names[p.Market] {
			return &domain.ConfigError{Field: field + ".market", Err: fmt.Errorf("unknown market %q", p.Market)}
		}
		if _, err := solana.PublicKeyFromBase58(p.InputMint); err != nil {
			return &domain.ConfigError{Field: field + ".input_mint", Err: err}
		}
		if p.SlippageBps > uint16(layout.BpsScale) {
			return &domain.ConfigError{Field: field + ".slippage_bps", Err: errors.New("slippage above 100%")}
		}
	}

	return nil
}

// ProgramKey returns the parsed venue program id. Validate must have passed.
func (c *Config) ProgramKey() solana.PublicKey {
	return solana.MustPublicKeyFromBase58(c.Venue.ProgramID)
}

// overrideWithEnv replaces config values with environment variables when set.
func overrideWithEnv(cfg *Config) {
	if id := os.Getenv("DRV_PROGRAM_ID"); id != "" {
		cfg.Venue.ProgramID = id
	}
	if path := os.Getenv("DRV_STORAGE_PATH"); path != "" {
		cfg.Storage.Path = path
	}
	if path := os.Getenv("DRV_FIXTURES_PATH"); path != "" {
		cfg.Fixtures.Path = path
	}
	if level := os.Getenv("DRV_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
	if ms := os.Getenv("DRV_POLL_INTERVAL_MS"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil {
			cfg.Sync.PollIntervalMS = v
		}
	}
}
