package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"marketplace/crypto"
)

// GenesisAccount seeds one ledger account with an opening balance.
type GenesisAccount struct {
	Address string `toml:"Address"`
	Balance uint64 `toml:"Balance"`
}

// Config describes a marketplace deployment: where state lives and what the
// genesis ledger looks like.
type Config struct {
	DataDir         string           `toml:"DataDir"`
	NetworkName     string           `toml:"NetworkName"`
	RentBaseReserve uint64           `toml:"RentBaseReserve"`
	RentPerByte     uint64           `toml:"RentPerByte"`
	Assets          []string         `toml:"Assets"`
	Accounts        []GenesisAccount `toml:"Accounts"`
}

// Load reads the configuration from path, creating a default file when none
// exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks address encodings and the rent schedule.
func (c *Config) Validate() error {
	if c.RentPerByte == 0 {
		return fmt.Errorf("config: RentPerByte must be positive")
	}
	for _, asset := range c.Assets {
		if _, err := crypto.DecodeAddress(asset); err != nil {
			return fmt.Errorf("config: invalid asset address %q: %w", asset, err)
		}
	}
	for _, acc := range c.Accounts {
		if _, err := crypto.DecodeAddress(acc.Address); err != nil {
			return fmt.Errorf("config: invalid account address %q: %w", acc.Address, err)
		}
	}
	return nil
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{
		DataDir:         "./market-data",
		NetworkName:     "market-localnet",
		RentBaseReserve: 128,
		RentPerByte:     10,
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
