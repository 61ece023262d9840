package config

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// Config captures the deployment-time configuration of a settlement node.
// AuctionTimespan is fixed once at deployment and shared by every auction the
// node ever opens.
type Config struct {
	ListenAddress   string            `toml:"ListenAddress"`
	DataDir         string            `toml:"DataDir"`
	AuctionTimespan uint64            `toml:"AuctionTimespan"`
	PausedModules   []string          `toml:"PausedModules"`
	Alloc           map[string]string `toml:"Alloc"`
}

const defaultConfig = `# payprotectord configuration

ListenAddress = ":8645"
DataDir = "./payprotector-data"

# Duration in seconds of the declining-price insurance auction attached to
# every order.
AuctionTimespan = 86400

# Native modules whose mutating calls are administratively suspended.
# PausedModules = ["order"]

# Genesis balances, applied once on first start. Keys are hex addresses,
# values decimal amounts.
# [Alloc]
# "0x0000000000000000000000000000000000000001" = "1000000"
`

// Load reads the configuration from the given path, creating a commented
// default file when none exists.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func createDefault(path string) (*Config, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return nil, err
	}
	cfg := &Config{}
	if _, err := toml.Decode(defaultConfig, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	return cfg, cfg.Validate()
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.ListenAddress) == "" {
		cfg.ListenAddress = ":8645"
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = "./payprotector-data"
	}
}

// Validate rejects configurations that cannot host auctions: a zero timespan
// would make every auction open at its floor, and malformed allocations would
// corrupt genesis state.
func (c *Config) Validate() error {
	if c.AuctionTimespan == 0 {
		return fmt.Errorf("config: AuctionTimespan must be positive")
	}
	for addr, amount := range c.Alloc {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("config: invalid allocation address %q", addr)
		}
		if _, ok := new(big.Int).SetString(strings.TrimSpace(amount), 10); !ok {
			return fmt.Errorf("config: invalid allocation amount %q for %s", amount, addr)
		}
	}
	return nil
}

// Allocations converts the configured genesis balances into address-keyed
// amounts. Validate must have accepted the config first.
func (c *Config) Allocations() map[[20]byte]*big.Int {
	if len(c.Alloc) == 0 {
		return nil
	}
	out := make(map[[20]byte]*big.Int, len(c.Alloc))
	for addr, amount := range c.Alloc {
		value, ok := new(big.Int).SetString(strings.TrimSpace(amount), 10)
		if !ok {
			continue
		}
		out[common.HexToAddress(addr)] = value
	}
	return out
}
