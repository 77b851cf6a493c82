package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Pauses selects which custody operations honour the global pause flag. The
// flag itself is controlled by the admin module; this policy decides where it
// bites.
type Pauses struct {
	Deposits    bool `toml:"Deposits"`
	Withdrawals bool `toml:"Withdrawals"`
}

type Config struct {
	RPCAddress          string `toml:"RPCAddress"`
	DataDir             string `toml:"DataDir"`
	DBBackend           string `toml:"DBBackend"`
	NetworkName         string `toml:"NetworkName"`
	Environment         string `toml:"Environment"`
	PrivacyHistoryLimit int    `toml:"PrivacyHistoryLimit"`
	// AllowedCallers restricts engine callers to a fixed membership of
	// bech32 addresses. Empty means any caller the transport authenticated.
	AllowedCallers []string `toml:"AllowedCallers"`
	Pauses         Pauses   `toml:"Pauses"`
}

const (
	defaultRPCAddress   = "127.0.0.1:8645"
	defaultDataDir      = "./custodia-data"
	defaultDBBackend    = "leveldb"
	defaultHistoryLimit = 256
)

// Load loads the configuration from the given path, writing a default file
// when none exists yet.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	applyDefaults(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if strings.TrimSpace(cfg.RPCAddress) == "" {
		cfg.RPCAddress = defaultRPCAddress
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		cfg.DataDir = defaultDataDir
	}
	if strings.TrimSpace(cfg.DBBackend) == "" {
		cfg.DBBackend = defaultDBBackend
	}
	if strings.TrimSpace(cfg.NetworkName) == "" {
		cfg.NetworkName = "custodia-local"
	}
	if cfg.PrivacyHistoryLimit == 0 {
		cfg.PrivacyHistoryLimit = defaultHistoryLimit
	}
	if cfg.PrivacyHistoryLimit < 0 {
		cfg.PrivacyHistoryLimit = 0
	}
}

func validate(cfg *Config) error {
	switch strings.ToLower(strings.TrimSpace(cfg.DBBackend)) {
	case "leveldb", "bolt", "memory":
		return nil
	default:
		return fmt.Errorf("config: unsupported DBBackend %q", cfg.DBBackend)
	}
}

func createDefault(path string) (*Config, error) {
	cfg := &Config{}
	applyDefaults(cfg)
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
