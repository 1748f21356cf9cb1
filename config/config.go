package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"fusionswap/storage"
)

// Config is the fusiond node configuration.
type Config struct {
	Environment    string    `toml:"Environment"`
	DataDir        string    `toml:"DataDir"`
	StorageBackend string    `toml:"StorageBackend"`
	GenesisFile    string    `toml:"GenesisFile"`
	EventBacklog   int       `toml:"EventBacklog"`
	RPC            RPC       `toml:"rpc"`
	Logging        Logging   `toml:"logging"`
	Telemetry      Telemetry `toml:"telemetry"`
	Indexer        Indexer   `toml:"indexer"`
}

// Default returns the configuration written for a fresh node.
func Default() *Config {
	return &Config{
		Environment:    "local",
		DataDir:        "./fusion-data",
		StorageBackend: storage.BackendLevelDB,
		GenesisFile:    "genesis.yaml",
		EventBacklog:   4096,
		RPC: RPC{
			ListenAddress:  "127.0.0.1:8645",
			JWTSecretEnv:   "FUSION_JWT_SECRET",
			JWTIssuer:      "fusionswap",
			RateLimitRPS:   20,
			RateLimitBurst: 40,
			AllowedOrigins: []string{},
			ReadTimeout:    15,
			WriteTimeout:   15,
		},
		Logging: Logging{Level: "info"},
		Indexer: Indexer{
			Driver:         "postgres",
			ExportSchedule: "",
		},
	}
}

// Load loads the configuration from the given path, writing the defaults
// there first when the file does not exist.
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := Default()
		if err := persist(path, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	} else if err != nil {
		return nil, err
	}

	cfg := Default()
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s: unknown key %s", path, undecoded[0].String())
	}

	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	if cfg.StorageBackend == "" {
		cfg.StorageBackend = storage.BackendLevelDB
	}
	if cfg.RPC.AllowedOrigins == nil {
		cfg.RPC.AllowedOrigins = []string{}
	}
	if cfg.GenesisFile != "" && !filepath.IsAbs(cfg.GenesisFile) {
		cfg.GenesisFile = filepath.Join(filepath.Dir(path), cfg.GenesisFile)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// JWTSecret resolves the bearer token secret, preferring the environment.
func (c *Config) JWTSecret() string {
	if name := strings.TrimSpace(c.RPC.JWTSecretEnv); name != "" {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return strings.TrimSpace(c.RPC.JWTSecret)
}

// StoragePath is where the selected backend keeps its files.
func (c *Config) StoragePath() string {
	if c.StorageBackend == storage.BackendBolt {
		return filepath.Join(c.DataDir, "state.bolt")
	}
	return filepath.Join(c.DataDir, "state")
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}
