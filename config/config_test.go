package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"fusionswap/storage"
)

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "node", "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, storage.BackendLevelDB, cfg.StorageBackend)
	require.FileExists(t, path)

	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg.RPC.ListenAddress, again.RPC.ListenAddress)
	require.Equal(t, filepath.Join(filepath.Dir(path), "genesis.yaml"), again.GenesisFile)
}

func TestLoadParsesSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	contents := `Environment = "testnet"
DataDir = "/var/lib/fusion"
StorageBackend = "Bolt"
GenesisFile = "/etc/fusion/genesis.yaml"

[rpc]
ListenAddress = "0.0.0.0:9000"
JWTSecret = "local-only"
RateLimitRPS = 5.5
RateLimitBurst = 10
AllowedOrigins = ["https://app.example"]

[logging]
Level = "debug"
File = "/var/log/fusiond.log"

[telemetry]
Endpoint = "otel:4318"
Traces = true
SampleRatio = 0.25

[indexer]
Enabled = true
Driver = "sqlite"
DSN = "file:index.db"
ExportDir = "/var/lib/fusion/exports"
ExportSchedule = "0 * * * *"
`
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, storage.BackendBolt, cfg.StorageBackend)
	require.Equal(t, "/var/lib/fusion/state.bolt", cfg.StoragePath())
	require.Equal(t, "/etc/fusion/genesis.yaml", cfg.GenesisFile)
	require.Equal(t, 5.5, cfg.RPC.RateLimitRPS)
	require.Equal(t, []string{"https://app.example"}, cfg.RPC.AllowedOrigins)
	require.Equal(t, "debug", cfg.Logging.Level)
	require.True(t, cfg.Telemetry.Traces)
	require.Equal(t, "sqlite", cfg.Indexer.Driver)
	// defaults survive for keys the file does not set
	require.Equal(t, "FUSION_JWT_SECRET", cfg.RPC.JWTSecretEnv)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("ValidatorKey = \"abc\"\n"), 0o644))
	_, err := Load(path)
	require.ErrorContains(t, err, "ValidatorKey")
}

func TestJWTSecretPrefersEnvironment(t *testing.T) {
	cfg := Default()
	cfg.RPC.JWTSecret = "from-file"
	require.Equal(t, "from-file", cfg.JWTSecret())
	t.Setenv("FUSION_JWT_SECRET", "from-env")
	require.Equal(t, "from-env", cfg.JWTSecret())
}

func TestValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"backend": func(c *Config) { c.StorageBackend = "rocksdb" },
		"listen":  func(c *Config) { c.RPC.ListenAddress = "" },
		"burst":   func(c *Config) { c.RPC.RateLimitBurst = 0 },
		"ratio":   func(c *Config) { c.Telemetry.SampleRatio = 2 },
		"driver":  func(c *Config) { c.Indexer = Indexer{Enabled: true, Driver: "mysql", DSN: "x"} },
		"dsn":     func(c *Config) { c.Indexer = Indexer{Enabled: true, Driver: "postgres"} },
		"schedule": func(c *Config) {
			c.Indexer = Indexer{Enabled: true, Driver: "sqlite", DSN: "x", ExportDir: "d", ExportSchedule: "every day"}
		},
		"export": func(c *Config) {
			c.Indexer = Indexer{Enabled: true, Driver: "sqlite", DSN: "x", ExportSchedule: "@hourly"}
		},
		"datadir": func(c *Config) { c.DataDir = "" },
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(cfg)
		if err := Validate(cfg); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}
	require.NoError(t, Validate(Default()))

	mem := Default()
	mem.StorageBackend = storage.BackendMemory
	mem.DataDir = ""
	require.NoError(t, Validate(mem))
}
