package config

import (
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"

	"fusionswap/storage"
)

// Validate rejects configurations the daemon cannot start with.
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.DataDir) == "" && cfg.StorageBackend != storage.BackendMemory {
		return fmt.Errorf("config: DataDir required for %q storage", cfg.StorageBackend)
	}
	switch cfg.StorageBackend {
	case storage.BackendLevelDB, storage.BackendBolt, storage.BackendMemory:
	default:
		return fmt.Errorf("config: unknown StorageBackend %q", cfg.StorageBackend)
	}
	if strings.TrimSpace(cfg.RPC.ListenAddress) == "" {
		return fmt.Errorf("rpc: ListenAddress required")
	}
	if cfg.RPC.RateLimitRPS < 0 || cfg.RPC.RateLimitBurst < 0 {
		return fmt.Errorf("rpc: rate limits must be non-negative")
	}
	if cfg.RPC.RateLimitRPS > 0 && cfg.RPC.RateLimitBurst == 0 {
		return fmt.Errorf("rpc: RateLimitBurst required when RateLimitRPS is set")
	}
	if cfg.Telemetry.SampleRatio < 0 || cfg.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry: SampleRatio must be within [0,1]")
	}
	if cfg.Indexer.Enabled {
		switch cfg.Indexer.Driver {
		case "postgres", "sqlite":
		default:
			return fmt.Errorf("indexer: unknown Driver %q", cfg.Indexer.Driver)
		}
		if strings.TrimSpace(cfg.Indexer.DSN) == "" {
			return fmt.Errorf("indexer: DSN required")
		}
		if cfg.Indexer.ExportSchedule != "" {
			if _, err := cron.ParseStandard(cfg.Indexer.ExportSchedule); err != nil {
				return fmt.Errorf("indexer: ExportSchedule: %w", err)
			}
			if strings.TrimSpace(cfg.Indexer.ExportDir) == "" {
				return fmt.Errorf("indexer: ExportDir required with ExportSchedule")
			}
		}
	}
	return nil
}
