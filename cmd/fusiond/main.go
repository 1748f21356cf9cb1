package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"fusionswap/config"
	"fusionswap/core/events"
	"fusionswap/core/genesis"
	"fusionswap/core/state"
	"fusionswap/indexer"
	"fusionswap/native/escrow"
	"fusionswap/native/params"
	"fusionswap/observability"
	"fusionswap/observability/logging"
	"fusionswap/observability/metrics"
	telemetry "fusionswap/observability/otel"
	"fusionswap/rpc"
	"fusionswap/rpc/auth"
	"fusionswap/storage"
)

const genesisPathEnv = "FUSION_GENESIS"

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	genesisFlag := flag.String("genesis", "", "Path to the genesis file (overrides FUSION_GENESIS and config GenesisFile)")
	levelFlag := flag.String("log-level", "", "Override the configured log level")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	if *levelFlag != "" {
		cfg.Logging.Level = *levelFlag
	}
	cfg.GenesisFile = resolveGenesisPath(*genesisFlag, cfg.GenesisFile, os.LookupEnv)

	logger, logCloser := logging.Setup(logging.Options{
		Service:    "fusiond",
		Env:        cfg.Environment,
		Level:      cfg.Logging.Level,
		File:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	})
	defer logCloser.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName: "fusiond",
		Environment: cfg.Environment,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
		Headers:     telemetry.ParseHeaders(cfg.Telemetry.Headers),
		Traces:      cfg.Telemetry.Traces,
		Metrics:     cfg.Telemetry.Metrics,
		SampleRatio: cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		logger.Error("telemetry init failed", "error", err)
		os.Exit(1)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTelemetry(flushCtx); err != nil {
			logger.Warn("telemetry shutdown", "error", err)
		}
	}()

	n, err := newNode(cfg, logger)
	if err != nil {
		logger.Error("node startup failed", "error", err)
		os.Exit(1)
	}
	defer n.Close()

	if err := n.Run(ctx); err != nil {
		logger.Error("node stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("fusiond stopped")
}

// resolveGenesisPath picks the genesis file: flag, then environment, then
// config.
func resolveGenesisPath(flagValue, configValue string, lookup func(string) (string, bool)) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}
	if v, ok := lookup(genesisPathEnv); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return strings.TrimSpace(configValue)
}

type node struct {
	cfg     *config.Config
	logger  *slog.Logger
	db      storage.Database
	engine  *escrow.Engine
	bus     *events.Bus
	index   *indexer.Indexer
	sched   *indexer.Scheduler
	server  *rpc.Server
	closers []io.Closer
}

func newNode(cfg *config.Config, logger *slog.Logger) (*node, error) {
	if cfg.StorageBackend != storage.BackendMemory {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, fmt.Errorf("prepare data dir: %w", err)
		}
	}
	db, err := storage.Open(cfg.StorageBackend, cfg.StoragePath())
	if err != nil {
		return nil, fmt.Errorf("open %s storage: %w", cfg.StorageBackend, err)
	}
	n := &node{cfg: cfg, logger: logger, db: db}
	mgr := state.NewManager(db)
	if err := n.initState(mgr); err != nil {
		n.Close()
		return nil, err
	}

	var startSeq uint64
	if cfg.Indexer.Enabled {
		if err := n.openIndexer(); err != nil {
			n.Close()
			return nil, err
		}
		// event sequences continue from what the indexer already stored
		startSeq, err = n.index.LastSequence(context.Background())
		if err != nil {
			n.Close()
			return nil, fmt.Errorf("read indexer cursor: %w", err)
		}
	}

	n.bus = events.NewBus(cfg.EventBacklog, startSeq)
	n.engine = escrow.NewEngine(mgr)
	n.engine.SetLogger(logger)
	n.engine.SetMetrics(metrics.Escrow())
	n.engine.SetEmitter(events.Fanout{n.bus, observability.EventCounter{}})

	deps := rpc.Deps{Engine: n.engine, Bus: n.bus, Logger: logger}
	if n.index != nil {
		deps.Index = n.index
	}
	if startSeq > 0 {
		logger.Info("resuming event sequence", "after", startSeq)
	}
	if secret := cfg.JWTSecret(); secret != "" {
		verifier, err := auth.NewVerifier(auth.Config{Secret: secret, Issuer: cfg.RPC.JWTIssuer})
		if err != nil {
			n.Close()
			return nil, err
		}
		deps.Verifier = verifier
	} else {
		logger.Warn("no JWT secret configured; mutating RPC methods are disabled", "env", cfg.RPC.JWTSecretEnv)
	}

	n.server, err = rpc.NewServer(rpc.Config{
		ListenAddress:  cfg.RPC.ListenAddress,
		AllowedOrigins: cfg.RPC.AllowedOrigins,
		RateLimitRPS:   cfg.RPC.RateLimitRPS,
		RateLimitBurst: cfg.RPC.RateLimitBurst,
		ReadTimeout:    time.Duration(cfg.RPC.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.RPC.WriteTimeout) * time.Second,
		LogRequests:    strings.EqualFold(cfg.Logging.Level, "debug"),
	}, deps)
	if err != nil {
		n.Close()
		return nil, err
	}
	return n, nil
}

// initState applies the genesis file to empty state. A node whose state is
// already initialised ignores the spec.
func (n *node) initState(mgr *state.Manager) error {
	initialised := true
	err := mgr.View(func(tx *state.Tx) error {
		_, err := params.NewStore(tx).Get()
		if errors.Is(err, params.ErrNotInitialised) {
			initialised = false
			return nil
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("read protocol params: %w", err)
	}
	if initialised {
		n.logger.Info("resuming from existing state")
		return nil
	}
	if n.cfg.GenesisFile == "" {
		return errors.New("state is empty and no genesis file is configured")
	}
	spec, err := genesis.Load(n.cfg.GenesisFile)
	if err != nil {
		return err
	}
	if err := genesis.Apply(mgr, spec, uint64(time.Now().Unix())); err != nil {
		return fmt.Errorf("apply genesis: %w", err)
	}
	n.logger.Info("genesis applied", "file", n.cfg.GenesisFile, "resolvers", len(spec.Resolvers))
	return nil
}

func (n *node) openIndexer() error {
	icfg := n.cfg.Indexer
	db, err := indexer.Open(icfg.Driver, icfg.DSN)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		n.closers = append(n.closers, sqlDB)
	}
	n.index, err = indexer.New(db, n.logger)
	if err != nil {
		return err
	}
	if icfg.ExportSchedule != "" {
		n.sched, err = indexer.NewScheduler(n.index, icfg.ExportSchedule, icfg.ExportDir, n.logger)
		if err != nil {
			return err
		}
	}
	return nil
}

// Run serves until ctx is cancelled.
func (n *node) Run(ctx context.Context) error {
	if n.index != nil {
		go func() {
			if err := n.index.Run(ctx, n.bus); err != nil {
				n.logger.Error("indexer stopped", "error", err)
			}
		}()
	}
	if n.sched != nil {
		n.sched.Start()
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			n.sched.Stop(stopCtx)
		}()
	}
	return n.server.ListenAndServe(ctx)
}

func (n *node) Close() {
	for i := len(n.closers) - 1; i >= 0; i-- {
		_ = n.closers[i].Close()
	}
	if n.db != nil {
		n.db.Close()
	}
}
