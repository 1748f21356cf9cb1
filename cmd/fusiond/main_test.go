package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fusionswap/config"
	"fusionswap/core/events"
	"fusionswap/crypto"
	"fusionswap/storage"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeGenesis(t *testing.T, dir string) string {
	t.Helper()
	var raw [20]byte
	raw[0] = 0xA0
	path := filepath.Join(dir, "genesis.yaml")
	contents := fmt.Sprintf(`admin: %s
params:
  safetyDepositAsset: FSN
  safetyDepositAmount: "10"
  durations:
    finality: 1
    exclusiveWithdrawal: 2
    publicWithdrawal: 3
    privateCancellation: 4
alloc:
  %s:
    FSN: "100"
`, crypto.FromRaw(raw).String(), crypto.FromRaw(raw).String())
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestResolveGenesisPath(t *testing.T) {
	env := map[string]string{}
	lookup := func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	}
	require.Equal(t, "cfg.yaml", resolveGenesisPath("", "cfg.yaml", lookup))
	env[genesisPathEnv] = "env.yaml"
	require.Equal(t, "env.yaml", resolveGenesisPath("", "cfg.yaml", lookup))
	require.Equal(t, "flag.yaml", resolveGenesisPath("flag.yaml", "cfg.yaml", lookup))
}

func TestNodeAppliesGenesisOnce(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.StorageBackend = storage.BackendBolt
	cfg.GenesisFile = writeGenesis(t, dir)
	cfg.RPC.ListenAddress = "127.0.0.1:0"

	n, err := newNode(cfg, quietLogger())
	require.NoError(t, err)
	p, err := n.engine.Params()
	require.NoError(t, err)
	require.Equal(t, "FSN", p.SafetyDepositAsset)
	n.Close()

	// the second start resumes even though the genesis file is gone
	cfg.GenesisFile = ""
	n, err = newNode(cfg, quietLogger())
	require.NoError(t, err)
	defer n.Close()
	bal, err := n.engine.Balance(p.Admin, "FSN")
	require.NoError(t, err)
	require.Equal(t, int64(100), bal.Int64())
}

func TestNodeRequiresGenesisForEmptyState(t *testing.T) {
	cfg := config.Default()
	cfg.StorageBackend = storage.BackendMemory
	cfg.GenesisFile = ""
	_, err := newNode(cfg, quietLogger())
	require.Error(t, err)
}

func TestNodeRunsUntilCancelled(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.StorageBackend = storage.BackendMemory
	cfg.GenesisFile = writeGenesis(t, dir)
	cfg.RPC.ListenAddress = "127.0.0.1:0"
	cfg.Indexer.Enabled = true
	cfg.Indexer.Driver = "sqlite"
	cfg.Indexer.DSN = "file:" + filepath.Join(dir, "index.db")
	cfg.Indexer.ExportDir = filepath.Join(dir, "exports")
	cfg.Indexer.ExportSchedule = "@hourly"

	n, err := newNode(cfg, quietLogger())
	require.NoError(t, err)
	defer n.Close()
	require.NotNil(t, n.index)
	require.NotNil(t, n.sched)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- n.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatalf("node did not stop")
	}
}

func TestNodeContinuesEventSequenceAfterRestart(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.StorageBackend = storage.BackendBolt
	cfg.GenesisFile = writeGenesis(t, dir)
	cfg.RPC.ListenAddress = "127.0.0.1:0"
	cfg.Indexer.Enabled = true
	cfg.Indexer.Driver = "sqlite"
	cfg.Indexer.DSN = filepath.Join(dir, "index.db")

	session := func(emit int) uint64 {
		n, err := newNode(cfg, quietLogger())
		require.NoError(t, err)
		defer n.Close()
		start := n.bus.Sequence()

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- n.Run(ctx) }()
		for i := 0; i < emit; i++ {
			n.bus.Emit(events.ResolverChanged{Resolver: [20]byte{byte(i + 1)}, Active: true})
		}
		require.Eventually(t, func() bool {
			last, err := n.index.LastSequence(context.Background())
			return err == nil && last == start+uint64(emit)
		}, 5*time.Second, 10*time.Millisecond)
		cancel()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(15 * time.Second):
			t.Fatalf("node did not stop")
		}
		return start
	}

	require.Equal(t, uint64(0), session(3))
	require.Equal(t, uint64(3), session(2))
}
