package indexer

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"fusionswap/core/events"
	"fusionswap/core/types"
	"fusionswap/native/escrow"
)

const (
	orderID  = "0x0101010101010101010101010101010101010101010101010101010101010101"
	escrowA  = "0x0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a0a"
	escrowB  = "0x0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b0b"
	ownerA   = "fsn1owner"
	resolver = "fsn1resolver"
)

func newTestIndexer(t *testing.T) *Indexer {
	t.Helper()
	db, err := Open("sqlite", fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString()))
	require.NoError(t, err)
	ix, err := New(db, nil)
	require.NoError(t, err)
	return ix
}

func rec(seq uint64, typ string, attrs map[string]string) types.Record {
	return types.Record{Sequence: seq, Timestamp: int64(1_700_000_000 + seq), Type: typ, Attrs: attrs}
}

func swapHistory() []types.Record {
	return []types.Record{
		rec(1, escrow.EventTypeOrderCreated, map[string]string{
			"orderId": orderID, "owner": ownerA, "asset": "USDC", "amount": "1000", "filled": "0", "remaining": "1000",
		}),
		rec(2, escrow.EventTypeEscrowCreated, map[string]string{
			"escrowId": escrowA, "sourceId": orderID, "from": ownerA, "to": resolver, "resolver": resolver,
			"asset": "USDC", "amount": "400", "fillIndex": "1", "hashlock": "0xaa",
		}),
		rec(3, escrow.EventTypeOrderFilled, map[string]string{
			"orderId": orderID, "filled": "400", "remaining": "600", "escrowId": escrowA,
		}),
		rec(4, escrow.EventTypeEscrowCreated, map[string]string{
			"escrowId": escrowB, "sourceId": orderID, "from": ownerA, "to": resolver, "resolver": resolver,
			"asset": "USDC", "amount": "600", "fillIndex": "3", "hashlock": "0xbb",
		}),
		rec(5, escrow.EventTypeOrderFilled, map[string]string{
			"orderId": orderID, "filled": "1000", "remaining": "0", "escrowId": escrowB,
		}),
		rec(6, escrow.EventTypeEscrowWithdrawn, map[string]string{
			"escrowId": escrowA, "secret": "0x736563726574",
		}),
		rec(7, escrow.EventTypeEscrowRecovered, map[string]string{"escrowId": escrowB}),
		rec(8, events.TypeResolverRegistered, map[string]string{"resolver": resolver}),
	}
}

func TestApplyProjectsObjects(t *testing.T) {
	ix := newTestIndexer(t)
	ctx := context.Background()
	for _, r := range swapHistory() {
		require.NoError(t, ix.Apply(ctx, r))
	}

	order, err := ix.Status(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, "order", order.Kind)
	require.Equal(t, StatusFilled, order.Status)
	require.Equal(t, "1000", order.Filled)
	require.Equal(t, ownerA, order.Owner)
	require.Equal(t, uint64(1), order.CreatedSeq)
	require.Equal(t, uint64(5), order.UpdatedSeq)
	require.Equal(t, 3, order.EventsCount)

	a, err := ix.Status(ctx, escrowA)
	require.NoError(t, err)
	require.Equal(t, StatusWithdrawn, a.Status)
	require.Equal(t, "0x736563726574", a.Secret)
	require.Equal(t, orderID, a.SourceID)
	require.Equal(t, resolver, a.Recipient)

	b, err := ix.Status(ctx, escrowB)
	require.NoError(t, err)
	require.Equal(t, StatusRecovered, b.Status)
	require.Equal(t, "3", b.FillIndex)

	escrows, err := ix.Escrows(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, escrows, 2)
	require.Equal(t, escrowA, escrows[0].ID)

	_, err = ix.Status(ctx, "0xff")
	require.True(t, errors.Is(err, ErrNotFound))

	last, err := ix.LastSequence(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(8), last)
}

func TestApplyIgnoresReplays(t *testing.T) {
	ix := newTestIndexer(t)
	ctx := context.Background()
	history := swapHistory()
	for _, r := range history[:3] {
		require.NoError(t, ix.Apply(ctx, r))
	}
	for _, r := range history {
		require.NoError(t, ix.Apply(ctx, r))
	}
	all, err := ix.ListEvents(ctx, Query{})
	require.NoError(t, err)
	require.Len(t, all, len(history))

	order, err := ix.Status(ctx, orderID)
	require.NoError(t, err)
	require.Equal(t, 3, order.EventsCount)
}

func TestListEventsFilters(t *testing.T) {
	ix := newTestIndexer(t)
	ctx := context.Background()
	for _, r := range swapHistory() {
		require.NoError(t, ix.Apply(ctx, r))
	}

	byObject, err := ix.ListEvents(ctx, Query{ObjectID: escrowA})
	require.NoError(t, err)
	require.Len(t, byObject, 2)
	require.Equal(t, escrow.EventTypeEscrowWithdrawn, byObject[1].Type)

	byType, err := ix.ListEvents(ctx, Query{Type: escrow.EventTypeOrderFilled})
	require.NoError(t, err)
	require.Len(t, byType, 2)

	page, err := ix.ListEvents(ctx, Query{After: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.Equal(t, uint64(4), page[0].Sequence)
	require.Contains(t, page[0].Attributes, `"fillIndex":"3"`)
}

func TestRunConsumesBus(t *testing.T) {
	ix := newTestIndexer(t)
	bus := events.NewBus(16, 0)
	bus.Emit(events.ResolverChanged{Resolver: [20]byte{1}, Active: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ix.Run(ctx, bus) }()

	bus.Emit(events.ResolverChanged{Resolver: [20]byte{1}, Active: false})
	require.Eventually(t, func() bool {
		last, err := ix.LastSequence(context.Background())
		return err == nil && last == 2
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	evts, err := ix.ListEvents(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, evts, 2)
	require.Equal(t, events.TypeResolverDeregistered, evts[1].Type)
	require.Empty(t, evts[1].ObjectID)
}

// runSession opens the file-backed index, runs it against a bus seeded from
// its cursor, emits n events and waits until they are stored.
func runSession(t *testing.T, path string, n int) {
	t.Helper()
	db, err := Open("sqlite", path)
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	defer sqlDB.Close()
	ix, err := New(db, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	start, err := ix.LastSequence(ctx)
	require.NoError(t, err)
	bus := events.NewBus(16, start)
	done := make(chan error, 1)
	go func() { done <- ix.Run(ctx, bus) }()

	for i := 0; i < n; i++ {
		bus.Emit(events.ResolverChanged{Resolver: [20]byte{byte(i + 1)}, Active: i%2 == 0})
	}
	want := start + uint64(n)
	require.Eventually(t, func() bool {
		last, err := ix.LastSequence(context.Background())
		return err == nil && last == want
	}, 2*time.Second, 10*time.Millisecond)
	cancel()
	require.NoError(t, <-done)
}

func TestRunResumesAcrossRestarts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	runSession(t, path, 3)
	runSession(t, path, 2)

	db, err := Open("sqlite", path)
	require.NoError(t, err)
	ix, err := New(db, nil)
	require.NoError(t, err)
	evts, err := ix.ListEvents(context.Background(), Query{})
	require.NoError(t, err)
	require.Len(t, evts, 5)
	for i, evt := range evts {
		require.Equal(t, uint64(i+1), evt.Sequence)
	}
}

func TestBusSeededFromCursorNumbersAfterIt(t *testing.T) {
	bus := events.NewBus(4, 41)
	bus.Emit(events.ResolverChanged{Resolver: [20]byte{1}, Active: true})
	require.Equal(t, uint64(42), bus.Sequence())
	require.Len(t, bus.Since(41, 0), 1)
}

func TestExportParquetAdvancesCursor(t *testing.T) {
	ix := newTestIndexer(t)
	ctx := context.Background()
	history := swapHistory()
	for _, r := range history[:5] {
		require.NoError(t, ix.Apply(ctx, r))
	}
	dir := t.TempDir()

	first, err := ix.ExportParquet(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, 5, first.Count)
	require.Equal(t, uint64(1), first.From)
	require.Equal(t, uint64(5), first.To)
	info, err := os.Stat(first.Path)
	require.NoError(t, err)
	require.NotZero(t, info.Size())

	empty, err := ix.ExportParquet(ctx, dir)
	require.NoError(t, err)
	require.Zero(t, empty.Count)

	for _, r := range history[5:] {
		require.NoError(t, ix.Apply(ctx, r))
	}
	second, err := ix.ExportParquet(ctx, dir)
	require.NoError(t, err)
	require.Equal(t, uint64(6), second.From)
	require.Equal(t, 3, second.Count)
}

func TestSchedulerRejectsBadSpec(t *testing.T) {
	ix := newTestIndexer(t)
	_, err := NewScheduler(ix, "every so often", t.TempDir(), nil)
	require.Error(t, err)

	s, err := NewScheduler(ix, "@every 1h", t.TempDir(), nil)
	require.NoError(t, err)
	s.Start()
	s.Stop(context.Background())
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	_, err := Open("mysql", "x")
	require.Error(t, err)
}
