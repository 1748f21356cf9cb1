package events

import (
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBusSequencesAndReplays(t *testing.T) {
	bus := NewBus(2, 0)
	bus.nowFn = func() time.Time { return time.Unix(1_700_000_000, 0) }

	bus.Emit(Mint{Asset: "fsn", Recipient: [20]byte{1}, Amount: big.NewInt(5)})
	bus.Emit(Transfer{Asset: "FSN", From: [20]byte{1}, To: [20]byte{2}, Amount: big.NewInt(3)})
	bus.Emit(ResolverChanged{Resolver: [20]byte{3}, Active: true})

	require.Equal(t, uint64(3), bus.Sequence())
	retained := bus.Since(0, 0)
	require.Len(t, retained, 2, "backlog is bounded")
	require.Equal(t, uint64(2), retained[0].Sequence)
	require.Equal(t, TypeTransfer, retained[0].Type)
	require.Equal(t, "3", retained[0].Attrs["amount"])
	require.Equal(t, TypeResolverRegistered, retained[1].Type)
	require.Equal(t, int64(1_700_000_000), retained[1].Timestamp)

	require.Len(t, bus.Since(2, 0), 1)
	require.Len(t, bus.Since(0, 1), 1)
}

func TestBusSubscribeDeliversLiveEvents(t *testing.T) {
	bus := NewBus(0, 0)
	bus.Emit(Mint{Asset: "FSN", Amount: big.NewInt(1)})

	ch, replay, cancel := bus.Subscribe(0, 4)
	require.Len(t, replay, 1)

	bus.Emit(ResolverChanged{Resolver: [20]byte{9}})
	select {
	case rec := <-ch:
		require.Equal(t, uint64(2), rec.Sequence)
		require.Equal(t, TypeResolverDeregistered, rec.Type)
	case <-time.After(time.Second):
		t.Fatalf("expected live event")
	}

	cancel()
	cancel()
	_, ok := <-ch
	require.False(t, ok, "channel closed after cancel")
	bus.Emit(Mint{Asset: "FSN", Amount: big.NewInt(1)})
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	bus := NewBus(0, 0)
	_, _, cancel := bus.Subscribe(0, 1)
	defer cancel()
	bus.Emit(Mint{Asset: "FSN"})
	bus.Emit(Mint{Asset: "FSN"})
	require.Equal(t, uint64(1), bus.Dropped())
}

func TestMaterializeUntypedEvent(t *testing.T) {
	evt := Materialize(plainEvent("custom.kind"))
	require.Equal(t, "custom.kind", evt.Type)
	require.Empty(t, evt.Attributes)
	require.Nil(t, Materialize(nil))
}

type plainEvent string

func (p plainEvent) EventType() string { return string(p) }
