package events

import (
	"sync"
	"time"

	"fusionswap/core/types"
)

const (
	defaultBacklog    = 1024
	defaultSubscriber = 64
)

// Bus fans committed events out to subscribers and keeps a bounded backlog
// so late subscribers can resume from a sequence number.
type Bus struct {
	mu      sync.Mutex
	seq     uint64
	backlog []types.Record
	limit   int
	subs    map[uint64]chan types.Record
	nextSub uint64
	nowFn   func() time.Time
	dropped uint64
}

// NewBus creates a bus retaining up to backlog records. Zero selects the
// default. The first emitted record gets sequence start+1, so a restarted
// node continues numbering after the last sequence a consumer persisted.
func NewBus(backlog int, start uint64) *Bus {
	if backlog <= 0 {
		backlog = defaultBacklog
	}
	return &Bus{
		seq:   start,
		limit: backlog,
		subs:  make(map[uint64]chan types.Record),
		nowFn: time.Now,
	}
}

// Emit implements Emitter. Slow subscribers lose events rather than stall
// the writer; the drop count is exposed through Dropped.
func (b *Bus) Emit(evt Event) {
	wire := Materialize(evt)
	if wire == nil {
		return
	}
	attrs := make(map[string]string, len(wire.Attributes))
	for k, v := range wire.Attributes {
		attrs[k] = v
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	rec := types.Record{
		Sequence:  b.seq,
		Timestamp: b.nowFn().Unix(),
		Type:      wire.Type,
		Attrs:     attrs,
	}
	b.backlog = append(b.backlog, rec)
	if over := len(b.backlog) - b.limit; over > 0 {
		b.backlog = append([]types.Record(nil), b.backlog[over:]...)
	}
	for _, ch := range b.subs {
		select {
		case ch <- rec:
		default:
			b.dropped++
		}
	}
}

// Subscribe registers a listener and returns the retained records with a
// sequence greater than since. The cancel function must be called to release
// the subscription.
func (b *Bus) Subscribe(since uint64, buffer int) (<-chan types.Record, []types.Record, func()) {
	if buffer <= 0 {
		buffer = defaultSubscriber
	}
	ch := make(chan types.Record, buffer)

	b.mu.Lock()
	id := b.nextSub
	b.nextSub++
	b.subs[id] = ch
	replay := make([]types.Record, 0)
	for _, rec := range b.backlog {
		if rec.Sequence > since {
			replay = append(replay, rec)
		}
	}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			b.mu.Unlock()
			close(ch)
		})
	}
	return ch, replay, cancel
}

// Since returns retained records with a sequence greater than seq.
func (b *Bus) Since(seq uint64, limit int) []types.Record {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.Record, 0)
	for _, rec := range b.backlog {
		if rec.Sequence <= seq {
			continue
		}
		out = append(out, rec)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}

// Sequence reports the last assigned sequence number.
func (b *Bus) Sequence() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.seq
}

// Dropped reports how many deliveries were skipped because a subscriber's
// buffer was full.
func (b *Bus) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Fanout forwards every event to each emitter in order.
type Fanout []Emitter

func (f Fanout) Emit(evt Event) {
	for _, em := range f {
		if em != nil {
			em.Emit(evt)
		}
	}
}
