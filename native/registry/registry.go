package registry

import (
	"errors"
	"fmt"
	"strings"
)

var (
	resolverPrefix  = []byte("registry/resolver/")
	resolverListKey = []byte("registry/resolvers")

	// ErrUnknownResolver is returned when deregistering an address that was
	// never registered.
	ErrUnknownResolver = errors.New("registry: resolver not registered")
)

// State is the key-value surface the registry persists through.
type State interface {
	KVPut(key []byte, value interface{}) error
	KVGet(key []byte, out interface{}) (bool, error)
	KVAppend(key []byte, value []byte) error
	KVGetList(key []byte, out interface{}) error
}

// Resolver is the stored registry entry.
type Resolver struct {
	Address      [20]byte
	Label        string
	Active       bool
	RegisteredAt uint64
	UpdatedAt    uint64
}

// Registry is the resolver allow-list. Lookups are pure reads against the
// transaction it was built on.
type Registry struct {
	state State
}

func New(state State) *Registry {
	return &Registry{state: state}
}

func resolverKey(addr [20]byte) []byte {
	buf := make([]byte, len(resolverPrefix)+len(addr))
	copy(buf, resolverPrefix)
	copy(buf[len(resolverPrefix):], addr[:])
	return buf
}

// Get returns the stored entry for addr, if any.
func (r *Registry) Get(addr [20]byte) (*Resolver, bool, error) {
	var rec Resolver
	ok, err := r.state.KVGet(resolverKey(addr), &rec)
	if err != nil || !ok {
		return nil, ok, err
	}
	return &rec, true, nil
}

// IsActiveResolver reports whether addr is registered and active.
func (r *Registry) IsActiveResolver(addr [20]byte) (bool, error) {
	rec, ok, err := r.Get(addr)
	if err != nil || !ok {
		return false, err
	}
	return rec.Active, nil
}

// Register adds or reactivates addr.
func (r *Registry) Register(addr [20]byte, label string, now uint64) (*Resolver, error) {
	if addr == ([20]byte{}) {
		return nil, fmt.Errorf("registry: resolver address required")
	}
	rec, ok, err := r.Get(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		rec = &Resolver{Address: addr, RegisteredAt: now}
	}
	rec.Label = strings.TrimSpace(label)
	rec.Active = true
	rec.UpdatedAt = now
	if err := r.state.KVPut(resolverKey(addr), rec); err != nil {
		return nil, err
	}
	if err := r.state.KVAppend(resolverListKey, addr[:]); err != nil {
		return nil, err
	}
	return rec, nil
}

// Deregister marks addr inactive. The entry is kept so its history remains
// queryable.
func (r *Registry) Deregister(addr [20]byte, now uint64) (*Resolver, error) {
	rec, ok, err := r.Get(addr)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrUnknownResolver
	}
	rec.Active = false
	rec.UpdatedAt = now
	if err := r.state.KVPut(resolverKey(addr), rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// List returns every registered resolver in registration order.
func (r *Registry) List() ([]Resolver, error) {
	var addrs [][]byte
	if err := r.state.KVGetList(resolverListKey, &addrs); err != nil {
		return nil, err
	}
	out := make([]Resolver, 0, len(addrs))
	for _, raw := range addrs {
		var addr [20]byte
		copy(addr[:], raw)
		rec, ok, err := r.Get(addr)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, *rec)
		}
	}
	return out, nil
}
