package params

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ParamsKeyProtocol stores the protocol configuration.
const ParamsKeyProtocol = "params/protocol"

// ErrNotInitialised is returned when no parameters have been written yet.
var ErrNotInitialised = errors.New("params: not initialised")

// StoreState captures the subset of state capabilities required by the
// parameter helpers.
type StoreState interface {
	KVPutBytes(key []byte, value []byte) error
	KVGetBytes(key []byte) ([]byte, error)
}

// Store provides typed accessors for the admin-controlled parameters.
type Store struct {
	state StoreState
}

func NewStore(state StoreState) *Store {
	return &Store{state: state}
}

func (s *Store) withState() (StoreState, error) {
	if s == nil || s.state == nil {
		return nil, fmt.Errorf("params: state not configured")
	}
	return s.state, nil
}

// Set validates and persists p. Values are stored as JSON so operators can
// read them back verbatim.
func (s *Store) Set(p Params) error {
	state, err := s.withState()
	if err != nil {
		return err
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return err
	}
	encoded, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("params: encode protocol: %w", err)
	}
	return state.KVPutBytes([]byte(ParamsKeyProtocol), encoded)
}

// Get loads the persisted parameters.
func (s *Store) Get() (Params, error) {
	state, err := s.withState()
	if err != nil {
		return Params{}, err
	}
	raw, err := state.KVGetBytes([]byte(ParamsKeyProtocol))
	if err != nil {
		return Params{}, err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return Params{}, ErrNotInitialised
	}
	var p Params
	if err := json.Unmarshal(raw, &p); err != nil {
		return Params{}, fmt.Errorf("params: decode protocol: %w", err)
	}
	p.Normalize()
	return p, nil
}
