package genesis

import (
	"errors"
	"fmt"

	"fusionswap/core/state"
	"fusionswap/crypto"
	"fusionswap/native/bank"
	"fusionswap/native/params"
	"fusionswap/native/registry"
)

// ErrAlreadyApplied is returned when the state already carries protocol
// parameters.
var ErrAlreadyApplied = errors.New("genesis: state already initialised")

// Apply writes spec into an empty state in a single transaction. The
// resolver registration time is the supplied genesis timestamp.
func Apply(mgr *state.Manager, spec *Spec, genesisTime uint64) error {
	if spec == nil {
		return fmt.Errorf("genesis spec must not be nil")
	}
	if mgr == nil {
		return fmt.Errorf("state manager must not be nil")
	}
	p, err := spec.ProtocolParams()
	if err != nil {
		return err
	}
	allocs, err := spec.Allocations()
	if err != nil {
		return err
	}
	return mgr.Update(func(tx *state.Tx) error {
		store := params.NewStore(tx)
		if _, err := store.Get(); err == nil {
			return ErrAlreadyApplied
		} else if !errors.Is(err, params.ErrNotInitialised) {
			return err
		}
		if err := store.Set(p); err != nil {
			return err
		}
		reg := registry.New(tx)
		for i, r := range spec.Resolvers {
			addr, err := crypto.ParseAddress(r.Address)
			if err != nil {
				return fmt.Errorf("resolvers[%d]: %w", i, err)
			}
			if _, err := reg.Register(addr, r.Label, genesisTime); err != nil {
				return fmt.Errorf("resolvers[%d]: %w", i, err)
			}
		}
		ledger := bank.NewLedger(tx)
		for _, alloc := range allocs {
			if err := ledger.Credit(alloc.Address, alloc.Asset, alloc.Amount); err != nil {
				return fmt.Errorf("alloc %s %s: %w", crypto.FromRaw(alloc.Address), alloc.Asset, err)
			}
		}
		return nil
	})
}
