package escrow

import (
	"fmt"
	"math/big"

	"fusionswap/native/params"
	"fusionswap/native/registry"
)

// Order returns the open order with id.
func (e *Engine) Order(id [32]byte) (*Order, error) {
	var out *Order
	err := e.view(func(t *txn) error {
		o, err := loadOrder(t.st, id)
		out = o
		return err
	})
	return out, err
}

// Auction returns the open auction with id.
func (e *Engine) Auction(id [32]byte) (*Auction, error) {
	var out *Auction
	err := e.view(func(t *txn) error {
		a, err := loadAuction(t.st, id)
		out = a
		return err
	})
	return out, err
}

// Escrow returns the active escrow with id.
func (e *Engine) Escrow(id [32]byte) (*Escrow, error) {
	var out *Escrow
	err := e.view(func(t *txn) error {
		esc, err := loadEscrow(t.st, id)
		out = esc
		return err
	})
	return out, err
}

// EscrowPhase reports the phase the escrow is in at the engine clock.
func (e *Engine) EscrowPhase(id [32]byte) (PhaseInfo, error) {
	var out PhaseInfo
	err := e.view(func(t *txn) error {
		esc, err := loadEscrow(t.st, id)
		if err != nil {
			return err
		}
		phase := esc.Timelock.PhaseAt(t.now)
		next, ok := esc.Timelock.NextTransition(t.now)
		out = PhaseInfo{
			Phase:      phase,
			Now:        t.now,
			NextAt:     next,
			HasNext:    ok,
			PhaseStart: esc.Timelock.PhaseStart(phase),
		}
		return nil
	})
	return out, err
}

// AuctionPrice returns the current price for the whole notional amount and
// the notional still open.
func (e *Engine) AuctionPrice(id [32]byte) (*big.Int, *big.Int, error) {
	var price, remaining *big.Int
	err := e.view(func(t *txn) error {
		a, err := loadAuction(t.st, id)
		if err != nil {
			return err
		}
		if t.now > a.Schedule.EndTime {
			return fmt.Errorf("escrow: auction ended at %d: %w", a.Schedule.EndTime, ErrInvalidPhase)
		}
		price = CurrentAmount(a.Schedule, t.now)
		remaining = a.Remaining()
		return nil
	})
	return price, remaining, err
}

// Exists reports which kind of live object id names, or "" when none does.
func (e *Engine) Exists(id [32]byte) (string, error) {
	var kind string
	err := e.view(func(t *txn) error {
		for _, probe := range []struct {
			prefix []byte
			kind   string
		}{
			{orderPrefix, kindOrder},
			{auctionPrefix, kindAuction},
			{escrowPrefix, kindEscrow},
		} {
			ok, err := exists(t.st, probe.prefix, id)
			if err != nil {
				return err
			}
			if ok {
				kind = probe.kind
				return nil
			}
		}
		return nil
	})
	return kind, err
}

// Balance returns addr's balance of asset.
func (e *Engine) Balance(addr [20]byte, asset string) (*big.Int, error) {
	var out *big.Int
	err := e.view(func(t *txn) error {
		bal, err := t.ledger.Balance(addr, asset)
		out = bal
		return err
	})
	return out, err
}

// Params returns the protocol parameters in force.
func (e *Engine) Params() (params.Params, error) {
	var out params.Params
	err := e.view(func(t *txn) error {
		p, err := t.loadParams()
		out = p
		return err
	})
	return out, err
}

// Resolvers lists the registry.
func (e *Engine) Resolvers() ([]registry.Resolver, error) {
	var out []registry.Resolver
	err := e.view(func(t *txn) error {
		list, err := registry.New(t.st).List()
		out = list
		return err
	})
	return out, err
}

// IsActiveResolver reports whether addr may fill orders.
func (e *Engine) IsActiveResolver(addr [20]byte) (bool, error) {
	var out bool
	err := e.view(func(t *txn) error {
		ok, err := t.registry.IsActiveResolver(addr)
		out = ok
		return err
	})
	return out, err
}

// Now exposes the engine clock.
func (e *Engine) Now() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.now()
}
