package escrow

import (
	"math/big"
)

// Terms are the fields orders and auctions share: what is offered, how it is
// collateralized, and how far it has been filled.
type Terms struct {
	Owner              [20]byte
	Asset              string
	Amount             *big.Int
	Filled             *big.Int
	SafetyDepositAsset string
	SafetyDeposit      *big.Int
	DepositReleased    *big.Int
	DestinationChainID uint64
	HashLocks          []HashLock
	// FillsUsed is one past the highest checkpoint index already revealed.
	FillsUsed       uint32
	Whitelist       [][20]byte
	AutoCancelAfter uint64
	Durations       Durations
	CreatedAt       uint64
}

// Remaining is the amount still open for fills.
func (t *Terms) Remaining() *big.Int {
	return new(big.Int).Sub(bigOrZero(t.Amount), bigOrZero(t.Filled))
}

// RemainingDeposit is the safety deposit still held in custody.
func (t *Terms) RemainingDeposit() *big.Int {
	return new(big.Int).Sub(bigOrZero(t.SafetyDeposit), bigOrZero(t.DepositReleased))
}

// IsWhitelisted reports whether addr may fill. An empty whitelist admits
// every active resolver.
func (t *Terms) IsWhitelisted(addr [20]byte) bool {
	if len(t.Whitelist) == 0 {
		return true
	}
	for _, allowed := range t.Whitelist {
		if allowed == addr {
			return true
		}
	}
	return false
}

func (t Terms) clone() Terms {
	out := t
	out.Amount = cloneBigInt(t.Amount)
	out.Filled = cloneBigInt(t.Filled)
	out.SafetyDeposit = cloneBigInt(t.SafetyDeposit)
	out.DepositReleased = cloneBigInt(t.DepositReleased)
	out.HashLocks = append([]HashLock(nil), t.HashLocks...)
	out.Whitelist = append([][20]byte(nil), t.Whitelist...)
	return out
}

// Order is a fixed-amount offer held in custody until a resolver accepts it
// or the owner cancels.
type Order struct {
	ID [32]byte
	Terms
}

// Clone returns a deep copy of the order.
func (o *Order) Clone() *Order {
	if o == nil {
		return nil
	}
	return &Order{ID: o.ID, Terms: o.Terms.clone()}
}

// OrderRequest carries the caller-supplied fields of a new order. Nil
// SafetyDeposit and Durations take the protocol defaults.
type OrderRequest struct {
	Asset              string
	Amount             *big.Int
	SafetyDeposit      *big.Int
	DestinationChainID uint64
	HashLocks          [][32]byte
	Whitelist          [][20]byte
	AutoCancelAfter    uint64
	Durations          *Durations
}

// FillRequest selects how much of an order or auction to take. A nil Amount
// takes everything that remains. FillIndex, when set, must match the
// checkpoint the fill lands on.
type FillRequest struct {
	Amount    *big.Int
	FillIndex *uint32
}

func cloneBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}

func bigOrZero(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return v
}
