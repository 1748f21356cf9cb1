package escrow

import "math/big"

// Auction is an order whose price decays over time. Terms.Amount is the
// notional size, equal to the starting amount, and fills are measured in
// that unit. A fill of n notional units pays n*price/StartingAmount.
type Auction struct {
	ID [32]byte
	Terms
	Schedule AuctionSchedule
}

func (a *Auction) Clone() *Auction {
	if a == nil {
		return nil
	}
	return &Auction{ID: a.ID, Terms: a.Terms.clone(), Schedule: a.Schedule.Clone()}
}

// Deadline is when a resolver may expire the auction: AutoCancelAfter when
// set, otherwise the first instant after EndTime.
func (a *Auction) Deadline() uint64 {
	if a.AutoCancelAfter != 0 {
		return a.AutoCancelAfter
	}
	return saturatingAdd(a.Schedule.EndTime, 1)
}

// AuctionRequest carries the caller-supplied fields of a new auction. A zero
// StartTime starts the auction now; a zero EndTime ends it when decay
// completes.
type AuctionRequest struct {
	Asset              string
	StartingAmount     *big.Int
	EndingAmount       *big.Int
	StartTime          uint64
	DecayDuration      uint64
	EndTime            uint64
	SafetyDeposit      *big.Int
	DestinationChainID uint64
	HashLocks          [][32]byte
	Whitelist          [][20]byte
	AutoCancelAfter    uint64
	Durations          *Durations
}

// scaleToPrice converts a notional fill into the amount paid at price.
func scaleToPrice(notional, price, starting *big.Int) *big.Int {
	out := new(big.Int).Mul(notional, price)
	return out.Quo(out, starting)
}
