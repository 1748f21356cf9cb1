package escrow

import (
	"fmt"
	"math/big"
)

// AuctionSchedule describes a linear Dutch auction. The price moves from
// StartingAmount at StartTime to EndingAmount at StartTime+DecayDuration and
// stays there until EndTime.
type AuctionSchedule struct {
	StartingAmount *big.Int
	EndingAmount   *big.Int
	StartTime      uint64
	DecayDuration  uint64
	EndTime        uint64
}

func (s AuctionSchedule) Clone() AuctionSchedule {
	out := s
	out.StartingAmount = cloneBigInt(s.StartingAmount)
	out.EndingAmount = cloneBigInt(s.EndingAmount)
	return out
}

// DecayEnd is the instant the price reaches EndingAmount.
func (s AuctionSchedule) DecayEnd() uint64 {
	return saturatingAdd(s.StartTime, s.DecayDuration)
}

// Validate enforces 0 < EndingAmount <= StartingAmount and
// StartTime <= StartTime+DecayDuration <= EndTime.
func (s AuctionSchedule) Validate() error {
	if s.StartingAmount == nil || s.StartingAmount.Sign() <= 0 {
		return fmt.Errorf("escrow: starting amount must be positive: %w", ErrInvalidAmount)
	}
	if s.EndingAmount == nil || s.EndingAmount.Sign() <= 0 {
		return fmt.Errorf("escrow: ending amount must be positive: %w", ErrInvalidAmount)
	}
	if s.StartingAmount.Cmp(s.EndingAmount) < 0 {
		return fmt.Errorf("escrow: starting amount below ending amount: %w", ErrInvalidAmount)
	}
	if s.StartTime > s.StartTime+s.DecayDuration {
		return fmt.Errorf("escrow: decay window overflows: %w", ErrInvalidAmount)
	}
	if s.StartTime+s.DecayDuration > s.EndTime {
		return fmt.Errorf("escrow: decay window ends after auction end: %w", ErrInvalidAmount)
	}
	return nil
}

// CurrentAmount returns the auction price at now. The result is clamped to
// [EndingAmount, StartingAmount] and never increases with now. Between the
// end points the price is the floor of the time-weighted average of the two.
func CurrentAmount(s AuctionSchedule, now uint64) *big.Int {
	start := cloneBigInt(s.StartingAmount)
	end := cloneBigInt(s.EndingAmount)
	if now <= s.StartTime {
		return start
	}
	if now >= s.DecayEnd() || s.DecayDuration == 0 {
		return end
	}
	elapsed := new(big.Int).SetUint64(now - s.StartTime)
	remaining := new(big.Int).SetUint64(s.DecayEnd() - now)
	num := new(big.Int).Mul(start, remaining)
	num.Add(num, new(big.Int).Mul(end, elapsed))
	return num.Quo(num, new(big.Int).SetUint64(s.DecayDuration))
}
