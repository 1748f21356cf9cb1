package escrow

import (
	"fmt"
	"math/big"
)

// An order with N hash commitments is split into N equal checkpoints:
// commitment k authorizes a cumulative fill of up to (k+1)/N of the total.
// A fill that brings the cumulative amount to c must reveal the smallest k
// with (k+1)*total >= c*N, and k must be past every index already used so
// that no secret is ever revealed twice. An order with a single commitment
// is filled exactly once, for its whole amount.

// CheckpointIndex returns the commitment index covering a cumulative fill
// of cumulative out of total split into parts checkpoints.
func CheckpointIndex(total, cumulative *big.Int, parts int) (uint32, error) {
	if parts <= 0 {
		return 0, fmt.Errorf("escrow: no hash commitments: %w", ErrInvalidSecret)
	}
	if total == nil || total.Sign() <= 0 {
		return 0, fmt.Errorf("escrow: total must be positive: %w", ErrInvalidAmount)
	}
	if cumulative == nil || cumulative.Sign() <= 0 || cumulative.Cmp(total) > 0 {
		return 0, fmt.Errorf("escrow: cumulative fill out of range: %w", ErrInvalidAmount)
	}
	// ceil(cumulative*parts/total) - 1
	num := new(big.Int).Mul(cumulative, big.NewInt(int64(parts)))
	q, r := new(big.Int).QuoRem(num, total, new(big.Int))
	if r.Sign() != 0 {
		q.Add(q, big.NewInt(1))
	}
	return uint32(q.Int64() - 1), nil
}

// fillPlan is the outcome of checking a fill request against an order.
type fillPlan struct {
	amount   *big.Int
	index    uint32
	complete bool
}

// planFill validates a fill of amount against terms. A nil amount fills
// whatever remains. requested, when set, must name the checkpoint the fill
// lands on.
func planFill(terms *Terms, amount *big.Int, requested *uint32) (fillPlan, error) {
	remaining := terms.Remaining()
	if remaining.Sign() <= 0 {
		return fillPlan{}, fmt.Errorf("escrow: nothing left to fill: %w", ErrObjectNotFound)
	}
	if amount == nil {
		amount = remaining
	}
	if amount.Sign() <= 0 {
		return fillPlan{}, fmt.Errorf("escrow: fill amount must be positive: %w", ErrInvalidAmount)
	}
	if amount.Cmp(remaining) > 0 {
		return fillPlan{}, fmt.Errorf("escrow: fill %s exceeds remaining %s: %w", amount, remaining, ErrInvalidAmount)
	}
	parts := len(terms.HashLocks)
	complete := amount.Cmp(remaining) == 0
	if parts == 1 && !complete {
		return fillPlan{}, fmt.Errorf("escrow: single-commitment orders must be filled in full: %w", ErrInvalidAmount)
	}
	cumulative := new(big.Int).Add(terms.Filled, amount)
	index, err := CheckpointIndex(terms.Amount, cumulative, parts)
	if err != nil {
		return fillPlan{}, err
	}
	if index < terms.FillsUsed {
		return fillPlan{}, fmt.Errorf("escrow: fill stays within used checkpoint %d: %w", index, ErrInvalidAmount)
	}
	if requested != nil && *requested != index {
		return fillPlan{}, fmt.Errorf("escrow: fill lands on checkpoint %d, not %d: %w", index, *requested, ErrInvalidSecret)
	}
	return fillPlan{amount: new(big.Int).Set(amount), index: index, complete: complete}, nil
}

// depositShare is the part of the remaining safety deposit that follows a
// fill. The fill completing the order takes whatever is left so rounding
// never strands deposit in custody.
func depositShare(terms *Terms, plan fillPlan) *big.Int {
	left := terms.RemainingDeposit()
	if plan.complete {
		return left
	}
	share := new(big.Int).Mul(terms.SafetyDeposit, plan.amount)
	share.Quo(share, terms.Amount)
	if share.Cmp(left) > 0 {
		return left
	}
	return share
}
