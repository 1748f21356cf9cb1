package escrow

import (
	"fmt"
	"math"
)

// Phase is the protocol window an escrow is in. Phases are derived from the
// timelock and the clock; they are never stored.
type Phase uint8

const (
	PhaseFinality Phase = iota
	PhaseExclusiveWithdrawal
	PhasePublicWithdrawal
	PhasePrivateCancellation
	PhasePublicCancellation
)

var phaseNames = [...]string{
	PhaseFinality:            "finality",
	PhaseExclusiveWithdrawal: "exclusive_withdrawal",
	PhasePublicWithdrawal:    "public_withdrawal",
	PhasePrivateCancellation: "private_cancellation",
	PhasePublicCancellation:  "public_cancellation",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return fmt.Sprintf("phase(%d)", p)
}

// Durations are the lengths, in seconds, of the four bounded phases. Public
// cancellation has no end.
type Durations struct {
	Finality            uint64
	ExclusiveWithdrawal uint64
	PublicWithdrawal    uint64
	PrivateCancellation uint64
}

// Timelock anchors the phase schedule at CreatedAt.
type Timelock struct {
	CreatedAt uint64
	Durations Durations
}

// Validate rejects a schedule that leaves no window in which the escrow can
// be withdrawn.
func (d Durations) Validate() error {
	if d.ExclusiveWithdrawal == 0 && d.PublicWithdrawal == 0 {
		return fmt.Errorf("escrow: durations leave no withdrawal window: %w", ErrInvalidPhase)
	}
	return nil
}

func NewTimelock(createdAt uint64, durations Durations) Timelock {
	return Timelock{CreatedAt: createdAt, Durations: durations}
}

func saturatingAdd(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}

// boundaries returns the start of every phase after Finality.
func (t Timelock) boundaries() [4]uint64 {
	var b [4]uint64
	b[0] = saturatingAdd(t.CreatedAt, t.Durations.Finality)
	b[1] = saturatingAdd(b[0], t.Durations.ExclusiveWithdrawal)
	b[2] = saturatingAdd(b[1], t.Durations.PublicWithdrawal)
	b[3] = saturatingAdd(b[2], t.Durations.PrivateCancellation)
	return b
}

// PhaseAt returns the phase in force at now. Every window is half-open, so
// an instant on a boundary belongs to the phase starting there. Times before
// CreatedAt report Finality.
func (t Timelock) PhaseAt(now uint64) Phase {
	b := t.boundaries()
	switch {
	case now < b[0]:
		return PhaseFinality
	case now < b[1]:
		return PhaseExclusiveWithdrawal
	case now < b[2]:
		return PhasePublicWithdrawal
	case now < b[3]:
		return PhasePrivateCancellation
	default:
		return PhasePublicCancellation
	}
}

// PhaseStart returns the first instant of p.
func (t Timelock) PhaseStart(p Phase) uint64 {
	if p == PhaseFinality {
		return t.CreatedAt
	}
	b := t.boundaries()
	if int(p) > len(b) {
		return math.MaxUint64
	}
	return b[p-1]
}

// NextTransition returns when the phase in force at now ends. The boolean is
// false once public cancellation is reached.
func (t Timelock) NextTransition(now uint64) (uint64, bool) {
	for _, boundary := range t.boundaries() {
		if now < boundary {
			return boundary, true
		}
	}
	return 0, false
}

func (t Timelock) IsFinality(now uint64) bool { return t.PhaseAt(now) == PhaseFinality }

func (t Timelock) IsExclusiveWithdrawal(now uint64) bool {
	return t.PhaseAt(now) == PhaseExclusiveWithdrawal
}

func (t Timelock) IsPublicWithdrawal(now uint64) bool {
	return t.PhaseAt(now) == PhasePublicWithdrawal
}

func (t Timelock) IsPrivateCancellation(now uint64) bool {
	return t.PhaseAt(now) == PhasePrivateCancellation
}

func (t Timelock) IsPublicCancellation(now uint64) bool {
	return t.PhaseAt(now) == PhasePublicCancellation
}
