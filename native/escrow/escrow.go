package escrow

import "math/big"

// Escrow is locked value released to To by revealing the secret during a
// withdrawal phase, or returned to From during a cancellation phase. Its
// custody account holds exactly Amount of Asset plus SafetyDeposit of
// SafetyDepositAsset until one of the two happens, after which the record is
// deleted.
type Escrow struct {
	ID                 [32]byte
	Asset              string
	Amount             *big.Int
	SafetyDepositAsset string
	SafetyDeposit      *big.Int
	From               [20]byte
	To                 [20]byte
	Resolver           [20]byte
	ChainID            uint64
	Timelock           Timelock
	HashLock           HashLock
	SourceID           [32]byte
	FillIndex          uint32
}

func (e *Escrow) Clone() *Escrow {
	if e == nil {
		return nil
	}
	out := *e
	out.Amount = cloneBigInt(e.Amount)
	out.SafetyDeposit = cloneBigInt(e.SafetyDeposit)
	return &out
}

// ResolverEscrowRequest opens an escrow funded directly by the caller, used
// when this side is the destination of the swap.
type ResolverEscrowRequest struct {
	Recipient     [20]byte
	Asset         string
	Amount        *big.Int
	SafetyDeposit *big.Int
	ChainID       uint64
	HashLock      [32]byte
	Durations     *Durations
}

// PhaseInfo is the answer to a phase query.
type PhaseInfo struct {
	Phase      Phase
	Now        uint64
	NextAt     uint64
	HasNext    bool
	PhaseStart uint64
}

// lot is what an order or auction hands over when a resolver fills it. It is
// only produced by takeFromOrder/takeFromAuction and only consumed by
// openEscrow, so custody can only leave an order to fund an escrow.
type lot struct {
	sourceID     [32]byte
	custody      [20]byte
	owner        [20]byte
	asset        string
	amount       *big.Int
	depositAsset string
	deposit      *big.Int
	chainID      uint64
	hashLock     HashLock
	index        uint32
	durations    Durations
}
