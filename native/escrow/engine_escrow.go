package escrow

import (
	"encoding/hex"
	"fmt"

	"fusionswap/native/bank"
)

// openEscrow moves a lot out of order or auction custody into a new escrow.
func (t *txn) openEscrow(l *lot, resolver, to [20]byte) (*Escrow, error) {
	esc := &Escrow{
		ID:                 deriveID("fusion/escrow", l.sourceID[:], uint64Bytes(uint64(l.index))),
		Asset:              l.asset,
		Amount:             cloneBigInt(l.amount),
		SafetyDepositAsset: l.depositAsset,
		SafetyDeposit:      cloneBigInt(l.deposit),
		From:               l.owner,
		To:                 to,
		Resolver:           resolver,
		ChainID:            l.chainID,
		Timelock:           NewTimelock(t.now, l.durations),
		HashLock:           l.hashLock,
		SourceID:           l.sourceID,
		FillIndex:          l.index,
	}
	taken, err := exists(t.st, escrowPrefix, esc.ID)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("escrow: escrow %x already exists", esc.ID)
	}
	custody := custodyAddress(kindEscrow, esc.ID)
	if err := t.move(l.custody, custody, esc.Asset, esc.Amount); err != nil {
		return nil, err
	}
	if err := t.move(l.custody, custody, esc.SafetyDepositAsset, esc.SafetyDeposit); err != nil {
		return nil, err
	}
	if err := storeEscrow(t.st, esc); err != nil {
		return nil, err
	}
	t.emit(newEscrowEvent(EventTypeEscrowCreated, esc, [20]byte{}))
	return esc, nil
}

// CreateEscrow opens an escrow funded by the caller, who becomes both the
// depositor and the resolver. Used on the destination side of a swap.
func (e *Engine) CreateEscrow(caller [20]byte, req ResolverEscrowRequest) (*Escrow, error) {
	var out *Escrow
	err := e.update("create_escrow", func(t *txn) error {
		p, err := t.loadParams()
		if err != nil {
			return err
		}
		asset := bank.NormalizeAsset(req.Asset)
		if asset == "" {
			return fmt.Errorf("escrow: asset required: %w", ErrInvalidAmount)
		}
		if req.Amount == nil || req.Amount.Sign() <= 0 {
			return fmt.Errorf("escrow: amount must be positive: %w", ErrInvalidAmount)
		}
		if req.Recipient == ([20]byte{}) {
			return fmt.Errorf("escrow: recipient required: %w", ErrInvalidCaller)
		}
		algo, err := hashAlgorithm(p)
		if err != nil {
			return err
		}
		lock, err := NewHashLock(req.HashLock, algo)
		if err != nil {
			return err
		}
		deposit := cloneBigInt(p.SafetyDepositAmount)
		if req.SafetyDeposit != nil {
			deposit = cloneBigInt(req.SafetyDeposit)
		}
		if deposit.Sign() < 0 {
			return fmt.Errorf("escrow: safety deposit must be non-negative: %w", ErrInvalidAmount)
		}
		durations := durationsFromParams(p)
		if req.Durations != nil {
			durations = *req.Durations
		}
		if err := durations.Validate(); err != nil {
			return err
		}
		nonce, err := t.st.NextNonce(caller[:])
		if err != nil {
			return err
		}
		esc := &Escrow{
			ID:                 deriveID("fusion/escrow/resolver", caller[:], uint64Bytes(nonce)),
			Asset:              asset,
			Amount:             cloneBigInt(req.Amount),
			SafetyDepositAsset: p.SafetyDepositAsset,
			SafetyDeposit:      deposit,
			From:               caller,
			To:                 req.Recipient,
			Resolver:           caller,
			ChainID:            req.ChainID,
			Timelock:           NewTimelock(t.now, durations),
			HashLock:           lock,
		}
		custody := custodyAddress(kindEscrow, esc.ID)
		if err := t.move(caller, custody, esc.Asset, esc.Amount); err != nil {
			return err
		}
		if err := t.move(caller, custody, esc.SafetyDepositAsset, esc.SafetyDeposit); err != nil {
			return err
		}
		if err := storeEscrow(t.st, esc); err != nil {
			return err
		}
		t.emit(newEscrowEvent(EventTypeEscrowCreated, esc, caller))
		t.log("escrow", hexID(esc.ID), "resolver", addr(caller), "amount", esc.Amount.String())
		out = esc.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out != nil {
		e.metrics.ObserveOpened("resolver", out.Asset, out.Amount)
	}
	return out, nil
}

// Withdraw releases the escrow to its beneficiary against the secret. Only
// the resolver may call, except during public withdrawal where anyone
// holding the secret may, subject to the resolvers-only parameter. The
// safety deposit goes to the caller.
func (e *Engine) Withdraw(caller [20]byte, id [32]byte, secret []byte) error {
	var closed *Escrow
	err := e.update("withdraw", func(t *txn) error {
		esc, err := loadEscrow(t.st, id)
		if err != nil {
			return err
		}
		phase := esc.Timelock.PhaseAt(t.now)
		if phase != PhasePublicWithdrawal && caller != esc.Resolver {
			return fmt.Errorf("escrow: only the resolver may withdraw during %s: %w", phase, ErrInvalidCaller)
		}
		switch phase {
		case PhaseExclusiveWithdrawal:
		case PhasePublicWithdrawal:
			p, err := t.loadParams()
			if err != nil {
				return err
			}
			if p.PublicWithdrawalResolversOnly && caller != esc.Resolver {
				if err := t.requireResolver(caller, nil); err != nil {
					return err
				}
			}
		default:
			return fmt.Errorf("escrow: withdraw not allowed during %s: %w", phase, ErrInvalidPhase)
		}
		if !esc.HashLock.Verify(secret) {
			return fmt.Errorf("escrow: secret does not match hashlock: %w", ErrInvalidSecret)
		}
		if err := t.settle(esc, esc.To, caller); err != nil {
			return err
		}
		t.emit(newEscrowEvent(EventTypeEscrowWithdrawn, esc, caller).with("secret", "0x"+hex.EncodeToString(secret)))
		t.log("escrow", hexID(id), "caller", addr(caller), "to", addr(esc.To))
		closed = esc
		return nil
	})
	if err == nil && closed != nil {
		e.metrics.ObserveClosed("withdrawn", closed.Asset, closed.Amount)
	}
	return err
}

// Recover returns the escrow to its depositor. During private cancellation
// only the resolver may call; during public cancellation anyone may. The
// safety deposit goes to the caller.
func (e *Engine) Recover(caller [20]byte, id [32]byte) error {
	var closed *Escrow
	err := e.update("recover", func(t *txn) error {
		esc, err := loadEscrow(t.st, id)
		if err != nil {
			return err
		}
		switch phase := esc.Timelock.PhaseAt(t.now); phase {
		case PhasePrivateCancellation:
			if caller != esc.Resolver {
				return fmt.Errorf("escrow: only the resolver may recover before public cancellation: %w", ErrInvalidCaller)
			}
		case PhasePublicCancellation:
		default:
			return fmt.Errorf("escrow: recovery not allowed during %s: %w", phase, ErrInvalidPhase)
		}
		if err := t.settle(esc, esc.From, caller); err != nil {
			return err
		}
		t.emit(newEscrowEvent(EventTypeEscrowRecovered, esc, caller))
		t.log("escrow", hexID(id), "caller", addr(caller), "from", addr(esc.From))
		closed = esc
		return nil
	})
	if err == nil && closed != nil {
		e.metrics.ObserveClosed("recovered", closed.Asset, closed.Amount)
	}
	return err
}

// settle pays the escrow amount to payee and the safety deposit to caller,
// then deletes the record.
func (t *txn) settle(esc *Escrow, payee, caller [20]byte) error {
	custody := custodyAddress(kindEscrow, esc.ID)
	if err := t.move(custody, payee, esc.Asset, esc.Amount); err != nil {
		return err
	}
	if err := t.move(custody, caller, esc.SafetyDepositAsset, esc.SafetyDeposit); err != nil {
		return err
	}
	return deleteEscrow(t.st, esc.ID)
}
