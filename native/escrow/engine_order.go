package escrow

import (
	"fmt"
	"math/big"

	"fusionswap/native/bank"
	"fusionswap/native/params"
)

const (
	kindOrder   = "order"
	kindAuction = "auction"
	kindEscrow  = "escrow"
)

type termsInput struct {
	asset      string
	amount     *big.Int
	deposit    *big.Int
	chainID    uint64
	hashLocks  [][32]byte
	whitelist  [][20]byte
	autoCancel uint64
	durations  *Durations
}

// newTerms validates caller input against the protocol parameters.
func (t *txn) newTerms(owner [20]byte, in termsInput, p params.Params) (Terms, error) {
	asset := bank.NormalizeAsset(in.asset)
	if asset == "" {
		return Terms{}, fmt.Errorf("escrow: asset required: %w", ErrInvalidAmount)
	}
	if in.amount == nil || in.amount.Sign() <= 0 {
		return Terms{}, fmt.Errorf("escrow: amount must be positive: %w", ErrInvalidAmount)
	}
	if len(in.hashLocks) == 0 {
		return Terms{}, fmt.Errorf("escrow: at least one hash commitment required: %w", ErrInvalidSecret)
	}
	if uint64(len(in.hashLocks)) > uint64(p.MaxHashCommitments) {
		return Terms{}, fmt.Errorf("escrow: %d hash commitments exceed limit %d: %w", len(in.hashLocks), p.MaxHashCommitments, ErrInvalidSecret)
	}
	algo, err := hashAlgorithm(p)
	if err != nil {
		return Terms{}, err
	}
	locks := make([]HashLock, 0, len(in.hashLocks))
	for i, digest := range in.hashLocks {
		lock, err := NewHashLock(digest, algo)
		if err != nil {
			return Terms{}, fmt.Errorf("escrow: commitment %d: %w", i, err)
		}
		locks = append(locks, lock)
	}
	deposit := cloneBigInt(p.SafetyDepositAmount)
	if in.deposit != nil {
		deposit = cloneBigInt(in.deposit)
	}
	if deposit.Sign() < 0 {
		return Terms{}, fmt.Errorf("escrow: safety deposit must be non-negative: %w", ErrInvalidAmount)
	}
	durations := durationsFromParams(p)
	if in.durations != nil {
		durations = *in.durations
	}
	if err := durations.Validate(); err != nil {
		return Terms{}, err
	}
	return Terms{
		Owner:              owner,
		Asset:              asset,
		Amount:             cloneBigInt(in.amount),
		Filled:             big.NewInt(0),
		SafetyDepositAsset: p.SafetyDepositAsset,
		SafetyDeposit:      deposit,
		DepositReleased:    big.NewInt(0),
		DestinationChainID: in.chainID,
		HashLocks:          locks,
		Whitelist:          append([][20]byte(nil), in.whitelist...),
		AutoCancelAfter:    in.autoCancel,
		Durations:          durations,
		CreatedAt:          t.now,
	}, nil
}

// lockFunds moves the full amount and the safety deposit from the owner into
// custody.
func (t *txn) lockFunds(custody [20]byte, terms *Terms) error {
	if err := t.move(terms.Owner, custody, terms.Asset, terms.Amount); err != nil {
		return err
	}
	return t.move(terms.Owner, custody, terms.SafetyDepositAsset, terms.SafetyDeposit)
}

// releaseRemaining empties custody: the unfilled amount goes to the owner and
// the unreleased deposit to depositTo.
func (t *txn) releaseRemaining(custody [20]byte, terms *Terms, depositTo [20]byte) error {
	if err := t.move(custody, terms.Owner, terms.Asset, terms.Remaining()); err != nil {
		return err
	}
	return t.move(custody, depositTo, terms.SafetyDepositAsset, terms.RemainingDeposit())
}

// CreateOrder debits the caller for amount plus safety deposit and records a
// fixed-amount order.
func (e *Engine) CreateOrder(caller [20]byte, req OrderRequest) (*Order, error) {
	var out *Order
	err := e.update("create_order", func(t *txn) error {
		p, err := t.loadParams()
		if err != nil {
			return err
		}
		terms, err := t.newTerms(caller, termsInput{
			asset:      req.Asset,
			amount:     req.Amount,
			deposit:    req.SafetyDeposit,
			chainID:    req.DestinationChainID,
			hashLocks:  req.HashLocks,
			whitelist:  req.Whitelist,
			autoCancel: req.AutoCancelAfter,
			durations:  req.Durations,
		}, p)
		if err != nil {
			return err
		}
		nonce, err := t.st.NextNonce(caller[:])
		if err != nil {
			return err
		}
		order := &Order{ID: deriveID("fusion/order", caller[:], uint64Bytes(nonce)), Terms: terms}
		if err := t.lockFunds(custodyAddress(kindOrder, order.ID), &order.Terms); err != nil {
			return err
		}
		if err := storeOrder(t.st, order); err != nil {
			return err
		}
		t.emit(newOrderEvent(EventTypeOrderCreated, order))
		t.log("order", hexID(order.ID), "owner", addr(caller), "amount", order.Amount.String())
		out = order.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelOrder returns everything left in custody to the owner.
func (e *Engine) CancelOrder(caller [20]byte, id [32]byte) error {
	return e.update("cancel_order", func(t *txn) error {
		order, err := loadOrder(t.st, id)
		if err != nil {
			return err
		}
		if caller != order.Owner {
			return fmt.Errorf("escrow: only the owner may cancel: %w", ErrInvalidCaller)
		}
		if err := t.releaseRemaining(custodyAddress(kindOrder, id), &order.Terms, order.Owner); err != nil {
			return err
		}
		if err := deleteOrder(t.st, id); err != nil {
			return err
		}
		t.emit(newOrderEvent(EventTypeOrderCancelled, order))
		t.log("order", hexID(id))
		return nil
	})
}

// ExpireOrder lets an active resolver close an order once AutoCancelAfter
// has passed. The owner gets the unfilled amount back; the remaining safety
// deposit pays the resolver for the transaction.
func (e *Engine) ExpireOrder(caller [20]byte, id [32]byte) error {
	return e.update("expire_order", func(t *txn) error {
		order, err := loadOrder(t.st, id)
		if err != nil {
			return err
		}
		if order.AutoCancelAfter == 0 {
			return fmt.Errorf("escrow: order has no expiry: %w", ErrInvalidPhase)
		}
		if t.now < order.AutoCancelAfter {
			return fmt.Errorf("escrow: order expires at %d: %w", order.AutoCancelAfter, ErrInvalidPhase)
		}
		if err := t.requireResolver(caller, nil); err != nil {
			return err
		}
		if err := t.releaseRemaining(custodyAddress(kindOrder, id), &order.Terms, caller); err != nil {
			return err
		}
		if err := deleteOrder(t.st, id); err != nil {
			return err
		}
		t.emit(newOrderEvent(EventTypeOrderExpired, order).with("caller", addr(caller)))
		t.log("order", hexID(id), "caller", addr(caller))
		return nil
	})
}

// AcceptOrder fills the order, fully or up to the next checkpoint, and opens
// an escrow for the filled part with the caller as resolver and beneficiary.
func (e *Engine) AcceptOrder(caller [20]byte, id [32]byte, req FillRequest) (*Escrow, error) {
	var out *Escrow
	err := e.update("accept_order", func(t *txn) error {
		order, err := loadOrder(t.st, id)
		if err != nil {
			return err
		}
		if err := t.requireResolver(caller, &order.Terms); err != nil {
			return err
		}
		l, err := t.takeFromOrder(order, req)
		if err != nil {
			return err
		}
		esc, err := t.openEscrow(l, caller, caller)
		if err != nil {
			return err
		}
		t.emit(newOrderEvent(EventTypeOrderFilled, order).
			with("resolver", addr(caller)).
			with("fillAmount", l.amount.String()).
			with("fillIndex", fmt.Sprint(l.index)).
			with("escrowId", hexID(esc.ID)))
		t.log("order", hexID(id), "escrow", hexID(esc.ID), "fill", l.amount.String(), "index", l.index)
		out = esc.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveOpened(kindOrder, out.Asset, out.Amount)
	return out, nil
}

// takeFromOrder records the fill on the order, deleting it once nothing
// remains, and returns the lot that funds the escrow.
func (t *txn) takeFromOrder(order *Order, req FillRequest) (*lot, error) {
	plan, err := planFill(&order.Terms, req.Amount, req.FillIndex)
	if err != nil {
		return nil, err
	}
	share := depositShare(&order.Terms, plan)
	order.Filled = new(big.Int).Add(order.Filled, plan.amount)
	order.DepositReleased = new(big.Int).Add(order.DepositReleased, share)
	order.FillsUsed = plan.index + 1
	if plan.complete {
		err = deleteOrder(t.st, order.ID)
	} else {
		err = storeOrder(t.st, order)
	}
	if err != nil {
		return nil, err
	}
	return &lot{
		sourceID:     order.ID,
		custody:      custodyAddress(kindOrder, order.ID),
		owner:        order.Owner,
		asset:        order.Asset,
		amount:       plan.amount,
		depositAsset: order.SafetyDepositAsset,
		deposit:      share,
		chainID:      order.DestinationChainID,
		hashLock:     order.HashLocks[plan.index],
		index:        plan.index,
		durations:    order.Durations,
	}, nil
}
