package escrow

import (
	"fmt"
	"math/big"
)

// CreateAuction collateralizes the starting amount plus the safety deposit
// so a fill at any price can be paid in full.
func (e *Engine) CreateAuction(caller [20]byte, req AuctionRequest) (*Auction, error) {
	var out *Auction
	err := e.update("create_auction", func(t *txn) error {
		p, err := t.loadParams()
		if err != nil {
			return err
		}
		schedule := AuctionSchedule{
			StartingAmount: cloneBigInt(req.StartingAmount),
			EndingAmount:   cloneBigInt(req.EndingAmount),
			StartTime:      req.StartTime,
			DecayDuration:  req.DecayDuration,
			EndTime:        req.EndTime,
		}
		if schedule.StartTime == 0 {
			schedule.StartTime = t.now
		}
		if req.EndTime == 0 {
			schedule.EndTime = schedule.DecayEnd()
		}
		if err := schedule.Validate(); err != nil {
			return err
		}
		terms, err := t.newTerms(caller, termsInput{
			asset:      req.Asset,
			amount:     schedule.StartingAmount,
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
		auction := &Auction{
			ID:       deriveID("fusion/auction", caller[:], uint64Bytes(nonce)),
			Terms:    terms,
			Schedule: schedule,
		}
		if err := t.lockFunds(custodyAddress(kindAuction, auction.ID), &auction.Terms); err != nil {
			return err
		}
		if err := storeAuction(t.st, auction); err != nil {
			return err
		}
		t.emit(newAuctionEvent(EventTypeAuctionCreated, auction))
		t.log("auction", hexID(auction.ID), "owner", addr(caller), "starting", schedule.StartingAmount.String())
		out = auction.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CancelAuction returns the unfilled collateral and deposit to the owner.
func (e *Engine) CancelAuction(caller [20]byte, id [32]byte) error {
	return e.update("cancel_auction", func(t *txn) error {
		auction, err := loadAuction(t.st, id)
		if err != nil {
			return err
		}
		if caller != auction.Owner {
			return fmt.Errorf("escrow: only the owner may cancel: %w", ErrInvalidCaller)
		}
		if err := t.releaseRemaining(custodyAddress(kindAuction, id), &auction.Terms, auction.Owner); err != nil {
			return err
		}
		if err := deleteAuction(t.st, id); err != nil {
			return err
		}
		t.emit(newAuctionEvent(EventTypeAuctionCancelled, auction))
		t.log("auction", hexID(id))
		return nil
	})
}

// ExpireAuction lets an active resolver close an auction after its deadline,
// collecting the remaining safety deposit.
func (e *Engine) ExpireAuction(caller [20]byte, id [32]byte) error {
	return e.update("expire_auction", func(t *txn) error {
		auction, err := loadAuction(t.st, id)
		if err != nil {
			return err
		}
		if t.now < auction.Deadline() {
			return fmt.Errorf("escrow: auction expires at %d: %w", auction.Deadline(), ErrInvalidPhase)
		}
		if err := t.requireResolver(caller, nil); err != nil {
			return err
		}
		if err := t.releaseRemaining(custodyAddress(kindAuction, id), &auction.Terms, caller); err != nil {
			return err
		}
		if err := deleteAuction(t.st, id); err != nil {
			return err
		}
		t.emit(newAuctionEvent(EventTypeAuctionExpired, auction).with("caller", addr(caller)))
		t.log("auction", hexID(id), "caller", addr(caller))
		return nil
	})
}

// FillAuction prices the fill at the engine clock and opens an escrow for
// exactly that amount. Collateral above the price goes back to the owner.
func (e *Engine) FillAuction(caller [20]byte, id [32]byte, req FillRequest) (*Escrow, error) {
	var out *Escrow
	err := e.update("fill_auction", func(t *txn) error {
		auction, err := loadAuction(t.st, id)
		if err != nil {
			return err
		}
		if t.now > auction.Schedule.EndTime {
			return fmt.Errorf("escrow: auction ended at %d: %w", auction.Schedule.EndTime, ErrInvalidPhase)
		}
		if err := t.requireResolver(caller, &auction.Terms); err != nil {
			return err
		}
		l, notional, err := t.takeFromAuction(auction, req)
		if err != nil {
			return err
		}
		esc, err := t.openEscrow(l, caller, caller)
		if err != nil {
			return err
		}
		ratio, _ := new(big.Float).Quo(new(big.Float).SetInt(l.amount), new(big.Float).SetInt(notional)).Float64()
		e.metrics.ObserveAuctionFill(ratio)
		t.emit(newAuctionEvent(EventTypeAuctionFilled, auction).
			with("resolver", addr(caller)).
			with("notional", notional.String()).
			with("fillAmount", l.amount.String()).
			with("fillIndex", fmt.Sprint(l.index)).
			with("escrowId", hexID(esc.ID)))
		t.log("auction", hexID(id), "escrow", hexID(esc.ID), "price", l.amount.String(), "notional", notional.String())
		out = esc.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.metrics.ObserveOpened(kindAuction, out.Asset, out.Amount)
	return out, nil
}

// takeFromAuction records a fill of notional units, refunds the owner the
// difference between the notional and the price, and returns the lot.
func (t *txn) takeFromAuction(auction *Auction, req FillRequest) (*lot, *big.Int, error) {
	plan, err := planFill(&auction.Terms, req.Amount, req.FillIndex)
	if err != nil {
		return nil, nil, err
	}
	price := CurrentAmount(auction.Schedule, t.now)
	pay := scaleToPrice(plan.amount, price, auction.Schedule.StartingAmount)
	if pay.Sign() <= 0 {
		return nil, nil, fmt.Errorf("escrow: fill of %s rounds to nothing at price %s: %w", plan.amount, price, ErrInvalidAmount)
	}
	custody := custodyAddress(kindAuction, auction.ID)
	refund := new(big.Int).Sub(plan.amount, pay)
	if err := t.move(custody, auction.Owner, auction.Asset, refund); err != nil {
		return nil, nil, err
	}
	share := depositShare(&auction.Terms, plan)
	auction.Filled = new(big.Int).Add(auction.Filled, plan.amount)
	auction.DepositReleased = new(big.Int).Add(auction.DepositReleased, share)
	auction.FillsUsed = plan.index + 1
	if plan.complete {
		err = deleteAuction(t.st, auction.ID)
	} else {
		err = storeAuction(t.st, auction)
	}
	if err != nil {
		return nil, nil, err
	}
	return &lot{
		sourceID:     auction.ID,
		custody:      custody,
		owner:        auction.Owner,
		asset:        auction.Asset,
		amount:       pay,
		depositAsset: auction.SafetyDepositAsset,
		deposit:      share,
		chainID:      auction.DestinationChainID,
		hashLock:     auction.HashLocks[plan.index],
		index:        plan.index,
		durations:    auction.Durations,
	}, plan.amount, nil
}
