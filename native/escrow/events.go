package escrow

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"fusionswap/core/types"
	"fusionswap/crypto"
)

const (
	EventTypeOrderCreated     = "order.created"
	EventTypeOrderFilled      = "order.filled"
	EventTypeOrderCancelled   = "order.cancelled"
	EventTypeOrderExpired     = "order.expired"
	EventTypeAuctionCreated   = "auction.created"
	EventTypeAuctionFilled    = "auction.filled"
	EventTypeAuctionCancelled = "auction.cancelled"
	EventTypeAuctionExpired   = "auction.expired"
	EventTypeEscrowCreated    = "escrow.created"
	EventTypeEscrowWithdrawn  = "escrow.withdrawn"
	EventTypeEscrowRecovered  = "escrow.recovered"
)

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

func hexID(id [32]byte) string { return "0x" + hex.EncodeToString(id[:]) }

func addr(a [20]byte) string { return crypto.FromRaw(a).String() }

func amount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func termsAttributes(kind string, id [32]byte, t *Terms) map[string]string {
	return map[string]string{
		kind + "Id":          hexID(id),
		"owner":              addr(t.Owner),
		"asset":              t.Asset,
		"amount":             amount(t.Amount),
		"filled":             amount(t.Filled),
		"remaining":          amount(t.Remaining()),
		"safetyDepositAsset": t.SafetyDepositAsset,
		"safetyDeposit":      amount(t.SafetyDeposit),
		"destinationChainId": strconv.FormatUint(t.DestinationChainID, 10),
		"commitments":        strconv.Itoa(len(t.HashLocks)),
	}
}

func newOrderEvent(eventType string, o *Order) escrowEvent {
	return escrowEvent{evt: &types.Event{Type: eventType, Attributes: termsAttributes("order", o.ID, &o.Terms)}}
}

func newAuctionEvent(eventType string, a *Auction) escrowEvent {
	attrs := termsAttributes("auction", a.ID, &a.Terms)
	attrs["startingAmount"] = amount(a.Schedule.StartingAmount)
	attrs["endingAmount"] = amount(a.Schedule.EndingAmount)
	attrs["startTime"] = strconv.FormatUint(a.Schedule.StartTime, 10)
	attrs["decayDuration"] = strconv.FormatUint(a.Schedule.DecayDuration, 10)
	attrs["endTime"] = strconv.FormatUint(a.Schedule.EndTime, 10)
	return escrowEvent{evt: &types.Event{Type: eventType, Attributes: attrs}}
}

// with sets one extra attribute on the event.
func (e escrowEvent) with(key, value string) escrowEvent {
	e.evt.Attributes[key] = value
	return e
}

func newEscrowEvent(eventType string, esc *Escrow, caller [20]byte) escrowEvent {
	attrs := map[string]string{
		"escrowId":           hexID(esc.ID),
		"asset":              esc.Asset,
		"amount":             amount(esc.Amount),
		"safetyDepositAsset": esc.SafetyDepositAsset,
		"safetyDeposit":      amount(esc.SafetyDeposit),
		"from":               addr(esc.From),
		"to":                 addr(esc.To),
		"resolver":           addr(esc.Resolver),
		"chainId":            strconv.FormatUint(esc.ChainID, 10),
		"hashlock":           esc.HashLock.String(),
		"hashAlgorithm":      string(esc.HashLock.Algorithm),
		"createdAt":          strconv.FormatUint(esc.Timelock.CreatedAt, 10),
		"fillIndex":          strconv.FormatUint(uint64(esc.FillIndex), 10),
	}
	if esc.SourceID != ([32]byte{}) {
		attrs["sourceId"] = hexID(esc.SourceID)
	}
	if caller != ([20]byte{}) {
		attrs["caller"] = addr(caller)
	}
	return escrowEvent{evt: &types.Event{Type: eventType, Attributes: attrs}}
}
