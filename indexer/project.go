package indexer

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"fusionswap/core/types"
	"fusionswap/native/escrow"
)

// Object statuses.
const (
	StatusOpen      = "open"
	StatusFilled    = "filled"
	StatusCancelled = "cancelled"
	StatusExpired   = "expired"
	StatusFunded    = "funded"
	StatusWithdrawn = "withdrawn"
	StatusRecovered = "recovered"
)

func objectID(rec types.Record) string {
	kind, _, _ := strings.Cut(rec.Type, ".")
	switch kind {
	case "order", "auction", "escrow":
		return strings.ToLower(rec.Attrs[kind+"Id"])
	}
	return ""
}

// project folds rec into the Object table. Events that do not concern an
// order, auction or escrow are stored but not projected.
func project(tx *gorm.DB, rec types.Record) error {
	id := objectID(rec)
	if id == "" {
		return nil
	}
	kind, action, _ := strings.Cut(rec.Type, ".")

	var obj Object
	err := tx.First(&obj, "id = ?", id).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		obj = Object{ID: id, Kind: kind, CreatedSeq: rec.Sequence}
	case err != nil:
		return err
	}

	a := rec.Attrs
	setIf := func(dst *string, key string) {
		if v, ok := a[key]; ok && v != "" {
			*dst = v
		}
	}
	setIf(&obj.Owner, "owner")
	setIf(&obj.Asset, "asset")
	setIf(&obj.Amount, "amount")
	setIf(&obj.Filled, "filled")
	setIf(&obj.Hashlock, "hashlock")
	if kind == "escrow" {
		setIf(&obj.Owner, "from")
		setIf(&obj.Recipient, "to")
		setIf(&obj.Resolver, "resolver")
		setIf(&obj.FillIndex, "fillIndex")
		if src := a["sourceId"]; src != "" {
			obj.SourceID = strings.ToLower(src)
		}
	}

	switch rec.Type {
	case escrow.EventTypeOrderCreated, escrow.EventTypeAuctionCreated:
		obj.Status = StatusOpen
	case escrow.EventTypeOrderFilled, escrow.EventTypeAuctionFilled:
		obj.Status = StatusOpen
		if a["remaining"] == "0" {
			obj.Status = StatusFilled
		}
	case escrow.EventTypeOrderCancelled, escrow.EventTypeAuctionCancelled:
		obj.Status = StatusCancelled
	case escrow.EventTypeOrderExpired, escrow.EventTypeAuctionExpired:
		obj.Status = StatusExpired
	case escrow.EventTypeEscrowCreated:
		obj.Status = StatusFunded
	case escrow.EventTypeEscrowWithdrawn:
		obj.Status = StatusWithdrawn
		setIf(&obj.Secret, "secret")
	case escrow.EventTypeEscrowRecovered:
		obj.Status = StatusRecovered
	default:
		if obj.Status == "" {
			obj.Status = action
		}
	}
	obj.UpdatedSeq = rec.Sequence
	obj.LastEventAt = rec.Timestamp
	obj.EventsCount++
	return tx.Save(&obj).Error
}
