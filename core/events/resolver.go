package events

import (
	"strconv"

	"fusionswap/core/types"
)

const (
	TypeResolverRegistered   = "resolver.registered"
	TypeResolverDeregistered = "resolver.deregistered"
	TypeParamsUpdated        = "params.updated"
)

// ResolverChanged reports a registry membership change.
type ResolverChanged struct {
	Resolver [20]byte
	Label    string
	Active   bool
}

func (e ResolverChanged) EventType() string {
	if e.Active {
		return TypeResolverRegistered
	}
	return TypeResolverDeregistered
}

func (e ResolverChanged) Event() *types.Event {
	attrs := map[string]string{
		"resolver": formatAddress(e.Resolver),
		"active":   strconv.FormatBool(e.Active),
	}
	if e.Label != "" {
		attrs["label"] = e.Label
	}
	return &types.Event{Type: e.EventType(), Attributes: attrs}
}

// ParamsUpdated is emitted after the admin replaces the protocol parameters.
type ParamsUpdated struct {
	Admin               [20]byte
	SafetyDepositAsset  string
	SafetyDepositAmount string
	HashAlgorithm       string
	Durations           [4]uint64
}

func (ParamsUpdated) EventType() string { return TypeParamsUpdated }

func (e ParamsUpdated) Event() *types.Event {
	return &types.Event{
		Type: TypeParamsUpdated,
		Attributes: map[string]string{
			"admin":               formatAddress(e.Admin),
			"safetyDepositAsset":  normalizeAsset(e.SafetyDepositAsset),
			"safetyDepositAmount": e.SafetyDepositAmount,
			"hashAlgorithm":       e.HashAlgorithm,
			"finality":            strconv.FormatUint(e.Durations[0], 10),
			"exclusiveWithdrawal": strconv.FormatUint(e.Durations[1], 10),
			"publicWithdrawal":    strconv.FormatUint(e.Durations[2], 10),
			"privateCancellation": strconv.FormatUint(e.Durations[3], 10),
		},
	}
}
