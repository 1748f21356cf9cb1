package rpc

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"fusionswap/crypto"
	"fusionswap/native/escrow"
	"fusionswap/native/params"
	"fusionswap/native/registry"
)

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

type durationsJSON struct {
	Finality            uint64 `json:"finality"`
	ExclusiveWithdrawal uint64 `json:"exclusiveWithdrawal"`
	PublicWithdrawal    uint64 `json:"publicWithdrawal"`
	PrivateCancellation uint64 `json:"privateCancellation"`
}

func durationsView(d escrow.Durations) durationsJSON {
	return durationsJSON{
		Finality:            d.Finality,
		ExclusiveWithdrawal: d.ExclusiveWithdrawal,
		PublicWithdrawal:    d.PublicWithdrawal,
		PrivateCancellation: d.PrivateCancellation,
	}
}

func (d *durationsJSON) engine() *escrow.Durations {
	if d == nil {
		return nil
	}
	return &escrow.Durations{
		Finality:            d.Finality,
		ExclusiveWithdrawal: d.ExclusiveWithdrawal,
		PublicWithdrawal:    d.PublicWithdrawal,
		PrivateCancellation: d.PrivateCancellation,
	}
}

type termsJSON struct {
	Owner              string        `json:"owner"`
	Asset              string        `json:"asset"`
	Amount             string        `json:"amount"`
	Filled             string        `json:"filled"`
	Remaining          string        `json:"remaining"`
	SafetyDepositAsset string        `json:"safetyDepositAsset"`
	SafetyDeposit      string        `json:"safetyDeposit"`
	DepositReleased    string        `json:"depositReleased"`
	DestinationChainID uint64        `json:"destinationChainId"`
	HashLocks          []string      `json:"hashlocks"`
	HashAlgorithm      string        `json:"hashAlgorithm"`
	FillsUsed          uint32        `json:"fillsUsed"`
	Whitelist          []string      `json:"whitelist"`
	AutoCancelAfter    uint64        `json:"autoCancelAfter,omitempty"`
	Durations          durationsJSON `json:"durations"`
	CreatedAt          uint64        `json:"createdAt"`
}

func termsView(t *escrow.Terms) termsJSON {
	out := termsJSON{
		Owner:              formatAddress(t.Owner),
		Asset:              t.Asset,
		Amount:             formatAmount(t.Amount),
		Filled:             formatAmount(t.Filled),
		Remaining:          formatAmount(t.Remaining()),
		SafetyDepositAsset: t.SafetyDepositAsset,
		SafetyDeposit:      formatAmount(t.SafetyDeposit),
		DepositReleased:    formatAmount(t.DepositReleased),
		DestinationChainID: t.DestinationChainID,
		HashLocks:          make([]string, 0, len(t.HashLocks)),
		FillsUsed:          t.FillsUsed,
		Whitelist:          make([]string, 0, len(t.Whitelist)),
		AutoCancelAfter:    t.AutoCancelAfter,
		Durations:          durationsView(t.Durations),
		CreatedAt:          t.CreatedAt,
	}
	for _, lock := range t.HashLocks {
		out.HashLocks = append(out.HashLocks, lock.String())
		out.HashAlgorithm = string(lock.Algorithm)
	}
	for _, addr := range t.Whitelist {
		out.Whitelist = append(out.Whitelist, formatAddress(addr))
	}
	return out
}

type orderJSON struct {
	ID string `json:"id"`
	termsJSON
}

func orderView(o *escrow.Order) orderJSON {
	return orderJSON{ID: formatID(o.ID), termsJSON: termsView(&o.Terms)}
}

type auctionJSON struct {
	ID string `json:"id"`
	termsJSON
	StartingAmount string `json:"startingAmount"`
	EndingAmount   string `json:"endingAmount"`
	StartTime      uint64 `json:"startTime"`
	DecayDuration  uint64 `json:"decayDuration"`
	EndTime        uint64 `json:"endTime"`
	Deadline       uint64 `json:"deadline"`
}

func auctionView(a *escrow.Auction) auctionJSON {
	return auctionJSON{
		ID:             formatID(a.ID),
		termsJSON:      termsView(&a.Terms),
		StartingAmount: formatAmount(a.Schedule.StartingAmount),
		EndingAmount:   formatAmount(a.Schedule.EndingAmount),
		StartTime:      a.Schedule.StartTime,
		DecayDuration:  a.Schedule.DecayDuration,
		EndTime:        a.Schedule.EndTime,
		Deadline:       a.Deadline(),
	}
}

type escrowJSON struct {
	ID                 string        `json:"id"`
	Asset              string        `json:"asset"`
	Amount             string        `json:"amount"`
	SafetyDepositAsset string        `json:"safetyDepositAsset"`
	SafetyDeposit      string        `json:"safetyDeposit"`
	From               string        `json:"from"`
	To                 string        `json:"to"`
	Resolver           string        `json:"resolver"`
	ChainID            uint64        `json:"chainId"`
	HashLock           string        `json:"hashlock"`
	HashAlgorithm      string        `json:"hashAlgorithm"`
	CreatedAt          uint64        `json:"createdAt"`
	Durations          durationsJSON `json:"durations"`
	SourceID           string        `json:"sourceId,omitempty"`
	FillIndex          uint32        `json:"fillIndex"`
}

func escrowView(e *escrow.Escrow) escrowJSON {
	out := escrowJSON{
		ID:                 formatID(e.ID),
		Asset:              e.Asset,
		Amount:             formatAmount(e.Amount),
		SafetyDepositAsset: e.SafetyDepositAsset,
		SafetyDeposit:      formatAmount(e.SafetyDeposit),
		From:               formatAddress(e.From),
		To:                 formatAddress(e.To),
		Resolver:           formatAddress(e.Resolver),
		ChainID:            e.ChainID,
		HashLock:           e.HashLock.String(),
		HashAlgorithm:      string(e.HashLock.Algorithm),
		CreatedAt:          e.Timelock.CreatedAt,
		Durations:          durationsView(e.Timelock.Durations),
		FillIndex:          e.FillIndex,
	}
	if e.SourceID != ([32]byte{}) {
		out.SourceID = formatID(e.SourceID)
	}
	return out
}

type phaseJSON struct {
	Phase      string  `json:"phase"`
	Now        uint64  `json:"now"`
	PhaseStart uint64  `json:"phaseStart"`
	NextAt     *uint64 `json:"nextAt,omitempty"`
}

func phaseView(p escrow.PhaseInfo) phaseJSON {
	out := phaseJSON{Phase: p.Phase.String(), Now: p.Now, PhaseStart: p.PhaseStart}
	if p.HasNext {
		next := p.NextAt
		out.NextAt = &next
	}
	return out
}

type paramsJSON struct {
	Admin                         string        `json:"admin"`
	SafetyDepositAsset            string        `json:"safetyDepositAsset"`
	SafetyDepositAmount           string        `json:"safetyDepositAmount"`
	Durations                     durationsJSON `json:"durations"`
	HashAlgorithm                 string        `json:"hashAlgorithm"`
	PublicWithdrawalResolversOnly bool          `json:"publicWithdrawalResolversOnly"`
	MaxHashCommitments            uint32        `json:"maxHashCommitments"`
}

func paramsView(p params.Params) paramsJSON {
	return paramsJSON{
		Admin:               formatAddress(p.Admin),
		SafetyDepositAsset:  p.SafetyDepositAsset,
		SafetyDepositAmount: formatAmount(p.SafetyDepositAmount),
		Durations: durationsJSON{
			Finality:            p.Durations.Finality,
			ExclusiveWithdrawal: p.Durations.ExclusiveWithdrawal,
			PublicWithdrawal:    p.Durations.PublicWithdrawal,
			PrivateCancellation: p.Durations.PrivateCancellation,
		},
		HashAlgorithm:                 p.HashAlgorithm,
		PublicWithdrawalResolversOnly: p.PublicWithdrawalResolversOnly,
		MaxHashCommitments:            p.MaxHashCommitments,
	}
}

func (p paramsJSON) protocol() (params.Params, error) {
	admin, err := crypto.ParseAddress(p.Admin)
	if err != nil {
		return params.Params{}, fmt.Errorf("admin: %w", err)
	}
	deposit, err := parseAmount(p.SafetyDepositAmount, false)
	if err != nil {
		return params.Params{}, fmt.Errorf("safetyDepositAmount: %w", err)
	}
	return params.Params{
		Admin:               admin,
		SafetyDepositAsset:  p.SafetyDepositAsset,
		SafetyDepositAmount: deposit,
		Durations: params.Durations{
			Finality:            p.Durations.Finality,
			ExclusiveWithdrawal: p.Durations.ExclusiveWithdrawal,
			PublicWithdrawal:    p.Durations.PublicWithdrawal,
			PrivateCancellation: p.Durations.PrivateCancellation,
		},
		HashAlgorithm:                 p.HashAlgorithm,
		PublicWithdrawalResolversOnly: p.PublicWithdrawalResolversOnly,
		MaxHashCommitments:            p.MaxHashCommitments,
	}, nil
}

type resolverJSON struct {
	Address      string `json:"address"`
	Label        string `json:"label,omitempty"`
	Active       bool   `json:"active"`
	RegisteredAt uint64 `json:"registeredAt"`
	UpdatedAt    uint64 `json:"updatedAt"`
}

func resolverView(r registry.Resolver) resolverJSON {
	return resolverJSON{
		Address:      formatAddress(r.Address),
		Label:        r.Label,
		Active:       r.Active,
		RegisteredAt: r.RegisteredAt,
		UpdatedAt:    r.UpdatedAt,
	}
}

func formatAddress(addr [20]byte) string {
	return crypto.FromRaw(addr).String()
}

func formatID(id [32]byte) string {
	return "0x" + hex.EncodeToString(id[:])
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func parseID(value string) ([32]byte, error) {
	var out [32]byte
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(value), "0x"), "0X")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, fmt.Errorf("id must be hex: %w", err)
	}
	if len(raw) != len(out) {
		return out, fmt.Errorf("id must be 32 bytes, got %d", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}

func parseHex(value string) ([]byte, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(value), "0x"), "0X")
	return hex.DecodeString(trimmed)
}

// parseAmount reads a base-10 integer. Underscores are accepted as digit
// separators.
func parseAmount(value string, positive bool) (*big.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(value), "_", "")
	if trimmed == "" {
		return nil, fmt.Errorf("amount required")
	}
	out, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	if out.Sign() < 0 || (positive && out.Sign() == 0) {
		return nil, fmt.Errorf("amount must be positive")
	}
	return out, nil
}

func parseOptionalAmount(value *string) (*big.Int, error) {
	if value == nil {
		return nil, nil
	}
	return parseAmount(*value, false)
}

func parseAddresses(values []string) ([][20]byte, error) {
	out := make([][20]byte, 0, len(values))
	for i, v := range values {
		addr, err := crypto.ParseAddress(v)
		if err != nil {
			return nil, fmt.Errorf("address %d: %w", i, err)
		}
		out = append(out, addr)
	}
	return out, nil
}

func parseDigests(values []string) ([][32]byte, error) {
	out := make([][32]byte, 0, len(values))
	for i, v := range values {
		d, err := escrow.ParseDigest(v)
		if err != nil {
			return nil, fmt.Errorf("hashlock %d: %w", i, err)
		}
		out = append(out, d)
	}
	return out, nil
}
