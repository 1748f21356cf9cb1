package genesis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"fusionswap/crypto"
	"fusionswap/native/params"
)

// Spec is the initial state of a fusion network: protocol parameters, the
// resolver allow-list and opening balances.
type Spec struct {
	Admin     string                       `json:"admin" yaml:"admin"`
	Params    ParamsSpec                   `json:"params" yaml:"params"`
	Resolvers []ResolverSpec               `json:"resolvers" yaml:"resolvers"`
	Alloc     map[string]map[string]string `json:"alloc" yaml:"alloc"` // addr -> asset -> amount
}

type ParamsSpec struct {
	SafetyDepositAsset            string           `json:"safetyDepositAsset" yaml:"safetyDepositAsset"`
	SafetyDepositAmount           string           `json:"safetyDepositAmount" yaml:"safetyDepositAmount"`
	HashAlgorithm                 string           `json:"hashAlgorithm" yaml:"hashAlgorithm"`
	PublicWithdrawalResolversOnly bool             `json:"publicWithdrawalResolversOnly" yaml:"publicWithdrawalResolversOnly"`
	MaxHashCommitments            uint32           `json:"maxHashCommitments" yaml:"maxHashCommitments"`
	Durations                     params.Durations `json:"durations" yaml:"durations"`
}

type ResolverSpec struct {
	Address string `json:"address" yaml:"address"`
	Label   string `json:"label" yaml:"label"`
}

// Allocation is one resolved opening balance.
type Allocation struct {
	Address [20]byte
	Asset   string
	Amount  *big.Int
}

// Load reads a genesis file. Files ending in .json are decoded as JSON, any
// other extension as YAML. Unknown fields are rejected either way.
func Load(path string) (*Spec, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("genesis spec path must be provided")
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis spec %q: %w", path, err)
	}
	var spec Spec
	if strings.EqualFold(filepath.Ext(path), ".json") {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()
		err = dec.Decode(&spec)
	} else {
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		err = dec.Decode(&spec)
	}
	if err != nil {
		return nil, fmt.Errorf("decode genesis spec %q: %w", path, err)
	}
	return &spec, nil
}

// ProtocolParams resolves the params section.
func (s *Spec) ProtocolParams() (params.Params, error) {
	admin, err := crypto.ParseAddress(s.Admin)
	if err != nil {
		return params.Params{}, fmt.Errorf("admin: %w", err)
	}
	deposit, err := parseAmount(s.Params.SafetyDepositAmount)
	if err != nil {
		return params.Params{}, fmt.Errorf("params.safetyDepositAmount: %w", err)
	}
	p := params.Params{
		Admin:                         admin,
		SafetyDepositAsset:            s.Params.SafetyDepositAsset,
		SafetyDepositAmount:           deposit,
		Durations:                     s.Params.Durations,
		HashAlgorithm:                 s.Params.HashAlgorithm,
		PublicWithdrawalResolversOnly: s.Params.PublicWithdrawalResolversOnly,
		MaxHashCommitments:            s.Params.MaxHashCommitments,
	}
	p.Normalize()
	if err := p.Validate(); err != nil {
		return params.Params{}, err
	}
	return p, nil
}

// Allocations resolves the alloc section in a deterministic order: addresses
// sorted by their raw bytes, assets by name.
func (s *Spec) Allocations() ([]Allocation, error) {
	out := make([]Allocation, 0, len(s.Alloc))
	for addrStr, assets := range s.Alloc {
		addr, err := crypto.ParseAddress(addrStr)
		if err != nil {
			return nil, fmt.Errorf("alloc %q: %w", addrStr, err)
		}
		for asset, amountStr := range assets {
			amount, err := parseAmount(amountStr)
			if err != nil {
				return nil, fmt.Errorf("alloc %q %s: %w", addrStr, asset, err)
			}
			if amount.Sign() == 0 {
				continue
			}
			out = append(out, Allocation{Address: addr, Asset: strings.ToUpper(strings.TrimSpace(asset)), Amount: amount})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if c := bytes.Compare(out[i].Address[:], out[j].Address[:]); c != 0 {
			return c < 0
		}
		return out[i].Asset < out[j].Asset
	})
	return out, nil
}

func parseAmountString(value string) (*big.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(value), "_", "")
	if trimmed == "" {
		return big.NewInt(0), nil
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", value)
	}
	return amount, nil
}

func parseAmount(value string) (*big.Int, error) {
	amount, err := parseAmountString(value)
	if err != nil {
		return nil, err
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("amount %q must be non-negative", value)
	}
	return amount, nil
}
