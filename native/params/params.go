package params

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// SupportedHashAlgorithms lists the digest functions a hashlock may use.
var SupportedHashAlgorithms = []string{"sha3-256", "keccak256", "blake3"}

// DefaultMaxHashCommitments caps how many checkpoints one order may carry.
const DefaultMaxHashCommitments = 64

// Durations are phase lengths in seconds.
type Durations struct {
	Finality            uint64 `json:"finality" yaml:"finality"`
	ExclusiveWithdrawal uint64 `json:"exclusiveWithdrawal" yaml:"exclusiveWithdrawal"`
	PublicWithdrawal    uint64 `json:"publicWithdrawal" yaml:"publicWithdrawal"`
	PrivateCancellation uint64 `json:"privateCancellation" yaml:"privateCancellation"`
}

// Params is the admin-controlled protocol configuration.
type Params struct {
	Admin                         [20]byte  `json:"admin"`
	SafetyDepositAsset            string    `json:"safetyDepositAsset"`
	SafetyDepositAmount           *big.Int  `json:"safetyDepositAmount"`
	Durations                     Durations `json:"durations"`
	HashAlgorithm                 string    `json:"hashAlgorithm"`
	PublicWithdrawalResolversOnly bool      `json:"publicWithdrawalResolversOnly"`
	MaxHashCommitments            uint32    `json:"maxHashCommitments"`
}

// Clone returns a deep copy.
func (p Params) Clone() Params {
	out := p
	if p.SafetyDepositAmount != nil {
		out.SafetyDepositAmount = new(big.Int).Set(p.SafetyDepositAmount)
	}
	return out
}

// Normalize fills defaults and canonicalizes string fields in place.
func (p *Params) Normalize() {
	p.SafetyDepositAsset = strings.ToUpper(strings.TrimSpace(p.SafetyDepositAsset))
	p.HashAlgorithm = strings.ToLower(strings.TrimSpace(p.HashAlgorithm))
	if p.HashAlgorithm == "" {
		p.HashAlgorithm = SupportedHashAlgorithms[0]
	}
	if p.SafetyDepositAmount == nil {
		p.SafetyDepositAmount = big.NewInt(0)
	}
	if p.MaxHashCommitments == 0 {
		p.MaxHashCommitments = DefaultMaxHashCommitments
	}
}

// Validate checks the parameters are usable by the escrow engine.
func (p Params) Validate() error {
	if p.Admin == ([20]byte{}) {
		return errors.New("params: admin address required")
	}
	if p.SafetyDepositAsset == "" {
		return errors.New("params: safety deposit asset required")
	}
	if p.SafetyDepositAmount == nil || p.SafetyDepositAmount.Sign() < 0 {
		return errors.New("params: safety deposit amount must be non-negative")
	}
	if !IsSupportedHashAlgorithm(p.HashAlgorithm) {
		return fmt.Errorf("params: unsupported hash algorithm %q", p.HashAlgorithm)
	}
	if p.MaxHashCommitments == 0 {
		return errors.New("params: max hash commitments must be positive")
	}
	if p.Durations.ExclusiveWithdrawal == 0 && p.Durations.PublicWithdrawal == 0 {
		return errors.New("params: durations leave no withdrawal window")
	}
	return nil
}

// IsSupportedHashAlgorithm reports whether name is a known digest.
func IsSupportedHashAlgorithm(name string) bool {
	for _, algo := range SupportedHashAlgorithms {
		if algo == name {
			return true
		}
	}
	return false
}
