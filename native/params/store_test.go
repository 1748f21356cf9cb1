package params

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"fusionswap/core/state"
	"fusionswap/storage"
)

func TestStoreRoundTrip(t *testing.T) {
	tx := state.NewManager(storage.NewMemDB()).Begin()
	defer tx.Discard()
	store := NewStore(tx)

	_, err := store.Get()
	require.ErrorIs(t, err, ErrNotInitialised)

	in := Params{
		Admin:               [20]byte{1},
		SafetyDepositAsset:  " fsn ",
		SafetyDepositAmount: big.NewInt(1_000),
		Durations:           Durations{Finality: 10, ExclusiveWithdrawal: 20, PrivateCancellation: 30},
	}
	require.NoError(t, store.Set(in))

	out, err := store.Get()
	require.NoError(t, err)
	require.Equal(t, "FSN", out.SafetyDepositAsset)
	require.Equal(t, "sha3-256", out.HashAlgorithm)
	require.Equal(t, uint32(DefaultMaxHashCommitments), out.MaxHashCommitments)
	require.Equal(t, 0, out.SafetyDepositAmount.Cmp(big.NewInt(1_000)))
	require.Equal(t, in.Durations, out.Durations)
	require.Equal(t, in.Admin, out.Admin)
}

func TestValidateRejects(t *testing.T) {
	base := Params{Admin: [20]byte{1}, SafetyDepositAsset: "FSN", Durations: Durations{PublicWithdrawal: 60}}
	base.Normalize()
	require.NoError(t, base.Validate())

	cases := map[string]func(p *Params){
		"no admin":       func(p *Params) { p.Admin = [20]byte{} },
		"no asset":       func(p *Params) { p.SafetyDepositAsset = "" },
		"negative":       func(p *Params) { p.SafetyDepositAmount = big.NewInt(-1) },
		"unknown digest": func(p *Params) { p.HashAlgorithm = "md5" },
		"no commitments": func(p *Params) { p.MaxHashCommitments = 0 },
		"no withdrawal":  func(p *Params) { p.Durations = Durations{Finality: 5, PrivateCancellation: 5} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := base.Clone()
			mutate(&p)
			require.Error(t, p.Validate())
		})
	}
}
