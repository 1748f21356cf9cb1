package genesis

import (
	"errors"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"fusionswap/core/state"
	"fusionswap/crypto"
	"fusionswap/native/bank"
	"fusionswap/native/params"
	"fusionswap/native/registry"
	"fusionswap/storage"
)

func addrOf(b byte) ([20]byte, string) {
	var raw [20]byte
	for i := range raw {
		raw[i] = b
	}
	return raw, crypto.FromRaw(raw).String()
}

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestApplyYAMLGenesis(t *testing.T) {
	adminRaw, admin := addrOf(0x0a)
	resolverRaw, resolver := addrOf(0x0b)
	userRaw, _ := addrOf(0x0c)

	path := writeFile(t, "genesis.yaml", fmt.Sprintf(`admin: %s
params:
  safetyDepositAsset: fsn
  safetyDepositAmount: "1_000"
  hashAlgorithm: keccak256
  durations:
    finality: 12
    exclusiveWithdrawal: 300
    publicWithdrawal: 600
    privateCancellation: 900
resolvers:
  - address: %s
    label: alpha
alloc:
  %s:
    FSN: "5000"
    usdc: "250"
  "0x%x":
    FSN: "7"
`, admin, resolver, resolver, userRaw))

	spec, err := Load(path)
	require.NoError(t, err)

	mgr := state.NewManager(storage.NewMemDB())
	require.NoError(t, Apply(mgr, spec, 1_700_000_000))

	err = mgr.View(func(tx *state.Tx) error {
		p, err := params.NewStore(tx).Get()
		require.NoError(t, err)
		require.Equal(t, adminRaw, p.Admin)
		require.Equal(t, "FSN", p.SafetyDepositAsset)
		require.Equal(t, int64(1000), p.SafetyDepositAmount.Int64())
		require.Equal(t, "keccak256", p.HashAlgorithm)
		require.Equal(t, uint64(600), p.Durations.PublicWithdrawal)
		require.Equal(t, uint32(params.DefaultMaxHashCommitments), p.MaxHashCommitments)

		active, err := registry.New(tx).IsActiveResolver(resolverRaw)
		require.NoError(t, err)
		require.True(t, active)

		ledger := bank.NewLedger(tx)
		bal, err := ledger.Balance(resolverRaw, "USDC")
		require.NoError(t, err)
		require.Equal(t, int64(250), bal.Int64())
		bal, err = ledger.Balance(userRaw, "FSN")
		require.NoError(t, err)
		require.Equal(t, int64(7), bal.Int64())
		return nil
	})
	require.NoError(t, err)

	err = Apply(mgr, spec, 1_700_000_000)
	require.True(t, errors.Is(err, ErrAlreadyApplied))
}

func TestLoadJSONRejectsUnknownFields(t *testing.T) {
	_, admin := addrOf(0x0a)
	path := writeFile(t, "genesis.json", fmt.Sprintf(`{"admin":%q,"validators":[]}`, admin))
	_, err := Load(path)
	require.ErrorContains(t, err, "validators")
}

func TestLoadYAMLRejectsUnknownFields(t *testing.T) {
	path := writeFile(t, "genesis.yml", "admin: x\nchainId: 4\n")
	_, err := Load(path)
	require.Error(t, err)
}

func TestApplyRejectsBadSpec(t *testing.T) {
	_, admin := addrOf(0x0a)
	cases := map[string]*Spec{
		"admin":     {Admin: "nope", Params: ParamsSpec{SafetyDepositAsset: "FSN"}},
		"deposit":   {Admin: admin, Params: ParamsSpec{SafetyDepositAsset: "FSN", SafetyDepositAmount: "-1"}},
		"algorithm": {Admin: admin, Params: ParamsSpec{SafetyDepositAsset: "FSN", HashAlgorithm: "md5"}},
		"alloc":     {Admin: admin, Params: ParamsSpec{SafetyDepositAsset: "FSN"}, Alloc: map[string]map[string]string{"0x12": {"FSN": "1"}}},
		"resolver":  {Admin: admin, Params: ParamsSpec{SafetyDepositAsset: "FSN"}, Resolvers: []ResolverSpec{{Address: "fsn1bad"}}},
	}
	for name, spec := range cases {
		mgr := state.NewManager(storage.NewMemDB())
		if err := Apply(mgr, spec, 0); err == nil {
			t.Fatalf("%s: expected error", name)
		}
		err := mgr.View(func(tx *state.Tx) error {
			_, err := params.NewStore(tx).Get()
			return err
		})
		require.True(t, errors.Is(err, params.ErrNotInitialised), name)
	}
}

func TestAllocationsAreSorted(t *testing.T) {
	_, a := addrOf(0x02)
	_, b := addrOf(0x01)
	spec := &Spec{Alloc: map[string]map[string]string{
		a: {"zzz": "1", "aaa": "2"},
		b: {"FSN": "3", "NIL": "0"},
	}}
	allocs, err := spec.Allocations()
	require.NoError(t, err)
	require.Len(t, allocs, 3)
	require.Equal(t, byte(0x01), allocs[0].Address[0])
	require.Equal(t, "AAA", allocs[1].Asset)
	require.Equal(t, "ZZZ", allocs[2].Asset)
	require.Zero(t, allocs[2].Amount.Cmp(big.NewInt(1)))
}
