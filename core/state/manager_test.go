package state

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"fusionswap/storage"
)

func newTestManager(t *testing.T) (*Manager, *storage.MemDB) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(db.Close)
	return NewManager(db), db
}

type record struct {
	Name  string
	Value uint64
}

func TestTxOverlayIsInvisibleUntilCommit(t *testing.T) {
	mgr, db := newTestManager(t)
	addr := []byte{0x01}

	tx := mgr.Begin()
	require.NoError(t, tx.SetBalance(addr, "FSN", big.NewInt(500)))
	require.NoError(t, tx.KVPut([]byte("rec"), record{Name: "a", Value: 7}))

	bal, err := tx.Balance(addr, "FSN")
	require.NoError(t, err)
	require.Equal(t, int64(500), bal.Int64())
	require.Equal(t, 0, db.Len())

	require.NoError(t, tx.Commit())
	require.Equal(t, 2, db.Len())

	err = mgr.View(func(view *Tx) error {
		var rec record
		ok, err := view.KVGet([]byte("rec"), &rec)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, record{Name: "a", Value: 7}, rec)
		bal, err := view.Balance(addr, "FSN")
		require.NoError(t, err)
		require.Equal(t, int64(500), bal.Int64())
		return nil
	})
	require.NoError(t, err)
}

func TestTxDiscardLeavesNoTrace(t *testing.T) {
	mgr, db := newTestManager(t)
	sentinel := errors.New("boom")
	err := mgr.Update(func(tx *Tx) error {
		require.NoError(t, tx.KVPut([]byte("x"), uint64(1)))
		return sentinel
	})
	require.ErrorIs(t, err, sentinel)
	require.Equal(t, 0, db.Len())
}

func TestTxDeleteShadowsCommittedValue(t *testing.T) {
	mgr, _ := newTestManager(t)
	require.NoError(t, mgr.Update(func(tx *Tx) error {
		return tx.KVPut([]byte("k"), uint64(9))
	}))

	tx := mgr.Begin()
	require.NoError(t, tx.KVDelete([]byte("k")))
	ok, err := tx.KVGet([]byte("k"), nil)
	require.NoError(t, err)
	require.False(t, ok)
	require.NoError(t, tx.Commit())

	require.NoError(t, mgr.View(func(view *Tx) error {
		ok, err := view.KVGet([]byte("k"), nil)
		require.NoError(t, err)
		require.False(t, ok)
		return nil
	}))
}

func TestTxClosedAfterCommit(t *testing.T) {
	mgr, _ := newTestManager(t)
	tx := mgr.Begin()
	require.NoError(t, tx.Commit())
	require.ErrorIs(t, tx.KVPut([]byte("k"), uint64(1)), errTxClosed)
	require.ErrorIs(t, tx.Commit(), errTxClosed)
}

func TestZeroBalanceDeletesKey(t *testing.T) {
	mgr, db := newTestManager(t)
	addr := []byte{0x02}
	require.NoError(t, mgr.Update(func(tx *Tx) error {
		return tx.SetBalance(addr, "FSN", big.NewInt(10))
	}))
	require.Equal(t, 1, db.Len())
	require.NoError(t, mgr.Update(func(tx *Tx) error {
		return tx.SetBalance(addr, "FSN", big.NewInt(0))
	}))
	require.Equal(t, 0, db.Len())
	require.Error(t, mgr.Update(func(tx *Tx) error {
		return tx.SetBalance(addr, "FSN", big.NewInt(-1))
	}))
}

func TestKVListAppendRemove(t *testing.T) {
	mgr, _ := newTestManager(t)
	key := []byte("list")
	require.NoError(t, mgr.Update(func(tx *Tx) error {
		require.NoError(t, tx.KVAppend(key, []byte("a")))
		require.NoError(t, tx.KVAppend(key, []byte("b")))
		return tx.KVAppend(key, []byte("a"))
	}))
	require.NoError(t, mgr.View(func(tx *Tx) error {
		var list [][]byte
		require.NoError(t, tx.KVGetList(key, &list))
		require.Equal(t, [][]byte{[]byte("a"), []byte("b")}, list)
		return nil
	}))
	require.NoError(t, mgr.Update(func(tx *Tx) error {
		require.NoError(t, tx.KVRemove(key, []byte("a")))
		return tx.KVRemove(key, []byte("b"))
	}))
	require.NoError(t, mgr.View(func(tx *Tx) error {
		var list [][]byte
		require.NoError(t, tx.KVGetList(key, &list))
		require.Empty(t, list)
		return nil
	}))
}

func TestNextNonceAdvances(t *testing.T) {
	mgr, _ := newTestManager(t)
	addr := []byte{0x03}
	for want := uint64(0); want < 3; want++ {
		var got uint64
		require.NoError(t, mgr.Update(func(tx *Tx) error {
			var err error
			got, err = tx.NextNonce(addr)
			return err
		}))
		require.Equal(t, want, got)
	}
}
