package state

import (
	"errors"
	"fmt"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"fusionswap/storage"
)

// Manager owns the backing key-value store and hands out transactions. Every
// state transition reads and writes through a Tx so that it either lands in a
// single storage batch or leaves no trace.
type Manager struct {
	db storage.Database
}

// NewManager creates a state manager operating on the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// Begin opens a write overlay on top of the committed state.
func (m *Manager) Begin() *Tx {
	return &Tx{
		db:      m.db,
		writes:  make(map[string][]byte),
		deletes: make(map[string]struct{}),
	}
}

// View runs fn against a throwaway transaction. Any writes fn performs are
// discarded.
func (m *Manager) View(fn func(tx *Tx) error) error {
	tx := m.Begin()
	defer tx.Discard()
	return fn(tx)
}

// Update runs fn in a transaction and commits when fn succeeds.
func (m *Manager) Update(fn func(tx *Tx) error) error {
	tx := m.Begin()
	if err := fn(tx); err != nil {
		tx.Discard()
		return err
	}
	return tx.Commit()
}

var (
	balancePrefix = []byte("balance:")
	noncePrefix   = []byte("nonce:")

	errTxClosed = errors.New("state: transaction already closed")
)

func balanceKey(addr []byte, asset string) []byte {
	buf := make([]byte, len(balancePrefix)+len(asset)+1+len(addr))
	copy(buf, balancePrefix)
	copy(buf[len(balancePrefix):], asset)
	buf[len(balancePrefix)+len(asset)] = ':'
	copy(buf[len(balancePrefix)+len(asset)+1:], addr)
	return ethcrypto.Keccak256(buf)
}

func nonceKey(addr []byte) []byte {
	buf := make([]byte, len(noncePrefix)+len(addr))
	copy(buf, noncePrefix)
	copy(buf[len(noncePrefix):], addr)
	return ethcrypto.Keccak256(buf)
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// Balance returns the stored balance of asset for addr, zero when unset.
func (tx *Tx) Balance(addr []byte, asset string) (*big.Int, error) {
	if asset == "" {
		return nil, fmt.Errorf("balance: asset must not be empty")
	}
	data, err := tx.get(balanceKey(addr, asset))
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return big.NewInt(0), nil
	}
	return new(big.Int).SetBytes(data), nil
}

// SetBalance overwrites the balance of asset for addr.
func (tx *Tx) SetBalance(addr []byte, asset string, amount *big.Int) error {
	if asset == "" {
		return fmt.Errorf("balance: asset must not be empty")
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("balance: negative amount for %s", asset)
	}
	key := balanceKey(addr, asset)
	if amount.Sign() == 0 {
		return tx.delete(key)
	}
	return tx.put(key, amount.Bytes())
}

// NextNonce returns the current nonce for addr and advances it.
func (tx *Tx) NextNonce(addr []byte) (uint64, error) {
	key := nonceKey(addr)
	var nonce uint64
	if _, err := tx.kvGetRaw(key, &nonce); err != nil {
		return 0, err
	}
	if err := tx.kvPutRaw(key, nonce+1); err != nil {
		return 0, err
	}
	return nonce, nil
}
