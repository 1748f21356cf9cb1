package state

import (
	"bytes"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/ethereum/go-ethereum/rlp"

	"fusionswap/storage"
)

// Tx is a staged overlay over the committed store. Reads observe the
// overlay first; nothing reaches the database until Commit.
type Tx struct {
	db      storage.Database
	writes  map[string][]byte
	deletes map[string]struct{}
	closed  bool
}

func (tx *Tx) get(key []byte) ([]byte, error) {
	if tx.closed {
		return nil, errTxClosed
	}
	k := string(key)
	if _, gone := tx.deletes[k]; gone {
		return nil, nil
	}
	if value, ok := tx.writes[k]; ok {
		return value, nil
	}
	value, err := tx.db.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (tx *Tx) put(key, value []byte) error {
	if tx.closed {
		return errTxClosed
	}
	k := string(key)
	delete(tx.deletes, k)
	tx.writes[k] = append([]byte(nil), value...)
	return nil
}

func (tx *Tx) delete(key []byte) error {
	if tx.closed {
		return errTxClosed
	}
	k := string(key)
	delete(tx.writes, k)
	tx.deletes[k] = struct{}{}
	return nil
}

// Dirty reports how many keys the transaction would touch on commit.
func (tx *Tx) Dirty() int {
	return len(tx.writes) + len(tx.deletes)
}

// Commit writes the overlay as a single batch. Keys are applied in sorted
// order so identical transactions produce identical batches.
func (tx *Tx) Commit() error {
	if tx.closed {
		return errTxClosed
	}
	tx.closed = true
	if tx.Dirty() == 0 {
		return nil
	}
	batch := tx.db.NewBatch()
	keys := make([]string, 0, len(tx.writes))
	for k := range tx.writes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		batch.Put([]byte(k), tx.writes[k])
	}
	removed := make([]string, 0, len(tx.deletes))
	for k := range tx.deletes {
		removed = append(removed, k)
	}
	sort.Strings(removed)
	for _, k := range removed {
		batch.Delete([]byte(k))
	}
	if err := batch.Write(); err != nil {
		return fmt.Errorf("state: commit: %w", err)
	}
	return nil
}

// Discard drops every staged change. Safe to call after Commit.
func (tx *Tx) Discard() {
	tx.closed = true
	tx.writes = nil
	tx.deletes = nil
}

func (tx *Tx) kvPutRaw(hashed []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return tx.put(hashed, encoded)
}

func (tx *Tx) kvGetRaw(hashed []byte, out interface{}) (bool, error) {
	data, err := tx.get(hashed)
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVPut stores the provided value under the supplied key using RLP encoding.
// The key is hashed with keccak256 before it reaches the store.
func (tx *Tx) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return tx.kvPutRaw(kvKey(key), value)
}

// KVGet decodes the value stored under key into out. The boolean reports
// whether the key existed.
func (tx *Tx) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, fmt.Errorf("kv: key must not be empty")
	}
	return tx.kvGetRaw(kvKey(key), out)
}

// KVDelete removes key from state.
func (tx *Tx) KVDelete(key []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return tx.delete(kvKey(key))
}

// KVPutBytes stores raw bytes without RLP framing.
func (tx *Tx) KVPutBytes(key []byte, value []byte) error {
	if len(key) == 0 {
		return fmt.Errorf("kv: key must not be empty")
	}
	return tx.put(kvKey(key), value)
}

// KVGetBytes returns the raw bytes stored under key or nil.
func (tx *Tx) KVGetBytes(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, fmt.Errorf("kv: key must not be empty")
	}
	return tx.get(kvKey(key))
}

// KVAppend appends value to the RLP-encoded byte slice list stored under key.
// Duplicates are ignored to keep the index deterministic.
func (tx *Tx) KVAppend(key []byte, value []byte) error {
	list, err := tx.kvList(key)
	if err != nil {
		return err
	}
	for _, existing := range list {
		if bytes.Equal(existing, value) {
			return nil
		}
	}
	list = append(list, append([]byte(nil), value...))
	return tx.KVPut(key, list)
}

// KVRemove drops value from the list stored under key.
func (tx *Tx) KVRemove(key []byte, value []byte) error {
	list, err := tx.kvList(key)
	if err != nil {
		return err
	}
	kept := list[:0]
	for _, existing := range list {
		if !bytes.Equal(existing, value) {
			kept = append(kept, existing)
		}
	}
	if len(kept) == 0 {
		return tx.KVDelete(key)
	}
	return tx.KVPut(key, kept)
}

func (tx *Tx) kvList(key []byte) ([][]byte, error) {
	var list [][]byte
	if _, err := tx.KVGet(key, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// KVGetList decodes the list stored under key into out, which must be a
// pointer to a slice. Missing keys yield an empty slice.
func (tx *Tx) KVGetList(key []byte, out interface{}) error {
	val := reflect.ValueOf(out)
	if val.Kind() != reflect.Ptr || val.IsNil() || val.Elem().Kind() != reflect.Slice {
		return fmt.Errorf("kv: destination must be a non-nil slice pointer")
	}
	ok, err := tx.KVGet(key, out)
	if err != nil {
		return err
	}
	if !ok {
		val.Elem().Set(reflect.MakeSlice(val.Elem().Type(), 0, 0))
	}
	return nil
}
