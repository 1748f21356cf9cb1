package escrow

import (
	"encoding/binary"
	"fmt"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

var (
	orderPrefix   = []byte("escrow/order/")
	auctionPrefix = []byte("escrow/auction/")
	escrowPrefix  = []byte("escrow/escrow/")
	custodyPrefix = []byte("escrow/custody/")
)

// engineState is the key-value surface records are kept in.
type engineState interface {
	KVPut(key []byte, value interface{}) error
	KVGet(key []byte, out interface{}) (bool, error)
	KVDelete(key []byte) error
	NextNonce(addr []byte) (uint64, error)
}

func recordKey(prefix []byte, id [32]byte) []byte {
	buf := make([]byte, len(prefix)+len(id))
	copy(buf, prefix)
	copy(buf[len(prefix):], id[:])
	return buf
}

// custodyAddress derives the ledger account holding an object's funds. No
// private key exists for it; only engine code moves its balance.
func custodyAddress(kind string, id [32]byte) [20]byte {
	var out [20]byte
	digest := ethcrypto.Keccak256(custodyPrefix, []byte(kind), id[:])
	copy(out[:], digest[12:])
	return out
}

func deriveID(domain string, parts ...[]byte) [32]byte {
	all := make([][]byte, 0, len(parts)+1)
	all = append(all, []byte(domain))
	all = append(all, parts...)
	return ethcrypto.Keccak256Hash(all...)
}

func uint64Bytes(v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return buf[:]
}

func loadOrder(st engineState, id [32]byte) (*Order, error) {
	var o Order
	ok, err := st.KVGet(recordKey(orderPrefix, id), &o)
	if err != nil {
		return nil, fmt.Errorf("escrow: load order: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("escrow: order %x: %w", id, ErrObjectNotFound)
	}
	return &o, nil
}

func storeOrder(st engineState, o *Order) error {
	return st.KVPut(recordKey(orderPrefix, o.ID), o)
}

func deleteOrder(st engineState, id [32]byte) error {
	return st.KVDelete(recordKey(orderPrefix, id))
}

func loadAuction(st engineState, id [32]byte) (*Auction, error) {
	var a Auction
	ok, err := st.KVGet(recordKey(auctionPrefix, id), &a)
	if err != nil {
		return nil, fmt.Errorf("escrow: load auction: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("escrow: auction %x: %w", id, ErrObjectNotFound)
	}
	return &a, nil
}

func storeAuction(st engineState, a *Auction) error {
	return st.KVPut(recordKey(auctionPrefix, a.ID), a)
}

func deleteAuction(st engineState, id [32]byte) error {
	return st.KVDelete(recordKey(auctionPrefix, id))
}

func loadEscrow(st engineState, id [32]byte) (*Escrow, error) {
	var e Escrow
	ok, err := st.KVGet(recordKey(escrowPrefix, id), &e)
	if err != nil {
		return nil, fmt.Errorf("escrow: load escrow: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("escrow: escrow %x: %w", id, ErrObjectNotFound)
	}
	return &e, nil
}

func storeEscrow(st engineState, e *Escrow) error {
	return st.KVPut(recordKey(escrowPrefix, e.ID), e)
}

func deleteEscrow(st engineState, id [32]byte) error {
	return st.KVDelete(recordKey(escrowPrefix, id))
}

func exists(st engineState, prefix []byte, id [32]byte) (bool, error) {
	return st.KVGet(recordKey(prefix, id), nil)
}
