package escrow

import (
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"strings"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"golang.org/x/crypto/sha3"
	"lukechampine.com/blake3"
)

// HashAlgorithm names the digest used to commit to a secret. Both sides of a
// swap must agree on it; nothing here can enforce that.
type HashAlgorithm string

const (
	HashSHA3256   HashAlgorithm = "sha3-256"
	HashKeccak256 HashAlgorithm = "keccak256"
	HashBlake3    HashAlgorithm = "blake3"
)

// ParseHashAlgorithm accepts the canonical names case-insensitively. An empty
// string selects sha3-256.
func ParseHashAlgorithm(name string) (HashAlgorithm, error) {
	switch HashAlgorithm(strings.ToLower(strings.TrimSpace(name))) {
	case "", HashSHA3256:
		return HashSHA3256, nil
	case HashKeccak256:
		return HashKeccak256, nil
	case HashBlake3:
		return HashBlake3, nil
	default:
		return "", fmt.Errorf("escrow: unknown hash algorithm %q", name)
	}
}

// Sum digests data with the algorithm. Unknown algorithms fall back to
// sha3-256.
func (a HashAlgorithm) Sum(data []byte) [32]byte {
	switch a {
	case HashKeccak256:
		return ethcrypto.Keccak256Hash(data)
	case HashBlake3:
		return blake3.Sum256(data)
	default:
		return sha3.Sum256(data)
	}
}

// HashLock commits to a secret by its digest.
type HashLock struct {
	Digest    [32]byte
	Algorithm HashAlgorithm
}

// NewHashLock wraps digest. The all-zero digest is rejected because no
// secret can be shown to produce it.
func NewHashLock(digest [32]byte, algo HashAlgorithm) (HashLock, error) {
	if digest == ([32]byte{}) {
		return HashLock{}, fmt.Errorf("escrow: empty hash commitment: %w", ErrInvalidSecret)
	}
	if algo == "" {
		algo = HashSHA3256
	}
	return HashLock{Digest: digest, Algorithm: algo}, nil
}

// HashSecret returns the commitment for secret under algo.
func HashSecret(algo HashAlgorithm, secret []byte) [32]byte {
	return algo.Sum(secret)
}

// Verify reports whether secret hashes to the committed digest.
func (h HashLock) Verify(secret []byte) bool {
	sum := h.Algorithm.Sum(secret)
	return subtle.ConstantTimeCompare(sum[:], h.Digest[:]) == 1
}

func (h HashLock) String() string {
	return "0x" + hex.EncodeToString(h.Digest[:])
}

// ParseDigest decodes a 0x-prefixed or bare 64 character hex digest.
func ParseDigest(value string) ([32]byte, error) {
	var out [32]byte
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(value), "0x"), "0X")
	if len(trimmed) != 64 {
		return out, fmt.Errorf("escrow: digest must be 32 bytes: %w", ErrInvalidSecret)
	}
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return out, fmt.Errorf("escrow: decode digest: %v: %w", err, ErrInvalidSecret)
	}
	copy(out[:], raw)
	return out, nil
}
