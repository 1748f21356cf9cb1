package escrow

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"fusionswap/native/params"
)

func TestHashLockVerify(t *testing.T) {
	for _, algo := range []HashAlgorithm{HashSHA3256, HashKeccak256, HashBlake3} {
		digest := HashSecret(algo, []byte("secret"))
		lock, err := NewHashLock(digest, algo)
		require.NoError(t, err)
		require.True(t, lock.Verify([]byte("secret")), algo)
		require.False(t, lock.Verify([]byte("Secret")), algo)
		require.False(t, lock.Verify(nil), algo)
	}
}

func TestHashAlgorithmsDiffer(t *testing.T) {
	a := HashSecret(HashSHA3256, []byte("secret"))
	b := HashSecret(HashKeccak256, []byte("secret"))
	c := HashSecret(HashBlake3, []byte("secret"))
	require.NotEqual(t, a, b)
	require.NotEqual(t, a, c)
	require.NotEqual(t, b, c)

	lock, err := NewHashLock(a, HashKeccak256)
	require.NoError(t, err)
	require.False(t, lock.Verify([]byte("secret")))
}

func TestNewHashLockRejectsZeroDigest(t *testing.T) {
	_, err := NewHashLock([32]byte{}, HashSHA3256)
	require.True(t, errors.Is(err, ErrInvalidSecret))
}

func TestNewHashLockDefaultsToSHA3(t *testing.T) {
	lock, err := NewHashLock(HashSecret(HashSHA3256, []byte("x")), "")
	require.NoError(t, err)
	require.Equal(t, HashSHA3256, lock.Algorithm)
	require.True(t, lock.Verify([]byte("x")))
}

func TestParseHashAlgorithm(t *testing.T) {
	algo, err := ParseHashAlgorithm(" KECCAK256 ")
	require.NoError(t, err)
	require.Equal(t, HashKeccak256, algo)

	algo, err = ParseHashAlgorithm("")
	require.NoError(t, err)
	require.Equal(t, HashSHA3256, algo)

	_, err = ParseHashAlgorithm("md5")
	require.Error(t, err)
}

func TestEveryParamAlgorithmIsImplemented(t *testing.T) {
	for _, name := range params.SupportedHashAlgorithms {
		algo, err := ParseHashAlgorithm(name)
		require.NoError(t, err, name)
		require.Equal(t, name, string(algo))
	}
}

func TestParseDigest(t *testing.T) {
	digest := HashSecret(HashSHA3256, []byte("secret"))
	lock, err := NewHashLock(digest, HashSHA3256)
	require.NoError(t, err)

	parsed, err := ParseDigest(lock.String())
	require.NoError(t, err)
	require.Equal(t, digest, parsed)

	_, err = ParseDigest("0x1234")
	require.True(t, errors.Is(err, ErrInvalidSecret))
	_, err = ParseDigest("zz" + lock.String()[4:])
	require.True(t, errors.Is(err, ErrInvalidSecret))
}
