package crypto

import (
	"errors"
	"os"

	"github.com/ethereum/go-ethereum/accounts/keystore"
)

// SaveKeystore encrypts key into a v3 keystore file inside dir and returns
// the file path. The directory is created with 0700 permissions.
func SaveKeystore(dir string, key *PrivateKey, passphrase string) (string, error) {
	if key == nil {
		return "", errors.New("crypto: nil private key")
	}
	if dir == "" {
		return "", errors.New("crypto: empty keystore directory")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", err
	}
	ks := keystore.NewKeyStore(dir, keystore.LightScryptN, keystore.LightScryptP)
	account, err := ks.ImportECDSA(key.PrivateKey, passphrase)
	if err != nil {
		return "", err
	}
	return account.URL.Path, nil
}

// LoadKeystore decrypts a v3 keystore file.
func LoadKeystore(path, passphrase string) (*PrivateKey, error) {
	if path == "" {
		return nil, errors.New("crypto: empty keystore path")
	}
	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decrypted, err := keystore.DecryptKey(keyJSON, passphrase)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{PrivateKey: decrypted.PrivateKey}, nil
}
