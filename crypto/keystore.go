package crypto

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

var (
	errNilKey    = errors.New("crypto: nil private key")
	errEmptyPath = errors.New("crypto: empty keystore path")
)

// SaveToKeystore writes key as an encrypted v3 keystore file. Governance
// identities (admin, guardians, price poster) are held this way. The file is
// replaced atomically.
func SaveToKeystore(path string, key *PrivateKey, passphrase string) error {
	if key == nil || key.PrivateKey == nil {
		return errNilKey
	}
	if path == "" {
		return errEmptyPath
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return fmt.Errorf("crypto: keystore id: %w", err)
	}
	sealed, err := keystore.EncryptKey(&keystore.Key{
		Id:         id,
		Address:    ethcrypto.PubkeyToAddress(key.PrivateKey.PublicKey),
		PrivateKey: key.PrivateKey,
	}, passphrase, keystore.StandardScryptN, keystore.StandardScryptP)
	if err != nil {
		return fmt.Errorf("crypto: encrypt key: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("crypto: create keystore dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".keystore-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(sealed); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadFromKeystore decrypts the v3 keystore at path.
func LoadFromKeystore(path, passphrase string) (*PrivateKey, error) {
	if path == "" {
		return nil, errEmptyPath
	}
	sealed, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decrypted, err := keystore.DecryptKey(sealed, passphrase)
	if err != nil {
		return nil, fmt.Errorf("crypto: decrypt keystore: %w", err)
	}
	return &PrivateKey{PrivateKey: decrypted.PrivateKey}, nil
}
