package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the human-readable part of a bech32 encoded address.
type AddressPrefix string

// DefaultPrefix is used when rendering participants, markets and governance
// identities.
const DefaultPrefix AddressPrefix = "rg"

// AddressLength is the byte length of every identity handled by the engine.
const AddressLength = 20

// Address identifies a participant, an asset market, or a governance role
// holder. It is comparable so it can key maps directly.
type Address [AddressLength]byte

// BytesToAddress copies a 20 byte slice into an Address.
func BytesToAddress(b []byte) (Address, error) {
	var addr Address
	if len(b) != AddressLength {
		return addr, fmt.Errorf("address must be %d bytes long, got %d", AddressLength, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

// Bytes returns a copy of the raw address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// Bech32 encodes the address under the supplied prefix.
func (a Address) Bech32(prefix AddressPrefix) string {
	conv, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) String() string {
	return a.Bech32(DefaultPrefix)
}

func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

func (a *Address) UnmarshalText(text []byte) error {
	decoded, _, err := DecodeAddress(string(text))
	if err != nil {
		return err
	}
	*a = decoded
	return nil
}

// DecodeAddress parses a bech32 address of any prefix and returns the prefix
// it was encoded with.
func DecodeAddress(addrStr string) (Address, AddressPrefix, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, "", fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, "", fmt.Errorf("error converting bits: %w", err)
	}
	addr, err := BytesToAddress(conv)
	if err != nil {
		return Address{}, "", err
	}
	return addr, AddressPrefix(prefix), nil
}

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(crypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return crypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

// Address derives the identity controlled by the key.
func (k *PublicKey) Address() Address {
	var addr Address
	copy(addr[:], crypto.PubkeyToAddress(*k.PublicKey).Bytes())
	return addr
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := crypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}
