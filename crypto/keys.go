package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressHRP is the bech32 human-readable prefix for custody addresses.
const AddressHRP = "cst"

// AddressLength is the raw byte length of an address.
const AddressLength = 20

// Address represents a 20-byte account identity derived from a secp256k1 key.
type Address [AddressLength]byte

// AddressFromBytes converts a raw byte slice into an Address.
func AddressFromBytes(b []byte) (Address, error) {
	var addr Address
	if len(b) != AddressLength {
		return addr, fmt.Errorf("address must be %d bytes, got %d", AddressLength, len(b))
	}
	copy(addr[:], b)
	return addr, nil
}

// Bytes returns the raw address bytes.
func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a[:])
	return out
}

// IsZero reports whether the address is all zero bytes.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String renders the address in bech32 with the custody prefix.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(AddressHRP, conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// DecodeAddress parses a bech32 address string with the custody prefix.
func DecodeAddress(addrStr string) (Address, error) {
	hrp, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	if hrp != AddressHRP {
		return Address{}, fmt.Errorf("unexpected address prefix %q", hrp)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	return AddressFromBytes(conv)
}

// --- Key Management ---

type PrivateKey struct {
	*ecdsa.PrivateKey
}

type PublicKey struct {
	*ecdsa.PublicKey
}

func GeneratePrivateKey() (*PrivateKey, error) {
	key, err := ecdsa.GenerateKey(ethcrypto.S256(), rand.Reader)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// Bytes returns the byte representation of the private key.
func (k *PrivateKey) Bytes() []byte {
	return ethcrypto.FromECDSA(k.PrivateKey)
}

func (k *PrivateKey) PubKey() *PublicKey {
	return &PublicKey{&k.PrivateKey.PublicKey}
}

func (k *PublicKey) Address() Address {
	addrBytes := ethcrypto.PubkeyToAddress(*k.PublicKey).Bytes()
	addr, err := AddressFromBytes(addrBytes)
	if err != nil {
		panic(err)
	}
	return addr
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := ethcrypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// --- Signatures ---

// Sign produces a recoverable secp256k1 signature over the keccak256 digest of
// the supplied payload.
func (k *PrivateKey) Sign(payload []byte) ([]byte, error) {
	digest := ethcrypto.Keccak256(payload)
	return ethcrypto.Sign(digest, k.PrivateKey)
}

// RecoverAddress recovers the signer address from a recoverable signature over
// the keccak256 digest of payload.
func RecoverAddress(payload, sig []byte) (Address, error) {
	digest := ethcrypto.Keccak256(payload)
	pub, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return Address{}, fmt.Errorf("signature recovery failed: %w", err)
	}
	return AddressFromBytes(ethcrypto.PubkeyToAddress(*pub).Bytes())
}

// VerifySignature reports whether sig was produced by the key controlling addr
// over the supplied payload.
func VerifySignature(addr Address, payload, sig []byte) bool {
	recovered, err := RecoverAddress(payload, sig)
	if err != nil {
		return false
	}
	return bytes.Equal(recovered[:], addr[:])
}
