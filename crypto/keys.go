package crypto

import (
	"crypto/ecdsa"
	"crypto/rand"
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix is the human-readable part used when rendering an address.
type AddressPrefix string

// MarketPrefix is the canonical prefix for marketplace accounts.
const MarketPrefix AddressPrefix = "mkt"

// AddressLen is the raw byte length of every marketplace address. Both signer
// addresses (hash of a secp256k1 public key) and capability-derived addresses
// share the same 32-byte space.
const AddressLen = 32

// Address wraps a raw 32-byte account identifier with a display prefix.
type Address struct {
	prefix AddressPrefix
	bytes  [32]byte
}

// NewAddress builds an address from raw bytes.
func NewAddress(prefix AddressPrefix, b [32]byte) Address {
	return Address{prefix: prefix, bytes: b}
}

// String renders the address as bech32 with the configured prefix.
func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.bytes[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

// Bytes returns the raw 32-byte identifier.
func (a Address) Bytes() [32]byte { return a.bytes }

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix { return a.prefix }

// DecodeAddress parses a bech32-rendered address back into its raw form.
func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	if len(conv) != AddressLen {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressLen, len(conv))
	}
	var raw [32]byte
	copy(raw[:], conv)
	return NewAddress(AddressPrefix(prefix), raw), nil
}

// --- Key management ---

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

// Sign produces a 65-byte [R || S || V] recoverable signature over a 32-byte
// digest.
func (k *PrivateKey) Sign(digest []byte) ([]byte, error) {
	return ethcrypto.Sign(digest, k.PrivateKey)
}

// Address derives the account address for this public key: the keccak256 hash
// of the uncompressed point. Unlike capability-derived addresses, a signature
// can be produced for it.
func (k *PublicKey) Address() Address {
	raw := ethcrypto.FromECDSAPub(k.PublicKey)
	sum := ethcrypto.Keccak256(raw[1:])
	var addr [32]byte
	copy(addr[:], sum)
	return NewAddress(MarketPrefix, addr)
}

func PrivateKeyFromBytes(b []byte) (*PrivateKey, error) {
	key, err := ethcrypto.ToECDSA(b)
	if err != nil {
		return nil, err
	}
	return &PrivateKey{key}, nil
}

// RecoverAddress recovers the signing account's address from a recoverable
// signature over the given digest.
func RecoverAddress(digest, sig []byte) ([32]byte, error) {
	pub, err := ethcrypto.SigToPub(digest, sig)
	if err != nil {
		return [32]byte{}, fmt.Errorf("recover signer: %w", err)
	}
	return (&PublicKey{pub}).Address().Bytes(), nil
}
