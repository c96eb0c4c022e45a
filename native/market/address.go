package market

import (
	"errors"
	"math/big"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

// Seed tags used by the protocol's derivation tuples.
var (
	seedPlatform = []byte("Platform")
	seedList     = []byte("List")
	seedBid      = []byte("Bid")
	seedState    = []byte("State")
	seedVault    = []byte("Vault")

	// derivationTag namespaces every capability address so a derived address
	// can never collide with the hash of data from another domain.
	derivationTag = []byte("MarketDerived")
)

var (
	// ErrDerivedHasKey is returned by DeriveAddressWithBump when the candidate
	// falls inside the signing-key address space and therefore cannot be used
	// as a capability address.
	ErrDerivedHasKey = errors.New("market: derived candidate has a signing key")
	// ErrNoViableBump is returned when no bump in the 0-255 space yields a
	// key-less address. Probability of hitting this is negligible; it exists
	// so the search has a typed failure instead of a panic.
	ErrNoViableBump = errors.New("market: no viable bump for seed tuple")
)

// DeriveAddress finds the capability address for an ordered seed tuple by
// searching bumps from 255 downward until the candidate hash falls outside
// the space of addresses with a corresponding signing key. The bump must be
// retained by callers that later need to authorize actions for the address;
// presenting the same seeds plus bump is the capability.
func DeriveAddress(seeds ...[]byte) ([32]byte, byte, error) {
	for bump := 255; bump >= 0; bump-- {
		addr, err := DeriveAddressWithBump(seeds, byte(bump))
		if err == nil {
			return addr, byte(bump), nil
		}
		if !errors.Is(err, ErrDerivedHasKey) {
			return [32]byte{}, 0, err
		}
	}
	return [32]byte{}, 0, ErrNoViableBump
}

// DeriveAddressWithBump computes keccak256(seeds..., bump, tag) and verifies
// the result is key-less. Identical seeds and bump always yield the same
// address, which is what lets the processor authorize vault operations by
// reproducing the tuple.
func DeriveAddressWithBump(seeds [][]byte, bump byte) ([32]byte, error) {
	parts := make([][]byte, 0, len(seeds)+2)
	parts = append(parts, seeds...)
	parts = append(parts, []byte{bump}, derivationTag)
	sum := ethcrypto.Keccak256(parts...)
	var addr [32]byte
	copy(addr[:], sum)
	if hasSigningKey(addr) {
		return [32]byte{}, ErrDerivedHasKey
	}
	return addr, nil
}

// hasSigningKey reports whether the candidate is a valid secp256k1 X
// coordinate, i.e. whether a keypair could exist whose point projects onto
// these bytes. Roughly half of all candidates are rejected, which the bump
// search absorbs.
func hasSigningKey(addr [32]byte) bool {
	params := ethcrypto.S256().Params()
	x := new(big.Int).SetBytes(addr[:])
	if x.Cmp(params.P) >= 0 {
		return false
	}
	// x is on the curve iff x^3 + b is a quadratic residue mod p.
	y2 := new(big.Int).Exp(x, big.NewInt(3), params.P)
	y2.Add(y2, params.B)
	y2.Mod(y2, params.P)
	return new(big.Int).ModSqrt(y2, params.P) != nil
}

// PlatformAddress derives the singleton platform config address from
// ("Platform", "State").
func PlatformAddress() ([32]byte, byte, error) {
	return DeriveAddress(seedPlatform, seedState)
}

// ListingStateAddress derives the listing escrow record address for an
// (asset, seller) pair.
func ListingStateAddress(asset, seller [32]byte) ([32]byte, byte, error) {
	return DeriveAddress(asset[:], seller[:], seedList, seedState)
}

// ListingVaultAddress derives the listing custody vault address for an
// (asset, seller) pair.
func ListingVaultAddress(asset, seller [32]byte) ([32]byte, byte, error) {
	return DeriveAddress(asset[:], seller[:], seedList, seedVault)
}

// BidStateAddress derives the bid escrow record address for an
// (asset, bidder) pair.
func BidStateAddress(asset, bidder [32]byte) ([32]byte, byte, error) {
	return DeriveAddress(asset[:], bidder[:], seedBid, seedState)
}

// BidVaultAddress derives the bid custody vault address for an
// (asset, bidder) pair.
func BidVaultAddress(asset, bidder [32]byte) ([32]byte, byte, error) {
	return DeriveAddress(asset[:], bidder[:], seedBid, seedVault)
}
