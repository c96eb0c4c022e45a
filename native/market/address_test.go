package market

import (
	"errors"
	"testing"
)

func TestDeriveAddressDeterministic(t *testing.T) {
	asset := newTestAddress(0x01)
	seller := newTestAddress(0x02)

	first, bump1, err := ListingStateAddress(asset, seller)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	second, bump2, err := ListingStateAddress(asset, seller)
	if err != nil {
		t.Fatalf("derive again: %v", err)
	}
	if first != second || bump1 != bump2 {
		t.Fatalf("derivation is not deterministic: %x/%d vs %x/%d", first, bump1, second, bump2)
	}

	replay, err := DeriveAddressWithBump([][]byte{asset[:], seller[:], seedList, seedState}, bump1)
	if err != nil {
		t.Fatalf("replay with recorded bump: %v", err)
	}
	if replay != first {
		t.Fatalf("bump replay diverged: %x vs %x", replay, first)
	}
}

func TestDeriveAddressDistinctTuples(t *testing.T) {
	asset := newTestAddress(0x01)
	seller := newTestAddress(0x02)
	bidder := newTestAddress(0x03)

	seen := make(map[[32]byte]string)
	derive := func(name string, fn func() ([32]byte, byte, error)) {
		addr, _, err := fn()
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if prior, ok := seen[addr]; ok {
			t.Fatalf("%s collides with %s", name, prior)
		}
		seen[addr] = name
	}

	derive("platform", PlatformAddress)
	derive("listing state", func() ([32]byte, byte, error) { return ListingStateAddress(asset, seller) })
	derive("listing vault", func() ([32]byte, byte, error) { return ListingVaultAddress(asset, seller) })
	derive("bid state", func() ([32]byte, byte, error) { return BidStateAddress(asset, bidder) })
	derive("bid vault", func() ([32]byte, byte, error) { return BidVaultAddress(asset, bidder) })
	derive("other seller listing", func() ([32]byte, byte, error) { return ListingStateAddress(asset, bidder) })
	derive("other asset listing", func() ([32]byte, byte, error) { return ListingStateAddress(seller, bidder) })
}

func TestDerivedAddressesAreKeyless(t *testing.T) {
	for fill := byte(0); fill < 16; fill++ {
		asset := newTestAddress(fill)
		seller := newTestAddress(fill + 0x80)
		addr, _, err := ListingStateAddress(asset, seller)
		if err != nil {
			t.Fatalf("fill %d: %v", fill, err)
		}
		if hasSigningKey(addr) {
			t.Fatalf("fill %d: derived address %x has a signing key", fill, addr)
		}
	}
}

func TestDeriveAddressWithBumpRejectsOnCurve(t *testing.T) {
	asset := newTestAddress(0x09)
	seller := newTestAddress(0x0A)
	seeds := [][]byte{asset[:], seller[:], seedList, seedState}

	_, chosen, err := DeriveAddress(seeds...)
	if err != nil {
		t.Fatalf("derive: %v", err)
	}
	// Every bump above the chosen one was rejected during the search.
	for bump := 255; bump > int(chosen); bump-- {
		if _, err := DeriveAddressWithBump(seeds, byte(bump)); !errors.Is(err, ErrDerivedHasKey) {
			t.Fatalf("bump %d: got %v want %v", bump, err, ErrDerivedHasKey)
		}
	}
}
