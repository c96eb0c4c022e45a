package crypto

import (
	"bytes"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
)

func TestAddressBech32RoundTrip(t *testing.T) {
	var raw [32]byte
	copy(raw[:], bytes.Repeat([]byte{0xAB}, 32))
	addr := NewAddress(MarketPrefix, raw)

	decoded, err := DecodeAddress(addr.String())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Bytes() != raw {
		t.Fatalf("round trip mismatch: %x vs %x", decoded.Bytes(), raw)
	}
	if decoded.Prefix() != MarketPrefix {
		t.Fatalf("prefix %q want %q", decoded.Prefix(), MarketPrefix)
	}
}

func TestDecodeAddressRejectsGarbage(t *testing.T) {
	if _, err := DecodeAddress("not-a-valid-address"); err == nil {
		t.Fatalf("expected decode failure")
	}
}

func TestSignAndRecover(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	digest := ethcrypto.Keccak256([]byte("settlement request"))
	sig, err := key.Sign(digest)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	recovered, err := RecoverAddress(digest, sig)
	if err != nil {
		t.Fatalf("recover: %v", err)
	}
	if recovered != key.PubKey().Address().Bytes() {
		t.Fatalf("recovered %x want %x", recovered, key.PubKey().Address().Bytes())
	}

	// A different digest recovers to some other address.
	other, err := RecoverAddress(ethcrypto.Keccak256([]byte("tampered")), sig)
	if err == nil && other == key.PubKey().Address().Bytes() {
		t.Fatalf("tampered digest recovered the original signer")
	}
}

func TestPrivateKeyBytesRoundTrip(t *testing.T) {
	key, err := GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	restored, err := PrivateKeyFromBytes(key.Bytes())
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	if restored.PubKey().Address() != key.PubKey().Address() {
		t.Fatalf("restored key derives a different address")
	}
}

func TestServiceIdentityDeterministic(t *testing.T) {
	a := ServiceIdentity("token/transfer")
	b := ServiceIdentity("token/transfer")
	c := ServiceIdentity("market/settlement")
	if a != b {
		t.Fatalf("identity not deterministic")
	}
	if a == c {
		t.Fatalf("distinct services share an identity")
	}
}
