package crypto

import ethcrypto "github.com/ethereum/go-ethereum/crypto"

// ServiceIdentity computes the canonical, key-less identity address for a
// named platform service (token transfer, account creation, rent table).
// Identities are fixed per deployment so guards can compare supplied
// references against them byte for byte.
func ServiceIdentity(name string) [32]byte {
	sum := ethcrypto.Keccak256([]byte("MarketService"), []byte(name))
	var id [32]byte
	copy(id[:], sum)
	return id
}
