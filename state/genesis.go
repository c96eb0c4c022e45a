package state

import (
	"fmt"
	"math/big"

	"marketplace/config"
	"marketplace/core/types"
	"marketplace/crypto"
	"marketplace/native/token"
)

// Bootstrap seeds a fresh ledger from the genesis section of the
// configuration: opening balances for the listed accounts and a registered
// mint for every tracked asset. Calling it against a ledger that already
// holds one of the genesis accounts fails rather than doubling balances.
func Bootstrap(cfg *config.Config, m *Manager, tok *token.Service) error {
	for _, entry := range cfg.Accounts {
		addr, err := crypto.DecodeAddress(entry.Address)
		if err != nil {
			return fmt.Errorf("genesis: account %q: %w", entry.Address, err)
		}
		raw := addr.Bytes()
		existing, err := m.GetAccount(raw)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("genesis: account %s already funded", entry.Address)
		}
		acc := &types.Account{Balance: new(big.Int).SetUint64(entry.Balance)}
		if err := m.PutAccount(raw, acc); err != nil {
			return err
		}
	}
	for _, asset := range cfg.Assets {
		addr, err := crypto.DecodeAddress(asset)
		if err != nil {
			return fmt.Errorf("genesis: asset %q: %w", asset, err)
		}
		if err := tok.RegisterMint(addr.Bytes()); err != nil {
			return fmt.Errorf("genesis: register mint %s: %w", asset, err)
		}
	}
	return m.Commit()
}
