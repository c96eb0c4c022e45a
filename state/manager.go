// Package state hosts the ledger substrate the settlement processor runs on:
// an account store with staged writes so one instruction either commits every
// mutation or none of them.
package state

import (
	"encoding/json"
	"errors"
	"fmt"

	"marketplace/core/types"
	"marketplace/storage"
)

var accountPrefix = []byte("acct/")

// Manager implements the processor's ledger over a key-value database. Writes
// land in a dirty overlay until Commit flushes them; Discard throws the
// overlay away, which is how a failed instruction leaves no partial effects.
// The host serializes requests touching the same addresses, so the manager
// carries no locking of its own.
type Manager struct {
	db    storage.Database
	dirty map[[32]byte]*types.Account // nil value marks a staged deletion
}

// NewManager wraps a database in a fresh manager with an empty overlay.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db, dirty: make(map[[32]byte]*types.Account)}
}

func accountKey(addr [32]byte) []byte {
	return append(append([]byte(nil), accountPrefix...), addr[:]...)
}

// GetAccount returns the staged or committed account at addr, or (nil, nil)
// if the address has never been funded.
func (m *Manager) GetAccount(addr [32]byte) (*types.Account, error) {
	if acc, ok := m.dirty[addr]; ok {
		return acc.Clone(), nil
	}
	raw, err := m.db.Get(accountKey(addr))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	acc := new(types.Account)
	if err := json.Unmarshal(raw, acc); err != nil {
		return nil, fmt.Errorf("state: decode account: %w", err)
	}
	return types.Ensure(acc), nil
}

// PutAccount stages an account write.
func (m *Manager) PutAccount(addr [32]byte, acc *types.Account) error {
	if acc == nil {
		return fmt.Errorf("state: nil account for put")
	}
	m.dirty[addr] = acc.Clone()
	return nil
}

// DeleteAccount stages removal of an account and its record space.
func (m *Manager) DeleteAccount(addr [32]byte) error {
	m.dirty[addr] = nil
	return nil
}

// Commit flushes every staged write to the database and clears the overlay.
func (m *Manager) Commit() error {
	for addr, acc := range m.dirty {
		key := accountKey(addr)
		if acc == nil {
			if err := m.db.Delete(key); err != nil {
				return err
			}
			continue
		}
		raw, err := json.Marshal(acc)
		if err != nil {
			return fmt.Errorf("state: encode account: %w", err)
		}
		if err := m.db.Put(key, raw); err != nil {
			return err
		}
	}
	m.dirty = make(map[[32]byte]*types.Account)
	return nil
}

// Discard drops every staged write.
func (m *Manager) Discard() {
	m.dirty = make(map[[32]byte]*types.Account)
}

// Pending reports how many account writes are currently staged.
func (m *Manager) Pending() int { return len(m.dirty) }
