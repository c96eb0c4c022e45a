package types

import "math/big"

// Account is the ledger-side view of a single 32-byte address: the native
// currency it holds, the service that owns its record space, and the raw
// record bytes themselves. Only the owning service may rewrite Data; the
// processor enforces this through derived-address checks rather than trusting
// the caller.
type Account struct {
	Balance *big.Int `json:"balance"`
	Owner   [32]byte `json:"owner"`
	Data    []byte   `json:"data"`
}

// Clone returns a deep copy so callers can mutate the result without touching
// the stored instance.
func (a *Account) Clone() *Account {
	if a == nil {
		return nil
	}
	clone := &Account{Owner: a.Owner, Balance: big.NewInt(0)}
	if a.Balance != nil {
		clone.Balance = new(big.Int).Set(a.Balance)
	}
	if a.Data != nil {
		clone.Data = append([]byte(nil), a.Data...)
	}
	return clone
}

// Ensure normalises a possibly-nil account into a usable zero-value account.
func Ensure(a *Account) *Account {
	if a == nil {
		return &Account{Balance: big.NewInt(0)}
	}
	if a.Balance == nil {
		a.Balance = big.NewInt(0)
	}
	return a
}
