// Package token is the fungible-asset custody service the marketplace
// processor invokes for asset moves. It mirrors the host's canonical token
// service: custody accounts are fixed-width records on the ledger, and every
// mutation is authorized by the account's owner address.
package token

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"

	"marketplace/core/types"
	"marketplace/crypto"
)

// ServiceID is the canonical identity of the deployed token service.
var ServiceID = crypto.ServiceIdentity("token/transfer")

// Record sizes in bytes.
const (
	AccountLen = 73 // initialized(1) owner(32) asset(32) amount(8)
	MintLen    = 9  // initialized(1) supply(8)
)

var (
	ErrAccountNotFound    = errors.New("token: account not found")
	ErrNotInitialized     = errors.New("token: account not initialized")
	ErrAlreadyInitialized = errors.New("token: account already initialized")
	ErrUnknownMint        = errors.New("token: unknown mint")
	ErrAssetMismatch      = errors.New("token: asset mismatch")
	ErrUnauthorized       = errors.New("token: unauthorized authority")
	ErrInsufficientUnits  = errors.New("token: insufficient units")
	ErrNonEmptyAccount    = errors.New("token: cannot close account holding units")
	ErrBadRecord          = errors.New("token: malformed record")
)

// Account is a custody record binding an owner to a balance of one asset.
type Account struct {
	Initialized bool
	Owner       [32]byte
	Asset       [32]byte
	Amount      uint64
}

// Pack serialises the custody record into its fixed 73-byte layout.
func (a *Account) Pack() []byte {
	buf := make([]byte, AccountLen)
	if a.Initialized {
		buf[0] = 1
	}
	copy(buf[1:33], a.Owner[:])
	copy(buf[33:65], a.Asset[:])
	binary.BigEndian.PutUint64(buf[65:73], a.Amount)
	return buf
}

// UnpackAccount decodes the fixed 73-byte custody record.
func UnpackAccount(src []byte) (*Account, error) {
	if len(src) != AccountLen {
		return nil, ErrBadRecord
	}
	a := &Account{Amount: binary.BigEndian.Uint64(src[65:73])}
	switch src[0] {
	case 0:
	case 1:
		a.Initialized = true
	default:
		return nil, ErrBadRecord
	}
	copy(a.Owner[:], src[1:33])
	copy(a.Asset[:], src[33:65])
	return a, nil
}

// Mint is the registration record for one tracked asset.
type Mint struct {
	Initialized bool
	Supply      uint64
}

// Pack serialises the mint record into its fixed 9-byte layout.
func (m *Mint) Pack() []byte {
	buf := make([]byte, MintLen)
	if m.Initialized {
		buf[0] = 1
	}
	binary.BigEndian.PutUint64(buf[1:9], m.Supply)
	return buf
}

// UnpackMint decodes the fixed 9-byte mint record.
func UnpackMint(src []byte) (*Mint, error) {
	if len(src) != MintLen {
		return nil, ErrBadRecord
	}
	m := &Mint{Supply: binary.BigEndian.Uint64(src[1:9])}
	switch src[0] {
	case 0:
	case 1:
		m.Initialized = true
	default:
		return nil, ErrBadRecord
	}
	return m, nil
}

// Ledger is the account store the service persists its records on.
type Ledger interface {
	GetAccount(addr [32]byte) (*types.Account, error)
	PutAccount(addr [32]byte, acc *types.Account) error
	DeleteAccount(addr [32]byte) error
}

// Service implements custody operations over a ledger.
type Service struct {
	id     [32]byte
	ledger Ledger
}

// NewService binds the token service to a ledger under its canonical
// identity.
func NewService(ledger Ledger) *Service {
	return &Service{id: ServiceID, ledger: ledger}
}

// ID returns the service's canonical identity address.
func (s *Service) ID() [32]byte { return s.id }

// AccountSize returns the record size of a custody account, used by callers
// that fund custody-account creation.
func (s *Service) AccountSize() int { return AccountLen }

// RegisterMint records a new tracked asset. Genesis-time helper; registering
// an already-known asset fails.
func (s *Service) RegisterMint(asset [32]byte) error {
	acc, err := s.ledger.GetAccount(asset)
	if err != nil {
		return err
	}
	if acc != nil && len(acc.Data) > 0 {
		return ErrAlreadyInitialized
	}
	record := &Mint{Initialized: true}
	return s.ledger.PutAccount(asset, &types.Account{
		Balance: big.NewInt(0),
		Owner:   s.id,
		Data:    record.Pack(),
	})
}

// MintExists reports whether the asset is registered with this service.
func (s *Service) MintExists(asset [32]byte) (bool, error) {
	acc, err := s.ledger.GetAccount(asset)
	if err != nil {
		return false, err
	}
	if acc == nil || acc.Owner != s.id || len(acc.Data) != MintLen {
		return false, nil
	}
	mint, err := UnpackMint(acc.Data)
	if err != nil {
		return false, nil
	}
	return mint.Initialized, nil
}

// InitializeAccount writes the custody record into a freshly created account.
// The account must already exist with zeroed record space owned by the
// service; owner becomes the only address able to move units out.
func (s *Service) InitializeAccount(addr, asset, owner [32]byte) error {
	acc, err := s.ledger.GetAccount(addr)
	if err != nil {
		return err
	}
	if acc == nil || len(acc.Data) != AccountLen {
		return ErrAccountNotFound
	}
	if acc.Owner != s.id {
		return ErrUnauthorized
	}
	existing, err := UnpackAccount(acc.Data)
	if err != nil {
		return err
	}
	if existing.Initialized {
		return ErrAlreadyInitialized
	}
	ok, err := s.MintExists(asset)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownMint
	}
	record := &Account{Initialized: true, Owner: owner, Asset: asset}
	acc.Data = record.Pack()
	return s.ledger.PutAccount(addr, acc)
}

// AccountInfo returns the owner, asset and unit balance of a custody account.
func (s *Service) AccountInfo(addr [32]byte) (owner, asset [32]byte, amount uint64, err error) {
	record, err := s.loadAccount(addr)
	if err != nil {
		return [32]byte{}, [32]byte{}, 0, err
	}
	return record.Owner, record.Asset, record.Amount, nil
}

// Transfer moves units between two custody accounts of the same asset. The
// authority must be the source account's owner; the caller is responsible for
// having verified the authority's consent (a signature, or reproduced
// derivation seeds).
func (s *Service) Transfer(from, to [32]byte, amount uint64, authority [32]byte) error {
	fromRecord, err := s.loadAccount(from)
	if err != nil {
		return err
	}
	toRecord, err := s.loadAccount(to)
	if err != nil {
		return err
	}
	if fromRecord.Owner != authority {
		return ErrUnauthorized
	}
	if fromRecord.Asset != toRecord.Asset {
		return ErrAssetMismatch
	}
	if fromRecord.Amount < amount {
		return ErrInsufficientUnits
	}
	fromRecord.Amount -= amount
	toRecord.Amount += amount
	if err := s.storeAccount(from, fromRecord); err != nil {
		return err
	}
	return s.storeAccount(to, toRecord)
}

// Mint issues new units of a registered asset into a custody account.
// Genesis-time helper.
func (s *Service) Mint(asset, dest [32]byte, amount uint64) error {
	mintAcc, err := s.ledger.GetAccount(asset)
	if err != nil {
		return err
	}
	if mintAcc == nil || mintAcc.Owner != s.id {
		return ErrUnknownMint
	}
	mint, err := UnpackMint(mintAcc.Data)
	if err != nil {
		return err
	}
	if !mint.Initialized {
		return ErrUnknownMint
	}
	record, err := s.loadAccount(dest)
	if err != nil {
		return err
	}
	if record.Asset != asset {
		return ErrAssetMismatch
	}
	mint.Supply += amount
	record.Amount += amount
	mintAcc.Data = mint.Pack()
	if err := s.ledger.PutAccount(asset, mintAcc); err != nil {
		return err
	}
	return s.storeAccount(dest, record)
}

// CloseAccount reclaims an empty custody account, moving its native reserve
// balance to dest. The authority must be the account's owner.
func (s *Service) CloseAccount(addr, dest, authority [32]byte) error {
	record, err := s.loadAccount(addr)
	if err != nil {
		return err
	}
	if record.Owner != authority {
		return ErrUnauthorized
	}
	if record.Amount != 0 {
		return ErrNonEmptyAccount
	}
	acc, err := s.ledger.GetAccount(addr)
	if err != nil {
		return err
	}
	destAcc, err := s.ledger.GetAccount(dest)
	if err != nil {
		return err
	}
	destAcc = types.Ensure(destAcc)
	if acc.Balance != nil {
		destAcc.Balance = new(big.Int).Add(destAcc.Balance, acc.Balance)
	}
	if err := s.ledger.PutAccount(dest, destAcc); err != nil {
		return err
	}
	return s.ledger.DeleteAccount(addr)
}

// CreateCustody provisions and initializes a custody account in one step.
// Convenience for genesis and client tooling; protocol-created vaults go
// through the host's account-creation primitive instead.
func (s *Service) CreateCustody(addr, asset, owner [32]byte) error {
	acc, err := s.ledger.GetAccount(addr)
	if err != nil {
		return err
	}
	if acc != nil && len(acc.Data) > 0 {
		return ErrAlreadyInitialized
	}
	blank := &types.Account{
		Balance: big.NewInt(0),
		Owner:   s.id,
		Data:    make([]byte, AccountLen),
	}
	if err := s.ledger.PutAccount(addr, blank); err != nil {
		return err
	}
	return s.InitializeAccount(addr, asset, owner)
}

func (s *Service) loadAccount(addr [32]byte) (*Account, error) {
	acc, err := s.ledger.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil || len(acc.Data) != AccountLen {
		return nil, ErrAccountNotFound
	}
	if acc.Owner != s.id {
		return nil, fmt.Errorf("%w: record not owned by token service", ErrBadRecord)
	}
	record, err := UnpackAccount(acc.Data)
	if err != nil {
		return nil, err
	}
	if !record.Initialized {
		return nil, ErrNotInitialized
	}
	return record, nil
}

func (s *Service) storeAccount(addr [32]byte, record *Account) error {
	acc, err := s.ledger.GetAccount(addr)
	if err != nil {
		return err
	}
	if acc == nil {
		return ErrAccountNotFound
	}
	acc.Data = record.Pack()
	return s.ledger.PutAccount(addr, acc)
}
