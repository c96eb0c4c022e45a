package token

import (
	"bytes"
	"errors"
	"math/big"
	"testing"

	"marketplace/core/types"
)

type mapLedger struct {
	accounts map[[32]byte]*types.Account
}

func newMapLedger() *mapLedger {
	return &mapLedger{accounts: make(map[[32]byte]*types.Account)}
}

func (m *mapLedger) GetAccount(addr [32]byte) (*types.Account, error) {
	acc, ok := m.accounts[addr]
	if !ok {
		return nil, nil
	}
	return acc.Clone(), nil
}

func (m *mapLedger) PutAccount(addr [32]byte, acc *types.Account) error {
	m.accounts[addr] = acc.Clone()
	return nil
}

func (m *mapLedger) DeleteAccount(addr [32]byte) error {
	delete(m.accounts, addr)
	return nil
}

func addr(fill byte) [32]byte {
	var a [32]byte
	copy(a[:], bytes.Repeat([]byte{fill}, 32))
	return a
}

func TestRegisterMint(t *testing.T) {
	ledger := newMapLedger()
	svc := NewService(ledger)
	asset := addr(0x01)

	ok, err := svc.MintExists(asset)
	if err != nil || ok {
		t.Fatalf("unregistered mint reported as existing: %v %v", ok, err)
	}
	if err := svc.RegisterMint(asset); err != nil {
		t.Fatalf("register: %v", err)
	}
	ok, err = svc.MintExists(asset)
	if err != nil || !ok {
		t.Fatalf("registered mint missing: %v %v", ok, err)
	}
	if err := svc.RegisterMint(asset); !errors.Is(err, ErrAlreadyInitialized) {
		t.Fatalf("double register: got %v want %v", err, ErrAlreadyInitialized)
	}
}

func TestCreateCustodyAndMint(t *testing.T) {
	ledger := newMapLedger()
	svc := NewService(ledger)
	asset := addr(0x01)
	owner := addr(0x02)
	custody := addr(0x03)

	if err := svc.CreateCustody(custody, asset, owner); err != nil {
		t.Fatalf("create custody: %v", err)
	}
	if err := svc.Mint(asset, custody, 5); err != nil {
		t.Fatalf("mint: %v", err)
	}
	gotOwner, gotAsset, amount, err := svc.AccountInfo(custody)
	if err != nil {
		t.Fatalf("account info: %v", err)
	}
	if gotOwner != owner || gotAsset != asset || amount != 5 {
		t.Fatalf("unexpected custody %x %x %d", gotOwner[:4], gotAsset[:4], amount)
	}

	mintAcc, err := ledger.GetAccount(asset)
	if err != nil || mintAcc == nil {
		t.Fatalf("mint record missing: %v", err)
	}
	record, err := UnpackMint(mintAcc.Data)
	if err != nil {
		t.Fatalf("unpack mint: %v", err)
	}
	if record.Supply != 5 {
		t.Fatalf("supply %d want 5", record.Supply)
	}
}

func TestCreateCustodyRequiresMint(t *testing.T) {
	ledger := newMapLedger()
	svc := NewService(ledger)
	if err := svc.CreateCustody(addr(0x03), addr(0x01), addr(0x02)); !errors.Is(err, ErrUnknownMint) {
		t.Fatalf("got %v want %v", err, ErrUnknownMint)
	}
}

func TestTransferAuthorization(t *testing.T) {
	ledger := newMapLedger()
	svc := NewService(ledger)
	asset := addr(0x01)
	alice := addr(0x02)
	bob := addr(0x04)
	from := addr(0x03)
	to := addr(0x05)
	if err := svc.RegisterMint(asset); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.CreateCustody(from, asset, alice); err != nil {
		t.Fatalf("create custody: %v", err)
	}
	if err := svc.CreateCustody(to, asset, bob); err != nil {
		t.Fatalf("create custody: %v", err)
	}
	if err := svc.Mint(asset, from, 10); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := svc.Transfer(from, to, 3, bob); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("foreign authority: got %v want %v", err, ErrUnauthorized)
	}
	if err := svc.Transfer(from, to, 11, alice); !errors.Is(err, ErrInsufficientUnits) {
		t.Fatalf("overdraw: got %v want %v", err, ErrInsufficientUnits)
	}
	if err := svc.Transfer(from, to, 3, alice); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	_, _, fromUnits, err := svc.AccountInfo(from)
	if err != nil {
		t.Fatalf("account info: %v", err)
	}
	_, _, toUnits, err := svc.AccountInfo(to)
	if err != nil {
		t.Fatalf("account info: %v", err)
	}
	if fromUnits != 7 || toUnits != 3 {
		t.Fatalf("balances %d/%d want 7/3", fromUnits, toUnits)
	}
}

func TestTransferRejectsAssetMismatch(t *testing.T) {
	ledger := newMapLedger()
	svc := NewService(ledger)
	assetA := addr(0x01)
	assetB := addr(0x06)
	alice := addr(0x02)
	from := addr(0x03)
	to := addr(0x05)
	for _, asset := range [][32]byte{assetA, assetB} {
		if err := svc.RegisterMint(asset); err != nil {
			t.Fatalf("register: %v", err)
		}
	}
	if err := svc.CreateCustody(from, assetA, alice); err != nil {
		t.Fatalf("create custody: %v", err)
	}
	if err := svc.CreateCustody(to, assetB, alice); err != nil {
		t.Fatalf("create custody: %v", err)
	}
	if err := svc.Mint(assetA, from, 1); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := svc.Transfer(from, to, 1, alice); !errors.Is(err, ErrAssetMismatch) {
		t.Fatalf("got %v want %v", err, ErrAssetMismatch)
	}
}

func TestCloseAccount(t *testing.T) {
	ledger := newMapLedger()
	svc := NewService(ledger)
	asset := addr(0x01)
	alice := addr(0x02)
	custody := addr(0x03)
	dest := addr(0x07)
	if err := svc.RegisterMint(asset); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.CreateCustody(custody, asset, alice); err != nil {
		t.Fatalf("create custody: %v", err)
	}
	if err := svc.Mint(asset, custody, 1); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if err := svc.CloseAccount(custody, dest, alice); !errors.Is(err, ErrNonEmptyAccount) {
		t.Fatalf("close holding units: got %v want %v", err, ErrNonEmptyAccount)
	}

	// Drain the units, park a native reserve on the account, then close.
	other := addr(0x08)
	if err := svc.CreateCustody(other, asset, alice); err != nil {
		t.Fatalf("create custody: %v", err)
	}
	if err := svc.Transfer(custody, other, 1, alice); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	acc, err := ledger.GetAccount(custody)
	if err != nil || acc == nil {
		t.Fatalf("custody account missing: %v", err)
	}
	acc.Balance = big.NewInt(500)
	if err := ledger.PutAccount(custody, acc); err != nil {
		t.Fatalf("put: %v", err)
	}

	if err := svc.CloseAccount(custody, dest, addr(0x09)); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("foreign close: got %v want %v", err, ErrUnauthorized)
	}
	if err := svc.CloseAccount(custody, dest, alice); err != nil {
		t.Fatalf("close: %v", err)
	}
	if acc, _ := ledger.GetAccount(custody); acc != nil {
		t.Fatalf("custody account survived close")
	}
	destAcc, err := ledger.GetAccount(dest)
	if err != nil || destAcc == nil {
		t.Fatalf("dest account missing: %v", err)
	}
	if destAcc.Balance.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("dest balance %v want 500", destAcc.Balance)
	}
}
