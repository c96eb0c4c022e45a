package state

import (
	"errors"
	"io"
	"log/slog"
	"math/big"
	"testing"

	"marketplace/core/types"
	"marketplace/crypto"
	"marketplace/native/market"
	"marketplace/native/token"
	"marketplace/storage"
)

type executorEnv struct {
	t    *testing.T
	mgr  *Manager
	exec *Executor
	rent market.RentSchedule
}

func newExecutorEnv(t *testing.T) *executorEnv {
	t.Helper()
	mgr := NewManager(storage.NewMemDB())
	tok := token.NewService(mgr)
	rent := market.DefaultRentSchedule()
	proc := market.NewProcessor(mgr, tok, rent, market.ProtocolID)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &executorEnv{t: t, mgr: mgr, exec: NewExecutor(mgr, proc, log), rent: rent}
}

func (e *executorEnv) fund(addr [32]byte, amount uint64) {
	e.t.Helper()
	acc := &types.Account{Balance: new(big.Int).SetUint64(amount)}
	if err := e.mgr.PutAccount(addr, acc); err != nil {
		e.t.Fatalf("fund: %v", err)
	}
	if err := e.mgr.Commit(); err != nil {
		e.t.Fatalf("commit funding: %v", err)
	}
}

func signedRequest(t *testing.T, key *crypto.PrivateKey, data []byte, in market.Inputs) *Request {
	t.Helper()
	req := &Request{Data: data, Inputs: in}
	sig, err := key.Sign(req.SigningDigest())
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	req.Signatures = [][]byte{sig}
	return req
}

func TestExecutorCommitsOnSuccess(t *testing.T) {
	env := newExecutorEnv(t)
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	payer := key.PubKey().Address().Bytes()
	env.fund(payer, 10_000)

	platform, _, err := market.PlatformAddress()
	if err != nil {
		t.Fatalf("platform address: %v", err)
	}
	authority := payer
	in := &market.InitializeInputs{
		Payer:         payer,
		PlatformState: platform,
		Protocol:      market.ProtocolID,
		SystemService: market.SystemServiceID,
		RentTable:     env.rent.Table,
	}
	data := (&market.Initialize{Authority: authority, FeeRate: 125}).Pack()

	if err := env.exec.Execute(signedRequest(t, key, data, in)); err != nil {
		t.Fatalf("execute: %v", err)
	}
	if env.mgr.Pending() != 0 {
		t.Fatalf("pending %d after commit", env.mgr.Pending())
	}

	// The record is durable: a fresh manager over the same database sees it.
	fresh := NewManager(env.mgr.db)
	acc, err := fresh.GetAccount(platform)
	if err != nil || acc == nil {
		t.Fatalf("platform record missing: %v", err)
	}
	record, err := market.UnpackPlatformState(acc.Data)
	if err != nil {
		t.Fatalf("unpack platform: %v", err)
	}
	if !record.Initialized || record.Authority != authority || record.FeeRate != 125 {
		t.Fatalf("unexpected record %+v", record)
	}
}

func TestExecutorDiscardsOnFailure(t *testing.T) {
	env := newExecutorEnv(t)
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	payer := key.PubKey().Address().Bytes()
	// Not enough to cover the platform record reserve.
	env.fund(payer, 1)

	platform, _, err := market.PlatformAddress()
	if err != nil {
		t.Fatalf("platform address: %v", err)
	}
	in := &market.InitializeInputs{
		Payer:         payer,
		PlatformState: platform,
		Protocol:      market.ProtocolID,
		SystemService: market.SystemServiceID,
		RentTable:     env.rent.Table,
	}
	data := (&market.Initialize{Authority: payer}).Pack()

	err = env.exec.Execute(signedRequest(t, key, data, in))
	if !errors.Is(err, market.ErrInsufficientFunds) {
		t.Fatalf("got %v want %v", err, market.ErrInsufficientFunds)
	}
	if env.mgr.Pending() != 0 {
		t.Fatalf("failed instruction left %d staged writes", env.mgr.Pending())
	}
	if acc, _ := env.mgr.GetAccount(platform); acc != nil {
		t.Fatalf("failed instruction created the platform record")
	}
	// The payer keeps their balance untouched.
	acc, err := env.mgr.GetAccount(payer)
	if err != nil || acc == nil {
		t.Fatalf("payer account missing: %v", err)
	}
	if acc.Balance.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("payer balance %v want 1", acc.Balance)
	}
}

func TestExecutorRejectsUnsignedRequest(t *testing.T) {
	env := newExecutorEnv(t)
	payer := testAddr(0x10)
	env.fund(payer, 10_000)

	platform, _, err := market.PlatformAddress()
	if err != nil {
		t.Fatalf("platform address: %v", err)
	}
	in := &market.InitializeInputs{
		Payer:         payer,
		PlatformState: platform,
		Protocol:      market.ProtocolID,
		SystemService: market.SystemServiceID,
		RentTable:     env.rent.Table,
	}
	req := &Request{Data: (&market.Initialize{Authority: payer}).Pack(), Inputs: in}
	if err := env.exec.Execute(req); !errors.Is(err, market.ErrMissingSignature) {
		t.Fatalf("got %v want %v", err, market.ErrMissingSignature)
	}
}

func TestExecutorRejectsForgedSigner(t *testing.T) {
	env := newExecutorEnv(t)
	attacker, err := crypto.GeneratePrivateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	victim := testAddr(0x10)
	env.fund(victim, 10_000)

	platform, _, err := market.PlatformAddress()
	if err != nil {
		t.Fatalf("platform address: %v", err)
	}
	in := &market.InitializeInputs{
		Payer:         victim,
		PlatformState: platform,
		Protocol:      market.ProtocolID,
		SystemService: market.SystemServiceID,
		RentTable:     env.rent.Table,
	}
	data := (&market.Initialize{Authority: victim}).Pack()

	// The attacker's signature recovers to the attacker's address, not the
	// named payer, so the signer check refuses the request.
	err = env.exec.Execute(signedRequest(t, attacker, data, in))
	if !errors.Is(err, market.ErrMissingSignature) {
		t.Fatalf("got %v want %v", err, market.ErrMissingSignature)
	}
}
