package state

import (
	"fmt"
	"log/slog"
	"time"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"marketplace/crypto"
	"marketplace/native/market"
	"marketplace/observability"
)

// Request is one submitted instruction: the wire-encoded payload, the named
// account inputs for its operation, and the recoverable signatures over the
// payload digest.
type Request struct {
	Data       []byte
	Inputs     market.Inputs
	Signatures [][]byte
}

// SigningDigest returns the digest request signatures must cover.
func (r *Request) SigningDigest() []byte {
	return ethcrypto.Keccak256(r.Data)
}

// Executor is the host-side run loop for one deployment: it verifies request
// signatures, runs the processor, and commits or discards the staged ledger
// writes so every instruction is all-or-nothing.
type Executor struct {
	state   *Manager
	proc    *market.Processor
	log     *slog.Logger
	metrics *observability.MarketMetrics
}

// NewExecutor binds an executor to its ledger manager and processor.
func NewExecutor(mgr *Manager, proc *market.Processor, log *slog.Logger) *Executor {
	if log == nil {
		log = slog.Default()
	}
	return &Executor{
		state:   mgr,
		proc:    proc,
		log:     log,
		metrics: observability.Market(),
	}
}

// Execute runs one request to completion. On any failure, staged writes are
// discarded and the typed error is returned to the caller unchanged; there is
// no partial commit and no retry.
func (e *Executor) Execute(req *Request) error {
	start := time.Now()
	op := opLabel(req)
	err := e.execute(req)
	e.metrics.Observe(op, err, time.Since(start))
	if err != nil {
		e.log.Warn("instruction rejected", "op", op, "err", err)
		return err
	}
	e.log.Info("instruction committed", "op", op)
	return nil
}

func (e *Executor) execute(req *Request) error {
	if req == nil {
		return market.ErrInvalidInstruction
	}
	signers, err := recoverSigners(req)
	if err != nil {
		return err
	}
	if err := e.proc.Execute(req.Data, req.Inputs, signers); err != nil {
		e.state.Discard()
		return err
	}
	if err := e.state.Commit(); err != nil {
		e.state.Discard()
		return fmt.Errorf("state: commit: %w", err)
	}
	return nil
}

// recoverSigners turns the request's recoverable signatures into the set of
// addresses the processor may treat as having signed.
func recoverSigners(req *Request) ([][32]byte, error) {
	digest := req.SigningDigest()
	signers := make([][32]byte, 0, len(req.Signatures))
	for _, sig := range req.Signatures {
		addr, err := crypto.RecoverAddress(digest, sig)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", market.ErrMissingSignature, err)
		}
		signers = append(signers, addr)
	}
	return signers, nil
}

func opLabel(req *Request) string {
	if req == nil || len(req.Data) == 0 {
		return "unknown"
	}
	return market.Opcode(req.Data[0]).String()
}
