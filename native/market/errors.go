package market

import (
	"errors"
	"fmt"
)

// Code is the stable numeric identifier for a marketplace-domain failure. The
// values are part of the deployed error surface and must never be reordered.
type Code uint32

const (
	CodeInvalidAuthority Code = iota
	CodeInvalidInstructionData
	CodeInvalidPlatformFee
	CodeInvalidInstruction
	CodeFailedToUnpackU64
)

// Error is a marketplace-domain failure carrying its stable code. Callers can
// distinguish it from generic host-class failures (plain sentinels below) via
// errors.As.
type Error struct {
	code Code
	msg  string
}

func (e *Error) Error() string { return e.msg }

// Code returns the stable numeric code for this failure.
func (e *Error) Code() Code { return e.code }

var (
	ErrInvalidAuthority       = &Error{CodeInvalidAuthority, "invalid authority"}
	ErrInvalidInstructionData = &Error{CodeInvalidInstructionData, "invalid instruction data"}
	ErrInvalidPlatformFee     = &Error{CodeInvalidPlatformFee, "invalid platform fee"}
	ErrInvalidInstruction     = &Error{CodeInvalidInstruction, "invalid instruction"}
	ErrFailedToUnpackU64      = &Error{CodeFailedToUnpackU64, "failed to unpack u64"}
)

// Host-class failures. These mirror the generic error surface of the ledger
// runtime and are deliberately distinct from the coded marketplace domain.
var (
	ErrMissingSignature     = errors.New("market: missing required signature")
	ErrInvalidAccountData   = errors.New("market: invalid account data")
	ErrUninitializedAccount = errors.New("market: account not initialized")
	ErrAccountExists        = errors.New("market: account already exists")
	ErrInsufficientFunds    = errors.New("market: insufficient funds")
)

// Lifecycle failures. Each wraps ErrInvalidAccountData so existing callers
// that match on the host class keep working while tests can assert the exact
// transition that was refused.
var (
	ErrListingSettled    = fmt.Errorf("%w: listing already settled", ErrInvalidAccountData)
	ErrListingNotSettled = fmt.Errorf("%w: listing not settled", ErrInvalidAccountData)
	ErrWrongSeller       = fmt.Errorf("%w: caller is not the seller of record", ErrInvalidAccountData)
	ErrWrongBidder       = fmt.Errorf("%w: named bidder does not match bid record", ErrInvalidAccountData)
	ErrWrongBuyer        = fmt.Errorf("%w: caller is not the settled buyer", ErrInvalidAccountData)
)
