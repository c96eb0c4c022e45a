package market

import "encoding/binary"

// Persisted record sizes in bytes. The layouts are fixed-width with no
// version tag, so any length mismatch is a hard decode failure.
const (
	PlatformStateLen = 49
	ListEscrowLen    = 105
	BidEscrowLen     = 72
)

// PlatformState is the singleton platform configuration, stored at the
// address derived from ("Platform", "State"). FeeRate is configured and
// mutable by the authority but not consumed in the settlement path.
type PlatformState struct {
	Initialized bool
	Authority   [32]byte
	FeeRate     uint64
	Reserved    uint64
}

// Pack serialises the record into its fixed 49-byte layout:
// initialized(1) authority(32) feeRate(8) reserved(8), integers big-endian.
func (s *PlatformState) Pack() []byte {
	buf := make([]byte, PlatformStateLen)
	buf[0] = packBool(s.Initialized)
	copy(buf[1:33], s.Authority[:])
	binary.BigEndian.PutUint64(buf[33:41], s.FeeRate)
	binary.BigEndian.PutUint64(buf[41:49], s.Reserved)
	return buf
}

// UnpackPlatformState decodes the fixed 49-byte platform record.
func UnpackPlatformState(src []byte) (*PlatformState, error) {
	if len(src) != PlatformStateLen {
		return nil, ErrInvalidAccountData
	}
	initialized, err := unpackBool(src[0])
	if err != nil {
		return nil, err
	}
	s := &PlatformState{
		Initialized: initialized,
		FeeRate:     binary.BigEndian.Uint64(src[33:41]),
		Reserved:    binary.BigEndian.Uint64(src[41:49]),
	}
	copy(s.Authority[:], src[1:33])
	return s, nil
}

// ListEscrowState is the listing escrow record, stored at the address derived
// from (asset, seller, "List", "State"). Amount starts as the ask price and
// is overwritten with the winning bid amount on settlement.
type ListEscrowState struct {
	Seller  [32]byte
	Asset   [32]byte
	Amount  uint64
	Settled bool
	Buyer   [32]byte
}

// Pack serialises the record into its fixed 105-byte layout:
// seller(32) asset(32) amount(8) settled(1) buyer(32).
func (s *ListEscrowState) Pack() []byte {
	buf := make([]byte, ListEscrowLen)
	copy(buf[0:32], s.Seller[:])
	copy(buf[32:64], s.Asset[:])
	binary.BigEndian.PutUint64(buf[64:72], s.Amount)
	buf[72] = packBool(s.Settled)
	copy(buf[73:105], s.Buyer[:])
	return buf
}

// UnpackListEscrowState decodes the fixed 105-byte listing record.
func UnpackListEscrowState(src []byte) (*ListEscrowState, error) {
	if len(src) != ListEscrowLen {
		return nil, ErrInvalidAccountData
	}
	settled, err := unpackBool(src[72])
	if err != nil {
		return nil, err
	}
	s := &ListEscrowState{
		Amount:  binary.BigEndian.Uint64(src[64:72]),
		Settled: settled,
	}
	copy(s.Seller[:], src[0:32])
	copy(s.Asset[:], src[32:64])
	copy(s.Buyer[:], src[73:105])
	return s, nil
}

// BidEscrowState is the bid escrow record, stored at the address derived from
// (asset, bidder, "Bid", "State"). The record is immutable once written.
type BidEscrowState struct {
	Bidder [32]byte
	Asset  [32]byte
	Amount uint64
}

// Pack serialises the record into its fixed 72-byte layout:
// bidder(32) asset(32) amount(8).
func (s *BidEscrowState) Pack() []byte {
	buf := make([]byte, BidEscrowLen)
	copy(buf[0:32], s.Bidder[:])
	copy(buf[32:64], s.Asset[:])
	binary.BigEndian.PutUint64(buf[64:72], s.Amount)
	return buf
}

// UnpackBidEscrowState decodes the fixed 72-byte bid record.
func UnpackBidEscrowState(src []byte) (*BidEscrowState, error) {
	if len(src) != BidEscrowLen {
		return nil, ErrInvalidAccountData
	}
	s := &BidEscrowState{Amount: binary.BigEndian.Uint64(src[64:72])}
	copy(s.Bidder[:], src[0:32])
	copy(s.Asset[:], src[32:64])
	return s, nil
}

func packBool(v bool) byte {
	if v {
		return 1
	}
	return 0
}

// unpackBool accepts only the two sentinel byte values.
func unpackBool(b byte) (bool, error) {
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, ErrInvalidAccountData
	}
}
