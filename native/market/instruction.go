package market

import "encoding/binary"

// Opcode is the leading byte of every wire-encoded instruction.
type Opcode byte

const (
	OpInitialize Opcode = iota
	OpChangeAuthority
	OpChangeFee
	OpList
	OpDeList
	OpBid
	OpWithdrawBid
	OpAcceptBid
	OpClaimAssetOnSuccess
	OpRefundBidder
)

// String returns the canonical instruction name, used for logs and metrics.
func (op Opcode) String() string {
	switch op {
	case OpInitialize:
		return "initialize"
	case OpChangeAuthority:
		return "change_authority"
	case OpChangeFee:
		return "change_fee"
	case OpList:
		return "list"
	case OpDeList:
		return "delist"
	case OpBid:
		return "bid"
	case OpWithdrawBid:
		return "withdraw_bid"
	case OpAcceptBid:
		return "accept_bid"
	case OpClaimAssetOnSuccess:
		return "claim_asset"
	case OpRefundBidder:
		return "refund_bidder"
	default:
		return "unknown"
	}
}

// Instruction is one of the ten tagged marketplace operations.
type Instruction interface {
	Opcode() Opcode
	Pack() []byte
}

// Initialize creates the singleton platform configuration record.
type Initialize struct {
	Authority [32]byte
	FeeRate   uint64
}

// ChangeAuthority replaces the platform authority.
type ChangeAuthority struct {
	Authority [32]byte
}

// ChangeFee replaces the configured platform fee rate.
type ChangeFee struct {
	FeeRate uint64
}

// List escrows one asset unit at the given ask price.
type List struct {
	Amount uint64
}

// DeList withdraws an unsettled listing.
type DeList struct{}

// Bid deposits currency against a listed asset.
type Bid struct {
	Amount uint64
}

// WithdrawBid returns an open bid to the bidder.
type WithdrawBid struct{}

// AcceptBid settles a listing against a named bid.
type AcceptBid struct{}

// ClaimAssetOnSuccess releases the asset to the settled buyer.
type ClaimAssetOnSuccess struct{}

// RefundBidder is the authority-initiated refund of a stale bid.
type RefundBidder struct{}

func (*Initialize) Opcode() Opcode          { return OpInitialize }
func (*ChangeAuthority) Opcode() Opcode     { return OpChangeAuthority }
func (*ChangeFee) Opcode() Opcode           { return OpChangeFee }
func (*List) Opcode() Opcode                { return OpList }
func (*DeList) Opcode() Opcode              { return OpDeList }
func (*Bid) Opcode() Opcode                 { return OpBid }
func (*WithdrawBid) Opcode() Opcode         { return OpWithdrawBid }
func (*AcceptBid) Opcode() Opcode           { return OpAcceptBid }
func (*ClaimAssetOnSuccess) Opcode() Opcode { return OpClaimAssetOnSuccess }
func (*RefundBidder) Opcode() Opcode        { return OpRefundBidder }

func (i *Initialize) Pack() []byte {
	buf := make([]byte, 1+32+8)
	buf[0] = byte(OpInitialize)
	copy(buf[1:33], i.Authority[:])
	binary.BigEndian.PutUint64(buf[33:], i.FeeRate)
	return buf
}

func (i *ChangeAuthority) Pack() []byte {
	buf := make([]byte, 1+32)
	buf[0] = byte(OpChangeAuthority)
	copy(buf[1:], i.Authority[:])
	return buf
}

func (i *ChangeFee) Pack() []byte { return packAmountOp(OpChangeFee, i.FeeRate) }
func (i *List) Pack() []byte      { return packAmountOp(OpList, i.Amount) }
func (i *Bid) Pack() []byte       { return packAmountOp(OpBid, i.Amount) }

func (*DeList) Pack() []byte              { return []byte{byte(OpDeList)} }
func (*WithdrawBid) Pack() []byte         { return []byte{byte(OpWithdrawBid)} }
func (*AcceptBid) Pack() []byte           { return []byte{byte(OpAcceptBid)} }
func (*ClaimAssetOnSuccess) Pack() []byte { return []byte{byte(OpClaimAssetOnSuccess)} }
func (*RefundBidder) Pack() []byte        { return []byte{byte(OpRefundBidder)} }

func packAmountOp(op Opcode, amount uint64) []byte {
	buf := make([]byte, 1+8)
	buf[0] = byte(op)
	binary.BigEndian.PutUint64(buf[1:], amount)
	return buf
}

// UnpackInstruction decodes a wire buffer into a tagged instruction. All
// multi-byte integers are big-endian and every opcode has a fixed total size;
// missing or trailing bytes are a decode failure.
func UnpackInstruction(data []byte) (Instruction, error) {
	if len(data) == 0 {
		return nil, ErrInvalidInstruction
	}
	tag, rest := Opcode(data[0]), data[1:]
	switch tag {
	case OpInitialize:
		if len(rest) < 32 {
			return nil, ErrInvalidAuthority
		}
		var authority [32]byte
		copy(authority[:], rest[:32])
		if len(rest[32:]) != 8 {
			return nil, ErrInvalidPlatformFee
		}
		feeRate, err := unpackU64(rest[32:])
		if err != nil {
			return nil, err
		}
		return &Initialize{Authority: authority, FeeRate: feeRate}, nil
	case OpChangeAuthority:
		if len(rest) != 32 {
			return nil, ErrInvalidAuthority
		}
		var authority [32]byte
		copy(authority[:], rest)
		return &ChangeAuthority{Authority: authority}, nil
	case OpChangeFee:
		feeRate, err := unpackAmountField(rest)
		if err != nil {
			return nil, err
		}
		return &ChangeFee{FeeRate: feeRate}, nil
	case OpList:
		amount, err := unpackAmountField(rest)
		if err != nil {
			return nil, err
		}
		return &List{Amount: amount}, nil
	case OpDeList:
		if len(rest) != 0 {
			return nil, ErrInvalidInstructionData
		}
		return &DeList{}, nil
	case OpBid:
		amount, err := unpackAmountField(rest)
		if err != nil {
			return nil, err
		}
		return &Bid{Amount: amount}, nil
	case OpWithdrawBid:
		if len(rest) != 0 {
			return nil, ErrInvalidInstructionData
		}
		return &WithdrawBid{}, nil
	case OpAcceptBid:
		if len(rest) != 0 {
			return nil, ErrInvalidInstructionData
		}
		return &AcceptBid{}, nil
	case OpClaimAssetOnSuccess:
		if len(rest) != 0 {
			return nil, ErrInvalidInstructionData
		}
		return &ClaimAssetOnSuccess{}, nil
	case OpRefundBidder:
		if len(rest) != 0 {
			return nil, ErrInvalidInstructionData
		}
		return &RefundBidder{}, nil
	default:
		return nil, ErrInvalidInstruction
	}
}

func unpackAmountField(rest []byte) (uint64, error) {
	if len(rest) != 8 {
		return 0, ErrInvalidInstructionData
	}
	return unpackU64(rest)
}

func unpackU64(b []byte) (uint64, error) {
	if len(b) < 8 {
		return 0, ErrFailedToUnpackU64
	}
	return binary.BigEndian.Uint64(b[:8]), nil
}
