package market

import (
	"math/big"
	"strconv"

	"marketplace/core/types"
	"marketplace/crypto"
)

const (
	EventTypePlatformInitialized = "market.platform.initialized"
	EventTypeAuthorityChanged    = "market.platform.authority_changed"
	EventTypeFeeChanged          = "market.platform.fee_changed"
	EventTypeListed              = "market.listed"
	EventTypeDelisted            = "market.delisted"
	EventTypeBidPlaced           = "market.bid.placed"
	EventTypeBidWithdrawn        = "market.bid.withdrawn"
	EventTypeBidAccepted         = "market.bid.accepted"
	EventTypeBidRefunded         = "market.bid.refunded"
	EventTypeAssetClaimed        = "market.asset.claimed"
)

// PlatformInitialized is emitted once per deployment when the config record
// is written.
type PlatformInitialized struct {
	Authority [32]byte
	FeeRate   uint64
}

func (PlatformInitialized) EventType() string { return EventTypePlatformInitialized }

func (e PlatformInitialized) Event() *types.Event {
	return &types.Event{
		Type: EventTypePlatformInitialized,
		Attributes: map[string]string{
			"authority": addressString(e.Authority),
			"feeRate":   strconv.FormatUint(e.FeeRate, 10),
		},
	}
}

// AuthorityChanged is emitted when the platform authority rotates.
type AuthorityChanged struct {
	Previous  [32]byte
	Authority [32]byte
}

func (AuthorityChanged) EventType() string { return EventTypeAuthorityChanged }

func (e AuthorityChanged) Event() *types.Event {
	return &types.Event{
		Type: EventTypeAuthorityChanged,
		Attributes: map[string]string{
			"previous":  addressString(e.Previous),
			"authority": addressString(e.Authority),
		},
	}
}

// FeeChanged is emitted when the stored fee rate is replaced.
type FeeChanged struct {
	FeeRate uint64
}

func (FeeChanged) EventType() string { return EventTypeFeeChanged }

func (e FeeChanged) Event() *types.Event {
	return &types.Event{
		Type:       EventTypeFeeChanged,
		Attributes: map[string]string{"feeRate": strconv.FormatUint(e.FeeRate, 10)},
	}
}

// Listed is emitted when a seller escrows an asset unit at an ask price.
type Listed struct {
	Seller [32]byte
	Asset  [32]byte
	Ask    uint64
}

func (Listed) EventType() string { return EventTypeListed }

func (e Listed) Event() *types.Event {
	return &types.Event{
		Type: EventTypeListed,
		Attributes: map[string]string{
			"seller": addressString(e.Seller),
			"asset":  addressString(e.Asset),
			"ask":    strconv.FormatUint(e.Ask, 10),
		},
	}
}

// Delisted is emitted when an unsettled listing is withdrawn.
type Delisted struct {
	Seller  [32]byte
	Asset   [32]byte
	Reserve *big.Int
}

func (Delisted) EventType() string { return EventTypeDelisted }

func (e Delisted) Event() *types.Event {
	return &types.Event{
		Type: EventTypeDelisted,
		Attributes: map[string]string{
			"seller":  addressString(e.Seller),
			"asset":   addressString(e.Asset),
			"reserve": formatAmount(e.Reserve),
		},
	}
}

// BidPlaced is emitted when a bidder escrows currency against an asset.
type BidPlaced struct {
	Bidder [32]byte
	Asset  [32]byte
	Amount uint64
}

func (BidPlaced) EventType() string { return EventTypeBidPlaced }

func (e BidPlaced) Event() *types.Event {
	return &types.Event{
		Type: EventTypeBidPlaced,
		Attributes: map[string]string{
			"bidder": addressString(e.Bidder),
			"asset":  addressString(e.Asset),
			"amount": strconv.FormatUint(e.Amount, 10),
		},
	}
}

// BidWithdrawn is emitted when a bidder reclaims an open bid in full.
type BidWithdrawn struct {
	Bidder [32]byte
	Asset  [32]byte
	Refund *big.Int
}

func (BidWithdrawn) EventType() string { return EventTypeBidWithdrawn }

func (e BidWithdrawn) Event() *types.Event {
	return &types.Event{
		Type: EventTypeBidWithdrawn,
		Attributes: map[string]string{
			"bidder": addressString(e.Bidder),
			"asset":  addressString(e.Asset),
			"refund": formatAmount(e.Refund),
		},
	}
}

// BidAccepted is emitted when a seller settles a listing against a bid. The
// bid amount goes to the seller; ReserveRefund is everything else the bid
// escrow held, returned to the bidder.
type BidAccepted struct {
	Seller        [32]byte
	Bidder        [32]byte
	Asset         [32]byte
	Amount        uint64
	ReserveRefund *big.Int
}

func (BidAccepted) EventType() string { return EventTypeBidAccepted }

func (e BidAccepted) Event() *types.Event {
	return &types.Event{
		Type: EventTypeBidAccepted,
		Attributes: map[string]string{
			"seller":        addressString(e.Seller),
			"bidder":        addressString(e.Bidder),
			"asset":         addressString(e.Asset),
			"amount":        strconv.FormatUint(e.Amount, 10),
			"reserveRefund": formatAmount(e.ReserveRefund),
		},
	}
}

// BidRefunded is emitted when the platform authority refunds a stale bid.
type BidRefunded struct {
	Bidder [32]byte
	Asset  [32]byte
	Refund *big.Int
}

func (BidRefunded) EventType() string { return EventTypeBidRefunded }

func (e BidRefunded) Event() *types.Event {
	return &types.Event{
		Type: EventTypeBidRefunded,
		Attributes: map[string]string{
			"bidder": addressString(e.Bidder),
			"asset":  addressString(e.Asset),
			"refund": formatAmount(e.Refund),
		},
	}
}

// AssetClaimed is emitted when the settled buyer takes custody of the asset
// and the listing escrow closes.
type AssetClaimed struct {
	Buyer   [32]byte
	Seller  [32]byte
	Asset   [32]byte
	Reserve *big.Int
}

func (AssetClaimed) EventType() string { return EventTypeAssetClaimed }

func (e AssetClaimed) Event() *types.Event {
	return &types.Event{
		Type: EventTypeAssetClaimed,
		Attributes: map[string]string{
			"buyer":   addressString(e.Buyer),
			"seller":  addressString(e.Seller),
			"asset":   addressString(e.Asset),
			"reserve": formatAmount(e.Reserve),
		},
	}
}

func addressString(addr [32]byte) string {
	return crypto.NewAddress(crypto.MarketPrefix, addr).String()
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
