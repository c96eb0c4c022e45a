package market

// Inputs is the explicit, named account list for one instruction. Every
// operation declares its own struct so there is no positional parsing; the
// guard validates each field against its expected derived or canonical
// identity before any mutation.
type Inputs interface {
	isInputs()
}

// InitializeInputs names the accounts for Initialize.
type InitializeInputs struct {
	Payer         [32]byte // signer; funds the config record reserve
	PlatformState [32]byte // derived ("Platform","State")
	Protocol      [32]byte // this protocol's identity
	SystemService [32]byte // account-creation primitive identity
	RentTable     [32]byte // reserve schedule identity
}

// ChangeAuthorityInputs names the accounts for ChangeAuthority.
type ChangeAuthorityInputs struct {
	Authority     [32]byte // signer; must match the stored authority
	PlatformState [32]byte // derived ("Platform","State")
}

// ChangeFeeInputs names the accounts for ChangeFee.
type ChangeFeeInputs struct {
	Authority     [32]byte // signer; must match the stored authority
	PlatformState [32]byte // derived ("Platform","State")
}

// ListInputs names the accounts for List.
type ListInputs struct {
	Seller        [32]byte // signer
	SellerCustody [32]byte // seller's asset custody account
	Asset         [32]byte // asset identity
	ListingState  [32]byte // derived (asset, seller, "List", "State")
	ListingVault  [32]byte // derived (asset, seller, "List", "Vault")
	Protocol      [32]byte
	TokenService  [32]byte
	SystemService [32]byte
	RentTable     [32]byte
}

// DeListInputs names the accounts for DeList.
type DeListInputs struct {
	Seller        [32]byte // signer
	SellerCustody [32]byte
	Asset         [32]byte
	ListingState  [32]byte // derived (asset, seller, "List", "State")
	ListingVault  [32]byte // derived (asset, seller, "List", "Vault")
	Protocol      [32]byte
	TokenService  [32]byte
}

// BidInputs names the accounts for Bid.
type BidInputs struct {
	Bidder        [32]byte // signer
	Asset         [32]byte
	BidState      [32]byte // derived (asset, bidder, "Bid", "State")
	BidVault      [32]byte // derived (asset, bidder, "Bid", "Vault")
	Protocol      [32]byte
	SystemService [32]byte
	RentTable     [32]byte
}

// WithdrawBidInputs names the accounts for WithdrawBid.
type WithdrawBidInputs struct {
	Bidder   [32]byte // signer
	Asset    [32]byte
	BidState [32]byte // derived (asset, bidder, "Bid", "State")
	BidVault [32]byte // derived (asset, bidder, "Bid", "Vault")
	Protocol [32]byte
}

// AcceptBidInputs names the accounts for AcceptBid. The bid accounts derive
// from the named bidder, the listing accounts from the signing seller.
type AcceptBidInputs struct {
	Seller       [32]byte // signer
	Asset        [32]byte
	Bidder       [32]byte
	BidState     [32]byte // derived (asset, bidder, "Bid", "State")
	BidVault     [32]byte // derived (asset, bidder, "Bid", "Vault")
	ListingState [32]byte // derived (asset, seller, "List", "State")
	ListingVault [32]byte // derived (asset, seller, "List", "Vault")
}

// ClaimAssetInputs names the accounts for ClaimAssetOnSuccess. The listing
// accounts derive from the named seller, not the signing buyer.
type ClaimAssetInputs struct {
	Buyer        [32]byte // signer; must equal the settled buyer
	BuyerCustody [32]byte
	Asset        [32]byte
	Seller       [32]byte
	ListingState [32]byte // derived (asset, seller, "List", "State")
	ListingVault [32]byte // derived (asset, seller, "List", "Vault")
	TokenService [32]byte
}

// RefundBidderInputs names the accounts for RefundBidder.
type RefundBidderInputs struct {
	Authority     [32]byte // signer; must match the stored platform authority
	Asset         [32]byte
	Bidder        [32]byte // refund recipient
	PlatformState [32]byte // derived ("Platform","State")
	BidState      [32]byte // derived (asset, bidder, "Bid", "State")
	BidVault      [32]byte // derived (asset, bidder, "Bid", "Vault")
}

func (*InitializeInputs) isInputs()      {}
func (*ChangeAuthorityInputs) isInputs() {}
func (*ChangeFeeInputs) isInputs()       {}
func (*ListInputs) isInputs()            {}
func (*DeListInputs) isInputs()          {}
func (*BidInputs) isInputs()             {}
func (*WithdrawBidInputs) isInputs()     {}
func (*AcceptBidInputs) isInputs()       {}
func (*ClaimAssetInputs) isInputs()      {}
func (*RefundBidderInputs) isInputs()    {}
