package market

import (
	"fmt"
	"math/big"

	"marketplace/core/events"
	"marketplace/core/types"
	"marketplace/crypto"
)

// SystemServiceID is the canonical identity of the host's account-creation
// primitive.
var SystemServiceID = crypto.ServiceIdentity("system/create-account")

// ProtocolID is the identity of the deployed settlement protocol itself.
// Derived record accounts are owned by it.
var ProtocolID = crypto.ServiceIdentity("market/settlement")

// Ledger is the narrow view of host account state the processor mutates.
// GetAccount returns (nil, nil) for an address that has never been funded.
// Atomicity across a whole instruction is the caller's responsibility; the
// processor assumes every write either commits with the rest or is discarded.
type Ledger interface {
	GetAccount(addr [32]byte) (*types.Account, error)
	PutAccount(addr [32]byte, acc *types.Account) error
	DeleteAccount(addr [32]byte) error
}

// TokenService is the external asset-transfer collaborator. The processor
// invokes it for custody moves and never reimplements its mechanics. An
// authority argument is honored only when the processor could have authorized
// it: either the address signed the request or the processor reproduced its
// derivation seeds.
type TokenService interface {
	ID() [32]byte
	AccountSize() int
	MintExists(asset [32]byte) (bool, error)
	AccountInfo(addr [32]byte) (owner, asset [32]byte, amount uint64, err error)
	InitializeAccount(addr, asset, owner [32]byte) error
	Transfer(from, to [32]byte, amount uint64, authority [32]byte) error
	CloseAccount(addr, dest, authority [32]byte) error
}

// Processor sequences instruction decode, authorization, custody-account
// management and record updates for the ten marketplace operations. One
// instruction runs to completion synchronously; there is no internal locking
// because the host serializes requests that touch the same addresses.
type Processor struct {
	ledger  Ledger
	token   TokenService
	rent    RentSchedule
	self    [32]byte
	emitter events.Emitter
}

// NewProcessor wires a processor to its ledger, token service, rent schedule
// and deployed protocol identity.
func NewProcessor(ledger Ledger, token TokenService, rent RentSchedule, self [32]byte) *Processor {
	return &Processor{
		ledger:  ledger,
		token:   token,
		rent:    rent,
		self:    self,
		emitter: events.NoopEmitter{},
	}
}

// SetEmitter configures the event emitter. Passing nil resets it to a no-op.
func (p *Processor) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		p.emitter = events.NoopEmitter{}
		return
	}
	p.emitter = emitter
}

func (p *Processor) emit(e events.Event) {
	if p == nil || p.emitter == nil || e == nil {
		return
	}
	p.emitter.Emit(e)
}

// Execute decodes one instruction and applies it against the named inputs.
// signers is the set of addresses the host verified signatures for. The first
// failed check aborts the operation; the caller discards any staged writes.
func (p *Processor) Execute(data []byte, in Inputs, signers [][32]byte) error {
	ins, err := UnpackInstruction(data)
	if err != nil {
		return err
	}
	signed := newSignerSet(signers)
	switch ins := ins.(type) {
	case *Initialize:
		accounts, ok := in.(*InitializeInputs)
		if !ok {
			return errWrongInputs(ins)
		}
		return p.initializePlatform(accounts, ins, signed)
	case *ChangeAuthority:
		accounts, ok := in.(*ChangeAuthorityInputs)
		if !ok {
			return errWrongInputs(ins)
		}
		return p.changeAuthority(accounts, ins, signed)
	case *ChangeFee:
		accounts, ok := in.(*ChangeFeeInputs)
		if !ok {
			return errWrongInputs(ins)
		}
		return p.changeFee(accounts, ins, signed)
	case *List:
		accounts, ok := in.(*ListInputs)
		if !ok {
			return errWrongInputs(ins)
		}
		return p.list(accounts, ins, signed)
	case *DeList:
		accounts, ok := in.(*DeListInputs)
		if !ok {
			return errWrongInputs(ins)
		}
		return p.delist(accounts, signed)
	case *Bid:
		accounts, ok := in.(*BidInputs)
		if !ok {
			return errWrongInputs(ins)
		}
		return p.bid(accounts, ins, signed)
	case *WithdrawBid:
		accounts, ok := in.(*WithdrawBidInputs)
		if !ok {
			return errWrongInputs(ins)
		}
		return p.withdrawBid(accounts, signed)
	case *AcceptBid:
		accounts, ok := in.(*AcceptBidInputs)
		if !ok {
			return errWrongInputs(ins)
		}
		return p.acceptBid(accounts, signed)
	case *ClaimAssetOnSuccess:
		accounts, ok := in.(*ClaimAssetInputs)
		if !ok {
			return errWrongInputs(ins)
		}
		return p.claimAsset(accounts, signed)
	case *RefundBidder:
		accounts, ok := in.(*RefundBidderInputs)
		if !ok {
			return errWrongInputs(ins)
		}
		return p.refundBidder(accounts, signed)
	default:
		return ErrInvalidInstruction
	}
}

func errWrongInputs(ins Instruction) error {
	return fmt.Errorf("%w: inputs do not name the accounts for %s", ErrInvalidAccountData, ins.Opcode())
}

// --- operations ---

func (p *Processor) initializePlatform(in *InitializeInputs, ins *Initialize, signed signerSet) error {
	if err := signed.requireSigner(in.Payer); err != nil {
		return err
	}
	if err := requireIdentity("protocol", in.Protocol, p.self); err != nil {
		return err
	}
	if err := requireIdentity("system service", in.SystemService, SystemServiceID); err != nil {
		return err
	}
	if err := requireIdentity("rent table", in.RentTable, p.rent.Table); err != nil {
		return err
	}
	derived, _, err := PlatformAddress()
	if err != nil {
		return err
	}
	if err := requireDerived("platform state", in.PlatformState, derived); err != nil {
		return err
	}
	if err := p.createAccount(in.Payer, derived, PlatformStateLen, p.self); err != nil {
		return err
	}
	record := &PlatformState{Initialized: true, Authority: ins.Authority, FeeRate: ins.FeeRate}
	if err := p.writeRecord(derived, record.Pack()); err != nil {
		return err
	}
	p.emit(PlatformInitialized{Authority: ins.Authority, FeeRate: ins.FeeRate})
	return nil
}

func (p *Processor) changeAuthority(in *ChangeAuthorityInputs, ins *ChangeAuthority, signed signerSet) error {
	if err := signed.requireSigner(in.Authority); err != nil {
		return err
	}
	state, addr, err := p.requirePlatform(in.PlatformState, in.Authority)
	if err != nil {
		return err
	}
	previous := state.Authority
	state.Authority = ins.Authority
	if err := p.writeRecord(addr, state.Pack()); err != nil {
		return err
	}
	p.emit(AuthorityChanged{Previous: previous, Authority: ins.Authority})
	return nil
}

func (p *Processor) changeFee(in *ChangeFeeInputs, ins *ChangeFee, signed signerSet) error {
	if err := signed.requireSigner(in.Authority); err != nil {
		return err
	}
	state, addr, err := p.requirePlatform(in.PlatformState, in.Authority)
	if err != nil {
		return err
	}
	state.FeeRate = ins.FeeRate
	if err := p.writeRecord(addr, state.Pack()); err != nil {
		return err
	}
	p.emit(FeeChanged{FeeRate: ins.FeeRate})
	return nil
}

func (p *Processor) list(in *ListInputs, ins *List, signed signerSet) error {
	if err := signed.requireSigner(in.Seller); err != nil {
		return err
	}
	if err := p.requireCustody(in.SellerCustody, in.Seller, in.Asset); err != nil {
		return err
	}
	if err := p.requireAsset(in.Asset); err != nil {
		return err
	}
	if err := requireIdentity("protocol", in.Protocol, p.self); err != nil {
		return err
	}
	if err := requireIdentity("token service", in.TokenService, p.token.ID()); err != nil {
		return err
	}
	if err := requireIdentity("system service", in.SystemService, SystemServiceID); err != nil {
		return err
	}
	if err := requireIdentity("rent table", in.RentTable, p.rent.Table); err != nil {
		return err
	}
	stateAddr, vaultAddr, err := p.listingAddresses(in.Asset, in.Seller, in.ListingState, in.ListingVault)
	if err != nil {
		return err
	}
	if err := p.createAccount(in.Seller, stateAddr, ListEscrowLen, p.self); err != nil {
		return err
	}
	if err := p.createAccount(in.Seller, vaultAddr, p.token.AccountSize(), p.token.ID()); err != nil {
		return err
	}
	// The vault is owned by the listing state address: only code that can
	// reproduce the listing's derivation seeds may move the asset back out.
	if err := p.token.InitializeAccount(vaultAddr, in.Asset, stateAddr); err != nil {
		return err
	}
	if err := p.token.Transfer(in.SellerCustody, vaultAddr, 1, in.Seller); err != nil {
		return err
	}
	record := &ListEscrowState{Seller: in.Seller, Asset: in.Asset, Amount: ins.Amount}
	if err := p.writeRecord(stateAddr, record.Pack()); err != nil {
		return err
	}
	p.emit(Listed{Seller: in.Seller, Asset: in.Asset, Ask: ins.Amount})
	return nil
}

func (p *Processor) delist(in *DeListInputs, signed signerSet) error {
	if err := signed.requireSigner(in.Seller); err != nil {
		return err
	}
	if err := p.requireCustody(in.SellerCustody, in.Seller, in.Asset); err != nil {
		return err
	}
	if err := p.requireAsset(in.Asset); err != nil {
		return err
	}
	if err := requireIdentity("protocol", in.Protocol, p.self); err != nil {
		return err
	}
	if err := requireIdentity("token service", in.TokenService, p.token.ID()); err != nil {
		return err
	}
	stateAddr, vaultAddr, err := p.listingAddresses(in.Asset, in.Seller, in.ListingState, in.ListingVault)
	if err != nil {
		return err
	}
	listing, err := p.readListing(stateAddr)
	if err != nil {
		return err
	}
	if listing.Seller != in.Seller {
		return ErrWrongSeller
	}
	if listing.Settled {
		return ErrListingSettled
	}
	if err := p.token.Transfer(vaultAddr, in.SellerCustody, 1, stateAddr); err != nil {
		return err
	}
	if err := p.token.CloseAccount(vaultAddr, in.Seller, stateAddr); err != nil {
		return err
	}
	reserve, err := p.closeAccount(stateAddr, in.Seller)
	if err != nil {
		return err
	}
	p.emit(Delisted{Seller: in.Seller, Asset: in.Asset, Reserve: reserve})
	return nil
}

func (p *Processor) bid(in *BidInputs, ins *Bid, signed signerSet) error {
	if err := signed.requireSigner(in.Bidder); err != nil {
		return err
	}
	if err := p.requireAsset(in.Asset); err != nil {
		return err
	}
	if err := requireIdentity("protocol", in.Protocol, p.self); err != nil {
		return err
	}
	if err := requireIdentity("system service", in.SystemService, SystemServiceID); err != nil {
		return err
	}
	if err := requireIdentity("rent table", in.RentTable, p.rent.Table); err != nil {
		return err
	}
	stateAddr, vaultAddr, err := p.bidAddresses(in.Asset, in.Bidder, in.BidState, in.BidVault)
	if err != nil {
		return err
	}
	if err := p.createAccount(in.Bidder, stateAddr, BidEscrowLen, p.self); err != nil {
		return err
	}
	if err := p.createAccount(in.Bidder, vaultAddr, 0, p.self); err != nil {
		return err
	}
	if err := p.transferBalance(in.Bidder, vaultAddr, new(big.Int).SetUint64(ins.Amount)); err != nil {
		return err
	}
	record := &BidEscrowState{Bidder: in.Bidder, Asset: in.Asset, Amount: ins.Amount}
	if err := p.writeRecord(stateAddr, record.Pack()); err != nil {
		return err
	}
	p.emit(BidPlaced{Bidder: in.Bidder, Asset: in.Asset, Amount: ins.Amount})
	return nil
}

func (p *Processor) withdrawBid(in *WithdrawBidInputs, signed signerSet) error {
	if err := signed.requireSigner(in.Bidder); err != nil {
		return err
	}
	if err := p.requireAsset(in.Asset); err != nil {
		return err
	}
	if err := requireIdentity("protocol", in.Protocol, p.self); err != nil {
		return err
	}
	stateAddr, vaultAddr, err := p.bidAddresses(in.Asset, in.Bidder, in.BidState, in.BidVault)
	if err != nil {
		return err
	}
	bid, err := p.readBid(stateAddr)
	if err != nil {
		return err
	}
	if bid.Bidder != in.Bidder {
		return ErrWrongBidder
	}
	refund, err := p.closeBidAccounts(stateAddr, vaultAddr, in.Bidder)
	if err != nil {
		return err
	}
	p.emit(BidWithdrawn{Bidder: in.Bidder, Asset: in.Asset, Refund: refund})
	return nil
}

func (p *Processor) acceptBid(in *AcceptBidInputs, signed signerSet) error {
	if err := signed.requireSigner(in.Seller); err != nil {
		return err
	}
	if err := p.requireAsset(in.Asset); err != nil {
		return err
	}
	bidStateAddr, bidVaultAddr, err := p.bidAddresses(in.Asset, in.Bidder, in.BidState, in.BidVault)
	if err != nil {
		return err
	}
	listStateAddr, _, err := p.listingAddresses(in.Asset, in.Seller, in.ListingState, in.ListingVault)
	if err != nil {
		return err
	}
	listing, err := p.readListing(listStateAddr)
	if err != nil {
		return err
	}
	if listing.Seller != in.Seller {
		return ErrWrongSeller
	}
	if listing.Settled {
		return ErrListingSettled
	}
	bid, err := p.readBid(bidStateAddr)
	if err != nil {
		return err
	}
	if bid.Bidder != in.Bidder {
		return ErrWrongBidder
	}

	listing.Amount = bid.Amount
	listing.Settled = true
	listing.Buyer = bid.Bidder
	if err := p.writeRecord(listStateAddr, listing.Pack()); err != nil {
		return err
	}

	// Disburse everything the bid escrow holds: the bid amount to the seller,
	// the remainder (the storage reserves) back to the bidder. Nothing may be
	// left unaccounted.
	stateAcc, err := p.mustAccount(bidStateAddr)
	if err != nil {
		return err
	}
	vaultAcc, err := p.mustAccount(bidVaultAddr)
	if err != nil {
		return err
	}
	total := new(big.Int).Add(stateAcc.Balance, vaultAcc.Balance)
	price := new(big.Int).SetUint64(bid.Amount)
	if total.Cmp(price) < 0 {
		return ErrInsufficientFunds
	}
	remainder := new(big.Int).Sub(total, price)
	if err := p.credit(in.Seller, price); err != nil {
		return err
	}
	if err := p.credit(in.Bidder, remainder); err != nil {
		return err
	}
	if err := p.ledger.DeleteAccount(bidStateAddr); err != nil {
		return err
	}
	if err := p.ledger.DeleteAccount(bidVaultAddr); err != nil {
		return err
	}
	p.emit(BidAccepted{
		Seller:        in.Seller,
		Bidder:        in.Bidder,
		Asset:         in.Asset,
		Amount:        bid.Amount,
		ReserveRefund: remainder,
	})
	return nil
}

func (p *Processor) claimAsset(in *ClaimAssetInputs, signed signerSet) error {
	if err := signed.requireSigner(in.Buyer); err != nil {
		return err
	}
	if err := p.requireCustody(in.BuyerCustody, in.Buyer, in.Asset); err != nil {
		return err
	}
	if err := p.requireAsset(in.Asset); err != nil {
		return err
	}
	if err := requireIdentity("token service", in.TokenService, p.token.ID()); err != nil {
		return err
	}
	stateAddr, vaultAddr, err := p.listingAddresses(in.Asset, in.Seller, in.ListingState, in.ListingVault)
	if err != nil {
		return err
	}
	listing, err := p.readListing(stateAddr)
	if err != nil {
		return err
	}
	if listing.Seller != in.Seller {
		return ErrWrongSeller
	}
	if !listing.Settled {
		return ErrListingNotSettled
	}
	if listing.Buyer != in.Buyer {
		return ErrWrongBuyer
	}
	if err := p.token.Transfer(vaultAddr, in.BuyerCustody, 1, stateAddr); err != nil {
		return err
	}
	if err := p.token.CloseAccount(vaultAddr, in.Seller, stateAddr); err != nil {
		return err
	}
	reserve, err := p.closeAccount(stateAddr, in.Seller)
	if err != nil {
		return err
	}
	p.emit(AssetClaimed{Buyer: in.Buyer, Seller: in.Seller, Asset: in.Asset, Reserve: reserve})
	return nil
}

func (p *Processor) refundBidder(in *RefundBidderInputs, signed signerSet) error {
	if err := signed.requireSigner(in.Authority); err != nil {
		return err
	}
	if err := p.requireAsset(in.Asset); err != nil {
		return err
	}
	if _, _, err := p.requirePlatform(in.PlatformState, in.Authority); err != nil {
		return err
	}
	stateAddr, vaultAddr, err := p.bidAddresses(in.Asset, in.Bidder, in.BidState, in.BidVault)
	if err != nil {
		return err
	}
	bid, err := p.readBid(stateAddr)
	if err != nil {
		return err
	}
	if bid.Bidder != in.Bidder {
		return ErrWrongBidder
	}
	refund, err := p.closeBidAccounts(stateAddr, vaultAddr, in.Bidder)
	if err != nil {
		return err
	}
	p.emit(BidRefunded{Bidder: in.Bidder, Asset: in.Asset, Refund: refund})
	return nil
}

// --- shared helpers ---

func (p *Processor) listingAddresses(asset, seller, suppliedState, suppliedVault [32]byte) ([32]byte, [32]byte, error) {
	stateAddr, _, err := ListingStateAddress(asset, seller)
	if err != nil {
		return [32]byte{}, [32]byte{}, err
	}
	if err := requireDerived("listing state", suppliedState, stateAddr); err != nil {
		return [32]byte{}, [32]byte{}, err
	}
	vaultAddr, _, err := ListingVaultAddress(asset, seller)
	if err != nil {
		return [32]byte{}, [32]byte{}, err
	}
	if err := requireDerived("listing vault", suppliedVault, vaultAddr); err != nil {
		return [32]byte{}, [32]byte{}, err
	}
	return stateAddr, vaultAddr, nil
}

func (p *Processor) bidAddresses(asset, bidder, suppliedState, suppliedVault [32]byte) ([32]byte, [32]byte, error) {
	stateAddr, _, err := BidStateAddress(asset, bidder)
	if err != nil {
		return [32]byte{}, [32]byte{}, err
	}
	if err := requireDerived("bid state", suppliedState, stateAddr); err != nil {
		return [32]byte{}, [32]byte{}, err
	}
	vaultAddr, _, err := BidVaultAddress(asset, bidder)
	if err != nil {
		return [32]byte{}, [32]byte{}, err
	}
	if err := requireDerived("bid vault", suppliedVault, vaultAddr); err != nil {
		return [32]byte{}, [32]byte{}, err
	}
	return stateAddr, vaultAddr, nil
}

func accountOccupied(acc *types.Account) bool {
	if acc == nil {
		return false
	}
	if len(acc.Data) > 0 {
		return true
	}
	return acc.Balance != nil && acc.Balance.Sign() > 0
}

// createAccount charges funder the rent reserve for size bytes and brings the
// account into existence with zeroed record space owned by owner. Fails if
// the address is already occupied, which is what makes List and Bid mutually
// exclusive per derivation tuple.
func (p *Processor) createAccount(funder, addr [32]byte, size int, owner [32]byte) error {
	existing, err := p.ledger.GetAccount(addr)
	if err != nil {
		return err
	}
	if accountOccupied(existing) {
		return ErrAccountExists
	}
	reserve := new(big.Int).SetUint64(p.rent.MinimumBalance(size))
	if err := p.debit(funder, reserve); err != nil {
		return err
	}
	acc := &types.Account{Balance: reserve, Owner: owner, Data: make([]byte, size)}
	return p.ledger.PutAccount(addr, acc)
}

// closeAccount disburses the account's full balance to recipient and reclaims
// its storage. Returns the refunded amount.
func (p *Processor) closeAccount(addr, recipient [32]byte) (*big.Int, error) {
	acc, err := p.mustAccount(addr)
	if err != nil {
		return nil, err
	}
	refund := new(big.Int).Set(acc.Balance)
	if err := p.credit(recipient, refund); err != nil {
		return nil, err
	}
	if err := p.ledger.DeleteAccount(addr); err != nil {
		return nil, err
	}
	return refund, nil
}

// closeBidAccounts zeroes both escrow accounts of a bid and refunds the full
// held balance, deposit plus reserves, to recipient.
func (p *Processor) closeBidAccounts(stateAddr, vaultAddr, recipient [32]byte) (*big.Int, error) {
	fromState, err := p.closeAccount(stateAddr, recipient)
	if err != nil {
		return nil, err
	}
	fromVault, err := p.closeAccount(vaultAddr, recipient)
	if err != nil {
		return nil, err
	}
	return new(big.Int).Add(fromState, fromVault), nil
}

func (p *Processor) mustAccount(addr [32]byte) (*types.Account, error) {
	acc, err := p.ledger.GetAccount(addr)
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, ErrUninitializedAccount
	}
	return types.Ensure(acc), nil
}

func (p *Processor) debit(addr [32]byte, amount *big.Int) error {
	acc, err := p.mustAccount(addr)
	if err != nil {
		return err
	}
	if acc.Balance.Cmp(amount) < 0 {
		return ErrInsufficientFunds
	}
	acc.Balance = new(big.Int).Sub(acc.Balance, amount)
	return p.ledger.PutAccount(addr, acc)
}

func (p *Processor) credit(addr [32]byte, amount *big.Int) error {
	if amount.Sign() == 0 {
		return nil
	}
	acc, err := p.ledger.GetAccount(addr)
	if err != nil {
		return err
	}
	acc = types.Ensure(acc)
	acc.Balance = new(big.Int).Add(acc.Balance, amount)
	return p.ledger.PutAccount(addr, acc)
}

// transferBalance is the native-currency transfer primitive: a plain debit
// and credit. Authorization is established by the guard before it runs.
func (p *Processor) transferBalance(from, to [32]byte, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrInvalidAccountData
	}
	if err := p.debit(from, amount); err != nil {
		return err
	}
	return p.credit(to, amount)
}

func (p *Processor) writeRecord(addr [32]byte, data []byte) error {
	acc, err := p.mustAccount(addr)
	if err != nil {
		return err
	}
	if len(acc.Data) != len(data) {
		return fmt.Errorf("%w: record size mismatch", ErrInvalidAccountData)
	}
	acc.Data = append([]byte(nil), data...)
	return p.ledger.PutAccount(addr, acc)
}

func (p *Processor) readListing(addr [32]byte) (*ListEscrowState, error) {
	acc, err := p.mustAccount(addr)
	if err != nil {
		return nil, err
	}
	return UnpackListEscrowState(acc.Data)
}

func (p *Processor) readBid(addr [32]byte) (*BidEscrowState, error) {
	acc, err := p.mustAccount(addr)
	if err != nil {
		return nil, err
	}
	return UnpackBidEscrowState(acc.Data)
}
