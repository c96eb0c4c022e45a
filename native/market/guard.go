package market

import "fmt"

// signerSet is the set of addresses the host verified signatures for on the
// current request.
type signerSet map[[32]byte]struct{}

func newSignerSet(signers [][32]byte) signerSet {
	set := make(signerSet, len(signers))
	for _, s := range signers {
		set[s] = struct{}{}
	}
	return set
}

// requireSigner fails unless the host verified a signature for addr.
func (s signerSet) requireSigner(addr [32]byte) error {
	if _, ok := s[addr]; !ok {
		return ErrMissingSignature
	}
	return nil
}

// requireDerived checks a supplied account against the address the deriver
// computes for its seed tuple.
func requireDerived(role string, got, want [32]byte) error {
	if got != want {
		return fmt.Errorf("%w: %s does not match derived address", ErrInvalidAccountData, role)
	}
	return nil
}

// requireIdentity checks a supplied external-service reference against its
// canonical identity.
func requireIdentity(role string, got, want [32]byte) error {
	if got != want {
		return fmt.Errorf("%w: %s is not the canonical identity", ErrInvalidAccountData, role)
	}
	return nil
}

// requirePlatform loads and validates the platform config for a mutating
// operation: the supplied account must sit at the derived singleton address,
// the record must be initialized, and the caller must match the stored
// authority.
func (p *Processor) requirePlatform(supplied, caller [32]byte) (*PlatformState, [32]byte, error) {
	derived, _, err := PlatformAddress()
	if err != nil {
		return nil, [32]byte{}, err
	}
	if err := requireDerived("platform state", supplied, derived); err != nil {
		return nil, [32]byte{}, err
	}
	acc, err := p.ledger.GetAccount(derived)
	if err != nil {
		return nil, [32]byte{}, err
	}
	if acc == nil || len(acc.Data) == 0 {
		return nil, [32]byte{}, ErrUninitializedAccount
	}
	state, err := UnpackPlatformState(acc.Data)
	if err != nil {
		return nil, [32]byte{}, err
	}
	if !state.Initialized {
		return nil, [32]byte{}, ErrUninitializedAccount
	}
	if state.Authority != caller {
		return nil, [32]byte{}, ErrInvalidAuthority
	}
	return state, derived, nil
}

// requireCustody checks that the supplied custody account is a token account
// owned by holder and registered for asset.
func (p *Processor) requireCustody(custody, holder, asset [32]byte) error {
	owner, custodyAsset, _, err := p.token.AccountInfo(custody)
	if err != nil {
		return err
	}
	if owner != holder {
		return fmt.Errorf("%w: custody account not owned by caller", ErrInvalidAccountData)
	}
	if custodyAsset != asset {
		return fmt.Errorf("%w: custody account registered for a different asset", ErrInvalidAccountData)
	}
	return nil
}

// requireAsset checks the asset is registered with the token service.
func (p *Processor) requireAsset(asset [32]byte) error {
	ok, err := p.token.MintExists(asset)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: asset not registered with token service", ErrInvalidAccountData)
	}
	return nil
}
