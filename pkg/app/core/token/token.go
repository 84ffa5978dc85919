// Package token models the external fungible-token collaborator the
// exchange consumes on its non-native deposit/withdraw paths. Callers are
// explicit in every operation: there is no ambient transaction sender.
package token

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/spotdex/pkg/app/core"
)

// Contract is the capability the exchange requires of a token. Any
// non-success result is treated as a hard failure of the enclosing
// deposit or withdrawal.
type Contract interface {
	// Address is the asset identifier of this token.
	Address() core.Asset

	// BalanceOf returns the token-level balance of account.
	BalanceOf(account common.Address) core.Amount

	// Transfer moves amount from caller's own holdings to recipient.
	Transfer(caller, recipient common.Address, amount core.Amount) error

	// TransferFrom moves amount from owner to recipient, spending caller's
	// allowance granted by owner.
	TransferFrom(caller, owner, recipient common.Address, amount core.Amount) error
}

// Registry resolves asset identifiers to their token contracts. Assets with
// no registered contract cannot take the non-native deposit/withdraw path.
type Registry struct {
	contracts map[core.Asset]Contract
}

func NewRegistry() *Registry {
	return &Registry{contracts: make(map[core.Asset]Contract)}
}

// Register adds a contract under its own address. Re-registering an address
// replaces the previous contract.
func (r *Registry) Register(c Contract) {
	r.contracts[c.Address()] = c
}

// Resolve returns the contract for asset, or false if none is registered.
func (r *Registry) Resolve(asset core.Asset) (Contract, bool) {
	c, ok := r.contracts[asset]
	return c, ok
}
