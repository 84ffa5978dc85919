package token

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/uhyunpark/spotdex/pkg/app/core"
)

// Standard is an in-process fungible token with the usual
// transfer/approve/transferFrom semantics: transfers require balance,
// delegated transfers additionally require a prior allowance and decrement
// both. It backs devnet assets and the collaborator side of tests.
type Standard struct {
	name     string
	symbol   string
	decimals uint8
	addr     core.Asset

	mu          sync.RWMutex
	totalSupply core.Amount
	balances    map[common.Address]core.Amount
	allowances  map[common.Address]map[common.Address]core.Amount // owner -> spender -> remaining
}

// NewStandard mints totalSupply to owner. The asset address is derived from
// the symbol so a token keeps its identity across restarts.
func NewStandard(name, symbol string, totalSupply core.Amount, owner common.Address) *Standard {
	t := &Standard{
		name:        name,
		symbol:      symbol,
		decimals:    18,
		addr:        common.BytesToAddress(crypto.Keccak256([]byte("spotdex/token/" + symbol))[12:]),
		totalSupply: totalSupply,
		balances:    map[common.Address]core.Amount{owner: totalSupply},
		allowances:  make(map[common.Address]map[common.Address]core.Amount),
	}
	return t
}

func (t *Standard) Name() string { return t.name }

func (t *Standard) Symbol() string { return t.symbol }

func (t *Standard) Decimals() uint8 { return t.decimals }

func (t *Standard) Address() core.Asset { return t.addr }

func (t *Standard) TotalSupply() core.Amount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.totalSupply
}

func (t *Standard) BalanceOf(account common.Address) core.Amount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.balances[account]
}

// Allowance returns what spender may still move out of owner's holdings.
func (t *Standard) Allowance(owner, spender common.Address) core.Amount {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.allowances[owner][spender]
}

// Approve sets spender's allowance over caller's holdings to amount,
// replacing any previous value.
func (t *Standard) Approve(caller, spender common.Address, amount core.Amount) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.allowances[caller] == nil {
		t.allowances[caller] = make(map[common.Address]core.Amount)
	}
	t.allowances[caller][spender] = amount
}

// Transfer moves amount from caller to recipient.
func (t *Standard) Transfer(caller, recipient common.Address, amount core.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(caller, recipient, amount)
}

// TransferFrom moves amount from owner to recipient, consuming caller's
// allowance. The allowance check runs before the balance move so a refused
// pull leaves both sides untouched.
func (t *Standard) TransferFrom(caller, owner, recipient common.Address, amount core.Amount) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	remaining := t.allowances[owner][caller]
	if remaining < amount {
		return core.ErrExternalTransfer.New("%s: allowance %d below %d", t.symbol, remaining, amount)
	}
	if err := t.move(owner, recipient, amount); err != nil {
		return err
	}
	if t.allowances[owner] == nil {
		t.allowances[owner] = make(map[common.Address]core.Amount)
	}
	t.allowances[owner][caller] = remaining - amount
	return nil
}

// move assumes the lock is held.
func (t *Standard) move(from, to common.Address, amount core.Amount) error {
	if t.balances[from] < amount {
		return core.ErrExternalTransfer.New("%s: balance %d below %d", t.symbol, t.balances[from], amount)
	}
	next, ok := core.AddAmount(t.balances[to], amount)
	if !ok {
		return core.ErrExternalTransfer.New("%s: credit to %s wraps", t.symbol, to.Hex())
	}
	t.balances[from] -= amount
	t.balances[to] = next
	return nil
}
