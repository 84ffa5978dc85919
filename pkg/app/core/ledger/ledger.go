// Package ledger custodies per-(asset, account) balances. Entries appear on
// first credit and are never destroyed; a zero balance is a valid, permanent
// entry. Total supply per asset only grows via Credit and shrinks via Debit,
// so every internal move conserves it.
package ledger

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/spotdex/pkg/app/core"
)

// BalanceKey identifies one ledger entry.
type BalanceKey struct {
	Asset   core.Asset
	Account common.Address
}

// Ledger is a sparse balance map with defaulted lookups: an account never
// seen before reads as zero. Not self-locked; the owning exchange's mutex is
// the single serialization point for all mutations.
type Ledger struct {
	balances map[BalanceKey]core.Amount
	store    *Store // nil for an ephemeral ledger (tests)
}

// New creates an ephemeral ledger with no persistence.
func New() *Ledger {
	return &Ledger{balances: make(map[BalanceKey]core.Amount)}
}

// Open creates a ledger backed by store and reloads every persisted balance.
func Open(store *Store) (*Ledger, error) {
	l := &Ledger{
		balances: make(map[BalanceKey]core.Amount),
		store:    store,
	}
	err := store.LoadBalances(func(asset core.Asset, account common.Address, amount core.Amount) {
		l.balances[BalanceKey{Asset: asset, Account: account}] = amount
	})
	if err != nil {
		return nil, err
	}
	return l, nil
}

// BalanceOf returns the balance for (asset, account), zero for entries never
// credited. Read-only.
func (l *Ledger) BalanceOf(asset core.Asset, account common.Address) core.Amount {
	return l.balances[BalanceKey{Asset: asset, Account: account}]
}

// Credit adds amount to (asset, account) and returns the resulting balance.
// The write is persisted before the in-memory balance moves, so a storage
// failure leaves the ledger untouched.
func (l *Ledger) Credit(asset core.Asset, account common.Address, amount core.Amount) (core.Amount, error) {
	key := BalanceKey{Asset: asset, Account: account}
	next, ok := core.AddAmount(l.balances[key], amount)
	if !ok {
		return 0, core.ErrArithmeticOverflow.New("credit %d to %s wraps balance %d", amount, account.Hex(), l.balances[key])
	}
	if l.store != nil {
		if err := l.store.SetBalance(asset, account, next); err != nil {
			return 0, err
		}
	}
	l.balances[key] = next
	return next, nil
}

// Debit removes amount from (asset, account) and returns the resulting
// balance. Strict pre-check: the balance must cover the full amount.
func (l *Ledger) Debit(asset core.Asset, account common.Address, amount core.Amount) (core.Amount, error) {
	key := BalanceKey{Asset: asset, Account: account}
	cur := l.balances[key]
	if cur < amount {
		return 0, core.ErrInsufficientBalance.New("have %d, need %d", cur, amount)
	}
	next := cur - amount
	if l.store != nil {
		if err := l.store.SetBalance(asset, account, next); err != nil {
			return 0, err
		}
	}
	l.balances[key] = next
	return next, nil
}

// Move is one leg of an internal transfer: Amount of Asset from From to To.
type Move struct {
	Asset  core.Asset
	From   common.Address
	To     common.Address
	Amount core.Amount
}

// Transfer moves value between two accounts with no external interaction.
// Atomic: both legs succeed or neither does.
func (l *Ledger) Transfer(asset core.Asset, from, to common.Address, amount core.Amount) error {
	staged, err := l.Stage([]Move{{Asset: asset, From: from, To: to, Amount: amount}})
	if err != nil {
		return err
	}
	if l.store != nil {
		batch := l.store.NewBatch()
		defer batch.Close()
		for key, bal := range staged {
			if err := batch.SetBalance(key.Asset, key.Account, bal); err != nil {
				return err
			}
		}
		if err := batch.Commit(); err != nil {
			return err
		}
	}
	l.Commit(staged)
	return nil
}

// Stage validates a multi-leg transfer against a scratch copy of the touched
// balances and returns the resulting entries. Nothing is mutated: every debit
// is checked against the staged (not current) balance, so a later leg sees
// the effect of an earlier one. Callers apply the result with Commit, typically
// after persisting it in the same batch as any order-status change.
func (l *Ledger) Stage(moves []Move) (map[BalanceKey]core.Amount, error) {
	staged := make(map[BalanceKey]core.Amount)
	read := func(key BalanceKey) core.Amount {
		if bal, ok := staged[key]; ok {
			return bal
		}
		return l.balances[key]
	}

	for _, m := range moves {
		fromKey := BalanceKey{Asset: m.Asset, Account: m.From}
		fromBal := read(fromKey)
		if fromBal < m.Amount {
			return nil, core.ErrInsufficientBalance.New("account %s: have %d, need %d", m.From.Hex(), fromBal, m.Amount)
		}
		staged[fromKey] = fromBal - m.Amount

		toKey := BalanceKey{Asset: m.Asset, Account: m.To}
		toBal, ok := core.AddAmount(read(toKey), m.Amount)
		if !ok {
			return nil, core.ErrArithmeticOverflow.New("credit %d to %s wraps", m.Amount, m.To.Hex())
		}
		staged[toKey] = toBal
	}
	return staged, nil
}

// Commit applies staged balances to the in-memory ledger. Infallible by
// construction: Stage already validated every entry.
func (l *Ledger) Commit(staged map[BalanceKey]core.Amount) {
	for key, bal := range staged {
		l.balances[key] = bal
	}
}
