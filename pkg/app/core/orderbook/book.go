// Package orderbook implements the append-only order registry with a
// fill/cancel status overlay. Orders are immutable once created; only their
// lifecycle flags move, and only once. Balance movement belongs to the
// exchange layer, not here.
package orderbook

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/spotdex/pkg/app/core"
)

// Order is a resting limit order: the maker wants WantedAmount of
// WantedAsset and offers OfferedAmount of OfferedAsset in exchange.
// Fills are all-or-nothing against the full stated amounts.
type Order struct {
	ID            uint64         `json:"id"` // dense, 1-based, monotonic
	Maker         common.Address `json:"maker"`
	WantedAsset   core.Asset     `json:"wantedAsset"`
	WantedAmount  core.Amount    `json:"wantedAmount"`
	OfferedAsset  core.Asset     `json:"offeredAsset"`
	OfferedAmount core.Amount    `json:"offeredAmount"`
	CreatedAt     int64          `json:"createdAt"` // Unix milliseconds
}

// Book is the order registry. Not self-locked: every call is serialized by
// the owning exchange's mutex, the same discipline the ledger follows.
type Book struct {
	orders    []*Order // index i holds order id i+1
	filled    map[uint64]bool
	cancelled map[uint64]bool
}

func NewBook() *Book {
	return &Book{
		filled:    make(map[uint64]bool),
		cancelled: make(map[uint64]bool),
	}
}

// NextID returns the id the next appended order must carry. Ids are dense,
// 1-based, and monotonically increasing.
func (b *Book) NextID() uint64 {
	return uint64(len(b.orders)) + 1
}

// Append inserts an order at the end of the registry. Orders must arrive in
// id sequence so the registry stays dense; the status flags are non-false
// only when restoring persisted state at startup.
func (b *Book) Append(o *Order, filled, cancelled bool) error {
	if o.ID != b.NextID() {
		return core.ErrUnknownOrder.New("append out of sequence: got id %d, want %d", o.ID, b.NextID())
	}
	b.orders = append(b.orders, o)
	if filled {
		b.filled[o.ID] = true
	}
	if cancelled {
		b.cancelled[o.ID] = true
	}
	return nil
}

// Get returns the order for id, or ErrUnknownOrder if id was never created.
func (b *Book) Get(id uint64) (*Order, error) {
	if id == 0 || id > uint64(len(b.orders)) {
		return nil, core.ErrUnknownOrder.New("id %d out of range (count %d)", id, len(b.orders))
	}
	return b.orders[id-1], nil
}

// Count returns the number of orders ever created.
func (b *Book) Count() uint64 {
	return uint64(len(b.orders))
}

// Filled reports whether the order reached its Filled terminal state.
// Total: false for ids never marked, including out-of-range ids.
func (b *Book) Filled(id uint64) bool {
	return b.filled[id]
}

// Cancelled reports whether the order reached its Cancelled terminal state.
func (b *Book) Cancelled(id uint64) bool {
	return b.cancelled[id]
}

// CheckOpen rejects ids that cannot transition: unknown, already filled, or
// already cancelled. The terminal flags are disjoint and set at most once.
func (b *Book) CheckOpen(id uint64) (*Order, error) {
	o, err := b.Get(id)
	if err != nil {
		return nil, err
	}
	if b.filled[id] {
		return nil, core.ErrAlreadyFilled.New("order %d", id)
	}
	if b.cancelled[id] {
		return nil, core.ErrAlreadyCancelled.New("order %d", id)
	}
	return o, nil
}

// MarkFilled moves an open order to its Filled terminal state.
func (b *Book) MarkFilled(id uint64) error {
	if _, err := b.CheckOpen(id); err != nil {
		return err
	}
	b.filled[id] = true
	return nil
}

// MarkCancelled moves an open order to its Cancelled terminal state.
func (b *Book) MarkCancelled(id uint64) error {
	if _, err := b.CheckOpen(id); err != nil {
		return err
	}
	b.cancelled[id] = true
	return nil
}

// Orders returns a snapshot copy of the registry in id order.
func (b *Book) Orders() []*Order {
	out := make([]*Order, len(b.orders))
	copy(out, b.orders)
	return out
}
