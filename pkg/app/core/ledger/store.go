package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/spotdex/pkg/app/core"
	"github.com/uhyunpark/spotdex/pkg/app/core/orderbook"
)

// Store provides Pebble-based persistence for ledger balances and orders.
// Thread-safe: all operations go through the exchange's mutex.
type Store struct {
	db *pebble.DB
}

// NewStore opens a Pebble database at the given path.
func NewStore(dbPath string) (*Store, error) {
	opts := &pebble.Options{
		Cache:                    pebble.NewCache(128 << 20), // 128MB cache
		MemTableSize:             64 << 20,                   // 64MB memtable
		MaxConcurrentCompactions: func() int { return 3 },
		L0CompactionThreshold:    2,
		L0StopWritesThreshold:    12,
		LBaseMaxBytes:            64 << 20,
		MaxOpenFiles:             1000,
		BytesPerSync:             512 << 10,
	}

	db, err := pebble.Open(dbPath, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble db at %s: %w", dbPath, err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

type balanceRecord struct {
	Asset   core.Asset     `json:"asset"`
	Account common.Address `json:"account"`
	Amount  core.Amount    `json:"amount"`
}

// orderRecord stores the immutable order together with its lifecycle flags.
type orderRecord struct {
	Order     *orderbook.Order `json:"order"`
	Filled    bool             `json:"filled"`
	Cancelled bool             `json:"cancelled"`
}

// SetBalance persists one (asset, account) balance.
func (s *Store) SetBalance(asset core.Asset, account common.Address, amount core.Amount) error {
	data, err := json.Marshal(balanceRecord{Asset: asset, Account: account, Amount: amount})
	if err != nil {
		return fmt.Errorf("failed to marshal balance: %w", err)
	}
	if err := s.db.Set(balanceDBKey(asset, account), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

// SetOrder persists an order and its status flags.
func (s *Store) SetOrder(o *orderbook.Order, filled, cancelled bool) error {
	data, err := json.Marshal(orderRecord{Order: o, Filled: filled, Cancelled: cancelled})
	if err != nil {
		return fmt.Errorf("failed to marshal order: %w", err)
	}
	if err := s.db.Set(orderDBKey(o.ID), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save order: %w", err)
	}
	return nil
}

// LoadBalances scans every persisted balance entry.
func (s *Store) LoadBalances(fn func(asset core.Asset, account common.Address, amount core.Amount)) error {
	prefix := []byte(prefixBalance)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var rec balanceRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue // skip invalid entries
		}
		fn(rec.Asset, rec.Account, rec.Amount)
	}
	return nil
}

// LoadOrders scans persisted orders in creation sequence.
func (s *Store) LoadOrders(fn func(o *orderbook.Order, filled, cancelled bool) error) error {
	prefix := []byte(prefixOrder)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return fmt.Errorf("failed to create iterator: %w", err)
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		var rec orderRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue // skip invalid entries
		}
		if err := fn(rec.Order, rec.Filled, rec.Cancelled); err != nil {
			return err
		}
	}
	return nil
}

// Batch provides atomic multi-key writes: a four-legged trade commits its
// balance deltas and the order's filled flag as a single Pebble batch.
type Batch struct {
	batch *pebble.Batch
}

// NewBatch creates a new batch writer.
func (s *Store) NewBatch() *Batch {
	return &Batch{batch: s.db.NewBatch()}
}

// SetBalance adds a balance write to the batch.
func (b *Batch) SetBalance(asset core.Asset, account common.Address, amount core.Amount) error {
	data, err := json.Marshal(balanceRecord{Asset: asset, Account: account, Amount: amount})
	if err != nil {
		return err
	}
	return b.batch.Set(balanceDBKey(asset, account), data, nil)
}

// SetOrder adds an order write to the batch.
func (b *Batch) SetOrder(o *orderbook.Order, filled, cancelled bool) error {
	data, err := json.Marshal(orderRecord{Order: o, Filled: filled, Cancelled: cancelled})
	if err != nil {
		return err
	}
	return b.batch.Set(orderDBKey(o.ID), data, nil)
}

// Commit writes the batch to Pebble atomically.
func (b *Batch) Commit() error {
	return b.batch.Commit(pebble.Sync)
}

// Close closes the batch without committing.
func (b *Batch) Close() error {
	return b.batch.Close()
}
