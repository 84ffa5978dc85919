// Package exchange is the accounting and order-matching core: it custodies
// balances for multiple fungible assets and executes all-or-nothing limit
// orders against them, charging the taker a percentage fee on the wanted
// amount. One mutex is the global serialization point for every mutation;
// reads take the read lock and always observe a consistent snapshot, never a
// balance mid-update from a four-legged trade.
package exchange

import (
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/uhyunpark/spotdex/pkg/app/core"
	"github.com/uhyunpark/spotdex/pkg/app/core/ledger"
	"github.com/uhyunpark/spotdex/pkg/app/core/orderbook"
	"github.com/uhyunpark/spotdex/pkg/app/core/token"
	"github.com/uhyunpark/spotdex/pkg/events"
	"github.com/uhyunpark/spotdex/pkg/util"
)

// Vault is the token-level account that custodies every deposited token:
// non-native deposits pull into it, withdrawals push out of it.
var Vault = common.BytesToAddress(crypto.Keccak256([]byte("spotdex/vault"))[12:])

// Config fixes the fee parameters for the lifetime of the instance.
type Config struct {
	FeeAccount common.Address // credited with the taker fee on every fill
	FeePercent uint64         // integer percentage applied to the wanted amount
}

// Exchange wires the balance ledger, the order registry, the token
// collaborators, and the notification feed behind a single mutex.
type Exchange struct {
	feeAccount common.Address
	feePercent uint64

	mu     sync.RWMutex
	ledger *ledger.Ledger
	book   *orderbook.Book
	tokens *token.Registry
	store  *ledger.Store // nil for an ephemeral exchange

	feed  *events.Feed
	clock util.Clock
	log   *zap.SugaredLogger
}

// Option adjusts construction-time collaborators.
type Option func(*Exchange)

// WithClock substitutes the timestamp source, mainly for tests.
func WithClock(c util.Clock) Option {
	return func(x *Exchange) { x.clock = c }
}

// WithLogger attaches a structured logger.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(x *Exchange) { x.log = log }
}

// New creates an ephemeral exchange with no persistence.
func New(cfg Config, opts ...Option) *Exchange {
	x := &Exchange{
		feeAccount: cfg.FeeAccount,
		feePercent: cfg.FeePercent,
		ledger:     ledger.New(),
		book:       orderbook.NewBook(),
		tokens:     token.NewRegistry(),
		clock:      util.RealClock{},
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(x)
	}
	x.feed = events.NewFeed(x.log)
	return x
}

// Open creates an exchange backed by a Pebble database at dbPath, reloading
// every persisted balance and order so a restarted node resumes where it
// stopped.
func Open(cfg Config, dbPath string, opts ...Option) (*Exchange, error) {
	store, err := ledger.NewStore(dbPath)
	if err != nil {
		return nil, err
	}

	led, err := ledger.Open(store)
	if err != nil {
		store.Close()
		return nil, err
	}

	book := orderbook.NewBook()
	err = store.LoadOrders(func(o *orderbook.Order, filled, cancelled bool) error {
		return book.Append(o, filled, cancelled)
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	x := &Exchange{
		feeAccount: cfg.FeeAccount,
		feePercent: cfg.FeePercent,
		ledger:     led,
		book:       book,
		tokens:     token.NewRegistry(),
		store:      store,
		clock:      util.RealClock{},
		log:        zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(x)
	}
	x.feed = events.NewFeed(x.log)
	x.log.Infow("exchange_state_reloaded", "orders", book.Count())
	return x, nil
}

// Close releases the underlying database, if any.
func (x *Exchange) Close() error {
	if x.store == nil {
		return nil
	}
	return x.store.Close()
}

// Feed exposes the notification stream for sink attachment and replay.
func (x *Exchange) Feed() *events.Feed { return x.feed }

// FeeAccount returns the account credited with taker fees. Immutable.
func (x *Exchange) FeeAccount() common.Address { return x.feeAccount }

// FeePercent returns the taker fee rate. Immutable.
func (x *Exchange) FeePercent() uint64 { return x.feePercent }

// RegisterToken makes a token contract available as a deposit/withdraw
// asset under its own address.
func (x *Exchange) RegisterToken(c token.Contract) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.tokens.Register(c)
}

// DepositEther credits an inbound native-value transfer: the amount is
// whatever value accompanied the call. Returns the resulting balance.
func (x *Exchange) DepositEther(account common.Address, amount core.Amount) (core.Amount, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	balance, err := x.ledger.Credit(core.NativeAsset, account, amount)
	if err != nil {
		return 0, err
	}
	x.feed.Emit(events.TypeDeposit, events.Deposit{
		Asset: core.NativeAsset, Account: account, Amount: amount, Balance: balance,
	})
	return balance, nil
}

// WithdrawEther debits native value back to the account. The outbound value
// transfer itself is the transport's concern; the ledger debit and the
// Withdraw record are the core's.
func (x *Exchange) WithdrawEther(account common.Address, amount core.Amount) (core.Amount, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	balance, err := x.ledger.Debit(core.NativeAsset, account, amount)
	if err != nil {
		return 0, err
	}
	x.feed.Emit(events.TypeWithdraw, events.Withdraw{
		Asset: core.NativeAsset, Account: account, Amount: amount, Balance: balance,
	})
	return balance, nil
}

// DepositToken pulls amount of a non-native asset from the account's token
// contract balance (requires a prior approval for the Vault) and credits the
// ledger. The whole deposit fails atomically if the pull is refused.
func (x *Exchange) DepositToken(asset core.Asset, account common.Address, amount core.Amount) (core.Amount, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	contract, err := x.resolveToken(asset)
	if err != nil {
		return 0, err
	}

	// Reject a wrapping credit before touching the external contract, so a
	// successful pull can always be committed.
	if _, ok := core.AddAmount(x.ledger.BalanceOf(asset, account), amount); !ok {
		return 0, core.ErrArithmeticOverflow.New("deposit %d wraps balance of %s", amount, account.Hex())
	}

	if err := contract.TransferFrom(Vault, account, Vault, amount); err != nil {
		return 0, core.ErrExternalTransfer.Wrap(err)
	}

	balance, err := x.ledger.Credit(asset, account, amount)
	if err != nil {
		return 0, err
	}
	x.feed.Emit(events.TypeDeposit, events.Deposit{
		Asset: asset, Account: account, Amount: amount, Balance: balance,
	})
	return balance, nil
}

// WithdrawToken pushes amount of a non-native asset back to the account via
// its token contract, then debits the ledger. A refused push rolls the whole
// withdrawal back; the debit is never observable without the transfer.
func (x *Exchange) WithdrawToken(asset core.Asset, account common.Address, amount core.Amount) (core.Amount, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	contract, err := x.resolveToken(asset)
	if err != nil {
		return 0, err
	}

	if have := x.ledger.BalanceOf(asset, account); have < amount {
		return 0, core.ErrInsufficientBalance.New("have %d, need %d", have, amount)
	}

	if err := contract.Transfer(Vault, account, amount); err != nil {
		return 0, core.ErrExternalTransfer.Wrap(err)
	}

	balance, err := x.ledger.Debit(asset, account, amount)
	if err != nil {
		return 0, err
	}
	x.feed.Emit(events.TypeWithdraw, events.Withdraw{
		Asset: asset, Account: account, Amount: amount, Balance: balance,
	})
	return balance, nil
}

// resolveToken guards the non-native paths: the native sentinel is rejected
// outright, and so is an asset with no registered contract.
func (x *Exchange) resolveToken(asset core.Asset) (token.Contract, error) {
	if asset == core.NativeAsset {
		return nil, core.ErrInvalidAsset.New("native sentinel on the token path")
	}
	contract, ok := x.tokens.Resolve(asset)
	if !ok {
		return nil, core.ErrInvalidAsset.New("no token registered at %s", asset.Hex())
	}
	return contract, nil
}

// BalanceOf returns the ledger balance for (asset, account), zero for pairs
// never credited.
func (x *Exchange) BalanceOf(asset core.Asset, account common.Address) core.Amount {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.ledger.BalanceOf(asset, account)
}

// MakeOrder registers a limit order and returns its id. No balance check
// happens here: an underfunded order is created all the same and fails at
// fill time.
func (x *Exchange) MakeOrder(maker common.Address, wantedAsset core.Asset, wantedAmount core.Amount, offeredAsset core.Asset, offeredAmount core.Amount) (uint64, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	o := &orderbook.Order{
		ID:            x.book.NextID(),
		Maker:         maker,
		WantedAsset:   wantedAsset,
		WantedAmount:  wantedAmount,
		OfferedAsset:  offeredAsset,
		OfferedAmount: offeredAmount,
		CreatedAt:     x.clock.Now().UnixMilli(),
	}
	if x.store != nil {
		if err := x.store.SetOrder(o, false, false); err != nil {
			return 0, err
		}
	}
	if err := x.book.Append(o, false, false); err != nil {
		return 0, err
	}

	x.feed.Emit(events.TypeOrder, events.Order{
		ID: o.ID, Maker: o.Maker,
		WantedAsset: o.WantedAsset, WantedAmount: o.WantedAmount,
		OfferedAsset: o.OfferedAsset, OfferedAmount: o.OfferedAmount,
		Timestamp: o.CreatedAt,
	})
	return o.ID, nil
}

// FillOrder executes a trade against a previously made order, all four legs
// as a single unit: the taker pays the wanted amount plus fee, the maker
// receives the wanted amount, the fee account receives the fee, and the
// maker's offered amount moves to the taker. Any insufficient balance aborts
// the whole fill; no partial execution is ever observable. The maker filling
// their own order is allowed and simply costs them the fee.
func (x *Exchange) FillOrder(taker common.Address, id uint64) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	o, err := x.book.CheckOpen(id)
	if err != nil {
		return err
	}

	fee, err := ComputeFee(o.WantedAmount, x.feePercent)
	if err != nil {
		return err
	}

	staged, err := x.ledger.Stage([]ledger.Move{
		{Asset: o.WantedAsset, From: taker, To: o.Maker, Amount: o.WantedAmount},
		{Asset: o.WantedAsset, From: taker, To: x.feeAccount, Amount: fee},
		{Asset: o.OfferedAsset, From: o.Maker, To: taker, Amount: o.OfferedAmount},
	})
	if err != nil {
		return err
	}

	// Balance deltas and the filled flag land in one atomic batch.
	if x.store != nil {
		batch := x.store.NewBatch()
		defer batch.Close()
		for key, bal := range staged {
			if err := batch.SetBalance(key.Asset, key.Account, bal); err != nil {
				return err
			}
		}
		if err := batch.SetOrder(o, true, false); err != nil {
			return err
		}
		if err := batch.Commit(); err != nil {
			return err
		}
	}

	x.ledger.Commit(staged)
	if err := x.book.MarkFilled(id); err != nil {
		// CheckOpen held under the same lock; this cannot happen.
		return err
	}

	x.feed.Emit(events.TypeTrade, events.Trade{
		ID: o.ID, Maker: o.Maker,
		WantedAsset: o.WantedAsset, WantedAmount: o.WantedAmount,
		OfferedAsset: o.OfferedAsset, OfferedAmount: o.OfferedAmount,
		Taker: taker, Timestamp: x.clock.Now().UnixMilli(),
	})
	return nil
}

// CancelOrder moves the caller's own open order to its Cancelled terminal
// state. Only the maker may cancel.
func (x *Exchange) CancelOrder(caller common.Address, id uint64) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	o, err := x.book.Get(id)
	if err != nil {
		return err
	}
	if o.Maker != caller {
		return core.ErrNotOrderOwner.New("order %d belongs to %s", id, o.Maker.Hex())
	}
	if _, err := x.book.CheckOpen(id); err != nil {
		return err
	}

	if x.store != nil {
		if err := x.store.SetOrder(o, false, true); err != nil {
			return err
		}
	}
	if err := x.book.MarkCancelled(id); err != nil {
		return err
	}

	x.feed.Emit(events.TypeCancel, events.Cancel{
		ID: o.ID, Maker: o.Maker,
		WantedAsset: o.WantedAsset, WantedAmount: o.WantedAmount,
		OfferedAsset: o.OfferedAsset, OfferedAmount: o.OfferedAmount,
		Timestamp: x.clock.Now().UnixMilli(),
	})
	return nil
}

// OrderFilled reports whether id reached its Filled state. Total: false for
// any id never marked, including out-of-range ids.
func (x *Exchange) OrderFilled(id uint64) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.book.Filled(id)
}

// OrderCancelled reports whether id reached its Cancelled state. Total.
func (x *Exchange) OrderCancelled(id uint64) bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.book.Cancelled(id)
}

// OrderCount returns the number of orders ever created.
func (x *Exchange) OrderCount() uint64 {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.book.Count()
}

// Order returns the order for id, or ErrUnknownOrder.
func (x *Exchange) Order(id uint64) (*orderbook.Order, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.book.Get(id)
}

// Orders returns a snapshot of every order ever created, in id order.
func (x *Exchange) Orders() []*orderbook.Order {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.book.Orders()
}
