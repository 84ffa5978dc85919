// Package events defines the exchange's notification stream: an ordered,
// append-only sequence of typed records that consumers can replay to rebuild
// read models (balances view, client-side order book). The exchange only
// produces records; delivery to any sink is best-effort and never fails the
// operation that emitted them.
package events

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/uhyunpark/spotdex/pkg/app/core"
)

// Type discriminates record payloads.
type Type string

const (
	TypeDeposit  Type = "deposit"
	TypeWithdraw Type = "withdraw"
	TypeOrder    Type = "order"
	TypeTrade    Type = "trade"
	TypeCancel   Type = "cancel"
)

// Record is the envelope written to every sink. Seq is dense and assigned
// under the exchange's serialization point, so the stream order matches the
// execution order of the operations that produced it.
type Record struct {
	Seq  uint64 `json:"seq"`
	Type Type   `json:"type"`
	Data any    `json:"data"`
}

// Deposit reports a credit, carrying the resulting balance so consumers
// need no prior state.
type Deposit struct {
	Asset   core.Asset     `json:"asset"`
	Account common.Address `json:"account"`
	Amount  core.Amount    `json:"amount"`
	Balance core.Amount    `json:"balance"`
}

// Withdraw reports a debit with the resulting balance.
type Withdraw struct {
	Asset   core.Asset     `json:"asset"`
	Account common.Address `json:"account"`
	Amount  core.Amount    `json:"amount"`
	Balance core.Amount    `json:"balance"`
}

// Order reports a newly created order.
type Order struct {
	ID            uint64         `json:"id"`
	Maker         common.Address `json:"maker"`
	WantedAsset   core.Asset     `json:"wantedAsset"`
	WantedAmount  core.Amount    `json:"wantedAmount"`
	OfferedAsset  core.Asset     `json:"offeredAsset"`
	OfferedAmount core.Amount    `json:"offeredAmount"`
	Timestamp     int64          `json:"timestamp"` // Unix milliseconds
}

// Trade reports a completed all-or-nothing fill. Timestamp is the fill
// time, not the order's creation time.
type Trade struct {
	ID            uint64         `json:"id"`
	Maker         common.Address `json:"maker"`
	WantedAsset   core.Asset     `json:"wantedAsset"`
	WantedAmount  core.Amount    `json:"wantedAmount"`
	OfferedAsset  core.Asset     `json:"offeredAsset"`
	OfferedAmount core.Amount    `json:"offeredAmount"`
	Taker         common.Address `json:"taker"`
	Timestamp     int64          `json:"timestamp"`
}

// Cancel reports a maker cancelling their own open order.
type Cancel struct {
	ID            uint64         `json:"id"`
	Maker         common.Address `json:"maker"`
	WantedAsset   core.Asset     `json:"wantedAsset"`
	WantedAmount  core.Amount    `json:"wantedAmount"`
	OfferedAsset  core.Asset     `json:"offeredAsset"`
	OfferedAmount core.Amount    `json:"offeredAmount"`
	Timestamp     int64          `json:"timestamp"`
}
