package api

import (
	"math/big"

	"github.com/shopspring/decimal"

	"github.com/uhyunpark/spotdex/pkg/app/core"
)

// API request/response types. Amounts travel as base-unit (wei) decimal
// strings and come back with a human-readable unit rendering alongside.

// ==============================
// Requests
// ==============================

type DepositRequest struct {
	Asset   string `json:"asset"` // omit or zero address for the native asset
	Account string `json:"account"`
	Amount  string `json:"amount"` // base units
}

type WithdrawRequest struct {
	Asset   string `json:"asset"`
	Account string `json:"account"`
	Amount  string `json:"amount"`
}

type MakeOrderRequest struct {
	Maker         string `json:"maker"`
	WantedAsset   string `json:"wantedAsset"`
	WantedAmount  string `json:"wantedAmount"`
	OfferedAsset  string `json:"offeredAsset"`
	OfferedAmount string `json:"offeredAmount"`
}

type FillOrderRequest struct {
	Taker string `json:"taker"`
}

type CancelOrderRequest struct {
	Caller string `json:"caller"`
}

// ==============================
// Responses
// ==============================

type BalanceInfo struct {
	Asset    string `json:"asset"`
	Account  string `json:"account"`
	Balance  string `json:"balance"`      // base units
	Rendered string `json:"balanceUnits"` // 18-decimal rendering
}

type OrderInfo struct {
	ID            uint64 `json:"id"`
	Maker         string `json:"maker"`
	WantedAsset   string `json:"wantedAsset"`
	WantedAmount  string `json:"wantedAmount"`
	OfferedAsset  string `json:"offeredAsset"`
	OfferedAmount string `json:"offeredAmount"`
	CreatedAt     int64  `json:"createdAt"`
	Filled        bool   `json:"filled"`
	Cancelled     bool   `json:"cancelled"`
}

type MakeOrderResponse struct {
	ID uint64 `json:"id"`
}

type FeeInfo struct {
	FeeAccount string `json:"feeAccount"`
	FeePercent uint64 `json:"feePercent"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// formatUnits renders a base-unit amount with 18 decimals, the convention
// shared by the native asset and standard tokens.
func formatUnits(amount core.Amount) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -18).String()
}
