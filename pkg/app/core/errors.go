package core

import "github.com/zeebo/errs"

// Error kinds surfaced by the exchange state machine. Every failure is
// synchronous, reported to the immediate caller, and leaves all ledger and
// order state exactly as it was before the call. Callers match kinds with
// Class.Has; the wrapped message carries the specifics.
var (
	// ErrInsufficientBalance: a debit exceeds the current balance.
	ErrInsufficientBalance = errs.Class("insufficient balance")

	// ErrUnknownOrder: the order id is outside the range of ever-created orders.
	ErrUnknownOrder = errs.Class("unknown order")

	// ErrAlreadyFilled: the order already reached its Filled terminal state.
	ErrAlreadyFilled = errs.Class("order already filled")

	// ErrAlreadyCancelled: the order already reached its Cancelled terminal state.
	ErrAlreadyCancelled = errs.Class("order already cancelled")

	// ErrNotOrderOwner: only the maker may cancel an order.
	ErrNotOrderOwner = errs.Class("not order owner")

	// ErrInvalidAsset: the native sentinel was used where a token asset is
	// required, or no token contract is registered for the asset.
	ErrInvalidAsset = errs.Class("invalid asset")

	// ErrExternalTransfer: the token contract refused a pull or push.
	ErrExternalTransfer = errs.Class("external transfer failed")

	// ErrArithmeticOverflow: a balance or fee computation would exceed the
	// 64-bit amount range.
	ErrArithmeticOverflow = errs.Class("arithmetic overflow")
)
