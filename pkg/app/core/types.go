// Package core holds the shared types and error kinds of the exchange
// state machine: asset/account identifiers and overflow-checked amount
// arithmetic used by the ledger and order book.
package core

import (
	"math/bits"

	"github.com/ethereum/go-ethereum/common"
)

// Asset identifies a fungible asset tracked by the ledger.
// The native asset uses the reserved zero-address sentinel; every other
// asset is identified by the address of its token contract.
type Asset = common.Address

// NativeAsset is the reserved sentinel for the chain's base value unit.
var NativeAsset = common.Address{}

// Amount is a balance or transfer quantity in the asset's smallest unit
// (wei for the native asset). Amounts are never negative; arithmetic on
// them must go through the checked helpers below.
type Amount = uint64

// Ether is one native unit in wei. Tokens follow the same 18-decimal
// convention.
const Ether Amount = 1e18

// AddAmount returns a+b and reports whether the sum fits in 64 bits.
func AddAmount(a, b Amount) (Amount, bool) {
	sum, carry := bits.Add64(a, b, 0)
	return sum, carry == 0
}

// MulDiv returns floor(a*b/d) using a 128-bit intermediate product so the
// multiply cannot wrap. Reports false if the quotient itself exceeds 64 bits
// or d is zero.
func MulDiv(a, b, d Amount) (Amount, bool) {
	if d == 0 {
		return 0, false
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= d {
		return 0, false // quotient would overflow, Div64 would panic
	}
	q, _ := bits.Div64(hi, lo, d)
	return q, true
}
