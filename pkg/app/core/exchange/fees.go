package exchange

import "github.com/uhyunpark/spotdex/pkg/app/core"

// ComputeFee returns the taker fee charged on a trade's wanted amount:
// floor(wantedAmount × feePercent / 100). Truncation toward zero, never
// rounding up. Pure; the only failure mode is a quotient that does not fit
// in 64 bits, which is rejected rather than wrapped.
func ComputeFee(wantedAmount core.Amount, feePercent uint64) (core.Amount, error) {
	fee, ok := core.MulDiv(wantedAmount, feePercent, 100)
	if !ok {
		return 0, core.ErrArithmeticOverflow.New("fee on %d at %d%%", wantedAmount, feePercent)
	}
	return fee, nil
}
