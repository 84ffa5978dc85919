package core

import (
	"math"
	"testing"
)

func TestAddAmount(t *testing.T) {
	if sum, ok := AddAmount(1, 2); !ok || sum != 3 {
		t.Errorf("AddAmount(1, 2) = %d, %v", sum, ok)
	}
	if _, ok := AddAmount(math.MaxUint64, 1); ok {
		t.Error("expected overflow for MaxUint64 + 1")
	}
	if sum, ok := AddAmount(math.MaxUint64, 0); !ok || sum != math.MaxUint64 {
		t.Errorf("MaxUint64 + 0 = %d, %v", sum, ok)
	}
}

func TestMulDiv(t *testing.T) {
	// floor(10 * 10 / 100) = 1
	if q, ok := MulDiv(10, 10, 100); !ok || q != 1 {
		t.Errorf("MulDiv(10, 10, 100) = %d, %v", q, ok)
	}
	// truncation toward zero, never rounding up
	if q, ok := MulDiv(19, 10, 100); !ok || q != 1 {
		t.Errorf("MulDiv(19, 10, 100) = %d, %v, want 1", q, ok)
	}
	// 128-bit intermediate: the product wraps 64 bits, the quotient does not
	if q, ok := MulDiv(math.MaxUint64, 10, 100); !ok || q != math.MaxUint64/10 {
		t.Errorf("MulDiv(MaxUint64, 10, 100) = %d, %v", q, ok)
	}
	// quotient overflow is rejected
	if _, ok := MulDiv(math.MaxUint64, 200, 100); ok {
		t.Error("expected overflow for MaxUint64 * 200 / 100")
	}
	// zero divisor
	if _, ok := MulDiv(1, 1, 0); ok {
		t.Error("expected failure for zero divisor")
	}
}
