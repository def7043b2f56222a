// Package fixedpoint provides checked, overflow-safe integer arithmetic at
// fixed bit widths. Every higher-level calculation in this module routes
// through these types instead of native int64/uint64 so that overflow is
// caught explicitly rather than wrapping silently.
package fixedpoint

import (
	"fmt"
	"math/big"

	sdkmath "cosmossdk.io/math"

	"github.com/margined-protocol/perp-margin-core/pkg/clearingerrors"
)

const (
	// Bits128 is the width enforced by I128 and U128.
	Bits128 = 128
	// Bits192 is the width enforced by U192, the widening accumulator used
	// for mul-then-div sequences that would otherwise overflow 128 bits.
	Bits192 = 192
)

var (
	maxI128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minI128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	maxU192 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 192), big.NewInt(1))
)

// I128 is a checked signed integer bounded to the [-2^127, 2^127-1] range.
type I128 struct {
	v sdkmath.Int
}

// U128 is a checked unsigned integer bounded to the [0, 2^128-1] range.
type U128 struct {
	v sdkmath.Uint
}

// U192 is a checked unsigned integer bounded to the [0, 2^192-1] range. It
// exists solely as an intermediate widening type: construct it from a
// product that might exceed 128 bits, divide it down, then narrow back to
// U128/I128.
type U192 struct {
	v sdkmath.Uint
}

// ---- constructors ----

// I128FromInt64 builds an I128 from a native int64.
func I128FromInt64(x int64) I128 {
	return I128{v: sdkmath.NewInt(x)}
}

// I128FromBigInt builds a checked I128 from a big.Int, failing if it does
// not fit in 128 bits.
func I128FromBigInt(op string, x *big.Int) (I128, error) {
	if x.Cmp(minI128) < 0 || x.Cmp(maxI128) > 0 {
		return I128{}, clearingerrors.Mathf(op, fmt.Errorf("value %s overflows i128", x.String()))
	}
	return I128{v: sdkmath.NewIntFromBigInt(x)}, nil
}

// U128FromUint64 builds a U128 from a native uint64.
func U128FromUint64(x uint64) U128 {
	return U128{v: sdkmath.NewUintFromBigInt(new(big.Int).SetUint64(x))}
}

// U128FromBigInt builds a checked U128 from a big.Int, failing if it does
// not fit in 128 bits or is negative.
func U128FromBigInt(op string, x *big.Int) (U128, error) {
	if x.Sign() < 0 || x.Cmp(maxU128) > 0 {
		return U128{}, clearingerrors.Mathf(op, fmt.Errorf("value %s overflows u128", x.String()))
	}
	return U128{v: sdkmath.NewUintFromBigInt(x)}, nil
}

// ZeroI128 returns the zero value of I128.
func ZeroI128() I128 { return I128{v: sdkmath.ZeroInt()} }

// ZeroU128 returns the zero value of U128.
func ZeroU128() U128 { return U128{v: sdkmath.ZeroUint()} }

// ---- accessors ----

// BigInt returns the underlying value as a *big.Int. The returned value is
// a copy and safe to mutate.
func (x I128) BigInt() *big.Int { return new(big.Int).Set(x.v.BigInt()) }

// BigInt returns the underlying value as a *big.Int. The returned value is
// a copy and safe to mutate.
func (x U128) BigInt() *big.Int { return new(big.Int).Set(x.v.BigInt()) }

// BigInt returns the underlying value as a *big.Int. The returned value is
// a copy and safe to mutate.
func (x U192) BigInt() *big.Int { return new(big.Int).Set(x.v.BigInt()) }

// Int64 narrows the value to int64, panicking if it does not fit. Reserved
// for call sites that have already range-checked the value (e.g. market
// indices), never for amounts.
func (x I128) Int64() int64 { return x.v.Int64() }

// Sign returns -1, 0, or 1 depending on the sign of x.
func (x I128) Sign() int { return x.v.BigInt().Sign() }

// IsZero reports whether x is zero.
func (x I128) IsZero() bool { return x.v.IsZero() }

// IsZero reports whether x is zero.
func (x U128) IsZero() bool { return x.v.IsZero() }

// Abs returns the absolute value of x as a U128.
func (x I128) Abs() U128 {
	return U128{v: sdkmath.NewUintFromBigInt(new(big.Int).Abs(x.v.BigInt()))}
}

// Neg returns the checked negation of x.
func (x I128) Neg(op string) (I128, error) {
	return I128FromBigInt(op, new(big.Int).Neg(x.v.BigInt()))
}

// String renders the decimal representation of x.
func (x I128) String() string { return x.v.String() }

// String renders the decimal representation of x.
func (x U128) String() string { return x.v.String() }

// String renders the decimal representation of x.
func (x U192) String() string { return x.v.String() }

// ---- comparisons ----

// Cmp compares x to y, returning -1, 0, or 1.
func (x I128) Cmp(y I128) int { return x.v.BigInt().Cmp(y.v.BigInt()) }

// GTE reports whether x >= y.
func (x I128) GTE(y I128) bool { return x.Cmp(y) >= 0 }

// LT reports whether x < y.
func (x I128) LT(y I128) bool { return x.Cmp(y) < 0 }

// Cmp compares x to y, returning -1, 0, or 1.
func (x U128) Cmp(y U128) int { return x.v.BigInt().Cmp(y.v.BigInt()) }

// GT reports whether x > y.
func (x U128) GT(y U128) bool { return x.Cmp(y) > 0 }

// GTE reports whether x >= y.
func (x U128) GTE(y U128) bool { return x.Cmp(y) >= 0 }

// ---- checked signed arithmetic ----

// Add returns x+y, failing on overflow of the 128-bit range.
func (x I128) Add(op string, y I128) (I128, error) {
	return I128FromBigInt(op, new(big.Int).Add(x.v.BigInt(), y.v.BigInt()))
}

// Sub returns x-y, failing on overflow of the 128-bit range.
func (x I128) Sub(op string, y I128) (I128, error) {
	return I128FromBigInt(op, new(big.Int).Sub(x.v.BigInt(), y.v.BigInt()))
}

// Mul returns x*y, failing on overflow of the 128-bit range.
func (x I128) Mul(op string, y I128) (I128, error) {
	return I128FromBigInt(op, new(big.Int).Mul(x.v.BigInt(), y.v.BigInt()))
}

// Div returns x/y truncated toward zero, matching Go/Rust integer division
// semantics, failing on division by zero.
func (x I128) Div(op string, y I128) (I128, error) {
	if y.IsZero() {
		return I128{}, clearingerrors.Mathf(op, fmt.Errorf("division by zero"))
	}
	return I128FromBigInt(op, new(big.Int).Quo(x.v.BigInt(), y.v.BigInt()))
}

// ---- checked unsigned arithmetic ----

// Add returns x+y, failing on overflow of the 128-bit range.
func (x U128) Add(op string, y U128) (U128, error) {
	return U128FromBigInt(op, new(big.Int).Add(x.v.BigInt(), y.v.BigInt()))
}

// Sub returns x-y, failing if the result would be negative (unsigned
// underflow).
func (x U128) Sub(op string, y U128) (U128, error) {
	r := new(big.Int).Sub(x.v.BigInt(), y.v.BigInt())
	if r.Sign() < 0 {
		return U128{}, clearingerrors.Mathf(op, fmt.Errorf("u128 underflow: %s - %s", x, y))
	}
	return U128FromBigInt(op, r)
}

// Mul returns x*y, failing on overflow of the 128-bit range.
func (x U128) Mul(op string, y U128) (U128, error) {
	return U128FromBigInt(op, new(big.Int).Mul(x.v.BigInt(), y.v.BigInt()))
}

// Div returns floor(x/y), failing on division by zero.
func (x U128) Div(op string, y U128) (U128, error) {
	if y.IsZero() {
		return U128{}, clearingerrors.Mathf(op, fmt.Errorf("division by zero"))
	}
	return U128FromBigInt(op, new(big.Int).Quo(x.v.BigInt(), y.v.BigInt()))
}

// SaturatingSub returns x-y, clamped to zero instead of failing when y > x.
// Mirrors the teacher helper of the same name, promoted here to the
// checked-integer kernel because the margin engine uses it to clamp
// confidence-discounted prices, order-adjusted token amounts and AMM reserve
// deviations at zero.
func (x U128) SaturatingSub(y U128) U128 {
	r, err := x.Sub("saturating_sub", y)
	if err != nil {
		return ZeroU128()
	}
	return r
}

// ---- widening accumulator ----

// U192FromU128 widens a U128 into a U192 accumulator.
func U192FromU128(x U128) U192 {
	return U192{v: sdkmath.NewUintFromBigInt(x.BigInt())}
}

// U192FromBigInt builds a checked U192 from a big.Int.
func U192FromBigInt(op string, x *big.Int) (U192, error) {
	if x.Sign() < 0 || x.Cmp(maxU192) > 0 {
		return U192{}, clearingerrors.Mathf(op, fmt.Errorf("value %s overflows u192", x.String()))
	}
	return U192{v: sdkmath.NewUintFromBigInt(x)}, nil
}

// Mul returns x*y widened to 192 bits, failing if the product would exceed
// 192 bits. Two inputs below 2^96 always fit; two full-width 128-bit inputs
// can overflow and then fail here.
func (x U192) Mul(op string, y U192) (U192, error) {
	return U192FromBigInt(op, new(big.Int).Mul(x.v.BigInt(), y.v.BigInt()))
}

// Div returns floor(x/y), failing on division by zero.
func (x U192) Div(op string, y U192) (U192, error) {
	if y.IsZero() {
		return U192{}, clearingerrors.Mathf(op, fmt.Errorf("division by zero"))
	}
	return U192FromBigInt(op, new(big.Int).Quo(x.v.BigInt(), y.v.BigInt()))
}

// IsZero reports whether x is zero.
func (x U192) IsZero() bool { return x.v.IsZero() }

// Narrow checks that x fits in 128 bits and returns it as a U128.
func (x U192) Narrow(op string) (U128, error) {
	return U128FromBigInt(op, x.v.BigInt())
}

// MulDivU192 computes floor(a*b/c) by widening the product of a and b to
// 192 bits before dividing, then narrows the result back to U128. This is
// the standard "widen, multiply, divide, narrow" pattern required wherever
// a rate times an amount could exceed 128 bits (spec.md §4.1, §9).
func MulDivU192(op string, a, b, c U128) (U128, error) {
	wa := U192FromU128(a)
	wb := U192FromU128(b)
	product, err := wa.Mul(op, wb)
	if err != nil {
		return U128{}, err
	}
	wc := U192FromU128(c)
	quotient, err := product.Div(op, wc)
	if err != nil {
		return U128{}, err
	}
	return quotient.Narrow(op)
}
