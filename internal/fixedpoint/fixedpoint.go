// Package fixedpoint implements the binary fixed-point helpers used by the
// pool: sqrt prices carry 80 fractional bits, accumulators carry 128.
//
// All values are *big.Int and are never mutated in place; every helper
// allocates its result.
package fixedpoint

import (
	"fmt"
	"math/big"
)

const (
	PriceBits       = 80
	AccumulatorBits = 128
)

// Rounding selects the direction of an inexact division.
type Rounding int

const (
	Floor Rounding = iota
	Ceil
)

func (r Rounding) String() string {
	switch r {
	case Floor:
		return "floor"
	case Ceil:
		return "ceil"
	default:
		return fmt.Sprintf("rounding(%d)", int(r))
	}
}

var (
	zero = big.NewInt(0)
	one  = big.NewInt(1)
)

// Zero returns a fresh zero value.
func Zero() *big.Int { return new(big.Int) }

// One returns 2^bits, the fixed-point representation of 1.
func One(bits uint) *big.Int { return new(big.Int).Lsh(one, bits) }

// ShiftLeft returns x * 2^n.
func ShiftLeft(x *big.Int, n uint) *big.Int {
	return new(big.Int).Lsh(x, n)
}

// ShiftRight returns floor(x / 2^n). Negative values round toward -inf.
func ShiftRight(x *big.Int, n uint) *big.Int {
	return new(big.Int).Rsh(x, n)
}

// ShiftRightCeil returns ceil(x / 2^n).
func ShiftRightCeil(x *big.Int, n uint) *big.Int {
	neg := new(big.Int).Neg(x)
	return neg.Rsh(neg, n).Neg(neg)
}

// Rescale converts x from `from` fractional bits to `to` fractional bits.
func Rescale(x *big.Int, from, to uint, r Rounding) *big.Int {
	switch {
	case from == to:
		return new(big.Int).Set(x)
	case to > from:
		return ShiftLeft(x, to-from)
	case r == Ceil:
		return ShiftRightCeil(x, from-to)
	default:
		return ShiftRight(x, from-to)
	}
}

// FloorDiv returns floor(a / b). b must be positive.
func FloorDiv(a, b *big.Int) *big.Int {
	mustPositive(b)
	// Euclidean division floors when the divisor is positive.
	return new(big.Int).Div(a, b)
}

// CeilDiv returns ceil(a / b). b must be positive.
func CeilDiv(a, b *big.Int) *big.Int {
	mustPositive(b)
	q, m := new(big.Int).DivMod(a, b, new(big.Int))
	if m.Sign() != 0 {
		q.Add(q, one)
	}
	return q
}

// Div divides with the requested rounding.
func Div(a, b *big.Int, r Rounding) *big.Int {
	if r == Ceil {
		return CeilDiv(a, b)
	}
	return FloorDiv(a, b)
}

// MulDiv returns a*b/d rounded as requested. d must be positive.
func MulDiv(a, b, d *big.Int, r Rounding) *big.Int {
	return Div(new(big.Int).Mul(a, b), d, r)
}

// Add, Sub and Mul are allocation helpers for the immutable convention.
func Add(a, b *big.Int) *big.Int { return new(big.Int).Add(a, b) }
func Sub(a, b *big.Int) *big.Int { return new(big.Int).Sub(a, b) }
func Mul(a, b *big.Int) *big.Int { return new(big.Int).Mul(a, b) }

// Min returns the smaller of a and b (not copied).
func Min(a, b *big.Int) *big.Int {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// IsZero reports whether x is nil or zero.
func IsZero(x *big.Int) bool { return x == nil || x.Sign() == 0 }

// Copy returns an independent copy, treating nil as zero.
func Copy(x *big.Int) *big.Int {
	if x == nil {
		return new(big.Int)
	}
	return new(big.Int).Set(x)
}

func mustPositive(b *big.Int) {
	if b.Cmp(zero) <= 0 {
		panic(fmt.Sprintf("fixedpoint: non-positive divisor %s", b))
	}
}
