package cfmm

import (
	"math/big"

	"liquidityCurve/internal/fixedpoint"
	"liquidityCurve/internal/model"
)

// liquidityAmounts returns the token amounts backing a liquidity delta over
// [lower, upper) at sqrt price p. Both results round toward +inf, so a
// deposit pays at least its share and a withdrawal receives at most it.
func liquidityAmounts(delta, sqrtLower, sqrtUpper, p *big.Int, cur, lower, upper model.TickIndex) model.XY {
	x, y := new(big.Int), new(big.Int)
	switch {
	case cur < lower:
		x = amountX(delta, sqrtLower, sqrtUpper)
	case cur < upper:
		x = amountX(delta, p, sqrtUpper)
		y = amountY(delta, sqrtLower, p)
	default:
		y = amountY(delta, sqrtLower, sqrtUpper)
	}
	return model.XY{X: x, Y: y}
}

// amountX = ceil(delta·2^80·(hi − lo) / (lo·hi))
func amountX(delta, lo, hi *big.Int) *big.Int {
	num := fixedpoint.ShiftLeft(delta, fixedpoint.PriceBits)
	num.Mul(num, fixedpoint.Sub(hi, lo))
	return fixedpoint.CeilDiv(num, fixedpoint.Mul(lo, hi))
}

// amountY = ceil(delta·(hi − lo) / 2^80)
func amountY(delta, lo, hi *big.Int) *big.Int {
	return fixedpoint.ShiftRightCeil(fixedpoint.Mul(delta, fixedpoint.Sub(hi, lo)), fixedpoint.PriceBits)
}

// feesOwed = floor((inside − last)·L / 2^128) per token.
func feesOwed(inside, last model.XY, liquidity *big.Int) (model.XY, bool) {
	dx := fixedpoint.Sub(inside.X, last.X)
	dy := fixedpoint.Sub(inside.Y, last.Y)
	if dx.Sign() < 0 || dy.Sign() < 0 {
		return model.XY{}, false
	}
	return model.XY{
		X: fixedpoint.ShiftRight(dx.Mul(dx, liquidity), fixedpoint.AccumulatorBits),
		Y: fixedpoint.ShiftRight(dy.Mul(dy, liquidity), fixedpoint.AccumulatorBits),
	}, true
}
