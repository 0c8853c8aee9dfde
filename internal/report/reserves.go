package report

import (
	"math/big"

	"liquidityCurve/internal/fixedpoint"
)

// virtualReserves returns the reserves of a full-range pool with the same
// liquidity and price: x = L·2^80 / P and y = L·P / 2^80, both floored.
func virtualReserves(liquidity, sqrtPrice *big.Int) (*big.Int, *big.Int) {
	if liquidity == nil || sqrtPrice == nil || liquidity.Sign() <= 0 || sqrtPrice.Sign() <= 0 {
		return nil, nil
	}
	x := fixedpoint.FloorDiv(fixedpoint.ShiftLeft(liquidity, fixedpoint.PriceBits), sqrtPrice)
	y := fixedpoint.ShiftRight(fixedpoint.Mul(liquidity, sqrtPrice), fixedpoint.PriceBits)
	return x, y
}
