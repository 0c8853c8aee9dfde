package model

import (
	"math/big"

	"liquidityCurve/internal/tickmath"
)

// TickIndex identifies a tick; sqrt price at tick i is sqrt(1.0001)^i.
type TickIndex int32

const (
	MinTick = TickIndex(tickmath.MinTick)
	MaxTick = TickIndex(tickmath.MaxTick)
)

// IsSentinel reports whether the tick is one of the two permanent bounds.
func (i TickIndex) IsSentinel() bool { return i == MinTick || i == MaxTick }

// XY is a pair of per-token values. Depending on context it holds token
// amounts or x128 fee growth.
type XY struct {
	X *big.Int `json:"x"`
	Y *big.Int `json:"y"`
}

// ZeroXY returns a pair of fresh zeros.
func ZeroXY() XY { return XY{X: new(big.Int), Y: new(big.Int)} }

// Sub returns a - b component-wise.
func (a XY) Sub(b XY) XY {
	return XY{X: new(big.Int).Sub(a.X, b.X), Y: new(big.Int).Sub(a.Y, b.Y)}
}

// Add returns a + b component-wise.
func (a XY) Add(b XY) XY {
	return XY{X: new(big.Int).Add(a.X, b.X), Y: new(big.Int).Add(a.Y, b.Y)}
}

// Tick is an initialized tick. Outside accumulators hold the value
// accrued on the side of the tick opposite to the current price.
type Tick struct {
	Prev                       TickIndex `json:"prev"`
	Next                       TickIndex `json:"next"`
	LiquidityNet               *big.Int  `json:"liquidity_net"`
	NPositions                 uint64    `json:"n_positions"`
	SecondsOutside             int64     `json:"seconds_outside"`
	TickCumulativeOutside      *big.Int  `json:"tick_cumulative_outside"`
	FeeGrowthOutside           XY        `json:"fee_growth_outside"`
	SecondsPerLiquidityOutside *big.Int  `json:"seconds_per_liquidity_outside"`
	SqrtPrice                  *big.Int  `json:"sqrt_price"`
}
