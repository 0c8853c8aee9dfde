package model

import "math/big"

// TickCumulative accumulates tick·seconds.
type TickCumulative struct {
	Sum             *big.Int  `json:"sum"`
	BlockStartValue TickIndex `json:"block_start_value"`
}

// SplCumulative accumulates seconds per liquidity in x128.
type SplCumulative struct {
	Sum                      *big.Int `json:"sum"`
	BlockStartLiquidityValue *big.Int `json:"block_start_liquidity_value"`
}

// TimedCumulatives is one oracle slot.
type TimedCumulatives struct {
	Time int64          `json:"time"`
	Tick TickCumulative `json:"tick"`
	Spl  SplCumulative  `json:"spl"`
}

// CumulativesValue is an observation at a point in time.
type CumulativesValue struct {
	TickCumulative                *big.Int `json:"tick_cumulative"`
	SecondsPerLiquidityCumulative *big.Int `json:"seconds_per_liquidity_cumulative"`
}

// CumulativesInsideSnapshot covers a tick range.
type CumulativesInsideSnapshot struct {
	TickCumulativeInside      *big.Int `json:"tick_cumulative_inside"`
	SecondsPerLiquidityInside *big.Int `json:"seconds_per_liquidity_inside"`
	SecondsInside             int64    `json:"seconds_inside"`
}

// CumulativesBuffer is the persisted form of the oracle buffer. Slots are
// listed in logical order, Slots[0] being logical index First.
type CumulativesBuffer struct {
	Slots          []TimedCumulatives `json:"slots"`
	First          uint64             `json:"first"`
	Last           uint64             `json:"last"`
	ReservedLength uint64             `json:"reserved_length"`
}
