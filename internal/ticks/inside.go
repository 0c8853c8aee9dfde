package ticks

import (
	"math/big"

	"liquidityCurve/internal/model"
)

// Inside returns global - below(lower) - above(upper) for an accumulator
// whose outside values at the bounds are lowerOut and upperOut.
func Inside(global, lowerOut, upperOut *big.Int, cur, lower, upper model.TickIndex) *big.Int {
	below := lowerOut
	if cur < lower {
		below = new(big.Int).Sub(global, lowerOut)
	}
	above := upperOut
	if cur >= upper {
		above = new(big.Int).Sub(global, upperOut)
	}
	out := new(big.Int).Sub(global, below)
	return out.Sub(out, above)
}

// InsideSeconds is Inside for the int64 seconds accumulator.
func InsideSeconds(global, lowerOut, upperOut int64, cur, lower, upper model.TickIndex) int64 {
	below := lowerOut
	if cur < lower {
		below = global - lowerOut
	}
	above := upperOut
	if cur >= upper {
		above = global - upperOut
	}
	return global - below - above
}

// FeeGrowthInside returns the x128 fee growth accrued inside [lower, upper).
func (r *Registry) FeeGrowthInside(lower, upper, cur model.TickIndex, global model.XY) (model.XY, error) {
	lt, err := r.MustGet(lower)
	if err != nil {
		return model.XY{}, err
	}
	ut, err := r.MustGet(upper)
	if err != nil {
		return model.XY{}, err
	}
	return model.XY{
		X: Inside(global.X, lt.FeeGrowthOutside.X, ut.FeeGrowthOutside.X, cur, lower, upper),
		Y: Inside(global.Y, lt.FeeGrowthOutside.Y, ut.FeeGrowthOutside.Y, cur, lower, upper),
	}, nil
}
