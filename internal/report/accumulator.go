package report

import (
	"fmt"
	"math/big"

	"liquidityCurve/internal/model"
)

// Accumulator holds aggregate values for a pool window.
type Accumulator struct {
	Pool          string
	WindowStart   int64
	WindowEnd     int64
	SwapCount     uint64
	VolumeX       *big.Int
	VolumeY       *big.Int
	FeeX          *big.Int
	FeeY          *big.Int
	LastTS        int64
	LastSeq       uint64
	LastTick      int32
	LastSqrtPrice *big.Int
	LastLiquidity *big.Int
}

func NewAccumulator(pool string, windowStart, windowEnd int64) *Accumulator {
	return &Accumulator{
		Pool:          pool,
		WindowStart:   windowStart,
		WindowEnd:     windowEnd,
		VolumeX:       big.NewInt(0),
		VolumeY:       big.NewInt(0),
		FeeX:          big.NewInt(0),
		FeeY:          big.NewInt(0),
		LastSqrtPrice: big.NewInt(0),
		LastLiquidity: big.NewInt(0),
	}
}

// AddSwap folds one swap into the window. Both legs count toward volume;
// the fee is charged in the input token.
func (a *Accumulator) AddSwap(event model.TypedEvent, swap model.SwapEventData) error {
	amountIn, err := parseBigInt(swap.AmountIn)
	if err != nil {
		return err
	}
	amountOut, err := parseBigInt(swap.AmountOut)
	if err != nil {
		return err
	}
	fee, err := parseBigInt(swap.Fee)
	if err != nil {
		return err
	}
	sqrtPrice, err := parseBigInt(swap.SqrtPriceX80)
	if err != nil {
		return err
	}
	liquidity, err := parseBigInt(swap.Liquidity)
	if err != nil {
		return err
	}

	if swap.XToY {
		absAdd(a.VolumeX, amountIn)
		absAdd(a.VolumeY, amountOut)
		a.FeeX.Add(a.FeeX, fee)
	} else {
		absAdd(a.VolumeY, amountIn)
		absAdd(a.VolumeX, amountOut)
		a.FeeY.Add(a.FeeY, fee)
	}
	a.SwapCount++

	if event.Timestamp > a.LastTS || (event.Timestamp == a.LastTS && event.Seq >= a.LastSeq) {
		a.LastTS = event.Timestamp
		a.LastSeq = event.Seq
		a.LastTick = swap.Tick
		a.LastSqrtPrice = sqrtPrice
		a.LastLiquidity = liquidity
	}
	return nil
}

func parseBigInt(value string) (*big.Int, error) {
	if value == "" {
		return big.NewInt(0), nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return nil, fmt.Errorf("invalid int: %s", value)
	}
	return parsed, nil
}

func absAdd(target *big.Int, value *big.Int) {
	if value == nil || target == nil {
		return
	}
	abs := new(big.Int).Abs(value)
	target.Add(target, abs)
}
