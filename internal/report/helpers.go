package report

import (
	"math/big"
	"time"
)

const ratioScale = 18

func formatTokenAmount(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	if decimals == 0 {
		return value.String()
	}
	sign := value.Sign()
	abs := new(big.Int).Abs(value)
	denom := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	rat := new(big.Rat).SetFrac(abs, denom)
	text := rat.FloatString(int(decimals))
	if sign < 0 {
		return "-" + text
	}
	return text
}

func optionalAmount(value *big.Int, decimals uint8) *string {
	if value == nil {
		return nil
	}
	s := formatTokenAmount(value, decimals)
	return &s
}

func computeFeeRates(feeX, feeY, reserveX, reserveY *big.Int) (*string, *string) {
	var rateX, rateY *string
	if rate := computeRateFromInt(feeX, reserveX); rate != "" {
		rateX = &rate
	}
	if rate := computeRateFromInt(feeY, reserveY); rate != "" {
		rateY = &rate
	}
	return rateX, rateY
}

func computeRateFromInt(fee, reserve *big.Int) string {
	if fee == nil || fee.Sign() == 0 || reserve == nil || reserve.Sign() == 0 {
		return ""
	}
	rat := new(big.Rat).SetFrac(fee, reserve)
	return rat.FloatString(ratioScale)
}

// computeAPR annualizes the fee yield of a window. Virtual reserves hold
// equal value on both sides, so the yield on the whole is the mean of the
// per-token rates, a missing rate counting as zero.
func computeAPR(rateX, rateY *string, windowSeconds int64) *string {
	if windowSeconds <= 0 || (rateX == nil && rateY == nil) {
		return nil
	}
	total := new(big.Rat)
	for _, r := range []*string{rateX, rateY} {
		if r == nil {
			continue
		}
		rat, ok := new(big.Rat).SetString(*r)
		if !ok {
			return nil
		}
		total.Add(total, rat)
	}
	total.Quo(total, big.NewRat(2, 1))
	yearSeconds := big.NewRat(int64(365*24*time.Hour/time.Second), 1)
	window := big.NewRat(windowSeconds, 1)
	apr := new(big.Rat).Mul(total, yearSeconds)
	apr.Quo(apr, window)
	val := apr.FloatString(ratioScale)
	return &val
}

func windowStart(ts, windowSec int64) int64 {
	start := ts - ts%windowSec
	if ts < 0 && ts%windowSec != 0 {
		start -= windowSec
	}
	return start
}
