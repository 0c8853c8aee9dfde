// Package tickmath maps tick indices to x80 sqrt prices and back.
//
// price_for_tick(i) = sqrt(1.0001)^i, evaluated as a product of per-bit
// ladder factors held at 128 fractional bits. Every multiplication floors,
// so the result is a deterministic function of the tick.
package tickmath

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"liquidityCurve/internal/fixedpoint"
)

const (
	MinTick int32 = -1048575
	MaxTick int32 = 1048575

	// LadderBits is the number of ladder rungs; |tick| < 2^LadderBits.
	LadderBits = 20

	ladderPrecision  = 512
	defaultCacheSize = 4096
)

var ErrTickOutOfRange = errors.New("tick out of range")

// Ladder holds base^(2^k) and base^(-2^k) for k in [0, LadderBits).
type Ladder struct {
	pos   [LadderBits]*big.Int
	neg   [LadderBits]*big.Int
	cache *lru.Cache[int32, *big.Int]
}

var (
	defaultOnce   sync.Once
	defaultLadder *Ladder
)

// Default returns the process-wide ladder.
func Default() *Ladder {
	defaultOnce.Do(func() {
		l, err := NewLadder(defaultCacheSize)
		if err != nil {
			panic(fmt.Sprintf("tickmath: build ladder: %v", err))
		}
		defaultLadder = l
	})
	return defaultLadder
}

// NewLadder builds the ladder and a price cache of the given size.
func NewLadder(cacheSize int) (*Ladder, error) {
	cache, err := lru.New[int32, *big.Int](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("price cache: %w", err)
	}
	l := &Ladder{cache: cache}

	one := new(big.Float).SetPrec(ladderPrecision).SetInt64(1)
	base := new(big.Float).SetPrec(ladderPrecision).Quo(
		new(big.Float).SetPrec(ladderPrecision).SetInt64(10001),
		new(big.Float).SetPrec(ladderPrecision).SetInt64(10000),
	)
	base.Sqrt(base)
	scale := new(big.Float).SetPrec(ladderPrecision).SetMantExp(one, fixedpoint.AccumulatorBits)

	p := new(big.Float).SetPrec(ladderPrecision).Set(base)
	for k := 0; k < LadderBits; k++ {
		inv := new(big.Float).SetPrec(ladderPrecision).Quo(one, p)
		l.pos[k] = toX128(p, scale)
		l.neg[k] = toX128(inv, scale)
		p = new(big.Float).SetPrec(ladderPrecision).Mul(p, p)
	}
	return l, nil
}

func toX128(v, scale *big.Float) *big.Int {
	// big.Float.Int truncates toward zero, which is floor for positives.
	out, _ := new(big.Float).SetPrec(ladderPrecision).Mul(v, scale).Int(nil)
	return out
}

// Rung returns the x128 ladder factor for bit k, positive or negative side.
func (l *Ladder) Rung(k int, negative bool) *big.Int {
	if negative {
		return new(big.Int).Set(l.neg[k])
	}
	return new(big.Int).Set(l.pos[k])
}

// SqrtPriceAtTick returns price_for_tick(tick) in x80. The returned value is
// shared with the cache and must not be mutated.
func (l *Ladder) SqrtPriceAtTick(tick int32) (*big.Int, error) {
	if tick < MinTick || tick > MaxTick {
		return nil, fmt.Errorf("%w: %d", ErrTickOutOfRange, tick)
	}
	if v, ok := l.cache.Get(tick); ok {
		return v, nil
	}
	rungs := &l.pos
	abs := tick
	if tick < 0 {
		rungs = &l.neg
		abs = -tick
	}
	acc := fixedpoint.One(fixedpoint.AccumulatorBits)
	for k := 0; k < LadderBits; k++ {
		if abs&(1<<k) == 0 {
			continue
		}
		acc.Mul(acc, rungs[k])
		acc.Rsh(acc, fixedpoint.AccumulatorBits)
	}
	out := fixedpoint.Rescale(acc, fixedpoint.AccumulatorBits, fixedpoint.PriceBits, fixedpoint.Floor)
	l.cache.Add(tick, out)
	return out, nil
}

// MustSqrtPriceAtTick is SqrtPriceAtTick for ticks already known to be in range.
func (l *Ladder) MustSqrtPriceAtTick(tick int32) *big.Int {
	v, err := l.SqrtPriceAtTick(tick)
	if err != nil {
		panic(err)
	}
	return v
}

// TickAtSqrtPrice returns the greatest tick t in [lo, hi] with
// price_for_tick(t) <= p. If even price_for_tick(lo) exceeds p, lo is
// returned.
func (l *Ladder) TickAtSqrtPrice(p *big.Int, lo, hi int32) int32 {
	if lo < MinTick {
		lo = MinTick
	}
	if hi > MaxTick {
		hi = MaxTick
	}
	a, b := int64(lo), int64(hi)
	for a < b {
		mid := a + (b-a+1)/2
		if l.MustSqrtPriceAtTick(int32(mid)).Cmp(p) <= 0 {
			a = mid
		} else {
			b = mid - 1
		}
	}
	return int32(a)
}

// Bounds returns the x80 prices of the sentinel ticks.
func (l *Ladder) Bounds() (min, max *big.Int) {
	return l.MustSqrtPriceAtTick(MinTick), l.MustSqrtPriceAtTick(MaxTick)
}
