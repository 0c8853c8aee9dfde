package tickmath

import (
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"liquidityCurve/internal/fixedpoint"
)

func TestSqrtPriceAtZeroIsOne(t *testing.T) {
	l := Default()
	require.Equal(t, fixedpoint.One(fixedpoint.PriceBits), l.MustSqrtPriceAtTick(0))
}

func TestSqrtPriceMatchesFloat(t *testing.T) {
	l := Default()
	for _, tick := range []int32{1, -1, 10, -10, 15, 100, -2500, 60000, -60000, 400000} {
		got, _ := new(big.Float).SetInt(l.MustSqrtPriceAtTick(tick)).Float64()
		want := math.Pow(1.0001, float64(tick)/2) * math.Pow(2, 80)
		assert.InEpsilon(t, want, got, 1e-9, "tick %d", tick)
	}
}

func TestSqrtPriceMonotone(t *testing.T) {
	l := Default()
	prev := l.MustSqrtPriceAtTick(-3000)
	for tick := int32(-2999); tick <= 3000; tick++ {
		cur := l.MustSqrtPriceAtTick(tick)
		require.Equal(t, 1, cur.Cmp(prev), "tick %d", tick)
		prev = cur
	}
}

func TestSqrtPriceOutOfRange(t *testing.T) {
	l := Default()
	_, err := l.SqrtPriceAtTick(MaxTick + 1)
	require.ErrorIs(t, err, ErrTickOutOfRange)
	_, err = l.SqrtPriceAtTick(MinTick - 1)
	require.ErrorIs(t, err, ErrTickOutOfRange)

	min, max := l.Bounds()
	require.Equal(t, 1, max.Cmp(min))
	require.Equal(t, 1, min.Sign())
}

func TestTickAtSqrtPriceRoundTrip(t *testing.T) {
	l := Default()
	for _, tick := range []int32{-100000, -17, -1, 0, 1, 33, 99999} {
		p := l.MustSqrtPriceAtTick(tick)
		require.Equal(t, tick, l.TickAtSqrtPrice(p, MinTick, MaxTick))

		next := l.MustSqrtPriceAtTick(tick + 1)
		between := new(big.Int).Sub(next, big.NewInt(1))
		require.Equal(t, tick, l.TickAtSqrtPrice(between, MinTick, MaxTick))
	}
}

func TestTickAtSqrtPriceRespectsBounds(t *testing.T) {
	l := Default()
	p := l.MustSqrtPriceAtTick(500)
	require.Equal(t, int32(100), l.TickAtSqrtPrice(p, -100, 100))
	require.Equal(t, int32(600), l.TickAtSqrtPrice(p, 600, 700))
}

func TestLadderDeterministic(t *testing.T) {
	a, err := NewLadder(16)
	require.NoError(t, err)
	b, err := NewLadder(16)
	require.NoError(t, err)
	for k := 0; k < LadderBits; k++ {
		require.Equal(t, a.Rung(k, false), b.Rung(k, false))
		require.Equal(t, a.Rung(k, true), b.Rung(k, true))
	}
	require.Equal(t, a.MustSqrtPriceAtTick(MaxTick), b.MustSqrtPriceAtTick(MaxTick))
}
