package ticks

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
	"liquidityCurve/internal/journal"
	"liquidityCurve/internal/model"
	"liquidityCurve/internal/tickmath"
)

func globals(now int64, fee int64) Globals {
	return Globals{
		Now:                 now,
		TickCumulative:      big.NewInt(now * 3),
		FeeGrowth:           model.XY{X: big.NewInt(fee), Y: big.NewInt(2 * fee)},
		SecondsPerLiquidity: big.NewInt(now * 7),
	}
}

func TestNewHasSentinels(t *testing.T) {
	r := New(tickmath.Default(), nil)
	require.Equal(t, 2, r.Len())
	require.NoError(t, r.CheckChain())

	lo, _ := r.Get(model.MinTick)
	hi, _ := r.Get(model.MaxTick)
	require.Equal(t, model.MaxTick, lo.Next)
	require.Equal(t, model.MinTick, hi.Prev)
}

func TestInitLinksAndSeeds(t *testing.T) {
	r := New(tickmath.Default(), nil)
	g := globals(100, 50)

	created, err := r.Init(10, model.MinTick, 0, g)
	require.NoError(t, err)
	require.True(t, created)
	created, err = r.Init(-10, model.MinTick, 0, g)
	require.NoError(t, err)
	require.True(t, created)
	// witness below the natural neighbour still works by scanning forward
	created, err = r.Init(5, model.MinTick, 0, g)
	require.NoError(t, err)
	require.True(t, created)
	require.NoError(t, r.CheckChain())
	require.Equal(t, []model.TickIndex{model.MinTick, -10, 5, 10, model.MaxTick}, r.Ascending())

	below, _ := r.Get(-10)
	require.Equal(t, int64(100), below.SecondsOutside)
	require.Equal(t, big.NewInt(50), below.FeeGrowthOutside.X)
	above, _ := r.Get(10)
	require.Zero(t, above.SecondsOutside)
	require.Zero(t, above.FeeGrowthOutside.X.Sign())

	created, err = r.Init(10, 5, 0, g)
	require.NoError(t, err)
	require.False(t, created)
}

func TestInitRejectsBadWitness(t *testing.T) {
	r := New(tickmath.Default(), nil)
	g := globals(1, 0)

	_, err := r.Init(10, 20, 0, g)
	require.ErrorIs(t, err, ErrInvalidWitness)
	_, err = r.Init(10, 3, 0, g)
	require.ErrorIs(t, err, ErrInvalidWitness)
	require.Equal(t, 2, r.Len())
}

func TestReleaseGarbageCollects(t *testing.T) {
	r := New(tickmath.Default(), nil)
	_, err := r.Init(7, model.MinTick, 0, globals(1, 0))
	require.NoError(t, err)
	require.NoError(t, r.AddPosition(7))
	require.NoError(t, r.AddPosition(7))

	removed, err := r.ReleasePosition(7)
	require.NoError(t, err)
	require.False(t, removed)
	removed, err = r.ReleasePosition(7)
	require.NoError(t, err)
	require.True(t, removed)
	require.Equal(t, 2, r.Len())
	require.NoError(t, r.CheckChain())

	_, err = r.ReleasePosition(7)
	require.ErrorIs(t, err, ErrTickNotInitialized)
}

func TestSentinelsNeverCollected(t *testing.T) {
	r := New(tickmath.Default(), nil)
	require.NoError(t, r.AddPosition(model.MinTick))
	removed, err := r.ReleasePosition(model.MinTick)
	require.NoError(t, err)
	require.False(t, removed)
	require.Equal(t, 2, r.Len())
}

func TestCrossFlipsOutside(t *testing.T) {
	r := New(tickmath.Default(), nil)
	_, err := r.Init(4, model.MinTick, 10, globals(10, 30))
	require.NoError(t, err)

	flipped, err := r.Cross(4, globals(25, 80))
	require.NoError(t, err)
	require.Equal(t, int64(15), flipped.SecondsOutside)
	require.Equal(t, big.NewInt(50), flipped.FeeGrowthOutside.X)
	require.Equal(t, big.NewInt(100), flipped.FeeGrowthOutside.Y)
	require.Equal(t, big.NewInt(75-30), flipped.TickCumulativeOutside)
}

func TestJournalRevertRestoresChain(t *testing.T) {
	j := journal.New()
	r := New(tickmath.Default(), j)
	before := r.State()

	_, err := r.Init(3, model.MinTick, 0, globals(1, 0))
	require.NoError(t, err)
	require.NoError(t, r.AddLiquidityNet(3, big.NewInt(9)))
	j.Revert()

	require.Equal(t, before, r.State())
	require.NoError(t, r.CheckChain())
}

func TestFromStateDetectsBrokenChain(t *testing.T) {
	r := New(tickmath.Default(), nil)
	_, err := r.Init(3, model.MinTick, 0, globals(1, 0))
	require.NoError(t, err)
	state := r.State()
	broken := state[3]
	broken.Next = 99
	state[3] = broken

	_, err = FromState(state, tickmath.Default(), nil)
	require.ErrorIs(t, err, ErrCorruptChain)
}

func TestInside(t *testing.T) {
	global := big.NewInt(100)
	lowerOut, upperOut := big.NewInt(10), big.NewInt(20)

	// current tick inside the range
	require.Equal(t, big.NewInt(70), Inside(global, lowerOut, upperOut, 5, 0, 10))
	// current tick below the range: inside = lowerOut - upperOut
	require.Equal(t, big.NewInt(-10), Inside(global, lowerOut, upperOut, -5, 0, 10))
	// current tick above the range: inside = upperOut - lowerOut
	require.Equal(t, big.NewInt(10), Inside(global, lowerOut, upperOut, 15, 0, 10))

	require.Equal(t, int64(70), InsideSeconds(100, 10, 20, 5, 0, 10))
}
