package cfmm

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"liquidityCurve/internal/model"
	"liquidityCurve/internal/oracle"
)

func TestObserveThroughPool(t *testing.T) {
	f := newFixture(t, 30, 0)
	f.deposit(alice, -10, 15, 10_000_000)
	start := f.clock.Now()

	f.clock.Advance(10)
	f.swapXY(bob, 1000) // moves to tick -2; this block still starts at tick 0
	f.clock.Advance(10)
	f.swapYX(bob, 0)
	f.clock.Advance(5)

	vals, err := f.pool.Observe(f.ctx, []int64{start, start + 10, start + 20, start + 25})
	require.NoError(t, err)
	require.Len(t, vals, 4)
	require.Equal(t, "0", vals[0].TickCumulative.String())
	require.Equal(t, "0", vals[1].TickCumulative.String())
	require.Equal(t, "0", vals[2].TickCumulative.String())
	require.Equal(t, "-10", vals[3].TickCumulative.String())

	_, err = f.pool.Observe(f.ctx, []int64{f.clock.Now() + 1})
	require.ErrorIs(t, err, ErrTimestampInFuture)
	_, err = f.pool.Observe(f.ctx, []int64{start - 1})
	require.ErrorIs(t, err, ErrTimestampTooOld)
}

func TestObservationBufferWrapsAndGrows(t *testing.T) {
	f := newFixture(t, 30, 0)
	for i := 0; i < 40; i++ {
		f.clock.Advance(1)
		f.swapXY(bob, 0)
	}
	state := f.pool.Snapshot()
	require.Equal(t, uint64(16), state.Cumulatives.ReservedLength)
	require.Len(t, state.Cumulatives.Slots, 16)

	require.NoError(t, f.pool.IncreaseObservationCount(f.ctx, 8))
	f.check()
	for i := 0; i < 40; i++ {
		f.clock.Advance(1)
		f.swapYX(bob, 0)
	}
	state = f.pool.Snapshot()
	require.Equal(t, uint64(24), state.Cumulatives.ReservedLength)
	require.Len(t, state.Cumulatives.Slots, 24)
	f.check()
}

func TestIncreaseObservationCountCapped(t *testing.T) {
	f := newFixture(t, 30, 0)
	f.deposit(alice, -10, 15, 10_000_000)
	f.clock.Advance(10)
	before := f.pool.Snapshot()

	err := f.pool.IncreaseObservationCount(f.ctx, oracle.MaxReservedLength)
	require.ErrorIs(t, err, ErrReservedLength)
	require.Equal(t, before, f.pool.Snapshot(), "failed grow must not keep the block's observation")

	room := oracle.MaxReservedLength - before.Cumulatives.ReservedLength
	require.NoError(t, f.pool.IncreaseObservationCount(f.ctx, room))
	require.Equal(t, uint64(oracle.MaxReservedLength), f.pool.Snapshot().Cumulatives.ReservedLength)

	f.clock.Advance(1)
	require.ErrorIs(t, f.pool.IncreaseObservationCount(f.ctx, 1), ErrReservedLength)
	f.check()
}

func TestSnapshotCumulativesInside(t *testing.T) {
	f := newFixture(t, 30, 0)
	f.clock.Advance(10)
	f.deposit(alice, -10, 15, 10_000_000)
	f.clock.Advance(10)
	f.swapXY(bob, 1000)
	f.clock.Advance(10)

	var got model.CumulativesInsideSnapshot
	snap, err := f.pool.SnapshotCumulativesInside(f.ctx, -10, 15, func(s model.CumulativesInsideSnapshot) error {
		got = s
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, snap, got)
	require.Equal(t, int64(20), snap.SecondsInside)

	// adjacent ranges add up to the enclosing one
	parts := [][2]model.TickIndex{{model.MinTick, -10}, {-10, 15}, {15, model.MaxTick}}
	sumTick, sumSpl, sumSecs := new(big.Int), new(big.Int), int64(0)
	for _, r := range parts {
		s, err := f.pool.SnapshotCumulativesInside(f.ctx, r[0], r[1], nil)
		require.NoError(t, err)
		sumTick.Add(sumTick, s.TickCumulativeInside)
		sumSpl.Add(sumSpl, s.SecondsPerLiquidityInside)
		sumSecs += s.SecondsInside
	}
	whole, err := f.pool.SnapshotCumulativesInside(f.ctx, model.MinTick, model.MaxTick, nil)
	require.NoError(t, err)
	require.Zero(t, sumTick.Cmp(whole.TickCumulativeInside))
	require.Zero(t, sumSpl.Cmp(whole.SecondsPerLiquidityInside))
	require.Equal(t, whole.SecondsInside, sumSecs)
	require.Equal(t, f.clock.Now(), whole.SecondsInside)

	same, err := f.pool.SnapshotCumulativesInside(f.ctx, 15, 15, nil)
	require.NoError(t, err)
	require.Zero(t, same.SecondsInside)
	require.Zero(t, same.TickCumulativeInside.Sign())
	require.Zero(t, same.SecondsPerLiquidityInside.Sign())

	_, err = f.pool.SnapshotCumulativesInside(f.ctx, 15, -10, nil)
	require.ErrorIs(t, err, ErrRangeReversed)
	_, err = f.pool.SnapshotCumulativesInside(f.ctx, -10, 7, nil)
	require.ErrorIs(t, err, ErrTickNotInitialized)

	boom := errors.New("callback failed")
	_, err = f.pool.SnapshotCumulativesInside(f.ctx, -10, 15, func(model.CumulativesInsideSnapshot) error { return boom })
	require.ErrorIs(t, err, boom)
}
