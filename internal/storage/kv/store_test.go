package kv

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"liquidityCurve/internal/model"
	"liquidityCurve/internal/storage"
)

func samplePool(name string) model.PoolState {
	neg := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(5), 130))
	return model.PoolState{
		Version:   model.PoolStateVersion,
		Name:      name,
		Address:   common.HexToAddress("0x00000000000000000000000000000000000c0001"),
		Constants: model.Constants{FeeBps: 30, TokenX: common.HexToAddress("0xa1"), TokenY: common.HexToAddress("0xa2"), TickSpacing: 10},
		Liquidity: big.NewInt(10_000_000),
		SqrtPrice: new(big.Int).Lsh(big.NewInt(1), 80),
		FeeGrowth: model.XY{X: new(big.Int).Lsh(big.NewInt(7), 128), Y: big.NewInt(0)},
		Ticks: map[model.TickIndex]model.Tick{
			-10: {Prev: model.MinTick, Next: 20, LiquidityNet: big.NewInt(10_000_000), NPositions: 1, TickCumulativeOutside: neg},
			20:  {Prev: -10, Next: model.MaxTick, LiquidityNet: big.NewInt(-10_000_000), NPositions: 1},
		},
		Positions: map[model.PositionID]model.Position{
			0: {Lower: -10, Upper: 20, Liquidity: big.NewInt(10_000_000), Owner: common.HexToAddress("0xb1")},
		},
		NewPositionID: 1,
		CreatedAt:     1000,
	}
}

func TestPoolRoundTrip(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	in := samplePool("alpha")
	require.NoError(t, store.SavePool(ctx, in))

	out, err := store.LoadPool(ctx, "alpha")
	require.NoError(t, err)
	require.Equal(t, in.Name, out.Name)
	require.Equal(t, in.Address, out.Address)
	require.Equal(t, in.Constants, out.Constants)
	require.Equal(t, in.Liquidity.String(), out.Liquidity.String())
	require.Equal(t, in.FeeGrowth.X.String(), out.FeeGrowth.X.String())
	require.Zero(t, out.FeeGrowth.Y.Sign())
	require.Len(t, out.Ticks, 2)
	require.Equal(t, in.Ticks[-10].TickCumulativeOutside.String(), out.Ticks[-10].TickCumulativeOutside.String())
	require.Equal(t, model.TickIndex(20), out.Ticks[-10].Next)
	require.Equal(t, "-10000000", out.Ticks[20].LiquidityNet.String())
	require.Equal(t, in.Positions[0].Owner, out.Positions[0].Owner)
	require.Equal(t, model.PositionID(1), out.NewPositionID)
}

func TestPoolNamesAndDelete(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()
	ctx := context.Background()

	for _, name := range []string{"b", "a", "c"} {
		require.NoError(t, store.SavePool(ctx, samplePool(name)))
	}
	names, err := store.PoolNames(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, names)

	require.NoError(t, store.DeletePool(ctx, "b"))
	_, err = store.LoadPool(ctx, "b")
	require.ErrorIs(t, err, storage.ErrPoolNotFound)

	require.Error(t, store.SavePool(ctx, model.PoolState{}))
}

func TestClosedStore(t *testing.T) {
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())

	_, err = store.LoadPool(context.Background(), "a")
	require.ErrorIs(t, err, ErrDBClosed)
}
