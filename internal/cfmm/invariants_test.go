package cfmm

import (
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"liquidityCurve/internal/model"
)

func TestRandomOperationsKeepInvariants(t *testing.T) {
	for _, fee := range []uint64{0, 5, 30, 100} {
		f := newFixture(t, fee, 2000)
		rng := rand.New(rand.NewSource(int64(fee) + 11))
		owners := []common.Address{alice, bob}
		open := map[model.PositionID]common.Address{}

		for i := 0; i < 120; i++ {
			if rng.Intn(3) == 0 {
				f.clock.Advance(int64(rng.Intn(5)))
			}
			switch r := rng.Intn(10); {
			case r < 3:
				lo := model.TickIndex(rng.Intn(600) - 300)
				hi := lo + 1 + model.TickIndex(rng.Intn(300))
				owner := owners[rng.Intn(len(owners))]
				res := f.deposit(owner, lo, hi, 1+rng.Int63n(100_000_000))
				open[res.PositionID] = owner
			case r < 5 && len(open) > 0:
				for id, owner := range open {
					pos, err := f.pool.Position(id)
					require.NoError(t, err)
					delta := new(big.Int).Neg(pos.Liquidity)
					if rng.Intn(2) == 0 {
						delta.Quo(delta, big.NewInt(2))
					}
					res, err := f.pool.UpdatePosition(f.ctx, owner, UpdatePositionParams{ID: id, LiquidityDelta: delta, Deadline: farDeadline})
					require.NoError(t, err)
					if res.Closed {
						delete(open, id)
					}
					break
				}
				f.check()
			case r < 8:
				f.swapXY(carol, rng.Int63n(1_000_000))
			default:
				f.swapYX(carol, rng.Int63n(1_000_000))
			}
		}

		for id, owner := range open {
			pos, err := f.pool.Position(id)
			require.NoError(t, err)
			_, err = f.pool.UpdatePosition(f.ctx, owner, UpdatePositionParams{ID: id, LiquidityDelta: new(big.Int).Neg(pos.Liquidity), Deadline: farDeadline})
			require.NoError(t, err)
			f.check()
		}
		require.Zero(t, f.pool.Liquidity().Sign())
		require.Len(t, f.pool.Snapshot().Ticks, 2)
	}
}
