package cfmm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityCurve/internal/model"
	"liquidityCurve/internal/ticks"
)

// Transfer moves position tokens. Caller must own them or be an approved
// operator of the sender.
func (p *Pool) Transfer(ctx context.Context, caller common.Address, batches []model.TransferBatch) ([]Event, error) {
	var events []Event
	err := p.apply(ctx, model.OpTransfer, func(int64) error {
		if err := p.positions.Transfer(caller, batches); err != nil {
			return err
		}
		for _, b := range batches {
			for _, tx := range b.Txs {
				if tx.Amount == 0 {
					continue
				}
				events = append(events, Event{Name: model.EventPositionTransferred, Data: model.PositionTransferredEventData{
					From:       b.From.Hex(),
					To:         tx.To.Hex(),
					PositionID: uint64(tx.TokenID),
				}})
			}
		}
		return nil
	})
	return events, err
}

// UpdateOperators adds or removes operators of caller's positions.
func (p *Pool) UpdateOperators(ctx context.Context, caller common.Address, updates []model.OperatorUpdate) error {
	return p.apply(ctx, model.OpUpdateOperators, func(int64) error {
		return p.positions.UpdateOperators(caller, updates)
	})
}

// BalanceOf reports position token balances.
func (p *Pool) BalanceOf(reqs []model.BalanceRequest) []model.BalanceResponse {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positions.BalanceOf(reqs)
}

// Observe returns cumulatives at the given timestamps.
func (p *Pool) Observe(ctx context.Context, timestamps []int64) ([]model.CumulativesValue, error) {
	var out []model.CumulativesValue
	err := p.apply(ctx, model.OpObserve, func(now int64) error {
		vals, err := p.oracle.Observe(timestamps, now)
		if err != nil {
			return err
		}
		out = vals
		return nil
	})
	return out, err
}

// IncreaseObservationCount reserves n more oracle slots.
func (p *Pool) IncreaseObservationCount(ctx context.Context, n uint64) error {
	return p.apply(ctx, model.OpIncreaseObservationCount, func(now int64) error {
		p.record(now)
		return p.oracle.Grow(n)
	})
}

// SnapshotCumulativesInside computes the cumulatives accrued while the
// price was inside [lower, upper) and hands the result to callback.
func (p *Pool) SnapshotCumulativesInside(ctx context.Context, lower, upper model.TickIndex, callback func(model.CumulativesInsideSnapshot) error) (model.CumulativesInsideSnapshot, error) {
	var snap model.CumulativesInsideSnapshot
	err := p.apply(ctx, model.OpSnapshotInside, func(now int64) error {
		s, err := p.snapshotInside(now, lower, upper)
		if err != nil {
			return err
		}
		snap = s
		if callback != nil {
			return callback(s)
		}
		return nil
	})
	return snap, err
}

func (p *Pool) snapshotInside(now int64, lower, upper model.TickIndex) (model.CumulativesInsideSnapshot, error) {
	lt, err := p.ticks.MustGet(lower)
	if err != nil {
		return model.CumulativesInsideSnapshot{}, err
	}
	ut, err := p.ticks.MustGet(upper)
	if err != nil {
		return model.CumulativesInsideSnapshot{}, err
	}
	if lower > upper {
		return model.CumulativesInsideSnapshot{}, fmt.Errorf("%w: lower %d, upper %d", ErrRangeReversed, lower, upper)
	}
	v, err := p.oracle.ValueAt(now)
	if err != nil {
		return model.CumulativesInsideSnapshot{}, err
	}
	cur := p.vars.curTick
	return model.CumulativesInsideSnapshot{
		TickCumulativeInside:      ticks.Inside(v.TickCumulative, lt.TickCumulativeOutside, ut.TickCumulativeOutside, cur, lower, upper),
		SecondsPerLiquidityInside: ticks.Inside(v.SecondsPerLiquidityCumulative, lt.SecondsPerLiquidityOutside, ut.SecondsPerLiquidityOutside, cur, lower, upper),
		SecondsInside:             ticks.InsideSeconds(now, lt.SecondsOutside, ut.SecondsOutside, cur, lower, upper),
	}, nil
}

// ClaimDevFees pays the accrued dev fees to `to` and resets them.
func (p *Pool) ClaimDevFees(ctx context.Context, to common.Address) (model.XY, error) {
	var claimed model.XY
	err := p.apply(ctx, model.OpClaimDevFees, func(int64) error {
		claimed = p.vars.devFees
		p.vars.devFees = model.ZeroXY()
		if err := p.transfer(ctx,
			model.Transfer{Token: p.consts.TokenX, From: p.address, To: to, Amount: claimed.X},
			model.Transfer{Token: p.consts.TokenY, From: p.address, To: to, Amount: claimed.Y},
		); err != nil {
			return err
		}
		p.logger.Info("dev fees claimed",
			zap.String("pool", p.name),
			zap.String("to", to.Hex()),
			zap.String("x", claimed.X.String()),
			zap.String("y", claimed.Y.String()),
		)
		return nil
	})
	return claimed, err
}

// DevFees returns the unclaimed dev fees.
func (p *Pool) DevFees() model.XY {
	p.mu.Lock()
	defer p.mu.Unlock()
	return model.XY{X: new(big.Int).Set(p.vars.devFees.X), Y: new(big.Int).Set(p.vars.devFees.Y)}
}
