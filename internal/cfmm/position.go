package cfmm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityCurve/internal/model"
	"liquidityCurve/internal/positions"
)

// SetPositionParams opens a new position. Nil maxima mean no limit.
type SetPositionParams struct {
	Lower        model.TickIndex `json:"lower_tick_index"`
	Upper        model.TickIndex `json:"upper_tick_index"`
	LowerWitness model.TickIndex `json:"lower_tick_witness"`
	UpperWitness model.TickIndex `json:"upper_tick_witness"`
	Liquidity    *big.Int        `json:"liquidity"`
	Deadline     int64           `json:"deadline"`
	MaxX         *big.Int        `json:"maximum_tokens_contributed_x,omitempty"`
	MaxY         *big.Int        `json:"maximum_tokens_contributed_y,omitempty"`
}

// SetPositionResult reports what a deposit cost.
type SetPositionResult struct {
	PositionID model.PositionID `json:"position_id"`
	Created    bool             `json:"created"`
	AmountX    *big.Int         `json:"amount_x"`
	AmountY    *big.Int         `json:"amount_y"`
	Events     []Event          `json:"-"`
}

// UpdatePositionParams changes a position's liquidity and collects its
// fees. Zero recipients default to the caller.
type UpdatePositionParams struct {
	ID             model.PositionID `json:"position_id"`
	LiquidityDelta *big.Int         `json:"liquidity_delta"`
	ToX            common.Address   `json:"to_x"`
	ToY            common.Address   `json:"to_y"`
	Deadline       int64            `json:"deadline"`
	MaxX           *big.Int         `json:"maximum_tokens_contributed_x,omitempty"`
	MaxY           *big.Int         `json:"maximum_tokens_contributed_y,omitempty"`
}

// UpdatePositionResult amounts are signed: positive flowed into the pool.
type UpdatePositionResult struct {
	AmountX *big.Int `json:"amount_x"`
	AmountY *big.Int `json:"amount_y"`
	FeeX    *big.Int `json:"fee_x"`
	FeeY    *big.Int `json:"fee_y"`
	Closed  bool     `json:"closed"`
	Events  []Event  `json:"-"`
}

// SetPosition deposits liquidity over a new position owned by caller.
// A zero liquidity request changes nothing and consumes no id.
func (p *Pool) SetPosition(ctx context.Context, caller common.Address, params SetPositionParams) (SetPositionResult, error) {
	var res SetPositionResult
	err := p.apply(ctx, model.OpSetPosition, func(now int64) error {
		if err := p.guard(now, params.Deadline, model.FeatureSetPosition); err != nil {
			return err
		}
		if err := p.validateRange(params.Lower, params.Upper); err != nil {
			return err
		}
		if params.Liquidity == nil || params.Liquidity.Sign() < 0 {
			return fmt.Errorf("%w: %v", ErrNegativeLiquidity, params.Liquidity)
		}
		if params.Liquidity.Sign() == 0 {
			res = SetPositionResult{AmountX: new(big.Int), AmountY: new(big.Int)}
			return nil
		}

		p.record(now)
		if err := p.initBound(now, params.Upper, params.UpperWitness); err != nil {
			return err
		}
		if err := p.initBound(now, params.Lower, params.LowerWitness); err != nil {
			return err
		}

		inside, err := p.ticks.FeeGrowthInside(params.Lower, params.Upper, p.vars.curTick, p.vars.feeGrowth)
		if err != nil {
			return err
		}
		id := p.positions.Open(params.Lower, params.Upper, caller, inside)
		if err := p.positions.Update(id, params.Liquidity, inside); err != nil {
			return err
		}
		amounts, err := p.applyLiquidityDelta(params.Lower, params.Upper, params.Liquidity)
		if err != nil {
			return err
		}
		if err := checkMax(amounts, params.MaxX, params.MaxY); err != nil {
			return err
		}
		if err := p.transfer(ctx,
			model.Transfer{Token: p.consts.TokenX, From: caller, To: p.address, Amount: amounts.X},
			model.Transfer{Token: p.consts.TokenY, From: caller, To: p.address, Amount: amounts.Y},
		); err != nil {
			return err
		}

		res = SetPositionResult{
			PositionID: id,
			Created:    true,
			AmountX:    amounts.X,
			AmountY:    amounts.Y,
			Events: []Event{{Name: model.EventPositionSet, Data: model.PositionSetEventData{
				PositionID: uint64(id),
				Owner:      caller.Hex(),
				TickLower:  int32(params.Lower),
				TickUpper:  int32(params.Upper),
				Liquidity:  params.Liquidity.String(),
				AmountX:    amounts.X.String(),
				AmountY:    amounts.Y.String(),
			}}},
		}
		p.logger.Debug("position opened",
			zap.String("pool", p.name),
			zap.Uint64("id", uint64(id)),
			zap.Int32("lower", int32(params.Lower)),
			zap.Int32("upper", int32(params.Upper)),
		)
		return nil
	})
	return res, err
}

// initBound initializes a range bound and registers one more position on it.
func (p *Pool) initBound(now int64, index, witness model.TickIndex) error {
	g, err := p.globals(now)
	if err != nil {
		return err
	}
	created, err := p.ticks.Init(index, witness, p.vars.curTick, g)
	if err != nil {
		return err
	}
	if created && index <= p.vars.curTick && index > p.vars.witness {
		p.vars.witness = index
	}
	return p.ticks.AddPosition(index)
}

// releaseBound drops one position from a bound, moving the witness down if
// the bound was collected while serving as witness.
func (p *Pool) releaseBound(index model.TickIndex) error {
	t, err := p.ticks.MustGet(index)
	if err != nil {
		return err
	}
	removed, err := p.ticks.ReleasePosition(index)
	if err != nil {
		return err
	}
	if removed && p.vars.witness == index {
		p.vars.witness = t.Prev
	}
	return nil
}

// applyLiquidityDelta updates tick nets and in-range liquidity and returns
// the token amounts the delta corresponds to.
func (p *Pool) applyLiquidityDelta(lower, upper model.TickIndex, delta *big.Int) (model.XY, error) {
	lt, err := p.ticks.MustGet(lower)
	if err != nil {
		return model.XY{}, err
	}
	ut, err := p.ticks.MustGet(upper)
	if err != nil {
		return model.XY{}, err
	}
	if err := p.ticks.AddLiquidityNet(lower, delta); err != nil {
		return model.XY{}, err
	}
	if err := p.ticks.AddLiquidityNet(upper, new(big.Int).Neg(delta)); err != nil {
		return model.XY{}, err
	}
	if lower <= p.vars.curTick && p.vars.curTick < upper {
		l := new(big.Int).Add(p.vars.liquidity, delta)
		if l.Sign() < 0 {
			return model.XY{}, fmt.Errorf("%w: in-range liquidity %s", ErrInvariant, l)
		}
		p.vars.liquidity = l
	}
	return liquidityAmounts(delta, lt.SqrtPrice, ut.SqrtPrice, p.vars.sqrtPrice, p.vars.curTick, lower, upper), nil
}

func checkMax(amounts model.XY, maxX, maxY *big.Int) error {
	if maxX != nil && amounts.X.Cmp(maxX) > 0 {
		return fmt.Errorf("%w: x %s above maximum %s", ErrSlippageExceeded, amounts.X, maxX)
	}
	if maxY != nil && amounts.Y.Cmp(maxY) > 0 {
		return fmt.Errorf("%w: y %s above maximum %s", ErrSlippageExceeded, amounts.Y, maxY)
	}
	return nil
}

// UpdatePosition adds or removes liquidity and pays out accrued fees.
// Positions reaching zero liquidity are deleted.
func (p *Pool) UpdatePosition(ctx context.Context, caller common.Address, params UpdatePositionParams) (UpdatePositionResult, error) {
	var res UpdatePositionResult
	err := p.apply(ctx, model.OpUpdatePosition, func(now int64) error {
		if err := p.guard(now, params.Deadline, model.FeatureUpdatePosition); err != nil {
			return err
		}
		delta := params.LiquidityDelta
		if delta == nil {
			delta = new(big.Int)
		}
		pos, err := p.positions.Get(params.ID)
		if err != nil {
			return err
		}
		if p.positions.CapabilityOf(caller, pos.Owner, params.ID) == positions.CapNone {
			return fmt.Errorf("%w: %s on position %d", ErrNotOwner, caller.Hex(), params.ID)
		}

		p.record(now)
		inside, err := p.ticks.FeeGrowthInside(pos.Lower, pos.Upper, p.vars.curTick, p.vars.feeGrowth)
		if err != nil {
			return err
		}
		fees, ok := feesOwed(inside, pos.FeeGrowthInsideLast, pos.Liquidity)
		if !ok {
			return fmt.Errorf("%w: fee growth inside decreased for position %d", ErrInvariant, params.ID)
		}
		newL := new(big.Int).Add(pos.Liquidity, delta)
		if newL.Sign() < 0 {
			return fmt.Errorf("%w: position %d holds %s, delta %s", ErrInsufficientLiquidity, params.ID, pos.Liquidity, delta)
		}

		amounts, err := p.applyLiquidityDelta(pos.Lower, pos.Upper, delta)
		if err != nil {
			return err
		}
		closed := newL.Sign() == 0
		if closed {
			if err := p.positions.Delete(params.ID); err != nil {
				return err
			}
			if err := p.releaseBound(pos.Lower); err != nil {
				return err
			}
			if err := p.releaseBound(pos.Upper); err != nil {
				return err
			}
		} else if err := p.positions.Update(params.ID, newL, inside); err != nil {
			return err
		}

		net := amounts.Sub(fees)
		if err := checkMax(net, params.MaxX, params.MaxY); err != nil {
			return err
		}
		toX, toY := params.ToX, params.ToY
		if toX == (common.Address{}) {
			toX = caller
		}
		if toY == (common.Address{}) {
			toY = caller
		}
		if err := p.transfer(ctx,
			p.settle(p.consts.TokenX, caller, toX, net.X),
			p.settle(p.consts.TokenY, caller, toY, net.Y),
		); err != nil {
			return err
		}

		res = UpdatePositionResult{
			AmountX: net.X,
			AmountY: net.Y,
			FeeX:    fees.X,
			FeeY:    fees.Y,
			Closed:  closed,
			Events: []Event{{Name: model.EventPositionUpdated, Data: model.PositionUpdatedEventData{
				PositionID:     uint64(params.ID),
				Owner:          pos.Owner.Hex(),
				LiquidityDelta: delta.String(),
				AmountX:        net.X.String(),
				AmountY:        net.Y.String(),
				FeeX:           fees.X.String(),
				FeeY:           fees.Y.String(),
			}}},
		}
		return nil
	})
	return res, err
}
