package cfmm

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityCurve/internal/fixedpoint"
	"liquidityCurve/internal/model"
)

// SwapParams sell AmountIn of the input token. A zero Receiver means the
// caller; a nil MinOut means no minimum.
type SwapParams struct {
	AmountIn *big.Int       `json:"amount_in"`
	Deadline int64          `json:"deadline"`
	MinOut   *big.Int       `json:"min_out,omitempty"`
	Receiver common.Address `json:"receiver"`
}

// SwapResult reports the input actually consumed, which can be below
// AmountIn when the price reaches a sentinel bound.
type SwapResult struct {
	AmountIn  *big.Int        `json:"amount_in"`
	AmountOut *big.Int        `json:"amount_out"`
	Fee       *big.Int        `json:"fee"`
	Crossings int             `json:"crossings"`
	SqrtPrice *big.Int        `json:"sqrt_price"`
	Tick      model.TickIndex `json:"tick"`
	Events    []Event         `json:"-"`
}

var (
	bigOne = big.NewInt(1)
	bpsDen = big.NewInt(BpsDenominator)
)

// SwapXY sells token x for token y, moving the price down.
func (p *Pool) SwapXY(ctx context.Context, caller common.Address, params SwapParams) (SwapResult, error) {
	return p.swap(ctx, caller, params, true)
}

// SwapYX sells token y for token x, moving the price up.
func (p *Pool) SwapYX(ctx context.Context, caller common.Address, params SwapParams) (SwapResult, error) {
	return p.swap(ctx, caller, params, false)
}

func (p *Pool) swap(ctx context.Context, caller common.Address, params SwapParams, xToY bool) (SwapResult, error) {
	op, feature, direction := model.OpSwapXY, model.FeatureSwapXY, "x_to_y"
	tokenIn, tokenOut := p.consts.TokenX, p.consts.TokenY
	if !xToY {
		op, feature, direction = model.OpSwapYX, model.FeatureSwapYX, "y_to_x"
		tokenIn, tokenOut = p.consts.TokenY, p.consts.TokenX
	}

	var res SwapResult
	err := p.apply(ctx, op, func(now int64) error {
		if err := p.guard(now, params.Deadline, feature); err != nil {
			return err
		}
		if params.AmountIn == nil || params.AmountIn.Sign() < 0 {
			return fmt.Errorf("%w: swap amount %v", ErrInvalidConfig, params.AmountIn)
		}
		p.record(now)

		var (
			out swapOutcome
			err error
		)
		if xToY {
			out, err = p.walkDown(now, params.AmountIn)
		} else {
			out, err = p.walkUp(now, params.AmountIn)
		}
		if err != nil {
			return err
		}
		if params.MinOut != nil && out.out.Cmp(params.MinOut) < 0 {
			return fmt.Errorf("%w: out %s below minimum %s", ErrSlippageExceeded, out.out, params.MinOut)
		}

		receiver := params.Receiver
		if receiver == (common.Address{}) {
			receiver = caller
		}
		if err := p.transfer(ctx,
			model.Transfer{Token: tokenIn, From: caller, To: p.address, Amount: out.consumed},
			model.Transfer{Token: tokenOut, From: p.address, To: receiver, Amount: out.out},
		); err != nil {
			return err
		}

		res = SwapResult{
			AmountIn:  out.consumed,
			AmountOut: out.out,
			Fee:       out.fee,
			Crossings: out.crossings,
			SqrtPrice: new(big.Int).Set(p.vars.sqrtPrice),
			Tick:      p.vars.curTick,
			Events: []Event{{Name: model.EventSwap, Data: model.SwapEventData{
				Sender:       caller.Hex(),
				Receiver:     receiver.Hex(),
				XToY:         xToY,
				AmountIn:     out.consumed.String(),
				AmountOut:    out.out.String(),
				Fee:          out.fee.String(),
				SqrtPriceX80: p.vars.sqrtPrice.String(),
				Liquidity:    p.vars.liquidity.String(),
				Tick:         int32(p.vars.curTick),
			}}},
		}
		input, _ := new(big.Float).SetInt(out.consumed).Float64()
		p.metrics.AddSwap(p.name, direction, input, out.crossings)
		if out.crossings > 0 {
			p.logger.Debug("swap crossed ticks",
				zap.String("pool", p.name),
				zap.String("direction", direction),
				zap.Int("crossings", out.crossings),
				zap.Int32("tick", int32(p.vars.curTick)),
			)
		}
		return nil
	})
	return res, err
}

type swapOutcome struct {
	consumed  *big.Int
	out       *big.Int
	fee       *big.Int
	crossings int
}

func newSwapOutcome() swapOutcome {
	return swapOutcome{consumed: new(big.Int), out: new(big.Int), fee: new(big.Int)}
}

func (o *swapOutcome) add(consumed, out, fee *big.Int) {
	o.consumed = fixedpoint.Add(o.consumed, consumed)
	o.out = fixedpoint.Add(o.out, out)
	o.fee = fixedpoint.Add(o.fee, fee)
}

// swapFee is ceil(amount·fee_bps / 10000).
func (p *Pool) swapFee(amount *big.Int) *big.Int {
	return fixedpoint.MulDiv(amount, new(big.Int).SetUint64(p.consts.FeeBps), bpsDen, fixedpoint.Ceil)
}

// grossUp returns the input whose post-fee part is at least net:
// ceil(net·10000 / (10000 − fee_bps)).
func (p *Pool) grossUp(net *big.Int) *big.Int {
	return fixedpoint.MulDiv(net, bpsDen, big.NewInt(int64(BpsDenominator-p.consts.FeeBps)), fixedpoint.Ceil)
}

// accrueFee splits a charged fee between the dev fee and liquidity
// providers, whose share raises fee growth by floor(fee·2^128 / L).
func (p *Pool) accrueFee(xToY bool, fee, liquidity *big.Int) {
	if fee.Sign() == 0 {
		return
	}
	dev := fixedpoint.MulDiv(fee, new(big.Int).SetUint64(p.consts.DevFeeBps), bpsDen, fixedpoint.Floor)
	lp := fixedpoint.Sub(fee, dev)
	growth := fixedpoint.FloorDiv(fixedpoint.ShiftLeft(lp, fixedpoint.AccumulatorBits), liquidity)
	if xToY {
		p.vars.feeGrowth = model.XY{X: fixedpoint.Add(p.vars.feeGrowth.X, growth), Y: p.vars.feeGrowth.Y}
		p.vars.devFees = model.XY{X: fixedpoint.Add(p.vars.devFees.X, dev), Y: p.vars.devFees.Y}
		return
	}
	p.vars.feeGrowth = model.XY{X: p.vars.feeGrowth.X, Y: fixedpoint.Add(p.vars.feeGrowth.Y, growth)}
	p.vars.devFees = model.XY{X: p.vars.devFees.X, Y: fixedpoint.Add(p.vars.devFees.Y, dev)}
}

// crossDown moves below the witness tick.
func (p *Pool) crossDown(now int64, index model.TickIndex) error {
	g, err := p.globals(now)
	if err != nil {
		return err
	}
	t, err := p.ticks.Cross(index, g)
	if err != nil {
		return err
	}
	l := fixedpoint.Sub(p.vars.liquidity, t.LiquidityNet)
	if l.Sign() < 0 {
		return fmt.Errorf("%w: liquidity %s after crossing %d down", ErrInvariant, l, index)
	}
	p.vars.liquidity = l
	p.vars.curTick = index - 1
	p.vars.witness = t.Prev
	return nil
}

// crossUp moves onto the tick above the witness.
func (p *Pool) crossUp(now int64, index model.TickIndex) error {
	g, err := p.globals(now)
	if err != nil {
		return err
	}
	t, err := p.ticks.Cross(index, g)
	if err != nil {
		return err
	}
	l := fixedpoint.Add(p.vars.liquidity, t.LiquidityNet)
	if l.Sign() < 0 {
		return fmt.Errorf("%w: liquidity %s after crossing %d up", ErrInvariant, l, index)
	}
	p.vars.liquidity = l
	p.vars.curTick = index
	p.vars.witness = index
	return nil
}

// walkDown sells x, one segment between initialized ticks at a time.
func (p *Pool) walkDown(now int64, amountIn *big.Int) (swapOutcome, error) {
	o := newSwapOutcome()
	remaining := fixedpoint.Copy(amountIn)
	for remaining.Sign() > 0 {
		w := p.vars.witness
		wt, err := p.ticks.MustGet(w)
		if err != nil {
			return o, err
		}
		l, price := p.vars.liquidity, p.vars.sqrtPrice

		if l.Sign() == 0 {
			if w == model.MinTick {
				break
			}
			p.vars.sqrtPrice = fixedpoint.Sub(wt.SqrtPrice, bigOne)
			if err := p.crossDown(now, w); err != nil {
				return o, err
			}
			o.crossings++
			continue
		}

		fee := p.swapFee(remaining)
		net := fixedpoint.Sub(remaining, fee)
		// P' = ceil(L·P·2^80 / (L·2^80 + dx·P))
		lShifted := fixedpoint.ShiftLeft(l, fixedpoint.PriceBits)
		den := fixedpoint.Add(lShifted, fixedpoint.Mul(net, price))
		next := fixedpoint.CeilDiv(fixedpoint.Mul(lShifted, price), den)

		if next.Cmp(wt.SqrtPrice) >= 0 {
			out := fixedpoint.ShiftRight(fixedpoint.Mul(fixedpoint.Sub(price, next), l), fixedpoint.PriceBits)
			p.accrueFee(true, fee, l)
			o.add(remaining, out, fee)
			p.vars.sqrtPrice = next
			p.vars.curTick = model.TickIndex(p.ladder.TickAtSqrtPrice(next, int32(w), int32(p.vars.curTick)))
			break
		}

		atBound := w == model.MinTick
		target := fixedpoint.Sub(wt.SqrtPrice, bigOne)
		if atBound {
			target = wt.SqrtPrice
		}
		if target.Cmp(price) >= 0 {
			break
		}
		diff := fixedpoint.Sub(price, target)
		// dx to reach target: ceil(L·2^80·(P − target) / (P·target))
		need := fixedpoint.CeilDiv(fixedpoint.Mul(lShifted, diff), fixedpoint.Mul(price, target))
		consumed := fixedpoint.Min(p.grossUp(need), remaining)
		fee = fixedpoint.Sub(consumed, fixedpoint.Min(need, consumed))
		out := fixedpoint.ShiftRight(fixedpoint.Mul(diff, l), fixedpoint.PriceBits)

		p.accrueFee(true, fee, l)
		o.add(consumed, out, fee)
		remaining = fixedpoint.Sub(remaining, consumed)
		p.vars.sqrtPrice = target
		if atBound {
			p.vars.curTick = model.MinTick
			break
		}
		if err := p.crossDown(now, w); err != nil {
			return o, err
		}
		o.crossings++
	}
	return o, nil
}

// walkUp sells y, one segment between initialized ticks at a time.
func (p *Pool) walkUp(now int64, amountIn *big.Int) (swapOutcome, error) {
	o := newSwapOutcome()
	remaining := fixedpoint.Copy(amountIn)
	for remaining.Sign() > 0 {
		wt, err := p.ticks.MustGet(p.vars.witness)
		if err != nil {
			return o, err
		}
		nextIdx := wt.Next
		nt, err := p.ticks.MustGet(nextIdx)
		if err != nil {
			return o, err
		}
		l, price := p.vars.liquidity, p.vars.sqrtPrice

		if l.Sign() == 0 {
			if nextIdx == model.MaxTick {
				break
			}
			p.vars.sqrtPrice = nt.SqrtPrice
			if err := p.crossUp(now, nextIdx); err != nil {
				return o, err
			}
			o.crossings++
			continue
		}

		fee := p.swapFee(remaining)
		net := fixedpoint.Sub(remaining, fee)
		// P' = P + floor(dy·2^80 / L)
		next := fixedpoint.Add(price, fixedpoint.FloorDiv(fixedpoint.ShiftLeft(net, fixedpoint.PriceBits), l))
		lShifted := fixedpoint.ShiftLeft(l, fixedpoint.PriceBits)

		if next.Cmp(nt.SqrtPrice) < 0 {
			// dx = floor(L·2^80·(P' − P) / (P·P'))
			out := fixedpoint.FloorDiv(fixedpoint.Mul(lShifted, fixedpoint.Sub(next, price)), fixedpoint.Mul(price, next))
			p.accrueFee(false, fee, l)
			o.add(remaining, out, fee)
			p.vars.sqrtPrice = next
			p.vars.curTick = model.TickIndex(p.ladder.TickAtSqrtPrice(next, int32(p.vars.curTick), int32(nextIdx-1)))
			break
		}

		atBound := nextIdx == model.MaxTick
		target := nt.SqrtPrice
		if atBound {
			target = fixedpoint.Sub(nt.SqrtPrice, bigOne)
		}
		if target.Cmp(price) <= 0 {
			break
		}
		diff := fixedpoint.Sub(target, price)
		// dy to reach target: ceil(L·(target − P) / 2^80)
		need := fixedpoint.ShiftRightCeil(fixedpoint.Mul(l, diff), fixedpoint.PriceBits)
		consumed := fixedpoint.Min(p.grossUp(need), remaining)
		fee = fixedpoint.Sub(consumed, fixedpoint.Min(need, consumed))
		out := fixedpoint.FloorDiv(fixedpoint.Mul(lShifted, diff), fixedpoint.Mul(price, target))

		p.accrueFee(false, fee, l)
		o.add(consumed, out, fee)
		remaining = fixedpoint.Sub(remaining, consumed)
		p.vars.sqrtPrice = target
		if atBound {
			p.vars.curTick = model.TickIndex(p.ladder.TickAtSqrtPrice(target, int32(p.vars.curTick), int32(model.MaxTick-1)))
			break
		}
		if err := p.crossUp(now, nextIdx); err != nil {
			return o, err
		}
		o.crossings++
	}
	return o, nil
}
