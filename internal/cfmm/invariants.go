package cfmm

import (
	"fmt"
	"math/big"

	"liquidityCurve/internal/model"
)

// CheckInvariants verifies the pool's structural and numeric invariants.
func (p *Pool) CheckInvariants() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.checkInvariants()
}

func (p *Pool) checkInvariants() error {
	if err := p.ticks.CheckChain(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvariant, err)
	}
	if err := p.oracle.CheckInvariants(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvariant, err)
	}

	cur, witness := p.vars.curTick, p.vars.witness
	if cur < model.MinTick || cur >= model.MaxTick {
		return fmt.Errorf("%w: current tick %d out of range", ErrInvariant, cur)
	}

	// witness is the greatest initialized tick at or below the current tick
	netBelow := new(big.Int)
	refs := make(map[model.TickIndex]uint64)
	greatest := model.MinTick
	for _, idx := range p.ticks.Ascending() {
		t, _ := p.ticks.Get(idx)
		if idx <= cur {
			greatest = idx
			netBelow.Add(netBelow, t.LiquidityNet)
		}
		refs[idx] = 0
	}
	if witness != greatest {
		return fmt.Errorf("%w: witness %d, greatest initialized tick at or below %d is %d", ErrInvariant, witness, cur, greatest)
	}
	if netBelow.Cmp(p.vars.liquidity) != 0 {
		return fmt.Errorf("%w: liquidity %s, net below current tick %s", ErrInvariant, p.vars.liquidity, netBelow)
	}

	inRange := new(big.Int)
	nets := make(map[model.TickIndex]*big.Int)
	for _, id := range p.positions.IDs() {
		pos, _ := p.positions.Get(id)
		if pos.Liquidity.Sign() <= 0 {
			return fmt.Errorf("%w: position %d has liquidity %s", ErrInvariant, id, pos.Liquidity)
		}
		if _, ok := refs[pos.Lower]; !ok {
			return fmt.Errorf("%w: position %d lower tick %d not initialized", ErrInvariant, id, pos.Lower)
		}
		if _, ok := refs[pos.Upper]; !ok {
			return fmt.Errorf("%w: position %d upper tick %d not initialized", ErrInvariant, id, pos.Upper)
		}
		refs[pos.Lower]++
		refs[pos.Upper]++
		addNet(nets, pos.Lower, pos.Liquidity)
		addNet(nets, pos.Upper, new(big.Int).Neg(pos.Liquidity))
		if pos.Lower <= cur && cur < pos.Upper {
			inRange.Add(inRange, pos.Liquidity)
		}
	}
	if inRange.Cmp(p.vars.liquidity) != 0 {
		return fmt.Errorf("%w: liquidity %s, positions in range %s", ErrInvariant, p.vars.liquidity, inRange)
	}
	for idx, n := range refs {
		t, _ := p.ticks.Get(idx)
		if !idx.IsSentinel() && t.NPositions != n {
			return fmt.Errorf("%w: tick %d counts %d positions, found %d", ErrInvariant, idx, t.NPositions, n)
		}
		want := nets[idx]
		if want == nil {
			want = new(big.Int)
		}
		if t.LiquidityNet.Cmp(want) != 0 {
			return fmt.Errorf("%w: tick %d liquidity net %s, positions imply %s", ErrInvariant, idx, t.LiquidityNet, want)
		}
	}

	lo, err := p.ladder.SqrtPriceAtTick(int32(cur))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvariant, err)
	}
	hi, err := p.ladder.SqrtPriceAtTick(int32(cur + 1))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvariant, err)
	}
	if p.vars.sqrtPrice.Cmp(lo) < 0 || p.vars.sqrtPrice.Cmp(hi) > 0 {
		return fmt.Errorf("%w: sqrt price %s outside [%s, %s] of tick %d", ErrInvariant, p.vars.sqrtPrice, lo, hi, cur)
	}
	return nil
}

func addNet(nets map[model.TickIndex]*big.Int, idx model.TickIndex, v *big.Int) {
	if nets[idx] == nil {
		nets[idx] = new(big.Int)
	}
	nets[idx].Add(nets[idx], v)
}
