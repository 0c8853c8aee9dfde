package cfmm

import (
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"liquidityCurve/internal/journal"
	"liquidityCurve/internal/model"
	"liquidityCurve/internal/oracle"
	"liquidityCurve/internal/positions"
	"liquidityCurve/internal/ticks"
)

// Snapshot returns the pool's persistable state.
func (p *Pool) Snapshot() model.PoolState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot()
}

func (p *Pool) snapshot() model.PoolState {
	pos, ops := p.positions.State()
	return model.PoolState{
		Version:        model.PoolStateVersion,
		Name:           p.name,
		Address:        p.address,
		Constants:      p.consts,
		Liquidity:      p.vars.liquidity,
		SqrtPrice:      p.vars.sqrtPrice,
		CurTickIndex:   p.vars.curTick,
		CurTickWitness: p.vars.witness,
		FeeGrowth:      p.vars.feeGrowth,
		NewPositionID:  p.positions.NextID(),
		Ticks:          p.ticks.State(),
		Positions:      pos,
		Operators:      ops,
		Cumulatives:    p.oracle.State(),
		DevFees:        p.vars.devFees,
		Paused:         p.vars.paused,
		CreatedAt:      p.createdAt,
	}
}

// Restore rebuilds a pool from a snapshot and verifies its invariants.
func Restore(state model.PoolState, opts Options) (*Pool, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	if state.Version != model.PoolStateVersion {
		return nil, fmt.Errorf("%w: unsupported state version %d", ErrInvalidConfig, state.Version)
	}
	if err := validateConstants(state.Constants); err != nil {
		return nil, err
	}
	j := journal.New()
	tr, err := ticks.FromState(state.Ticks, opts.Ladder, j)
	if err != nil {
		return nil, fmt.Errorf("restore ticks: %w", err)
	}
	pr, err := positions.FromState(state.Positions, state.Operators, state.NewPositionID, j)
	if err != nil {
		return nil, fmt.Errorf("restore positions: %w", err)
	}
	buf, err := oracle.FromState(state.Cumulatives, j)
	if err != nil {
		return nil, fmt.Errorf("restore cumulatives: %w", err)
	}
	p := &Pool{
		name:      state.Name,
		address:   state.Address,
		consts:    state.Constants,
		createdAt: state.CreatedAt,
		vars: poolVars{
			liquidity: orZero(state.Liquidity),
			sqrtPrice: orZero(state.SqrtPrice),
			curTick:   state.CurTickIndex,
			witness:   state.CurTickWitness,
			feeGrowth: xyOrZero(state.FeeGrowth),
			devFees:   xyOrZero(state.DevFees),
			paused:    state.Paused,
		},
		ticks:     tr,
		positions: pr,
		oracle:    buf,
		journal:   j,
		ladder:    opts.Ladder,
		tokens:    opts.Tokens,
		clock:     opts.Clock,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
	if err := p.checkInvariants(); err != nil {
		return nil, fmt.Errorf("restore %s: %w", state.Name, err)
	}
	p.logger.Info("pool restored",
		zap.String("pool", p.name),
		zap.Int("ticks", tr.Len()),
		zap.Int("positions", pr.Len()),
	)
	return p, nil
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

func xyOrZero(v model.XY) model.XY {
	return model.XY{X: orZero(v.X), Y: orZero(v.Y)}
}
