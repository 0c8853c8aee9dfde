// Package cfmm implements a concentrated-liquidity pool: positions over
// tick ranges, swaps that walk initialized ticks, fee accounting in x128
// fixed point, and a block-level cumulative oracle.
//
// Every exported operation holds the pool mutex, runs against a journal and
// either commits all of its effects, including token transfers, or none.
package cfmm

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"liquidityCurve/internal/journal"
	"liquidityCurve/internal/metrics"
	"liquidityCurve/internal/model"
	"liquidityCurve/internal/oracle"
	"liquidityCurve/internal/positions"
	"liquidityCurve/internal/tickmath"
	"liquidityCurve/internal/ticks"
)

// BpsDenominator is the basis-point scale of fee rates.
const BpsDenominator = 10000

// TokenTransferer executes token movements on the host ledger. A batch is
// applied atomically or not at all.
type TokenTransferer interface {
	Transfer(ctx context.Context, transfers []model.Transfer) error
}

// Config describes a new pool.
type Config struct {
	Name             string
	Address          common.Address
	Constants        model.Constants
	InitialTick      model.TickIndex
	ObservationCount uint64
}

// Options are the pool's collaborators.
type Options struct {
	Tokens  TokenTransferer
	Clock   Clock
	Ladder  *tickmath.Ladder
	Logger  *zap.Logger
	Metrics *metrics.Metrics
}

// Event is emitted by a committed operation. Data is one of the
// model.*EventData payloads.
type Event struct {
	Name string
	Data interface{}
}

type poolVars struct {
	liquidity *big.Int
	sqrtPrice *big.Int
	curTick   model.TickIndex
	witness   model.TickIndex
	feeGrowth model.XY
	devFees   model.XY
	paused    model.Feature
}

// Pool is safe for concurrent use.
type Pool struct {
	mu sync.Mutex

	name      string
	address   common.Address
	consts    model.Constants
	createdAt int64

	vars      poolVars
	ticks     *ticks.Registry
	positions *positions.Registry
	oracle    *oracle.Buffer
	journal   *journal.Journal

	ladder  *tickmath.Ladder
	tokens  TokenTransferer
	clock   Clock
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// PoolAddress derives a stable address for a named pool.
func PoolAddress(name string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("cfmm:" + name)))
}

func (o *Options) normalize() error {
	if o.Tokens == nil {
		return fmt.Errorf("%w: token transferer is required", ErrInvalidConfig)
	}
	if o.Clock == nil {
		o.Clock = SystemClock{}
	}
	if o.Ladder == nil {
		o.Ladder = tickmath.Default()
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return nil
}

func validateConstants(c model.Constants) error {
	if c.FeeBps >= BpsDenominator {
		return fmt.Errorf("%w: fee %d bps", ErrInvalidConfig, c.FeeBps)
	}
	if c.DevFeeBps > BpsDenominator {
		return fmt.Errorf("%w: dev fee %d bps", ErrInvalidConfig, c.DevFeeBps)
	}
	if c.TickSpacing == 0 {
		return fmt.Errorf("%w: zero tick spacing", ErrInvalidConfig)
	}
	if c.TokenX == c.TokenY {
		return fmt.Errorf("%w: token x equals token y", ErrInvalidConfig)
	}
	return nil
}

// New creates an empty pool priced at cfg.InitialTick.
func New(cfg Config, opts Options) (*Pool, error) {
	if err := opts.normalize(); err != nil {
		return nil, err
	}
	if err := validateConstants(cfg.Constants); err != nil {
		return nil, err
	}
	if cfg.Name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrInvalidConfig)
	}
	if cfg.InitialTick <= model.MinTick || cfg.InitialTick >= model.MaxTick {
		return nil, fmt.Errorf("%w: initial tick %d", ErrTickOutOfRange, cfg.InitialTick)
	}
	if cfg.ObservationCount == 0 {
		cfg.ObservationCount = 1
	}
	if cfg.Address == (common.Address{}) {
		cfg.Address = PoolAddress(cfg.Name)
	}

	now := opts.Clock.Now()
	j := journal.New()
	buf, err := oracle.New(now, cfg.InitialTick, cfg.ObservationCount, j)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	p := &Pool{
		name:      cfg.Name,
		address:   cfg.Address,
		consts:    cfg.Constants,
		createdAt: now,
		vars: poolVars{
			liquidity: new(big.Int),
			sqrtPrice: opts.Ladder.MustSqrtPriceAtTick(int32(cfg.InitialTick)),
			curTick:   cfg.InitialTick,
			witness:   model.MinTick,
			feeGrowth: model.ZeroXY(),
			devFees:   model.ZeroXY(),
		},
		ticks:     ticks.New(opts.Ladder, j),
		positions: positions.New(j),
		oracle:    buf,
		journal:   j,
		ladder:    opts.Ladder,
		tokens:    opts.Tokens,
		clock:     opts.Clock,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
	}
	p.logger.Info("pool created",
		zap.String("pool", p.name),
		zap.String("address", p.address.Hex()),
		zap.Int32("tick", int32(cfg.InitialTick)),
		zap.Uint64("fee_bps", cfg.Constants.FeeBps),
	)
	return p, nil
}

func (p *Pool) Name() string { return p.name }
func (p *Pool) Address() common.Address { return p.address }
func (p *Pool) Constants() model.Constants { return p.consts }

// SqrtPrice returns the current x80 sqrt price.
func (p *Pool) SqrtPrice() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.vars.sqrtPrice)
}

// CurrentTick returns the current tick index.
func (p *Pool) CurrentTick() model.TickIndex {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.vars.curTick
}

// Liquidity returns the in-range liquidity.
func (p *Pool) Liquidity() *big.Int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return new(big.Int).Set(p.vars.liquidity)
}

// Position returns a copy of a stored position.
func (p *Pool) Position(id model.PositionID) (model.Position, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.positions.Get(id)
}

// SetPaused replaces the set of paused features.
func (p *Pool) SetPaused(f model.Feature) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.vars.paused = f
	p.logger.Info("paused features updated", zap.String("pool", p.name), zap.Stringer("paused", f))
}

// apply runs fn under the pool lock and commits or reverts its effects.
func (p *Pool) apply(ctx context.Context, op string, fn func(now int64) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	start := time.Now()
	now := p.clock.Now()
	saved := p.vars
	err := fn(now)
	if err != nil {
		p.journal.Revert()
		p.vars = saved
		err = &OpError{Pool: p.name, Op: op, Err: err}
		p.logger.Debug("operation reverted",
			zap.String("pool", p.name),
			zap.String("op", op),
			zap.Int64("now", now),
			zap.Error(err),
		)
	} else {
		p.journal.Discard()
		p.logger.Debug("operation applied",
			zap.String("pool", p.name),
			zap.String("op", op),
			zap.Int64("now", now),
			zap.Int32("tick", int32(p.vars.curTick)),
			zap.String("liquidity", p.vars.liquidity.String()),
		)
		p.metrics.SetPoolSize(p.name, p.ticks.Len(), p.positions.Len())
	}
	p.metrics.ObserveOperation(p.name, op, err, time.Since(start))
	return err
}

func (p *Pool) guard(now, deadline int64, f model.Feature) error {
	if now > deadline {
		return fmt.Errorf("%w: now %d, deadline %d", ErrExpired, now, deadline)
	}
	if f != 0 && p.vars.paused.Has(f) {
		return fmt.Errorf("%w: %s", ErrFeaturePaused, f)
	}
	return nil
}

func (p *Pool) validateRange(lower, upper model.TickIndex) error {
	for _, idx := range []model.TickIndex{lower, upper} {
		if idx < model.MinTick || idx > model.MaxTick {
			return fmt.Errorf("%w: %d", ErrTickOutOfRange, idx)
		}
		if int64(idx)%int64(p.consts.TickSpacing) != 0 {
			return fmt.Errorf("%w: %d with spacing %d", ErrTickNotMultipleOfSpacing, idx, p.consts.TickSpacing)
		}
	}
	if lower >= upper {
		return fmt.Errorf("%w: lower %d, upper %d", ErrTicksOutOfOrder, lower, upper)
	}
	return nil
}

func (p *Pool) record(now int64) {
	p.oracle.Record(now, p.vars.curTick, p.vars.liquidity)
}

func (p *Pool) globals(now int64) (ticks.Globals, error) {
	v, err := p.oracle.ValueAt(now)
	if err != nil {
		return ticks.Globals{}, err
	}
	return ticks.Globals{
		Now:                 now,
		TickCumulative:      v.TickCumulative,
		FeeGrowth:           p.vars.feeGrowth,
		SecondsPerLiquidity: v.SecondsPerLiquidityCumulative,
	}, nil
}

// transfer sends the non-zero movements through the host ledger.
func (p *Pool) transfer(ctx context.Context, moves ...model.Transfer) error {
	batch := make([]model.Transfer, 0, len(moves))
	for _, m := range moves {
		if m.Amount == nil || m.Amount.Sign() == 0 {
			continue
		}
		if m.Amount.Sign() < 0 {
			return fmt.Errorf("%w: negative transfer %s", ErrInvariant, m.Amount)
		}
		batch = append(batch, m)
	}
	if len(batch) == 0 {
		return nil
	}
	if err := p.tokens.Transfer(ctx, batch); err != nil {
		return fmt.Errorf("token transfer: %w", err)
	}
	return nil
}

// settle turns a signed per-token flow into a transfer: positive amounts
// are paid by payer into the pool, negative ones are paid out to recipient.
func (p *Pool) settle(token, payer, recipient common.Address, amount *big.Int) model.Transfer {
	if amount.Sign() >= 0 {
		return model.Transfer{Token: token, From: payer, To: p.address, Amount: amount}
	}
	return model.Transfer{Token: token, From: p.address, To: recipient, Amount: new(big.Int).Neg(amount)}
}
