// Package sim replays recorded pool operations against in-memory pools,
// writing receipts and persisting pool snapshots as it goes.
package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"liquidityCurve/internal/cfmm"
	"liquidityCurve/internal/events"
	"liquidityCurve/internal/metrics"
	"liquidityCurve/internal/model"
	"liquidityCurve/internal/storage"
	"liquidityCurve/internal/tickmath"
	"liquidityCurve/internal/tokens"
)

// RunConfig holds runtime settings for a replay.
type RunConfig struct {
	InputPath         string
	BatchSize         int
	Concurrency       int
	CheckpointPath    string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	Admin             common.Address
	Pools             []cfmm.Config
}

// PoolResult summarizes the replay of one pool.
type PoolResult struct {
	Name    string
	Applied int
	Failed  int
	Skipped int
	LastSeq uint64
	State   model.PoolState
	Ledger  *tokens.Ledger
}

// Runner replays operation records and writes receipts to storage.
type Runner struct {
	cfg        RunConfig
	receipts   storage.Storage
	states     storage.StateStore
	metrics    *metrics.Metrics
	logger     *zap.Logger
	encoder    *events.Encoder
	ladder     *tickmath.Ladder
	checkpoint *CheckpointStore
}

// NewRunner builds a Runner with its dependencies. states may be nil when
// checkpointing is disabled.
func NewRunner(cfg RunConfig, receipts storage.Storage, states storage.StateStore, m *metrics.Metrics, logger *zap.Logger) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	enc, err := events.NewEncoder()
	if err != nil {
		return nil, err
	}
	return &Runner{
		cfg:        cfg,
		receipts:   receipts,
		states:     states,
		metrics:    m,
		logger:     logger,
		encoder:    enc,
		ladder:     tickmath.Default(),
		checkpoint: NewCheckpointStore(cfg.CheckpointPath, cfg.CheckpointEnabled),
	}, nil
}

// Run replays the input file. Pools run concurrently; each pool applies
// its records in sequence order.
func (r *Runner) Run(ctx context.Context) ([]PoolResult, error) {
	if r.receipts == nil {
		return nil, fmt.Errorf("storage is nil")
	}
	if r.cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be greater than zero")
	}
	if r.cfg.CheckpointEnabled && r.states == nil {
		return nil, fmt.Errorf("checkpointing requires a state store")
	}

	records, err := storage.ReadOperations(r.cfg.InputPath)
	if err != nil {
		return nil, err
	}
	groups, order, err := groupByPool(records)
	if err != nil {
		return nil, err
	}

	cp, resumed, err := r.checkpoint.Load()
	if err != nil {
		return nil, err
	}
	if resumed {
		r.logger.Info("resume from checkpoint", zap.Int("pools", len(cp.Pools)), zap.String("updated_at", cp.UpdatedAt))
	}

	results := make([]PoolResult, len(order))
	g, gctx := errgroup.WithContext(ctx)
	if r.cfg.Concurrency > 0 {
		g.SetLimit(r.cfg.Concurrency)
	}
	for i, name := range order {
		i, name := i, name
		progress, hasProgress := cp.Pools[name]
		g.Go(func() error {
			res, err := r.runPool(gctx, name, groups[name], progress, hasProgress)
			if err != nil {
				return fmt.Errorf("pool %s: %w", name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var applied, failed int
	for _, res := range results {
		applied += res.Applied
		failed += res.Failed
	}
	r.logger.Info("replay complete",
		zap.Int("pools", len(results)),
		zap.Int("records", len(records)),
		zap.Int("applied", applied),
		zap.Int("failed", failed),
	)
	return results, nil
}

func (r *Runner) runPool(ctx context.Context, name string, records []model.OperationRecord, progress PoolProgress, resumed bool) (PoolResult, error) {
	logger := r.logger.With(zap.String("pool", name))
	res := PoolResult{Name: name, LastSeq: progress.LastSeq}

	pending := records
	if resumed {
		for len(pending) > 0 && pending[0].Seq <= progress.LastSeq {
			pending = pending[1:]
		}
		res.Skipped = len(records) - len(pending)
	}
	if len(pending) == 0 {
		logger.Info("nothing to replay", zap.Uint64("last_seq", progress.LastSeq))
	}

	start := int64(0)
	if len(pending) > 0 {
		start = pending[0].Time
	}
	w, err := r.openPool(ctx, name, start, progress, resumed)
	if err != nil {
		return res, err
	}

	ranges, err := SplitBatches(len(pending), r.cfg.BatchSize)
	if err != nil {
		return res, err
	}
	for _, batch := range ranges {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		receipts := make([]model.Receipt, 0, batch.To-batch.From+1)
		for _, rec := range pending[batch.From : batch.To+1] {
			out, opErr := w.apply(ctx, rec)
			if opErr != nil && ctx.Err() != nil {
				return res, ctx.Err()
			}
			receipt, err := r.buildReceipt(w.pool.Address(), rec, out, opErr)
			if err != nil {
				return res, err
			}
			if opErr != nil {
				res.Failed++
				logger.Debug("operation failed", zap.Uint64("seq", rec.Seq), zap.String("op", rec.Op), zap.Error(opErr))
			} else {
				res.Applied++
			}
			r.metrics.CountRecord(receipt.Status)
			receipts = append(receipts, receipt)
			res.LastSeq = rec.Seq
		}

		if err := r.receipts.PutReceipts(receipts); err != nil {
			return res, fmt.Errorf("store receipts: %w", err)
		}
		if err := r.persist(ctx, w, res.LastSeq); err != nil {
			return res, err
		}
		logger.Info("batch complete",
			zap.Int("records", len(receipts)),
			zap.Uint64("last_seq", res.LastSeq),
			zap.Int32("tick", int32(w.pool.CurrentTick())),
		)
	}

	if err := w.pool.CheckInvariants(); err != nil {
		return res, err
	}
	res.State = w.pool.Snapshot()
	res.Ledger = w.ledger
	return res, nil
}

// openPool resumes a checkpointed pool from the state store, or creates it
// from config, or restores a snapshot saved by an earlier run.
func (r *Runner) openPool(ctx context.Context, name string, start int64, progress PoolProgress, resumed bool) (*poolWorker, error) {
	clock := cfmm.NewManualClock(start)
	w := &poolWorker{clock: clock, admin: r.cfg.Admin}
	opts := cfmm.Options{
		Clock:   clock,
		Ladder:  r.ladder,
		Logger:  r.logger,
		Metrics: r.metrics,
	}

	if resumed {
		ledger, err := tokens.Restore(progress.Balances)
		if err != nil {
			return nil, err
		}
		state, err := r.states.LoadPool(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("load checkpointed pool: %w", err)
		}
		w.ledger = ledger
		opts.Tokens = ledger
		if w.pool, err = cfmm.Restore(state, opts); err != nil {
			return nil, err
		}
		return w, nil
	}

	w.ledger = tokens.NewLedger()
	opts.Tokens = w.ledger
	for _, cfg := range r.cfg.Pools {
		if cfg.Name != name {
			continue
		}
		pool, err := cfmm.New(cfg, opts)
		if err != nil {
			return nil, err
		}
		w.pool = pool
		return w, nil
	}

	if r.states != nil {
		state, err := r.states.LoadPool(ctx, name)
		switch {
		case err == nil:
			pool, err := cfmm.Restore(state, opts)
			if err != nil {
				return nil, err
			}
			w.pool = pool
			return w, nil
		case !errors.Is(err, storage.ErrPoolNotFound):
			return nil, err
		}
	}
	return nil, fmt.Errorf("pool %q is neither configured nor stored", name)
}

// persist saves the pool snapshot, then advances the checkpoint.
func (r *Runner) persist(ctx context.Context, w *poolWorker, lastSeq uint64) error {
	if r.states == nil {
		return nil
	}
	state := w.pool.Snapshot()
	err := withRetry(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(attempt int, err error) {
		r.metrics.CountRetry("state")
		r.logger.Warn("save pool failed", zap.String("pool", state.Name), zap.Int("attempt", attempt), zap.Error(err))
	}, func(ctx context.Context) error {
		return r.states.SavePool(ctx, state)
	})
	if err != nil {
		return fmt.Errorf("save pool: %w", err)
	}
	return r.checkpoint.Save(state.Name, PoolProgress{LastSeq: lastSeq, Balances: w.ledger.Balances()})
}
