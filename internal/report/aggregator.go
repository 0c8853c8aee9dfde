// Package report aggregates swap events from replay receipts into
// per-window pool metrics.
package report

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"go.uber.org/zap"

	"liquidityCurve/internal/events"
	"liquidityCurve/internal/model"
	"liquidityCurve/internal/storage"
)

// Config controls aggregation behavior.
type Config struct {
	WindowSeconds int64
	BatchSize     int
	RecomputeFrom int64
	StateStore    StateStore
	Tokens        *TokenRegistry
}

// Aggregator aggregates swap events into pool window metrics.
type Aggregator struct {
	cfg          Config
	sink         Sink
	decoder      *events.Decoder
	logger       *zap.Logger
	accumulators map[string]*Accumulator
}

func NewAggregator(cfg Config, sink Sink, logger *zap.Logger) (*Aggregator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Tokens == nil {
		cfg.Tokens = NewTokenRegistry(nil)
	}
	dec, err := events.NewDecoder()
	if err != nil {
		return nil, err
	}
	return &Aggregator{
		cfg:          cfg,
		sink:         sink,
		decoder:      dec,
		logger:       logger,
		accumulators: make(map[string]*Accumulator),
	}, nil
}

// Run executes aggregation over a receipts JSONL file.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	if a.sink == nil {
		return fmt.Errorf("sink is nil")
	}
	if a.cfg.WindowSeconds <= 0 {
		return fmt.Errorf("window seconds must be > 0")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	batch := make([]model.PoolWindowMetrics, 0, a.cfg.BatchSize)
	var total, swaps, skipped, failed int

	err = storage.ScanLines(file, func(line []byte) error {
		total++

		var receipt model.Receipt
		if err := json.Unmarshal(line, &receipt); err != nil {
			failed++
			a.logger.Warn("decode receipt", zap.Error(err))
			return nil
		}
		if receipt.Status != model.StatusApplied {
			return nil
		}

		for _, log := range receipt.Logs {
			if len(log.Topics) == 0 || !a.decoder.CanDecode(log.Topics[0]) {
				continue
			}
			if log.Timestamp <= startTs {
				skipped++
				continue
			}
			event, err := a.decoder.Decode(log)
			if err != nil {
				failed++
				a.logger.Warn("decode log", zap.Error(err), zap.String("pool", log.Pool), zap.Uint64("seq", log.Seq))
				continue
			}
			swap, ok := event.Decoded.(model.SwapEventData)
			if !ok {
				continue
			}

			start := windowStart(event.Timestamp, a.cfg.WindowSeconds)
			acc := a.accumulators[event.Pool]
			if acc != nil && acc.WindowStart != start {
				batch = append(batch, a.flushAccumulator(acc))
				acc = nil
			}
			if acc == nil {
				acc = NewAccumulator(event.Pool, start, start+a.cfg.WindowSeconds)
				a.accumulators[event.Pool] = acc
			}

			if err := acc.AddSwap(*event, swap); err != nil {
				failed++
				a.logger.Warn("aggregate event", zap.Error(err), zap.String("pool", event.Pool), zap.String("event", event.EventName))
				continue
			}
			swaps++
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.sink.UpsertWindowMetrics(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
			if err := a.saveState(ctx, startTs); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	// The trailing windows may still grow, so the saved resume point stays
	// below them and the next run rebuilds them whole.
	resume := a.resumePoint(startTs)
	for _, acc := range a.accumulators {
		batch = append(batch, a.flushAccumulator(acc))
	}
	a.accumulators = make(map[string]*Accumulator)

	if len(batch) > 0 {
		if err := a.sink.UpsertWindowMetrics(ctx, batch); err != nil {
			return err
		}
	}
	if resume != math.MinInt64 && a.cfg.StateStore != nil {
		if err := a.cfg.StateStore.Save(ctx, resume); err != nil {
			return err
		}
	}

	a.logger.Info("report complete",
		zap.Int("receipts", total),
		zap.Int("swaps", swaps),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)
	return nil
}

// loadStartTimestamp returns the timestamp after which swaps are counted.
func (a *Aggregator) loadStartTimestamp(ctx context.Context) (int64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return math.MinInt64, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return math.MinInt64, nil
	}
	return last, nil
}

func (a *Aggregator) saveState(ctx context.Context, startTs int64) error {
	if a.cfg.StateStore == nil {
		return nil
	}
	resume := a.resumePoint(startTs)
	if resume == math.MinInt64 {
		return nil
	}
	return a.cfg.StateStore.Save(ctx, resume)
}

// resumePoint is the last timestamp whose windows are all closed.
func (a *Aggregator) resumePoint(startTs int64) int64 {
	if len(a.accumulators) == 0 {
		return startTs
	}
	return minOpenWindowStart(a.accumulators) - 1
}

func (a *Aggregator) flushAccumulator(acc *Accumulator) model.PoolWindowMetrics {
	tokens, _ := a.cfg.Tokens.Get(acc.Pool)
	decX, decY := tokens.X.Decimals, tokens.Y.Decimals

	reserveX, reserveY := virtualReserves(acc.LastLiquidity, acc.LastSqrtPrice)
	rateX, rateY := computeFeeRates(acc.FeeX, acc.FeeY, reserveX, reserveY)

	return model.PoolWindowMetrics{
		Pool:           acc.Pool,
		WindowSizeSecs: a.cfg.WindowSeconds,
		WindowStart:    time.Unix(acc.WindowStart, 0).UTC(),
		WindowEnd:      time.Unix(acc.WindowEnd, 0).UTC(),
		SwapCount:      acc.SwapCount,
		VolumeX:        formatTokenAmount(acc.VolumeX, decX),
		VolumeY:        formatTokenAmount(acc.VolumeY, decY),
		FeeX:           formatTokenAmount(acc.FeeX, decX),
		FeeY:           formatTokenAmount(acc.FeeY, decY),
		ReserveX:       optionalAmount(reserveX, decX),
		ReserveY:       optionalAmount(reserveY, decY),
		FeeRateX:       rateX,
		FeeRateY:       rateY,
		APR:            computeAPR(rateX, rateY, a.cfg.WindowSeconds),
		LastTick:       acc.LastTick,
		LastSqrtPrice:  acc.LastSqrtPrice.String(),
	}
}

func minOpenWindowStart(acc map[string]*Accumulator) int64 {
	var min int64
	first := true
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if first || entry.WindowStart < min {
			min = entry.WindowStart
			first = false
		}
	}
	return min
}
