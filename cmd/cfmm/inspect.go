package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"os"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityCurve/internal/cfmm"
	"liquidityCurve/internal/config"
	"liquidityCurve/internal/model"
	"liquidityCurve/internal/storage/kv"
	"liquidityCurve/internal/tokens"
)

type poolSummary struct {
	Name         string                   `json:"name"`
	Address      common.Address           `json:"address"`
	Constants    model.Constants          `json:"constants"`
	Liquidity    *big.Int                 `json:"liquidity"`
	SqrtPrice    *big.Int                 `json:"sqrt_price"`
	Tick         model.TickIndex          `json:"tick"`
	Witness      model.TickIndex          `json:"witness"`
	Ticks        int                      `json:"initialized_ticks"`
	Positions    int                      `json:"positions"`
	DevFees      model.XY                 `json:"dev_fees"`
	Paused       string                   `json:"paused,omitempty"`
	Observations uint64                   `json:"observation_count"`
	Observed     []model.CumulativesValue `json:"observed,omitempty"`
}

func runInspect(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadInspect(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Store == config.StoreNone {
		return fmt.Errorf("inspect needs a kv or postgres store")
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	backend, err := openStateStore(ctx, cfg.Store, cfg.KVDir, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer backend.Close()

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")

	if cfg.Pool == "" {
		lister, ok := backend.(*kv.Store)
		if !ok {
			return fmt.Errorf("pool-name is required for the %s store", cfg.Store)
		}
		names, err := lister.PoolNames(ctx)
		if err != nil {
			return err
		}
		return enc.Encode(names)
	}

	state, err := backend.LoadPool(ctx, cfg.Pool)
	if err != nil {
		return err
	}

	// Observations are answered as of the latest requested timestamp.
	var clock cfmm.Clock = cfmm.SystemClock{}
	if len(cfg.Observe) > 0 {
		latest := cfg.Observe[0]
		for _, ts := range cfg.Observe[1:] {
			if ts > latest {
				latest = ts
			}
		}
		clock = cfmm.NewManualClock(latest)
	}

	pool, err := cfmm.Restore(state, cfmm.Options{
		Tokens: tokens.NewLedger(),
		Clock:  clock,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("restore pool: %w", err)
	}
	if err := pool.CheckInvariants(); err != nil {
		logger.Warn("stored pool violates invariants", zap.String("pool", cfg.Pool), zap.Error(err))
	}

	summary := poolSummary{
		Name:         state.Name,
		Address:      state.Address,
		Constants:    state.Constants,
		Liquidity:    state.Liquidity,
		SqrtPrice:    state.SqrtPrice,
		Tick:         state.CurTickIndex,
		Witness:      state.CurTickWitness,
		Ticks:        len(state.Ticks),
		Positions:    len(state.Positions),
		DevFees:      state.DevFees,
		Paused:       state.Paused.String(),
		Observations: state.Cumulatives.ReservedLength,
	}
	if len(cfg.Observe) > 0 {
		observed, err := pool.Observe(ctx, cfg.Observe)
		if err != nil {
			return fmt.Errorf("observe: %w", err)
		}
		summary.Observed = observed
	}
	return enc.Encode(summary)
}
