package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityCurve/internal/config"
	"liquidityCurve/internal/metrics"
	"liquidityCurve/internal/sim"
	"liquidityCurve/internal/storage"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}
	pools, err := config.CFMMPools(cfg.Pools)
	if err != nil {
		return err
	}
	var admin common.Address
	if cfg.Admin != "" {
		if admin, err = sim.ParseAddress(cfg.Admin); err != nil {
			return fmt.Errorf("admin: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	backend, err := openStateStore(ctx, cfg.Store, cfg.KVDir, cfg.PGDSN)
	if err != nil {
		return err
	}
	var states storage.StateStore
	if backend != nil {
		defer backend.Close()
		states = backend
	} else if cfg.CheckpointEnabled {
		logger.Warn("checkpointing disabled without a state store")
		cfg.CheckpointEnabled = false
	}

	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "")

	runner, err := sim.NewRunner(sim.RunConfig{
		InputPath:         cfg.Input,
		BatchSize:         cfg.BatchSize,
		Concurrency:       cfg.Concurrency,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		MaxRetries:        cfg.MaxRetries,
		RetryBackoff:      cfg.RetryBackoff,
		Admin:             admin,
		Pools:             pools,
	}, storage.NewJsonlStorage(cfg.Out), states, m, logger)
	if err != nil {
		return err
	}

	logger.Info("simulate start",
		zap.String("input", cfg.Input),
		zap.String("out", cfg.Out),
		zap.Int("pools", len(pools)),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Int("concurrency", cfg.Concurrency),
		zap.String("store", cfg.Store),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	results, err := runner.Run(ctx)
	if err != nil {
		return err
	}
	for _, res := range results {
		logger.Info("pool replayed",
			zap.String("pool", res.Name),
			zap.Int("applied", res.Applied),
			zap.Int("failed", res.Failed),
			zap.Int("skipped", res.Skipped),
			zap.Uint64("last_seq", res.LastSeq),
			zap.Int32("tick", int32(res.State.CurTickIndex)),
		)
	}

	if cfg.MetricsOut != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsOut, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
