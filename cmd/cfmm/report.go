package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"liquidityCurve/internal/config"
	"liquidityCurve/internal/report"
	"liquidityCurve/internal/storage/postgres"
)

func runReport(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReport(cfgFile, cmd.Flags())
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
	if cfg.PGDSN == "" && cfg.Out == "" {
		return fmt.Errorf("pg dsn or out path is required")
	}

	windowDuration, err := time.ParseDuration(cfg.Window)
	if err != nil {
		return fmt.Errorf("invalid window: %w", err)
	}
	if windowDuration <= 0 {
		return fmt.Errorf("window must be positive")
	}
	windowSeconds := int64(windowDuration.Seconds())
	if windowSeconds == 0 {
		return fmt.Errorf("window must be at least 1s")
	}

	recomputeFrom, err := config.ParseTimestamp(cfg.RecomputeFrom)
	if err != nil {
		return fmt.Errorf("parse recompute-from: %w", err)
	}

	registry := report.NewTokenRegistry(nil)
	for _, p := range cfg.Pools {
		x, y := p.Tokens()
		registry.Set(p.Name, report.PoolTokens{X: x, Y: y})
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		sink       report.Sink
		stateStore report.StateStore
	)
	if cfg.StateFile != "" {
		stateStore = &report.FileStateStore{Path: cfg.StateFile, WindowSeconds: windowSeconds}
	}

	if cfg.Out != "" {
		if dir := filepath.Dir(cfg.Out); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create output dir: %w", err)
			}
		}
		file, err := os.OpenFile(cfg.Out, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		defer file.Close()
		sink = report.NewJSONSink(file)
	} else {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		if err := store.EnsureSchema(ctx); err != nil {
			return err
		}
		sink = store
		if stateStore == nil {
			stateStore = &report.DBStateStore{Store: store, Name: fmt.Sprintf("report:%d", windowSeconds)}
		}
	}

	agg, err := report.NewAggregator(report.Config{
		WindowSeconds: windowSeconds,
		BatchSize:     cfg.BatchSize,
		RecomputeFrom: recomputeFrom,
		StateStore:    stateStore,
		Tokens:        registry,
	}, sink, logger)
	if err != nil {
		return err
	}

	logger.Info("report start",
		zap.String("input", cfg.Input),
		zap.String("out", cfg.Out),
		zap.String("pg_dsn", redactDSN(cfg.PGDSN)),
		zap.Int64("window_seconds", windowSeconds),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Int64("recompute_from", recomputeFrom),
	)

	return agg.Run(ctx, cfg.Input)
}
