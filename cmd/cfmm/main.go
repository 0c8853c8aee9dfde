package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	root := &cobra.Command{
		Use:          "cfmm",
		Short:        "Concentrated liquidity pool simulator",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay pool operations and write receipts",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().String("in", "", "input operations JSONL")
	simulateCmd.Flags().String("out", "./data/receipts.jsonl", "output receipts JSONL path")
	simulateCmd.Flags().Int("batch-size", 500, "operations per batch")
	simulateCmd.Flags().Int("concurrency", 4, "pools replayed in parallel")
	simulateCmd.Flags().String("checkpoint", "./data/checkpoint.json", "checkpoint file path")
	simulateCmd.Flags().Bool("checkpoint-enabled", true, "enable checkpointing")
	simulateCmd.Flags().Int("max-retries", 5, "maximum retry attempts for state writes")
	simulateCmd.Flags().Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
	simulateCmd.Flags().String("store", "kv", "pool state store (kv, postgres, none)")
	simulateCmd.Flags().String("kv-dir", "./data/pools", "pebble directory for the kv store")
	simulateCmd.Flags().String("pg-dsn", "", "Postgres DSN for the postgres store")
	simulateCmd.Flags().String("admin", "", "address allowed to mint, pause and claim dev fees")
	simulateCmd.Flags().String("metrics-out", "", "write Prometheus metrics to this file after the run")
	simulateCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(simulateCmd)

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate swap receipts into window metrics",
		RunE:  runReport,
	}

	reportCmd.Flags().String("in", "./data/receipts.jsonl", "input receipts JSONL")
	reportCmd.Flags().String("out", "", "write window metrics as JSONL to this path instead of Postgres")
	reportCmd.Flags().String("window", "1h", "aggregation window (e.g. 1m, 5m, 1h)")
	reportCmd.Flags().String("pg-dsn", "", "Postgres DSN")
	reportCmd.Flags().Int("batch-size", 1000, "batch size for DB writes")
	reportCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	reportCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	reportCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(reportCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print a stored pool snapshot",
		RunE:  runInspect,
	}

	inspectCmd.Flags().String("pool-name", "", "pool to inspect, empty lists stored pools (kv only)")
	inspectCmd.Flags().String("store", "kv", "pool state store (kv, postgres)")
	inspectCmd.Flags().String("kv-dir", "./data/pools", "pebble directory for the kv store")
	inspectCmd.Flags().String("pg-dsn", "", "Postgres DSN for the postgres store")
	inspectCmd.Flags().StringSlice("observe", nil, "timestamps to observe cumulatives at (comma-separated)")
	inspectCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(inspectCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
