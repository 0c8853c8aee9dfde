package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/spf13/pflag"
)

// ReportConfig holds configuration for the report command.
type ReportConfig struct {
	Input         string
	Out           string
	Window        string
	PGDSN         string
	BatchSize     int
	StateFile     string
	RecomputeFrom string
	LogLevel      string
	Pools         []PoolConfig
}

// LoadReport merges config file, environment variables, and flags into ReportConfig.
func LoadReport(cfgFile string, flags *pflag.FlagSet) (ReportConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"in":         "./data/receipts.jsonl",
		"batch-size": 1000,
		"log-level":  "info",
		"window":     "1h",
	})
	if err != nil {
		return ReportConfig{}, err
	}

	pools, err := loadPools(v)
	if err != nil {
		return ReportConfig{}, err
	}

	cfg := ReportConfig{
		Input:         v.GetString("in"),
		Out:           v.GetString("out"),
		Window:        v.GetString("window"),
		PGDSN:         v.GetString("pg-dsn"),
		BatchSize:     v.GetInt("batch-size"),
		StateFile:     v.GetString("state-file"),
		RecomputeFrom: v.GetString("recompute-from"),
		LogLevel:      v.GetString("log-level"),
		Pools:         pools,
	}
	return cfg, nil
}

// ParseTimestamp parses a timestamp value (unix seconds or RFC3339).
func ParseTimestamp(input string) (int64, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return 0, nil
	}

	if isNumeric(input) {
		return strconv.ParseInt(input, 10, 64)
	}

	tm, err := time.Parse(time.RFC3339, input)
	if err != nil {
		return 0, err
	}
	return tm.Unix(), nil
}

func isNumeric(input string) bool {
	for _, r := range input {
		if r < '0' || r > '9' {
			return false
		}
	}
	return input != ""
}
