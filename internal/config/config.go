package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SimulateConfig holds configuration for the simulate command.
type SimulateConfig struct {
	Input             string
	Out               string
	BatchSize         int
	Concurrency       int
	Checkpoint        string
	CheckpointEnabled bool
	MaxRetries        int
	RetryBackoff      time.Duration
	Store             string
	KVDir             string
	PGDSN             string
	Admin             string
	MetricsOut        string
	LogLevel          string
	Pools             []PoolConfig
}

// Store backends.
const (
	StoreNone     = "none"
	StoreKV       = "kv"
	StorePostgres = "postgres"
)

// Load merges config file, environment variables, and flags into SimulateConfig.
func Load(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"out":                "./data/receipts.jsonl",
		"batch-size":         500,
		"concurrency":        4,
		"checkpoint":         "./data/checkpoint.json",
		"checkpoint-enabled": true,
		"max-retries":        5,
		"retry-backoff":      500 * time.Millisecond,
		"store":              StoreKV,
		"kv-dir":             "./data/pools",
		"log-level":          "info",
	})
	if err != nil {
		return SimulateConfig{}, err
	}

	pools, err := loadPools(v)
	if err != nil {
		return SimulateConfig{}, err
	}

	cfg := SimulateConfig{
		Input:             v.GetString("in"),
		Out:               v.GetString("out"),
		BatchSize:         v.GetInt("batch-size"),
		Concurrency:       v.GetInt("concurrency"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		Store:             strings.ToLower(v.GetString("store")),
		KVDir:             v.GetString("kv-dir"),
		PGDSN:             v.GetString("pg-dsn"),
		Admin:             v.GetString("admin"),
		MetricsOut:        v.GetString("metrics-out"),
		LogLevel:          v.GetString("log-level"),
		Pools:             pools,
	}
	if err := validateStore(cfg.Store, cfg.KVDir, cfg.PGDSN); err != nil {
		return SimulateConfig{}, err
	}
	return cfg, nil
}

// newViper builds a viper instance with the shared env, flag and file
// resolution rules. A missing default config file is not an error.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults map[string]interface{}) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix("CFMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func validateStore(store, kvDir, dsn string) error {
	switch store {
	case StoreNone:
	case StoreKV:
		if kvDir == "" {
			return fmt.Errorf("kv-dir is required for the kv store")
		}
	case StorePostgres:
		if dsn == "" {
			return fmt.Errorf("pg-dsn is required for the postgres store")
		}
	default:
		return fmt.Errorf("unknown store %q", store)
	}
	return nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
