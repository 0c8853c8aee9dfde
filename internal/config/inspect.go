package config

import (
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

// InspectConfig holds configuration for the inspect command.
type InspectConfig struct {
	Pool     string
	Store    string
	KVDir    string
	PGDSN    string
	Observe  []int64
	LogLevel string
}

// LoadInspect merges config file, environment variables, and flags into InspectConfig.
func LoadInspect(cfgFile string, flags *pflag.FlagSet) (InspectConfig, error) {
	v, err := newViper(cfgFile, flags, map[string]interface{}{
		"store":     StoreKV,
		"kv-dir":    "./data/pools",
		"log-level": "info",
	})
	if err != nil {
		return InspectConfig{}, err
	}

	var observe []int64
	for _, item := range getStringSlice(v, "observe") {
		ts, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return InspectConfig{}, err
		}
		observe = append(observe, ts)
	}

	cfg := InspectConfig{
		Pool:     v.GetString("pool-name"),
		Store:    strings.ToLower(v.GetString("store")),
		KVDir:    v.GetString("kv-dir"),
		PGDSN:    v.GetString("pg-dsn"),
		Observe:  observe,
		LogLevel: v.GetString("log-level"),
	}
	if err := validateStore(cfg.Store, cfg.KVDir, cfg.PGDSN); err != nil {
		return InspectConfig{}, err
	}
	return cfg, nil
}
