package config

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"liquidityCurve/internal/cfmm"
	"liquidityCurve/internal/model"
)

// PoolConfig describes one pool. Pools come from the "pools" list of the
// config file, or from the single-pool "pool.*" keys.
type PoolConfig struct {
	Name             string `mapstructure:"name"`
	Address          string `mapstructure:"address"`
	FeeBps           uint64 `mapstructure:"fee-bps"`
	DevFeeBps        uint64 `mapstructure:"dev-fee-bps"`
	TickSpacing      uint32 `mapstructure:"tick-spacing"`
	TokenX           string `mapstructure:"token-x"`
	TokenY           string `mapstructure:"token-y"`
	TokenXDecimals   uint8  `mapstructure:"token-x-decimals"`
	TokenYDecimals   uint8  `mapstructure:"token-y-decimals"`
	TokenXSymbol     string `mapstructure:"token-x-symbol"`
	TokenYSymbol     string `mapstructure:"token-y-symbol"`
	InitialTick      int32  `mapstructure:"initial-tick"`
	ObservationCount uint64 `mapstructure:"observation-count"`
}

// Pool converts the entry into a cfmm.Config.
func (p PoolConfig) Pool() (cfmm.Config, error) {
	if strings.TrimSpace(p.Name) == "" {
		return cfmm.Config{}, fmt.Errorf("pool name is required")
	}
	tokenX, err := parseAddress("token-x", p.TokenX)
	if err != nil {
		return cfmm.Config{}, fmt.Errorf("pool %s: %w", p.Name, err)
	}
	tokenY, err := parseAddress("token-y", p.TokenY)
	if err != nil {
		return cfmm.Config{}, fmt.Errorf("pool %s: %w", p.Name, err)
	}
	var addr common.Address
	if p.Address != "" {
		if addr, err = parseAddress("address", p.Address); err != nil {
			return cfmm.Config{}, fmt.Errorf("pool %s: %w", p.Name, err)
		}
	}
	spacing := p.TickSpacing
	if spacing == 0 {
		spacing = 1
	}
	return cfmm.Config{
		Name:    p.Name,
		Address: addr,
		Constants: model.Constants{
			FeeBps:      p.FeeBps,
			DevFeeBps:   p.DevFeeBps,
			TokenX:      tokenX,
			TokenY:      tokenY,
			TickSpacing: spacing,
		},
		InitialTick:      model.TickIndex(p.InitialTick),
		ObservationCount: p.ObservationCount,
	}, nil
}

// Tokens returns display metadata for the pool's tokens.
func (p PoolConfig) Tokens() (model.TokenMeta, model.TokenMeta) {
	return model.TokenMeta{Address: p.TokenX, Decimals: p.TokenXDecimals, Symbol: p.TokenXSymbol},
		model.TokenMeta{Address: p.TokenY, Decimals: p.TokenYDecimals, Symbol: p.TokenYSymbol}
}

// CFMMPools converts every pool entry.
func CFMMPools(pools []PoolConfig) ([]cfmm.Config, error) {
	out := make([]cfmm.Config, 0, len(pools))
	seen := make(map[string]struct{}, len(pools))
	for _, p := range pools {
		cfg, err := p.Pool()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[cfg.Name]; dup {
			return nil, fmt.Errorf("duplicate pool %q", cfg.Name)
		}
		seen[cfg.Name] = struct{}{}
		out = append(out, cfg)
	}
	return out, nil
}

func loadPools(v *viper.Viper) ([]PoolConfig, error) {
	if v.IsSet("pools") {
		var pools []PoolConfig
		if err := v.UnmarshalKey("pools", &pools); err != nil {
			return nil, fmt.Errorf("parse pools: %w", err)
		}
		return pools, nil
	}
	if !v.IsSet("pool.name") {
		return nil, nil
	}
	return []PoolConfig{{
		Name:             v.GetString("pool.name"),
		Address:          v.GetString("pool.address"),
		FeeBps:           v.GetUint64("pool.fee-bps"),
		DevFeeBps:        v.GetUint64("pool.dev-fee-bps"),
		TickSpacing:      v.GetUint32("pool.tick-spacing"),
		TokenX:           v.GetString("pool.token-x"),
		TokenY:           v.GetString("pool.token-y"),
		TokenXDecimals:   uint8(v.GetUint("pool.token-x-decimals")),
		TokenYDecimals:   uint8(v.GetUint("pool.token-y-decimals")),
		TokenXSymbol:     v.GetString("pool.token-x-symbol"),
		TokenYSymbol:     v.GetString("pool.token-y-symbol"),
		InitialTick:      v.GetInt32("pool.initial-tick"),
		ObservationCount: v.GetUint64("pool.observation-count"),
	}}, nil
}

func parseAddress(key, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, fmt.Errorf("invalid %s: %q", key, input)
	}
	return common.HexToAddress(input), nil
}
