package report

import (
	"sync"

	"liquidityCurve/internal/model"
)

// PoolTokens describes the two tokens of a pool.
type PoolTokens struct {
	X model.TokenMeta
	Y model.TokenMeta
}

// TokenRegistry maps pool names to token metadata. Unknown pools report
// raw integer amounts.
type TokenRegistry struct {
	mu   sync.RWMutex
	data map[string]PoolTokens
}

func NewTokenRegistry(pools map[string]PoolTokens) *TokenRegistry {
	r := &TokenRegistry{data: make(map[string]PoolTokens, len(pools))}
	for name, t := range pools {
		r.data[name] = t
	}
	return r
}

func (r *TokenRegistry) Get(pool string) (PoolTokens, bool) {
	r.mu.RLock()
	t, ok := r.data[pool]
	r.mu.RUnlock()
	return t, ok
}

func (r *TokenRegistry) Set(pool string, tokens PoolTokens) {
	r.mu.Lock()
	r.data[pool] = tokens
	r.mu.Unlock()
}
