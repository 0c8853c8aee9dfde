package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityCurve/internal/model"
)

const tokenX = "0x00000000000000000000000000000000000000aa"
const tokenY = "0x00000000000000000000000000000000000000bb"

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cfmm.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadPoolsList(t *testing.T) {
	path := writeConfig(t, `
in: ops.jsonl
store: none
retry-backoff: 2s
pools:
  - name: usdc-eth
    fee-bps: 30
    dev-fee-bps: 1000
    tick-spacing: 10
    token-x: "`+tokenX+`"
    token-y: "`+tokenY+`"
    token-x-decimals: 6
    initial-tick: -20
    observation-count: 8
  - name: stable
    fee-bps: 5
    token-x: "`+tokenX+`"
    token-y: "`+tokenY+`"
`)
	t.Setenv("CFMM_BATCH_SIZE", "42")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "ops.jsonl", cfg.Input)
	assert.Equal(t, 42, cfg.BatchSize)
	assert.Equal(t, 2*time.Second, cfg.RetryBackoff)
	assert.Equal(t, StoreNone, cfg.Store)
	assert.True(t, cfg.CheckpointEnabled)
	require.Len(t, cfg.Pools, 2)

	pools, err := CFMMPools(cfg.Pools)
	require.NoError(t, err)
	assert.Equal(t, "usdc-eth", pools[0].Name)
	assert.Equal(t, uint64(30), pools[0].Constants.FeeBps)
	assert.Equal(t, uint64(1000), pools[0].Constants.DevFeeBps)
	assert.Equal(t, uint32(10), pools[0].Constants.TickSpacing)
	assert.Equal(t, model.TickIndex(-20), pools[0].InitialTick)
	assert.Equal(t, uint64(8), pools[0].ObservationCount)
	assert.Equal(t, uint32(1), pools[1].Constants.TickSpacing)

	x, _ := cfg.Pools[0].Tokens()
	assert.Equal(t, uint8(6), x.Decimals)
}

func TestLoadSinglePoolKeys(t *testing.T) {
	path := writeConfig(t, `
store: none
pool:
  name: solo
  fee-bps: 100
  token-x: "`+tokenX+`"
  token-y: "`+tokenY+`"
`)
	cfg, err := Load(path, nil)
	require.NoError(t, err)
	require.Len(t, cfg.Pools, 1)

	pool, err := cfg.Pools[0].Pool()
	require.NoError(t, err)
	assert.Equal(t, "solo", pool.Name)
	assert.Equal(t, uint64(100), pool.Constants.FeeBps)
}

func TestPoolConfigRejectsBadInput(t *testing.T) {
	_, err := PoolConfig{Name: "p", TokenX: "nope", TokenY: tokenY}.Pool()
	assert.Error(t, err)

	_, err = PoolConfig{TokenX: tokenX, TokenY: tokenY}.Pool()
	assert.Error(t, err)

	dup := PoolConfig{Name: "p", TokenX: tokenX, TokenY: tokenY}
	_, err = CFMMPools([]PoolConfig{dup, dup})
	assert.Error(t, err)
}

func TestLoadRejectsUnknownStore(t *testing.T) {
	path := writeConfig(t, "store: redis\n")
	_, err := Load(path, nil)
	assert.Error(t, err)

	path = writeConfig(t, "store: postgres\n")
	_, err = Load(path, nil)
	assert.Error(t, err, "postgres without dsn")
}

func TestLoadInspectObserve(t *testing.T) {
	path := writeConfig(t, "store: none\npool-name: solo\nobserve: 10, 20\n")
	cfg, err := LoadInspect(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "solo", cfg.Pool)
	assert.Equal(t, []int64{10, 20}, cfg.Observe)
}

func TestLoadReportDefaults(t *testing.T) {
	path := writeConfig(t, "state-file: state.json\n")
	cfg, err := LoadReport(path, nil)
	require.NoError(t, err)
	assert.Equal(t, "1h", cfg.Window)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, "state.json", cfg.StateFile)
}

func TestParseTimestamp(t *testing.T) {
	ts, err := ParseTimestamp("1700000000")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), ts)

	ts, err = ParseTimestamp("2023-11-14T22:13:20Z")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000), ts)

	ts, err = ParseTimestamp("  ")
	require.NoError(t, err)
	assert.Zero(t, ts)

	_, err = ParseTimestamp("yesterday")
	assert.Error(t, err)
}

