package sim

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"liquidityCurve/internal/tokens"
)

// PoolProgress is the replay position of one pool.
type PoolProgress struct {
	LastSeq  uint64           `json:"last_seq"`
	Balances []tokens.Balance `json:"balances"`
}

// Checkpoint tracks the last applied record of every pool.
type Checkpoint struct {
	Pools     map[string]PoolProgress `json:"pools"`
	UpdatedAt string                  `json:"updated_at"`
}

// CheckpointStore persists checkpoints to disk. Saves from concurrent pool
// workers are merged into one file.
type CheckpointStore struct {
	path    string
	enabled bool

	mu      sync.Mutex
	current Checkpoint
}

func NewCheckpointStore(path string, enabled bool) *CheckpointStore {
	return &CheckpointStore{path: path, enabled: enabled, current: Checkpoint{Pools: make(map[string]PoolProgress)}}
}

func (c *CheckpointStore) Load() (Checkpoint, bool, error) {
	if !c.enabled {
		return Checkpoint{}, false, nil
	}

	stat, err := os.Stat(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return Checkpoint{}, false, nil
		}
		return Checkpoint{}, false, fmt.Errorf("stat checkpoint: %w", err)
	}
	if stat.IsDir() {
		return Checkpoint{}, false, fmt.Errorf("checkpoint path is a directory")
	}

	data, err := os.ReadFile(c.path)
	if err != nil {
		return Checkpoint{}, false, fmt.Errorf("read checkpoint: %w", err)
	}

	var cp Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return Checkpoint{}, false, fmt.Errorf("parse checkpoint: %w", err)
	}
	if cp.Pools == nil {
		cp.Pools = make(map[string]PoolProgress)
	}

	c.mu.Lock()
	c.current = cp
	c.mu.Unlock()
	return cp, true, nil
}

// Save records progress for one pool and rewrites the checkpoint file.
func (c *CheckpointStore) Save(pool string, progress PoolProgress) error {
	if !c.enabled {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	dir := filepath.Dir(c.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create checkpoint dir: %w", err)
		}
	}

	next := Checkpoint{
		Pools:     make(map[string]PoolProgress, len(c.current.Pools)+1),
		UpdatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
	for name, p := range c.current.Pools {
		next.Pools[name] = p
	}
	next.Pools[pool] = progress

	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmpPath := c.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write checkpoint tmp: %w", err)
	}
	if err := os.Rename(tmpPath, c.path); err != nil {
		return fmt.Errorf("rename checkpoint: %w", err)
	}

	c.current = next
	return nil
}
