package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// StateStore persists the timestamp up to which windows are final.
type StateStore interface {
	Load(ctx context.Context) (int64, bool, error)
	Save(ctx context.Context, ts int64) error
}

// FileStateStore keeps report progress in a local JSON file. The file
// records the window size it was written for; loading it with another
// size is an error, since resume points are window boundaries.
type FileStateStore struct {
	Path          string
	WindowSeconds int64
}

type fileState struct {
	ResumeAfter   int64  `json:"resume_after"`
	WindowSeconds int64  `json:"window_seconds"`
	UpdatedAt     string `json:"updated_at"`
}

func (s *FileStateStore) Load(ctx context.Context) (int64, bool, error) {
	if s == nil || s.Path == "" {
		return 0, false, nil
	}
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("read report state: %w", err)
	}

	var st fileState
	if err := json.Unmarshal(data, &st); err != nil {
		return 0, false, fmt.Errorf("parse report state %s: %w", s.Path, err)
	}
	if s.WindowSeconds > 0 && st.WindowSeconds > 0 && st.WindowSeconds != s.WindowSeconds {
		return 0, false, fmt.Errorf("report state %s was written for %ds windows, not %ds", s.Path, st.WindowSeconds, s.WindowSeconds)
	}
	return st.ResumeAfter, true, nil
}

func (s *FileStateStore) Save(ctx context.Context, ts int64) error {
	if s == nil || s.Path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.Path), 0o755); err != nil {
		return fmt.Errorf("create report state dir: %w", err)
	}

	data, err := json.Marshal(fileState{
		ResumeAfter:   ts,
		WindowSeconds: s.WindowSeconds,
		UpdatedAt:     time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write report state: %w", err)
	}
	return os.Rename(tmp, s.Path)
}
