package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ppetrov/pairbench/internal/model"
)

// CheckpointStore owns the single durable progress marker. Only the runner
// writes it; a single process owns the file (no multi-writer support).
type CheckpointStore struct {
	path string
}

// NewCheckpointStore creates a store for the given path
func NewCheckpointStore(path string) *CheckpointStore {
	return &CheckpointStore{path: path}
}

// Load reads the checkpoint, returning the not-started state when the file
// does not exist yet
func (s *CheckpointStore) Load() (*model.Checkpoint, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &model.Checkpoint{LastCompletedStage: 0, Status: "not_started"}, nil
		}
		return nil, fmt.Errorf("read checkpoint: %w", err)
	}
	return model.UnmarshalCheckpoint(data)
}

// Save overwrites the checkpoint in place with a fresh timestamp. The write
// goes through a temp file and rename so a crash mid-write never leaves a
// torn checkpoint.
func (s *CheckpointStore) Save(stage int, status string, details map[string]any) error {
	cp := model.Checkpoint{
		LastCompletedStage: stage,
		Status:             status,
		Timestamp:          time.Now().UTC(),
		Details:            details,
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	data, err := json.MarshalIndent(cp, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}
	data = append(data, '\n')

	tmp := s.path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open checkpoint: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("sync checkpoint: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close checkpoint: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}
