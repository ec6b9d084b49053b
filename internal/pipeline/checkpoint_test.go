package pipeline

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppetrov/pairbench/internal/model"
)

func TestCheckpointStore_MissingFileIsNotStarted(t *testing.T) {
	s := NewCheckpointStore(filepath.Join(t.TempDir(), "checkpoint.json"))

	cp, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cp.LastCompletedStage)
	assert.Equal(t, "not_started", cp.Status)
}

func TestCheckpointStore_SaveLoadRoundtrip(t *testing.T) {
	s := NewCheckpointStore(filepath.Join(t.TempDir(), "out", "checkpoint.json"))

	require.NoError(t, s.Save(2, "judge_primary_complete", map[string]any{"judgments": 10}))

	cp, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cp.LastCompletedStage)
	assert.Equal(t, "judge_primary_complete", cp.Status)
	assert.False(t, cp.Timestamp.IsZero())
	assert.EqualValues(t, 10, cp.Details["judgments"])
}

func TestCheckpointStore_OverwritesInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	s := NewCheckpointStore(path)

	require.NoError(t, s.Save(1, "reviews_generated", nil))
	require.NoError(t, s.Save(2, "judge_primary_complete", nil))

	cp, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, 2, cp.LastCompletedStage)

	// No stray temp file left behind
	_, err = os.Stat(path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestCheckpointStore_MalformedIsParseError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	require.NoError(t, os.WriteFile(path, []byte("{\"status\": \"ok\"}"), 0o644))

	_, err := NewCheckpointStore(path).Load()
	var perr *model.ParseError
	assert.ErrorAs(t, err, &perr)

	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))
	_, err = NewCheckpointStore(path).Load()
	assert.ErrorAs(t, err, &perr)
}
