package ralph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"agentkit/internal/state"
)

func setup(t *testing.T, content string) (string, *state.Store) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ralph-loop.local.md")
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return path, state.New(zap.NewNop())
}

func readBack(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestCheck_Missing(t *testing.T) {
	path, st := setup(t, "")
	assert.Equal(t, Status{}, Check(st, path, "", ""))
}

func TestCheck_NotActive(t *testing.T) {
	path, st := setup(t, "---\nstatus: done\niterations: 1\n---\n")
	assert.False(t, Check(st, path, "", "").Active)
}

func TestCheck_Active(t *testing.T) {
	path, st := setup(t, "---\nStatus: Active\niterations: 2\nmax_iterations: 5\n---\n")
	s := Check(st, path, "still working", "")
	assert.True(t, s.Active)
	assert.Equal(t, 2, s.Iteration)
}

func TestCheck_SentinelMarksDone(t *testing.T) {
	path, st := setup(t, "status: active\niterations: 1\n")

	s := Check(st, path, "all good RALPH_DONE", "")
	assert.False(t, s.Active)
	assert.True(t, s.Finished)
	assert.Equal(t, "status: done\niterations: 1\n", readBack(t, path))
}

func TestCheck_SentinelInPrompt(t *testing.T) {
	path, st := setup(t, "status: active\n")
	assert.True(t, Check(st, path, "", "RALPH_DONE").Finished)
}

func TestCheck_MaxIterations(t *testing.T) {
	path, st := setup(t, "status: active\niterations: 5\nmax_iterations: 5\n")

	s := Check(st, path, "", "")
	assert.False(t, s.Active)
	assert.Contains(t, readBack(t, path), "status: done")
}

func TestCheck_NoMaxMeansUnbounded(t *testing.T) {
	path, st := setup(t, "status: active\niterations: 500\n")
	assert.True(t, Check(st, path, "", "").Active)
}

func TestIncrement(t *testing.T) {
	path, st := setup(t, "status: active\niterations: 2\nmax_iterations: 9\n")
	require.True(t, Increment(st, path))
	assert.Equal(t, "status: active\niterations: 3\nmax_iterations: 9\n", readBack(t, path))
}

func TestIncrement_AddsCounter(t *testing.T) {
	path, st := setup(t, "status: active\n")
	require.True(t, Increment(st, path))
	assert.Equal(t, "status: active\n\niterations: 1\n", readBack(t, path))
}

func TestIncrement_Missing(t *testing.T) {
	path, st := setup(t, "")
	assert.False(t, Increment(st, path))
}
