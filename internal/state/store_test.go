package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newStore() *Store { return New(zap.NewNop()) }

func TestRead_FailOpen(t *testing.T) {
	dir := t.TempDir()
	s := newStore()

	tests := []struct {
		name    string
		content *string
	}{
		{"missing", nil},
		{"empty", strPtr("")},
		{"whitespace", strPtr("  \n\t")},
		{"corrupt", strPtr("{not json")},
		{"scalar", strPtr("42")},
		{"string", strPtr(`"hello"`)},
		{"array", strPtr(`[1,2,3]`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name+".json")
			if tt.content != nil {
				require.NoError(t, os.WriteFile(path, []byte(*tt.content), 0644))
			}
			assert.Empty(t, s.Read(path))
		})
	}

	assert.Empty(t, s.Read(""))
}

func TestLoad_KeepsArrays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.json")
	require.NoError(t, os.WriteFile(path, []byte(" [1, 2] \n"), 0644))
	assert.JSONEq(t, `[1,2]`, string(newStore().Load(path)))
}

func TestRead_CreatesParent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "state.json")
	assert.Empty(t, newStore().Read(path))

	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestRead_DirectoryIsNotAFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.Mkdir(path, 0755))
	assert.Empty(t, newStore().Read(path))
}

func TestWriteRead_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "runtime.json")
	s := newStore()

	ok := s.Write(path, map[string]any{"version": 1, "sessions": map[string]any{}})
	require.True(t, ok)

	got := s.Read(path)
	assert.Equal(t, json.Number("1"), got["version"])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "\n"))

	_, err = os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(err), "lock must be released")
}

func TestWrite_StringVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loop.md")
	require.True(t, newStore().Write(path, "status: active\niterations: 2"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "status: active\niterations: 2\n", string(data))
}

func TestWrite_Rejects(t *testing.T) {
	s := newStore()
	dir := t.TempDir()

	assert.ErrorIs(t, s.WriteFile("", "{}"), ErrEmptyPath)
	assert.ErrorIs(t, s.WriteFile(filepath.Join(dir, "x.json"), ""), ErrEmptyContent)
	assert.ErrorIs(t, s.WriteFile(filepath.Join(dir, "x.json"), nil), ErrEmptyContent)
	assert.False(t, s.Write("", "{}"))
}

func TestWrite_LockBusy(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := newStore()
	require.True(t, s.Write(path, `{"before":true}`))
	require.NoError(t, os.Mkdir(path+".lock", 0755))

	err := s.WriteFile(path, `{"after":true}`)
	assert.True(t, errors.Is(err, ErrLockBusy))
	assert.False(t, s.Write(path, `{"after":true}`))

	assert.Equal(t, map[string]any{"before": true}, s.Read(path))

	// A busy lock belongs to someone else and is left alone.
	_, statErr := os.Stat(path + ".lock")
	assert.NoError(t, statErr)
}

func TestWrite_NoTempLeftovers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state.json")
	s := newStore()
	require.True(t, s.Write(path, `{"a":1}`))

	require.NoError(t, os.Mkdir(path+".lock", 0755))
	assert.False(t, s.Write(path, `{"a":2}`))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".state-write."), e.Name())
	}
}

func TestWrite_SequentialLastWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := newStore()
	for i := 0; i < 20; i++ {
		require.True(t, s.Write(path, map[string]int{"n": i}))
	}
	assert.Equal(t, json.Number("19"), s.Read(path)["n"])
}

func TestWrite_ConcurrentNeverPartial(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	s := newStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Write(path, fmt.Sprintf(`{"writer":%d,"pad":%q}`, i, strings.Repeat("x", 4096)))
		}(i)
	}
	wg.Wait()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(data), "file must hold one complete document")

	_, err = os.Stat(path + ".lock")
	assert.True(t, os.IsNotExist(err))
}

func TestReadInto(t *testing.T) {
	path := filepath.Join(t.TempDir(), "boulder.json")
	s := newStore()

	var v struct {
		Active bool `json:"active"`
	}
	assert.False(t, s.ReadInto(path, &v))

	require.True(t, s.Write(path, `{"active":true}`))
	assert.True(t, s.ReadInto(path, &v))
	assert.True(t, v.Active)
}

func strPtr(s string) *string { return &s }
