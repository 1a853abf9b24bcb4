package regression

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiffPrompts(t *testing.T) {
	baseline := map[string]string{
		"agent:explore": "aaaaaaaaaaaa",
		"agent:oracle":  "bbbbbbbbbbbb",
		"skill:plan":    "cccc",
	}
	current := map[string]string{
		"agent:explore": "aaaaaaaaaaaa",
		"skill:plan":    "dddd",
		"skill:review":  "eeee",
	}

	changes := DiffPrompts(baseline, current)
	require.Len(t, changes, 3)
	assert.Equal(t, PromptChange{Key: "agent:oracle", Kind: ChangeDeleted, Old: "bbbbbbbbbbbb"}, changes[0])
	assert.Equal(t, PromptChange{Key: "skill:plan", Kind: ChangeChanged, Old: "cccc", New: "dddd"}, changes[1])
	assert.Equal(t, PromptChange{Key: "skill:review", Kind: ChangeNew, New: "eeee"}, changes[2])

	assert.Equal(t, "DEL  agent:oracle", changes[0].Short())
	assert.Equal(t, "CHG  skill:plan (cccc -> dddd)", changes[1].Short())
	assert.Equal(t, "NEW  skill:review", changes[2].Short())

	assert.Empty(t, DiffPrompts(current, current))
}

func TestPromptChange_ShortTruncatesDigests(t *testing.T) {
	c := PromptChange{Key: "k", Kind: ChangeChanged, Old: "0123456789", New: "abcdefghij"}
	assert.Equal(t, "CHG  k (01234567 -> abcdefgh)", c.Short())
}

func TestPromptBaseline_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "baseline.json")
	_, ok := LoadPromptBaseline(path)
	assert.False(t, ok)

	hashes := map[string]string{"skill:b": "2", "agent:a": "1"}
	require.NoError(t, SavePromptBaseline(newStore(), path, hashes))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"agent:a\": \"1\",\n  \"skill:b\": \"2\"\n}\n", string(data))

	loaded, ok := LoadPromptBaseline(path)
	require.True(t, ok)
	assert.Equal(t, hashes, loaded)
}

func TestLoadPromptBaseline_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "baseline.json")
	writeFile(t, path, "not json")
	_, ok := LoadPromptBaseline(path)
	assert.False(t, ok)
}

func TestDriftCheck(t *testing.T) {
	root := pluginRoot(t)
	baselinePath := filepath.Join(t.TempDir(), "prompt-baseline.json")
	store := newStore()
	b, err := DefaultBattery()
	require.NoError(t, err)
	ctx := context.Background()

	report, err := DriftCheck(ctx, store, root, baselinePath, b, Env{})
	require.NoError(t, err)
	assert.True(t, report.Initial)
	assert.FileExists(t, baselinePath)

	report, err = DriftCheck(ctx, store, root, baselinePath, b, Env{})
	require.NoError(t, err)
	assert.False(t, report.Initial)
	assert.Empty(t, report.Changes)
	assert.Nil(t, report.Results)

	writeFile(t, filepath.Join(root, "skills", "plan", "SKILL.md"),
		"---\nname: plan\ndescription: Create a better plan.\n---\n")
	report, err = DriftCheck(ctx, store, root, baselinePath, b, Env{})
	require.NoError(t, err)
	require.Len(t, report.Changes, 1)
	assert.Equal(t, "skill:plan", report.Changes[0].Key)
	assert.NotEmpty(t, report.Results)
	assert.True(t, report.Passed())
	assert.True(t, report.Updated)

	report, err = DriftCheck(ctx, store, root, baselinePath, b, Env{})
	require.NoError(t, err)
	assert.Empty(t, report.Changes)
}

func TestDriftCheck_FailingBatteryKeepsBaseline(t *testing.T) {
	root := pluginRoot(t)
	baselinePath := filepath.Join(t.TempDir(), "prompt-baseline.json")
	store := newStore()
	require.NoError(t, SavePromptBaseline(store, baselinePath, map[string]string{"agent:gone": "x"}))

	failing := &Battery{Cases: []Case{{
		ID: "fails", Type: TypeHook, Event: "Stop",
		Expect: Expect{Decision: "block"},
	}}}

	report, err := DriftCheck(context.Background(), store, root, baselinePath, failing, Env{})
	require.NoError(t, err)
	assert.False(t, report.Passed())
	assert.False(t, report.Updated)

	loaded, ok := LoadPromptBaseline(baselinePath)
	require.True(t, ok)
	assert.Equal(t, map[string]string{"agent:gone": "x"}, loaded)
}

func TestDriftCheck_NoPluginRoot(t *testing.T) {
	_, err := DriftCheck(context.Background(), newStore(), "", "x.json", &Battery{}, Env{})
	assert.Error(t, err)
}
