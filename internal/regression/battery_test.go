package regression

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"agentkit/internal/state"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// pluginRoot lays out one subagent and one skill.
func pluginRoot(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "agents", "explore.md"),
		"---\nname: explore\ndescription: Codebase search specialist.\ncostTier: cheap\n---\n")
	writeFile(t, filepath.Join(root, "skills", "plan", "SKILL.md"),
		"---\nname: plan\ndescription: Create a plan.\n---\n")
	return root
}

func TestLoadBattery(t *testing.T) {
	path := filepath.Join(t.TempDir(), "battery.yaml")
	writeFile(t, path, `version: 1
cases:
  - id: smoke
    event: Stop
    expect: {decision: allow}
  - id: build
    type: Shell
    command: echo ok
`)

	b, err := LoadBattery(path)
	require.NoError(t, err)
	assert.Equal(t, 1, b.Version)
	require.Len(t, b.Cases, 2)
	assert.Equal(t, TypeHook, b.Cases[0].Type)
	assert.Equal(t, "allow", b.Cases[0].Expect.Decision)
	assert.Equal(t, TypeShell, b.Cases[1].Type)
}

func TestParseBattery_Invalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "cases: [unterminated"},
		{"missing id", "cases:\n  - event: Stop\n"},
		{"duplicate id", "cases:\n  - {id: a, event: Stop}\n  - {id: a, event: Stop}\n"},
		{"hook without event", "cases:\n  - {id: a}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBattery([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestDefaultBattery_PassesWithoutPlugin(t *testing.T) {
	b, err := DefaultBattery()
	require.NoError(t, err)
	require.NotEmpty(t, b.Cases)

	results, err := RunBattery(context.Background(), b, Env{})
	require.NoError(t, err)
	require.Len(t, results, len(b.Cases))

	skipped := 0
	for _, r := range results {
		assert.True(t, r.Success, "%s: %s (output %q)", r.CaseID, r.Error, r.Output)
		if r.Skipped {
			skipped++
		}
	}
	assert.Equal(t, 3, skipped, "persona section cases need a plugin root")
}

func TestDefaultBattery_PassesWithPlugin(t *testing.T) {
	b, err := DefaultBattery()
	require.NoError(t, err)

	results, err := RunBattery(context.Background(), b, Env{PluginRoot: pluginRoot(t)})
	require.NoError(t, err)
	for _, r := range results {
		assert.True(t, r.Success, "%s: %s (output %q)", r.CaseID, r.Error, r.Output)
		assert.False(t, r.Skipped, r.CaseID)
	}
}

func TestRunBattery_ReportsFailedExpectations(t *testing.T) {
	b := &Battery{Cases: []Case{{
		ID:    "wrong",
		Type:  TypeHook,
		Event: "PreToolUse",
		Input: map[string]any{"tool_name": "Bash", "command": "ls"},
		Expect: Expect{
			Decision: "block",
			Contains: []string{"nope"},
			State:    map[string]any{"sessions.global.ulw.enabled": true},
		},
	}}}

	results, err := RunBattery(context.Background(), b, Env{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "expected block")
	assert.Contains(t, results[0].Error, `output missing "nope"`)
	assert.Contains(t, results[0].Error, "state sessions.global.ulw.enabled missing")
}

func TestRunBattery_FailFast(t *testing.T) {
	b := &Battery{Cases: []Case{
		{ID: "bad", Type: "unknown"},
		{ID: "after", Type: TypeHook, Event: "Stop"},
	}}

	results, err := RunBattery(context.Background(), b, Env{FailFast: true})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Contains(t, results[0].Error, "unsupported case type")

	results, err = RunBattery(context.Background(), b, Env{})
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Len(t, Failed(results), 1)
}

func TestRunBattery_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	b := &Battery{Cases: []Case{{ID: "a", Type: TypeHook, Event: "Stop"}}}

	_, err := RunBattery(ctx, b, Env{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunBattery_Clock(t *testing.T) {
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	b := &Battery{Cases: []Case{{
		ID:    "stamp",
		Type:  TypeHook,
		Event: "UserPromptSubmit",
		Input: map[string]any{"prompt": "ultrawork"},
		Expect: Expect{State: map[string]any{
			"sessions.global.ulw.updatedAt": "2026-05-01T12:00:00Z",
		}},
	}}}

	results, err := RunBattery(context.Background(), b, Env{Clock: func() time.Time { return fixed }})
	require.NoError(t, err)
	assert.True(t, results[0].Success, results[0].Error)
}

func TestRunBattery_Shell(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("shell cases use bash")
	}
	b := &Battery{Cases: []Case{
		{ID: "ok", Type: TypeShell, Command: "echo ok", TimeoutSec: 5},
		{ID: "empty", Type: TypeShell},
	}}

	results, err := RunBattery(context.Background(), b, Env{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.True(t, results[0].Success, results[0].Error)
	assert.Contains(t, results[0].Output, "ok")
	assert.False(t, results[1].Success)
	assert.Contains(t, results[1].Error, "empty command")
}

func TestLookup(t *testing.T) {
	doc := map[string]any{"a": map[string]any{"b": map[string]any{"c": 1}}}

	v, ok := lookup(doc, "a.b.c")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	_, ok = lookup(doc, "a.x")
	assert.False(t, ok)
	_, ok = lookup(doc, "a.b.c.d")
	assert.False(t, ok)
}

func TestExpect_AbsentState(t *testing.T) {
	e := Expect{State: map[string]any{"sessions.global.ulw": nil}}
	assert.Empty(t, e.check("", map[string]any{}, ""))

	doc := map[string]any{"sessions": map[string]any{"global": map[string]any{"ulw": map[string]any{}}}}
	assert.Len(t, e.check("", doc, ""), 1)
}

func TestDefaultBatteryPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/ws", ".agent-kit", "regression", "battery.yaml"), DefaultBatteryPath("/ws"))
}

func newStore() *state.Store { return state.New(zap.NewNop()) }
