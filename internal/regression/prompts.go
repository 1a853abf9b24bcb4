package regression

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"agentkit/internal/sections"
	"agentkit/internal/state"
)

// Prompt change kinds.
const (
	ChangeNew     = "new"
	ChangeDeleted = "deleted"
	ChangeChanged = "changed"
)

// PromptChange is one prompt whose digest differs from the baseline.
type PromptChange struct {
	Key  string
	Kind string
	Old  string
	New  string
}

// Short renders the change the way the drift check lists it.
func (c PromptChange) Short() string {
	switch c.Kind {
	case ChangeNew:
		return "NEW  " + c.Key
	case ChangeDeleted:
		return "DEL  " + c.Key
	}
	return fmt.Sprintf("CHG  %s (%s -> %s)", c.Key, prefix(c.Old, 8), prefix(c.New, 8))
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// DiffPrompts compares two digest snapshots, sorted by key.
func DiffPrompts(baseline, current map[string]string) []PromptChange {
	keys := make(map[string]bool, len(baseline)+len(current))
	for k := range baseline {
		keys[k] = true
	}
	for k := range current {
		keys[k] = true
	}
	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	var changes []PromptChange
	for _, k := range sorted {
		old, hadOld := baseline[k]
		cur, hasCur := current[k]
		switch {
		case !hadOld:
			changes = append(changes, PromptChange{Key: k, Kind: ChangeNew, New: cur})
		case !hasCur:
			changes = append(changes, PromptChange{Key: k, Kind: ChangeDeleted, Old: old})
		case old != cur:
			changes = append(changes, PromptChange{Key: k, Kind: ChangeChanged, Old: old, New: cur})
		}
	}
	return changes
}

// DefaultPromptBaselinePath returns where the digest baseline lives.
func DefaultPromptBaselinePath(workspace string) string {
	return filepath.Join(workspace, ".agent-kit", "regression", "prompt-baseline.json")
}

// LoadPromptBaseline reads a baseline. A missing or unreadable file yields
// ok=false.
func LoadPromptBaseline(path string) (map[string]string, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil || m == nil {
		return nil, false
	}
	return m, true
}

// SavePromptBaseline writes hashes as sorted, indented JSON.
func SavePromptBaseline(store *state.Store, path string, hashes map[string]string) error {
	data, err := json.MarshalIndent(hashes, "", "  ")
	if err != nil {
		return fmt.Errorf("encode prompt baseline: %w", err)
	}
	return store.WriteFile(path, data)
}

// DriftReport is the outcome of a prompt drift check.
type DriftReport struct {
	// Initial is set when no baseline existed and one was written.
	Initial bool
	Changes []PromptChange
	Results []Result
	// Updated is set when the baseline was rewritten after a passing run.
	Updated bool
}

// Passed reports whether the check succeeded.
func (r DriftReport) Passed() bool {
	return len(Failed(r.Results)) == 0
}

// DriftCheck hashes the prompts under pluginRoot and compares them with the
// baseline. When any changed it runs the battery and updates the baseline
// only if every case passed.
func DriftCheck(ctx context.Context, store *state.Store, pluginRoot, baselinePath string, b *Battery, env Env) (DriftReport, error) {
	var report DriftReport
	if pluginRoot == "" {
		return report, errors.New("plugin root is not set")
	}
	current, err := sections.PromptHashes(pluginRoot)
	if err != nil {
		return report, fmt.Errorf("hash prompts: %w", err)
	}

	baseline, ok := LoadPromptBaseline(baselinePath)
	if !ok {
		report.Initial = true
		return report, SavePromptBaseline(store, baselinePath, current)
	}

	report.Changes = DiffPrompts(baseline, current)
	if len(report.Changes) == 0 {
		return report, nil
	}

	env.PluginRoot = pluginRoot
	report.Results, err = RunBattery(ctx, b, env)
	if err != nil {
		return report, err
	}
	if !report.Passed() {
		return report, nil
	}
	if err := SavePromptBaseline(store, baselinePath, current); err != nil {
		return report, err
	}
	report.Updated = true
	return report, nil
}
