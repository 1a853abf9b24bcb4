// Package regression replays hook invocations against a fresh workspace and
// checks what the dispatcher printed and persisted. Batteries are YAML case
// suites; a default battery covering the hook contracts is embedded.
package regression

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Case types.
const (
	TypeHook  = "hook"
	TypeShell = "shell"
)

// Battery is a collection of regression cases.
type Battery struct {
	Version int    `yaml:"version"`
	Cases   []Case `yaml:"cases"`
}

// Case is a single regression case. Hook cases seed a workspace, feed Input
// to the Event handler and check Expect. Shell cases run Command and pass on
// exit status zero.
type Case struct {
	ID    string         `yaml:"id"`
	Type  string         `yaml:"type,omitempty"`
	Event string         `yaml:"event,omitempty"`
	Input map[string]any `yaml:"input,omitempty"`
	Seed  Seed           `yaml:"seed,omitempty"`
	// RequiresPlugin skips the case when no plugin root is configured.
	RequiresPlugin bool   `yaml:"requires_plugin,omitempty"`
	Expect         Expect `yaml:"expect,omitempty"`

	Command    string `yaml:"command,omitempty"`
	TimeoutSec int    `yaml:"timeout_sec,omitempty"`
}

// Seed is the state written into the workspace before the case runs.
type Seed struct {
	Runtime map[string]any `yaml:"runtime,omitempty"`
	Boulder map[string]any `yaml:"boulder,omitempty"`
	Ralph   string         `yaml:"ralph,omitempty"`
}

// Expect lists the checks applied after a hook case.
type Expect struct {
	// Decision is block or allow. Allow means no block decision was printed.
	Decision    string   `yaml:"decision,omitempty"`
	Contains    []string `yaml:"contains,omitempty"`
	NotContains []string `yaml:"not_contains,omitempty"`
	Empty       bool     `yaml:"empty,omitempty"`
	// State maps dotted paths in the runtime document to expected values.
	// A null value expects the path to be absent.
	State         map[string]any `yaml:"state,omitempty"`
	RalphContains []string       `yaml:"ralph_contains,omitempty"`
}

// Result captures execution outcome for a case.
type Result struct {
	CaseID     string
	Success    bool
	Skipped    bool
	Output     string
	Error      string
	DurationMs int64
}

//go:embed testdata/default_battery.yaml
var defaultBattery []byte

// DefaultBattery returns the embedded hook contract battery.
func DefaultBattery() (*Battery, error) {
	return ParseBattery(defaultBattery)
}

// LoadBattery reads a YAML battery file from disk.
func LoadBattery(path string) (*Battery, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBattery(data)
}

// ParseBattery decodes and validates a battery document.
func ParseBattery(data []byte) (*Battery, error) {
	var b Battery
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse battery YAML: %w", err)
	}
	seen := make(map[string]bool, len(b.Cases))
	for i := range b.Cases {
		c := &b.Cases[i]
		c.Type = strings.ToLower(strings.TrimSpace(c.Type))
		if c.Type == "" {
			c.Type = TypeHook
		}
		if c.ID == "" {
			return nil, fmt.Errorf("case %d: missing id", i)
		}
		if seen[c.ID] {
			return nil, fmt.Errorf("case %s: duplicate id", c.ID)
		}
		seen[c.ID] = true
		if c.Type == TypeHook && c.Event == "" {
			return nil, fmt.Errorf("case %s: missing event", c.ID)
		}
	}
	return &b, nil
}

// DefaultBatteryPath returns the canonical battery path for a workspace.
func DefaultBatteryPath(workspace string) string {
	return filepath.Join(workspace, ".agent-kit", "regression", "battery.yaml")
}
