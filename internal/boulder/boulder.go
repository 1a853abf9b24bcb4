// Package boulder reads the plan-tracking document written by the planning
// tooling. This package never writes it.
package boulder

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Loader is the subset of the state store used here.
type Loader interface {
	Load(path string) json.RawMessage
}

// State is the boulder document. Fields decode leniently: a value of the
// wrong type is left at its zero value.
type State struct {
	Version     json.RawMessage `json:"version"`
	Active      json.RawMessage `json:"active"`
	Status      json.RawMessage `json:"status"`
	PlanPath    json.RawMessage `json:"planPath"`
	CurrentTask json.RawMessage `json:"currentTask"`
}

// Read loads the boulder document at path. A missing or malformed file
// yields an inactive state.
func Read(l Loader, path string) State {
	var s State
	_ = json.Unmarshal(l.Load(path), &s)
	return s
}

// IsActive reports version 1 (or no version), active true and status not done.
func (s State) IsActive() bool {
	if s.Version != nil && strings.TrimSpace(string(s.Version)) != "1" {
		var f float64
		if json.Unmarshal(s.Version, &f) != nil || f != 1 {
			return false
		}
	}
	if strings.TrimSpace(string(s.Active)) != "true" {
		return false
	}
	return asString(s.Status) != "done"
}

// Plan returns the plan path, empty when unset.
func (s State) Plan() string {
	return asString(s.PlanPath)
}

// Task returns the current task number and label as text.
func (s State) Task() (number, label string) {
	var task map[string]json.RawMessage
	if json.Unmarshal(s.CurrentTask, &task) != nil {
		return "", ""
	}
	return asText(task["number"]), asText(task["label"])
}

// ResumeBlock renders the resume context printed at session start. It is
// empty when no plan path is set.
func (s State) ResumeBlock() string {
	plan := s.Plan()
	if plan == "" {
		return ""
	}
	lines := []string{
		"Resume context:",
		"- Active plan: " + plan,
	}
	if num, label := s.Task(); num != "" || label != "" {
		lines = append(lines, fmt.Sprintf("- Current task: %s %s", num, label))
	}
	lines = append(lines,
		"- Continue with /claude-agent-kit:start-work",
		"- Escape hatch: /claude-agent-kit:stop-continuation",
	)
	return strings.Join(lines, "\n")
}

func asString(raw json.RawMessage) string {
	var str string
	if json.Unmarshal(raw, &str) != nil {
		return ""
	}
	return str
}

// asText renders a scalar for display: strings as-is, other JSON by literal.
func asText(raw json.RawMessage) string {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return ""
	}
	var str string
	if json.Unmarshal(raw, &str) == nil {
		return str
	}
	return trimmed
}
