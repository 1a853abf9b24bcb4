package hooks

import (
	"io"
	"regexp"
	"strings"

	"agentkit/internal/persona"
	"agentkit/internal/session"
)

// Block codes reported in telemetry.
const (
	ReasonDestructiveBash      = "destructive_bash"
	ReasonPrometheusWriteGuard = "prometheus_write_guard"
)

// Messages shown to the host when a tool call is blocked.
const (
	MsgDestructiveBash      = "Blocked destructive Bash pattern by safety guardrails"
	MsgPrometheusWriteGuard = "Prometheus persona is planning-only: write markdown artifacts under .agent-kit/"
)

var (
	// rm -rf, mkfs or dd if= at the start or after whitespace, ; | or &.
	destructiveBashRe = regexp.MustCompile(`(?i)(^|[\s;|&])(rm\s+-rf|mkfs(\s|$)|dd\s+if=)`)
	sourceFileRe      = regexp.MustCompile(`(?i)[^\s]+\.(ts|tsx|js|jsx|json|yaml|yml|sh|py|go|rs|java|rb|php|c|cpp)`)
)

var writeTools = map[string]bool{"Write": true, "Edit": true, "MultiEdit": true}

// commandText picks the text the guards inspect: the command, else the
// tool arguments, else the prompt. The first non-empty field wins, so a
// destructive pattern in a later field is not seen when an earlier one is
// set.
func commandText(in Input) string {
	switch {
	case in.ToolCommand != "":
		return in.ToolCommand
	case in.ToolArgs != "":
		return in.ToolArgs
	default:
		return in.Prompt
	}
}

// handlePreToolUse runs the guards in order; the first block wins.
func (d *Dispatcher) handlePreToolUse(in Input, w io.Writer) error {
	start := d.now()
	cmd := commandText(in)

	decision, code, msg := "allow", "", ""

	if strings.EqualFold(in.ToolName, "bash") && destructiveBashRe.MatchString(cmd) {
		decision, code, msg = "block", ReasonDestructiveBash, MsgDestructiveBash
	}

	if decision == "allow" && writeTools[in.ToolName] {
		p := d.loadRuntime().Get(session.Key(in.SessionID)).Persona()
		if p == persona.Prometheus && sourceFileRe.MatchString(cmd) {
			decision, code, msg = "block", ReasonPrometheusWriteGuard, MsgPrometheusWriteGuard
		}
	}

	if decision == "block" {
		d.log.Info("blocked tool=%s reason=%s", in.ToolName, code)
		if err := writeBlock(w, msg); err != nil {
			return err
		}
	}

	d.emit(in, start, "hook.pretool", map[string]any{
		"tool_name":    in.ToolName,
		"decision":     decision,
		"block_reason": code,
	})
	return nil
}
