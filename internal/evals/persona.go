package evals

import (
	"strings"

	"agentkit/internal/persona"
)

// Score is one named numeric result for a trace.
type Score struct {
	Name    string
	Value   float64
	Comment string
}

// maxBoundedCalls is the tool call count above which an atlas session is
// considered unbounded.
const maxBoundedCalls = 100

// PersonaScorer checks a tool sequence against one persona's contract.
type PersonaScorer func(calls []ToolCall) []Score

var personaScorers = map[persona.Persona]PersonaScorer{
	persona.Sisyphus:   ScoreSisyphus,
	persona.Hephaestus: ScoreHephaestus,
	persona.Prometheus: ScorePrometheus,
	persona.Atlas:      ScoreAtlas,
}

// ScorePersona runs the scorer for p over the trace's time-ordered tool
// calls. ok is false when p has no scorer.
func ScorePersona(p persona.Persona, t Trace) (scores []Score, ok bool) {
	scorer, ok := personaScorers[p]
	if !ok {
		return nil, false
	}
	return scorer(t.ToolSequence()), true
}

// ScoreSisyphus: explore before editing, delegate exploration, verify
// after the last edit, never launch another persona.
func ScoreSisyphus(calls []ToolCall) []Score {
	firstEdit, exploredFirst := -1, false
	for i, c := range calls {
		if editTools[c.Name] {
			firstEdit = i
			break
		}
		if exploreTools[c.Name] {
			exploredFirst = true
		}
	}

	delegated := false
	for _, c := range calls {
		if c.Name == "Task" {
			delegated = true
			break
		}
	}

	lastEdit := lastIndex(calls, func(c ToolCall) bool { return editTools[c.Name] })
	verified := lastEdit >= 0 && anyCall(calls[lastEdit+1:], isVerification)

	return []Score{
		{Name: "sisyphus.workflow_sequence", Value: boolScore(firstEdit >= 0 && exploredFirst)},
		{Name: "sisyphus.parallel_exploration", Value: boolScore(delegated)},
		{Name: "sisyphus.verification_present", Value: boolScore(verified)},
		{Name: "sisyphus.no_nested_orchestration", Value: boolScore(!nestedOrchestration(calls))},
	}
}

// ScoreHephaestus: edit a lot, verify several ways, respond to failed
// verification with a fix rather than wandering.
func ScoreHephaestus(calls []ToolCall) []Score {
	edits := 0
	kinds := map[string]bool{}
	for _, c := range calls {
		if editTools[c.Name] {
			edits++
		}
		if c.Name != "Bash" {
			continue
		}
		target := c.Target()
		for _, k := range verificationKinds {
			if k.re.MatchString(target) {
				kinds[k.kind] = true
			}
		}
	}

	return []Score{
		{Name: "hephaestus.execution_depth", Value: float64(edits)},
		{Name: "hephaestus.verification_depth", Value: float64(len(kinds))},
		{Name: "hephaestus.retry_quality", Value: boolScore(retryQuality(calls))},
		{Name: "hephaestus.no_nested_orchestration", Value: boolScore(!nestedOrchestration(calls))},
		{Name: "hephaestus.persistence", Value: boolScore(edits > 0 && len(kinds) > 0)},
	}
}

// retryQuality fails when a failed verification is followed, past any
// further Bash calls, by searching instead of editing.
func retryQuality(calls []ToolCall) bool {
	for i, c := range calls {
		if c.Level != LevelError || !isVerification(c) {
			continue
		}
	next:
		for _, n := range calls[i+1:] {
			switch {
			case editTools[n.Name]:
				break next
			case exploreTools[n.Name] && n.Name != "Read":
				return false
			case n.Name == "Bash":
				continue
			default:
				break next
			}
		}
	}
	return true
}

// ScorePrometheus: produce a checklist plan under .agent-kit/ and touch no
// code.
func ScorePrometheus(calls []ToolCall) []Score {
	planned, codeEdit, safeWrites, checklist := false, false, true, false
	for _, c := range calls {
		if isCodeEdit(c) {
			codeEdit = true
		}
		if c.Name != "Write" {
			continue
		}
		target := c.Target()
		inStateDir := strings.Contains(c.Input, ".agent-kit/")
		isMarkdown := strings.HasSuffix(target, ".md")
		if inStateDir && isMarkdown {
			planned = true
		}
		if !inStateDir && !isMarkdown {
			safeWrites = false
		}
		if inStateDir && strings.Contains(c.Output, "- [ ]") {
			checklist = true
		}
	}

	return []Score{
		{Name: "prometheus.plan_produced", Value: boolScore(planned)},
		{Name: "prometheus.no_code_edits", Value: boolScore(!codeEdit)},
		{Name: "prometheus.artifact_location", Value: boolScore(safeWrites)},
		{Name: "prometheus.checklist_format", Value: boolScore(checklist)},
	}
}

// ScoreAtlas: read the boulder early, tick a task and record it, verify
// before recording, stay bounded and focused.
func ScoreAtlas(calls []ToolCall) []Score {
	isBoulderRead := func(c ToolCall) bool {
		return c.Name == "Read" && strings.Contains(c.Input, "boulder.json")
	}
	isBoulderWrite := func(c ToolCall) bool {
		return c.Name == "Write" && strings.Contains(c.Input, "boulder.json")
	}

	early := calls
	if len(early) > 10 {
		early = early[:10]
	}
	boulderRead := anyCall(early, isBoulderRead)

	planTicked := anyCall(calls, func(c ToolCall) bool {
		return c.Name == "Edit" && (strings.Contains(c.Input, "- [x]") || strings.Contains(c.Output, "- [x]"))
	})
	boulderWritten := anyCall(calls, isBoulderWrite)

	lastWrite := lastIndex(calls, isBoulderWrite)
	verifiedBefore := lastWrite > 0 && anyCall(calls[:lastWrite], isVerification)

	reads := 0
	for _, c := range calls {
		if isBoulderRead(c) {
			reads++
		}
	}

	return []Score{
		{Name: "atlas.boulder_read", Value: boolScore(boulderRead)},
		{Name: "atlas.task_advancement", Value: boolScore(planTicked && boulderWritten)},
		{Name: "atlas.verification_before_done", Value: boolScore(verifiedBefore)},
		{Name: "atlas.bounded_continuation", Value: boolScore(len(calls) <= maxBoundedCalls)},
		{Name: "atlas.single_slice_focus", Value: boolScore(reads <= 3)},
	}
}

func nestedOrchestration(calls []ToolCall) bool {
	return anyCall(calls, func(c ToolCall) bool {
		if c.Name != "Task" {
			return false
		}
		in := strings.ToLower(c.Input)
		for _, name := range personaNames {
			if strings.Contains(in, name) {
				return true
			}
		}
		return false
	})
}

func anyCall(calls []ToolCall, pred func(ToolCall) bool) bool {
	for _, c := range calls {
		if pred(c) {
			return true
		}
	}
	return false
}

func lastIndex(calls []ToolCall, pred func(ToolCall) bool) int {
	for i := len(calls) - 1; i >= 0; i-- {
		if pred(calls[i]) {
			return i
		}
	}
	return -1
}
