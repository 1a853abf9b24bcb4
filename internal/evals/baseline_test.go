package evals

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestComputeMetrics(t *testing.T) {
	assert.Equal(t, Metrics{}, ComputeMetrics(Trace{}))

	m := ComputeMetrics(Trace{
		Generations: 3,
		TotalTokens: 5000,
		ToolCalls:   calls("Read", "a.go", "Bash", "NPM RUN LINT", "Bash", "ls"),
	})
	assert.Equal(t, Metrics{Turns: 3, Tokens: 5000, ToolCalls: 3, Verification: true}, m)

	assert.False(t, ComputeMetrics(Trace{ToolCalls: calls("Bash", "echo hi", "Read", "test.go")}).Verification)
}

func tagged(id, task string, plugin bool, generations int) Trace {
	return Trace{
		ID:          id,
		Metadata:    map[string]any{"baseline_task": task, "plugin": plugin},
		Generations: generations,
		Scores:      map[string]float64{},
	}
}

func TestPairTraces(t *testing.T) {
	pairs := PairTraces([]Trace{
		tagged("p1", "a", true, 1),
		tagged("v1", "a", false, 1),
		tagged("p2", "b", true, 1),
		{ID: "untagged", Metadata: map[string]any{"baseline_task": "a"}},
		{ID: "no-task", Metadata: map[string]any{"plugin": true}},
	})
	assert.Len(t, pairs, 2)
	assert.True(t, pairs["a"].Complete())
	assert.Equal(t, "p1", pairs["a"].Plugin.ID)
	assert.False(t, pairs["b"].Complete())
}

func TestBaselineReport_Empty(t *testing.T) {
	report, summary := BaselineReport(nil, time.Date(2026, 2, 3, 4, 5, 0, 0, time.UTC))
	assert.Contains(t, report, "# Plugin vs Vanilla Baseline Comparison")
	assert.Contains(t, report, "Generated: 2026-02-03 04:05 UTC")
	assert.Contains(t, report, "- Total paired tasks: 0")
	assert.Equal(t, BaselineSummary{}, summary)
}

func TestBaselineReport_Pairs(t *testing.T) {
	plugin := tagged("p", "refactor", true, 3)
	plugin.TotalTokens = 12345
	plugin.ToolCalls = calls("Bash", "go test ./...")
	plugin.Scores[ScoreOverallQuality] = 4

	vanilla := tagged("v", "refactor", false, 8)
	vanilla.TotalTokens = 999

	tiePlugin := tagged("tp", "docs", true, 12)
	tieVanilla := tagged("tv", "docs", false, 10)

	lonely := tagged("l", "zzz", true, 1)

	report, summary := BaselineReport(PairTraces([]Trace{plugin, vanilla, tiePlugin, tieVanilla, lonely}), time.Now())

	assert.Contains(t, report, "| refactor | 3 | 8 | 12,345 | 999 | Yes | No | 4 | N/A |")
	assert.Contains(t, report, "| docs | 12 | 10 | 0 | 0 | No | No | N/A | N/A |")
	assert.NotContains(t, report, "zzz")
	assert.Less(t, strings.Index(report, "| docs"), strings.Index(report, "| refactor"), "rows sorted by task")

	assert.Equal(t, BaselineSummary{PluginWins: 1, Ties: 1}, summary)
	assert.Contains(t, report, "- Plugin wins: 1\n- Vanilla wins: 0\n- Ties: 1\n- Total paired tasks: 2\n")
}

func TestThousands(t *testing.T) {
	for in, want := range map[int64]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567", -4500: "-4,500"} {
		assert.Equal(t, want, thousands(in))
	}
}
