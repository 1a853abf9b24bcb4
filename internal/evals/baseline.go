package evals

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Metrics are the per-trace numbers compared in a baseline report.
type Metrics struct {
	Turns        int
	Tokens       int64
	ToolCalls    int
	Verification bool
}

var baselineVerifiers = []string{"test", "typecheck", "tsc", "build", "lint"}

// ComputeMetrics derives baseline metrics from a trace.
func ComputeMetrics(t Trace) Metrics {
	m := Metrics{Turns: t.Generations, Tokens: t.TotalTokens, ToolCalls: len(t.ToolCalls)}
	for _, c := range t.ToolCalls {
		if c.Name != "Bash" {
			continue
		}
		in := strings.ToLower(c.Input)
		for _, v := range baselineVerifiers {
			if strings.Contains(in, v) {
				m.Verification = true
			}
		}
	}
	return m
}

// points rewards short sessions that verified their work.
func (m Metrics) points() int {
	p := 10 - min(m.Turns, 10)
	if m.Verification {
		p += 2
	}
	return p
}

// Pair holds the plugin and vanilla runs of one baseline task.
type Pair struct {
	Plugin  *Trace
	Vanilla *Trace
}

// Complete reports whether both sides were recorded.
func (p Pair) Complete() bool { return p.Plugin != nil && p.Vanilla != nil }

// PairTraces groups traces by baseline task. Traces missing the task name
// or the plugin flag are ignored; a later trace replaces an earlier one on
// the same side.
func PairTraces(traces []Trace) map[string]Pair {
	pairs := map[string]Pair{}
	for i := range traces {
		t := &traces[i]
		task, ok := t.BaselineTask()
		if !ok {
			continue
		}
		plugin, tagged := t.Plugin()
		if !tagged {
			continue
		}
		p := pairs[task]
		if plugin {
			p.Plugin = t
		} else {
			p.Vanilla = t
		}
		pairs[task] = p
	}
	return pairs
}

// BaselineSummary counts outcomes across complete pairs.
type BaselineSummary struct {
	PluginWins  int
	VanillaWins int
	Ties        int
}

// Total is the number of compared pairs.
func (s BaselineSummary) Total() int { return s.PluginWins + s.VanillaWins + s.Ties }

// BaselineReport renders the markdown comparison of paired traces.
func BaselineReport(pairs map[string]Pair, generated time.Time) (string, BaselineSummary) {
	lines := []string{
		"# Plugin vs Vanilla Baseline Comparison",
		"",
		"Generated: " + generated.UTC().Format("2006-01-02 15:04 UTC"),
		"",
		"| Task | Plugin Turns | Vanilla Turns | Plugin Tokens | Vanilla Tokens | Plugin Verification | Vanilla Verification | Plugin Quality | Vanilla Quality |",
		"|------|-------------|---------------|---------------|----------------|--------------------|--------------------|----------------|-----------------|",
	}

	tasks := make([]string, 0, len(pairs))
	for task := range pairs {
		tasks = append(tasks, task)
	}
	sort.Strings(tasks)

	var summary BaselineSummary
	for _, task := range tasks {
		pair := pairs[task]
		if !pair.Complete() {
			continue
		}
		pm, vm := ComputeMetrics(*pair.Plugin), ComputeMetrics(*pair.Vanilla)

		lines = append(lines, fmt.Sprintf("| %s | %d | %d | %s | %s | %s | %s | %s | %s |",
			task, pm.Turns, vm.Turns,
			thousands(pm.Tokens), thousands(vm.Tokens),
			yesNo(pm.Verification), yesNo(vm.Verification),
			qualityCell(*pair.Plugin), qualityCell(*pair.Vanilla)))

		switch p, v := pm.points(), vm.points(); {
		case p > v:
			summary.PluginWins++
		case v > p:
			summary.VanillaWins++
		default:
			summary.Ties++
		}
	}

	lines = append(lines,
		"",
		"## Summary",
		"",
		fmt.Sprintf("- Plugin wins: %d", summary.PluginWins),
		fmt.Sprintf("- Vanilla wins: %d", summary.VanillaWins),
		fmt.Sprintf("- Ties: %d", summary.Ties),
		fmt.Sprintf("- Total paired tasks: %d", summary.Total()),
		"",
	)
	return strings.Join(lines, "\n"), summary
}

func qualityCell(t Trace) string {
	v, ok := t.Scores[ScoreOverallQuality]
	if !ok {
		return "N/A"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// thousands formats n with comma separators.
func thousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
