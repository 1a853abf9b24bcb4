// Package evals scores recorded agent sessions offline: heuristic session
// signals, persona tool-pattern checks and plugin-vs-vanilla baseline
// comparison. Results are stored in SQLite and optionally posted back to
// Langfuse as scores.
package evals

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/tidwall/jsonc"
)

// Observation types in a Langfuse trace.
const (
	ObservationGeneration = "GENERATION"
	ObservationSpan       = "SPAN"
)

// LevelError marks a failed tool call.
const LevelError = "ERROR"

// Trace is one recorded session in the shape the scorers need.
type Trace struct {
	ID       string
	Metadata map[string]any

	UserMessages      []string
	AssistantMessages []string
	// Generations counts model generations, whether or not they carried text.
	Generations int

	// ToolCalls are in recorded order. Use ToolSequence for time order.
	ToolCalls   []ToolCall
	TotalTokens int64

	// Scores already attached to the trace, by name.
	Scores map[string]float64
}

// ToolCall is one tool invocation.
type ToolCall struct {
	Name      string
	Input     string
	Output    string
	Level     string
	Status    string
	Timestamp string
}

// Failed reports whether the call ended in an error.
func (c ToolCall) Failed() bool {
	return c.Level == LevelError || strings.Contains(strings.ToLower(c.Status), "error")
}

// Target is the file path or command the call acted on. Inputs recorded as
// JSON objects yield their command, file_path or path field; anything else
// is returned as is.
func (c ToolCall) Target() string {
	in := strings.TrimSpace(c.Input)
	if !strings.HasPrefix(in, "{") {
		return c.Input
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(in), &fields); err != nil {
		return c.Input
	}
	for _, key := range []string{"command", "file_path", "path"} {
		if s, ok := fields[key].(string); ok && s != "" {
			return s
		}
	}
	return c.Input
}

// Persona returns the persona recorded in the trace metadata, or "unknown".
func (t Trace) Persona() string {
	for _, key := range []string{"persona", "hook.persona"} {
		if s, ok := t.Metadata[key].(string); ok && s != "" {
			return s
		}
	}
	return "unknown"
}

// BaselineTask returns the baseline task name, if the trace has one.
func (t Trace) BaselineTask() (string, bool) {
	v, ok := t.Metadata["baseline_task"]
	if !ok || v == nil {
		return "", false
	}
	if s, isStr := v.(string); isStr {
		return s, s != ""
	}
	return fmt.Sprint(v), true
}

// Plugin reports whether the trace ran with the plugin loaded. The second
// result is false when the trace is not tagged either way.
func (t Trace) Plugin() (bool, bool) {
	switch v := t.Metadata["plugin"].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	case float64:
		return v != 0, true
	case json.Number:
		f, err := v.Float64()
		return f != 0, err == nil
	}
	return false, false
}

// ToolSequence returns the tool calls ordered by timestamp. Calls with equal
// or missing timestamps keep their recorded order.
func (t Trace) ToolSequence() []ToolCall {
	seq := make([]ToolCall, len(t.ToolCalls))
	copy(seq, t.ToolCalls)
	sort.SliceStable(seq, func(i, j int) bool { return seq[i].Timestamp < seq[j].Timestamp })
	return seq
}

// =============================================================================
// DECODING
// =============================================================================

// rawTrace accepts both a Langfuse trace document and the offline dataset
// form (trace_id, tool_calls, messages).
type rawTrace struct {
	ID           string           `json:"id"`
	TraceID      string           `json:"trace_id"`
	Metadata     map[string]any   `json:"metadata"`
	Observations []rawObservation `json:"observations"`
	ToolCalls    []rawToolCall    `json:"tool_calls"`
	Messages     []rawMessage     `json:"messages"`
	Usage        map[string]any   `json:"usage"`
	Scores       json.RawMessage  `json:"scores"`
}

type rawObservation struct {
	Type          string          `json:"type"`
	Name          string          `json:"name"`
	Input         json.RawMessage `json:"input"`
	Output        json.RawMessage `json:"output"`
	Level         string          `json:"level"`
	StatusMessage string          `json:"statusMessage"`
	StartTime     string          `json:"startTime"`
	Usage         map[string]any  `json:"usage"`
}

type rawToolCall struct {
	Name      string          `json:"name"`
	Input     json.RawMessage `json:"input"`
	Output    json.RawMessage `json:"output"`
	Level     string          `json:"level"`
	Status    string          `json:"status"`
	Timestamp string          `json:"timestamp"`
}

type rawMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
}

type rawScore struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
}

// ParseTrace decodes a single trace document.
func ParseTrace(data []byte) (Trace, error) {
	var raw rawTrace
	if err := json.Unmarshal(data, &raw); err != nil {
		return Trace{}, fmt.Errorf("failed to decode trace: %w", err)
	}
	return raw.trace(), nil
}

// ParseTraces decodes a dataset: one trace object or an array of them.
// Comments and trailing commas are allowed.
func ParseTraces(data []byte) ([]Trace, error) {
	data = bytes.TrimSpace(jsonc.ToJSON(data))
	if len(data) == 0 {
		return nil, fmt.Errorf("empty trace dataset")
	}
	if data[0] != '[' {
		t, err := ParseTrace(data)
		if err != nil {
			return nil, err
		}
		return []Trace{t}, nil
	}
	var docs []json.RawMessage
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode trace dataset: %w", err)
	}
	traces := make([]Trace, 0, len(docs))
	for i, doc := range docs {
		t, err := ParseTrace(doc)
		if err != nil {
			return nil, fmt.Errorf("trace %d: %w", i, err)
		}
		traces = append(traces, t)
	}
	return traces, nil
}

// LoadTraces reads a dataset file.
func LoadTraces(path string) ([]Trace, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset: %w", err)
	}
	traces, err := ParseTraces(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return traces, nil
}

func (r rawTrace) trace() Trace {
	t := Trace{
		ID:       r.ID,
		Metadata: r.Metadata,
		Scores:   decodeScores(r.Scores),
	}
	if t.ID == "" {
		t.ID = r.TraceID
	}
	if t.ID == "" {
		t.ID = "offline"
	}
	if t.Metadata == nil {
		t.Metadata = map[string]any{}
	}

	var observedTokens int64
	for _, obs := range r.Observations {
		switch obs.Type {
		case ObservationGeneration:
			t.Generations++
			if in := valueText(obs.Input); in != "" {
				t.UserMessages = append(t.UserMessages, in)
			}
			if out := valueText(obs.Output); out != "" {
				t.AssistantMessages = append(t.AssistantMessages, out)
			}
			observedTokens += usageTokens(obs.Usage, "total", "totalTokens", "total_tokens")
		case ObservationSpan:
			t.ToolCalls = append(t.ToolCalls, ToolCall{
				Name:      obs.Name,
				Input:     valueText(obs.Input),
				Output:    valueText(obs.Output),
				Level:     obs.Level,
				Status:    obs.StatusMessage,
				Timestamp: obs.StartTime,
			})
		}
	}

	for _, tc := range r.ToolCalls {
		t.ToolCalls = append(t.ToolCalls, ToolCall{
			Name:      tc.Name,
			Input:     valueText(tc.Input),
			Output:    valueText(tc.Output),
			Level:     tc.Level,
			Status:    tc.Status,
			Timestamp: tc.Timestamp,
		})
	}

	for _, m := range r.Messages {
		text := valueText(m.Content)
		if text == "" {
			continue
		}
		switch m.Role {
		case "user":
			t.UserMessages = append(t.UserMessages, text)
		case "assistant":
			t.AssistantMessages = append(t.AssistantMessages, text)
			t.Generations++
		}
	}

	t.TotalTokens = usageTokens(r.Usage, "total_tokens", "totalTokens", "total")
	if t.TotalTokens == 0 {
		t.TotalTokens = observedTokens
	}
	return t
}

// valueText renders a JSON value as text: strings verbatim, null as empty,
// everything else as compact JSON.
func valueText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func usageTokens(usage map[string]any, keys ...string) int64 {
	for _, key := range keys {
		if f, ok := usage[key].(float64); ok {
			return int64(f)
		}
	}
	return 0
}

// decodeScores accepts Langfuse's score array or a plain name to value map.
func decodeScores(raw json.RawMessage) map[string]float64 {
	scores := map[string]float64{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return scores
	}
	if raw[0] == '[' {
		var list []rawScore
		if err := json.Unmarshal(raw, &list); err == nil {
			for _, s := range list {
				scores[s.Name] = s.Value
			}
		}
		return scores
	}
	var m map[string]float64
	if err := json.Unmarshal(raw, &m); err == nil {
		for k, v := range m {
			scores[k] = v
		}
	}
	return scores
}
