package hookinput

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_MalformedYieldsZero(t *testing.T) {
	inputs := []string{
		"",
		"   \n\t",
		`{"event":"Stop"`,
		`[{"event":"Stop"}]`,
		`"Stop"`,
		`42`,
		`null`,
		`{"event":"Stop"} trailing`,
		`not json at all`,
	}
	for _, raw := range inputs {
		assert.Equal(t, Input{}, Parse(raw, Options{}), raw)
	}
}

func TestParse_NestedUnexpectedTypes(t *testing.T) {
	in := Parse(`{"tool_input":[1,2],"input":{"command":{"deep":[true]}},"toolInput":null}`, Options{})
	assert.Equal(t, `{"deep":[true]}`, in.ToolCommand)
	assert.Equal(t, `{"command":{"deep":[true]}}`, in.Prompt)
}

func TestParse_Aliases(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Input
	}{
		{
			name: "claude pre tool use",
			raw:  `{"hook_event_name":"PreToolUse","tool_name":"Bash","tool_input":{"command":"ls -la"},"session_id":"s1"}`,
			want: Input{Event: "PreToolUse", ToolName: "Bash", ToolCommand: "ls -la", SessionID: "s1"},
		},
		{
			name: "legacy names",
			raw:  `{"hook_event":"Stop","toolName":"Edit","toolInput":{"arguments":"x.go"},"sessionId":"abc","output":"done"}`,
			want: Input{Event: "Stop", ToolName: "Edit", ToolArgs: "x.go", SessionID: "abc", AssistantText: "done"},
		},
		{
			name: "first non-empty wins",
			raw:  `{"event":"","type":"SessionStart","command":"","input":{"command":"echo"},"prompt":"","text":"hi"}`,
			want: Input{Event: "SessionStart", ToolCommand: "echo", Prompt: `{"command":"echo"}`},
		},
		{
			name: "write file path",
			raw:  `{"tool_name":"Write","tool_input":{"file_path":"src/app.ts","content":"x"}}`,
			want: Input{ToolName: "Write", ToolArgs: "src/app.ts"},
		},
		{
			name: "scalar coercion",
			raw:  `{"session_id":12345678901234567890,"tool":true,"prompt":1.50}`,
			want: Input{SessionID: "12345678901234567890", ToolName: "true", Prompt: "1.50"},
		},
		{
			name: "stop hook",
			raw:  `{"hook_event_name":"Stop","last_assistant_message":"finished RALPH_DONE"}`,
			want: Input{Event: "Stop", AssistantText: "finished RALPH_DONE"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse(tt.raw, Options{}))
		})
	}
}

func TestParse_RedactsBeforeExtraction(t *testing.T) {
	in := Parse(`{"prompt":"hi","api_key":"sk-live","input":{"command":"x"},"tool_input":{"AuthToken":"abc","command":"curl"}}`, Options{})
	assert.Equal(t, "curl", in.ToolCommand)

	in = Parse(`{"secret_prompt":"x","PASSWORD":"y","message":"visible"}`, Options{})
	assert.Equal(t, "visible", in.Prompt)

	in = Parse(`{"session_token":"abc","sessionId":"s9"}`, Options{})
	assert.Equal(t, "s9", in.SessionID)
}

func TestRedact(t *testing.T) {
	doc := map[string]any{
		"Token":  "a",
		"nested": map[string]any{"client_secret": "b", "ok": "c"},
		"list":   []any{map[string]any{"password": "d"}, "e"},
		"monkey": "f",
	}
	got := Redact(doc).(map[string]any)
	assert.Equal(t, Redacted, got["Token"])
	assert.Equal(t, Redacted, got["monkey"], "substring match")
	assert.Equal(t, Redacted, got["nested"].(map[string]any)["client_secret"])
	assert.Equal(t, "c", got["nested"].(map[string]any)["ok"])
	assert.Equal(t, Redacted, got["list"].([]any)[0].(map[string]any)["password"])
	assert.Equal(t, "e", got["list"].([]any)[1])

	assert.Equal(t, "a", doc["Token"], "input is not mutated")
}

func TestParse_Truncation(t *testing.T) {
	long := strings.Repeat("é", 2500)
	raw, err := json.Marshal(map[string]string{
		"command":           long,
		"arguments":         long,
		"assistant_message": long,
		"prompt":            long,
		"session_id":        long,
	})
	require.NoError(t, err)

	in := Parse(string(raw), Options{})
	assert.Equal(t, 2000, len([]rune(in.ToolCommand)))
	assert.Equal(t, 2000, len([]rune(in.ToolArgs)))
	assert.Equal(t, 2000, len([]rune(in.AssistantText)))
	assert.Equal(t, 2000, len([]rune(in.Prompt)))
	assert.Equal(t, 2500, len([]rune(in.SessionID)), "identifiers are not truncated")

	in = Parse(string(raw), Options{MaxLength: 10})
	assert.Equal(t, strings.Repeat("é", 10), in.Prompt)
}

func TestParse_Dump(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "hook-input")
	Parse(`{"prompt":"hi","token":"abc"}`, Options{DumpDir: dir})

	data, err := os.ReadFile(filepath.Join(dir, DumpFile))
	require.NoError(t, err)
	assert.JSONEq(t, `{"prompt":"hi","token":"[REDACTED]"}`, string(data))
}

func TestParse_DumpFailureIgnored(t *testing.T) {
	file := filepath.Join(t.TempDir(), "blocker")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	in := Parse(`{"prompt":"hi"}`, Options{DumpDir: filepath.Join(file, "sub")})
	assert.Equal(t, "hi", in.Prompt)
}

func TestReadLimited(t *testing.T) {
	s, err := ReadLimited(strings.NewReader("abcdef"), 3)
	require.NoError(t, err)
	assert.Equal(t, "abc", s)

	s, err = ReadLimited(nil, 3)
	require.NoError(t, err)
	assert.Empty(t, s)
}
