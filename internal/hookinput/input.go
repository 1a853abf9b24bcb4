// Package hookinput turns the untrusted JSON a host passes on stdin into a
// fixed, redacted Input record. Parsing never fails: anything unusable
// yields the zero Input.
package hookinput

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"agentkit/internal/logging"
)

// Redacted replaces the value of every sensitive key.
const Redacted = "[REDACTED]"

// DefaultMaxLength caps free-text fields, in characters.
const DefaultMaxLength = 2000

// DumpFile is the name of the redacted input dump inside the dump dir.
const DumpFile = "latest-redacted.json"

var sensitiveKeyRe = regexp.MustCompile(`(?i)token|key|secret|password`)

// Ordered aliases per field. The first present, non-empty value wins.
var (
	eventPaths     = []string{"event", "hook_event", "hook_event_name", "type"}
	toolNamePaths  = []string{"tool_name", "toolName", "tool", "name"}
	commandPaths   = []string{"command", "tool_input.command", "input.command", "toolInput.command"}
	argsPaths      = []string{"arguments", "tool_input.arguments", "input.arguments", "toolInput.arguments", "tool_input.file_path"}
	sessionPaths   = []string{"session_id", "sessionId"}
	assistantPaths = []string{"assistant_message", "last_assistant_message", "output", "response", "completion"}
	promptPaths    = []string{"prompt", "input", "text", "message", "user_prompt"}
)

// Input is the sanitized hook input. It is a value type; copies are cheap
// and nothing mutates it after Parse.
type Input struct {
	Event         string
	ToolName      string
	ToolCommand   string
	ToolArgs      string
	SessionID     string
	AssistantText string
	Prompt        string
}

// Options tunes Parse.
type Options struct {
	// MaxLength caps ToolCommand, ToolArgs, AssistantText and Prompt.
	// Zero means DefaultMaxLength.
	MaxLength int
	// DumpDir, when set, receives the redacted document as DumpFile.
	DumpDir string
}

// Parse builds an Input from raw stdin text.
func Parse(raw string, opts Options) Input {
	if strings.TrimSpace(raw) == "" {
		return Input{}
	}

	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	var doc map[string]any
	if err := dec.Decode(&doc); err != nil || doc == nil {
		logging.Input("discarding unparseable input: %v", err)
		return Input{}
	}
	if dec.More() {
		logging.Input("discarding input with trailing data")
		return Input{}
	}

	safe := Redact(doc).(map[string]any)

	limit := opts.MaxLength
	if limit <= 0 {
		limit = DefaultMaxLength
	}

	in := Input{
		Event:         extract(safe, eventPaths),
		ToolName:      extract(safe, toolNamePaths),
		ToolCommand:   Truncate(extract(safe, commandPaths), limit),
		ToolArgs:      Truncate(extract(safe, argsPaths), limit),
		SessionID:     extract(safe, sessionPaths),
		AssistantText: Truncate(extract(safe, assistantPaths), limit),
		Prompt:        Truncate(extract(safe, promptPaths), limit),
	}

	if opts.DumpDir != "" {
		dump(opts.DumpDir, safe)
	}
	return in
}

// Redact returns a copy of v with sensitive mapping values replaced.
func Redact(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if sensitiveKeyRe.MatchString(k) {
				out[k] = Redacted
				continue
			}
			out[k] = Redact(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = Redact(item)
		}
		return out
	default:
		return v
	}
}

// Truncate hard-cuts s to n characters.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func extract(doc map[string]any, paths []string) string {
	for _, p := range paths {
		v, ok := lookup(doc, p)
		if !ok || v == nil {
			continue
		}
		if s := toText(v); s != "" {
			return s
		}
	}
	return ""
}

func lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// toText coerces a decoded JSON value to text. Numbers keep their literal
// form, objects and arrays become compact JSON.
func toText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(t); err != nil {
			return fmt.Sprint(t)
		}
		return strings.TrimRight(buf.String(), "\n")
	}
}

func dump(dir string, doc map[string]any) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return
	}
	_ = os.WriteFile(filepath.Join(dir, DumpFile), append(data, '\n'), 0644)
}

// ReadLimited reads at most limit bytes from r. Anything past the limit is
// dropped, which leaves invalid JSON that Parse turns into the zero Input.
func ReadLimited(r io.Reader, limit int64) (string, error) {
	if r == nil {
		return "", nil
	}
	data, err := io.ReadAll(io.LimitReader(r, limit))
	if err != nil {
		return "", fmt.Errorf("failed to read hook input: %w", err)
	}
	return string(data), nil
}
