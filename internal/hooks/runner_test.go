package hooks

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("stdin closed") }


func newRunner(f *fixture) (*Runner, *observer.ObservedLogs) {
	core, logs := observer.New(zap.DebugLevel)
	return &Runner{Dispatcher: f.d, Log: zap.New(core)}, logs
}

func run(r *Runner, args []string, stdin io.Reader) string {
	var out bytes.Buffer
	r.Run(context.Background(), args, stdin, &out)
	return out.String()
}

func TestRunner_FlushesOnSuccess(t *testing.T) {
	f := newFixture(t)
	r, logs := newRunner(f)

	out := run(r, []string{"PreToolUse"}, strings.NewReader(`{"tool_name":"Bash","tool_input":{"command":"rm -rf /"}}`))
	assert.Equal(t, `{"decision":"block","reason":"`+MsgDestructiveBash+`"}`+"\n", out)
	assert.Zero(t, logs.Len())
}

func TestRunner_EventFromInput(t *testing.T) {
	f := newFixture(t)
	r, _ := newRunner(f)

	out := run(r, nil, strings.NewReader(`{"hook_event_name":"SessionStart","session_id":"abc"}`))
	assert.Equal(t, "## sisyphus\n", out)
	assert.Equal(t, "abc", f.tel.last(t).TraceID)
}

func TestRunner_ArgOverridesInputEvent(t *testing.T) {
	f := newFixture(t)
	r, _ := newRunner(f)

	out := run(r, []string{"Stop"}, strings.NewReader(`{"event":"SessionStart"}`))
	assert.Empty(t, out)
	assert.Equal(t, "hook.stop", f.tel.last(t).Name)
}

func TestRunner_MalformedInputIsEmptyInput(t *testing.T) {
	f := newFixture(t)
	r, logs := newRunner(f)

	assert.Equal(t, "## sisyphus\n", run(r, []string{"UserPromptSubmit"}, strings.NewReader(`{"prompt": "ulw"`)))
	assert.NoFileExists(t, f.paths.Runtime)
	assert.Zero(t, logs.Len())
}

func TestRunner_HandlerErrorDiscardsOutput(t *testing.T) {
	f := newFixture(t)
	writeFile(t, f.paths.Boulder, activeBoulder)
	f.sections.err = errors.New("boom")
	r, logs := newRunner(f)

	assert.Empty(t, run(r, []string{"SessionStart"}, strings.NewReader(`{}`)))
	assert.Equal(t, 1, logs.FilterMessage("hook failed, continuing silently").Len())
}

func TestRunner_PanicIsRecovered(t *testing.T) {
	f := newFixture(t)
	f.sections.panic = true
	r, logs := newRunner(f)

	assert.NotPanics(t, func() {
		assert.Empty(t, run(r, []string{"UserPromptSubmit"}, strings.NewReader(`{"prompt":"ulw"}`)))
	})
	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Contains(t, entries[0].ContextMap()["error"], "composer exploded")
	}
}

func TestRunner_ReadErrorIsSilent(t *testing.T) {
	f := newFixture(t)
	r, logs := newRunner(f)

	assert.Empty(t, run(r, []string{"SessionStart"}, failingReader{}))
	assert.Equal(t, 1, logs.Len())
}

func TestRunner_OversizedInputIsDropped(t *testing.T) {
	f := newFixture(t)
	r, _ := newRunner(f)
	r.Options.MaxStdinBytes = 16

	out := run(r, []string{"PreToolUse"}, strings.NewReader(`{"tool_name":"Bash","command":"rm -rf /"}`))
	assert.Empty(t, out, "truncated input parses as empty and nothing is blocked")
}

func TestRunner_CancelledContext(t *testing.T) {
	f := newFixture(t)
	r, _ := newRunner(f)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var out bytes.Buffer
	r.Run(ctx, []string{"SessionStart"}, strings.NewReader(`{}`), &out)
	assert.Empty(t, out.String())
}

func TestRunner_NilDispatcher(t *testing.T) {
	r := &Runner{}
	assert.Empty(t, run(r, []string{"Stop"}, strings.NewReader(`{}`)))
}
