package hooks

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"agentkit/internal/persona"
	"agentkit/internal/state"
)

var t0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// fakeSections returns a fixed body per persona and records the calls.
type fakeSections struct {
	err   error
	panic bool
	seen  []persona.Persona
}

func (f *fakeSections) Compose(p persona.Persona) (string, error) {
	f.seen = append(f.seen, p)
	if f.panic {
		panic("composer exploded")
	}
	if f.err != nil {
		return "", f.err
	}
	if p == persona.Prometheus {
		return "", nil
	}
	return "## " + string(p) + "\n", nil
}

type recordedEvent struct {
	TraceID  string
	Name     string
	Metadata map[string]any
}

type recordedScore struct {
	TraceID string
	Name    string
	Value   float64
}

type recorder struct {
	mu     sync.Mutex
	events []recordedEvent
	scores []recordedScore
}

func (r *recorder) Event(traceID, name string, metadata map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{traceID, name, metadata})
}

func (r *recorder) Score(traceID, name string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scores = append(r.scores, recordedScore{traceID, name, value})
}

func (r *recorder) last(t *testing.T) recordedEvent {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.events)
	return r.events[len(r.events)-1]
}

type fixture struct {
	dir      string
	paths    Paths
	clock    *fakeClock
	sections *fakeSections
	tel      *recorder
	d        *Dispatcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, ".agent-kit")
	f := &fixture{
		dir: dir,
		paths: Paths{
			Runtime: filepath.Join(root, "state", "runtime.local.json"),
			Boulder: filepath.Join(root, "boulder.json"),
			Ralph:   filepath.Join(root, "ralph-loop.local.md"),
		},
		clock:    &fakeClock{now: t0},
		sections: &fakeSections{},
		tel:      &recorder{},
	}
	d, err := NewDispatcher(Deps{
		Paths:     f.paths,
		Limits:    DefaultLimits(),
		Store:     state.New(zap.NewNop()),
		Sections:  f.sections,
		Telemetry: f.tel,
		Clock:     f.clock.Now,
	})
	require.NoError(t, err)
	f.d = d
	return f
}

func (f *fixture) dispatch(t *testing.T, ev EventType, in Input) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, f.d.Dispatch(ev, in, &buf))
	return buf.String()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func (f *fixture) runtimeDoc(t *testing.T) map[string]any {
	t.Helper()
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(readFile(t, f.paths.Runtime)), &doc))
	return doc
}

// dig walks nested objects in a decoded document.
func dig(doc map[string]any, keys ...string) any {
	var cur any = doc
	for _, k := range keys {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur = m[k]
	}
	return cur
}
