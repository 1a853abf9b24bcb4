package evals

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"agentkit/internal/persona"
	"agentkit/internal/telemetry"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeReader struct {
	traces map[string]string
	listed []string
}

func (f *fakeReader) ListTraceIDs(context.Context, time.Time) ([]string, error) {
	return f.listed, nil
}

func (f *fakeReader) GetTrace(_ context.Context, id string) (json.RawMessage, error) {
	doc, ok := f.traces[id]
	if !ok {
		return nil, fmt.Errorf("trace %s not found", id)
	}
	return json.RawMessage(doc), nil
}

type fakePoster struct {
	mu     sync.Mutex
	events []telemetry.IngestionEvent
	err    error
}

func (f *fakePoster) Ingest(_ context.Context, events ...telemetry.IngestionEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, events...)
	return nil
}

func writeDataset(t *testing.T, content string) FileSource {
	t.Helper()
	path := filepath.Join(t.TempDir(), "dataset.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return FileSource{Path: path}
}

const personaDataset = `[
	{"trace_id": "s1", "metadata": {"persona": "sisyphus"}, "tool_calls": [
		{"name": "Read", "input": "a.ts"}, {"name": "Edit", "input": "a.ts"}, {"name": "Bash", "input": "npm test"}]},
	{"trace_id": "p1", "metadata": {"persona": "prometheus"}, "tool_calls": [
		{"name": "Write", "input": ".agent-kit/plans/x.md", "output": "- [ ] a"}]},
	{"trace_id": "u1", "metadata": {}, "tool_calls": []}
]`

func TestPipeline_Personas(t *testing.T) {
	store := openTestStore(t)
	poster := &fakePoster{}
	p := &Pipeline{Store: store, Poster: poster, Concurrency: 2}

	res, err := p.Personas(context.Background(), writeDataset(t, personaDataset))
	require.NoError(t, err)
	require.Len(t, res.Results, 3)
	assert.Equal(t, 2, res.Scored())
	assert.Equal(t, "sisyphus", res.Results[0].Label)
	assert.True(t, res.Results[2].Skipped)

	scores, err := store.RunScores(res.RunID)
	require.NoError(t, err)
	assert.Len(t, scores, 8)
	assert.Len(t, poster.events, 8)

	runs, err := store.RecentRuns(1)
	require.NoError(t, err)
	assert.Equal(t, 2, runs[0].Traces)
}

func TestPipeline_PersonaOverride(t *testing.T) {
	p := &Pipeline{Persona: persona.Atlas}
	res, err := p.Personas(context.Background(), writeDataset(t, personaDataset))
	require.NoError(t, err)
	assert.Equal(t, 3, res.Scored())
	for _, r := range res.Results {
		assert.Equal(t, "atlas", r.Label)
		assert.Len(t, r.Scores, 5)
	}
	assert.Empty(t, res.RunID, "no store, no run id")
}

func TestPipeline_SignalsFromLangfuse(t *testing.T) {
	reader := &fakeReader{
		listed: []string{"a", "b"},
		traces: map[string]string{
			"a": `{"id": "a", "observations": [{"type": "GENERATION", "input": "i give up", "output": "sorry"}]}`,
			"b": `{"observations": [{"type": "GENERATION", "input": "thanks", "output": "ok"}]}`,
		},
	}
	poster := &fakePoster{}
	p := &Pipeline{Poster: poster}

	res, err := p.Signals(context.Background(), LangfuseSource{Reader: reader, From: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	require.Len(t, res.Results, 2)
	assert.Equal(t, "a", res.Results[0].TraceID)
	assert.Equal(t, string(QualitySevere), res.Results[0].Label)
	assert.Equal(t, "b", res.Results[1].TraceID, "missing id falls back to the listed id")
	assert.Len(t, poster.events, 24)

	var quality *telemetry.ScoreBody
	for _, ev := range poster.events {
		body := ev.Body.(telemetry.ScoreBody)
		if body.TraceID == "a" && body.Name == ScoreOverallQuality {
			quality = &body
		}
	}
	require.NotNil(t, quality)
	assert.Equal(t, "Severe", quality.Comment)
}

func TestPipeline_PostFailure(t *testing.T) {
	p := &Pipeline{Poster: &fakePoster{err: errors.New("503")}}
	_, err := p.Signals(context.Background(), writeDataset(t, `{"trace_id": "x"}`))
	assert.ErrorContains(t, err, "503")
}

func TestPipeline_SourceFailure(t *testing.T) {
	p := &Pipeline{}
	_, err := p.Signals(context.Background(), LangfuseSource{Reader: &fakeReader{}, IDs: []string{"missing"}})
	assert.ErrorContains(t, err, "missing")
}

func TestPipeline_Baseline(t *testing.T) {
	store := openTestStore(t)
	fixed := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	p := &Pipeline{Store: store, Now: func() time.Time { return fixed }}

	src := writeDataset(t, `[
		{"trace_id": "p", "metadata": {"baseline_task": "t", "plugin": true}, "messages": [{"role": "assistant", "content": "x"}]},
		{"trace_id": "v", "metadata": {"baseline_task": "t", "plugin": false}}
	]`)
	report, summary, err := p.Baseline(context.Background(), src)
	require.NoError(t, err)
	assert.Contains(t, report, "Generated: 2026-06-01 00:00 UTC")
	assert.Contains(t, report, "| t | 1 | 0 | 0 | 0 | No | No | N/A | N/A |")
	assert.Equal(t, BaselineSummary{VanillaWins: 1}, summary)

	runs, err := store.RecentRuns(1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, KindBaseline, runs[0].Kind)
}
