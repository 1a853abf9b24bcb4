package evals

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"agentkit/internal/logging"
)

// Source yields the traces for one evaluation run.
type Source interface {
	Name() string
	Traces(ctx context.Context) ([]Trace, error)
}

// FileSource reads a JSON or JSONC dataset file.
type FileSource struct {
	Path string
}

func (s FileSource) Name() string { return "file:" + s.Path }

func (s FileSource) Traces(context.Context) ([]Trace, error) {
	return LoadTraces(s.Path)
}

// TraceReader reads traces from Langfuse. telemetry.Client satisfies it.
type TraceReader interface {
	ListTraceIDs(ctx context.Context, from time.Time) ([]string, error)
	GetTrace(ctx context.Context, id string) (json.RawMessage, error)
}

// LangfuseSource fetches recent traces, or the listed ones when IDs is set.
type LangfuseSource struct {
	Reader      TraceReader
	From        time.Time
	IDs         []string
	Concurrency int
}

func (s LangfuseSource) Name() string {
	if len(s.IDs) > 0 {
		return fmt.Sprintf("langfuse:%d ids", len(s.IDs))
	}
	return "langfuse:since " + s.From.UTC().Format(time.RFC3339)
}

// Traces fetches every trace in parallel, bounded by Concurrency.
func (s LangfuseSource) Traces(ctx context.Context) ([]Trace, error) {
	ids := s.IDs
	if len(ids) == 0 {
		var err error
		ids, err = s.Reader.ListTraceIDs(ctx, s.From)
		if err != nil {
			return nil, fmt.Errorf("failed to list traces: %w", err)
		}
	}
	logging.Evals("fetching %d traces from langfuse", len(ids))

	traces := make([]Trace, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(s.Concurrency))
	for i, id := range ids {
		g.Go(func() error {
			raw, err := s.Reader.GetTrace(gctx, id)
			if err != nil {
				return fmt.Errorf("failed to fetch trace %s: %w", id, err)
			}
			t, err := ParseTrace(raw)
			if err != nil {
				return fmt.Errorf("trace %s: %w", id, err)
			}
			if t.ID == "offline" {
				t.ID = id
			}
			traces[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return traces, nil
}

func limit(n int) int {
	if n <= 0 {
		return 4
	}
	return n
}
