package evals

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"agentkit/internal/logging"
	"agentkit/internal/persona"
	"agentkit/internal/telemetry"
)

// ScorePoster sends scores back to Langfuse. telemetry.Client satisfies it.
type ScorePoster interface {
	Ingest(ctx context.Context, events ...telemetry.IngestionEvent) error
}

// Pipeline scores traces from a Source, persists the results and
// optionally posts them back as Langfuse scores. Store, Poster and Log are
// optional.
type Pipeline struct {
	Store       *Store
	Poster      ScorePoster
	Log         *zap.Logger
	Concurrency int
	Now         func() time.Time

	// Persona, when set, overrides the persona recorded on each trace.
	Persona persona.Persona
}

// TraceResult is the outcome for one trace.
type TraceResult struct {
	TraceID string
	// Label is the quality rating for signals and the persona for persona
	// runs.
	Label   string
	Scores  []Score
	Skipped bool
}

// RunResult is the outcome of a pipeline run.
type RunResult struct {
	RunID   string
	Kind    string
	Source  string
	Results []TraceResult
}

// Scored counts the traces that were not skipped.
func (r *RunResult) Scored() int {
	n := 0
	for _, tr := range r.Results {
		if !tr.Skipped {
			n++
		}
	}
	return n
}

// scoreFunc scores one trace. ok=false skips it.
type scoreFunc func(t Trace) (scores []Score, label string, ok bool)

// Signals computes session signals for every trace.
func (p *Pipeline) Signals(ctx context.Context, src Source) (*RunResult, error) {
	return p.run(ctx, KindSignals, src, func(t Trace) ([]Score, string, bool) {
		s := ComputeSignals(t)
		return s.Scores(), string(s.OverallQuality), true
	})
}

// Personas runs the persona scorer matching each trace. Traces whose
// persona is unknown are skipped.
func (p *Pipeline) Personas(ctx context.Context, src Source) (*RunResult, error) {
	return p.run(ctx, KindPersona, src, func(t Trace) ([]Score, string, bool) {
		who := p.Persona
		if who == "" {
			who = persona.Persona(t.Persona())
		}
		scores, ok := ScorePersona(who, t)
		return scores, string(who), ok
	})
}

// Baseline pairs plugin and vanilla traces and renders the comparison
// report. The run is recorded without per-trace scores.
func (p *Pipeline) Baseline(ctx context.Context, src Source) (string, BaselineSummary, error) {
	traces, err := src.Traces(ctx)
	if err != nil {
		return "", BaselineSummary{}, err
	}
	now := p.now()
	report, summary := BaselineReport(PairTraces(traces), now)

	if p.Store != nil {
		runID, err := p.Store.BeginRun(KindBaseline, src.Name(), now)
		if err != nil {
			return "", summary, err
		}
		if err := p.Store.FinishRun(runID, p.now(), len(traces)); err != nil {
			return "", summary, err
		}
	}
	return report, summary, nil
}

func (p *Pipeline) run(ctx context.Context, kind string, src Source, score scoreFunc) (*RunResult, error) {
	timer := logging.StartTimer(logging.CategoryEvals, "run "+kind)
	defer timer.Stop()

	log := p.logger().With(zap.String("kind", kind), zap.String("source", src.Name()))

	traces, err := src.Traces(ctx)
	if err != nil {
		return nil, err
	}

	res := &RunResult{Kind: kind, Source: src.Name(), Results: make([]TraceResult, len(traces))}
	if p.Store != nil {
		res.RunID, err = p.Store.BeginRun(kind, src.Name(), p.now())
		if err != nil {
			return nil, err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit(p.Concurrency))
	for i, t := range traces {
		g.Go(func() error {
			scores, label, ok := score(t)
			res.Results[i] = TraceResult{TraceID: t.ID, Label: label, Scores: scores, Skipped: !ok}
			if !ok {
				log.Debug("trace skipped", zap.String("trace", t.ID), zap.String("label", label))
				return nil
			}
			return p.record(gctx, res.RunID, t.ID, scores)
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}

	if p.Store != nil {
		if err := p.Store.FinishRun(res.RunID, p.now(), res.Scored()); err != nil {
			return res, err
		}
	}
	log.Info("evaluation run complete", zap.Int("traces", len(traces)), zap.Int("scored", res.Scored()))
	return res, nil
}

// record persists and posts one trace's scores.
func (p *Pipeline) record(ctx context.Context, runID, traceID string, scores []Score) error {
	if p.Store != nil {
		if err := p.Store.SaveScores(runID, traceID, scores); err != nil {
			return err
		}
	}
	if p.Poster == nil {
		return nil
	}
	now := p.now()
	events := make([]telemetry.IngestionEvent, 0, len(scores))
	for _, sc := range scores {
		events = append(events, telemetry.NewScore(traceID, sc.Name, sc.Value, telemetry.Numeric, sc.Comment, now))
	}
	if err := p.Poster.Ingest(ctx, events...); err != nil {
		return fmt.Errorf("failed to post scores for %s: %w", traceID, err)
	}
	return nil
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) logger() *zap.Logger {
	if p.Log != nil {
		return p.Log
	}
	return zap.NewNop()
}
