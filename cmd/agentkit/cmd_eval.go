package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agentkit/internal/evals"
	"agentkit/internal/persona"
	"agentkit/internal/telemetry"
)

// BaselineReportFile is the default baseline report name under the report dir.
const BaselineReportFile = "baseline-comparison.md"

type evalFlags struct {
	dataset  string
	days     int
	traceIDs []string
	persona  string
	dryRun   bool
	output   string
	noStore  bool
}

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score recorded sessions offline",
		Long: `Scores traces from a JSON/JSONC dataset (--dataset) or from Langfuse (the
default when telemetry credentials are set). Results are stored in the SQLite
eval database and, for Langfuse sources, posted back as scores unless
--dry-run is given.`,
	}

	var f evalFlags
	cmd.PersistentFlags().StringVar(&f.dataset, "dataset", "", "Trace dataset file (JSON or JSONC, one trace or an array)")
	cmd.PersistentFlags().IntVar(&f.days, "days", 0, "Langfuse lookback in days (default from config)")
	cmd.PersistentFlags().StringSliceVar(&f.traceIDs, "trace-id", nil, "Langfuse trace ids to score instead of the lookback window")
	cmd.PersistentFlags().BoolVar(&f.dryRun, "dry-run", false, "Do not post scores back to Langfuse")
	cmd.PersistentFlags().BoolVar(&f.noStore, "no-store", false, "Do not record the run in the eval database")

	signals := &cobra.Command{
		Use:   "signals",
		Short: "Compute session signals and the overall quality rating",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, &f, func(ctx context.Context, p *evals.Pipeline, src evals.Source) (*evals.RunResult, error) {
				return p.Signals(ctx, src)
			})
		},
	}

	personas := &cobra.Command{
		Use:   "persona",
		Short: "Score each trace against its persona's behavioral contract",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEval(cmd, &f, func(ctx context.Context, p *evals.Pipeline, src evals.Source) (*evals.RunResult, error) {
				return p.Personas(ctx, src)
			})
		},
	}
	personas.Flags().StringVar(&f.persona, "persona", "", "Score every trace as this persona")

	baseline := &cobra.Command{
		Use:   "baseline",
		Short: "Compare plugin and vanilla runs of the same task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBaseline(cmd, &f)
		},
	}
	baseline.Flags().StringVar(&f.output, "output", "", "Report path (default: <report dir>/"+BaselineReportFile+")")

	cmd.AddCommand(signals, personas, baseline)
	return cmd
}

type evalFunc func(ctx context.Context, p *evals.Pipeline, src evals.Source) (*evals.RunResult, error)

func runEval(cmd *cobra.Command, f *evalFlags, run evalFunc) error {
	p, src, cleanup, err := setupPipeline(f)
	if err != nil {
		return err
	}
	defer cleanup()

	if f.persona != "" {
		who, ok := persona.Parse(f.persona)
		if !ok {
			return fmt.Errorf("unknown persona %q", f.persona)
		}
		p.Persona = who
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GetFetchTimeout())
	defer cancel()

	res, err := run(ctx, p, src)
	if err != nil {
		return fmt.Errorf("%s evaluation failed: %w", cmd.Name(), err)
	}
	return printRun(cmd.OutOrStdout(), p.Store, res)
}

func runBaseline(cmd *cobra.Command, f *evalFlags) error {
	p, src, cleanup, err := setupPipeline(f)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.GetFetchTimeout())
	defer cancel()

	report, summary, err := p.Baseline(ctx, src)
	if err != nil {
		return fmt.Errorf("baseline comparison failed: %w", err)
	}

	out := f.output
	if out == "" {
		out = filepath.Join(cfg.ReportDir(), BaselineReportFile)
	}
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return fmt.Errorf("failed to create report directory: %w", err)
	}
	if err := os.WriteFile(out, []byte(report), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintln(w, titleStyle.Render("Baseline comparison"))
	fmt.Fprint(w, keyValues([][2]string{
		{"pairs", strconv.Itoa(summary.Total())},
		{"plugin wins", strconv.Itoa(summary.PluginWins)},
		{"vanilla wins", strconv.Itoa(summary.VanillaWins)},
		{"ties", strconv.Itoa(summary.Ties)},
		{"report", out},
	}))
	return nil
}

// setupPipeline picks the trace source and opens the result store.
func setupPipeline(f *evalFlags) (*evals.Pipeline, evals.Source, func(), error) {
	p := &evals.Pipeline{Log: logger.Named("evals"), Concurrency: cfg.Evals.Concurrency}
	cleanup := func() {}

	var src evals.Source
	if f.dataset != "" {
		src = evals.FileSource{Path: f.dataset}
	} else {
		if !cfg.Telemetry.Enabled() {
			return nil, nil, nil, fmt.Errorf("no --dataset given and Langfuse credentials are not configured")
		}
		client := telemetry.NewClient(cfg.Telemetry)
		days := f.days
		if days <= 0 {
			days = cfg.Evals.LookbackDays
		}
		src = evals.LangfuseSource{
			Reader:      client,
			From:        time.Now().AddDate(0, 0, -days),
			IDs:         f.traceIDs,
			Concurrency: cfg.Evals.Concurrency,
		}
		if !f.dryRun {
			p.Poster = client
		}
	}

	if !f.noStore {
		store, err := evals.OpenStore(cfg.EvalDatabasePath())
		if err != nil {
			return nil, nil, nil, err
		}
		p.Store = store
		cleanup = func() {
			if err := store.Close(); err != nil {
				logger.Warn("close eval store", zap.Error(err))
			}
		}
	}
	return p, src, cleanup, nil
}

func printRun(w io.Writer, store *evals.Store, res *evals.RunResult) error {
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s evaluation: %d/%d traces scored", res.Kind, res.Scored(), len(res.Results))))

	rows := make([][]string, 0, len(res.Results))
	for _, tr := range res.Results {
		label := tr.Label
		if tr.Skipped {
			label = warnStyle.Render("skipped")
		}
		rows = append(rows, []string{tr.TraceID, label, formatScores(tr.Scores)})
	}
	if len(rows) > 0 {
		fmt.Fprint(w, renderTable([]string{"TRACE", "LABEL", "SCORES"}, rows))
	}

	if store == nil || res.RunID == "" {
		return nil
	}
	avgs, err := store.Averages(res.RunID)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(avgs))
	for name := range avgs {
		names = append(names, name)
	}
	sort.Strings(names)
	pairs := make([][2]string, 0, len(names)+1)
	pairs = append(pairs, [2]string{"run", res.RunID})
	for _, name := range names {
		pairs = append(pairs, [2]string{name, strconv.FormatFloat(avgs[name], 'f', 3, 64)})
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, keyValues(pairs))
	return nil
}

func formatScores(scores []evals.Score) string {
	parts := make([]string, 0, len(scores))
	for _, s := range scores {
		parts = append(parts, s.Name+"="+strconv.FormatFloat(s.Value, 'f', -1, 64))
	}
	return strings.Join(parts, " ")
}
