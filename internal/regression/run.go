package regression

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"go.uber.org/zap"

	"agentkit/internal/config"
	"agentkit/internal/hooks"
	"agentkit/internal/logging"
	"agentkit/internal/sections"
	"agentkit/internal/state"
)

const blockMarker = `"decision":"block"`

// Env configures a battery run.
type Env struct {
	// PluginRoot feeds the section composer. Cases that require it are
	// skipped when empty.
	PluginRoot string
	// FailFast stops at the first failed case.
	FailFast bool
	// Workdir is the working directory for shell cases.
	Workdir string
	Log     *zap.Logger
	Clock   func() time.Time
}

// RunBattery executes all cases in order. Each hook case gets its own
// temporary workspace.
func RunBattery(ctx context.Context, b *Battery, env Env) ([]Result, error) {
	if b == nil || len(b.Cases) == 0 {
		return nil, nil
	}
	if env.Log == nil {
		env.Log = zap.NewNop()
	}
	timer := logging.StartTimer(logging.CategoryEvals, "regression battery")
	defer timer.Stop()

	results := make([]Result, 0, len(b.Cases))
	for _, c := range b.Cases {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		start := time.Now()

		var res Result
		switch c.Type {
		case TypeHook, "":
			res = runHookCase(ctx, c, env)
		case TypeShell:
			res = runShellCase(ctx, c, env.Workdir)
		default:
			res = Result{CaseID: c.ID, Error: fmt.Sprintf("unsupported case type: %s", c.Type)}
		}
		res.DurationMs = time.Since(start).Milliseconds()
		results = append(results, res)

		logging.Evals("regression case=%s success=%t skipped=%t", c.ID, res.Success, res.Skipped)
		if !res.Success && env.FailFast {
			break
		}
	}
	return results, nil
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Success {
			out = append(out, r)
		}
	}
	return out
}

func runHookCase(ctx context.Context, c Case, env Env) Result {
	res := Result{CaseID: c.ID}
	if c.RequiresPlugin && env.PluginRoot == "" {
		res.Success, res.Skipped = true, true
		return res
	}

	dir, err := os.MkdirTemp("", "agentkit-regress-")
	if err != nil {
		res.Error = fmt.Sprintf("create workspace: %v", err)
		return res
	}
	defer os.RemoveAll(dir)

	cfg := config.DefaultConfig()
	cfg.Workspace = dir
	store := state.New(env.Log)
	if err := seed(store, cfg, c.Seed); err != nil {
		res.Error = err.Error()
		return res
	}

	deps := hooks.DepsFromConfig(cfg)
	deps.Store = store
	deps.Clock = env.Clock
	if env.PluginRoot != "" {
		deps.Sections = sections.NewComposer(env.PluginRoot)
	}
	d, err := hooks.NewDispatcher(deps)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	raw := []byte("{}")
	if len(c.Input) > 0 {
		if raw, err = json.Marshal(c.Input); err != nil {
			res.Error = fmt.Sprintf("encode input: %v", err)
			return res
		}
	}

	var out bytes.Buffer
	runner := hooks.Runner{Dispatcher: d, Log: env.Log}
	runner.Run(ctx, []string{c.Event}, bytes.NewReader(raw), &out)
	res.Output = out.String()

	problems := c.Expect.check(res.Output, store.Read(cfg.RuntimePath()), readText(cfg.RalphPath()))
	if len(problems) > 0 {
		res.Error = strings.Join(problems, "; ")
		return res
	}
	res.Success = true
	return res
}

func seed(store *state.Store, cfg *config.Config, s Seed) error {
	files := []struct {
		path    string
		content any
		set     bool
	}{
		{cfg.RuntimePath(), s.Runtime, s.Runtime != nil},
		{cfg.BoulderPath(), s.Boulder, s.Boulder != nil},
		{cfg.RalphPath(), s.Ralph, s.Ralph != ""},
	}
	for _, f := range files {
		if !f.set {
			continue
		}
		if err := store.WriteFile(f.path, f.content); err != nil {
			return fmt.Errorf("seed %s: %w", f.path, err)
		}
	}
	return nil
}

func readText(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// check returns one message per failed expectation.
func (e Expect) check(output string, runtimeDoc map[string]any, ralph string) []string {
	var problems []string
	blocked := strings.Contains(output, blockMarker)

	switch e.Decision {
	case "block":
		if !blocked {
			problems = append(problems, fmt.Sprintf("expected block, got %q", output))
		}
	case "allow":
		if blocked {
			problems = append(problems, fmt.Sprintf("expected allow, got %q", output))
		}
	}
	if e.Empty && output != "" {
		problems = append(problems, fmt.Sprintf("expected no output, got %q", output))
	}
	for _, s := range e.Contains {
		if !strings.Contains(output, s) {
			problems = append(problems, fmt.Sprintf("output missing %q", s))
		}
	}
	for _, s := range e.NotContains {
		if strings.Contains(output, s) {
			problems = append(problems, fmt.Sprintf("output contains %q", s))
		}
	}
	for path, want := range e.State {
		got, ok := lookup(runtimeDoc, path)
		switch {
		case want == nil && ok:
			problems = append(problems, fmt.Sprintf("state %s = %v, want absent", path, got))
		case want != nil && !ok:
			problems = append(problems, fmt.Sprintf("state %s missing, want %v", path, want))
		case want != nil && fmt.Sprint(got) != fmt.Sprint(want):
			problems = append(problems, fmt.Sprintf("state %s = %v, want %v", path, got, want))
		}
	}
	for _, s := range e.RalphContains {
		if !strings.Contains(ralph, s) {
			problems = append(problems, fmt.Sprintf("ralph file missing %q", s))
		}
	}
	return problems
}

// lookup follows a dotted path through nested objects.
func lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, key := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[key]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func runShellCase(ctx context.Context, c Case, workdir string) Result {
	res := Result{CaseID: c.ID}
	timeout := time.Duration(c.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	out, err := runShell(tctx, c.Command, workdir)
	res.Output = out
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Success = true
	return res
}

func runShell(ctx context.Context, command string, workdir string) (string, error) {
	command = strings.TrimSpace(command)
	if command == "" {
		return "", fmt.Errorf("empty command")
	}

	var cmd *exec.Cmd
	if runtime.GOOS == "windows" {
		cmd = exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", command)
	} else {
		cmd = exec.CommandContext(ctx, "bash", "-c", command)
	}
	cmd.Dir = workdir

	out, err := cmd.CombinedOutput()
	if ctx.Err() != nil {
		return string(out), ctx.Err()
	}
	if err != nil {
		return string(out), fmt.Errorf("command failed (%s): %w", command, err)
	}
	return string(out), nil
}
