package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"agentkit/internal/regression"
	"agentkit/internal/state"
)

func newRegressCmd() *cobra.Command {
	var (
		prompts      bool
		failFast     bool
		baselinePath string
	)
	cmd := &cobra.Command{
		Use:   "regress [battery.yaml]",
		Short: "Replay the hook regression battery",
		Long: `Runs every battery case through the hook dispatcher in a fresh temporary
workspace. The battery is the given file, else .agent-kit/regression/battery.yaml
in the workspace, else the built-in hook contract battery.

With --prompts, the battery only runs when an agent or skill prompt changed
since the recorded baseline, and the baseline is updated when it passes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, name, err := loadBattery(args)
			if err != nil {
				return err
			}
			env := regression.Env{
				PluginRoot: cfg.PluginRoot,
				FailFast:   failFast,
				Workdir:    cfg.Workspace,
				Log:        logger.Named("regress"),
			}
			w := cmd.OutOrStdout()

			if prompts {
				path := baselinePath
				if path == "" {
					path = regression.DefaultPromptBaselinePath(cfg.Workspace)
				}
				report, err := regression.DriftCheck(cmd.Context(), state.New(logger), cfg.PluginRoot, path, b, env)
				if err != nil {
					return err
				}
				printDrift(w, report, path)
				if !report.Passed() {
					return exitCode(1)
				}
				return nil
			}

			fmt.Fprintln(w, titleStyle.Render("Regression battery: "+name))
			results, err := regression.RunBattery(cmd.Context(), b, env)
			if err != nil {
				return err
			}
			printResults(w, results)
			if len(regression.Failed(results)) > 0 {
				return exitCode(1)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&prompts, "prompts", false, "Only run when prompts changed since the baseline")
	cmd.Flags().BoolVar(&failFast, "fail-fast", false, "Stop at the first failing case")
	cmd.Flags().StringVar(&baselinePath, "baseline", "", "Prompt baseline file (default: .agent-kit/regression/prompt-baseline.json)")
	return cmd
}

func loadBattery(args []string) (*regression.Battery, string, error) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	} else if def := regression.DefaultBatteryPath(cfg.Workspace); fileExists(def) {
		path = def
	}
	if path == "" {
		b, err := regression.DefaultBattery()
		return b, "built-in", err
	}
	b, err := regression.LoadBattery(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to load battery %s: %w", path, err)
	}
	return b, path, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func printResults(w io.Writer, results []regression.Result) {
	passed, failed, skipped := 0, 0, 0
	for _, r := range results {
		switch {
		case r.Skipped:
			skipped++
			fmt.Fprintf(w, "  %s %s\n", warnStyle.Render("SKIP"), r.CaseID)
		case r.Success:
			passed++
			fmt.Fprintf(w, "  %s %s\n", passStyle.Render("PASS"), r.CaseID)
		default:
			failed++
			fmt.Fprintf(w, "  %s %s: %s\n", failStyle.Render("FAIL"), r.CaseID, r.Error)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprint(w, keyValues([][2]string{
		{"passed", fmt.Sprint(passed)},
		{"failed", fmt.Sprint(failed)},
		{"skipped", fmt.Sprint(skipped)},
	}))
}

func printDrift(w io.Writer, report regression.DriftReport, path string) {
	fmt.Fprintln(w, titleStyle.Render("Prompt regression detection"))
	switch {
	case report.Initial:
		fmt.Fprintf(w, "  %s initial baseline generated at %s\n", passStyle.Render("PASS"), path)
		return
	case len(report.Changes) == 0:
		fmt.Fprintf(w, "  %s no prompt changes detected\n", passStyle.Render("PASS"))
		return
	}
	for _, c := range report.Changes {
		fmt.Fprintf(w, "  %s\n", warnStyle.Render(c.Short()))
	}
	fmt.Fprintf(w, "\n  %d prompt(s) changed, running regression battery\n\n", len(report.Changes))
	printResults(w, report.Results)
	if report.Updated {
		fmt.Fprintln(w, "\n  Baseline updated.")
	}
}
