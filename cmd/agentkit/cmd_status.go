package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agentkit/internal/boulder"
	"agentkit/internal/evals"
	"agentkit/internal/ralph"
	"agentkit/internal/session"
	"agentkit/internal/state"
)

// readOnly satisfies ralph.Writer without touching disk, so status never
// finishes a loop.
type readOnly struct{}

func (readOnly) Write(string, any) bool { return false }

func newStatusCmd() *cobra.Command {
	var sessionID string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show persona, continuation and loop state for the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(cmd.OutOrStdout(), sessionID)
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "Session id (default: the global session)")
	return cmd
}

func showStatus(w io.Writer, sessionID string) error {
	store := state.New(logger)
	key := session.Key(sessionID)
	rec := session.Decode(store.Load(cfg.RuntimePath())).Get(key)
	b := boulder.Read(store, cfg.BoulderPath())
	loop := ralph.Check(readOnly{}, cfg.RalphPath(), "", "")

	pluginRoot := cfg.PluginRoot
	if pluginRoot == "" {
		pluginRoot = warnStyle.Render("not set")
	}
	env := keyValues([][2]string{
		{"workspace", cfg.Workspace},
		{"plugin root", pluginRoot},
		{"telemetry", onOff(cfg.Telemetry.Enabled())},
		{"debug logs", onOff(cfg.Logging.DebugMode)},
	})

	continuation := "active"
	if rec.StopContinuation.Disabled {
		continuation = failStyle.Render("disabled")
		if rec.StopContinuation.DisabledReason != "" {
			continuation += " (" + rec.StopContinuation.DisabledReason + ")"
		}
	}
	sess := keyValues([][2]string{
		{"session", key},
		{"persona", string(rec.Persona())},
		{"ultrawork", onOff(rec.ULW.Enabled)},
		{"stop blocks", fmt.Sprintf("%d/%d", rec.ULW.StopBlocks, cfg.Limits.StopMaxBlocks)},
		{"continuation", continuation},
	})

	plan := "inactive"
	if b.IsActive() {
		plan = passStyle.Render("active")
		if p := b.Plan(); p != "" {
			plan += " " + p
		}
		if num, label := b.Task(); num != "" || label != "" {
			plan += fmt.Sprintf(" (task %s %s)", num, strings.TrimSpace(label))
		}
	}
	loopText := "inactive"
	if loop.Active {
		loopText = passStyle.Render("active") + " iteration " + strconv.Itoa(loop.Iteration)
	} else if loop.Finished {
		loopText = "finished"
	}
	work := keyValues([][2]string{
		{"boulder", plan},
		{"ralph loop", loopText},
	})

	fmt.Fprintln(w, titleStyle.Render("agentkit status"))
	fmt.Fprintln(w, boxStyle.Render(strings.TrimRight(env+"\n"+sess+"\n"+work, "\n")))

	runs := recentRuns()
	if len(runs) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, []string{r.StartedAt.Local().Format(time.DateTime), r.Kind, strconv.Itoa(r.Traces), r.Source})
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("Recent eval runs"))
	fmt.Fprint(w, renderTable([]string{"STARTED", "KIND", "TRACES", "SOURCE"}, rows))
	return nil
}

// recentRuns lists eval runs when the database already exists.
func recentRuns() []evals.Run {
	path := cfg.EvalDatabasePath()
	if !fileExists(path) {
		return nil
	}
	store, err := evals.OpenStore(path)
	if err != nil {
		logger.Warn("open eval store", zap.Error(err))
		return nil
	}
	defer store.Close()
	runs, err := store.RecentRuns(5)
	if err != nil {
		logger.Warn("list eval runs", zap.Error(err))
		return nil
	}
	return runs
}

func onOff(b bool) string {
	if b {
		return passStyle.Render("on")
	}
	return "off"
}
