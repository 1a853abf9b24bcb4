package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"agentkit/internal/hooks"
	"agentkit/internal/logging"
	"agentkit/internal/sections"
	"agentkit/internal/state"
	"agentkit/internal/telemetry"
)

// newHookCmd is the entry point the host calls. It is hidden from help and
// always exits 0.
func newHookCmd() *cobra.Command {
	return &cobra.Command{
		Use:    "hook [event]",
		Short:  "Handle one host lifecycle event read from stdin",
		Hidden: true,

		// Only the first argument names the event. Extra arguments and
		// unknown flags from the host are ignored.
		Args:               cobra.ArbitraryArgs,
		FParseErrWhitelist: cobra.FParseErrWhitelist{UnknownFlags: true},
		Run: func(cmd *cobra.Command, args []string) {
			runHook(cmd, args)
		},
	}
}

func runHook(cmd *cobra.Command, args []string) {
	log := logger.Named("hook")

	deps := hooks.DepsFromConfig(cfg)
	deps.Store = state.New(logger)
	deps.Telemetry = telemetry.New(cfg.Telemetry)
	if cfg.PluginRoot != "" {
		deps.Sections = sections.NewComposer(cfg.PluginRoot)
	}

	d, err := hooks.NewDispatcher(deps)
	if err != nil {
		log.Error("hook setup failed, continuing silently", zap.Error(err))
		return
	}

	opts := hooks.RunOptions{MaxFieldLength: cfg.Limits.MaxFieldLength}
	if logging.IsDebugMode() {
		opts.DumpDir = cfg.HookInputDir()
	}
	runner := &hooks.Runner{Dispatcher: d, Log: log, Options: opts}
	runner.Run(cmd.Context(), args, hookStdin(cmd.InOrStdin()), cmd.OutOrStdout())
	// Telemetry posts are detached; the hook never waits for them.
}

// hookStdin drops an interactive terminal so a manual run does not hang
// waiting for input.
func hookStdin(r io.Reader) io.Reader {
	if f, ok := r.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return nil
	}
	return r
}
