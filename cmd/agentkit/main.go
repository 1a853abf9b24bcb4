// Command agentkit is the hook entry point and offline tooling for the
// claude-agent-kit plugin.
//
// The host runs `agentkit hook <Event>` once per lifecycle event with the
// event JSON on stdin. Everything else (state, detect, sections, telemetry,
// eval, regress, status) is for scripts and humans.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"agentkit/internal/config"
	"agentkit/internal/logging"
)

var (
	// Global flags
	verbose    bool
	workspace  string
	pluginRoot string
	configPath string

	// Set by the root PersistentPreRunE.
	cfg    *config.Config
	logger *zap.Logger
)

// exitCode ends the process with a status and no message. Used by commands
// whose answer is the exit status itself.
type exitCode int

func (e exitCode) Error() string { return fmt.Sprintf("exit status %d", int(e)) }

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "agentkit",
		Short: "Hook runtime and evaluation tools for claude-agent-kit",
		Long: `agentkit handles the host lifecycle hooks (SessionStart, UserPromptSubmit,
PreToolUse, Stop) for the claude-agent-kit plugin and carries the offline tools
around them: state inspection, trigger detection, prompt section rendering,
Langfuse telemetry, trace evaluation and the hook regression battery.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger = newLogger(cmd.ErrOrStderr(), verbose)
			return loadConfig(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.CloseAll()
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().StringVarP(&workspace, "workspace", "w", "", "Workspace directory (default: $CLAUDE_PROJECT_DIR or current)")
	root.PersistentFlags().StringVar(&pluginRoot, "plugin-root", "", "Plugin root holding agents/ and skills/ (default: $CLAUDE_PLUGIN_ROOT)")
	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <workspace>/.agent-kit/config.yaml)")

	root.AddCommand(
		newHookCmd(),
		newStateCmd(),
		newDetectCmd(),
		newSectionsCmd(),
		newPromptVersionCmd(),
		newTelemetryCmd(),
		newEvalCmd(),
		newRegressCmd(),
		newStatusCmd(),
	)
	return root
}

// newLogger builds the stderr error channel. JSON lines at info, debug with
// --verbose.
func newLogger(w io.Writer, debug bool) *zap.Logger {
	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), level)
	return zap.New(core).Named("agentkit")
}

// loadConfig reads the config file and applies flag overrides. The hook
// command never fails here: a broken config falls back to defaults.
func loadConfig(cmd *cobra.Command) error {
	ws := config.ResolveWorkspace(workspace)
	path := configPath
	if path == "" {
		path = config.DefaultConfigPath(ws)
	}

	loaded, err := config.Load(path)
	if err != nil {
		if !isHookCmd(cmd) {
			return fmt.Errorf("failed to load config: %w", err)
		}
		logger.Warn("config unreadable, using defaults", zap.String("path", path), zap.Error(err))
		loaded = config.DefaultConfig()
	}
	loaded.Workspace = ws
	if pluginRoot != "" {
		loaded.PluginRoot = pluginRoot
	}
	cfg = loaded

	if err := logging.Initialize(cfg.DebugDir(), cfg.Logging); err != nil {
		logger.Warn("debug logging disabled", zap.Error(err))
	}
	return nil
}

func isHookCmd(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Name() == "hook" {
			return true
		}
	}
	return false
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		var code exitCode
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
