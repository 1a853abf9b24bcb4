package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultStateDir is the project-local directory holding every agentkit file.
const DefaultStateDir = ".agent-kit"

// DefaultConfigFile is the optional YAML config, relative to the state dir.
const DefaultConfigFile = "config.yaml"

// Config holds all agentkit configuration. It is constructed once at process
// start and passed to the components that need it.
type Config struct {
	// Workspace is the project root that contains the state dir. Never read
	// from the config file itself.
	Workspace string `yaml:"-"`

	// PluginRoot holds agents/ and skills/ for the section composer.
	PluginRoot string `yaml:"plugin_root"`

	Paths     PathsConfig     `yaml:"paths"`
	Limits    LimitsConfig    `yaml:"limits"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
	Evals     EvalsConfig     `yaml:"evals"`
}

// PathsConfig locates the persisted files. Relative paths resolve against
// <workspace>/<state_dir>.
type PathsConfig struct {
	StateDir     string `yaml:"state_dir"`
	RuntimeFile  string `yaml:"runtime_file"`
	BoulderFile  string `yaml:"boulder_file"`
	RalphFile    string `yaml:"ralph_file"`
	DebugDir     string `yaml:"debug_dir"`
	HookInputDir string `yaml:"hook_input_dir"`
	EvalDatabase string `yaml:"eval_database"`
	ReportDir    string `yaml:"report_dir"`
}

// EvalsConfig configures the offline evaluation pipeline.
type EvalsConfig struct {
	Concurrency  int    `yaml:"concurrency"`
	LookbackDays int    `yaml:"lookback_days"`
	FetchTimeout string `yaml:"fetch_timeout"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Paths: PathsConfig{
			StateDir:     DefaultStateDir,
			RuntimeFile:  "state/runtime.local.json",
			BoulderFile:  "boulder.json",
			RalphFile:    "ralph-loop.local.md",
			DebugDir:     "evidence/debug",
			HookInputDir: "evidence/hook-input",
			EvalDatabase: "evals/results.db",
			ReportDir:    "evals/reports",
		},
		Limits:    DefaultLimits(),
		Telemetry: TelemetryConfig{Timeout: "5s"},
		Logging: LoggingConfig{
			Level: "debug",
		},
		Evals: EvalsConfig{
			Concurrency:  4,
			LookbackDays: 7,
			FetchTimeout: "30s",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields defaults.
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyDefaults fills zero values left by a partial config file.
func (c *Config) applyDefaults() {
	def := DefaultConfig()
	p := &c.Paths
	if p.StateDir == "" {
		p.StateDir = def.Paths.StateDir
	}
	if p.RuntimeFile == "" {
		p.RuntimeFile = def.Paths.RuntimeFile
	}
	if p.BoulderFile == "" {
		p.BoulderFile = def.Paths.BoulderFile
	}
	if p.RalphFile == "" {
		p.RalphFile = def.Paths.RalphFile
	}
	if p.DebugDir == "" {
		p.DebugDir = def.Paths.DebugDir
	}
	if p.HookInputDir == "" {
		p.HookInputDir = def.Paths.HookInputDir
	}
	if p.EvalDatabase == "" {
		p.EvalDatabase = def.Paths.EvalDatabase
	}
	if p.ReportDir == "" {
		p.ReportDir = def.Paths.ReportDir
	}
	c.Limits.applyDefaults()
	if c.Telemetry.Timeout == "" {
		c.Telemetry.Timeout = def.Telemetry.Timeout
	}
	if c.Evals.Concurrency <= 0 {
		c.Evals.Concurrency = def.Evals.Concurrency
	}
	if c.Evals.LookbackDays <= 0 {
		c.Evals.LookbackDays = def.Evals.LookbackDays
	}
	if c.Evals.FetchTimeout == "" {
		c.Evals.FetchTimeout = def.Evals.FetchTimeout
	}
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if os.Getenv("AGENT_KIT_DEBUG") == "1" {
		c.Logging.DebugMode = true
	}

	if url := os.Getenv("LANGFUSE_BASE_URL"); url != "" {
		c.Telemetry.BaseURL = url
	}
	if key := os.Getenv("LANGFUSE_PUBLIC_KEY"); key != "" {
		c.Telemetry.PublicKey = key
	}
	if key := os.Getenv("LANGFUSE_SECRET_KEY"); key != "" {
		c.Telemetry.SecretKey = key
	}

	if root := os.Getenv("CLAUDE_PLUGIN_ROOT"); root != "" {
		c.PluginRoot = root
	}
}

// ResolveWorkspace picks the project root: explicit flag, then
// CLAUDE_PROJECT_DIR, then the working directory.
func ResolveWorkspace(flag string) string {
	if flag != "" {
		return flag
	}
	if dir := os.Getenv("CLAUDE_PROJECT_DIR"); dir != "" {
		return dir
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return cwd
}

// DefaultConfigPath returns <workspace>/.agent-kit/config.yaml.
func DefaultConfigPath(workspace string) string {
	return filepath.Join(workspace, DefaultStateDir, DefaultConfigFile)
}

// Resolve maps a configured path onto the filesystem. Absolute paths are
// returned cleaned; relative ones live under the workspace state dir.
func (c *Config) Resolve(p string) string {
	if p == "" {
		return ""
	}
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(c.Workspace, c.Paths.StateDir, p)
}

// RuntimePath is the Session Runtime State file.
func (c *Config) RuntimePath() string { return c.Resolve(c.Paths.RuntimeFile) }

// BoulderPath is the Boulder (plan) state file.
func (c *Config) BoulderPath() string { return c.Resolve(c.Paths.BoulderFile) }

// RalphPath is the Ralph-loop state file.
func (c *Config) RalphPath() string { return c.Resolve(c.Paths.RalphFile) }

// DebugDir holds per-category debug logs.
func (c *Config) DebugDir() string { return c.Resolve(c.Paths.DebugDir) }

// HookInputDir receives the redacted hook input dump in debug mode.
func (c *Config) HookInputDir() string { return c.Resolve(c.Paths.HookInputDir) }

// EvalDatabasePath is the SQLite file for offline eval results.
func (c *Config) EvalDatabasePath() string { return c.Resolve(c.Paths.EvalDatabase) }

// ReportDir receives generated eval reports.
func (c *Config) ReportDir() string { return c.Resolve(c.Paths.ReportDir) }

// AgentsDir is <plugin_root>/agents.
func (c *Config) AgentsDir() string { return filepath.Join(c.PluginRoot, "agents") }

// SkillsDir is <plugin_root>/skills.
func (c *Config) SkillsDir() string { return filepath.Join(c.PluginRoot, "skills") }

// GetFetchTimeout returns the eval trace fetch timeout as a duration.
func (c *Config) GetFetchTimeout() time.Duration {
	d, err := time.ParseDuration(c.Evals.FetchTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
