package config

// LoggingConfig configures the debug file logger.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	DebugMode  bool            `yaml:"debug_mode"` // Master toggle - false = no debug files
	Categories map[string]bool `yaml:"categories"` // Per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Returns false if debug_mode is false.
// Returns true if debug_mode is true and category is enabled (or not specified).
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}
