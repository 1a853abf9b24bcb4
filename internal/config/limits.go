package config

import (
	"fmt"
	"time"
)

// LimitsConfig bounds hook behavior. Defaults match the continuation policy
// the host expects; changing them is supported but rarely useful.
type LimitsConfig struct {
	StopMaxBlocks  int    `yaml:"stop_max_blocks"`  // Stop blocks before continuation auto-disables
	StopCooldown   string `yaml:"stop_cooldown"`    // Minimum gap between two Stop blocks
	MaxFieldLength int    `yaml:"max_field_length"` // Free-text hook input fields are cut here (runes)
	MaxStdinBytes  int64  `yaml:"max_stdin_bytes"`  // Hook stdin read cap
}

// DefaultLimits returns the built-in limits.
func DefaultLimits() LimitsConfig {
	return LimitsConfig{
		StopMaxBlocks:  8,
		StopCooldown:   "3s",
		MaxFieldLength: 2000,
		MaxStdinBytes:  1 << 20,
	}
}

func (l *LimitsConfig) applyDefaults() {
	def := DefaultLimits()
	if l.StopMaxBlocks <= 0 {
		l.StopMaxBlocks = def.StopMaxBlocks
	}
	if l.StopCooldown == "" {
		l.StopCooldown = def.StopCooldown
	}
	if l.MaxFieldLength <= 0 {
		l.MaxFieldLength = def.MaxFieldLength
	}
	if l.MaxStdinBytes <= 0 {
		l.MaxStdinBytes = def.MaxStdinBytes
	}
}

// GetStopCooldown returns the Stop cooldown window as a duration.
func (l LimitsConfig) GetStopCooldown() time.Duration {
	d, err := time.ParseDuration(l.StopCooldown)
	if err != nil || d < 0 {
		return 3 * time.Second
	}
	return d
}

// Validate checks that limits are within acceptable ranges.
func (l LimitsConfig) Validate() error {
	if l.StopMaxBlocks < 1 {
		return fmt.Errorf("stop_max_blocks must be >= 1")
	}
	if _, err := time.ParseDuration(l.StopCooldown); err != nil {
		return fmt.Errorf("stop_cooldown: %w", err)
	}
	if l.MaxFieldLength < 1 {
		return fmt.Errorf("max_field_length must be >= 1")
	}
	return nil
}
