package config

import "time"

// TelemetryConfig holds the Langfuse endpoint and credentials. Telemetry is
// only active when all three values are present.
type TelemetryConfig struct {
	BaseURL   string `yaml:"base_url"`
	PublicKey string `yaml:"public_key"`
	SecretKey string `yaml:"secret_key"`
	Timeout   string `yaml:"timeout"`
}

// Enabled reports whether every credential is configured.
func (t TelemetryConfig) Enabled() bool {
	return t.BaseURL != "" && t.PublicKey != "" && t.SecretKey != ""
}

// GetTimeout returns the per-request timeout.
func (t TelemetryConfig) GetTimeout() time.Duration {
	d, err := time.ParseDuration(t.Timeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}
