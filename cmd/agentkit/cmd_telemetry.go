package main

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"agentkit/internal/telemetry"
)

// newTelemetryCmd posts one event or score. Like the hook emitter it is
// fail-open: missing credentials or a failed post still exit 0.
func newTelemetryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telemetry",
		Short: "Send a Langfuse event or score",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "event <trace-id> <name> [metadata-json]",
		Short: "Send an event-create with optional JSON metadata",
		Args:  cobra.RangeArgs(2, 3),
		Run: func(cmd *cobra.Command, args []string) {
			meta := "{}"
			if len(args) > 2 {
				meta = args[2]
			}
			ev := telemetry.NewEvent(args[0], args[1], telemetry.ParseMetadata(meta), time.Now())
			sendTelemetry(cmd.Context(), ev)
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "score <trace-id> <name> [value] [NUMERIC|BOOLEAN]",
		Short: "Send a score-create",
		Args:  cobra.RangeArgs(2, 4),
		Run: func(cmd *cobra.Command, args []string) {
			value := 0.0
			if len(args) > 2 {
				value = parseScoreValue(args[2])
			}
			dataType := telemetry.Numeric
			if len(args) > 3 && strings.EqualFold(args[3], string(telemetry.Boolean)) {
				dataType = telemetry.Boolean
			}
			ev := telemetry.NewScore(args[0], args[1], value, dataType, "", time.Now())
			sendTelemetry(cmd.Context(), ev)
		},
	})
	return cmd
}

// parseScoreValue accepts numbers and booleans. Anything else is 0.
func parseScoreValue(s string) float64 {
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil && b {
		return 1
	}
	return 0
}

func sendTelemetry(ctx context.Context, ev telemetry.IngestionEvent) {
	if !cfg.Telemetry.Enabled() {
		logger.Debug("telemetry disabled, nothing sent", zap.String("type", ev.Type))
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Telemetry.GetTimeout())
	defer cancel()
	if err := telemetry.NewClient(cfg.Telemetry).Ingest(ctx, ev); err != nil {
		logger.Warn("telemetry post failed", zap.String("type", ev.Type), zap.Error(err))
	}
}
