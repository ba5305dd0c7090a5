package client

import (
	"context"
	"sync/atomic"

	"github.com/cespare/xxhash"

	"github.com/dan-strohschein/cdbms-driver/metrics"
	"github.com/dan-strohschein/cdbms-driver/protocol"
)

// ============================================================================
// LoggingHook - Logs command execution details
// ============================================================================

// LoggingHook logs every command with its trace ID. Command text is only
// logged when logCommands is set; otherwise an xxhash of it is logged so
// repeated commands can still be correlated.
type LoggingHook struct {
	logger       Logger
	logCommands  bool
	logDurations bool
}

// NewLoggingHook creates a new logging hook with the given logger.
func NewLoggingHook(logger Logger, logCommands, logDurations bool) *LoggingHook {
	return &LoggingHook{
		logger:       logger,
		logCommands:  logCommands,
		logDurations: logDurations,
	}
}

func (h *LoggingHook) Name() string {
	return "logging"
}

func (h *LoggingHook) commandFields(hookCtx *HookContext) []Field {
	fields := []Field{
		String("verb", hookCtx.Verb),
		String("trace_id", hookCtx.TraceID),
		Uint64("command_hash", xxhash.Sum64([]byte(hookCtx.Command))),
	}
	if hookCtx.Database != "" {
		fields = append(fields, String("database", hookCtx.Database))
	}
	if hookCtx.Table != "" {
		fields = append(fields, String("table", hookCtx.Table))
	}
	if h.logCommands {
		fields = append(fields, String("command", hookCtx.Command))
	}
	return fields
}

func (h *LoggingHook) Before(ctx context.Context, hookCtx *HookContext) error {
	h.logger.Debug("executing command", h.commandFields(hookCtx)...)
	return nil
}

func (h *LoggingHook) After(ctx context.Context, hookCtx *HookContext) error {
	fields := h.commandFields(hookCtx)
	if h.logDurations {
		fields = append(fields, Duration("duration", hookCtx.Duration))
	}

	if hookCtx.Error != nil {
		fields = append(fields, Error("error", hookCtx.Error))
		h.logger.Error("command failed", fields...)
		return nil
	}

	fields = append(fields, Int("response_bytes", len(hookCtx.Response)))
	if hookCtx.Status != nil {
		fields = append(fields, Int("status", int(*hookCtx.Status)))
	}
	if hookCtx.Verb == "get_index" || hookCtx.Verb == "get_exp" {
		fields = append(fields, Int("rows", hookCtx.Rows))
	}
	h.logger.Debug("command completed", fields...)
	return nil
}

// ============================================================================
// MetricsHook - Collects performance metrics
// ============================================================================

// MetricsHook counts commands with atomic counters and, when a collector is
// attached, forwards each observation to Prometheus.
type MetricsHook struct {
	TotalCommands   atomic.Uint64
	TotalMutations  atomic.Uint64
	TotalGets       atomic.Uint64
	TotalErrors     atomic.Uint64
	TotalRows       atomic.Uint64
	TotalDurationNs atomic.Uint64

	collector *metrics.Collector
}

// NewMetricsHook creates a new metrics collection hook. collector may be nil.
func NewMetricsHook(collector *metrics.Collector) *MetricsHook {
	return &MetricsHook{collector: collector}
}

func (h *MetricsHook) Name() string {
	return "metrics"
}

func (h *MetricsHook) Before(ctx context.Context, hookCtx *HookContext) error {
	return nil
}

func (h *MetricsHook) After(ctx context.Context, hookCtx *HookContext) error {
	h.TotalCommands.Add(1)
	h.TotalDurationNs.Add(uint64(hookCtx.Duration.Nanoseconds()))

	switch hookCtx.Verb {
	case "get_index", "get_exp":
		h.TotalGets.Add(1)
		h.TotalRows.Add(uint64(hookCtx.Rows))
	case "raw":
	default:
		h.TotalMutations.Add(1)
	}

	if hookCtx.Error != nil {
		h.TotalErrors.Add(1)
	}

	if h.collector != nil {
		h.collector.ObserveCommand(hookCtx.Verb, outcome(hookCtx.Error), hookCtx.Duration,
			len(hookCtx.Command)+1, len(hookCtx.Response))
		if hookCtx.Rows > 0 {
			h.collector.ObserveRows(hookCtx.Rows)
		}
	}
	return nil
}

func outcome(err error) string {
	if err == nil {
		return metrics.OutcomeOK
	}
	switch kindOf(err) {
	case protocol.KindTransport:
		return metrics.OutcomeTransport
	case protocol.KindProtocol:
		return metrics.OutcomeProtocol
	case protocol.KindCodec:
		return metrics.OutcomeCodec
	default:
		return metrics.OutcomeInvalid
	}
}

// GetStats returns current metrics as a map.
func (h *MetricsHook) GetStats() map[string]interface{} {
	totalCmds := h.TotalCommands.Load()
	totalDur := h.TotalDurationNs.Load()

	avgDuration := int64(0)
	if totalCmds > 0 {
		avgDuration = int64(totalDur / totalCmds)
	}

	return map[string]interface{}{
		"total_commands":    totalCmds,
		"total_mutations":   h.TotalMutations.Load(),
		"total_gets":        h.TotalGets.Load(),
		"total_errors":      h.TotalErrors.Load(),
		"total_rows":        h.TotalRows.Load(),
		"total_duration_ns": totalDur,
		"avg_duration_ns":   avgDuration,
		"avg_duration_ms":   float64(avgDuration) / 1_000_000,
	}
}

// Reset clears all metrics.
func (h *MetricsHook) Reset() {
	h.TotalCommands.Store(0)
	h.TotalMutations.Store(0)
	h.TotalGets.Store(0)
	h.TotalErrors.Store(0)
	h.TotalRows.Store(0)
	h.TotalDurationNs.Store(0)
}
