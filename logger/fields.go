package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across tripline.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity
	FieldRunID        = "run_id"
	FieldExperimentID = "experiment_id"
	FieldModelName    = "model_name"
	FieldVersion      = "version"

	// Components
	FieldComponent = "component"
	FieldStage     = "stage"
	FieldSymbol    = "symbol"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError     = "error"
	FieldErrorKind = "error_kind"

	// Counts and sizes
	FieldCount      = "count"
	FieldSize       = "size"
	FieldTotalCount = "total_count"
	FieldRemoved    = "removed"
	FieldFeatures   = "features"
	FieldSamples    = "samples"

	// Model
	FieldIntercept = "intercept"

	// Files and paths
	FieldPath   = "path"
	FieldFormat = "format"

	// Memory
	FieldMemAvailable = "mem_available"
	FieldMemUsedPct   = "mem_used_pct"
)

type contextKey string

const (
	runIDKey     contextKey = "logger_run_id"
	componentKey contextKey = "logger_component"
)

// WithRunID adds a pipeline run ID to the context for logging
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, runID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if runID, ok := ctx.Value(runIDKey).(string); ok && runID != "" {
		fields = append(fields, FieldRunID, runID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns a logger with fields extracted from context.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	type Cleaner struct {
//	    logger *zap.SugaredLogger
//	}
//
//	func New(b Bounds) *Cleaner {
//	    return &Cleaner{logger: logger.ComponentLogger("clean")}
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// OrNop returns l, or a no-op logger when l is nil. Constructors accept a nil
// logger so tests and library callers can stay silent.
func OrNop(l *zap.SugaredLogger) *zap.SugaredLogger {
	if l == nil {
		return zap.NewNop().Sugar()
	}
	return l
}
