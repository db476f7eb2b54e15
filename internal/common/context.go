package common

import (
	"context"
	"log/slog"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID  contextKey = "request_id"
	ContextKeyAnalysisID contextKey = "analysis_id"
	ContextKeyLogger     contextKey = "logger"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithAnalysisID adds an analysis ID to the context
func WithAnalysisID(ctx context.Context, analysisID string) context.Context {
	return context.WithValue(ctx, ContextKeyAnalysisID, analysisID)
}

// AnalysisIDFromContext extracts the analysis ID from context
func AnalysisIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(ContextKeyAnalysisID).(string); ok {
		return id
	}
	return ""
}

// WithLogger stores a request-scoped logger in the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ContextKeyLogger, logger)
}

// LoggerFromContext returns the request-scoped logger, or fallback when none
// was stored. The returned logger carries the analysis id when present.
func LoggerFromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	logger, ok := ctx.Value(ContextKeyLogger).(*slog.Logger)
	if !ok || logger == nil {
		logger = fallback
	}
	if logger == nil {
		logger = slog.Default()
	}
	if id := AnalysisIDFromContext(ctx); id != "" {
		logger = logger.With("analysis_id", id)
	}
	return logger
}
