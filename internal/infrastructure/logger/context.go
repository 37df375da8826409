package logger

import (
	"context"

	"go.uber.org/zap"
)

type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// PONumberKey is the context key for the purchase order being worked on
	PONumberKey contextKey = "po_number"

	loggerKey contextKey = "logger"
)

// WithContext stores a logger in the context
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, falling back to a no-op
// logger when none was stored
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID adds the request ID to the context and returns an enriched logger
func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, RequestIDKey, requestID)
	enriched := logger.With(zap.String("request_id", requestID))
	return WithContext(ctx, enriched), enriched
}

// WithPONumber adds the purchase order number to the context and returns an
// enriched logger, so every log line of a processing run carries the order
func WithPONumber(ctx context.Context, logger *zap.Logger, poNumber string) (context.Context, *zap.Logger) {
	ctx = context.WithValue(ctx, PONumberKey, poNumber)
	enriched := logger.With(zap.String("po_number", poNumber))
	return WithContext(ctx, enriched), enriched
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		return requestID
	}
	return ""
}

// GetPONumber retrieves the purchase order number from context
func GetPONumber(ctx context.Context) string {
	if poNumber, ok := ctx.Value(PONumberKey).(string); ok {
		return poNumber
	}
	return ""
}
