package logger

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	tenantIDKey  contextKey = "tenant_id"
	operationKey contextKey = "operation"
)

// WithContext returns a new context with the logger attached
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext retrieves the logger from context, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return zap.NewNop()
}

// WithTenant records the tenant a unit of work runs for
func WithTenant(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

// TenantFromContext returns the tenant recorded in ctx, if any
func TenantFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(tenantIDKey).(uuid.UUID)
	return id, ok && id != uuid.Nil
}

// WithOperation records the use case name, e.g. "sale.create"
func WithOperation(ctx context.Context, operation string) context.Context {
	return context.WithValue(ctx, operationKey, operation)
}

// OperationFromContext returns the use case name recorded in ctx
func OperationFromContext(ctx context.Context) string {
	op, _ := ctx.Value(operationKey).(string)
	return op
}

// Fields returns the correlation fields carried by ctx: tenant, operation,
// and trace/span ids when an OpenTelemetry span is active.
func Fields(ctx context.Context) []zap.Field {
	var fields []zap.Field
	if tenantID, ok := TenantFromContext(ctx); ok {
		fields = append(fields, zap.String("tenant_id", tenantID.String()))
	}
	if op := OperationFromContext(ctx); op != "" {
		fields = append(fields, zap.String("operation", op))
	}
	if spanCtx := trace.SpanContextFromContext(ctx); spanCtx.IsValid() {
		fields = append(fields,
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return fields
}

// For returns base enriched with the correlation fields of ctx.
// Usage: logger.For(ctx, s.logger).Info("Sale created", zap.String("number", n))
func For(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = FromContext(ctx)
	}
	fields := Fields(ctx)
	if len(fields) == 0 {
		return base
	}
	return base.With(fields...)
}

// L returns the context's logger enriched with its correlation fields
func L(ctx context.Context) *zap.Logger {
	return For(ctx, FromContext(ctx))
}
