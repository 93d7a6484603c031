package logger

import (
	"context"
)

type contextKey struct{}

var logContextKey = contextKey{}

// LogContext holds call-scoped fields that *Ctx functions prepend to every
// record.
type LogContext struct {
	TraceID    string // OpenTelemetry trace ID
	SpanID     string // OpenTelemetry span ID
	ClientID   string // RPC client session id
	RemoteAddr string // peer address of the connection
	Program    uint32
	Version    uint32
}

// WithContext returns a new context with the given LogContext
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// WithTrace returns a copy with trace info set
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	if lc == nil {
		return &LogContext{TraceID: traceID, SpanID: spanID}
	}
	clone := *lc
	clone.TraceID = traceID
	clone.SpanID = spanID
	return &clone
}

func appendContextFields(ctx context.Context, args []any) []any {
	lc := FromContext(ctx)
	if lc == nil {
		return args
	}

	ctxArgs := make([]any, 0, 12+len(args))
	if lc.TraceID != "" {
		ctxArgs = append(ctxArgs, KeyTraceID, lc.TraceID)
	}
	if lc.SpanID != "" {
		ctxArgs = append(ctxArgs, KeySpanID, lc.SpanID)
	}
	if lc.ClientID != "" {
		ctxArgs = append(ctxArgs, KeyClientID, lc.ClientID)
	}
	if lc.RemoteAddr != "" {
		ctxArgs = append(ctxArgs, KeyAddress, lc.RemoteAddr)
	}
	if lc.Program != 0 {
		ctxArgs = append(ctxArgs, KeyProgram, lc.Program, KeyVersion, lc.Version)
	}

	return append(ctxArgs, args...)
}
