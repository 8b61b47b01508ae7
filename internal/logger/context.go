package logger

import (
	"context"
	"time"
)

// contextKey is a private type for context keys to avoid collisions.
type contextKey struct{}

// logContextKey is the key for LogContext in context.Context.
var logContextKey = contextKey{}

// LogContext holds request-scoped logging context threaded through a
// single Core operation: a resource lookup, an extension load, or an
// AppleEvent dispatch.
type LogContext struct {
	TraceID   string // OpenTelemetry trace ID
	SpanID    string // OpenTelemetry span ID
	Zone      string // Active Memory Manager zone name
	Operation string // Sub-operation label: "resource.get", "extension.load", "aevent.dispatch"
	RefNum    int    // Open resource file reference number, if relevant
	ExtRefNum int    // Extension registry reference number, if relevant
	EventClass string // AppleEvent class keyword, if relevant
	EventID    string // AppleEvent ID keyword, if relevant
	StartTime  time.Time // For duration calculation
}

// WithContext returns a new context with the given LogContext.
func WithContext(ctx context.Context, lc *LogContext) context.Context {
	return context.WithValue(ctx, logContextKey, lc)
}

// FromContext retrieves the LogContext from context, or nil if not present.
func FromContext(ctx context.Context) *LogContext {
	if ctx == nil {
		return nil
	}
	lc, _ := ctx.Value(logContextKey).(*LogContext)
	return lc
}

// NewLogContext creates a new LogContext for a Core operation scoped
// to zone.
func NewLogContext(zone string) *LogContext {
	return &LogContext{
		Zone:      zone,
		StartTime: time.Now(),
	}
}

// Clone creates a copy of the LogContext.
func (lc *LogContext) Clone() *LogContext {
	if lc == nil {
		return nil
	}
	clone := *lc
	return &clone
}

// WithOperation returns a copy with the operation label set.
func (lc *LogContext) WithOperation(op string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.Operation = op
	}
	return clone
}

// WithResFile returns a copy with the resource file reference number set.
func (lc *LogContext) WithResFile(refNum int) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.RefNum = refNum
	}
	return clone
}

// WithExtension returns a copy with the extension reference number set.
func (lc *LogContext) WithExtension(extRefNum int) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.ExtRefNum = extRefNum
	}
	return clone
}

// WithEvent returns a copy with the AppleEvent class/id set.
func (lc *LogContext) WithEvent(class, id string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.EventClass = class
		clone.EventID = id
	}
	return clone
}

// WithTrace returns a copy with trace info set.
func (lc *LogContext) WithTrace(traceID, spanID string) *LogContext {
	clone := lc.Clone()
	if clone != nil {
		clone.TraceID = traceID
		clone.SpanID = spanID
	}
	return clone
}

// DurationMs returns the duration since StartTime in milliseconds.
func (lc *LogContext) DurationMs() float64 {
	if lc == nil || lc.StartTime.IsZero() {
		return 0
	}
	return float64(time.Since(lc.StartTime).Microseconds()) / 1000.0
}
