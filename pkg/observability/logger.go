package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"
)

const (
	attrTraceID = "trace_id"
	attrSpanID  = "span_id"
	attrService = "service"
	attrEnv     = "env"
	attrCommand = "command"
	attrVersion = "version"
)

type versionScopeKey struct{}

// versionScope names the corpus version a unit of work belongs to.
type versionScope struct {
	label string
	kind  string
}

// WithVersion returns a context that tags every record logged under it with
// the version label and its kind (reset or delta).
func WithVersion(ctx context.Context, label, kind string) context.Context {
	return context.WithValue(ctx, versionScopeKey{}, versionScope{label: label, kind: kind})
}

// TracingHandler is an [slog.Handler] that adds trace context (trace_id,
// span_id) and the version scope of the context to every record.
// Service attributes are attached once to the inner handler so groups
// added later do not nest them.
type TracingHandler struct {
	inner slog.Handler
}

// NewTracingHandler wraps inner with service metadata. Empty env and
// command values are omitted.
func NewTracingHandler(inner slog.Handler, service, env, command string) *TracingHandler {
	attrs := []slog.Attr{slog.String(attrService, service)}

	if command != "" {
		attrs = append(attrs, slog.String(attrCommand, command))
	}

	if env != "" {
		attrs = append(attrs, slog.String(attrEnv, env))
	}

	return &TracingHandler{inner: inner.WithAttrs(attrs)}
}

// Enabled delegates to the inner handler.
func (th *TracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return th.inner.Enabled(ctx, level)
}

// Handle enriches the record from ctx, then delegates.
func (th *TracingHandler) Handle(ctx context.Context, record slog.Record) error {
	if scope, ok := ctx.Value(versionScopeKey{}).(versionScope); ok {
		record.AddAttrs(slog.String(attrVersion, scope.label))

		if scope.kind != "" {
			record.AddAttrs(slog.String(attrKind, scope.kind))
		}
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		record.AddAttrs(
			slog.String(attrTraceID, sc.TraceID().String()),
			slog.String(attrSpanID, sc.SpanID().String()),
		)
	}

	err := th.inner.Handle(ctx, record)
	if err != nil {
		return fmt.Errorf("tracing handler: %w", err)
	}

	return nil
}

// WithAttrs returns a new TracingHandler with additional attributes on the inner handler.
func (th *TracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &TracingHandler{inner: th.inner.WithAttrs(attrs)}
}

// WithGroup returns a new TracingHandler with a group prefix on the inner handler.
func (th *TracingHandler) WithGroup(name string) slog.Handler {
	return &TracingHandler{inner: th.inner.WithGroup(name)}
}
