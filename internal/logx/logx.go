package logx

import (
	"context"

	"pkt.systems/ailimit/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	providerKey contextKey = iota
	loggerKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// ContextWithLogger attaches log to the context and marks it as explicitly
// chosen, so HasLogger can tell it apart from pslog's fallback logger.
func ContextWithLogger(ctx context.Context, log pslog.Logger) context.Context {
	if ctx == nil || log == nil {
		return ctx
	}
	ctx = pslog.ContextWithLogger(ctx, log)
	return context.WithValue(ctx, loggerKey, true)
}

// HasLogger reports whether a logger was attached with ContextWithLogger.
func HasLogger(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	marked, _ := ctx.Value(loggerKey).(bool)
	return marked
}

// WithProvider annotates the logger with the provider id unless the context
// already carries it.
func WithProvider(ctx context.Context, provider schema.ProviderID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if provider != "" {
		if current, ok := ctx.Value(providerKey).(schema.ProviderID); ok && current == provider {
			return log
		}
		log = log.With("provider", provider)
	}
	return log
}

// WithStep annotates the logger with a script step name when available.
func WithStep(log pslog.Logger, step string) pslog.Logger {
	if step != "" {
		log = log.With("step", step)
	}
	return log
}

// ContextWithProvider stores the provider marker on the context for log de-duplication.
func ContextWithProvider(ctx context.Context, provider schema.ProviderID) context.Context {
	if ctx == nil || provider == "" {
		return ctx
	}
	return context.WithValue(ctx, providerKey, provider)
}

// ContextWithProviderLogger attaches a provider-annotated logger and the
// provider marker to the context.
func ContextWithProviderLogger(ctx context.Context, provider schema.ProviderID) context.Context {
	log := WithProvider(ctx, provider)
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithProvider(ctx, provider)
}

// ProviderFromContext returns the provider marker, if any.
func ProviderFromContext(ctx context.Context) (schema.ProviderID, bool) {
	if ctx == nil {
		return "", false
	}
	p, ok := ctx.Value(providerKey).(schema.ProviderID)
	return p, ok && p != ""
}
