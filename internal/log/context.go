package log

import "context"

type ctxKey struct{}

func WithContext(ctx context.Context, l Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, l)
}

// FromContext never returns nil; without a logger in ctx it returns Nop.
func FromContext(ctx context.Context) Logger {
	if l, ok := ctx.Value(ctxKey{}).(Logger); ok && l != nil {
		return l
	}
	return Nop()
}

// WithFields stores the ctx logger extended with kv, for handlers that tag
// everything logged below them.
func WithFields(ctx context.Context, kv ...any) context.Context {
	return WithContext(ctx, FromContext(ctx).With(kv...))
}
