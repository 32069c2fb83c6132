package domain

import "context"

type idempotencyKeyCtx struct{}

// WithIdempotencyKey attaches the key a repository should send with a write,
// so retries of one payload are recognisable server-side.
func WithIdempotencyKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, idempotencyKeyCtx{}, key)
}

// IdempotencyKey returns the key attached by WithIdempotencyKey
func IdempotencyKey(ctx context.Context) (string, bool) {
	key, ok := ctx.Value(idempotencyKeyCtx{}).(string)
	return key, ok && key != ""
}
