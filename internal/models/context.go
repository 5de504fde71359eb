package models

import "context"

type swapContextKey struct{}

// SwapContext carries the swap a signing or broadcast call belongs to, so
// bridges can tag the operation without changing the AccountBridge interface.
type SwapContext struct {
	SwapId   string
	Provider string
	RateId   string
}

// WithSwapContext attaches swap data to a context.
func WithSwapContext(ctx context.Context, sc *SwapContext) context.Context {
	return context.WithValue(ctx, swapContextKey{}, sc)
}

// GetSwapContext retrieves swap data from context, or nil if absent.
func GetSwapContext(ctx context.Context) *SwapContext {
	sc, _ := ctx.Value(swapContextKey{}).(*SwapContext)
	return sc
}
