// Package perception wraps the text-completion backends. Each provider
// client turns a built prompt into raw completion text; everything past that
// point (parsing, fallback) belongs to the articulation layer.
package perception

import (
	"context"
	"errors"
	"time"
)

// LLMClient is the minimal interface the pipeline uses to call a
// text-completion backend.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ErrAPIKeyMissing is returned when no backend credential is configured.
// Callers can distinguish this from transient backend failures.
var ErrAPIKeyMissing = errors.New("API key not configured")

// backoff returns the sleep before retry attempt i (1-based): 1s, 2s, 4s.
func backoff(i int) time.Duration {
	return time.Duration(1<<uint(i-1)) * time.Second
}

// withDefaultTimeout applies d as the context deadline when the caller did
// not set one, so a hung backend cannot stall the batch indefinitely.
func withDefaultTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
