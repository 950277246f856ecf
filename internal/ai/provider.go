// Package ai defines the completion provider consumed by the AI chat path and
// its two implementations: a remote OpenAI-compatible client and an offline
// knowledge-file provider. The service layer treats a provider as an opaque
// black box: one Complete call per chat turn, never retried.
package ai

import (
	"context"
	"fmt"
)

// Provider produces one assistant response for one prompt.
//
// Implementations must be safe for concurrent use and must honor the provided
// context for cancellation and timeouts.
type Provider interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ProviderError wraps an upstream failure so callers can attach the provider
// name without exposing raw transport detail to clients.
type ProviderError struct {
	Provider string
	Err      error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s provider: %v", e.Provider, e.Err)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error { return e.Err }
