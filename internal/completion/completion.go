// Package completion wraps the language-model provider behind a streaming
// interface with classified failures, so callers never inspect provider error
// strings.
package completion

import (
	"context"
	"errors"
	"fmt"

	"github.com/smartbotly/smartbotly/internal/models"
)

// Request describes one completion call.
type Request struct {
	SystemPrompt string
	Messages     []models.Message
	Temperature  float32
	MaxTokens    int
}

// Streamer produces a model completion incrementally. Fragments arrive on the
// first channel in generation order; at most one error is delivered on the
// second. Both channels are closed when the completion ends. The returned
// error covers failures before any token was produced.
type Streamer interface {
	StreamCompletion(ctx context.Context, req Request) (<-chan string, <-chan error, error)
}

// Kind classifies a provider failure.
type Kind int

const (
	KindUnavailable Kind = iota
	KindUnauthorized
	KindRateLimited
	KindQuotaExceeded
)

// Error is a classified provider failure.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("completion: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the failure kind, defaulting to KindUnavailable for errors
// that did not come from the provider wrapper.
func KindOf(err error) Kind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindUnavailable
}
