package ports

import (
	"context"

	"github.com/simone-trubian/baldr/gatekeeper/internal/core/domain"
)

// FragmentStream is a one-shot, pull-based sequence of text fragments.
// Next blocks until the next fragment is available and returns false at the
// end of the stream; Err then reports a connection failure, if any.
type FragmentStream interface {
	Next() bool
	Fragment() string
	Err() error
	Close() error
}

// LLMPort defines the contract for external completion providers.
// Stream returns an error only when the stream could not be opened.
type LLMPort interface {
	Stream(ctx context.Context, req domain.CompletionRequest) (FragmentStream, error)
}
