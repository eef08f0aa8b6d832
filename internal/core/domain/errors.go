package domain

import "errors"

var (
	// ErrOutOfScope is returned when the admission filter rejects a prompt.
	ErrOutOfScope = errors.New("out of scope")

	// ErrUpstreamConnect covers failures before streaming begins: the
	// endpoint is unreachable or answered with a non-success status.
	ErrUpstreamConnect = errors.New("upstream connect failure")

	// ErrUpstreamTimeout is returned when the endpoint is too slow to answer
	// or stalls mid-stream.
	ErrUpstreamTimeout = errors.New("upstream timeout")
)
