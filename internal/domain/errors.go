package domain

import "errors"

var (
	// ErrInvalidInput signals a client-caused validation failure.
	ErrInvalidInput = errors.New("invalid input")
	// ErrServiceUnavailable signals that the service has not finished initialization.
	ErrServiceUnavailable = errors.New("service not initialized")
	// ErrEmbeddingUnavailable signals an embedding provider failure (error, timeout, malformed output).
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")
	// ErrStoreUnavailable signals a vector store failure (transport, auth or server error).
	ErrStoreUnavailable = errors.New("vector store unavailable")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
)
