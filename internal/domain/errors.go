package domain

import "errors"

var (
	// ErrInvalidRequest signals malformed or incomplete caller input.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrVectorDimMismatch signals an embedding dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrStoreUnavailable signals that the document store is unreachable.
	ErrStoreUnavailable = errors.New("document store unavailable")
	// ErrModelProviderError signals a model provider failure.
	ErrModelProviderError = errors.New("model provider error")
	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
)
