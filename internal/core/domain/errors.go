package domain

import "errors"

// Sentinel errors. Adapters wrap them with %w so callers can branch with
// errors.Is regardless of which backend failed.
var (
	// ErrInvalidInput rejects a request before anything is written.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented marks a backend compiled out of this build, such as
	// ONNX without cgo.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType names a provider, index, cache or file format that
	// fintweet does not know.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrEmbeddingUnavailable means no vectors could be produced: the
	// provider is unconfigured, failed to start or did not answer. The core
	// fails the add or query and leaves retrying to the caller.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable means the index was closed or never opened.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrCollectionMismatch means the persisted collection was built with a
	// different metric or dimension and must be rebuilt.
	ErrCollectionMismatch = errors.New("collection mismatch")
)
