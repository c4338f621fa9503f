package badger

import "errors"

var (
	// ErrBackendRequired is returned when a nil backend is passed to NewGateway.
	ErrBackendRequired = errors.New("badger backend is required")
	// ErrEmbedderRequired is returned by Reembed on a gateway without an embedder.
	ErrEmbedderRequired = errors.New("embedder is required")
	// ErrInvalidBatchSize is returned when a reembed batch size is <= 0.
	ErrInvalidBatchSize = errors.New("batch size must be greater than 0")
)
