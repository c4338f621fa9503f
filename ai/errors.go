package ai

import "errors"

var (
	// ErrInvalidConfig indicates an incomplete embedding configuration.
	ErrInvalidConfig = errors.New("invalid ai config")

	// ErrEmptyText indicates a blank text was submitted for embedding.
	ErrEmptyText = errors.New("cannot embed empty text")

	// ErrVectorCount indicates the service returned a different number of
	// vectors than texts submitted.
	ErrVectorCount = errors.New("embedding count mismatch")
)
