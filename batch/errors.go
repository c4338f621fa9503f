package batch

import "errors"

var (
	// ErrMatcherRequired is returned when a Runner is created without a matcher
	ErrMatcherRequired = errors.New("matcher is required")
	// ErrInvalidPoolSize is returned when PoolSize is <= 0
	ErrInvalidPoolSize = errors.New("pool size must be greater than 0")
	// ErrInvalidCount is returned when Count is <= 0
	ErrInvalidCount = errors.New("count must be greater than 0")
)
