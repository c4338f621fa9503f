package elastic

import (
	"errors"
	"fmt"

	"github.com/poiesic/chassismatch/core"
)

var (
	// errRetryable marks responses worth another attempt (5xx, 429).
	errRetryable = errors.New("retryable response")

	// ErrBadResponse indicates the index answered with a body that could not
	// be decoded. It also matches core.ErrIndexUnavailable.
	ErrBadResponse = fmt.Errorf("%w: malformed search response", core.ErrIndexUnavailable)
)
