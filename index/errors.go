// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package index

import "errors"

var (
	// ErrNeighborsUnsupported indicates the gateway cannot run nearest-neighbour queries.
	ErrNeighborsUnsupported = errors.New("nearest-neighbour search not supported")

	// ErrInvalidQuery indicates a criterion cannot be rendered as a query clause.
	ErrInvalidQuery = errors.New("invalid query")

	// ErrCursorConsumed indicates a ResultSet was iterated more than once.
	ErrCursorConsumed = errors.New("result set already consumed")

	// ErrInvalidMaxAttempts indicates maxAttempts was zero or negative.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrSerializationFailed indicates a record could not be decoded.
	ErrSerializationFailed = errors.New("serialization failed")
)
