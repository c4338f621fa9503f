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


package match

import "errors"

var (
	// ErrGatewayRequired is returned when no index gateway is provided.
	ErrGatewayRequired = errors.New("index gateway required")

	// ErrInvalidCount is returned when fewer than one result is requested.
	ErrInvalidCount = errors.New("count must be at least 1")

	// ErrInvalidNeighborCount is returned for a non-positive neighbour K.
	ErrInvalidNeighborCount = errors.New("neighbor count must be at least 1")

	// ErrUnknownMode is returned for a Mode outside the defined strategies.
	ErrUnknownMode = errors.New("unknown match mode")

	// ErrSelectionUnsupported is returned when a custom selection is passed
	// to nearest-neighbour matching, which always scores the default catalog.
	ErrSelectionUnsupported = errors.New("nearest-neighbour matching does not accept an attribute selection")
)
