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


package badger

import (
	"context"

	"github.com/poiesic/chassismatch/core"
)

// NewMemoryGateway creates an in-memory gateway for testing, preloaded
// with records. Caller must close the gateway when done.
func NewMemoryGateway(records []*core.Record, opts ...Option) (*Gateway, error) {
	backend, err := OpenBackend("")
	if err != nil {
		return nil, err
	}

	g, err := NewGateway(backend, opts...)
	if err != nil {
		backend.Close()
		return nil, err
	}

	if len(records) > 0 {
		if err := g.PutRecords(context.Background(), records...); err != nil {
			g.Close()
			return nil, err
		}
	}
	return g, nil
}
