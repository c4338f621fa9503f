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


package elastic

import (
	"errors"
	"time"
)

// Config describes how to reach the chassis index.
type Config struct {
	// Addresses lists the cluster nodes, e.g. "http://localhost:9200".
	Addresses []string
	Username  string
	Password  string
	APIKey    string

	// Index is the name of the chassis index.
	Index string

	// IDField holds the unique chassis identifier. It must be mapped as a
	// keyword so term lookups match exactly.
	IDField string

	// EmbeddingField holds the dense_vector of the description embedding.
	EmbeddingField string

	// PageSize is the number of hits fetched per search request.
	PageSize int

	// MaxResultWindow caps from+size, matching the index setting of the same name.
	MaxResultWindow int

	// MaxRetries is the number of attempts for a failing request.
	MaxRetries int

	// RetryDelay is the base backoff between attempts. It doubles on every retry.
	RetryDelay time.Duration
}

// DefaultConfig returns a Config for a local single-node cluster.
func DefaultConfig() Config {
	return Config{
		Addresses:       []string{"http://localhost:9200"},
		Index:           "chassis",
		IDField:         "ID",
		EmbeddingField:  "embedding",
		PageSize:        100,
		MaxResultWindow: 10000,
		MaxRetries:      3,
		RetryDelay:      500 * time.Millisecond,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.IDField == "" {
		c.IDField = def.IDField
	}
	if c.EmbeddingField == "" {
		c.EmbeddingField = def.EmbeddingField
	}
	if c.PageSize == 0 {
		c.PageSize = def.PageSize
	}
	if c.MaxResultWindow == 0 {
		c.MaxResultWindow = def.MaxResultWindow
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = def.MaxRetries
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = def.RetryDelay
	}
	return c
}

// Validate checks that the configuration is complete.
func (c Config) Validate() error {
	if len(c.Addresses) == 0 {
		return errors.New("elastic config: at least one address is required")
	}
	if c.Index == "" {
		return errors.New("elastic config: Index is required")
	}
	if c.PageSize < 1 {
		return errors.New("elastic config: PageSize must be positive")
	}
	if c.MaxResultWindow < c.PageSize {
		return errors.New("elastic config: MaxResultWindow must be at least PageSize")
	}
	if c.MaxRetries < 1 {
		return errors.New("elastic config: MaxRetries must be positive")
	}
	return nil
}
