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


// Package index defines the port through which the matcher reaches a chassis
// search index.
//
// A Gateway offers three capabilities: fetch one record by its unique ID,
// run a boolean AND search over attribute equality criteria and report the
// hit count before the results are consumed, and optionally (through
// NeighborSearcher) a nearest-neighbour query over precomputed embeddings.
//
// Adapters live in subpackages:
//
//   - index/elastic: a remote Elasticsearch index
//   - index/badger: a local BadgerDB snapshot of the catalog
//   - index/cache: a Redis read-through cache wrapping any Gateway
//
// Query strings are built only through Clause and Compose so escaping
// is handled in one place.
package index
