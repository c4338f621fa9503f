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


// Package match finds the chassis records most similar to a target record.
//
// The Matcher supports two strategies, chosen explicitly by Mode:
//
// Progressive constraint relaxation (ModeRelaxation) turns every attribute
// of a Selection into an equality criterion on the target's value and asks
// the index for records matching all of them. While fewer candidates than
// requested have been found, the first removable criterion is dropped and
// the search repeated. Mandatory criteria are never dropped. Relaxation stops
// as soon as the quota is met or no removable criterion is left.
//
// Nearest-neighbour ranking (ModeNearestNeighbor) issues a single embedding
// query over the target's description and ranks what comes back.
//
// Both strategies score every candidate the same way: the fraction of the
// query's scoring attributes on which candidate and target hold exactly equal
// values. The scoring set is fixed for the whole query, so scores from
// different relaxation levels are comparable. Results exclude the target,
// contain each ID once (first seen wins) and are ordered by score with ties
// kept in discovery order.
package match
