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


// Package catalog defines the static attribute catalog used to compare
// chassis configurations.
//
// The catalog is split into three tiers. Top attributes describe the chassis
// layout in detail, broad attributes classify it coarsely, and extended
// attributes are only offered for extended searches:
//
//	default  = top ++ broad
//	extended = default ++ extra
//
// Order is significant. The matcher relaxes attributes starting from the
// first removable entry, so attributes listed earlier are given up first.
// The order below is fixed for a catalog Version and must not change
// within one.
package catalog
