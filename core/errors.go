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


package core

import "errors"

// Index lookup errors
var (
	// ErrNotFound indicates the target ID resolved to zero index hits.
	ErrNotFound = errors.New("record not found")

	// ErrAmbiguousResult indicates the target ID resolved to more than one hit.
	// The identifier field is unique, so this is an index integrity fault.
	ErrAmbiguousResult = errors.New("ambiguous result: identifier matched more than one record")

	// ErrIndexUnavailable indicates a transport or availability failure of the index.
	ErrIndexUnavailable = errors.New("index unavailable")
)

// Domain validation errors
var (
	// ErrInvalidRecord indicates a Record failed validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrInvalidDescriptor indicates an AttributeDescriptor failed validation.
	ErrInvalidDescriptor = errors.New("invalid attribute descriptor")

	// ErrEmptyID indicates the record identifier is empty.
	ErrEmptyID = errors.New("record ID cannot be empty")

	// ErrEmptyAttributeName indicates a descriptor has no name.
	ErrEmptyAttributeName = errors.New("attribute name cannot be empty")

	// ErrReservedAttribute indicates a descriptor names a reserved field.
	ErrReservedAttribute = errors.New("attribute name is reserved")

	// ErrDuplicateAttribute indicates a selection names the same attribute twice.
	ErrDuplicateAttribute = errors.New("duplicate attribute")
)
