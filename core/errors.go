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

// Domain validation errors
var (
	// ErrInvalidNoteRecord indicates a NoteRecord failed validation.
	ErrInvalidNoteRecord = errors.New("invalid note record")

	// ErrInvalidEntityRecord indicates an EntityRecord failed validation.
	ErrInvalidEntityRecord = errors.New("invalid entity record")

	// ErrInvalidNoteType indicates an invalid NoteType value.
	ErrInvalidNoteType = errors.New("invalid note type")

	// ErrInvalidInterval indicates a record or range where start is after end.
	ErrInvalidInterval = errors.New("start must not be after end")

	// ErrEmptySummary indicates the payload Summary field is empty.
	ErrEmptySummary = errors.New("summary cannot be empty")

	// ErrEmptyEntityName indicates the entity CanonicalName field is empty.
	ErrEmptyEntityName = errors.New("entity name cannot be empty")

	// ErrEmptyEntityType indicates the entity Type field is empty.
	ErrEmptyEntityType = errors.New("entity type cannot be empty")

	// ErrInvalidStrength indicates an association strength outside [0,1].
	ErrInvalidStrength = errors.New("association strength must be in [0,1]")
)
