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

import "fmt"

// ValidateNoteRecord validates a NoteRecord according to domain rules.
//
// Validation rules:
//   - Type must be hour or day
//   - Start must not be after End
//   - Payload Summary must not be empty
//   - Entity association strengths must be in [0,1]
//
// NOT validated (populated elsewhere):
//   - Vector (can be empty until the ingestion side embeds the note)
//   - ID (0 is valid from database sequences)
func ValidateNoteRecord(note *NoteRecord) error {
	if note == nil {
		return fmt.Errorf("%w: note is nil", ErrInvalidNoteRecord)
	}

	if err := ValidateNoteType(note.Type); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidNoteRecord, err)
	}

	if note.Start.After(note.End) {
		return fmt.Errorf("%w: %w", ErrInvalidNoteRecord, ErrInvalidInterval)
	}

	if note.Payload.Summary == "" {
		return fmt.Errorf("%w: %w", ErrInvalidNoteRecord, ErrEmptySummary)
	}

	for _, ref := range note.Entities {
		if ref.Strength < 0 || ref.Strength > 1 {
			return fmt.Errorf("%w: %w", ErrInvalidNoteRecord, ErrInvalidStrength)
		}
	}

	return nil
}

// ValidateEntityRecord validates an EntityRecord according to domain rules.
//
// Validation rules:
//   - CanonicalName must not be empty
//   - Type must not be empty
//
// ID is not validated: 0 means "derive from content".
func ValidateEntityRecord(entity *EntityRecord) error {
	if entity == nil {
		return fmt.Errorf("%w: entity is nil", ErrInvalidEntityRecord)
	}

	if entity.CanonicalName == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntityRecord, ErrEmptyEntityName)
	}

	if entity.Type == "" {
		return fmt.Errorf("%w: %w", ErrInvalidEntityRecord, ErrEmptyEntityType)
	}

	return nil
}

// ValidateNoteType validates that a NoteType has a valid value.
func ValidateNoteType(t NoteType) error {
	switch t {
	case NoteTypeHour, NoteTypeDay:
		return nil
	default:
		return fmt.Errorf("%w: %d", ErrInvalidNoteType, t)
	}
}

// ValidateTimeRange validates that a TimeRange holds its ordering invariant.
func ValidateTimeRange(r *TimeRange) error {
	if r == nil {
		return nil
	}
	if r.Start.After(r.End) {
		return ErrInvalidInterval
	}
	return nil
}
