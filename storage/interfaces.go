package storage

import (
	"context"
	"time"

	"github.com/poiesic/recall/core"
)

// Repository provides common storage operations shared across all repositories.
// Implementations must be thread-safe and support concurrent access.
type Repository interface {
	// WithTransaction executes a function within a transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	// The context passed to fn may contain transaction state.
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// NoteRepository provides operations for managing note records.
type NoteRepository interface {
	Repository
	// AddNotes adds one or more note records to storage.
	// For records with ID=0, generates new IDs from sequence.
	// Sets InsertedAt timestamp if not already set.
	// Returns the records with generated IDs and timestamps populated.
	AddNotes(ctx context.Context, notes ...*core.NoteRecord) ([]*core.NoteRecord, error)

	// UpdateNotes updates existing note records.
	// Updates the UpdatedAt timestamp automatically.
	// Returns ErrNotFound if any record doesn't exist.
	UpdateNotes(ctx context.Context, notes ...*core.NoteRecord) ([]*core.NoteRecord, error)

	// DeleteNotes removes note records by their IDs.
	// Also removes associated indices.
	// Returns ErrNotFound if any record doesn't exist.
	DeleteNotes(ctx context.Context, ids ...core.ID) error

	// GetNote retrieves a single note record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetNote(ctx context.Context, id core.ID) (*core.NoteRecord, error)

	// GetNotes retrieves multiple note records by their IDs.
	// Returns only the records that exist (no error for missing records).
	GetNotes(ctx context.Context, ids ...core.ID) ([]*core.NoteRecord, error)

	// GetNotesByDateRange retrieves note records of the given type whose
	// interval overlaps [start, end], ordered by start time ascending.
	// A zero noteType matches all types.
	GetNotesByDateRange(ctx context.Context, start, end time.Time, noteType core.NoteType) ([]*core.NoteRecord, error)

	// FindNearest finds note records of the given type whose vectors are
	// closest to the query vector. Returns up to limit matches ordered by
	// distance ascending. A zero noteType matches all types. Records without
	// a vector are skipped.
	FindNearest(ctx context.Context, vector []float32, noteType core.NoteType, limit int) ([]*core.NoteMatch, error)

	// GetNotesByEntity retrieves IDs of note records referencing an entity,
	// paired with the strength of each reference.
	GetNotesByEntity(ctx context.Context, entityID core.ID) ([]*core.NoteEntityRef, error)

	// CountNotes returns the number of stored note records of the given type.
	// A zero noteType counts all types.
	CountNotes(ctx context.Context, noteType core.NoteType) (int, error)

	// IterateNotes visits every stored note record in key order.
	// Iteration stops when fn returns an error or the context is cancelled.
	IterateNotes(ctx context.Context, fn func(note *core.NoteRecord) error) error
}

// EntityRepository provides operations for managing entities.
type EntityRepository interface {
	Repository
	// AddEntities adds one or more entities to storage.
	// Uses content-based IDs (IDFromContent of the entity tuple).
	// Sets InsertedAt timestamp if not already set.
	// Returns the entities with timestamps populated.
	AddEntities(ctx context.Context, entities ...*core.EntityRecord) ([]*core.EntityRecord, error)

	// GetEntity retrieves a single entity by ID.
	// Returns ErrNotFound if the entity doesn't exist.
	GetEntity(ctx context.Context, id core.ID) (*core.EntityRecord, error)

	// GetEntities retrieves multiple entities by their IDs.
	// Returns only the entities that exist (no error for missing entities).
	GetEntities(ctx context.Context, ids ...core.ID) ([]*core.EntityRecord, error)

	// FindByName finds entities whose canonical name or any alias matches
	// name (case-insensitive). A non-empty entityType restricts the match
	// to that type.
	FindByName(ctx context.Context, name, entityType string) ([]*core.EntityRecord, error)

	// GetOrCreateEntity finds or creates an entity by name and type.
	// Thread-safe: handles concurrent creation attempts.
	GetOrCreateEntity(ctx context.Context, name, entityType string) (*core.EntityRecord, error)
}
