package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

func hourNote(summary string, start time.Time) *core.NoteRecord {
	return &core.NoteRecord{
		Type:    core.NoteTypeHour,
		Start:   start,
		End:     start.Add(time.Hour - time.Microsecond),
		Payload: core.NotePayload{Summary: summary},
	}
}

func dayNote(summary string, date time.Time) *core.NoteRecord {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	return &core.NoteRecord{
		Type:    core.NoteTypeDay,
		Start:   start,
		End:     start.Add(24*time.Hour - time.Microsecond),
		Payload: core.NotePayload{Summary: summary},
	}
}

func TestNoteRecordBasics(t *testing.T) {
	noteRepo, entityRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() {
		entityRepo.Close()
		noteRepo.Close()
		backend.Close()
	}()

	ctx := context.Background()

	note := hourNote("Reviewed the storage layer", time.Date(2026, time.January, 27, 9, 0, 0, 0, time.UTC))
	added, err := noteRepo.AddNotes(ctx, note)
	if err != nil {
		t.Fatalf("Failed to add note: %v", err)
	}

	if len(added) != 1 {
		t.Fatalf("Expected 1 note, got %d", len(added))
	}
	if added[0].Id == 0 {
		t.Fatal("Expected non-zero ID")
	}
	if added[0].InsertedAt.IsZero() {
		t.Fatal("Expected InsertedAt to be set")
	}

	retrieved, err := noteRepo.GetNote(ctx, added[0].Id)
	if err != nil {
		t.Fatalf("Failed to get note: %v", err)
	}
	if retrieved.Payload.Summary != "Reviewed the storage layer" {
		t.Fatalf("Unexpected summary: %q", retrieved.Payload.Summary)
	}
	if retrieved.Type != core.NoteTypeHour {
		t.Fatalf("Expected hourly note, got %v", retrieved.Type)
	}
}

func TestNoteRecordNotFound(t *testing.T) {
	noteRepo, entityRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repositories: %v", err)
	}
	defer func() { entityRepo.Close(); noteRepo.Close(); backend.Close() }()

	_, err = noteRepo.GetNote(context.Background(), core.ID(9999))
	if !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestNoteRecordDateRange(t *testing.T) {
	noteRepo, entityRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { entityRepo.Close(); noteRepo.Close(); backend.Close() }()

	ctx := context.Background()
	day := time.Date(2026, time.January, 27, 0, 0, 0, 0, time.UTC)

	notes := []*core.NoteRecord{
		hourNote("morning standup", day.Add(9*time.Hour)),
		hourNote("lunch walk", day.Add(12*time.Hour)),
		hourNote("deep work", day.Add(15*time.Hour)),
		dayNote("the whole day", day),
		hourNote("previous evening", day.Add(-6*time.Hour)),
	}
	if _, err := noteRepo.AddNotes(ctx, notes...); err != nil {
		t.Fatalf("Failed to add notes: %v", err)
	}

	// Hourly notes between 08:00 and 13:00
	results, err := noteRepo.GetNotesByDateRange(ctx, day.Add(8*time.Hour), day.Add(13*time.Hour), core.NoteTypeHour)
	if err != nil {
		t.Fatalf("Date range query failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Expected 2 hourly notes, got %d", len(results))
	}
	if results[0].Payload.Summary != "morning standup" {
		t.Fatalf("Expected results ordered by start, got %q first", results[0].Payload.Summary)
	}

	// The daily note overlaps any window within the day even though it
	// starts before the window.
	results, err = noteRepo.GetNotesByDateRange(ctx, day.Add(8*time.Hour), day.Add(13*time.Hour), core.NoteTypeDay)
	if err != nil {
		t.Fatalf("Date range query failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("Expected 1 daily note, got %d", len(results))
	}

	// Zero type matches all types
	results, err = noteRepo.GetNotesByDateRange(ctx, day, day.Add(24*time.Hour), 0)
	if err != nil {
		t.Fatalf("Date range query failed: %v", err)
	}
	if len(results) != 4 {
		t.Fatalf("Expected 4 notes, got %d", len(results))
	}

	// Inverted window is rejected
	if _, err := noteRepo.GetNotesByDateRange(ctx, day.Add(time.Hour), day, 0); !errors.Is(err, storage.ErrInvalidQuery) {
		t.Fatalf("Expected ErrInvalidQuery, got %v", err)
	}
}

func TestNoteRecordUpdate(t *testing.T) {
	noteRepo, entityRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { entityRepo.Close(); noteRepo.Close(); backend.Close() }()

	ctx := context.Background()
	start := time.Date(2026, time.January, 27, 9, 0, 0, 0, time.UTC)

	added, err := noteRepo.AddNotes(ctx, hourNote("draft", start))
	if err != nil {
		t.Fatalf("Failed to add note: %v", err)
	}

	note := added[0]
	note.Payload.Summary = "revised"
	newStart := start.Add(2 * time.Hour)
	note.Start = newStart
	note.End = newStart.Add(time.Hour - time.Microsecond)

	if _, err := noteRepo.UpdateNotes(ctx, note); err != nil {
		t.Fatalf("Failed to update note: %v", err)
	}

	// Old index slot is gone, new one works
	results, err := noteRepo.GetNotesByDateRange(ctx, start, start.Add(time.Hour), core.NoteTypeHour)
	if err != nil {
		t.Fatalf("Date range query failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Expected old index entry to be removed, got %d results", len(results))
	}

	results, err = noteRepo.GetNotesByDateRange(ctx, newStart, newStart.Add(time.Hour), core.NoteTypeHour)
	if err != nil {
		t.Fatalf("Date range query failed: %v", err)
	}
	if len(results) != 1 || results[0].Payload.Summary != "revised" {
		t.Fatalf("Expected revised note at new slot, got %v", results)
	}

	// Updating a missing note fails
	missing := hourNote("ghost", start)
	missing.Id = core.ID(424242)
	if _, err := noteRepo.UpdateNotes(ctx, missing); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}
}

func TestNoteRecordDelete(t *testing.T) {
	noteRepo, entityRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { entityRepo.Close(); noteRepo.Close(); backend.Close() }()

	ctx := context.Background()
	start := time.Date(2026, time.January, 27, 9, 0, 0, 0, time.UTC)

	added, err := noteRepo.AddNotes(ctx, hourNote("to be deleted", start))
	if err != nil {
		t.Fatalf("Failed to add note: %v", err)
	}

	if err := noteRepo.DeleteNotes(ctx, added[0].Id); err != nil {
		t.Fatalf("Failed to delete note: %v", err)
	}
	if _, err := noteRepo.GetNote(ctx, added[0].Id); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound after delete, got %v", err)
	}

	results, err := noteRepo.GetNotesByDateRange(ctx, start, start.Add(time.Hour), 0)
	if err != nil {
		t.Fatalf("Date range query failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("Expected empty index after delete, got %d results", len(results))
	}
}

func TestNoteEntityIndex(t *testing.T) {
	noteRepo, entityRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { entityRepo.Close(); noteRepo.Close(); backend.Close() }()

	ctx := context.Background()
	start := time.Date(2026, time.January, 27, 9, 0, 0, 0, time.UTC)

	entity, err := entityRepo.GetOrCreateEntity(ctx, "Dana", "person")
	if err != nil {
		t.Fatalf("Failed to create entity: %v", err)
	}

	note := hourNote("coffee with Dana", start)
	note.Entities = []core.EntityRef{{EntityId: entity.Id, Strength: 0.8}}
	other := hourNote("solo work", start.Add(time.Hour))

	if _, err := noteRepo.AddNotes(ctx, note, other); err != nil {
		t.Fatalf("Failed to add notes: %v", err)
	}

	refs, err := noteRepo.GetNotesByEntity(ctx, entity.Id)
	if err != nil {
		t.Fatalf("Entity query failed: %v", err)
	}
	if len(refs) != 1 {
		t.Fatalf("Expected 1 reference, got %d", len(refs))
	}
	if refs[0].NoteId != note.Id {
		t.Fatalf("Expected note %d, got %d", note.Id, refs[0].NoteId)
	}
	if refs[0].Strength != 0.8 {
		t.Fatalf("Expected strength 0.8, got %f", refs[0].Strength)
	}
}

func TestNoteCountAndIterate(t *testing.T) {
	noteRepo, entityRepo, backend, err := NewMemoryRepositories()
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}
	defer func() { entityRepo.Close(); noteRepo.Close(); backend.Close() }()

	ctx := context.Background()
	day := time.Date(2026, time.January, 27, 0, 0, 0, 0, time.UTC)

	notes := []*core.NoteRecord{
		hourNote("one", day.Add(9*time.Hour)),
		hourNote("two", day.Add(10*time.Hour)),
		dayNote("the day", day),
	}
	if _, err := noteRepo.AddNotes(ctx, notes...); err != nil {
		t.Fatalf("Failed to add notes: %v", err)
	}

	count, err := noteRepo.CountNotes(ctx, core.NoteTypeHour)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("Expected 2 hourly notes, got %d", count)
	}

	count, err = noteRepo.CountNotes(ctx, 0)
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if count != 3 {
		t.Fatalf("Expected 3 notes, got %d", count)
	}

	visited := 0
	err = noteRepo.IterateNotes(ctx, func(note *core.NoteRecord) error {
		visited++
		return nil
	})
	if err != nil {
		t.Fatalf("Iterate failed: %v", err)
	}
	if visited != 3 {
		t.Fatalf("Expected to visit 3 notes, got %d", visited)
	}
}
