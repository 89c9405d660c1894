package storage

import (
	"testing"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalID(t *testing.T) {
	tests := []struct {
		name string
		id   core.ID
	}{
		{"zero ID", core.ID(0)},
		{"small ID", core.ID(42)},
		{"large ID", core.ID(18446744073709551615)}, // max uint64
		{"content-based ID", core.IDFromContent("(person,Dana)")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalID(tt.id)
			require.NotNil(t, data)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalID(data)
			require.NoError(t, err)
			assert.Equal(t, tt.id, decoded)
		})
	}
}

func TestUnmarshalID_Invalid(t *testing.T) {
	_, err := UnmarshalID([]byte{})
	assert.Error(t, err)
}

func TestMarshalUnmarshalNoteRecord(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)
	start := time.Date(2026, time.January, 27, 9, 0, 0, 0, time.UTC)
	end := time.Date(2026, time.January, 27, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		note *core.NoteRecord
	}{
		{
			name: "minimal hourly note",
			note: &core.NoteRecord{
				Id:         core.ID(1),
				Type:       core.NoteTypeHour,
				Start:      start,
				End:        end,
				Payload:    core.NotePayload{Summary: "Reviewed the indexing pipeline"},
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
		{
			name: "daily note with payload lists",
			note: &core.NoteRecord{
				Id:    core.ID(2),
				Type:  core.NoteTypeDay,
				Start: start,
				End:   start.Add(24*time.Hour - time.Nanosecond).Truncate(time.Microsecond),
				Payload: core.NotePayload{
					Summary:    "Spent the day on storage work",
					Categories: []string{"work", "engineering"},
					Entities:   []string{"Dana", "badger"},
					Activities: []string{"code review", "pairing"},
				},
				FileRef:    "2026/01/27/day.md",
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
		{
			name: "note with entity refs",
			note: &core.NoteRecord{
				Id:      core.ID(3),
				Type:    core.NoteTypeHour,
				Start:   start,
				End:     end,
				Payload: core.NotePayload{Summary: "Lunch with Dana"},
				Entities: []core.EntityRef{
					{EntityId: core.ID(10), Strength: 0.9},
					{EntityId: core.ID(20), Strength: 0.25},
				},
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
		{
			name: "note with vector",
			note: &core.NoteRecord{
				Id:         core.ID(4),
				Type:       core.NoteTypeHour,
				Start:      start,
				End:        end,
				Payload:    core.NotePayload{Summary: "embedded"},
				Vector:     []float32{0.1, 0.2, 0.3, 0.4, 0.5},
				InsertedAt: now,
				UpdatedAt:  now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalNoteRecord(tt.note)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalNoteRecord(data)
			require.NoError(t, err)

			assert.Equal(t, tt.note.Id, decoded.Id)
			assert.Equal(t, tt.note.Type, decoded.Type)
			assert.True(t, decoded.Start.Equal(tt.note.Start.Truncate(time.Microsecond)))
			assert.True(t, decoded.End.Equal(tt.note.End.Truncate(time.Microsecond)))
			assert.Equal(t, tt.note.FileRef, decoded.FileRef)
			assert.Equal(t, tt.note.Payload.Summary, decoded.Payload.Summary)
			assert.ElementsMatch(t, tt.note.Payload.Categories, decoded.Payload.Categories)
			assert.ElementsMatch(t, tt.note.Payload.Entities, decoded.Payload.Entities)
			assert.ElementsMatch(t, tt.note.Payload.Activities, decoded.Payload.Activities)
			assert.Equal(t, tt.note.Entities, decoded.Entities)
			assert.Equal(t, tt.note.Vector, decoded.Vector)
			assert.True(t, decoded.InsertedAt.Equal(tt.note.InsertedAt))
			assert.True(t, decoded.UpdatedAt.Equal(tt.note.UpdatedAt))
		})
	}
}

func TestUnmarshalNoteRecord_Truncated(t *testing.T) {
	note := &core.NoteRecord{
		Id:      core.ID(7),
		Type:    core.NoteTypeHour,
		Start:   time.Now().UTC(),
		End:     time.Now().UTC(),
		Payload: core.NotePayload{Summary: "to be truncated"},
	}
	data := MarshalNoteRecord(note)

	_, err := UnmarshalNoteRecord(data[:len(data)/2])
	assert.Error(t, err)
}

func TestMarshalUnmarshalEntityRecord(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Microsecond)

	tests := []struct {
		name   string
		entity *core.EntityRecord
	}{
		{
			name: "minimal entity",
			entity: &core.EntityRecord{
				Id:            core.IDFromContent("(person,Dana)"),
				Type:          "person",
				CanonicalName: "Dana",
				InsertedAt:    now,
				UpdatedAt:     now,
			},
		},
		{
			name: "entity with aliases",
			entity: &core.EntityRecord{
				Id:            core.IDFromContent("(project,recall)"),
				Type:          "project",
				CanonicalName: "recall",
				Aliases:       []string{"the retrieval engine", "recall-ng"},
				InsertedAt:    now,
				UpdatedAt:     now,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := MarshalEntityRecord(tt.entity)
			require.NotEmpty(t, data)

			decoded, err := UnmarshalEntityRecord(data)
			require.NoError(t, err)

			assert.Equal(t, tt.entity.Id, decoded.Id)
			assert.Equal(t, tt.entity.Type, decoded.Type)
			assert.Equal(t, tt.entity.CanonicalName, decoded.CanonicalName)
			assert.Equal(t, tt.entity.Aliases, decoded.Aliases)
			assert.True(t, decoded.InsertedAt.Equal(tt.entity.InsertedAt))
			assert.True(t, decoded.UpdatedAt.Equal(tt.entity.UpdatedAt))
		})
	}
}
