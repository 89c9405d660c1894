package lexical

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	idx, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func testNote(id core.ID, summary string, categories ...string) *core.NoteRecord {
	start := time.Date(2026, time.January, 27, 9, 0, 0, 0, time.UTC)
	return &core.NoteRecord{
		Id:         id,
		Type:       core.NoteTypeHour,
		Start:      start,
		End:        start.Add(time.Hour),
		Payload:    core.NotePayload{Summary: summary, Categories: categories},
		InsertedAt: start,
		UpdatedAt:  start,
	}
}

func TestIndexSearch(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, testNote(1, "debugged the payment gateway timeout", "work")))
	require.NoError(t, idx.Upsert(ctx, testNote(2, "planted tomatoes in the garden", "home")))
	require.NoError(t, idx.Upsert(ctx, testNote(3, "payment reconciliation meeting", "work")))

	hits, err := idx.Search(ctx, "payment", 0, 10)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, h := range hits {
		assert.Greater(t, h.Score, float32(0))
		assert.LessOrEqual(t, h.Score, float32(1))
		assert.NotEqual(t, core.ID(2), h.NoteID)
	}

	// BM25 rank is lower-is-better; hits come back best first
	if len(hits) == 2 {
		assert.LessOrEqual(t, hits[0].Raw, hits[1].Raw)
		assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
	}
}

func TestIndexSearch_ORSemantics(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, testNote(1, "walked along the harbor")))
	require.NoError(t, idx.Upsert(ctx, testNote(2, "read about distributed consensus")))

	// A note matching any query word is a candidate
	hits, err := idx.Search(ctx, "harbor consensus", 0, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestIndexSearch_ReservedCharacters(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, testNote(1, "fixed the parser bug")))

	// Operator characters must not produce a syntax error
	hits, err := idx.Search(ctx, `parser "bug" (urgent) *`, 0, 10)
	require.NoError(t, err)
	assert.NotEmpty(t, hits)

	// A query that sanitizes away entirely yields no hits and no error
	hits, err = idx.Search(ctx, `"" () **`, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndexSearch_TypeFilter(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	hourly := testNote(1, "reviewed the quarterly report")
	daily := testNote(2, "a day of quarterly reviews")
	daily.Type = core.NoteTypeDay

	require.NoError(t, idx.Upsert(ctx, hourly))
	require.NoError(t, idx.Upsert(ctx, daily))

	hits, err := idx.Search(ctx, "quarterly", core.NoteTypeDay, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, core.ID(2), hits[0].NoteID)
}

func TestIndexUpsertReplaces(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, testNote(1, "original wording about kayaking")))
	require.NoError(t, idx.Upsert(ctx, testNote(1, "revised wording about cycling")))

	hits, err := idx.Search(ctx, "kayaking", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)

	hits, err = idx.Search(ctx, "cycling", 0, 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, core.ID(1), hits[0].NoteID)

	stats, err := idx.Stats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
}

func TestIndexDelete(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, testNote(1, "a note to delete")))
	require.NoError(t, idx.Delete(ctx, core.ID(1)))
	require.NoError(t, idx.Delete(ctx, core.ID(99))) // unindexed: no-op

	hits, err := idx.Search(ctx, "delete", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestIndexReindexAll(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	noteRepo, entityRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { entityRepo.Close(); noteRepo.Close(); backend.Close() }()

	start := time.Date(2026, time.January, 27, 9, 0, 0, 0, time.UTC)
	notes := []*core.NoteRecord{
		{Type: core.NoteTypeHour, Start: start, End: start.Add(time.Hour), Payload: core.NotePayload{Summary: "wrote the migration plan"}},
		{Type: core.NoteTypeHour, Start: start.Add(time.Hour), End: start.Add(2 * time.Hour), Payload: core.NotePayload{Summary: "ran the migration"}},
	}
	_, err = noteRepo.AddNotes(ctx, notes...)
	require.NoError(t, err)

	// Stale entry from a note no longer in the store
	require.NoError(t, idx.Upsert(ctx, testNote(999, "stale entry about migration")))

	indexed, err := idx.ReindexAll(ctx, noteRepo)
	require.NoError(t, err)
	assert.Equal(t, 2, indexed)

	hits, err := idx.Search(ctx, "migration", 0, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	for _, h := range hits {
		assert.NotEqual(t, core.ID(999), h.NoteID)
	}
}

func TestIndexStats_Coverage(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	noteRepo, entityRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { entityRepo.Close(); noteRepo.Close(); backend.Close() }()

	start := time.Date(2026, time.January, 27, 9, 0, 0, 0, time.UTC)
	notes := []*core.NoteRecord{
		{Type: core.NoteTypeHour, Start: start, End: start.Add(time.Hour), Payload: core.NotePayload{Summary: "wrote release notes"}},
		{Type: core.NoteTypeHour, Start: start.Add(time.Hour), End: start.Add(2 * time.Hour), Payload: core.NotePayload{Summary: "shipped the release"}},
	}
	added, err := noteRepo.AddNotes(ctx, notes...)
	require.NoError(t, err)

	// Only one of the two stored notes is indexed
	require.NoError(t, idx.Upsert(ctx, added[0]))

	stats, err := idx.Stats(ctx, noteRepo)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
	assert.InDelta(t, 0.5, stats.Coverage, 1e-9)

	// Without a repository coverage is not computed
	stats, err = idx.Stats(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Entries)
	assert.Zero(t, stats.Coverage)

	// An empty store yields zero coverage, not a division error
	empty, err := Open(":memory:")
	require.NoError(t, err)
	defer empty.Close()
	emptyRepo, emptyEntityRepo, emptyBackend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { emptyEntityRepo.Close(); emptyRepo.Close(); emptyBackend.Close() }()
	stats, err = empty.Stats(ctx, emptyRepo)
	require.NoError(t, err)
	assert.Zero(t, stats.Entries)
	assert.Zero(t, stats.Coverage)
}

func TestIndexClosed(t *testing.T) {
	idx, err := Open(":memory:")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, testNote(1, "still open")))
	require.NoError(t, idx.Close())

	assert.ErrorIs(t, idx.Upsert(ctx, testNote(2, "after close")), ErrIndexClosed)
	assert.ErrorIs(t, idx.Delete(ctx, core.ID(1)), ErrIndexClosed)

	_, err = idx.Search(ctx, "open", 0, 10)
	assert.ErrorIs(t, err, ErrIndexClosed)

	_, err = idx.Stats(ctx, nil)
	assert.ErrorIs(t, err, ErrIndexClosed)

	_, err = idx.ReindexAll(ctx, nil)
	assert.ErrorIs(t, err, ErrIndexClosed)
}

func TestBuildMatchQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"single term", "payment", `"payment"`},
		{"multiple terms", "payment gateway", `"payment" OR "gateway"`},
		{"reserved characters stripped", `pay*ment (now)`, `"pay ment" OR "now"`},
		{"empty", "", ""},
		{"only operators", `() * "`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, buildMatchQuery(tt.query))
		})
	}
}
