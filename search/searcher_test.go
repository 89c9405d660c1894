package search

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/lexical"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testFixture bundles the stores a searcher needs, all in-memory.
type testFixture struct {
	noteRepo   storage.NoteRepository
	entityRepo storage.EntityRepository
	backend    *badger.Backend
	index      *lexical.Index
	embedder   *mock.MockEmbedder
	searcher   *Searcher
}

func newTestFixture(t *testing.T, opts ...Option) *testFixture {
	t.Helper()

	noteRepo, entityRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)

	index, err := lexical.Open(":memory:")
	require.NoError(t, err)

	embedder := mock.NewMockEmbedder()
	provider := mock.NewMockProviderWithEmbedder(embedder)

	opts = append([]Option{WithLexicalIndex(index)}, opts...)
	searcher, err := NewSearcher(noteRepo, entityRepo, provider, opts...)
	require.NoError(t, err)

	t.Cleanup(func() {
		searcher.Close()
		index.Close()
		entityRepo.Close()
		noteRepo.Close()
		backend.Close()
	})

	return &testFixture{
		noteRepo:   noteRepo,
		entityRepo: entityRepo,
		backend:    backend,
		index:      index,
		embedder:   embedder,
		searcher:   searcher,
	}
}

// addNote stores a note and mirrors it into the lexical index.
func (f *testFixture) addNote(t *testing.T, note *core.NoteRecord) *core.NoteRecord {
	t.Helper()
	ctx := context.Background()
	_, err := f.noteRepo.AddNotes(ctx, note)
	require.NoError(t, err)
	require.NoError(t, f.index.Upsert(ctx, note))
	return note
}

// embedAs makes every query embed to the given vector.
func (f *testFixture) embedAs(vector []float32) {
	f.embedder.EmbedTextFunc = func(_ context.Context, _ string) ([]float32, error) {
		return vector, nil
	}
}

// embedFails makes every embedding call fail.
func (f *testFixture) embedFails() {
	f.embedder.EmbedTextFunc = func(_ context.Context, _ string) ([]float32, error) {
		return nil, errors.New("provider unavailable")
	}
}

// Orthogonal unit vectors for deterministic similarity scores.
var (
	axisX = []float32{1, 0, 0, 0}
	axisY = []float32{0, 1, 0, 0}
	axisZ = []float32{0, 0, 1, 0}
)

func hourNote(summary string, start time.Time, vector []float32) *core.NoteRecord {
	return &core.NoteRecord{
		Type:  core.NoteTypeHour,
		Start: start,
		End:   start.Add(time.Hour - time.Nanosecond),
		Payload: core.NotePayload{
			Summary: summary,
		},
		Vector: vector,
	}
}

func dayNote(summary string, date time.Time, vector []float32) *core.NoteRecord {
	return &core.NoteRecord{
		Type:  core.NoteTypeDay,
		Start: date,
		End:   date.Add(24*time.Hour - time.Nanosecond),
		Payload: core.NotePayload{
			Summary: summary,
		},
		Vector: vector,
	}
}

func TestNewSearcher(t *testing.T) {
	noteRepo, entityRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		entityRepo.Close()
		noteRepo.Close()
		backend.Close()
	}()

	provider := mock.NewMockProvider()

	t.Run("valid configuration", func(t *testing.T) {
		searcher, err := NewSearcher(noteRepo, entityRepo, provider)
		require.NoError(t, err)
		assert.NotNil(t, searcher)
		searcher.Close()
	})

	t.Run("with custom logger", func(t *testing.T) {
		searcher, err := NewSearcher(noteRepo, entityRepo, provider, WithLogger(slog.Default()))
		require.NoError(t, err)
		assert.NotNil(t, searcher)
		searcher.Close()
	})

	t.Run("nil logger falls back to default", func(t *testing.T) {
		searcher, err := NewSearcher(noteRepo, entityRepo, provider, WithLogger(nil))
		require.NoError(t, err)
		assert.NotNil(t, searcher.logger)
		searcher.Close()
	})

	t.Run("nil note repository", func(t *testing.T) {
		_, err := NewSearcher(nil, entityRepo, provider)
		assert.Equal(t, ErrNoteRepositoryRequired, err)
	})

	t.Run("nil entity repository", func(t *testing.T) {
		_, err := NewSearcher(noteRepo, nil, provider)
		assert.Equal(t, ErrEntityRepositoryRequired, err)
	})

	t.Run("nil provider", func(t *testing.T) {
		_, err := NewSearcher(noteRepo, entityRepo, nil)
		assert.Equal(t, ErrAIProviderRequired, err)
	})
}

func TestSearch_EmptyQuery(t *testing.T) {
	f := newTestFixture(t)
	_, err := f.searcher.Search(context.Background(), "", nil, 0, 10, 0)
	assert.Equal(t, ErrEmptyQuery, err)
}

func TestSearch_VectorRanking(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	match := f.addNote(t, hourNote("debugged the payment gateway", base, axisX))
	f.addNote(t, hourNote("team standup notes", base.Add(time.Hour), axisY))

	f.embedAs(axisX)
	result, err := f.searcher.Search(ctx, "payment gateway bug", nil, 0, 10, 0)
	require.NoError(t, err)

	assert.True(t, result.EmbeddingComputed)
	assert.Equal(t, "payment gateway bug", result.Query)
	require.Len(t, result.Matches, 2)
	assert.Equal(t, match.Id, result.Matches[0].Note.Id)
	assert.InDelta(t, 1.0, result.Matches[0].Score, 1e-6)
	// The orthogonal note sits at distance 1.
	assert.InDelta(t, 0.5, result.Matches[1].Score, 1e-6)
}

func TestSearch_TimeFilter(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()

	inside := f.addNote(t, hourNote("sprint planning", time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC), axisX))
	f.addNote(t, hourNote("sprint retro", time.Date(2026, time.April, 2, 9, 0, 0, 0, time.UTC), axisX))

	filter := &core.TimeRange{
		Start: time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.March, 31, 23, 59, 59, 0, time.UTC),
	}

	f.embedAs(axisX)
	result, err := f.searcher.Search(ctx, "sprint", filter, 0, 10, 0)
	require.NoError(t, err)

	require.Len(t, result.Matches, 1)
	assert.Equal(t, inside.Id, result.Matches[0].Note.Id)
	assert.Equal(t, filter, result.Applied)
}

func TestSearch_MinScore(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	f.addNote(t, hourNote("exact topic", base, axisX))
	f.addNote(t, hourNote("unrelated topic", base.Add(time.Hour), axisY))

	f.embedAs(axisX)
	result, err := f.searcher.Search(ctx, "exact topic", nil, 0, 10, 0.9)
	require.NoError(t, err)

	require.Len(t, result.Matches, 1)
	assert.InDelta(t, 1.0, result.Matches[0].Score, 1e-6)
}

func TestSearch_TypeFilter(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()
	date := time.Date(2026, time.March, 10, 0, 0, 0, 0, time.UTC)

	f.addNote(t, hourNote("morning work", date.Add(9*time.Hour), axisX))
	daily := f.addNote(t, dayNote("the whole day", date, axisX))

	f.embedAs(axisX)
	result, err := f.searcher.Search(ctx, "work", nil, core.NoteTypeDay, 10, 0)
	require.NoError(t, err)

	require.Len(t, result.Matches, 1)
	assert.Equal(t, daily.Id, result.Matches[0].Note.Id)
}

func TestSearch_DegradesToKeywordOnEmbedFailure(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	match := f.addNote(t, hourNote("migrated the billing database", base, axisX))
	f.addNote(t, hourNote("reviewed the onboarding flow", base.Add(time.Hour), axisY))

	f.embedFails()
	result, err := f.searcher.Search(ctx, "billing database", nil, 0, 10, 0.01)
	require.NoError(t, err)

	assert.False(t, result.EmbeddingComputed)
	require.NotEmpty(t, result.Matches)
	assert.Equal(t, match.Id, result.Matches[0].Note.Id)
}

func TestSearch_EmbedFailureWithoutIndex(t *testing.T) {
	noteRepo, entityRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() {
		entityRepo.Close()
		noteRepo.Close()
		backend.Close()
	}()

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextFunc = func(_ context.Context, _ string) ([]float32, error) {
		return nil, errors.New("provider unavailable")
	}
	searcher, err := NewSearcher(noteRepo, entityRepo, mock.NewMockProviderWithEmbedder(embedder))
	require.NoError(t, err)
	defer searcher.Close()

	result, err := searcher.Search(context.Background(), "anything", nil, 0, 10, 0)
	require.NoError(t, err)
	assert.False(t, result.EmbeddingComputed)
	assert.Empty(t, result.Matches)
}

func TestSearchByEntity(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	dana, err := f.entityRepo.GetOrCreateEntity(ctx, "Dana", "person")
	require.NoError(t, err)

	strong := hourNote("pairing session with Dana", base, axisX)
	strong.Entities = []core.EntityRef{{EntityId: dana.Id, Strength: 0.9}}
	f.addNote(t, strong)

	weak := hourNote("Dana mentioned in passing", base.Add(time.Hour), axisY)
	weak.Entities = []core.EntityRef{{EntityId: dana.Id, Strength: 0.3}}
	f.addNote(t, weak)

	f.addNote(t, hourNote("solo focus time", base.Add(2*time.Hour), axisZ))

	matches, err := f.searcher.SearchByEntity(ctx, "dana", "", nil, 10)
	require.NoError(t, err)

	require.Len(t, matches, 2)
	assert.Equal(t, strong.Id, matches[0].Note.Id)
	assert.InDelta(t, 0.9, matches[0].Score, 1e-6)
	assert.Equal(t, weak.Id, matches[1].Note.Id)
	assert.InDelta(t, 0.3, matches[1].Score, 1e-6)
}

func TestSearchByEntity_TimeFilterAndUnknown(t *testing.T) {
	f := newTestFixture(t)
	ctx := context.Background()
	base := time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

	dana, err := f.entityRepo.GetOrCreateEntity(ctx, "Dana", "person")
	require.NoError(t, err)

	note := hourNote("design review with Dana", base, axisX)
	note.Entities = []core.EntityRef{{EntityId: dana.Id, Strength: 0.8}}
	f.addNote(t, note)

	filter := &core.TimeRange{
		Start: time.Date(2026, time.April, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2026, time.April, 30, 23, 59, 59, 0, time.UTC),
	}
	matches, err := f.searcher.SearchByEntity(ctx, "Dana", "", filter, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = f.searcher.SearchByEntity(ctx, "nobody", "", nil, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)

	_, err = f.searcher.SearchByEntity(ctx, "", "", nil, 10)
	assert.Equal(t, ErrEmptyQuery, err)
}
