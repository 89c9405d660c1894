package search

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/lexical"
	"github.com/poiesic/recall/storage"
)

const (
	// DefaultMinScore is the minimum score a match must reach to be returned.
	DefaultMinScore = 0.35

	// DefaultVectorWeight and DefaultLexicalWeight are the dual-source
	// fusion weights.
	DefaultVectorWeight  = 0.7
	DefaultLexicalWeight = 0.3

	// DefaultEmbedTimeout bounds a single query-embedding call.
	DefaultEmbedTimeout = 10 * time.Second

	// overFetchFactor is how many extra candidates to pull from the vector
	// index when a time filter will discard some of them afterwards.
	overFetchFactor = 5

	// defaultPoolSize is the number of workers used for per-day drill-down
	// searches.
	defaultPoolSize = 8
)

// FusionWeights holds the dual-source fusion weights. They apply only when
// both the vector and lexical sides produced results.
type FusionWeights struct {
	Vector  float32
	Lexical float32
}

// Searcher provides temporal-semantic search over the note archive. It
// fuses vector similarity with keyword ranking when a lexical index is
// configured, and degrades to whichever source is available when the other
// fails.
type Searcher struct {
	noteRepository   storage.NoteRepository
	entityRepository storage.EntityRepository
	lexicalIndex     *lexical.Index
	embedder         ai.Embedder
	pool             *ants.Pool
	weights          FusionWeights
	minScore         float32
	embedTimeout     time.Duration
	logger           *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithLexicalIndex attaches a keyword index. Without one, Search is
// vector-only and HybridSearch behaves like Search.
func WithLexicalIndex(idx *lexical.Index) Option {
	return func(s *Searcher) error {
		s.lexicalIndex = idx
		return nil
	}
}

// WithFusionWeights overrides the default dual-source weights.
func WithFusionWeights(weights FusionWeights) Option {
	return func(s *Searcher) error {
		s.weights = weights
		return nil
	}
}

// WithMinScore overrides the default minimum match score.
func WithMinScore(minScore float32) Option {
	return func(s *Searcher) error {
		s.minScore = minScore
		return nil
	}
}

// WithEmbedTimeout bounds query-embedding calls.
func WithEmbedTimeout(timeout time.Duration) Option {
	return func(s *Searcher) error {
		s.embedTimeout = timeout
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	noteRepository storage.NoteRepository,
	entityRepository storage.EntityRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Searcher, error) {
	if noteRepository == nil {
		return nil, ErrNoteRepositoryRequired
	}
	if entityRepository == nil {
		return nil, ErrEntityRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	pool, err := ants.NewPool(defaultPoolSize)
	if err != nil {
		return nil, err
	}

	s := &Searcher{
		noteRepository:   noteRepository,
		entityRepository: entityRepository,
		embedder:         provider.Embedder(),
		pool:             pool,
		weights:          FusionWeights{Vector: DefaultVectorWeight, Lexical: DefaultLexicalWeight},
		minScore:         DefaultMinScore,
		embedTimeout:     DefaultEmbedTimeout,
		logger:           slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			pool.Release()
			return nil, err
		}
	}

	return s, nil
}

// Close releases the drill-down worker pool.
func (s *Searcher) Close() error {
	s.pool.Release()
	return nil
}

// Search runs a vector similarity search, degrading to keyword-only results
// when the embedding provider is unavailable. A nil filter searches the
// whole archive; a zero noteType searches both granularities. A zero
// minScore uses the configured default.
func (s *Searcher) Search(ctx context.Context, query string, filter *core.TimeRange, noteType core.NoteType, limit int, minScore float32) (*core.SearchResult, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = 10
	}
	if minScore <= 0 {
		minScore = s.minScore
	}

	result := &core.SearchResult{
		Query:   query,
		Applied: filter,
	}

	vector, err := s.embedQuery(ctx, query)
	if err != nil {
		s.logger.Warn("embedding unavailable, degrading to keyword search", "query", query, "err", err)
		matches, total := s.lexicalOnly(ctx, query, filter, noteType, limit, minScore)
		result.Matches = matches
		result.TotalSearched = total
		result.EmbeddingComputed = false
		return result, nil
	}
	result.EmbeddingComputed = true

	matches, total, err := s.vectorSearch(ctx, vector, filter, noteType, limit, minScore)
	if err != nil {
		s.logger.Error("note store unavailable", "err", err)
		return result, nil
	}
	result.Matches = matches
	result.TotalSearched = total
	return result, nil
}

// embedQuery computes the query embedding under the configured timeout.
func (s *Searcher) embedQuery(ctx context.Context, query string) ([]float32, error) {
	embedCtx, cancel := context.WithTimeout(ctx, s.embedTimeout)
	defer cancel()
	return s.embedder.EmbedText(embedCtx, query)
}

// vectorSearch performs the KNN lookup plus post-filtering. The fetch limit
// is inflated when a time filter will discard candidates afterwards.
func (s *Searcher) vectorSearch(ctx context.Context, vector []float32, filter *core.TimeRange, noteType core.NoteType, limit int, minScore float32) ([]core.NoteMatch, int, error) {
	fetchLimit := limit
	if filter != nil {
		fetchLimit = limit * overFetchFactor
	}

	candidates, err := s.noteRepository.FindNearest(ctx, vector, noteType, fetchLimit)
	if err != nil {
		return nil, 0, err
	}

	matches := make([]core.NoteMatch, 0, limit)
	for _, candidate := range candidates {
		if filter != nil && !filter.Overlaps(candidate.Note.Start, candidate.Note.End) {
			continue
		}
		if candidate.Score < minScore {
			continue
		}
		matches = append(matches, *candidate)
		if len(matches) == limit {
			break
		}
	}
	return matches, len(candidates), nil
}

// lexicalOnly resolves keyword hits against the note store and applies the
// same post-filters as the vector path. Used when embedding is unavailable.
func (s *Searcher) lexicalOnly(ctx context.Context, query string, filter *core.TimeRange, noteType core.NoteType, limit int, minScore float32) ([]core.NoteMatch, int) {
	if s.lexicalIndex == nil {
		return nil, 0
	}

	fetchLimit := limit
	if filter != nil {
		fetchLimit = limit * overFetchFactor
	}

	hits, err := s.lexicalIndex.Search(ctx, query, noteType, fetchLimit)
	if err != nil {
		s.logger.Error("lexical search failed", "err", err)
		return nil, 0
	}
	if len(hits) == 0 {
		return nil, 0
	}

	scores := make(map[core.ID]float32, len(hits))
	ids := make([]core.ID, 0, len(hits))
	for _, hit := range hits {
		scores[hit.NoteID] = hit.Score
		ids = append(ids, hit.NoteID)
	}

	notes, err := s.noteRepository.GetNotes(ctx, ids...)
	if err != nil {
		s.logger.Error("note store unavailable", "err", err)
		return nil, 0
	}

	matches := make([]core.NoteMatch, 0, limit)
	for _, note := range notes {
		if filter != nil && !filter.Overlaps(note.Start, note.End) {
			continue
		}
		score := scores[note.Id]
		if score < minScore {
			continue
		}
		matches = append(matches, core.NoteMatch{Note: note, Score: score})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, len(hits)
}

// SearchByEntity finds notes that reference an entity by name. The score of
// each match is the association strength clamped to [0,1]; entityType may be
// empty to match any type.
func (s *Searcher) SearchByEntity(ctx context.Context, name, entityType string, filter *core.TimeRange, limit int) ([]core.NoteMatch, error) {
	if name == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = 10
	}

	entities, err := s.entityRepository.FindByName(ctx, name, entityType)
	if err != nil {
		s.logger.Error("entity lookup failed", "name", name, "err", err)
		return nil, nil
	}
	if len(entities) == 0 {
		return nil, nil
	}

	// A note may reference several matched entities; keep its strongest
	// association.
	strengths := make(map[core.ID]float32)
	for _, entity := range entities {
		refs, err := s.noteRepository.GetNotesByEntity(ctx, entity.Id)
		if err != nil {
			s.logger.Warn("failed to get notes for entity", "entityID", entity.Id, "err", err)
			continue
		}
		for _, ref := range refs {
			if ref.Strength > strengths[ref.NoteId] {
				strengths[ref.NoteId] = ref.Strength
			}
		}
	}
	if len(strengths) == 0 {
		return nil, nil
	}

	ids := make([]core.ID, 0, len(strengths))
	for id := range strengths {
		ids = append(ids, id)
	}
	notes, err := s.noteRepository.GetNotes(ctx, ids...)
	if err != nil {
		s.logger.Error("note store unavailable", "err", err)
		return nil, nil
	}

	matches := make([]core.NoteMatch, 0, len(notes))
	for _, note := range notes {
		if filter != nil && !filter.Overlaps(note.Start, note.End) {
			continue
		}
		matches = append(matches, core.NoteMatch{Note: note, Score: clampScore(strengths[note.Id])})
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// clampScore forces a raw association strength into [0,1].
func clampScore(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
