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


package recall

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/openai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/lexical"
	"github.com/poiesic/recall/search"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
	"github.com/poiesic/recall/timeparse"
)

// Database wires the note archive, the lexical index, the embedding
// provider, the time expression parser, and the searcher into a single
// handle.
type Database struct {
	backend    *badger.Backend
	noteRepo   storage.NoteRepository
	entityRepo storage.EntityRepository
	index      *lexical.Index
	provider   ai.AIProvider
	parser     *timeparse.Parser
	searcher   *search.Searcher
	logger     *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig   *ai.Config
	provider   ai.AIProvider
	inMemory   bool
	searchOpts []search.Option
	parserOpts []timeparse.Option
}

// WithAIConfig sets the embedding provider configuration.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithAIProvider supplies a pre-built provider instead of constructing one
// from configuration. Used mainly by tests.
func WithAIProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithInMemory keeps all storage in memory. The filePath argument to
// NewDatabase is ignored.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// WithSearchOptions passes extra options to the embedded searcher.
func WithSearchOptions(opts ...search.Option) DatabaseOption {
	return func(o *databaseOptions) {
		o.searchOpts = append(o.searchOpts, opts...)
	}
}

// WithParserOptions passes extra options to the time expression parser.
func WithParserOptions(opts ...timeparse.Option) DatabaseOption {
	return func(o *databaseOptions) {
		o.parserOpts = append(o.parserOpts, opts...)
	}
}

func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	logger := slog.Default()

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	noteRepo, err := badger.NewNoteRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	entityRepo, err := badger.NewEntityRepository(backend)
	if err != nil {
		noteRepo.Close()
		backend.Close()
		return nil, err
	}

	// A missing FTS5 build degrades keyword search rather than failing
	// the whole database.
	indexPath := ":memory:"
	if !options.inMemory {
		indexPath = filepath.Join(filePath, "lexical.db")
	}
	index, err := lexical.Open(indexPath)
	if err != nil {
		if !errors.Is(err, lexical.ErrFTSUnavailable) {
			entityRepo.Close()
			noteRepo.Close()
			backend.Close()
			return nil, err
		}
		logger.Warn("full-text search unavailable, keyword search disabled", "err", err)
		index = nil
	}

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			if index != nil {
				index.Close()
			}
			entityRepo.Close()
			noteRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	searchOpts := options.searchOpts
	if index != nil {
		searchOpts = append([]search.Option{search.WithLexicalIndex(index)}, searchOpts...)
	}
	searcher, err := search.NewSearcher(noteRepo, entityRepo, provider, searchOpts...)
	if err != nil {
		provider.Close()
		if index != nil {
			index.Close()
		}
		entityRepo.Close()
		noteRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Database{
		backend:    backend,
		noteRepo:   noteRepo,
		entityRepo: entityRepo,
		index:      index,
		provider:   provider,
		parser:     timeparse.NewParser(options.parserOpts...),
		searcher:   searcher,
		logger:     logger,
	}, nil
}

func (db *Database) Close() error {
	db.searcher.Close()

	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	if db.index != nil {
		if err := db.index.Close(); err != nil {
			db.logger.Error("error closing lexical index", "err", err)
		}
	}

	if err := db.entityRepo.Close(); err != nil {
		db.logger.Error("error closing entity repository", "err", err)
		return err
	}
	if err := db.noteRepo.Close(); err != nil {
		db.logger.Error("error closing note repository", "err", err)
		return err
	}

	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) NoteRepository() storage.NoteRepository {
	return db.noteRepo
}

func (db *Database) EntityRepository() storage.EntityRepository {
	return db.entityRepo
}

// LexicalIndex returns the keyword index, or nil when FTS is unavailable.
func (db *Database) LexicalIndex() *lexical.Index {
	return db.index
}

func (db *Database) Parser() *timeparse.Parser {
	return db.parser
}

func (db *Database) Searcher() *search.Searcher {
	return db.searcher
}

// Embedder exposes the provider's embedder, mainly for ingestion tools.
func (db *Database) Embedder() ai.Embedder {
	return db.provider.Embedder()
}

// ParseTime resolves a natural-language time expression against the
// current clock. Returns nil when the expression is not recognized.
func (db *Database) ParseTime(text string) *core.TimeRange {
	return db.parser.Parse(text)
}

// ParseTimeWithAmbiguity resolves a time expression and reports whether it
// was ambiguous, along with clarification options.
func (db *Database) ParseTimeWithAmbiguity(text string) *core.TimeParseResult {
	return db.parser.ParseWithAmbiguity(text)
}

// Search runs a flat relevance search, optionally constrained to a time
// range and note type.
func (db *Database) Search(ctx context.Context, query string, filter *core.TimeRange, noteType core.NoteType, limit int) (*core.SearchResult, error) {
	return db.searcher.Search(ctx, query, filter, noteType, limit, 0)
}

// HybridSearch fuses vector and keyword relevance.
func (db *Database) HybridSearch(ctx context.Context, query string, filter *core.TimeRange, noteType core.NoteType, limit int) (*core.SearchResult, error) {
	return db.searcher.HybridSearch(ctx, query, filter, noteType, limit, 0)
}

// SearchByEntity finds notes associated with a named entity.
func (db *Database) SearchByEntity(ctx context.Context, name, entityType string, filter *core.TimeRange, limit int) ([]core.NoteMatch, error) {
	return db.searcher.SearchByEntity(ctx, name, entityType, filter, limit)
}

// HierarchicalSearch runs the two-stage day/hour search.
func (db *Database) HierarchicalSearch(ctx context.Context, query string, filter *core.TimeRange, maxDays, maxHoursPerDay int) (*core.HierarchicalResult, error) {
	return db.searcher.HierarchicalSearch(ctx, query, filter, maxDays, maxHoursPerDay)
}

// GetDayContext retrieves everything archived for one calendar day.
func (db *Database) GetDayContext(ctx context.Context, date time.Time) (*core.DayMatch, error) {
	return db.searcher.GetDayContext(ctx, date)
}

// Reindex rebuilds the lexical index from the note store. Returns the
// number of notes indexed, or zero when FTS is unavailable.
func (db *Database) Reindex(ctx context.Context) (int, error) {
	if db.index == nil {
		return 0, lexical.ErrFTSUnavailable
	}
	return db.index.ReindexAll(ctx, db.noteRepo)
}
