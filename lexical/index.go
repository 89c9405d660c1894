package lexical

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

const schema = `
CREATE VIRTUAL TABLE IF NOT EXISTS notes_fts USING fts5(
	summary,
	categories,
	entities,
	activities,
	note_id UNINDEXED,
	note_type UNINDEXED,
	tokenize='porter unicode61'
);
`

// Hit is one lexical match. Raw is the BM25 rank as reported by SQLite
// (negative, lower is better); Score maps it to (0, 1] with higher better.
type Hit struct {
	NoteID core.ID
	Raw    float64
	Score  float32
}

// Stats describes the state of the lexical index. Coverage is the fraction
// of stored notes present in the index, in [0, 1].
type Stats struct {
	Entries  int
	Coverage float64
}

// Index is a SQLite FTS5 keyword index over note payloads.
type Index struct {
	db     *sql.DB
	logger *slog.Logger
	closed atomic.Bool
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used by the index.
func WithLogger(logger *slog.Logger) Option {
	return func(idx *Index) {
		idx.logger = logger
	}
}

// Open opens (or creates) a lexical index at path. Pass ":memory:" for an
// in-memory index. Returns ErrFTSUnavailable when the linked SQLite build
// lacks the FTS5 extension.
func Open(path string, opts ...Option) (*Index, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		if strings.Contains(err.Error(), "no such module: fts5") {
			return nil, fmt.Errorf("%w: %w", ErrFTSUnavailable, err)
		}
		return nil, err
	}

	idx := &Index{
		db:     db,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx, nil
}

// Close closes the underlying database. Further index operations return
// ErrIndexClosed.
func (idx *Index) Close() error {
	idx.closed.Store(true)
	return idx.db.Close()
}

// Upsert indexes a note, replacing any previous entry for the same ID.
func (idx *Index) Upsert(ctx context.Context, note *core.NoteRecord) error {
	if idx.closed.Load() {
		return ErrIndexClosed
	}
	id := strconv.FormatUint(uint64(note.Id), 10)
	if _, err := idx.db.ExecContext(ctx, `DELETE FROM notes_fts WHERE note_id = ?`, id); err != nil {
		return err
	}
	_, err := idx.db.ExecContext(ctx, `
		INSERT INTO notes_fts (summary, categories, entities, activities, note_id, note_type)
		VALUES (?, ?, ?, ?, ?, ?)`,
		note.Payload.Summary,
		strings.Join(note.Payload.Categories, " "),
		strings.Join(note.Payload.Entities, " "),
		strings.Join(note.Payload.Activities, " "),
		id,
		int(note.Type),
	)
	return err
}

// Delete removes a note from the index. Deleting an unindexed note is a no-op.
func (idx *Index) Delete(ctx context.Context, id core.ID) error {
	if idx.closed.Load() {
		return ErrIndexClosed
	}
	_, err := idx.db.ExecContext(ctx, `DELETE FROM notes_fts WHERE note_id = ?`,
		strconv.FormatUint(uint64(id), 10))
	return err
}

// Search runs a BM25-ranked keyword query. A zero noteType matches all
// types. Returns at most limit hits ordered best first; an empty or fully
// sanitized-away query yields no hits.
func (idx *Index) Search(ctx context.Context, query string, noteType core.NoteType, limit int) ([]Hit, error) {
	if idx.closed.Load() {
		return nil, ErrIndexClosed
	}
	match := buildMatchQuery(query)
	if match == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 10
	}

	q := `
		SELECT note_id, bm25(notes_fts) AS rank
		FROM notes_fts
		WHERE notes_fts MATCH ?`
	args := []any{match}
	if noteType != 0 {
		q += ` AND note_type = ?`
		args = append(args, int(noteType))
	}
	q += ` ORDER BY rank LIMIT ?`
	args = append(args, limit)

	rows, err := idx.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hits []Hit
	for rows.Next() {
		var rawID string
		var rank float64
		if err := rows.Scan(&rawID, &rank); err != nil {
			return nil, err
		}
		id, err := strconv.ParseUint(rawID, 10, 64)
		if err != nil {
			idx.logger.Warn("skipping index row with malformed note id", "note_id", rawID, "error", err)
			continue
		}
		hits = append(hits, Hit{
			NoteID: core.ID(id),
			Raw:    rank,
			Score:  float32(1 / (1 + math.Abs(rank))),
		})
	}
	return hits, rows.Err()
}

// ReindexAll rebuilds the index from the primary note store. The existing
// index contents are dropped first, so a note deleted from the store
// disappears from the index as well.
func (idx *Index) ReindexAll(ctx context.Context, repo storage.NoteRepository) (int, error) {
	if idx.closed.Load() {
		return 0, ErrIndexClosed
	}
	if _, err := idx.db.ExecContext(ctx, `DELETE FROM notes_fts`); err != nil {
		return 0, err
	}

	indexed := 0
	err := repo.IterateNotes(ctx, func(note *core.NoteRecord) error {
		if err := idx.Upsert(ctx, note); err != nil {
			return err
		}
		indexed++
		return nil
	})
	if err != nil {
		return indexed, err
	}

	idx.logger.Info("lexical index rebuilt", "notes", indexed)
	return indexed, nil
}

// Stats returns the number of indexed notes. When a repository is supplied
// it also reports coverage, the fraction of stored notes that are indexed;
// with a nil repository Coverage is zero.
func (idx *Index) Stats(ctx context.Context, repo storage.NoteRepository) (*Stats, error) {
	if idx.closed.Load() {
		return nil, ErrIndexClosed
	}
	var entries int
	if err := idx.db.QueryRowContext(ctx, `SELECT count(*) FROM notes_fts`).Scan(&entries); err != nil {
		return nil, err
	}

	stats := &Stats{Entries: entries}
	if repo != nil {
		total, err := repo.CountNotes(ctx, 0)
		if err != nil {
			return nil, err
		}
		if total > 0 {
			stats.Coverage = float64(entries) / float64(total)
		}
	}
	return stats, nil
}
