package badger

import (
	"context"
	"encoding/binary"
	"math"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// maxNoteSpan bounds how far back the date index seek must start: note
// intervals are hourly or daily, so no note starting more than a day before
// the query window can overlap it.
const maxNoteSpan = 24 * time.Hour

// NoteRepository implements storage.NoteRepository for BadgerDB.
type NoteRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.NoteRepository = (*NoteRepository)(nil)

// NewNoteRepository creates a new NoteRepository.
func NewNoteRepository(backend *Backend) (*NoteRepository, error) {
	idSeq, err := backend.GetSequence(noteRecordIDSeq)
	if err != nil {
		return nil, err
	}

	return &NoteRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *NoteRepository) Close() error {
	return r.idSeq.Release()
}

// WithTransaction delegates to the backend.
func (r *NoteRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// FindNearest delegates to the backend.
func (r *NoteRepository) FindNearest(ctx context.Context, vector []float32, noteType core.NoteType, limit int) ([]*core.NoteMatch, error) {
	return r.backend.FindNearest(ctx, vector, noteType, limit)
}

// AddNotes adds one or more note records to storage.
func (r *NoteRepository) AddNotes(ctx context.Context, notes ...*core.NoteRecord) ([]*core.NoteRecord, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, note := range notes {
			if note.Id == 0 {
				nextID, err := r.idSeq.Next()
				if err != nil {
					return err
				}
				// BadgerDB sequences can return 0 on first call, so we skip it
				if nextID == 0 {
					nextID, err = r.idSeq.Next()
					if err != nil {
						return err
					}
				}
				note.Id = core.ID(nextID)
			}

			if note.InsertedAt.IsZero() {
				note.InsertedAt = time.Now().UTC()
			}
			note.UpdatedAt = note.InsertedAt

			// Store primary record
			key := makeNoteRecordKey(note.Id)
			value := storage.MarshalNoteRecord(note)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Update date index
			dateKey := makeNoteDateKey(note.Start, note.Id)
			if err := tx.Set(dateKey, storage.MarshalID(note.Id)); err != nil {
				return err
			}

			// Update entity index
			if err := r.updateEntityIndex(tx, note); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	return notes, err
}

// UpdateNotes updates existing note records.
func (r *NoteRepository) UpdateNotes(ctx context.Context, notes ...*core.NoteRecord) ([]*core.NoteRecord, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, note := range notes {
			key := makeNoteRecordKey(note.Id)

			// Read old record to detect changes
			old, err := r.readNoteRecord(tx, key)
			if err != nil {
				return err
			}
			if old == nil {
				return storage.ErrNotFound
			}

			note.UpdatedAt = time.Now().UTC()

			value := storage.MarshalNoteRecord(note)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Update date index if the interval start changed
			if !old.Start.Equal(note.Start) {
				oldDateKey := makeNoteDateKey(old.Start, old.Id)
				if err := tx.Delete(oldDateKey); err != nil {
					return err
				}
				newDateKey := makeNoteDateKey(note.Start, note.Id)
				if err := tx.Set(newDateKey, storage.MarshalID(note.Id)); err != nil {
					return err
				}
			}

			// Update entity index if references changed
			if !entityRefsEqual(old.Entities, note.Entities) {
				if err := r.deleteEntityIndex(tx, old); err != nil {
					return err
				}
				if err := r.updateEntityIndex(tx, note); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return notes, err
}

// DeleteNotes removes note records by their IDs.
func (r *NoteRepository) DeleteNotes(ctx context.Context, ids ...core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeNoteRecordKey(id)

			// Read record to get metadata for index cleanup
			note, err := r.readNoteRecord(tx, key)
			if err != nil {
				return err
			}
			if note == nil {
				return storage.ErrNotFound
			}

			dateKey := makeNoteDateKey(note.Start, note.Id)
			if err := tx.Delete(dateKey); err != nil {
				return err
			}

			if err := r.deleteEntityIndex(tx, note); err != nil {
				return err
			}

			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// GetNote retrieves a single note record by ID.
func (r *NoteRepository) GetNote(ctx context.Context, id core.ID) (*core.NoteRecord, error) {
	var result *core.NoteRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeNoteRecordKey(id)
		var err error
		result, err = r.readNoteRecord(tx, key)
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetNotes retrieves multiple note records by their IDs.
func (r *NoteRepository) GetNotes(ctx context.Context, ids ...core.ID) ([]*core.NoteRecord, error) {
	var result []*core.NoteRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeNoteRecordKey(id)
			note, err := r.readNoteRecord(tx, key)
			if err != nil {
				return err
			}
			if note != nil {
				result = append(result, note)
			}
		}
		return nil
	}, false)
	return result, err
}

// GetNotesByDateRange retrieves note records whose interval overlaps
// [start, end], ordered by start time ascending.
func (r *NoteRepository) GetNotesByDateRange(ctx context.Context, start, end time.Time, noteType core.NoteType) ([]*core.NoteRecord, error) {
	if end.Before(start) {
		return nil, storage.ErrInvalidQuery
	}

	var results []*core.NoteRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Back the seek up by the maximum note span so notes that start
		// before the window but overlap it are still visited.
		startKey := makePartialNoteDateKey(start.Add(-maxNoteSpan))
		endKey := makePartialNoteDateKey(end)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if slices.Compare(key, endKey) > 0 {
				break
			}

			// Read the ID from the index
			var noteID core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				noteID, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			// Look up the full record
			noteKey := makeNoteRecordKey(noteID)
			note, err := r.readNoteRecord(tx, noteKey)
			if err != nil {
				r.backend.logger.Warn("skipping malformed note record", "id", uint64(noteID), "error", err)
				continue
			}
			if note == nil {
				continue
			}
			if noteType != 0 && note.Type != noteType {
				continue
			}
			if note.End.Before(start) || note.Start.After(end) {
				continue
			}
			results = append(results, note)
		}
		return nil
	}, false)

	return results, err
}

// GetNotesByEntity retrieves references from an entity back to the notes
// that mention it.
func (r *NoteRepository) GetNotesByEntity(ctx context.Context, entityID core.ID) ([]*core.NoteEntityRef, error) {
	var refs []*core.NoteEntityRef
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialNoteEntityKey(entityID)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(startKey) {
				break
			}
			if slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}

			// The note ID is the trailing 8 bytes of the key; the value
			// carries the association strength.
			noteID := core.ID(binary.BigEndian.Uint64(key[len(key)-8:]))
			var strength float32
			err := iter.Item().Value(func(val []byte) error {
				strength = math.Float32frombits(binary.BigEndian.Uint32(val))
				return nil
			})
			if err != nil {
				return err
			}
			refs = append(refs, &core.NoteEntityRef{NoteId: noteID, Strength: strength})
		}
		return nil
	}, false)

	return refs, err
}

// CountNotes returns the number of stored note records of the given type.
func (r *NoteRepository) CountNotes(ctx context.Context, noteType core.NoteType) (int, error) {
	count := 0
	err := r.IterateNotes(ctx, func(note *core.NoteRecord) error {
		if noteType == 0 || note.Type == noteType {
			count++
		}
		return nil
	})
	return count, err
}

// IterateNotes visits every stored note record in key order.
func (r *NoteRepository) IterateNotes(ctx context.Context, fn func(note *core.NoteRecord) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(noteRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var note *core.NoteRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				note, err = storage.UnmarshalNoteRecord(val)
				return err
			})
			if err != nil {
				r.backend.logger.Warn("skipping malformed note record", "key", string(iter.Item().Key()), "error", err)
				continue
			}
			if note == nil {
				continue
			}
			if err := fn(note); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// Helper methods

// readNoteRecord reads a note record from the transaction.
func (r *NoteRepository) readNoteRecord(tx *badger.Txn, key []byte) (*core.NoteRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var note *core.NoteRecord
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		note, unmarshalErr = storage.UnmarshalNoteRecord(val)
		return unmarshalErr
	})
	return note, err
}

// updateEntityIndex adds entity index entries for a note.
func (r *NoteRepository) updateEntityIndex(tx *badger.Txn, note *core.NoteRecord) error {
	if len(note.Entities) == 0 {
		return nil
	}
	for _, ref := range note.Entities {
		key := makeNoteEntityKey(ref.EntityId, note.Id)
		value := make([]byte, 4)
		binary.BigEndian.PutUint32(value, math.Float32bits(ref.Strength))
		if err := tx.Set(key, value); err != nil {
			return err
		}
	}
	return nil
}

// deleteEntityIndex removes entity index entries for a note.
func (r *NoteRepository) deleteEntityIndex(tx *badger.Txn, note *core.NoteRecord) error {
	if len(note.Entities) == 0 {
		return nil
	}
	for _, ref := range note.Entities {
		key := makeNoteEntityKey(ref.EntityId, note.Id)
		if err := tx.Delete(key); err != nil {
			return err
		}
	}
	return nil
}

// entityRefsEqual compares two entity reference slices for equality.
func entityRefsEqual(a, b []core.EntityRef) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].EntityId != b[i].EntityId || a[i].Strength != b[i].Strength {
			return false
		}
	}
	return true
}
