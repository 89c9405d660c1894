package badger

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// EntityRepository implements storage.EntityRepository for BadgerDB.
type EntityRepository struct {
	backend *Backend
}

var _ storage.EntityRepository = (*EntityRepository)(nil)

// NewEntityRepository creates a new EntityRepository.
func NewEntityRepository(backend *Backend) (*EntityRepository, error) {
	return &EntityRepository{
		backend: backend,
	}, nil
}

// Close releases resources. EntityRepository has no resources to release.
func (r *EntityRepository) Close() error {
	return nil
}

// WithTransaction delegates to the backend.
func (r *EntityRepository) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.backend.WithTransaction(ctx, fn)
}

// AddEntities adds one or more entities to storage.
func (r *EntityRepository) AddEntities(ctx context.Context, entities ...*core.EntityRecord) ([]*core.EntityRecord, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, entity := range entities {
			// Use content-based ID if not set
			if entity.Id == 0 {
				entity.Id = core.IDFromContent(entity.Tuple())
			}

			entity.InsertedAt = time.Now().UTC()
			entity.UpdatedAt = entity.InsertedAt

			// Store primary record
			key := makeEntityKey(entity.Id)
			value := storage.MarshalEntityRecord(entity)
			if err := tx.Set(key, value); err != nil {
				return err
			}

			// Store tuple index
			tupleKey := makeEntityTupleKey(entity.CanonicalName, entity.Type)
			if err := tx.Set(tupleKey, storage.MarshalID(entity.Id)); err != nil {
				return err
			}

			// Store name index for the canonical name and every alias
			nameKey := makeEntityNameKey(entity.CanonicalName, entity.Id)
			if err := tx.Set(nameKey, storage.MarshalID(entity.Id)); err != nil {
				return err
			}
			for _, alias := range entity.Aliases {
				aliasKey := makeEntityNameKey(alias, entity.Id)
				if err := tx.Set(aliasKey, storage.MarshalID(entity.Id)); err != nil {
					return err
				}
			}
		}
		return tx.Commit()
	}, true)

	return entities, err
}

// GetEntity retrieves a single entity by ID.
func (r *EntityRepository) GetEntity(ctx context.Context, id core.ID) (*core.EntityRecord, error) {
	var result *core.EntityRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeEntityKey(id)
		var err error
		result, err = readEntity(tx, key)
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

// GetEntities retrieves multiple entities by their IDs.
func (r *EntityRepository) GetEntities(ctx context.Context, ids ...core.ID) ([]*core.EntityRecord, error) {
	var result []*core.EntityRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			key := makeEntityKey(id)
			entity, err := readEntity(tx, key)
			if err != nil {
				return err
			}
			if entity != nil {
				result = append(result, entity)
			}
		}
		return nil
	}, false)
	return result, err
}

// FindByName finds entities whose canonical name or any alias matches name.
// Matching is case-insensitive. A non-empty entityType restricts results to
// that type.
func (r *EntityRepository) FindByName(ctx context.Context, name, entityType string) ([]*core.EntityRecord, error) {
	var results []*core.EntityRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialEntityNameKey(name)
		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		seen := make(map[core.ID]bool)
		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(startKey) {
				break
			}
			if slices.Compare(key[:len(startKey)], startKey) != 0 {
				break
			}

			var entityID core.ID
			err := iter.Item().Value(func(val []byte) error {
				var err error
				entityID, err = storage.UnmarshalID(val)
				return err
			})
			if err != nil {
				return err
			}
			if seen[entityID] {
				continue
			}
			seen[entityID] = true

			entity, err := readEntity(tx, makeEntityKey(entityID))
			if err != nil {
				return err
			}
			if entity == nil {
				continue
			}
			if entityType != "" && !strings.EqualFold(entity.Type, entityType) {
				continue
			}
			results = append(results, entity)
		}
		return nil
	}, false)

	return results, err
}

// GetOrCreateEntity finds or creates an entity by name and type.
func (r *EntityRepository) GetOrCreateEntity(ctx context.Context, name, entityType string) (*core.EntityRecord, error) {
	// Try to find an existing entity via the tuple index
	entity, err := r.findByTuple(name, entityType)
	if err == nil {
		return entity, nil
	}
	if err != storage.ErrNotFound {
		return nil, err
	}

	newEntity := &core.EntityRecord{
		Id:            core.IDFromContent("(" + entityType + "," + name + ")"),
		Type:          entityType,
		CanonicalName: name,
	}

	// Try to add it (may fail due to race condition)
	added, err := r.AddEntities(ctx, newEntity)
	if err != nil {
		// If add failed, try to find it again (someone else may have created it)
		entity, findErr := r.findByTuple(name, entityType)
		if findErr == nil {
			return entity, nil
		}
		return nil, err
	}

	return added[0], nil
}

// findByTuple looks an entity up by its (type, name) tuple index.
func (r *EntityRepository) findByTuple(name, entityType string) (*core.EntityRecord, error) {
	var result *core.EntityRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		tupleKey := makeEntityTupleKey(name, entityType)
		item, err := tx.Get(tupleKey)
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var entityID core.ID
		err = item.Value(func(val []byte) error {
			entityID, err = storage.UnmarshalID(val)
			return err
		})
		if err != nil {
			return err
		}

		result, err = readEntity(tx, makeEntityKey(entityID))
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

// readEntity reads an entity from the transaction.
func readEntity(tx *badger.Txn, key []byte) (*core.EntityRecord, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var entity *core.EntityRecord
	err = item.Value(func(val []byte) error {
		var err error
		entity, err = storage.UnmarshalEntityRecord(val)
		return err
	})
	return entity, err
}
