package badgerstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"github.com/inkwell/tagstore/internal/store"
)

// Entity provides generic CRUD operations for any domain type, keeping its
// secondary indexes in step with every write.
//
// The lowercase methods run inside a caller-supplied transaction so that
// multi-table writes (cascade delete, node tag sync) commit atomically.
type Entity[T any] struct {
	db      *badger.DB
	prefix  string
	indexes []Index[T]
}

// Index defines a secondary index on an entity.
type Index[T any] struct {
	name   string
	unique bool
	keyGen func(*T) []string
}

// NewEntity creates a new Entity instance for type T.
func NewEntity[T any](db *badger.DB, prefix string) *Entity[T] {
	return &Entity[T]{
		db:      db,
		prefix:  prefix,
		indexes: make([]Index[T], 0),
	}
}

// WithIndex adds a non-unique secondary index. Empty values are not indexed.
func (e *Entity[T]) WithIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, keyGen: keyGen})
	return e
}

// WithUniqueIndex adds a secondary index that rejects a second entity with the same value.
func (e *Entity[T]) WithUniqueIndex(name string, keyGen func(*T) []string) *Entity[T] {
	e.indexes = append(e.indexes, Index[T]{name: name, unique: true, keyGen: keyGen})
	return e
}

func (e *Entity[T]) index(name string) (Index[T], bool) {
	for _, idx := range e.indexes {
		if idx.name == name {
			return idx, true
		}
	}
	return Index[T]{}, false
}

func (e *Entity[T]) primaryKey(id string) []byte {
	return []byte(e.prefix + id)
}

// Create creates a new entity with the given ID.
// Returns store.ErrAlreadyExists if the ID or a unique index value is taken.
func (e *Entity[T]) Create(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.db.Update(func(txn *badger.Txn) error {
		return e.create(txn, id, entity)
	})
}

func (e *Entity[T]) create(txn *badger.Txn, id string, entity *T) error {
	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	key := e.primaryKey(id)
	if _, err := txn.Get(key); err == nil {
		return store.ErrAlreadyExists
	} else if !errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("failed to check existing key: %w", err)
	}

	if err := e.checkUnique(txn, entity, nil); err != nil {
		return err
	}

	if err := txn.Set(key, data); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return e.setIndexes(txn, id, entity)
}

// Get retrieves an entity by ID.
// Returns store.ErrNotFound if the entity does not exist.
func (e *Entity[T]) Get(ctx context.Context, id string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *T
	err := e.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = e.get(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Entity[T]) get(txn *badger.Txn, id string) (*T, error) {
	if id == "" {
		return nil, store.ErrNotFound
	}
	item, err := txn.Get(e.primaryKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get key: %w", err)
	}

	var entity T
	err = item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, &entity); err != nil {
			return fmt.Errorf("failed to unmarshal entity: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entity, nil
}

// GetByIndex retrieves the entity holding value in a unique index.
func (e *Entity[T]) GetByIndex(ctx context.Context, indexName, value string) (*T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *T
	err := e.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = e.getByIndex(txn, indexName, value)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Entity[T]) getByIndex(txn *badger.Txn, indexName, value string) (*T, error) {
	idx, ok := e.index(indexName)
	if !ok || !idx.unique {
		return nil, fmt.Errorf("unknown unique index %q on %s", indexName, e.prefix)
	}

	item, err := txn.Get(uniqueIndexKey(e.prefix, indexName, value))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get index key: %w", err)
	}

	id, err := item.ValueCopy(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read index value: %w", err)
	}
	return e.get(txn, string(id))
}

// Update replaces an existing entity.
// Returns store.ErrNotFound if the entity does not exist.
func (e *Entity[T]) Update(ctx context.Context, id string, entity *T) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.db.Update(func(txn *badger.Txn) error {
		return e.update(txn, id, entity)
	})
}

func (e *Entity[T]) update(txn *badger.Txn, id string, entity *T) error {
	old, err := e.get(txn, id)
	if err != nil {
		return err
	}

	data, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("failed to marshal entity: %w", err)
	}

	if err := e.checkUnique(txn, entity, old); err != nil {
		return err
	}
	if err := e.deleteIndexes(txn, id, old); err != nil {
		return err
	}
	if err := txn.Set(e.primaryKey(id), data); err != nil {
		return fmt.Errorf("failed to set key: %w", err)
	}
	return e.setIndexes(txn, id, entity)
}

// Delete deletes an entity by ID.
// This operation is idempotent - it does not return an error if the entity does not exist.
func (e *Entity[T]) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return e.db.Update(func(txn *badger.Txn) error {
		_, err := e.delete(txn, id)
		return err
	})
}

// delete removes the entity and its index entries, reporting whether it existed.
func (e *Entity[T]) delete(txn *badger.Txn, id string) (bool, error) {
	old, err := e.get(txn, id)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if err := e.deleteIndexes(txn, id, old); err != nil {
		return false, err
	}
	if err := txn.Delete(e.primaryKey(id)); err != nil {
		return false, fmt.Errorf("failed to delete key: %w", err)
	}
	return true, nil
}

// ListByIndex returns every entity whose index holds value.
func (e *Entity[T]) ListByIndex(ctx context.Context, indexName, value string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []T
	err := e.db.View(func(txn *badger.Txn) error {
		var err error
		out, err = e.listByIndex(ctx, txn, indexName, value)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (e *Entity[T]) listByIndex(ctx context.Context, txn *badger.Txn, indexName, value string) ([]T, error) {
	ids, err := e.idsByIndex(ctx, txn, indexName, value)
	if err != nil {
		return nil, err
	}

	out := make([]T, 0, len(ids))
	for _, id := range ids {
		entity, err := e.get(txn, id)
		if errors.Is(err, store.ErrNotFound) {
			// Dangling index entry; the primary row is authoritative.
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *entity)
	}
	return out, nil
}

// idsByIndex walks the index key range with a key-only iterator. The iterator
// is closed before returning because a read-write transaction allows only one.
func (e *Entity[T]) idsByIndex(ctx context.Context, txn *badger.Txn, indexName, value string) ([]string, error) {
	if _, ok := e.index(indexName); !ok {
		return nil, fmt.Errorf("unknown index %q on %s", indexName, e.prefix)
	}

	prefix := indexPrefix(e.prefix, indexName, value)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false

	it := txn.NewIterator(opts)
	defer it.Close()

	var ids []string
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		key := it.Item().Key()
		ids = append(ids, string(key[len(prefix):]))
	}
	return ids, nil
}

// countByIndex counts index entries for value without loading entities.
func (e *Entity[T]) countByIndex(ctx context.Context, txn *badger.Txn, indexName, value string) (int, error) {
	ids, err := e.idsByIndex(ctx, txn, indexName, value)
	return len(ids), err
}

func (e *Entity[T]) checkUnique(txn *badger.Txn, entity, old *T) error {
	for _, idx := range e.indexes {
		if !idx.unique {
			continue
		}

		oldKeys := make(map[string]bool)
		if old != nil {
			for _, k := range idx.keyGen(old) {
				oldKeys[k] = true
			}
		}

		for _, value := range idx.keyGen(entity) {
			if value == "" || oldKeys[value] {
				continue
			}
			_, err := txn.Get(uniqueIndexKey(e.prefix, idx.name, value))
			if err == nil {
				return fmt.Errorf("index %s conflict on key %s: %w", idx.name, value, store.ErrAlreadyExists)
			}
			if !errors.Is(err, badger.ErrKeyNotFound) {
				return fmt.Errorf("failed to check index key: %w", err)
			}
		}
	}
	return nil
}

func (e *Entity[T]) setIndexes(txn *badger.Txn, id string, entity *T) error {
	for _, idx := range e.indexes {
		for _, value := range idx.keyGen(entity) {
			if value == "" {
				continue
			}
			var err error
			if idx.unique {
				err = txn.Set(uniqueIndexKey(e.prefix, idx.name, value), []byte(id))
			} else {
				err = txn.Set(indexKey(e.prefix, idx.name, value, id), nil)
			}
			if err != nil {
				return fmt.Errorf("failed to set index key: %w", err)
			}
		}
	}
	return nil
}

func (e *Entity[T]) deleteIndexes(txn *badger.Txn, id string, entity *T) error {
	for _, idx := range e.indexes {
		for _, value := range idx.keyGen(entity) {
			if value == "" {
				continue
			}
			var key []byte
			if idx.unique {
				key = uniqueIndexKey(e.prefix, idx.name, value)
			} else {
				key = indexKey(e.prefix, idx.name, value, id)
			}
			if err := txn.Delete(key); err != nil {
				return fmt.Errorf("failed to delete index key: %w", err)
			}
		}
	}
	return nil
}
