package cache

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
)

// BadgerCache is a Cache persisted in an embedded Badger database, so
// memoized model calls survive process restarts. Child caches share the
// database under a namespaced key prefix.
type BadgerCache struct {
	db     *badger.DB
	prefix string
}

// NewBadgerCache opens (or creates) a Badger database at dir. Pass an empty
// dir to keep the cache purely in memory.
func NewBadgerCache(dir string) (*BadgerCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &BadgerCache{db: db}, nil
}

// Close releases the underlying database. Only the root cache should close.
func (c *BadgerCache) Close() error {
	return c.db.Close()
}

func (c *BadgerCache) key(key string) []byte {
	return []byte(c.prefix + key)
}

func (c *BadgerCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(c.key(key))
		if err != nil {
			return err
		}
		value, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (c *BadgerCache) Set(_ context.Context, key string, value []byte) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set(c.key(key), value)
	})
}

func (c *BadgerCache) Has(ctx context.Context, key string) (bool, error) {
	err := c.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(c.key(key))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (c *BadgerCache) Delete(_ context.Context, key string) error {
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(c.key(key))
	})
}

// CreateChild returns a cache sharing this cache's database under an
// additional namespace segment.
func (c *BadgerCache) CreateChild(name string) Cache {
	return &BadgerCache{
		db:     c.db,
		prefix: c.prefix + name + "/",
	}
}

// Clear removes only the keys in this cache's namespace.
func (c *BadgerCache) Clear(_ context.Context) error {
	return c.db.DropPrefix([]byte(c.prefix))
}
