package cache

import (
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/jamesainslie/stamp/pkg/stamp/logging"
)

var logger = logging.Get("cache")

// ErrNotFound is returned when a cache entry doesn't exist.
var ErrNotFound = errors.New("cache entry not found")

// Cache is a badger-backed store of file stats keyed by scan root.
type Cache struct {
	db  *badger.DB
	dir string
}

// Open opens or creates a cache at the given directory. If the first
// attempt fails and the recorded owner process is gone, its lock is
// cleared and the open retried once. A live owner yields ErrCacheBusy.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		if recErr := recoverStaleLock(dir); recErr != nil {
			return nil, fmt.Errorf("%w: %w", recErr, err)
		}
		db, err = badger.Open(opts)
		if err != nil {
			return nil, err
		}
	}

	if err := writeOwner(dir); err != nil {
		logger.Debug("could not record cache owner", "dir", dir, "err", err)
	}
	return &Cache{db: db, dir: dir}, nil
}

// Close closes the cache.
func (c *Cache) Close() error {
	removeOwner(c.dir)
	return c.db.Close()
}

// Get retrieves the cached entry for a file.
func (c *Cache) Get(root, relPath string) (*Entry, error) {
	var entry Entry

	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(MakeKey(root, relPath))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(entry.Decode)
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// Touched returns, sorted, the paths in entries that are not cached or
// whose size or mtime differ from the cached value.
func (c *Cache) Touched(root string, entries map[string]Entry) ([]string, error) {
	var touched []string

	err := c.db.View(func(txn *badger.Txn) error {
		for relPath, cur := range entries {
			item, err := txn.Get(MakeKey(root, relPath))
			if errors.Is(err, badger.ErrKeyNotFound) {
				touched = append(touched, relPath)
				continue
			}
			if err != nil {
				return err
			}

			var prev Entry
			if err := item.Value(prev.Decode); err != nil {
				return err
			}
			if prev != cur {
				touched = append(touched, relPath)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(touched)
	return touched, nil
}

// Replace drops every entry under root and stores entries in their place.
func (c *Cache) Replace(root string, entries map[string]Entry) error {
	if err := c.Clear(root); err != nil {
		return err
	}

	wb := c.db.NewWriteBatch()
	defer wb.Cancel()

	for relPath, entry := range entries {
		value, err := entry.Encode()
		if err != nil {
			return err
		}
		if err := wb.Set(MakeKey(root, relPath), value); err != nil {
			return err
		}
	}

	return wb.Flush()
}

// Clear removes all entries for a root.
func (c *Cache) Clear(root string) error {
	return c.deletePrefix(MakeKeyPrefix(root))
}

// ClearAll removes every entry.
func (c *Cache) ClearAll() error {
	return c.db.DropAll()
}

// Count returns the number of entries cached for root.
func (c *Cache) Count(root string) (int, error) {
	prefix := MakeKeyPrefix(root)
	n := 0

	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// deletePrefix collects keys first, then deletes them in a write batch so
// large roots don't exceed a single transaction.
func (c *Cache) deletePrefix(prefix []byte) error {
	var keys [][]byte

	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		return nil
	})
	if err != nil {
		return err
	}

	wb := c.db.NewWriteBatch()
	defer wb.Cancel()

	for _, k := range keys {
		if err := wb.Delete(k); err != nil {
			return err
		}
	}
	return wb.Flush()
}
