// Package entrycache persists generated zone entries in a badger database so
// that repeated generator runs over an unchanged source skip the search.
//
// Values are the entry's JSON encoding compressed with zstd.
package entrycache

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"github.com/klauspost/compress/zstd"

	"github.com/lattice-substrate/tz-validation/valdata"
)

const keyPrefix = "entry/"

// Cache is a sampler.Cache backed by badger.
type Cache struct {
	db      *badger.DB
	encoder *zstd.Encoder
	decoder *zstd.Decoder
}

// Open opens (creating if needed) the cache database in dir.
func Open(dir string) (*Cache, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	return open(opts)
}

// OpenInMemory returns a cache that lives only as long as the process.
func OpenInMemory() (*Cache, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts)
}

func open(opts badger.Options) (*Cache, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open entry cache: %w", err)
	}
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create encoder: %w", err)
	}
	decoder, err := zstd.NewReader(nil)
	if err != nil {
		encoder.Close()
		db.Close()
		return nil, fmt.Errorf("create decoder: %w", err)
	}
	return &Cache{db: db, encoder: encoder, decoder: decoder}, nil
}

// Get returns the entry stored under key.
func (c *Cache) Get(key string) (valdata.TestEntry, bool, error) {
	var raw []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keyPrefix + key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return valdata.TestEntry{}, false, nil
	}
	if err != nil {
		return valdata.TestEntry{}, false, fmt.Errorf("read %q: %w", key, err)
	}

	plain, err := c.decoder.DecodeAll(raw, nil)
	if err != nil {
		return valdata.TestEntry{}, false, fmt.Errorf("decompress %q: %w", key, err)
	}
	var entry valdata.TestEntry
	if err := json.Unmarshal(plain, &entry); err != nil {
		return valdata.TestEntry{}, false, fmt.Errorf("decode %q: %w", key, err)
	}
	if err := valdata.ValidateItems(entry.Transitions); err != nil {
		return valdata.TestEntry{}, false, fmt.Errorf("cached %q transitions: %w", key, err)
	}
	if err := valdata.ValidateItems(entry.Samples); err != nil {
		return valdata.TestEntry{}, false, fmt.Errorf("cached %q samples: %w", key, err)
	}
	return entry, true, nil
}

// Put stores entry under key, replacing any previous value.
func (c *Cache) Put(key string, entry valdata.TestEntry) error {
	plain, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("encode %q: %w", key, err)
	}
	packed := c.encoder.EncodeAll(plain, make([]byte, 0, len(plain)/4))
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyPrefix+key), packed)
	})
}

// Len returns the number of stored entries.
func (c *Cache) Len() (int, error) {
	n := 0
	err := c.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// Close releases the database and codecs.
func (c *Cache) Close() error {
	c.encoder.Close()
	c.decoder.Close()
	return c.db.Close()
}
