// Package cache keeps a local copy of the whole collection in an embedded badger database.
//
// The collection is stored as one JSON blob under a single versioned key. Changing the
// canonical shape incompatibly means bumping the key; data under older keys is left behind.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"bookshelf/internal/models"
	"bookshelf/internal/normalize"
)

// Key is the badger key holding the collection blob
const Key = "bookshelf:collection:v4"

// blob is the stored shape. Entries stay raw so every one can go through the normalizer.
type blob struct {
	SchemaVersion int               `json:"schemaVersion,omitempty"`
	Owned         []json.RawMessage `json:"owned"`
	PassedAlong   []json.RawMessage `json:"passedAlong"`
	Ebook         []json.RawMessage `json:"ebook"`
}

// Cache implements storage.Cache on badger. A Cache without a database is disabled.
type Cache struct {
	db  *badger.DB
	log *zap.Logger
}

// Open opens (or creates) the cache database in dir
func Open(dir string, log *zap.Logger) (*Cache, error) {
	return open(badger.DefaultOptions(dir), log)
}

// InMemory opens a cache that lives only as long as the process
func InMemory(log *zap.Logger) (*Cache, error) {
	return open(badger.DefaultOptions("").WithInMemory(true), log)
}

// Disabled returns a cache that stores nothing: Save is a no-op and Load is always empty
func Disabled() *Cache {
	return &Cache{log: zap.NewNop()}
}

func open(opts badger.Options, log *zap.Logger) (*Cache, error) {
	if log == nil {
		log = zap.NewNop()
	}
	opts.Logger = nil
	opts.SyncWrites = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache db: %w", err)
	}
	return &Cache{db: db, log: log.Named("cache")}, nil
}

// Enabled reports whether the cache is backed by a database
func (c *Cache) Enabled() bool {
	return c.db != nil
}

// Load reads the collection. A missing or unreadable blob yields an empty collection.
func (c *Cache) Load() models.Collection {
	if c.db == nil {
		return models.NewCollection()
	}

	var data []byte
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(Key))
		if err != nil {
			return err
		}
		data, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.log.Warn("Failed to read cached collection", zap.Error(err))
		}
		return models.NewCollection()
	}

	return c.decode(data)
}

func (c *Cache) decode(data []byte) models.Collection {
	var b blob
	if err := json.Unmarshal(data, &b); err != nil {
		c.log.Warn("Discarding unparseable cached collection", zap.Error(err))
		return models.NewCollection()
	}

	version := b.SchemaVersion
	if version < 1 {
		version = 1
	}

	out := models.NewCollection()
	for g, entries := range map[models.Group][]json.RawMessage{
		models.GroupOwned:       b.Owned,
		models.GroupPassedAlong: b.PassedAlong,
		models.GroupEbook:       b.Ebook,
	} {
		items := make([]models.Item, 0, len(entries))
		for _, entry := range entries {
			var raw normalize.Raw
			if err := json.Unmarshal(entry, &raw); err != nil || raw == nil {
				continue
			}
			item := normalize.NormalizeFrom(version, raw)
			// The array an entry was stored in decides its group
			item.Ownership = g.Ownership()
			if item.ID == "" {
				item.ID = item.ISBN
			}
			if item.ID == "" {
				item.ID = models.NewLocalID()
			}
			items = append(items, item)
		}
		out.SetGroup(g, items)
	}
	return out
}

// Save overwrites the stored blob with the whole collection
func (c *Cache) Save(col models.Collection) error {
	if c.db == nil {
		return nil
	}

	data, err := encode(col)
	if err != nil {
		return err
	}

	err = c.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(Key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to save collection: %w", err)
	}
	return nil
}

func encode(col models.Collection) ([]byte, error) {
	col = col.Clone()
	data, err := json.Marshal(struct {
		SchemaVersion int           `json:"schemaVersion"`
		Owned         []models.Item `json:"owned"`
		PassedAlong   []models.Item `json:"passedAlong"`
		Ebook         []models.Item `json:"ebook"`
	}{
		SchemaVersion: normalize.CurrentVersion,
		Owned:         col.Owned,
		PassedAlong:   col.PassedAlong,
		Ebook:         col.Ebook,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal collection: %w", err)
	}
	return data, nil
}

// Close releases the database
func (c *Cache) Close() error {
	if c.db == nil {
		return nil
	}
	return c.db.Close()
}
