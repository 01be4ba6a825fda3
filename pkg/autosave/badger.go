package autosave

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/dgraph-io/badger/v4/options"
)

// Key layout:
//
//	pv/<name>      JSON-encoded value
//	meta/saved_at  RFC 3339 timestamp
//	meta/version   format version
const (
	prefixValue = "pv/"
	keySavedAt  = "meta/saved_at"
	keyVersion  = "meta/version"
)

// BadgerConfig configures a BadgerStore.
type BadgerConfig struct {
	// Path is the database directory. Required unless InMemory is set.
	Path string `mapstructure:"path"`

	// InMemory keeps the database in memory only.
	InMemory bool `mapstructure:"in_memory"`

	// SyncWrites fsyncs every commit.
	SyncWrites bool `mapstructure:"sync_writes"`
}

// BadgerStore keeps one key per variable in a badger database.
type BadgerStore struct {
	db *badger.DB
}

// NewBadgerStore opens the database.
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	var opts badger.Options
	switch {
	case cfg.InMemory:
		opts = badger.DefaultOptions("").WithInMemory(true)
	case cfg.Path != "":
		opts = badger.DefaultOptions(cfg.Path)
	default:
		return nil, fmt.Errorf("badger autosave: path is required")
	}
	opts = opts.WithLoggingLevel(badger.WARNING).
		WithCompression(options.None).
		WithSyncWrites(cfg.SyncWrites)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.Path, err)
	}
	return &BadgerStore{db: db}, nil
}

// Save writes set in one transaction, dropping values of names not in set.
func (s *BadgerStore) Save(ctx context.Context, set *Set) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		stale, err := valueKeys(txn)
		if err != nil {
			return err
		}
		for name, value := range set.Values {
			data, err := json.Marshal(value)
			if err != nil {
				return fmt.Errorf("encode %s: %w", name, err)
			}
			key := prefixValue + name
			delete(stale, key)
			if err := txn.Set([]byte(key), data); err != nil {
				return err
			}
		}
		for key := range stale {
			if err := txn.Delete([]byte(key)); err != nil {
				return err
			}
		}
		if err := txn.Set([]byte(keySavedAt), []byte(set.SavedAt.UTC().Format(time.RFC3339Nano))); err != nil {
			return err
		}
		return txn.Set([]byte(keyVersion), []byte(fmt.Sprint(set.Version)))
	})
}

// Load reads all saved values. Returns nil, nil for an empty database.
func (s *BadgerStore) Load(ctx context.Context) (*Set, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var set *Set
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(keySavedAt))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		set = &Set{Version: FormatVersion, Values: make(map[string]any)}
		if err := item.Value(func(val []byte) error {
			set.SavedAt, err = time.Parse(time.RFC3339Nano, string(val))
			return err
		}); err != nil {
			return fmt.Errorf("decode saved_at: %w", err)
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefixValue)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			name := string(item.Key()[len(prefixValue):])
			err := item.Value(func(val []byte) error {
				var v any
				if err := json.Unmarshal(val, &v); err != nil {
					return err
				}
				set.Values[name] = v
				return nil
			})
			if err != nil {
				return fmt.Errorf("decode %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return set, nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func valueKeys(txn *badger.Txn) (map[string]struct{}, error) {
	keys := make(map[string]struct{})
	opts := badger.DefaultIteratorOptions
	opts.Prefix = []byte(prefixValue)
	opts.PrefetchValues = false
	it := txn.NewIterator(opts)
	defer it.Close()
	for it.Rewind(); it.Valid(); it.Next() {
		keys[string(it.Item().KeyCopy(nil))] = struct{}{}
	}
	return keys, nil
}
