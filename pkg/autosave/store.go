package autosave

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
)

// FormatVersion is the current version of the saved format.
const FormatVersion = 1

// ErrUnknownBackend is returned by NewStore for unsupported backends.
var ErrUnknownBackend = errors.New("unknown autosave backend")

// Set is one saved snapshot.
type Set struct {
	// Version is the format version.
	Version int `json:"version"`

	// SavedAt is when the snapshot was taken.
	SavedAt time.Time `json:"saved_at"`

	// Values maps variable names to their encoded values.
	Values map[string]any `json:"values"`
}

// Store persists snapshots.
type Store interface {
	// Save replaces the stored snapshot.
	Save(ctx context.Context, set *Set) error

	// Load returns the stored snapshot, or nil if there is none.
	Load(ctx context.Context) (*Set, error)

	Close() error
}

var (
	_ Store = (*FileStore)(nil)
	_ Store = (*BadgerStore)(nil)
)

// NewStore creates the store for backend ("file" or "badger") with
// backend-specific options.
//
//	file:   path
//	badger: path, in_memory, sync_writes
func NewStore(backend string, options map[string]any) (Store, error) {
	switch backend {
	case "file", "":
		var cfg struct {
			Path string `mapstructure:"path"`
		}
		if err := mapstructure.Decode(options, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode file autosave config: %w", err)
		}
		if cfg.Path == "" {
			return nil, fmt.Errorf("file autosave: path is required")
		}
		return NewFileStore(cfg.Path), nil

	case "badger":
		var cfg BadgerConfig
		if err := mapstructure.Decode(options, &cfg); err != nil {
			return nil, fmt.Errorf("failed to decode badger autosave config: %w", err)
		}
		return NewBadgerStore(cfg)

	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, backend)
	}
}
