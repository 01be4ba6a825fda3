package autosave

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/softioc/softioc-go/pkg/pv"
	"github.com/softioc/softioc-go/pkg/timestamp"
)

// DefaultPeriod is the save interval used when none is configured.
const DefaultPeriod = 30 * time.Second

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	// Period between saves (default DefaultPeriod).
	Period time.Duration

	// Clock stamps SavedAt (default system clock).
	Clock timestamp.Clock

	Logger *slog.Logger
}

// Manager saves and restores a fixed set of variables.
type Manager struct {
	store  Store
	vars   []pv.ProcessVariable
	period time.Duration
	clock  timestamp.Clock
	logger *slog.Logger
}

// NewManager creates a manager for vars backed by store.
func NewManager(store Store, vars []pv.ProcessVariable, cfg ManagerConfig) *Manager {
	if cfg.Period <= 0 {
		cfg.Period = DefaultPeriod
	}
	if cfg.Clock == nil {
		cfg.Clock = timestamp.SystemClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Manager{
		store:  store,
		vars:   vars,
		period: cfg.Period,
		clock:  cfg.Clock,
		logger: cfg.Logger.With("component", "autosave"),
	}
}

// Snapshot captures the current value of every variable.
func (m *Manager) Snapshot() *Set {
	set := &Set{
		Version: FormatVersion,
		SavedAt: m.clock.Now(),
		Values:  make(map[string]any, len(m.vars)),
	}
	for _, v := range m.vars {
		set.Values[v.Name()] = v.Peek().Value
	}
	return set
}

// Save stores a snapshot.
func (m *Manager) Save(ctx context.Context) error {
	if err := m.store.Save(ctx, m.Snapshot()); err != nil {
		return fmt.Errorf("autosave: %w", err)
	}
	m.logger.Debug("values saved", "count", len(m.vars))
	return nil
}

// Restore applies the stored snapshot and returns how many variables were
// restored. A missing snapshot restores nothing.
func (m *Manager) Restore(ctx context.Context) (int, error) {
	set, err := m.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("autosave: %w", err)
	}
	if set == nil {
		m.logger.Info("no saved values")
		return 0, nil
	}

	restored := 0
	served := make(map[string]struct{}, len(m.vars))
	for _, v := range m.vars {
		served[v.Name()] = struct{}{}
		value, ok := set.Values[v.Name()]
		if !ok {
			continue
		}
		if err := v.Put(value); err != nil {
			m.logger.Warn("saved value rejected", "pv", v.Name(), "error", err)
			continue
		}
		restored++
	}
	for name := range set.Values {
		if _, ok := served[name]; !ok {
			m.logger.Warn("saved value for unknown pv", "pv", name)
		}
	}
	m.logger.Info("values restored", "count", restored, "saved_at", set.SavedAt)
	return restored, nil
}

// Run saves every period until ctx is done, then saves once more.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.Save(ctx); err != nil {
				m.logger.Warn("periodic save failed", "error", err)
			}
		case <-ctx.Done():
			return m.Save(context.WithoutCancel(ctx))
		}
	}
}
