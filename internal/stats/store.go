package stats

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/leengari/query-advisor/internal/domain/catalog"
)

// Source supplies fresh statistics for a table. It is the injected
// boundary to whatever actually reads the underlying data; implementations
// may be backed by a live database or by a fixed catalog file. Sampling
// must be deterministic for unchanged underlying data.
type Source interface {
	Sample(table string) (*catalog.Table, error)
}

// Snapshot is an immutable view of the statistics at one point in time.
// Analyses read from a snapshot and are unaffected by later refreshes.
type Snapshot struct {
	tables  map[string]*catalog.Table
	takenAt time.Time
}

// Table returns the statistics for a table.
func (s *Snapshot) Table(name string) (*catalog.Table, error) {
	t, ok := s.tables[name]
	if !ok {
		return nil, &catalog.UnknownTableError{Table: name}
	}
	return t, nil
}

// ColumnStats returns the statistics for one column of a table.
func (s *Snapshot) ColumnStats(table, column string) (*catalog.Column, error) {
	t, err := s.Table(table)
	if err != nil {
		return nil, err
	}
	col, ok := t.Column(column)
	if !ok {
		return nil, &catalog.UnknownColumnError{Table: table, Column: column}
	}
	return col, nil
}

// TableNames returns the snapshot's table names in sorted order.
func (s *Snapshot) TableNames() []string {
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TakenAt returns when the snapshot was produced.
func (s *Snapshot) TakenAt() time.Time { return s.takenAt }

// Store holds the current statistics snapshot and produces new snapshots
// on refresh. Refreshing replaces the snapshot wholesale instead of
// mutating it, so concurrent analyses keep reading a consistent view.
type Store struct {
	mu      sync.RWMutex
	source  Source
	current *Snapshot
	logger  *slog.Logger
}

// NewStore creates a store reading fresh statistics from source.
func NewStore(source Source, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		source:  source,
		current: &Snapshot{tables: map[string]*catalog.Table{}, takenAt: time.Now()},
		logger:  logger,
	}
}

// Load seeds the store with an initial set of tables.
func (st *Store) Load(tables []*catalog.Table) {
	next := make(map[string]*catalog.Table, len(tables))
	for _, t := range tables {
		next[t.Name] = t.Clone()
	}
	st.mu.Lock()
	st.current = &Snapshot{tables: next, takenAt: time.Now()}
	st.mu.Unlock()

	st.logger.Info("statistics loaded", slog.Int("table_count", len(tables)))
}

// Snapshot returns the current immutable snapshot.
func (st *Store) Snapshot() *Snapshot {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.current
}

// Refresh re-samples one table's statistics and installs a new snapshot
// containing the result. The previous snapshot is left untouched.
// Refreshing twice with no underlying data change yields identical
// estimates because Source sampling is deterministic.
func (st *Store) Refresh(table string) error {
	if st.source == nil {
		return fmt.Errorf("refresh %s: store has no statistics source", table)
	}

	fresh, err := st.source.Sample(table)
	if err != nil {
		return fmt.Errorf("refresh %s: %w", table, err)
	}

	st.mu.Lock()
	defer st.mu.Unlock()

	if _, ok := st.current.tables[table]; !ok {
		return &catalog.UnknownTableError{Table: table}
	}

	// Copy-on-refresh: rebuild the table map so in-flight analyses holding
	// the old snapshot never observe the new estimates.
	next := make(map[string]*catalog.Table, len(st.current.tables))
	for name, t := range st.current.tables {
		next[name] = t
	}
	next[table] = fresh.Clone()
	st.current = &Snapshot{tables: next, takenAt: time.Now()}

	st.logger.Info("statistics refreshed",
		slog.String("table", table),
		slog.Int64("row_count", fresh.RowCount),
	)

	return nil
}
