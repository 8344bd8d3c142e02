// Package memory provides an in-memory tabular.Store (for testing/dev).
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/lotbook/stock-engine/tabular"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu     sync.RWMutex
	tables map[string][][]string
}

func New() *Store {
	return &Store{tables: make(map[string][][]string)}
}

func (s *Store) CreateTable(_ context.Context, table string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[table]; ok {
		return tabular.ErrTableExists
	}
	s.tables[table] = nil
	return nil
}

func (s *Store) Tables(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (s *Store) ReadRange(_ context.Context, table, rng string) ([][]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, ok := s.tables[table]
	if !ok {
		return nil, tabular.ErrTableNotFound
	}

	r, err := tabular.ParseRange(rng)
	if err != nil {
		return nil, err
	}

	startRow := r.StartRow
	if startRow == 0 {
		startRow = 1
	}
	endRow := r.EndRow
	if endRow == 0 || endRow > len(rows) {
		endRow = len(rows)
	}

	var out [][]string
	for i := startRow; i <= endRow; i++ {
		out = append(out, tabular.ClipCells(rows[i-1], r))
	}
	return out, nil
}

func (s *Store) WriteRange(_ context.Context, table, rng string, rows [][]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeLocked(table, rng, rows)
}

func (s *Store) AppendRow(_ context.Context, table string, row []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tables[table]
	if !ok {
		return tabular.ErrTableNotFound
	}
	next := len(existing) + 1
	return s.writeLocked(table, tabular.RowSpan(next, len(row)), [][]string{row})
}

func (s *Store) writeLocked(table, rng string, rows [][]string) error {
	stored, ok := s.tables[table]
	if !ok {
		return tabular.ErrTableNotFound
	}

	r, err := tabular.ParseRange(rng)
	if err != nil {
		return err
	}
	startRow := r.StartRow
	if startRow == 0 {
		startRow = 1
	}
	startCol := r.StartCol
	if startCol == 0 {
		startCol = 1
	}

	for i, row := range rows {
		rowIdx := startRow + i
		for rowIdx > len(stored) {
			stored = append(stored, nil)
		}
		cells := stored[rowIdx-1]
		for j, cell := range row {
			colIdx := startCol + j
			for colIdx > len(cells) {
				cells = append(cells, "")
			}
			cells[colIdx-1] = cell
		}
		stored[rowIdx-1] = cells
	}

	s.tables[table] = stored
	return nil
}
