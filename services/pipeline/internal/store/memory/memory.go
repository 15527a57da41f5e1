// Package memory keeps tables in process memory.
package memory

import (
	"context"
	"fmt"
	"sync"

	"jobmart/services/pipeline/internal/errors"
	"jobmart/services/pipeline/internal/table"
)

type Store struct {
	mu     sync.RWMutex
	tables map[string]*table.Table
}

func New() *Store {
	return &Store{tables: make(map[string]*table.Table)}
}

func (s *Store) Replace(_ context.Context, t *table.Table) error {
	c := clone(t)
	s.mu.Lock()
	s.tables[t.Schema.FullName()] = c
	s.mu.Unlock()
	return nil
}

func (s *Store) Read(_ context.Context, schema table.Schema) (*table.Table, error) {
	s.mu.RLock()
	t, ok := s.tables[schema.FullName()]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.NotFound(fmt.Sprintf("table %s does not exist", schema.FullName()), nil)
	}
	return clone(t), nil
}

// Tables lists the stored table names.
func (s *Store) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	return names
}

func (s *Store) Close() error {
	return nil
}

func clone(t *table.Table) *table.Table {
	out := &table.Table{Schema: t.Schema, Rows: make([][]any, len(t.Rows))}
	for i, row := range t.Rows {
		c := make([]any, len(row))
		for j, v := range row {
			if arr, ok := v.([]string); ok {
				v = append([]string{}, arr...)
			}
			c[j] = v
		}
		out.Rows[i] = c
	}
	return out
}
