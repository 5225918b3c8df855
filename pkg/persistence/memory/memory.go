// Package memory provides an in-process record store.
package memory

import (
	"context"
	"sync"

	"github.com/dukex/qmsflow/pkg/persistence"
)

// Store keeps every table in memory. Rows are copied on the way in and out.
type Store struct {
	mu     sync.RWMutex
	tables map[string][]persistence.Record
}

// NewStore creates an empty in-memory record store.
func NewStore() *Store {
	return &Store{tables: make(map[string][]persistence.Record)}
}

func (s *Store) Select(_ context.Context, table string, filter persistence.Filter) ([]persistence.Record, error) {
	if err := persistence.ValidateTable(table); err != nil {
		return nil, persistence.NewStoreError("select", table, err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := make([]persistence.Record, 0)

	for _, row := range s.tables[table] {
		if filter.Matches(row) {
			rows = append(rows, row.Clone())
		}
	}

	return rows, nil
}

func (s *Store) Insert(_ context.Context, table string, row persistence.Record) (persistence.Record, error) {
	stored, err := persistence.PrepareInsert(table, row)
	if err != nil {
		return nil, persistence.NewStoreError("insert", table, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables[table] = append(s.tables[table], stored)

	return stored.Clone(), nil
}

func (s *Store) Update(_ context.Context, table string, patch persistence.Record, filter persistence.Filter) ([]persistence.Record, error) {
	if err := persistence.ValidateTable(table); err != nil {
		return nil, persistence.NewStoreError("update", table, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var updated []persistence.Record

	for _, row := range s.tables[table] {
		if !filter.Matches(row) {
			continue
		}

		for k, v := range patch.Clone() {
			row[k] = v
		}

		updated = append(updated, row.Clone())
	}

	if len(updated) == 0 {
		return nil, persistence.NewStoreError("update", table, persistence.ErrNotFound)
	}

	return updated, nil
}

func (s *Store) HealthCheck(_ context.Context) error {
	return nil
}

func (s *Store) Close(_ context.Context) error {
	return nil
}
