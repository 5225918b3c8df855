// Package file provides a file-based record store. Each table is kept as one
// JSON document under <root>/tables.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/qmsflow/pkg/persistence"
)

// Persistence implements persistence.RecordStore on the file system.
type Persistence struct {
	root string
	mu   sync.RWMutex
}

// NewPersistence creates a file record store rooted at root. A "file://" prefix is accepted.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{root: cleanRoot}
}

// Close performs any necessary cleanup. For file-based persistence, there is nothing to clean up.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// HealthCheck checks if the file persistence layer is healthy by verifying the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (fp *Persistence) Select(_ context.Context, table string, filter persistence.Filter) ([]persistence.Record, error) {
	if err := persistence.ValidateTable(table); err != nil {
		return nil, persistence.NewStoreError("select", table, err)
	}

	fp.mu.RLock()
	defer fp.mu.RUnlock()

	rows, err := fp.load(table)
	if err != nil {
		return nil, persistence.NewStoreError("select", table, err)
	}

	matched := make([]persistence.Record, 0)

	for _, row := range rows {
		if filter.Matches(row) {
			matched = append(matched, row)
		}
	}

	return matched, nil
}

func (fp *Persistence) Insert(_ context.Context, table string, row persistence.Record) (persistence.Record, error) {
	stored, err := persistence.PrepareInsert(table, row)
	if err != nil {
		return nil, persistence.NewStoreError("insert", table, err)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	rows, err := fp.load(table)
	if err != nil {
		return nil, persistence.NewStoreError("insert", table, err)
	}

	rows = append(rows, stored)

	if err := fp.save(table, rows); err != nil {
		return nil, persistence.NewStoreError("insert", table, err)
	}

	return stored.Clone(), nil
}

func (fp *Persistence) Update(_ context.Context, table string, patch persistence.Record, filter persistence.Filter) ([]persistence.Record, error) {
	if err := persistence.ValidateTable(table); err != nil {
		return nil, persistence.NewStoreError("update", table, err)
	}

	fp.mu.Lock()
	defer fp.mu.Unlock()

	rows, err := fp.load(table)
	if err != nil {
		return nil, persistence.NewStoreError("update", table, err)
	}

	var updated []persistence.Record

	for _, row := range rows {
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

	if err := fp.save(table, rows); err != nil {
		return nil, persistence.NewStoreError("update", table, err)
	}

	return updated, nil
}

func (fp *Persistence) tablePath(table string) string {
	return filepath.Join(fp.root, "tables", table+".json")
}

func (fp *Persistence) load(table string) ([]persistence.Record, error) {
	data, err := os.ReadFile(fp.tablePath(table))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return make([]persistence.Record, 0), nil
		}

		return nil, fmt.Errorf("failed to read table file: %w", err)
	}

	var rows []persistence.Record

	err = json.Unmarshal(data, &rows)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal table file: %w", err)
	}

	return rows, nil
}

func (fp *Persistence) save(table string, rows []persistence.Record) error {
	err := os.MkdirAll(filepath.Join(fp.root, "tables"), 0750)
	if err != nil {
		return fmt.Errorf("failed to create tables directory: %w", err)
	}

	data, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal table: %w", err)
	}

	tmp := fp.tablePath(table) + ".tmp"

	err = os.WriteFile(tmp, data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write table file: %w", err)
	}

	return os.Rename(tmp, fp.tablePath(table))
}
