// Package persistence defines the table-oriented record store the automation core
// reads from and writes to.
package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/dukex/qmsflow/pkg/models"
	"github.com/google/uuid"
)

// Record is a single row, keyed by column name.
type Record map[string]any

// ID returns the record's "id" column as a string, or "" when absent.
func (r Record) ID() string {
	return models.StringOf(r["id"])
}

// Clone deep-copies the record.
func (r Record) Clone() Record {
	return Record(models.CloneData(r))
}

// Filter selects records whose columns equal every given value. An empty
// filter matches every record.
type Filter map[string]any

// Matches reports whether the record satisfies the filter.
func (f Filter) Matches(r Record) bool {
	for column, want := range f {
		if !models.ValuesEqual(want, r[column]) {
			return false
		}
	}

	return true
}

// RecordStore is the record store contract. Implementations must be safe for
// concurrent use.
type RecordStore interface {
	Select(ctx context.Context, table string, filter Filter) ([]Record, error)
	// Insert stores row, assigning an "id" when the row has none, and returns the stored row.
	Insert(ctx context.Context, table string, row Record) (Record, error)
	// Update merges patch into every row matching filter and returns the updated rows.
	// It fails with ErrNotFound when nothing matched.
	Update(ctx context.Context, table string, patch Record, filter Filter) ([]Record, error)
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

var tableNamePattern = regexp.MustCompile(`^[a-z_][a-z0-9_]{0,62}$`)

// ValidateTable rejects table names that are unsafe as file names or SQL identifiers.
func ValidateTable(table string) error {
	if !tableNamePattern.MatchString(table) {
		return ErrInvalidTable
	}

	return nil
}

// PrepareInsert validates the table and returns a copy of row with an id.
func PrepareInsert(table string, row Record) (Record, error) {
	if err := ValidateTable(table); err != nil {
		return nil, err
	}

	stored := row.Clone()
	if stored == nil {
		stored = Record{}
	}

	if stored.ID() == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}

		stored["id"] = id.String()
	}

	return stored, nil
}

// FromStruct converts a JSON-tagged value into a Record.
func FromStruct(v any) (Record, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}

	var record Record

	err = json.Unmarshal(data, &record)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	return record, nil
}

// Decode fills the JSON-tagged value pointed to by out from the record.
func (r Record) Decode(out any) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	err = json.Unmarshal(data, out)
	if err != nil {
		return fmt.Errorf("failed to decode record: %w", err)
	}

	return nil
}
