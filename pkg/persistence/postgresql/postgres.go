// Package postgresql provides a PostgreSQL record store. Every logical table is
// kept in a single JSONB-backed records table keyed by (table_name, id).
package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/qmsflow/pkg/persistence"
	"github.com/dukex/qmsflow/pkg/persistence/sqlbase"
	_ "github.com/lib/pq"
)

// Persistence implements persistence.RecordStore for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence creates a new PostgreSQL persistence layer.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	postgres := &Persistence{
		db:     database,
		logger: logger.With("module", "postgresql"),
	}

	// Run migrations on initialization
	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres, nil
}

// Close closes the database connection.
func (p *Persistence) Close(ctx context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Select returns the rows of table whose data contains every filter pair.
func (p *Persistence) Select(ctx context.Context, table string, filter persistence.Filter) ([]persistence.Record, error) {
	if err := persistence.ValidateTable(table); err != nil {
		return nil, persistence.NewStoreError("select", table, err)
	}

	filterJSON, err := marshalObject(filter)
	if err != nil {
		return nil, persistence.NewStoreError("select", table, err)
	}

	query := `
		SELECT data
		FROM records
		WHERE table_name = $1
		  AND data @> $2::jsonb
		ORDER BY created_at, id
	`

	rows, err := p.db.QueryContext(ctx, query, table, filterJSON)
	if err != nil {
		return nil, persistence.NewStoreError("select", table, fmt.Errorf("failed to query records: %w", err))
	}

	records, err := p.scanRecords(ctx, rows)
	if err != nil {
		return nil, persistence.NewStoreError("select", table, err)
	}

	return records, nil
}

// Insert stores row under table, assigning an id when the row carries none.
func (p *Persistence) Insert(ctx context.Context, table string, row persistence.Record) (persistence.Record, error) {
	stored, err := persistence.PrepareInsert(table, row)
	if err != nil {
		return nil, persistence.NewStoreError("insert", table, err)
	}

	data, err := marshalObject(stored)
	if err != nil {
		return nil, persistence.NewStoreError("insert", table, err)
	}

	query := `INSERT INTO records (table_name, id, data) VALUES ($1, $2, $3::jsonb)`

	_, err = p.db.ExecContext(ctx, query, table, stored.ID(), data)
	if err != nil {
		return nil, persistence.NewStoreError("insert", table, fmt.Errorf("failed to insert record: %w", err))
	}

	return stored, nil
}

// Update merges patch into every row of table matching filter.
func (p *Persistence) Update(ctx context.Context, table string, patch persistence.Record, filter persistence.Filter) ([]persistence.Record, error) {
	if err := persistence.ValidateTable(table); err != nil {
		return nil, persistence.NewStoreError("update", table, err)
	}

	// the id column mirrors data->>'id' and must not drift
	patch = patch.Clone()
	delete(patch, "id")

	patchJSON, err := marshalObject(patch)
	if err != nil {
		return nil, persistence.NewStoreError("update", table, err)
	}

	filterJSON, err := marshalObject(filter)
	if err != nil {
		return nil, persistence.NewStoreError("update", table, err)
	}

	query := `
		UPDATE records
		SET data = data || $3::jsonb
		  , updated_at = NOW()
		WHERE table_name = $1
		  AND data @> $2::jsonb
		RETURNING data
	`

	rows, err := p.db.QueryContext(ctx, query, table, filterJSON, patchJSON)
	if err != nil {
		return nil, persistence.NewStoreError("update", table, fmt.Errorf("failed to update records: %w", err))
	}

	records, err := p.scanRecords(ctx, rows)
	if err != nil {
		return nil, persistence.NewStoreError("update", table, err)
	}

	if len(records) == 0 {
		return nil, persistence.NewStoreError("update", table, persistence.ErrNotFound)
	}

	return records, nil
}

func (p *Persistence) scanRecords(ctx context.Context, rows *sql.Rows) ([]persistence.Record, error) {
	defer func() {
		err := rows.Close()
		if err != nil {
			p.logger.ErrorContext(ctx, "failed to close rows", "error", err)
		}
	}()

	records := make([]persistence.Record, 0)

	for rows.Next() {
		var raw []byte

		err := rows.Scan(&raw)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}

		var record persistence.Record

		err = json.Unmarshal(raw, &record)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}

		records = append(records, record)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating records: %w", err)
	}

	return records, nil
}

func marshalObject[M ~map[string]any](m M) (string, error) {
	if m == nil {
		return "{}", nil
	}

	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to marshal json: %w", err)
	}

	return string(data), nil
}
