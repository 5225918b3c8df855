package testutil

import (
	"context"
	"testing"

	"github.com/dukex/qmsflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRecordStoreSuite exercises the persistence.RecordStore contract against a
// fresh store built by newStore for every subtest.
func RunRecordStoreSuite(t *testing.T, newStore func(t *testing.T) persistence.RecordStore) {
	t.Helper()

	t.Run("insert assigns id and select returns row", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		row, err := store.Insert(ctx, "non_conformances", persistence.Record{
			"title":    "Metal fragment found",
			"severity": "critical",
		})
		require.NoError(t, err)
		require.NotEmpty(t, row.ID())

		rows, err := store.Select(ctx, "non_conformances", persistence.Filter{"id": row.ID()})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Metal fragment found", rows[0]["title"])
		assert.Equal(t, "critical", rows[0]["severity"])
	})

	t.Run("select on empty table returns empty slice", func(t *testing.T) {
		store := newStore(t)

		rows, err := store.Select(context.Background(), "complaints", nil)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})

	t.Run("select filters by every pair", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		for _, row := range []persistence.Record{
			{"source_id": "a", "source_type": "audit-finding", "target_type": "non-conformance"},
			{"source_id": "a", "source_type": "audit-finding", "target_type": "capa"},
			{"source_id": "b", "source_type": "audit-finding", "target_type": "capa"},
		} {
			_, err := store.Insert(ctx, "module_relationships", row)
			require.NoError(t, err)
		}

		rows, err := store.Select(ctx, "module_relationships", persistence.Filter{"source_id": "a"})
		require.NoError(t, err)
		assert.Len(t, rows, 2)

		rows, err = store.Select(ctx, "module_relationships", persistence.Filter{"source_id": "a", "target_type": "capa"})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "capa", rows[0]["target_type"])
	})

	t.Run("update merges patch into matching rows", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		row, err := store.Insert(ctx, "capa_actions", persistence.Record{"status": "Open", "priority": "Medium"})
		require.NoError(t, err)

		updated, err := store.Update(ctx, "capa_actions",
			persistence.Record{"status": "Overdue", "priority": "Critical"},
			persistence.Filter{"id": row.ID()})
		require.NoError(t, err)
		require.Len(t, updated, 1)
		assert.Equal(t, "Overdue", updated[0]["status"])

		rows, err := store.Select(ctx, "capa_actions", persistence.Filter{"id": row.ID()})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Critical", rows[0]["priority"])
		assert.Equal(t, row.ID(), rows[0].ID())
	})

	t.Run("update without match returns not found", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Update(context.Background(), "capa_actions",
			persistence.Record{"status": "Closed"}, persistence.Filter{"id": "missing"})
		require.Error(t, err)
		assert.True(t, persistence.IsNotFound(err))
	})

	t.Run("invalid table is rejected", func(t *testing.T) {
		store := newStore(t)

		_, err := store.Insert(context.Background(), "capa; drop", persistence.Record{})
		assert.True(t, persistence.IsInvalidTable(err))

		_, err = store.Select(context.Background(), "../x", nil)
		assert.True(t, persistence.IsInvalidTable(err))
	})

	t.Run("returned rows do not alias stored rows", func(t *testing.T) {
		store := newStore(t)
		ctx := context.Background()

		row, err := store.Insert(ctx, "audits", persistence.Record{"title": "Annual GMP"})
		require.NoError(t, err)

		row["title"] = "mutated"

		rows, err := store.Select(ctx, "audits", persistence.Filter{"id": row.ID()})
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "Annual GMP", rows[0]["title"])
	})
}
