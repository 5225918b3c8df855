package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/qmsflow/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		notFound := persistence.NewStoreError("update", "capa_actions", persistence.ErrNotFound)
		invalid := persistence.NewStoreError("select", "bad table", persistence.ErrInvalidTable)

		assert.True(t, persistence.IsNotFound(notFound))
		assert.False(t, persistence.IsNotFound(invalid))
		assert.True(t, persistence.IsInvalidTable(invalid))

		assert.True(t, errors.Is(fmt.Errorf("wrapped: %w", notFound), persistence.ErrNotFound))
	})

	t.Run("store error contains context", func(t *testing.T) {
		err := persistence.NewStoreError("insert", "non_conformances", errors.New("connection reset"))

		assert.Contains(t, err.Error(), "insert")
		assert.Contains(t, err.Error(), "non_conformances")
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestValidateTable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		table string
		valid bool
	}{
		{"capa_actions", true},
		{"module_relationships", true},
		{"_private", true},
		{"", false},
		{"Capa", false},
		{"../etc/passwd", false},
		{"capa; DROP TABLE records; --", false},
		{"1table", false},
	}

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			err := persistence.ValidateTable(tt.table)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, persistence.ErrInvalidTable)
			}
		})
	}
}

func TestFilter_Matches(t *testing.T) {
	t.Parallel()

	row := persistence.Record{"id": "nc-1", "severity": "critical", "score": float64(3)}

	assert.True(t, persistence.Filter{}.Matches(row))
	assert.True(t, persistence.Filter{"id": "nc-1"}.Matches(row))
	assert.True(t, persistence.Filter{"score": 3}.Matches(row))
	assert.False(t, persistence.Filter{"id": "nc-1", "severity": "minor"}.Matches(row))
	assert.False(t, persistence.Filter{"missing": "x"}.Matches(row))
}

func TestPrepareInsert(t *testing.T) {
	t.Parallel()

	original := persistence.Record{"title": "Temperature excursion"}

	stored, err := persistence.PrepareInsert("non_conformances", original)
	require.NoError(t, err)
	assert.NotEmpty(t, stored.ID())
	assert.Empty(t, original.ID(), "input row must not be mutated")

	kept, err := persistence.PrepareInsert("non_conformances", persistence.Record{"id": "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", kept.ID())

	_, err = persistence.PrepareInsert("Bad-Table", original)
	assert.ErrorIs(t, err, persistence.ErrInvalidTable)
}

func TestRecord_FromStructAndDecode(t *testing.T) {
	t.Parallel()

	type capa struct {
		ID       string `json:"id"`
		Priority string `json:"priority"`
		Score    int    `json:"score"`
	}

	record, err := persistence.FromStruct(capa{ID: "c1", Priority: "High", Score: 4})
	require.NoError(t, err)
	assert.Equal(t, "c1", record.ID())
	assert.Equal(t, "High", record["priority"])

	var decoded capa
	require.NoError(t, record.Decode(&decoded))
	assert.Equal(t, capa{ID: "c1", Priority: "High", Score: 4}, decoded)
}
