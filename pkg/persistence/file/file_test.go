package file

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/qmsflow/pkg/persistence"
	"github.com/dukex/qmsflow/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPersistence(t *testing.T) {
	fp := NewPersistence("/tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)

	// Test with file:// prefix
	fp = NewPersistence("file:///tmp/test")
	assert.Equal(t, "/tmp/test", fp.root)
}

func TestPersistence_Close(t *testing.T) {
	fp := NewPersistence("./test-data")
	err := fp.Close(t.Context())
	assert.NoError(t, err)
}

func TestPersistence_HealthCheck(t *testing.T) {
	fp := NewPersistence(t.TempDir())
	assert.NoError(t, fp.HealthCheck(t.Context()))

	missing := NewPersistence(filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, missing.HealthCheck(t.Context()), os.ErrNotExist)
}

func TestPersistence_RecordStoreContract(t *testing.T) {
	testutil.RunRecordStoreSuite(t, func(t *testing.T) persistence.RecordStore {
		t.Helper()

		return NewPersistence(t.TempDir())
	})
}

func TestPersistence_WritesOneFilePerTable(t *testing.T) {
	testDir := t.TempDir()
	fp := NewPersistence(testDir)

	_, err := fp.Insert(t.Context(), "capa_actions", persistence.Record{"status": "Open"})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(testDir, "tables", "capa_actions.json"))
	assert.NoFileExists(t, filepath.Join(testDir, "tables", "capa_actions.json.tmp"))
}

func TestPersistence_SurvivesReopen(t *testing.T) {
	testDir := t.TempDir()

	first := NewPersistence("file://" + testDir)

	row, err := first.Insert(t.Context(), "training_sessions", persistence.Record{"title": "Allergen handling"})
	require.NoError(t, err)

	second := NewPersistence(testDir)

	rows, err := second.Select(t.Context(), "training_sessions", persistence.Filter{"id": row.ID()})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Allergen handling", rows[0]["title"])
}

func TestPersistence_CorruptTableFile(t *testing.T) {
	testDir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(testDir, "tables"), 0750))
	require.NoError(t, os.WriteFile(filepath.Join(testDir, "tables", "audits.json"), []byte("{not json"), 0600))

	fp := NewPersistence(testDir)

	_, err := fp.Select(t.Context(), "audits", nil)
	require.Error(t, err)

	var storeErr *persistence.StoreError
	require.ErrorAs(t, err, &storeErr)
	assert.Equal(t, "select", storeErr.Op)
	assert.Equal(t, "audits", storeErr.Table)
}
