package memory_test

import (
	"testing"

	"github.com/dukex/qmsflow/pkg/persistence"
	"github.com/dukex/qmsflow/pkg/persistence/memory"
	"github.com/dukex/qmsflow/pkg/testutil"
)

func TestStore_RecordStoreContract(t *testing.T) {
	testutil.RunRecordStoreSuite(t, func(t *testing.T) persistence.RecordStore {
		t.Helper()

		return memory.NewStore()
	})
}
