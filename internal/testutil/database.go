// Package testutil provides shared helpers for tests that need real
// storage.
package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matchflow/matchflow/internal/storage"
)

// NewTestStorage returns a migrated in-memory SQLite storage that is closed
// when the test finishes.
func NewTestStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err, "failed to create test storage")
	t.Cleanup(func() { _ = store.Close() })

	err = store.Migrate(context.Background())
	require.NoError(t, err, "failed to migrate test storage")

	return store
}
