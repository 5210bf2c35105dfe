package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowcanvas/flowcanvas/internal/storage"
	"github.com/flowcanvas/flowcanvas/internal/storage/storagetest"
)

// Set FLOWCANVAS_TEST_DATABASE_URL to a disposable database to run these.
func setupTestStore(t *testing.T) *PGStore {
	t.Helper()
	url := os.Getenv("FLOWCANVAS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("FLOWCANVAS_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	store, err := Open(ctx, url)
	require.NoError(t, err)
	require.NoError(t, store.DropSchema(ctx))
	require.NoError(t, store.Init(ctx))
	t.Cleanup(func() {
		_ = store.DropSchema(context.Background())
		store.Close()
	})
	return store
}

func TestStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return setupTestStore(t)
	})
}
