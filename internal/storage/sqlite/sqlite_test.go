package sqlite

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/flowcanvas/flowcanvas/internal/storage"
	"github.com/flowcanvas/flowcanvas/internal/storage/storagetest"
)

func setupTestDB(t *testing.T) *SQLiteStorage {
	t.Helper()
	tmpFile, err := os.CreateTemp("", "flowcanvas-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	tmpFile.Close()
	t.Cleanup(func() { os.Remove(tmpFile.Name()) })

	store, err := New(tmpFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	if err := store.Init(context.Background()); err != nil {
		t.Fatal(err)
	}
	return store
}

func TestStorage(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) storage.Storage {
		return setupTestDB(t)
	})
}

func TestInitIsIdempotent(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	if err := store.CreateWorkflow(ctx, storagetest.Fixture("wf1", time.Now())); err != nil {
		t.Fatalf("CreateWorkflow: %v", err)
	}
	if err := store.Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}

	got, err := store.GetWorkflow(ctx, "wf1")
	if err != nil {
		t.Fatalf("GetWorkflow: %v", err)
	}
	if got == nil {
		t.Fatal("GetWorkflow: workflow lost after re-running Init")
	}
}

func TestCreateRollsBackOnBadConnection(t *testing.T) {
	store := setupTestDB(t)
	ctx := context.Background()

	wf := storagetest.Fixture("wf1", time.Now())
	wf.Connections[0].SourceComponentID = "does-not-exist"
	if err := store.CreateWorkflow(ctx, wf); err == nil {
		t.Fatal("CreateWorkflow: expected foreign key failure")
	}

	got, err := store.GetWorkflow(ctx, "wf1")
	if err != nil {
		t.Fatalf("GetWorkflow: %v", err)
	}
	if got != nil {
		t.Fatal("GetWorkflow: partial workflow was committed")
	}
}
