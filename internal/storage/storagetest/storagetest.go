// Package storagetest holds behavior tests every storage.Storage
// implementation must pass.
package storagetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcanvas/flowcanvas/internal/errdefs"
	"github.com/flowcanvas/flowcanvas/internal/storage"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

// Run exercises store. newStore must return an initialized, empty store.
func Run(t *testing.T, newStore func(t *testing.T) storage.Storage) {
	t.Run("WorkflowRoundTrip", func(t *testing.T) { testWorkflowRoundTrip(t, newStore(t)) })
	t.Run("GetMissing", func(t *testing.T) { testGetMissing(t, newStore(t)) })
	t.Run("UpdateReplacesGraph", func(t *testing.T) { testUpdateReplacesGraph(t, newStore(t)) })
	t.Run("UpdateMissing", func(t *testing.T) { testUpdateMissing(t, newStore(t)) })
	t.Run("DeleteCascades", func(t *testing.T) { testDeleteCascades(t, newStore(t)) })
	t.Run("ListPaging", func(t *testing.T) { testListPaging(t, newStore(t)) })
	t.Run("Documents", func(t *testing.T) { testDocuments(t, newStore(t)) })
}

// Fixture returns a three-component workflow with two connections.
func Fixture(id types.WorkflowID, created time.Time) *types.Workflow {
	prefix := string(id)
	return &types.Workflow{
		ID:          id,
		Name:        "support bot " + prefix,
		Description: "answers from the handbook",
		CreatedAt:   created,
		UpdatedAt:   created,
		Components: []types.Component{
			{ID: types.ComponentID(prefix + "-c1"), ComponentType: types.NodeTypeUserQuery, NodeID: "q", PositionX: 100, PositionY: 100, Config: types.Config{}},
			{ID: types.ComponentID(prefix + "-c2"), ComponentType: types.NodeTypeLLMEngine, NodeID: "llm", PositionX: 300, PositionY: 100.5, Config: types.Config{
				"provider": "openai", "model": "gpt-4", "temperature": 0.5,
			}},
			{ID: types.ComponentID(prefix + "-c3"), ComponentType: types.NodeTypeOutput, NodeID: "out", PositionX: 500, PositionY: 100, Config: types.Config{}},
		},
		Connections: []types.Connection{
			{ID: types.ConnectionID(prefix + "-k1"), SourceComponentID: types.ComponentID(prefix + "-c1"), TargetComponentID: types.ComponentID(prefix + "-c2")},
			{ID: types.ConnectionID(prefix + "-k2"), SourceComponentID: types.ComponentID(prefix + "-c2"), TargetComponentID: types.ComponentID(prefix + "-c3"), SourceHandle: "right", TargetHandle: "left"},
		},
	}
}

func testWorkflowRoundTrip(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	wf := Fixture("wf1", now)
	require.NoError(t, store.CreateWorkflow(ctx, wf))

	got, err := store.GetWorkflow(ctx, "wf1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, wf.Name, got.Name)
	assert.Equal(t, wf.Description, got.Description)
	assert.True(t, now.Equal(got.CreatedAt), "created_at %v != %v", got.CreatedAt, now)

	require.Len(t, got.Components, 3)
	for i, c := range got.Components {
		assert.Equal(t, wf.Components[i].ID, c.ID)
		assert.Equal(t, wf.Components[i].NodeID, c.NodeID)
		assert.Equal(t, wf.Components[i].ComponentType, c.ComponentType)
		assert.Equal(t, types.WorkflowID("wf1"), c.WorkflowID)
	}
	assert.Equal(t, 100.5, got.Components[1].PositionY)
	assert.Equal(t, "gpt-4", got.Components[1].Config["model"])
	assert.Equal(t, 0.5, got.Components[1].Config["temperature"])

	require.Len(t, got.Connections, 2)
	assert.Equal(t, types.ComponentID("wf1-c2"), got.Connections[1].SourceComponentID)
	assert.Equal(t, "right", got.Connections[1].SourceHandle)
	assert.Equal(t, "left", got.Connections[1].TargetHandle)
}

func testGetMissing(t *testing.T, store storage.Storage) {
	got, err := store.GetWorkflow(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func testUpdateReplacesGraph(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	wf := Fixture("wf1", time.Now())
	require.NoError(t, store.CreateWorkflow(ctx, wf))

	wf.Name = "renamed"
	wf.Components = wf.Components[:2]
	wf.Components = append(wf.Components, types.Component{
		ID: "wf1-c9", ComponentType: types.NodeTypeOutput, NodeID: "out2", Config: types.Config{},
	})
	wf.Connections = []types.Connection{{ID: "wf1-k9", SourceComponentID: "wf1-c2", TargetComponentID: "wf1-c9"}}
	wf.UpdatedAt = time.Now()
	require.NoError(t, store.UpdateWorkflow(ctx, wf))

	got, err := store.GetWorkflow(ctx, "wf1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	require.Len(t, got.Components, 3)
	assert.Equal(t, types.NodeID("out2"), got.Components[2].NodeID)
	require.Len(t, got.Connections, 1)
	assert.Equal(t, types.ConnectionID("wf1-k9"), got.Connections[0].ID)
}

func testUpdateMissing(t *testing.T, store storage.Storage) {
	err := store.UpdateWorkflow(context.Background(), Fixture("ghost", time.Now()))
	assert.True(t, errdefs.IsNotFound(err), "got %v", err)
}

func testDeleteCascades(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	require.NoError(t, store.CreateWorkflow(ctx, Fixture("wf1", time.Now())))
	require.NoError(t, store.DeleteWorkflow(ctx, "wf1"))

	got, err := store.GetWorkflow(ctx, "wf1")
	require.NoError(t, err)
	assert.Nil(t, got)

	// the same component ids can be reused once the owner is gone
	require.NoError(t, store.CreateWorkflow(ctx, Fixture("wf1", time.Now())))

	assert.True(t, errdefs.IsNotFound(store.DeleteWorkflow(ctx, "ghost")))
}

func testListPaging(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)
	for i, id := range []types.WorkflowID{"a", "b", "c"} {
		require.NoError(t, store.CreateWorkflow(ctx, Fixture(id, base.Add(time.Duration(i)*time.Minute))))
	}

	all, err := store.ListWorkflows(ctx, 0, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, types.WorkflowID("c"), all[0].ID)
	assert.Equal(t, 3, all[0].Components)
	assert.Equal(t, 2, all[0].Connections)

	page, err := store.ListWorkflows(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, types.WorkflowID("b"), page[0].ID)

	empty, err := store.ListWorkflows(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func testDocuments(t *testing.T, store storage.Storage) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Second)
	docs := []*types.Document{
		{ID: "d1", Filename: "handbook.pdf", FileSize: 2048, FileType: "application/pdf", KnowledgebaseID: "kb1", Processed: types.DocumentPending, CreatedAt: now},
		{ID: "d2", Filename: "faq.txt", FileSize: 12, FileType: "text/plain", KnowledgebaseID: "kb1", Processed: types.DocumentCompleted, CreatedAt: now.Add(time.Second)},
		{ID: "d3", Filename: "other.md", FileSize: 1, FileType: "text/markdown", KnowledgebaseID: "kb2", Processed: types.DocumentPending, CreatedAt: now},
	}
	for _, d := range docs {
		require.NoError(t, store.CreateDocument(ctx, d))
	}

	got, err := store.GetDocument(ctx, "d1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "handbook.pdf", got.Filename)
	assert.Equal(t, int64(2048), got.FileSize)
	assert.Equal(t, types.DocumentPending, got.Processed)

	kb1, err := store.ListDocuments(ctx, "kb1")
	require.NoError(t, err)
	require.Len(t, kb1, 2)
	assert.Equal(t, types.DocumentID("d1"), kb1[0].ID)
	assert.Equal(t, types.DocumentID("d2"), kb1[1].ID)

	all, err := store.ListDocuments(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	require.NoError(t, store.DeleteDocument(ctx, "d1"))
	got, err = store.GetDocument(ctx, "d1")
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.True(t, errdefs.IsNotFound(store.DeleteDocument(ctx, "d1")))
}
