package workflow

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcanvas/flowcanvas/internal/errdefs"
	"github.com/flowcanvas/flowcanvas/internal/storage/sqlite"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

func setupManager(t *testing.T) *Manager {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "flowcanvas.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Init(context.Background()))
	return NewManager(store, nil)
}

func pipelinePayload() *types.WorkflowPayload {
	return &types.WorkflowPayload{
		Name:        "support bot",
		Description: "handbook answers",
		Components: []types.ComponentDraft{
			{ComponentType: types.NodeTypeUserQuery, NodeID: "q", PositionX: 100, PositionY: 100, Config: types.Config{}},
			{ComponentType: types.NodeTypeLLMEngine, NodeID: "llm", PositionX: 300, PositionY: 100, Config: types.Config{"model": "gpt-4"}},
			{ComponentType: types.NodeTypeOutput, NodeID: "out", PositionX: 500, PositionY: 100, Config: types.Config{}},
		},
		Connections: []types.ConnectionDraft{
			{SourceNodeID: "q", TargetNodeID: "llm"},
			{SourceNodeID: "llm", TargetNodeID: "out"},
		},
	}
}

func TestCreateResolvesNodeIDs(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	wf, err := m.Create(ctx, pipelinePayload())
	require.NoError(t, err)
	assert.NotEmpty(t, wf.ID)
	require.Len(t, wf.Components, 3)
	require.Len(t, wf.Connections, 2)

	llm := wf.ComponentByType(types.NodeTypeLLMEngine)
	require.NotNil(t, llm)
	assert.Equal(t, types.NodeID("llm"), llm.NodeID)
	assert.NotEqual(t, types.ComponentID("llm"), llm.ID)
	assert.Equal(t, llm.ID, wf.Connections[0].TargetComponentID)

	got, err := m.Get(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, wf.Connections[1].SourceComponentID, got.Connections[1].SourceComponentID)
	assert.Equal(t, "gpt-4", got.Components[1].Config["model"])
}

func TestCreateRejectsBadPayloads(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()

	tests := map[string]func(p *types.WorkflowPayload){
		"empty name":        func(p *types.WorkflowPayload) { p.Name = "  " },
		"unknown node":      func(p *types.WorkflowPayload) { p.Connections[0].TargetNodeID = "ghost" },
		"duplicate node id": func(p *types.WorkflowPayload) { p.Components[1].NodeID = "q" },
		"missing node id":   func(p *types.WorkflowPayload) { p.Components[0].NodeID = "" },
		"unknown type":      func(p *types.WorkflowPayload) { p.Components[0].ComponentType = "webhook" },
	}
	for name, mutate := range tests {
		t.Run(name, func(t *testing.T) {
			p := pipelinePayload()
			mutate(p)
			_, err := m.Create(ctx, p)
			assert.True(t, errdefs.IsValidationRejected(err), "got %v", err)
		})
	}

	list, err := m.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestUpdate(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()
	wf, err := m.Create(ctx, pipelinePayload())
	require.NoError(t, err)

	// empty name and nil components keep the stored values
	desc := "new description"
	got, err := m.Update(ctx, wf.ID, &types.WorkflowUpdate{Description: &desc})
	require.NoError(t, err)
	assert.Equal(t, "support bot", got.Name)
	assert.Equal(t, "new description", got.Description)
	assert.Len(t, got.Components, 3)
	assert.Len(t, got.Connections, 2)

	p := pipelinePayload()
	got, err = m.Update(ctx, wf.ID, &types.WorkflowUpdate{
		Name:       "renamed",
		Components: p.Components,
		Connections: []types.ConnectionDraft{
			{SourceNodeID: "q", TargetNodeID: "llm"},
			{SourceNodeID: "llm", TargetNodeID: "ghost"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)
	assert.Equal(t, "new description", got.Description)
	require.Len(t, got.Connections, 1)

	stored, err := m.Get(ctx, wf.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Connections, 1)
	assert.Equal(t, "renamed", stored.Name)

	_, err = m.Update(ctx, "ghost", &types.WorkflowUpdate{Name: "x"})
	assert.True(t, errdefs.IsNotFound(err))
}

func TestDeleteAndGetMissing(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()
	wf, err := m.Create(ctx, pipelinePayload())
	require.NoError(t, err)

	require.NoError(t, m.Delete(ctx, wf.ID))
	_, err = m.Get(ctx, wf.ID)
	assert.True(t, errdefs.IsNotFound(err))
	assert.True(t, errdefs.IsNotFound(m.Delete(ctx, wf.ID)))
}

func TestManagerValidate(t *testing.T) {
	m := setupManager(t)
	ctx := context.Background()
	wf, err := m.Create(ctx, pipelinePayload())
	require.NoError(t, err)

	res, err := m.Validate(ctx, wf.ID)
	require.NoError(t, err)
	assert.True(t, res.Valid, res.FormatErrors())

	_, err = m.Validate(ctx, "ghost")
	assert.True(t, errdefs.IsNotFound(err))
}
