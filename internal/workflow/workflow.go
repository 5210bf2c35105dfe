// Package workflow provides workflow management: it assigns durable ids,
// resolves the node ids clients send into component ids, and validates
// stored workflows.
package workflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/flowcanvas/flowcanvas/internal/errdefs"
	"github.com/flowcanvas/flowcanvas/internal/logging"
	"github.com/flowcanvas/flowcanvas/internal/storage"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

// Manager handles workflow operations.
type Manager struct {
	storage storage.Storage
	log     logging.Logger
	now     func() time.Time
}

// NewManager creates a new workflow manager.
func NewManager(store storage.Storage, log logging.Logger) *Manager {
	if log == nil {
		log = logging.Discard()
	}
	return &Manager{
		storage: store,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create stores a new workflow. Every connection must reference node ids
// present among the payload's components.
func (m *Manager) Create(ctx context.Context, payload *types.WorkflowPayload) (*types.Workflow, error) {
	if strings.TrimSpace(payload.Name) == "" {
		return nil, errdefs.Rejected("name is required", map[string]any{"key": "name"})
	}

	now := m.now()
	wf := &types.Workflow{
		ID:          types.WorkflowID(uuid.New().String()),
		Name:        payload.Name,
		Description: payload.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := m.attach(wf, payload.Components, payload.Connections, true); err != nil {
		return nil, err
	}

	if err := m.storage.CreateWorkflow(ctx, wf); err != nil {
		return nil, err
	}
	m.log.Info("workflow created", "workflow_id", wf.ID, "components", len(wf.Components), "connections", len(wf.Connections))
	return wf, nil
}

// Get retrieves a workflow by ID.
func (m *Manager) Get(ctx context.Context, id types.WorkflowID) (*types.Workflow, error) {
	wf, err := m.storage.GetWorkflow(ctx, id)
	if err != nil {
		return nil, err
	}
	if wf == nil {
		return nil, errdefs.NotFound("workflow", id)
	}
	return wf, nil
}

// List returns one page of workflow summaries.
func (m *Manager) List(ctx context.Context, offset, limit int) ([]types.WorkflowSummary, error) {
	return m.storage.ListWorkflows(ctx, offset, limit)
}

// Update applies an update request. Connections whose endpoints cannot be
// resolved are dropped rather than failing the update.
func (m *Manager) Update(ctx context.Context, id types.WorkflowID, upd *types.WorkflowUpdate) (*types.Workflow, error) {
	wf, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if upd.Name != "" {
		wf.Name = upd.Name
	}
	if upd.Description != nil {
		wf.Description = *upd.Description
	}
	if upd.Components != nil {
		if err := m.attach(wf, upd.Components, upd.Connections, false); err != nil {
			return nil, err
		}
	}
	wf.UpdatedAt = m.now()

	if err := m.storage.UpdateWorkflow(ctx, wf); err != nil {
		return nil, err
	}
	m.log.Info("workflow updated", "workflow_id", wf.ID, "components", len(wf.Components), "connections", len(wf.Connections))
	return wf, nil
}

// Delete deletes a workflow.
func (m *Manager) Delete(ctx context.Context, id types.WorkflowID) error {
	if err := m.storage.DeleteWorkflow(ctx, id); err != nil {
		return err
	}
	m.log.Info("workflow deleted", "workflow_id", id)
	return nil
}

// Validate loads a workflow and checks it.
func (m *Manager) Validate(ctx context.Context, id types.WorkflowID) (ValidationResult, error) {
	wf, err := m.Get(ctx, id)
	if err != nil {
		return ValidationResult{}, err
	}
	return Validate(wf), nil
}

// attach replaces wf's components and connections with fresh records built
// from drafts. With strict set an unresolvable connection fails the call;
// otherwise it is skipped.
func (m *Manager) attach(wf *types.Workflow, components []types.ComponentDraft, connections []types.ConnectionDraft, strict bool) error {
	byNode := make(map[types.NodeID]types.ComponentID, len(components))
	wf.Components = make([]types.Component, 0, len(components))
	for i, c := range components {
		if c.NodeID == "" {
			return errdefs.Rejected(fmt.Sprintf("component %d has no node_id", i), map[string]any{"index": i})
		}
		if !c.ComponentType.Valid() {
			return errdefs.Rejected(fmt.Sprintf("unknown component type %q", c.ComponentType), map[string]any{
				"node_id": string(c.NodeID),
				"type":    string(c.ComponentType),
			})
		}
		if _, dup := byNode[c.NodeID]; dup {
			return errdefs.Rejected(fmt.Sprintf("duplicate node_id %s", c.NodeID), map[string]any{"node_id": string(c.NodeID)})
		}
		id := types.ComponentID(uuid.New().String())
		byNode[c.NodeID] = id
		wf.Components = append(wf.Components, types.Component{
			ID:            id,
			WorkflowID:    wf.ID,
			ComponentType: c.ComponentType,
			NodeID:        c.NodeID,
			PositionX:     c.PositionX,
			PositionY:     c.PositionY,
			Config:        c.Config.Clone(),
		})
	}

	wf.Connections = make([]types.Connection, 0, len(connections))
	for _, c := range connections {
		source, okSource := byNode[c.SourceNodeID]
		target, okTarget := byNode[c.TargetNodeID]
		if !okSource || !okTarget {
			if strict {
				return errdefs.Rejected(
					fmt.Sprintf("Invalid node IDs in connection: %s -> %s", c.SourceNodeID, c.TargetNodeID),
					map[string]any{"source": string(c.SourceNodeID), "target": string(c.TargetNodeID)},
				)
			}
			m.log.Warn("skipping unresolvable connection", "workflow_id", wf.ID, "source", c.SourceNodeID, "target", c.TargetNodeID)
			continue
		}
		wf.Connections = append(wf.Connections, types.Connection{
			ID:                types.ConnectionID(uuid.New().String()),
			WorkflowID:        wf.ID,
			SourceComponentID: source,
			TargetComponentID: target,
			SourceHandle:      c.SourceHandle,
			TargetHandle:      c.TargetHandle,
		})
	}
	return nil
}
