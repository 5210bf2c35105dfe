package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/flowcanvas/flowcanvas/internal/errdefs"
	"github.com/flowcanvas/flowcanvas/internal/storage"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

// CreateWorkflow saves a workflow with its components and connections in
// one transaction.
func (s *PGStore) CreateWorkflow(ctx context.Context, wf *types.Workflow) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("workflow: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx,
		`INSERT INTO workflows (id, name, description, created_at, updated_at) VALUES ($1, $2, $3, $4, $5)`,
		wf.ID, wf.Name, wf.Description, wf.CreatedAt, wf.UpdatedAt,
	); err != nil {
		return fmt.Errorf("workflow: insert: %w", err)
	}
	if err := insertGraph(ctx, tx, wf); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertGraph(ctx context.Context, tx pgx.Tx, wf *types.Workflow) error {
	for i, c := range wf.Components {
		config, err := json.Marshal(c.Config.Clone())
		if err != nil {
			return fmt.Errorf("workflow: marshal config of %s: %w", c.NodeID, err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO components (id, workflow_id, seq, component_type, node_id, position_x, position_y, config)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			c.ID, wf.ID, i, c.ComponentType, c.NodeID, c.PositionX, c.PositionY, config,
		); err != nil {
			return fmt.Errorf("workflow: insert component %s: %w", c.ID, err)
		}
	}
	for i, c := range wf.Connections {
		if _, err := tx.Exec(ctx,
			`INSERT INTO connections (id, workflow_id, seq, source_component_id, target_component_id, source_handle, target_handle)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, wf.ID, i, c.SourceComponentID, c.TargetComponentID, c.SourceHandle, c.TargetHandle,
		); err != nil {
			return fmt.Errorf("workflow: insert connection %s: %w", c.ID, err)
		}
	}
	return nil
}

// GetWorkflow loads a workflow. Returns (nil, nil) if it does not exist.
func (s *PGStore) GetWorkflow(ctx context.Context, id types.WorkflowID) (*types.Workflow, error) {
	var wf types.Workflow
	err := s.db.QueryRow(ctx,
		`SELECT id, name, description, created_at, updated_at FROM workflows WHERE id = $1`, id,
	).Scan(&wf.ID, &wf.Name, &wf.Description, &wf.CreatedAt, &wf.UpdatedAt)
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("workflow: get: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT id, workflow_id, component_type, node_id, position_x, position_y, config
		 FROM components WHERE workflow_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("workflow: list components: %w", err)
	}
	wf.Components = []types.Component{}
	for rows.Next() {
		var c types.Component
		var config []byte
		if err := rows.Scan(&c.ID, &c.WorkflowID, &c.ComponentType, &c.NodeID, &c.PositionX, &c.PositionY, &config); err != nil {
			rows.Close()
			return nil, fmt.Errorf("workflow: scan component: %w", err)
		}
		if err := json.Unmarshal(config, &c.Config); err != nil {
			rows.Close()
			return nil, fmt.Errorf("workflow: unmarshal config: %w", err)
		}
		wf.Components = append(wf.Components, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = s.db.Query(ctx,
		`SELECT id, workflow_id, source_component_id, target_component_id, source_handle, target_handle
		 FROM connections WHERE workflow_id = $1 ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("workflow: list connections: %w", err)
	}
	defer rows.Close()
	wf.Connections = []types.Connection{}
	for rows.Next() {
		var c types.Connection
		if err := rows.Scan(&c.ID, &c.WorkflowID, &c.SourceComponentID, &c.TargetComponentID, &c.SourceHandle, &c.TargetHandle); err != nil {
			return nil, fmt.Errorf("workflow: scan connection: %w", err)
		}
		wf.Connections = append(wf.Connections, c)
	}
	return &wf, rows.Err()
}

// ListWorkflows returns summaries, newest first.
func (s *PGStore) ListWorkflows(ctx context.Context, offset, limit int) ([]types.WorkflowSummary, error) {
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.Query(ctx,
		`SELECT w.id, w.name, w.description, w.created_at, w.updated_at,
		        (SELECT COUNT(*) FROM components c WHERE c.workflow_id = w.id),
		        (SELECT COUNT(*) FROM connections n WHERE n.workflow_id = w.id)
		 FROM workflows w
		 ORDER BY w.created_at DESC, w.id
		 LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("workflow: list: %w", err)
	}
	defer rows.Close()

	out := []types.WorkflowSummary{}
	for rows.Next() {
		var w types.WorkflowSummary
		if err := rows.Scan(&w.ID, &w.Name, &w.Description, &w.CreatedAt, &w.UpdatedAt, &w.Components, &w.Connections); err != nil {
			return nil, fmt.Errorf("workflow: scan summary: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// UpdateWorkflow replaces a workflow's fields and graph (replace semantics).
func (s *PGStore) UpdateWorkflow(ctx context.Context, wf *types.Workflow) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("workflow: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	ct, err := tx.Exec(ctx,
		`UPDATE workflows SET name = $1, description = $2, updated_at = $3 WHERE id = $4`,
		wf.Name, wf.Description, wf.UpdatedAt, wf.ID)
	if err != nil {
		return fmt.Errorf("workflow: update: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return errdefs.NotFound("workflow", wf.ID)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM connections WHERE workflow_id = $1`, wf.ID); err != nil {
		return fmt.Errorf("workflow: delete connections: %w", err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM components WHERE workflow_id = $1`, wf.ID); err != nil {
		return fmt.Errorf("workflow: delete components: %w", err)
	}
	if err := insertGraph(ctx, tx, wf); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeleteWorkflow removes a workflow; components and connections cascade.
func (s *PGStore) DeleteWorkflow(ctx context.Context, id types.WorkflowID) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM workflows WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("workflow: delete: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return errdefs.NotFound("workflow", id)
	}
	return nil
}
