// Package sqlite provides a SQLite implementation of the storage interface.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/flowcanvas/flowcanvas/internal/errdefs"
	"github.com/flowcanvas/flowcanvas/internal/storage"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db   *sql.DB
	path string
}

var _ storage.Storage = (*SQLiteStorage)(nil)

// New creates a new SQLite storage instance.
func New(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &SQLiteStorage{
		db:   db,
		path: path,
	}, nil
}

// Init initializes the database schema.
func (s *SQLiteStorage) Init(ctx context.Context) error {
	// Check current schema version
	var version int
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		// Table doesn't exist, run all migrations
		version = 0
	}

	// Run migrations that haven't been applied
	for i := version; i < len(migrations); i++ {
		if _, err := s.db.ExecContext(ctx, migrations[i]); err != nil {
			return fmt.Errorf("failed to run migration %d: %w", i+1, err)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// =============================================================================
// Workflow Operations
// =============================================================================

// CreateWorkflow creates a new workflow with its components and connections.
func (s *SQLiteStorage) CreateWorkflow(ctx context.Context, workflow *types.Workflow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO workflows (id, name, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, workflow.ID, workflow.Name, workflow.Description, workflow.CreatedAt, workflow.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create workflow: %w", err)
	}

	if err := insertGraph(ctx, tx, workflow); err != nil {
		return err
	}
	return tx.Commit()
}

func insertGraph(ctx context.Context, tx *sql.Tx, workflow *types.Workflow) error {
	for i, c := range workflow.Components {
		config, err := json.Marshal(c.Config.Clone())
		if err != nil {
			return fmt.Errorf("failed to marshal config of %s: %w", c.NodeID, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO components (id, workflow_id, seq, component_type, node_id, position_x, position_y, config)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, c.ID, workflow.ID, i, c.ComponentType, c.NodeID, c.PositionX, c.PositionY, string(config))
		if err != nil {
			return fmt.Errorf("failed to insert component: %w", err)
		}
	}

	for i, c := range workflow.Connections {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO connections (id, workflow_id, seq, source_component_id, target_component_id, source_handle, target_handle)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, c.ID, workflow.ID, i, c.SourceComponentID, c.TargetComponentID, c.SourceHandle, c.TargetHandle)
		if err != nil {
			return fmt.Errorf("failed to insert connection: %w", err)
		}
	}
	return nil
}

// GetWorkflow retrieves a workflow by ID.
func (s *SQLiteStorage) GetWorkflow(ctx context.Context, id types.WorkflowID) (*types.Workflow, error) {
	var workflow types.Workflow
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, description, created_at, updated_at FROM workflows WHERE id = ?
	`, id).Scan(&workflow.ID, &workflow.Name, &workflow.Description, &workflow.CreatedAt, &workflow.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow: %w", err)
	}

	if workflow.Components, err = s.components(ctx, id); err != nil {
		return nil, err
	}
	if workflow.Connections, err = s.connections(ctx, id); err != nil {
		return nil, err
	}
	return &workflow, nil
}

func (s *SQLiteStorage) components(ctx context.Context, id types.WorkflowID) ([]types.Component, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workflow_id, component_type, node_id, position_x, position_y, config
		FROM components WHERE workflow_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list components: %w", err)
	}
	defer rows.Close()

	components := []types.Component{}
	for rows.Next() {
		var c types.Component
		var config []byte
		if err := rows.Scan(&c.ID, &c.WorkflowID, &c.ComponentType, &c.NodeID, &c.PositionX, &c.PositionY, &config); err != nil {
			return nil, fmt.Errorf("failed to scan component: %w", err)
		}
		if err := json.Unmarshal(config, &c.Config); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config: %w", err)
		}
		components = append(components, c)
	}
	return components, rows.Err()
}

func (s *SQLiteStorage) connections(ctx context.Context, id types.WorkflowID) ([]types.Connection, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, workflow_id, source_component_id, target_component_id, source_handle, target_handle
		FROM connections WHERE workflow_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list connections: %w", err)
	}
	defer rows.Close()

	connections := []types.Connection{}
	for rows.Next() {
		var c types.Connection
		if err := rows.Scan(&c.ID, &c.WorkflowID, &c.SourceComponentID, &c.TargetComponentID, &c.SourceHandle, &c.TargetHandle); err != nil {
			return nil, fmt.Errorf("failed to scan connection: %w", err)
		}
		connections = append(connections, c)
	}
	return connections, rows.Err()
}

// ListWorkflows returns workflow summaries, newest first.
func (s *SQLiteStorage) ListWorkflows(ctx context.Context, offset, limit int) ([]types.WorkflowSummary, error) {
	if limit <= 0 {
		limit = storage.DefaultListLimit
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT w.id, w.name, w.description, w.created_at, w.updated_at,
			(SELECT COUNT(*) FROM components c WHERE c.workflow_id = w.id),
			(SELECT COUNT(*) FROM connections n WHERE n.workflow_id = w.id)
		FROM workflows w
		ORDER BY w.created_at DESC, w.id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list workflows: %w", err)
	}
	defer rows.Close()

	summaries := []types.WorkflowSummary{}
	for rows.Next() {
		var w types.WorkflowSummary
		if err := rows.Scan(&w.ID, &w.Name, &w.Description, &w.CreatedAt, &w.UpdatedAt, &w.Components, &w.Connections); err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}
		summaries = append(summaries, w)
	}
	return summaries, rows.Err()
}

// UpdateWorkflow replaces an existing workflow.
func (s *SQLiteStorage) UpdateWorkflow(ctx context.Context, workflow *types.Workflow) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE workflows SET name = ?, description = ?, updated_at = ?
		WHERE id = ?
	`, workflow.Name, workflow.Description, workflow.UpdatedAt, workflow.ID)
	if err != nil {
		return fmt.Errorf("failed to update workflow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errdefs.NotFound("workflow", workflow.ID)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM connections WHERE workflow_id = ?`, workflow.ID); err != nil {
		return fmt.Errorf("failed to clear connections: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM components WHERE workflow_id = ?`, workflow.ID); err != nil {
		return fmt.Errorf("failed to clear components: %w", err)
	}
	if err := insertGraph(ctx, tx, workflow); err != nil {
		return err
	}
	return tx.Commit()
}

// DeleteWorkflow deletes a workflow and everything it owns.
func (s *SQLiteStorage) DeleteWorkflow(ctx context.Context, id types.WorkflowID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM workflows WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete workflow: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errdefs.NotFound("workflow", id)
	}
	return nil
}

// =============================================================================
// Document Operations
// =============================================================================

const documentColumns = `id, filename, file_size, file_type, knowledgebase_id, processed, created_at`

// scanDocument scans a document from a SQL row.
func scanDocument(scanner interface{ Scan(...any) error }) (*types.Document, error) {
	var doc types.Document
	err := scanner.Scan(&doc.ID, &doc.Filename, &doc.FileSize, &doc.FileType, &doc.KnowledgebaseID, &doc.Processed, &doc.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// CreateDocument records an uploaded document.
func (s *SQLiteStorage) CreateDocument(ctx context.Context, doc *types.Document) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, doc.ID, doc.Filename, doc.FileSize, doc.FileType, doc.KnowledgebaseID, doc.Processed, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *SQLiteStorage) GetDocument(ctx context.Context, id types.DocumentID) (*types.Document, error) {
	doc, err := scanDocument(s.db.QueryRowContext(ctx, `
		SELECT `+documentColumns+` FROM documents WHERE id = ?
	`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListDocuments returns the documents of a knowledgebase node, oldest
// first. An empty id lists every document.
func (s *SQLiteStorage) ListDocuments(ctx context.Context, knowledgebaseID types.NodeID) ([]*types.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents`
	var args []any
	if knowledgebaseID != "" {
		query += ` WHERE knowledgebase_id = ?`
		args = append(args, knowledgebaseID)
	}
	query += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	docs := []*types.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument deletes a document record.
func (s *SQLiteStorage) DeleteDocument(ctx context.Context, id types.DocumentID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errdefs.NotFound("document", id)
	}
	return nil
}
