// Package storage defines the storage interface for flowcanvas.
package storage

import (
	"context"

	"github.com/flowcanvas/flowcanvas/pkg/types"
)

// DefaultListLimit is the page size used when a caller does not ask for one.
const DefaultListLimit = 100

// Storage defines the interface for persisting workflows and documents.
//
// Get methods return (nil, nil) when the record does not exist. Update and
// Delete methods return an errdefs not-found error instead.
type Storage interface {
	// Initialize the storage (run migrations, etc.)
	Init(ctx context.Context) error

	// Close the storage connection
	Close() error

	// Workflow operations. Components and connections are stored in the
	// order given and returned in that order.
	CreateWorkflow(ctx context.Context, workflow *types.Workflow) error
	GetWorkflow(ctx context.Context, id types.WorkflowID) (*types.Workflow, error)
	ListWorkflows(ctx context.Context, offset, limit int) ([]types.WorkflowSummary, error)
	// UpdateWorkflow replaces the name, description, components and
	// connections of an existing workflow atomically.
	UpdateWorkflow(ctx context.Context, workflow *types.Workflow) error
	DeleteWorkflow(ctx context.Context, id types.WorkflowID) error

	// Document operations. Only metadata is stored.
	CreateDocument(ctx context.Context, doc *types.Document) error
	GetDocument(ctx context.Context, id types.DocumentID) (*types.Document, error)
	ListDocuments(ctx context.Context, knowledgebaseID types.NodeID) ([]*types.Document, error)
	DeleteDocument(ctx context.Context, id types.DocumentID) error
}
