// Package types defines shared types used across the flowcanvas codebase.
package types

import (
	"time"
)

// NodeType represents the type of a pipeline component.
type NodeType string

const (
	NodeTypeUserQuery     NodeType = "user_query"
	NodeTypeKnowledgebase NodeType = "knowledgebase"
	NodeTypeLLMEngine     NodeType = "llm_engine"
	NodeTypeOutput        NodeType = "output"
)

// NodeTypes lists every node type in catalog order.
var NodeTypes = []NodeType{
	NodeTypeUserQuery,
	NodeTypeKnowledgebase,
	NodeTypeLLMEngine,
	NodeTypeOutput,
}

// Valid reports whether t is one of the known node types.
func (t NodeType) Valid() bool {
	switch t {
	case NodeTypeUserQuery, NodeTypeKnowledgebase, NodeTypeLLMEngine, NodeTypeOutput:
		return true
	default:
		return false
	}
}

// Position is a point on the editing canvas.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Config is the loose per-node configuration as stored on the wire.
type Config map[string]any

// Clone returns a deep copy of c. Nested maps and slices are copied too.
func (c Config) Clone() Config {
	if c == nil {
		return Config{}
	}
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(val))
		for k, inner := range val {
			m[k] = cloneValue(inner)
		}
		return m
	case Config:
		return val.Clone()
	case []any:
		s := make([]any, len(val))
		for i, inner := range val {
			s[i] = cloneValue(inner)
		}
		return s
	default:
		return v
	}
}

// ComponentDraft is a component as submitted to the persistence layer.
// It has no durable id yet; NodeID is the visual graph identifier.
type ComponentDraft struct {
	ComponentType NodeType `json:"component_type"`
	NodeID        NodeID   `json:"node_id"`
	PositionX     float64  `json:"position_x"`
	PositionY     float64  `json:"position_y"`
	Config        Config   `json:"config"`
}

// ConnectionDraft is a connection as submitted to the persistence layer.
// The wire fields are named after component ids but carry node ids; the
// persistence layer resolves them when it assigns durable ids.
type ConnectionDraft struct {
	SourceNodeID NodeID `json:"source_component_id"`
	TargetNodeID NodeID `json:"target_component_id"`
	SourceHandle string `json:"source_handle,omitempty"`
	TargetHandle string `json:"target_handle,omitempty"`
}

// WorkflowPayload is the body of a create or update request.
type WorkflowPayload struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Components  []ComponentDraft  `json:"components"`
	Connections []ConnectionDraft `json:"connections"`
}

// WorkflowUpdate is an update request as received by the server. Absent
// fields keep their stored value: an empty name, a nil description and nil
// components all mean "unchanged". Connections are only read when
// components are present.
type WorkflowUpdate struct {
	Name        string            `json:"name"`
	Description *string           `json:"description"`
	Components  []ComponentDraft  `json:"components"`
	Connections []ConnectionDraft `json:"connections"`
}

// Component is the durable record of a node.
type Component struct {
	ID            ComponentID `json:"id"`
	WorkflowID    WorkflowID  `json:"workflow_id,omitempty"`
	ComponentType NodeType    `json:"component_type"`
	NodeID        NodeID      `json:"node_id"`
	PositionX     float64     `json:"position_x"`
	PositionY     float64     `json:"position_y"`
	Config        Config      `json:"config"`
}

// Connection is the durable record of an edge, addressed by component ids.
type Connection struct {
	ID                ConnectionID `json:"id"`
	WorkflowID        WorkflowID   `json:"workflow_id,omitempty"`
	SourceComponentID ComponentID  `json:"source_component_id"`
	TargetComponentID ComponentID  `json:"target_component_id"`
	SourceHandle      string       `json:"source_handle,omitempty"`
	TargetHandle      string       `json:"target_handle,omitempty"`
}

// Workflow is the durable unit of storage.
type Workflow struct {
	ID          WorkflowID   `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Components  []Component  `json:"components"`
	Connections []Connection `json:"connections"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

// ComponentByID returns the component with the given durable id.
func (w *Workflow) ComponentByID(id ComponentID) *Component {
	for i := range w.Components {
		if w.Components[i].ID == id {
			return &w.Components[i]
		}
	}
	return nil
}

// ComponentByType returns the first component of the given type.
func (w *Workflow) ComponentByType(t NodeType) *Component {
	for i := range w.Components {
		if w.Components[i].ComponentType == t {
			return &w.Components[i]
		}
	}
	return nil
}

// WorkflowSummary is a list entry.
type WorkflowSummary struct {
	ID          WorkflowID `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Components  int        `json:"components"`
	Connections int        `json:"connections"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Summarize builds the list entry for w.
func (w *Workflow) Summarize() WorkflowSummary {
	return WorkflowSummary{
		ID:          w.ID,
		Name:        w.Name,
		Description: w.Description,
		Components:  len(w.Components),
		Connections: len(w.Connections),
		CreatedAt:   w.CreatedAt,
		UpdatedAt:   w.UpdatedAt,
	}
}

// ValidationResult is the answer of the validate endpoint.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Error  string   `json:"error,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// DocumentStatus is a presentation label for document processing.
type DocumentStatus string

const (
	DocumentPending    DocumentStatus = "pending"
	DocumentProcessing DocumentStatus = "processing"
	DocumentCompleted  DocumentStatus = "completed"
	DocumentFailed     DocumentStatus = "failed"
)

// Document is a file attached to a knowledgebase node.
type Document struct {
	ID              DocumentID     `json:"id"`
	Filename        string         `json:"filename"`
	FileSize        int64          `json:"file_size"`
	FileType        string         `json:"file_type"`
	KnowledgebaseID NodeID         `json:"knowledgebase_id,omitempty"`
	Processed       DocumentStatus `json:"processed"`
	CreatedAt       time.Time      `json:"created_at"`
}
