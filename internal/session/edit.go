package session

import (
	"context"
	"fmt"
	"io"

	"github.com/flowcanvas/flowcanvas/internal/errdefs"
	"github.com/flowcanvas/flowcanvas/internal/graph"
	"github.com/flowcanvas/flowcanvas/internal/schema"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

// mutate applies fn to the graph and marks the session dirty if the graph
// actually changed.
func (s *Session) mutate(fn func(g *graph.Graph) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	before := s.graph.Revision()
	err := fn(s.graph)
	if s.graph.Revision() != before {
		s.rev++
	}
	return err
}

// AddNode places a node of type t at pos.
func (s *Session) AddNode(t types.NodeType, pos types.Position) (graph.Node, error) {
	if !t.Valid() {
		return graph.Node{}, errdefs.Rejected(fmt.Sprintf("unknown component type %q", t), map[string]any{
			"type": string(t),
		})
	}
	var n graph.Node
	_ = s.mutate(func(g *graph.Graph) error {
		n = g.AddNode(t, pos)
		return nil
	})
	return n, nil
}

// RemoveNode deletes a node and its edges. Absent ids are ignored.
func (s *Session) RemoveNode(id types.NodeID) {
	_ = s.mutate(func(g *graph.Graph) error {
		g.RemoveNode(id)
		return nil
	})
}

// UpdateConfig replaces a node's configuration after validating every key
// the node type describes.
func (s *Session) UpdateConfig(id types.NodeID, cfg types.Config) error {
	return s.mutate(func(g *graph.Graph) error {
		n, err := g.Node(id)
		if err != nil {
			return err
		}
		normalized, err := schema.Normalize(n.Type, cfg)
		if err != nil {
			return err
		}
		return g.UpdateConfig(id, normalized)
	})
}

// EditConfig changes a single configuration key. The read of the current
// config and the write happen under one lock, so concurrent edits to
// different keys of the same node are never lost.
func (s *Session) EditConfig(id types.NodeID, key string, value any) error {
	return s.mutate(func(g *graph.Graph) error {
		n, err := g.Node(id)
		if err != nil {
			return err
		}
		next, err := schema.Apply(n.Type, n.Config, key, value)
		if err != nil {
			return err
		}
		return g.UpdateConfig(id, next)
	})
}

// Connect adds an edge between two nodes.
func (s *Session) Connect(source, target types.NodeID, sourceHandle, targetHandle string) (graph.Edge, error) {
	var e graph.Edge
	err := s.mutate(func(g *graph.Graph) error {
		var err error
		e, err = g.Connect(source, target, sourceHandle, targetHandle)
		return err
	})
	return e, err
}

// Disconnect removes an edge. Absent ids are ignored.
func (s *Session) Disconnect(id graph.EdgeID) {
	_ = s.mutate(func(g *graph.Graph) error {
		g.Disconnect(id)
		return nil
	})
}

// MovePosition drags a node.
func (s *Session) MovePosition(id types.NodeID, pos types.Position) error {
	return s.mutate(func(g *graph.Graph) error {
		return g.MovePosition(id, pos)
	})
}

// Select marks the node being edited.
func (s *Session) Select(id types.NodeID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Select(id)
}

// ClearSelection drops the selection.
func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph.ClearSelection()
}

// Selected returns the latest state of the selected node.
func (s *Session) Selected() (graph.Node, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.Selected()
}

// EditorFields returns the field descriptors for node id. For knowledgebase
// nodes the documents field is filled from the document collaborator; if
// that call fails the fields are still returned along with the error.
func (s *Session) EditorFields(ctx context.Context, id types.NodeID) ([]schema.Field, error) {
	s.mu.Lock()
	n, err := s.graph.Node(id)
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	fields := schema.FieldsFor(n.Type, n.Config)
	if n.Type != types.NodeTypeKnowledgebase || s.docs == nil {
		return fields, nil
	}

	docs, err := s.docs.ListDocuments(ctx, id)
	if err != nil {
		return fields, transportErr("list documents", err, map[string]any{"node_id": string(id)})
	}
	for i := range fields {
		if fields[i].Key == schema.DocumentsKey {
			fields[i].Value = docs
		}
	}
	return fields, nil
}

// UploadDocument attaches a file to knowledgebase node id and then lists
// the node's documents again. If only the refresh fails, the uploaded
// record is returned together with the error.
func (s *Session) UploadDocument(ctx context.Context, id types.NodeID, filename string, r io.Reader) (*types.Document, []types.Document, error) {
	s.mu.Lock()
	n, err := s.graph.Node(id)
	s.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}
	if n.Type != types.NodeTypeKnowledgebase {
		return nil, nil, errdefs.Rejected(fmt.Sprintf("node %s is not a knowledgebase", id), map[string]any{
			"node_id": string(id),
			"type":    string(n.Type),
		})
	}
	if s.docs == nil {
		return nil, nil, errdefs.Transport("upload document", "no document store configured", nil, nil)
	}

	doc, err := s.docs.UploadDocument(ctx, id, filename, r)
	if err != nil {
		return nil, nil, transportErr("upload document", err, map[string]any{"node_id": string(id)})
	}
	s.log.Info("document uploaded", "node_id", id, "document_id", doc.ID, "filename", doc.Filename)

	docs, err := s.docs.ListDocuments(ctx, id)
	if err != nil {
		return doc, nil, transportErr("list documents", err, map[string]any{"node_id": string(id)})
	}
	return doc, docs, nil
}
