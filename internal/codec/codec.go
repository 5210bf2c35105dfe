// Package codec translates between the visual graph and the persisted
// workflow form.
//
// The two sides use different identifier spaces. A persisted workflow
// addresses connections by durable component ids; the graph addresses
// edges by node ids. Encode emits node ids in the connection endpoint
// fields and leaves the translation to the persistence layer, which is
// how the workflow API has always accepted payloads. Decode performs the
// reverse resolution explicitly.
package codec

import (
	"fmt"

	"github.com/flowcanvas/flowcanvas/internal/errdefs"
	"github.com/flowcanvas/flowcanvas/internal/graph"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

// Encode builds the create/update payload for g.
func Encode(g *graph.Graph, name, description string) *types.WorkflowPayload {
	nodes := g.Nodes()
	edges := g.Edges()

	payload := &types.WorkflowPayload{
		Name:        name,
		Description: description,
		Components:  make([]types.ComponentDraft, 0, len(nodes)),
		Connections: make([]types.ConnectionDraft, 0, len(edges)),
	}
	for _, n := range nodes {
		payload.Components = append(payload.Components, types.ComponentDraft{
			ComponentType: n.Type,
			NodeID:        n.ID,
			PositionX:     n.Position.X,
			PositionY:     n.Position.Y,
			Config:        n.Config,
		})
	}
	for _, e := range edges {
		payload.Connections = append(payload.Connections, types.ConnectionDraft{
			SourceNodeID: e.Source,
			TargetNodeID: e.Target,
			SourceHandle: e.SourceHandle,
			TargetHandle: e.TargetHandle,
		})
	}
	return payload
}

// EdgeIDFor is the edge id a decoded graph uses for a persisted connection.
func EdgeIDFor(id types.ConnectionID) graph.EdgeID {
	return graph.EdgeID("e" + string(id))
}

// Decode rebuilds a graph from a persisted workflow. A connection that
// references a component id missing from wf fails the whole decode with a
// decode error; no partial graph is returned.
func Decode(wf *types.Workflow, opts ...graph.Option) (*graph.Graph, error) {
	if wf == nil {
		return nil, errdefs.Decode("workflow is empty", nil)
	}

	owners := make(map[types.ComponentID]types.NodeID, len(wf.Components))
	nodes := make([]graph.Node, 0, len(wf.Components))
	for i, c := range wf.Components {
		if c.ID == "" {
			return nil, errdefs.Decode(fmt.Sprintf("component %d has no id", i), map[string]any{
				"workflow_id": string(wf.ID),
				"index":       i,
			})
		}
		if _, dup := owners[c.ID]; dup {
			return nil, errdefs.Decode(fmt.Sprintf("duplicate component id %s", c.ID), map[string]any{
				"workflow_id":  string(wf.ID),
				"component_id": string(c.ID),
			})
		}
		owners[c.ID] = c.NodeID
		nodes = append(nodes, graph.Node{
			ID:          c.NodeID,
			Type:        c.ComponentType,
			Position:    types.Position{X: c.PositionX, Y: c.PositionY},
			Config:      c.Config,
			ComponentID: c.ID,
		})
	}

	edges := make([]graph.Edge, 0, len(wf.Connections))
	for _, conn := range wf.Connections {
		source, ok := owners[conn.SourceComponentID]
		if !ok {
			return nil, unresolved(wf.ID, conn, "source", conn.SourceComponentID)
		}
		target, ok := owners[conn.TargetComponentID]
		if !ok {
			return nil, unresolved(wf.ID, conn, "target", conn.TargetComponentID)
		}
		edges = append(edges, graph.Edge{
			ID:           EdgeIDFor(conn.ID),
			Source:       source,
			Target:       target,
			SourceHandle: conn.SourceHandle,
			TargetHandle: conn.TargetHandle,
		})
	}

	return graph.Restore(nodes, edges, opts...)
}

func unresolved(wfID types.WorkflowID, conn types.Connection, end string, id types.ComponentID) error {
	return errdefs.Decode(
		fmt.Sprintf("connection %s references unknown %s component %s", conn.ID, end, id),
		map[string]any{
			"workflow_id":   string(wfID),
			"connection_id": string(conn.ID),
			"component_id":  string(id),
		},
	)
}
