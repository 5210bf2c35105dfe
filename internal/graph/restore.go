package graph

import (
	"fmt"

	"github.com/flowcanvas/flowcanvas/internal/catalog"
	"github.com/flowcanvas/flowcanvas/internal/errdefs"
)

// Restore rebuilds a graph from nodes and edges that already carry their
// identifiers, as the codec does when loading a persisted workflow. Labels
// are recomputed from the catalog and missing configs become empty.
// Inconsistent input fails with a decode error and no graph is returned.
func Restore(nodes []Node, edges []Edge, opts ...Option) (*Graph, error) {
	g := New(opts...)
	for i, n := range nodes {
		if n.ID == "" {
			return nil, errdefs.Decode(fmt.Sprintf("component %d has no node id", i), map[string]any{
				"index": i,
			})
		}
		if !n.Type.Valid() {
			return nil, errdefs.Decode(fmt.Sprintf("node %s has unknown component type %q", n.ID, n.Type), map[string]any{
				"node_id": string(n.ID),
				"type":    string(n.Type),
			})
		}
		if _, dup := g.index[n.ID]; dup {
			return nil, errdefs.Decode(fmt.Sprintf("duplicate node id %s", n.ID), map[string]any{
				"node_id": string(n.ID),
			})
		}
		n.Label = catalog.LabelFor(n.Type)
		n.Config = n.Config.Clone()
		g.insert(n)
	}

	seen := make(map[EdgeID]struct{}, len(edges))
	for _, e := range edges {
		if _, ok := g.index[e.Source]; !ok {
			return nil, errdefs.Decode(fmt.Sprintf("edge %s references unknown source node %s", e.ID, e.Source), map[string]any{
				"edge_id": string(e.ID),
				"node_id": string(e.Source),
			})
		}
		if _, ok := g.index[e.Target]; !ok {
			return nil, errdefs.Decode(fmt.Sprintf("edge %s references unknown target node %s", e.ID, e.Target), map[string]any{
				"edge_id": string(e.ID),
				"node_id": string(e.Target),
			})
		}
		if e.ID == "" {
			e.ID = EdgeID("e-" + g.newID())
		}
		if _, dup := seen[e.ID]; dup {
			return nil, errdefs.Decode(fmt.Sprintf("duplicate edge id %s", e.ID), map[string]any{
				"edge_id": string(e.ID),
			})
		}
		seen[e.ID] = struct{}{}
		g.edges = append(g.edges, e)
	}
	return g, nil
}
