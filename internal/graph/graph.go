// Package graph holds the in-memory visual graph of a workflow: nodes with
// canvas positions and per-node configuration, and the edges between them.
//
// A Graph is not safe for concurrent use; the owning session serializes
// access to it.
package graph

import (
	"github.com/google/uuid"

	"github.com/flowcanvas/flowcanvas/internal/catalog"
	"github.com/flowcanvas/flowcanvas/internal/errdefs"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

// EdgeID identifies an edge within a graph.
type EdgeID string

// Node is one visual vertex.
type Node struct {
	ID       types.NodeID   `json:"id"`
	Type     types.NodeType `json:"type"`
	Position types.Position `json:"position"`
	Label    string         `json:"label"`
	Config   types.Config   `json:"config"`
	// ComponentID is set once the node has been persisted.
	ComponentID types.ComponentID `json:"component_id,omitempty"`
}

// Persisted reports whether the node has a durable component record.
func (n Node) Persisted() bool { return n.ComponentID != "" }

func (n Node) clone() Node {
	n.Config = n.Config.Clone()
	return n
}

// Edge is one visual connection between two nodes.
type Edge struct {
	ID           EdgeID       `json:"id"`
	Source       types.NodeID `json:"source"`
	Target       types.NodeID `json:"target"`
	SourceHandle string       `json:"source_handle,omitempty"`
	TargetHandle string       `json:"target_handle,omitempty"`
}

// Touches reports whether id is either endpoint of e.
func (e Edge) Touches(id types.NodeID) bool {
	return e.Source == id || e.Target == id
}

// Option configures a Graph.
type Option func(*Graph)

// WithIDGenerator replaces the random identifier source used for new nodes
// and edges.
func WithIDGenerator(gen func() string) Option {
	return func(g *Graph) {
		if gen != nil {
			g.newID = gen
		}
	}
}

// Graph is the ordered set of nodes and edges of one workflow.
type Graph struct {
	nodes     []Node
	index     map[types.NodeID]int
	edges     []Edge
	selected  types.NodeID
	newID     func() string
	revisions uint64
}

// New creates an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		index: make(map[types.NodeID]int),
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// NextNodeID draws a fresh node identifier without adding a node.
func (g *Graph) NextNodeID() types.NodeID {
	return types.NodeID(g.newID())
}

// AddNode places a new node of type t at pos with the catalog's default
// configuration. t must be a known type.
func (g *Graph) AddNode(t types.NodeType, pos types.Position) Node {
	n := Node{
		ID:       g.NextNodeID(),
		Type:     t,
		Position: pos,
		Label:    catalog.LabelFor(t),
		Config:   catalog.DefaultConfigFor(t),
	}
	g.insert(n)
	g.revisions++
	return n.clone()
}

func (g *Graph) insert(n Node) {
	g.index[n.ID] = len(g.nodes)
	g.nodes = append(g.nodes, n)
}

// RemoveNode deletes the node and every edge touching it. Removing an
// absent node does nothing.
func (g *Graph) RemoveNode(id types.NodeID) {
	i, ok := g.index[id]
	if !ok {
		return
	}
	g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
	g.reindex()

	kept := g.edges[:0]
	for _, e := range g.edges {
		if !e.Touches(id) {
			kept = append(kept, e)
		}
	}
	clear(g.edges[len(kept):])
	g.edges = kept

	if g.selected == id {
		g.selected = ""
	}
	g.revisions++
}

func (g *Graph) reindex() {
	clear(g.index)
	for i, n := range g.nodes {
		g.index[n.ID] = i
	}
}

// UpdateConfig replaces the configuration of node id wholesale.
func (g *Graph) UpdateConfig(id types.NodeID, cfg types.Config) error {
	i, ok := g.index[id]
	if !ok {
		return errdefs.NotFound("node", id)
	}
	g.nodes[i].Config = cfg.Clone()
	g.revisions++
	return nil
}

// MovePosition sets the canvas position of node id.
func (g *Graph) MovePosition(id types.NodeID, pos types.Position) error {
	i, ok := g.index[id]
	if !ok {
		return errdefs.NotFound("node", id)
	}
	g.nodes[i].Position = pos
	g.revisions++
	return nil
}

// Connect adds an edge from source to target. Parallel edges between the
// same pair are allowed.
func (g *Graph) Connect(source, target types.NodeID, sourceHandle, targetHandle string) (Edge, error) {
	if _, ok := g.index[source]; !ok {
		return Edge{}, errdefs.NotFound("node", source)
	}
	if _, ok := g.index[target]; !ok {
		return Edge{}, errdefs.NotFound("node", target)
	}
	e := Edge{
		ID:           EdgeID("e-" + g.newID()),
		Source:       source,
		Target:       target,
		SourceHandle: sourceHandle,
		TargetHandle: targetHandle,
	}
	g.edges = append(g.edges, e)
	g.revisions++
	return e, nil
}

// Disconnect removes edge id. Removing an absent edge does nothing.
func (g *Graph) Disconnect(id EdgeID) {
	for i, e := range g.edges {
		if e.ID == id {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			g.revisions++
			return
		}
	}
}

// Node returns a copy of node id.
func (g *Graph) Node(id types.NodeID) (Node, error) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, errdefs.NotFound("node", id)
	}
	return g.nodes[i].clone(), nil
}

// Nodes returns copies of every node in insertion order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	for i, n := range g.nodes {
		out[i] = n.clone()
	}
	return out
}

// Edges returns every edge in insertion order.
func (g *Graph) Edges() []Edge {
	out := make([]Edge, len(g.edges))
	copy(out, g.edges)
	return out
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Select marks node id as the one being edited.
func (g *Graph) Select(id types.NodeID) error {
	if _, ok := g.index[id]; !ok {
		return errdefs.NotFound("node", id)
	}
	g.selected = id
	return nil
}

// ClearSelection drops the current selection.
func (g *Graph) ClearSelection() { g.selected = "" }

// Selected returns the current state of the selected node. The copy is
// taken at call time, so it always reflects the latest configuration.
func (g *Graph) Selected() (Node, bool) {
	if g.selected == "" {
		return Node{}, false
	}
	i, ok := g.index[g.selected]
	if !ok {
		return Node{}, false
	}
	return g.nodes[i].clone(), true
}

// Revision counts the mutations applied to the graph. Selection changes do
// not count.
func (g *Graph) Revision() uint64 { return g.revisions }

// SetComponentID records the durable component id of node id.
func (g *Graph) SetComponentID(id types.NodeID, componentID types.ComponentID) error {
	i, ok := g.index[id]
	if !ok {
		return errdefs.NotFound("node", id)
	}
	g.nodes[i].ComponentID = componentID
	return nil
}

// Clone returns an independent deep copy of g, selection included.
func (g *Graph) Clone() *Graph {
	c := &Graph{
		nodes:     g.Nodes(),
		index:     make(map[types.NodeID]int, len(g.nodes)),
		edges:     g.Edges(),
		selected:  g.selected,
		newID:     g.newID,
		revisions: g.revisions,
	}
	c.reindex()
	return c
}
