package codec

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/flowcanvas/flowcanvas/internal/catalog"
	"github.com/flowcanvas/flowcanvas/internal/errdefs"
	"github.com/flowcanvas/flowcanvas/internal/graph"
	"github.com/flowcanvas/flowcanvas/internal/schema"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

// YAMLNode represents a node in a canvas file.
type YAMLNode struct {
	ID       string         `yaml:"id,omitempty"`
	Type     string         `yaml:"type"`
	Position types.Position `yaml:"position"`
	Config   map[string]any `yaml:"config"`
}

// YAMLEdge represents an edge in a canvas file.
type YAMLEdge struct {
	Source       string `yaml:"source"`
	Target       string `yaml:"target"`
	SourceHandle string `yaml:"source_handle,omitempty"`
	TargetHandle string `yaml:"target_handle,omitempty"`
}

// YAMLCanvas is a workflow as written to and read from disk.
type YAMLCanvas struct {
	Name        string     `yaml:"name"`
	Description string     `yaml:"description,omitempty"`
	Nodes       []YAMLNode `yaml:"nodes"`
	Edges       []YAMLEdge `yaml:"edges,omitempty"`
}

// Canvas is a decoded canvas file.
type Canvas struct {
	Name        string
	Description string
	Graph       *graph.Graph
}

// ParseFile reads a canvas from a YAML file.
func ParseFile(path string, opts ...graph.Option) (*Canvas, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return DecodeYAML(data, opts...)
}

// DecodeYAML parses a canvas. Nodes without an id get a fresh one and
// nodes without a config get the catalog defaults. Config values are
// normalized the same way an interactive edit would be.
func DecodeYAML(data []byte, opts ...graph.Option) (*Canvas, error) {
	var doc YAMLCanvas
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errdefs.Decode(fmt.Sprintf("failed to parse YAML: %v", err), nil)
	}

	ids := graph.New(opts...)

	nodes := make([]graph.Node, 0, len(doc.Nodes))
	for i, yn := range doc.Nodes {
		t := types.NodeType(yn.Type)
		if !t.Valid() {
			return nil, errdefs.Decode(fmt.Sprintf("node %d has unknown type %q", i, yn.Type), map[string]any{
				"index": i,
				"type":  yn.Type,
			})
		}
		id := types.NodeID(yn.ID)
		if id == "" {
			id = ids.NextNodeID()
		}

		cfg := types.Config(yn.Config)
		if cfg == nil {
			cfg = catalog.DefaultConfigFor(t)
		}
		normalized, err := schema.Normalize(t, cfg)
		if err != nil {
			return nil, errdefs.Decode(fmt.Sprintf("node %s: %s", id, errMessage(err)), map[string]any{
				"node_id": string(id),
			})
		}

		nodes = append(nodes, graph.Node{
			ID:       id,
			Type:     t,
			Position: yn.Position,
			Config:   normalized,
		})
	}

	edges := make([]graph.Edge, 0, len(doc.Edges))
	for _, ye := range doc.Edges {
		edges = append(edges, graph.Edge{
			Source:       types.NodeID(ye.Source),
			Target:       types.NodeID(ye.Target),
			SourceHandle: ye.SourceHandle,
			TargetHandle: ye.TargetHandle,
		})
	}

	g, err := graph.Restore(nodes, edges, opts...)
	if err != nil {
		return nil, err
	}
	return &Canvas{Name: doc.Name, Description: doc.Description, Graph: g}, nil
}

// EncodeYAML writes g as a canvas file.
func EncodeYAML(g *graph.Graph, name, description string) ([]byte, error) {
	doc := &YAMLCanvas{
		Name:        name,
		Description: description,
	}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, YAMLNode{
			ID:       string(n.ID),
			Type:     string(n.Type),
			Position: n.Position,
			Config:   n.Config,
		})
	}
	for _, e := range g.Edges() {
		doc.Edges = append(doc.Edges, YAMLEdge{
			Source:       string(e.Source),
			Target:       string(e.Target),
			SourceHandle: e.SourceHandle,
			TargetHandle: e.TargetHandle,
		})
	}
	return yaml.Marshal(doc)
}

func errMessage(err error) string {
	if m := errdefs.Message(err); m != "" {
		return m
	}
	return err.Error()
}
