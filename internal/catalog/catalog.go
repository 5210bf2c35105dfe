// Package catalog is the fixed registry of component types that can be
// placed on a canvas.
package catalog

import (
	"fmt"

	"github.com/flowcanvas/flowcanvas/pkg/types"
)

// Entry describes one component type.
type Entry struct {
	Type        types.NodeType
	Label       string
	Icon        string
	Description string

	defaults types.Config
}

// DefaultConfig returns a fresh copy of the entry's default configuration.
func (e Entry) DefaultConfig() types.Config {
	return e.defaults.Clone()
}

// entries is built once and never mutated.
var entries = []Entry{
	{
		Type:        types.NodeTypeUserQuery,
		Label:       "User Query",
		Icon:        "💬",
		Description: "Accepts user input and passes it to connected components.",
		defaults:    types.Config{},
	},
	{
		Type:        types.NodeTypeKnowledgebase,
		Label:       "Knowledge Base",
		Icon:        "📚",
		Description: "Retrieves relevant chunks from uploaded documents.",
		defaults: types.Config{
			"collection_name":    "documents",
			"n_results":          5,
			"embedding_provider": "openai",
		},
	},
	{
		Type:        types.NodeTypeLLMEngine,
		Label:       "LLM Engine",
		Icon:        "🤖",
		Description: "Calls a language model with the query and retrieved context.",
		defaults: types.Config{
			"provider":       "openai",
			"model":          "gpt-3.5-turbo",
			"temperature":    0.7,
			"max_tokens":     1000,
			"use_web_search": false,
		},
	},
	{
		Type:        types.NodeTypeOutput,
		Label:       "Output",
		Icon:        "📤",
		Description: "Displays the final response to the user in the chat interface.",
		defaults:    types.Config{},
	},
}

var byType = func() map[types.NodeType]Entry {
	m := make(map[types.NodeType]Entry, len(entries))
	for _, e := range entries {
		m[e.Type] = e
	}
	return m
}()

// All returns every entry in display order.
func All() []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

// Lookup returns the entry for t.
func Lookup(t types.NodeType) (Entry, bool) {
	e, ok := byType[t]
	return e, ok
}

// LabelFor returns the display label of t, or the raw type name for types
// the catalog does not know.
func LabelFor(t types.NodeType) string {
	if e, ok := byType[t]; ok {
		return e.Label
	}
	return string(t)
}

// DefaultConfigFor returns the default configuration template for t.
// t must be a known type.
func DefaultConfigFor(t types.NodeType) types.Config {
	e, ok := byType[t]
	if !ok {
		panic(fmt.Sprintf("catalog: unknown node type %q", t))
	}
	return e.DefaultConfig()
}
