// Package schema resolves the editable fields of each component type and
// validates proposed configuration edits. It holds no state.
package schema

import (
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

// Kind is the editor widget a field maps to.
type Kind string

const (
	KindText      Kind = "text"
	KindTextArea  Kind = "textarea"
	KindInteger   Kind = "integer"
	KindNumber    Kind = "number"
	KindEnum      Kind = "enum"
	KindBoolean   Kind = "boolean"
	KindDocuments Kind = "documents"
)

// Option is one choice of an enum field.
type Option struct {
	Value string `json:"value" yaml:"value"`
	Label string `json:"label" yaml:"label"`
}

// Field describes one editable (or read-only) setting of a node.
type Field struct {
	Key         string   `json:"key" yaml:"key"`
	Label       string   `json:"label" yaml:"label"`
	Kind        Kind     `json:"kind" yaml:"kind"`
	Options     []Option `json:"options,omitempty" yaml:"options,omitempty"`
	Min         *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64 `json:"max,omitempty" yaml:"max,omitempty"`
	Step        *float64 `json:"step,omitempty" yaml:"step,omitempty"`
	Default     any      `json:"default,omitempty" yaml:"default,omitempty"`
	Value       any      `json:"value,omitempty" yaml:"value,omitempty"`
	Placeholder string   `json:"placeholder,omitempty" yaml:"placeholder,omitempty"`
	Optional    bool     `json:"optional,omitempty" yaml:"optional,omitempty"`
	ReadOnly    bool     `json:"read_only,omitempty" yaml:"read_only,omitempty"`
}

// DocumentsKey is the read-only field listing a knowledgebase's documents.
// Its value is owned by the document collaborator and filled in by callers.
const DocumentsKey = "documents"

const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

var providerOptions = []Option{
	{Value: ProviderOpenAI, Label: "OpenAI"},
	{Value: ProviderGemini, Label: "Gemini"},
}

// spec is the static definition behind a Field.
type spec struct {
	key      string
	label    string
	kind     Kind
	options  []Option
	min      float64
	max      float64
	step     float64
	ranged   bool
	optional bool
	// def computes the default, which may depend on sibling values.
	def func(cfg types.Config) any
}

func constant(v any) func(types.Config) any {
	return func(types.Config) any { return v }
}

// DefaultModel is the model suggested for provider.
func DefaultModel(provider string) string {
	if provider == ProviderGemini {
		return "gemini-pro"
	}
	return "gpt-3.5-turbo"
}

var knowledgebaseSpecs = []spec{
	{key: "collection_name", label: "Collection Name", kind: KindText, def: constant("documents")},
	{key: "n_results", label: "Number of Results", kind: KindInteger, min: 1, max: 20, step: 1, ranged: true, def: constant(5)},
	{key: "embedding_provider", label: "Embedding Provider", kind: KindEnum, options: providerOptions, def: constant(ProviderOpenAI)},
}

var llmEngineSpecs = []spec{
	{key: "provider", label: "Provider", kind: KindEnum, options: providerOptions, def: constant(ProviderOpenAI)},
	{key: "model", label: "Model", kind: KindText, def: func(cfg types.Config) any {
		p, _ := cfg["provider"].(string)
		return DefaultModel(p)
	}},
	{key: "temperature", label: "Temperature", kind: KindNumber, min: 0, max: 2, step: 0.1, ranged: true, def: constant(0.7)},
	{key: "max_tokens", label: "Max Tokens", kind: KindInteger, min: 1, max: 4000, step: 1, ranged: true, def: constant(1000)},
	{key: "use_web_search", label: "Use Web Search", kind: KindBoolean, def: constant(false)},
	{key: "system_prompt", label: "System Prompt", kind: KindTextArea, optional: true, def: constant("")},
}

// specsFor is the single dispatch point over the closed set of node types.
func specsFor(t types.NodeType) []spec {
	switch t {
	case types.NodeTypeKnowledgebase:
		return knowledgebaseSpecs
	case types.NodeTypeLLMEngine:
		return llmEngineSpecs
	case types.NodeTypeUserQuery, types.NodeTypeOutput:
		return nil
	default:
		return nil
	}
}

func lookupSpec(t types.NodeType, key string) (spec, bool) {
	for _, s := range specsFor(t) {
		if s.key == key {
			return s, true
		}
	}
	return spec{}, false
}

// Keys returns the editable keys of t in display order.
func Keys(t types.NodeType) []string {
	specs := specsFor(t)
	keys := make([]string, len(specs))
	for i, s := range specs {
		keys[i] = s.key
	}
	return keys
}

// FieldsFor returns the ordered field descriptors of a node of type t whose
// current configuration is cfg. Keys in cfg that no field describes are
// ignored here and left untouched in the node.
func FieldsFor(t types.NodeType, cfg types.Config) []Field {
	specs := specsFor(t)
	fields := make([]Field, 0, len(specs)+1)
	for _, s := range specs {
		def := s.def(cfg)
		f := Field{
			Key:      s.key,
			Label:    s.label,
			Kind:     s.kind,
			Options:  s.options,
			Default:  def,
			Value:    def,
			Optional: s.optional,
		}
		// an empty string shows the default, as an unset key does
		if v, ok := cfg[s.key]; ok && v != nil && v != "" {
			f.Value = v
		}
		if s.ranged {
			f.Min, f.Max, f.Step = ptr(s.min), ptr(s.max), ptr(s.step)
		}
		if s.key == "model" {
			f.Placeholder = def.(string)
		}
		if s.key == "system_prompt" {
			f.Placeholder = "Enter custom system prompt..."
		}
		fields = append(fields, f)
	}
	if t == types.NodeTypeKnowledgebase {
		fields = append(fields, Field{
			Key:      DocumentsKey,
			Label:    "Uploaded Documents",
			Kind:     KindDocuments,
			ReadOnly: true,
		})
	}
	return fields
}

func ptr(f float64) *float64 { return &f }
