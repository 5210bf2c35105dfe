package schema

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/flowcanvas/flowcanvas/internal/errdefs"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

// Config is the typed configuration of one node. Exactly one variant
// exists per node type.
type Config interface {
	NodeType() types.NodeType
}

// UserQueryConfig carries no settings.
type UserQueryConfig struct{}

// KnowledgebaseConfig configures document retrieval.
type KnowledgebaseConfig struct {
	CollectionName    string `mapstructure:"collection_name" json:"collection_name"`
	NResults          int    `mapstructure:"n_results" json:"n_results"`
	EmbeddingProvider string `mapstructure:"embedding_provider" json:"embedding_provider"`
}

// LLMEngineConfig configures the model call.
type LLMEngineConfig struct {
	Provider     string  `mapstructure:"provider" json:"provider"`
	Model        string  `mapstructure:"model" json:"model"`
	Temperature  float64 `mapstructure:"temperature" json:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens" json:"max_tokens"`
	UseWebSearch bool    `mapstructure:"use_web_search" json:"use_web_search"`
	SystemPrompt string  `mapstructure:"system_prompt" json:"system_prompt,omitempty"`
}

// OutputConfig carries no settings.
type OutputConfig struct{}

func (UserQueryConfig) NodeType() types.NodeType     { return types.NodeTypeUserQuery }
func (KnowledgebaseConfig) NodeType() types.NodeType { return types.NodeTypeKnowledgebase }
func (LLMEngineConfig) NodeType() types.NodeType     { return types.NodeTypeLLMEngine }
func (OutputConfig) NodeType() types.NodeType        { return types.NodeTypeOutput }

// Decode converts the loose configuration of a node of type t into its typed
// variant. Missing keys take their defaults; present keys are validated the
// same way an edit would be. Unknown keys are ignored.
func Decode(t types.NodeType, cfg types.Config) (Config, error) {
	var target Config
	switch t {
	case types.NodeTypeUserQuery:
		return UserQueryConfig{}, nil
	case types.NodeTypeOutput:
		return OutputConfig{}, nil
	case types.NodeTypeKnowledgebase:
		target = &KnowledgebaseConfig{}
	case types.NodeTypeLLMEngine:
		target = &LLMEngineConfig{}
	default:
		return nil, errdefs.Rejected(fmt.Sprintf("unknown component type %q", t), map[string]any{
			"type": string(t),
		})
	}

	normalized, err := Normalize(t, cfg)
	if err != nil {
		return nil, err
	}
	input := make(map[string]any, len(specsFor(t)))
	for _, s := range specsFor(t) {
		if v, ok := normalized[s.key]; ok && v != nil {
			input[s.key] = v
			continue
		}
		input[s.key] = s.def(normalized)
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  target,
		TagName: "mapstructure",
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(input); err != nil {
		return nil, errdefs.Rejected(err.Error(), map[string]any{"type": string(t)})
	}

	switch c := target.(type) {
	case *KnowledgebaseConfig:
		return *c, nil
	case *LLMEngineConfig:
		return *c, nil
	}
	return target, nil
}
