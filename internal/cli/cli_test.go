package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcanvas/flowcanvas/internal/catalog"
	"github.com/flowcanvas/flowcanvas/internal/codec"
	"github.com/flowcanvas/flowcanvas/internal/config"
	"github.com/flowcanvas/flowcanvas/internal/schema"
	"github.com/flowcanvas/flowcanvas/internal/session"
	"github.com/flowcanvas/flowcanvas/internal/workflow"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

func TestMatchWorkflow(t *testing.T) {
	list := []types.WorkflowSummary{
		{ID: "3f2a9c10-aaaa", Name: "support bot"},
		{ID: "3f2b0000-bbbb", Name: "3f2a9c10-aaaa-named"},
		{ID: "9e1d0000-cccc", Name: "research"},
	}

	tests := []struct {
		in      string
		want    types.WorkflowID
		wantErr bool
	}{
		{in: "3f2a9c10-aaaa", want: "3f2a9c10-aaaa"},
		{in: "research", want: "9e1d0000-cccc"},
		{in: "9e1", want: "9e1d0000-cccc"},
		{in: "3f2", wantErr: true},
		{in: "zzz", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := matchWorkflow(list, tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSetConfigValue(t *testing.T) {
	s := session.New(nil, nil, session.WithName("demo"))
	kb, err := s.AddNode(types.NodeTypeKnowledgebase, types.Position{})
	require.NoError(t, err)
	llm, err := s.AddNode(types.NodeTypeLLMEngine, types.Position{})
	require.NoError(t, err)

	tests := []struct {
		node types.NodeID
		key  string
		raw  string
		want any
	}{
		{node: kb.ID, key: "collection_name", raw: "007", want: "007"},
		{node: kb.ID, key: "collection_name", raw: "1e3", want: "1e3"},
		{node: llm.ID, key: "model", raw: "inf", want: "inf"},
		{node: llm.ID, key: "system_prompt", raw: "42", want: "42"},
		{node: kb.ID, key: "n_results", raw: "8", want: 8},
		{node: llm.ID, key: "temperature", raw: "0.75", want: 0.75},
		{node: llm.ID, key: "use_web_search", raw: "true", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.raw, func(t *testing.T) {
			got, err := setConfigValue(s, tt.node, tt.key, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = setConfigValue(s, llm.ID, "use_web_search", "yes")
	assert.Error(t, err)
	_, err = setConfigValue(s, kb.ID, "n_results", "25")
	assert.Error(t, err)
	n, err := s.Graph().Node(kb.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, n.Config["n_results"])
}

const canvasYAML = `name: support bot
nodes:
  - id: q
    type: user_query
    position: {x: 100, y: 100}
  - id: llm
    type: llm_engine
    position: {x: 300, y: 100}
    config:
      temperature: 0.2
  - id: out
    type: output
    position: {x: 500, y: 100}
edges:
  - {source: q, target: llm}
  - {source: llm, target: out}
`

func TestCanvasWorkflowValidatesLocally(t *testing.T) {
	canvas, err := codec.DecodeYAML([]byte(canvasYAML))
	require.NoError(t, err)

	wf := canvasWorkflow(canvas)
	require.Len(t, wf.Components, 3)
	require.Len(t, wf.Connections, 2)
	assert.Equal(t, types.ComponentID("llm"), wf.Connections[0].TargetComponentID)
	assert.True(t, workflow.Validate(wf).Valid)

	canvas.Graph.RemoveNode("out")
	res := workflow.Validate(canvasWorkflow(canvas)).Result()
	assert.Equal(t, "Workflow must contain an Output component", res.Error)
}

func TestRenderWorkflows(t *testing.T) {
	var buf bytes.Buffer
	renderWorkflows(&buf, []types.WorkflowSummary{{
		ID:          "3f2a9c10-1111-2222",
		Name:        "a workflow with a rather long descriptive name",
		Components:  4,
		Connections: 3,
		UpdatedAt:   time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC),
	}})

	out := buf.String()
	assert.Contains(t, out, "3f2a9c10")
	assert.NotContains(t, out, "3f2a9c10-1111")
	assert.Contains(t, out, "a workflow with a rather lo...")
	assert.Contains(t, out, "2026-10-19 09:30")
}

func TestRenderGraph(t *testing.T) {
	canvas, err := codec.DecodeYAML([]byte(canvasYAML))
	require.NoError(t, err)

	var buf bytes.Buffer
	renderGraph(&buf, session.Status{Name: "support bot", WorkflowID: "wf-1"}, canvas.Graph)

	out := buf.String()
	assert.Contains(t, out, "Workflow: support bot")
	assert.Contains(t, out, "Nodes (3):")
	assert.Contains(t, out, "LLM Engine")
	assert.Contains(t, out, "temperature=0.2")
	assert.Contains(t, out, "Edges (2):")
}

func TestRenderCatalogAndFields(t *testing.T) {
	var buf bytes.Buffer
	renderCatalog(&buf, catalog.All())
	for _, e := range catalog.All() {
		assert.Contains(t, buf.String(), string(e.Type))
	}

	buf.Reset()
	renderFields(&buf, schema.FieldsFor(types.NodeTypeLLMEngine, catalog.DefaultConfigFor(types.NodeTypeLLMEngine)))
	out := buf.String()
	assert.Contains(t, out, "0..2, step 0.1")
	assert.Contains(t, out, "openai|gemini")
	assert.Contains(t, out, "optional")
}

func TestRenderValidation(t *testing.T) {
	var buf bytes.Buffer
	renderValidation(&buf, types.ValidationResult{Valid: true})
	assert.Equal(t, "Workflow is valid.\n", buf.String())

	buf.Reset()
	renderValidation(&buf, types.ValidationResult{Error: "Workflow must contain an Output component"})
	assert.Contains(t, buf.String(), "  - Workflow must contain an Output component")
}

func TestRenderDocuments(t *testing.T) {
	var buf bytes.Buffer
	renderDocuments(&buf, []types.Document{{
		ID:        "d-123456789",
		Filename:  "faq.md",
		FileSize:  42,
		Processed: types.DocumentPending,
	}})
	out := buf.String()
	assert.Contains(t, out, "d-123456")
	assert.Contains(t, out, "faq.md")
	assert.Contains(t, out, "pending")
}

func TestOpenStorage(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{
		Driver: "sqlite",
		Path:   filepath.Join(t.TempDir(), "nested", "flowcanvas.db"),
	}}
	store, err := openStorage(t.Context(), cfg)
	require.NoError(t, err)
	defer store.Close()
	_, err = os.Stat(filepath.Dir(cfg.Storage.Path))
	assert.NoError(t, err)

	_, err = openStorage(t.Context(), &config.Config{Storage: config.StorageConfig{Driver: "postgres"}})
	assert.ErrorContains(t, err, "DATABASE_URL")

	_, err = openStorage(t.Context(), &config.Config{Storage: config.StorageConfig{Driver: "mongo"}})
	assert.ErrorContains(t, err, "unknown storage driver")
}
