package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowcanvas/flowcanvas/internal/client"
	"github.com/flowcanvas/flowcanvas/internal/schema"
	"github.com/flowcanvas/flowcanvas/internal/session"
	"github.com/flowcanvas/flowcanvas/internal/storage/sqlite"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

const testMaxUpload = 64

// testServer creates a Server on a temp SQLite DB.
func testServer(t *testing.T, apiKey string) (*Server, http.Handler) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "flowcanvas-api-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Init(context.Background()))

	s := New(&Config{APIKey: apiKey, MaxUploadSize: testMaxUpload}, store, nil)
	return s, s.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(w.Body).Decode(&v), w.Body.String())
	return v
}

func detail(t *testing.T, w *httptest.ResponseRecorder) string {
	return decode[map[string]string](t, w)["detail"]
}

const pipelineBody = `{
	"name": "support bot",
	"description": "answers from the handbook",
	"components": [
		{"component_type": "user_query", "node_id": "q", "position_x": 100, "position_y": 100, "config": {}},
		{"component_type": "llm_engine", "node_id": "llm", "position_x": 300, "position_y": 100, "config": {"model": "gpt-4"}},
		{"component_type": "output", "node_id": "out", "position_x": 500, "position_y": 100, "config": {}}
	],
	"connections": [
		{"source_component_id": "q", "target_component_id": "llm"},
		{"source_component_id": "llm", "target_component_id": "out"}
	]
}`

func createPipeline(t *testing.T, h http.Handler) *types.Workflow {
	t.Helper()
	w := do(t, h, http.MethodPost, "/api/workflows", pipelineBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode[*types.Workflow](t, w)
}

func TestHealthEndpoint(t *testing.T) {
	_, h := testServer(t, "")

	w := do(t, h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode[map[string]string](t, w)["status"])
}

func TestAuthMiddleware(t *testing.T) {
	_, h := testServer(t, "secret")

	w := do(t, h, http.MethodGet, "/api/workflows", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "unauthorized", detail(t, w))

	for _, hdr := range []struct{ key, value string }{
		{"Authorization", "Bearer secret"},
		{"X-API-Key", "secret"},
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/workflows", nil)
		req.Header.Set(hdr.key, hdr.value)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, hdr.key)
	}

	// health stays open
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)
}

func TestCORSPreflight(t *testing.T) {
	_, h := testServer(t, "secret")

	w := do(t, h, http.MethodOptions, "/api/workflows/1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PUT")
}

func TestCORSAllowList(t *testing.T) {
	store, err := sqlite.New(filepath.Join(t.TempDir(), "cors.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Init(context.Background()))
	h := New(&Config{CORSOrigins: []string{"http://localhost:3000"}}, store, nil).Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCreateWorkflow(t *testing.T) {
	_, h := testServer(t, "")

	wf := createPipeline(t, h)
	assert.NotEmpty(t, wf.ID)
	assert.Equal(t, "answers from the handbook", wf.Description)
	require.Len(t, wf.Components, 3)
	require.Len(t, wf.Connections, 2)

	llm := wf.ComponentByType(types.NodeTypeLLMEngine)
	require.NotNil(t, llm)
	assert.Equal(t, llm.ID, wf.Connections[0].TargetComponentID)
	assert.Equal(t, types.NodeID("llm"), llm.NodeID)
}

func TestCreateWorkflowRejects(t *testing.T) {
	_, h := testServer(t, "")

	w := do(t, h, http.MethodPost, "/api/workflows", strings.Replace(pipelineBody, `"target_component_id": "out"`, `"target_component_id": "ghost"`, 1))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid node IDs in connection: llm -> ghost", detail(t, w))

	w = do(t, h, http.MethodPost, "/api/workflows", `{"name": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "invalid request body", detail(t, w))

	w = do(t, h, http.MethodPost, "/api/workflows", `{"name": "", "components": [], "connections": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetWorkflow(t *testing.T) {
	_, h := testServer(t, "")
	wf := createPipeline(t, h)

	w := do(t, h, http.MethodGet, "/api/workflows/"+string(wf.ID), "")
	require.Equal(t, http.StatusOK, w.Code)
	got := decode[types.Workflow](t, w)
	assert.Equal(t, wf.ID, got.ID)
	assert.Equal(t, "gpt-4", got.Components[1].Config["model"])

	w = do(t, h, http.MethodGet, "/api/workflows/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Workflow not found", detail(t, w))
}

func TestListWorkflows(t *testing.T) {
	_, h := testServer(t, "")

	w := do(t, h, http.MethodGet, "/api/workflows", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	for range 3 {
		createPipeline(t, h)
	}

	all := decode[[]types.WorkflowSummary](t, do(t, h, http.MethodGet, "/api/workflows", ""))
	require.Len(t, all, 3)
	assert.Equal(t, 3, all[0].Components)
	assert.Equal(t, 2, all[0].Connections)

	page := decode[[]types.WorkflowSummary](t, do(t, h, http.MethodGet, "/api/workflows?skip=1&limit=1", ""))
	require.Len(t, page, 1)
	assert.Equal(t, all[1].ID, page[0].ID)

	w = do(t, h, http.MethodGet, "/api/workflows?limit=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "limit must be a non-negative integer", detail(t, w))
}

func TestUpdateWorkflow(t *testing.T) {
	_, h := testServer(t, "")
	wf := createPipeline(t, h)
	path := "/api/workflows/" + string(wf.ID)

	w := do(t, h, http.MethodPut, path, `{"name": "", "description": "rewritten"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got := decode[types.Workflow](t, w)
	assert.Equal(t, "support bot", got.Name)
	assert.Equal(t, "rewritten", got.Description)
	assert.Len(t, got.Components, 3)

	w = do(t, h, http.MethodPut, path, `{
		"name": "two nodes",
		"components": [
			{"component_type": "user_query", "node_id": "a", "config": {}},
			{"component_type": "output", "node_id": "b", "config": {}}
		],
		"connections": [
			{"source_component_id": "a", "target_component_id": "b"},
			{"source_component_id": "a", "target_component_id": "gone"}
		]
	}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	got = decode[types.Workflow](t, w)
	assert.Equal(t, "two nodes", got.Name)
	assert.Equal(t, "rewritten", got.Description)
	assert.Len(t, got.Components, 2)
	assert.Len(t, got.Connections, 1)

	w = do(t, h, http.MethodPut, "/api/workflows/missing", `{"name": "x"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteWorkflow(t *testing.T) {
	_, h := testServer(t, "")
	wf := createPipeline(t, h)
	path := "/api/workflows/" + string(wf.ID)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, path, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, path, "").Code)

	w := do(t, h, http.MethodDelete, path, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Workflow not found", detail(t, w))
}

func TestValidateWorkflow(t *testing.T) {
	_, h := testServer(t, "")
	wf := createPipeline(t, h)

	w := do(t, h, http.MethodPost, "/api/workflows/"+string(wf.ID)+"/validate", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"valid": true}`, w.Body.String())

	w = do(t, h, http.MethodPost, "/api/workflows", `{
		"name": "no output",
		"components": [
			{"component_type": "user_query", "node_id": "q", "config": {}},
			{"component_type": "llm_engine", "node_id": "llm", "config": {}}
		],
		"connections": [{"source_component_id": "q", "target_component_id": "llm"}]
	}`)
	require.Equal(t, http.StatusCreated, w.Code)
	partial := decode[types.Workflow](t, w)

	w = do(t, h, http.MethodPost, "/api/workflows/"+string(partial.ID)+"/validate", "")
	require.Equal(t, http.StatusOK, w.Code)
	res := decode[types.ValidationResult](t, w)
	assert.False(t, res.Valid)
	assert.Equal(t, "Workflow must contain an Output component", res.Error)

	w = do(t, h, http.MethodPost, "/api/workflows/missing/validate", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestExecuteWorkflow(t *testing.T) {
	_, h := testServer(t, "")
	wf := createPipeline(t, h)

	w := do(t, h, http.MethodPost, "/api/workflows/"+string(wf.ID)+"/execute", `{"query": "hi"}`)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
	assert.Equal(t, string(wf.ID), decode[map[string]string](t, w)["workflow_id"])

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, "/api/workflows/missing/execute", "").Code)
}

func uploadRequest(t *testing.T, kb, filename, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if kb != "" {
		require.NoError(t, mw.WriteField("knowledgebase_id", kb))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDocuments(t *testing.T) {
	_, h := testServer(t, "")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, uploadRequest(t, "kb-1", "handbook.txt", "chapter one"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	doc := decode[types.Document](t, w)
	assert.Equal(t, "handbook.txt", doc.Filename)
	assert.Equal(t, int64(len("chapter one")), doc.FileSize)
	assert.Equal(t, "application/octet-stream", doc.FileType)
	assert.Equal(t, types.NodeID("kb-1"), doc.KnowledgebaseID)
	assert.Equal(t, types.DocumentPending, doc.Processed)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, uploadRequest(t, "kb-2", "other.txt", "x"))
	require.Equal(t, http.StatusCreated, w.Code)

	kb1 := decode[[]types.Document](t, do(t, h, http.MethodGet, "/api/documents?knowledgebase_id=kb-1", ""))
	require.Len(t, kb1, 1)
	assert.Equal(t, doc.ID, kb1[0].ID)

	all := decode[[]types.Document](t, do(t, h, http.MethodGet, "/api/documents", ""))
	assert.Len(t, all, 2)

	w = do(t, h, http.MethodGet, "/api/documents/"+string(doc.ID), "")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/documents/"+string(doc.ID), "").Code)

	w = do(t, h, http.MethodGet, "/api/documents/"+string(doc.ID), "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Document not found", detail(t, w))
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/documents/"+string(doc.ID), "").Code)
}

func TestUploadRejects(t *testing.T) {
	_, h := testServer(t, "")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, uploadRequest(t, "kb-1", "big.txt", strings.Repeat("x", testMaxUpload+1)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "File size exceeds maximum allowed size of 64 bytes", detail(t, w))

	w = httptest.NewRecorder()
	h.ServeHTTP(w, uploadRequest(t, "kb-1", "", ""))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "file is required", detail(t, w))

	w = do(t, h, http.MethodPost, "/api/documents/upload", `{"file": "nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Empty(t, decode[[]types.Document](t, do(t, h, http.MethodGet, "/api/documents", "")))
}

// TestSessionAgainstServer drives an editing session through the REST
// client against a live server.
func TestSessionAgainstServer(t *testing.T) {
	_, h := testServer(t, "")
	srv := httptest.NewServer(h)
	defer srv.Close()

	ctx := context.Background()
	c := client.NewClient(srv.URL)
	s := session.New(c, c, session.WithName("handbook bot"))

	q, err := s.AddNode(types.NodeTypeUserQuery, types.Position{X: 100, Y: 100})
	require.NoError(t, err)
	kb, err := s.AddNode(types.NodeTypeKnowledgebase, types.Position{X: 200, Y: 100})
	require.NoError(t, err)
	llm, err := s.AddNode(types.NodeTypeLLMEngine, types.Position{X: 300, Y: 100})
	require.NoError(t, err)
	out, err := s.AddNode(types.NodeTypeOutput, types.Position{X: 500, Y: 100})
	require.NoError(t, err)

	for _, pair := range [][2]types.NodeID{{q.ID, kb.ID}, {kb.ID, llm.ID}, {llm.ID, out.ID}} {
		_, err := s.Connect(pair[0], pair[1], "", "")
		require.NoError(t, err)
	}
	require.NoError(t, s.EditConfig(llm.ID, "temperature", 0.75))

	saved, err := s.Save(ctx)
	require.NoError(t, err)
	assert.Equal(t, session.StateSaved, s.State())
	assert.Len(t, saved.Connections, 3)

	res, err := s.Validate(ctx)
	require.NoError(t, err)
	assert.True(t, res.Valid, res.Error)

	require.NoError(t, s.EditConfig(kb.ID, "n_results", "8"))
	assert.Equal(t, session.StateDirty, s.State())
	_, err = s.Save(ctx)
	require.NoError(t, err)

	_, listed, err := s.UploadDocument(ctx, kb.ID, "faq.md", strings.NewReader("# FAQ"))
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "faq.md", listed[0].Filename)

	reloaded := session.New(c, c)
	require.NoError(t, reloaded.Load(ctx, saved.ID))
	assert.Equal(t, session.StateSaved, reloaded.State())
	assert.Equal(t, "handbook bot", reloaded.Name())

	g := reloaded.Graph()
	assert.Equal(t, 4, g.Len())
	assert.Len(t, g.Edges(), 3)
	node, err := g.Node(llm.ID)
	require.NoError(t, err)
	assert.Equal(t, 0.75, node.Config["temperature"])
	assert.True(t, node.Persisted())
	kbNode, err := g.Node(kb.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 8, kbNode.Config["n_results"])

	fields, err := reloaded.EditorFields(ctx, kb.ID)
	require.NoError(t, err)
	var docs []types.Document
	for _, f := range fields {
		if f.Key == schema.DocumentsKey {
			docs, _ = f.Value.([]types.Document)
		}
	}
	require.Len(t, docs, 1)
	assert.Equal(t, "faq.md", docs[0].Filename)

	list, err := reloaded.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)
}
