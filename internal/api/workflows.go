package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/flowcanvas/flowcanvas/internal/storage"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

const workflowNotFound = "Workflow not found"

// handleListWorkflows returns one page of workflow summaries.
func (s *Server) handleListWorkflows(w http.ResponseWriter, r *http.Request) {
	skip, err := queryInt(r, "skip", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := queryInt(r, "limit", storage.DefaultListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	workflows, err := s.workflowMgr.List(r.Context(), skip, limit)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	if workflows == nil {
		workflows = []types.WorkflowSummary{}
	}

	writeJSON(w, http.StatusOK, workflows)
}

// handleCreateWorkflow creates a new workflow.
func (s *Server) handleCreateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req types.WorkflowPayload
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wf, err := s.workflowMgr.Create(r.Context(), &req)
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	writeJSON(w, http.StatusCreated, wf)
}

// handleGetWorkflow returns a workflow with its components and connections.
func (s *Server) handleGetWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := s.workflowMgr.Get(r.Context(), types.WorkflowID(r.PathValue("id")))
	if err != nil {
		s.fail(w, r, err, workflowNotFound)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// handleUpdateWorkflow applies a partial update.
func (s *Server) handleUpdateWorkflow(w http.ResponseWriter, r *http.Request) {
	var req types.WorkflowUpdate
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wf, err := s.workflowMgr.Update(r.Context(), types.WorkflowID(r.PathValue("id")), &req)
	if err != nil {
		s.fail(w, r, err, workflowNotFound)
		return
	}
	writeJSON(w, http.StatusOK, wf)
}

// handleDeleteWorkflow deletes a workflow.
func (s *Server) handleDeleteWorkflow(w http.ResponseWriter, r *http.Request) {
	if err := s.workflowMgr.Delete(r.Context(), types.WorkflowID(r.PathValue("id"))); err != nil {
		s.fail(w, r, err, workflowNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleValidateWorkflow checks a stored workflow. An invalid workflow is
// still a 200.
func (s *Server) handleValidateWorkflow(w http.ResponseWriter, r *http.Request) {
	res, err := s.workflowMgr.Validate(r.Context(), types.WorkflowID(r.PathValue("id")))
	if err != nil {
		s.fail(w, r, err, workflowNotFound)
		return
	}
	writeJSON(w, http.StatusOK, res.Result())
}

// handleExecuteWorkflow exists so clients get a clear answer; this server
// stores and validates workflows but does not run them.
func (s *Server) handleExecuteWorkflow(w http.ResponseWriter, r *http.Request) {
	wf, err := s.workflowMgr.Get(r.Context(), types.WorkflowID(r.PathValue("id")))
	if err != nil {
		s.fail(w, r, err, workflowNotFound)
		return
	}

	writeJSON(w, http.StatusNotImplemented, map[string]string{
		"detail":      "workflow execution is not available on this server",
		"workflow_id": string(wf.ID),
	})
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}
