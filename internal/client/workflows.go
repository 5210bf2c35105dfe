package client

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/flowcanvas/flowcanvas/pkg/types"
)

const workflowsPath = "/api/workflows"

// ListWorkflows returns the first page of stored workflows.
func (c *Client) ListWorkflows(ctx context.Context) ([]types.WorkflowSummary, error) {
	return c.ListWorkflowsPage(ctx, 0, 0)
}

// ListWorkflowsPage returns one page of stored workflows. A zero limit
// leaves the page size to the server.
func (c *Client) ListWorkflowsPage(ctx context.Context, skip, limit int) ([]types.WorkflowSummary, error) {
	q := url.Values{}
	if skip > 0 {
		q.Set("skip", strconv.Itoa(skip))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := workflowsPath
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var workflows []types.WorkflowSummary
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &workflows); err != nil {
		return nil, wrap("list workflows", err)
	}
	return workflows, nil
}

// CreateWorkflow stores a new workflow.
func (c *Client) CreateWorkflow(ctx context.Context, payload *types.WorkflowPayload) (*types.Workflow, error) {
	var wf types.Workflow
	if err := c.doRequest(ctx, http.MethodPost, workflowsPath, payload, &wf); err != nil {
		return nil, wrap("create workflow", err)
	}
	return &wf, nil
}

// GetWorkflow fetches a stored workflow.
func (c *Client) GetWorkflow(ctx context.Context, id types.WorkflowID) (*types.Workflow, error) {
	var wf types.Workflow
	if err := c.doRequest(ctx, http.MethodGet, pathID(workflowsPath, string(id)), nil, &wf); err != nil {
		return nil, wrap("get workflow", err)
	}
	return &wf, nil
}

// UpdateWorkflow replaces a stored workflow with payload.
func (c *Client) UpdateWorkflow(ctx context.Context, id types.WorkflowID, payload *types.WorkflowPayload) (*types.Workflow, error) {
	var wf types.Workflow
	if err := c.doRequest(ctx, http.MethodPut, pathID(workflowsPath, string(id)), payload, &wf); err != nil {
		return nil, wrap("update workflow", err)
	}
	return &wf, nil
}

// DeleteWorkflow deletes a stored workflow.
func (c *Client) DeleteWorkflow(ctx context.Context, id types.WorkflowID) error {
	return wrap("delete workflow", c.doRequest(ctx, http.MethodDelete, pathID(workflowsPath, string(id)), nil, nil))
}

// ValidateWorkflow asks the server whether a stored workflow is complete.
func (c *Client) ValidateWorkflow(ctx context.Context, id types.WorkflowID) (*types.ValidationResult, error) {
	var res types.ValidationResult
	if err := c.doRequest(ctx, http.MethodPost, pathID(workflowsPath, string(id))+"/validate", nil, &res); err != nil {
		return nil, wrap("validate workflow", err)
	}
	return &res, nil
}
