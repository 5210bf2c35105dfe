package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"

	"github.com/flowcanvas/flowcanvas/pkg/types"
)

const documentsPath = "/api/documents"

// ListDocuments returns the documents attached to a knowledgebase node. An
// empty id lists every document.
func (c *Client) ListDocuments(ctx context.Context, knowledgebaseID types.NodeID) ([]types.Document, error) {
	path := documentsPath
	if knowledgebaseID != "" {
		path += "?" + url.Values{"knowledgebase_id": {string(knowledgebaseID)}}.Encode()
	}
	var docs []types.Document
	if err := c.doRequest(ctx, http.MethodGet, path, nil, &docs); err != nil {
		return nil, wrap("list documents", err)
	}
	return docs, nil
}

// GetDocument fetches one document record.
func (c *Client) GetDocument(ctx context.Context, id types.DocumentID) (*types.Document, error) {
	var doc types.Document
	if err := c.doRequest(ctx, http.MethodGet, pathID(documentsPath, string(id)), nil, &doc); err != nil {
		return nil, wrap("get document", err)
	}
	return &doc, nil
}

// DeleteDocument deletes one document record.
func (c *Client) DeleteDocument(ctx context.Context, id types.DocumentID) error {
	return wrap("delete document", c.doRequest(ctx, http.MethodDelete, pathID(documentsPath, string(id)), nil, nil))
}

// UploadDocument uploads r as filename, attached to a knowledgebase node.
func (c *Client) UploadDocument(ctx context.Context, knowledgebaseID types.NodeID, filename string, r io.Reader) (*types.Document, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if knowledgebaseID != "" {
		if err := mw.WriteField("knowledgebase_id", string(knowledgebaseID)); err != nil {
			return nil, fmt.Errorf("failed to write form field: %w", err)
		}
	}
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+documentsPath+"/upload", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var doc types.Document
	if err := c.do(req, &doc); err != nil {
		return nil, wrap("upload document", err)
	}
	return &doc, nil
}
