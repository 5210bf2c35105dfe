package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/flowcanvas/flowcanvas/internal/errdefs"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

const documentNotFound = "Document not found"

// formOverhead is the room left for multipart headers and the
// knowledgebase_id field on top of the file size limit.
const formOverhead = 1 << 20

// handleUploadDocument records an uploaded file. Only metadata is kept;
// the content is read to measure it and then dropped.
func (s *Server) handleUploadDocument(w http.ResponseWriter, r *http.Request) {
	tooLarge := fmt.Sprintf("File size exceeds maximum allowed size of %d bytes", s.maxUpload)

	r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+formOverhead)
	if err := r.ParseMultipartForm(formOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusBadRequest, tooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	size, err := io.Copy(io.Discard, io.LimitReader(file, s.maxUpload+1))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}
	if size > s.maxUpload {
		writeError(w, http.StatusBadRequest, tooLarge)
		return
	}

	fileType := hdr.Header.Get("Content-Type")
	if fileType == "" {
		fileType = "application/octet-stream"
	}

	doc := &types.Document{
		ID:              types.DocumentID(uuid.New().String()),
		Filename:        hdr.Filename,
		FileSize:        size,
		FileType:        fileType,
		KnowledgebaseID: types.NodeID(r.FormValue("knowledgebase_id")),
		Processed:       types.DocumentPending,
		CreatedAt:       s.now(),
	}
	if err := s.store.CreateDocument(r.Context(), doc); err != nil {
		s.fail(w, r, err, "")
		return
	}
	s.log.Info("document uploaded", "document_id", doc.ID, "knowledgebase_id", doc.KnowledgebaseID, "size", size)

	writeJSON(w, http.StatusCreated, doc)
}

// handleListDocuments lists documents, optionally for one knowledgebase.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.store.ListDocuments(r.Context(), types.NodeID(r.URL.Query().Get("knowledgebase_id")))
	if err != nil {
		s.fail(w, r, err, "")
		return
	}

	response := make([]types.Document, len(docs))
	for i, d := range docs {
		response[i] = *d
	}
	writeJSON(w, http.StatusOK, response)
}

// handleGetDocument returns one document record.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id := types.DocumentID(r.PathValue("id"))
	doc, err := s.store.GetDocument(r.Context(), id)
	if err == nil && doc == nil {
		err = errdefs.NotFound("document", id)
	}
	if err != nil {
		s.fail(w, r, err, documentNotFound)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleDeleteDocument deletes one document record.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteDocument(r.Context(), types.DocumentID(r.PathValue("id"))); err != nil {
		s.fail(w, r, err, documentNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
