package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/flowcanvas/flowcanvas/internal/errdefs"
	"github.com/flowcanvas/flowcanvas/pkg/types"
)

const documentColumns = `id, filename, file_size, file_type, knowledgebase_id, processed, created_at`

func scanDocument(row pgx.Row) (*types.Document, error) {
	var d types.Document
	if err := row.Scan(&d.ID, &d.Filename, &d.FileSize, &d.FileType, &d.KnowledgebaseID, &d.Processed, &d.CreatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// CreateDocument records document metadata.
func (s *PGStore) CreateDocument(ctx context.Context, d *types.Document) error {
	_, err := s.db.Exec(ctx,
		`INSERT INTO documents (`+documentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		d.ID, d.Filename, d.FileSize, d.FileType, d.KnowledgebaseID, d.Processed, d.CreatedAt)
	if err != nil {
		return fmt.Errorf("document: insert: %w", err)
	}
	return nil
}

// GetDocument returns (nil, nil) if the document does not exist.
func (s *PGStore) GetDocument(ctx context.Context, id types.DocumentID) (*types.Document, error) {
	d, err := scanDocument(s.db.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id))
	if isNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("document: get: %w", err)
	}
	return d, nil
}

// ListDocuments returns the documents of a knowledgebase node, or every
// document when the id is empty.
func (s *PGStore) ListDocuments(ctx context.Context, knowledgebaseID types.NodeID) ([]*types.Document, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+documentColumns+` FROM documents
		 WHERE $1 = '' OR knowledgebase_id = $1
		 ORDER BY created_at, id`, string(knowledgebaseID))
	if err != nil {
		return nil, fmt.Errorf("document: list: %w", err)
	}
	defer rows.Close()

	out := []*types.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("document: scan: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// DeleteDocument removes a document record.
func (s *PGStore) DeleteDocument(ctx context.Context, id types.DocumentID) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("document: delete: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return errdefs.NotFound("document", id)
	}
	return nil
}
