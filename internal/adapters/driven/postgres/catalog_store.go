package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/archivio-labs/archivio-search/internal/core/domain"
)

// CatalogStore persists documents, folders, tags and chunks. The search
// subsystem itself is read-only over this data; the store exists for
// the seeding/administration path and integration tests.
type CatalogStore struct {
	db *DB
}

// NewCatalogStore creates a new CatalogStore
func NewCatalogStore(db *DB) *CatalogStore {
	return &CatalogStore{db: db}
}

// SaveFolder creates or renames a folder
func (s *CatalogStore) SaveFolder(ctx context.Context, folder *domain.Folder) error {
	query := `
		INSERT INTO folders (id, user_id, name, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name
	`
	_, err := s.db.ExecContext(ctx, query, folder.ID, folder.UserID, folder.Name, folder.CreatedAt)
	return err
}

// SaveDocument creates or updates a document and replaces its tag set
func (s *CatalogStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		query := `
			INSERT INTO documents (id, user_id, folder_id, filename, title, file_type, status, extracted_text, archived, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (id) DO UPDATE SET
				folder_id = EXCLUDED.folder_id,
				filename = EXCLUDED.filename,
				title = EXCLUDED.title,
				file_type = EXCLUDED.file_type,
				status = EXCLUDED.status,
				extracted_text = EXCLUDED.extracted_text,
				archived = EXCLUDED.archived,
				updated_at = EXCLUDED.updated_at
		`

		var folderID interface{}
		if doc.FolderID != nil {
			folderID = *doc.FolderID
		}
		var title interface{}
		if doc.Title != "" {
			title = doc.Title
		}
		status := doc.Status
		if status == "" {
			status = "ready"
		}

		if _, err := tx.ExecContext(ctx, query,
			doc.ID, doc.UserID, folderID, doc.Filename, title, doc.FileType,
			status, doc.ExtractedText, doc.Archived, doc.CreatedAt, doc.UpdatedAt,
		); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM document_tags WHERE document_id = $1`, doc.ID); err != nil {
			return err
		}
		for _, name := range doc.Tags {
			var tagID uuid.UUID
			err := tx.QueryRowContext(ctx, `
				INSERT INTO tags (id, user_id, name) VALUES ($1, $2, $3)
				ON CONFLICT (user_id, name) DO UPDATE SET name = EXCLUDED.name
				RETURNING id
			`, uuid.New(), doc.UserID, name).Scan(&tagID)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO document_tags (document_id, tag_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING
			`, doc.ID, tagID); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetDocument retrieves a document by id, scoped to its owner
func (s *CatalogStore) GetDocument(ctx context.Context, userID, id uuid.UUID) (*domain.Document, error) {
	query := `
		SELECT id, user_id, folder_id, filename, COALESCE(title, ''), COALESCE(file_type, ''),
			status, COALESCE(extracted_text, ''), archived, created_at, updated_at
		FROM documents
		WHERE id = $1 AND user_id = $2
	`

	var doc domain.Document
	var folderID uuid.NullUUID
	err := s.db.QueryRowContext(ctx, query, id, userID).Scan(
		&doc.ID, &doc.UserID, &folderID, &doc.Filename, &doc.Title, &doc.FileType,
		&doc.Status, &doc.ExtractedText, &doc.Archived, &doc.CreatedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if folderID.Valid {
		doc.FolderID = &folderID.UUID
	}
	return &doc, nil
}

// SaveChunks replaces all chunks of a document in one transaction
func (s *CatalogStore) SaveChunks(ctx context.Context, documentID uuid.UUID, chunks []*domain.Chunk) error {
	return s.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = $1`, documentID); err != nil {
			return err
		}

		query := `
			INSERT INTO chunks (id, document_id, chunk_index, content, embedding, created_at)
			VALUES ($1, $2, $3, $4, $5::vector, $6)
		`
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, chunk := range chunks {
			var embedding interface{}
			if len(chunk.Embedding) > 0 {
				embedding = vectorLiteral(chunk.Embedding)
			}
			if _, err := stmt.ExecContext(ctx,
				chunk.ID, documentID, chunk.ChunkIndex, chunk.Content, embedding, chunk.CreatedAt,
			); err != nil {
				return fmt.Errorf("chunk %d: %w", chunk.ChunkIndex, err)
			}
		}
		return nil
	})
}

// DeleteDocument removes a document and its chunks
func (s *CatalogStore) DeleteDocument(ctx context.Context, userID, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
