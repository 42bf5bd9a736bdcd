package domain

import (
	"time"

	"github.com/google/uuid"
)

// Document represents a stored document owned by a single user.
type Document struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	FolderID      *uuid.UUID `json:"folder_id,omitempty"`
	Filename      string     `json:"filename"`
	Title         string     `json:"title,omitempty"`
	FileType      string     `json:"file_type,omitempty"`
	Status        string     `json:"status,omitempty"`
	ExtractedText string     `json:"extracted_text,omitempty"`
	Archived      bool       `json:"archived"`
	Tags          []string   `json:"tags,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Chunk is a bounded slice of a document's extracted text, the unit of
// vector and full-text matching before roll-up to document results.
type Chunk struct {
	ID         uuid.UUID `json:"id"`
	DocumentID uuid.UUID `json:"document_id"`
	ChunkIndex int       `json:"chunk_index"`
	Content    string    `json:"content"`
	Embedding  []float32 `json:"embedding,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Folder groups documents for a user.
type Folder struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
