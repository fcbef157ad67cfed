package documents

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("document not found")

// Status tracks post-upload content processing.
type Status string

const (
	StatusPending   Status = "pending"
	StatusProcessed Status = "processed"
	StatusFailed    Status = "failed"
)

// Document is a stored PDF document's metadata. The payload itself lives in
// a files.Store under StoredName.
type Document struct {
	ID          uuid.UUID
	Title       string
	Description string
	StoredName  string
	FileSize    int64
	PageCount   int
	OwnerID     string
	Status      Status
	Error       string // populated when Status is failed
	CreatedAt   time.Time
}

// Update carries the mutable fields of a document. Nil means unchanged.
type Update struct {
	Title       *string
	Description *string
	PageCount   *int
	Status      *Status
	Error       *string
}

// Repository defines document metadata persistence.
type Repository interface {
	Save(ctx context.Context, doc *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)

	// List returns the owner's documents, newest first, plus the owner's
	// total count.
	List(ctx context.Context, ownerID string, offset, limit int) ([]*Document, int64, error)

	Update(ctx context.Context, id uuid.UUID, update Update) (*Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
