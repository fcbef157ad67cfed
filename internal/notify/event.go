package notify

import "time"

const (
	TopicDocumentUploaded = "document.uploaded"
	TopicDocumentDeleted  = "document.deleted"
)

// DocumentUploadedEvent is emitted after a document upload is accepted.
type DocumentUploadedEvent struct {
	DocumentID string    `json:"documentId"`
	Title      string    `json:"title"`
	OwnerID    string    `json:"ownerId"`
	OwnerEmail string    `json:"ownerEmail,omitempty"`
	FileSize   int64     `json:"fileSize"`
	PageCount  int       `json:"pageCount"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// DocumentDeletedEvent is emitted after a document and its payload are
// removed.
type DocumentDeletedEvent struct {
	DocumentID string    `json:"documentId"`
	Title      string    `json:"title"`
	OwnerID    string    `json:"ownerId"`
	DeletedAt  time.Time `json:"deletedAt"`
}
