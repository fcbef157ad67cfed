package handlers

import (
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/google/uuid"
)

// DocumentPayload is the public shape of a stored document.
type DocumentPayload struct {
	ID          uuid.UUID `doc:"Document id"                  json:"id"`
	Title       string    `doc:"Document title"               json:"title"`
	Description string    `doc:"Document description"         json:"description,omitempty"`
	FileSize    int64     `doc:"Payload size in bytes"        json:"fileSize"`
	PageCount   int       `doc:"Number of pages"              json:"pageCount"`
	OwnerID     string    `doc:"Owning principal"             json:"ownerId"`
	Status      string    `doc:"Processing status"            json:"status"`
	CreatedAt   time.Time `doc:"Upload time"                  json:"createdAt"`
}

// UploadForm is the multipart form for document uploads.
type UploadForm struct {
	File        huma.FormFile `contentType:"application/pdf" form:"file" required:"true"`
	Title       string        `form:"title" required:"false"`
	Description string        `form:"description" required:"false"`
}

// UploadDocumentRequest is the request for uploading a document.
type UploadDocumentRequest struct {
	RawBody huma.MultipartFormFiles[UploadForm]
}

// UploadDocumentResponse is the response for a successful upload.
type UploadDocumentResponse struct {
	Body DocumentPayload
}

// ListDocumentsRequest is the request for listing documents.
type ListDocumentsRequest struct {
	Skip  int `default:"0"   doc:"Number of documents to skip" minimum:"0" query:"skip"`
	Limit int `default:"100" doc:"Page size"                   maximum:"500" minimum:"1" query:"limit"`
}

// ListDocumentsResponse is the paged document listing.
type ListDocumentsResponse struct {
	Body struct {
		Data  []DocumentPayload `json:"data"`
		Count int64             `doc:"Total documents owned by the caller" json:"count"`
	}
}

// DocumentByIDRequest addresses a single document.
type DocumentByIDRequest struct {
	ID uuid.UUID `doc:"Document id" path:"id"`
}

// GetDocumentResponse is the response for fetching one document.
type GetDocumentResponse struct {
	Body DocumentPayload
}

// UpdateDocumentRequest is the request for updating document metadata.
type UpdateDocumentRequest struct {
	ID   uuid.UUID `doc:"Document id" path:"id"`
	Body struct {
		Title       *string `doc:"New title"       json:"title,omitempty"`
		Description *string `doc:"New description" json:"description,omitempty"`
	}
}

// UpdateDocumentResponse is the response for a metadata update.
type UpdateDocumentResponse struct {
	Body DocumentPayload
}

// DeleteDocumentResponse confirms a deletion.
type DeleteDocumentResponse struct {
	Body struct {
		Message string `json:"message"`
	}
}

// DocumentStatusResponse reports processing state.
type DocumentStatusResponse struct {
	Body struct {
		ID        uuid.UUID `json:"id"`
		Status    string    `json:"status"`
		Error     string    `json:"error,omitempty"`
		PageCount int       `json:"pageCount"`
	}
}

// AvailableSlotsResponse reports how many concurrent uploads the caller
// could start right now. The value is a snapshot and can be stale
// immediately.
type AvailableSlotsResponse struct {
	Body struct {
		EmptySlots int64 `json:"emptySlots"`
	}
}
