package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/docshelf/docshelf/internal/documents"
	"github.com/docshelf/docshelf/internal/files"
	"github.com/docshelf/docshelf/internal/messaging"
	"github.com/docshelf/docshelf/internal/notify"
	"github.com/docshelf/docshelf/internal/pdfcheck"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MaxUploadSize caps document payloads at 10 MiB.
const MaxUploadSize = 10 << 20

const maxTitleLength = 50

// DocumentHandler handles document CRUD operations.
type DocumentHandler struct {
	repo            documents.Repository
	files           files.Store
	publishUploaded messaging.Publish[notify.DocumentUploadedEvent]
	publishDeleted  messaging.Publish[notify.DocumentDeletedEvent]
	logger          *zap.Logger
}

// NewDocumentHandler creates a document handler.
func NewDocumentHandler(
	repo documents.Repository,
	fileStore files.Store,
	publishUploaded messaging.Publish[notify.DocumentUploadedEvent],
	publishDeleted messaging.Publish[notify.DocumentDeletedEvent],
	logger *zap.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		repo:            repo,
		files:           fileStore,
		publishUploaded: publishUploaded,
		publishDeleted:  publishDeleted,
		logger:          logger,
	}
}

// UploadDocument accepts a PDF payload, validates it, stores it, and records
// its metadata. The admission middleware has already granted a concurrency
// slot by the time this runs.
func (h *DocumentHandler) UploadDocument(ctx context.Context, req *UploadDocumentRequest) (*UploadDocumentResponse, error) {
	form := req.RawBody.Data()

	if !strings.HasSuffix(strings.ToLower(form.File.Filename), ".pdf") {
		return nil, huma.Error400BadRequest("only PDF files are allowed")
	}

	content, err := io.ReadAll(io.LimitReader(form.File, MaxUploadSize+1))
	if err != nil {
		return nil, huma.Error400BadRequest("error reading file")
	}

	if len(content) > MaxUploadSize {
		return nil, huma.Error400BadRequest(
			fmt.Sprintf("file exceeds the maximum allowed size of %d bytes", MaxUploadSize))
	}

	check, err := pdfcheck.Validate(content)
	if err != nil {
		if errors.Is(err, pdfcheck.ErrEmpty) {
			return nil, huma.Error400BadRequest("PDF file appears to be empty (no pages found)")
		}

		return nil, huma.Error400BadRequest("PDF file appears to be corrupted or cannot be read")
	}

	storedName, err := h.files.Save(ctx, content)
	if err != nil {
		h.logger.Error("failed to store payload", zap.Error(err))

		return nil, huma.Error500InternalServerError("error saving file")
	}

	meta := RequestMetaFromContext(ctx)

	title := strings.TrimSpace(form.Title)
	if title == "" {
		title = defaultTitle(form.File.Filename)
	}

	doc := &documents.Document{
		ID:          uuid.New(),
		Title:       title,
		Description: form.Description,
		StoredName:  storedName,
		FileSize:    int64(len(content)),
		PageCount:   check.PageCount,
		OwnerID:     meta.Principal,
		Status:      documents.StatusPending,
		CreatedAt:   time.Now().UTC(),
	}

	if err := h.repo.Save(ctx, doc); err != nil {
		h.logger.Error("failed to save document", zap.Error(err))

		// The payload is orphaned otherwise.
		if rmErr := h.files.Remove(ctx, storedName); rmErr != nil {
			h.logger.Warn("failed to remove orphaned payload",
				zap.String("storedName", storedName), zap.Error(rmErr))
		}

		return nil, huma.Error500InternalServerError("error saving document")
	}

	event := &notify.DocumentUploadedEvent{
		DocumentID: doc.ID.String(),
		Title:      doc.Title,
		OwnerID:    doc.OwnerID,
		OwnerEmail: meta.Email,
		FileSize:   doc.FileSize,
		PageCount:  doc.PageCount,
		UploadedAt: doc.CreatedAt,
	}
	if err := h.publishUploaded(event); err != nil {
		h.logger.Error("failed to publish uploaded event",
			zap.String("documentId", event.DocumentID),
			zap.Error(err),
		)
	}

	resp := &UploadDocumentResponse{}
	resp.Body = toPayload(doc)

	return resp, nil
}

// ListDocuments returns the caller's documents, newest first.
func (h *DocumentHandler) ListDocuments(ctx context.Context, req *ListDocumentsRequest) (*ListDocumentsResponse, error) {
	meta := RequestMetaFromContext(ctx)

	docs, total, err := h.repo.List(ctx, meta.Principal, req.Skip, req.Limit)
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to list documents")
	}

	resp := &ListDocumentsResponse{}
	resp.Body.Count = total
	resp.Body.Data = make([]DocumentPayload, len(docs))

	for i, doc := range docs {
		resp.Body.Data[i] = toPayload(doc)
	}

	return resp, nil
}

// GetDocument returns one document owned by the caller.
func (h *DocumentHandler) GetDocument(ctx context.Context, req *DocumentByIDRequest) (*GetDocumentResponse, error) {
	doc, err := h.ownedDocument(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	resp := &GetDocumentResponse{}
	resp.Body = toPayload(doc)

	return resp, nil
}

// UpdateDocument changes title or description.
func (h *DocumentHandler) UpdateDocument(ctx context.Context, req *UpdateDocumentRequest) (*UpdateDocumentResponse, error) {
	if _, err := h.ownedDocument(ctx, req.ID); err != nil {
		return nil, err
	}

	doc, err := h.repo.Update(ctx, req.ID, documents.Update{
		Title:       req.Body.Title,
		Description: req.Body.Description,
	})
	if err != nil {
		return nil, huma.Error500InternalServerError("failed to update document")
	}

	resp := &UpdateDocumentResponse{}
	resp.Body = toPayload(doc)

	return resp, nil
}

// DeleteDocument removes the metadata and the stored payload.
func (h *DocumentHandler) DeleteDocument(ctx context.Context, req *DocumentByIDRequest) (*DeleteDocumentResponse, error) {
	doc, err := h.ownedDocument(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	if err := h.repo.Delete(ctx, req.ID); err != nil {
		return nil, huma.Error500InternalServerError("failed to delete document")
	}

	// Payload removal is best effort once the record is gone.
	if err := h.files.Remove(ctx, doc.StoredName); err != nil && !errors.Is(err, files.ErrNotFound) {
		h.logger.Warn("failed to remove payload",
			zap.String("storedName", doc.StoredName), zap.Error(err))
	}

	event := &notify.DocumentDeletedEvent{
		DocumentID: doc.ID.String(),
		Title:      doc.Title,
		OwnerID:    doc.OwnerID,
		DeletedAt:  time.Now().UTC(),
	}
	if err := h.publishDeleted(event); err != nil {
		h.logger.Error("failed to publish deleted event",
			zap.String("documentId", event.DocumentID),
			zap.Error(err),
		)
	}

	resp := &DeleteDocumentResponse{}
	resp.Body.Message = "document deleted successfully"

	return resp, nil
}

// GetDocumentStatus reports processing state for polling clients.
func (h *DocumentHandler) GetDocumentStatus(ctx context.Context, req *DocumentByIDRequest) (*DocumentStatusResponse, error) {
	doc, err := h.ownedDocument(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	resp := &DocumentStatusResponse{}
	resp.Body.ID = doc.ID
	resp.Body.Status = string(doc.Status)
	resp.Body.Error = doc.Error
	resp.Body.PageCount = doc.PageCount

	return resp, nil
}

// DownloadDocument streams the stored payload.
func (h *DocumentHandler) DownloadDocument(ctx context.Context, req *DocumentByIDRequest) (*huma.StreamResponse, error) {
	doc, err := h.ownedDocument(ctx, req.ID)
	if err != nil {
		return nil, err
	}

	payload, err := h.files.Open(ctx, doc.StoredName)
	if err != nil {
		if errors.Is(err, files.ErrNotFound) {
			return nil, huma.Error404NotFound("document payload not found")
		}

		return nil, huma.Error500InternalServerError("failed to open payload")
	}

	return &huma.StreamResponse{
		Body: func(ctx huma.Context) {
			defer payload.Close()

			ctx.SetHeader("Content-Type", "application/pdf")
			ctx.SetHeader("Content-Disposition",
				fmt.Sprintf("attachment; filename=%q", doc.Title+".pdf"))

			if _, err := io.Copy(ctx.BodyWriter(), payload); err != nil {
				h.logger.Warn("download interrupted",
					zap.String("documentId", doc.ID.String()), zap.Error(err))
			}
		},
	}, nil
}

// ownedDocument loads a document and enforces that the caller owns it.
// Foreign documents read as 403, missing ones as 404.
func (h *DocumentHandler) ownedDocument(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
	doc, err := h.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, documents.ErrNotFound) {
			return nil, huma.Error404NotFound("document not found")
		}

		return nil, huma.Error500InternalServerError("failed to load document")
	}

	meta := RequestMetaFromContext(ctx)
	if doc.OwnerID != meta.Principal {
		return nil, huma.Error403Forbidden("not enough permissions")
	}

	return doc, nil
}

func toPayload(doc *documents.Document) DocumentPayload {
	return DocumentPayload{
		ID:          doc.ID,
		Title:       doc.Title,
		Description: doc.Description,
		FileSize:    doc.FileSize,
		PageCount:   doc.PageCount,
		OwnerID:     doc.OwnerID,
		Status:      string(doc.Status),
		CreatedAt:   doc.CreatedAt,
	}
}

var nonTitleChars = regexp.MustCompile(`[^\w\s$%#&-]`)

var spaceRuns = regexp.MustCompile(`\s+`)

// defaultTitle derives a presentable title from the uploaded filename:
// extension stripped, noise characters removed, whitespace collapsed,
// truncated to a display length.
func defaultTitle(filename string) string {
	title := filename
	if idx := strings.LastIndex(title, "."); idx > 0 {
		title = title[:idx]
	}

	title = strings.NewReplacer("_", " ").Replace(title)
	title = nonTitleChars.ReplaceAllString(title, "")
	title = strings.TrimSpace(spaceRuns.ReplaceAllString(title, " "))

	if len(title) > maxTitleLength {
		title = strings.TrimSpace(title[:maxTitleLength])
	}

	if title == "" {
		return "Untitled Document"
	}

	return title
}
