package handlers

import (
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/docshelf/docshelf/internal/admission"
)

// RegisterRoutes registers the document API. The upload route carries
// admission metadata: the middleware gates it at uploadCfg.MaxConcurrent per
// route+principal and the gate's global ceiling per principal.
func RegisterRoutes(api huma.API, h *DocumentHandler, s *SlotsHandler, uploadCfg admission.EndpointConfig) {
	huma.Register(api, huma.Operation{
		OperationID:  "upload-document",
		Method:       http.MethodPost,
		Path:         "/documents",
		Summary:      "Upload a PDF document",
		Tags:         []string{"Documents"},
		MaxBodyBytes: MaxUploadSize + 1<<16, // payload cap plus multipart framing
		Metadata: map[string]any{
			admission.MetadataKey: uploadCfg,
		},
	}, h.UploadDocument)

	huma.Register(api, huma.Operation{
		OperationID: "list-documents",
		Method:      http.MethodGet,
		Path:        "/documents",
		Summary:     "List documents",
		Tags:        []string{"Documents"},
	}, h.ListDocuments)

	huma.Register(api, huma.Operation{
		OperationID: "available-upload-slots",
		Method:      http.MethodGet,
		Path:        "/documents/slots",
		Summary:     "Available upload slots",
		Description: "Snapshot of how many concurrent uploads the caller could start right now.",
		Tags:        []string{"Documents"},
	}, s.AvailableSlots)

	huma.Register(api, huma.Operation{
		OperationID: "get-document",
		Method:      http.MethodGet,
		Path:        "/documents/{id}",
		Summary:     "Get a document",
		Tags:        []string{"Documents"},
	}, h.GetDocument)

	huma.Register(api, huma.Operation{
		OperationID: "update-document",
		Method:      http.MethodPatch,
		Path:        "/documents/{id}",
		Summary:     "Update document metadata",
		Tags:        []string{"Documents"},
	}, h.UpdateDocument)

	huma.Register(api, huma.Operation{
		OperationID: "delete-document",
		Method:      http.MethodDelete,
		Path:        "/documents/{id}",
		Summary:     "Delete a document",
		Tags:        []string{"Documents"},
	}, h.DeleteDocument)

	huma.Register(api, huma.Operation{
		OperationID: "document-status",
		Method:      http.MethodGet,
		Path:        "/documents/{id}/status",
		Summary:     "Document processing status",
		Tags:        []string{"Documents"},
	}, h.GetDocumentStatus)

	huma.Register(api, huma.Operation{
		OperationID: "download-document",
		Method:      http.MethodGet,
		Path:        "/documents/{id}/download",
		Summary:     "Download a document",
		Tags:        []string{"Documents"},
	}, h.DownloadDocument)
}
