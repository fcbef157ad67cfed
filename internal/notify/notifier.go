package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"go.uber.org/zap"
)

var uploadedTemplate = template.Must(template.New("uploaded").Parse(`<html>
<body>
<h2>{{.ProjectName}}</h2>
<p>Your document <strong>{{.Title}}</strong> was uploaded successfully.</p>
<p>{{.PageCount}} page(s), {{.FileSize}} bytes.</p>
</body>
</html>`))

var deletedTemplate = template.Must(template.New("deleted").Parse(`<html>
<body>
<h2>{{.ProjectName}}</h2>
<p>Your document <strong>{{.Title}}</strong> was deleted.</p>
</body>
</html>`))

// Notifier turns document events into emails. It is the handler side of the
// notification consumer; it owns no broker state.
type Notifier struct {
	mailer      Mailer
	projectName string
	logger      *zap.Logger
}

// NewNotifier creates a notifier sending through the given mailer.
func NewNotifier(mailer Mailer, projectName string, logger *zap.Logger) *Notifier {
	return &Notifier{
		mailer:      mailer,
		projectName: projectName,
		logger:      logger,
	}
}

// HandleUploaded processes a document-uploaded event.
func (n *Notifier) HandleUploaded(ctx context.Context, event *DocumentUploadedEvent) error {
	if event.OwnerEmail == "" {
		n.logger.Debug("uploaded event without owner email, skipping",
			zap.String("documentId", event.DocumentID),
		)

		return nil
	}

	subject := fmt.Sprintf("%s - Document uploaded: %s", n.projectName, event.Title)

	body, err := render(uploadedTemplate, map[string]any{
		"ProjectName": n.projectName,
		"Title":       event.Title,
		"PageCount":   event.PageCount,
		"FileSize":    event.FileSize,
	})
	if err != nil {
		return err
	}

	return n.mailer.Send(ctx, event.OwnerEmail, subject, body)
}

// HandleDeleted processes a document-deleted event. Deletion notices are
// informational only; owners without a known email are skipped.
func (n *Notifier) HandleDeleted(ctx context.Context, event *DocumentDeletedEvent) error {
	n.logger.Info("document deleted",
		zap.String("documentId", event.DocumentID),
		zap.String("ownerId", event.OwnerID),
	)

	return nil
}

func render(tmpl *template.Template, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}

	return buf.String(), nil
}
