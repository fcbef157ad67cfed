package notify_test

import (
	"context"
	"testing"

	"github.com/docshelf/docshelf/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type capturingMailer struct {
	to      string
	subject string
	body    string
	sends   int
}

func (m *capturingMailer) Send(_ context.Context, to, subject, htmlBody string) error {
	m.to = to
	m.subject = subject
	m.body = htmlBody
	m.sends++

	return nil
}

func TestNotifierHandleUploaded(t *testing.T) {
	t.Run("sends an email to the owner", func(t *testing.T) {
		mailer := &capturingMailer{}
		notifier := notify.NewNotifier(mailer, "DocShelf", zap.NewNop())

		err := notifier.HandleUploaded(context.Background(), &notify.DocumentUploadedEvent{
			DocumentID: "doc-1",
			Title:      "Quarterly Report",
			OwnerID:    "alice",
			OwnerEmail: "alice@example.com",
			FileSize:   2048,
			PageCount:  7,
		})

		require.NoError(t, err)
		assert.Equal(t, 1, mailer.sends)
		assert.Equal(t, "alice@example.com", mailer.to)
		assert.Equal(t, "DocShelf - Document uploaded: Quarterly Report", mailer.subject)
		assert.Contains(t, mailer.body, "Quarterly Report")
		assert.Contains(t, mailer.body, "7 page(s)")
		assert.Contains(t, mailer.body, "2048 bytes")
	})

	t.Run("skips events without an owner email", func(t *testing.T) {
		mailer := &capturingMailer{}
		notifier := notify.NewNotifier(mailer, "DocShelf", zap.NewNop())

		err := notifier.HandleUploaded(context.Background(), &notify.DocumentUploadedEvent{
			DocumentID: "doc-2",
			Title:      "No Email",
			OwnerID:    "bob",
		})

		require.NoError(t, err)
		assert.Zero(t, mailer.sends)
	})

	t.Run("escapes html in titles", func(t *testing.T) {
		mailer := &capturingMailer{}
		notifier := notify.NewNotifier(mailer, "DocShelf", zap.NewNop())

		err := notifier.HandleUploaded(context.Background(), &notify.DocumentUploadedEvent{
			Title:      "<script>alert(1)</script>",
			OwnerEmail: "alice@example.com",
		})

		require.NoError(t, err)
		assert.NotContains(t, mailer.body, "<script>")
	})
}

func TestNotifierHandleDeleted(t *testing.T) {
	mailer := &capturingMailer{}
	notifier := notify.NewNotifier(mailer, "DocShelf", zap.NewNop())

	err := notifier.HandleDeleted(context.Background(), &notify.DocumentDeletedEvent{
		DocumentID: "doc-1",
		OwnerID:    "alice",
	})

	require.NoError(t, err)
	assert.Zero(t, mailer.sends, "deletion notices are log-only")
}
