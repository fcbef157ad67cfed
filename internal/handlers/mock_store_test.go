package handlers_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/docshelf/docshelf/internal/documents"
	"github.com/docshelf/docshelf/internal/files"
	"github.com/google/uuid"
)

var errMock = errors.New("mock error")

// fakeFiles is an in-memory files.Store that records removals.
type fakeFiles struct {
	mu      sync.Mutex
	saved   map[string][]byte
	removed []string
	saveErr error
	n       int
}

func newFakeFiles() *fakeFiles {
	return &fakeFiles{saved: make(map[string][]byte)}
}

func (f *fakeFiles) Save(_ context.Context, data []byte) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.n++
	name := fmt.Sprintf("stored-%d.pdf", f.n)
	f.saved[name] = append([]byte(nil), data...)

	return name, nil
}

func (f *fakeFiles) Open(_ context.Context, name string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, ok := f.saved[name]
	if !ok {
		return nil, files.ErrNotFound
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (f *fakeFiles) Remove(_ context.Context, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.saved[name]; !ok {
		return files.ErrNotFound
	}

	delete(f.saved, name)
	f.removed = append(f.removed, name)

	return nil
}

// mockRepository is a documents.Repository double that can be configured to
// return errors.
type mockRepository struct {
	saveErr   error
	getErr    error
	listErr   error
	updateErr error
	deleteErr error
	doc       *documents.Document
}

func (m *mockRepository) Save(_ context.Context, _ *documents.Document) error {
	return m.saveErr
}

func (m *mockRepository) GetByID(_ context.Context, _ uuid.UUID) (*documents.Document, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}

	return m.doc, nil
}

func (m *mockRepository) List(_ context.Context, _ string, _, _ int) ([]*documents.Document, int64, error) {
	return nil, 0, m.listErr
}

func (m *mockRepository) Update(_ context.Context, _ uuid.UUID, _ documents.Update) (*documents.Document, error) {
	if m.updateErr != nil {
		return nil, m.updateErr
	}

	return m.doc, nil
}

func (m *mockRepository) Delete(_ context.Context, _ uuid.UUID) error {
	return m.deleteErr
}
