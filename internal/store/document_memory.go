package store

import (
	"context"
	"sort"
	"sync"

	"github.com/docshelf/docshelf/internal/documents"
	"github.com/google/uuid"
)

// DocumentMemoryStore is an in-memory implementation of documents.Repository.
type DocumentMemoryStore struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]*documents.Document
}

// NewDocumentMemoryStore creates a new in-memory document store.
func NewDocumentMemoryStore() *DocumentMemoryStore {
	return &DocumentMemoryStore{
		docs: make(map[uuid.UUID]*documents.Document),
	}
}

func (m *DocumentMemoryStore) Save(_ context.Context, doc *documents.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *doc
	m.docs[doc.ID] = &stored

	return nil
}

func (m *DocumentMemoryStore) GetByID(_ context.Context, id uuid.UUID) (*documents.Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[id]
	if !ok {
		return nil, documents.ErrNotFound
	}

	copied := *doc

	return &copied, nil
}

func (m *DocumentMemoryStore) List(_ context.Context, ownerID string, offset, limit int) ([]*documents.Document, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	owned := make([]*documents.Document, 0)

	for _, doc := range m.docs {
		if doc.OwnerID == ownerID {
			copied := *doc
			owned = append(owned, &copied)
		}
	}

	sort.Slice(owned, func(i, j int) bool {
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})

	total := int64(len(owned))

	if offset >= len(owned) {
		return []*documents.Document{}, total, nil
	}

	owned = owned[offset:]
	if limit > 0 && limit < len(owned) {
		owned = owned[:limit]
	}

	return owned, total, nil
}

func (m *DocumentMemoryStore) Update(_ context.Context, id uuid.UUID, update documents.Update) (*documents.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[id]
	if !ok {
		return nil, documents.ErrNotFound
	}

	if update.Title != nil {
		doc.Title = *update.Title
	}

	if update.Description != nil {
		doc.Description = *update.Description
	}

	if update.PageCount != nil {
		doc.PageCount = *update.PageCount
	}

	if update.Status != nil {
		doc.Status = *update.Status
	}

	if update.Error != nil {
		doc.Error = *update.Error
	}

	copied := *doc

	return &copied, nil
}

func (m *DocumentMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[id]; !ok {
		return documents.ErrNotFound
	}

	delete(m.docs, id)

	return nil
}
