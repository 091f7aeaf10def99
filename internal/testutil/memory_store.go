// Package testutil holds in-memory fakes shared by package tests.
package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/pdf-qa/backend/internal/models"
	"github.com/pdf-qa/backend/internal/storage"
)

// MemoryStore implements storage.Store in memory. Error fields, when set, are
// returned by the matching operation.
type MemoryStore struct {
	mu           sync.RWMutex
	documents    map[string]*models.Document
	interactions []*models.Interaction

	GetErr            error
	InsertDocumentErr error
	InsertInteractErr error
	ListErr           error

	GetCalls            int
	InsertDocumentCalls int
	Inserted            int
}

var _ storage.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{documents: make(map[string]*models.Document)}
}

func (m *MemoryStore) Driver() string { return "memory" }

func (m *MemoryStore) GetDocument(_ context.Context, id string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetCalls++
	if m.GetErr != nil {
		return nil, m.GetErr
	}
	doc, ok := m.documents[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	cp := *doc
	return &cp, nil
}

func (m *MemoryStore) InsertDocument(_ context.Context, doc *models.Document) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.InsertDocumentCalls++
	if m.InsertDocumentErr != nil {
		return false, m.InsertDocumentErr
	}
	if _, ok := m.documents[doc.ID]; ok {
		return false, nil
	}
	cp := *doc
	m.documents[doc.ID] = &cp
	m.Inserted++
	return true, nil
}

func (m *MemoryStore) InsertInteraction(_ context.Context, rec *models.Interaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertInteractErr != nil {
		return m.InsertInteractErr
	}
	cp := *rec
	m.interactions = append(m.interactions, &cp)
	return nil
}

func (m *MemoryStore) ListInteractions(_ context.Context, limit int) ([]*models.Interaction, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.ListErr != nil {
		return nil, m.ListErr
	}
	out := append([]*models.Interaction(nil), m.interactions...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) Close() error { return nil }

// PutDocument seeds a document without counting an insert.
func (m *MemoryStore) PutDocument(doc *models.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *doc
	m.documents[doc.ID] = &cp
}

// Interactions returns a copy of everything recorded, oldest first.
func (m *MemoryStore) Interactions() []*models.Interaction {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]*models.Interaction(nil), m.interactions...)
}

// Documents returns the number of stored documents.
func (m *MemoryStore) Documents() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.documents)
}

// Counts returns get and insert call counters under the lock.
func (m *MemoryStore) Counts() (gets, inserts, inserted int) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.GetCalls, m.InsertDocumentCalls, m.Inserted
}
