package storage

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/pdf-qa/backend/internal/models"
)

// FirestoreStore implements Store on Cloud Firestore. Unlike the file-backed
// stores it is shared by every replica of the server.
type FirestoreStore struct {
	client       *firestore.Client
	documents    string
	interactions string
}

// NewFirestore creates a Firestore-backed store for the given project.
func NewFirestore(ctx context.Context, projectID, documents, interactions string) (*FirestoreStore, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}
	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}
	return NewFirestoreWithClient(client, documents, interactions), nil
}

// NewFirestoreWithClient wraps an existing client.
func NewFirestoreWithClient(client *firestore.Client, documents, interactions string) *FirestoreStore {
	if documents == "" {
		documents = "pdfs"
	}
	if interactions == "" {
		interactions = "interactions"
	}
	return &FirestoreStore{client: client, documents: documents, interactions: interactions}
}

// Driver implements Store.
func (s *FirestoreStore) Driver() string { return DriverFirestore }

// GetDocument implements Store.
func (s *FirestoreStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	snap, err := s.client.Collection(s.documents).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get document", err)
	}
	var doc models.Document
	if err := snap.DataTo(&doc); err != nil {
		return nil, storageErr("get document", err)
	}
	doc.ID = snap.Ref.ID
	return &doc, nil
}

// InsertDocument implements Store. Create fails with AlreadyExists when
// another writer got there first; that is reported as not inserted.
func (s *FirestoreStore) InsertDocument(ctx context.Context, doc *models.Document) (bool, error) {
	_, err := s.client.Collection(s.documents).Doc(doc.ID).Create(ctx, doc)
	if status.Code(err) == codes.AlreadyExists {
		return false, nil
	}
	if err != nil {
		return false, storageErr("insert document", err)
	}
	return true, nil
}

// InsertInteraction implements Store.
func (s *FirestoreStore) InsertInteraction(ctx context.Context, rec *models.Interaction) error {
	_, err := s.client.Collection(s.interactions).Doc(rec.ID).Create(ctx, rec)
	return storageErr("insert interaction", err)
}

// ListInteractions implements Store.
func (s *FirestoreStore) ListInteractions(ctx context.Context, limit int) ([]*models.Interaction, error) {
	snaps, err := s.client.Collection(s.interactions).
		OrderBy("timestamp", firestore.Desc).
		Limit(limit).
		Documents(ctx).
		GetAll()
	if err != nil {
		return nil, storageErr("list interactions", err)
	}

	out := make([]*models.Interaction, 0, len(snaps))
	for _, snap := range snaps {
		var rec models.Interaction
		if err := snap.DataTo(&rec); err != nil {
			return nil, storageErr("list interactions", err)
		}
		out = append(out, &rec)
	}
	return out, nil
}

// Close releases the Firestore client.
func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
