package archive

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
)

// GCSArchive implements Archiver on a Cloud Storage bucket.
type GCSArchive struct {
	client *gcs.Client
	bucket string
	prefix string
}

// NewGCSArchive creates a bucket-backed archive. Objects are named
// <prefix><id>.pdf.
func NewGCSArchive(ctx context.Context, bucket, prefix string) (*GCSArchive, error) {
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	return &GCSArchive{client: client, bucket: bucket, prefix: prefix}, nil
}

// Archive uploads raw with a does-not-exist precondition; an existing object
// is left untouched.
func (a *GCSArchive) Archive(ctx context.Context, id string, raw []byte) error {
	obj := a.client.Bucket(a.bucket).Object(a.prefix + objectName(id)).
		If(gcs.Conditions{DoesNotExist: true})

	w := obj.NewWriter(ctx)
	w.ContentType = "application/pdf"
	if _, err := io.Copy(w, bytes.NewReader(raw)); err != nil {
		w.Close()
		return fmt.Errorf("failed to write to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return nil
		}
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

// Open implements Archiver.
func (a *GCSArchive) Open(ctx context.Context, id string) (io.ReadCloser, error) {
	r, err := a.client.Bucket(a.bucket).Object(a.prefix + objectName(id)).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, ErrNotArchived
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open GCS object: %w", err)
	}
	return r, nil
}

// Close releases the storage client.
func (a *GCSArchive) Close() error {
	return a.client.Close()
}
