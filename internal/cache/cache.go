// Package cache resolves uploaded PDF bytes to their extracted text, running
// extraction at most once per distinct document.
package cache

import (
	"context"
	"crypto/sha256"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/pdf-qa/backend/internal/archive"
	"github.com/pdf-qa/backend/internal/extract"
	"github.com/pdf-qa/backend/internal/models"
	"github.com/pdf-qa/backend/internal/storage"
)

// DocumentID derives the cache key for raw: the first 16 bytes of its
// SHA-256 digest, formatted as a UUID.
func DocumentID(raw []byte) string {
	sum := sha256.Sum256(raw)
	var id uuid.UUID
	copy(id[:], sum[:16])
	return id.String()
}

// Resolution is the outcome of ResolveText.
type Resolution struct {
	Document *models.Document
	CacheHit bool
	Size     int
}

// Cache sits in front of the persistent store. The store is the only record
// of cached text; the in-process state is limited to deduplicating misses
// that are in flight at the same moment.
type Cache struct {
	store     storage.Store
	extractor extract.Extractor
	archiver  archive.Archiver
	logger    *slog.Logger

	inflight singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithArchiver keeps the original bytes of every resolved upload.
func WithArchiver(a archive.Archiver) Option {
	return func(c *Cache) { c.archiver = a }
}

// New creates a Cache.
func New(store storage.Store, extractor extract.Extractor, logger *slog.Logger, opts ...Option) *Cache {
	c := &Cache{store: store, extractor: extractor, logger: logger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ResolveText returns the text for raw, extracting and storing it on a miss.
// Concurrent misses for identical bytes share one extraction; callers that
// did not run it see CacheHit set.
func (c *Cache) ResolveText(ctx context.Context, filename string, raw []byte) (*Resolution, error) {
	id := DocumentID(raw)

	doc, err := c.store.GetDocument(ctx, id)
	switch {
	case err == nil:
		c.logger.Info("document cache hit", "id", id, "filename", filename)
		c.archive(ctx, id, raw)
		return &Resolution{Document: doc, CacheHit: true, Size: len(raw)}, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}

	leader := false
	v, err, _ := c.inflight.Do(id, func() (any, error) {
		leader = true
		// Detached so one caller hanging up does not fail the others.
		return c.fill(context.WithoutCancel(ctx), id, filename, raw)
	})
	if err != nil {
		return nil, err
	}

	res := *v.(*Resolution)
	if !leader {
		res.CacheHit = true
	}
	c.archive(ctx, id, raw)
	return &res, nil
}

func (c *Cache) fill(ctx context.Context, id, filename string, raw []byte) (*Resolution, error) {
	// Another caller may have completed the same miss just before us.
	if doc, err := c.store.GetDocument(ctx, id); err == nil {
		return &Resolution{Document: doc, CacheHit: true, Size: len(raw)}, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	c.logger.Info("document cache miss, extracting", "id", id, "filename", filename, "bytes", len(raw))
	ext, err := c.extractor.Extract(ctx, raw)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{ID: id, Filename: filename, Text: ext.Text}
	inserted, err := c.store.InsertDocument(ctx, doc)
	if err != nil {
		return nil, err
	}
	if !inserted {
		c.logger.Debug("document inserted concurrently elsewhere", "id", id)
	}
	return &Resolution{Document: doc, CacheHit: false, Size: len(raw)}, nil
}

func (c *Cache) archive(ctx context.Context, id string, raw []byte) {
	if c.archiver == nil {
		return
	}
	if err := c.archiver.Archive(ctx, id, raw); err != nil {
		c.logger.Warn("failed to archive original upload", "id", id, "error", err)
	}
}

// Lookup returns the cached document for id, or storage.ErrNotFound.
func (c *Cache) Lookup(ctx context.Context, id string) (*models.Document, error) {
	return c.store.GetDocument(ctx, id)
}
