package archive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Entry describes one archived file.
type Entry struct {
	ID         string
	Size       int64
	ArchivedAt time.Time
}

// LocalArchive implements Archiver using the local filesystem.
type LocalArchive struct {
	mu    sync.RWMutex
	dir   string
	files map[string]*Entry
}

// NewLocalArchive creates a LocalArchive rooted at dir, indexing any files
// already present.
func NewLocalArchive(dir string) (*LocalArchive, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating archive directory: %w", err)
	}

	a := &LocalArchive{
		dir:   dir,
		files: make(map[string]*Entry),
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading archive directory: %w", err)
	}
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".pdf") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		id := strings.TrimSuffix(e.Name(), ".pdf")
		a.files[id] = &Entry{ID: id, Size: info.Size(), ArchivedAt: info.ModTime()}
	}
	return a, nil
}

// Archive writes raw to <dir>/<id>.pdf unless it is already there. The file
// is written to a temporary name and renamed so readers never see a partial
// file.
func (a *LocalArchive) Archive(_ context.Context, id string, raw []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if _, ok := a.files[id]; ok {
		return nil
	}

	path := filepath.Join(a.dir, objectName(id))
	f, err := os.CreateTemp(a.dir, "upload-*")
	if err != nil {
		return fmt.Errorf("creating file: %w", err)
	}
	tmp := f.Name()

	if _, err := f.Write(raw); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming file: %w", err)
	}

	a.files[id] = &Entry{ID: id, Size: int64(len(raw)), ArchivedAt: time.Now()}
	return nil
}

// Get retrieves archive metadata by id.
func (a *LocalArchive) Get(id string) (*Entry, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entry, ok := a.files[id]
	if !ok {
		return nil, ErrNotArchived
	}
	return entry, nil
}

// Open implements Archiver.
func (a *LocalArchive) Open(_ context.Context, id string) (io.ReadCloser, error) {
	if _, err := a.Get(id); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(a.dir, objectName(id)))
	if os.IsNotExist(err) {
		return nil, ErrNotArchived
	}
	if err != nil {
		return nil, fmt.Errorf("opening archived file: %w", err)
	}
	return f, nil
}
