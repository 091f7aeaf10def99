package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/pdf-qa/backend/internal/models"
)

// timestampLayout is ISO-8601 with fixed-width fractional seconds so that
// lexical order equals chronological order for UTC values.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// initialSchema contains the SQL for creating tables. It is valid for both
// SQLite and DuckDB.
const initialSchema = `
CREATE TABLE IF NOT EXISTS pdfs (
    id       TEXT PRIMARY KEY,
    filename TEXT,
    text     TEXT
);

CREATE TABLE IF NOT EXISTS interactions (
    id            TEXT PRIMARY KEY,
    timestamp     TEXT NOT NULL,
    pdf_reference TEXT,
    query         TEXT,
    response      TEXT
);
`

// SQLStore implements Store over database/sql.
type SQLStore struct {
	db     *sql.DB
	driver string
}

func newSQLStore(db *sql.DB, driver string) (*SQLStore, error) {
	s := &SQLStore{db: db, driver: driver}
	if err := s.runMigrations(); err != nil {
		return nil, err
	}
	return s, nil
}

// runMigrations executes the SQL schema
func (s *SQLStore) runMigrations() error {
	if _, err := s.db.Exec(initialSchema); err != nil {
		return fmt.Errorf("failed to execute migration: %w", err)
	}
	return nil
}

// Driver returns the database/sql driver name.
func (s *SQLStore) Driver() string { return s.driver }

// GetDocument implements Store.
func (s *SQLStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	doc := &models.Document{}
	var filename, text sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT id, filename, text FROM pdfs WHERE id = ?`, id).
		Scan(&doc.ID, &filename, &text)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storageErr("get document", err)
	}
	doc.Filename = filename.String
	doc.Text = text.String
	return doc, nil
}

// InsertDocument implements Store. The insert runs in its own transaction
// and is rolled back on any failure.
func (s *SQLStore) InsertDocument(ctx context.Context, doc *models.Document) (bool, error) {
	inserted, err := s.insertDocumentTx(ctx, doc)
	if err == nil {
		return inserted, nil
	}

	// A concurrent writer may have won with a conflicting transaction.
	if existing, getErr := s.GetDocument(ctx, doc.ID); getErr == nil && existing != nil {
		return false, nil
	}
	return false, storageErr("insert document", err)
}

func (s *SQLStore) insertDocumentTx(ctx context.Context, doc *models.Document) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO pdfs (id, filename, text) VALUES (?, ?, ?) ON CONFLICT (id) DO NOTHING`,
		doc.ID, doc.Filename, doc.Text)
	if err != nil {
		return false, fmt.Errorf("insert: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return n > 0, nil
}

// InsertInteraction implements Store.
func (s *SQLStore) InsertInteraction(ctx context.Context, rec *models.Interaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("insert interaction", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO interactions (id, timestamp, pdf_reference, query, response) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp.UTC().Format(timestampLayout), rec.PDFReference, rec.Query, rec.Response)
	if err != nil {
		return storageErr("insert interaction", err)
	}
	return storageErr("insert interaction", tx.Commit())
}

// ListInteractions implements Store.
func (s *SQLStore) ListInteractions(ctx context.Context, limit int) ([]*models.Interaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, timestamp, pdf_reference, query, response FROM interactions ORDER BY timestamp DESC LIMIT ?`,
		limit)
	if err != nil {
		return nil, storageErr("list interactions", err)
	}
	defer rows.Close()

	var out []*models.Interaction
	for rows.Next() {
		var (
			rec       models.Interaction
			ts        string
			ref, q, r sql.NullString
		)
		if err := rows.Scan(&rec.ID, &ts, &ref, &q, &r); err != nil {
			return nil, storageErr("list interactions", err)
		}
		parsed, err := time.Parse(timestampLayout, ts)
		if err != nil {
			return nil, storageErr("list interactions", fmt.Errorf("timestamp %q: %w", ts, err))
		}
		rec.Timestamp = parsed
		rec.PDFReference, rec.Query, rec.Response = ref.String, q.String, r.String
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list interactions", err)
	}
	return out, nil
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}
