package wximport

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/eringen/wximport/importer"
)

// Store wraps a SQLite database holding imported content records. The slug
// unique index is the only identity used for duplicate detection, and it is
// the safety net when two imports race on the same slug: the losing insert
// is rejected, never silently merged.
type Store struct {
	db *sql.DB
}

// NewStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and runs schema migrations.
func NewStore(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Enable WAL mode for concurrent read/write access, set a busy timeout
	// so writers wait instead of returning SQLITE_BUSY immediately, and tune
	// performance: synchronous=NORMAL is safe with WAL and avoids an fsync
	// per transaction; larger cache and mmap reduce disk I/O.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
		PRAGMA mmap_size=268435456;
	`); err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &Store{db: db}
	if err := s.ensureSchema(); err != nil {
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS content (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    slug TEXT NOT NULL UNIQUE,
    title TEXT NOT NULL,
    content TEXT NOT NULL,
    excerpt TEXT NOT NULL DEFAULT '',
    featured_image TEXT NOT NULL DEFAULT '',
    seo_title TEXT NOT NULL DEFAULT '',
    seo_description TEXT NOT NULL DEFAULT '',
    published INTEGER NOT NULL DEFAULT 0,
    published_at TEXT NOT NULL DEFAULT '',
    author TEXT NOT NULL DEFAULT '',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`)
	return err
}

// ExistsBySlug reports whether a record with the given slug exists and, if
// so, its id.
func (s *Store) ExistsBySlug(slug string) (int64, bool, error) {
	var id int64
	err := s.db.QueryRow(`SELECT id FROM content WHERE slug = ?`, slug).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// Insert writes a new record and returns its id. A slug collision returns
// importer.ErrDuplicateSlug.
func (s *Store) Insert(rec importer.Record) (int64, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`INSERT INTO content
		(slug, title, content, excerpt, featured_image, seo_title, seo_description, published, author, published_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Slug, rec.Title, rec.Content, rec.Excerpt, rec.FeaturedImage,
		rec.SEOTitle, rec.SEODescription, boolToInt(rec.Published), rec.Author,
		formatTime(rec.PublishedAt), now, now)
	if err != nil {
		if strings.Contains(strings.ToLower(err.Error()), "unique constraint failed") {
			return 0, fmt.Errorf("insert %q: %w", rec.Slug, importer.ErrDuplicateSlug)
		}
		return 0, err
	}
	return res.LastInsertId()
}

// UpdateByID replaces an existing record's fields, keeping its id, slug, and
// creation timestamp.
func (s *Store) UpdateByID(id int64, rec importer.Record) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`UPDATE content SET
		title = ?, content = ?, excerpt = ?, featured_image = ?,
		seo_title = ?, seo_description = ?, published = ?, author = ?,
		published_at = ?, updated_at = ?
		WHERE id = ?`,
		rec.Title, rec.Content, rec.Excerpt, rec.FeaturedImage,
		rec.SEOTitle, rec.SEODescription, boolToInt(rec.Published), rec.Author,
		formatTime(rec.PublishedAt), now, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("update: no record with id %d", id)
	}
	return nil
}

// GetBySlug returns a single record by slug.
func (s *Store) GetBySlug(slug string) (importer.Record, error) {
	row := s.db.QueryRow(`SELECT id, slug, title, content, excerpt, featured_image,
		seo_title, seo_description, published, author, published_at
		FROM content WHERE slug = ?`, slug)
	return scanRecord(row)
}

// List returns every record ordered by publication date descending.
func (s *Store) List() ([]importer.Record, error) {
	rows, err := s.db.Query(`SELECT id, slug, title, content, excerpt, featured_image,
		seo_title, seo_description, published, author, published_at
		FROM content ORDER BY published_at DESC, id DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []importer.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (importer.Record, error) {
	var rec importer.Record
	var published int
	var publishedAt string
	err := row.Scan(&rec.ID, &rec.Slug, &rec.Title, &rec.Content, &rec.Excerpt,
		&rec.FeaturedImage, &rec.SEOTitle, &rec.SEODescription, &published,
		&rec.Author, &publishedAt)
	if err != nil {
		return importer.Record{}, err
	}
	rec.Published = published == 1
	if publishedAt != "" {
		if t, err := time.Parse(time.RFC3339, publishedAt); err == nil {
			rec.PublishedAt = t
		}
	}
	return rec, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
