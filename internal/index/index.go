// Package index maintains a derived SQLite index over the manifest for the
// query command. The index is ephemeral: it is rebuilt wholesale from the
// manifest and can be deleted at any time without losing data.
package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"inkwell/internal/manifest"
)

const schemaVersion = 1

// ErrIndexSchema indicates an index database written by an incompatible
// version. The index is derived state: delete it and rebuild.
var ErrIndexSchema = errors.New("unsupported index schema version")

// Index is a read-optimized SQLite view of the manifest.
type Index struct {
	db *sql.DB
}

// Entry is one document row returned by queries, ordered like the manifest:
// published_at descending, slug ascending.
type Entry struct {
	Slug        string
	Title       string
	PublishedAt time.Time
	SourcePath  string
}

// Open opens (or creates) the index database at path.
func Open(ctx context.Context, path string) (*Index, error) {
	if path == "" {
		return nil, errors.New("open index: path is empty")
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	// Single connection keeps pragma state consistent.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	err = db.PingContext(ctx)
	if err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("ping index: %w", err)
	}

	err = applyPragmas(ctx, db)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	err = checkSchemaVersion(ctx, db)
	if err != nil {
		_ = db.Close()

		return nil, err
	}

	return &Index{db: db}, nil
}

// checkSchemaVersion rejects databases written by an incompatible layout.
// A fresh database reads 0 and is accepted; Rebuild stamps the version.
func checkSchemaVersion(ctx context.Context, db *sql.DB) error {
	var version int

	err := db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version)
	if err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version != 0 && version != schemaVersion {
		return fmt.Errorf("%w: %d (want %d)", ErrIndexSchema, version, schemaVersion)
	}

	return nil
}

func (ix *Index) Close() error {
	return ix.db.Close()
}

func applyPragmas(ctx context.Context, db *sql.DB) error {
	statements := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
		"PRAGMA cache_size = -20000",
	}

	for _, stmt := range statements {
		_, err := db.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("apply pragma %q: %w", stmt, err)
		}
	}

	return nil
}

// Rebuild replaces the index contents with the manifest's documents inside a
// single transaction. Existing tables are dropped, derived state only.
func (ix *Index) Rebuild(ctx context.Context, m *manifest.Manifest) (int, error) {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin rebuild txn: %w", err)
	}

	committed := false

	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	err = createSchema(ctx, tx)
	if err != nil {
		return 0, err
	}

	insertDoc, err := tx.PrepareContext(ctx, `
		INSERT INTO documents (
			slug,
			title,
			published_at_ns,
			source_path,
			fingerprint,
			body
		) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare insert: %w", err)
	}

	defer func() { _ = insertDoc.Close() }()

	insertTag, err := tx.PrepareContext(ctx, `
		INSERT INTO doc_tags (tag, slug, published_at_ns) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare tag insert: %w", err)
	}

	defer func() { _ = insertTag.Close() }()

	indexed := 0

	for i := range m.Documents {
		doc := &m.Documents[i]

		// Full nanosecond precision, so ordering here can never disagree
		// with the manifest's when dates differ only in fractional seconds.
		publishedNs := doc.PublishedAt.UnixNano()

		_, err = insertDoc.ExecContext(
			ctx,
			doc.Slug,
			doc.Title,
			publishedNs,
			doc.SourcePath,
			doc.Fingerprint,
			doc.Body,
		)
		if err != nil {
			return 0, fmt.Errorf("insert index row for %s (%s): %w", doc.Slug, doc.SourcePath, err)
		}

		indexed++

		for _, tag := range doc.Tags {
			_, err = insertTag.ExecContext(ctx, tag, doc.Slug, publishedNs)
			if err != nil {
				return 0, fmt.Errorf("insert tag row for %s (%s): %w", doc.Slug, tag, err)
			}
		}
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
	if err != nil {
		return 0, fmt.Errorf("set user_version: %w", err)
	}

	err = tx.Commit()
	if err != nil {
		return 0, fmt.Errorf("commit rebuild txn: %w", err)
	}

	committed = true

	return indexed, nil
}

func createSchema(ctx context.Context, tx *sql.Tx) error {
	statements := []string{
		"DROP TABLE IF EXISTS doc_tags",
		"DROP TABLE IF EXISTS documents",
		`CREATE TABLE documents (
			slug TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			published_at_ns INTEGER NOT NULL,
			source_path TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			body TEXT NOT NULL
		) WITHOUT ROWID`,
		`CREATE TABLE doc_tags (
			tag TEXT NOT NULL,
			slug TEXT NOT NULL,
			published_at_ns INTEGER NOT NULL,
			PRIMARY KEY (tag, slug)
		) WITHOUT ROWID`,
		"CREATE INDEX idx_published ON documents(published_at_ns DESC, slug ASC)",
		"CREATE INDEX idx_tag_published ON doc_tags(tag, published_at_ns DESC, slug ASC)",
	}

	for _, stmt := range statements {
		_, err := tx.ExecContext(ctx, stmt)
		if err != nil {
			return fmt.Errorf("apply schema statement %q: %w", stmt, err)
		}
	}

	return nil
}

// QueryTag returns the documents carrying tag, newest first, slug ascending
// on ties. limit <= 0 means no limit.
func (ix *Index) QueryTag(ctx context.Context, tag string, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}

	if offset < 0 {
		offset = 0
	}

	rows, err := ix.db.QueryContext(ctx, `
		SELECT d.slug, d.title, d.published_at_ns, d.source_path
		FROM doc_tags t
		JOIN documents d ON d.slug = t.slug
		WHERE t.tag = ?
		ORDER BY t.published_at_ns DESC, t.slug ASC
		LIMIT ? OFFSET ?`, tag, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query tag %q: %w", tag, err)
	}

	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

// All returns every indexed document, newest first, slug ascending on ties.
func (ix *Index) All(ctx context.Context, limit, offset int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}

	if offset < 0 {
		offset = 0
	}

	rows, err := ix.db.QueryContext(ctx, `
		SELECT slug, title, published_at_ns, source_path
		FROM documents
		ORDER BY published_at_ns DESC, slug ASC
		LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	defer func() { _ = rows.Close() }()

	return scanEntries(rows)
}

func scanEntries(rows *sql.Rows) ([]Entry, error) {
	entries := make([]Entry, 0, 16)

	for rows.Next() {
		var (
			entry Entry
			nanos int64
		)

		err := rows.Scan(&entry.Slug, &entry.Title, &nanos, &entry.SourcePath)
		if err != nil {
			return nil, fmt.Errorf("scan index row: %w", err)
		}

		entry.PublishedAt = time.Unix(0, nanos).UTC()
		entries = append(entries, entry)
	}

	err := rows.Err()
	if err != nil {
		return nil, fmt.Errorf("iterate index rows: %w", err)
	}

	return entries, nil
}
