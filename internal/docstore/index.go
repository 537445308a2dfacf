package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/darklight/internal/model"
)

// FileName is the index file created inside the index directory.
const FileName = "darklight.db"

// ErrNotFound is returned when no document exists for a crawl id.
var ErrNotFound = errors.New("document not found")

// Index is the SQLite document index.
type Index struct {
	db   *sql.DB
	path string
}

// Options configures Open.
type Options struct {
	// CreateIfNotExists creates the directory and file when missing.
	CreateIfNotExists bool
	// EnableWAL switches the journal to write-ahead logging.
	EnableWAL bool
}

// DefaultOptions creates the index on first use with WAL enabled.
func DefaultOptions() Options {
	return Options{CreateIfNotExists: true, EnableWAL: true}
}

// Open opens the index in dir.
func Open(dir string, opts Options) (*Index, error) {
	path := filepath.Join(dir, FileName)

	mode := "rw"
	if opts.CreateIfNotExists {
		mode = "rwc"
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	} else if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("index not found at %s: %w", path, err)
	}

	db, err := sql.Open("sqlite", path+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	// SQLite has a single writer; one connection avoids SQLITE_BUSY between
	// concurrent saves, which queue on the pool instead.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	idx := &Index{db: db, path: path}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // the pragma error is returned
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := idx.createTables(context.Background()); err != nil {
		_ = db.Close() //nolint:errcheck // the schema error is returned
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return idx, nil
}

// Path returns the index file path.
func (idx *Index) Path() string {
	return idx.path
}

// Close closes the index.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Ping checks that the index is usable.
func (idx *Index) Ping(ctx context.Context) error {
	return idx.db.PingContext(ctx)
}

func (idx *Index) createTables(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS webpages (
		id TEXT PRIMARY KEY,
		url TEXT NOT NULL,
		domain TEXT NOT NULL,
		title TEXT,
		timestamp TEXT NOT NULL,
		source TEXT,
		screenshot TEXT,
		language TEXT,
		headers TEXT,
		tree TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_webpages_domain ON webpages(domain);

	CREATE TABLE IF NOT EXISTS ports (
		id TEXT PRIMARY KEY,
		services TEXT NOT NULL,
		timestamp TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS relationships (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		crawl_id TEXT NOT NULL,
		domain TEXT NOT NULL,
		type TEXT NOT NULL,
		value TEXT NOT NULL,
		confidence REAL DEFAULT 1.0,
		timestamp TEXT NOT NULL,
		UNIQUE(crawl_id, type, value)
	);

	CREATE INDEX IF NOT EXISTS idx_rel_crawl ON relationships(crawl_id);
	CREATE INDEX IF NOT EXISTS idx_rel_value ON relationships(type, value);
	`
	_, err := idx.db.ExecContext(ctx, schema)
	return err
}

// Session pins one connection for a sequence of writes.
func (idx *Index) Session(ctx context.Context) (*Session, error) {
	conn, err := idx.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open index session: %w", err)
	}
	return &Session{conn: conn}, nil
}

// Webpage returns the webpage document of crawl id.
func (idx *Index) Webpage(ctx context.Context, id string) (*model.WebpageDocument, error) {
	query := `
	SELECT id, url, domain, title, timestamp, source, screenshot, language, headers, tree
	FROM webpages WHERE id = ?
	`

	var doc model.WebpageDocument
	var timestamp, headersJSON, treeJSON string
	err := idx.db.QueryRowContext(ctx, query, id).Scan(
		&doc.ID,
		&doc.URL,
		&doc.Domain,
		&doc.Title,
		&timestamp,
		&doc.Source,
		&doc.Screenshot,
		&doc.Language,
		&headersJSON,
		&treeJSON,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("webpage %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read webpage %s: %w", id, err)
	}

	doc.Timestamp = parseTimestamp(timestamp)
	if err := unmarshalColumn(headersJSON, &doc.Headers); err != nil {
		return nil, fmt.Errorf("failed to decode headers of %s: %w", id, err)
	}
	if err := unmarshalColumn(treeJSON, &doc.Tree); err != nil {
		return nil, fmt.Errorf("failed to decode tree of %s: %w", id, err)
	}
	return &doc, nil
}

// Port returns the port document of crawl id.
func (idx *Index) Port(ctx context.Context, id string) (*model.PortDocument, error) {
	var servicesJSON string
	err := idx.db.QueryRowContext(ctx, `SELECT services FROM ports WHERE id = ?`, id).Scan(&servicesJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ports %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read ports %s: %w", id, err)
	}

	doc := &model.PortDocument{ID: id, Services: make([]model.ServiceStatus, 0)}
	if err := json.Unmarshal([]byte(servicesJSON), &doc.Services); err != nil {
		return nil, fmt.Errorf("failed to decode ports of %s: %w", id, err)
	}
	return doc, nil
}

// RecordRelationships stores rels, replacing the confidence and timestamp
// of relationships already recorded for the same crawl, type and value.
func (idx *Index) RecordRelationships(ctx context.Context, rels []model.Relationship) error {
	query := `
	INSERT INTO relationships (crawl_id, domain, type, value, confidence, timestamp)
	VALUES (?, ?, ?, ?, ?, ?)
	ON CONFLICT(crawl_id, type, value) DO UPDATE SET
		domain = excluded.domain,
		confidence = excluded.confidence,
		timestamp = excluded.timestamp
	`

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // no-op after commit

	for _, r := range rels {
		if _, err := tx.ExecContext(ctx, query,
			r.CrawlID, r.Domain, r.Type, r.Value, r.Confidence, formatTimestamp(r.Timestamp),
		); err != nil {
			return fmt.Errorf("failed to insert relationship: %w", err)
		}
	}
	return tx.Commit()
}

// Relationships returns the relationships of crawl id ordered by type and value.
func (idx *Index) Relationships(ctx context.Context, crawlID string) ([]model.Relationship, error) {
	return idx.queryRelationships(ctx, `
	SELECT id, crawl_id, domain, type, value, confidence, timestamp
	FROM relationships WHERE crawl_id = ?
	ORDER BY type, value
	`, crawlID)
}

// RelatedCrawls returns relationships of any crawl that share type and value,
// such as every crawl that mentioned the same e-mail address.
func (idx *Index) RelatedCrawls(ctx context.Context, relType, value string) ([]model.Relationship, error) {
	return idx.queryRelationships(ctx, `
	SELECT id, crawl_id, domain, type, value, confidence, timestamp
	FROM relationships WHERE type = ? AND value = ?
	ORDER BY timestamp DESC
	`, relType, value)
}

func (idx *Index) queryRelationships(ctx context.Context, query string, args ...any) ([]model.Relationship, error) {
	rows, err := idx.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query relationships: %w", err)
	}
	defer rows.Close()

	rels := make([]model.Relationship, 0)
	for rows.Next() {
		var r model.Relationship
		var timestamp string
		if err := rows.Scan(&r.ID, &r.CrawlID, &r.Domain, &r.Type, &r.Value, &r.Confidence, &timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		r.Timestamp = parseTimestamp(timestamp)
		rels = append(rels, r)
	}
	return rels, rows.Err()
}

func unmarshalColumn(s string, v any) error {
	if s == "" || s == "null" {
		return nil
	}
	return json.Unmarshal([]byte(s), v)
}

// storedTimestamp is RFC 3339 with fixed-width nanoseconds so stored
// values sort lexically.
const storedTimestamp = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(storedTimestamp)
}

// timestampFormats are tried in order by parseTimestamp. The SQLite
// formats cover rows written by CURRENT_TIMESTAMP defaults.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999",
}

// parseTimestamp returns the zero time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
