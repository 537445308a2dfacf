package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/nao1215/darklight/internal/model"
)

// Session holds one index connection until Close.
type Session struct {
	conn *sql.Conn
}

// Close returns the connection to the pool. It is safe to call twice.
func (s *Session) Close() error {
	if s.conn == nil {
		return nil
	}
	err := s.conn.Close()
	s.conn = nil
	return err
}

// WriteWebpage stores doc, replacing any previous document with its id.
func (s *Session) WriteWebpage(ctx context.Context, doc *model.WebpageDocument) error {
	headersJSON, err := json.Marshal(doc.Headers)
	if err != nil {
		return fmt.Errorf("failed to serialize headers: %w", err)
	}
	treeJSON, err := json.Marshal(doc.Tree)
	if err != nil {
		return fmt.Errorf("failed to serialize tree: %w", err)
	}

	query := `
	INSERT INTO webpages (id, url, domain, title, timestamp, source, screenshot, language, headers, tree)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		url = excluded.url,
		domain = excluded.domain,
		title = excluded.title,
		timestamp = excluded.timestamp,
		source = excluded.source,
		screenshot = excluded.screenshot,
		language = excluded.language,
		headers = excluded.headers,
		tree = excluded.tree
	`
	if _, err := s.conn.ExecContext(ctx, query,
		doc.ID,
		doc.URL,
		doc.Domain,
		doc.Title,
		formatTimestamp(doc.Timestamp),
		doc.Source,
		doc.Screenshot,
		doc.Language,
		string(headersJSON),
		string(treeJSON),
	); err != nil {
		return fmt.Errorf("failed to write webpage %s: %w", doc.ID, err)
	}
	return nil
}

// WritePort stores doc, replacing any previous document with its id.
func (s *Session) WritePort(ctx context.Context, doc *model.PortDocument) error {
	services := doc.Services
	if services == nil {
		services = make([]model.ServiceStatus, 0)
	}
	servicesJSON, err := json.Marshal(services)
	if err != nil {
		return fmt.Errorf("failed to serialize services: %w", err)
	}

	query := `
	INSERT INTO ports (id, services, timestamp)
	VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	ON CONFLICT(id) DO UPDATE SET
		services = excluded.services,
		timestamp = excluded.timestamp
	`
	if _, err := s.conn.ExecContext(ctx, query, doc.ID, string(servicesJSON)); err != nil {
		return fmt.Errorf("failed to write ports %s: %w", doc.ID, err)
	}
	return nil
}
