package docstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/darklight/internal/model"
)

// setupTestIndex creates a fresh index in a temporary directory.
func setupTestIndex(t *testing.T) *Index {
	t.Helper()

	idx, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open index: %v", err)
	}
	t.Cleanup(func() {
		_ = idx.Close() //nolint:errcheck // test cleanup
	})
	return idx
}

func newSession(t *testing.T, idx *Index) *Session {
	t.Helper()

	sess, err := idx.Session(context.Background())
	if err != nil {
		t.Fatalf("failed to open session: %v", err)
	}
	t.Cleanup(func() {
		_ = sess.Close() //nolint:errcheck // test cleanup
	})
	return sess
}

// TestOpen tests index creation.
func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates index file", func(t *testing.T) {
		t.Parallel()

		dir := filepath.Join(t.TempDir(), "nested")
		idx, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer idx.Close()

		if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
			t.Errorf("index file not created: %v", err)
		}
		if idx.Path() != filepath.Join(dir, FileName) {
			t.Errorf("Path() = %q", idx.Path())
		}
		if err := idx.Ping(context.Background()); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})

	t.Run("missing index without create fails", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{})
		if err == nil {
			t.Fatal("expected error for missing index")
		}
	})

	t.Run("reopen keeps data", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		idx, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		ctx := context.Background()
		sess, err := idx.Session(ctx)
		if err != nil {
			t.Fatalf("Session() error = %v", err)
		}
		if err := sess.WritePort(ctx, &model.PortDocument{ID: "abc"}); err != nil {
			t.Fatalf("WritePort() error = %v", err)
		}
		_ = sess.Close() //nolint:errcheck // test
		_ = idx.Close()  //nolint:errcheck // test

		idx, err = Open(dir, Options{})
		if err != nil {
			t.Fatalf("reopen error = %v", err)
		}
		defer idx.Close()

		doc, err := idx.Port(ctx, "abc")
		if err != nil {
			t.Fatalf("Port() error = %v", err)
		}
		if len(doc.Services) != 0 {
			t.Errorf("expected no services, got %v", doc.Services)
		}
	})
}

// TestSessionClose tests that closing twice is harmless.
func TestSessionClose(t *testing.T) {
	t.Parallel()

	idx := setupTestIndex(t)
	sess, err := idx.Session(context.Background())
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Errorf("first Close() error = %v", err)
	}
	if err := sess.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	// The single pooled connection must be available again.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	again, err := idx.Session(ctx)
	if err != nil {
		t.Fatalf("Session() after Close error = %v", err)
	}
	_ = again.Close() //nolint:errcheck // test
}

// TestWebpageRoundTrip tests writing and reading webpage documents.
func TestWebpageRoundTrip(t *testing.T) {
	t.Parallel()

	idx := setupTestIndex(t)
	ctx := context.Background()

	ts := time.Date(2024, 5, 1, 12, 30, 0, 123456789, time.UTC)
	doc := &model.WebpageDocument{
		ID:         "crawl-1",
		URL:        "http://example.onion/",
		Domain:     "example.onion",
		Title:      "Example",
		Timestamp:  ts,
		Source:     "<html><title>Example</title></html>",
		Screenshot: "screenshot/crawl-1.jpg",
		Language:   "en",
		Headers:    map[string]string{"Server": "nginx"},
		Tree: &model.Node{
			Tag:      "html",
			Children: []*model.Node{{Tag: "title", Text: "Example"}},
		},
	}

	sess, err := idx.Session(ctx)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	if err := sess.WriteWebpage(ctx, doc); err != nil {
		t.Fatalf("WriteWebpage() error = %v", err)
	}
	// Overwrite with a new title; the id stays unique.
	doc.Title = "Example v2"
	if err := sess.WriteWebpage(ctx, doc); err != nil {
		t.Fatalf("second WriteWebpage() error = %v", err)
	}
	// Reads share the single connection, so release it first.
	if err := sess.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got, err := idx.Webpage(ctx, "crawl-1")
	if err != nil {
		t.Fatalf("Webpage() error = %v", err)
	}

	if got.Title != "Example v2" {
		t.Errorf("Title = %q, want %q", got.Title, "Example v2")
	}
	if got.URL != doc.URL || got.Domain != doc.Domain || got.Source != doc.Source {
		t.Errorf("unexpected document: %+v", got)
	}
	if got.Screenshot != "screenshot/crawl-1.jpg" {
		t.Errorf("Screenshot = %q", got.Screenshot)
	}
	if !got.Timestamp.Equal(ts) {
		t.Errorf("Timestamp = %v, want %v", got.Timestamp, ts)
	}
	if got.Headers["Server"] != "nginx" {
		t.Errorf("Headers = %v", got.Headers)
	}
	if got.Tree == nil || got.Tree.Count() != 2 || got.Tree.Children[0].Text != "Example" {
		t.Errorf("Tree = %+v", got.Tree)
	}

	var count int
	if err := idx.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM webpages").Scan(&count); err != nil {
		t.Fatalf("count error = %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 webpage row, got %d", count)
	}
}

// TestNotFound tests readback of unknown ids.
func TestNotFound(t *testing.T) {
	t.Parallel()

	idx := setupTestIndex(t)
	ctx := context.Background()

	if _, err := idx.Webpage(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Webpage() error = %v, want ErrNotFound", err)
	}
	if _, err := idx.Port(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Port() error = %v, want ErrNotFound", err)
	}
}

// TestPortOrder tests that services keep scan order.
func TestPortOrder(t *testing.T) {
	t.Parallel()

	idx := setupTestIndex(t)
	ctx := context.Background()

	sess, err := idx.Session(ctx)
	if err != nil {
		t.Fatalf("Session() error = %v", err)
	}
	ports := []model.PortStatus{
		{Number: 80, Open: true},
		{Number: 443, Open: true},
		{Number: 22, Open: false},
	}
	if err := sess.WritePort(ctx, model.NewPortDocument("crawl-2", ports)); err != nil {
		t.Fatalf("WritePort() error = %v", err)
	}
	_ = sess.Close() //nolint:errcheck // test

	got, err := idx.Port(ctx, "crawl-2")
	if err != nil {
		t.Fatalf("Port() error = %v", err)
	}

	want := []model.ServiceStatus{{Number: 80, Status: true}, {Number: 443, Status: true}, {Number: 22, Status: false}}
	if len(got.Services) != len(want) {
		t.Fatalf("expected %d services, got %d", len(want), len(got.Services))
	}
	for i := range want {
		if got.Services[i] != want[i] {
			t.Errorf("service %d = %+v, want %+v", i, got.Services[i], want[i])
		}
	}
}

// TestRelationships tests recording and querying relationships.
func TestRelationships(t *testing.T) {
	t.Parallel()

	idx := setupTestIndex(t)
	ctx := context.Background()
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	rels := []model.Relationship{
		{CrawlID: "a", Domain: "a.onion", Type: "email", Value: "x@example.com", Confidence: 1, Timestamp: ts},
		{CrawlID: "a", Domain: "a.onion", Type: "bitcoin", Value: "bc1qexample", Confidence: 0.9, Timestamp: ts},
		{CrawlID: "b", Domain: "b.onion", Type: "email", Value: "x@example.com", Confidence: 1, Timestamp: ts.Add(time.Hour)},
	}
	if err := idx.RecordRelationships(ctx, rels); err != nil {
		t.Fatalf("RecordRelationships() error = %v", err)
	}

	// Recording again updates in place.
	update := []model.Relationship{
		{CrawlID: "a", Domain: "a.onion", Type: "bitcoin", Value: "bc1qexample", Confidence: 0.5, Timestamp: ts},
	}
	if err := idx.RecordRelationships(ctx, update); err != nil {
		t.Fatalf("RecordRelationships() update error = %v", err)
	}

	got, err := idx.Relationships(ctx, "a")
	if err != nil {
		t.Fatalf("Relationships() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 relationships, got %d", len(got))
	}
	if got[0].Type != "bitcoin" || got[0].Confidence != 0.5 {
		t.Errorf("first relationship = %+v", got[0])
	}
	if got[1].Type != "email" || !got[1].Timestamp.Equal(ts) {
		t.Errorf("second relationship = %+v", got[1])
	}

	related, err := idx.RelatedCrawls(ctx, "email", "x@example.com")
	if err != nil {
		t.Fatalf("RelatedCrawls() error = %v", err)
	}
	if len(related) != 2 || related[0].CrawlID != "b" {
		t.Errorf("RelatedCrawls() = %+v", related)
	}

	none, err := idx.Relationships(ctx, "zzz")
	if err != nil {
		t.Fatalf("Relationships() error = %v", err)
	}
	if none == nil || len(none) != 0 {
		t.Errorf("expected empty non-nil slice, got %v", none)
	}
}

// TestWriter tests document construction and storage.
func TestWriter(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)
	w := NewWriter(func() time.Time { return now })

	t.Run("empty result", func(t *testing.T) {
		t.Parallel()

		if _, _, err := w.Documents("id", &model.CrawlResult{}, ""); !errors.Is(err, ErrNoPage) {
			t.Errorf("Documents() error = %v, want ErrNoPage", err)
		}
		if _, _, err := w.Documents("id", nil, ""); !errors.Is(err, ErrNoPage) {
			t.Errorf("Documents(nil) error = %v, want ErrNoPage", err)
		}
	})

	t.Run("writes both documents", func(t *testing.T) {
		t.Parallel()

		idx := setupTestIndex(t)
		ctx := context.Background()
		result := &model.CrawlResult{
			Page: &model.PageCapture{
				URL:        "http://example.onion/",
				Domain:     "example.onion",
				Title:      "Example",
				Source:     "<html></html>",
				Screenshot: []byte{0xff, 0xd8},
				Headers:    map[string]string{},
			},
			Ports: model.ClosedPorts(model.CatalogPorts()),
		}
		result.Ports[5].Open = true

		sess, err := idx.Session(ctx)
		if err != nil {
			t.Fatalf("Session() error = %v", err)
		}
		if err := w.Write(ctx, sess, "crawl-3", result, "screenshot/crawl-3.jpg"); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		_ = sess.Close() //nolint:errcheck // test

		page, err := idx.Webpage(ctx, "crawl-3")
		if err != nil {
			t.Fatalf("Webpage() error = %v", err)
		}
		if !page.Timestamp.Equal(now) {
			t.Errorf("Timestamp = %v, want %v", page.Timestamp, now)
		}
		if page.Screenshot != "screenshot/crawl-3.jpg" {
			t.Errorf("Screenshot = %q", page.Screenshot)
		}

		ports, err := idx.Port(ctx, "crawl-3")
		if err != nil {
			t.Fatalf("Port() error = %v", err)
		}
		if len(ports.Services) != len(model.Catalog) {
			t.Fatalf("expected %d services, got %d", len(model.Catalog), len(ports.Services))
		}
		if ports.Services[5].Number != 80 || !ports.Services[5].Status {
			t.Errorf("service 5 = %+v, want port 80 open", ports.Services[5])
		}
	})
}

// TestParseTimestamp tests the accepted timestamp layouts.
func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		zero bool
	}{
		{name: "RFC3339Nano", in: "2024-01-02T03:04:05.123456789Z"},
		{name: "RFC3339", in: "2024-01-02T03:04:05Z"},
		{name: "SQLite datetime", in: "2024-01-02 03:04:05"},
		{name: "SQLite datetime with millis", in: "2024-01-02 03:04:05.123"},
		{name: "garbage", in: "yesterday", zero: true},
		{name: "empty", in: "", zero: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := parseTimestamp(tt.in)
			if got.IsZero() != tt.zero {
				t.Errorf("parseTimestamp(%q) = %v, zero = %v", tt.in, got, tt.zero)
			}
		})
	}
}
