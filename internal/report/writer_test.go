package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/nao1215/darklight/internal/model"
)

// createTestCrawl creates a crawl with ports 80 and 443 open.
func createTestCrawl() *Crawl {
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	return &Crawl{
		Webpage: &model.WebpageDocument{
			ID:         "crawl-1",
			URL:        "http://example.onion/",
			Domain:     "example.onion",
			Title:      "Example",
			Timestamp:  ts,
			Screenshot: "screenshot/crawl-1.jpg",
			Language:   "en",
			Headers:    map[string]string{"Server": "nginx", "X-Powered-By": "PHP/8.1"},
			Tree:       &model.Node{Tag: "html", Children: []*model.Node{{Tag: "body"}}},
		},
		Ports: model.NewPortDocument("crawl-1", []model.PortStatus{
			{Number: 22, Open: false},
			{Number: 80, Open: true},
			{Number: 443, Open: true},
		}),
		Relationships: []model.Relationship{
			{CrawlID: "crawl-1", Type: "onion", Value: "other.onion", Confidence: 1},
			{CrawlID: "crawl-1", Type: "email", Value: "admin@example.com", Confidence: 1},
			{CrawlID: "crawl-1", Type: "bitcoin", Value: "bc1qexample", Confidence: 0.9},
		},
	}
}

func TestCrawlHelpers(t *testing.T) {
	t.Parallel()

	c := createTestCrawl()
	if got := c.OpenPorts(); len(got) != 2 || got[0] != 80 || got[1] != 443 {
		t.Errorf("OpenPorts() = %v", got)
	}
	if got := orderedTypes(c); strings.Join(got, ",") != "email,bitcoin,onion" {
		t.Errorf("orderedTypes() = %v", got)
	}

	var nilCrawl *Crawl
	if len(nilCrawl.OpenPorts()) != 0 || len(nilCrawl.RelationshipsByType()) != 0 {
		t.Error("nil crawl helpers should return empty results")
	}
}

// TestSimpleWriter tests plain text output.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and open ports", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(createTestCrawl()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		out := buf.String()

		for _, want := range []string{"DARKLIGHT CRAWL", "crawl-1", "example.onion", "Example", "80", "https", "admin@example.com", "[bitcoin]"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q", want)
			}
		}
		if strings.Contains(out, "ssh") {
			t.Error("closed ports should be hidden without verbose")
		}
		if strings.Contains(out, "RESPONSE HEADERS") {
			t.Error("headers should be hidden without verbose")
		}
	})

	t.Run("verbose shows closed ports and headers", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf, WithVerbose(true)).Write(createTestCrawl()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, "ssh") || !strings.Contains(out, "closed") {
			t.Error("expected closed ssh port in verbose output")
		}
		if !strings.Contains(out, "Server: nginx") {
			t.Error("expected response headers in verbose output")
		}
		if strings.Index(out, "Server:") > strings.Index(out, "X-Powered-By:") {
			t.Error("headers should be sorted")
		}
	})

	t.Run("missing ports and relationships", func(t *testing.T) {
		t.Parallel()

		c := createTestCrawl()
		c.Ports = nil
		c.Relationships = nil

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(c); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "(no port scan stored)") || !strings.Contains(buf.String(), "(none)") {
			t.Errorf("unexpected output:\n%s", buf.String())
		}
	})
}

// TestMarkdownWriter tests Markdown output.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes sections", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewMarkdownWriter(&buf).Write(createTestCrawl())
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if n == 0 {
			t.Error("expected non-zero length")
		}
		out := buf.String()

		for _, want := range []string{
			"# Crawl Report",
			"## Ports",
			"## Response Headers",
			"## Relationships",
			"### Email",
			"`admin@example.com`",
			"```mermaid",
			"2 port(s) reachable: 80, 443",
			"darklight",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q", want)
			}
		}
		if strings.Index(out, "### Email") > strings.Index(out, "### Onion") {
			t.Error("email section should precede onion section")
		}
	})

	t.Run("no open ports", func(t *testing.T) {
		t.Parallel()

		c := createTestCrawl()
		c.Ports = model.NewPortDocument("crawl-1", model.ClosedPorts(model.CatalogPorts()))
		c.Relationships = nil

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(c); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "No catalog ports are reachable.") {
			t.Error("expected tip for no open ports")
		}
		if !strings.Contains(buf.String(), "No relationships recorded.") {
			t.Error("expected empty relationships text")
		}
	})
}

// TestJSONWriter tests JSON output.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("outputs valid compact JSON", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(createTestCrawl()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}

		var decoded struct {
			Webpage struct {
				ID    string `json:"id"`
				Title string `json:"title"`
			} `json:"webpage"`
			Ports struct {
				Services []model.ServiceStatus `json:"services"`
			} `json:"ports"`
			Relationships []model.Relationship `json:"relationships"`
		}
		if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Webpage.ID != "crawl-1" || len(decoded.Ports.Services) != 3 || len(decoded.Relationships) != 3 {
			t.Errorf("unexpected decoded value: %+v", decoded)
		}
		if strings.Count(buf.String(), "\n") != 1 {
			t.Error("compact output should be a single line")
		}
	})

	t.Run("pretty print with version", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint(), WithVersion("v1.2.3"))
		if _, err := w.Write(createTestCrawl()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		out := buf.String()
		if !strings.Contains(out, `"version": "v1.2.3"`) {
			t.Errorf("expected version field:\n%s", out)
		}
		if !strings.Contains(out, "\n  \"webpage\"") {
			t.Errorf("expected embedded crawl fields at top level:\n%s", out)
		}
	})

	t.Run("custom indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf, WithIndent(">", "\t")).Write(createTestCrawl()); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if !strings.Contains(buf.String(), "\n>\t\"webpage\"") {
			t.Errorf("expected prefix and tab indent:\n%s", buf.String())
		}
	})
}

type errWriter struct{}

func (errWriter) Write(*Crawl) (int, error) { return 0, errors.New("boom") }

// TestMultiWriter tests fan-out to several writers.
func TestMultiWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes to all writers", func(t *testing.T) {
		t.Parallel()

		var a, b bytes.Buffer
		m := NewMultiWriter(NewSimpleWriter(&a), NewJSONWriter(&b))
		n, err := m.Write(createTestCrawl())
		if err != nil {
			t.Fatalf("Write() error = %v", err)
		}
		if a.Len() == 0 || b.Len() == 0 || n != a.Len()+b.Len() {
			t.Errorf("n = %d, a = %d, b = %d", n, a.Len(), b.Len())
		}
	})

	t.Run("stops on first error", func(t *testing.T) {
		t.Parallel()

		var b bytes.Buffer
		m := NewMultiWriter(errWriter{}, NewJSONWriter(&b))
		if _, err := m.Write(createTestCrawl()); err == nil {
			t.Fatal("expected error")
		}
		if b.Len() != 0 {
			t.Error("later writers should not run after an error")
		}
	})

	t.Run("handles empty writers list", func(t *testing.T) {
		t.Parallel()

		n, err := NewMultiWriter().Write(createTestCrawl())
		if n != 0 || err != nil {
			t.Errorf("Write() = %d, %v", n, err)
		}
	})
}

func TestTruncateString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		max  int
		want string
	}{
		{in: "short", max: 10, want: "short"},
		{in: "exactly10!", max: 10, want: "exactly10!"},
		{in: "this is too long", max: 10, want: "this is..."},
		{in: "abcdef", max: 2, want: "ab"},
	}
	for _, tt := range tests {
		if got := truncateString(tt.in, tt.max); got != tt.want {
			t.Errorf("truncateString(%q, %d) = %q, want %q", tt.in, tt.max, got, tt.want)
		}
	}
}
