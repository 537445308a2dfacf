package report

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/nao1215/darklight/internal/model"
)

// SimpleWriter outputs human-readable text.
type SimpleWriter struct {
	baseWriter

	// verbose adds closed ports and response headers.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{baseWriter: newBaseWriter(output)}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Write outputs the crawl as plain text.
func (w *SimpleWriter) Write(crawl *Crawl) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, crawl)
	w.writePorts(&sb, crawl)
	if w.verbose {
		w.writeHeaders(&sb, crawl)
	}
	w.writeRelationships(&sb, crawl)

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, crawl *Crawl) {
	page := crawl.Webpage
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          DARKLIGHT CRAWL\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Crawl ID:   %s\n", page.ID)
	fmt.Fprintf(sb, "URL:        %s\n", page.URL)
	fmt.Fprintf(sb, "Domain:     %s\n", page.Domain)
	fmt.Fprintf(sb, "Title:      %s\n", orDash(page.Title))
	fmt.Fprintf(sb, "Language:   %s\n", orDash(page.Language))
	fmt.Fprintf(sb, "Captured:   %s\n", page.Timestamp.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(sb, "Screenshot: %s\n", orDash(page.Screenshot))
	sb.WriteString("\n")
}

func (w *SimpleWriter) writePorts(sb *strings.Builder, crawl *Crawl) {
	sb.WriteString("PORTS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")

	if crawl.Ports == nil {
		sb.WriteString("  (no port scan stored)\n\n")
		return
	}

	shown := 0
	for _, s := range crawl.Ports.Services {
		if !s.Status && !w.verbose {
			continue
		}
		fmt.Fprintf(sb, "  %-6d %-10s %s\n", s.Number, orDash(model.ServiceName(s.Number)), portState(s.Status))
		shown++
	}
	if shown == 0 {
		sb.WriteString("  (no open ports)\n")
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeHeaders(sb *strings.Builder, crawl *Crawl) {
	if len(crawl.Webpage.Headers) == 0 {
		return
	}
	sb.WriteString("RESPONSE HEADERS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	headers := crawl.Webpage.Headers
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(sb, "  %s: %s\n", k, truncateString(headers[k], 60))
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeRelationships(sb *strings.Builder, crawl *Crawl) {
	sb.WriteString("RELATIONSHIPS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")

	if len(crawl.Relationships) == 0 {
		sb.WriteString("  (none)\n")
		return
	}

	groups := crawl.RelationshipsByType()
	for _, t := range orderedTypes(crawl) {
		fmt.Fprintf(sb, "  [%s]\n", t)
		for _, r := range groups[t] {
			fmt.Fprintf(sb, "    %s (%.2f)\n", r.Value, r.Confidence)
		}
	}
}
