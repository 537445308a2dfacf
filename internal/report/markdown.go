package report

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/darklight/internal/model"
)

// MarkdownWriter outputs crawls in Markdown format.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write outputs the crawl in Markdown format.
func (w *MarkdownWriter) Write(crawl *Crawl) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, crawl)
	w.writePorts(md, crawl)
	w.writeHeaders(md, crawl)
	w.writeRelationships(md, crawl)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, crawl *Crawl) {
	md.H1("Crawl Report")
	md.PlainText("")

	page := crawl.Webpage
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Crawl ID", "`" + page.ID + "`"},
			{"URL", page.URL},
			{"Domain", "`" + page.Domain + "`"},
			{"Title", orDash(page.Title)},
			{"Language", orDash(page.Language)},
			{"Captured", page.Timestamp.Format("2006-01-02 15:04:05 MST")},
			{"Screenshot", orDash(page.Screenshot)},
			{"DOM Elements", strconv.Itoa(page.Tree.Count())},
		},
	})
	md.PlainText("")
}

func (w *MarkdownWriter) writePorts(md *markdown.Markdown, crawl *Crawl) {
	md.H2("Ports")
	md.PlainText("")

	if crawl.Ports == nil {
		md.Note("No port scan was stored for this crawl.")
		md.PlainText("")
		return
	}

	open := crawl.OpenPorts()
	rows := make([][]string, 0, len(crawl.Ports.Services))
	for _, s := range crawl.Ports.Services {
		rows = append(rows, []string{
			strconv.Itoa(s.Number),
			orDash(model.ServiceName(s.Number)),
			portState(s.Status),
		})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Port", "Service", "Status"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(crawl.Ports.Services) > 0 {
		chart := piechart.NewPieChart(
			io.Discard,
			piechart.WithTitle("Port Status"),
			piechart.WithShowData(true),
		)
		chart.LabelAndIntValue("Open", uint64(len(open)))
		chart.LabelAndIntValue("Closed", uint64(len(crawl.Ports.Services)-len(open)))
		md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
		md.PlainText("")
	}

	if len(open) == 0 {
		md.Tip("No catalog ports are reachable.")
	} else {
		md.Importantf("%d port(s) reachable: %s", len(open), joinInts(open))
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeHeaders(md *markdown.Markdown, crawl *Crawl) {
	headers := crawl.Webpage.Headers
	if len(headers) == 0 {
		return
	}

	md.H2("Response Headers")
	md.PlainText("")

	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, len(keys))
	for i, k := range keys {
		rows[i] = []string{k, truncateString(headers[k], 80)}
	}
	md.Table(markdown.TableSet{Header: []string{"Header", "Value"}, Rows: rows})
	md.PlainText("")
}

func (w *MarkdownWriter) writeRelationships(md *markdown.Markdown, crawl *Crawl) {
	md.H2("Relationships")
	md.PlainText("")

	if len(crawl.Relationships) == 0 {
		md.PlainText("No relationships recorded.")
		md.PlainText("")
		return
	}

	groups := crawl.RelationshipsByType()
	for _, t := range orderedTypes(crawl) {
		md.H3(title(t))
		md.PlainText("")

		rows := make([][]string, len(groups[t]))
		for i, r := range groups[t] {
			rows[i] = []string{
				"`" + r.Value + "`",
				strconv.FormatFloat(r.Confidence, 'f', 2, 64),
			}
		}
		md.Table(markdown.TableSet{Header: []string{"Value", "Confidence"}, Rows: rows})
		md.PlainText("")
	}
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [darklight](https://github.com/nao1215/darklight)*")
}

func portState(open bool) string {
	if open {
		return "open"
	}
	return "closed"
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
