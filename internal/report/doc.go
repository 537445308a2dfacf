// Package report renders stored crawls for people and tools.
//
// A Crawl bundles the documents saved for one crawl identifier with the
// relationships the pipeline derived from it. Writers render it:
//   - SimpleWriter: plain text for the terminal
//   - MarkdownWriter: Markdown with tables and a port chart
//   - JSONWriter: JSON for tool integration and the HTTP API
package report
