package report

import (
	"io"

	"github.com/nao1215/darklight/internal/model"
)

// Crawl is everything stored for one crawl identifier.
// Ports may be nil when only the webpage document exists.
type Crawl struct {
	Webpage       *model.WebpageDocument `json:"webpage"`
	Ports         *model.PortDocument    `json:"ports,omitempty"`
	Relationships []model.Relationship   `json:"relationships"`
}

// OpenPorts returns the open port numbers in stored order.
func (c *Crawl) OpenPorts() []int {
	open := make([]int, 0)
	if c == nil || c.Ports == nil {
		return open
	}
	for _, s := range c.Ports.Services {
		if s.Status {
			open = append(open, s.Number)
		}
	}
	return open
}

// RelationshipsByType groups relationships by type, keeping their order.
func (c *Crawl) RelationshipsByType() map[string][]model.Relationship {
	groups := make(map[string][]model.Relationship)
	if c == nil {
		return groups
	}
	for _, r := range c.Relationships {
		groups[r.Type] = append(groups[r.Type], r)
	}
	return groups
}

// Writer renders a Crawl.
type Writer interface {
	// Write outputs the crawl and returns the number of bytes written.
	Write(crawl *Crawl) (int, error)
}

// MultiWriter writes to multiple Writers in order.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write stops on the first error.
func (m *MultiWriter) Write(crawl *Crawl) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(crawl)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// relationshipOrder is the section order of relationship types.
var relationshipOrder = []string{"email", "bitcoin", "onion", "analytics", "mirror"}

// orderedTypes returns relationshipOrder followed by any other types in
// first-seen order.
func orderedTypes(c *Crawl) []string {
	seen := make(map[string]bool)
	types := make([]string, 0)
	groups := c.RelationshipsByType()
	for _, t := range relationshipOrder {
		if len(groups[t]) > 0 {
			types = append(types, t)
			seen[t] = true
		}
	}
	for _, r := range c.Relationships {
		if !seen[r.Type] {
			types = append(types, r.Type)
			seen[r.Type] = true
		}
	}
	return types
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
