package model

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// PageCapture holds everything the navigation engine captured for one URL.
// The core treats it as opaque data: it is produced by the browser package
// and copied field by field into the webpage document.
type PageCapture struct {
	// URL is the address that was requested.
	URL string `json:"url"`

	// Domain is the network location (host[:port]) of URL.
	Domain string `json:"domain"`

	// Title is the document title after rendering.
	Title string `json:"title"`

	// Source is the rendered outer HTML of the document.
	Source string `json:"source"`

	// Screenshot is a JPEG image of the rendered page.
	Screenshot []byte `json:"-"`

	// Language is the detected BCP 47 language tag, empty if unknown.
	Language string `json:"language"`

	// Headers are the response headers of the main document.
	Headers map[string]string `json:"headers"`

	// Tree is a structural snapshot of the rendered DOM.
	Tree *Node `json:"tree,omitempty"`
}

// Fingerprint returns the hex SHA-256 of the whitespace-normalized source.
// Identical pages served from different domains share a fingerprint.
// An empty source produces an empty fingerprint.
func (p *PageCapture) Fingerprint() string {
	if p == nil {
		return ""
	}
	normalized := strings.Join(strings.Fields(p.Source), " ")
	if normalized == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Node is one element of the DOM snapshot.
// Text nodes are folded into their parent's Text field.
type Node struct {
	Tag      string            `json:"tag"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Text     string            `json:"text,omitempty"`
	Children []*Node           `json:"children,omitempty"`
}

// Count returns the number of element nodes in the tree rooted at n.
func (n *Node) Count() int {
	if n == nil {
		return 0
	}
	total := 1
	for _, c := range n.Children {
		total += c.Count()
	}
	return total
}

// DomainFromURL returns the network location component of rawURL.
// It returns an empty string when rawURL is not an absolute URL.
func DomainFromURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Scheme == "" {
		return ""
	}
	return u.Host
}
