package model

import "testing"

// TestDomainFromURL tests network location extraction.
func TestDomainFromURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		url  string
		want string
	}{
		{name: "onion with trailing slash", url: "http://example.onion/", want: "example.onion"},
		{name: "keeps explicit port", url: "http://example.onion:8080/index.html", want: "example.onion:8080"},
		{name: "https with query", url: "https://example.com/a?b=c", want: "example.com"},
		{name: "surrounding whitespace", url: "  http://example.onion  ", want: "example.onion"},
		{name: "empty string", url: "", want: ""},
		{name: "missing scheme", url: "example.onion/path", want: ""},
		{name: "malformed", url: "http://[::1", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := DomainFromURL(tt.url); got != tt.want {
				t.Errorf("DomainFromURL(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

// TestPageCaptureFingerprint tests source fingerprinting.
func TestPageCaptureFingerprint(t *testing.T) {
	t.Parallel()

	t.Run("whitespace differences do not change fingerprint", func(t *testing.T) {
		t.Parallel()

		a := &PageCapture{Source: "<html>\n  <body>hi</body>\n</html>"}
		b := &PageCapture{Source: "<html> <body>hi</body> </html>"}

		if a.Fingerprint() != b.Fingerprint() {
			t.Errorf("expected equal fingerprints, got %q and %q", a.Fingerprint(), b.Fingerprint())
		}
		if len(a.Fingerprint()) != 64 {
			t.Errorf("expected 64 hex chars, got %d", len(a.Fingerprint()))
		}
	})

	t.Run("different content differs", func(t *testing.T) {
		t.Parallel()

		a := &PageCapture{Source: "one"}
		b := &PageCapture{Source: "two"}
		if a.Fingerprint() == b.Fingerprint() {
			t.Error("expected different fingerprints")
		}
	})

	t.Run("empty source and nil capture produce empty fingerprint", func(t *testing.T) {
		t.Parallel()

		if got := (&PageCapture{Source: "  \n "}).Fingerprint(); got != "" {
			t.Errorf("expected empty fingerprint, got %q", got)
		}
		var p *PageCapture
		if got := p.Fingerprint(); got != "" {
			t.Errorf("expected empty fingerprint for nil, got %q", got)
		}
	})
}

// TestNodeCount tests element counting in the DOM snapshot.
func TestNodeCount(t *testing.T) {
	t.Parallel()

	tree := &Node{
		Tag: "html",
		Children: []*Node{
			{Tag: "head", Children: []*Node{{Tag: "title", Text: "x"}}},
			{Tag: "body"},
		},
	}
	if got := tree.Count(); got != 4 {
		t.Errorf("Count() = %d, want 4", got)
	}

	var empty *Node
	if got := empty.Count(); got != 0 {
		t.Errorf("nil Count() = %d, want 0", got)
	}
}
