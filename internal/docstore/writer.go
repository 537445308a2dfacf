package docstore

import (
	"context"
	"errors"
	"time"

	"github.com/nao1215/darklight/internal/model"
)

// ErrNoPage is returned by Writer.Write for results without a page.
var ErrNoPage = errors.New("crawl result has no page")

// Writer turns a crawl result into documents.
type Writer struct {
	now func() time.Time
}

// NewWriter returns a Writer stamping documents with now. A nil now uses time.Now.
func NewWriter(now func() time.Time) *Writer {
	if now == nil {
		now = time.Now
	}
	return &Writer{now: now}
}

// Documents builds the webpage and port documents of crawl id.
// screenshotRef is the artifact reference stored in place of image bytes.
func (w *Writer) Documents(id string, result *model.CrawlResult, screenshotRef string) (*model.WebpageDocument, *model.PortDocument, error) {
	if result.IsEmpty() {
		return nil, nil, ErrNoPage
	}
	page := result.Page

	webpage := &model.WebpageDocument{
		ID:         id,
		URL:        page.URL,
		Domain:     page.Domain,
		Title:      page.Title,
		Timestamp:  w.now(),
		Source:     page.Source,
		Screenshot: screenshotRef,
		Language:   page.Language,
		Headers:    page.Headers,
		Tree:       page.Tree,
	}
	return webpage, model.NewPortDocument(id, result.Ports), nil
}

// Write stores both documents of crawl id through sess.
func (w *Writer) Write(ctx context.Context, sess *Session, id string, result *model.CrawlResult, screenshotRef string) error {
	webpage, ports, err := w.Documents(id, result, screenshotRef)
	if err != nil {
		return err
	}
	if err := sess.WriteWebpage(ctx, webpage); err != nil {
		return err
	}
	return sess.WritePort(ctx, ports)
}
