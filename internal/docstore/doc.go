// Package docstore persists crawl documents in a SQLite index.
//
// Each crawl produces a webpage document and a port document, both keyed by
// the crawl identifier, and any number of relationships derived by the
// pipeline stages. Writes go through a Session, which pins one connection
// for the duration of a save and must be closed by the caller:
//
//	sess, err := idx.Session(ctx)
//	if err != nil {
//		return err
//	}
//	defer sess.Close()
//
// Documents are stored with UPSERT semantics, so re-saving a crawl
// replaces its documents.
package docstore
