// Package pipeline runs the post-processing stages of a crawl.
//
// Every crawl gets fresh stage instances built by the registered factories
// from the crawl's domain record, result and configuration. The Runner
// executes them one after another in registration order. A stage that is
// inactive is skipped; a stage that fails or panics is logged and recorded
// in the Report, and the next stage still runs. Stage failures never fail
// the save that triggered them.
//
// Built-in stages:
//
//	domain     mark the relational domain record online and crawled
//	email      record e-mail addresses found in the page source
//	bitcoin    record Bitcoin addresses found in the page source
//	onion      record other v3 onion services the page mentions
//	analytics  record analytics and tracking account IDs
//	mirror     record domains serving the same page, via the mirror index
package pipeline
