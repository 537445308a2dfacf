// Package crawler orchestrates one crawl of a domain and its persistence.
//
// # Scan
//
// Crawler.Scan captures the page at a URL with a browser.Engine and, if
// that worked, probes the fixed port catalog on the URL's host. A failed
// capture produces an empty result and no port scan.
//
// # Save
//
// Crawler.Save stores a result under a caller-supplied crawl identifier:
//
//  1. The domain record of the identifier is looked up. A missing record
//     or a lookup error leaves the domain nil; the save continues.
//  2. The post-processing pipeline runs. Stage failures are reported but
//     never fail the save.
//  3. A document session is opened, the screenshot is stored as an
//     artifact, and the webpage and port documents are written.
//
// Errors from the artifact store and the document index are returned
// wrapped, so callers can match the underlying error.
//
// # Batches
//
// Batch runs Scan and Save for many jobs with bounded concurrency and
// returns outcomes in input order.
package crawler
