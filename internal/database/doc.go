// Package database provides the PostgreSQL store of domain records.
//
// Domain rows are created by whatever process registers domains for
// crawling; darklight only looks them up by UUID when saving a crawl and
// touches their crawl status afterwards. Every call acquires its own pooled
// connection and releases it before returning, so no connection is held
// across a page fetch.
//
// The schema is managed with goose. Migrations are embedded in the binary
// and applied by "darklight migrate".
package database
