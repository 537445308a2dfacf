package model

import "time"

// DomainRecord is the relational row a crawl identifier refers to.
// The crawler only reads it; the domain stage may touch its crawl status.
type DomainRecord struct {
	ID            int64
	UUID          string
	Netloc        string
	IsOnline      bool
	CreatedAt     time.Time
	LastCrawledAt *time.Time
}
