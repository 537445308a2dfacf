package model

import "time"

// WebpageDocument is the persisted form of a page capture.
type WebpageDocument struct {
	ID         string            `json:"id"`
	URL        string            `json:"url"`
	Domain     string            `json:"domain"`
	Title      string            `json:"title"`
	Timestamp  time.Time         `json:"timestamp"`
	Source     string            `json:"source"`
	Screenshot string            `json:"screenshot"`
	Language   string            `json:"language"`
	Headers    map[string]string `json:"headers"`
	Tree       *Node             `json:"tree,omitempty"`
}

// ServiceStatus is one entry of a PortDocument.
type ServiceStatus struct {
	Number int  `json:"number"`
	Status bool `json:"status"`
}

// PortDocument is the persisted port scan of one crawl.
// Services keep the scan (catalog) order.
type PortDocument struct {
	ID       string          `json:"id"`
	Services []ServiceStatus `json:"services"`
}

// NewPortDocument builds a PortDocument from scan output, preserving order.
func NewPortDocument(id string, ports []PortStatus) *PortDocument {
	services := make([]ServiceStatus, len(ports))
	for i, p := range ports {
		services[i] = ServiceStatus{Number: p.Number, Status: p.Open}
	}
	return &PortDocument{ID: id, Services: services}
}

// Relationship links a crawl to a value derived from its page, such as an
// e-mail address or another onion service.
type Relationship struct {
	ID         int64     `json:"-"`
	CrawlID    string    `json:"crawl_id"`
	Domain     string    `json:"domain"`
	Type       string    `json:"type"`
	Value      string    `json:"value"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
}
