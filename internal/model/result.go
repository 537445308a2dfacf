package model

// CrawlResult is the outcome of one scan: the captured page and the status
// of every catalog port.
//
// A nil Page means navigation failed. In that case Ports is empty as well,
// because the port scan is skipped.
type CrawlResult struct {
	Page  *PageCapture `json:"page,omitempty"`
	Ports []PortStatus `json:"ports,omitempty"`
}

// IsEmpty reports whether the crawl aborted before capturing a page.
func (r *CrawlResult) IsEmpty() bool {
	return r == nil || r.Page == nil
}

// OpenPorts returns the numbers of the ports reported open, in scan order.
func (r *CrawlResult) OpenPorts() []int {
	if r == nil {
		return nil
	}
	open := make([]int, 0)
	for _, p := range r.Ports {
		if p.Open {
			open = append(open, p.Number)
		}
	}
	return open
}
