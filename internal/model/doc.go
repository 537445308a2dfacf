// Package model defines the data structures shared by the darklight crawler.
//
// This package contains the following main types:
//   - PageCapture: What the navigation engine captured for one URL
//   - PortStatus and Catalog: The fixed list of probed service ports
//   - CrawlResult: A page capture plus its port scan, built once per crawl
//   - DomainRecord: The pre-existing domain row a crawl is saved against
//   - WebpageDocument and PortDocument: The persisted document shapes
//
// Design decision: We separate models into their own package to avoid circular
// dependencies. The browser, portscan, pipeline, docstore and crawler packages
// all exchange these types, so centralizing them prevents import cycles.
package model
