// Package browser captures web pages with headless Chrome.
//
// Chrome implements Engine with chromedp. A single capture navigates to
// the URL through the configured proxy (normally the Tor SOCKS port) and
// collects the rendered title and outer HTML, a full-page JPEG screenshot,
// the response headers of the main document, the page language and a
// structural snapshot of the DOM.
//
// The tree and language helpers work on HTML source and are usable without
// a browser.
package browser
