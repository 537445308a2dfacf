// Package main provides the entry point for the darklight CLI.
//
// darklight captures onion service pages with headless Chrome over Tor,
// probes a fixed list of service ports, runs the post-processing pipeline
// and stores the resulting documents.
//
// Usage:
//
//	darklight crawl <id> <url>
//	darklight crawl --list <file>
//	darklight serve
//
// See --help for all available options.
package main

func main() {
	Execute()
}
