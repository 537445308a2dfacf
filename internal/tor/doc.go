// Package tor connects darklight to the Tor network.
//
// A Session wraps either an external SOCKS5 proxy (the system Tor daemon on
// 127.0.0.1:9050 by default) or an embedded daemon started through tornago.
// Its Client hands a context-aware dialer to the port scanner and a
// socks5:// proxy URL to the headless browser, so onion names are always
// resolved by Tor.
//
// The package also validates v3 onion addresses and extracts them from page
// source for the onion pipeline stage.
package tor
