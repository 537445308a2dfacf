// Package portscan checks which catalog ports of a host accept TCP
// connections.
//
// A Scanner fans the catalog out to a Prober with bounded concurrency and
// always returns one model.PortStatus per catalog entry in catalog order,
// whatever order the probes finish in. Probe failures of any kind read as
// closed ports; a scan never fails as a whole.
//
// TCPProber dials either directly or through a Tor SOCKS5 client, so onion
// hosts are resolved by Tor.
package portscan
