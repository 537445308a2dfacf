package portscan

import (
	"context"
	"net"
	"strconv"
	"time"
)

// Prober reports whether a single port of host accepts connections.
// A non-nil error means the port is treated as closed.
type Prober interface {
	Probe(ctx context.Context, host string, port int) (bool, error)
}

// DialFunc opens a connection. tor.Client.DialContext and
// (*net.Dialer).DialContext both satisfy it.
type DialFunc func(ctx context.Context, network, address string) (net.Conn, error)

// TCPProber performs TCP connect checks.
type TCPProber struct {
	dial    DialFunc
	timeout time.Duration
}

// NewTCPProber returns a prober that uses dial with a per-probe timeout.
// A nil dial connects directly.
func NewTCPProber(dial DialFunc, timeout time.Duration) *TCPProber {
	if dial == nil {
		dial = (&net.Dialer{}).DialContext
	}
	return &TCPProber{dial: dial, timeout: timeout}
}

// Probe connects to host:port and closes the connection immediately.
// No data is exchanged.
func (p *TCPProber) Probe(ctx context.Context, host string, port int) (bool, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	conn, err := p.dial(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false, err
	}
	_ = conn.Close() //nolint:errcheck // the connection only proves the port is open
	return true, nil
}
