package tor

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// SessionConfig selects how a Session reaches Tor.
type SessionConfig struct {
	// ProxyAddress is an existing SOCKS5 proxy. When empty an embedded
	// daemon is started.
	ProxyAddress string
	// StartupTimeout bounds embedded daemon bootstrap.
	StartupTimeout time.Duration
	// Verify runs CheckConnection against an external proxy before use.
	Verify bool
}

// Session is a ready Tor client plus the embedded daemon that backs it, if any.
type Session struct {
	*Client
	embedded *EmbeddedTor
}

// Open connects to Tor according to cfg.
func Open(ctx context.Context, cfg SessionConfig, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if cfg.ProxyAddress != "" {
		client, err := NewClient(cfg.ProxyAddress, WithClientLogger(logger))
		if err != nil {
			return nil, err
		}
		if cfg.Verify {
			if status := client.CheckConnection(ctx); status != ProxyStatusOK {
				return nil, fmt.Errorf("tor proxy %s: %w", cfg.ProxyAddress, status.Err())
			}
		}
		logger.Info("using external tor proxy", "proxy", cfg.ProxyAddress)
		return &Session{Client: client}, nil
	}

	logger.Info("starting embedded tor daemon", "timeout", cfg.StartupTimeout)
	embedded := NewEmbeddedTor(WithStartupTimeout(cfg.StartupTimeout))
	if err := embedded.Start(ctx); err != nil {
		return nil, err
	}
	client, err := embedded.NewClient(WithClientLogger(logger))
	if err != nil {
		_ = embedded.Stop() //nolint:errcheck // best effort cleanup
		return nil, err
	}
	logger.Info("embedded tor daemon ready", "socks", embedded.SocksAddr())
	return &Session{Client: client, embedded: embedded}, nil
}

// Embedded reports whether the session owns a daemon.
func (s *Session) Embedded() bool {
	return s.embedded != nil
}

// Close stops the embedded daemon, if any.
func (s *Session) Close() error {
	if s.embedded == nil {
		return nil
	}
	return s.embedded.Stop()
}
