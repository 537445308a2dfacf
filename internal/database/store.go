package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/nao1215/darklight/internal/model"
)

// Pool settings applied by Connect.
const (
	DefaultMaxConns          = 10
	DefaultHealthCheckPeriod = 30 * time.Second
)

// ErrNoDatabase is returned by Connect when no connection string is set.
var ErrNoDatabase = errors.New("database url is not configured")

// Store is the domain record store used by the crawler.
type Store interface {
	// FindDomain returns the domain whose UUID is id, or nil if none exists.
	FindDomain(ctx context.Context, id string) (*model.DomainRecord, error)
	// MarkCrawled records the outcome of a crawl of domainID.
	MarkCrawled(ctx context.Context, domainID int64, online bool, at time.Time) error
}

// Postgres is a Store backed by a pgx connection pool.
type Postgres struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// Option configures Postgres.
type Option func(*Postgres)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Postgres) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// Connect opens a pool to url and verifies it with a ping.
func Connect(ctx context.Context, url string, opts ...Option) (*Postgres, error) {
	if url == "" {
		return nil, ErrNoDatabase
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}
	cfg.MaxConns = DefaultMaxConns
	cfg.HealthCheckPeriod = DefaultHealthCheckPeriod

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create database pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to reach database: %w", err)
	}
	return New(pool, opts...), nil
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool, opts ...Option) *Postgres {
	p := &Postgres{pool: pool, logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Pool returns the underlying pool.
func (p *Postgres) Pool() *pgxpool.Pool {
	return p.pool
}

// Close closes the pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

// FindDomain returns nil without querying when id is not a UUID.
func (p *Postgres) FindDomain(ctx context.Context, id string) (*model.DomainRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		p.logger.Debug("crawl id is not a uuid", "id", id)
		return nil, nil
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	query := `
		SELECT id, uuid::text, netloc, is_online, created_at, last_crawled_at
		FROM domains
		WHERE uuid = $1;
	`
	var d model.DomainRecord
	err = conn.QueryRow(ctx, query, id).Scan(
		&d.ID,
		&d.UUID,
		&d.Netloc,
		&d.IsOnline,
		&d.CreatedAt,
		&d.LastCrawledAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find domain %s: %w", id, err)
	}
	return &d, nil
}

// MarkCrawled sets the online flag and last crawl time of domainID and
// increments its crawl count.
func (p *Postgres) MarkCrawled(ctx context.Context, domainID int64, online bool, at time.Time) error {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	query := `
		UPDATE domains
		SET is_online = $2, last_crawled_at = $3, crawl_count = crawl_count + 1
		WHERE id = $1;
	`
	tag, err := conn.Exec(ctx, query, domainID, online, at)
	if err != nil {
		return fmt.Errorf("failed to mark domain %d crawled: %w", domainID, err)
	}
	if tag.RowsAffected() == 0 {
		p.logger.Warn("domain vanished before crawl status update", "domain_id", domainID)
	}
	return nil
}

// InsertDomain registers netloc under id and returns the stored record.
// An existing id keeps its row and only has its netloc refreshed.
func (p *Postgres) InsertDomain(ctx context.Context, id, netloc string) (*model.DomainRecord, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("invalid domain id %q: %w", id, err)
	}

	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire connection: %w", err)
	}
	defer conn.Release()

	query := `
		INSERT INTO domains (uuid, netloc)
		VALUES ($1, $2)
		ON CONFLICT (uuid) DO UPDATE SET netloc = EXCLUDED.netloc
		RETURNING id, uuid::text, netloc, is_online, created_at, last_crawled_at;
	`
	var d model.DomainRecord
	if err := conn.QueryRow(ctx, query, id, netloc).Scan(
		&d.ID,
		&d.UUID,
		&d.Netloc,
		&d.IsOnline,
		&d.CreatedAt,
		&d.LastCrawledAt,
	); err != nil {
		return nil, fmt.Errorf("failed to insert domain %s: %w", id, err)
	}
	return &d, nil
}
