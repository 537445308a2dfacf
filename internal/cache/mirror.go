// Package cache keeps the Redis mirror index.
//
// A mirror is an onion service that serves the same page as another one.
// The index maps the fingerprint of a page source to the set of domains
// that served it, so the mirror pipeline stage can link them.
package cache

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
)

const mirrorKeyPrefix = "darklight:mirror:"

// ErrEmptyKey is returned when a fingerprint or domain is empty.
var ErrEmptyKey = errors.New("fingerprint and domain must not be empty")

// NewClient connects to a single Redis server.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// MirrorIndex stores fingerprint -> domains sets in Redis.
type MirrorIndex struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// Option configures a MirrorIndex.
type Option func(*MirrorIndex)

// WithTTL expires a fingerprint set ttl after its last update.
// Zero keeps sets forever.
func WithTTL(ttl time.Duration) Option {
	return func(m *MirrorIndex) {
		m.ttl = ttl
	}
}

// NewMirrorIndex creates a MirrorIndex on client.
func NewMirrorIndex(client redis.UniversalClient, opts ...Option) *MirrorIndex {
	m := &MirrorIndex{client: client}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// mirrorKey creates a consistent Redis key for a fingerprint.
func mirrorKey(fingerprint string) string {
	return mirrorKeyPrefix + fingerprint
}

// Add records that domain served fingerprint and returns the other domains
// that served it, sorted.
func (m *MirrorIndex) Add(ctx context.Context, fingerprint, domain string) ([]string, error) {
	if fingerprint == "" || domain == "" {
		return nil, ErrEmptyKey
	}
	key := mirrorKey(fingerprint)

	var members *redis.StringSliceCmd
	// MULTI/EXEC so the member list includes our own SADD.
	_, err := m.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, key, domain)
		if m.ttl > 0 {
			pipe.Expire(ctx, key, m.ttl)
		}
		members = pipe.SMembers(ctx, key)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to update mirror index: %w", err)
	}
	return others(members.Val(), domain), nil
}

// Domains returns every domain that served fingerprint, sorted.
func (m *MirrorIndex) Domains(ctx context.Context, fingerprint string) ([]string, error) {
	if fingerprint == "" {
		return nil, ErrEmptyKey
	}
	domains, err := m.client.SMembers(ctx, mirrorKey(fingerprint)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read mirror index: %w", err)
	}
	sort.Strings(domains)
	return domains, nil
}

// Ping checks the connection.
func (m *MirrorIndex) Ping(ctx context.Context) error {
	return m.client.Ping(ctx).Err()
}

// Close closes the client.
func (m *MirrorIndex) Close() error {
	return m.client.Close()
}

func others(members []string, self string) []string {
	out := make([]string, 0, len(members))
	for _, d := range members {
		if d != self {
			out = append(out, d)
		}
	}
	sort.Strings(out)
	return out
}
