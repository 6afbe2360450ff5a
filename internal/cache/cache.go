// ABOUTME: Best-effort response cache keyed by a fingerprint of the question text
// ABOUTME: Disables itself for the process lifetime if the backend is unreachable at startup
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/harper/docqa/internal/models"
)

// ErrMiss is returned by a Backend when the key does not exist or has expired
var ErrMiss = errors.New("cache miss")

const (
	// DefaultTTL matches the hour-long expiry of cached answers
	DefaultTTL = time.Hour
	// DefaultOpTimeout bounds every backend call so a slow cache never stalls a query
	DefaultOpTimeout = 500 * time.Millisecond
	// DefaultPrefix namespaces cache keys
	DefaultPrefix = "rag:"
)

// Backend is the key-value store behind the cache
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Ping(ctx context.Context) error
}

// Options configures a ResponseCache
type Options struct {
	TTL       time.Duration
	OpTimeout time.Duration
	Prefix    string
}

// ResponseCache memoizes question -> answer. It is never a source of truth.
type ResponseCache struct {
	backend   Backend
	ttl       time.Duration
	opTimeout time.Duration
	prefix    string
	enabled   bool
	logger    *log.Logger
}

// New probes the backend once. A nil backend or a failed probe yields a disabled
// cache that behaves as a permanent miss; there is no reconnection.
func New(ctx context.Context, backend Backend, opts Options, logger *log.Logger) *ResponseCache {
	if logger == nil {
		logger = log.Default()
	}
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.OpTimeout <= 0 {
		opts.OpTimeout = DefaultOpTimeout
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}

	c := &ResponseCache{
		backend:   backend,
		ttl:       opts.TTL,
		opTimeout: opts.OpTimeout,
		prefix:    opts.Prefix,
		logger:    logger.WithPrefix("cache"),
	}

	if backend == nil {
		c.logger.Info("no cache backend configured, caching disabled")
		return c
	}

	pingCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	if err := backend.Ping(pingCtx); err != nil {
		c.logger.Warn("cache backend not available, caching disabled", "err", err)
		return c
	}

	c.enabled = true
	return c
}

// Enabled reports whether the startup probe succeeded
func (c *ResponseCache) Enabled() bool {
	return c.enabled
}

// Fingerprint returns the cache key for a question. The raw text is hashed
// verbatim, so questions differing only in case or spacing do not share entries.
func (c *ResponseCache) Fingerprint(question string) string {
	sum := sha256.Sum256([]byte(question))
	return c.prefix + hex.EncodeToString(sum[:])
}

// Get returns the cached entry for question, or false on miss, expiry or any failure
func (c *ResponseCache) Get(ctx context.Context, question string) (*models.CacheEntry, bool) {
	if !c.enabled {
		return nil, false
	}

	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	key := c.Fingerprint(question)
	data, err := c.backend.Get(opCtx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			c.logger.Warn("cache get failed", "key", key, "err", err)
		}
		return nil, false
	}

	var entry models.CacheEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		c.logger.Warn("discarding undecodable cache entry", "key", key, "err", err)
		return nil, false
	}
	if entry.Sources == nil {
		entry.Sources = []models.SourceRef{}
	}
	return &entry, true
}

// Set stores entry under question with the configured TTL. Failures are logged and dropped.
func (c *ResponseCache) Set(ctx context.Context, question string, entry models.CacheEntry) {
	if !c.enabled {
		return
	}

	data, err := json.Marshal(entry)
	if err != nil {
		c.logger.Warn("failed to encode cache entry", "err", err)
		return
	}

	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()

	key := c.Fingerprint(question)
	if err := c.backend.Set(opCtx, key, data, c.ttl); err != nil {
		c.logger.Warn("cache set failed", "key", key, "err", err)
	}
}

// IsAvailable pings the backend. Used only for health reporting.
func (c *ResponseCache) IsAvailable(ctx context.Context) bool {
	if !c.enabled {
		return false
	}
	opCtx, cancel := context.WithTimeout(ctx, c.opTimeout)
	defer cancel()
	return c.backend.Ping(opCtx) == nil
}
