// ABOUTME: Charm KV client wrapper used as an alternative response cache store
// ABOUTME: Opens a local badger-backed KV that can optionally sync to a Charm server
package charm

import (
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/charmbracelet/charm/kv"
	"github.com/dgraph-io/badger/v3"
)

// Config holds charm client configuration
type Config struct {
	Host     string
	DBName   string
	AutoSync bool
}

// Client wraps charm KV for cache storage. Writes schedule a background sync;
// at most one sync runs at a time and Close waits for it.
type Client struct {
	kv     *kv.KV
	config *Config
	mu     sync.Mutex

	syncing atomic.Bool
	syncWG  sync.WaitGroup
}

// NewClient opens the named KV database on the configured host
func NewClient(cfg *Config) (*Client, error) {
	if cfg.Host != "" {
		os.Setenv("CHARM_HOST", cfg.Host)
	}

	db, err := kv.OpenWithDefaults(cfg.DBName)
	if err != nil {
		return nil, fmt.Errorf("failed to open charm kv: %w", err)
	}

	c := &Client{
		kv:     db,
		config: cfg,
	}

	if cfg.AutoSync {
		c.scheduleSync()
	}

	return c, nil
}

// Close closes the KV database
func (c *Client) Close() error {
	c.mu.Lock()
	db := c.kv
	c.kv = nil
	c.mu.Unlock()

	if db == nil {
		return nil
	}
	// No new sync can start once kv is nil
	c.syncWG.Wait()
	return db.Close()
}

func (c *Client) syncIfEnabled() {
	if c.config.AutoSync {
		c.scheduleSync()
	}
}

// scheduleSync starts a background sync unless one is already running
func (c *Client) scheduleSync() {
	if !c.syncing.CompareAndSwap(false, true) {
		return
	}
	db := c.kv
	c.syncWG.Add(1)
	go func() {
		defer c.syncWG.Done()
		defer c.syncing.Store(false)
		_ = db.Sync()
	}()
}

// Set stores a value with the given key
func (c *Client) Set(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv == nil {
		return errors.New("charm kv is closed")
	}
	if err := c.kv.Set([]byte(key), value); err != nil {
		return fmt.Errorf("failed to set key %s: %w", key, err)
	}
	c.syncIfEnabled()
	return nil
}

// Get retrieves a value by key
func (c *Client) Get(key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv == nil {
		return nil, errors.New("charm kv is closed")
	}
	return c.kv.Get([]byte(key))
}

// Delete removes a key
func (c *Client) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.kv == nil {
		return errors.New("charm kv is closed")
	}
	if err := c.kv.Delete([]byte(key)); err != nil {
		return fmt.Errorf("failed to delete key %s: %w", key, err)
	}
	c.syncIfEnabled()
	return nil
}

// IsNotFound reports whether err means the key does not exist
func IsNotFound(err error) bool {
	return errors.Is(err, badger.ErrKeyNotFound)
}
