// ABOUTME: Cache backend over a plain key-value store without native expiry
// ABOUTME: Wraps values in an envelope, checks expiry lazily and bounds store calls by ctx
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// KVStore is the subset of the Charm KV client the backend needs. Its calls
// take no context, so the backend runs them off the caller's goroutine.
type KVStore interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Delete(key string) error
}

type envelope struct {
	ExpiresAt time.Time       `json:"expires_at"`
	Value     json.RawMessage `json:"value"`
}

// KVBackend adapts a KVStore to the cache Backend interface
type KVBackend struct {
	store KVStore
	// isMiss reports whether a Get error means "key not found"
	isMiss func(error) bool
	now    func() time.Time
}

// NewKVBackend creates a backend over store. isMiss classifies not-found errors.
func NewKVBackend(store KVStore, isMiss func(error) bool) *KVBackend {
	if isMiss == nil {
		isMiss = func(error) bool { return false }
	}
	return &KVBackend{store: store, isMiss: isMiss, now: time.Now}
}

// Get returns the value if present and not expired
func (b *KVBackend) Get(ctx context.Context, key string) ([]byte, error) {
	return withContext(ctx, func() ([]byte, error) {
		data, err := b.store.Get(key)
		if err != nil {
			if b.isMiss(err) {
				return nil, ErrMiss
			}
			return nil, fmt.Errorf("kv get %s: %w", key, err)
		}
		if data == nil {
			return nil, ErrMiss
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			return nil, fmt.Errorf("kv decode %s: %w", key, err)
		}
		if !b.now().Before(env.ExpiresAt) {
			_ = b.store.Delete(key)
			return nil, ErrMiss
		}
		return env.Value, nil
	})
}

// Set stores value, which must be JSON, with an expiry timestamp of now+ttl
func (b *KVBackend) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	data, err := json.Marshal(envelope{ExpiresAt: b.now().Add(ttl), Value: value})
	if err != nil {
		return fmt.Errorf("kv encode %s: %w", key, err)
	}
	_, err = withContext(ctx, func() (struct{}, error) {
		if err := b.store.Set(key, data); err != nil {
			return struct{}{}, fmt.Errorf("kv set %s: %w", key, err)
		}
		return struct{}{}, nil
	})
	return err
}

// Ping reads a probe key; a missing key still proves the store is reachable
func (b *KVBackend) Ping(ctx context.Context) error {
	_, err := withContext(ctx, func() (struct{}, error) {
		_, err := b.store.Get(DefaultPrefix + "ping")
		if err != nil && !b.isMiss(err) {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	return err
}

// withContext runs fn on its own goroutine and returns when either fn finishes
// or ctx is done. An abandoned fn keeps running and its result is dropped.
func withContext[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn()
		done <- result{value: v, err: err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
