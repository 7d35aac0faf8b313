// Package cache stores calculation results keyed by a hash of their inputs.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "airline_metrics"

// Cache is implemented by Redis and Memory. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Key derives a stable key from a calculation kind and its JSON encoded input.
func Key(kind string, input any) (string, error) {
	data, err := json.Marshal(input)
	if err != nil {
		return "", fmt.Errorf("failed to encode cache key input: %w", err)
	}
	sum := sha256.Sum256(data)
	return keyPrefix + ":" + kind + ":" + hex.EncodeToString(sum[:]), nil
}

type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis connects to addr. A ttl of zero keeps entries until evicted.
func NewRedis(addr, password string, db int, ttl time.Duration) *Redis {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &Redis{client: rdb, ttl: ttl}
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) error {
	if err := r.client.Set(ctx, key, value, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// DefaultMaxEntries caps a Memory cache when no limit is given.
const DefaultMaxEntries = 10000

type entry struct {
	value   []byte
	expires time.Time
	seq     uint64
}

// Memory is an in-process cache for single instance deployments and tests.
// It holds at most maxEntries values and evicts the oldest when full.
type Memory struct {
	mu         sync.Mutex
	data       map[string]entry
	ttl        time.Duration
	maxEntries int
	seq        uint64
	now        func() time.Time
}

// NewMemory returns a cache whose entries live for ttl (zero means no
// expiry). maxEntries <= 0 selects DefaultMaxEntries.
func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Memory{
		data:       make(map[string]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.data, key)
		return nil, false, nil
	}
	return e.value, true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	e := entry{value: append([]byte(nil), value...)}
	if m.ttl > 0 {
		e.expires = m.now().Add(m.ttl)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.data[key]; !exists && len(m.data) >= m.maxEntries {
		m.removeExpired()
		if len(m.data) >= m.maxEntries {
			m.evictOldest()
		}
	}
	m.seq++
	e.seq = m.seq
	m.data[key] = e
	return nil
}

// Cleanup drops expired entries.
func (m *Memory) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeExpired()
}

// StartCleanup runs Cleanup every interval until ctx is done.
func (m *Memory) StartCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Cleanup()
			}
		}
	}()
}

func (m *Memory) removeExpired() {
	now := m.now()
	for key, e := range m.data {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(m.data, key)
		}
	}
}

func (m *Memory) evictOldest() {
	var (
		oldestKey string
		oldestSeq uint64
		found     bool
	)
	for key, e := range m.data {
		if !found || e.seq < oldestSeq {
			oldestKey, oldestSeq, found = key, e.seq, true
		}
	}
	if found {
		delete(m.data, oldestKey)
	}
}

// Len reports stored entries, including expired ones not yet swept.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}
