// Package cache stores generated SQL so repeated questions against the same
// schema skip the translation service.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/redis/go-redis/v9"
)

// ErrCacheMiss indicates a cache miss.
var ErrCacheMiss = errors.New("cache miss")

// Client is the subset of cache operations the translator needs.
type Client interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Close() error
}

// Key derives a stable key from the schema text and the question.
func Key(schema, question string) string {
	h := sha256.New()
	h.Write([]byte(schema))
	h.Write([]byte{0})
	h.Write([]byte(question))
	return "sql:" + hex.EncodeToString(h.Sum(nil))
}

// RedisClient implements Client using Redis.
type RedisClient struct {
	client *redis.Client
	prefix string
}

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedisClient connects to Redis and verifies the connection with PING.
func NewRedisClient(ctx context.Context, cfg RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "askdb:"
	}
	return &RedisClient{client: client, prefix: prefix}, nil
}

func (c *RedisClient) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, c.prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrCacheMiss
	}
	if err != nil {
		return "", fmt.Errorf("redis get: %w", err)
	}
	return val, nil
}

func (c *RedisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *RedisClient) Close() error {
	return c.client.Close()
}

// DefaultMemorySize caps the in-process cache when no size is given.
const DefaultMemorySize = 1024

// MemoryClient is an in-process Client used when no Redis address is
// configured and in tests. It holds at most size entries, evicting the least
// recently used, and drops every entry maxTTL after it was written.
type MemoryClient struct {
	lru *expirable.LRU[string, memoryEntry]
	now func() time.Time
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// NewMemoryClient returns a cache holding at most size entries for at most
// maxTTL each. size <= 0 selects DefaultMemorySize; maxTTL <= 0 disables
// the upper bound.
func NewMemoryClient(size int, maxTTL time.Duration) *MemoryClient {
	if size <= 0 {
		size = DefaultMemorySize
	}
	return &MemoryClient{
		lru: expirable.NewLRU[string, memoryEntry](size, nil, maxTTL),
		now: time.Now,
	}
}

func (c *MemoryClient) Get(_ context.Context, key string) (string, error) {
	e, ok := c.lru.Get(key)
	if !ok {
		return "", ErrCacheMiss
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.lru.Remove(key)
		return "", ErrCacheMiss
	}
	return e.value, nil
}

// Set stores value. A positive ttl shorter than the client's maxTTL expires
// the entry earlier; ttl <= 0 leaves only maxTTL.
func (c *MemoryClient) Set(_ context.Context, key, value string, ttl time.Duration) error {
	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.lru.Add(key, e)
	return nil
}

// Len returns the number of entries held, including expired ones not yet
// swept.
func (c *MemoryClient) Len() int { return c.lru.Len() }

func (c *MemoryClient) Close() error {
	c.lru.Purge()
	return nil
}
