package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"safety-training-audit/internal/roster"
)

var (
	// ErrCacheMiss is returned when the requested artifact is not cached.
	ErrCacheMiss = errors.New("cache: key not found")

	// ErrCacheConnection is returned when Redis cannot be reached.
	ErrCacheConnection = errors.New("cache: connection failed")
)

// CacheConfig locates Redis and namespaces the artifact keys.
type CacheConfig struct {
	URL    string
	Prefix string
	// TTL of zero keeps artifacts until overwritten.
	TTL time.Duration
}

// Cache publishes report artifacts to Redis so other tools can read the
// latest run without access to the output directory.
type Cache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCache parses the Redis URL and verifies the connection.
func NewCache(ctx context.Context, cfg CacheConfig) (*Cache, error) {
	if cfg.TTL < 0 {
		return nil, fmt.Errorf("cache: invalid TTL %s", cfg.TTL)
	}
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("cache: invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrCacheConnection, err)
	}

	return &Cache{client: client, prefix: cfg.Prefix, ttl: cfg.TTL}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// Publish stores every artifact under its own key and records the artifact
// names of this run in the "latest" set, replacing the previous run's set.
func (c *Cache) Publish(ctx context.Context, runID string, artifacts []roster.Artifact) error {
	names := make([]interface{}, 0, len(artifacts))
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, artifact := range artifacts {
			pipe.Set(ctx, artifactKey(c.prefix, artifact.Name), artifact.Data, c.ttl)
			names = append(names, artifact.Name)
		}

		latest := artifactKey(c.prefix, "latest")
		pipe.Del(ctx, latest)
		if len(names) > 0 {
			pipe.SAdd(ctx, latest, names...)
		}
		pipe.Set(ctx, artifactKey(c.prefix, "latest_run"), runID, c.ttl)
		if c.ttl > 0 {
			pipe.Expire(ctx, latest, c.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("cache: failed to publish artifacts: %w", err)
	}
	return nil
}

// Artifact returns the cached bytes of the named artifact.
func (c *Cache) Artifact(ctx context.Context, name string) ([]byte, error) {
	data, err := c.client.Get(ctx, artifactKey(c.prefix, name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache: failed to read %s: %w", name, err)
	}
	return data, nil
}

// LatestArtifacts returns the artifact names published by the most recent run.
func (c *Cache) LatestArtifacts(ctx context.Context) ([]string, error) {
	names, err := c.client.SMembers(ctx, artifactKey(c.prefix, "latest")).Result()
	if err != nil {
		return nil, fmt.Errorf("cache: failed to read latest artifacts: %w", err)
	}
	return names, nil
}

func artifactKey(prefix string, name string) string {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		return name
	}
	return prefix + ":" + name
}
