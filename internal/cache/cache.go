// Package cache provides a Redis-backed MetadataSource decorator. Type
// structures are stored as JSON under one key per name and fetch mode; misses
// are fetched from the wrapped source in one batch, and concurrent identical
// batches are collapsed with singleflight.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/HumanBrainProject/kg-editor-sub000/internal/domain"
	"github.com/HumanBrainProject/kg-editor-sub000/internal/metrics"
)

// DefaultPrefix namespaces every key written by the cache.
const DefaultPrefix = "kgeditor:types:"

// flightTimeout bounds one collapsed upstream fetch.
const flightTimeout = time.Minute

// Dial connects to Redis and checks the connection.
func Dial(ctx context.Context, addr string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", addr, err)
	}
	return client, nil
}

// MetadataCache caches the type structures of a MetadataSource in Redis.
// Per-name errors are passed through and never cached. Redis failures degrade
// to uncached fetches.
type MetadataCache struct {
	next    domain.MetadataSource
	client  *redis.Client
	ttl     time.Duration
	prefix  string
	metrics *metrics.Metrics

	group singleflight.Group
}

var _ domain.MetadataSource = (*MetadataCache)(nil)

// New wraps next with a cache whose entries live for ttl. m may be nil.
func New(next domain.MetadataSource, client *redis.Client, ttl time.Duration, m *metrics.Metrics) *MetadataCache {
	return &MetadataCache{
		next:    next,
		client:  client,
		ttl:     ttl,
		prefix:  DefaultPrefix,
		metrics: m,
	}
}

// GetTypesByName implements domain.MetadataSource.
func (c *MetadataCache) GetTypesByName(ctx context.Context, names []string, withProperties bool) (map[string]domain.TypeResult, error) {
	out := make(map[string]domain.TypeResult, len(names))
	if len(names) == 0 {
		return out, nil
	}

	names = unique(names)
	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = c.key(n, withProperties)
	}

	var misses []string
	vals, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		slog.Warn("type cache lookup failed", "error", err)
		misses = names
	} else {
		for i, v := range vals {
			s, ok := v.(string)
			if !ok {
				misses = append(misses, names[i])
				continue
			}
			t, err := decode([]byte(s))
			if err != nil {
				slog.Warn("discarding undecodable type cache entry", "type", names[i], "error", err)
				misses = append(misses, names[i])
				continue
			}
			out[names[i]] = domain.TypeResult{Type: t}
		}
	}
	c.metrics.CacheLookup(len(names)-len(misses), len(misses))

	if len(misses) == 0 {
		return out, nil
	}

	fetched, err := c.fetch(ctx, misses, withProperties)
	if err != nil {
		return nil, err
	}
	for name, f := range fetched {
		if f.err != nil {
			out[name] = domain.TypeResult{Err: f.err}
			continue
		}
		t, err := decode(f.data)
		if err != nil {
			return nil, fmt.Errorf("decode type %s: %w", name, err)
		}
		out[name] = domain.TypeResult{Type: t}
	}
	return out, nil
}

// Clear removes every cached type structure.
func (c *MetadataCache) Clear(ctx context.Context) error {
	iter := c.client.Scan(ctx, 0, c.prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// fetched is one upstream result in encoded form, so that callers sharing a
// singleflight result each decode their own copy.
type fetched struct {
	data []byte
	err  error
}

func (c *MetadataCache) fetch(ctx context.Context, names []string, withProperties bool) (map[string]fetched, error) {
	flight := strings.Join(names, "\n")
	if withProperties {
		flight = "full\n" + flight
	}

	ch := c.group.DoChan(flight, func() (any, error) {
		// Shared by every caller of the flight, so no single caller may cancel it.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flightTimeout)
		defer cancel()

		res, err := c.next.GetTypesByName(ctx, names, withProperties)
		if err != nil {
			return nil, err
		}

		out := make(map[string]fetched, len(res))
		pipe := c.client.Pipeline()
		for name, r := range res {
			if r.Err != nil {
				out[name] = fetched{err: r.Err}
				continue
			}
			b, err := json.Marshal(r.Type)
			if err != nil {
				return nil, fmt.Errorf("encode type %s: %w", name, err)
			}
			out[name] = fetched{data: b}
			pipe.Set(ctx, c.key(name, withProperties), b, c.ttl)
		}
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			slog.Warn("type cache write failed", "types", len(out), "error", err)
		}
		return out, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(map[string]fetched), nil
	}
}

func (c *MetadataCache) key(name string, withProperties bool) string {
	if withProperties {
		return c.prefix + "full:" + name
	}
	return c.prefix + "light:" + name
}

func decode(b []byte) (*domain.TypeStructure, error) {
	var t domain.TypeStructure
	if err := json.Unmarshal(b, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func unique(names []string) []string {
	out := slices.Clone(names)
	slices.Sort(out)
	return slices.Compact(out)
}
