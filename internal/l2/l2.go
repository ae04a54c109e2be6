// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// l2.go — Redis-backed L2 tier holding encoded frame payloads: each entry is
// a hash carrying the codec name next to the payload bytes so a reader can
// pick the right decoder, plus pipeline batch reads, SCAN-based prefix
// invalidation and pub/sub for cross-process L1 invalidation.

// Package l2 provides the Redis tier adapter.
package l2

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned by Get when the key does not exist in Redis.
// Callers use errors.Is(err, l2.ErrMiss) to distinguish a cache miss from a
// genuine Redis error.
var ErrMiss = errors.New("l2: miss")

const (
	fieldCodec   = "codec"
	fieldPayload = "payload"
)

// Entry is one stored payload.
type Entry struct {
	Codec   string
	Payload []byte
}

// Store is the L2 Redis adapter.
type Store struct {
	client    redis.UniversalClient
	keyPrefix string
	hits      atomic.Int64
	misses    atomic.Int64
}

// Options configures a new L2 Store.
type Options struct {
	Client    redis.UniversalClient
	KeyPrefix string
}

// New creates a new L2 Store.
func New(opts Options) *Store {
	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = "framewire"
	}
	return &Store{client: opts.Client, keyPrefix: prefix}
}

// key returns the Redis key for a frame key.
func (s *Store) key(id string) string {
	return s.keyPrefix + ":frame:" + id
}

// Set stores an entry with the given TTL; ttl <= 0 persists indefinitely.
func (s *Store) Set(ctx context.Context, id string, e Entry, ttl time.Duration) error {
	k := s.key(id)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, k)
	pipe.HSet(ctx, k, fieldCodec, e.Codec, fieldPayload, e.Payload)
	if ttl > 0 {
		pipe.PExpire(ctx, k, ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("l2 set %s: %w", k, err)
	}
	return nil
}

// Get retrieves an entry. Returns ErrMiss when the key is missing.
func (s *Store) Get(ctx context.Context, id string) (Entry, error) {
	k := s.key(id)
	vals, err := s.client.HMGet(ctx, k, fieldCodec, fieldPayload).Result()
	if err != nil {
		return Entry{}, fmt.Errorf("l2 get %s: %w", k, err)
	}
	e, ok, err := entryFrom(vals)
	if err != nil {
		return Entry{}, fmt.Errorf("l2 get %s: %w", k, err)
	}
	if !ok {
		s.misses.Add(1)
		return Entry{}, ErrMiss
	}
	s.hits.Add(1)
	return e, nil
}

func entryFrom(vals []any) (Entry, bool, error) {
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return Entry{}, false, nil
	}
	codec, ok1 := vals[0].(string)
	payload, ok2 := vals[1].(string)
	if !ok1 || !ok2 {
		return Entry{}, false, fmt.Errorf("unexpected hash field types %T, %T", vals[0], vals[1])
	}
	return Entry{Codec: codec, Payload: []byte(payload)}, true, nil
}

// GetMany retrieves several entries in one round-trip. Missing keys are
// absent from the result.
func (s *Store) GetMany(ctx context.Context, ids []string) (map[string]Entry, error) {
	pipe := s.client.Pipeline()
	cmds := make([]*redis.SliceCmd, len(ids))
	for i, id := range ids {
		cmds[i] = pipe.HMGet(ctx, s.key(id), fieldCodec, fieldPayload)
	}
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("l2 get-many: %w", err)
	}
	out := make(map[string]Entry, len(ids))
	for i, cmd := range cmds {
		e, ok, err := entryFrom(cmd.Val())
		if err != nil {
			return nil, fmt.Errorf("l2 get-many id=%s: %w", ids[i], err)
		}
		if ok {
			out[ids[i]] = e
		}
	}
	return out, nil
}

// Exists checks whether a key exists in Redis.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	k := s.key(id)
	n, err := s.client.Exists(ctx, k).Result()
	if err != nil {
		return false, fmt.Errorf("l2 exists %s: %w", k, err)
	}
	return n > 0, nil
}

// Delete removes a key from Redis.
func (s *Store) Delete(ctx context.Context, id string) error {
	k := s.key(id)
	if err := s.client.Del(ctx, k).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("l2 delete %s: %w", k, err)
	}
	return nil
}

// InvalidatePrefix removes every frame whose key starts with prefix, using
// SCAN+DEL so Redis is never blocked.
func (s *Store) InvalidatePrefix(ctx context.Context, prefix string) error {
	pattern := s.key(prefix) + "*"
	var cursor uint64
	for {
		keys, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("l2 scan: %w", err)
		}
		if len(keys) > 0 {
			if err := s.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("l2 delete batch: %w", err)
			}
		}
		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}

// Publish sends an invalidation message to the given channel.
func (s *Store) Publish(ctx context.Context, channel string, payload []byte) error {
	return s.client.Publish(ctx, channel, payload).Err()
}

// Subscribe returns a pub/sub subscription on the given channel.
func (s *Store) Subscribe(ctx context.Context, channel string) *redis.PubSub {
	return s.client.Subscribe(ctx, channel)
}

// Ping checks that Redis is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

// Stats holds hit and miss counts.
type Stats struct {
	Hits   int64
	Misses int64
}

// Stats returns current statistics.
func (s *Store) Stats() Stats {
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load()}
}
