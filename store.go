package framewire

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/AndrewDonelson/framewire/internal/clock"
	"github.com/AndrewDonelson/framewire/internal/l1"
	"github.com/AndrewDonelson/framewire/internal/l2"
	"github.com/AndrewDonelson/framewire/internal/l3"
	"github.com/AndrewDonelson/framewire/internal/metrics"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// ────────────────────────────────────────────────────────────────────────────
// Config
// ────────────────────────────────────────────────────────────────────────────

// EvictionPolicy selects which decoded frame L1 drops when it is full.
type EvictionPolicy int

const (
	EvictLRU  EvictionPolicy = iota // Least Recently Used
	EvictLFU                        // Least Frequently Used
	EvictFIFO                       // First In, First Out
)

// L1PoolConfig configures the in-memory L1 tier.
type L1PoolConfig struct {
	MaxEntries int
	Eviction   EvictionPolicy
}

// L2PoolConfig configures the Redis L2 tier client.
type L2PoolConfig struct {
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// L3PoolConfig configures the PostgreSQL L3 connection pool.
type L3PoolConfig struct {
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// StoreConfig contains all Store configuration. A tier whose address is
// empty is disabled; a Store with no remote tier is a plain in-memory cache.
type StoreConfig struct {
	// DSNs
	PostgresDSN        string
	PostgresReplicaDSN string // optional; reads go here when set
	RedisAddr          string
	RedisPassword      string
	RedisDB            int

	// Pool sizes
	L1Pool L1PoolConfig
	L2Pool L2PoolConfig
	L3Pool L3PoolConfig

	// TTLs
	DefaultL1TTL time.Duration
	DefaultL2TTL time.Duration

	// Naming
	KeyPrefix           string // Redis key prefix
	Table               string // PostgreSQL table
	InvalidationChannel string

	// Encoding
	Codec        Codec
	TextFallback bool

	// Optional overrideable components
	Clock   clock.Clock
	Metrics MetricsRecorder
	Logger  Logger
}

func (c *StoreConfig) defaults() {
	if c.Clock == nil {
		c.Clock = clock.Real{}
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Noop{}
	}
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
	if c.DefaultL1TTL == 0 {
		c.DefaultL1TTL = 5 * time.Minute
	}
	if c.DefaultL2TTL == 0 {
		c.DefaultL2TTL = 30 * time.Minute
	}
	if c.L1Pool.MaxEntries == 0 {
		c.L1Pool.MaxEntries = 10_000
	}
	if c.L3Pool.MaxConns == 0 {
		c.L3Pool.MaxConns = 20
	}
	if c.L3Pool.MinConns == 0 {
		c.L3Pool.MinConns = 2
	}
	if c.L3Pool.MaxConnLifetime == 0 {
		c.L3Pool.MaxConnLifetime = 30 * time.Minute
	}
	if c.L3Pool.MaxConnIdleTime == 0 {
		c.L3Pool.MaxConnIdleTime = 10 * time.Minute
	}
	if c.InvalidationChannel == "" {
		c.InvalidationChannel = defaultInvalidationChannel
	}
}

func (c *StoreConfig) validate() error {
	if c.L1Pool.MaxEntries < 0 {
		return fmt.Errorf("%w: L1Pool.MaxEntries must not be negative", ErrInvalidConfig)
	}
	if c.L1Pool.Eviction < EvictLRU || c.L1Pool.Eviction > EvictFIFO {
		return fmt.Errorf("%w: unknown eviction policy %d", ErrInvalidConfig, c.L1Pool.Eviction)
	}
	if c.L3Pool.MinConns > c.L3Pool.MaxConns {
		return fmt.Errorf("%w: L3Pool.MinConns %d exceeds MaxConns %d", ErrInvalidConfig, c.L3Pool.MinConns, c.L3Pool.MaxConns)
	}
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// Stats
// ────────────────────────────────────────────────────────────────────────────

type storeStats struct {
	Gets          atomic.Int64
	Puts          atomic.Int64
	Deletes       atomic.Int64
	Errors        atomic.Int64
	Invalidations atomic.Int64
}

// Stats is the snapshot returned by Store.Stats().
type Stats struct {
	Gets          int64
	Puts          int64
	Deletes       int64
	Errors        int64
	Invalidations int64 // remote invalidations applied to L1
	L1Entries     int64
	L1Hits        int64
	L1Misses      int64
	L2Hits        int64
	L2Misses      int64
}

// FrameInfo describes a persisted frame without decoding it.
type FrameInfo struct {
	Key       string
	Codec     string
	Rows      int
	Cols      int
	Size      int
	UpdatedAt time.Time
}

// ────────────────────────────────────────────────────────────────────────────
// Store
// ────────────────────────────────────────────────────────────────────────────

// Store keeps encoded frames in PostgreSQL (L3), their bytes in Redis (L2)
// and decoded frames in memory (L1). Reads go L1 → L2 → L3 and back-fill the
// tiers they missed; writes go L3 → L2 → L1.
type Store struct {
	cfg     StoreConfig
	ser     *Serializer
	l1      *l1.Store[*Frame]
	l2      *l2.Store
	l3      *l3.Store
	sync    *syncEngine
	stats   storeStats
	metrics MetricsRecorder
	logger  Logger
	closed  atomic.Bool
}

// NewStore creates and initialises a Store from the provided StoreConfig.
func NewStore(cfg StoreConfig) (*Store, error) {
	cfg.defaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	s := &Store{
		cfg: cfg,
		ser: NewSerializer(SerializerConfig{
			Codec:        cfg.Codec,
			TextFallback: cfg.TextFallback,
			Clock:        cfg.Clock,
			Metrics:      cfg.Metrics,
			Logger:       cfg.Logger,
		}),
		metrics: cfg.Metrics,
		logger:  cfg.Logger,
	}

	// L1
	s.l1 = l1.New(l1.Options[*Frame]{
		MaxEntries: cfg.L1Pool.MaxEntries,
		Eviction:   l1.EvictionPolicy(cfg.L1Pool.Eviction),
		TTL:        cfg.DefaultL1TTL,
		Clock:      cfg.Clock,
	})

	// L2
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:         cfg.RedisAddr,
			Password:     cfg.RedisPassword,
			DB:           cfg.RedisDB,
			PoolSize:     cfg.L2Pool.PoolSize,
			DialTimeout:  cfg.L2Pool.DialTimeout,
			ReadTimeout:  cfg.L2Pool.ReadTimeout,
			WriteTimeout: cfg.L2Pool.WriteTimeout,
		})
		s.l2 = l2.New(l2.Options{Client: redisClient, KeyPrefix: cfg.KeyPrefix})
	}

	// L3
	if cfg.PostgresDSN != "" {
		pool, err := newPGPool(cfg.PostgresDSN, cfg.L3Pool)
		if err != nil {
			s.l1.Close()
			return nil, err
		}
		var replica *pgxpool.Pool
		if cfg.PostgresReplicaDSN != "" {
			replica, err = newPGPool(cfg.PostgresReplicaDSN, cfg.L3Pool)
			if err != nil {
				pool.Close()
				s.l1.Close()
				return nil, err
			}
		}
		s.l3 = l3.New(pool, replica, cfg.Table)
	}

	// Sync engine
	s.sync = newSyncEngine(s)
	s.sync.start()

	return s, nil
}

func newPGPool(dsn string, pc L3PoolConfig) (*pgxpool.Pool, error) {
	pgCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres config: %v", ErrInvalidConfig, err)
	}
	pgCfg.MaxConns = pc.MaxConns
	pgCfg.MinConns = pc.MinConns
	pgCfg.MaxConnLifetime = pc.MaxConnLifetime
	pgCfg.MaxConnIdleTime = pc.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(context.Background(), pgCfg)
	if err != nil {
		return nil, fmt.Errorf("%w: postgres pool: %v", ErrL3Unavailable, err)
	}
	return pool, nil
}

// Serializer returns the Serializer the Store encodes with.
func (s *Store) Serializer() *Serializer { return s.ser }

// ────────────────────────────────────────────────────────────────────────────
// CRUD
// ────────────────────────────────────────────────────────────────────────────

// Put encodes f and stores it under key in every enabled tier.
func (s *Store) Put(ctx context.Context, key string, f *Frame) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	if err := validateKey(key); err != nil {
		return err
	}
	s.stats.Puts.Add(1)
	start := s.cfg.Clock.Now()
	err := s.routerPut(ctx, key, f)
	s.metrics.RecordLatency("put", clock.Since(s.cfg.Clock, start))
	if err != nil {
		s.stats.Errors.Add(1)
		s.metrics.RecordError("put")
	}
	return err
}

// PutMany stores several frames. With L3 enabled the rows are written in one
// transaction before any cache tier is touched.
func (s *Store) PutMany(ctx context.Context, frames map[string]*Frame) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	for key := range frames {
		if err := validateKey(key); err != nil {
			return err
		}
	}
	s.stats.Puts.Add(int64(len(frames)))
	err := s.routerPutMany(ctx, frames)
	if err != nil {
		s.stats.Errors.Add(1)
		s.metrics.RecordError("put")
	}
	return err
}

// Get returns the frame stored under key. The result is a private copy.
func (s *Store) Get(ctx context.Context, key string) (*Frame, error) {
	if s.closed.Load() {
		return nil, ErrUnavailable
	}
	if err := validateKey(key); err != nil {
		return nil, err
	}
	s.stats.Gets.Add(1)
	start := s.cfg.Clock.Now()
	f, err := s.routerGet(ctx, key)
	s.metrics.RecordLatency("get", clock.Since(s.cfg.Clock, start))
	if err != nil && !errors.Is(err, ErrNotFound) {
		s.stats.Errors.Add(1)
		s.metrics.RecordError("get")
	}
	return f, err
}

// GetMany returns the frames stored under keys. Keys found in no tier are
// absent from the result. L2 is read in one round trip.
func (s *Store) GetMany(ctx context.Context, keys []string) (map[string]*Frame, error) {
	if s.closed.Load() {
		return nil, ErrUnavailable
	}
	for _, key := range keys {
		if err := validateKey(key); err != nil {
			return nil, err
		}
	}
	s.stats.Gets.Add(int64(len(keys)))
	start := s.cfg.Clock.Now()
	out, err := s.routerGetMany(ctx, keys)
	s.metrics.RecordLatency("get", clock.Since(s.cfg.Clock, start))
	if err != nil {
		s.stats.Errors.Add(1)
		s.metrics.RecordError("get")
	}
	return out, err
}

// Delete removes key from all tiers. Deleting a missing key is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	if err := validateKey(key); err != nil {
		return err
	}
	s.stats.Deletes.Add(1)
	return s.routerDelete(ctx, key)
}

// Exists reports whether key is stored in any tier.
func (s *Store) Exists(ctx context.Context, key string) (bool, error) {
	if s.closed.Load() {
		return false, ErrUnavailable
	}
	if err := validateKey(key); err != nil {
		return false, err
	}
	if _, ok := s.l1.Get(key); ok {
		return true, nil
	}
	if s.l2 != nil {
		ok, err := s.l2.Exists(ctx, key)
		if err != nil {
			s.logger.Warn("framewire: l2 exists failed", "key", key, "err", err)
		} else if ok {
			return true, nil
		}
	}
	if s.l3 != nil {
		ok, err := s.l3.Exists(ctx, key)
		if err != nil {
			return false, fmt.Errorf("%w: %v", ErrL3Unavailable, err)
		}
		return ok, nil
	}
	return false, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Listing
// ────────────────────────────────────────────────────────────────────────────

// List describes up to limit persisted frames whose key starts with prefix,
// ordered by key. limit <= 0 lists all of them. Requires L3.
func (s *Store) List(ctx context.Context, prefix string, limit int) ([]FrameInfo, error) {
	if s.closed.Load() {
		return nil, ErrUnavailable
	}
	if s.l3 == nil {
		return nil, ErrL3Unavailable
	}
	sums, err := s.l3.List(ctx, prefix, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrL3Unavailable, err)
	}
	out := make([]FrameInfo, len(sums))
	for i, sm := range sums {
		out[i] = FrameInfo(sm)
	}
	return out, nil
}

// Count returns the number of persisted frames whose key starts with prefix.
func (s *Store) Count(ctx context.Context, prefix string) (int64, error) {
	if s.closed.Load() {
		return 0, ErrUnavailable
	}
	if s.l3 == nil {
		return 0, ErrL3Unavailable
	}
	n, err := s.l3.Count(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrL3Unavailable, err)
	}
	return n, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Cache invalidation
// ────────────────────────────────────────────────────────────────────────────

// Invalidate drops key from the cache tiers, here and on every other process
// sharing the Redis instance. L3 is untouched.
func (s *Store) Invalidate(ctx context.Context, key string) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	if err := validateKey(key); err != nil {
		return err
	}
	s.l1.Delete(key)
	if s.l2 != nil {
		if err := s.l2.Delete(ctx, key); err != nil {
			s.logger.Warn("framewire: l2 invalidate failed", "key", key, "err", err)
		}
	}
	s.sync.publishInvalidation(ctx, key, opDelete)
	return nil
}

// InvalidatePrefix drops every cached frame whose key starts with prefix.
func (s *Store) InvalidatePrefix(ctx context.Context, prefix string) error {
	if s.closed.Load() {
		return ErrUnavailable
	}
	if strings.ContainsAny(prefix, keyGlobChars) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, prefix)
	}
	s.l1.FlushPrefix(prefix)
	if s.l2 != nil {
		if err := s.l2.InvalidatePrefix(ctx, prefix); err != nil {
			return fmt.Errorf("%w: %v", ErrL2Unavailable, err)
		}
	}
	s.sync.publishInvalidation(ctx, prefix, opInvalidatePrefix)
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// WarmCache
// ────────────────────────────────────────────────────────────────────────────

// WarmCache loads up to limit persisted frames whose key starts with prefix
// into L2 and L1. If limit <= 0, all of them are loaded.
func (s *Store) WarmCache(ctx context.Context, prefix string, limit int) (int, error) {
	if s.closed.Load() {
		return 0, ErrUnavailable
	}
	if s.l3 == nil {
		return 0, ErrL3Unavailable
	}
	sums, err := s.l3.List(ctx, prefix, limit)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrL3Unavailable, err)
	}
	warmed := 0
	for _, sm := range sums {
		if _, err := s.readFromL3(ctx, sm.Key); err != nil {
			s.logger.Warn("framewire: warm cache skipped frame", "key", sm.Key, "err", err)
			continue
		}
		warmed++
	}
	return warmed, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Stats / Close
// ────────────────────────────────────────────────────────────────────────────

// Stats returns a snapshot of operational metrics.
func (s *Store) Stats() Stats {
	l1s := s.l1.Stats()
	st := Stats{
		Gets:          s.stats.Gets.Load(),
		Puts:          s.stats.Puts.Load(),
		Deletes:       s.stats.Deletes.Load(),
		Errors:        s.stats.Errors.Load(),
		Invalidations: s.stats.Invalidations.Load(),
		L1Entries:     l1s.Entries,
		L1Hits:        l1s.Hits,
		L1Misses:      l1s.Misses,
	}
	if s.l2 != nil {
		l2s := s.l2.Stats()
		st.L2Hits, st.L2Misses = l2s.Hits, l2s.Misses
	}
	return st
}

// Ping checks every enabled remote tier.
func (s *Store) Ping(ctx context.Context) error {
	if s.l2 != nil {
		if err := s.l2.Ping(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrL2Unavailable, err)
		}
	}
	if s.l3 != nil {
		if err := s.l3.Ping(ctx); err != nil {
			return fmt.Errorf("%w: %v", ErrL3Unavailable, err)
		}
	}
	return nil
}

// Close gracefully shuts down the Store. Subsequent calls are no-ops.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.sync.stop()
	s.l1.Close()
	var err error
	if s.l2 != nil {
		err = s.l2.Close()
	}
	if s.l3 != nil {
		s.l3.Close()
	}
	return err
}

// ────────────────────────────────────────────────────────────────────────────
// Keys
// ────────────────────────────────────────────────────────────────────────────

const (
	maxKeyLen    = 512
	keyGlobChars = "*?[]\\"
)

// validateKey rejects keys that would be ambiguous in a Redis SCAN pattern
// or unreadable in logs.
func validateKey(key string) error {
	if key == "" || len(key) > maxKeyLen || !utf8.ValidString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	if strings.ContainsAny(key, keyGlobChars) {
		return fmt.Errorf("%w: %q contains a glob character", ErrInvalidKey, key)
	}
	if strings.IndexFunc(key, unicode.IsControl) >= 0 {
		return fmt.Errorf("%w: %q contains a control character", ErrInvalidKey, key)
	}
	return nil
}
