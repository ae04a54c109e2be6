// Package l1 provides a sharded, concurrent in-memory cache with TTL and
// eviction, used to hold decoded frames in front of the remote tiers.
package l1

import (
	"container/list"
	"hash/fnv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/AndrewDonelson/framewire/internal/clock"
)

const defaultShards = 64

// EvictionPolicy determines which entry is removed when a shard is full.
type EvictionPolicy int

const (
	LRU  EvictionPolicy = iota // Least Recently Used
	LFU                        // Least Frequently Used
	FIFO                       // First In, First Out
)

// Options configures an L1 Store.
type Options[V any] struct {
	TTL           time.Duration
	MaxEntries    int // across all shards; 0 = unbounded
	Shards        int
	Eviction      EvictionPolicy
	SweepInterval time.Duration
	Clock         clock.Clock
	OnEvict       func(key string, value V)
}

type entry[V any] struct {
	key       string
	value     V
	expiresAt time.Time
	freq      int
	elem      *list.Element
}

type shard[V any] struct {
	mu         sync.Mutex
	items      map[string]*entry[V]
	order      *list.List
	maxEntries int
	policy     EvictionPolicy
	onEvict    func(key string, value V)
}

// Store is the sharded in-memory cache.
type Store[V any] struct {
	shards    []*shard[V]
	opts      Options[V]
	clock     clock.Clock
	hits      atomic.Int64
	misses    atomic.Int64
	stopCh    chan struct{}
	closeOnce sync.Once
}

// New creates a new L1 Store and starts its expiry sweeper.
func New[V any](opts Options[V]) *Store[V] {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.SweepInterval == 0 {
		opts.SweepInterval = 30 * time.Second
	}
	if opts.Shards <= 0 {
		opts.Shards = defaultShards
	}
	perShard := 0
	if opts.MaxEntries > 0 {
		perShard = (opts.MaxEntries + opts.Shards - 1) / opts.Shards
	}
	s := &Store[V]{opts: opts, clock: opts.Clock, stopCh: make(chan struct{})}
	s.shards = make([]*shard[V], opts.Shards)
	for i := range s.shards {
		s.shards[i] = &shard[V]{
			items:      make(map[string]*entry[V]),
			order:      list.New(),
			maxEntries: perShard,
			policy:     opts.Eviction,
			onEvict:    opts.OnEvict,
		}
	}
	go s.sweepLoop()
	return s
}

func (s *Store[V]) shardFor(key string) *shard[V] {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return s.shards[h.Sum32()%uint32(len(s.shards))]
}

// Set stores value under key. A zero ttl uses the store default; a negative
// ttl never expires.
func (s *Store[V]) Set(key string, value V, ttl time.Duration) {
	if ttl == 0 {
		ttl = s.opts.TTL
	}
	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = s.clock.Now().Add(ttl)
	}

	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if e, ok := sh.items[key]; ok {
		e.value = value
		e.expiresAt = expiresAt
		e.freq++
		if sh.policy == LRU {
			sh.order.MoveToFront(e.elem)
		}
		return
	}
	if sh.maxEntries > 0 && len(sh.items) >= sh.maxEntries {
		sh.evict()
	}
	e := &entry[V]{key: key, value: value, expiresAt: expiresAt, freq: 1}
	e.elem = sh.order.PushFront(e)
	sh.items[key] = e
}

// Get retrieves a value by key.
func (s *Store[V]) Get(key string) (V, bool) {
	meta, ok := s.GetWithMeta(key)
	return meta.Value, ok
}

// EntryMeta holds a value and its cache metadata.
type EntryMeta[V any] struct {
	Value        V
	TTLRemaining time.Duration
	HitCount     int
}

// GetWithMeta retrieves a value and its metadata.
func (s *Store[V]) GetWithMeta(key string) (EntryMeta[V], bool) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.items[key]
	if !ok {
		s.misses.Add(1)
		return EntryMeta[V]{}, false
	}
	now := s.clock.Now()
	if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
		sh.remove(e)
		s.misses.Add(1)
		return EntryMeta[V]{}, false
	}
	e.freq++
	if sh.policy == LRU {
		sh.order.MoveToFront(e.elem)
	}
	var remaining time.Duration
	if !e.expiresAt.IsZero() {
		remaining = e.expiresAt.Sub(now)
	}
	s.hits.Add(1)
	return EntryMeta[V]{Value: e.value, TTLRemaining: remaining, HitCount: e.freq}, true
}

// Delete removes a key from the cache.
func (s *Store[V]) Delete(key string) {
	sh := s.shardFor(key)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.items[key]; ok {
		sh.remove(e)
	}
}

// Flush removes all entries without firing OnEvict.
func (s *Store[V]) Flush() {
	for _, sh := range s.shards {
		sh.mu.Lock()
		sh.items = make(map[string]*entry[V])
		sh.order.Init()
		sh.mu.Unlock()
	}
}

// FlushPrefix removes all entries whose key starts with prefix.
func (s *Store[V]) FlushPrefix(prefix string) {
	for _, sh := range s.shards {
		sh.mu.Lock()
		for k, e := range sh.items {
			if strings.HasPrefix(k, prefix) {
				sh.remove(e)
			}
		}
		sh.mu.Unlock()
	}
}

// Stats holds hit/miss/entry counts.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int64
}

// Stats returns current statistics.
func (s *Store[V]) Stats() Stats {
	var total int64
	for _, sh := range s.shards {
		sh.mu.Lock()
		total += int64(len(sh.items))
		sh.mu.Unlock()
	}
	return Stats{Hits: s.hits.Load(), Misses: s.misses.Load(), Entries: total}
}

// Close stops the sweeper. It is safe to call more than once.
func (s *Store[V]) Close() {
	s.closeOnce.Do(func() { close(s.stopCh) })
}

func (s *Store[V]) sweepLoop() {
	ticker := time.NewTicker(s.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stopCh:
			return
		}
	}
}

func (s *Store[V]) sweep() {
	now := s.clock.Now()
	for _, sh := range s.shards {
		sh.mu.Lock()
		for _, e := range sh.items {
			if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
				sh.remove(e)
			}
		}
		sh.mu.Unlock()
	}
}

// evict drops one entry according to the shard policy. LRU and FIFO both
// take the back of the list; they differ only in whether reads reorder it.
func (sh *shard[V]) evict() {
	switch sh.policy {
	case LRU, FIFO:
		if back := sh.order.Back(); back != nil {
			sh.remove(back.Value.(*entry[V]))
		}
	case LFU:
		var victim *entry[V]
		for el := sh.order.Back(); el != nil; el = el.Prev() {
			e := el.Value.(*entry[V])
			if victim == nil || e.freq < victim.freq {
				victim = e
			}
		}
		if victim != nil {
			sh.remove(victim)
		}
	}
}

func (sh *shard[V]) remove(e *entry[V]) {
	delete(sh.items, e.key)
	sh.order.Remove(e.elem)
	if sh.onEvict != nil {
		sh.onEvict(e.key, e.value)
	}
}
