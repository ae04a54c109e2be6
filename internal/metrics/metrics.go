// Package metrics provides the MetricsRecorder interface, a noop
// implementation and an in-memory counter.
package metrics

import (
	"sync"
	"time"
)

// MetricsRecorder is the interface for recording operational metrics.
type MetricsRecorder interface {
	RecordHit(tier string)
	RecordMiss(tier string)
	RecordLatency(op string, d time.Duration)
	RecordError(op string)
	RecordPayloadSize(codec string, bytes int)
}

// Noop is a MetricsRecorder that discards all data.
type Noop struct{}

func (Noop) RecordHit(tier string)                     {}
func (Noop) RecordMiss(tier string)                    {}
func (Noop) RecordLatency(op string, d time.Duration)  {}
func (Noop) RecordError(op string)                     {}
func (Noop) RecordPayloadSize(codec string, bytes int) {}

// Counter keeps running totals in memory. Safe for concurrent use.
type Counter struct {
	mu      sync.Mutex
	hits    map[string]int64
	misses  map[string]int64
	errors  map[string]int64
	calls   map[string]int64
	elapsed map[string]time.Duration
	bytes   map[string]int64
}

// NewCounter returns an empty Counter.
func NewCounter() *Counter {
	return &Counter{
		hits:    make(map[string]int64),
		misses:  make(map[string]int64),
		errors:  make(map[string]int64),
		calls:   make(map[string]int64),
		elapsed: make(map[string]time.Duration),
		bytes:   make(map[string]int64),
	}
}

func (c *Counter) RecordHit(tier string) {
	c.mu.Lock()
	c.hits[tier]++
	c.mu.Unlock()
}

func (c *Counter) RecordMiss(tier string) {
	c.mu.Lock()
	c.misses[tier]++
	c.mu.Unlock()
}

func (c *Counter) RecordLatency(op string, d time.Duration) {
	c.mu.Lock()
	c.calls[op]++
	c.elapsed[op] += d
	c.mu.Unlock()
}

func (c *Counter) RecordError(op string) {
	c.mu.Lock()
	c.errors[op]++
	c.mu.Unlock()
}

func (c *Counter) RecordPayloadSize(codec string, bytes int) {
	c.mu.Lock()
	c.bytes[codec] += int64(bytes)
	c.mu.Unlock()
}

// Snapshot is a point-in-time copy of a Counter.
type Snapshot struct {
	Hits    map[string]int64
	Misses  map[string]int64
	Errors  map[string]int64
	Calls   map[string]int64
	Elapsed map[string]time.Duration
	Bytes   map[string]int64
}

// Snapshot copies the current totals.
func (c *Counter) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Snapshot{
		Hits:    copyMap(c.hits),
		Misses:  copyMap(c.misses),
		Errors:  copyMap(c.errors),
		Calls:   copyMap(c.calls),
		Elapsed: copyMap(c.elapsed),
		Bytes:   copyMap(c.bytes),
	}
}

func copyMap[V any](m map[string]V) map[string]V {
	out := make(map[string]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
