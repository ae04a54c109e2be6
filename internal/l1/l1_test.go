package l1_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/AndrewDonelson/framewire/internal/clock"
	"github.com/AndrewDonelson/framewire/internal/l1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, clk clock.Clock) *l1.Store[string] {
	t.Helper()
	s := l1.New(l1.Options[string]{
		MaxEntries: 100,
		TTL:        5 * time.Minute,
		Clock:      clk,
	})
	t.Cleanup(s.Close)
	return s
}

// singleShard makes eviction order observable.
func singleShard(t *testing.T, policy l1.EvictionPolicy, max int, evicted *[]string) *l1.Store[int] {
	t.Helper()
	s := l1.New(l1.Options[int]{
		MaxEntries: max,
		Shards:     1,
		TTL:        time.Hour,
		Eviction:   policy,
		OnEvict: func(key string, _ int) {
			*evicted = append(*evicted, key)
		},
	})
	t.Cleanup(s.Close)
	return s
}

func TestL1_SetGet(t *testing.T) {
	s := newStore(t, clock.NewMock(time.Time{}))
	s.Set("frames:a", "payload", 0)
	v, ok := s.Get("frames:a")
	require.True(t, ok)
	assert.Equal(t, "payload", v)
}

func TestL1_Miss(t *testing.T) {
	s := newStore(t, clock.Real{})
	v, ok := s.Get("missing")
	assert.False(t, ok)
	assert.Empty(t, v)
}

func TestL1_Overwrite(t *testing.T) {
	s := newStore(t, clock.Real{})
	s.Set("k", "one", 0)
	s.Set("k", "two", 0)
	v, ok := s.Get("k")
	require.True(t, ok)
	assert.Equal(t, "two", v)
	assert.Equal(t, int64(1), s.Stats().Entries)
}

func TestL1_Delete(t *testing.T) {
	s := newStore(t, clock.Real{})
	s.Set("k", "v", 0)
	s.Delete("k")
	_, ok := s.Get("k")
	assert.False(t, ok)
}

func TestL1_TTLExpiry(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	s := newStore(t, clk)
	s.Set("k", "v", time.Second)
	clk.Advance(2 * time.Second)
	_, ok := s.Get("k")
	assert.False(t, ok, "entry should be expired")
}

func TestL1_NegativeTTLNeverExpires(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	s := newStore(t, clk)
	s.Set("k", "v", -1)
	clk.Advance(24 * time.Hour)
	_, ok := s.Get("k")
	assert.True(t, ok)
}

func TestL1_GetWithMeta(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	s := newStore(t, clk)
	s.Set("k", "v", time.Hour)
	clk.Advance(10 * time.Minute)

	meta, ok := s.GetWithMeta("k")
	require.True(t, ok)
	assert.Equal(t, "v", meta.Value)
	assert.Equal(t, 50*time.Minute, meta.TTLRemaining)
	assert.Equal(t, 2, meta.HitCount)
}

func TestL1_Flush(t *testing.T) {
	s := newStore(t, clock.Real{})
	for i := 0; i < 5; i++ {
		s.Set(fmt.Sprintf("k%d", i), "v", 0)
	}
	s.Flush()
	assert.Equal(t, int64(0), s.Stats().Entries)
}

func TestL1_FlushPrefix(t *testing.T) {
	s := newStore(t, clock.Real{})
	s.Set("runs:1", "a", 0)
	s.Set("runs:2", "b", 0)
	s.Set("evals:1", "c", 0)
	s.FlushPrefix("runs:")
	_, ok1 := s.Get("runs:1")
	_, ok2 := s.Get("runs:2")
	_, ok3 := s.Get("evals:1")
	assert.False(t, ok1)
	assert.False(t, ok2)
	assert.True(t, ok3)
}

func TestL1_LRUEviction(t *testing.T) {
	var evicted []string
	s := singleShard(t, l1.LRU, 2, &evicted)
	s.Set("a", 1, 0)
	s.Set("b", 2, 0)
	s.Get("a")
	s.Set("c", 3, 0)
	assert.Equal(t, []string{"b"}, evicted)
}

func TestL1_FIFOEviction(t *testing.T) {
	var evicted []string
	s := singleShard(t, l1.FIFO, 2, &evicted)
	s.Set("a", 1, 0)
	s.Set("b", 2, 0)
	s.Get("a")
	s.Set("c", 3, 0)
	assert.Equal(t, []string{"a"}, evicted)
}

func TestL1_LFUEviction(t *testing.T) {
	var evicted []string
	s := singleShard(t, l1.LFU, 2, &evicted)
	s.Set("a", 1, 0)
	s.Set("b", 2, 0)
	s.Get("a")
	s.Get("a")
	s.Set("c", 3, 0)
	assert.Equal(t, []string{"b"}, evicted)
}

func TestL1_Stats(t *testing.T) {
	s := newStore(t, clock.Real{})
	s.Set("x", "1", 0)
	s.Get("x")
	s.Get("y")

	stats := s.Stats()
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(1), stats.Entries)
}

func TestL1_CloseTwice(t *testing.T) {
	s := l1.New(l1.Options[string]{})
	s.Close()
	s.Close()
}

func TestL1_SweepRemovesExpired(t *testing.T) {
	clk := clock.NewMock(time.Time{})
	s := l1.New(l1.Options[string]{Clock: clk, SweepInterval: 5 * time.Millisecond})
	t.Cleanup(s.Close)
	s.Set("k", "v", time.Second)
	clk.Advance(time.Minute)
	assert.Eventually(t, func() bool { return s.Stats().Entries == 0 }, time.Second, 5*time.Millisecond)
}

func TestL1_Concurrent(t *testing.T) {
	s := newStore(t, clock.Real{})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", i%20)
				s.Set(key, fmt.Sprint(g), 0)
				s.Get(key)
			}
		}(g)
	}
	wg.Wait()
	assert.LessOrEqual(t, s.Stats().Entries, int64(20))
}
