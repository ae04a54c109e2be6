package framewire

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"sync"
	"time"
)

const defaultInvalidationChannel = "framewire:invalidate"

const (
	opSet              = "set"
	opDelete           = "delete"
	opInvalidatePrefix = "invalidate_prefix"
)

// invalidationMsg is the Redis pub/sub payload for L1 invalidation.
type invalidationMsg struct {
	Origin string `json:"origin"`
	Key    string `json:"key"`
	Op     string `json:"op"` // "set" | "delete" | "invalidate_prefix"
}

// syncEngine keeps L1 coherent across processes: every write publishes the
// touched key and every process drops it from its own L1.
type syncEngine struct {
	s      *Store
	origin string
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func newSyncEngine(s *Store) *syncEngine {
	var b [8]byte
	_, _ = rand.Read(b[:])
	return &syncEngine{
		s:      s,
		origin: hex.EncodeToString(b[:]),
		stopCh: make(chan struct{}),
	}
}

func (se *syncEngine) start() {
	if se.s.l2 != nil {
		se.wg.Add(1)
		go se.subscribeLoop()
	}
}

func (se *syncEngine) stop() {
	close(se.stopCh)
	se.wg.Wait()
}

func (se *syncEngine) publishInvalidation(ctx context.Context, key, op string) {
	if se.s.l2 == nil {
		return
	}
	b, _ := json.Marshal(invalidationMsg{Origin: se.origin, Key: key, Op: op})
	if err := se.s.l2.Publish(ctx, se.s.cfg.InvalidationChannel, b); err != nil {
		se.s.logger.Warn("framewire: publish invalidation failed", "key", key, "op", op, "err", err)
	}
}

// subscribeLoop resubscribes after a dropped connection until stop.
func (se *syncEngine) subscribeLoop() {
	defer se.wg.Done()
	ch := se.s.cfg.InvalidationChannel
	for {
		select {
		case <-se.stopCh:
			return
		default:
		}
		ctx, cancel := context.WithCancel(context.Background())
		sub := se.s.l2.Subscribe(ctx, ch)
		func() {
			defer cancel()
			defer sub.Close()
			msgCh := sub.Channel()
			for {
				select {
				case <-se.stopCh:
					return
				case msg, ok := <-msgCh:
					if !ok {
						return
					}
					se.handleInvalidation(msg.Payload)
				}
			}
		}()
		select {
		case <-se.stopCh:
			return
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func (se *syncEngine) handleInvalidation(payload string) {
	var msg invalidationMsg
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		se.s.logger.Warn("framewire: malformed invalidation message", "payload", payload, "err", err)
		return
	}
	if msg.Origin == se.origin {
		return
	}
	switch msg.Op {
	case opSet, opDelete:
		se.s.l1.Delete(msg.Key)
	case opInvalidatePrefix:
		se.s.l1.FlushPrefix(msg.Key)
	default:
		se.s.logger.Warn("framewire: unknown invalidation op", "op", msg.Op, "key", msg.Key)
		return
	}
	se.s.stats.Invalidations.Add(1)
}
