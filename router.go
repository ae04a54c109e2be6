package framewire

import (
	"context"
	"errors"
	"fmt"

	"github.com/AndrewDonelson/framewire/internal/l2"
	"github.com/AndrewDonelson/framewire/internal/l3"
)

// ────────────────────────────────────────────────────────────────────────────
// Read path
// ────────────────────────────────────────────────────────────────────────────

// routerGet attempts L1 → L2 → L3 and back-fills upper tiers on a miss.
func (s *Store) routerGet(ctx context.Context, key string) (*Frame, error) {
	// L1 hit
	if f, ok := s.l1.Get(key); ok {
		s.metrics.RecordHit("l1")
		return f.Clone(), nil
	}
	s.metrics.RecordMiss("l1")

	// L2 hit
	if s.l2 != nil {
		f, err := s.readFromL2(ctx, key)
		switch {
		case err == nil:
			s.metrics.RecordHit("l2")
			s.setL1(key, f)
			return f.Clone(), nil
		case errors.Is(err, l2.ErrMiss):
		default:
			s.logger.Warn("framewire: l2 read failed", "key", key, "err", err)
		}
	}
	s.metrics.RecordMiss("l2")

	// L3 read
	if s.l3 != nil {
		f, err := s.readFromL3(ctx, key)
		if err != nil {
			return nil, err
		}
		s.metrics.RecordHit("l3")
		return f.Clone(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
}

// routerGetMany resolves each distinct key through L1, one batched L2 read,
// and then L3 key by key.
func (s *Store) routerGetMany(ctx context.Context, keys []string) (map[string]*Frame, error) {
	out := make(map[string]*Frame, len(keys))
	var missing []string
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if seen[key] {
			continue
		}
		seen[key] = true
		if f, ok := s.l1.Get(key); ok {
			s.metrics.RecordHit("l1")
			out[key] = f.Clone()
			continue
		}
		s.metrics.RecordMiss("l1")
		missing = append(missing, key)
	}

	if len(missing) > 0 && s.l2 != nil {
		entries, err := s.l2.GetMany(ctx, missing)
		if err != nil {
			s.logger.Warn("framewire: l2 batch read failed", "keys", len(missing), "err", err)
		}
		rest := missing[:0]
		for _, key := range missing {
			if e, ok := entries[key]; ok {
				f, err := s.decodeEntry(e)
				if err == nil {
					s.metrics.RecordHit("l2")
					s.setL1(key, f)
					out[key] = f.Clone()
					continue
				}
				s.logger.Warn("framewire: l2 read failed", "key", key, "err", err)
			}
			s.metrics.RecordMiss("l2")
			rest = append(rest, key)
		}
		missing = rest
	}

	if s.l3 != nil {
		for _, key := range missing {
			f, err := s.readFromL3(ctx, key)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				return nil, err
			}
			s.metrics.RecordHit("l3")
			out[key] = f.Clone()
		}
	}
	return out, nil
}

func (s *Store) readFromL2(ctx context.Context, key string) (*Frame, error) {
	e, err := s.l2.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.decodeEntry(e)
}

// decodeEntry decodes a cached payload with the codec it was written with.
func (s *Store) decodeEntry(e l2.Entry) (*Frame, error) {
	c, err := CodecByName(e.Codec)
	if err != nil {
		return nil, err
	}
	return s.ser.unmarshalWith(c, e.Payload)
}

// readFromL3 loads key from PostgreSQL and back-fills L2 then L1.
func (s *Store) readFromL3(ctx context.Context, key string) (*Frame, error) {
	rec, err := s.l3.Get(ctx, key)
	if err != nil {
		if errors.Is(err, l3.ErrNoRows) {
			s.metrics.RecordMiss("l3")
			return nil, fmt.Errorf("%w: %q", ErrNotFound, key)
		}
		return nil, fmt.Errorf("%w: %v", ErrL3Unavailable, err)
	}
	c, err := CodecByName(rec.Codec)
	if err != nil {
		return nil, err
	}
	f, err := s.ser.unmarshalWith(c, rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("frame %q: %w", key, err)
	}
	if s.l2 != nil {
		s.setL2(ctx, key, l2.Entry{Codec: rec.Codec, Payload: rec.Payload})
	}
	s.setL1(key, f)
	return f, nil
}

// ────────────────────────────────────────────────────────────────────────────
// Write path
// ────────────────────────────────────────────────────────────────────────────

// routerPut writes through: L3 first, then L2, then L1. An L3 failure aborts
// the write; cache tier failures are logged.
func (s *Store) routerPut(ctx context.Context, key string, f *Frame) error {
	b, err := s.ser.Marshal(f)
	if err != nil {
		return err
	}
	codecName := s.ser.Codec().Name()

	if s.l3 != nil {
		if err := s.l3.Upsert(ctx, s.record(key, codecName, b, f)); err != nil {
			return fmt.Errorf("%w: %v", ErrL3Unavailable, err)
		}
	}
	if s.l2 != nil {
		s.setL2(ctx, key, l2.Entry{Codec: codecName, Payload: b})
	}
	s.setL1(key, f.Clone())
	s.sync.publishInvalidation(ctx, key, opSet)
	return nil
}

func (s *Store) routerPutMany(ctx context.Context, frames map[string]*Frame) error {
	codecName := s.ser.Codec().Name()
	encoded := make(map[string][]byte, len(frames))
	records := make([]l3.Record, 0, len(frames))
	for key, f := range frames {
		b, err := s.ser.Marshal(f)
		if err != nil {
			return fmt.Errorf("frame %q: %w", key, err)
		}
		encoded[key] = b
		records = append(records, s.record(key, codecName, b, f))
	}
	if s.l3 != nil {
		if err := s.l3.UpsertMany(ctx, records); err != nil {
			return fmt.Errorf("%w: %v", ErrL3Unavailable, err)
		}
	}
	for key, f := range frames {
		if s.l2 != nil {
			s.setL2(ctx, key, l2.Entry{Codec: codecName, Payload: encoded[key]})
		}
		s.setL1(key, f.Clone())
		s.sync.publishInvalidation(ctx, key, opSet)
	}
	return nil
}

func (s *Store) record(key, codecName string, b []byte, f *Frame) l3.Record {
	return l3.Record{
		Key:       key,
		Codec:     codecName,
		Payload:   b,
		Rows:      f.NumRows(),
		Cols:      f.NumCols(),
		UpdatedAt: s.cfg.Clock.Now(),
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Delete path
// ────────────────────────────────────────────────────────────────────────────

func (s *Store) routerDelete(ctx context.Context, key string) error {
	if s.l3 != nil {
		if err := s.l3.Delete(ctx, key); err != nil {
			return fmt.Errorf("%w: %v", ErrL3Unavailable, err)
		}
	}
	if s.l2 != nil {
		if err := s.l2.Delete(ctx, key); err != nil {
			s.logger.Warn("framewire: l2 delete failed", "key", key, "err", err)
		}
	}
	s.l1.Delete(key)
	s.sync.publishInvalidation(ctx, key, opDelete)
	return nil
}

// ────────────────────────────────────────────────────────────────────────────
// Tier helpers
// ────────────────────────────────────────────────────────────────────────────

// setL1 caches a frame the Store owns; callers pass a copy.
func (s *Store) setL1(key string, f *Frame) {
	s.l1.Set(key, f, 0)
}

func (s *Store) setL2(ctx context.Context, key string, e l2.Entry) {
	if err := s.l2.Set(ctx, key, e, s.cfg.DefaultL2TTL); err != nil {
		s.logger.Warn("framewire: l2 write failed", "key", key, "err", err)
	}
}
