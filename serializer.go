package framewire

import (
	"errors"
	"fmt"

	"github.com/AndrewDonelson/framewire/internal/clock"
	"github.com/AndrewDonelson/framewire/internal/codec"
	"github.com/AndrewDonelson/framewire/internal/metrics"
)

// Re-export types so callers only import this package.
type MetricsRecorder = metrics.MetricsRecorder
type Codec = codec.Codec

// CodecByName resolves a wire codec identifier such as "json", "msgpack",
// "cbor" or "zstd+json".
func CodecByName(name string) (Codec, error) {
	c, err := codec.ByName(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCodec, name)
	}
	return c, nil
}

// CodecNames lists every codec identifier CodecByName accepts.
func CodecNames() []string { return codec.Names() }

// SerializerConfig configures a Serializer.
type SerializerConfig struct {
	// Codec is the wire format; JSON when nil.
	Codec Codec
	// TextFallback encodes unsupported cell values that implement
	// encoding.TextMarshaler or fmt.Stringer as Opaque text.
	TextFallback bool

	Clock   clock.Clock
	Metrics MetricsRecorder
	Logger  Logger
}

func (c *SerializerConfig) defaults() {
	if c.Codec == nil {
		c.Codec = codec.Default
	}
	if c.Clock == nil {
		c.Clock = clock.Real{}
	}
	if c.Metrics == nil {
		c.Metrics = metrics.Noop{}
	}
	if c.Logger == nil {
		c.Logger = noopLogger{}
	}
}

// Serializer turns frames into wire bytes and back: Encode or Decode for the
// payload, then the configured Codec for the bytes.
type Serializer struct {
	cfg SerializerConfig
}

// NewSerializer returns a Serializer for cfg with unset fields defaulted.
func NewSerializer(cfg SerializerConfig) *Serializer {
	cfg.defaults()
	return &Serializer{cfg: cfg}
}

// Codec returns the wire codec in use.
func (s *Serializer) Codec() Codec { return s.cfg.Codec }

// Marshal encodes f and serializes the payload with the configured codec.
// Frame problems surface as ErrInvalidFrame or ErrUnsupportedValue; codec
// failures wrap ErrEncodeFailed.
func (s *Serializer) Marshal(f *Frame) ([]byte, error) {
	start := s.cfg.Clock.Now()
	p, err := EncodeWith(f, EncodeOptions{TextFallback: s.cfg.TextFallback})
	s.cfg.Metrics.RecordLatency("encode", clock.Since(s.cfg.Clock, start))
	if err != nil {
		s.cfg.Metrics.RecordError("encode")
		return nil, err
	}

	start = s.cfg.Clock.Now()
	b, err := s.cfg.Codec.Marshal(p)
	s.cfg.Metrics.RecordLatency("marshal", clock.Since(s.cfg.Clock, start))
	if err != nil {
		s.cfg.Metrics.RecordError("marshal")
		return nil, fmt.Errorf("%w: %s: %v", ErrEncodeFailed, s.cfg.Codec.Name(), err)
	}
	s.cfg.Metrics.RecordPayloadSize(s.cfg.Codec.Name(), len(b))
	return b, nil
}

// Unmarshal deserializes b with the configured codec and decodes the frame.
func (s *Serializer) Unmarshal(b []byte) (*Frame, error) {
	return s.unmarshalWith(s.cfg.Codec, b)
}

func (s *Serializer) unmarshalWith(c Codec, b []byte) (*Frame, error) {
	start := s.cfg.Clock.Now()
	var p Payload
	err := c.Unmarshal(b, &p)
	s.cfg.Metrics.RecordLatency("unmarshal", clock.Since(s.cfg.Clock, start))
	if err != nil {
		s.cfg.Metrics.RecordError("unmarshal")
		s.cfg.Logger.Warn("framewire: unreadable payload", "codec", c.Name(), "bytes", len(b), "err", err)
		return nil, fmt.Errorf("%w: %w: %s: %v", ErrDecodeFailed, ErrMalformedPayload, c.Name(), err)
	}

	start = s.cfg.Clock.Now()
	f, err := Decode(&p)
	s.cfg.Metrics.RecordLatency("decode", clock.Since(s.cfg.Clock, start))
	if err != nil {
		s.cfg.Metrics.RecordError("decode")
		s.cfg.Logger.Warn("framewire: malformed payload", "codec", c.Name(), "err", err)
		if errors.Is(err, ErrMalformedPayload) {
			return nil, fmt.Errorf("%w: %w", ErrDecodeFailed, err)
		}
		return nil, err
	}
	return f, nil
}

// MarshalPayload serializes an already encoded payload.
func (s *Serializer) MarshalPayload(p *Payload) ([]byte, error) {
	b, err := s.cfg.Codec.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEncodeFailed, s.cfg.Codec.Name(), err)
	}
	return b, nil
}

// UnmarshalPayload deserializes b into a Payload without decoding the frame.
func (s *Serializer) UnmarshalPayload(b []byte) (*Payload, error) {
	var p Payload
	if err := s.cfg.Codec.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("%w: %w: %s: %v", ErrDecodeFailed, ErrMalformedPayload, s.cfg.Codec.Name(), err)
	}
	return &p, nil
}
