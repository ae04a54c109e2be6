package codec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstdEncoder and zstdDecoder are shared; both are safe for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("codec: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("codec: zstd decoder initialization failed: " + err.Error())
	}
}

// Zstd compresses the output of another codec.
type Zstd struct {
	Inner Codec
}

func (z Zstd) inner() Codec {
	if z.Inner == nil {
		return JSON{}
	}
	return z.Inner
}

// Marshal serializes v with the inner codec and compresses the result.
func (z Zstd) Marshal(v any) ([]byte, error) {
	b, err := z.inner().Marshal(v)
	if err != nil {
		return nil, err
	}
	return zstdEncoder.EncodeAll(b, nil), nil
}

// Unmarshal decompresses data and deserializes it with the inner codec.
func (z Zstd) Unmarshal(data []byte, v any) error {
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("zstd decompress: %w", err)
	}
	return z.inner().Unmarshal(raw, v)
}

// Name returns "zstd+" followed by the inner codec name.
func (z Zstd) Name() string { return zstdPrefix + z.inner().Name() }
