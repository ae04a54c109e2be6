// Package codec provides the wire formats that carry encoded frame payloads.
package codec

import (
	"fmt"
	"sort"
	"strings"
)

// Codec encodes and decodes payloads for transport or storage.
type Codec interface {
	// Marshal serializes v into bytes.
	Marshal(v any) ([]byte, error)
	// Unmarshal deserializes data into v (must be a pointer).
	Unmarshal(data []byte, v any) error
	// Name returns the codec identifier stored alongside persisted payloads.
	Name() string
}

const zstdPrefix = "zstd+"

var base = map[string]Codec{
	JSON{}.Name():    JSON{},
	MsgPack{}.Name(): MsgPack{},
	CBOR{}.Name():    CBOR{},
}

// ByName resolves a codec identifier such as "json", "cbor" or "zstd+msgpack".
func ByName(name string) (Codec, error) {
	if inner, ok := strings.CutPrefix(name, zstdPrefix); ok {
		c, ok := base[inner]
		if !ok {
			return nil, fmt.Errorf("codec: unknown codec %q", name)
		}
		return Zstd{Inner: c}, nil
	}
	c, ok := base[name]
	if !ok {
		return nil, fmt.Errorf("codec: unknown codec %q", name)
	}
	return c, nil
}

// Names lists every identifier ByName accepts, sorted.
func Names() []string {
	out := make([]string, 0, 2*len(base))
	for n := range base {
		out = append(out, n, zstdPrefix+n)
	}
	sort.Strings(out)
	return out
}
