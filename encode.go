package framewire

import "fmt"

// EncodeOptions tunes Encode.
type EncodeOptions struct {
	// TextFallback coerces leaf values that are neither primitives nor
	// string-keyed maps / slices, but implement encoding.TextMarshaler or
	// fmt.Stringer, into Opaque text instead of failing.
	TextFallback bool
}

// Encode converts f into a Payload using the default options.
func Encode(f *Frame) (*Payload, error) {
	return EncodeWith(f, EncodeOptions{})
}

// EncodeWith converts f into a Payload. Each column, index level, column
// label level and names list is tagged with one Kind, chosen here from the
// values themselves.
func EncodeWith(f *Frame, opts EncodeOptions) (*Payload, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	index, err := encodeAxis("index", f.Index, opts)
	if err != nil {
		return nil, err
	}
	columns, err := encodeAxis("columns", f.Columns, opts)
	if err != nil {
		return nil, err
	}

	rows := f.NumRows()
	p := &Payload{
		Version: PayloadVersion,
		Index:   index,
		Columns: columns,
		Kinds:   make([]Kind, f.NumCols()),
		Data:    make([][]any, rows),
	}
	for r := range p.Data {
		p.Data[r] = make([]any, f.NumCols())
	}
	for c, col := range f.Data {
		vec, err := encodeVector(col, opts)
		if err != nil {
			return nil, fmt.Errorf("column %d: %w", c, err)
		}
		p.Kinds[c] = vec.Kind
		for r, v := range vec.Values {
			p.Data[r][c] = v
		}
	}
	return p, nil
}

func encodeAxis(axis string, ix Index, opts EncodeOptions) (*Axis, error) {
	names, err := encodeVector(ix.Names, opts)
	if err != nil {
		return nil, fmt.Errorf("%s names: %w", axis, err)
	}
	out := &Axis{Names: &names, Levels: make([]Vector, len(ix.Levels))}
	for l, lvl := range ix.Levels {
		vec, err := encodeVector(lvl, opts)
		if err != nil {
			return nil, fmt.Errorf("%s level %d: %w", axis, l, err)
		}
		out.Levels[l] = vec
	}
	return out, nil
}

func encodeVector(values []any, opts EncodeOptions) (Vector, error) {
	canon := make([]any, len(values))
	for i, v := range values {
		n, err := normalize(v, opts.TextFallback)
		if err != nil {
			return Vector{}, fmt.Errorf("position %d: %w", i, err)
		}
		canon[i] = n
	}
	kind := vectorKind(canon)
	out := make([]any, len(canon))
	for i, v := range canon {
		switch {
		case v == nil && kind != KindMixed:
			out[i] = nil
		case kind == KindFloat:
			out[i] = encodeFloat(v.(float64))
		case kind == KindMixed:
			out[i] = tagged(v)
		default:
			out[i] = v
		}
	}
	return Vector{Kind: kind, Values: out}, nil
}
