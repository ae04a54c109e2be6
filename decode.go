package framewire

import "fmt"

// Decode rebuilds a Frame from p. Kinds recorded by the encoder are honoured
// as written; nothing is re-inferred from the stored values. Any structural
// inconsistency fails with ErrMalformedPayload and no partial frame.
func Decode(p *Payload) (*Frame, error) {
	if p == nil {
		return nil, malformed("nil payload")
	}
	if p.Version != PayloadVersion {
		return nil, fmt.Errorf("%w: %w: got %d, want %d", ErrMalformedPayload, ErrUnsupportedVersion, p.Version, PayloadVersion)
	}
	index, err := decodeAxis("index", p.Index)
	if err != nil {
		return nil, err
	}
	columns, err := decodeAxis("columns", p.Columns)
	if err != nil {
		return nil, err
	}

	rows, cols := index.Len(), columns.Len()
	if len(p.Kinds) != cols {
		return nil, malformed("%d kinds for %d columns", len(p.Kinds), cols)
	}
	if len(p.Data) != rows {
		return nil, malformed("%d data rows for %d index keys", len(p.Data), rows)
	}
	for r, row := range p.Data {
		if len(row) != cols {
			return nil, malformed("data row %d has %d cells, want %d", r, len(row), cols)
		}
	}

	f := &Frame{Index: index, Columns: columns, Data: make([][]any, cols)}
	for c := range f.Data {
		stored := make([]any, rows)
		for r, row := range p.Data {
			stored[r] = row[c]
		}
		col, err := decodeVector(fmt.Sprintf("column %d", c), Vector{Kind: p.Kinds[c], Values: stored}, rows)
		if err != nil {
			return nil, err
		}
		f.Data[c] = col
	}
	return f, nil
}

func decodeAxis(axis string, a *Axis) (Index, error) {
	if a == nil {
		return Index{}, malformed("missing %s", axis)
	}
	if a.Names == nil {
		return Index{}, malformed("missing %s names", axis)
	}
	if len(a.Levels) == 0 {
		return Index{}, malformed("%s has no levels", axis)
	}
	names, err := decodeVector(axis+" names", *a.Names, len(a.Levels))
	if err != nil {
		return Index{}, err
	}
	n := len(a.Levels[0].Values)
	ix := Index{Names: names, Levels: make([][]any, len(a.Levels))}
	for l, vec := range a.Levels {
		lvl, err := decodeVector(fmt.Sprintf("%s level %d", axis, l), vec, n)
		if err != nil {
			return Index{}, err
		}
		ix.Levels[l] = lvl
	}
	return ix, nil
}

func decodeVector(where string, v Vector, n int) ([]any, error) {
	if !v.Kind.valid() {
		return nil, malformed("%s: unknown kind %q", where, v.Kind)
	}
	if len(v.Values) != n {
		return nil, malformed("%s has %d values, want %d", where, len(v.Values), n)
	}
	out := make([]any, n)
	for i, x := range v.Values {
		d, err := decodeValue(v.Kind, x)
		if err != nil {
			return nil, malformed("%s position %d: %v", where, i, err)
		}
		out[i] = d
	}
	return out, nil
}

func decodeValue(kind Kind, x any) (any, error) {
	if kind == KindMixed {
		return untag(x)
	}
	if x == nil {
		return nil, nil
	}
	switch kind {
	case KindBool:
		return readBool(x)
	case KindInt:
		return readInt(x)
	case KindFloat:
		return readFloat(x)
	case KindStr:
		return readString(x)
	default:
		return nil, fmt.Errorf("%w: %T in a null vector", errWrongShape, x)
	}
}

func malformed(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrMalformedPayload}, args...)...)
}
