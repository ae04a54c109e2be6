// Copyright (c) 2026 Nlaak Studios (https://nlaak.com)
// Author: Andrew Donelson (https://www.linkedin.com/in/andrew-donelson/)
//
// frame.go — the in-memory table model: Frame (column-major cells with a row
// index and a column index) and Index (ordered, possibly multi-level keys with
// optional level names), plus constructors, accessors and axis concatenation.

package framewire

import (
	"fmt"
)

// Index is an ordered sequence of keys, one per row (or per column when used
// as a column index). A key has one entry per level, so a single-level index
// holds plain labels and a multi-level index holds fixed-length tuples.
// Keys are not required to be unique.
type Index struct {
	// Names holds one name per level; nil marks an unnamed level.
	Names []any
	// Levels[l][i] is the level-l entry of key i.
	Levels [][]any
}

// NewIndex builds an index from per-level values. A nil names slice yields
// unnamed levels.
func NewIndex(names []any, levels ...[]any) Index {
	if names == nil {
		names = make([]any, len(levels))
	}
	return Index{Names: names, Levels: levels}
}

// LabelIndex builds a single-level, unnamed index from labels.
func LabelIndex(labels ...any) Index {
	if labels == nil {
		labels = []any{}
	}
	return Index{Names: []any{nil}, Levels: [][]any{labels}}
}

// RangeIndex returns the default unnamed index 0..n-1.
func RangeIndex(n int) Index {
	keys := make([]any, n)
	for i := range keys {
		keys[i] = int64(i)
	}
	return Index{Names: []any{nil}, Levels: [][]any{keys}}
}

// IndexFromTuples builds a multi-level index from per-key tuples. The number
// of levels is len(names), or the width of the first tuple when names is nil.
func IndexFromTuples(names []any, tuples [][]any) (Index, error) {
	width := len(names)
	if names == nil {
		if len(tuples) == 0 {
			return Index{}, fmt.Errorf("%w: cannot infer level count from zero tuples", ErrInvalidFrame)
		}
		width = len(tuples[0])
		names = make([]any, width)
	}
	if width == 0 {
		return Index{}, fmt.Errorf("%w: index needs at least one level", ErrInvalidFrame)
	}
	levels := make([][]any, width)
	for l := range levels {
		levels[l] = make([]any, len(tuples))
	}
	for i, t := range tuples {
		if len(t) != width {
			return Index{}, fmt.Errorf("%w: tuple %d has %d entries, want %d", ErrInvalidFrame, i, len(t), width)
		}
		for l, v := range t {
			levels[l][i] = v
		}
	}
	return Index{Names: names, Levels: levels}, nil
}

// Len returns the number of keys.
func (ix Index) Len() int {
	if len(ix.Levels) == 0 {
		return 0
	}
	return len(ix.Levels[0])
}

// NumLevels returns the number of levels.
func (ix Index) NumLevels() int { return len(ix.Levels) }

// Key returns the tuple at position i.
func (ix Index) Key(i int) []any {
	key := make([]any, len(ix.Levels))
	for l, lvl := range ix.Levels {
		key[l] = lvl[i]
	}
	return key
}

func (ix Index) validate(axis string) error {
	if len(ix.Levels) == 0 {
		return fmt.Errorf("%w: %s has no levels", ErrInvalidFrame, axis)
	}
	if len(ix.Names) != len(ix.Levels) {
		return fmt.Errorf("%w: %s has %d names for %d levels", ErrInvalidFrame, axis, len(ix.Names), len(ix.Levels))
	}
	n := len(ix.Levels[0])
	for l, lvl := range ix.Levels {
		if len(lvl) != n {
			return fmt.Errorf("%w: %s level %d has %d keys, want %d", ErrInvalidFrame, axis, l, len(lvl), n)
		}
	}
	return nil
}

func (ix Index) clone() Index {
	out := Index{
		Names:  cloneValues(ix.Names),
		Levels: make([][]any, len(ix.Levels)),
	}
	for l, lvl := range ix.Levels {
		out.Levels[l] = cloneValues(lvl)
	}
	return out
}

// Frame is an ordered, rectangular table: Data[c][r] is the cell of column c
// at row r. Columns are labelled by Columns and rows are keyed by Index.
type Frame struct {
	Index   Index
	Columns Index
	Data    [][]any
}

// NewFrame assembles and validates a frame.
func NewFrame(index, columns Index, data [][]any) (*Frame, error) {
	if data == nil {
		data = [][]any{}
	}
	f := &Frame{Index: index, Columns: columns, Data: data}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return f, nil
}

// FromColumns builds a frame with single-level column labels and a
// RangeIndex over the rows.
func FromColumns(labels []any, cols ...[]any) (*Frame, error) {
	if len(labels) != len(cols) {
		return nil, fmt.Errorf("%w: %d labels for %d columns", ErrInvalidFrame, len(labels), len(cols))
	}
	rows := 0
	if len(cols) > 0 {
		rows = len(cols[0])
	}
	return NewFrame(RangeIndex(rows), LabelIndex(labels...), cols)
}

// Empty returns a frame with no rows and no columns.
func Empty() *Frame {
	return &Frame{Index: RangeIndex(0), Columns: LabelIndex(), Data: [][]any{}}
}

// NumRows returns the number of rows.
func (f *Frame) NumRows() int { return f.Index.Len() }

// NumCols returns the number of columns.
func (f *Frame) NumCols() int { return f.Columns.Len() }

// Column returns the cells of column c.
func (f *Frame) Column(c int) []any { return f.Data[c] }

// Row returns a copy of the cells of row r, in column order.
func (f *Frame) Row(r int) []any {
	row := make([]any, len(f.Data))
	for c, col := range f.Data {
		row[c] = col[r]
	}
	return row
}

// Validate checks that both indexes are well formed and that the cell grid
// matches their lengths.
func (f *Frame) Validate() error {
	if f == nil {
		return fmt.Errorf("%w: nil frame", ErrInvalidFrame)
	}
	if err := f.Index.validate("index"); err != nil {
		return err
	}
	if err := f.Columns.validate("columns"); err != nil {
		return err
	}
	if len(f.Data) != f.Columns.Len() {
		return fmt.Errorf("%w: %d data columns for %d column labels", ErrInvalidFrame, len(f.Data), f.Columns.Len())
	}
	rows := f.Index.Len()
	for c, col := range f.Data {
		if len(col) != rows {
			return fmt.Errorf("%w: column %d has %d cells, want %d", ErrInvalidFrame, c, len(col), rows)
		}
	}
	return nil
}

// Clone returns a deep copy of f. Nested maps and slices are copied too.
func (f *Frame) Clone() *Frame {
	out := &Frame{
		Index:   f.Index.clone(),
		Columns: f.Columns.clone(),
		Data:    make([][]any, len(f.Data)),
	}
	for c, col := range f.Data {
		out.Data[c] = cloneValues(col)
	}
	return out
}

// ConcatColumns joins frames side by side. All frames must share an equal row
// index; column labels are appended in order and duplicates are kept.
func ConcatColumns(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return Empty(), nil
	}
	for i, f := range frames {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		if err := compareIndex("index", frames[0].Index, f.Index); err != nil {
			return nil, fmt.Errorf("%w: frame %d row index differs: %v", ErrInvalidFrame, i, err)
		}
	}
	cols := make([]Index, len(frames))
	for i, f := range frames {
		cols[i] = f.Columns
	}
	columns, err := concatIndex("columns", cols)
	if err != nil {
		return nil, err
	}
	out := &Frame{Index: frames[0].Index.clone(), Columns: columns}
	for _, f := range frames {
		for _, col := range f.Data {
			out.Data = append(out.Data, cloneValues(col))
		}
	}
	if out.Data == nil {
		out.Data = [][]any{}
	}
	return out, nil
}

// ConcatRows stacks frames vertically. All frames must share an equal column
// index; row keys are appended in order and duplicates are kept.
func ConcatRows(frames ...*Frame) (*Frame, error) {
	if len(frames) == 0 {
		return Empty(), nil
	}
	for i, f := range frames {
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		if err := compareIndex("columns", frames[0].Columns, f.Columns); err != nil {
			return nil, fmt.Errorf("%w: frame %d column index differs: %v", ErrInvalidFrame, i, err)
		}
	}
	idx := make([]Index, len(frames))
	for i, f := range frames {
		idx[i] = f.Index
	}
	index, err := concatIndex("index", idx)
	if err != nil {
		return nil, err
	}
	out := &Frame{Index: index, Columns: frames[0].Columns.clone(), Data: make([][]any, frames[0].NumCols())}
	for c := range out.Data {
		col := make([]any, 0, index.Len())
		for _, f := range frames {
			col = append(col, cloneValues(f.Data[c])...)
		}
		out.Data[c] = col
	}
	return out, nil
}

// concatIndex appends indexes with the same level count. A level keeps its
// name only when every input agrees on it.
func concatIndex(axis string, parts []Index) (Index, error) {
	levels := parts[0].NumLevels()
	out := Index{Names: cloneValues(parts[0].Names), Levels: make([][]any, levels)}
	for i, p := range parts {
		if p.NumLevels() != levels {
			return Index{}, fmt.Errorf("%w: %s %d has %d levels, want %d", ErrInvalidFrame, axis, i, p.NumLevels(), levels)
		}
		for l := range p.Levels {
			if !valuesEqual(out.Names[l], p.Names[l]) {
				out.Names[l] = nil
			}
			out.Levels[l] = append(out.Levels[l], cloneValues(p.Levels[l])...)
		}
	}
	for l := range out.Levels {
		if out.Levels[l] == nil {
			out.Levels[l] = []any{}
		}
	}
	return out, nil
}

func cloneValues(vs []any) []any {
	if vs == nil {
		return nil
	}
	out := make([]any, len(vs))
	for i, v := range vs {
		out[i] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		return cloneValues(x)
	default:
		return v
	}
}
