package framewire_test

import (
	"testing"

	"github.com/AndrewDonelson/framewire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Index constructors ───────────────────────────────────────────────────────

func TestRangeIndex(t *testing.T) {
	ix := framewire.RangeIndex(3)
	assert.Equal(t, 3, ix.Len())
	assert.Equal(t, 1, ix.NumLevels())
	assert.Equal(t, []any{nil}, ix.Names)
	assert.Equal(t, []any{int64(0), int64(1), int64(2)}, ix.Levels[0])
}

func TestNewIndex_NilNamesAreUnnamed(t *testing.T) {
	ix := framewire.NewIndex(nil, []any{1, 2}, []any{"x", "y"})
	assert.Equal(t, []any{nil, nil}, ix.Names)
	assert.Equal(t, []any{2, "y"}, ix.Key(1))
}

func TestIndexFromTuples(t *testing.T) {
	ix, err := framewire.IndexFromTuples(nil, [][]any{{1, "a"}, {2, "b"}})
	require.NoError(t, err)
	assert.Equal(t, 2, ix.NumLevels())
	assert.Equal(t, []any{1, 2}, ix.Levels[0])
	assert.Equal(t, []any{"a", "b"}, ix.Levels[1])

	_, err = framewire.IndexFromTuples(nil, nil)
	require.ErrorIs(t, err, framewire.ErrInvalidFrame)

	_, err = framewire.IndexFromTuples([]any{"x", "y"}, [][]any{{1}})
	require.ErrorIs(t, err, framewire.ErrInvalidFrame)

	_, err = framewire.IndexFromTuples([]any{}, nil)
	require.ErrorIs(t, err, framewire.ErrInvalidFrame)
}

func TestIndexFromTuples_NamedEmpty(t *testing.T) {
	ix, err := framewire.IndexFromTuples([]any{"a", "b"}, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, ix.Len())
	assert.Equal(t, 2, ix.NumLevels())
}

// ── Frame construction and validation ───────────────────────────────────────

func TestNewFrame_Validates(t *testing.T) {
	cases := map[string]struct {
		index, columns framewire.Index
		data           [][]any
	}{
		"no index levels":    {framewire.Index{}, framewire.LabelIndex("a"), [][]any{{}}},
		"no column levels":   {framewire.RangeIndex(0), framewire.Index{}, nil},
		"names mismatch":     {framewire.Index{Names: []any{nil, nil}, Levels: [][]any{{1}}}, framewire.LabelIndex(), nil},
		"ragged levels":      {framewire.NewIndex(nil, []any{1, 2}, []any{1}), framewire.LabelIndex(), nil},
		"missing column":     {framewire.RangeIndex(1), framewire.LabelIndex("a", "b"), [][]any{{1}}},
		"short column":       {framewire.RangeIndex(2), framewire.LabelIndex("a"), [][]any{{1}}},
		"extra data columns": {framewire.RangeIndex(1), framewire.LabelIndex("a"), [][]any{{1}, {2}}},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := framewire.NewFrame(tc.index, tc.columns, tc.data)
			require.ErrorIs(t, err, framewire.ErrInvalidFrame)
		})
	}
}

func TestFromColumns(t *testing.T) {
	f, err := framewire.FromColumns([]any{"a", "b"}, []any{1, 2}, []any{"x", "y"})
	require.NoError(t, err)
	assert.Equal(t, 2, f.NumRows())
	assert.Equal(t, 2, f.NumCols())
	assert.Equal(t, []any{2, "y"}, f.Row(1))
	assert.Equal(t, []any{"x", "y"}, f.Column(1))

	_, err = framewire.FromColumns([]any{"a"})
	require.ErrorIs(t, err, framewire.ErrInvalidFrame)
}

func TestValidate_NilFrame(t *testing.T) {
	var f *framewire.Frame
	require.ErrorIs(t, f.Validate(), framewire.ErrInvalidFrame)
	_, err := framewire.Encode(nil)
	require.ErrorIs(t, err, framewire.ErrInvalidFrame)
}

func TestClone_IsDeep(t *testing.T) {
	f, err := framewire.FromColumns([]any{"a"}, []any{map[string]any{"k": []any{1}}})
	require.NoError(t, err)
	c := f.Clone()
	require.True(t, framewire.Equal(f, c))

	c.Data[0][0].(map[string]any)["k"].([]any)[0] = 2
	c.Columns.Levels[0][0] = "z"
	assert.Equal(t, 1, f.Data[0][0].(map[string]any)["k"].([]any)[0])
	assert.Equal(t, "a", f.Columns.Levels[0][0])
	assert.False(t, framewire.Equal(f, c))
}

// ── Concatenation ────────────────────────────────────────────────────────────

func TestConcatColumns_RequiresSameRowIndex(t *testing.T) {
	a := mustFrame(t, framewire.LabelIndex(1, 2), framewire.LabelIndex("a"), []any{1, 2})
	b := mustFrame(t, framewire.LabelIndex(2, 1), framewire.LabelIndex("b"), []any{1, 2})
	_, err := framewire.ConcatColumns(a, b)
	require.ErrorIs(t, err, framewire.ErrInvalidFrame)
}

func TestConcatRows_RequiresSameColumns(t *testing.T) {
	a := mustColumns(t, []any{"a"}, []any{1})
	b := mustColumns(t, []any{"b"}, []any{1})
	_, err := framewire.ConcatRows(a, b)
	require.ErrorIs(t, err, framewire.ErrInvalidFrame)
}

func TestConcatRows_KeepsDuplicateKeys(t *testing.T) {
	a := mustColumns(t, []any{"a"}, []any{1, 2})
	f, err := framewire.ConcatRows(a, a)
	require.NoError(t, err)
	assert.Equal(t, []any{int64(0), int64(1), int64(0), int64(1)}, f.Index.Levels[0])
	assert.Equal(t, []any{1, 2, 1, 2}, f.Column(0))
}

func TestConcat_DropsDisagreeingLevelNames(t *testing.T) {
	a := mustFrame(t, framewire.NewIndex([]any{"r"}, []any{1}), framewire.NewIndex([]any{"x"}, []any{"a"}), []any{1})
	b := mustFrame(t, framewire.NewIndex([]any{"r"}, []any{1}), framewire.NewIndex([]any{"y"}, []any{"b"}), []any{2})
	f, err := framewire.ConcatColumns(a, b)
	require.NoError(t, err)
	assert.Equal(t, []any{nil}, f.Columns.Names)
	assert.Equal(t, []any{"r"}, f.Index.Names)
}

func TestConcat_LevelCountMismatch(t *testing.T) {
	a := mustFrame(t, framewire.RangeIndex(1), framewire.LabelIndex("a"), []any{1})
	b := mustFrame(t, framewire.RangeIndex(1), framewire.NewIndex(nil, []any{"a"}, []any{"b"}), []any{1})
	_, err := framewire.ConcatColumns(a, b)
	require.ErrorIs(t, err, framewire.ErrInvalidFrame)
}

func TestConcat_NoFrames(t *testing.T) {
	f, err := framewire.ConcatColumns()
	require.NoError(t, err)
	assert.True(t, framewire.Equal(f, framewire.Empty()))
	f, err = framewire.ConcatRows()
	require.NoError(t, err)
	assert.Equal(t, 0, f.NumRows())
}

// ── Equality ─────────────────────────────────────────────────────────────────

func TestCompare_ReportsFirstDifference(t *testing.T) {
	a := mustColumns(t, []any{"a"}, []any{1, 2})
	b := mustColumns(t, []any{"a"}, []any{1, 3})
	err := framewire.Compare(a, b)
	require.ErrorIs(t, err, framewire.ErrFrameMismatch)
	assert.Contains(t, err.Error(), "column 0 row 1")

	c := mustColumns(t, []any{"b"}, []any{1, 2})
	err = framewire.Compare(a, c)
	require.ErrorIs(t, err, framewire.ErrFrameMismatch)
	assert.Contains(t, err.Error(), "columns")
}

func TestCompare_Nil(t *testing.T) {
	require.NoError(t, framewire.Compare(nil, nil))
	require.ErrorIs(t, framewire.Compare(framewire.Empty(), nil), framewire.ErrFrameMismatch)
}

func TestCompare_LevelNames(t *testing.T) {
	a := mustFrame(t, framewire.NewIndex([]any{"x"}, []any{1}), framewire.LabelIndex())
	b := mustFrame(t, framewire.NewIndex([]any{nil}, []any{1}), framewire.LabelIndex())
	require.ErrorIs(t, framewire.Compare(a, b), framewire.ErrFrameMismatch)
}
