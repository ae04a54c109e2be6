package framewire_test

import (
	"math"
	"testing"

	"github.com/AndrewDonelson/framewire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertRoundTrip checks decode(encode(f)) == f through the bare payload and
// through every wire codec.
func assertRoundTrip(t *testing.T, f *framewire.Frame) {
	t.Helper()

	p, err := framewire.Encode(f)
	require.NoError(t, err)
	got, err := framewire.Decode(p)
	require.NoError(t, err)
	require.NoError(t, framewire.Compare(got, f), "payload round trip")

	for _, name := range framewire.CodecNames() {
		c, err := framewire.CodecByName(name)
		require.NoError(t, err)
		ser := framewire.NewSerializer(framewire.SerializerConfig{Codec: c})
		b, err := ser.Marshal(f)
		require.NoError(t, err, name)
		got, err := ser.Unmarshal(b)
		require.NoError(t, err, name)
		require.NoError(t, framewire.Compare(got, f), "%s round trip", name)
	}
}

func mustFrame(t *testing.T, index, columns framewire.Index, data ...[]any) *framewire.Frame {
	t.Helper()
	f, err := framewire.NewFrame(index, columns, data)
	require.NoError(t, err)
	return f
}

func mustColumns(t *testing.T, labels []any, cols ...[]any) *framewire.Frame {
	t.Helper()
	f, err := framewire.FromColumns(labels, cols...)
	require.NoError(t, err)
	return f
}

type obj = map[string]any
type arr = []any

// ── the full mixed case ──────────────────────────────────────────────────────

func TestRoundTrip_MixedMultiIndexWithDuplicates(t *testing.T) {
	keys := [][]any{{"한", 3, "00"}, {2, "\"\n'", "01"}, {"\\n\r\n\r\n", 1, "02"}}
	index, err := framewire.IndexFromTuples([]any{nil, "a", "index"}, keys)
	require.NoError(t, err)
	columns := framewire.LabelIndex("a", "index")

	colA := arr{arr{math.NaN(), obj{}}, obj{"2": arr{obj{}, arr{}}}, arr{arr{obj{"3\r\n": arr{}}, arr{}}}}
	colIndex := arr{`{"1": {}}`, obj{}, nil}
	reversedA := arr{colA[2], colA[1], colA[0]}
	reversedIndex := arr{colIndex[2], colIndex[1], colIndex[0]}

	df1 := mustFrame(t, index, columns, colA, colIndex)
	df2 := mustFrame(t, index, columns, reversedA, reversedIndex)
	df3, err := framewire.ConcatColumns(df1, df2)
	require.NoError(t, err)
	expected, err := framewire.ConcatRows(df3, df3)
	require.NoError(t, err)

	assert.Equal(t, 4*df1.NumRows()*df1.NumCols(), expected.NumRows()*expected.NumCols())
	assert.Equal(t, 4, expected.NumCols())
	assert.Equal(t, 6, expected.NumRows())
	assert.Equal(t, []any{nil, "a", "index"}, expected.Index.Names)

	assertRoundTrip(t, expected)
}

// ── empty shapes ─────────────────────────────────────────────────────────────

func TestRoundTrip_MultiLevelColumnsWithDuplicates(t *testing.T) {
	columns, err := framewire.IndexFromTuples([]any{"outer", nil}, [][]any{{"a", 1}, {"a", 1}, {"b", "01"}})
	require.NoError(t, err)
	f := mustFrame(t, framewire.LabelIndex("r1", "r2"), columns,
		[]any{1, 2},
		[]any{"x", nil},
		[]any{1.5, map[string]any{"k": "v"}},
	)
	assertRoundTrip(t, f)
}

func TestRoundTrip_EmptyFrame(t *testing.T) {
	assertRoundTrip(t, framewire.Empty())
}

func TestRoundTrip_NoRows(t *testing.T) {
	f := mustColumns(t, []any{"a"}, []any{})
	assertRoundTrip(t, f)
}

func TestRoundTrip_NoRowsNoColumnsNamedIndex(t *testing.T) {
	f := mustFrame(t, framewire.NewIndex([]any{"a"}, []any{}), framewire.LabelIndex())
	assertRoundTrip(t, f)
}

func TestRoundTrip_NoColumns(t *testing.T) {
	f := mustFrame(t, framewire.NewIndex([]any{"a"}, []any{1}), framewire.LabelIndex())
	assertRoundTrip(t, f)
}

func TestRoundTrip_MultiIndexNoColumns(t *testing.T) {
	f := mustFrame(t, framewire.NewIndex([]any{"a", "b"}, []any{1}, []any{2}), framewire.LabelIndex())
	assertRoundTrip(t, f)
}

// ── type fidelity ────────────────────────────────────────────────────────────

func TestRoundTrip_IntegerStrings(t *testing.T) {
	f := mustColumns(t, []any{"a"}, []any{"01", "02", "03"})
	assertRoundTrip(t, f)

	p, err := framewire.Encode(f)
	require.NoError(t, err)
	assert.Equal(t, []framewire.Kind{framewire.KindStr}, p.Kinds)
	got, err := framewire.Decode(p)
	require.NoError(t, err)
	assert.Equal(t, []any{"01", "02", "03"}, got.Column(0))
}

func TestRoundTrip_DuplicatedColumnNames(t *testing.T) {
	df1 := mustColumns(t, []any{"a"}, []any{1.0, 2.0, 3.0})
	df2 := mustColumns(t, []any{"a"}, []any{3.0, 2.0, 1.0})
	f, err := framewire.ConcatColumns(df1, df2)
	require.NoError(t, err)
	require.Equal(t, 2*df1.NumCols(), f.NumCols())
	assert.Equal(t, []any{"a", "a"}, f.Columns.Levels[0])
	assertRoundTrip(t, f)
}

func TestRoundTrip_NonASCII(t *testing.T) {
	assertRoundTrip(t, mustColumns(t, []any{"a"}, []any{"하나", "둘", "셋"}))
}

func TestRoundTrip_SimpleMixedTypes(t *testing.T) {
	f := mustFrame(t, framewire.LabelIndex("3", 2, "1"), framewire.LabelIndex("a"), []any{1, "2", 3})
	assertRoundTrip(t, f)

	got, err := framewire.Decode(mustEncode(t, f))
	require.NoError(t, err)
	assert.Equal(t, []any{int64(1), "2", int64(3)}, got.Column(0))
	assert.Equal(t, []any{"3", int64(2), "1"}, got.Index.Levels[0])
}

func TestRoundTrip_ColumnNamedIndex(t *testing.T) {
	f := mustFrame(t, framewire.LabelIndex(3, 2, 1), framewire.LabelIndex("index"), []any{1, 2, 3})
	assertRoundTrip(t, f)
}

func TestRoundTrip_MultiIndex(t *testing.T) {
	index, err := framewire.IndexFromTuples([]any{nil, "a"}, [][]any{{1, 3}, {2, 2}, {3, 1}})
	require.NoError(t, err)
	f := mustFrame(t, index, framewire.LabelIndex("b", "c"), []any{1, 2, 3}, []any{3, 2, 1})
	assertRoundTrip(t, f)

	got, err := framewire.Decode(mustEncode(t, f))
	require.NoError(t, err)
	assert.Equal(t, 2, got.Index.NumLevels())
	assert.Equal(t, []any{nil, "a"}, got.Index.Names)
	assert.Equal(t, []any{int64(2), int64(2)}, got.Index.Key(1))
}

func TestRoundTrip_IndexNamesEqualColumnNames(t *testing.T) {
	tuples := [][]any{{1, 3}, {2, 2}, {3, 1}}
	index, err := framewire.IndexFromTuples([]any{"a", "b"}, tuples)
	require.NoError(t, err)
	f := mustFrame(t, index, framewire.LabelIndex("a", "b"), []any{1, 2, 3}, []any{3, 2, 1})
	assertRoundTrip(t, f)
}

func TestRoundTrip_ComplexTypes(t *testing.T) {
	f := mustColumns(t, []any{"a"}, []any{
		arr{obj{}, arr{arr{1, obj{}, arr{}}, obj{"2\r": arr{nil}}}},
		arr{math.NaN()},
		obj{"3\n": arr{obj{}, arr{obj{}}}},
	})
	assertRoundTrip(t, f)
}

// ── further kinds ────────────────────────────────────────────────────────────

func TestRoundTrip_NaNVersusNull(t *testing.T) {
	f := mustColumns(t, []any{"x"}, []any{math.NaN(), nil, 1.5, math.Inf(1), math.Inf(-1)})
	assertRoundTrip(t, f)

	got, err := framewire.Decode(mustEncode(t, f))
	require.NoError(t, err)
	col := got.Column(0)
	assert.True(t, math.IsNaN(col[0].(float64)))
	assert.Nil(t, col[1])
	assert.True(t, math.IsInf(col[3].(float64), 1))
	assert.True(t, math.IsInf(col[4].(float64), -1))
}

func TestRoundTrip_FloatColumnKeepsIntegralFloats(t *testing.T) {
	f := mustColumns(t, []any{"x"}, []any{1.0, 2.0})
	got, err := framewire.Decode(mustEncode(t, f))
	require.NoError(t, err)
	assert.Equal(t, []any{1.0, 2.0}, got.Column(0))
	assert.False(t, framewire.Equal(got, mustColumns(t, []any{"x"}, []any{1, 2})), "int and float cells differ")
}

func TestRoundTrip_StringsThatLookLikeFloatSpellings(t *testing.T) {
	f := mustColumns(t, []any{"s", "m"}, []any{"NaN", "Inf", "-Inf"}, []any{"NaN", math.NaN(), nil})
	assertRoundTrip(t, f)

	got, err := framewire.Decode(mustEncode(t, f))
	require.NoError(t, err)
	assert.Equal(t, "NaN", got.Column(1)[0])
	assert.True(t, math.IsNaN(got.Column(1)[1].(float64)))
}

func TestRoundTrip_BoolsAndLargeInts(t *testing.T) {
	f := mustColumns(t, []any{"b", "i"},
		[]any{true, false, nil},
		[]any{int64(math.MaxInt64), int64(math.MinInt64), int64(9007199254740993)},
	)
	assertRoundTrip(t, f)
}

func TestRoundTrip_AllNullColumn(t *testing.T) {
	f := mustColumns(t, []any{"n"}, []any{nil, nil})
	assertRoundTrip(t, f)
}

func TestRoundTrip_TypedGoValues(t *testing.T) {
	type label string
	f := mustColumns(t, []any{label("named"), "nested"},
		[]any{int8(1), uint16(2), int32(3)},
		[]any{[]string{"x", "y"}, map[string]int{"k": 1}, [2]float32{0.5, 1}},
	)
	got, err := framewire.Decode(mustEncode(t, f))
	require.NoError(t, err)
	assert.Equal(t, "named", got.Columns.Levels[0][0])
	assert.Equal(t, []any{int64(1), int64(2), int64(3)}, got.Column(0))
	assert.Equal(t, arr{"x", "y"}, got.Column(1)[0])
	assert.Equal(t, obj{"k": int64(1)}, got.Column(1)[1])
	assert.Equal(t, arr{0.5, 1.0}, got.Column(1)[2])
	require.NoError(t, framewire.Compare(got, f))
}

func mustEncode(t *testing.T, f *framewire.Frame) *framewire.Payload {
	t.Helper()
	p, err := framewire.Encode(f)
	require.NoError(t, err)
	return p
}
