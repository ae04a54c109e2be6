package framewire_test

import (
	"encoding/json"
	"testing"

	"github.com/AndrewDonelson/framewire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validPayload is a one-row, one-column payload: index [0], column "a", cell 1.
const validPayload = `{
	"version": 1,
	"index":   {"names": {"kind": "null", "values": [null]}, "levels": [{"kind": "int", "values": [0]}]},
	"columns": {"names": {"kind": "null", "values": [null]}, "levels": [{"kind": "str", "values": ["a"]}]},
	"kinds":   ["int"],
	"data":    [[1]]
}`

func decodeJSON(t *testing.T, s string) (*framewire.Frame, error) {
	t.Helper()
	return framewire.NewSerializer(framewire.SerializerConfig{}).Unmarshal([]byte(s))
}

func TestDecode_ValidPayload(t *testing.T) {
	f, err := decodeJSON(t, validPayload)
	require.NoError(t, err)
	want := mustColumns(t, []any{"a"}, []any{1})
	require.NoError(t, framewire.Compare(f, want))
}

func TestDecode_Malformed(t *testing.T) {
	idx := `{"names": {"kind": "null", "values": [null]}, "levels": [{"kind": "int", "values": [0]}]}`
	cols := `{"names": {"kind": "null", "values": [null]}, "levels": [{"kind": "str", "values": ["a"]}]}`
	build := func(version, index, columns, kinds, data string) string {
		return `{"version":` + version + `,"index":` + index + `,"columns":` + columns + `,"kinds":` + kinds + `,"data":` + data + `}`
	}

	cases := map[string]string{
		"not json":             `{"version": 1,`,
		"trailing garbage":     validPayload + `{}`,
		"array top level":      `[1, 2]`,
		"missing index":        build("1", "null", cols, `["int"]`, `[[1]]`),
		"missing columns":      build("1", idx, "null", `["int"]`, `[[1]]`),
		"missing names":        build("1", `{"levels": [{"kind": "int", "values": [0]}]}`, cols, `["int"]`, `[[1]]`),
		"no levels":            build("1", `{"names": {"kind": "null", "values": []}, "levels": []}`, cols, `["int"]`, `[[1]]`),
		"names count":          build("1", `{"names": {"kind": "null", "values": [null, null]}, "levels": [{"kind": "int", "values": [0]}]}`, cols, `["int"]`, `[[1]]`),
		"ragged levels":        build("1", `{"names": {"kind": "null", "values": [null, null]}, "levels": [{"kind": "int", "values": [0]}, {"kind": "int", "values": [0, 1]}]}`, cols, `["int"]`, `[[1]]`),
		"unknown level kind":   build("1", `{"names": {"kind": "null", "values": [null]}, "levels": [{"kind": "decimal", "values": [0]}]}`, cols, `["int"]`, `[[1]]`),
		"too few kinds":        build("1", idx, cols, `[]`, `[[1]]`),
		"too many kinds":       build("1", idx, cols, `["int", "int"]`, `[[1]]`),
		"too few rows":         build("1", idx, cols, `["int"]`, `[]`),
		"too many rows":        build("1", idx, cols, `["int"]`, `[[1], [2]]`),
		"short row":            build("1", idx, cols, `["int"]`, `[[]]`),
		"long row":             build("1", idx, cols, `["int"]`, `[[1, 2]]`),
		"string in int column": build("1", idx, cols, `["int"]`, `[["1"]]`),
		"fraction in int":      build("1", idx, cols, `["int"]`, `[[1.5]]`),
		"int overflow":         build("1", idx, cols, `["int"]`, `[[9223372036854775808]]`),
		"bad float spelling":   build("1", idx, cols, `["float"]`, `[["nan"]]`),
		"number in str":        build("1", idx, cols, `["str"]`, `[[1]]`),
		"value in null column": build("1", idx, cols, `["null"]`, `[[1]]`),
		"untagged mixed":       build("1", idx, cols, `["mixed"]`, `[[1]]`),
		"unknown tag":          build("1", idx, cols, `["mixed"]`, `[[["decimal", "1"]]]`),
		"tag without value":    build("1", idx, cols, `["mixed"]`, `[[["int"]]]`),
		"null tag with value":  build("1", idx, cols, `["mixed"]`, `[[["null", 1]]]`),
		"non-string tag":       build("1", idx, cols, `["mixed"]`, `[[[1, 1]]]`),
		"map tag with list":    build("1", idx, cols, `["mixed"]`, `[[["map", []]]]`),
		"list tag with map":    build("1", idx, cols, `["mixed"]`, `[[["list", {}]]]`),
		"untagged map entry":   build("1", idx, cols, `["mixed"]`, `[[["map", {"k": 1}]]]`),
		"bool in int tag":      build("1", idx, cols, `["mixed"]`, `[[["int", true]]]`),
		"index cell kind":      build("1", `{"names": {"kind": "null", "values": [null]}, "levels": [{"kind": "bool", "values": ["yes"]}]}`, cols, `["int"]`, `[[1]]`),
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			f, err := decodeJSON(t, payload)
			require.Error(t, err)
			assert.Nil(t, f)
			assert.ErrorIs(t, err, framewire.ErrMalformedPayload)
			assert.ErrorIs(t, err, framewire.ErrDecodeFailed)
		})
	}
}

func TestDecode_UnsupportedVersion(t *testing.T) {
	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(validPayload), &raw))
	raw["version"] = 2
	b, err := json.Marshal(raw)
	require.NoError(t, err)

	_, err = decodeJSON(t, string(b))
	require.ErrorIs(t, err, framewire.ErrUnsupportedVersion)
	require.ErrorIs(t, err, framewire.ErrMalformedPayload)
}

func TestDecode_NilPayload(t *testing.T) {
	_, err := framewire.Decode(nil)
	require.ErrorIs(t, err, framewire.ErrMalformedPayload)
}

func TestDecode_NullCellsInTypedColumns(t *testing.T) {
	p := `{
	"version": 1,
	"index":   {"names": {"kind": "null", "values": [null]}, "levels": [{"kind": "int", "values": [0, 1]}]},
	"columns": {"names": {"kind": "null", "values": [null]}, "levels": [{"kind": "str", "values": ["i", "s", "f", "b"]}]},
	"kinds":   ["int", "str", "float", "bool"],
	"data":    [[null, null, null, null], [7, "x", "NaN", true]]
}`
	f, err := decodeJSON(t, p)
	require.NoError(t, err)
	assert.Equal(t, []any{nil, "x"}, f.Column(1))
	assert.Equal(t, []any{nil, int64(7)}, f.Column(0))
	assert.Equal(t, []any{nil, true}, f.Column(3))
}

func TestDecode_DoesNotReinferKinds(t *testing.T) {
	p := `{
	"version": 1,
	"index":   {"names": {"kind": "null", "values": [null]}, "levels": [{"kind": "str", "values": ["1"]}]},
	"columns": {"names": {"kind": "str", "values": ["index"]}, "levels": [{"kind": "str", "values": ["index"]}]},
	"kinds":   ["float"],
	"data":    [[2]]
}`
	f, err := decodeJSON(t, p)
	require.NoError(t, err)
	assert.Equal(t, []any{"1"}, f.Index.Levels[0])
	assert.Equal(t, []any{2.0}, f.Column(0))
	assert.Equal(t, []any{"index"}, f.Columns.Names)
}
