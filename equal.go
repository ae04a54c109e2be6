package framewire

import "fmt"

// Equal reports whether a and b hold the same frame: same index and column
// keys in the same order, same level names, and cells of the same kind and
// value. NaN equals NaN.
func Equal(a, b *Frame) bool { return Compare(a, b) == nil }

// Compare is Equal with a reason: it returns nil when the frames match and an
// error wrapping ErrFrameMismatch that names the first difference otherwise.
func Compare(a, b *Frame) error {
	if a == nil || b == nil {
		if a == b {
			return nil
		}
		return fmt.Errorf("%w: one frame is nil", ErrFrameMismatch)
	}
	if err := compareIndex("index", a.Index, b.Index); err != nil {
		return fmt.Errorf("%w: %v", ErrFrameMismatch, err)
	}
	if err := compareIndex("columns", a.Columns, b.Columns); err != nil {
		return fmt.Errorf("%w: %v", ErrFrameMismatch, err)
	}
	if len(a.Data) != len(b.Data) {
		return fmt.Errorf("%w: %d columns != %d columns", ErrFrameMismatch, len(a.Data), len(b.Data))
	}
	for c := range a.Data {
		if len(a.Data[c]) != len(b.Data[c]) {
			return fmt.Errorf("%w: column %d has %d cells != %d", ErrFrameMismatch, c, len(a.Data[c]), len(b.Data[c]))
		}
		for r := range a.Data[c] {
			if !valuesEqual(a.Data[c][r], b.Data[c][r]) {
				return fmt.Errorf("%w: column %d row %d: %#v != %#v", ErrFrameMismatch, c, r, a.Data[c][r], b.Data[c][r])
			}
		}
	}
	return nil
}

func compareIndex(axis string, a, b Index) error {
	if a.NumLevels() != b.NumLevels() {
		return fmt.Errorf("%s: %d levels != %d levels", axis, a.NumLevels(), b.NumLevels())
	}
	if len(a.Names) != len(b.Names) {
		return fmt.Errorf("%s: %d names != %d names", axis, len(a.Names), len(b.Names))
	}
	for l := range a.Names {
		if !valuesEqual(a.Names[l], b.Names[l]) {
			return fmt.Errorf("%s level %d name: %#v != %#v", axis, l, a.Names[l], b.Names[l])
		}
	}
	for l := range a.Levels {
		if len(a.Levels[l]) != len(b.Levels[l]) {
			return fmt.Errorf("%s level %d: %d keys != %d keys", axis, l, len(a.Levels[l]), len(b.Levels[l]))
		}
		for i := range a.Levels[l] {
			if !valuesEqual(a.Levels[l][i], b.Levels[l][i]) {
				return fmt.Errorf("%s level %d key %d: %#v != %#v", axis, l, i, a.Levels[l][i], b.Levels[l][i])
			}
		}
	}
	return nil
}
