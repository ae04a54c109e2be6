package framewire

// PayloadVersion is the layout version written by Encode.
const PayloadVersion = 1

// Payload is the JSON-safe form of a Frame. After marshalling it contains only
// mappings, sequences and primitives. Labels and level names are stored as
// values inside vectors and never as mapping keys, so user data named like a
// structural key ("index", "columns", ...) cannot collide with the layout.
type Payload struct {
	Version int     `json:"version" msgpack:"version"`
	Index   *Axis   `json:"index" msgpack:"index"`
	Columns *Axis   `json:"columns" msgpack:"columns"`
	Kinds   []Kind  `json:"kinds" msgpack:"kinds"`
	Data    [][]any `json:"data" msgpack:"data"` // row-major
}

// Axis describes a row or column index.
type Axis struct {
	Names  *Vector  `json:"names" msgpack:"names"`
	Levels []Vector `json:"levels" msgpack:"levels"`
}

// Vector is a sequence of values that share one Kind.
type Vector struct {
	Kind   Kind  `json:"kind" msgpack:"kind"`
	Values []any `json:"values" msgpack:"values"`
}
