package transform

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"seqx/internal/seq"
	"seqx/internal/telemetry"
)

var (
	ErrUnknownOp  = errors.New("unknown operation")
	ErrBadPayload = errors.New("bad payload")
)

// MaxOutputCells caps the number of integers a single call may produce.
// Operations whose result grows faster than their input are checked against
// it before any allocation.
const MaxOutputCells = 1 << 20

// Shape names the JSON layout of an operation's input or output.
type Shape string

const (
	ShapeList     Shape = "list"      // [1,2,3]
	ShapeMatrix   Shape = "matrix"    // [[1,2],[3]]
	ShapeListPair Shape = "list_pair" // [[1,2],[3,4]], exactly two lists
	ShapePairs    Shape = "pairs"     // [[1,3],[1,4]]
	ShapeCount    Shape = "count"     // 5
)

// Op is one catalog entry.
type Op struct {
	Name   string `json:"name"`
	Input  Shape  `json:"input"`
	Output Shape  `json:"output"`

	fn func(payload []byte) (any, error)
}

// Apply decodes payload, runs the operation and encodes the result.
func (o Op) Apply(payload []byte) (out []byte, err error) {
	defer func(start time.Time) { telemetry.ObserveTransform(o.Name, start, err) }(time.Now())

	res, err := o.fn(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %s expects %s: %v", ErrBadPayload, o.Name, o.Input, err)
	}
	return json.Marshal(res)
}

type element = int64

func listOp(name string, fn func([]element) []element) Op {
	return Op{Name: name, Input: ShapeList, Output: ShapeList, fn: func(b []byte) (any, error) {
		s, err := decodeList(b)
		if err != nil {
			return nil, err
		}
		return fn(s), nil
	}}
}

var catalog = map[string]Op{}

func register(ops ...Op) {
	for _, op := range ops {
		if _, dup := catalog[op.Name]; dup {
			panic("transform: duplicate op " + op.Name)
		}
		catalog[op.Name] = op
	}
}

func init() {
	register(
		listOp("identity_copy", seq.IdentityCopy[element]),
		listOp("square_all", seq.SquareAll[element]),
		listOp("filter_even", seq.FilterEven[element]),
		listOp("filter_div_by_3_or_5", seq.FilterDivBy3Or5[element]),
		listOp("square_filter_div_by_3_or_5", seq.SquareFilterDivBy3Or5[element]),
		listOp("double_even_triple_odd", seq.DoubleEvenTripleOdd[element]),
		listOp("square_of_squares", seq.SquareOfSquares[element]),
		Op{Name: "rows_shifted_by_index", Input: ShapeList, Output: ShapeMatrix, fn: func(b []byte) (any, error) {
			s, err := decodeList(b)
			if err != nil {
				return nil, err
			}
			if err := checkCells(len(s), len(s)); err != nil {
				return nil, err
			}
			return seq.RowsShiftedByIndex(s), nil
		}},
		Op{Name: "broadcast_rows", Input: ShapeList, Output: ShapeMatrix, fn: func(b []byte) (any, error) {
			s, err := decodeList(b)
			if err != nil {
				return nil, err
			}
			if err := checkCells(len(s), len(s)); err != nil {
				return nil, err
			}
			return seq.BroadcastRows(s), nil
		}},
		Op{Name: "cartesian_product", Input: ShapeListPair, Output: ShapePairs, fn: func(b []byte) (any, error) {
			a, c, err := decodeListPair(b)
			if err != nil {
				return nil, err
			}
			if err := checkCells(len(a), 2*len(c)); err != nil {
				return nil, err
			}
			return seq.CartesianProduct(a, c), nil
		}},
		Op{Name: "cartesian_product_filter_even_first", Input: ShapeListPair, Output: ShapePairs, fn: func(b []byte) (any, error) {
			a, c, err := decodeListPair(b)
			if err != nil {
				return nil, err
			}
			if err := checkCells(len(a), 2*len(c)); err != nil {
				return nil, err
			}
			return seq.CartesianProductFilterEvenFirst(a, c), nil
		}},
		Op{Name: "flatten", Input: ShapeMatrix, Output: ShapeList, fn: func(b []byte) (any, error) {
			m, err := decodeMatrix(b)
			if err != nil {
				return nil, err
			}
			return seq.Flatten(m), nil
		}},
		Op{Name: "range_up_to", Input: ShapeCount, Output: ShapeList, fn: func(b []byte) (any, error) {
			var n element
			if err := decodeStrict(b, &n); err != nil {
				return nil, err
			}
			if n > MaxOutputCells {
				return nil, fmt.Errorf("count %d exceeds %d", n, MaxOutputCells)
			}
			return seq.RangeUpTo(n), nil
		}},
	)
}

// Lookup returns the catalog entry called name.
func Lookup(name string) (Op, error) {
	op, ok := catalog[name]
	if !ok {
		return Op{}, fmt.Errorf("%w %q", ErrUnknownOp, name)
	}
	return op, nil
}

// Ops lists the catalog sorted by name.
func Ops() []Op {
	out := make([]Op, 0, len(catalog))
	for _, op := range catalog {
		out = append(out, op)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Apply runs the operation called name over payload.
func Apply(name string, payload []byte) ([]byte, error) {
	op, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	return op.Apply(payload)
}

/*──────── payload decoding ───────*/

var null = []byte("null")

func decodeStrict(b []byte, v any) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, null) {
		return errors.New("empty payload")
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("trailing data after payload")
	}
	return nil
}

func checkCells(rows, cols int) error {
	if rows > 0 && cols > MaxOutputCells/rows {
		return fmt.Errorf("result of %dx%d exceeds %d values", rows, cols, MaxOutputCells)
	}
	return nil
}

func decodeList(b []byte) ([]element, error) {
	var s []element
	if err := decodeStrict(b, &s); err != nil {
		return nil, err
	}
	return s, nil
}

func decodeMatrix(b []byte) ([][]element, error) {
	var m [][]element
	if err := decodeStrict(b, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeListPair(b []byte) ([]element, []element, error) {
	m, err := decodeMatrix(b)
	if err != nil {
		return nil, nil, err
	}
	if len(m) != 2 {
		return nil, nil, fmt.Errorf("want 2 lists, got %d", len(m))
	}
	return m[0], m[1], nil
}
