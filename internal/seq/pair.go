package seq

import (
	"encoding/json"
	"fmt"
)

// Pair holds one element from each side of a cartesian product.
type Pair[A, B any] struct {
	First  A
	Second B
}

// MakePair returns Pair{First: a, Second: b}.
func MakePair[A, B any](a A, b B) Pair[A, B] {
	return Pair[A, B]{First: a, Second: b}
}

// String renders the pair as "(first, second)".
func (p Pair[A, B]) String() string {
	return fmt.Sprintf("(%v, %v)", p.First, p.Second)
}

// MarshalJSON encodes the pair as a two element array.
func (p Pair[A, B]) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{p.First, p.Second})
}

// UnmarshalJSON decodes a two element array into the pair.
func (p *Pair[A, B]) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 2 {
		return fmt.Errorf("pair: want 2 elements, got %d", len(raw))
	}
	if err := json.Unmarshal(raw[0], &p.First); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &p.Second)
}
