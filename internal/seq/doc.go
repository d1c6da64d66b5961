/*
Package seq implements element-wise transforms over integer sequences:
mapping, filtering, nested iteration, flattening and cartesian products.

Every function is pure. Arguments are read, never written, and every result
is a freshly allocated slice whose backing array is not shared with any
argument, even when the values are identical:

	in := []int{1, 2, 3}
	out := seq.IdentityCopy(in)
	out[0] = 42 // in[0] is still 1

Results are never nil. An empty input yields an empty, non-nil slice so that
encoders render it as an empty list.

Arithmetic follows the element type and wraps on overflow.
*/
package seq
