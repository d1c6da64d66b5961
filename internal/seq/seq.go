package seq

import "golang.org/x/exp/constraints"

// IdentityCopy returns a copy of s with the same values in the same order.
func IdentityCopy[T any](s []T) []T {
	out := make([]T, len(s))
	copy(out, s)
	return out
}

// SquareAll returns x*x for every x in s.
func SquareAll[T constraints.Integer](s []T) []T {
	return mapSlice(s, square[T])
}

// FilterEven returns the elements of s divisible by 2.
func FilterEven[T constraints.Integer](s []T) []T {
	return filterSlice(s, isEven[T])
}

// FilterDivBy3Or5 returns the elements of s divisible by 3 or by 5.
func FilterDivBy3Or5[T constraints.Integer](s []T) []T {
	return filterSlice(s, divBy3Or5[T])
}

// SquareFilterDivBy3Or5 keeps the elements of s divisible by 3 or by 5 and
// squares them.
func SquareFilterDivBy3Or5[T constraints.Integer](s []T) []T {
	out := make([]T, 0, len(s))
	for _, x := range s {
		if divBy3Or5(x) {
			out = append(out, x*x)
		}
	}
	return out
}

// DoubleEvenTripleOdd doubles even elements and triples odd ones.
func DoubleEvenTripleOdd[T constraints.Integer](s []T) []T {
	return mapSlice(s, func(x T) T {
		if isEven(x) {
			return x * 2
		}
		return x * 3
	})
}

// SquareOfSquares squares every element of s, then squares the result again.
func SquareOfSquares[T constraints.Integer](s []T) []T {
	return mapSlice(mapSlice(s, square[T]), square[T])
}

// RowsShiftedByIndex returns len(s) rows. Row i holds every element of s
// increased by i.
func RowsShiftedByIndex[T constraints.Integer](s []T) [][]T {
	out := make([][]T, len(s))
	for i := range s {
		shift := T(i)
		out[i] = mapSlice(s, func(y T) T { return y + shift })
	}
	return out
}

// CartesianProduct returns every (x, y) with x from a and y from b, iterating
// a in the outer loop.
func CartesianProduct[T any](a, b []T) []Pair[T, T] {
	out := make([]Pair[T, T], 0, len(a)*len(b))
	for _, x := range a {
		for _, y := range b {
			out = append(out, MakePair(x, y))
		}
	}
	return out
}

// CartesianProductFilterEvenFirst is CartesianProduct restricted to pairs
// whose first element is even.
func CartesianProductFilterEvenFirst[T constraints.Integer](a, b []T) []Pair[T, T] {
	out := make([]Pair[T, T], 0, len(a)*len(b))
	for _, x := range a {
		if !isEven(x) {
			continue
		}
		for _, y := range b {
			out = append(out, MakePair(x, y))
		}
	}
	return out
}

// BroadcastRows returns one row per element x of s. Each row has len(s)
// cells, all equal to x.
func BroadcastRows[T any](s []T) [][]T {
	out := make([][]T, len(s))
	for i, x := range s {
		row := make([]T, len(s))
		for j := range row {
			row[j] = x
		}
		out[i] = row
	}
	return out
}

// Flatten concatenates the inner slices of s in order.
func Flatten[T any](s [][]T) []T {
	n := 0
	for _, inner := range s {
		n += len(inner)
	}
	out := make([]T, 0, n)
	for _, inner := range s {
		out = append(out, inner...)
	}
	return out
}

// RangeUpTo returns 0, 1, ..., n-1. The result is empty when n <= 0.
func RangeUpTo[T constraints.Integer](n T) []T {
	if n <= 0 {
		return make([]T, 0)
	}
	out := make([]T, n)
	for i := range out {
		out[i] = T(i)
	}
	return out
}

func square[T constraints.Integer](x T) T { return x * x }

func isEven[T constraints.Integer](x T) bool { return x%2 == 0 }

func divBy3Or5[T constraints.Integer](x T) bool { return x%3 == 0 || x%5 == 0 }

func mapSlice[T, R any](s []T, fn func(T) R) []R {
	out := make([]R, len(s))
	for i, v := range s {
		out[i] = fn(v)
	}
	return out
}

func filterSlice[T any](s []T, keep func(T) bool) []T {
	out := make([]T, 0, len(s))
	for _, v := range s {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}
