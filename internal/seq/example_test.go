package seq_test

import (
	"fmt"

	"seqx/internal/seq"
)

func ExampleSquareFilterDivBy3Or5() {
	fmt.Println(seq.SquareFilterDivBy3Or5([]int{1, 2, 3, 4, 5, 6}))
	// Output: [9 25 36]
}

func ExampleRowsShiftedByIndex() {
	fmt.Println(seq.RowsShiftedByIndex([]int{1, 2}))
	// Output: [[1 2] [2 3]]
}

func ExampleCartesianProduct() {
	fmt.Println(seq.CartesianProduct([]int{1, 2}, []int{3, 4}))
	// Output: [(1, 3) (1, 4) (2, 3) (2, 4)]
}

func ExampleBroadcastRows() {
	fmt.Println(seq.BroadcastRows([]int{1, 2, 3}))
	// Output: [[1 1 1] [2 2 2] [3 3 3]]
}

func ExampleFlatten() {
	fmt.Println(seq.Flatten([][]int{{1, 2, 3}, {4, 5, 6}, {7, 8, 9}}))
	// Output: [1 2 3 4 5 6 7 8 9]
}

func ExampleRangeUpTo() {
	fmt.Println(seq.RangeUpTo(5), seq.RangeUpTo(0))
	// Output: [0 1 2 3 4] []
}
