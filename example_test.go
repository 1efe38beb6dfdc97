package satreduce_test

import (
	"fmt"

	"github.com/satreduce/satreduce"
)

func ExampleShrinkSAT() {
	// Suppose any formula that still contains a clause reproduces the
	// behaviour we are chasing.
	interesting := func(clauses [][]int) (bool, error) {
		for _, c := range clauses {
			if len(c) > 0 {
				return true, nil
			}
		}
		return false, nil
	}

	result, err := satreduce.ShrinkSAT([][]int{{1, 2, 3}, {-2, 4}}, interesting)
	if err != nil {
		fmt.Println("shrink failed:", err)
		return
	}
	fmt.Println(result)
	// Output: [[1]]
}

func ExampleNewReducedSatProblem() {
	// (x1) ∧ (¬x1 ∨ ¬x2): propagation forces x1 true and then x2 false.
	problem, err := satreduce.NewReducedSatProblem([][]int{{1}, {-1, -2}})
	if err != nil {
		fmt.Println("inconsistent:", err)
		return
	}
	v1, _ := problem.ForcedValue(1)
	v2, _ := problem.ForcedValue(2)
	fmt.Println(v1, v2, len(problem.Core))
	// Output: true false 0
}
