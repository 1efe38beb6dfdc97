package satreduce

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsSatisfiable(t *testing.T) {
	for _, tt := range []struct {
		clauses [][]int
		want    bool
	}{
		{[][]int{}, true},
		{[][]int{{1}}, true},
		{[][]int{{}}, false},
		{[][]int{{1}, {}}, false},
		{[][]int{{1}, {-1}}, false},
		{[][]int{{1, 2}, {-1, 2}, {1, -2}, {-1, -2}}, false},
		{[][]int{{-1, 2}, {-2, 3}, {1}}, true},
	} {
		t.Run(fmt.Sprint(tt.clauses), func(t *testing.T) {
			require.Equal(t, tt.want, IsSatisfiable(tt.clauses))
		})
	}
}

func TestFindSolutionIsValid(t *testing.T) {
	for seed := int64(0); seed < 100; seed++ {
		t.Run(fmt.Sprintf("seed=%d", seed), func(t *testing.T) {
			clauses, _ := genSatWithAssignment(rand.New(rand.NewSource(seed)))
			sol, ok := FindSolution(clauses)
			require.True(t, ok)
			require.True(t, solutionIsValid(clauses, sol),
				"%v is not a solution of %v", sol, clauses)
		})
	}
}

func TestFindSolutionEmptyFormula(t *testing.T) {
	sol, ok := FindSolution(nil)
	require.True(t, ok)
	require.Empty(t, sol)
}

func solutionIsValid(clauses [][]int, soln []int) bool {
	assigned := make(map[int]bool)
	for _, l := range soln {
		assigned[l] = true
		assigned[-l] = false
	}
clauseLoop:
	for _, clause := range clauses {
		for _, l := range clause {
			if assigned[l] {
				continue clauseLoop
			}
		}
		return false
	}
	return true
}
