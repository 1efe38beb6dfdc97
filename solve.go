package satreduce

import (
	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
)

// satisfiable and unsatisfiable are the gini solve outcomes; anything
// else means the solver gave up, which cannot happen without a limit.
const (
	satisfiable   = 1
	unsatisfiable = -1
)

// IsSatisfiable reports whether the formula has a model. The empty
// formula is satisfiable; a formula containing an empty clause is not.
func IsSatisfiable(clauses [][]int) bool {
	_, ok := FindSolution(clauses)
	return ok
}

// FindSolution returns a satisfying assignment as a list of literals,
// one per variable in [1, max |literal|], or ok == false if the formula
// is unsatisfiable.
func FindSolution(clauses [][]int) (solution []int, ok bool) {
	if len(clauses) == 0 {
		return []int{}, true
	}
	maxVar := 0
	for _, clause := range clauses {
		if len(clause) == 0 {
			return nil, false
		}
		for _, l := range clause {
			if v := abs(l); v > maxVar {
				maxVar = v
			}
		}
	}

	g := gini.New()
	for _, clause := range clauses {
		for _, l := range clause {
			g.Add(z.Dimacs2Lit(l))
		}
		g.Add(z.LitNull)
	}
	switch g.Solve() {
	case satisfiable:
	case unsatisfiable:
		return nil, false
	default:
		panic("unbounded solve returned neither sat nor unsat")
	}

	solution = make([]int, maxVar)
	for v := 1; v <= maxVar; v++ {
		if g.Value(z.Dimacs2Lit(v)) {
			solution[v-1] = v
		} else {
			solution[v-1] = -v
		}
	}
	return solution, true
}
