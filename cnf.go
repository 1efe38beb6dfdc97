package satreduce

import "sort"

// Canonicalise puts a formula into its canonical form: within each clause
// the literals are deduplicated and sorted by value, tautological clauses
// (those containing both v and -v) are dropped, and the clause list itself
// is deduplicated and sorted by (length, literals).
//
// Canonical formulas are the only ones compared for equality or handed to
// the oracle. The oracle cache keys both the raw and the canonical form of
// each candidate.
func Canonicalise(clauses [][]int) [][]int {
	canon := make([][]int, 0, len(clauses))
	for _, clause := range clauses {
		c, tautology := normaliseClause(clause)
		if tautology {
			continue
		}
		canon = append(canon, c)
	}
	sort.Slice(canon, func(i, j int) bool {
		return clauseLess(canon[i], canon[j])
	})
	j := 0
	for _, c := range canon {
		if j > 0 && clausesEqual(canon[j-1], c) {
			continue
		}
		canon[j] = c
		j++
	}
	return canon[:j]
}

// normaliseClause returns a sorted copy of clause with duplicate literals
// removed, and reports whether the clause is a tautology (contains some
// literal together with its negation).
func normaliseClause(clause []int) ([]int, bool) {
	seen := make(map[int]struct{}, len(clause))
	tautology := false
	c := make([]int, 0, len(clause))
	for _, l := range clause {
		if l == 0 {
			panic("zero literal in clause")
		}
		if _, ok := seen[l]; ok {
			continue
		}
		if _, ok := seen[-l]; ok {
			tautology = true
		}
		seen[l] = struct{}{}
		c = append(c, l)
	}
	sort.Ints(c)
	return c, tautology
}

func clauseLess(a, b []int) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func clausesEqual(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func cnfEqual(a, b [][]int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !clausesEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

func cloneCNF(clauses [][]int) [][]int {
	out := make([][]int, len(clauses))
	for i, c := range clauses {
		out[i] = append([]int(nil), c...)
	}
	return out
}

// variables returns the distinct variables mentioned by the formula in
// ascending order.
func variables(clauses [][]int) []int {
	seen := make(map[int]struct{})
	for _, c := range clauses {
		for _, l := range c {
			seen[abs(l)] = struct{}{}
		}
	}
	vars := make([]int, 0, len(seen))
	for v := range seen {
		vars = append(vars, v)
	}
	sort.Ints(vars)
	return vars
}

// literalsByFrequency returns every literal of the formula ordered by how
// often it occurs, most frequent first. Ties break toward the smaller
// literal so the order is stable run to run.
func literalsByFrequency(clauses [][]int) []int {
	counts := make(map[int]int)
	for _, c := range clauses {
		for _, l := range c {
			counts[l]++
		}
	}
	lits := make([]int, 0, len(counts))
	for l := range counts {
		lits = append(lits, l)
	}
	sort.Slice(lits, func(i, j int) bool {
		if counts[lits[i]] != counts[lits[j]] {
			return counts[lits[i]] > counts[lits[j]]
		}
		return lits[i] < lits[j]
	})
	return lits
}

func meanClauseLength(clauses [][]int) float64 {
	if len(clauses) == 0 {
		return 0
	}
	var total int
	for _, c := range clauses {
		total += len(c)
	}
	return float64(total) / float64(len(clauses))
}

// shrinkLess reports whether a strictly precedes b in the shrink order:
// the lexicographic comparison of (variable count, clause count, mean
// clause length, clause signatures). Both formulas must be canonical.
func shrinkLess(a, b [][]int) bool {
	if av, bv := len(variables(a)), len(variables(b)); av != bv {
		return av < bv
	}
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	if am, bm := meanClauseLength(a), meanClauseLength(b); am != bm {
		return am < bm
	}
	for i := range a {
		if c := compareSignatures(a[i], b[i]); c != 0 {
			return c < 0
		}
	}
	return false
}

// compareSignatures orders two clauses by their signature vectors, where
// each literal is viewed as the pair (|literal|, literal < 0).
func compareSignatures(a, b []int) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if av, bv := abs(a[i]), abs(b[i]); av != bv {
			if av < bv {
				return -1
			}
			return 1
		}
		if an, bn := a[i] < 0, b[i] < 0; an != bn {
			if bn {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
