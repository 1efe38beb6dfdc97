package satreduce

import (
	"maps"
	"sort"

	"github.com/hashicorp/go-set/v3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// ReducedSatProblem is the canonical reduced form of a CNF formula:
// unit-propagated assignments, variable equivalences discovered by
// collapsing cycles of the binary-clause implication graph, and the
// residual clauses with every literal rewritten to its representative.
//
// A ReducedSatProblem is immutable once built. The exported fields are
// for reading; use WithExtraClauses to derive a new problem.
type ReducedSatProblem struct {
	// Merges holds the variable equivalences, with sign.
	Merges *BooleanEquivalence
	// Forced maps variables to their propagated assignments.
	Forced map[int]bool
	// Free holds the variables that remain undetermined after
	// reduction (canonical representatives only).
	Free *set.Set[int]
	// Core holds the residual clauses in canonical form. No clause has
	// fewer than two literals, mentions a forced variable, or contains
	// a literal that is not its own representative.
	Core [][]int
	// Implications is the binary-clause implication graph. Nodes are
	// literals; each binary clause (a, b) contributes the edges -a → b
	// and -b → a. After reduction every strongly connected component
	// is a singleton, and both polarities of every free variable are
	// present as nodes.
	Implications *simple.DirectedGraph

	changed bool
}

// NewReducedSatProblem reduces clauses to their canonical reduced form.
// It fails with ErrInconsistency if propagation alone proves the input
// unsatisfiable.
func NewReducedSatProblem(clauses [][]int) (*ReducedSatProblem, error) {
	p := &ReducedSatProblem{
		Merges:       NewBooleanEquivalence(),
		Forced:       make(map[int]bool),
		Free:         set.New[int](16),
		Core:         cloneCNF(clauses),
		Implications: simple.NewDirectedGraph(),
	}
	for _, clause := range clauses {
		for _, l := range clause {
			p.Free.Insert(abs(l))
		}
	}
	if err := p.reduce(); err != nil {
		return nil, err
	}
	return p, nil
}

// WithExtraClauses returns the reduced form of the receiver's clauses
// plus extra. The receiver is never modified.
func (p *ReducedSatProblem) WithExtraClauses(extra [][]int) (*ReducedSatProblem, error) {
	child := &ReducedSatProblem{
		Merges:       p.Merges.Copy(),
		Forced:       maps.Clone(p.Forced),
		Free:         set.From(p.Free.Slice()),
		Core:         append(cloneCNF(p.Core), cloneCNF(extra)...),
		Implications: simple.NewDirectedGraph(),
	}
	if err := child.reduce(); err != nil {
		return nil, err
	}
	return child, nil
}

// ForcedValue reports the propagated assignment of literal, if any. The
// literal is first rewritten to its representative, so every member of a
// forced equivalence class answers consistently.
func (p *ReducedSatProblem) ForcedValue(literal int) (value, ok bool) {
	l := p.Merges.Find(literal)
	v, ok := p.Forced[abs(l)]
	if !ok {
		return false, false
	}
	return v != (l < 0), true
}

func (p *ReducedSatProblem) force(literal int) error {
	l := p.Merges.Find(literal)
	variable, value := abs(l), l > 0
	if existing, ok := p.Forced[variable]; ok {
		if existing != value {
			return errors.Wrapf(ErrInconsistency,
				"attempted to force %d=%t but it is already %t", variable, value, existing)
		}
		return nil
	}
	p.changed = true
	p.Forced[variable] = value
	return nil
}

func (p *ReducedSatProblem) merge(a, b int) error {
	// Resolve to the current representatives first: any forced value in
	// either class lives on its representative, not necessarily on the
	// literal we were handed (chained merges move representatives).
	a, b = p.Merges.Find(a), p.Merges.Find(b)
	if a == b {
		return nil
	}
	p.changed = true
	if err := p.Merges.Merge(a, b); err != nil {
		return err
	}
	// Forced values travel with the merge so the representative of the
	// combined class always carries the assignment.
	for _, c := range [2]int{a, b} {
		variable := abs(c)
		value, ok := p.Forced[variable]
		if !ok {
			continue
		}
		lit := variable
		if !value {
			lit = -variable
		}
		if err := p.force(lit); err != nil {
			return err
		}
	}
	return nil
}

// rewrite maps every literal of clause to its representative, then
// deduplicates and sorts.
func (p *ReducedSatProblem) rewrite(clause []int) []int {
	seen := make(map[int]struct{}, len(clause))
	out := make([]int, 0, len(clause))
	for _, l := range clause {
		l = p.Merges.Find(l)
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Ints(out)
	return out
}

// reduce runs the simplification fixed point: propagate forced
// variables through every clause, record new units and binary-clause
// implications, collapse every multi-node SCC of the implication graph
// into a single equivalence class, and repeat until nothing moves.
func (p *ReducedSatProblem) reduce() error {
	var prev [][]int
	for first := true; first || !cnfEqual(prev, p.Core) || p.changed; first = false {
		p.changed = false
		prev = p.Core

		newCore := make([][]int, 0, len(p.Core))
		p.Implications = simple.NewDirectedGraph()

		for _, clause := range p.Core {
			c := p.rewrite(clause)

			kept := make([]int, 0, len(c))
			satisfied := false
			for _, l := range c {
				variable, value := abs(l), l > 0
				if forced, ok := p.Forced[variable]; ok {
					if forced == value {
						satisfied = true
						break
					}
					continue
				}
				kept = append(kept, l)
			}
			if satisfied {
				continue
			}
			if len(kept) == 0 {
				return errors.Wrapf(ErrInconsistency, "all literals in %v are unsatisfied", c)
			}

			c = p.rewrite(kept)
			if clauseHasBothPolarities(c) {
				continue
			}
			if len(c) == 1 {
				if err := p.force(c[0]); err != nil {
					return err
				}
				continue
			}
			if len(c) == 2 {
				addImplication(p.Implications, -c[0], c[1])
				addImplication(p.Implications, -c[1], c[0])
			}
			newCore = append(newCore, c)
		}

		p.Core = Canonicalise(newCore)

		for _, component := range topo.TarjanSCC(p.Implications) {
			if len(component) <= 1 {
				continue
			}
			values := make(map[bool]struct{}, 2)
			for _, node := range component {
				if v, ok := p.Forced[p.Merges.Find(int(node.ID()))]; ok {
					values[v] = struct{}{}
				}
			}
			if len(values) > 1 {
				return errors.Wrapf(ErrInconsistency,
					"attempted to merge %v with inconsistent assigned values", nodeIDs(component))
			}
			target := int(component[0].ID())
			for _, node := range component[1:] {
				if err := p.merge(target, int(node.ID())); err != nil {
					return err
				}
			}
		}
	}

	free := set.New[int](p.Free.Size())
	for _, v := range p.Free.Slice() {
		if _, forced := p.Forced[v]; !forced && p.Merges.Find(v) == v {
			free.Insert(v)
		}
	}
	p.Free = free
	// Free literals participate in the graph even when no binary clause
	// mentions them, so consumers can range over every live literal.
	for _, v := range free.Slice() {
		addNode(p.Implications, v)
		addNode(p.Implications, -v)
	}
	return nil
}

// clauseHasBothPolarities reports whether a rewritten, deduplicated
// clause mentions some variable twice, which after deduplication means
// once per sign: a tautology.
func clauseHasBothPolarities(clause []int) bool {
	vars := make(map[int]struct{}, len(clause))
	for _, l := range clause {
		vars[abs(l)] = struct{}{}
	}
	return len(vars) < len(clause)
}

func addImplication(g *simple.DirectedGraph, from, to int) {
	g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
}

func addNode(g *simple.DirectedGraph, id int) {
	if g.Node(int64(id)) == nil {
		g.AddNode(simple.Node(id))
	}
}

func nodeIDs(nodes []graph.Node) []int {
	ids := make([]int, len(nodes))
	for i, n := range nodes {
		ids[i] = int(n.ID())
	}
	sort.Ints(ids)
	return ids
}
