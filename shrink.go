// Package satreduce shrinks CNF formulas with respect to an arbitrary
// predicate: given clauses for which the predicate holds, it searches for
// a formula with fewer variables, fewer clauses, and fewer literals for
// which the predicate still holds. It is delta debugging for SAT inputs.
//
// The predicate (the oracle) is treated as a black box. Reduction is a
// sequence of passes that propose candidate formulas; candidates the
// oracle accepts replace the current formula whenever they are strictly
// smaller in the shrink order. Several passes lean on ReducedSatProblem,
// a canonical reduced form computed by unit propagation and equivalence
// merging over the binary-clause implication graph.
package satreduce

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-set/v3"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/kr/pretty"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Oracle is the predicate driving a shrink. It always receives canonical
// formulas. It must be deterministic with respect to its argument; any
// error aborts the shrink and is never cached.
type Oracle func(clauses [][]int) (bool, error)

// cacheSize bounds the oracle memo cache. Entries are monotone, so
// eviction only ever costs a repeated oracle call.
const cacheSize = 1 << 20

// Option configures a Shrinker.
type Option func(*Shrinker)

// WithLogger routes the shrinker's debug output through log.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Shrinker) { s.log = log }
}

// WithParallelism allows up to p concurrent speculative oracle calls
// while scanning for the next accepted candidate. Values below 2 keep
// the shrinker fully sequential.
func WithParallelism(p int) Option {
	return func(s *Shrinker) {
		if p < 1 {
			p = 1
		}
		s.parallelism = p
	}
}

// Shrinker drives the reduction of a single formula. The zero value is
// unusable; construct with NewShrinker.
type Shrinker struct {
	oracle      Oracle
	log         logrus.FieldLogger
	parallelism int
	cache       *lru.Cache[string, bool]

	mu       sync.Mutex
	current  [][]int
	onReduce []func(clauses [][]int) error
}

// ShrinkSAT reduces clauses as far as the oracle allows and returns the
// final formula in canonical form.
func ShrinkSAT(clauses [][]int, oracle Oracle, opts ...Option) ([][]int, error) {
	s, err := NewShrinker(clauses, oracle, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Reduce(); err != nil {
		return nil, err
	}
	return s.Current(), nil
}

// NewShrinker canonicalises initial and checks it against the oracle.
// An initial formula the oracle rejects is an error.
func NewShrinker(initial [][]int, oracle Oracle, opts ...Option) (*Shrinker, error) {
	cache, err := lru.New[string, bool](cacheSize)
	if err != nil {
		return nil, err
	}
	s := &Shrinker{
		oracle:      oracle,
		log:         logrus.New(),
		parallelism: 1,
		cache:       cache,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current = Canonicalise(initial)
	ok, err := s.testFunction(s.current)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("initial argument does not satisfy the test")
	}
	return s, nil
}

// Current returns the smallest accepted formula so far, in canonical
// form.
func (s *Shrinker) Current() [][]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneCNF(s.current)
}

// OnReduce registers fn to be called with each newly accepted formula.
// Callbacks run while the shrinker holds its internal lock; an error
// aborts the shrink.
func (s *Shrinker) OnReduce(fn func(clauses [][]int) error) {
	s.onReduce = append(s.onReduce, fn)
}

// Reduce applies the reduction passes repeatedly until a full sweep
// leaves the formula unchanged.
func (s *Shrinker) Reduce() error {
	passes := []struct {
		name string
		fn   func() error
	}{
		{"delete clauses", s.deleteClauses},
		{"delete literals", s.deleteLiterals},
		{"force literals", s.forceLiterals},
		{"delete literals from clauses", s.deleteLiteralsFromClauses},
		{"merge variables", s.mergeVariables},
	}
	var prev [][]int
	for first := true; first || !cnfEqual(prev, s.current); first = false {
		prev = s.current
		if err := s.housekeeping(); err != nil {
			return err
		}
		for _, pass := range passes {
			if err := s.runPass(pass.name, pass.fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// runPass runs one reduction pass and, if it moved the formula, the
// housekeeping passes right after, so later passes start from whatever
// core, component and renumbering the oracle accepted.
func (s *Shrinker) runPass(name string, fn func() error) error {
	s.log.Debugf("pass: %s", name)
	prev := s.current
	if err := fn(); err != nil {
		return err
	}
	if !cnfEqual(prev, s.current) {
		return s.housekeeping()
	}
	return nil
}

func (s *Shrinker) housekeeping() error {
	if err := s.replaceWithCore(); err != nil {
		return err
	}
	if err := s.moveToComponents(); err != nil {
		return err
	}
	return s.renumberVariables()
}

// testFunction is the sole gateway to the oracle: it memoises by
// fingerprint (of both the raw and the canonical candidate), and installs
// accepted candidates as current when they are strictly smaller in the
// shrink order, notifying subscribers.
func (s *Shrinker) testFunction(clauses [][]int) (bool, error) {
	rawKey := cacheKey(clauses)
	if v, ok := s.cache.Get(rawKey); ok {
		return v, nil
	}
	canon := Canonicalise(clauses)
	canonKey := cacheKey(canon)
	if v, ok := s.cache.Get(canonKey); ok {
		s.cache.Add(rawKey, v)
		return v, nil
	}
	result, err := s.oracle(canon)
	if err != nil {
		return false, err
	}
	if result {
		if err := s.accept(canon); err != nil {
			return false, err
		}
	}
	s.cache.Add(rawKey, result)
	s.cache.Add(canonKey, result)
	return result, nil
}

func (s *Shrinker) accept(canon [][]int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !shrinkLess(canon, s.current) {
		return nil
	}
	s.current = canon
	s.log.Debugf("shrunk to %d clauses over %d variables", len(canon), len(variables(canon)))
	for _, fn := range s.onReduce {
		if err := fn(canon); err != nil {
			return err
		}
	}
	return nil
}

// cacheKey fingerprints a clause list as
// "{clause count}:{serialised length}:{first 8 hex of sha1}".
func cacheKey(clauses [][]int) string {
	r := fmt.Sprintf("%v", clauses)
	digest := sha1.Sum([]byte(r))
	return fmt.Sprintf("%d:%d:%s", len(clauses), len(r), hex.EncodeToString(digest[:4]))
}

// replaceWithCore proposes the reduced form of the current formula.
func (s *Shrinker) replaceWithCore() error {
	problem, err := NewReducedSatProblem(s.current)
	if errors.Is(err, ErrInconsistency) {
		return nil
	}
	if err != nil {
		return err
	}
	s.log.Debugf("reduced problem: %# v", pretty.Formatter(problem.Core))
	_, err = s.proposeReduced(problem)
	return err
}

// proposeReduced submits up to three encodings of a reduced problem: the
// bare core, the core plus unit clauses for the forced variables, and
// that plus binary clauses re-encoding the equivalence classes. The
// first accepted candidate wins.
func (s *Shrinker) proposeReduced(p *ReducedSatProblem) (bool, error) {
	core := p.Core

	withUnits := cloneCNF(core)
	for _, l := range forcedLiterals(p.Forced) {
		withUnits = append(withUnits, []int{l})
	}

	withMerges := cloneCNF(withUnits)
	for _, class := range p.Merges.Partitions() {
		if len(class) < 2 {
			continue
		}
		rep := p.Merges.Find(class[0])
		if rep < 0 {
			// The mirror class supplies the same clauses.
			continue
		}
		for _, m := range class {
			if m == rep {
				continue
			}
			withMerges = append(withMerges, []int{-m, rep}, []int{m, -rep})
		}
	}

	for _, candidate := range [][][]int{core, withUnits, withMerges} {
		ok, err := s.testFunction(candidate)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// forcedLiterals renders a forced-assignment map as unit literals in
// ascending variable order.
func forcedLiterals(forced map[int]bool) []int {
	vars := make([]int, 0, len(forced))
	for v := range forced {
		vars = append(vars, v)
	}
	sort.Ints(vars)
	lits := make([]int, len(vars))
	for i, v := range vars {
		if forced[v] {
			lits[i] = v
		} else {
			lits[i] = -v
		}
	}
	return lits
}

// moveToComponents partitions the variables into co-occurrence
// components and proposes the clauses of each component on its own,
// smallest component first, stopping at the first acceptance.
func (s *Shrinker) moveToComponents() error {
	merges := NewBooleanEquivalence()
	for _, clause := range s.current {
		vars := make([]int, len(clause))
		for i, l := range clause {
			vars[i] = abs(l)
		}
		if err := merges.MergeAll(vars); err != nil {
			return err
		}
	}

	var components [][]int
	for _, class := range merges.Partitions() {
		if class[0] > 0 {
			components = append(components, class)
		}
	}
	if len(components) <= 1 {
		return nil
	}
	sortComponents(components)

	for _, component := range components {
		in := set.From(component)
		var attempt [][]int
		for _, clause := range s.current {
			for _, l := range clause {
				if in.Contains(abs(l)) {
					attempt = append(attempt, clause)
					break
				}
			}
		}
		ok, err := s.testFunction(attempt)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return nil
}

// renumberVariables proposes the formula with variables renamed to 1..n
// in order of first appearance. The literal through which a variable
// first appears becomes positive, so a variable first seen negated has
// its polarity flipped throughout. The oracle is free to refuse (it may
// care about variable names); refusal just keeps the old numbering.
func (s *Shrinker) renumberVariables() error {
	renumbering := make(map[int]int)
	renumber := func(l int) int {
		if r, ok := renumbering[l]; ok {
			return r
		}
		if r, ok := renumbering[-l]; ok {
			return -r
		}
		r := len(renumbering) + 1
		renumbering[l] = r
		return r
	}
	renumbered := make([][]int, len(s.current))
	for i, clause := range s.current {
		nc := make([]int, len(clause))
		for j, l := range clause {
			nc[j] = renumber(l)
		}
		renumbered[i] = nc
	}
	_, err := s.testFunction(renumbered)
	return err
}

// deleteClauses deletes accepted clauses, extending each hit into the
// longest deletable run of consecutive clauses. It walks the clause list
// in reverse so clauses late in canonical order (the large ones, which
// tend to be derivable) go first.
func (s *Shrinker) deleteClauses() error {
	i := 0
	for {
		clauses := reverseCNF(s.current)
		if i >= len(clauses) {
			return nil
		}
		off, err := s.findFirst(len(clauses)-i, func(k int) (bool, error) {
			return s.testFunction(deleteRun(clauses, i+k, 1))
		})
		if errors.Is(err, errNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		j := i + off
		if _, err := findInteger(func(k int) (bool, error) {
			if j+k > len(clauses) {
				return false, nil
			}
			return s.testFunction(deleteRun(clauses, j, k))
		}); err != nil {
			return err
		}
		i = j + 1
	}
}

// deleteLiterals removes single literals from the whole formula, most
// frequent literal first.
func (s *Shrinker) deleteLiterals() error {
	lits := literalsByFrequency(s.current)
	i := 0
	for i < len(lits) {
		// Snapshot so concurrent probes all speculate against the same
		// formula; an acceptance mid-chunk is arbitrated by accept.
		cur := s.current
		off, err := s.findFirst(len(lits)-i, func(k int) (bool, error) {
			return s.testFunction(removeLiteral(cur, lits[i+k]))
		})
		if errors.Is(err, errNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		i += off + 1
	}
	return nil
}

// forceLiterals pins single literals true via the reduced form: each
// candidate is the reduced problem of current plus a unit clause,
// submitted through the same three-way proposal as replaceWithCore.
func (s *Shrinker) forceLiterals() error {
	lits := literalsByFrequency(s.current)
	base := s.current
	problem, err := NewReducedSatProblem(base)
	if errors.Is(err, ErrInconsistency) {
		return nil
	}
	if err != nil {
		return err
	}
	for _, l := range lits {
		if !cnfEqual(base, s.current) {
			base = s.current
			problem, err = NewReducedSatProblem(base)
			if errors.Is(err, ErrInconsistency) {
				return nil
			}
			if err != nil {
				return err
			}
		}
		child, err := problem.WithExtraClauses([][]int{{l}})
		if errors.Is(err, ErrInconsistency) {
			continue
		}
		if err != nil {
			return err
		}
		if _, err := s.proposeReduced(child); err != nil {
			return err
		}
	}
	return nil
}

// deleteLiteralsFromClauses tries to shorten each clause one literal at
// a time, staying on a clause while removals keep being accepted. The
// last literal of a clause is never a candidate.
func (s *Shrinker) deleteLiteralsFromClauses() error {
	i, j := 0, 0
	for i < len(s.current) {
		clause := s.current[i]
		if len(clause) <= 1 || j >= len(clause) {
			i++
			j = 0
			continue
		}
		attempt := cloneCNF(s.current)
		attempt[i] = append(attempt[i][:j], attempt[i][j+1:]...)
		ok, err := s.testFunction(attempt)
		if err != nil {
			return err
		}
		if !ok {
			j++
		}
	}
	return nil
}

// mergeVariables identifies pairs of variables, substituting the later
// variable (with sign) by the earlier throughout the formula.
func (s *Shrinker) mergeVariables() error {
	i, j := 0, 1
	for {
		vars := variables(s.current)
		if j >= len(vars) {
			i++
			j = i + 1
		}
		if j >= len(vars) {
			return nil
		}
		target, replaced := vars[i], vars[j]
		attempt := make([][]int, len(s.current))
		for k, clause := range s.current {
			nc := make([]int, len(clause))
			for m, l := range clause {
				switch l {
				case replaced:
					nc[m] = target
				case -replaced:
					nc[m] = -target
				default:
					nc[m] = l
				}
			}
			attempt[k] = nc
		}
		ok, err := s.testFunction(attempt)
		if err != nil {
			return err
		}
		if !ok {
			j++
		}
	}
}

func reverseCNF(clauses [][]int) [][]int {
	out := make([][]int, len(clauses))
	for i, c := range clauses {
		out[len(clauses)-1-i] = c
	}
	return out
}

// deleteRun returns clauses without the k entries starting at index at.
func deleteRun(clauses [][]int, at, k int) [][]int {
	out := make([][]int, 0, len(clauses)-k)
	out = append(out, clauses[:at]...)
	out = append(out, clauses[at+k:]...)
	return out
}

// removeLiteral returns clauses with every occurrence of l removed;
// clauses left empty by the removal are dropped.
func removeLiteral(clauses [][]int, l int) [][]int {
	out := make([][]int, 0, len(clauses))
	for _, clause := range clauses {
		nc := make([]int, 0, len(clause))
		for _, m := range clause {
			if m != l {
				nc = append(nc, m)
			}
		}
		if len(nc) > 0 {
			out = append(out, nc)
		}
	}
	return out
}

// sortComponents orders variable components by size ascending, ties
// broken by smallest member, so the probing order is deterministic.
func sortComponents(components [][]int) {
	sort.SliceStable(components, func(i, j int) bool {
		if len(components[i]) != len(components[j]) {
			return len(components[i]) < len(components[j])
		}
		return components[i][0] < components[j][0]
	})
}
