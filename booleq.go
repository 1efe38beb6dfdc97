package satreduce

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// ErrInconsistency is reported when reduction proves a formula
// unsatisfiable: an empty clause appears, a variable is forced both ways,
// or a literal would be merged with its own negation. Callers that feed
// possibly-unsatisfiable candidates check for it with errors.Is.
var ErrInconsistency = errors.New("inconsistent formula")

// negatingTable is a literal-keyed map that stores only positive keys and
// answers negative keys by flipping signs on both read and write:
// table[-k] == -table[k]. Key 0 is invalid.
type negatingTable map[int]int

func (t negatingTable) get(key int) (int, bool) {
	if key == 0 {
		panic("negating table accessed with zero key")
	}
	if key < 0 {
		v, ok := t[-key]
		return -v, ok
	}
	v, ok := t[key]
	return v, ok
}

func (t negatingTable) set(key, value int) {
	if key == 0 {
		panic("negating table accessed with zero key")
	}
	if key < 0 {
		t[-key] = -value
		return
	}
	t[key] = value
}

// keys returns every stored key, positive and negative, in ascending
// order of absolute value.
func (t negatingTable) keys() []int {
	ks := make([]int, 0, 2*len(t))
	for k := range t {
		ks = append(ks, k, -k)
	}
	sort.Slice(ks, func(i, j int) bool {
		ai, aj := abs(ks[i]), abs(ks[j])
		if ai != aj {
			return ai < aj
		}
		return ks[i] > ks[j]
	})
	return ks
}

// BooleanEquivalence is a union-find over signed literals where merging a
// with b also merges -a with -b. The representative of a class is the
// literal of minimum absolute value, which keeps Find walks terminating.
// Merging a literal with its own negation is an inconsistency.
type BooleanEquivalence struct {
	table negatingTable
}

func NewBooleanEquivalence() *BooleanEquivalence {
	return &BooleanEquivalence{table: make(negatingTable)}
}

// Find returns the canonical representative of value under the merges
// made so far, compressing the walked path as it goes.
func (b *BooleanEquivalence) Find(value int) int {
	parent, ok := b.table.get(value)
	if !ok {
		b.table.set(value, value)
		return value
	}
	if parent == value {
		return value
	}
	var trail []int
	for value != parent {
		trail = append(trail, value)
		value = parent
		parent, _ = b.table.get(value)
	}
	for _, t := range trail {
		b.table.set(t, value)
	}
	return value
}

// Merge records that left and right are equivalent (and therefore that
// their negations are too). It fails with ErrInconsistency if the two
// are already known to be negations of each other.
func (b *BooleanEquivalence) Merge(left, right int) error {
	left = b.Find(left)
	right = b.Find(right)
	if left == -right {
		return errors.Wrapf(ErrInconsistency, "attempted to merge %d with %d", left, right)
	}
	if abs(left) > abs(right) {
		left, right = right, left
	}
	b.table.set(right, left)
	return nil
}

func (b *BooleanEquivalence) MergeAll(values []int) error {
	for i, v := range values {
		if i == 0 {
			continue
		}
		if err := b.Merge(v, values[0]); err != nil {
			return err
		}
	}
	return nil
}

// Partitions returns the current equivalence classes, including the
// mirror class of negations for every merged class. Classes and their
// members come out sorted so iteration order is deterministic.
func (b *BooleanEquivalence) Partitions() [][]int {
	classes := make(map[int][]int)
	for _, k := range b.table.keys() {
		root := b.Find(k)
		classes[root] = append(classes[root], k)
	}
	roots := make([]int, 0, len(classes))
	for root := range classes {
		roots = append(roots, root)
	}
	sort.Slice(roots, func(i, j int) bool {
		ai, aj := abs(roots[i]), abs(roots[j])
		if ai != aj {
			return ai < aj
		}
		return roots[i] > roots[j]
	})
	parts := make([][]int, 0, len(roots))
	for _, root := range roots {
		members := classes[root]
		sort.Ints(members)
		parts = append(parts, members)
	}
	return parts
}

// Copy returns an independent copy; merges on one side are invisible to
// the other.
func (b *BooleanEquivalence) Copy() *BooleanEquivalence {
	table := make(negatingTable, len(b.table))
	for k, v := range b.table {
		table[k] = v
	}
	return &BooleanEquivalence{table: table}
}

func (b *BooleanEquivalence) String() string {
	return fmt.Sprintf("BooleanEquivalence(%v)", b.Partitions())
}
