package satreduce

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestNegatingTableRejectsZeroKey(t *testing.T) {
	b := NewBooleanEquivalence()
	require.Panics(t, func() { b.Find(0) })
	require.Panics(t, func() { b.table.set(0, 1) })
}

func TestBooleanEquivalenceFind(t *testing.T) {
	b := NewBooleanEquivalence()
	require.Equal(t, 3, b.Find(3))
	require.Equal(t, -3, b.Find(-3))

	require.NoError(t, b.Merge(3, 5))
	require.Equal(t, 3, b.Find(5))
	require.Equal(t, -3, b.Find(-5))

	// Representatives always have the smallest absolute value in the
	// class, however the merge was phrased.
	require.NoError(t, b.Merge(7, 2))
	require.Equal(t, 2, b.Find(7))
	require.NoError(t, b.Merge(5, 7))
	require.Equal(t, 2, b.Find(3))
	require.Equal(t, 2, b.Find(5))
	require.Equal(t, -2, b.Find(-3))
}

func TestBooleanEquivalenceSignedMerge(t *testing.T) {
	b := NewBooleanEquivalence()
	require.NoError(t, b.Merge(1, -2))
	require.Equal(t, 1, b.Find(-2))
	require.Equal(t, -1, b.Find(2))
}

func TestBooleanEquivalenceInconsistentMerge(t *testing.T) {
	b := NewBooleanEquivalence()
	err := b.Merge(4, -4)
	require.ErrorIs(t, err, ErrInconsistency)

	require.NoError(t, b.Merge(1, 2))
	require.NoError(t, b.Merge(3, -2))
	// Now 3 ≡ -2 ≡ -1, so merging 3 with 1 closes a negation cycle.
	err = b.Merge(3, 1)
	require.ErrorIs(t, err, ErrInconsistency)
}

func TestBooleanEquivalenceMergeAll(t *testing.T) {
	b := NewBooleanEquivalence()
	require.NoError(t, b.MergeAll([]int{4, 6, 8}))
	require.Equal(t, 4, b.Find(6))
	require.Equal(t, 4, b.Find(8))
}

func TestBooleanEquivalencePartitions(t *testing.T) {
	b := NewBooleanEquivalence()
	require.NoError(t, b.Merge(1, 2))
	require.NoError(t, b.Merge(3, -4))

	parts := b.Partitions()
	require.Contains(t, parts, []int{1, 2})
	require.Contains(t, parts, []int{-2, -1})
	require.Contains(t, parts, []int{-4, 3})
	require.Contains(t, parts, []int{-3, 4})
}

func TestBooleanEquivalenceCopyIsIndependent(t *testing.T) {
	b := NewBooleanEquivalence()
	require.NoError(t, b.Merge(1, 2))

	c := b.Copy()
	require.NoError(t, c.Merge(2, 3))

	require.Equal(t, 1, c.Find(3))
	require.Equal(t, 3, b.Find(3))
}

func TestInconsistencyWrapsWithContext(t *testing.T) {
	b := NewBooleanEquivalence()
	err := b.Merge(4, -4)
	require.ErrorIs(t, err, ErrInconsistency)
	require.Contains(t, err.Error(), "4")
	require.ErrorIs(t, errors.Wrap(err, "outer"), ErrInconsistency)
}
