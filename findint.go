package satreduce

import (
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// errNotFound reports that findFirst exhausted its candidates without an
// acceptance. It never escapes the shrinker's passes.
var errNotFound = errors.New("no candidate accepted")

// findInteger finds a (hopefully large) n such that f(n) holds and
// f(n+1) does not, in O(log n) probes. f(0) is assumed true and is never
// probed; f must eventually turn false or this will not terminate.
//
// The linear scan over 1..4 comes first because small answers are the
// common case in delta-style search: if the answer is 0 or 1, starting
// with an exponential probe wastes work.
func findInteger(f func(int) (bool, error)) (int, error) {
	for n := 1; n <= 4; n++ {
		ok, err := f(n)
		if err != nil {
			return 0, err
		}
		if !ok {
			return n - 1, nil
		}
	}

	// Probe upward until f fails; lo is the largest known-true value,
	// hi the smallest known-false once the loop exits.
	lo, hi := 4, 5
	for {
		ok, err := f(hi)
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		lo = hi
		hi *= 2
	}

	for lo+1 < hi {
		mid := (lo + hi) / 2
		ok, err := f(mid)
		if err != nil {
			return 0, err
		}
		if ok {
			lo = mid
		} else {
			hi = mid
		}
	}
	return lo, nil
}

type probeResult struct {
	ok  bool
	err error
}

// findFirst returns the first index i in [0, n) for which f(i) holds, or
// errNotFound. With parallelism enabled it consumes the index space in
// exponentially doubling chunks, probing each chunk concurrently but
// deciding in input order; results computed past the winner are simply
// discarded (their oracle answers stay cached, so nothing is wasted).
func (s *Shrinker) findFirst(n int, f func(int) (bool, error)) (int, error) {
	for start, size := 0, 1; start < n; start, size = start+size, size*2 {
		end := start + size
		if end > n {
			end = n
		}
		if s.parallelism > 1 && end-start > 1 {
			results := make([]probeResult, end-start)
			var g errgroup.Group
			g.SetLimit(s.parallelism)
			for i := start; i < end; i++ {
				g.Go(func() error {
					ok, err := f(i)
					results[i-start] = probeResult{ok: ok, err: err}
					return nil
				})
			}
			// Goroutines report through results; Wait only joins.
			_ = g.Wait()
			for i, r := range results {
				if r.err != nil {
					return 0, r.err
				}
				if r.ok {
					return start + i, nil
				}
			}
		} else {
			for i := start; i < end; i++ {
				ok, err := f(i)
				if err != nil {
					return 0, err
				}
				if ok {
					return i, nil
				}
			}
		}
	}
	return 0, errNotFound
}
