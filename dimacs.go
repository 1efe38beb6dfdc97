package satreduce

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseDIMACS reads a formula in the DIMACS CNF format.
//
// A few common deviations from the strict format are tolerated: comment
// lines may appear anywhere, the problem line may be missing entirely,
// clauses may span or share lines, and everything after a line holding a
// single "%" is ignored (some benchmark suites attach trailers).
func ParseDIMACS(r io.Reader) ([][]int, error) {
	var preamble *dimacsPreamble
	clauses := [][]int{}
	var clause []int

	s := bufio.NewScanner(r)
scan:
	for s.Scan() {
		line := s.Text()
		switch {
		case len(line) == 0 || line[0] == 'c':
			continue
		case line == "%":
			break scan
		case line[0] == 'p':
			if preamble != nil {
				return nil, errors.New("multiple problem lines")
			}
			if len(clauses) > 0 || len(clause) > 0 {
				return nil, errors.New("problem line appears after clauses")
			}
			p, err := parsePreamble(line)
			if err != nil {
				return nil, err
			}
			preamble = p
			continue
		}
		for _, field := range strings.Fields(line) {
			n, err := strconv.Atoi(field)
			if err != nil {
				return nil, errors.Wrap(err, "invalid literal")
			}
			if n == 0 {
				clauses = append(clauses, clause)
				clause = nil
			} else {
				clause = append(clause, n)
			}
		}
	}
	if err := s.Err(); err != nil {
		return nil, err
	}
	if len(clause) > 0 {
		clauses = append(clauses, clause)
	}
	if preamble != nil {
		if err := preamble.check(clauses); err != nil {
			return nil, err
		}
	}
	return clauses, nil
}

type dimacsPreamble struct {
	vars    int
	clauses int
}

func parsePreamble(line string) (*dimacsPreamble, error) {
	fields := strings.Fields(line)
	if len(fields) != 4 || fields[0] != "p" {
		return nil, errors.Errorf("malformed problem line %q", line)
	}
	if fields[1] != "cnf" {
		return nil, errors.Errorf("only cnf is supported; got %q", fields[1])
	}
	vars, err := strconv.Atoi(fields[2])
	if err != nil || vars < 0 {
		return nil, errors.Errorf("malformed variable count in problem line %q", line)
	}
	nclauses, err := strconv.Atoi(fields[3])
	if err != nil || nclauses < 0 {
		return nil, errors.Errorf("malformed clause count in problem line %q", line)
	}
	return &dimacsPreamble{vars: vars, clauses: nclauses}, nil
}

func (p *dimacsPreamble) check(clauses [][]int) error {
	seen := make(map[int]struct{})
	for _, clause := range clauses {
		for _, l := range clause {
			v := abs(l)
			if v > p.vars {
				return errors.Errorf(
					"formula contains variable %d, but the problem line asserts %d variables", v, p.vars)
			}
			seen[v] = struct{}{}
		}
	}
	// Unused variables are allowed; extra ones are not.
	if len(seen) > p.vars {
		return errors.Errorf("problem line specifies %d variables, but there are %d", p.vars, len(seen))
	}
	if len(clauses) != p.clauses {
		return errors.Errorf("problem line specifies %d clauses, but there are %d", p.clauses, len(clauses))
	}
	return nil
}

// WriteDIMACS writes a formula in the DIMACS CNF format: a "p cnf N M"
// problem line where N is the largest variable mentioned and M the
// clause count, then one zero-terminated clause per line.
func WriteDIMACS(w io.Writer, clauses [][]int) error {
	bw := bufio.NewWriter(w)
	maxVar := 0
	for _, clause := range clauses {
		for _, l := range clause {
			if v := abs(l); v > maxVar {
				maxVar = v
			}
		}
	}
	fmt.Fprintf(bw, "p cnf %d %d\n", maxVar, len(clauses))
	for _, clause := range clauses {
		for _, l := range clause {
			fmt.Fprintf(bw, "%d ", l)
		}
		bw.WriteString("0\n")
	}
	return bw.Flush()
}

// DIMACS renders a formula as a DIMACS CNF string.
func DIMACS(clauses [][]int) string {
	var b strings.Builder
	if err := WriteDIMACS(&b, clauses); err != nil {
		panic(err) // strings.Builder does not fail
	}
	return b.String()
}
