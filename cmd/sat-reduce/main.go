// Command sat-reduce shrinks a DIMACS CNF file while an external test
// command keeps accepting it.
package main

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"github.com/google/shlex"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/satreduce/satreduce"
)

type options struct {
	debug       bool
	backup      string
	timeout     float64
	parallelism int
}

func main() {
	var o options
	cmd := &cobra.Command{
		Use:   "sat-reduce [flags] TEST FILE",
		Short: "reduce a CNF file while a test command keeps passing",
		Long: `sat-reduce takes a file in DIMACS CNF format and a test command, and
attempts to produce a minimal version of the file for which the test
command still exits 0.

The test command receives each candidate CNF on standard input and runs
in a scratch directory of its own. Every accepted reduction is written
back to FILE as it is found; the original contents are kept in a backup
file first.`,
		Args:          cobra.ExactArgs(2),
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return run(&o, args[0], args[1])
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&o.debug, "debug", false,
		"emit (extremely verbose) debug output while shrinking")
	flags.StringVar(&o.backup, "backup", "",
		"name of the backup file to create (default: FILE plus .bak)")
	flags.Float64Var(&o.timeout, "timeout", 1,
		"seconds before a test run is killed and counted as failing; <= 0 disables")
	flags.IntVar(&o.parallelism, "parallelism", 1,
		"number of concurrent test runs to allow")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "sat-reduce:", err)
		os.Exit(1)
	}
}

func run(o *options, test, filename string) error {
	log := logrus.New()
	if o.debug {
		log.SetLevel(logrus.DebugLevel)
	}

	initial, err := os.ReadFile(filename)
	if err != nil {
		return err
	}

	backup := o.backup
	if backup == "" {
		backup = filename + ".bak"
	}
	if err := os.Remove(backup); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "removing stale backup")
	}
	if err := os.WriteFile(backup, initial, 0o644); err != nil {
		return errors.Wrap(err, "writing backup")
	}

	clauses, err := satreduce.ParseDIMACS(bytes.NewReader(initial))
	if err != nil {
		return errors.Wrap(err, "reading input as DIMACS CNF")
	}

	argv, err := shlex.Split(test)
	if err != nil {
		return errors.Wrap(err, "parsing test command")
	}

	timeout := time.Duration(o.timeout * float64(time.Second))
	oracle, err := satreduce.NewScriptOracle(argv, timeout, log)
	if err != nil {
		return err
	}

	shrinker, err := satreduce.NewShrinker(clauses, oracle.Test,
		satreduce.WithLogger(log),
		satreduce.WithParallelism(o.parallelism))
	if err != nil {
		return err
	}
	shrinker.OnReduce(func(clauses [][]int) error {
		return os.WriteFile(filename, []byte(satreduce.DIMACS(clauses)), 0o644)
	})

	if err := shrinker.Reduce(); err != nil {
		return err
	}

	final := shrinker.Current()
	log.Infof("done: %d clauses over %d variables", len(final), countVariables(final))
	return nil
}

func countVariables(clauses [][]int) int {
	seen := make(map[int]struct{})
	for _, clause := range clauses {
		for _, l := range clause {
			if l < 0 {
				l = -l
			}
			seen[l] = struct{}{}
		}
	}
	return len(seen)
}
