//go:build unix

package satreduce

import (
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ScriptOracle adapts an external test command into an Oracle. Each
// probe runs the command in a scratch directory with the candidate
// formula piped to stdin in DIMACS; the candidate passes iff the command
// exits 0.
//
// The command runs in its own process group. When the timeout elapses,
// the whole group gets SIGINT, a one second grace period, then SIGKILL;
// a timed-out command counts as a failing test, not an error.
type ScriptOracle struct {
	argv    []string
	timeout time.Duration
	log     logrus.FieldLogger
}

// NewScriptOracle resolves argv[0] on PATH and returns the oracle.
// A timeout of zero or less disables the deadline.
func NewScriptOracle(argv []string, timeout time.Duration, log logrus.FieldLogger) (*ScriptOracle, error) {
	if len(argv) == 0 {
		return nil, errors.New("empty test command")
	}
	path, err := exec.LookPath(argv[0])
	if err != nil {
		return nil, errors.Wrap(err, "test command not found")
	}
	if log == nil {
		log = logrus.New()
	}
	return &ScriptOracle{
		argv:    append([]string{path}, argv[1:]...),
		timeout: timeout,
		log:     log,
	}, nil
}

// Test satisfies Oracle.
func (o *ScriptOracle) Test(clauses [][]int) (bool, error) {
	dir, err := os.MkdirTemp("", "sat-reduce-")
	if err != nil {
		return false, err
	}
	defer os.RemoveAll(dir)

	cmd := exec.Command(o.argv[0], o.argv[1:]...)
	cmd.Dir = dir
	cmd.Stdin = strings.NewReader(DIMACS(clauses))
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return false, errors.Wrap(err, "starting test command")
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	var deadline <-chan time.Time
	if o.timeout > 0 {
		t := time.NewTimer(o.timeout)
		defer t.Stop()
		deadline = t.C
	}

	select {
	case err := <-done:
		return exitedZero(err)
	case <-deadline:
		o.log.Debugf("test command timed out after %s", o.timeout)
		o.interruptWaitAndKill(cmd, done)
		return false, nil
	}
}

// interruptWaitAndKill signals the command's process group so that
// children forked by the test script die with it.
func (o *ScriptOracle) interruptWaitAndKill(cmd *exec.Cmd, done <-chan error) {
	pgid := cmd.Process.Pid // Setpgid makes the child lead its own group
	_ = syscall.Kill(-pgid, syscall.SIGINT)
	select {
	case <-done:
		return
	case <-time.After(time.Second):
	}
	_ = syscall.Kill(-pgid, syscall.SIGKILL)
	<-done
}

func exitedZero(err error) (bool, error) {
	if err == nil {
		return true, nil
	}
	var exit *exec.ExitError
	if errors.As(err, &exit) {
		return false, nil
	}
	return false, err
}
