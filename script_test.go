//go:build unix

package satreduce

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestScriptOracleExitStatus(t *testing.T) {
	pass, err := NewScriptOracle([]string{"true"}, time.Second, nil)
	require.NoError(t, err)
	ok, err := pass.Test([][]int{{1}})
	require.NoError(t, err)
	require.True(t, ok)

	fail, err := NewScriptOracle([]string{"false"}, time.Second, nil)
	require.NoError(t, err)
	ok, err = fail.Test([][]int{{1}})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestScriptOracleUnknownCommand(t *testing.T) {
	_, err := NewScriptOracle([]string{"sat-reduce-no-such-command"}, time.Second, nil)
	require.Error(t, err)
}

func TestScriptOracleReceivesDIMACSOnStdin(t *testing.T) {
	// Accept iff some clause line (not the preamble) is present.
	oracle, err := NewScriptOracle([]string{"sh", "-c", `grep -qv "^p"`}, time.Second, nil)
	require.NoError(t, err)

	ok, err := oracle.Test([][]int{{1, 2}})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = oracle.Test([][]int{})
	require.NoError(t, err)
	require.False(t, ok)
}

func TestScriptOracleTimeoutCountsAsFailure(t *testing.T) {
	oracle, err := NewScriptOracle([]string{"sh", "-c", "sleep 30"}, 100*time.Millisecond, nil)
	require.NoError(t, err)

	start := time.Now()
	ok, err := oracle.Test([][]int{{1}})
	require.NoError(t, err)
	require.False(t, ok)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestShrinkWithScriptOracle(t *testing.T) {
	oracle, err := NewScriptOracle([]string{"sh", "-c", `grep -qv "^p"`}, time.Second, nil)
	require.NoError(t, err)

	got, err := ShrinkSAT([][]int{{1, 2, 3}}, oracle.Test)
	require.NoError(t, err)
	require.Equal(t, [][]int{{1}}, got)
}
