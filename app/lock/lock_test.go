package lock

import (
	"bufio"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const helperEnv = "NEWSRELAY_LOCK_HELPER"

// TestHelperProcess is not a real test. It is re-executed as a child process
// that takes the lock and holds it until killed.
func TestHelperProcess(t *testing.T) {
	path := os.Getenv(helperEnv)
	if path == "" {
		return
	}

	l := New(path)
	ok, err := l.Acquire()
	if err != nil || !ok {
		fmt.Println("failed")
		os.Exit(2)
	}
	fmt.Println("locked")
	time.Sleep(time.Minute)
	os.Exit(0)
}

func TestAcquireAndRelease(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locks", "pipeline.lock")
	l := New(path)

	ok, err := l.Acquire()
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, l.Held())

	holder := l.Holder()
	require.True(t, strings.HasPrefix(holder, strconv.Itoa(os.Getpid())+" "), "holder was %q", holder)

	require.NoError(t, l.Release())
	require.False(t, l.Held())

	// The file is left in place; only the flock matters
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestAcquireIsReentrantForHolder(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "pipeline.lock"))

	ok, err := l.Acquire()
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Acquire()
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, l.Release())
}

func TestSecondLockIsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.lock")
	first := New(path)
	second := New(path)

	ok, err := first.Acquire()
	require.NoError(t, err)
	require.True(t, ok)

	// flock is per open file description, so a second open conflicts even in-process
	ok, err = second.Acquire()
	require.NoError(t, err)
	require.False(t, ok)
	require.False(t, second.Held())

	require.NoError(t, first.Release())

	ok, err = second.Acquire()
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, second.Release())
}

func TestReleaseWithoutAcquire(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "pipeline.lock"))
	require.NoError(t, l.Release())
	require.NoError(t, l.Release())
}

func TestStaleLockFileDoesNotBlock(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.lock")
	require.NoError(t, os.WriteFile(path, []byte("99999\n2020-01-01T00:00:00Z\n"), 0o644))

	l := New(path)
	ok, err := l.Acquire()
	require.NoError(t, err)
	require.True(t, ok)
	require.NotContains(t, l.Holder(), "99999")
	require.NoError(t, l.Release())
}

func TestLockFreedWhenHolderIsKilled(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pipeline.lock")

	cmd := exec.Command(os.Args[0], "-test.run=^TestHelperProcess$")
	cmd.Env = append(os.Environ(), helperEnv+"="+path)
	stdout, err := cmd.StdoutPipe()
	require.NoError(t, err)
	require.NoError(t, cmd.Start())
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	})

	line, err := bufio.NewReader(stdout).ReadString('\n')
	require.NoError(t, err)
	require.Equal(t, "locked", strings.TrimSpace(line))

	l := New(path)
	ok, err := l.Acquire()
	require.NoError(t, err)
	require.False(t, ok, "lock must be held by the child")
	require.Contains(t, l.Holder(), strconv.Itoa(cmd.Process.Pid))

	require.NoError(t, cmd.Process.Kill())
	_ = cmd.Wait()

	ok, err = l.Acquire()
	require.NoError(t, err)
	require.True(t, ok, "kernel must release the lock of a killed process")
	require.NoError(t, l.Release())
}
