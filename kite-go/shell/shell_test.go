// +build !windows

package shell

import (
	"bytes"
	"io/ioutil"
	"log"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiteco/retriever/kite-go/sandbox"
	"github.com/kiteco/retriever/kite-golib/kitelog"
)

func newTestShell() (*Shell, *bytes.Buffer) {
	var buf bytes.Buffer
	l := &kitelog.Logger{Default: log.New(&buf, "", 0), Durations: &kitelog.Durations{}}
	s := New(l)
	s.Supervisor.Tick = 10 * time.Millisecond
	return s, &buf
}

func TestExecuteExitCodes(t *testing.T) {
	s, _ := newTestShell()
	for _, n := range []int{0, 1, 2, 100, 255} {
		cmd := sandbox.Line("exit " + itoa(n))

		code, err := s.Execute(cmd, Options{AllowFailure: true})
		require.NoError(t, err)
		assert.Equal(t, n, code)

		code, err = s.Execute(cmd, Options{})
		if n == 0 {
			require.NoError(t, err)
			assert.Equal(t, 0, code)
			continue
		}
		require.Error(t, err)
		execErr, ok := err.(*sandbox.ExecutionError)
		require.True(t, ok, "expected *sandbox.ExecutionError, got %T", err)
		assert.Equal(t, n, execErr.ExitCode)
	}
}

func TestOutputFor(t *testing.T) {
	s, _ := newTestShell()
	expected := "line one\n\tindented\n\nno trailing newline"

	out, err := s.OutputFor(sandbox.Argv("printf", "%s", expected), Options{})
	require.NoError(t, err)
	assert.Equal(t, expected, out)
}

func TestOutputForFailure(t *testing.T) {
	s, _ := newTestShell()
	_, err := s.OutputFor(sandbox.Line("echo oops; exit 4"), Options{AllowFailure: true})
	require.Error(t, err)
	execErr := err.(*sandbox.ExecutionError)
	assert.Equal(t, 4, execErr.ExitCode)
	assert.Equal(t, "oops\n", string(execErr.Output))
}

func TestRunOutputAndCode(t *testing.T) {
	s, _ := newTestShell()
	out, code, err := s.Run(sandbox.Line("echo partial; exit 3"), Options{AllowFailure: true})
	require.NoError(t, err)
	assert.Equal(t, 3, code)
	assert.Equal(t, "partial\n", out)

	_, _, err = s.Run(sandbox.Line("exit 3"), Options{})
	assert.IsType(t, &sandbox.ExecutionError{}, err)
}

func TestLogsCommand(t *testing.T) {
	s, buf := newTestShell()
	_, err := s.Execute(sandbox.Argv("echo", "hello world"), Options{})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "+ echo 'hello world'")
	assert.NotContains(t, buf.String(), "hello world\n")
	assert.Equal(t, 1, s.Log.Durations.Len())
}

func TestTimeLimit(t *testing.T) {
	s, _ := newTestShell()
	_, err := s.Execute(sandbox.Argv("sleep", "20"), Options{Limits: sandbox.Limits{Timeout: 100 * time.Millisecond}})
	require.Error(t, err)
	assert.IsType(t, &sandbox.TimeLimitExceeded{}, err)
}

func TestSizeLimit(t *testing.T) {
	s, _ := newTestShell()
	_, err := s.OutputFor(sandbox.Line("yes"), Options{Limits: sandbox.Limits{MaxBytes: 10000, Timeout: time.Minute}})
	require.Error(t, err)
	assert.IsType(t, &sandbox.SizeLimitExceeded{}, err)
}

func TestSizeLimitNotMaskedByAllowFailure(t *testing.T) {
	s, _ := newTestShell()
	_, err := s.Execute(sandbox.Line("yes"), Options{AllowFailure: true, Limits: sandbox.Limits{MaxBytes: 10000}})
	assert.IsType(t, &sandbox.SizeLimitExceeded{}, err)
}

func TestWatchDir(t *testing.T) {
	dir, err := ioutil.TempDir("", "shell-watch")
	require.NoError(t, err)
	defer os.RemoveAll(dir)

	s, _ := newTestShell()
	_, err = s.Execute(sandbox.Line("head -c 50000 /dev/zero > out.bin; sleep 20"), Options{
		Dir:      dir,
		WatchDir: dir,
		Limits:   sandbox.Limits{MaxBytes: 20000, Timeout: time.Minute},
	})
	require.Error(t, err)
	sizeErr, ok := err.(*sandbox.SizeLimitExceeded)
	require.True(t, ok, "expected *sandbox.SizeLimitExceeded, got %T", err)
	assert.Equal(t, dir, sizeErr.Source)
}

func TestSpawnFailure(t *testing.T) {
	s, _ := newTestShell()
	_, err := s.Execute(sandbox.Argv("definitely-not-a-real-binary"), Options{AllowFailure: true})
	assert.IsType(t, &sandbox.SpawnError{}, err)
}

func TestDirConcurrent(t *testing.T) {
	s, _ := newTestShell()
	dirs := make([]string, 4)
	for i := range dirs {
		dir, err := ioutil.TempDir("", "shell-dir")
		require.NoError(t, err)
		defer os.RemoveAll(dir)
		require.NoError(t, ioutil.WriteFile(dir+"/marker", []byte(itoa(i)), 0644))
		dirs[i] = dir
	}

	errs := make(chan error, len(dirs))
	for i, dir := range dirs {
		go func(i int, dir string) {
			out, err := s.OutputFor(sandbox.Argv("cat", "marker"), Options{Dir: dir})
			if err == nil && strings.TrimSpace(out) != itoa(i) {
				err = assert.AnError
			}
			errs <- err
		}(i, dir)
	}
	for range dirs {
		assert.NoError(t, <-errs)
	}
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
