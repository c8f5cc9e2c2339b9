// +build !windows

package exec

import (
	"testing"

	ps "github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	code, ok := ExitCode(Command("sh", "-c", "exit 7").Run())
	require.True(t, ok)
	assert.Equal(t, 7, code)

	code, ok = ExitCode(Command("true").Run())
	require.True(t, ok)
	assert.Equal(t, 0, code)

	_, ok = ExitCode(Command("/does/not/exist").Run())
	assert.False(t, ok)
}

func TestKillGroup(t *testing.T) {
	cmd := Command("sh", "-c", "sleep 30 & sleep 30")
	require.NoError(t, cmd.Start())
	pid := cmd.Process.Pid

	require.NoError(t, KillGroup(cmd))
	code, ok := ExitCode(cmd.Wait())
	require.True(t, ok)
	assert.Equal(t, 128+9, code)

	proc, err := ps.FindProcess(pid)
	require.NoError(t, err)
	assert.Nil(t, proc)

	// a second kill after reaping is harmless
	assert.NoError(t, KillGroup(cmd))
}

func TestKillGroupNotStarted(t *testing.T) {
	assert.Error(t, KillGroup(Command("true")))
}
