package sandbox

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimits(t *testing.T) {
	assert.True(t, Limits{}.Unbounded())
	assert.False(t, Limits{MaxBytes: 1}.Unbounded())

	l := Limits{Timeout: time.Second, MaxBytes: 10}
	assert.False(t, l.timeExceeded(time.Second))
	assert.True(t, l.timeExceeded(time.Second+1))
	assert.False(t, l.sizeExceeded(10))
	assert.True(t, l.sizeExceeded(11))
	assert.False(t, Limits{}.sizeExceeded(1<<40))

	assert.Equal(t, "timeout=1s max_bytes=10 B", l.String())
	assert.Equal(t, "timeout=none max_bytes=none", Limits{}.String())
}

func TestCommandString(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("uses the unix interpreter")
	}
	assert.Equal(t, "git clone --quiet 'https://x/a b' ''", Argv("git", "clone", "--quiet", "https://x/a b", "").String())
	assert.Equal(t, `sh -c 'echo '\''hi'\'''`, Line("echo 'hi'").String())
	assert.True(t, Command{}.Empty())
}

func TestKinds(t *testing.T) {
	var outcomes = []Outcome{Completed{}, TimedOut{}, SizeExceeded{}}
	assert.Equal(t, KindCompleted, outcomes[0].Kind())
	assert.Equal(t, KindTimedOut, outcomes[1].Kind())
	assert.Equal(t, KindSizeExceeded, outcomes[2].Kind())
	assert.Equal(t, "size exceeded", KindSizeExceeded.String())
}

func TestErrorMessages(t *testing.T) {
	err := &SizeLimitExceeded{Command: Argv("curl"), Source: "output", Limit: 1000, Size: 2000}
	assert.Equal(t, "curl: output size limit of 1.0 kB exceeded (2.0 kB)", err.Error())

	exit := &ExecutionError{Command: Argv("git", "fetch"), ExitCode: 128, Output: []byte("fatal")}
	assert.Contains(t, exit.Error(), "exited with status 128")
}
