// +build !windows

package warden

import (
	"io/ioutil"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	docker "github.com/fsouza/go-dockerclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiteco/retriever/kite-golib/errors"
	"github.com/kiteco/retriever/kite-golib/kitelog"
)

func newTestContainerJail(t *testing.T) *ContainerJail {
	if !dockerTests {
		t.Skip("use go test --docker to run tests that require docker")
	}
	jail, err := NewContainerJail(dockerImage, kitelog.Discard)
	require.NoError(t, err)
	return jail
}

func TestContainerRoundTrip(t *testing.T) {
	jail := newTestContainerJail(t)
	host, cleanup := hostFiles(t, "a", "b", "c")
	defer cleanup()

	out, err := RunCommandInJail(jail,
		[]string{"mkdir -p out", "ls in", "echo success > out/result"},
		[]Copy{{From: host, To: "/in"}},
		[]Copy{{From: "/out/result", To: filepath.Join(host, "result")}})
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc", out)

	data, err := ioutil.ReadFile(filepath.Join(host, "result"))
	require.NoError(t, err)
	assert.Equal(t, "success\n", string(data))
	assert.True(t, errors.Is(jail.CopyIn(host, "/again"), ErrInvalidState))
}

func TestContainerCopyOutDirectory(t *testing.T) {
	jail := newTestContainerJail(t)
	require.NoError(t, jail.Create())
	defer jail.Destroy()

	job, err := jail.Spawn("mkdir -p /build/sub && echo x > /build/sub/f")
	require.NoError(t, err)
	result, err := jail.Link(job)
	require.NoError(t, err)
	require.Equal(t, 0, result.ExitStatus)

	host, err := ioutil.TempDir("", "container-out")
	require.NoError(t, err)
	defer os.RemoveAll(host)

	require.NoError(t, jail.CopyOut("/build", filepath.Join(host, "build")))
	data, err := ioutil.ReadFile(filepath.Join(host, "build", "sub", "f"))
	require.NoError(t, err)
	assert.Equal(t, "x\n", string(data))
}

func TestContainerJobFailure(t *testing.T) {
	jail := newTestContainerJail(t)

	_, err := RunCommandInJail(jail, []string{"echo oops >&2", "exit 4"}, nil, nil)
	var failed *JobFailedError
	require.True(t, errors.As(err, &failed), "got %v", err)
	assert.Equal(t, 4, failed.Result.ExitStatus)
	assert.Equal(t, "oops", failed.Result.Stderr)
}

// stalledDaemon accepts connections and never answers them
func stalledDaemon(t *testing.T) (string, func()) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	var conns []net.Conn
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			conns = append(conns, conn)
		}
	}()
	return "tcp://" + l.Addr().String(), func() {
		l.Close()
		<-done
		for _, conn := range conns {
			conn.Close()
		}
	}
}

func TestContainerCreateTimeout(t *testing.T) {
	endpoint, cleanup := stalledDaemon(t)
	defer cleanup()

	client, err := docker.NewClient(endpoint)
	require.NoError(t, err)
	jail := newContainerJail(client, "alpine", kitelog.Discard)
	jail.ProtocolTimeout = 300 * time.Millisecond

	start := time.Now()
	_, err = RunCommandInJail(jail, []string{"true"}, nil, nil)
	var timeout *ProtocolTimeoutError
	require.True(t, errors.As(err, &timeout), "got %v", err)
	assert.Equal(t, ActionCreate, timeout.Action)
	assert.True(t, time.Since(start) < 5*time.Second)
	assert.Empty(t, jail.Handle())
}
