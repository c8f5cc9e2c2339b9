package warden

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand"
	"net"
	"path"
	"strings"
	"sync"
	"time"

	docker "github.com/fsouza/go-dockerclient"
	"github.com/kiteco/retriever/kite-golib/errors"
	"github.com/kiteco/retriever/kite-golib/fileutil"
	"github.com/kiteco/retriever/kite-golib/kitelog"
	"github.com/kiteco/retriever/kite-golib/tarball"
)

// DefaultJobTimeout bounds Link on a ContainerJail
const DefaultJobTimeout = 10 * time.Minute

var (
	// random stream for container names
	rng   = rand.New(rand.NewSource(time.Now().UnixNano()))
	rngMu sync.Mutex
)

func randSeq(n int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	rngMu.Lock()
	defer rngMu.Unlock()
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[rng.Intn(len(letters))]
	}
	return string(b)
}

// containerJob is a script started with Spawn
type containerJob struct {
	waiter docker.CloseWaiter
	stdout bytes.Buffer
	stderr bytes.Buffer
}

// ContainerJail is a Jail backed by a docker container that idles until it is destroyed. Scripts run
// through docker exec in the container's working directory /; files move in and out as tar streams.
type ContainerJail struct {
	Image string
	// ProtocolTimeout bounds every docker call other than waiting for a job
	ProtocolTimeout time.Duration
	JobTimeout      time.Duration
	Log             kitelog.Interface

	client    *docker.Client
	container *docker.Container
	state     state
	jobs      map[string]*containerJob
}

// NewContainerJail returns a jail that will run image using the docker daemon configured in the
// environment (DOCKER_HOST and friends)
func NewContainerJail(image string, log kitelog.Interface) (*ContainerJail, error) {
	// does not open any connection
	client, err := docker.NewClientFromEnv()
	if err != nil {
		return nil, errors.Wrapf(err, "error creating docker client")
	}
	return newContainerJail(client, image, log), nil
}

func newContainerJail(client *docker.Client, image string, log kitelog.Interface) *ContainerJail {
	return &ContainerJail{
		Image:           image,
		ProtocolTimeout: DefaultProtocolTimeout,
		JobTimeout:      DefaultJobTimeout,
		Log:             log,
		client:          client,
		jobs:            make(map[string]*containerJob),
	}
}

// bounded runs one docker call under ProtocolTimeout. A call that runs out of time is reported as a
// *ProtocolTimeoutError.
func (c *ContainerJail) bounded(action string, call func(ctx context.Context) error) error {
	c.client.SetTimeout(c.ProtocolTimeout)
	ctx, cancel := context.WithTimeout(context.Background(), c.ProtocolTimeout)
	defer cancel()

	err := call(ctx)
	if err == nil {
		return nil
	}
	var netErr net.Error
	if ctx.Err() == context.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &ProtocolTimeoutError{Action: action, Limit: c.ProtocolTimeout}
	}
	return err
}

// Handle returns the container ID, or "" before Create
func (c *ContainerJail) Handle() string {
	if c.container == nil {
		return ""
	}
	return c.container.ID
}

// Create creates and starts the container
func (c *ContainerJail) Create() error {
	if c.state != uncreated {
		return c.invalid(ActionCreate)
	}

	var container *docker.Container
	err := c.bounded(ActionCreate, func(ctx context.Context) (err error) {
		container, err = c.client.CreateContainer(docker.CreateContainerOptions{
			Name: "warden-" + randSeq(12),
			Config: &docker.Config{
				Image:      c.Image,
				Cmd:        []string{"tail", "-f", "/dev/null"},
				WorkingDir: "/",
			},
			HostConfig: &docker.HostConfig{NetworkMode: "none"},
			Context:    ctx,
		})
		return err
	})
	if err != nil {
		return wrapDocker(err, "error during CreateContainer")
	}
	c.container = container
	c.state = created
	c.Log.Printf("created container %s from %s", container.ID, c.Image)

	err = c.bounded(ActionCreate, func(ctx context.Context) error {
		return c.client.StartContainerWithContext(container.ID, nil, ctx)
	})
	return wrapDocker(err, "error during StartContainer")
}

// CopyIn uploads the host file or directory at hostPath to jailedPath, creating the parent directories
// of jailedPath first
func (c *ContainerJail) CopyIn(hostPath, jailedPath string) error {
	if !c.alive() {
		return c.invalid(ActionCopyIn)
	}
	if !fileutil.Exists(hostPath) {
		return &SourceMissingError{Path: hostPath}
	}

	jailedPath = path.Clean("/" + jailedPath)
	dir, name := path.Split(jailedPath)
	if err := c.exec(ActionCopyIn, []string{"mkdir", "-p", dir}); err != nil {
		return err
	}

	pr, pw := io.Pipe()
	go func() {
		pw.CloseWithError(tarball.PackAs(hostPath, name, pw))
	}()
	err := c.bounded(ActionCopyIn, func(ctx context.Context) error {
		return c.client.UploadToContainer(c.container.ID, docker.UploadToContainerOptions{
			InputStream: pr,
			Path:        dir,
			Context:     ctx,
		})
	})
	pr.Close()
	if err != nil {
		return wrapDocker(err, "error uploading %s to %s", hostPath, jailedPath)
	}
	if c.state == created {
		c.state = populated
	}
	return nil
}

// CopyOut downloads jailedPath from the container to hostPath
func (c *ContainerJail) CopyOut(jailedPath, hostPath string) error {
	if !c.alive() {
		return c.invalid(ActionCopyOut)
	}
	if !fileutil.ParentExists(hostPath) {
		return &DestinationDirMissingError{Path: hostPath}
	}

	jailedPath = path.Clean("/" + jailedPath)
	err := c.bounded(ActionCopyOut, func(ctx context.Context) error {
		pr, pw := io.Pipe()
		go func() {
			pw.CloseWithError(c.client.DownloadFromContainer(c.container.ID, docker.DownloadFromContainerOptions{
				OutputStream: pw,
				Path:         jailedPath,
				Context:      ctx,
			}))
		}()
		err := tarball.UnpackAs(hostPath, path.Base(jailedPath), pr)
		pr.Close()
		return err
	})
	return wrapDocker(err, "error downloading %s to %s", jailedPath, hostPath)
}

// Spawn starts script with sh -c and returns the exec ID without waiting for it
func (c *ContainerJail) Spawn(script string) (string, error) {
	if !c.alive() {
		return "", c.invalid(ActionSpawn)
	}

	exec, err := c.createExec(ActionSpawn, []string{"sh", "-c", script})
	if err != nil {
		return "", err
	}

	// the job's streams outlive this call, so the start is bounded without a context
	job := &containerJob{}
	started := make(chan error, 1)
	go func() {
		var err error
		job.waiter, err = c.client.StartExecNonBlocking(exec.ID, docker.StartExecOptions{
			OutputStream: &job.stdout,
			ErrorStream:  &job.stderr,
		})
		started <- err
	}()
	select {
	case err := <-started:
		if err != nil {
			return "", errors.Wrapf(err, "error during StartExec")
		}
	case <-time.After(c.ProtocolTimeout):
		return "", &ProtocolTimeoutError{Action: ActionSpawn, Limit: c.ProtocolTimeout}
	}
	c.jobs[exec.ID] = job
	c.state = spawned
	return exec.ID, nil
}

// Link waits up to JobTimeout for a spawned script and returns its exit status and output
func (c *ContainerJail) Link(jobID string) (*LinkResult, error) {
	if !c.alive() {
		return nil, c.invalid(ActionLink)
	}
	job, ok := c.jobs[jobID]
	if !ok {
		return nil, ErrUnknownJob
	}

	done := make(chan error, 1)
	go func() {
		done <- job.waiter.Wait()
	}()
	select {
	case err := <-done:
		if err != nil {
			return nil, errors.Wrapf(err, "error waiting for exec %s", jobID)
		}
	case <-time.After(c.JobTimeout):
		job.waiter.Close()
		return nil, &ProtocolTimeoutError{Action: ActionLink, Limit: c.JobTimeout}
	}

	inspect, err := c.inspectExec(ActionLink, jobID)
	if err != nil {
		return nil, err
	}

	delete(c.jobs, jobID)
	c.state = linked
	return &LinkResult{
		ExitStatus: inspect.ExitCode,
		Stdout:     strings.TrimRight(job.stdout.String(), "\n"),
		Stderr:     strings.TrimRight(job.stderr.String(), "\n"),
	}, nil
}

// Destroy removes the container together with everything still running in it
func (c *ContainerJail) Destroy() error {
	if c.state == uncreated || c.state == destroyed {
		return nil
	}
	for id, job := range c.jobs {
		job.waiter.Close()
		delete(c.jobs, id)
	}
	err := c.bounded(ActionDestroy, func(ctx context.Context) error {
		return c.client.RemoveContainer(docker.RemoveContainerOptions{
			ID:            c.container.ID,
			RemoveVolumes: true,
			Force:         true,
			Context:       ctx,
		})
	})
	if err != nil {
		return wrapDocker(err, "error removing container %s", c.container.ID)
	}
	c.Log.Printf("removed container %s", c.container.ID)
	c.state = destroyed
	return nil
}

// exec runs cmd in the container and waits for it
func (c *ContainerJail) exec(action string, cmd []string) error {
	exec, err := c.createExec(action, cmd)
	if err != nil {
		return err
	}
	var out bytes.Buffer
	err = c.bounded(action, func(ctx context.Context) error {
		return c.client.StartExec(exec.ID, docker.StartExecOptions{OutputStream: &out, ErrorStream: &out, Context: ctx})
	})
	if err != nil {
		return wrapDocker(err, "error during StartExec")
	}
	inspect, err := c.inspectExec(action, exec.ID)
	if err != nil {
		return err
	}
	if inspect.ExitCode != 0 {
		return &JailError{Action: action, ExitCode: inspect.ExitCode, Output: out.String()}
	}
	return nil
}

func (c *ContainerJail) createExec(action string, cmd []string) (exec *docker.Exec, err error) {
	err = c.bounded(action, func(ctx context.Context) (err error) {
		exec, err = c.client.CreateExec(docker.CreateExecOptions{
			Container:    c.container.ID,
			Cmd:          cmd,
			AttachStdout: true,
			AttachStderr: true,
			Context:      ctx,
		})
		return err
	})
	return exec, wrapDocker(err, "error during CreateExec")
}

// inspectExec is bounded by the client timeout set in bounded
func (c *ContainerJail) inspectExec(action, id string) (inspect *docker.ExecInspect, err error) {
	err = c.bounded(action, func(context.Context) (err error) {
		inspect, err = c.client.InspectExec(id)
		return err
	})
	return inspect, wrapDocker(err, "error during InspectExec")
}

// wrapDocker adds context to a docker error but returns a *ProtocolTimeoutError as is, so callers can
// match it by type
func wrapDocker(err error, format string, args ...interface{}) error {
	if _, ok := err.(*ProtocolTimeoutError); ok {
		return err
	}
	return errors.WrapfOrNil(err, format, args...)
}

func (c *ContainerJail) alive() bool {
	return c.state != uncreated && c.state != destroyed
}

func (c *ContainerJail) invalid(action string) error {
	return errors.Wrapf(ErrInvalidState, "%s in state %s", action, c.state)
}

func (c *ContainerJail) String() string {
	return fmt.Sprintf("container jail %s (%s)", c.Handle(), c.Image)
}
