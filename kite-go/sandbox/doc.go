/*
Package sandbox runs external commands under a time limit and a size limit.

A Supervisor starts one child per call to Run, merges its stdout and stderr into a single stream,
and checks the child every Tick: if it exited, the output is drained and Completed is returned; if the
output (or the watched directory) grew past Limits.MaxBytes, or the child ran longer than
Limits.Timeout, the child's process group is killed and reaped before SizeExceeded or TimedOut is
returned. Output of a killed child is discarded.

	outcome, err := sandbox.NewSupervisor(log).Run(sandbox.Policy{
		Command: sandbox.Argv("git", "clone", "--quiet", url, dir),
		Limits:  sandbox.Limits{Timeout: 10 * time.Minute},
	})

A child that could not be started is reported as a *SpawnError rather than an outcome.
*/
package sandbox
