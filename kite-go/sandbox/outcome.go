package sandbox

import "time"

// Kind identifies which terminal outcome a supervised run reached
type Kind int

const (
	// KindCompleted means the process exited on its own
	KindCompleted Kind = iota
	// KindTimedOut means the process was killed after exceeding its time limit
	KindTimedOut
	// KindSizeExceeded means the process was killed after exceeding its size limit
	KindSizeExceeded
)

func (k Kind) String() string {
	switch k {
	case KindCompleted:
		return "completed"
	case KindTimedOut:
		return "timed out"
	case KindSizeExceeded:
		return "size exceeded"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of one supervised run. It is one of Completed, TimedOut or
// SizeExceeded.
type Outcome interface {
	Kind() Kind
	isOutcome()
}

// Completed means the process exited by itself. ExitCode may be non-zero.
type Completed struct {
	ExitCode int
	// Output is everything the process wrote to stdout and stderr, in the order it was read
	Output  []byte
	Elapsed time.Duration
}

// TimedOut means the process was killed for running too long. Its output is discarded.
type TimedOut struct {
	Limit   time.Duration
	Elapsed time.Duration
}

// SizeExceeded means the process was killed for producing too much data. Its output is discarded.
type SizeExceeded struct {
	// Source is "output" or the watched directory
	Source string
	Limit  int64
	Size   int64
}

// Kind implements Outcome
func (Completed) Kind() Kind { return KindCompleted }

// Kind implements Outcome
func (TimedOut) Kind() Kind { return KindTimedOut }

// Kind implements Outcome
func (SizeExceeded) Kind() Kind { return KindSizeExceeded }

func (Completed) isOutcome()    {}
func (TimedOut) isOutcome()     {}
func (SizeExceeded) isOutcome() {}
