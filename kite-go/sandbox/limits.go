package sandbox

import (
	"fmt"
	"time"

	humanize "github.com/dustin/go-humanize"
)

// Limits represents limits on the duration and output of a subprocess. A zero field means no limit.
type Limits struct {
	Timeout  time.Duration `yaml:"timeout"`
	MaxBytes int64         `yaml:"max_bytes"`
}

// Unbounded reports whether neither limit is set
func (l Limits) Unbounded() bool {
	return l.Timeout <= 0 && l.MaxBytes <= 0
}

func (l Limits) timeExceeded(elapsed time.Duration) bool {
	return l.Timeout > 0 && elapsed > l.Timeout
}

func (l Limits) sizeExceeded(size int64) bool {
	return l.MaxBytes > 0 && size > l.MaxBytes
}

// String describes the limits for log lines
func (l Limits) String() string {
	timeout, size := "none", "none"
	if l.Timeout > 0 {
		timeout = l.Timeout.String()
	}
	if l.MaxBytes > 0 {
		size = humanize.Bytes(uint64(l.MaxBytes))
	}
	return fmt.Sprintf("timeout=%s max_bytes=%s", timeout, size)
}
