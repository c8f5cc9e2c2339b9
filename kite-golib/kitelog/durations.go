package kitelog

import (
	"bytes"
	"fmt"
	"sync"
	"text/tabwriter"
	"time"
)

type duration struct {
	name     string
	duration time.Duration
}

// Durations tracks how long named phases took. It is safe for concurrent use.
type Durations struct {
	mu      sync.Mutex
	entries []duration
}

// Record records a duration
func (t *Durations) Record(name string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, duration{name, d})
}

// Len returns the number of recorded durations
func (t *Durations) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// Flush writes the recorded durations as a table to the given handler and resets the tracker
func (t *Durations) Flush(i Interface) {
	t.mu.Lock()
	entries := t.entries
	t.entries = nil
	t.mu.Unlock()

	if len(entries) == 0 {
		return
	}

	var b bytes.Buffer
	tw := tabwriter.NewWriter(&b, 4, 4, 0, ' ', 0)
	for _, entry := range entries {
		fmt.Fprintf(tw, "   %s\t%s\n", entry.name, entry.duration)
	}
	tw.Flush()

	i.Println(b.String())
}

// WithDurations returns a derived Logger with a new Durations tracker
func (l *Logger) WithDurations() *Logger {
	return &Logger{
		Default:   l.Default,
		Durations: &Durations{},
	}
}
