package kitelog

import (
	"bytes"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDurationsFlush(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{Default: log.New(&buf, "", 0), Durations: &Durations{}}

	l.Durations.Record("git clone", 2*time.Second)
	l.Durations.Record("manifest", 150*time.Millisecond)
	require.Equal(t, 2, l.Durations.Len())

	l.Durations.Flush(l)
	assert.Contains(t, buf.String(), "git clone")
	assert.Contains(t, buf.String(), "150ms")
	assert.Equal(t, 0, l.Durations.Len())

	buf.Reset()
	l.Durations.Flush(l)
	assert.Empty(t, buf.String())
}

func TestDurationsConcurrent(t *testing.T) {
	l := Discard.WithDurations()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Durations.Record("step", time.Millisecond)
		}()
	}
	wg.Wait()
	assert.Equal(t, 8, l.Durations.Len())
}
