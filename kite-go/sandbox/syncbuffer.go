package sandbox

import (
	"bytes"
	"sync"
)

// syncBuffer is a small synchronized wrapper around a bytes.Buffer. The reader goroutine of a
// process writes into it while the supervisor takes whatever arrived since its last look.
type syncBuffer struct {
	buf   bytes.Buffer
	mutex sync.Mutex
}

func (b *syncBuffer) Write(buf []byte) (int, error) {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buf.Write(buf)
}

func (b *syncBuffer) Len() int {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	return b.buf.Len()
}

// Since returns a copy of the bytes written after the first offset bytes
func (b *syncBuffer) Since(offset int) []byte {
	b.mutex.Lock()
	defer b.mutex.Unlock()
	if offset >= b.buf.Len() {
		return nil
	}
	return append([]byte(nil), b.buf.Bytes()[offset:]...)
}
