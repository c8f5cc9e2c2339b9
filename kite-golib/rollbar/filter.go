package rollbar

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// maxKeys bounds the remembered keys; older entries are pruned past it
const maxKeys = 1024

// filter decides which reports reach rollbar. A key, usually the identity that failed, is reported at
// most once per keyDelay, and all reports together are rate limited to one per globalDelay after an
// initial burst. It's safe for concurrent use.
type filter struct {
	mu       sync.Mutex
	keyDelay time.Duration
	global   *rate.Limiter
	last     map[string]time.Time
	now      func() time.Time
}

func newFilter(keyDelay, globalDelay time.Duration, burst int) *filter {
	return &filter{
		keyDelay: keyDelay,
		global:   rate.NewLimiter(rate.Every(globalDelay), burst),
		last:     make(map[string]time.Time),
		now:      time.Now,
	}
}

func (f *filter) allow(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if t, ok := f.last[key]; ok && now.Sub(t) < f.keyDelay {
		return false
	}
	if !f.global.AllowN(now, 1) {
		return false
	}
	f.last[key] = now

	if len(f.last) > maxKeys {
		for k, t := range f.last {
			if now.Sub(t) >= f.keyDelay {
				delete(f.last, k)
			}
		}
	}
	return true
}
