package schedule

import (
	"sync"
	"time"
)

// Token is the handle of one scheduled run.
type Token struct {
	mu        sync.Mutex
	timer     *time.Timer
	cancelled bool
	started   bool
}

// Schedule runs fn once after d. The returned token cancels the run.
func Schedule(d time.Duration, fn func()) *Token {
	t := &Token{}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.timer = time.AfterFunc(d, func() {
		t.mu.Lock()
		if t.cancelled {
			t.mu.Unlock()
			return
		}
		t.started = true
		t.mu.Unlock()
		fn()
	})
	return t
}

// Cancel stops the run if it has not started yet and reports whether it did.
// Once Cancel returns, fn will not start. It is safe to call on a nil token
// and to call more than once.
func (t *Token) Cancel() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled || t.started {
		return false
	}
	t.cancelled = true
	t.timer.Stop()
	return true
}

// Started reports whether fn has begun running.
func (t *Token) Started() bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}
