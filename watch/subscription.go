package watch

import (
	"sync"
	"sync/atomic"
)

// Subscription is a caller's handle on a watcher's nudge channel. Cancelling
// detaches the handle; a cancelled subscription's nudges are dropped rather
// than delivered to a watcher the caller no longer cares about.
type Subscription struct {
	w      *Watcher
	once   sync.Once
	active atomic.Bool
}

// Subscribe attaches a trigger handle to the watcher.
func (w *Watcher) Subscribe() *Subscription {
	s := &Subscription{w: w}
	s.active.Store(true)
	return s
}

// Nudge requests an out-of-band recheck. No-op after Cancel.
func (s *Subscription) Nudge() {
	if s.active.Load() {
		s.w.Nudge()
	}
}

// Cancel detaches the subscription. Idempotent and safe to call from any
// goroutine, including concurrently with Nudge.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		s.active.Store(false)
	})
}
