package fetch

import (
	"sync"
	"time"
)

// hostEntry records a "needs browser" verdict with a TTL.
type hostEntry struct {
	expiresAt time.Time
}

// HostMemory remembers which hosts serve unrendered shells over plain HTTP,
// so repeated fetches skip the doomed HTTP attempt. Entries expire after the
// configured TTL and are pruned periodically.
type HostMemory struct {
	store sync.Map // host (string) -> *hostEntry
	ttl   time.Duration
	done  chan struct{}
}

// NewHostMemory creates a HostMemory and starts a background goroutine that
// prunes expired entries every hour.
func NewHostMemory(ttl time.Duration) *HostMemory {
	hm := &HostMemory{
		ttl:  ttl,
		done: make(chan struct{}),
	}
	go hm.cleanupLoop()
	return hm
}

// NeedsBrowser reports whether the host has a live "needs browser" verdict.
func (hm *HostMemory) NeedsBrowser(host string) bool {
	val, ok := hm.store.Load(host)
	if !ok {
		return false
	}
	entry := val.(*hostEntry)
	if time.Now().After(entry.expiresAt) {
		hm.store.Delete(host)
		return false
	}
	return true
}

// MarkNeedsBrowser records that plain HTTP was not enough for this host.
func (hm *HostMemory) MarkNeedsBrowser(host string) {
	hm.store.Store(host, &hostEntry{expiresAt: time.Now().Add(hm.ttl)})
}

// Forget clears a host's verdict, e.g. after a site redesign.
func (hm *HostMemory) Forget(host string) {
	hm.store.Delete(host)
}

// Stop terminates the background cleanup goroutine.
func (hm *HostMemory) Stop() {
	close(hm.done)
}

func (hm *HostMemory) cleanupLoop() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-hm.done:
			return
		case <-ticker.C:
			now := time.Now()
			hm.store.Range(func(key, value any) bool {
				if now.After(value.(*hostEntry).expiresAt) {
					hm.store.Delete(key)
				}
				return true
			})
		}
	}
}
