package fetch

import (
	"testing"
	"time"
)

func TestHostMemory(t *testing.T) {
	hm := NewHostMemory(time.Hour)
	defer hm.Stop()

	if hm.NeedsBrowser("shop.example") {
		t.Error("fresh memory should have no verdicts")
	}

	hm.MarkNeedsBrowser("shop.example")
	if !hm.NeedsBrowser("shop.example") {
		t.Error("verdict should be remembered")
	}
	if hm.NeedsBrowser("other.example") {
		t.Error("verdict must not leak across hosts")
	}

	hm.Forget("shop.example")
	if hm.NeedsBrowser("shop.example") {
		t.Error("forgotten verdict should be gone")
	}
}

func TestHostMemoryExpiry(t *testing.T) {
	hm := NewHostMemory(10 * time.Millisecond)
	defer hm.Stop()

	hm.MarkNeedsBrowser("shop.example")
	time.Sleep(20 * time.Millisecond)

	if hm.NeedsBrowser("shop.example") {
		t.Error("expired verdict should read as absent")
	}
}
