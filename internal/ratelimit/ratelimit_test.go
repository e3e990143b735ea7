package ratelimit

import (
	"testing"
	"time"
)

func TestNewDisabled(t *testing.T) {
	if l := New(0, 5, 0); l != nil {
		t.Fatalf("rps 0 should disable")
	}
	if l := New(1, 0, 0); l != nil {
		t.Fatalf("burst 0 should disable")
	}
	var l *Limiter
	if !l.Allow("alice", time.Now()) {
		t.Fatalf("nil limiter must allow")
	}
	if l.Len() != 0 {
		t.Fatalf("nil limiter has no keys")
	}
}

func TestBurstThenRefill(t *testing.T) {
	l := New(1, 2, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	if !l.Allow("alice", now) || !l.Allow("alice", now) {
		t.Fatalf("burst of 2 should pass")
	}
	if l.Allow("alice", now) {
		t.Fatalf("third call in same instant should be limited")
	}
	if !l.Allow("bob", now) {
		t.Fatalf("keys are independent")
	}
	if !l.Allow("alice", now.Add(time.Second)) {
		t.Fatalf("token should refill after 1s")
	}
}

func TestEmptyKeyAllowed(t *testing.T) {
	l := New(1, 1, time.Minute)
	now := time.Now()
	for i := 0; i < 5; i++ {
		if !l.Allow("  ", now) {
			t.Fatalf("blank key is not limited")
		}
	}
	if l.Len() != 0 {
		t.Fatalf("blank key must not be tracked")
	}
}

func TestEvictIdle(t *testing.T) {
	l := New(10, 10, time.Minute)
	now := time.Unix(1_700_000_000, 0)
	l.Allow("a", now)
	l.Allow("b", now.Add(50*time.Second))
	l.Evict(now.Add(90 * time.Second))
	if l.Len() != 1 {
		t.Fatalf("len = %d want 1", l.Len())
	}
}
