// Package runtimetest provides helpers for testing code that runs on a runtime.Loop.
package runtimetest

import (
	"sync"
	"time"
)

// Scheduler fires delayed work immediately and records the requested delays.
type Scheduler struct {
	mu     sync.Mutex
	delays []time.Duration
}

// AfterFunc records d and runs f on a new goroutine without waiting.
func (s *Scheduler) AfterFunc(d time.Duration, f func()) func() bool {
	s.mu.Lock()
	s.delays = append(s.delays, d)
	s.mu.Unlock()
	go f()
	return func() bool { return false }
}

// Delays returns the delays requested so far.
func (s *Scheduler) Delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.delays))
	copy(out, s.delays)
	return out
}
