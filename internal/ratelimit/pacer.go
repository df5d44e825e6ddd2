// Package ratelimit implements the two pieces of shared mutable state
// spec.md §5/§9 calls out: per-adapter request pacing, and the process-wide
// triangular-arb execution rate limiter. Both are explicit types with their
// own lifecycle (constructed per adapter / once per process) rather than
// package-level globals, per spec §9's "avoid ad-hoc global variables".
package ratelimit

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Pacer enforces a venue's min_request_interval: callers block in Wait until
// now >= last_request_at + min_request_interval, then the timestamp updates
// (spec §4.1). It wraps golang.org/x/time/rate.Limiter configured for exactly
// one token per interval, which is the idiomatic way to express "at most one
// request per interval" pacing in Go rather than hand-rolling the
// sleep-until-deadline loop the teacher's prose describes.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer builds a Pacer for the given minimum inter-request interval.
func NewPacer(minInterval time.Duration) *Pacer {
	if minInterval <= 0 {
		minInterval = time.Millisecond
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

// Wait blocks until the next request is permitted, or ctx is canceled.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// ExecutionState is the process-wide singleton tracking per-exchange live
// execution activity for the triangular-arb rate limiter (spec §4.6).
type ExecutionState struct {
	mu                 sync.Mutex
	lastExecutionAt    map[string]time.Time
	activeExecutionCnt map[string]int
	cooldown           func(exchange string) time.Duration
}

// NewExecutionState builds a fresh limiter. cooldown resolves the per-exchange
// cooldown (spec §4.6's table); tests can instantiate their own copy instead
// of relying on a package-level singleton (spec §9).
func NewExecutionState(cooldown func(exchange string) time.Duration) *ExecutionState {
	return &ExecutionState{
		lastExecutionAt:    map[string]time.Time{},
		activeExecutionCnt: map[string]int{},
		cooldown:           cooldown,
	}
}

// Decision is the outcome of a TryBegin call.
type Decision struct {
	Allowed     bool
	Reason      string
	RetryAfter  time.Duration
}

// TryBegin implements spec §4.6's gate: reject if another execution is active
// on this exchange, or if the cooldown since the last execution began
// hasn't elapsed. On success it increments the active count and stamps
// last-execution-at immediately (not at completion) so overlapping requests
// within the same instant are still serialized.
func (s *ExecutionState) TryBegin(exchange string) Decision {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.activeExecutionCnt[exchange] > 0 {
		return Decision{Allowed: false, Reason: "exchange busy with another execution", RetryAfter: 2 * time.Second}
	}
	cd := s.cooldown(exchange)
	if last, ok := s.lastExecutionAt[exchange]; ok {
		elapsed := time.Since(last)
		if elapsed < cd {
			return Decision{Allowed: false, Reason: "cooldown active", RetryAfter: cd - elapsed}
		}
	}
	s.activeExecutionCnt[exchange]++
	s.lastExecutionAt[exchange] = time.Now()
	return Decision{Allowed: true}
}

// Complete decrements the active count on success or error (spec §4.6).
func (s *ExecutionState) Complete(exchange string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activeExecutionCnt[exchange] > 0 {
		s.activeExecutionCnt[exchange]--
	}
}
