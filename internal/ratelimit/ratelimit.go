// Package ratelimit implements an action-keyed sliding-window limiter
// with escalating lockouts. Keys are caller-defined strings (for
// example "comment:<identity>" or "register:<ip>"), so the same limiter
// serves the comment pipeline and unrelated endpoints alike.
//
// All state is in-memory and single-process. Multi-instance
// deployments need a shared store behind the same interface.
package ratelimit

import (
	"sync"
	"time"
)

type weightedEvent struct {
	timestamp time.Time
	units     int
}

// bucket tracks one action key. History and penalties live together so
// a violation can wipe history while the block governs re-entry.
type bucket struct {
	timestamps     []time.Time
	weightedEvents []weightedEvent
	blockedUntil   time.Time
	strikes        int
	lastViolation  time.Time
}

// State is a read-only snapshot of a bucket
type State struct {
	Blocked      bool
	RetryAfterMs int64
	Strikes      int
}

// Limiter owns the bucket map behind one mutex. Expected contention is
// low, so a coarse lock beats per-key locks for simplicity.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	// now is swappable for tests
	now func() time.Time
}

// New creates an empty Limiter
func New() *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// NewWithClock creates a Limiter with an injected clock
func NewWithClock(now func() time.Time) *Limiter {
	return &Limiter{
		buckets: make(map[string]*bucket),
		now:     now,
	}
}

func basePenalty(window time.Duration) time.Duration {
	if p := window / 2; p > 1500*time.Millisecond {
		return p
	}
	return 1500 * time.Millisecond
}

func maxPenalty(window time.Duration) time.Duration {
	if p := window * 5; p > 30*time.Second {
		return p
	}
	return 30 * time.Second
}

// decayStrikes resets strikes after sustained good behavior. Evaluated
// lazily at the top of every call; there is no background timer.
func (b *bucket) decayStrikes(now time.Time, window time.Duration) {
	if b.strikes == 0 {
		return
	}
	if now.Before(b.blockedUntil) {
		return
	}
	if !b.lastViolation.IsZero() && now.Sub(b.lastViolation) > 2*window {
		b.strikes = 0
	}
}

// violate records a strike and sets or extends the block. Retrying
// while blocked lands here too, so hammering a blocked key makes the
// block longer. History is cleared so only the block governs re-entry.
func (b *bucket) violate(now time.Time, window time.Duration) {
	b.strikes++
	b.lastViolation = now

	penalty := basePenalty(window)
	for i := 1; i < b.strikes; i++ {
		penalty *= 2
		if penalty >= maxPenalty(window) {
			break
		}
	}
	if penalty > maxPenalty(window) {
		penalty = maxPenalty(window)
	}

	if now.Before(b.blockedUntil) {
		extended := b.blockedUntil.Add(penalty / 2)
		if ceiling := now.Add(maxPenalty(window)); extended.After(ceiling) {
			extended = ceiling
		}
		b.blockedUntil = extended
	} else {
		b.blockedUntil = now.Add(penalty)
	}

	b.timestamps = nil
	b.weightedEvents = nil
}

func (l *Limiter) getBucket(action string) *bucket {
	b, ok := l.buckets[action]
	if !ok {
		b = &bucket{}
		l.buckets[action] = b
	}
	return b
}

// Check records an event for the action and reports whether it is
// allowed: at most max events inside the trailing window. A call while
// blocked counts as a fresh violation.
func (l *Limiter) Check(action string, max int, window time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := l.getBucket(action)
	b.decayStrikes(now, window)

	if now.Before(b.blockedUntil) {
		b.violate(now, window)
		return false
	}

	cutoff := now.Add(-window)
	kept := b.timestamps[:0]
	for _, ts := range b.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.timestamps = kept

	if len(b.timestamps) >= max {
		b.violate(now, window)
		return false
	}

	b.timestamps = append(b.timestamps, now)
	return true
}

// CheckWeighted is Check with per-event weights: the sum of units
// inside the window must stay at or below maxUnits.
func (l *Limiter) CheckWeighted(action string, maxUnits int, window time.Duration, units int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b := l.getBucket(action)
	b.decayStrikes(now, window)

	if now.Before(b.blockedUntil) {
		b.violate(now, window)
		return false
	}

	cutoff := now.Add(-window)
	kept := b.weightedEvents[:0]
	total := 0
	for _, ev := range b.weightedEvents {
		if ev.timestamp.After(cutoff) {
			kept = append(kept, ev)
			total += ev.units
		}
	}
	b.weightedEvents = kept

	if total+units > maxUnits {
		b.violate(now, window)
		return false
	}

	b.weightedEvents = append(b.weightedEvents, weightedEvent{timestamp: now, units: units})
	return true
}

// State returns a snapshot without mutating anything
func (l *Limiter) State(action string) State {
	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[action]
	if !ok {
		return State{}
	}

	now := l.now()
	state := State{Strikes: b.strikes}
	if now.Before(b.blockedUntil) {
		state.Blocked = true
		state.RetryAfterMs = b.blockedUntil.Sub(now).Milliseconds()
	}
	return state
}

// Reset deletes the bucket for an action
func (l *Limiter) Reset(action string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, action)
}
