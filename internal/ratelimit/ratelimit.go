// Package ratelimit tracks failed decryption attempts per protected
// resource and enforces lockouts. It is a local defensive control for a
// single process, not a distributed limiter, and explicitly not a
// substitute for the cipher's own key-derivation cost.
package ratelimit

import (
	"encoding/hex"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/sealbox/sealbox/internal/errs"
)

// Policy tunes the sliding window.
type Policy struct {
	MaxAttempts int
	Window      time.Duration
	Lockout     time.Duration
}

type record struct {
	attempts    []time.Time
	lockedUntil time.Time
}

// Limiter is safe for concurrent use by multiple job workers. Records
// live for the process lifetime and self-expire; there is no manual
// reset beyond a successful decryption calling Clear.
type Limiter struct {
	mu      sync.Mutex
	policy  Policy
	records map[string]*record
	now     func() time.Time
}

// New creates a Limiter. Construct one per process and pass it by
// reference to every workflow controller.
func New(policy Policy) *Limiter {
	return &Limiter{
		policy:  policy,
		records: make(map[string]*record),
		now:     time.Now,
	}
}

// Key derives the stable resource identifier for a canonical path.
func Key(canonicalPath string) string {
	sum := blake3.Sum256([]byte(canonicalPath))
	return hex.EncodeToString(sum[:16])
}

// Check reports whether an attempt against key may proceed. While locked
// it returns a RateLimitError advising the remaining wait.
func (l *Limiter) Check(key string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rec, ok := l.records[key]
	if !ok {
		return nil
	}
	l.expireLocked(rec, now)

	if rec.lockedUntil.After(now) {
		return &errs.RateLimitError{Remaining: rec.lockedUntil.Sub(now)}
	}
	if len(rec.attempts) == 0 && rec.lockedUntil.IsZero() {
		delete(l.records, key)
	}
	return nil
}

// RecordFailure notes a failed attempt for key, locking the resource
// once the threshold is reached within the window.
func (l *Limiter) RecordFailure(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	rec, ok := l.records[key]
	if !ok {
		rec = &record{}
		l.records[key] = rec
	}
	l.expireLocked(rec, now)

	rec.attempts = append(rec.attempts, now)
	if len(rec.attempts) >= l.policy.MaxAttempts {
		rec.lockedUntil = now.Add(l.policy.Lockout)
	}

	l.pruneLocked(now)
}

// Clear removes the record for key after a successful decryption.
func (l *Limiter) Clear(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.records, key)
}

// expireLocked drops attempts outside the window and stale lockouts.
func (l *Limiter) expireLocked(rec *record, now time.Time) {
	cutoff := now.Add(-l.policy.Window)
	kept := rec.attempts[:0]
	for _, t := range rec.attempts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	rec.attempts = kept
	if !rec.lockedUntil.IsZero() && !rec.lockedUntil.After(now) {
		rec.lockedUntil = time.Time{}
		// The lockout served its purpose; start a fresh window.
		rec.attempts = rec.attempts[:0]
	}
}

// pruneLocked opportunistically removes fully-expired records so the
// table does not grow with every path ever attempted.
func (l *Limiter) pruneLocked(now time.Time) {
	for k, rec := range l.records {
		l.expireLocked(rec, now)
		if len(rec.attempts) == 0 && rec.lockedUntil.IsZero() {
			delete(l.records, k)
		}
	}
}
