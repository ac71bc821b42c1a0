package backoff

import (
	"math/rand"
	"sync"
	"time"
)

// Exponential produces a doubling delay with optional jitter. Not safe for
// concurrent use; each retry loop owns its instance.
type Exponential struct {
	Base     time.Duration
	Max      time.Duration
	Jitter   float64
	attempts int
}

// NextDelay returns the delay before the next attempt.
func (b *Exponential) NextDelay() time.Duration {
	b.attempts++
	delay := b.Base << (b.attempts - 1)
	if delay > b.Max || delay <= 0 {
		delay = b.Max
	}
	if b.Jitter > 0 {
		span := float64(delay) * b.Jitter
		delay = time.Duration(float64(delay) + (rand.Float64()*2-1)*span)
		if delay < 0 {
			delay = 0
		}
	}
	return delay
}

// Reset clears the attempt counter.
func (b *Exponential) Reset() {
	b.attempts = 0
}

// Keyed tracks an exponential hold-off window per key. Used to stop hammering
// the token endpoint for an account whose refresh token has been revoked.
type Keyed struct {
	Base time.Duration
	Max  time.Duration

	mu       sync.Mutex
	attempts map[string]int
	until    map[string]time.Time
}

// NewKeyed creates a per-key backoff tracker.
func NewKeyed(base, max time.Duration) *Keyed {
	return &Keyed{
		Base:     base,
		Max:      max,
		attempts: make(map[string]int),
		until:    make(map[string]time.Time),
	}
}

// ShouldSkip reports whether the key is still inside its hold-off window.
func (b *Keyed) ShouldSkip(key string, now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	until, ok := b.until[key]
	return ok && now.Before(until)
}

// RecordFailure extends the key's hold-off window and returns its length.
func (b *Keyed) RecordFailure(key string, now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	attempts := b.attempts[key] + 1
	b.attempts[key] = attempts
	delay := b.Base << (attempts - 1)
	if delay > b.Max || delay <= 0 {
		delay = b.Max
	}
	b.until[key] = now.Add(delay)
	return delay
}

// Reset clears the key's window after a success.
func (b *Keyed) Reset(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.attempts, key)
	delete(b.until, key)
}

// NextReadyAt returns when the key leaves its hold-off window, if it is in one.
func (b *Keyed) NextReadyAt(key string) (time.Time, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	until, ok := b.until[key]
	return until, ok
}
