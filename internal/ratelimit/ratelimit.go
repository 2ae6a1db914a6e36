package ratelimit

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Spacer keeps a jittered gap between consecutive navigations to the target
// site. After repeated failures the gap widens by backoffFactor, capped at
// maxBackoff, and resets on the next success.
type Spacer struct {
	mu         sync.Mutex
	baseMin    time.Duration
	baseMax    time.Duration
	minDelay   time.Duration
	maxDelay   time.Duration
	lastAction time.Time
	errorCount int
	rnd        *rand.Rand

	maxErrorCount int
	backoffFactor float64
	maxBackoff    time.Duration
}

func NewSpacer(minDelay, maxDelay time.Duration) *Spacer {
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	return &Spacer{
		baseMin:       minDelay,
		baseMax:       maxDelay,
		minDelay:      minDelay,
		maxDelay:      maxDelay,
		rnd:           rand.New(rand.NewSource(time.Now().UnixNano())),
		maxErrorCount: 3,
		backoffFactor: 1.5,
		maxBackoff:    2 * time.Minute,
	}
}

// Wait blocks until the gap since the previous action has elapsed.
// Concurrent callers are queued one gap apart. A caller whose context ends
// first hands its slot back when nobody has queued behind it.
func (s *Spacer) Wait(ctx context.Context) error {
	s.mu.Lock()
	now := time.Now()
	next := now
	if !s.lastAction.IsZero() {
		if due := s.lastAction.Add(s.delay()); due.After(now) {
			next = due
		}
	}
	prev := s.lastAction
	s.lastAction = next
	s.mu.Unlock()

	wait := time.Until(next)
	if wait <= 0 {
		if err := ctx.Err(); err != nil {
			s.release(prev, next)
			return err
		}
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		s.release(prev, next)
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// release gives back an unused slot. Slots queued behind it are kept.
func (s *Spacer) release(prev, reserved time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastAction.Equal(reserved) {
		s.lastAction = prev
	}
}

func (s *Spacer) RecordSuccess() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errorCount = 0
	s.minDelay = s.baseMin
	s.maxDelay = s.baseMax
}

func (s *Spacer) RecordError() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.errorCount++
	if s.errorCount < s.maxErrorCount {
		return
	}

	s.minDelay = s.grow(s.minDelay)
	s.maxDelay = s.grow(s.maxDelay)
	s.errorCount = 0
}

// Delays returns the current bounds of the gap.
func (s *Spacer) Delays() (time.Duration, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.minDelay, s.maxDelay
}

func (s *Spacer) grow(d time.Duration) time.Duration {
	if d <= 0 {
		d = time.Second
	}
	grown := time.Duration(float64(d) * s.backoffFactor)
	if grown > s.maxBackoff {
		grown = s.maxBackoff
	}
	return grown
}

func (s *Spacer) delay() time.Duration {
	if s.maxDelay <= s.minDelay {
		return s.minDelay
	}
	delta := s.maxDelay - s.minDelay
	return s.minDelay + time.Duration(s.rnd.Int63n(int64(delta)))
}
