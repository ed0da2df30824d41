package locker

import (
	"sync"
	"time"
)

type state int

const (
	closed state = iota
	open
	halfOpen
)

// MicroBreaker trips after failThreshold consecutive failed mints and keeps
// the daemon out of rotation for openFor. One probe is let through after
// that; its outcome closes or re-opens the breaker.
type MicroBreaker struct {
	mu               sync.Mutex
	st               state
	consecutiveFails int
	failThreshold    int
	openFor          time.Duration
	nextTryAt        time.Time
	probeInFlight    bool
	now              func() time.Time
}

func NewMicroBreaker(threshold int, openFor time.Duration) *MicroBreaker {
	return &MicroBreaker{failThreshold: threshold, openFor: openFor, now: time.Now}
}

func (b *MicroBreaker) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.st {
	case open:
		return b.now().After(b.nextTryAt) && !b.probeInFlight
	case halfOpen:
		return !b.probeInFlight
	default:
		return true
	}
}

func (b *MicroBreaker) TryAcquire() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.st {
	case open:
		if b.now().After(b.nextTryAt) && !b.probeInFlight {
			b.st = halfOpen
			b.probeInFlight = true
			return true
		}
		return false
	case halfOpen:
		if !b.probeInFlight {
			b.probeInFlight = true
			return true
		}
		return false
	default:
		return true
	}
}

func (b *MicroBreaker) OnSuccess() {
	b.mu.Lock()
	b.consecutiveFails = 0
	b.st = closed
	b.probeInFlight = false
	b.mu.Unlock()
}

func (b *MicroBreaker) OnFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.st == halfOpen {
		b.trip()
		return
	}

	b.consecutiveFails++
	if b.consecutiveFails >= b.failThreshold {
		b.trip()
	}
}

// OnAbort releases an acquisition whose caller went away before the daemon
// answered. A half-open probe goes back to open and may be retried at once.
func (b *MicroBreaker) OnAbort() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.st == halfOpen {
		b.st = open
		b.nextTryAt = time.Time{}
	}
	b.probeInFlight = false
}

// caller holds mu
func (b *MicroBreaker) trip() {
	b.st = open
	b.nextTryAt = b.now().Add(b.openFor)
	b.probeInFlight = false
}
