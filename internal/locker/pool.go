package locker

import (
	"errors"
	"sync/atomic"
)

var (
	ErrNoHealthy = errors.New("no healthy locker daemons")
	ErrNoAcquire = errors.New("locker daemon not acquired")
)

// Pool spreads mints round-robin over the daemons whose breakers are closed
// or ready to probe.
type Pool struct {
	daemons           []Daemon
	roundRobinCounter atomic.Uint64
}

func NewPool(daemons []Daemon) *Pool {
	return &Pool{daemons: daemons}
}

func (p *Pool) Len() int { return len(p.daemons) }

// Select returns an acquired daemon. The caller must finish with Done or Abort.
func (p *Pool) Select() (Daemon, error) {
	healthy := make([]Daemon, 0, len(p.daemons))
	for _, d := range p.daemons {
		if d.Ready() {
			healthy = append(healthy, d)
		}
	}

	if len(healthy) == 0 {
		return nil, ErrNoHealthy
	}

	x := p.roundRobinCounter.Add(1)
	d := healthy[int((x-1)%uint64(len(healthy)))]

	if !d.Acquire() {
		return nil, ErrNoAcquire
	}

	return d, nil
}
