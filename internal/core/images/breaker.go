package images

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

type breakerState int

const (
	stateClosed breakerState = iota
	stateOpen
	stateHalfOpen
)

func (s breakerState) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

type hostCircuit struct {
	state       breakerState
	failures    int
	lastFailure time.Time
}

// hostBreaker stops downloads from a picture host after consecutive failures, and lets a
// single probe through once openDuration has passed.
type hostBreaker struct {
	mu               sync.Mutex
	hosts            map[string]*hostCircuit
	failureThreshold int
	openDuration     time.Duration
	now              func() time.Time
}

func newHostBreaker(failureThreshold int, openDuration time.Duration) *hostBreaker {
	return &hostBreaker{
		hosts:            make(map[string]*hostCircuit),
		failureThreshold: failureThreshold,
		openDuration:     openDuration,
		now:              time.Now,
	}
}

// allow returns ErrHostUnavailable while the circuit for host is open.
func (b *hostBreaker) allow(host string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.hosts[host]
	if !ok || c.state != stateOpen {
		return nil
	}

	if b.now().Sub(c.lastFailure) > b.openDuration {
		c.state = stateHalfOpen
		slog.Info("[FB-IMAGES] circuit half-open, probing host", "host", host)
		return nil
	}

	nextRetry := c.lastFailure.Add(b.openDuration)
	return fmt.Errorf("%w: %s (failures: %d, next retry: %s)",
		ErrHostUnavailable, host, c.failures, nextRetry.Format("15:04:05"))
}

func (b *hostBreaker) recordSuccess(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.hosts[host]
	if !ok {
		return
	}
	if c.state != stateClosed {
		slog.Info("[FB-IMAGES] circuit closed, host recovered", "host", host)
	}
	delete(b.hosts, host)
}

func (b *hostBreaker) recordFailure(host string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.hosts[host]
	if !ok {
		c = &hostCircuit{}
		b.hosts[host] = c
	}
	c.failures++
	c.lastFailure = b.now()

	if c.state == stateHalfOpen || c.failures >= b.failureThreshold {
		if c.state != stateOpen {
			slog.Warn("[FB-IMAGES] opening circuit for host",
				"host", host,
				"failures", c.failures,
				"error", err,
			)
		}
		c.state = stateOpen
		return
	}

	slog.Debug("[FB-IMAGES] download failure",
		"host", host,
		"failures", c.failures,
		"threshold", b.failureThreshold,
		"error", err,
	)
}

func (b *hostBreaker) state(host string) breakerState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.hosts[host]; ok {
		return c.state
	}
	return stateClosed
}
