package request

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"
)

// ErrBackingOff is returned for a host that failed recently and is not retried yet.
var ErrBackingOff = errors.New("host is backing off")

// HostBackoff tracks failing admin hosts. A host in backoff is skipped rather than
// waited for, so the syncer moves on to the next candidate endpoint at once.
type HostBackoff struct {
	mu        sync.Mutex
	hosts     map[string]*hostState
	baseDelay time.Duration
	maxDelay  time.Duration
	now       func() time.Time
}

type hostState struct {
	failures int
	until    time.Time
}

// NewHostBackoff creates a backoff whose delay doubles per consecutive failure, capped at maxDelay.
func NewHostBackoff(baseDelay, maxDelay time.Duration) *HostBackoff {
	return &HostBackoff{
		hosts:     make(map[string]*hostState),
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
		now:       time.Now,
	}
}

// Allow returns an error wrapping ErrBackingOff while host is in backoff.
func (b *HostBackoff) Allow(host string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.hosts[host]
	if !ok {
		return nil
	}
	if wait := st.until.Sub(b.now()); wait > 0 {
		return fmt.Errorf("%w: %s for another %v", ErrBackingOff, host, wait.Round(time.Millisecond))
	}
	return nil
}

// RecordFailure puts host into backoff for a longer period than the last one.
func (b *HostBackoff) RecordFailure(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.hosts[host]
	if !ok {
		st = &hostState{}
		b.hosts[host] = st
	}
	st.failures++
	st.until = b.now().Add(b.delay(st.failures))
}

// RecordSuccess forgets one failure; the host leaves backoff when none are left.
func (b *HostBackoff) RecordSuccess(host string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	st, ok := b.hosts[host]
	if !ok {
		return
	}
	if st.failures > 0 {
		st.failures--
	}
	if st.failures == 0 {
		delete(b.hosts, host)
	}
}

// State returns the failure count and the end of the current backoff for host.
func (b *HostBackoff) State(host string) (failures int, until time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if st, ok := b.hosts[host]; ok {
		return st.failures, st.until
	}
	return 0, time.Time{}
}

// delay is baseDelay * 2^(failures-1), capped, plus up to 10% jitter.
func (b *HostBackoff) delay(failures int) time.Duration {
	d := b.baseDelay
	for i := 1; i < failures && d < b.maxDelay; i++ {
		d *= 2
	}
	d = min(d, b.maxDelay)
	return d + time.Duration(rand.Float64()*0.1*float64(d))
}
