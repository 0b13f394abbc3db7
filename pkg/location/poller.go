package location

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"foodstreet/pkg/geo"
)

// Poller turns a Provider into a Source by polling it on a fixed interval.
// The first poll happens immediately; polls never overlap.
type Poller struct {
	provider Provider
	interval time.Duration
	track    *geo.TrackBuffer
	logger   *slog.Logger

	updates chan Fix
	running atomic.Bool

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewPoller creates a Poller. minMoveMeters filters GPS jitter out of the heading.
func NewPoller(p Provider, interval time.Duration, minMoveMeters float64) *Poller {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Poller{
		provider: p,
		interval: interval,
		track:    geo.NewTrackBuffer(5, minMoveMeters),
		logger:   slog.With("component", "location"),
		updates:  make(chan Fix, 1),
	}
}

// Start authorizes the provider and starts polling. Calling Start on a running
// poller is a no-op.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return nil
	}

	if err := p.provider.Authorize(ctx); err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return err
		}
		return fmt.Errorf("location: authorize: %w", err)
	}

	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p.cancel = cancel
	p.done = make(chan struct{})
	p.track.Reset()
	p.running.Store(true)

	go p.loop(loopCtx, p.done)
	p.logger.Info("Location polling started", "interval", p.interval)
	return nil
}

// Stop halts polling and waits for the loop to exit.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	p.running.Store(false)
	p.logger.Info("Location polling stopped")
}

// Updates returns the fix stream. It has a single consumer; when the consumer
// lags, the stale fix is replaced by the newest one.
func (p *Poller) Updates() <-chan Fix {
	return p.updates
}

// IsRunning reports whether the poll loop is active.
func (p *Poller) IsRunning() bool {
	return p.running.Load()
}

func (p *Poller) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.poll(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.poll(ctx)
		}
	}
}

func (p *Poller) poll(ctx context.Context) {
	fix, err := p.provider.Current(ctx)
	if err != nil {
		if ctx.Err() == nil {
			p.logger.Debug("Location poll failed", "error", err)
		}
		return
	}
	if fix.Timestamp.IsZero() {
		fix.Timestamp = time.Now()
	}
	fix.Heading = p.track.Push(fix.Point())
	p.publish(fix)
}

func (p *Poller) publish(fix Fix) {
	select {
	case p.updates <- fix:
		return
	default:
	}
	// Drop the stale fix.
	select {
	case <-p.updates:
	default:
	}
	select {
	case p.updates <- fix:
	default:
	}
}
