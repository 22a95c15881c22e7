// Package ratelimit provides a FIFO call gate that paces outbound requests
// to quota-limited APIs. Callers block in submission order; each dispatch is
// separated from the previous one by a fixed minimum interval derived from
// the allowed requests per minute.
package ratelimit

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrClosed is returned by Do after the limiter has been closed.
var ErrClosed = errors.New("ratelimit: limiter closed")

// defaultRPM is the floor used when a caller passes a non-positive quota.
const defaultRPM = 30

type job struct {
	ctx  context.Context
	fn   func(context.Context) error
	done chan error
}

// Limiter serializes calls through a single drain loop. Concurrent Do calls
// are safe: each enqueues and blocks until its turn is serviced. The limiter
// never retries; the wrapped function's error is handed back to its caller.
type Limiter struct {
	interval time.Duration
	jobs     chan *job
	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Limiter allowing at most requestsPerMinute dispatches per
// minute, evenly spaced. Calls beyond the quota queue rather than fail.
func New(requestsPerMinute int) *Limiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = defaultRPM
	}
	l := &Limiter{
		interval: time.Minute / time.Duration(requestsPerMinute),
		jobs:     make(chan *job, 256),
		stop:     make(chan struct{}),
	}
	go l.drain()
	return l
}

// Do enqueues fn and blocks until it has been run, returning fn's error.
// If ctx is canceled while the call is still queued, Do returns ctx.Err()
// and the slot is skipped when it comes up.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	j := &job{ctx: ctx, fn: fn, done: make(chan error, 1)}

	select {
	case l.jobs <- j:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stop:
		return ErrClosed
	}

	select {
	case err := <-j.done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.stop:
		return ErrClosed
	}
}

// Len returns the number of calls currently waiting in the queue.
func (l *Limiter) Len() int {
	return len(l.jobs)
}

// Interval returns the minimum spacing between dispatches.
func (l *Limiter) Interval() time.Duration {
	return l.interval
}

// Close stops the drain loop. Queued callers are released with ErrClosed.
func (l *Limiter) Close() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *Limiter) drain() {
	for {
		select {
		case <-l.stop:
			return
		case j := <-l.jobs:
			// Skip work the caller already gave up on.
			select {
			case <-j.ctx.Done():
				j.done <- j.ctx.Err()
				continue
			default:
			}

			j.done <- j.fn(j.ctx)

			timer := time.NewTimer(l.interval)
			select {
			case <-timer.C:
			case <-l.stop:
				timer.Stop()
				return
			}
		}
	}
}
