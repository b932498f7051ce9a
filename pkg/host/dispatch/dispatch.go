// Package dispatch runs coordinator work on a single OS thread and tags contexts so
// coordinator-only operations can verify where they are running.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/justyntemme/vst3host/pkg/debug"
)

var (
	// ErrNotCoordinator is returned when a coordinator-only operation runs elsewhere.
	ErrNotCoordinator = errors.New("not on coordinator context")
	// ErrClosed is returned when posting to a stopped loop.
	ErrClosed = errors.New("dispatch loop closed")
	// ErrPanicked wraps a panic recovered from a job run by Do.
	ErrPanicked = errors.New("coordinator job panicked")
)

type coordinatorKey struct{}

// WithCoordinator marks ctx as running on the coordinator.
func WithCoordinator(ctx context.Context) context.Context {
	return context.WithValue(ctx, coordinatorKey{}, true)
}

// IsCoordinator reports whether ctx was tagged by WithCoordinator.
func IsCoordinator(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(coordinatorKey{}).(bool)
	return v
}

// Assert returns ErrNotCoordinator wrapped with op unless ctx is a coordinator context.
func Assert(ctx context.Context, op string) error {
	if IsCoordinator(ctx) {
		return nil
	}
	return fmt.Errorf("%s: %w", op, ErrNotCoordinator)
}

// Job is a unit of coordinator work. ctx is tagged as coordinator.
type Job func(ctx context.Context)

// Loop executes posted jobs in order on one goroutine locked to its OS thread.
type Loop struct {
	jobs chan Job
	done chan struct{}
	log  *debug.Logger

	stopped atomic.Bool

	mu      sync.Mutex
	started bool
	closed  bool
}

// NewLoop creates a loop with a job queue of the given depth.
func NewLoop(depth int, log *debug.Logger) *Loop {
	if depth <= 0 {
		depth = 64
	}
	if log == nil {
		log = debug.Nop()
	}
	return &Loop{
		jobs: make(chan Job, depth),
		done: make(chan struct{}),
		log:  log,
	}
}

// Start runs the loop on a new goroutine until ctx is cancelled or Close is called.
func (l *Loop) Start(ctx context.Context) {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()
	go l.Run(ctx)
}

// Run executes jobs on the calling goroutine, locking it to its OS thread.
// It returns when ctx is cancelled, dropping queued jobs, or after Close once the queue is empty.
func (l *Loop) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer close(l.done)

	cctx := WithCoordinator(ctx)
	for {
		select {
		case <-ctx.Done():
			l.stopped.Store(true)
			return ctx.Err()
		case job, ok := <-l.jobs:
			if !ok {
				return nil
			}
			l.run(cctx, job)
		}
	}
}

func (l *Loop) run(ctx context.Context, job Job) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error("coordinator job panicked: %v", r)
		}
	}()
	job(ctx)
}

// Post queues job without waiting for it to run. It blocks while the queue is full.
func (l *Loop) Post(job Job) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.stopped.Load() {
		return ErrClosed
	}
	select {
	case l.jobs <- job:
		return nil
	case <-l.done:
		return ErrClosed
	}
}

// TryPost queues job unless the queue is full. It reports whether the job was queued.
func (l *Loop) TryPost(job Job) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed || l.stopped.Load() {
		return false
	}
	select {
	case l.jobs <- job:
		return true
	default:
		return false
	}
}

// Do runs fn on the coordinator and waits for its result. If ctx is already a coordinator
// context fn runs inline.
func (l *Loop) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if IsCoordinator(ctx) {
		return fn(ctx)
	}
	result := make(chan error, 1)
	err := l.Post(func(cctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("%w: %v", ErrPanicked, r)
			}
		}()
		result <- fn(cctx)
	})
	if err != nil {
		return err
	}
	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case err := <-result:
			return err
		default:
			return ErrClosed
		}
	}
}

// Close stops accepting jobs. Jobs already queued still run.
func (l *Loop) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	close(l.jobs)
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
