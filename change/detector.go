package change

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cromulus/reminders-cli-sub001/task"
)

// DefaultFetchTimeout bounds a single snapshot fetch.
const DefaultFetchTimeout = 5 * time.Second

// Fetcher returns the full current set of reminders.
type Fetcher interface {
	FetchAll(ctx context.Context) ([]*task.Task, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) ([]*task.Task, error)

// FetchAll implements Fetcher
func (f FetcherFunc) FetchAll(ctx context.Context) ([]*task.Task, error) {
	return f(ctx)
}

// Options configures a Detector.
type Options struct {
	// FetchTimeout bounds each fetch; a fetch that overruns yields no events.
	FetchTimeout time.Duration
	// Now stamps events. Defaults to time.Now.
	Now func() time.Time
}

// Detector holds the last snapshot of the store and diffs fresh fetches
// against it. It is safe for concurrent use; overlapping Detect calls are
// coalesced.
type Detector struct {
	fetcher Fetcher
	timeout time.Duration
	now     func() time.Time

	running atomic.Bool

	mu       sync.Mutex
	snapshot Snapshot
	primed   bool
}

// NewDetector creates a detector over fetcher.
func NewDetector(fetcher Fetcher, opts Options) *Detector {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Detector{
		fetcher: fetcher,
		timeout: opts.FetchTimeout,
		now:     opts.Now,
	}
}

// Prime records the current store contents as the baseline without
// emitting events.
func (d *Detector) Prime(ctx context.Context) error {
	tasks, err := d.fetch(ctx)
	if err != nil {
		return fmt.Errorf("prime detector: %w", err)
	}
	snap := NewSnapshot(tasks)

	d.mu.Lock()
	d.snapshot = snap
	d.primed = true
	d.mu.Unlock()

	slog.Debug("change detector primed", "reminders", len(snap))
	return nil
}

// Primed reports whether a baseline snapshot is held.
func (d *Detector) Primed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.primed
}

// Detect runs one detection cycle and returns the events it found. It
// returns nil when another cycle is already running, when the fetch fails
// or times out, and on the first cycle of an unprimed detector.
func (d *Detector) Detect(ctx context.Context) []Event {
	if !d.running.CompareAndSwap(false, true) {
		slog.Debug("detection cycle already running, skipping")
		return nil
	}
	defer d.running.Store(false)

	tasks, err := d.fetch(ctx)
	if err != nil {
		slog.Warn("change detection fetch failed, keeping previous snapshot", "error", err)
		return nil
	}
	next := NewSnapshot(tasks)

	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.primed {
		d.snapshot = next
		d.primed = true
		return nil
	}
	events := Diff(d.snapshot, next, d.now())
	d.snapshot = next
	return events
}

type fetchResult struct {
	tasks []*task.Task
	err   error
}

// fetch runs the fetcher in its own goroutine and waits at most the
// configured timeout for it.
func (d *Detector) fetch(ctx context.Context) ([]*task.Task, error) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	done := make(chan fetchResult, 1)
	go func() {
		tasks, err := d.fetcher.FetchAll(ctx)
		done <- fetchResult{tasks: tasks, err: err}
	}()

	select {
	case res := <-done:
		return res.tasks, res.err
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch reminders: %w", ctx.Err())
	}
}

// Run performs a detection cycle for every signal received and hands each
// event to sink, until ctx is done or signals is closed.
func (d *Detector) Run(ctx context.Context, signals <-chan struct{}, sink func(Event)) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-signals:
			if !ok {
				return
			}
			events := d.Detect(ctx)
			if len(events) > 0 {
				slog.Info("reminder changes detected", "events", len(events))
			}
			for _, ev := range events {
				sink(ev)
			}
		}
	}
}
