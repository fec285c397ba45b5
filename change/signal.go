package change

import (
	"context"
	"time"
)

// DefaultDebounce is the quiet period Debounce waits for.
const DefaultDebounce = 250 * time.Millisecond

// Notifier is a level-triggered change signal. Any number of Notify calls
// between two receives collapse into one pending signal, and Notify never
// blocks, so it can be called from store listeners and watcher callbacks.
type Notifier struct {
	ch chan struct{}
}

// NewNotifier returns a Notifier with no pending signal.
func NewNotifier() *Notifier {
	return &Notifier{ch: make(chan struct{}, 1)}
}

// Notify marks a change as pending.
func (n *Notifier) Notify() {
	select {
	case n.ch <- struct{}{}:
	default:
	}
}

// C returns the signal channel.
func (n *Notifier) C() <-chan struct{} {
	return n.ch
}

// Debounce forwards one signal after in has been quiet for window. Bursts
// of signals closer together than window produce a single output. The
// returned channel is closed when ctx is done or in is closed; a pending
// signal is flushed before closing on the latter.
func Debounce(ctx context.Context, in <-chan struct{}, window time.Duration) <-chan struct{} {
	if window <= 0 {
		window = DefaultDebounce
	}
	out := make(chan struct{}, 1)

	go func() {
		defer close(out)

		// Stop and Reset discard stale ticks (Go 1.23 timer semantics),
		// so the channel is never drained by hand.
		timer := time.NewTimer(window)
		timer.Stop()
		pending := false

		emit := func() {
			select {
			case out <- struct{}{}:
			default:
			}
		}

		for {
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case _, ok := <-in:
				if !ok {
					timer.Stop()
					if pending {
						emit()
					}
					return
				}
				timer.Reset(window)
				pending = true
			case <-timer.C:
				pending = false
				emit()
			}
		}
	}()

	return out
}
