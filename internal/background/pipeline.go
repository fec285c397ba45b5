// Package background runs the change detection pipeline: store listeners,
// a database file watcher, and a poll ticker all signal the detector, whose
// events are handed to a sink (normally the webhook dispatcher).
package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/sourcegraph/conc"

	"github.com/cromulus/reminders-cli-sub001/change"
	"github.com/cromulus/reminders-cli-sub001/store"
)

// PipelineOptions wires the change pipeline.
type PipelineOptions struct {
	Store    store.Store
	Detector *change.Detector
	Sink     func(change.Event)

	// DBPath enables the file watcher when non-empty.
	DBPath string
	// Debounce is the quiet window before a detection cycle runs.
	Debounce time.Duration
	// PollInterval forces a cycle periodically; 0 disables polling.
	PollInterval time.Duration
}

// Pipeline is a running change pipeline.
type Pipeline struct {
	notifier *change.Notifier
	cancel   context.CancelFunc
	wg       conc.WaitGroup
}

// StartChangePipeline primes the detector and starts the background
// goroutines. The pipeline runs until ctx is done or Stop is called.
func StartChangePipeline(ctx context.Context, opts PipelineOptions) *Pipeline {
	ctx, cancel := context.WithCancel(ctx)
	p := &Pipeline{notifier: change.NewNotifier(), cancel: cancel}

	// existing reminders are the baseline, not creations
	if err := opts.Detector.Prime(ctx); err != nil {
		slog.Warn("initial reminder snapshot failed, will retry on first change", "error", err)
	}

	listenerID := opts.Store.AddListener(p.notifier.Notify)
	p.wg.Go(func() {
		<-ctx.Done()
		opts.Store.RemoveListener(listenerID)
	})

	if opts.DBPath != "" {
		done, err := StartDatabaseWatcher(ctx, opts.DBPath, p.notifier.Notify)
		if err != nil {
			slog.Warn("database watcher disabled", "error", err)
		} else {
			p.wg.Go(func() { <-done })
		}
	}

	if opts.PollInterval > 0 {
		p.wg.Go(func() {
			ticker := time.NewTicker(opts.PollInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					p.notifier.Notify()
				}
			}
		})
	}

	signals := change.Debounce(ctx, p.notifier.C(), opts.Debounce)
	p.wg.Go(func() {
		opts.Detector.Run(ctx, signals, opts.Sink)
	})

	slog.Info("change detection started",
		"poll_interval", opts.PollInterval, "debounce", opts.Debounce, "watch", opts.DBPath != "")
	return p
}

// Trigger requests a detection cycle.
func (p *Pipeline) Trigger() {
	p.notifier.Notify()
}

// Stop cancels the pipeline and waits for its goroutines to exit.
func (p *Pipeline) Stop() {
	p.cancel()
	p.wg.Wait()
}
