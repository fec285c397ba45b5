package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/cromulus/reminders-cli-sub001/change"
	"github.com/cromulus/reminders-cli-sub001/filter"
	"github.com/cromulus/reminders-cli-sub001/task"
)

// DefaultTimeout bounds one delivery attempt.
const DefaultTimeout = 5 * time.Second

const userAgent = "reminders-webhook/1"

// Source provides the subscriptions to deliver to.
type Source interface {
	Active() []Subscription
}

// Options configures a Dispatcher.
//
// Delivery is single-attempt: a failed or timed out POST is logged and
// dropped. There is no retry, no backoff, and a subscription is never
// deactivated because its endpoint fails.
type Options struct {
	// Timeout bounds each delivery. Defaults to DefaultTimeout.
	Timeout time.Duration
	// MaxWorkers caps concurrent deliveries; 0 means one goroutine per
	// delivery. With a cap, Dispatch waits for a free worker.
	MaxWorkers int
	// Client sends the requests. Defaults to a plain http.Client; the
	// per-delivery timeout is applied through the request context.
	Client *http.Client
	// Env supplies the evaluation environment for each event. Defaults to
	// filter.NewEnv.
	Env func() filter.Env
}

// DeliveryError describes one failed delivery.
type DeliveryError struct {
	SubscriptionID string
	URL            string
	StatusCode     int
	Err            error
}

func (e *DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("deliver to %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("deliver to %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}

// Dispatcher fans lifecycle events out to matching subscriptions.
type Dispatcher struct {
	source  Source
	client  *http.Client
	timeout time.Duration
	env     func() filter.Env

	mu     sync.RWMutex // guards closed against in-progress Dispatch calls
	closed bool
	pool   *pool.Pool
}

// NewDispatcher creates a dispatcher reading subscriptions from source.
func NewDispatcher(source Source, opts Options) *Dispatcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Client == nil {
		opts.Client = &http.Client{}
	}
	if opts.Env == nil {
		opts.Env = filter.NewEnv
	}

	p := pool.New()
	if opts.MaxWorkers > 0 {
		p = p.WithMaxGoroutines(opts.MaxWorkers)
	}

	return &Dispatcher{
		source:  source,
		client:  opts.Client,
		timeout: opts.Timeout,
		env:     opts.Env,
		pool:    p,
	}
}

// Dispatch evaluates ev against every active subscription and starts one
// delivery per match. It returns the number of deliveries started, which is
// zero after Close.
func (d *Dispatcher) Dispatch(ev change.Event) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return 0
	}

	subs := d.source.Active()
	if len(subs) == 0 {
		return 0
	}

	body, err := json.Marshal(NewPayload(ev))
	if err != nil {
		slog.Error("failed to encode webhook payload", "task_id", ev.Task.ID, "error", err)
		return 0
	}

	env := d.env()
	started := 0
	for _, sub := range subs {
		if !sub.Active || !sub.Matches(ev.Task, env) {
			continue
		}
		d.pool.Go(func() {
			d.deliverLogged(sub, string(ev.Kind), body)
		})
		started++
	}

	if started > 0 {
		slog.Debug("webhook deliveries started", "event", ev.Kind, "task_id", ev.Task.ID, "deliveries", started)
	}
	return started
}

// SendTest delivers a test payload for t to sub synchronously and returns
// the outcome to the caller. The subscription's filter and active flag are
// not consulted.
func (d *Dispatcher) SendTest(ctx context.Context, sub Subscription, t *task.Task) error {
	if t == nil {
		t = &task.Task{ID: "test", Title: "Test reminder"}
	}
	body, err := json.Marshal(Payload{Event: EventTest, Timestamp: time.Now(), Reminder: t})
	if err != nil {
		return fmt.Errorf("encode test payload: %w", err)
	}
	return d.deliver(ctx, sub, body)
}

func (d *Dispatcher) deliverLogged(sub Subscription, event string, body []byte) {
	start := time.Now()
	if err := d.deliver(context.Background(), sub, body); err != nil {
		slog.Warn("webhook delivery failed",
			"subscription_id", sub.ID, "url", sub.URL, "event", event, "error", err)
		return
	}
	slog.Info("webhook delivered",
		"subscription_id", sub.ID, "url", sub.URL, "event", event, "duration", time.Since(start))
}

// deliver performs a single POST bounded by the dispatcher timeout.
func (d *Dispatcher) deliver(ctx context.Context, sub Subscription, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return &DeliveryError{SubscriptionID: sub.ID, URL: sub.URL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return &DeliveryError{SubscriptionID: sub.ID, URL: sub.URL, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &DeliveryError{SubscriptionID: sub.ID, URL: sub.URL, StatusCode: resp.StatusCode}
	}
	return nil
}

// Close stops accepting events and waits for in-flight deliveries, each of
// which ends on its own timeout at the latest.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.pool.Wait()
}
