package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/cromulus/reminders-cli-sub001/change"
	"github.com/cromulus/reminders-cli-sub001/filter"
	"github.com/cromulus/reminders-cli-sub001/task"
)

// receiver records every webhook POST it receives.
type receiver struct {
	mu       sync.Mutex
	payloads []map[string]any
	headers  []http.Header
	status   int
	delay    time.Duration
}

func (rc *receiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if rc.delay > 0 {
		time.Sleep(rc.delay)
	}
	body, _ := io.ReadAll(r.Body)
	var payload map[string]any
	_ = json.Unmarshal(body, &payload)

	rc.mu.Lock()
	rc.payloads = append(rc.payloads, payload)
	rc.headers = append(rc.headers, r.Header.Clone())
	status := rc.status
	rc.mu.Unlock()

	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
}

func (rc *receiver) count() int {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return len(rc.payloads)
}

func (rc *receiver) request(i int) (map[string]any, http.Header) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return rc.payloads[i], rc.headers[i]
}

func (rc *receiver) setStatus(status int) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	rc.status = status
}

func newEvent(kind change.Kind, tk *task.Task) change.Event {
	return change.Event{Kind: kind, Task: tk, Timestamp: time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)}
}

func TestDispatchDeliversToEveryMatchingActiveSubscription(t *testing.T) {
	rc := &receiver{}
	srv := httptest.NewServer(rc)
	defer srv.Close()

	r := NewRegistry("")
	const matching = 4
	for i := 0; i < matching; i++ {
		_, err := r.Add(srv.URL, mustFilter(t, "priority IN ('high','medium')"), "match")
		require.NoError(t, err)
	}
	_, err := r.Add(srv.URL, mustFilter(t, "list = Elsewhere"), "no match")
	require.NoError(t, err)
	inactive, err := r.Add(srv.URL, nil, "inactive")
	require.NoError(t, err)
	off := false
	_, err = r.Update(inactive.ID, Update{Active: &off})
	require.NoError(t, err)

	d := NewDispatcher(r, Options{})
	tk := &task.Task{ID: "R1", Title: "Buy milk", Priority: 1, ListName: "Groceries", Notes: "2%"}
	started := d.Dispatch(newEvent(change.KindCompleted, tk))
	d.Close()

	require.Equal(t, matching, started)
	require.Equal(t, matching, rc.count())

	payload, h := rc.request(0)
	require.Equal(t, "completed", payload["event"])
	require.Equal(t, "2026-03-11T10:00:00Z", payload["timestamp"])
	reminder := payload["reminder"].(map[string]any)
	require.Equal(t, "R1", reminder["uuid"])
	require.Equal(t, float64(1), reminder["priority"])
	require.Equal(t, "Groceries", reminder["listName"])
	for _, key := range []string{"title", "notes", "dueDate", "isCompleted", "listUUID", "creationDate", "lastModifiedDate", "completionDate"} {
		require.Contains(t, reminder, key)
	}
	require.NotContains(t, reminder, "id")

	require.Equal(t, "application/json", h.Get("Content-Type"))
	require.Equal(t, userAgent, h.Get("User-Agent"))
}

func TestDispatchIsConcurrent(t *testing.T) {
	rc := &receiver{delay: 200 * time.Millisecond}
	srv := httptest.NewServer(rc)
	defer srv.Close()

	r := NewRegistry("")
	for i := 0; i < 5; i++ {
		_, err := r.Add(srv.URL, nil, "slow")
		require.NoError(t, err)
	}

	d := NewDispatcher(r, Options{})
	start := time.Now()
	require.Equal(t, 5, d.Dispatch(newEvent(change.KindCreated, &task.Task{ID: "R1"})))
	require.Less(t, time.Since(start), 100*time.Millisecond, "Dispatch must not wait for deliveries")

	d.Close()
	require.Less(t, time.Since(start), 900*time.Millisecond, "deliveries should run in parallel")
	require.Equal(t, 5, rc.count())
}

func TestDispatchFailuresAreIsolated(t *testing.T) {
	failing := &receiver{status: http.StatusInternalServerError}
	failSrv := httptest.NewServer(failing)
	defer failSrv.Close()

	ok := &receiver{}
	okSrv := httptest.NewServer(ok)
	defer okSrv.Close()

	var slowHits atomic.Int32
	slowSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slowHits.Add(1)
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slowSrv.Close()

	r := NewRegistry("")
	for _, u := range []string{failSrv.URL, slowSrv.URL, "http://127.0.0.1:1/unreachable", okSrv.URL} {
		_, err := r.Add(u, nil, "hook")
		require.NoError(t, err)
	}

	d := NewDispatcher(r, Options{Timeout: 50 * time.Millisecond})
	require.Equal(t, 4, d.Dispatch(newEvent(change.KindUpdated, &task.Task{ID: "R1"})))

	start := time.Now()
	d.Close()
	require.Less(t, time.Since(start), time.Second, "timeout must bound in-flight deliveries")

	require.Equal(t, 1, ok.count())
	require.Equal(t, 1, failing.count())
	require.Equal(t, int32(1), slowHits.Load())

	// failures never deactivate subscriptions
	require.Len(t, r.Active(), 4)
}

func TestDispatchAfterClose(t *testing.T) {
	rc := &receiver{}
	srv := httptest.NewServer(rc)
	defer srv.Close()

	r := NewRegistry("")
	_, err := r.Add(srv.URL, nil, "hook")
	require.NoError(t, err)

	d := NewDispatcher(r, Options{MaxWorkers: 2})
	d.Close()
	d.Close()
	require.Zero(t, d.Dispatch(newEvent(change.KindCreated, &task.Task{ID: "R1"})))
	require.Zero(t, rc.count())
}

func TestDispatchUsesEnvForDates(t *testing.T) {
	rc := &receiver{}
	srv := httptest.NewServer(rc)
	defer srv.Close()

	r := NewRegistry("")
	_, err := r.Add(srv.URL, mustFilter(t, "overdue"), "overdue only")
	require.NoError(t, err)

	now := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	d := NewDispatcher(r, Options{Env: func() filter.Env {
		return filter.Env{Now: now, Dates: &filter.DateResolver{}}
	}})
	defer d.Close()

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	require.Equal(t, 1, d.Dispatch(newEvent(change.KindUpdated, &task.Task{ID: "A", DueDate: &past})))
	require.Equal(t, 0, d.Dispatch(newEvent(change.KindUpdated, &task.Task{ID: "B", DueDate: &future})))
}

func TestSendTest(t *testing.T) {
	rc := &receiver{}
	srv := httptest.NewServer(rc)
	defer srv.Close()

	d := NewDispatcher(NewRegistry(""), Options{})
	defer d.Close()

	sub := Subscription{ID: "s1", URL: srv.URL, Active: false, Filter: mustFilter(t, "list = nowhere")}
	require.NoError(t, d.SendTest(context.Background(), sub, nil))
	require.Equal(t, 1, rc.count())
	payload, _ := rc.request(0)
	require.Equal(t, EventTest, payload["event"])

	rc.setStatus(http.StatusBadGateway)
	err := d.SendTest(context.Background(), sub, &task.Task{ID: "X"})
	var delivery *DeliveryError
	require.True(t, errors.As(err, &delivery))
	require.Equal(t, http.StatusBadGateway, delivery.StatusCode)
	require.Equal(t, "s1", delivery.SubscriptionID)
}
