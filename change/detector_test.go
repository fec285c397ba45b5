package change

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/cromulus/reminders-cli-sub001/task"
)

var (
	t0 = time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	t1 = t0.Add(time.Minute)
)

func rem(id string, modified time.Time, completed bool) *task.Task {
	m := modified
	return &task.Task{ID: id, Title: "reminder " + id, LastModified: &m, Completed: completed}
}

// fakeFetcher serves a replaceable task list.
type fakeFetcher struct {
	mu    sync.Mutex
	tasks []*task.Task
	err   error
	block chan struct{}
	calls int
}

func (f *fakeFetcher) set(tasks ...*task.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = tasks
}

func (f *fakeFetcher) FetchAll(ctx context.Context) ([]*task.Task, error) {
	f.mu.Lock()
	f.calls++
	block, tasks, err := f.block, f.tasks, f.err
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return tasks, err
}

type kindID struct {
	Kind Kind
	ID   string
}

func summarize(events []Event) []kindID {
	out := make([]kindID, 0, len(events))
	for _, ev := range events {
		out = append(out, kindID{ev.Kind, ev.Task.ID})
	}
	return out
}

func TestDiff(t *testing.T) {
	tests := []struct {
		name string
		prev []*task.Task
		next []*task.Task
		want []kindID
	}{
		{
			name: "unchanged set yields nothing",
			prev: []*task.Task{rem("a", t0, false), rem("b", t0, true)},
			next: []*task.Task{rem("a", t0, false), rem("b", t0, true)},
			want: []kindID{},
		},
		{
			name: "created and deleted",
			prev: []*task.Task{rem("a", t0, false)},
			next: []*task.Task{rem("b", t0, false)},
			want: []kindID{{KindCreated, "b"}, {KindDeleted, "a"}},
		},
		{
			name: "modified without completion flip",
			prev: []*task.Task{rem("a", t0, false)},
			next: []*task.Task{rem("a", t1, false)},
			want: []kindID{{KindUpdated, "a"}},
		},
		{
			name: "completion flip emits update and completed",
			prev: []*task.Task{rem("a", t0, false)},
			next: []*task.Task{rem("a", t1, true)},
			want: []kindID{{KindUpdated, "a"}, {KindCompleted, "a"}},
		},
		{
			name: "uncompletion flip",
			prev: []*task.Task{rem("a", t0, true)},
			next: []*task.Task{rem("a", t1, false)},
			want: []kindID{{KindUpdated, "a"}, {KindUncompleted, "a"}},
		},
		{
			name: "completion flip without modification is ignored",
			prev: []*task.Task{rem("a", t0, false)},
			next: []*task.Task{rem("a", t0, true)},
			want: []kindID{},
		},
		{
			name: "grouped and sorted",
			prev: []*task.Task{rem("z", t0, false), rem("m", t0, false), rem("d2", t0, false), rem("d1", t0, false)},
			next: []*task.Task{rem("z", t1, false), rem("m", t1, true), rem("c2", t0, false), rem("c1", t0, false)},
			want: []kindID{
				{KindCreated, "c1"}, {KindCreated, "c2"},
				{KindUpdated, "m"}, {KindCompleted, "m"}, {KindUpdated, "z"},
				{KindDeleted, "d1"}, {KindDeleted, "d2"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := Diff(NewSnapshot(tt.prev), NewSnapshot(tt.next), t1)
			if diff := cmp.Diff(tt.want, summarize(events)); diff != "" {
				t.Errorf("events mismatch (-want +got):\n%s", diff)
			}
			for _, ev := range events {
				if !ev.Timestamp.Equal(t1) {
					t.Errorf("event timestamp = %v", ev.Timestamp)
				}
			}
		})
	}
}

func TestDiffDeletedCarriesLastKnownState(t *testing.T) {
	gone := rem("a", t0, false)
	gone.Title = "last title"
	events := Diff(NewSnapshot([]*task.Task{gone}), Snapshot{}, t1)
	if len(events) != 1 || events[0].Task.Title != "last title" {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestDetectorCycles(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{}
	f.set(rem("a", t0, false))

	d := NewDetector(f, Options{Now: func() time.Time { return t1 }})
	if d.Primed() {
		t.Fatal("new detector should not be primed")
	}
	if events := d.Detect(ctx); events != nil {
		t.Fatalf("first cycle of unprimed detector emitted %v", events)
	}
	if !d.Primed() {
		t.Fatal("detector should prime on first cycle")
	}

	// idempotent when nothing changes
	for i := 0; i < 3; i++ {
		if events := d.Detect(ctx); len(events) != 0 {
			t.Fatalf("unchanged cycle %d emitted %v", i, summarize(events))
		}
	}

	f.set(rem("a", t1, true), rem("b", t1, false))
	got := summarize(d.Detect(ctx))
	want := []kindID{{KindCreated, "b"}, {KindUpdated, "a"}, {KindCompleted, "a"}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}

	// snapshot replaced: the same state again is quiet
	if events := d.Detect(ctx); len(events) != 0 {
		t.Errorf("repeat cycle emitted %v", summarize(events))
	}
}

func TestDetectorSnapshotIsolatedFromFetcher(t *testing.T) {
	ctx := context.Background()
	shared := rem("a", t0, false)
	f := &fakeFetcher{}
	f.set(shared)

	d := NewDetector(f, Options{})
	if err := d.Prime(ctx); err != nil {
		t.Fatal(err)
	}

	// mutate the fetcher's object in place: the held snapshot must not see it
	m := t1
	shared.LastModified = &m
	if events := d.Detect(ctx); len(events) != 1 || events[0].Kind != KindUpdated {
		t.Errorf("expected one update, got %v", summarize(events))
	}
}

func TestDetectorFetchErrorKeepsSnapshot(t *testing.T) {
	ctx := context.Background()
	f := &fakeFetcher{}
	f.set(rem("a", t0, false))
	d := NewDetector(f, Options{})
	if err := d.Prime(ctx); err != nil {
		t.Fatal(err)
	}

	f.mu.Lock()
	f.err = errors.New("store unavailable")
	f.tasks = nil
	f.mu.Unlock()
	if events := d.Detect(ctx); events != nil {
		t.Fatalf("failed fetch emitted %v", summarize(events))
	}

	f.mu.Lock()
	f.err = nil
	f.mu.Unlock()
	f.set(rem("a", t0, false))
	if events := d.Detect(ctx); len(events) != 0 {
		t.Errorf("snapshot was lost on failed fetch: %v", summarize(events))
	}
}

func TestDetectorFetchTimeout(t *testing.T) {
	f := &fakeFetcher{}
	f.set(rem("a", t0, false))
	d := NewDetector(f, Options{FetchTimeout: 20 * time.Millisecond})
	if err := d.Prime(context.Background()); err != nil {
		t.Fatal(err)
	}

	f.mu.Lock()
	f.block = make(chan struct{}) // never released
	f.mu.Unlock()
	f.set(rem("b", t0, false))

	start := time.Now()
	if events := d.Detect(context.Background()); events != nil {
		t.Fatalf("timed out fetch emitted %v", summarize(events))
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Detect waited %v despite 20ms timeout", elapsed)
	}
	if err := d.Prime(context.Background()); err == nil {
		t.Error("Prime should report the timeout")
	}
}

func TestDetectorCoalescesOverlappingCycles(t *testing.T) {
	f := &fakeFetcher{}
	f.set(rem("a", t0, false))
	d := NewDetector(f, Options{})
	if err := d.Prime(context.Background()); err != nil {
		t.Fatal(err)
	}

	release := make(chan struct{})
	f.mu.Lock()
	f.block = release
	f.mu.Unlock()
	f.set(rem("a", t0, false), rem("b", t0, false))

	first := make(chan []Event)
	go func() { first <- d.Detect(context.Background()) }()

	// wait until the first cycle is inside the fetch
	deadline := time.Now().Add(time.Second)
	for !d.running.Load() {
		if time.Now().After(deadline) {
			t.Fatal("first cycle never started")
		}
		time.Sleep(time.Millisecond)
	}

	if events := d.Detect(context.Background()); events != nil {
		t.Errorf("overlapping cycle should be dropped, got %v", summarize(events))
	}

	close(release)
	if got := summarize(<-first); len(got) != 1 || got[0] != (kindID{KindCreated, "b"}) {
		t.Errorf("first cycle events = %v", got)
	}
}

func TestDetectorRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := &fakeFetcher{}
	f.set(rem("a", t0, false))
	d := NewDetector(f, Options{})
	if err := d.Prime(ctx); err != nil {
		t.Fatal(err)
	}

	signals := make(chan struct{})
	events := make(chan Event, 10)
	done := make(chan struct{})
	go func() {
		d.Run(ctx, signals, func(ev Event) { events <- ev })
		close(done)
	}()

	f.set(rem("a", t0, false), rem("b", t0, false))
	signals <- struct{}{}

	select {
	case ev := <-events:
		if ev.Kind != KindCreated || ev.Task.ID != "b" {
			t.Errorf("unexpected event %+v", ev)
		}
	case <-time.After(time.Second):
		t.Fatal("no event delivered")
	}

	close(signals)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after signals closed")
	}
}
