package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/cromulus/reminders-cli-sub001/filter"
	"github.com/cromulus/reminders-cli-sub001/store"
	"github.com/cromulus/reminders-cli-sub001/task"
	"github.com/cromulus/reminders-cli-sub001/testutil"
	"github.com/cromulus/reminders-cli-sub001/webhook"
)

var testNow = time.Date(2026, 3, 11, 10, 0, 0, 0, time.Local)

// fakeTester records test deliveries instead of sending them.
type fakeTester struct {
	mu   sync.Mutex
	sent []*task.Task
	subs []webhook.Subscription
	err  error
}

func (f *fakeTester) SendTest(_ context.Context, sub webhook.Subscription, t *task.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, t)
	f.subs = append(f.subs, sub)
	return f.err
}

type testServer struct {
	store    *store.InMemoryStore
	registry *webhook.Registry
	tester   *fakeTester
	handler  http.Handler
}

func newTestServer(t *testing.T, token string) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := testutil.NewStore(t, "Groceries", "Work")
	s.SetClock(func() time.Time { return testNow })

	ts := &testServer{store: s, registry: webhook.NewRegistry(""), tester: &fakeTester{}}
	srv := New(Deps{
		Store:     s,
		Registry:  ts.registry,
		Tester:    ts.tester,
		Shortcuts: filter.DefaultShortcuts,
		Env: func() filter.Env {
			return filter.Env{Now: testNow, Dates: &filter.DateResolver{}}
		},
	}, token)
	ts.handler = srv.Handler()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func errorMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	return decode[map[string]string](t, w)["error"]
}

func TestBearerAuth(t *testing.T) {
	ts := newTestServer(t, "s3cret")

	tests := []struct {
		name   string
		header []string
		want   int
	}{
		{name: "missing", want: http.StatusUnauthorized},
		{name: "wrong token", header: []string{"Authorization", "Bearer nope"}, want: http.StatusUnauthorized},
		{name: "wrong scheme", header: []string{"Authorization", "Basic s3cret"}, want: http.StatusUnauthorized},
		{name: "valid", header: []string{"Authorization", "Bearer s3cret"}, want: http.StatusOK},
		{name: "scheme case-insensitive", header: []string{"Authorization", "bearer s3cret"}, want: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, "/lists", nil, tt.header...)
			require.Equal(t, tt.want, w.Code)
			if tt.want == http.StatusUnauthorized {
				require.Equal(t, "unauthorized", errorMessage(t, w))
			}
		})
	}
}

func TestNoTokenAllowsAll(t *testing.T) {
	ts := newTestServer(t, "")
	w := ts.do(t, http.MethodGet, "/webhooks", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, "[]", w.Body.String())
}

func TestStatusFor(t *testing.T) {
	_, parseErr := filter.ParseFilter("title =")
	require.Error(t, parseErr)

	tests := []struct {
		err  error
		want int
	}{
		{badInput(context.Canceled), http.StatusBadRequest},
		{parseErr, http.StatusBadRequest},
		{webhook.ErrInvalidURL, http.StatusBadRequest},
		{task.Validate(&task.Task{Priority: 11}), http.StatusBadRequest},
		{store.ErrNotFound, http.StatusNotFound},
		{store.ErrListNotFound, http.StatusNotFound},
		{store.ErrConflict, http.StatusConflict},
		{webhook.ErrClosed, http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, statusFor(tt.err), "%v", tt.err)
	}
}
