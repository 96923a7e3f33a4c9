package notificare

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeClock is a manually advanced Clock. Timers fire synchronously from
// Advance in firing order.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	when    time.Time
	fn      func()
	stopped bool
	fired   bool
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{now: start}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, fn func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := &fakeTimer{clock: c, when: c.now.Add(d), fn: fn}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	now := c.now

	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.when.After(now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].when.Before(due[j].when) })
	for _, t := range due {
		t.fn()
	}
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()

	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// fakeEnvironment is a deterministic Environment recording navigations.
type fakeEnvironment struct {
	mu     sync.Mutex
	locale string
	nonce  string
	opened []string
}

func (e *fakeEnvironment) UserAgent() string { return "test-agent/1.0" }

func (e *fakeEnvironment) Locale() string {
	if e.locale == "" {
		return "en-US"
	}
	return e.locale
}

func (e *fakeEnvironment) TimeZoneOffset() float64 { return 1 }

func (e *fakeEnvironment) TestDeviceNonce() string { return e.nonce }

func (e *fakeEnvironment) OpenURL(ctx context.Context, rawURL string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opened = append(e.opened, rawURL)
	return nil
}

func (e *fakeEnvironment) IsAppleSafari() bool { return false }

type recordedRequest struct {
	Method string
	Path   string
	Body   []byte
}

// apiRecorder is an httptest backend serving the REST surface the SDK talks
// to, recording every request. Individual routes are overridable per test.
type apiRecorder struct {
	mu       sync.Mutex
	requests []recordedRequest
	handlers map[string]http.HandlerFunc
}

func newAPIRecorder() *apiRecorder {
	return &apiRecorder{handlers: make(map[string]http.HandlerFunc)}
}

// handle overrides a route. The key is "METHOD /path/prefix".
func (a *apiRecorder) handle(key string, fn http.HandlerFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[key] = fn
}

func (a *apiRecorder) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	a.mu.Lock()
	a.requests = append(a.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Body:   body,
	})
	var handler http.HandlerFunc
	for key, fn := range a.handlers {
		method, prefix, ok := strings.Cut(key, " ")
		if ok && r.Method == method && strings.HasPrefix(r.URL.Path, prefix) {
			handler = fn
			break
		}
	}
	a.mu.Unlock()

	if handler != nil {
		handler(w, r)
		return
	}

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/application/info":
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"application": {
				"_id": "test-app",
				"name": "Test Application",
				"services": {"websitePush": true, "inbox": true, "inAppMessaging": true},
				"inboxConfig": {"useInbox": true, "useUserInbox": false, "autoBadge": true},
				"websitePushConfig": {
					"launchConfig": {
						"autoOnboardingOptions": {"message": "enable?", "retryAfterHours": 24}
					}
				}
			}
		}`))
	default:
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}
}

func (a *apiRecorder) count(method, prefix string) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	n := 0
	for _, req := range a.requests {
		if req.Method == method && strings.HasPrefix(req.Path, prefix) {
			n++
		}
	}
	return n
}

func (a *apiRecorder) last(method, prefix string) *recordedRequest {
	a.mu.Lock()
	defer a.mu.Unlock()

	for i := len(a.requests) - 1; i >= 0; i-- {
		req := a.requests[i]
		if req.Method == method && strings.HasPrefix(req.Path, prefix) {
			return &req
		}
	}
	return nil
}

func testOptions(serverURL string) Options {
	return Options{
		ApplicationKey:    "test-key",
		ApplicationSecret: "test-secret",
		ServicesHost:      serverURL,
	}
}

// newTestClient builds a client against the recorder with a fake clock and
// environment, sharing the given store so tests can simulate host restarts.
func newTestClient(t *testing.T, rec *apiRecorder, opts ...ClientOption) (*Client, *httptest.Server) {
	t.Helper()

	srv := httptest.NewServer(rec)
	t.Cleanup(srv.Close)

	base := []ClientOption{
		WithEnvironment(&fakeEnvironment{}),
		WithClock(newFakeClock(time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC))),
	}
	client := New(append(base, opts...)...)
	return client, srv
}
