package inbox

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notificare/notificare-go"
)

const defaultApplicationJSON = `{
	"application": {
		"_id": "test-app",
		"name": "Test Application",
		"services": {"inbox": true},
		"inboxConfig": {"useInbox": true, "autoBadge": true}
	}
}`

const defaultInboxJSON = `{
	"inboxItems": [
		{
			"_id": "item-1",
			"notification": "n-1",
			"type": "re.notifica.notification.Alert",
			"time": "2024-06-01T10:00:00Z",
			"title": "First",
			"message": "first message",
			"opened": false
		},
		{
			"_id": "item-2",
			"notification": "n-2",
			"type": "re.notifica.notification.Alert",
			"time": "2024-06-01T09:00:00Z",
			"message": "second message",
			"opened": true,
			"attachment": {"mimeType": "image/png", "uri": "https://cdn.example.com/a.png"}
		}
	],
	"count": 2,
	"unread": 1
}`

type fakeEnvironment struct{}

func (fakeEnvironment) UserAgent() string       { return "test-agent/1.0" }
func (fakeEnvironment) Locale() string          { return "en-US" }
func (fakeEnvironment) TimeZoneOffset() float64 { return 1 }
func (fakeEnvironment) TestDeviceNonce() string { return "" }
func (fakeEnvironment) IsAppleSafari() bool     { return false }

func (fakeEnvironment) OpenURL(ctx context.Context, rawURL string) error { return nil }

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   []byte
}

type testBackend struct {
	mu       sync.Mutex
	app      string
	requests []recordedRequest
	handlers map[string]http.HandlerFunc
}

func newTestBackend() *testBackend {
	return &testBackend{
		app:      defaultApplicationJSON,
		handlers: make(map[string]http.HandlerFunc),
	}
}

func (b *testBackend) handle(key string, fn http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[key] = fn
}

func (b *testBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	b.requests = append(b.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Body:   body,
	})
	app := b.app
	var handler http.HandlerFunc
	for key, fn := range b.handlers {
		method, prefix, ok := strings.Cut(key, " ")
		if ok && r.Method == method && strings.HasPrefix(r.URL.Path, prefix) {
			handler = fn
			break
		}
	}
	b.mu.Unlock()

	if handler != nil {
		handler(w, r)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/api/application/info":
		w.Write([]byte(app))
	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/api/notification/inbox/fordevice/"):
		w.Write([]byte(defaultInboxJSON))
	default:
		w.Write([]byte(`{}`))
	}
}

func (b *testBackend) count(method, prefix string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, req := range b.requests {
		if req.Method == method && strings.HasPrefix(req.Path, prefix) {
			n++
		}
	}
	return n
}

func (b *testBackend) last(method, prefix string) *recordedRequest {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i := len(b.requests) - 1; i >= 0; i-- {
		req := b.requests[i]
		if req.Method == method && strings.HasPrefix(req.Path, prefix) {
			return &req
		}
	}
	return nil
}

func (b *testBackend) eventCount(eventType string) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := 0
	for _, req := range b.requests {
		if req.Method != http.MethodPost || req.Path != "/api/event" {
			continue
		}
		var payload struct {
			Type string `json:"type"`
		}
		if json.Unmarshal(req.Body, &payload) == nil && payload.Type == eventType {
			n++
		}
	}
	return n
}

type fixture struct {
	client  *notificare.Client
	inbox   *Inbox
	backend *testBackend
}

func newFixture(t *testing.T, app string) *fixture {
	t.Helper()

	backend := newTestBackend()
	if app != "" {
		backend.app = app
	}
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client := notificare.New(notificare.WithEnvironment(fakeEnvironment{}))
	in := Attach(client)

	ctx := context.Background()
	require.NoError(t, client.Configure(ctx, notificare.Options{
		ApplicationKey:    "test-key",
		ApplicationSecret: "test-secret",
		ServicesHost:      srv.URL,
	}))
	require.NoError(t, client.Launch(ctx))

	return &fixture{client: client, inbox: in, backend: backend}
}

func TestFetchParsesItems(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	since := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	resp, err := f.inbox.Fetch(context.Background(), FetchOptions{
		Since: &since,
		Skip:  5,
		Limit: 20,
	})
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 1, resp.Unread)
	require.Len(t, resp.Items, 2)

	first := resp.Items[0]
	assert.Equal(t, "item-1", first.ID)
	assert.False(t, first.Opened)
	require.NotNil(t, first.Notification)
	assert.Equal(t, "n-1", first.Notification.ID)
	assert.True(t, first.Notification.Partial)
	assert.Equal(t, "First", first.Notification.Title)
	assert.Equal(t, "first message", first.Notification.Message)

	second := resp.Items[1]
	assert.True(t, second.Opened)
	require.Len(t, second.Notification.Attachments, 1)
	assert.Equal(t, "image/png", second.Notification.Attachments[0].MimeType)

	req := f.backend.last(http.MethodGet, "/api/notification/inbox/fordevice/")
	require.NotNil(t, req)
	assert.Contains(t, req.Query, "skip=5")
	assert.Contains(t, req.Query, "limit=20")
	assert.Contains(t, req.Query, "since=1714521600000")
}

func TestOpenCompletesMarksReadAndEmits(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	ctx := context.Background()

	f.backend.handle(http.MethodGet+" /api/notification/n-1", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"notification": {
				"_id": "n-1",
				"type": "re.notifica.notification.Alert",
				"message": "full body"
			}
		}`))
	})

	opened := 0
	updated := 0
	f.client.On(notificare.EventNotificationOpened, func(any) { opened++ })
	f.client.On(notificare.EventInboxUpdated, func(any) { updated++ })

	resp, err := f.inbox.Fetch(ctx, FetchOptions{Limit: 10})
	require.NoError(t, err)

	n, err := f.inbox.Open(ctx, resp.Items[0])
	require.NoError(t, err)
	assert.False(t, n.Partial)
	assert.Equal(t, "full body", n.Message)

	assert.Equal(t, 1, opened)
	assert.Equal(t, 1, updated)
	assert.Equal(t, 1, f.backend.count(http.MethodPut, "/api/notification/inbox/item-1"))
	assert.Equal(t, 1, f.backend.eventCount("re.notifica.event.notification.Open"))
}

func TestMarkAllAsRead(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")

	require.NoError(t, f.inbox.MarkAllAsRead(context.Background()))
	assert.Equal(t, 1, f.backend.count(http.MethodPut, "/api/notification/inbox/fordevice/"))
}

func TestRemoveAndClear(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	ctx := context.Background()

	resp, err := f.inbox.Fetch(ctx, FetchOptions{Limit: 10})
	require.NoError(t, err)

	require.NoError(t, f.inbox.Remove(ctx, resp.Items[0]))
	assert.Equal(t, 1, f.backend.count(http.MethodDelete, "/api/notification/inbox/item-1"))

	require.NoError(t, f.inbox.Clear(ctx))
	assert.Equal(t, 1, f.backend.count(http.MethodDelete, "/api/notification/inbox/fordevice/"))
}

func TestLaunchReconcilesBadge(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")

	// The fixture backend serves one unread item, so the launch sequence must
	// have fetched the count and persisted it before the client became ready.
	badge, err := f.inbox.Badge(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, badge)
	assert.Equal(t, 1, f.backend.count(http.MethodGet, "/api/notification/inbox/fordevice/"))
}

func TestBadgeRefreshPersistsAndAnnounces(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	ctx := context.Background()

	f.backend.handle(http.MethodGet+" /api/notification/inbox/fordevice/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"inboxItems": [], "count": 7, "unread": 3}`))
	})

	var announced []int
	f.client.On(notificare.EventBadgeUpdated, func(data any) {
		if badge, ok := data.(int); ok {
			announced = append(announced, badge)
		}
	})

	badge, err := f.inbox.RefreshBadge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, badge)
	assert.Equal(t, []int{3}, announced)

	stored, err := f.inbox.Badge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stored)
}

func TestBadgeDefaultsToZero(t *testing.T) {
	t.Parallel()

	app := `{
		"application": {
			"_id": "test-app",
			"services": {"inbox": true},
			"inboxConfig": {"useInbox": true, "autoBadge": false}
		}
	}`
	f := newFixture(t, app)
	ctx := context.Background()

	badge, err := f.inbox.Badge(ctx)
	require.NoError(t, err)
	assert.Zero(t, badge)

	_, err = f.inbox.RefreshBadge(ctx)
	require.ErrorIs(t, err, ErrAutoBadgeUnavailable)
}

func TestFetchRequiresLaunch(t *testing.T) {
	t.Parallel()

	client := notificare.New(notificare.WithEnvironment(fakeEnvironment{}))
	in := Attach(client)

	_, err := in.Fetch(context.Background(), FetchOptions{Limit: 10})
	require.ErrorIs(t, err, notificare.ErrNotReady)
}

func TestFetchRequiresInboxService(t *testing.T) {
	t.Parallel()

	app := `{
		"application": {
			"_id": "test-app",
			"services": {}
		}
	}`
	f := newFixture(t, app)

	_, err := f.inbox.Fetch(context.Background(), FetchOptions{Limit: 10})

	var unavailable *notificare.ServiceUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, notificare.ServiceInbox, unavailable.Service)
}

func TestFetchRequiresInboxConfig(t *testing.T) {
	t.Parallel()

	app := `{
		"application": {
			"_id": "test-app",
			"services": {"inbox": true}
		}
	}`
	f := newFixture(t, app)

	_, err := f.inbox.Fetch(context.Background(), FetchOptions{Limit: 10})
	require.ErrorIs(t, err, ErrInboxUnavailable)
}

func TestForegroundRefreshesBadge(t *testing.T) {
	t.Parallel()

	f := newFixture(t, "")
	ctx := context.Background()

	refreshed := 0
	f.client.On(notificare.EventBadgeUpdated, func(any) { refreshed++ })

	f.client.HandleForeground(ctx)
	assert.Equal(t, 1, refreshed)
}
