package userinbox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notificare/notificare-go"
)

type fakeEnvironment struct{}

func (fakeEnvironment) UserAgent() string       { return "test-agent/1.0" }
func (fakeEnvironment) Locale() string          { return "en-US" }
func (fakeEnvironment) TimeZoneOffset() float64 { return 1 }
func (fakeEnvironment) TestDeviceNonce() string { return "" }
func (fakeEnvironment) IsAppleSafari() bool     { return false }

func (fakeEnvironment) OpenURL(ctx context.Context, rawURL string) error { return nil }

func newFixture(t *testing.T, useUserInbox bool) *UserInbox {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/api/application/info":
			inbox := `{"useUserInbox": false}`
			if useUserInbox {
				inbox = `{"useUserInbox": true}`
			}
			w.Write([]byte(`{
				"application": {
					"_id": "test-app",
					"services": {},
					"inboxConfig": ` + inbox + `
				}
			}`))
		case r.Method == http.MethodGet && r.URL.Path == "/api/notification/n-1":
			w.Write([]byte(`{
				"notification": {
					"_id": "n-1",
					"type": "re.notifica.notification.Alert",
					"message": "full body"
				}
			}`))
		default:
			w.Write([]byte(`{}`))
		}
	}))
	t.Cleanup(srv.Close)

	client := notificare.New(notificare.WithEnvironment(fakeEnvironment{}))
	u := Attach(client)

	ctx := context.Background()
	require.NoError(t, client.Configure(ctx, notificare.Options{
		ApplicationKey:    "test-key",
		ApplicationSecret: "test-secret",
		ServicesHost:      srv.URL,
	}))
	require.NoError(t, client.Launch(ctx))

	return u
}

func TestParse(t *testing.T) {
	t.Parallel()

	u := newFixture(t, true)

	resp, err := u.Parse([]byte(`{
		"count": 2,
		"unread": 1,
		"items": [
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
				"opened": true
			}
		]
	}`))
	require.NoError(t, err)

	assert.Equal(t, 2, resp.Count)
	assert.Equal(t, 1, resp.Unread)
	require.Len(t, resp.Items, 2)

	first := resp.Items[0]
	assert.Equal(t, "item-1", first.ID)
	require.NotNil(t, first.Notification)
	assert.Equal(t, "n-1", first.Notification.ID)
	assert.True(t, first.Notification.Partial)
	assert.Equal(t, "First", first.Notification.Title)
}

func TestParseRejectsMalformedPayload(t *testing.T) {
	t.Parallel()

	u := newFixture(t, true)

	_, err := u.Parse([]byte(`{not json`))
	require.Error(t, err)
}

func TestParseRequiresUserInbox(t *testing.T) {
	t.Parallel()

	u := newFixture(t, false)

	_, err := u.Parse([]byte(`{"count": 0, "unread": 0, "items": []}`))
	require.ErrorIs(t, err, ErrUserInboxUnavailable)
}

func TestOpenCompletesAndEmits(t *testing.T) {
	t.Parallel()

	u := newFixture(t, true)

	opened := 0
	u.client.On(notificare.EventNotificationOpened, func(any) { opened++ })

	resp, err := u.Parse([]byte(`{
		"count": 1,
		"unread": 1,
		"items": [
			{"_id": "item-1", "notification": "n-1", "type": "re.notifica.notification.Alert", "opened": false}
		]
	}`))
	require.NoError(t, err)

	n, err := u.Open(context.Background(), resp.Items[0])
	require.NoError(t, err)
	assert.False(t, n.Partial)
	assert.Equal(t, "full body", n.Message)
	assert.Equal(t, 1, opened)
}

func TestOpenRequiresLaunch(t *testing.T) {
	t.Parallel()

	client := notificare.New(notificare.WithEnvironment(fakeEnvironment{}))
	u := Attach(client)

	_, err := u.Open(context.Background(), Item{})
	require.ErrorIs(t, err, notificare.ErrNotReady)
}
