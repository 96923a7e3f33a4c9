package push

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notificare/notificare-go"
)

type fakeNotificationPresenter struct {
	mu        sync.Mutex
	presented []*notificare.Notification
	dismissed int
	reply     *Reply
	failWith  error
}

func (p *fakeNotificationPresenter) Present(ctx context.Context, n *notificare.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failWith != nil {
		return p.failWith
	}
	p.presented = append(p.presented, n)
	return nil
}

func (p *fakeNotificationPresenter) Dismiss(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.dismissed++
	return nil
}

func (p *fakeNotificationPresenter) CaptureReply(ctx context.Context, n *notificare.Notification, action notificare.NotificationAction) (*Reply, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.reply == nil {
		return &Reply{}, nil
	}
	return p.reply, nil
}

func (p *fakeNotificationPresenter) presentedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.presented)
}

func urlNotification(id, kind, target string) *notificare.Notification {
	n := &notificare.Notification{
		ID:      id,
		Type:    kind,
		Message: "hello",
	}
	if target != "" {
		n.Content = []notificare.NotificationContent{
			{Type: "re.notifica.content.URL", Data: target},
		}
	}
	return n
}

func TestPresentAlertGoesThroughPresenter(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	var events []string
	for _, event := range []string{
		notificare.EventNotificationWillPresent,
		notificare.EventNotificationPresented,
		notificare.EventNotificationFinishedPresenting,
	} {
		event := event
		f.client.On(event, func(any) { events = append(events, event) })
	}

	n := &notificare.Notification{ID: "n-1", Type: notificare.NotificationTypeAlert, Message: "hi"}
	require.NoError(t, f.push.Present(context.Background(), n))

	assert.Equal(t, 1, f.ui.presentedCount())
	assert.True(t, f.client.Overlays().IsVisible(notificare.OverlayNotification))

	require.NoError(t, f.push.Dismiss(context.Background()))
	assert.False(t, f.client.Overlays().IsVisible(notificare.OverlayNotification))
	assert.Equal(t, []string{
		notificare.EventNotificationWillPresent,
		notificare.EventNotificationPresented,
		notificare.EventNotificationFinishedPresenting,
	}, events)
}

func TestDismissWithoutShownNotificationFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	finished := 0
	f.client.On(notificare.EventNotificationFinishedPresenting, func(any) { finished++ })

	require.ErrorIs(t, f.push.Dismiss(context.Background()), ErrNoNotificationShown)
	assert.Zero(t, finished)
}

func TestPresentInAppBrowserNavigates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	n := urlNotification("n-1", notificare.NotificationTypeInAppBrowser, "https://example.com/page")
	require.NoError(t, f.push.Present(context.Background(), n))

	assert.Equal(t, []string{"https://example.com/page"}, f.env.openedURLs())
	assert.Zero(t, f.ui.presentedCount())
}

func TestPresentBlankURLFallsBackToRoot(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	n := urlNotification("n-1", notificare.NotificationTypeInAppBrowser, "")
	require.NoError(t, f.push.Present(context.Background(), n))

	assert.Equal(t, []string{"/"}, f.env.openedURLs())
}

func TestPresentURLSchemeResolvesDynamicLink(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.backend.handle(http.MethodGet+" /api/link/dynamic/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"link": {"target": "myapp://resolved"}}`))
	})

	n := urlNotification("n-1", notificare.NotificationTypeURLScheme, "https://ntc.re/abc123")
	require.NoError(t, f.push.Present(context.Background(), n))

	assert.Equal(t, []string{"myapp://resolved"}, f.env.openedURLs())
	assert.Equal(t, 1, f.backend.count(http.MethodGet, "/api/link/dynamic/"))
}

func TestPresentURLSchemeSkipsResolutionForOtherHosts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	n := urlNotification("n-1", notificare.NotificationTypeURLScheme, "myapp://direct")
	require.NoError(t, f.push.Present(context.Background(), n))

	assert.Equal(t, []string{"myapp://direct"}, f.env.openedURLs())
	assert.Zero(t, f.backend.count(http.MethodGet, "/api/link/dynamic/"))
}

func TestPresentPassbook(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.backend.handle(http.MethodGet+" /api/pass/forserial/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"pass": {"_id": "p-1", "serial": "serial-1", "version": 2}}`))
	})

	n := urlNotification("n-1", notificare.NotificationTypePassbook, "https://push.notifica.re/pass/forserial/serial-1")
	require.NoError(t, f.push.Present(context.Background(), n))

	// Non-Safari host without a Google Pay link gets the hosted web pass.
	opened := f.env.openedURLs()
	require.Len(t, opened, 1)
	assert.Contains(t, opened[0], "/pass/web/serial-1")
}

func TestPresentPassbookPrefersGooglePayLink(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.backend.handle(http.MethodGet+" /api/pass/forserial/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"pass": {"_id": "p-1", "serial": "serial-1", "version": 1, "googlePaySaveLink": "https://pay.google.com/save/abc"}}`))
	})

	n := urlNotification("n-1", notificare.NotificationTypePassbook, "https://push.notifica.re/pass/forserial/serial-1")
	require.NoError(t, f.push.Present(context.Background(), n))

	assert.Equal(t, []string{"https://pay.google.com/save/abc"}, f.env.openedURLs())
}

func TestPresentUnsupportedTypeFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	failed := 0
	f.client.On(notificare.EventNotificationFailedToPresent, func(any) { failed++ })

	n := &notificare.Notification{ID: "n-1", Type: "re.notifica.notification.Bogus"}
	err := f.push.Present(context.Background(), n)
	require.ErrorIs(t, err, ErrUnsupportedNotificationType)
	assert.Equal(t, 1, failed)
}

func TestPresentCompletesPartialNotifications(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.backend.handle(http.MethodGet+" /api/notification/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"notification": {
				"_id": "n-1",
				"type": "re.notifica.notification.Alert",
				"message": "full body"
			}
		}`))
	})

	partial := &notificare.Notification{ID: "n-1", Partial: true, Type: notificare.NotificationTypeAlert}
	require.NoError(t, f.push.Present(context.Background(), partial))

	require.Equal(t, 1, f.ui.presentedCount())
	f.ui.mu.Lock()
	assert.Equal(t, "full body", f.ui.presented[0].Message)
	assert.False(t, f.ui.presented[0].Partial)
	f.ui.mu.Unlock()
}

func TestPresentActionBrowserRecordsReplyAndNavigates(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	var events []string
	for _, event := range []string{
		notificare.EventActionWillExecute,
		notificare.EventActionExecuted,
	} {
		event := event
		f.client.On(event, func(any) { events = append(events, event) })
	}

	n := &notificare.Notification{ID: "n-1", Type: notificare.NotificationTypeAlert}
	action := notificare.NotificationAction{
		Type:   notificare.ActionTypeBrowser,
		Label:  "Visit",
		Target: "https://example.com/visit",
	}
	require.NoError(t, f.push.PresentAction(ctx, n, action))

	assert.Equal(t, []string{"https://example.com/visit"}, f.env.openedURLs())
	assert.Equal(t, []string{
		notificare.EventActionWillExecute,
		notificare.EventActionExecuted,
	}, events)

	reply := f.backend.last(http.MethodPost, "/api/reply")
	require.NotNil(t, reply)

	var payload struct {
		Notification string `json:"notification"`
		DeviceID     string `json:"deviceID"`
		Label        string `json:"label"`
	}
	require.NoError(t, json.Unmarshal(reply.Body, &payload))
	assert.Equal(t, "n-1", payload.Notification)
	assert.NotEmpty(t, payload.DeviceID)
	assert.Equal(t, "Visit", payload.Label)
}

func TestPresentActionCallbackWebhookFlattensQuery(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	n := &notificare.Notification{ID: "n-1", Type: notificare.NotificationTypeAlert}
	action := notificare.NotificationAction{
		Type:   notificare.ActionTypeCallback,
		Label:  "Report",
		Target: "https://hooks.example.com/cb?source=push&channel=web",
	}
	require.NoError(t, f.push.PresentAction(ctx, n, action))

	webhook := f.backend.last(http.MethodPost, "/api/reply/webhook")
	require.NotNil(t, webhook)

	var body map[string]string
	require.NoError(t, json.Unmarshal(webhook.Body, &body))
	assert.Equal(t, "push", body["source"])
	assert.Equal(t, "web", body["channel"])
	assert.Equal(t, "https://hooks.example.com/cb", body["target"])
	assert.Equal(t, "n-1", body["notification"])
	assert.Equal(t, "Report", body["label"])
	assert.NotEmpty(t, body["deviceID"])

	// The standard reply follows the webhook.
	assert.Equal(t, 1, f.backend.pathCount(http.MethodPost, "/api/reply"))
	assert.Equal(t, 1, f.backend.pathCount(http.MethodPost, "/api/reply/webhook"))
}

func TestPresentActionAppRecordsReplyBeforeNavigation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	// Capture how many replies were recorded at the moment navigation starts.
	var repliesAtOpen []int
	f.env.onOpen = func() {
		repliesAtOpen = append(repliesAtOpen, f.backend.pathCount(http.MethodPost, "/api/reply"))
	}

	n := &notificare.Notification{ID: "n-1", Type: notificare.NotificationTypeAlert}
	action := notificare.NotificationAction{
		Type:   notificare.ActionTypeApp,
		Label:  "Open",
		Target: "/landing",
	}
	require.NoError(t, f.push.PresentAction(ctx, n, action))

	assert.Equal(t, []string{"/landing"}, f.env.openedURLs())
	assert.Equal(t, []int{1}, repliesAtOpen)
}

func TestPresentActionCallbackCapturesKeyboardReply(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.ui.reply = &Reply{Message: "typed response"}
	ctx := context.Background()

	n := &notificare.Notification{ID: "n-1", Type: notificare.NotificationTypeAlert}
	action := notificare.NotificationAction{
		Type:     notificare.ActionTypeCallback,
		Label:    "Reply",
		Keyboard: true,
	}
	require.NoError(t, f.push.PresentAction(ctx, n, action))

	reply := f.backend.last(http.MethodPost, "/api/reply")
	require.NotNil(t, reply)

	var payload struct {
		Data struct {
			Message string `json:"message"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(reply.Body, &payload))
	assert.Equal(t, "typed response", payload.Data.Message)
}

func TestPresentActionUnsupportedType(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	willExecute := 0
	failed := 0
	f.client.On(notificare.EventActionWillExecute, func(any) { willExecute++ })
	f.client.On(notificare.EventActionFailedToExecute, func(any) { failed++ })

	n := &notificare.Notification{ID: "n-1", Type: notificare.NotificationTypeAlert}
	action := notificare.NotificationAction{Type: "re.notifica.action.Bogus", Label: "?"}

	err := f.push.PresentAction(context.Background(), n, action)
	require.ErrorIs(t, err, ErrUnsupportedActionType)
	assert.Equal(t, 1, willExecute)
	assert.Equal(t, 1, failed)
}

func TestPresentActionTelephone(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	n := &notificare.Notification{ID: "n-1", Type: notificare.NotificationTypeAlert}
	action := notificare.NotificationAction{
		Type:   notificare.ActionTypeTelephone,
		Label:  "Call",
		Target: "+15551234567",
	}
	require.NoError(t, f.push.PresentAction(context.Background(), n, action))

	assert.Equal(t, []string{"tel:+15551234567"}, f.env.openedURLs())
}
