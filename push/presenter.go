package push

import (
	"context"
	"net/url"
	"strings"

	"github.com/notificare/notificare-go"
	"github.com/notificare/notificare-go/pkg/httpclient"
	"github.com/notificare/notificare-go/pkg/logger"
)

// NotificationPresenter renders notification content on the host surface.
// URL-like notification types (in-app browser, URL schemes, passes) never
// reach the presenter; they navigate through the host environment instead.
type NotificationPresenter interface {
	Present(ctx context.Context, n *notificare.Notification) error
	Dismiss(ctx context.Context) error

	// CaptureReply collects user input for a callback action that requires
	// the camera or keyboard. It blocks until the capture completes.
	CaptureReply(ctx context.Context, n *notificare.Notification, action notificare.NotificationAction) (*Reply, error)
}

// Reply is user input captured for a callback action.
type Reply struct {
	Message  string
	MediaURL string
	MimeType string
}

// Present resolves the notification's content and shows it. Partial
// notifications are completed first. Presentation outcomes are reported
// through the client event surface.
func (p *Push) Present(ctx context.Context, n *notificare.Notification) error {
	p.client.Emit(notificare.EventNotificationWillPresent, n)

	if !p.client.IsConfigured() {
		p.client.Emit(notificare.EventNotificationFailedToPresent, n)
		return notificare.ErrNotConfigured
	}

	n, err := p.client.EnsureNotification(ctx, n)
	if err != nil {
		p.client.Emit(notificare.EventNotificationFailedToPresent, n)
		return err
	}

	// Replace whatever notification is currently on screen.
	if p.shownNotification() != nil {
		p.Dismiss(ctx)
	}

	switch n.Type {
	case notificare.NotificationTypeNone:
		// Nothing to render; the payload is the host's to handle.
		p.client.Emit(notificare.EventNotificationPresented, n)
		return nil

	case notificare.NotificationTypeInAppBrowser, notificare.NotificationTypeURLScheme:
		if err := p.presentURL(ctx, n); err != nil {
			p.client.Emit(notificare.EventNotificationFailedToPresent, n)
			return err
		}
		p.client.Emit(notificare.EventNotificationPresented, n)
		return nil

	case notificare.NotificationTypePassbook:
		if err := p.presentPass(ctx, n); err != nil {
			p.client.Emit(notificare.EventNotificationFailedToPresent, n)
			return err
		}
		p.client.Emit(notificare.EventNotificationPresented, n)
		return nil

	case notificare.NotificationTypeAlert,
		notificare.NotificationTypeImage,
		notificare.NotificationTypeMap,
		notificare.NotificationTypeURL,
		notificare.NotificationTypeVideo,
		notificare.NotificationTypeWebView:
		if err := p.presentOnSurface(ctx, n); err != nil {
			p.client.Emit(notificare.EventNotificationFailedToPresent, n)
			return err
		}
		p.client.Emit(notificare.EventNotificationPresented, n)
		return nil

	default:
		p.log.Warn("unsupported notification type",
			logger.NotificationID(n.ID),
			logger.Error(ErrUnsupportedNotificationType),
		)
		p.client.Emit(notificare.EventNotificationFailedToPresent, n)
		return ErrUnsupportedNotificationType
	}
}

// Dismiss removes the shown notification from screen. It fails with
// ErrNoNotificationShown when nothing is tracked as shown; the overlay state
// is cleared either way so a stale presenter cannot wedge presentation.
func (p *Push) Dismiss(ctx context.Context) error {
	p.mu.Lock()
	n := p.shown
	p.shown = nil
	p.mu.Unlock()

	p.client.Overlays().Clear(notificare.OverlayNotification)
	if n == nil {
		return ErrNoNotificationShown
	}

	if p.presenter != nil {
		if err := p.presenter.Dismiss(ctx); err != nil {
			p.log.Warn("presenter failed to dismiss notification",
				logger.NotificationID(n.ID),
				logger.Error(err),
			)
		}
	}
	p.client.Emit(notificare.EventNotificationFinishedPresenting, n)
	return nil
}

func (p *Push) shownNotification() *notificare.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shown
}

func (p *Push) presentOnSurface(ctx context.Context, n *notificare.Notification) error {
	if p.presenter == nil {
		return ErrNoPresenter
	}
	// Dismiss already cleared the overlay for a replaced notification, but a
	// stale state from a crashed presenter must not wedge presentation.
	if !p.client.Overlays().TryShow(notificare.OverlayNotification) {
		p.client.Overlays().Clear(notificare.OverlayNotification)
		p.client.Overlays().TryShow(notificare.OverlayNotification)
	}

	if err := p.presenter.Present(ctx, n); err != nil {
		p.client.Overlays().Clear(notificare.OverlayNotification)
		return err
	}

	p.mu.Lock()
	p.shown = n
	p.mu.Unlock()
	return nil
}

// presentURL navigates the host to the notification's URL content. A blank
// URL falls back to the root path; URL schemes pointing at the dynamic link
// domain are resolved to their target first.
func (p *Push) presentURL(ctx context.Context, n *notificare.Notification) error {
	target, ok := n.URLContent()
	if !ok || strings.TrimSpace(target) == "" {
		target = "/"
	}

	if n.Type == notificare.NotificationTypeURLScheme && p.isDynamicLink(target) {
		link, err := p.client.FetchDynamicLink(ctx, target)
		if err != nil {
			return err
		}
		target = link.Target
	}

	return p.client.Environment().OpenURL(ctx, target)
}

func (p *Push) isDynamicLink(rawURL string) bool {
	options := p.client.Options()
	if options == nil || options.DynamicLinkDomain == "" {
		return false
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == options.DynamicLinkDomain ||
		strings.HasSuffix(host, "."+options.DynamicLinkDomain)
}

type passResponse struct {
	Pass passPayload `json:"pass"`
}

type passPayload struct {
	ID                 string `json:"_id"`
	Serial             string `json:"serial"`
	Version            int    `json:"version"`
	GooglePaySaveLink  string `json:"googlePaySaveLink"`
	PassbookWebVersion string `json:"passbookWebVersion"`
}

// presentPass resolves the pass behind a passbook notification and navigates
// to the save surface the host supports: Apple Wallet on Safari for version 2
// passes, Google Pay when the backend provides a save link, otherwise the
// hosted web version.
func (p *Push) presentPass(ctx context.Context, n *notificare.Notification) error {
	target, ok := n.URLContent()
	if !ok {
		return ErrUnsupportedNotificationType
	}

	serial := target
	if i := strings.LastIndexByte(strings.TrimRight(target, "/"), '/'); i >= 0 {
		serial = strings.TrimRight(target, "/")[i+1:]
	}

	api, err := p.client.API()
	if err != nil {
		return err
	}

	resp, err := api.Get(ctx, "/api/pass/forserial/"+httpclient.EscapePath(serial))
	if err != nil {
		return err
	}

	var payload passResponse
	if err := resp.DecodeJSON(&payload); err != nil {
		return err
	}
	pass := payload.Pass

	host := strings.TrimRight(p.client.Options().ServicesHost, "/")
	switch {
	case pass.Version == 2 && p.client.Environment().IsAppleSafari():
		return p.client.Environment().OpenURL(ctx, host+"/pass/pkpass/"+pass.Serial)
	case pass.GooglePaySaveLink != "":
		return p.client.Environment().OpenURL(ctx, pass.GooglePaySaveLink)
	default:
		return p.client.Environment().OpenURL(ctx, host+"/pass/web/"+pass.Serial)
	}
}
