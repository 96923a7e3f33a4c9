package userinbox

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/notificare/notificare-go"
	"github.com/notificare/notificare-go/pkg/logger"
)

// ErrUserInboxUnavailable is returned when the application does not use the
// user-level inbox.
var ErrUserInboxUnavailable = errors.New("userinbox: user inbox not enabled for this application")

// Item is one user inbox entry with its partial notification.
type Item struct {
	ID           string                   `json:"id"`
	Notification *notificare.Notification `json:"notification"`
	Time         time.Time                `json:"time"`
	Opened       bool                     `json:"opened"`
	Expires      *time.Time               `json:"expires,omitempty"`
}

// Response is a parsed user inbox payload.
type Response struct {
	Count  int    `json:"count"`
	Unread int    `json:"unread"`
	Items  []Item `json:"items"`
}

type rawResponse struct {
	Count  int       `json:"count"`
	Unread int       `json:"unread"`
	Items  []rawItem `json:"items"`
}

type rawItem struct {
	ID           string                             `json:"_id"`
	Notification string                             `json:"notification"`
	Type         string                             `json:"type"`
	Time         time.Time                          `json:"time"`
	Title        string                             `json:"title"`
	Subtitle     string                             `json:"subtitle"`
	Message      string                             `json:"message"`
	Attachment   *notificare.NotificationAttachment `json:"attachment"`
	Extra        map[string]any                     `json:"extra"`
	Opened       bool                               `json:"opened"`
	Expires      *time.Time                         `json:"expires"`
}

// UserInbox is the user-level inbox component. Create one with Attach.
type UserInbox struct {
	notificare.BaseComponent
	client *notificare.Client
	log    *slog.Logger
}

// Attach registers the user inbox component on the client.
func Attach(client *notificare.Client) *UserInbox {
	u := &UserInbox{
		client: client,
		log:    client.Logger().With(logger.Component("userinbox")),
	}
	client.RegisterComponent(u)
	return u
}

func (u *UserInbox) Name() string { return "userinbox" }

func (u *UserInbox) checkAvailable() error {
	if !u.client.IsReady() {
		return notificare.ErrNotReady
	}
	app, err := u.client.Application()
	if err != nil {
		return err
	}
	if app.InboxConfig == nil || !app.InboxConfig.UseUserInbox {
		return ErrUserInboxUnavailable
	}
	return nil
}

// Parse converts a raw user inbox payload, as fetched by the host from its
// own backend, into typed items.
func (u *UserInbox) Parse(raw []byte) (*Response, error) {
	if err := u.checkAvailable(); err != nil {
		return nil, err
	}

	var payload rawResponse
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(payload.Items))
	for _, entry := range payload.Items {
		items = append(items, entry.toItem())
	}
	return &Response{Count: payload.Count, Unread: payload.Unread, Items: items}, nil
}

// Open completes the item's notification, records the open event and returns
// the full notification for presentation.
func (u *UserInbox) Open(ctx context.Context, item Item) (*notificare.Notification, error) {
	if err := u.checkAvailable(); err != nil {
		return nil, err
	}

	n, err := u.client.EnsureNotification(ctx, item.Notification)
	if err != nil {
		return nil, err
	}

	if err := u.client.LogNotificationOpen(ctx, n.ID); err != nil {
		u.log.Warn("failed to log user inbox open",
			logger.NotificationID(n.ID),
			logger.Error(err),
		)
	}

	u.client.Emit(notificare.EventNotificationOpened, n)
	return n, nil
}

func (r rawItem) toItem() Item {
	n := &notificare.Notification{
		ID:          r.Notification,
		Partial:     true,
		Type:        r.Type,
		Time:        r.Time,
		Title:       r.Title,
		Subtitle:    r.Subtitle,
		Message:     r.Message,
		Content:     []notificare.NotificationContent{},
		Actions:     []notificare.NotificationAction{},
		Attachments: []notificare.NotificationAttachment{},
		Extra:       r.Extra,
	}
	if r.Attachment != nil {
		n.Attachments = append(n.Attachments, *r.Attachment)
	}
	if n.Extra == nil {
		n.Extra = map[string]any{}
	}
	return Item{
		ID:           r.ID,
		Notification: n,
		Time:         r.Time,
		Opened:       r.Opened,
		Expires:      r.Expires,
	}
}
