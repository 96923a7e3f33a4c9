package inbox

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/notificare/notificare-go"
	"github.com/notificare/notificare-go/pkg/httpclient"
	"github.com/notificare/notificare-go/pkg/logger"
	"github.com/notificare/notificare-go/pkg/store"
)

const storageBadgeKey = "re.notifica.badge"

// Item is one inbox entry. The embedded notification is partial; Open or
// notificare.Client.EnsureNotification completes it.
type Item struct {
	ID           string                   `json:"id"`
	Notification *notificare.Notification `json:"notification"`
	Time         time.Time                `json:"time"`
	Opened       bool                     `json:"opened"`
	Expires      *time.Time               `json:"expires,omitempty"`
}

// FetchOptions filters and pages an inbox listing.
type FetchOptions struct {
	Since *time.Time
	Skip  int
	Limit int
}

// Response is one page of the inbox with its counters.
type Response struct {
	Items  []Item
	Count  int
	Unread int
}

type inboxResponse struct {
	InboxItems []inboxItemPayload `json:"inboxItems"`
	Count      int                `json:"count"`
	Unread     int                `json:"unread"`
}

type inboxItemPayload struct {
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

func (p inboxItemPayload) toItem() Item {
	n := &notificare.Notification{
		ID:          p.Notification,
		Partial:     true,
		Type:        p.Type,
		Time:        p.Time,
		Title:       p.Title,
		Subtitle:    p.Subtitle,
		Message:     p.Message,
		Content:     []notificare.NotificationContent{},
		Actions:     []notificare.NotificationAction{},
		Attachments: []notificare.NotificationAttachment{},
		Extra:       p.Extra,
	}
	if p.Attachment != nil {
		n.Attachments = append(n.Attachments, *p.Attachment)
	}
	if n.Extra == nil {
		n.Extra = map[string]any{}
	}
	return Item{
		ID:           p.ID,
		Notification: n,
		Time:         p.Time,
		Opened:       p.Opened,
		Expires:      p.Expires,
	}
}

// Inbox is the device inbox component. Create one with Attach.
type Inbox struct {
	notificare.BaseComponent
	client *notificare.Client
	log    *slog.Logger
}

// Attach registers the inbox component on the client.
func Attach(client *notificare.Client) *Inbox {
	in := &Inbox{
		client: client,
		log:    client.Logger().With(logger.Component("inbox")),
	}
	client.RegisterComponent(in)
	return in
}

func (in *Inbox) Name() string { return "inbox" }

// Launch refreshes the badge so hosts have a current count right after the
// ready event. Best-effort; a failed refresh never aborts the launch.
func (in *Inbox) Launch(ctx context.Context) error {
	if !in.client.HasService(notificare.ServiceInbox) || !in.autoBadgeEnabled() {
		return nil
	}
	if _, err := in.refreshBadge(ctx); err != nil {
		in.log.Warn("failed to refresh badge on launch", logger.Error(err))
	}
	return nil
}

func (in *Inbox) ClearStorage(ctx context.Context) error {
	err := in.client.Store().Delete(ctx, storageBadgeKey)
	if err != nil && !store.IsNotFound(err) {
		return err
	}
	return nil
}

func (in *Inbox) ProcessBroadcast(ctx context.Context, event string, data any) {
	if event != notificare.BroadcastForeground {
		return
	}
	if !in.client.IsReady() || !in.autoBadgeEnabled() {
		return
	}
	if _, err := in.RefreshBadge(ctx); err != nil {
		in.log.Warn("failed to refresh badge on foreground", logger.Error(err))
	}
}

func (in *Inbox) checkAvailable() error {
	if !in.client.IsReady() {
		return notificare.ErrNotReady
	}
	if err := in.client.CheckService(notificare.ServiceInbox); err != nil {
		return err
	}
	app, err := in.client.Application()
	if err != nil {
		return err
	}
	if app.InboxConfig == nil || !app.InboxConfig.UseInbox {
		return ErrInboxUnavailable
	}
	return nil
}

func (in *Inbox) autoBadgeEnabled() bool {
	app, err := in.client.Application()
	if err != nil {
		return false
	}
	return app.InboxConfig != nil && app.InboxConfig.UseInbox && app.InboxConfig.AutoBadge
}

// Fetch lists the device inbox.
func (in *Inbox) Fetch(ctx context.Context, opts FetchOptions) (*Response, error) {
	if err := in.checkAvailable(); err != nil {
		return nil, err
	}
	return in.fetch(ctx, opts)
}

func (in *Inbox) fetch(ctx context.Context, opts FetchOptions) (*Response, error) {
	device, err := in.client.Device()
	if err != nil {
		return nil, err
	}

	api, err := in.client.API()
	if err != nil {
		return nil, err
	}

	reqOpts := []httpclient.RequestOption{
		httpclient.WithQuery("skip", strconv.Itoa(opts.Skip)),
		httpclient.WithQuery("limit", strconv.Itoa(opts.Limit)),
	}
	if opts.Since != nil {
		reqOpts = append(reqOpts, httpclient.WithQuery("since", strconv.FormatInt(opts.Since.UnixMilli(), 10)))
	}

	resp, err := api.Get(ctx, "/api/notification/inbox/fordevice/"+httpclient.EscapePath(device.ID), reqOpts...)
	if err != nil {
		return nil, err
	}

	var payload inboxResponse
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(payload.InboxItems))
	for _, raw := range payload.InboxItems {
		items = append(items, raw.toItem())
	}
	return &Response{Items: items, Count: payload.Count, Unread: payload.Unread}, nil
}

// Open completes the item's notification, marks it read and returns the full
// notification for presentation.
func (in *Inbox) Open(ctx context.Context, item Item) (*notificare.Notification, error) {
	if err := in.checkAvailable(); err != nil {
		return nil, err
	}

	n, err := in.client.EnsureNotification(ctx, item.Notification)
	if err != nil {
		return nil, err
	}

	if err := in.MarkAsRead(ctx, item); err != nil {
		return nil, err
	}

	in.client.Emit(notificare.EventNotificationOpened, n)
	return n, nil
}

// MarkAsRead marks a single item read.
func (in *Inbox) MarkAsRead(ctx context.Context, item Item) error {
	if err := in.checkAvailable(); err != nil {
		return err
	}

	if err := in.client.LogNotificationOpen(ctx, item.Notification.ID); err != nil {
		return err
	}

	api, err := in.client.API()
	if err != nil {
		return err
	}
	if _, err := api.Put(ctx, "/api/notification/inbox/"+httpclient.EscapePath(item.ID)); err != nil {
		return err
	}

	in.notifyUpdated(ctx)
	return nil
}

// MarkAllAsRead marks the whole inbox read.
func (in *Inbox) MarkAllAsRead(ctx context.Context) error {
	if err := in.checkAvailable(); err != nil {
		return err
	}

	device, err := in.client.Device()
	if err != nil {
		return err
	}

	api, err := in.client.API()
	if err != nil {
		return err
	}
	if _, err := api.Put(ctx, "/api/notification/inbox/fordevice/"+httpclient.EscapePath(device.ID)); err != nil {
		return err
	}

	in.notifyUpdated(ctx)
	return nil
}

// Remove deletes a single item from the inbox.
func (in *Inbox) Remove(ctx context.Context, item Item) error {
	if err := in.checkAvailable(); err != nil {
		return err
	}

	api, err := in.client.API()
	if err != nil {
		return err
	}
	if _, err := api.Delete(ctx, "/api/notification/inbox/"+httpclient.EscapePath(item.ID)); err != nil {
		return err
	}

	in.notifyUpdated(ctx)
	return nil
}

// Clear empties the device inbox.
func (in *Inbox) Clear(ctx context.Context) error {
	if err := in.checkAvailable(); err != nil {
		return err
	}

	device, err := in.client.Device()
	if err != nil {
		return err
	}

	api, err := in.client.API()
	if err != nil {
		return err
	}
	if _, err := api.Delete(ctx, "/api/notification/inbox/fordevice/"+httpclient.EscapePath(device.ID)); err != nil {
		return err
	}

	in.notifyUpdated(ctx)
	return nil
}

// Badge returns the locally persisted unread count.
func (in *Inbox) Badge(ctx context.Context) (int, error) {
	badge, err := store.GetJSON[int](ctx, in.client.Store(), storageBadgeKey)
	if err != nil {
		if store.IsNotFound(err) {
			return 0, nil
		}
		return 0, err
	}
	return *badge, nil
}

// RefreshBadge fetches the unread count, persists it and announces the new
// value. Requires auto-badge.
func (in *Inbox) RefreshBadge(ctx context.Context) (int, error) {
	if err := in.checkAvailable(); err != nil {
		return 0, err
	}
	if !in.autoBadgeEnabled() {
		return 0, ErrAutoBadgeUnavailable
	}
	return in.refreshBadge(ctx)
}

// refreshBadge skips the readiness gate so the launch sequence can reconcile
// the stored badge before the client reports launched.
func (in *Inbox) refreshBadge(ctx context.Context) (int, error) {
	resp, err := in.fetch(ctx, FetchOptions{Limit: 1})
	if err != nil {
		return 0, err
	}

	if err := store.SetJSON(ctx, in.client.Store(), storageBadgeKey, resp.Unread); err != nil {
		return 0, err
	}

	in.client.Emit(notificare.EventBadgeUpdated, resp.Unread)
	return resp.Unread, nil
}

// notifyUpdated refreshes the badge after a mutation and announces the inbox
// change. Badge failures only log; the mutation itself already succeeded.
func (in *Inbox) notifyUpdated(ctx context.Context) {
	if in.autoBadgeEnabled() {
		if _, err := in.RefreshBadge(ctx); err != nil {
			in.log.Warn("failed to refresh badge", logger.Error(err))
		}
	}
	in.client.Emit(notificare.EventInboxUpdated, nil)
}
