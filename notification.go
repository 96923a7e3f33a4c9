package notificare

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/notificare/notificare-go/pkg/httpclient"
)

// Notification type identifiers.
const (
	NotificationTypeNone         = "re.notifica.notification.None"
	NotificationTypeAlert        = "re.notifica.notification.Alert"
	NotificationTypeImage        = "re.notifica.notification.Image"
	NotificationTypeInAppBrowser = "re.notifica.notification.InAppBrowser"
	NotificationTypeMap          = "re.notifica.notification.Map"
	NotificationTypePassbook     = "re.notifica.notification.Passbook"
	NotificationTypeURL          = "re.notifica.notification.URL"
	NotificationTypeURLScheme    = "re.notifica.notification.URLScheme"
	NotificationTypeVideo        = "re.notifica.notification.Video"
	NotificationTypeWebView      = "re.notifica.notification.WebView"
)

// Notification action type identifiers.
const (
	ActionTypeApp       = "re.notifica.action.App"
	ActionTypeBrowser   = "re.notifica.action.Browser"
	ActionTypeCallback  = "re.notifica.action.Callback"
	ActionTypeCustom    = "re.notifica.action.Custom"
	ActionTypeMail      = "re.notifica.action.Mail"
	ActionTypeSMS       = "re.notifica.action.SMS"
	ActionTypeTelephone = "re.notifica.action.Telephone"
)

// Notification is a single push notification. Partial notifications carry
// only inbox-level summary fields; FetchNotification completes them before
// type-specific content or actions are executed.
type Notification struct {
	ID          string                   `json:"id"`
	Partial     bool                     `json:"partial"`
	Type        string                   `json:"type"`
	Time        time.Time                `json:"time"`
	Title       string                   `json:"title,omitempty"`
	Subtitle    string                   `json:"subtitle,omitempty"`
	Message     string                   `json:"message"`
	Content     []NotificationContent    `json:"content"`
	Actions     []NotificationAction     `json:"actions"`
	Attachments []NotificationAttachment `json:"attachments"`
	Extra       map[string]any           `json:"extra"`
}

// NotificationContent is one typed content entry of a notification.
type NotificationContent struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// NotificationAction is an action button attached to a notification.
type NotificationAction struct {
	Type        string `json:"type"`
	Label       string `json:"label"`
	Target      string `json:"target,omitempty"`
	Camera      bool   `json:"camera"`
	Keyboard    bool   `json:"keyboard"`
	Destructive bool   `json:"destructive"`
}

// NotificationAttachment is a media attachment of a notification.
type NotificationAttachment struct {
	MimeType string `json:"mimeType"`
	URI      string `json:"uri"`
}

type notificationResponse struct {
	Notification notificationPayload `json:"notification"`
}

type notificationPayload struct {
	ID          string                   `json:"_id"`
	Type        string                   `json:"type"`
	Time        time.Time                `json:"time"`
	Title       string                   `json:"title"`
	Subtitle    string                   `json:"subtitle"`
	Message     string                   `json:"message"`
	Content     []NotificationContent    `json:"content"`
	Actions     []NotificationAction     `json:"actions"`
	Attachments []NotificationAttachment `json:"attachments"`
	Extra       map[string]any           `json:"extra"`
}

func (p notificationPayload) toNotification() *Notification {
	n := &Notification{
		ID:          p.ID,
		Partial:     false,
		Type:        p.Type,
		Time:        p.Time,
		Title:       p.Title,
		Subtitle:    p.Subtitle,
		Message:     p.Message,
		Content:     p.Content,
		Actions:     p.Actions,
		Attachments: p.Attachments,
		Extra:       p.Extra,
	}
	if n.Content == nil {
		n.Content = []NotificationContent{}
	}
	if n.Actions == nil {
		n.Actions = []NotificationAction{}
	}
	if n.Attachments == nil {
		n.Attachments = []NotificationAttachment{}
	}
	if n.Extra == nil {
		n.Extra = map[string]any{}
	}
	return n
}

// FetchNotification retrieves the full notification for the given id.
func (c *Client) FetchNotification(ctx context.Context, id string) (*Notification, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}
	if id == "" {
		return nil, fmt.Errorf("notificare: notification id is required")
	}

	api, err := c.API()
	if err != nil {
		return nil, err
	}

	resp, err := api.Get(ctx, "/api/notification/"+httpclient.EscapePath(id))
	if err != nil {
		return nil, err
	}

	var payload notificationResponse
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, err
	}
	return payload.Notification.toNotification(), nil
}

// EnsureNotification returns n when it is already complete, otherwise fetches
// the full record by id.
func (c *Client) EnsureNotification(ctx context.Context, n *Notification) (*Notification, error) {
	if n == nil {
		return nil, fmt.Errorf("notificare: notification is required")
	}
	if !n.Partial {
		return n, nil
	}
	return c.FetchNotification(ctx, n.ID)
}

// DynamicLink is the resolved target of a dynamic link.
type DynamicLink struct {
	Target string `json:"target"`
}

type dynamicLinkResponse struct {
	Link DynamicLink `json:"link"`
}

// FetchDynamicLink resolves a dynamic link URL into its target.
func (c *Client) FetchDynamicLink(ctx context.Context, rawURL string) (*DynamicLink, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	api, err := c.API()
	if err != nil {
		return nil, err
	}

	resp, err := api.Get(ctx, "/api/link/dynamic/"+httpclient.EscapePath(rawURL),
		httpclient.WithQuery("platform", "Web"),
	)
	if err != nil {
		return nil, err
	}

	var payload dynamicLinkResponse
	if err := resp.DecodeJSON(&payload); err != nil {
		return nil, err
	}
	return &payload.Link, nil
}

// URLContent extracts the URL-typed content entry of a notification, if any.
func (n *Notification) URLContent() (string, bool) {
	for _, content := range n.Content {
		if content.Type != "re.notifica.content.URL" {
			continue
		}
		switch data := content.Data.(type) {
		case string:
			return data, true
		case map[string]any:
			if raw, ok := data["url"].(string); ok {
				return raw, true
			}
		}
	}
	return "", false
}

// HTMLContent extracts the HTML-typed content entry of a notification.
func (n *Notification) HTMLContent() (string, bool) {
	for _, content := range n.Content {
		if content.Type != "re.notifica.content.HTML" {
			continue
		}
		if raw, ok := content.Data.(string); ok {
			return raw, true
		}
	}
	return "", false
}

// MarshalExtra returns the extra payload as JSON for hosts that relay it.
func (n *Notification) MarshalExtra() ([]byte, error) {
	return json.Marshal(n.Extra)
}
